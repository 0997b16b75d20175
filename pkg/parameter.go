package pycore

// ParameterKind classifies a callable's parameter: `def f(a:int=3, *b, **c)` yields
// [PositionalDefault, Variable, Keyword] for its three parameters.
type ParameterKind int

const (
	ParamPositional ParameterKind = iota
	ParamPositionalDefault
	ParamVariable
	ParamKeyword
)

// Parameter is one entry of a SourceFrame's parameter list.
type Parameter struct {
	Kind    ParameterKind
	Name    string
	Type    TypeInfo
	Default string
}
