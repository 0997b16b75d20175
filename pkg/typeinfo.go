package pycore

// TypeKind is the tag of the TypeInfo sum type.
type TypeKind int

const (
	KindInvalid TypeKind = iota
	KindUnknown
	KindVoid

	KindReference
	KindReferenceCallable
	KindReferenceArgument
	KindReferenceBuiltin
	KindReferenceImport

	KindFunction
	KindLambda
	KindGenerator
	KindCoroutine
	KindMethod
	KindModule
	KindClass
	KindNone
	KindBool
	KindInt
	KindFloat
	KindStr
	KindBytes
	KindList
	KindTuple
	KindSet
	KindFrozenSet
	KindDict
	KindRange
	KindComplex
	KindFile
	KindCustom
)

// TypeInfo is the result of type inference over a token or statement. Name carries
// the referent's name for the Reference* and Custom variants; it is empty otherwise.
type TypeInfo struct {
	Kind TypeKind
	Name string
}

func Unknown() TypeInfo { return TypeInfo{Kind: KindUnknown} }
func Invalid() TypeInfo { return TypeInfo{Kind: KindInvalid} }
func Void() TypeInfo    { return TypeInfo{Kind: KindVoid} }

func Basic(k TypeKind) TypeInfo { return TypeInfo{Kind: k} }

func Reference(name string) TypeInfo {
	return TypeInfo{Kind: KindReference, Name: name}
}

func Custom(name string) TypeInfo {
	return TypeInfo{Kind: KindCustom, Name: name}
}

// IsReference reports whether this type describes an unresolved (or partially
// resolved) name rather than a concrete value type.
func (t TypeInfo) IsReference() bool {
	switch t.Kind {
	case KindReference, KindReferenceCallable, KindReferenceArgument,
		KindReferenceBuiltin, KindReferenceImport:
		return true
	default:
		return false
	}
}

// IsCallable reports whether a value of this type can be called.
func (t TypeInfo) IsCallable() bool {
	switch t.Kind {
	case KindFunction, KindLambda, KindMethod, KindClass,
		KindReferenceCallable, KindReferenceBuiltin:
		return true
	default:
		return false
	}
}

// IsValid reports whether this type carries real information, as opposed to being
// the product of a failed resolution.
func (t TypeInfo) IsValid() bool {
	return t.Kind != KindInvalid
}

func (t TypeInfo) String() string {
	switch t.Kind {
	case KindInvalid:
		return "<invalid>"
	case KindUnknown:
		return "<unknown>"
	case KindVoid:
		return "None"
	case KindReference, KindReferenceCallable, KindReferenceArgument,
		KindReferenceBuiltin, KindReferenceImport, KindCustom:
		return t.Name
	case KindFunction:
		return "function"
	case KindLambda:
		return "lambda"
	case KindGenerator:
		return "generator"
	case KindCoroutine:
		return "coroutine"
	case KindMethod:
		return "method"
	case KindModule:
		return "module"
	case KindClass:
		return "type"
	case KindNone:
		return "NoneType"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	case KindSet:
		return "set"
	case KindFrozenSet:
		return "frozenset"
	case KindDict:
		return "dict"
	case KindRange:
		return "range"
	case KindComplex:
		return "complex"
	case KindFile:
		return "file"
	default:
		return "<?>"
	}
}
