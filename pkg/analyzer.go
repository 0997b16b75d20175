package pycore

import (
	"fmt"
	"strings"
)

// Analyzer builds and incrementally maintains the frame tree and identifier tables,
// walking the token stream directly with no separate AST layer: frames and
// identifiers are derived straight from TokenList.
type Analyzer struct {
	list   *TokenList
	Module *SourceFrame

	builtins map[string]TypeInfo

	// importCache holds one placeholder frame per imported module name, created when
	// an import statement naming the module is analyzed. The module's own source is
	// never read, so these frames stay empty and names inside them are not resolved.
	importCache map[string]*SourceFrame
}

// NewAnalyzer creates an analyzer bound to list. Call AnalyzeAll once before using
// any query method.
func NewAnalyzer(list *TokenList) *Analyzer {
	return &Analyzer{
		list:        list,
		builtins:    defaultBuiltins(),
		importCache: make(map[string]*SourceFrame),
	}
}

func defaultBuiltins() map[string]TypeInfo {
	names := []string{
		"print", "len", "range", "int", "str", "float", "bool", "list", "dict",
		"set", "frozenset", "tuple", "bytes", "object", "type", "super", "open",
		"isinstance", "issubclass", "getattr", "setattr", "hasattr", "enumerate",
		"zip", "map", "filter", "sorted", "reversed", "sum", "min", "max", "abs",
		"Exception", "ValueError", "TypeError", "KeyError", "IndexError",
		"StopIteration", "RuntimeError", "NotImplementedError",
	}
	m := make(map[string]TypeInfo, len(names))
	for _, n := range names {
		m[n] = TypeInfo{Kind: KindReferenceBuiltin, Name: n}
	}
	return m
}

// AnalyzeAll builds the frame tree and identifier tables from scratch, walking every
// line of the bound TokenList in order.
func (a *Analyzer) AnalyzeAll() *SourceFrame {
	a.Module = newFrame(FrameModule, "<module>", TokenHandle{}, nil)
	stack := []*SourceFrame{a.Module}
	headerIndent := []int{-1}

	for n := 0; n < a.list.LineCount(); n++ {
		line, ok := a.list.Line(n)
		if !ok {
			continue
		}
		if strippedEmpty(line.Text) || isCommentOnly(line.Text) {
			continue
		}

		for len(stack) > 1 && line.Indent <= headerIndent[len(headerIndent)-1] {
			stack = stack[:len(stack)-1]
			headerIndent = headerIndent[:len(headerIndent)-1]
		}
		current := stack[len(stack)-1]

		toks := line.Tokens()
		if len(toks) == 0 {
			continue
		}

		if frame, consumed := a.tryFrameHeader(line, toks, current); frame != nil {
			current.Children = append(current.Children, frame)
			stack = append(stack, frame)
			headerIndent = append(headerIndent, line.Indent)
			a.analyzeRemainingTokens(current, toks[consumed:])
			continue
		}

		a.analyzeLineTokens(current, toks)
	}

	return a.Module
}

func isCommentOnly(text string) bool {
	t := strings.TrimSpace(text)
	return strings.HasPrefix(t, "#")
}

// tryFrameHeader recognizes `def name(...):` and `class name(...):` headers, builds
// the child frame (including its parameter list), and returns how many leading tokens
// belong to the header so the caller can still analyze anything after the colon on
// the same physical line.
func (a *Analyzer) tryFrameHeader(line *TokenLine, toks []*Token, parent *SourceFrame) (*SourceFrame, int) {
	if len(toks) == 0 {
		return nil, 0
	}
	var kind FrameKind
	switch toks[0].Type {
	case TKeywordDef:
		kind = FrameFunction
	case TKeywordClass:
		kind = FrameClass
	default:
		return nil, 0
	}

	i := 1
	name := ""
	if i < len(toks) && toks[i].isIdentifier() {
		name = toks[i].Text()
		i++
	}

	frame := newFrame(kind, name, a.handleOfLineToken(line, 0), parent)

	if i < len(toks) && toks[i].Type == TDelimiterOpenParen {
		i++
		depth := 1
		for i < len(toks) && depth > 0 {
			if toks[i].Type == TDelimiterOpenParen {
				depth++
			}
			if toks[i].Type == TDelimiterCloseParen {
				depth--
				if depth == 0 {
					i++
					break
				}
			}
			if depth == 1 && kind == FrameFunction {
				param, advance := a.parseParameter(toks, i)
				if advance > 0 {
					frame.Parameters = append(frame.Parameters, param)
					i += advance
					continue
				}
			}
			i++
		}
	}

	for i < len(toks) && toks[i].Type != TDelimiterColon {
		i++
	}
	if i < len(toks) {
		i++ // consume the colon
	}
	return frame, i
}

func (a *Analyzer) parseParameter(toks []*Token, i int) (Parameter, int) {
	start := i
	kind := ParamPositional
	if toks[i].Type == TOperatorVariableParam || toks[i].Type == TOperatorMul {
		kind = ParamVariable
		i++
	} else if toks[i].Type == TOperatorKeyWordParam || toks[i].Type == TOperatorExponential {
		kind = ParamKeyword
		i++
	}
	if i >= len(toks) || !toks[i].isIdentifier() {
		return Parameter{}, 0
	}
	name := toks[i].Text()
	i++

	typ := Unknown()
	if i < len(toks) && toks[i].Type == TDelimiterColon {
		i++
		if i < len(toks) && toks[i].isIdentifier() {
			typ = annotationType(toks[i].Text())
			i++
		}
	}

	def := ""
	if i < len(toks) && toks[i].Type == TOperatorEqual {
		i++
		if i < len(toks) {
			def = toks[i].Text()
			i++
		}
		if kind == ParamPositional {
			kind = ParamPositionalDefault
		}
	}

	// consume a trailing comma so the caller's loop doesn't re-enter on it.
	if i < len(toks) && toks[i].Type == TDelimiterComma {
		i++
	}

	return Parameter{Kind: kind, Name: name, Type: typ, Default: def}, i - start
}

func annotationType(name string) TypeInfo {
	switch name {
	case "int":
		return Basic(KindInt)
	case "float":
		return Basic(KindFloat)
	case "str":
		return Basic(KindStr)
	case "bytes":
		return Basic(KindBytes)
	case "bool":
		return Basic(KindBool)
	case "list":
		return Basic(KindList)
	case "dict":
		return Basic(KindDict)
	case "tuple":
		return Basic(KindTuple)
	case "set":
		return Basic(KindSet)
	default:
		return Custom(name)
	}
}

func (a *Analyzer) analyzeRemainingTokens(frame *SourceFrame, toks []*Token) {
	if len(toks) == 0 {
		return
	}
	a.analyzeLineTokens(frame, toks)
}

// analyzeLineTokens resolves every identifier on the line against frame's chain,
// recording assignments and retyping tokens in place (IdentifierUnknown ->
// IdentifierDefined/Builtin/Module/Invalid), notifying TokenList subscribers as it
// goes, the contract an external highlighter depends on.
func (a *Analyzer) analyzeLineTokens(frame *SourceFrame, toks []*Token) {
	if len(toks) > 0 && toks[0].Type == TKeywordImport {
		a.analyzeImport(frame, toks)
		return
	}
	if len(toks) > 1 && toks[0].Type == TKeywordFrom {
		a.analyzeFromImport(frame, toks)
		return
	}

	for i, tok := range toks {
		if !tok.isIdentifier() || tok.Type != TIdentifierUnknown {
			continue
		}
		name := tok.Text()
		if name == "self" {
			a.retype(tok, TIdentifierSelf)
			continue
		}

		isDecl := i+1 < len(toks) && toks[i+1].Type == TOperatorEqual &&
			!(i+2 < len(toks) && toks[i+2].Type == TOperatorEqual)

		typ, newDecl := a.resolveAssignment(frame, name, toks, i, isDecl)
		a.bindIdentifier(frame, name, a.handleOfToken(tok), typ, newDecl)
		a.retypeFor(tok, typ, newDecl)
	}
}

func (a *Analyzer) resolveAssignment(frame *SourceFrame, name string, toks []*Token, i int, isDecl bool) (TypeInfo, bool) {
	if isDecl {
		rhs := toks[i+2:]
		return a.inferExprType(frame, rhs), true
	}
	typ, ok := a.lookupChain(frame, name)
	if !ok {
		return Invalid(), false
	}
	return typ, false
}

func (a *Analyzer) bindIdentifier(frame *SourceFrame, name string, h TokenHandle, typ TypeInfo, isDecl bool) {
	id := frame.Identifier(name)
	id.addAssignment(Assignment{Token: h, Type: typ, IsDeclaration: isDecl})
}

func (a *Analyzer) retypeFor(tok *Token, typ TypeInfo, isDecl bool) {
	switch {
	case isDecl:
		a.retype(tok, TIdentifierDefined)
	case typ.Kind == KindReferenceBuiltin:
		a.retype(tok, TIdentifierBuiltin)
	case typ.Kind == KindReferenceImport:
		a.retype(tok, TIdentifierModule)
	case typ.IsValid():
		a.retype(tok, TIdentifierDefined)
	default:
		a.retype(tok, TIdentifierInvalid)
		if line, ok := tok.Line(); ok {
			line.scanInfo().Add(ParseMsg{
				Token:    a.handleOfToken(tok),
				Text:     fmt.Sprintf("unresolvable identifier %q", tok.Text()),
				Severity: SeverityLookupError,
			})
		}
	}
}

func (a *Analyzer) retype(tok *Token, newType TokenType) {
	if tok.Type == newType {
		return
	}
	tok.Type = newType
	a.list.notifyChanged(a.handleOfToken(tok))
}

func (a *Analyzer) analyzeImport(frame *SourceFrame, toks []*Token) {
	for i := 1; i < len(toks); i++ {
		if !toks[i].isIdentifier() {
			continue
		}
		name := toks[i].Text()
		a.resolveImport(name)
		a.bindIdentifier(frame, name, a.handleOfToken(toks[i]), TypeInfo{Kind: KindReferenceImport, Name: name}, true)
		a.retype(toks[i], TIdentifierModule)
	}
}

func (a *Analyzer) analyzeFromImport(frame *SourceFrame, toks []*Token) {
	if len(toks) < 2 || !toks[1].isIdentifier() {
		return
	}
	module := toks[1].Text()
	a.resolveImport(module)
	for i := 2; i < len(toks); i++ {
		if toks[i].Type == TKeywordImport {
			continue
		}
		if !toks[i].isIdentifier() {
			continue
		}
		name := toks[i].Text()
		a.bindIdentifier(frame, name, a.handleOfToken(toks[i]),
			TypeInfo{Kind: KindReferenceImport, Name: module + "." + name}, true)
		a.retype(toks[i], TIdentifierModule)
	}
}

// resolveImport returns (creating on first reference) the placeholder module frame
// for an imported name.
func (a *Analyzer) resolveImport(name string) *SourceFrame {
	if f, ok := a.importCache[name]; ok {
		return f
	}
	f := newFrame(FrameModule, name, TokenHandle{}, nil)
	a.importCache[name] = f
	return f
}

// lookupChain searches frame, then each enclosing frame up to the module, then
// builtins, in that resolution order.
func (a *Analyzer) lookupChain(frame *SourceFrame, name string) (TypeInfo, bool) {
	for f := frame; f != nil; f = f.Parent {
		if id, ok := f.Lookup(name); ok {
			return id.LatestType(), true
		}
	}
	if t, ok := a.builtins[name]; ok {
		return t, true
	}
	return Invalid(), false
}

// inferExprType walks the tokens of a statement's right-hand side, propagating types
// across binary/unary operators using a small lattice: numeric+float -> float,
// numeric+complex -> complex, string+string -> string, container literals produce
// their container kind.
func (a *Analyzer) inferExprType(frame *SourceFrame, toks []*Token) TypeInfo {
	if len(toks) == 0 {
		return Unknown()
	}

	if toks[0].Type == TDelimiterOpenBracket {
		return Basic(KindList)
	}
	if toks[0].Type == TDelimiterOpenBrace {
		for _, t := range toks {
			if t.Type == TDelimiterColon {
				return Basic(KindDict)
			}
		}
		return Basic(KindSet)
	}
	if toks[0].Type == TKeywordLambda {
		return Basic(KindLambda)
	}
	for len(toks) > 1 && (toks[0].Type == TOperatorMinus || toks[0].Type == TOperatorPlus ||
		toks[0].Type == TOperatorBitNot) {
		toks = toks[1:]
	}

	result := a.inferOperandType(frame, toks[0])
	for i := 1; i+1 < len(toks); i += 2 {
		op := toks[i].Type
		rhs := a.inferOperandType(frame, toks[i+1])
		result = combineTypes(result, rhs, op)
	}
	return result
}

func (a *Analyzer) inferOperandType(frame *SourceFrame, tok *Token) TypeInfo {
	switch {
	case tok.Type.isNumber():
		if tok.isImaginary() {
			return Basic(KindComplex)
		}
		if tok.Type == TNumberFloat {
			return Basic(KindFloat)
		}
		return Basic(KindInt)
	case tok.Type.isLiteral():
		if tok.isBytes() {
			return Basic(KindBytes)
		}
		return Basic(KindStr)
	case tok.Type == TIdentifierNone:
		return Basic(KindNone)
	case tok.Type == TIdentifierTrue, tok.Type == TIdentifierFalse:
		return Basic(KindBool)
	case tok.isIdentifier():
		if typ, ok := a.lookupChain(frame, tok.Text()); ok {
			return typ
		}
		return Unknown()
	default:
		return Unknown()
	}
}

func combineTypes(a, b TypeInfo, op TokenType) TypeInfo {
	if a.Kind == KindComplex || b.Kind == KindComplex {
		return Basic(KindComplex)
	}
	if a.Kind == KindFloat || b.Kind == KindFloat {
		return Basic(KindFloat)
	}
	if a.Kind == KindStr && b.Kind == KindStr && op == TOperatorPlus {
		return Basic(KindStr)
	}
	return a
}

// FrameContaining returns the innermost frame whose range contains the token's line.
func (a *Analyzer) FrameContaining(h TokenHandle) *SourceFrame {
	tok, ok := a.list.resolveToken(h)
	if !ok || a.Module == nil {
		return nil
	}
	return deepestFrame(a.list, a.Module, tok.LineNo())
}

func deepestFrame(list *TokenList, frame *SourceFrame, line int) *SourceFrame {
	if frame.Kind != FrameModule && !frame.containsLine(list, line) {
		return nil
	}
	for _, c := range frame.Children {
		if found := deepestFrame(list, c, line); found != nil {
			return found
		}
	}
	return frame
}

// IdentifierType returns the inferred type of the identifier at the given token.
func (a *Analyzer) IdentifierType(h TokenHandle) TypeInfo {
	tok, ok := a.list.resolveToken(h)
	if !ok {
		return Invalid()
	}
	frame := a.FrameContaining(h)
	if frame == nil {
		frame = a.Module
	}
	typ, ok := a.lookupChain(frame, tok.Text())
	if !ok {
		return Invalid()
	}
	return typ
}

// MessagesForLine returns the scan-info messages attached to the given 1-indexed
// line number.
func (a *Analyzer) MessagesForLine(lineNo int) []ParseMsg {
	line, ok := a.list.Line(lineNo - 1)
	if !ok || line.Scan == nil {
		return nil
	}
	return line.Scan.All()
}

// Rescan re-analyzes only the frames whose range intersects lineNo (1-indexed, as
// returned by TokenLine.Number/Token.LineNo), clearing and rebuilding identifier
// assignments recorded against that line so an incremental edit only pays for the
// lines it touched. The caller must re-tokenize the line first.
func (a *Analyzer) Rescan(lineNo int) {
	if a.Module == nil {
		a.AnalyzeAll()
		return
	}
	a.Module.clearLine(a.list, lineNo)
	line, ok := a.list.Line(lineNo - 1)
	if !ok {
		return
	}
	frame := deepestFrame(a.list, a.Module, lineNo)
	if frame == nil {
		frame = a.Module
	}
	toks := line.Tokens()
	if len(toks) == 0 {
		return
	}
	if newFrame, consumed := a.tryFrameHeader(line, toks, frame); newFrame != nil {
		frame.Children = append(frame.Children, newFrame)
		a.analyzeRemainingTokens(frame, toks[consumed:])
		return
	}
	a.analyzeLineTokens(frame, toks)
}

func (a *Analyzer) handleOfToken(tok *Token) TokenHandle {
	return a.list.HandleOf(tok)
}

func (a *Analyzer) handleOfLineToken(line *TokenLine, idx int) TokenHandle {
	toks := line.Tokens()
	if idx >= len(toks) {
		return TokenHandle{}
	}
	return a.list.HandleOf(toks[idx])
}
