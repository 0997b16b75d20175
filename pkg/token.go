package pycore

import "hash/fnv"

// TokenType is the type tag of a Token, drawn from a closed enumeration grouped by
// category (numbers, literals, keywords, operators, delimiters, identifiers, plus the
// marker types the lexer and analyzer insert themselves).
//
//go:generate stringer -type=TokenType -trimprefix=T
type TokenType uint16

const (
	TUndetermined TokenType = iota
	TIndent
	TDedent
	TNewline
	TComment
	TSyntaxError
	TIndentError

	// numbers
	tNumbersStart
	TNumberHexInt
	TNumberBinInt
	TNumberOctInt
	TNumberDecInt
	TNumberFloat
	TNumberComplex
	tNumbersEnd

	// literals
	tLiteralsStart = tNumbersEnd
	TLiteralDblQuote
	TLiteralSglQuote
	tLiteralsMultilineStart
	TLiteralBlockDblQuote
	TLiteralBlockSglQuote
	tLiteralsMultilineEnd
	tLiteralsEnd = tLiteralsMultilineEnd

	// keywords
	tKeywordsStart = tLiteralsEnd
	TKeywordClass
	TKeywordDef
	TKeywordImport
	TKeywordFrom
	TKeywordAs
	TKeywordYield
	TKeywordReturn
	TKeywordRaise
	TKeywordWith
	TKeywordGlobal
	TKeywordNonlocal
	TKeywordLambda
	TKeywordPass
	TKeywordAssert
	TKeywordDel
	tKeywordIfBlockStart
	TKeywordIf
	TKeywordElif
	TKeywordElse
	tKeywordIfBlockEnd
	tKeywordLoopStart = tKeywordIfBlockEnd
	TKeywordFor
	TKeywordWhile
	TKeywordBreak
	TKeywordContinue
	tKeywordTryBlockStart
	TKeywordTry
	TKeywordExcept
	TKeywordFinally
	tKeywordTryBlockEnd
	tKeywordsLoopEnd = tKeywordTryBlockEnd
	TKeywordAsync
	TKeywordAwait
	tKeywordsEnd

	// operators
	tOperatorArithmeticStart = tKeywordsEnd
	TOperatorPlus
	TOperatorMinus
	TOperatorMul
	TOperatorExponential
	TOperatorDiv
	TOperatorFloorDiv
	TOperatorModulo
	TOperatorMatrixMul
	tOperatorArithmeticEnd

	tOperatorBitwiseStart = tOperatorArithmeticEnd
	TOperatorBitShiftLeft
	TOperatorBitShiftRight
	TOperatorBitAnd
	TOperatorBitOr
	TOperatorBitXor
	TOperatorBitNot
	tOperatorBitwiseEnd

	tOperatorAssignmentStart = tOperatorBitwiseEnd
	TOperatorEqual
	TOperatorWalrus
	TOperatorPlusEqual
	TOperatorMinusEqual
	TOperatorMulEqual
	TOperatorDivEqual
	TOperatorModuloEqual
	TOperatorFloorDivEqual
	TOperatorExpoEqual
	TOperatorMatrixMulEqual
	TOperatorBitAndEqual
	TOperatorBitOrEqual
	TOperatorBitXorEqual
	TOperatorBitShiftRightEqual
	TOperatorBitShiftLeftEqual
	tOperatorAssignmentEnd

	tOperatorCompareStart = tOperatorAssignmentEnd
	TOperatorCompareEqual
	TOperatorNotEqual
	TOperatorLessEqual
	TOperatorMoreEqual
	TOperatorLess
	TOperatorMore
	TOperatorAnd
	TOperatorOr
	TOperatorNot
	TOperatorIs
	TOperatorIn
	tOperatorCompareEnd

	tOperatorParamStart = tOperatorCompareEnd
	TOperatorVariableParam
	TOperatorKeyWordParam
	tOperatorParamEnd
	tOperatorEnd = tOperatorParamEnd

	// delimiters
	tDelimiterStart = tOperatorEnd
	TDelimiter
	TDelimiterOpenParen
	TDelimiterCloseParen
	TDelimiterOpenBracket
	TDelimiterCloseBracket
	TDelimiterOpenBrace
	TDelimiterCloseBrace
	TDelimiterPeriod
	TDelimiterComma
	TDelimiterColon
	TDelimiterSemiColon
	TDelimiterEllipsis
	TDelimiterArrowR
	TDelimiterBackSlash
	tDelimiterEnd

	// identifiers
	tIdentifierStart = tDelimiterEnd
	TIdentifierUnknown
	TIdentifierDefined
	TIdentifierSelf
	TIdentifierBuiltin
	TIdentifierModule
	TIdentifierModuleAlias
	TIdentifierModuleGlob
	TIdentifierFunction
	TIdentifierMethod
	TIdentifierClass
	TIdentifierSuperMethod
	TIdentifierDecorator
	TIdentifierNone
	TIdentifierTrue
	TIdentifierFalse
	TIdentifierInvalid
	tIdentifierEnd

	// inserted by the analyzer
	TBlockStart
	TBlockEnd

	TEOF
	tEndOfTokensMarker
)

var tokenNames = map[TokenType]string{
	TUndetermined: "Undetermined", TIndent: "Indent", TDedent: "Dedent",
	TNewline: "Newline", TComment: "Comment", TSyntaxError: "SyntaxError",
	TIndentError: "IndentError",
	TNumberHexInt: "NumberHexInt", TNumberBinInt: "NumberBinInt",
	TNumberOctInt: "NumberOctInt", TNumberDecInt: "NumberDecInt",
	TNumberFloat: "NumberFloat", TNumberComplex: "NumberComplex",
	TLiteralDblQuote: "LiteralDblQuote", TLiteralSglQuote: "LiteralSglQuote",
	TLiteralBlockDblQuote: "LiteralBlockDblQuote", TLiteralBlockSglQuote: "LiteralBlockSglQuote",
	TKeywordClass: "KeywordClass", TKeywordDef: "KeywordDef", TKeywordImport: "KeywordImport",
	TKeywordFrom: "KeywordFrom", TKeywordAs: "KeywordAs", TKeywordYield: "KeywordYield",
	TKeywordReturn: "KeywordReturn", TKeywordRaise: "KeywordRaise", TKeywordWith: "KeywordWith",
	TKeywordGlobal: "KeywordGlobal", TKeywordNonlocal: "KeywordNonlocal", TKeywordLambda: "KeywordLambda",
	TKeywordPass: "KeywordPass", TKeywordAssert: "KeywordAssert", TKeywordDel: "KeywordDel",
	TKeywordIf: "KeywordIf", TKeywordElif: "KeywordElif", TKeywordElse: "KeywordElse",
	TKeywordFor: "KeywordFor", TKeywordWhile: "KeywordWhile", TKeywordBreak: "KeywordBreak",
	TKeywordContinue: "KeywordContinue", TKeywordTry: "KeywordTry", TKeywordExcept: "KeywordExcept",
	TKeywordFinally: "KeywordFinally", TKeywordAsync: "KeywordAsync", TKeywordAwait: "KeywordAwait",
	TOperatorPlus: "OperatorPlus", TOperatorMinus: "OperatorMinus", TOperatorMul: "OperatorMul",
	TOperatorExponential: "OperatorExponential", TOperatorDiv: "OperatorDiv",
	TOperatorFloorDiv: "OperatorFloorDiv", TOperatorModulo: "OperatorModulo",
	TOperatorMatrixMul: "OperatorMatrixMul",
	TOperatorBitShiftLeft: "OperatorBitShiftLeft", TOperatorBitShiftRight: "OperatorBitShiftRight",
	TOperatorBitAnd: "OperatorBitAnd", TOperatorBitOr: "OperatorBitOr", TOperatorBitXor: "OperatorBitXor",
	TOperatorBitNot: "OperatorBitNot",
	TOperatorEqual: "OperatorEqual", TOperatorWalrus: "OperatorWalrus",
	TOperatorPlusEqual: "OperatorPlusEqual", TOperatorMinusEqual: "OperatorMinusEqual",
	TOperatorMulEqual: "OperatorMulEqual", TOperatorDivEqual: "OperatorDivEqual",
	TOperatorModuloEqual: "OperatorModuloEqual", TOperatorFloorDivEqual: "OperatorFloorDivEqual",
	TOperatorExpoEqual: "OperatorExpoEqual", TOperatorMatrixMulEqual: "OperatorMatrixMulEqual",
	TOperatorBitAndEqual: "OperatorBitAndEqual", TOperatorBitOrEqual: "OperatorBitOrEqual",
	TOperatorBitXorEqual: "OperatorBitXorEqual", TOperatorBitShiftRightEqual: "OperatorBitShiftRightEqual",
	TOperatorBitShiftLeftEqual: "OperatorBitShiftLeftEqual",
	TOperatorCompareEqual: "OperatorCompareEqual", TOperatorNotEqual: "OperatorNotEqual",
	TOperatorLessEqual: "OperatorLessEqual", TOperatorMoreEqual: "OperatorMoreEqual",
	TOperatorLess: "OperatorLess", TOperatorMore: "OperatorMore",
	TOperatorAnd: "OperatorAnd", TOperatorOr: "OperatorOr", TOperatorNot: "OperatorNot",
	TOperatorIs: "OperatorIs", TOperatorIn: "OperatorIn",
	TOperatorVariableParam: "OperatorVariableParam", TOperatorKeyWordParam: "OperatorKeyWordParam",
	TDelimiter: "Delimiter", TDelimiterOpenParen: "DelimiterOpenParen",
	TDelimiterCloseParen: "DelimiterCloseParen", TDelimiterOpenBracket: "DelimiterOpenBracket",
	TDelimiterCloseBracket: "DelimiterCloseBracket", TDelimiterOpenBrace: "DelimiterOpenBrace",
	TDelimiterCloseBrace: "DelimiterCloseBrace", TDelimiterPeriod: "DelimiterPeriod",
	TDelimiterComma: "DelimiterComma", TDelimiterColon: "DelimiterColon",
	TDelimiterSemiColon: "DelimiterSemiColon", TDelimiterEllipsis: "DelimiterEllipsis",
	TDelimiterArrowR: "DelimiterArrowR", TDelimiterBackSlash: "DelimiterBackSlash",
	TIdentifierUnknown: "IdentifierUnknown", TIdentifierDefined: "IdentifierDefined",
	TIdentifierSelf: "IdentifierSelf", TIdentifierBuiltin: "IdentifierBuiltin",
	TIdentifierModule: "IdentifierModule", TIdentifierModuleAlias: "IdentifierModuleAlias",
	TIdentifierModuleGlob: "IdentifierModuleGlob", TIdentifierFunction: "IdentifierFunction",
	TIdentifierMethod: "IdentifierMethod", TIdentifierClass: "IdentifierClass",
	TIdentifierSuperMethod: "IdentifierSuperMethod", TIdentifierDecorator: "IdentifierDecorator",
	TIdentifierNone: "IdentifierNone", TIdentifierTrue: "IdentifierTrue",
	TIdentifierFalse: "IdentifierFalse", TIdentifierInvalid: "IdentifierInvalid",
	TBlockStart: "BlockStart", TBlockEnd: "BlockEnd", TEOF: "EOF",
}

// String returns the token type's name, matching the ~140-variant grouping of the
// source model this package is built from; unnamed synthetic boundary markers fall
// back to a numeric form.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "TokenType(" + itoa(int(t)) + ")"
}

func (t TokenType) isNumber() bool  { return t > tNumbersStart && t < tNumbersEnd }
func (t TokenType) isLiteral() bool { return t > tLiteralsStart && t < tLiteralsEnd }
func (t TokenType) isKeyword() bool { return t > tKeywordsStart && t < tKeywordsEnd }
func (t TokenType) isOperator() bool {
	return t > tOperatorArithmeticStart && t < tOperatorEnd
}
func (t TokenType) isDelimiter() bool   { return t > tDelimiterStart && t < tDelimiterEnd }
func (t TokenType) isIdentifier() bool  { return t > tIdentifierStart && t < tIdentifierEnd }
func (t TokenType) isMultilineLiteral() bool {
	return t > tLiteralsMultilineStart && t < tLiteralsMultilineEnd
}

// option mask bits. String modifiers and the imaginary-number bit share the same
// 32-bit field; which half applies depends on the owning token's Type.
const (
	StringIsBytes     uint32 = 1 << 0
	StringIsUnicode   uint32 = 1 << 1
	StringIsFormat    uint32 = 1 << 2
	StringIsRaw       uint32 = 1 << 3
	StringIsMultiline uint32 = 1 << 4

	NumberIsImaginary uint32 = 1 << 0
)

// TokenHandle identifies a Token inside its owning TokenList's arena without holding
// an owning pointer to it; a handle whose generation no longer matches the slot's
// current generation refers to a destroyed token (see TokenList.destroyToken).
type TokenHandle struct {
	idx uint32
	gen uint32
}

// Valid reports whether the handle refers to any arena slot at all (zero value is
// always invalid; a populated-but-stale handle is only caught by Resolve).
func (h TokenHandle) Valid() bool { return h.gen != 0 }

// Token is a fixed-size record describing one lexical unit: its type, its half-open
// column span into the owning line's text, string/number modifier bits, a
// precomputed content hash, and its position in the document-wide doubly-linked
// token chain.
type Token struct {
	Type       TokenType
	Start, End uint16
	OptionMask uint32
	Hash       uint64

	prev, next TokenHandle
	line       LineHandle
	list       *TokenList

	wrappers []func()
}

// Text returns the token's source text, sliced from its owning line.
func (t *Token) Text() string {
	line, ok := t.list.resolveLine(t.line)
	if !ok {
		return ""
	}
	runes := []rune(line.Text)
	if int(t.End) > len(runes) {
		return ""
	}
	return string(runes[t.Start:t.End])
}

// Line returns the TokenLine this token belongs to.
func (t *Token) Line() (*TokenLine, bool) {
	return t.list.resolveLine(t.line)
}

// LineNo returns the 1-indexed line number of the owning line, or 0 if unresolved.
func (t *Token) LineNo() int {
	line, ok := t.Line()
	if !ok {
		return 0
	}
	return line.Number()
}

func (t *Token) isString() bool      { return t.Type.isLiteral() }
func (t *Token) isMultiline() bool   { return t.OptionMask&StringIsMultiline != 0 }
func (t *Token) isRaw() bool         { return t.OptionMask&StringIsRaw != 0 }
func (t *Token) isBytes() bool       { return t.OptionMask&StringIsBytes != 0 }
func (t *Token) isImaginary() bool   { return t.OptionMask&NumberIsImaginary != 0 }
func (t *Token) isValid() bool       { return t.Type != TSyntaxError && t.Type != TEOF }
func (t *Token) isComment() bool     { return t.Type == TComment }
func (t *Token) isIdentifier() bool  { return t.Type.isIdentifier() }

// notifyDestroyed calls every registered wrapper callback. Called once, synchronously,
// from TokenList when the token's line is replaced or removed.
func (t *Token) notifyDestroyed() {
	for _, fn := range t.wrappers {
		fn()
	}
	t.wrappers = nil
}

// TokenWrapper is a weak reference to a Token: holders must call Resolve before each
// use and treat a false result as "the token no longer exists".
type TokenWrapper struct {
	handle TokenHandle
	list   *TokenList
}

// Resolve returns the live token the wrapper refers to, or ok=false if it has been
// destroyed (its line replaced or removed) since the wrapper was created.
func (w *TokenWrapper) Resolve() (*Token, bool) {
	return w.list.resolveToken(w.handle)
}

func hashText(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
