package pycore

import (
	"context"
	"strings"
	"unicode"

	"github.com/spf13/afero"
)

// DefaultTabWidth is the number of indent columns a tab expands to when no other
// width has been configured.
const DefaultTabWidth = 8

var keywordTable = map[string]TokenType{
	"class": TKeywordClass, "def": TKeywordDef, "import": TKeywordImport,
	"from": TKeywordFrom, "as": TKeywordAs, "yield": TKeywordYield,
	"return": TKeywordReturn, "raise": TKeywordRaise, "with": TKeywordWith,
	"global": TKeywordGlobal, "nonlocal": TKeywordNonlocal, "lambda": TKeywordLambda,
	"pass": TKeywordPass, "assert": TKeywordAssert, "del": TKeywordDel,
	"if": TKeywordIf, "elif": TKeywordElif, "else": TKeywordElse,
	"for": TKeywordFor, "while": TKeywordWhile, "break": TKeywordBreak,
	"continue": TKeywordContinue, "try": TKeywordTry, "except": TKeywordExcept,
	"finally": TKeywordFinally, "async": TKeywordAsync, "await": TKeywordAwait,
	"and": TOperatorAnd, "or": TOperatorOr, "not": TOperatorNot,
	"is": TOperatorIs, "in": TOperatorIn,
	"None": TIdentifierNone, "True": TIdentifierTrue, "False": TIdentifierFalse,
}

// operatorTable is ordered longest-symbol-first so the scanner can match greedily.
var operatorTable = []struct {
	sym string
	typ TokenType
}{
	{"**=", TOperatorExpoEqual}, {"//=", TOperatorFloorDivEqual},
	{">>=", TOperatorBitShiftRightEqual}, {"<<=", TOperatorBitShiftLeftEqual},
	{"...", TDelimiterEllipsis},
	{"->", TDelimiterArrowR}, {":=", TOperatorWalrus}, {"==", TOperatorCompareEqual},
	{"!=", TOperatorNotEqual}, {"<=", TOperatorLessEqual}, {">=", TOperatorMoreEqual},
	{"**", TOperatorExponential}, {"//", TOperatorFloorDiv},
	{"<<", TOperatorBitShiftLeft}, {">>", TOperatorBitShiftRight},
	{"+=", TOperatorPlusEqual}, {"-=", TOperatorMinusEqual},
	{"*=", TOperatorMulEqual}, {"/=", TOperatorDivEqual}, {"%=", TOperatorModuloEqual},
	{"@=", TOperatorMatrixMulEqual}, {"&=", TOperatorBitAndEqual},
	{"|=", TOperatorBitOrEqual}, {"^=", TOperatorBitXorEqual},
	{"+", TOperatorPlus}, {"-", TOperatorMinus}, {"*", TOperatorMul},
	{"/", TOperatorDiv}, {"%", TOperatorModulo}, {"@", TOperatorMatrixMul},
	{"&", TOperatorBitAnd}, {"|", TOperatorBitOr}, {"^", TOperatorBitXor},
	{"~", TOperatorBitNot}, {"=", TOperatorEqual},
	{"<", TOperatorLess}, {">", TOperatorMore},
	{"(", TDelimiterOpenParen}, {")", TDelimiterCloseParen},
	{"[", TDelimiterOpenBracket}, {"]", TDelimiterCloseBracket},
	{"{", TDelimiterOpenBrace}, {"}", TDelimiterCloseBrace},
	{".", TDelimiterPeriod}, {",", TDelimiterComma}, {":", TDelimiterColon},
	{";", TDelimiterSemiColon}, {"\\", TDelimiterBackSlash},
}

// Lexer is a stateful scanner: it converts source text into a TokenList one line at
// a time, carrying forward the paren/bracket/brace depth and the enclosing block's
// indent stack between calls the way a state-machine lexer carries its stream cursor
// between states.
type Lexer struct {
	fs       afero.Fs
	filename string
	tabWidth int

	parenDepth, bracketDepth, braceDepth int
	indentStack                          []int
	prevEnd                              TokenType
	sawDefBeforeParen                    bool
	inDefParens                          bool
}

// NewLexer opens filename through fs (an afero.Fs; pass afero.NewOsFs() for the real
// filesystem, or a memory-backed afero.Fs in tests).
func NewLexer(fs afero.Fs, filename string) (*Lexer, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if _, err := fs.Stat(filename); err != nil {
		return nil, err
	}
	return &Lexer{fs: fs, filename: filename, tabWidth: DefaultTabWidth}, nil
}

// SetTabWidth overrides the default tab width used for indent calculation.
func (lx *Lexer) SetTabWidth(w int) {
	if w > 0 {
		lx.tabWidth = w
	}
}

// Run reads the whole file and tokenizes it into a fresh TokenList.
func (lx *Lexer) Run(ctx context.Context) (*TokenList, error) {
	content, err := afero.ReadFile(lx.fs, lx.filename)
	if err != nil {
		return nil, err
	}
	list := NewTokenList(lx.fs)
	list.filename = lx.filename
	lx.RunInto(ctx, list, string(content))
	return list, nil
}

// RunInto tokenizes text into an existing (presumably empty) TokenList, useful when
// the caller already owns the list (e.g. the pipeline, or a test fixture).
func (lx *Lexer) RunInto(ctx context.Context, list *TokenList, text string) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	continuation := false
	for _, raw := range lines {
		select {
		case <-ctx.Done():
			return
		default:
		}
		lh := list.AppendLine(raw)
		line, _ := list.resolveLine(lh)
		line.IsContinuation = continuation
		continuation = lx.scanLine(list, lh)
	}
}

// TokenizeLine tokenizes a single line given its text and the prior end-state,
// appending to list and returning the new end-state. Used by the analyzer's
// incremental re-scan path.
func (lx *Lexer) TokenizeLine(list *TokenList, lh LineHandle, prevEnd TokenType) TokenType {
	lx.prevEnd = prevEnd
	lx.scanLine(list, lh)
	line, _ := list.resolveLine(lh)
	return line.EndState
}

// scanLine tokenizes the line at lh, mutating its derived fields in place, and
// returns whether the line that follows it is an (implicit or explicit) continuation.
func (lx *Lexer) scanLine(list *TokenList, lh LineHandle) bool {
	line, ok := list.resolveLine(lh)
	if !ok {
		return false
	}
	text := []rune(line.Text)

	pos := 0
	if lx.prevEnd.isMultilineLiteral() {
		pos = lx.resumeBlockString(list, lh, text, lx.prevEnd)
	}

	line.Indent = computeIndent(text, lx.tabWidth)
	trimmed := strings.TrimSpace(line.Text)
	isCodeLine := trimmed != "" && !strings.HasPrefix(trimmed, "#") && pos == 0

	for pos < len(text) {
		r := text[pos]
		switch {
		case r == ' ' || r == '\t':
			pos++
		case r == '#':
			start := pos
			pos = len(text)
			lx.emit(list, lh, TComment, start, pos, 0)
		case r >= '0' && r <= '9':
			pos = lx.scanNumber(list, lh, text, pos)
		case r == '"' || r == '\'':
			pos = lx.scanString(list, lh, text, pos, "")
		case unicode.IsLetter(r) || r == '_':
			pos = lx.scanWord(list, lh, text, pos)
		default:
			newPos, matched := lx.scanOperator(list, lh, text, pos)
			if !matched {
				lx.emit(list, lh, TSyntaxError, pos, pos+1, 0)
				line.scanInfo().Add(ParseMsg{Text: "unrecognized character", Severity: SeveritySyntaxError})
				pos++
				continue
			}
			pos = newPos
		}
	}

	if isCodeLine {
		sawColonAtEnd := lastSignificantToken(line) == TDelimiterColon &&
			lx.parenDepth == 0 && lx.bracketDepth == 0 && lx.braceDepth == 0
		switch {
		case sawColonAtEnd:
			line.BlockDelta = 1
			lx.indentStack = append(lx.indentStack, line.Indent)
		case len(lx.indentStack) > 0 && line.Indent < lx.indentStack[len(lx.indentStack)-1]:
			for len(lx.indentStack) > 0 && line.Indent < lx.indentStack[len(lx.indentStack)-1] {
				lx.indentStack = lx.indentStack[:len(lx.indentStack)-1]
				line.BlockDelta--
			}
			enclosing := 0
			if len(lx.indentStack) > 0 {
				enclosing = lx.indentStack[len(lx.indentStack)-1]
			}
			if line.Indent != enclosing {
				h := lx.emit(list, lh, TIndentError, 0, indentRuneWidth(text), 0)
				line.scanInfo().Add(ParseMsg{
					Token:    h,
					Text:     "dedent does not match any enclosing block's indentation",
					Severity: SeverityIndentError,
				})
			}
		}
	}

	line.OpenParens, line.OpenBrackets, line.OpenBraces = lx.parenDepth, lx.bracketDepth, lx.braceDepth
	line.IsParameterLine = lx.inDefParens

	explicitCont := strings.HasSuffix(strings.TrimRight(line.Text, " \t"), "\\")
	implicitCont := lx.parenDepth > 0 || lx.bracketDepth > 0 || lx.braceDepth > 0

	lx.prevEnd = line.EndState

	return explicitCont || implicitCont
}

func lastSignificantToken(line *TokenLine) TokenType {
	toks := line.Tokens()
	for i := len(toks) - 1; i >= 0; i-- {
		if toks[i].Type != TComment {
			return toks[i].Type
		}
	}
	return TUndetermined
}

// indentRuneWidth returns how many leading runes of text are indentation
// (spaces/tabs), for sizing the span of a token anchored at line start.
func indentRuneWidth(text []rune) int {
	n := 0
	for n < len(text) && (text[n] == ' ' || text[n] == '\t') {
		n++
	}
	return n
}

func computeIndent(text []rune, tabWidth int) int {
	col := 0
	for _, r := range text {
		switch r {
		case ' ':
			col++
		case '\t':
			col += tabWidth - (col % tabWidth)
		default:
			return col
		}
	}
	return col
}

func (lx *Lexer) emit(list *TokenList, lh LineHandle, typ TokenType, start, end int, mask uint32) TokenHandle {
	text := ""
	if line, ok := list.resolveLine(lh); ok && end <= len([]rune(line.Text)) {
		text = string([]rune(line.Text)[start:end])
	}
	return list.appendTokenToLine(lh, Token{
		Type: typ, Start: uint16(start), End: uint16(end),
		OptionMask: mask, Hash: hashText(text),
	})
}

func (lx *Lexer) scanWord(list *TokenList, lh LineHandle, text []rune, pos int) int {
	start := pos
	for pos < len(text) && (unicode.IsLetter(text[pos]) || unicode.IsDigit(text[pos]) || text[pos] == '_') {
		pos++
	}
	word := string(text[start:pos])

	// string prefix combinations: r, b, u, f (any case, any order) directly before a
	// quote character.
	if pos < len(text) && (text[pos] == '"' || text[pos] == '\'') && len(word) <= 2 && isStringPrefix(word) {
		return lx.scanString(list, lh, text, pos, word)
	}

	if typ, ok := keywordTable[word]; ok {
		if typ == TKeywordDef {
			lx.sawDefBeforeParen = true
		}
		lx.emit(list, lh, typ, start, pos, 0)
		return pos
	}

	lx.emit(list, lh, TIdentifierUnknown, start, pos, 0)
	return pos
}

func isStringPrefix(s string) bool {
	if s == "" || len(s) > 2 {
		return false
	}
	for _, r := range strings.ToLower(s) {
		if r != 'r' && r != 'b' && r != 'u' && r != 'f' {
			return false
		}
	}
	return true
}

func (lx *Lexer) scanNumber(list *TokenList, lh LineHandle, text []rune, pos int) int {
	start := pos
	typ := TNumberDecInt

	if text[pos] == '0' && pos+1 < len(text) {
		switch text[pos+1] {
		case 'x', 'X':
			pos += 2
			for pos < len(text) && isHexDigit(text[pos]) {
				pos++
			}
			lx.emit(list, lh, TNumberHexInt, start, pos, 0)
			return pos
		case 'b', 'B':
			pos += 2
			for pos < len(text) && (text[pos] == '0' || text[pos] == '1') {
				pos++
			}
			lx.emit(list, lh, TNumberBinInt, start, pos, 0)
			return pos
		case 'o', 'O':
			pos += 2
			for pos < len(text) && text[pos] >= '0' && text[pos] <= '7' {
				pos++
			}
			lx.emit(list, lh, TNumberOctInt, start, pos, 0)
			return pos
		}
	}

	for pos < len(text) && text[pos] >= '0' && text[pos] <= '9' {
		pos++
	}
	if pos < len(text) && text[pos] == '.' {
		typ = TNumberFloat
		pos++
		for pos < len(text) && text[pos] >= '0' && text[pos] <= '9' {
			pos++
		}
	}
	if pos < len(text) && (text[pos] == 'e' || text[pos] == 'E') {
		typ = TNumberFloat
		pos++
		if pos < len(text) && (text[pos] == '+' || text[pos] == '-') {
			pos++
		}
		for pos < len(text) && text[pos] >= '0' && text[pos] <= '9' {
			pos++
		}
	}

	var mask uint32
	if pos < len(text) && (text[pos] == 'j' || text[pos] == 'J') {
		mask |= NumberIsImaginary
		pos++
	}

	lx.emit(list, lh, typ, start, pos, mask)
	return pos
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// scanString scans a (possibly prefixed) string literal starting at the opening
// quote. prefix holds any r/b/u/f modifier letters already consumed.
func (lx *Lexer) scanString(list *TokenList, lh LineHandle, text []rune, pos int, prefix string) int {
	start := pos - len(prefix)
	quote := text[pos]
	mask := prefixMask(prefix)

	triple := pos+2 < len(text) && text[pos+1] == quote && text[pos+2] == quote
	if triple {
		mask |= StringIsMultiline
		pos += 3
		closeIdx := indexTriple(text, pos, quote)
		if closeIdx < 0 {
			typ := TLiteralBlockDblQuote
			if quote == '\'' {
				typ = TLiteralBlockSglQuote
			}
			lx.emit(list, lh, typ, start, len(text), mask)
			if line, ok := list.resolveLine(lh); ok {
				line.EndState = typ
			}
			return len(text)
		}
		pos = closeIdx + 3
		typ := TLiteralDblQuote
		if quote == '\'' {
			typ = TLiteralSglQuote
		}
		lx.emit(list, lh, typ, start, pos, mask)
		return pos
	}

	pos++
	for pos < len(text) && text[pos] != quote {
		if text[pos] == '\\' && pos+1 < len(text) {
			pos += 2
			continue
		}
		pos++
	}
	typ := TLiteralDblQuote
	if quote == '\'' {
		typ = TLiteralSglQuote
	}
	if pos >= len(text) {
		lx.emit(list, lh, TSyntaxError, start, pos, mask)
		if line, ok := list.resolveLine(lh); ok {
			line.scanInfo().Add(ParseMsg{Text: "unterminated string literal", Severity: SeveritySyntaxError})
		}
		return pos
	}
	pos++
	lx.emit(list, lh, typ, start, pos, mask)
	return pos
}

// resumeBlockString continues a triple-quoted literal that was left open by the
// previous line; it returns the rune index where normal scanning should resume (the
// length of the line if the literal is still open).
func (lx *Lexer) resumeBlockString(list *TokenList, lh LineHandle, text []rune, openType TokenType) int {
	quote := rune('"')
	if openType == TLiteralBlockSglQuote {
		quote = '\''
	}
	closeIdx := indexTriple(text, 0, quote)
	mask := StringIsMultiline
	if closeIdx < 0 {
		lx.emit(list, lh, openType, 0, len(text), mask)
		if line, ok := list.resolveLine(lh); ok {
			line.EndState = openType
		}
		return len(text)
	}
	end := closeIdx + 3
	lx.emit(list, lh, openType, 0, end, mask)
	if line, ok := list.resolveLine(lh); ok {
		line.EndState = TUndetermined
	}
	return end
}

func indexTriple(text []rune, from int, quote rune) int {
	for i := from; i+2 < len(text); i++ {
		if text[i] == quote && text[i+1] == quote && text[i+2] == quote {
			return i
		}
	}
	return -1
}

func prefixMask(prefix string) uint32 {
	var mask uint32
	for _, r := range strings.ToLower(prefix) {
		switch r {
		case 'b':
			mask |= StringIsBytes
		case 'u':
			mask |= StringIsUnicode
		case 'f':
			mask |= StringIsFormat
		case 'r':
			mask |= StringIsRaw
		}
	}
	return mask
}

func (lx *Lexer) scanOperator(list *TokenList, lh LineHandle, text []rune, pos int) (int, bool) {
	remaining := string(text[pos:])
	for _, op := range operatorTable {
		if !strings.HasPrefix(remaining, op.sym) {
			continue
		}
		typ := op.typ
		switch typ {
		case TDelimiterOpenParen:
			lx.parenDepth++
			if lx.sawDefBeforeParen && !lx.inDefParens {
				lx.inDefParens = true
			}
		case TDelimiterCloseParen:
			if lx.parenDepth > 0 {
				lx.parenDepth--
			}
			if lx.parenDepth == 0 {
				lx.inDefParens = false
				lx.sawDefBeforeParen = false
			}
		case TDelimiterOpenBracket:
			lx.bracketDepth++
		case TDelimiterCloseBracket:
			if lx.bracketDepth > 0 {
				lx.bracketDepth--
			}
		case TDelimiterOpenBrace:
			lx.braceDepth++
		case TDelimiterCloseBrace:
			if lx.braceDepth > 0 {
				lx.braceDepth--
			}
		case TOperatorMul:
			if lx.inDefParens {
				typ = TOperatorVariableParam
			}
		case TOperatorExponential:
			if lx.inDefParens {
				typ = TOperatorKeyWordParam
			}
		}
		n := len([]rune(op.sym))
		lx.emit(list, lh, typ, pos, pos+n, 0)
		return pos + n, true
	}
	return pos, false
}
