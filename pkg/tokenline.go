package pycore

// LineHandle identifies a TokenLine inside its owning TokenList's line arena.
type LineHandle struct {
	idx uint32
	gen uint32
}

// Valid reports whether the handle was ever populated (see TokenHandle.Valid).
func (h LineHandle) Valid() bool { return h.gen != 0 }

// TokenLine owns one physical line of source text plus everything the lexer derived
// about it: indentation, paren/bracket/brace balance, block-state delta, continuation
// flags, the lexer end-state used to resume scanning on the next line, and the set of
// token indices still awaiting semantic determination.
type TokenLine struct {
	Text string

	Front, Back TokenHandle

	Indent int

	OpenParens, OpenBrackets, OpenBraces int

	// BlockDelta is +1 on a block-opening line (ends in ':'), -1 per indent level
	// dedented, 0 otherwise.
	BlockDelta int

	IsParameterLine bool
	IsContinuation  bool

	// EndState is the lexer token type active at the end of this line; TUndetermined
	// unless the line ends inside a multi-line string literal, in which case it holds
	// the opening literal's type so the next line resumes inside it.
	EndState TokenType

	Unfinished []TokenHandle

	Scan *ScanInfo

	prev, next LineHandle
	list       *TokenList
	number     int
}

// Number returns the 1-indexed line number, kept consistent by TokenList across
// insertions and removals.
func (l *TokenLine) Number() int { return l.number + 1 }

// Tokens returns every token belonging to this line, in document order.
func (l *TokenLine) Tokens() []*Token {
	if !l.Front.Valid() {
		return nil
	}
	var out []*Token
	h := l.Front
	for {
		tok, ok := l.list.resolveToken(h)
		if !ok {
			break
		}
		out = append(out, tok)
		if h == l.Back {
			break
		}
		h = tok.next
	}
	return out
}

// scanInfo lazily creates the attached diagnostic channel.
func (l *TokenLine) scanInfo() *ScanInfo {
	if l.Scan == nil {
		l.Scan = newScanInfo()
	}
	return l.Scan
}
