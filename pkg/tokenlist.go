package pycore

import (
	"sync"

	"github.com/spf13/afero"
)

type tokenSlot struct {
	gen   uint32
	alive bool
	tok   Token
}

type lineSlot struct {
	gen   uint32
	alive bool
	line  TokenLine
}

// TokenList is the document-level owner of every token and line: a pair of
// generational arenas (so a TokenHandle/LineHandle can be held without an owning
// pointer and safely re-checked after the referent is destroyed) plus the doubly
// linked line chain and document-wide token chain.
type TokenList struct {
	mu sync.Mutex

	fs       afero.Fs
	filename string

	tokens     []tokenSlot
	freeTokens []uint32

	lines     []lineSlot
	freeLines []uint32

	firstLine, lastLine   LineHandle
	firstToken, lastToken TokenHandle
	lineCount             int

	onChanged []func(TokenHandle)
}

// NewTokenList creates an empty document. A nil fs defaults to the real filesystem
// (afero.NewOsFs); tests pass an afero.NewMemMapFs instead.
func NewTokenList(fs afero.Fs) *TokenList {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &TokenList{fs: fs}
}

// Fs returns the filesystem this document was (or would be) loaded through.
func (l *TokenList) Fs() afero.Fs { return l.fs }

// OnTokenChanged registers a callback invoked whenever a token's semantic type is
// mutated in place (e.g. IdentifierUnknown -> IdentifierDefined), the hook an
// external highlighter subscribes to.
func (l *TokenList) OnTokenChanged(fn func(TokenHandle)) {
	l.onChanged = append(l.onChanged, fn)
}

func (l *TokenList) notifyChanged(h TokenHandle) {
	for _, fn := range l.onChanged {
		fn(h)
	}
}

// ---- token arena ----

func (l *TokenList) allocToken(t Token) TokenHandle {
	t.list = l
	if n := len(l.freeTokens); n > 0 {
		idx := l.freeTokens[n-1]
		l.freeTokens = l.freeTokens[:n-1]
		slot := &l.tokens[idx]
		slot.alive = true
		slot.tok = t
		return TokenHandle{idx: idx, gen: slot.gen}
	}
	l.tokens = append(l.tokens, tokenSlot{gen: 1, alive: true, tok: t})
	return TokenHandle{idx: uint32(len(l.tokens) - 1), gen: 1}
}

func (l *TokenList) resolveToken(h TokenHandle) (*Token, bool) {
	if !h.Valid() || int(h.idx) >= len(l.tokens) {
		return nil, false
	}
	slot := &l.tokens[h.idx]
	if !slot.alive || slot.gen != h.gen {
		return nil, false
	}
	return &slot.tok, true
}

func (l *TokenList) destroyToken(h TokenHandle) {
	if int(h.idx) >= len(l.tokens) {
		return
	}
	slot := &l.tokens[h.idx]
	if !slot.alive || slot.gen != h.gen {
		return
	}
	slot.tok.notifyDestroyed()
	slot.alive = false
	slot.gen++
	l.freeTokens = append(l.freeTokens, h.idx)
}

// RegisterWrapper returns a weak reference to the token at h. The wrapper's Resolve
// method returns ok=false once the token is destroyed.
func (l *TokenList) RegisterWrapper(h TokenHandle) *TokenWrapper {
	return &TokenWrapper{handle: h, list: l}
}

// ---- line arena ----

func (l *TokenList) allocLine(t TokenLine) LineHandle {
	t.list = l
	if n := len(l.freeLines); n > 0 {
		idx := l.freeLines[n-1]
		l.freeLines = l.freeLines[:n-1]
		slot := &l.lines[idx]
		slot.alive = true
		slot.line = t
		return LineHandle{idx: idx, gen: slot.gen}
	}
	l.lines = append(l.lines, lineSlot{gen: 1, alive: true, line: t})
	return LineHandle{idx: uint32(len(l.lines) - 1), gen: 1}
}

func (l *TokenList) resolveLine(h LineHandle) (*TokenLine, bool) {
	if !h.Valid() || int(h.idx) >= len(l.lines) {
		return nil, false
	}
	slot := &l.lines[h.idx]
	if !slot.alive || slot.gen != h.gen {
		return nil, false
	}
	return &slot.line, true
}

// destroyTokensOfLine frees every token owned by the line, unstitching the
// document-wide chain around the removed range.
func (l *TokenList) destroyTokensOfLine(line *TokenLine) {
	if !line.Front.Valid() {
		return
	}
	beforeHandle := mustPrevOf(l, line.Front)
	beforeTok, hasBefore := l.resolveToken(beforeHandle)
	afterHandle, hasAfter := lineAfterBack(l, line)

	h := line.Front
	for {
		tok, ok := l.resolveToken(h)
		if !ok {
			break
		}
		next := tok.next
		l.destroyToken(h)
		if h == line.Back {
			break
		}
		h = next
	}

	switch {
	case hasBefore && hasAfter:
		beforeTok.next = afterHandle
		if after, ok := l.resolveToken(afterHandle); ok {
			after.prev = beforeHandle
		}
	case hasBefore:
		beforeTok.next = TokenHandle{}
		l.lastToken = beforeHandle
	case hasAfter:
		if after, ok := l.resolveToken(afterHandle); ok {
			after.prev = TokenHandle{}
		}
		l.firstToken = afterHandle
	default:
		l.firstToken = TokenHandle{}
		l.lastToken = TokenHandle{}
	}

	line.Front = TokenHandle{}
	line.Back = TokenHandle{}
}

func mustPrevHandle(l *TokenList, h TokenHandle) TokenHandle {
	tok, ok := l.resolveToken(h)
	if !ok {
		return TokenHandle{}
	}
	return tok.prev
}

func mustPrevOf(l *TokenList, h TokenHandle) TokenHandle {
	return mustPrevHandle(l, h)
}

func lineAfterBack(l *TokenList, line *TokenLine) (TokenHandle, bool) {
	tok, ok := l.resolveToken(line.Back)
	if !ok {
		return TokenHandle{}, false
	}
	if !tok.next.Valid() {
		return TokenHandle{}, false
	}
	return tok.next, true
}

// appendTokenToLine allocates a token and splices it at the end of the document-wide
// chain, immediately after the line's current last token (or the document's current
// last token, if this is the line's first).
func (l *TokenList) appendTokenToLine(lh LineHandle, t Token) TokenHandle {
	line, ok := l.resolveLine(lh)
	if !ok {
		return TokenHandle{}
	}
	t.line = lh
	h := l.allocToken(t)
	tok, _ := l.resolveToken(h)

	if line.Back.Valid() {
		prevTok, _ := l.resolveToken(line.Back)
		prevTok.next = h
		tok.prev = line.Back
		line.Back = h
	} else {
		// first token of this line: splice after the document's current last token.
		if l.lastToken.Valid() {
			lastTok, _ := l.resolveToken(l.lastToken)
			lastTok.next = h
			tok.prev = l.lastToken
		} else {
			l.firstToken = h
		}
		line.Front = h
		line.Back = h
	}
	l.lastToken = h
	return h
}

// ---- line list operations ----

// LineCount returns the number of lines currently in the document.
func (l *TokenList) LineCount() int { return l.lineCount }

// Line returns the nth line (0-indexed; negative counts from the end, as -1 is the
// last line), or ok=false if out of range.
func (l *TokenList) Line(n int) (*TokenLine, bool) {
	if l.lineCount == 0 {
		return nil, false
	}
	if n < 0 {
		n = l.lineCount + n
	}
	if n < 0 || n >= l.lineCount {
		return nil, false
	}

	// Walk from whichever end is closer.
	if n <= l.lineCount/2 {
		h := l.firstLine
		for i := 0; i < n; i++ {
			line, ok := l.resolveLine(h)
			if !ok {
				return nil, false
			}
			h = line.next
		}
		return l.resolveLine(h)
	}

	h := l.lastLine
	for i := l.lineCount - 1; i > n; i-- {
		line, ok := l.resolveLine(h)
		if !ok {
			return nil, false
		}
		h = line.prev
	}
	return l.resolveLine(h)
}

// AppendLine appends a new, empty-of-tokens line holding text and returns its handle.
// Use the Lexer to populate its tokens.
func (l *TokenList) AppendLine(text string) LineHandle {
	h := l.allocLine(TokenLine{Text: text, number: l.lineCount})
	line, _ := l.resolveLine(h)

	if l.lastLine.Valid() {
		prevLine, _ := l.resolveLine(l.lastLine)
		prevLine.next = h
		line.prev = l.lastLine
	} else {
		l.firstLine = h
	}
	l.lastLine = h
	l.lineCount++
	return h
}

// InsertLine inserts a new line at 0-indexed position at (shifting the existing line
// at that position and everything after it down by one) and renumbers both the line
// list it's linked into.
func (l *TokenList) InsertLine(at int, text string) LineHandle {
	if at < 0 {
		at = 0
	}
	if at >= l.lineCount {
		return l.AppendLine(text)
	}

	atHandle, _ := l.LineHandleAt(at)
	h := l.allocLine(TokenLine{Text: text})
	// allocLine may grow the line arena, so pointers into it are taken afterwards.
	atLine, _ := l.resolveLine(atHandle)
	line, _ := l.resolveLine(h)

	line.next = atHandle
	line.prev = atLine.prev
	if prevLine, ok := l.resolveLine(atLine.prev); ok {
		prevLine.next = h
	} else {
		l.firstLine = h
	}
	atLine.prev = h

	l.lineCount++
	l.renumberFrom(h)
	return h
}

// RemoveLine removes the nth line (supporting negative indices like Line), destroying
// its tokens and renumbering every line after it.
func (l *TokenList) RemoveLine(n int) bool {
	line, ok := l.Line(n)
	if !ok {
		return false
	}
	l.destroyTokensOfLine(line)

	h := l.handleOf(line)
	prevH, nextH := line.prev, line.next
	if prevLine, ok := l.resolveLine(prevH); ok {
		prevLine.next = nextH
	} else {
		l.firstLine = nextH
	}
	if nextLine, ok := l.resolveLine(nextH); ok {
		nextLine.prev = prevH
	} else {
		l.lastLine = prevH
	}

	l.lines[h.idx].alive = false
	l.lines[h.idx].gen++
	l.freeLines = append(l.freeLines, h.idx)

	l.lineCount--
	if nextLine, ok := l.resolveLine(nextH); ok {
		l.renumberFrom(l.handleOf(nextLine))
	}
	return true
}

// ReplaceLine discards every token currently attached to the nth line and resets its
// text, ready for the lexer to re-populate via appendTokenToLine. The TokenLine's
// identity (and any handle to it) survives the replacement.
func (l *TokenList) ReplaceLine(n int, text string) (*TokenLine, bool) {
	line, ok := l.Line(n)
	if !ok {
		return nil, false
	}
	l.destroyTokensOfLine(line)
	line.Text = text
	line.Indent = 0
	line.OpenParens, line.OpenBrackets, line.OpenBraces = 0, 0, 0
	line.BlockDelta = 0
	line.IsParameterLine, line.IsContinuation = false, false
	line.Unfinished = nil
	line.Scan = nil
	return line, true
}

func (l *TokenList) handleOf(line *TokenLine) LineHandle {
	// line points into l.lines; its handle is recovered by a linear scan of the slot
	// array for the live slot holding it. Callers that already hold a fresh handle
	// should prefer it; this fallback is for helpers that received a *TokenLine
	// without its handle.
	for i := range l.lines {
		if l.lines[i].alive && &l.lines[i].line == line {
			return LineHandle{idx: uint32(i), gen: l.lines[i].gen}
		}
	}
	return LineHandle{}
}

// LineHandleAt returns the handle of the nth line (same indexing as Line), letting a
// caller re-tokenize a line it just replaced via ReplaceLine without needing to keep
// the handle from whatever created the line originally.
func (l *TokenList) LineHandleAt(n int) (LineHandle, bool) {
	line, ok := l.Line(n)
	if !ok {
		return LineHandle{}, false
	}
	h := l.handleOf(line)
	return h, h.Valid()
}

// HandleOf recovers a TokenHandle from a *Token obtained via TokenLine.Tokens,
// letting a caller that only has a pointer (from walking a line) turn it into the
// stable handle FrameContaining/IdentifierType and friends expect.
func (l *TokenList) HandleOf(tok *Token) TokenHandle {
	for i := range l.tokens {
		if l.tokens[i].alive && &l.tokens[i].tok == tok {
			return TokenHandle{idx: uint32(i), gen: l.tokens[i].gen}
		}
	}
	return TokenHandle{}
}

func (l *TokenList) renumberFrom(h LineHandle) {
	line, ok := l.resolveLine(h)
	if !ok {
		return
	}
	n := 0
	if prevLine, ok := l.resolveLine(line.prev); ok {
		n = prevLine.number + 1
	}
	for {
		line.number = n
		n++
		next, ok := l.resolveLine(line.next)
		if !ok {
			break
		}
		line = next
	}
}
