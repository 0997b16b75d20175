package pycore

// FrameKind distinguishes a SourceFrame's root construct.
type FrameKind int

const (
	FrameModule FrameKind = iota
	FrameFunction
	FrameClass
	FrameLambda
)

// SourceFrame is a lexical scope rooted at a module, a def, a class, or a lambda.
// Frames form a tree: a module frame is the root, and every def/class nested inside
// it (directly or through further nesting) is a child frame. Sibling ranges are
// disjoint and nested frames are strictly contained within their parent's range.
type SourceFrame struct {
	Kind FrameKind
	Name string

	Opening TokenHandle

	bodyLast      TokenHandle
	bodyLastValid bool

	Parent   *SourceFrame
	Children []*SourceFrame

	Parameters []Parameter

	identifiers map[string]*SourceIdentifier

	ReturnType TypeInfo
}

func newFrame(kind FrameKind, name string, opening TokenHandle, parent *SourceFrame) *SourceFrame {
	return &SourceFrame{
		Kind:        kind,
		Name:        name,
		Opening:     opening,
		Parent:      parent,
		identifiers: make(map[string]*SourceIdentifier),
	}
}

// Identifier returns the identifier table entry for name, creating it if this is its
// first appearance in the frame.
func (f *SourceFrame) Identifier(name string) *SourceIdentifier {
	id, ok := f.identifiers[name]
	if !ok {
		id = &SourceIdentifier{Name: name}
		f.identifiers[name] = id
	}
	return id
}

// Lookup searches only this frame's own identifier table (no parent chain).
func (f *SourceFrame) Lookup(name string) (*SourceIdentifier, bool) {
	id, ok := f.identifiers[name]
	return id, ok
}

// Identifiers returns every identifier declared directly in this frame.
func (f *SourceFrame) Identifiers() map[string]*SourceIdentifier {
	return f.identifiers
}

// clearLine drops every assignment recorded against a token on the given line number,
// used by the analyzer's incremental re-scan.
func (f *SourceFrame) clearLine(list *TokenList, lineNo int) {
	for _, id := range f.identifiers {
		kept := id.Assignments[:0]
		for _, a := range id.Assignments {
			if tok, ok := list.resolveToken(a.Token); ok && tok.LineNo() == lineNo {
				continue
			}
			kept = append(kept, a)
		}
		id.Assignments = kept
	}
	for _, c := range f.Children {
		c.clearLine(list, lineNo)
	}
}

// containsLine reports whether line lies within this frame's opening line and its
// (possibly still-unresolved) body end.
func (f *SourceFrame) containsLine(list *TokenList, lineNo int) bool {
	openTok, ok := list.resolveToken(f.Opening)
	if !ok {
		return false
	}
	start := openTok.LineNo()
	end := f.bodyEndLine(list)
	return lineNo >= start && lineNo <= end
}

func (f *SourceFrame) bodyEndLine(list *TokenList) int {
	if f.bodyLastValid {
		if tok, ok := list.resolveToken(f.bodyLast); ok {
			return tok.LineNo()
		}
	}
	openTok, ok := list.resolveToken(f.Opening)
	if !ok {
		return 0
	}
	headerLine, ok := list.resolveLine(openTok.line)
	if !ok {
		return openTok.LineNo()
	}
	last := headerLine.Number()
	for n := headerLine.Number(); n < list.LineCount(); n++ {
		line, ok := list.Line(n)
		if !ok {
			break
		}
		if strippedEmpty(line.Text) {
			continue
		}
		if line.Indent <= headerLine.Indent {
			break
		}
		last = line.Number()
	}
	return last
}

func strippedEmpty(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' {
			return false
		}
	}
	return true
}
