package pycore

// Severity orders scan-info messages from least to most urgent, a fixed ordering so
// callers can do threshold filtering with a plain comparison.
type Severity int

const (
	SeverityMessage Severity = iota
	SeverityWarning
	SeverityIssue
	SeverityLookupError
	SeverityIndentError
	SeveritySyntaxError
)

func (s Severity) String() string {
	switch s {
	case SeverityMessage:
		return "Message"
	case SeverityWarning:
		return "Warning"
	case SeverityIssue:
		return "Issue"
	case SeverityLookupError:
		return "LookupError"
	case SeverityIndentError:
		return "IndentError"
	case SeveritySyntaxError:
		return "SyntaxError"
	default:
		return "Severity(" + itoa(int(s)) + ")"
	}
}

// ParseMsg is a single diagnostic keyed to the token that generated it.
type ParseMsg struct {
	Token    TokenHandle
	Text     string
	Severity Severity
}

// ScanInfo is the per-line diagnostic channel attached to a TokenLine.
type ScanInfo struct {
	msgs []ParseMsg
}

func newScanInfo() *ScanInfo {
	return &ScanInfo{}
}

// Add appends a message.
func (s *ScanInfo) Add(msg ParseMsg) {
	s.msgs = append(s.msgs, msg)
}

// All returns every message on the line, in the order they were added.
func (s *ScanInfo) All() []ParseMsg {
	return s.msgs
}

// Filter returns messages at or above the given severity.
func (s *ScanInfo) Filter(min Severity) []ParseMsg {
	var out []ParseMsg
	for _, m := range s.msgs {
		if m.Severity >= min {
			out = append(out, m)
		}
	}
	return out
}

// Clear removes all messages, e.g. before a line is re-scanned.
func (s *ScanInfo) Clear() {
	s.msgs = nil
}
