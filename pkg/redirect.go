package pycore

import "sync"

// StreamWriter is the redirect callback shape installed into the interpreter's
// stdout/stderr before a debugged run: write/flush only, no Close, because ownership
// of the real stream stays with the embedding application.
type StreamWriter interface {
	Write(p []byte) (int, error)
	Flush() error
}

// StreamRedirect forwards writes to a replaceable underlying StreamWriter.
// Debugger.Start hands one to the interpreter for stdout and one for stderr;
// Debugger.Stop does not give the interpreter back its previous writers.
type StreamRedirect struct {
	mu   sync.Mutex
	dest StreamWriter
}

// NewStreamRedirect wraps dest; dest may be nil, in which case writes are discarded
// until SetDestination installs a real one.
func NewStreamRedirect(dest StreamWriter) *StreamRedirect {
	return &StreamRedirect{dest: dest}
}

// SetDestination swaps the underlying writer and returns the previous one, so the
// caller can restore it later.
func (r *StreamRedirect) SetDestination(dest StreamWriter) StreamWriter {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.dest
	r.dest = dest
	return prev
}

// Write forwards p to the current destination, or discards it if none is set.
func (r *StreamRedirect) Write(p []byte) (int, error) {
	r.mu.Lock()
	dest := r.dest
	r.mu.Unlock()
	if dest == nil {
		return len(p), nil
	}
	return dest.Write(p)
}

// Flush forwards to the current destination's Flush, if any.
func (r *StreamRedirect) Flush() error {
	r.mu.Lock()
	dest := r.dest
	r.mu.Unlock()
	if dest == nil {
		return nil
	}
	return dest.Flush()
}

// ExceptHook reports an uncaught interpreter exception, already captured by the
// adapter as an ExceptionInfo. Debugger.Start installs it into the interpreter;
// Debugger.Stop does not remove it or reinstall a previous hook.
type ExceptHook struct {
	mu       sync.Mutex
	reporter func(*ExceptionInfo)
}

// NewExceptHook wraps reporter, called once per uncaught exception.
func NewExceptHook(reporter func(*ExceptionInfo)) *ExceptHook {
	return &ExceptHook{reporter: reporter}
}

// Report passes info unchanged to the registered reporter, if any. Safe to call
// concurrently with SetReporter.
func (h *ExceptHook) Report(info *ExceptionInfo) {
	h.mu.Lock()
	reporter := h.reporter
	h.mu.Unlock()
	if reporter != nil {
		reporter(info)
	}
}

// SetReporter swaps the reporter callback and returns the previous one.
func (h *ExceptHook) SetReporter(reporter func(*ExceptionInfo)) func(*ExceptionInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.reporter
	h.reporter = reporter
	return prev
}
