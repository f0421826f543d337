package callback

import (
	"io"
	"strings"
	"sync"
)

// Sink receives generated text fragments as they are produced.
// OnToken is invoked once per fragment, in generation order, for every
// generation call the sink is attached to. Implementations must not block
// indefinitely: the call happens synchronously on the generation path.
type Sink interface {
	OnToken(fragment string)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(fragment string)

func (f SinkFunc) OnToken(fragment string) { f(fragment) }

// Ensure the provided sinks satisfy the interface.
var (
	_ Sink = (*WriterSink)(nil)
	_ Sink = (*BufferSink)(nil)
	_ Sink = SinkFunc(nil)
)

// WriterSink forwards each fragment to an io.Writer as it arrives.
// It performs no buffering, filtering, or transformation. Write errors are
// swallowed: a broken destination must not abort the generation call that is
// feeding the sink.
type WriterSink struct {
	w io.Writer
}

// NewWriterSink creates a WriterSink targeting w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) OnToken(fragment string) {
	_, _ = io.WriteString(s.w, fragment)
}

// BufferSink accumulates fragments in order. It records every delivery as a
// separate event, so repeated identical fragments remain distinguishable.
type BufferSink struct {
	mu     sync.Mutex
	events []string
}

func (s *BufferSink) OnToken(fragment string) {
	s.mu.Lock()
	s.events = append(s.events, fragment)
	s.mu.Unlock()
}

// Events returns a copy of the fragments received so far, in arrival order.
func (s *BufferSink) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	copy(out, s.events)
	return out
}

// String returns the concatenation of all received fragments.
func (s *BufferSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for _, e := range s.events {
		b.WriteString(e)
	}
	return b.String()
}

// Len reports the number of delivery events received so far.
func (s *BufferSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Reset discards all recorded fragments.
func (s *BufferSink) Reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

// Tee returns a Sink that forwards each fragment to every supplied sink in
// order. Nil entries are skipped.
func Tee(sinks ...Sink) Sink {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return SinkFunc(func(fragment string) {
		for _, s := range filtered {
			s.OnToken(fragment)
		}
	})
}
