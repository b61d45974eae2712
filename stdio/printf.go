package stdio

import (
	"github.com/ghostkernel/ghostio/format"
	"github.com/ghostkernel/ghostio/scan"
)

// streamSink feeds formatted output into a stream that is already held by the
// caller.
type streamSink struct {
	s *Stream
}

func (k streamSink) Accept(p []byte) (int, error) {
	return k.s.write(p)
}

// streamSource reads scanned input from a stream that is already held by the
// caller.
type streamSource struct {
	s *Stream
}

func (src streamSource) Peek() (byte, error) {
	return src.s.peekByte()
}

func (src streamSource) Advance() {
	src.s.advance()
}

// Printf formats args according to descriptor and writes the result to the
// stream. The output of a single call is never interleaved with that of other
// callers. It returns the number of bytes written, or -1 on failure.
func (s *Stream) Printf(descriptor string, args ...any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := format.Format(streamSink{s}, descriptor, format.NewArgs(args...))
	return n, s.fail(err)
}

// Scanf reads input from the stream according to descriptor, storing the
// converted values through slots. It returns the number of values assigned,
// or -1 when the input ended before the first one.
func (s *Stream) Scanf(descriptor string, slots ...any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginRead(); err != nil {
		return -1, s.fail(err)
	}
	n, err := scan.Scan(streamSource{s}, descriptor, slots...)
	return n, s.fail(err)
}
