package format

import (
	"io"

	"emperror.dev/errors"
)

// ErrSinkFailed is returned when a sink stops accepting bytes.
var ErrSinkFailed = errors.Sentinel("format: sink did not accept output")

// Sink is anything able to take delivery of formatted bytes. Accept returns how
// many of the bytes in p were taken; accepting fewer than len(p) without an
// error means "try the rest again", accepting nothing is a failure.
type Sink interface {
	Accept(p []byte) (int, error)
}

// SinkFunc adapts a callback to a Sink.
type SinkFunc func(p []byte) (int, error)

// Accept calls f(p).
func (f SinkFunc) Accept(p []byte) (int, error) {
	return f(p)
}

// WriterSink delivers formatted bytes to an io.Writer.
type WriterSink struct {
	W io.Writer
}

// Accept writes p to the underlying writer.
func (s WriterSink) Accept(p []byte) (int, error) {
	return s.W.Write(p)
}

// BufferSink formats into a fixed capacity buffer. Once the buffer is full the
// remaining output is counted but dropped, and the buffer is always left
// NUL-terminated within its capacity.
type BufferSink struct {
	buf []byte
	n   int
}

var _ Sink = (*BufferSink)(nil)

// NewBufferSink returns a sink writing into buf, using all of len(buf) as its
// capacity. A zero length buffer only counts.
func NewBufferSink(buf []byte) *BufferSink {
	s := &BufferSink{buf: buf}
	s.terminate()
	return s
}

// Accept copies as much of p as fits while keeping room for the terminator,
// always reporting the whole of p as taken.
func (s *BufferSink) Accept(p []byte) (int, error) {
	if room := len(s.buf) - 1 - s.n; room > 0 {
		copy(s.buf[s.n:], p[:min(room, len(p))])
	}
	s.n += len(p)
	s.terminate()
	return len(p), nil
}

func (s *BufferSink) terminate() {
	if len(s.buf) == 0 {
		return
	}
	s.buf[min(s.n, len(s.buf)-1)] = 0
}

// Len returns the logical length of everything accepted, including the bytes
// that did not fit.
func (s *BufferSink) Len() int {
	return s.n
}

// Truncated reports whether some of the output was dropped.
func (s *BufferSink) Truncated() bool {
	return len(s.buf) == 0 && s.n > 0 || s.n > len(s.buf)-1
}

// Bytes returns the stored output, without the terminator.
func (s *BufferSink) Bytes() []byte {
	if len(s.buf) == 0 {
		return nil
	}
	return s.buf[:min(s.n, len(s.buf)-1)]
}

// GrowSink formats into a buffer that grows as needed.
type GrowSink struct {
	buf []byte
}

// Accept appends p.
func (s *GrowSink) Accept(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

// Bytes returns the accumulated output.
func (s *GrowSink) Bytes() []byte {
	return s.buf
}

// String returns the accumulated output as a string.
func (s *GrowSink) String() string {
	return string(s.buf)
}

// Reset discards the accumulated output.
func (s *GrowSink) Reset() {
	s.buf = s.buf[:0]
}
