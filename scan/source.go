package scan

import (
	"io"
)

// Source is a byte source the scan engine consumes one byte at a time. Peek
// returns the next byte without consuming it, or io.EOF once the input is
// exhausted; Advance consumes the byte last returned by Peek.
type Source interface {
	Peek() (byte, error)
	Advance()
}

// StringSource scans a string held in memory.
type StringSource struct {
	s   string
	pos int
}

var _ Source = (*StringSource)(nil)

// NewStringSource returns a source reading s.
func NewStringSource(s string) *StringSource {
	return &StringSource{s: s}
}

func (s *StringSource) Peek() (byte, error) {
	if s.pos >= len(s.s) {
		return 0, io.EOF
	}
	return s.s[s.pos], nil
}

func (s *StringSource) Advance() {
	if s.pos < len(s.s) {
		s.pos++
	}
}

// Rest returns the part of the string that has not been consumed.
func (s *StringSource) Rest() string {
	return s.s[s.pos:]
}

// ReaderSource scans the bytes of an io.ByteReader. A byte that was peeked at
// but not consumed stays buffered in the source and can be recovered with
// Pending.
type ReaderSource struct {
	r      io.ByteReader
	c      byte
	err    error
	peeked bool
}

var _ Source = (*ReaderSource)(nil)

// NewReaderSource returns a source reading from r.
func NewReaderSource(r io.ByteReader) *ReaderSource {
	return &ReaderSource{r: r}
}

func (s *ReaderSource) Peek() (byte, error) {
	if !s.peeked {
		s.c, s.err = s.r.ReadByte()
		s.peeked = true
	}
	return s.c, s.err
}

func (s *ReaderSource) Advance() {
	if s.peeked && s.err == nil {
		s.peeked = false
	}
}

// Pending returns the byte that was peeked at but never consumed.
func (s *ReaderSource) Pending() (byte, bool) {
	return s.c, s.peeked && s.err == nil
}
