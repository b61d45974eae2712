package stdio

import (
	"bytes"
	"io"
	"sync"

	"emperror.dev/errors"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sys/unix"

	"github.com/ghostkernel/ghostio/internal/ufs"
)

type role uint8

const (
	roleIdle role = iota
	roleReading
	roleWriting
)

// Stream is a buffered handle over a descriptor. All methods are safe for
// concurrent use; each one holds the stream for the duration of a single
// logical operation, so the bytes of one Write or Printf call are never split
// by another caller.
type Stream struct {
	mu sync.Mutex

	reg  *Registry
	fd   int
	name string
	mode openMode
	// temp streams remove their file when they are closed.
	temp   bool
	closed bool

	// buf is allocated on first use. For unbuffered streams it is the one byte
	// cell below, used only to read single bytes.
	buf     []byte
	userBuf []byte
	bufMode BufferMode
	bufSize int
	one     [1]byte

	role role
	// While reading buf[r:w] holds the bytes not yet consumed, while writing
	// buf[:w] holds the bytes not yet handed to the descriptor.
	r, w int

	eof bool
	err bool

	ungot   byte
	ungotOK bool
}

var (
	_ io.Reader       = (*Stream)(nil)
	_ io.Writer       = (*Stream)(nil)
	_ io.ByteReader   = (*Stream)(nil)
	_ io.ByteWriter   = (*Stream)(nil)
	_ io.StringWriter = (*Stream)(nil)
)

func (s *Stream) provider() ufs.Provider {
	return s.reg.io
}

// fail records err as the last error of the process and returns it.
func (s *Stream) fail(err error) error {
	return s.reg.fail(err)
}

// Name returns the name the stream was opened with, which is empty for
// streams created from a bare descriptor.
func (s *Stream) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Fileno returns the descriptor underneath the stream.
func (s *Stream) Fileno() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return -1, s.fail(ErrClosed)
	}
	return s.fd, nil
}

// EOF reports whether the end of input has been reached.
func (s *Stream) EOF() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eof
}

// Error reports whether an operation on the stream has failed since the error
// flag was last cleared.
func (s *Stream) Error() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// ClearErr clears both the end of file and error flags.
func (s *Stream) ClearErr() {
	s.mu.Lock()
	s.eof = false
	s.err = false
	s.mu.Unlock()
}

// SetErr raises the error flag.
func (s *Stream) SetErr() {
	s.mu.Lock()
	s.err = true
	s.mu.Unlock()
}

// ensureBuffer allocates the stream buffer if nothing has been done with the
// stream yet.
func (s *Stream) ensureBuffer() {
	if s.buf != nil {
		return
	}
	switch {
	case s.bufMode == Unbuffered:
		s.buf = s.one[:]
	case s.userBuf != nil:
		s.buf = s.userBuf
	default:
		cfg := s.reg.cfg.Buffers
		size := s.bufSize
		if size <= 0 {
			size = cfg.Size
		}
		s.buf = make([]byte, max(size, cfg.MinSize, 1))
	}
}

// SetBuffering changes the buffering mode of the stream. A non-nil buf is used
// as the buffer as it is; otherwise a buffer of size bytes (the configured
// default when size is zero) is allocated on the next operation. Pending
// output is flushed and unread input is given back to the descriptor first.
func (s *Stream) SetBuffering(mode BufferMode, buf []byte, size int) error {
	if mode != FullyBuffered && mode != LineBuffered && mode != Unbuffered {
		return s.fail(errors.WithDetails(ErrInvalidBufferMode, "mode", int(mode)))
	}
	if size < 0 {
		return s.fail(errors.WithDetails(ErrInvalidArgument, "size", size))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.fail(ErrClosed)
	}
	if err := s.drain(); err != nil {
		return s.fail(err)
	}
	s.bufMode = mode
	s.bufSize = size
	s.userBuf = nil
	if len(buf) > 0 && mode != Unbuffered {
		s.userBuf = buf
	}
	s.buf = nil
	return nil
}

// SetBuffer uses buf as a full buffer, or turns buffering off when buf is nil.
func (s *Stream) SetBuffer(buf []byte) error {
	if buf == nil {
		return s.SetBuffering(Unbuffered, nil, 0)
	}
	return s.SetBuffering(FullyBuffered, buf, len(buf))
}

// drain empties the buffer in either direction so that the descriptor offset
// matches the logical position of the stream.
func (s *Stream) drain() error {
	switch s.role {
	case roleWriting:
		return s.flushLocked()
	case roleReading:
		return s.sync()
	}
	return nil
}

// beginRead checks that the stream may be read from now and switches it into
// reading.
func (s *Stream) beginRead() error {
	switch {
	case s.closed:
		return ErrClosed
	case !s.mode.read:
		s.err = true
		return ErrNotReadable
	case s.role == roleWriting:
		s.err = true
		return ErrOrientation
	}
	s.role = roleReading
	return nil
}

// beginWrite checks that the stream may be written to now and switches it
// into writing. Input that ran into the end of the file leaves nothing
// buffered, so writing may follow it directly.
func (s *Stream) beginWrite() error {
	switch {
	case s.closed:
		return ErrClosed
	case !s.mode.write:
		s.err = true
		return ErrNotWritable
	case s.role == roleReading:
		if !s.eof || s.r != s.w || s.ungotOK {
			s.err = true
			return ErrOrientation
		}
		s.r, s.w = 0, 0
	}
	s.role = roleWriting
	return nil
}

// fill performs a single raw read into the buffer. A read of zero bytes is
// the end of the file.
func (s *Stream) fill() error {
	if s.eof {
		return io.EOF
	}
	s.ensureBuffer()
	n, err := s.provider().Read(s.fd, s.buf)
	if err != nil {
		s.err = true
		return err
	}
	if n == 0 {
		s.eof = true
		return io.EOF
	}
	s.r, s.w = 0, n
	return nil
}

// peekByte returns the next byte of input without consuming it.
func (s *Stream) peekByte() (byte, error) {
	if s.ungotOK {
		return s.ungot, nil
	}
	if s.r >= s.w {
		if err := s.fill(); err != nil {
			return 0, err
		}
	}
	return s.buf[s.r], nil
}

func (s *Stream) advance() {
	if s.ungotOK {
		s.ungotOK = false
		return
	}
	if s.r < s.w {
		s.r++
	}
}

// read is Read without the lock.
func (s *Stream) read(p []byte) (int, error) {
	if err := s.beginRead(); err != nil {
		return 0, err
	}
	n := 0
	if len(p) > 0 && s.ungotOK {
		p[0] = s.ungot
		s.ungotOK = false
		n++
	}
	for n < len(p) {
		if s.r < s.w {
			c := copy(p[n:], s.buf[s.r:s.w])
			s.r += c
			n += c
			continue
		}
		if s.bufMode == Unbuffered {
			if err := s.readDirect(p[n:], &n); err != nil {
				return n, err
			}
			continue
		}
		if err := s.fill(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// readDirect reads straight into p, asking the descriptor for exactly as many
// bytes as are still wanted.
func (s *Stream) readDirect(p []byte, n *int) error {
	if s.eof {
		return io.EOF
	}
	k, err := s.provider().Read(s.fd, p)
	*n += k
	if err != nil {
		s.err = true
		return err
	}
	if k == 0 {
		s.eof = true
		return io.EOF
	}
	return nil
}

// Read reads up to len(p) bytes, stopping early only at the end of the file
// or on an error. It returns io.EOF when no bytes could be read because the
// end of the file had been reached.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.read(p)
	if errors.Is(err, io.EOF) {
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	}
	return n, s.fail(err)
}

// ReadByte reads and returns the next byte of input.
func (s *Stream) ReadByte() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginRead(); err != nil {
		return 0, s.fail(err)
	}
	c, err := s.peekByte()
	if err != nil {
		return 0, s.fail(err)
	}
	s.advance()
	return c, nil
}

// Gets reads a line of at most n-1 bytes. The newline, if one was read
// before the limit, is part of the result. It returns io.EOF only when the
// end of the file is reached before any byte could be read.
func (s *Stream) Gets(n int) ([]byte, error) {
	if n <= 0 {
		return nil, s.fail(errors.WithDetails(ErrInvalidArgument, "size", n))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginRead(); err != nil {
		return nil, s.fail(err)
	}
	line := make([]byte, 0, min(n-1, 128))
	for len(line) < n-1 {
		c, err := s.peekByte()
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				break
			}
			return nil, s.fail(err)
		}
		s.advance()
		line = append(line, c)
		if c == '\n' {
			break
		}
	}
	return line, nil
}

// Unread pushes c back onto the stream, to be returned by the next read. Only
// one byte can be pushed back at a time. It clears the end of file flag.
func (s *Stream) Unread(c byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ungotOK {
		return s.fail(ErrPushbackFull)
	}
	if err := s.beginRead(); err != nil {
		return s.fail(err)
	}
	s.ungot = c
	s.ungotOK = true
	s.eof = false
	return nil
}

// write is Write without the lock. It returns the number of bytes of p that
// were either handed to the descriptor or are sitting in the buffer.
func (s *Stream) write(p []byte) (int, error) {
	if err := s.beginWrite(); err != nil {
		return 0, err
	}
	if s.bufMode == Unbuffered {
		return s.rawWrite(p)
	}
	s.ensureBuffer()

	n := 0
	// mine counts the bytes of p at the tail of the buffer.
	mine := 0
	for len(p) > 0 {
		if s.w == len(s.buf) {
			pending := s.w
			k, err := s.flushBuffer()
			if err != nil {
				return n - mine + max(0, k-(pending-mine)), err
			}
			mine = 0
		}
		c := copy(s.buf[s.w:], p)
		s.w += c
		n += c
		mine += c
		if s.bufMode == LineBuffered && bytes.IndexByte(p[:c], '\n') >= 0 {
			pending := s.w
			k, err := s.flushBuffer()
			if err != nil {
				return n - mine + max(0, k-(pending-mine)), err
			}
			mine = 0
		}
		p = p[c:]
	}
	return n, nil
}

// Write writes p to the stream. A short count is returned along with an
// error when the descriptor fails; bytes that could not be written are
// dropped and the error flag is set.
func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.write(p)
	return n, s.fail(err)
}

// WriteString writes the bytes of str.
func (s *Stream) WriteString(str string) (int, error) {
	return s.Write([]byte(str))
}

// WriteByte writes a single byte.
func (s *Stream) WriteByte(c byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.write([]byte{c})
	return s.fail(err)
}

// flushBuffer hands the pending output to the descriptor. Whatever the
// outcome, the buffer is empty afterwards: on failure the bytes that could not
// be written are discarded and the error flag is raised. It returns how many
// of the pending bytes were written.
func (s *Stream) flushBuffer() (int, error) {
	k, err := s.rawWrite(s.buf[:s.w])
	s.w = 0
	return k, err
}

// rawWrite writes all of p to the descriptor. Writes that make progress are
// always followed up; writes that make none, or that were interrupted, are
// given a bounded number of further attempts.
func (s *Stream) rawWrite(p []byte) (int, error) {
	cfg := s.reg.cfg.Writes
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.RetryDelay), cfg.Attempts)

	total := 0
	err := backoff.Retry(func() error {
		for total < len(p) {
			n, err := s.provider().Write(s.fd, p[total:])
			if n > 0 {
				total += n
				policy.Reset()
			}
			switch {
			case errors.Is(err, unix.EINTR), errors.Is(err, unix.EAGAIN):
				return err
			case err != nil:
				return backoff.Permanent(err)
			case n <= 0:
				return errors.WithDetails(ErrWriteStalled, "fd", s.fd, "written", total)
			}
		}
		return nil
	}, policy)
	if err != nil {
		s.err = true
		return total, err
	}
	return total, nil
}

// flushLocked writes out pending output and leaves the stream idle. A stream
// that is reading is only synchronized when it may also be written, so that
// flushing plain input is a no-op.
func (s *Stream) flushLocked() error {
	switch s.role {
	case roleWriting:
		s.role = roleIdle
		if s.w > 0 {
			if _, err := s.flushBuffer(); err != nil {
				return err
			}
		}
	case roleReading:
		if s.mode.update() {
			return s.sync()
		}
	}
	return nil
}

// sync gives unread input back to the descriptor by moving its offset back to
// the logical position of the stream, then drops the buffer.
func (s *Stream) sync() error {
	unread := int64(s.w - s.r)
	if s.ungotOK {
		unread++
	}
	if unread > 0 {
		if _, err := s.provider().Seek(s.fd, -unread, io.SeekCurrent); err != nil {
			s.err = true
			return err
		}
	}
	s.r, s.w = 0, 0
	s.ungotOK = false
	s.role = roleIdle
	return nil
}

// Flush writes any buffered output to the descriptor.
func (s *Stream) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.fail(ErrClosed)
	}
	return s.fail(s.flushLocked())
}

// Seek moves the stream to offset relative to whence (io.SeekStart,
// io.SeekCurrent or io.SeekEnd). Pending output is written first; buffered
// input and any pushed back byte are dropped and the end of file flag is
// cleared.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, err := s.seek(offset, whence)
	return pos, s.fail(err)
}

func (s *Stream) seek(offset int64, whence int) (int64, error) {
	if s.closed {
		return -1, ErrClosed
	}
	if whence != io.SeekStart && whence != io.SeekCurrent && whence != io.SeekEnd {
		return -1, errors.WithDetails(ErrInvalidArgument, "whence", whence)
	}
	switch s.role {
	case roleWriting:
		if err := s.flushLocked(); err != nil {
			return -1, err
		}
	case roleReading:
		if whence == io.SeekCurrent {
			offset -= int64(s.w - s.r)
			if s.ungotOK {
				offset--
			}
		}
	}
	pos, err := s.provider().Seek(s.fd, offset, whence)
	if err != nil {
		return -1, err
	}
	s.r, s.w = 0, 0
	s.ungotOK = false
	s.eof = false
	s.role = roleIdle
	return pos, nil
}

// Tell returns the logical position of the stream, taking buffered bytes in
// either direction into account.
func (s *Stream) Tell() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, err := s.tell()
	return pos, s.fail(err)
}

func (s *Stream) tell() (int64, error) {
	if s.closed {
		return -1, ErrClosed
	}
	whence := io.SeekCurrent
	if s.role == roleWriting && s.mode.append && s.w > 0 {
		// Appended output lands at the end of the file whatever the offset.
		whence = io.SeekEnd
	}
	pos, err := s.provider().Seek(s.fd, 0, whence)
	if err != nil {
		return -1, err
	}
	switch s.role {
	case roleReading:
		pos -= int64(s.w - s.r)
		if s.ungotOK {
			pos--
		}
	case roleWriting:
		pos += int64(s.w)
	}
	if pos < 0 {
		// A byte pushed back at the start of the file has no position.
		return -1, errors.WithDetails(ErrInvalidArgument, "reason", "position before the start of the file")
	}
	return pos, nil
}

// GetPos saves the current position of the stream.
func (s *Stream) GetPos() (Position, error) {
	pos, err := s.Tell()
	return Position(pos), err
}

// SetPos restores a position saved by GetPos.
func (s *Stream) SetPos(pos Position) error {
	_, err := s.Seek(int64(pos), io.SeekStart)
	return err
}

// Rewind moves the stream back to its start and clears both the end of file
// and error flags.
func (s *Stream) Rewind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.seek(0, io.SeekStart)
	s.fail(err)
	s.eof = false
	s.err = false
}

// Close flushes the stream and releases its descriptor. A temporary stream
// also removes its file. The standard streams may be closed too and brought
// back with Registry.Reopen.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.fail(ErrClosed)
	}
	err := s.release()
	s.mu.Unlock()

	s.reg.forget(s)
	return s.fail(err)
}

// release flushes and closes the descriptor and resets the stream state. The
// first failure is returned but every step is attempted.
func (s *Stream) release() error {
	var errs []error
	if s.role == roleWriting && s.w > 0 {
		if _, err := s.flushBuffer(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.provider().Close(s.fd); err != nil {
		errs = append(errs, err)
	}
	if s.temp {
		if err := s.provider().Remove(s.name); err != nil {
			errs = append(errs, err)
		}
	}
	s.closed = true
	s.temp = false
	s.reset()
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// reset returns the buffer state of the stream to that of a fresh stream,
// keeping its buffering choices.
func (s *Stream) reset() {
	s.buf = nil
	s.r, s.w = 0, 0
	s.role = roleIdle
	s.eof = false
	s.err = false
	s.ungotOK = false
}
