package stdio

import (
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/unix"

	"github.com/ghostkernel/ghostio/config"
	"github.com/ghostkernel/ghostio/format"
	"github.com/ghostkernel/ghostio/internal/ufs"
)

// The number of workers used to flush streams when everything is flushed at
// once.
const flushWorkers = 4

// Registry tracks every open stream of a process along with the three
// standard streams, and records the last error code of the process.
type Registry struct {
	io   ufs.Provider
	cfg  *config.Configuration
	klog io.Writer

	mu      sync.Mutex
	streams map[*Stream]struct{}
	sem     *semaphore.Weighted

	stdin  *Stream
	stdout *Stream
	stderr *Stream

	errno atomic.Int32
}

type RegistryOption func(r *Registry)

// WithConfiguration uses c instead of the global configuration.
func WithConfiguration(c *config.Configuration) RegistryOption {
	return func(r *Registry) {
		r.cfg = c
	}
}

// WithKernelLog sends kernel log messages to w.
func WithKernelLog(w io.Writer) RegistryOption {
	return func(r *Registry) {
		r.klog = w
	}
}

// NewRegistry returns a registry on top of provider with descriptors 0, 1 and
// 2 already bound to the standard input, output and diagnostic streams.
func NewRegistry(provider ufs.Provider, opts ...RegistryOption) *Registry {
	r := &Registry{
		io:      provider,
		streams: make(map[*Stream]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cfg == nil {
		r.cfg = config.Get()
	}
	if r.klog == nil {
		r.klog = NewKernelLog(r.cfg.Klog.BytesPerSecond, r.cfg.Klog.MaxMessage)
	}
	r.sem = semaphore.NewWeighted(r.cfg.Files.OpenMax)

	r.stdin = r.standard(ufs.StdinFileno, "r", FullyBuffered)
	r.stdout = r.standard(ufs.StdoutFileno, "w", FullyBuffered)
	r.stderr = r.standard(ufs.StderrFileno, "w", Unbuffered)
	return r
}

func (r *Registry) standard(fd int, mode string, bm BufferMode) *Stream {
	m, _ := parseMode(mode)
	// The standard streams always fit: the configuration requires room for
	// them.
	r.sem.TryAcquire(1)
	s := &Stream{reg: r, fd: fd, mode: m, bufMode: bm}
	r.track(s)
	return s
}

func (r *Registry) newStream(fd int, name string, m openMode) *Stream {
	return &Stream{reg: r, fd: fd, name: name, mode: m, bufMode: FullyBuffered}
}

func (r *Registry) track(s *Stream) {
	r.mu.Lock()
	r.streams[s] = struct{}{}
	r.mu.Unlock()
}

// forget drops a closed stream from the registry and gives back its slot.
func (r *Registry) forget(s *Stream) {
	r.mu.Lock()
	_, ok := r.streams[s]
	delete(r.streams, s)
	r.mu.Unlock()
	if ok {
		r.sem.Release(1)
	}
}

// fail records the error code of err as the last error of the process. End of
// input is not recorded. The error is returned unchanged.
func (r *Registry) fail(err error) error {
	if err == nil || errors.Is(err, io.EOF) {
		return err
	}
	r.errno.Store(int32(Errno(err)))
	return err
}

// Errno returns the error code recorded by the last failing call.
func (r *Registry) Errno() unix.Errno {
	return unix.Errno(r.errno.Load())
}

// Stdin returns the standard input stream.
func (r *Registry) Stdin() *Stream {
	return r.stdin
}

// Stdout returns the standard output stream.
func (r *Registry) Stdout() *Stream {
	return r.stdout
}

// Stderr returns the diagnostic stream.
func (r *Registry) Stderr() *Stream {
	return r.stderr
}

// Len returns the number of open streams, including the standard ones.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streams)
}

func checkName(name string) error {
	if len(name) >= PathMax {
		return errors.WithDetails(ErrNameTooLong, "length", len(name))
	}
	return nil
}

// Open opens the named file with a mode string such as "r", "w+" or "ab".
func (r *Registry) Open(name string, mode string) (*Stream, error) {
	s, err := r.open(name, mode)
	if err != nil {
		return nil, r.fail(err)
	}
	log.WithFields(log.Fields{"name": name, "mode": mode, "fd": s.fd}).Debug("opened stream")
	return s, nil
}

func (r *Registry) open(name string, mode string) (*Stream, error) {
	m, err := parseMode(mode)
	if err != nil {
		return nil, err
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	if !r.sem.TryAcquire(1) {
		return nil, errors.WithDetails(ErrTooManyOpen, "limit", r.cfg.Files.OpenMax)
	}
	fd, err := r.io.Open(name, m.flag, 0o666)
	if err != nil {
		r.sem.Release(1)
		return nil, err
	}
	s := r.newStream(fd, name, m)
	r.track(s)
	return s, nil
}

// FdOpen wraps an already open descriptor in a stream. The mode must not ask
// for access the descriptor was not opened with; this is not checked here and
// shows up as an error from the first offending operation.
func (r *Registry) FdOpen(fd int, mode string) (*Stream, error) {
	m, err := parseMode(mode)
	if err != nil {
		return nil, r.fail(err)
	}
	if fd < 0 {
		return nil, r.fail(errors.WithDetails(ufs.ErrBadDescriptor, "fd", fd))
	}
	if !r.sem.TryAcquire(1) {
		return nil, r.fail(errors.WithDetails(ErrTooManyOpen, "limit", r.cfg.Files.OpenMax))
	}
	s := r.newStream(fd, "", m)
	r.track(s)
	return s, nil
}

// Reopen closes the descriptor under s and opens name in its place with a new
// mode, keeping the identity of s so that anything holding it (such as the
// standard stream accessors) sees the new file. An empty name reopens the
// current file. If the new file cannot be opened s is left closed.
func (r *Registry) Reopen(name string, mode string, s *Stream) (*Stream, error) {
	m, err := parseMode(mode)
	if err != nil {
		return nil, r.fail(err)
	}
	if err := checkName(name); err != nil {
		return nil, r.fail(err)
	}

	s.mu.Lock()
	if name == "" {
		name = s.name
	}
	if name == "" {
		s.mu.Unlock()
		return nil, r.fail(errors.WithDetails(ErrInvalidArgument, "reason", "stream has no name to reopen"))
	}
	wasClosed := s.closed
	oldFd := s.fd
	var releaseErr error
	if wasClosed {
		if !r.sem.TryAcquire(1) {
			s.mu.Unlock()
			return nil, r.fail(errors.WithDetails(ErrTooManyOpen, "limit", r.cfg.Files.OpenMax))
		}
	} else {
		// The old file is gone either way, what matters is whether the new one
		// opens. The error is logged once the stream is unlocked since the log
		// handler may be writing to this very stream.
		releaseErr = s.release()
	}
	s.closed = true

	fd, err := r.io.Open(name, m.flag, 0o666)
	if err != nil {
		s.mu.Unlock()
		logReleaseError(oldFd, releaseErr)
		if wasClosed {
			r.sem.Release(1)
		} else {
			r.forget(s)
		}
		return nil, r.fail(err)
	}
	s.fd = fd
	s.name = name
	s.mode = m
	s.closed = false
	s.reset()
	s.mu.Unlock()

	r.track(s)
	logReleaseError(oldFd, releaseErr)
	log.WithFields(log.Fields{"name": name, "mode": mode, "fd": fd}).Debug("reopened stream")
	return s, nil
}

// Close closes s.
func (r *Registry) Close(s *Stream) error {
	return s.Close()
}

// TempName returns a name in the temporary directory that is not used by any
// existing file.
func (r *Registry) TempName() string {
	c := r.cfg.Files
	return filepath.Join(c.TmpDirectory, c.TmpPrefix+uuid.NewString())
}

// TempFile creates and opens a new temporary file for update. The file is
// removed when the stream is closed.
func (r *Registry) TempFile() (*Stream, error) {
	name := r.TempName()
	s, err := r.open(name, "w+x")
	if err != nil {
		return nil, r.fail(err)
	}
	s.temp = true
	log.WithFields(log.Fields{"name": name, "fd": s.fd}).Debug("created temporary stream")
	return s, nil
}

// Remove removes the named file.
func (r *Registry) Remove(name string) error {
	if err := checkName(name); err != nil {
		return r.fail(err)
	}
	return r.fail(r.io.Remove(name))
}

// Rename renames oldname to newname.
func (r *Registry) Rename(oldname, newname string) error {
	if err := checkName(oldname); err != nil {
		return r.fail(err)
	}
	if err := checkName(newname); err != nil {
		return r.fail(err)
	}
	return r.fail(r.io.Rename(oldname, newname))
}

func (r *Registry) snapshot() []*Stream {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Stream, 0, len(r.streams))
	for s := range r.streams {
		out = append(out, s)
	}
	return out
}

// FlushAll flushes every open stream. Every stream is attempted; the errors
// of those that failed are combined into the returned error.
func (r *Registry) FlushAll() error {
	var mu sync.Mutex
	var errs []error

	pool := workerpool.New(flushWorkers)
	for _, s := range r.snapshot() {
		s := s
		pool.Submit(func() {
			if err := s.Flush(); err != nil && !errors.Is(err, ErrClosed) {
				mu.Lock()
				errs = append(errs, errors.WithDetails(err, "name", s.Name()))
				mu.Unlock()
			}
		})
	}
	pool.StopWait()
	return errors.Combine(errs...)
}

// Shutdown flushes every stream and closes all of them except the standard
// ones, as happens when the process exits.
func (r *Registry) Shutdown() error {
	err := r.FlushAll()
	if err != nil {
		log.WithField("error", err).Warn("failed to flush streams during shutdown")
	}
	for _, s := range r.snapshot() {
		if s == r.stdin || s == r.stdout || s == r.stderr {
			continue
		}
		if cerr := s.Close(); cerr != nil && !errors.Is(cerr, ErrClosed) {
			log.WithFields(log.Fields{"name": s.Name(), "error": cerr}).Warn("failed to close stream during shutdown")
			err = errors.Append(err, cerr)
		}
	}
	return err
}

// Perror writes a message describing the last recorded error to the
// diagnostic stream, preceded by prefix and a colon when prefix is not empty.
func (r *Registry) Perror(prefix string) {
	msg := Strerror(r.Errno())
	if prefix != "" {
		msg = prefix + ": " + msg
	}
	// Writing the message must not replace the error being reported.
	errno := r.errno.Load()
	_, _ = r.stderr.WriteString(msg + "\n")
	r.errno.Store(errno)
}

// Klog formats a message and sends it to the kernel log. Messages longer than
// the configured maximum are truncated. It returns the length the message
// would have had.
func (r *Registry) Klog(descriptor string, args ...any) (int, error) {
	sink := format.NewBufferSink(make([]byte, r.cfg.Klog.MaxMessage+1))
	n, err := format.Format(sink, descriptor, format.NewArgs(args...))
	if err != nil {
		return -1, r.fail(err)
	}
	if _, err := r.klog.Write(sink.Bytes()); err != nil {
		return -1, r.fail(errors.WithStack(err))
	}
	return n, nil
}

func logReleaseError(fd int, err error) {
	if err != nil {
		log.WithFields(log.Fields{"fd": fd, "error": err}).Debug("error closing stream being reopened")
	}
}
