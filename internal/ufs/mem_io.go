package ufs

import (
	"io"
	"sync"

	"golang.org/x/sys/unix"
)

// Fault describes misbehavior injected into a MemIO descriptor.
type Fault struct {
	// ReadErr is returned by every read on the descriptor.
	ReadErr error
	// WriteErr is returned by every write on the descriptor.
	WriteErr error
	// WriteLimit caps the amount of bytes a single write accepts. Zero means
	// no limit.
	WriteLimit int
	// ZeroWrites is the number of upcoming writes that accept nothing and
	// report no error.
	ZeroWrites int
	// Again is the number of upcoming writes that fail with EAGAIN.
	Again int
}

// Stats records the raw calls performed on a MemIO descriptor.
type Stats struct {
	Reads     int
	Writes    int
	ReadSizes []int
}

type memFile struct {
	data []byte
	// pipe files have no offset, reads consume from the front and writes
	// always append.
	pipe bool
}

type memHandle struct {
	file  *memFile
	name  string
	flag  int
	off   int64
	fault Fault
	stats Stats
}

// MemIO is a Provider that keeps every file in memory. It is safe for
// concurrent use.
type MemIO struct {
	mu      sync.Mutex
	files   map[string]*memFile
	handles map[int]*memHandle
	next    int
}

var _ Provider = (*MemIO)(nil)

// NewMemIO returns an empty in-memory provider. Descriptors handed out by Open
// start at 3, leaving 0, 1 and 2 free to be bound with Bind.
func NewMemIO() *MemIO {
	return &MemIO{
		files:   make(map[string]*memFile),
		handles: make(map[int]*memHandle),
		next:    3,
	}
}

// WriteFile creates or replaces the named file with a copy of data.
func (m *MemIO) WriteFile(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = &memFile{data: append([]byte(nil), data...)}
}

// WritePipe creates or replaces the named entry with an unseekable pipe
// holding a copy of data.
func (m *MemIO) WritePipe(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = &memFile{data: append([]byte(nil), data...), pipe: true}
}

// ReadFile returns a copy of the named file's contents.
func (m *MemIO) ReadFile(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), f.data...), true
}

// Bind attaches fd to the named file, creating an empty file if needed. It is
// used to set up the descriptors a process starts with.
func (m *MemIO) Bind(fd int, name string, flag int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[name]
	if !ok {
		f = &memFile{}
		m.files[name] = f
	}
	m.handles[fd] = &memHandle{file: f, name: name, flag: flag}
	if fd >= m.next {
		m.next = fd + 1
	}
}

// Inject replaces the faults of an open descriptor.
func (m *MemIO) Inject(fd int, f Fault) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handles[fd]
	if !ok {
		return descriptorError("inject", unix.EBADF)
	}
	h.fault = f
	return nil
}

// Stats returns a copy of the call statistics of an open descriptor.
func (m *MemIO) Stats(fd int) Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handles[fd]
	if !ok {
		return Stats{}
	}
	s := h.stats
	s.ReadSizes = append([]int(nil), h.stats.ReadSizes...)
	return s
}

// Open opens the named file with the specified flag (O_RDONLY etc.).
//
// If there is an error, it will be of type *PathError.
func (m *MemIO) Open(name string, flag int, _ FileMode) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[name]
	switch {
	case ok && flag&O_CREATE != 0 && flag&O_EXCL != 0:
		return -1, convertErrorType(&PathError{Op: "open", Path: name, Err: unix.EEXIST})
	case !ok && flag&O_CREATE == 0:
		return -1, convertErrorType(&PathError{Op: "open", Path: name, Err: unix.ENOENT})
	case !ok:
		f = &memFile{}
		m.files[name] = f
	}
	if flag&O_TRUNC != 0 && Writable(flag) && !f.pipe {
		f.data = f.data[:0]
	}
	fd := m.next
	m.next++
	m.handles[fd] = &memHandle{file: f, name: name, flag: flag}
	return fd, nil
}

func (m *MemIO) handle(op string, fd int) (*memHandle, error) {
	h, ok := m.handles[fd]
	if !ok {
		return nil, descriptorError(op, unix.EBADF)
	}
	return h, nil
}

// Read reads up to len(p) bytes from fd.
func (m *MemIO) Read(fd int, p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.handle("read", fd)
	if err != nil {
		return 0, err
	}
	h.stats.Reads++
	h.stats.ReadSizes = append(h.stats.ReadSizes, len(p))
	if !Readable(h.flag) {
		return 0, descriptorError("read", unix.EBADF)
	}
	if h.fault.ReadErr != nil {
		return 0, NewSyscallError("read", h.fault.ReadErr)
	}
	if h.file.pipe {
		n := copy(p, h.file.data)
		h.file.data = h.file.data[n:]
		return n, nil
	}
	if h.off >= int64(len(h.file.data)) {
		return 0, nil
	}
	n := copy(p, h.file.data[h.off:])
	h.off += int64(n)
	return n, nil
}

// Write writes up to len(p) bytes to fd, honoring any injected faults.
func (m *MemIO) Write(fd int, p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.handle("write", fd)
	if err != nil {
		return 0, err
	}
	h.stats.Writes++
	if !Writable(h.flag) {
		return 0, descriptorError("write", unix.EBADF)
	}
	switch {
	case h.fault.WriteErr != nil:
		return 0, NewSyscallError("write", h.fault.WriteErr)
	case h.fault.Again > 0:
		h.fault.Again--
		return 0, unix.EAGAIN
	case h.fault.ZeroWrites > 0:
		h.fault.ZeroWrites--
		return 0, nil
	}
	if h.fault.WriteLimit > 0 && len(p) > h.fault.WriteLimit {
		p = p[:h.fault.WriteLimit]
	}
	f := h.file
	if f.pipe || h.flag&O_APPEND != 0 {
		h.off = int64(len(f.data))
	}
	end := h.off + int64(len(p))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[h.off:], p)
	h.off = end
	return len(p), nil
}

// Seek repositions the offset of fd.
func (m *MemIO) Seek(fd int, offset int64, whence int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.handle("lseek", fd)
	if err != nil {
		return -1, err
	}
	if h.file.pipe {
		return -1, descriptorError("lseek", unix.ESPIPE)
	}
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = h.off
	case io.SeekEnd:
		base = int64(len(h.file.data))
	default:
		return -1, NewSyscallError("lseek", unix.EINVAL)
	}
	if base+offset < 0 {
		return -1, NewSyscallError("lseek", unix.EINVAL)
	}
	h.off = base + offset
	return h.off, nil
}

// Close releases fd.
func (m *MemIO) Close(fd int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.handle("close", fd); err != nil {
		return err
	}
	delete(m.handles, fd)
	return nil
}

// Remove removes the named file. Open descriptors keep the contents alive.
func (m *MemIO) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return convertErrorType(&PathError{Op: "remove", Path: name, Err: unix.ENOENT})
	}
	delete(m.files, name)
	return nil
}

// Rename renames (moves) oldname to newname, replacing newname if it exists.
func (m *MemIO) Rename(oldname, newname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[oldname]
	if !ok {
		return &LinkError{Op: "rename", Old: oldname, New: newname, Err: unix.ENOENT}
	}
	delete(m.files, oldname)
	m.files[newname] = f
	return nil
}
