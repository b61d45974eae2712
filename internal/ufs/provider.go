package ufs

import (
	"io"
	iofs "io/fs"

	"golang.org/x/sys/unix"
)

// Provider describes the raw descriptor interface offered by the operating
// system. Descriptors are plain integers owned by the Provider; nothing in
// this interface buffers data or remembers anything about a descriptor beyond
// what the kernel would.
type Provider interface {
	// Open opens the named file with the specified flag (O_RDONLY etc.) and
	// returns a descriptor for it. If the file does not exist, and the
	// O_CREATE flag is passed, it is created with mode perm (before umask).
	//
	// If there is an error, it will be of type *PathError.
	Open(name string, flag int, perm FileMode) (int, error)

	// Read reads up to len(p) bytes from the descriptor. A return of zero bytes
	// with a nil error is the end of the file.
	Read(fd int, p []byte) (int, error)

	// Write writes up to len(p) bytes to the descriptor and returns the number
	// of bytes accepted, which may be less than len(p).
	Write(fd int, p []byte) (int, error)

	// Seek sets the offset of the descriptor according to whence (io.SeekStart,
	// io.SeekCurrent or io.SeekEnd) and returns the new absolute offset.
	// Descriptors without an offset return an error matching ErrNotSeekable.
	Seek(fd int, offset int64, whence int) (int64, error)

	// Close releases the descriptor.
	Close(fd int) error

	// Remove removes the named file or (empty) directory.
	//
	// If there is an error, it will be of type *PathError.
	Remove(name string) error

	// Rename renames (moves) oldname to newname.
	//
	// If there is an error, it will be of type *LinkError.
	Rename(oldname, newname string) error
}

// FileMode represents a file's mode and permission bits.
type FileMode = iofs.FileMode

const (
	// ModeSetuid .
	// u: setuid
	ModeSetuid = iofs.ModeSetuid
	// ModeSetgid .
	// g: setgid
	ModeSetgid = iofs.ModeSetgid
	// ModeSticky .
	// t: sticky
	ModeSticky = iofs.ModeSticky
	// ModePerm .
	// Unix permission bits, 0o777.
	ModePerm = iofs.ModePerm
)

const (
	// O_RDONLY opens the file read-only.
	O_RDONLY = unix.O_RDONLY
	// O_WRONLY opens the file write-only.
	O_WRONLY = unix.O_WRONLY
	// O_RDWR opens the file read-write.
	O_RDWR = unix.O_RDWR
	// O_APPEND appends data to the file when writing.
	O_APPEND = unix.O_APPEND
	// O_CREATE creates a new file if it doesn't exist.
	O_CREATE = unix.O_CREAT
	// O_EXCL is used with O_CREATE, file must not exist.
	O_EXCL = unix.O_EXCL
	// O_TRUNC truncates regular writable file when opened.
	O_TRUNC = unix.O_TRUNC
	// O_CLOEXEC closes the descriptor when a new program is executed.
	O_CLOEXEC = unix.O_CLOEXEC

	// O_ACCMODE masks the access bits (O_RDONLY, O_WRONLY, O_RDWR) of a flag.
	O_ACCMODE = unix.O_ACCMODE
)

// Descriptors that every process starts with.
const (
	StdinFileno  = 0
	StdoutFileno = 1
	StderrFileno = 2
)

// Readable reports whether a descriptor opened with flag may be read from.
func Readable(flag int) bool {
	return flag&O_ACCMODE != O_WRONLY
}

// Writable reports whether a descriptor opened with flag may be written to.
func Writable(flag int) bool {
	return flag&O_ACCMODE != O_RDONLY
}

// unixWhence converts an io.Seek* constant into the value expected by lseek.
func unixWhence(whence int) (int, bool) {
	switch whence {
	case io.SeekStart:
		return unix.SEEK_SET, true
	case io.SeekCurrent:
		return unix.SEEK_CUR, true
	case io.SeekEnd:
		return unix.SEEK_END, true
	}
	return 0, false
}
