//go:build unix

package ufs

import (
	"golang.org/x/sys/unix"
)

// UnixIO is a Provider that uses the unix package to make io calls.
//
// It is the provider used for real processes, descriptors 0, 1 and 2 are the
// ones inherited from the parent process.
type UnixIO struct{}

var _ Provider = UnixIO{}

// Open opens the named file with the specified flag (O_RDONLY etc.).
//
// If there is an error, it will be of type *PathError.
func (UnixIO) Open(name string, flag int, mode FileMode) (int, error) {
	// Ensure the O_CLOEXEC flag is set.
	// Go sets this in the os package, but since we are directly using unix
	// we need to set it ourselves.
	if flag&O_CLOEXEC == 0 {
		flag |= O_CLOEXEC
	}
	var fd int
	for {
		var err error
		// O_LARGEFILE is set by Open for us automatically.
		fd, err = unix.Open(name, flag, uint32(syscallMode(mode)))
		if err == nil {
			break
		}
		// We have to check EINTR here, per issues https://go.dev/issue/11180 and https://go.dev/issue/39237.
		if err == unix.EINTR {
			continue
		}
		return -1, convertErrorType(&PathError{Op: "open", Path: name, Err: err})
	}
	return fd, nil
}

// Read reads up to len(p) bytes from fd.
func (UnixIO) Read(fd int, p []byte) (int, error) {
	n, err := ignoringEINTRIO(unix.Read, fd, p)
	if err != nil {
		return 0, descriptorError("read", err)
	}
	return n, nil
}

// Write writes up to len(p) bytes to fd. EAGAIN is returned as is so that
// callers may retry a non-blocking descriptor.
func (UnixIO) Write(fd int, p []byte) (int, error) {
	n, err := ignoringEINTRIO(unix.Write, fd, p)
	if n < 0 {
		n = 0
	}
	if err != nil {
		if err == unix.EAGAIN {
			return n, err
		}
		return n, descriptorError("write", err)
	}
	return n, nil
}

// Seek repositions the offset of fd.
func (UnixIO) Seek(fd int, offset int64, whence int) (int64, error) {
	w, ok := unixWhence(whence)
	if !ok {
		return -1, NewSyscallError("lseek", unix.EINVAL)
	}
	off, err := unix.Seek(fd, offset, w)
	if err != nil {
		return -1, descriptorError("lseek", err)
	}
	return off, nil
}

// Close releases fd.
func (UnixIO) Close(fd int) error {
	// Close is never retried on EINTR, the descriptor is released either way
	// on Linux and retrying could close a descriptor reused by another thread.
	return descriptorError("close", unix.Close(fd))
}

// Remove removes the named file or (empty) directory.
//
// If there is an error, it will be of type *PathError.
func (UnixIO) Remove(name string) error {
	// System call interface forces us to know
	// whether name is a file or directory.
	// Try both: it is cheaper on average than
	// doing a Stat plus the right one.
	err := ignoringEINTR(func() error {
		return unix.Unlink(name)
	})
	if err == nil {
		return nil
	}
	err1 := ignoringEINTR(func() error {
		return unix.Rmdir(name)
	})
	if err1 == nil {
		return nil
	}

	// Both failed: figure out which error to return.
	// OS X and Linux differ on whether unlink(dir)
	// returns EISDIR, so can't use that. However,
	// both agree that rmdir(file) returns ENOTDIR,
	// so we can use that to decide which error is real.
	if err1 != unix.ENOTDIR {
		err = err1
	}
	return convertErrorType(&PathError{Op: "remove", Path: name, Err: err})
}

// Rename renames (moves) oldname to newname.
//
// If there is an error, it will be of type *LinkError.
func (UnixIO) Rename(oldname, newname string) error {
	if oldname == newname {
		return nil
	}
	if err := unix.Rename(oldname, newname); err != nil {
		return &LinkError{Op: "rename", Old: oldname, New: newname, Err: err}
	}
	return nil
}
