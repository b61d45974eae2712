package stdio

import (
	"io"

	"emperror.dev/errors"
	"golang.org/x/sys/unix"

	"github.com/ghostkernel/ghostio/format"
	"github.com/ghostkernel/ghostio/internal/ufs"
	"github.com/ghostkernel/ghostio/scan"
)

var (
	ErrInvalidMode       = errors.Sentinel("stdio: invalid mode string")
	ErrInvalidBufferMode = errors.Sentinel("stdio: invalid buffering mode")
	ErrInvalidArgument   = errors.Sentinel("stdio: invalid argument")
	ErrOrientation       = errors.Sentinel("stdio: stream switched between reading and writing without a flush or seek")
	ErrNotReadable       = errors.Sentinel("stdio: stream is not open for reading")
	ErrNotWritable       = errors.Sentinel("stdio: stream is not open for writing")
	ErrClosed            = errors.Sentinel("stdio: stream is closed")
	ErrPushbackFull      = errors.Sentinel("stdio: a byte has already been pushed back")
	ErrTooManyOpen       = errors.Sentinel("stdio: too many open streams")
	ErrNameTooLong       = errors.Sentinel("stdio: file name too long")
	ErrWriteStalled      = errors.Sentinel("stdio: descriptor stopped accepting writes")
)

// Errno maps an error returned by this package, or by the provider underneath
// it, to the error code C callers would find in errno. End of input is not an
// error and maps to zero.
func Errno(err error) unix.Errno {
	var errno unix.Errno
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return 0
	case errors.Is(err, ErrInvalidMode),
		errors.Is(err, ErrInvalidBufferMode),
		errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrOrientation),
		errors.Is(err, ErrPushbackFull),
		errors.Is(err, format.ErrMissingArgument),
		errors.Is(err, format.ErrArgumentType),
		errors.Is(err, scan.ErrSlotType),
		errors.Is(err, scan.ErrMissingSlot):
		return unix.EINVAL
	case errors.Is(err, format.ErrInvalidFormat), errors.Is(err, scan.ErrInvalidFormat):
		return unix.EILSEQ
	case errors.Is(err, ErrNotReadable),
		errors.Is(err, ErrNotWritable),
		errors.Is(err, ErrClosed),
		errors.Is(err, ufs.ErrBadDescriptor):
		return unix.EBADF
	case errors.Is(err, ErrTooManyOpen):
		return unix.EMFILE
	case errors.Is(err, ErrNameTooLong):
		return unix.ENAMETOOLONG
	case errors.Is(err, ufs.ErrNotExist):
		return unix.ENOENT
	case errors.Is(err, ufs.ErrExist):
		return unix.EEXIST
	case errors.Is(err, ufs.ErrPermission):
		return unix.EPERM
	case errors.Is(err, ufs.ErrIsDirectory):
		return unix.EISDIR
	case errors.Is(err, ufs.ErrNotDirectory):
		return unix.ENOTDIR
	case errors.Is(err, ufs.ErrNotSeekable):
		return unix.ESPIPE
	case errors.As(err, &errno):
		return errno
	}
	return unix.EIO
}

// Strerror returns the message describing an error code.
func Strerror(errno unix.Errno) string {
	if errno == 0 {
		return "success"
	}
	return errno.Error()
}
