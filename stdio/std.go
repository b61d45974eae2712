package stdio

import (
	"os"
	"sync"

	"github.com/apex/log"

	"github.com/ghostkernel/ghostio/format"
	"github.com/ghostkernel/ghostio/internal/ufs"
	"github.com/ghostkernel/ghostio/scan"
)

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry of the running process, bound to its real
// descriptors. It is created on first use from the global configuration.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(ufs.UnixIO{})
	})
	return defaultRegistry
}

// Stdin returns the standard input stream of the process.
func Stdin() *Stream {
	return Default().Stdin()
}

// Stdout returns the standard output stream of the process.
func Stdout() *Stream {
	return Default().Stdout()
}

// Stderr returns the diagnostic stream of the process.
func Stderr() *Stream {
	return Default().Stderr()
}

// Printf writes formatted output to the standard output stream.
func Printf(descriptor string, args ...any) (int, error) {
	return Stdout().Printf(descriptor, args...)
}

// Scanf reads formatted input from the standard input stream.
func Scanf(descriptor string, slots ...any) (int, error) {
	return Stdin().Scanf(descriptor, slots...)
}

// Getchar reads a byte from standard input, returning EOF at the end of input
// or on an error.
func Getchar() int {
	c, err := Stdin().ReadByte()
	if err != nil {
		return EOF
	}
	return int(c)
}

// Putchar writes a byte to standard output, returning it or EOF on failure.
func Putchar(c byte) int {
	if err := Stdout().WriteByte(c); err != nil {
		return EOF
	}
	return int(c)
}

// Puts writes s followed by a newline to standard output.
func Puts(s string) (int, error) {
	return Stdout().WriteString(s + "\n")
}

// Perror describes the last error of the process on the diagnostic stream.
func Perror(prefix string) {
	Default().Perror(prefix)
}

// Klog formats a message for the kernel log.
func Klog(descriptor string, args ...any) (int, error) {
	return Default().Klog(descriptor, args...)
}

// Exit flushes and closes the streams of the process and terminates it with
// code.
func Exit(code int) {
	if err := Default().Shutdown(); err != nil {
		log.WithField("error", err).Warn("streams were not shut down cleanly")
	}
	os.Exit(code)
}

// Sprintf formats into a new string.
func Sprintf(descriptor string, args ...any) (string, error) {
	var sink format.GrowSink
	if _, err := format.Format(&sink, descriptor, format.NewArgs(args...)); err != nil {
		return "", err
	}
	return sink.String(), nil
}

// Snprintf formats into dst, writing at most len(dst)-1 bytes followed by a
// NUL terminator. It returns the length the full output would have had, which
// is at least len(dst) when the output was truncated.
func Snprintf(dst []byte, descriptor string, args ...any) (int, error) {
	return format.Format(format.NewBufferSink(dst), descriptor, format.NewArgs(args...))
}

// Sscanf scans str according to descriptor.
func Sscanf(str string, descriptor string, slots ...any) (int, error) {
	return scan.Scan(scan.NewStringSource(str), descriptor, slots...)
}

// Cbprintf formats and hands the output to fn, piece by piece, as it is
// produced.
func Cbprintf(fn func(p []byte) (int, error), descriptor string, args ...any) (int, error) {
	return format.Format(format.SinkFunc(fn), descriptor, format.NewArgs(args...))
}
