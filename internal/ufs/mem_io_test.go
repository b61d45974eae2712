package ufs_test

import (
	"errors"
	"io"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/ghostkernel/ghostio/internal/ufs"
)

func TestMemIO_Open(t *testing.T) {
	t.Parallel()
	m := ufs.NewMemIO()
	m.WriteFile("a", []byte("abc"))

	t.Run("missing file", func(t *testing.T) {
		if _, err := m.Open("missing", ufs.O_RDONLY, 0); !errors.Is(err, ufs.ErrNotExist) {
			t.Errorf("expected a not exist error, but got: %v", err)
		}
	})

	t.Run("exclusive create", func(t *testing.T) {
		if _, err := m.Open("a", ufs.O_CREATE|ufs.O_EXCL|ufs.O_RDWR, 0o644); !errors.Is(err, ufs.ErrExist) {
			t.Errorf("expected an exist error, but got: %v", err)
		}
	})

	t.Run("truncate", func(t *testing.T) {
		m.WriteFile("t", []byte("abc"))
		fd, err := m.Open("t", ufs.O_WRONLY|ufs.O_TRUNC, 0)
		if err != nil {
			t.Fatal(err)
		}
		defer m.Close(fd)
		if b, _ := m.ReadFile("t"); len(b) != 0 {
			t.Errorf("expected truncated file, got %q", b)
		}
	})
}

func TestMemIO_Append(t *testing.T) {
	t.Parallel()
	m := ufs.NewMemIO()
	m.WriteFile("log", []byte("one\n"))

	fd, err := m.Open("log", ufs.O_WRONLY|ufs.O_APPEND, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Seek(fd, 0, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Write(fd, []byte("two\n")); err != nil {
		t.Fatal(err)
	}
	b, _ := m.ReadFile("log")
	if string(b) != "one\ntwo\n" {
		t.Errorf("unexpected contents: %q", b)
	}
}

func TestMemIO_Pipe(t *testing.T) {
	t.Parallel()
	m := ufs.NewMemIO()
	m.WritePipe("stdin", []byte("xy"))
	m.Bind(ufs.StdinFileno, "stdin", ufs.O_RDONLY)

	if _, err := m.Seek(ufs.StdinFileno, 0, io.SeekCurrent); !errors.Is(err, ufs.ErrNotSeekable) {
		t.Errorf("expected a not seekable error, but got: %v", err)
	}
	if !errors.Is(func() error { _, err := m.Seek(ufs.StdinFileno, 0, io.SeekCurrent); return err }(), unix.ESPIPE) {
		t.Errorf("expected ESPIPE to remain matchable")
	}
	buf := make([]byte, 1)
	if n, _ := m.Read(ufs.StdinFileno, buf); n != 1 || buf[0] != 'x' {
		t.Errorf("unexpected read: %d %q", n, buf)
	}
	if _, err := m.Write(ufs.StdinFileno, []byte("z")); !errors.Is(err, ufs.ErrBadDescriptor) {
		t.Errorf("expected a bad descriptor error for a read-only descriptor, got: %v", err)
	}
}

func TestMemIO_Faults(t *testing.T) {
	t.Parallel()
	m := ufs.NewMemIO()
	fd, err := m.Open("out", ufs.O_CREATE|ufs.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Inject(fd, ufs.Fault{WriteLimit: 2, ZeroWrites: 1, Again: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Write(fd, []byte("abcd")); err != unix.EAGAIN {
		t.Errorf("expected EAGAIN, got %v", err)
	}
	if n, err := m.Write(fd, []byte("abcd")); n != 0 || err != nil {
		t.Errorf("expected a zero byte write, got n=%d err=%v", n, err)
	}
	if n, err := m.Write(fd, []byte("abcd")); n != 2 || err != nil {
		t.Errorf("expected a short write, got n=%d err=%v", n, err)
	}
	if s := m.Stats(fd); s.Writes != 3 {
		t.Errorf("expected 3 recorded writes, got %d", s.Writes)
	}
	if err := m.Inject(99, ufs.Fault{}); !errors.Is(err, ufs.ErrBadDescriptor) {
		t.Errorf("expected a bad descriptor error, got: %v", err)
	}
}
