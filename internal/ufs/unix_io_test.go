//go:build unix

package ufs_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ghostkernel/ghostio/internal/ufs"
)

func newTestDir(t *testing.T) string {
	tmpDir, err := os.MkdirTemp(os.TempDir(), "ufs")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(tmpDir)
	})
	return tmpDir
}

func TestUnixIO_Open(t *testing.T) {
	t.Parallel()
	dir := newTestDir(t)
	p := ufs.UnixIO{}

	t.Run("missing file", func(t *testing.T) {
		if _, err := p.Open(filepath.Join(dir, "missing"), ufs.O_RDONLY, 0); !errors.Is(err, ufs.ErrNotExist) {
			t.Errorf("expected a not exist error, but got: %v", err)
		}
	})

	t.Run("exclusive create of existing file", func(t *testing.T) {
		name := filepath.Join(dir, "exists")
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := p.Open(name, ufs.O_CREATE|ufs.O_EXCL|ufs.O_WRONLY, 0o644); !errors.Is(err, ufs.ErrExist) {
			t.Errorf("expected an exist error, but got: %v", err)
		}
	})
}

func TestUnixIO_ReadWriteSeek(t *testing.T) {
	t.Parallel()
	dir := newTestDir(t)
	p := ufs.UnixIO{}

	fd, err := p.Open(filepath.Join(dir, "data"), ufs.O_CREATE|ufs.O_RDWR|ufs.O_TRUNC, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close(fd)

	if n, err := p.Write(fd, []byte("hello world")); err != nil || n != 11 {
		t.Fatalf("unexpected write result: n=%d err=%v", n, err)
	}
	if off, err := p.Seek(fd, 6, io.SeekStart); err != nil || off != 6 {
		t.Fatalf("unexpected seek result: off=%d err=%v", off, err)
	}
	buf := make([]byte, 16)
	n, err := p.Read(fd, buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "world" {
		t.Errorf("expected to read \"world\", got %q", buf[:n])
	}
	if n, err := p.Read(fd, buf); err != nil || n != 0 {
		t.Errorf("expected end of file, got n=%d err=%v", n, err)
	}
}

func TestUnixIO_BadDescriptor(t *testing.T) {
	t.Parallel()
	p := ufs.UnixIO{}
	if _, err := p.Read(-1, make([]byte, 1)); !errors.Is(err, ufs.ErrBadDescriptor) {
		t.Errorf("expected a bad descriptor error, but got: %v", err)
	}
}

func TestUnixIO_RemoveRename(t *testing.T) {
	t.Parallel()
	dir := newTestDir(t)
	p := ufs.UnixIO{}

	oldName := filepath.Join(dir, "old")
	newName := filepath.Join(dir, "new")
	if err := os.WriteFile(oldName, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := p.Rename(oldName, newName); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(newName); err != nil {
		t.Errorf("expected renamed file to exist: %v", err)
	}
	if err := p.Remove(newName); err != nil {
		t.Fatal(err)
	}
	if err := p.Remove(newName); !errors.Is(err, ufs.ErrNotExist) {
		t.Errorf("expected a not exist error, but got: %v", err)
	}
}
