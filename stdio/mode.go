package stdio

import (
	"emperror.dev/errors"

	"github.com/ghostkernel/ghostio/internal/ufs"
)

// openMode is a parsed fopen mode string.
type openMode struct {
	text   string
	flag   int
	read   bool
	write  bool
	append bool
}

// parseMode parses a mode string: one of 'r', 'w' or 'a', followed by any of
// '+', 'b' and 'x', each at most once. 'x' is only allowed with 'w'. The
// binary marker has no effect.
func parseMode(mode string) (openMode, error) {
	m := openMode{text: mode}
	bad := func() (openMode, error) {
		return openMode{}, errors.WithDetails(ErrInvalidMode, "mode", mode)
	}
	if mode == "" {
		return bad()
	}

	var plus, binary, excl bool
	for _, c := range []byte(mode[1:]) {
		switch {
		case c == '+' && !plus:
			plus = true
		case c == 'b' && !binary:
			binary = true
		case c == 'x' && !excl:
			excl = true
		default:
			return bad()
		}
	}

	switch mode[0] {
	case 'r':
		m.read = true
		m.write = plus
	case 'w':
		m.write = true
		m.read = plus
		m.flag = ufs.O_CREATE | ufs.O_TRUNC
	case 'a':
		m.write = true
		m.read = plus
		m.append = true
		m.flag = ufs.O_CREATE | ufs.O_APPEND
	default:
		return bad()
	}
	if excl {
		if mode[0] != 'w' {
			return bad()
		}
		m.flag |= ufs.O_EXCL
	}

	switch {
	case m.read && m.write:
		m.flag |= ufs.O_RDWR
	case m.write:
		m.flag |= ufs.O_WRONLY
	default:
		m.flag |= ufs.O_RDONLY
	}
	return m, nil
}

// update reports whether the stream may be both read and written.
func (m openMode) update() bool {
	return m.read && m.write
}
