package format

import (
	"emperror.dev/errors"
)

var (
	// ErrInvalidFormat is returned when a descriptor contains an unknown
	// conversion letter or ends in the middle of a specifier.
	ErrInvalidFormat = errors.Sentinel("format: invalid conversion specifier")
)

// Flags is the set of flag characters given to a conversion specifier.
type Flags uint8

const (
	// FlagLeft left-justifies the field ('-').
	FlagLeft Flags = 1 << iota
	// FlagSign always prints a sign for signed conversions ('+').
	FlagSign
	// FlagSpace prints a space where a plus sign would go (' ').
	FlagSpace
	// FlagAlt selects the alternate form ('#').
	FlagAlt
	// FlagZero pads with leading zeros instead of spaces ('0').
	FlagZero
)

// Has reports whether all of the flags in f2 are set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Length is a length modifier selecting the width of the argument fetched for
// a conversion.
type Length uint8

const (
	LengthNone Length = iota
	LengthHH          // hh: char
	LengthH           // h: short
	LengthL           // l: long
	LengthLL          // ll: long long
	LengthJ           // j: intmax_t
	LengthZ           // z: size_t
	LengthT           // t: ptrdiff_t
	LengthBigL        // L: long double
)

// Bits returns the width in bits of an integer read with this modifier.
func (l Length) Bits() int {
	switch l {
	case LengthHH:
		return 8
	case LengthH:
		return 16
	case LengthNone:
		return 32
	}
	return 64
}

// ParseLength reads a length modifier from the start of s and returns it along
// with the number of bytes it occupied.
func ParseLength(s string) (Length, int) {
	if len(s) == 0 {
		return LengthNone, 0
	}
	switch s[0] {
	case 'h':
		if len(s) > 1 && s[1] == 'h' {
			return LengthHH, 2
		}
		return LengthH, 1
	case 'l':
		if len(s) > 1 && s[1] == 'l' {
			return LengthLL, 2
		}
		return LengthL, 1
	case 'j':
		return LengthJ, 1
	case 'z':
		return LengthZ, 1
	case 't':
		return LengthT, 1
	case 'L':
		return LengthBigL, 1
	}
	return LengthNone, 0
}

// Directive is one unit of a format descriptor: either a literal run of bytes
// or a conversion specifier.
type Directive struct {
	// Literal holds the bytes of a literal run. It is empty for conversions.
	Literal string

	// Verb is the conversion letter, zero for literal runs.
	Verb   byte
	Flags  Flags
	Length Length

	// Width is the minimum field width, -1 when absent. WidthArg is set when
	// the width is taken from the argument list ('*').
	Width    int
	WidthArg bool

	// Prec is the precision, -1 when absent. PrecArg is set when the precision
	// is taken from the argument list ('.*').
	Prec    int
	PrecArg bool

	// Offset is the position of the directive in the descriptor.
	Offset int
}

// IsLiteral reports whether the directive is a literal run.
func (d *Directive) IsLiteral() bool {
	return d.Verb == 0
}

// HasPrec reports whether a precision was given, either literally or through
// the argument list.
func (d *Directive) HasPrec() bool {
	return d.Prec >= 0 || d.PrecArg
}

// lexer produces directives from a descriptor in a single left-to-right pass.
type lexer struct {
	s   string
	pos int
}

func isVerb(c byte) bool {
	switch c {
	case 'd', 'i', 'u', 'o', 'x', 'X',
		'f', 'F', 'e', 'E', 'g', 'G', 'a', 'A',
		'c', 's', 'p', 'n', '%':
		return true
	}
	return false
}

// next returns the next directive. ok is false once the descriptor has been
// consumed.
func (l *lexer) next() (d Directive, ok bool, err error) {
	if l.pos >= len(l.s) {
		return d, false, nil
	}
	start := l.pos
	if l.s[start] != '%' {
		end := start
		for end < len(l.s) && l.s[end] != '%' {
			end++
		}
		l.pos = end
		return Directive{Literal: l.s[start:end], Width: -1, Prec: -1, Offset: start}, true, nil
	}

	d = Directive{Width: -1, Prec: -1, Offset: start}
	i := start + 1
	bad := func() (Directive, bool, error) {
		l.pos = len(l.s)
		return d, false, errors.WithDetails(ErrInvalidFormat, "offset", start)
	}

flags:
	for ; i < len(l.s); i++ {
		switch l.s[i] {
		case '-':
			d.Flags |= FlagLeft
		case '+':
			d.Flags |= FlagSign
		case ' ':
			d.Flags |= FlagSpace
		case '#':
			d.Flags |= FlagAlt
		case '0':
			d.Flags |= FlagZero
		default:
			break flags
		}
	}

	if i < len(l.s) && l.s[i] == '*' {
		d.WidthArg = true
		i++
	} else {
		for ; i < len(l.s) && isDigit(l.s[i]); i++ {
			if d.Width < 0 {
				d.Width = 0
			}
			d.Width = d.Width*10 + int(l.s[i]-'0')
		}
	}

	if i < len(l.s) && l.s[i] == '.' {
		i++
		if i < len(l.s) && l.s[i] == '*' {
			d.PrecArg = true
			i++
		} else {
			// A lone '.' is a precision of zero.
			d.Prec = 0
			for ; i < len(l.s) && isDigit(l.s[i]); i++ {
				d.Prec = d.Prec*10 + int(l.s[i]-'0')
			}
		}
	}

	length, n := ParseLength(l.s[i:])
	d.Length = length
	i += n

	if i >= len(l.s) || !isVerb(l.s[i]) {
		return bad()
	}
	d.Verb = l.s[i]
	l.pos = i + 1
	return d, true, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Parse splits a descriptor into its directives. It fails on the first
// malformed specifier.
func Parse(descriptor string) ([]Directive, error) {
	l := lexer{s: descriptor}
	var out []Directive
	for {
		d, ok, err := l.next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, d)
	}
}
