package scan

import (
	"emperror.dev/errors"

	"github.com/ghostkernel/ghostio/format"
)

// ErrInvalidFormat is returned for a scan descriptor with an unknown
// conversion, an unterminated scan set or a specifier cut off by the end of the
// descriptor.
var ErrInvalidFormat = errors.Sentinel("scan: invalid conversion specifier")

// Set is a scan set, the collection of bytes accepted by a "%[...]"
// conversion.
type Set [4]uint64

// Has reports whether c is a member of the set.
func (s *Set) Has(c byte) bool {
	return s[c>>6]&(1<<(c&63)) != 0
}

func (s *Set) add(c byte) {
	s[c>>6] |= 1 << (c & 63)
}

func (s *Set) invert() {
	for i := range s {
		s[i] = ^s[i]
	}
}

// Directive is one unit of a scan descriptor: a literal run that must match
// the input exactly, a run of white space that skips any amount of input white
// space, or a conversion.
type Directive struct {
	Literal string
	Space   bool

	Verb     byte
	Suppress bool
	// Width is the maximum number of bytes the conversion consumes, -1 when
	// absent.
	Width  int
	Length format.Length
	Set    *Set

	Offset int
}

// Assigns reports whether the directive consumes a slot.
func (d *Directive) Assigns() bool {
	return d.Verb != 0 && d.Verb != '%' && !d.Suppress
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isVerb(c byte) bool {
	switch c {
	case 'd', 'i', 'u', 'o', 'x', 'X',
		'f', 'F', 'e', 'E', 'g', 'G', 'a', 'A',
		'c', 's', 'p', 'n', '[', '%':
		return true
	}
	return false
}

type lexer struct {
	s   string
	pos int
}

func (l *lexer) next() (d Directive, ok bool, err error) {
	if l.pos >= len(l.s) {
		return d, false, nil
	}
	start := l.pos
	d = Directive{Width: -1, Offset: start}

	switch c := l.s[start]; {
	case isSpace(c):
		for l.pos < len(l.s) && isSpace(l.s[l.pos]) {
			l.pos++
		}
		d.Space = true
		return d, true, nil
	case c != '%':
		for l.pos < len(l.s) && l.s[l.pos] != '%' && !isSpace(l.s[l.pos]) {
			l.pos++
		}
		d.Literal = l.s[start:l.pos]
		return d, true, nil
	}

	bad := func() (Directive, bool, error) {
		l.pos = len(l.s)
		return Directive{}, false, errors.WithDetails(ErrInvalidFormat, "offset", start)
	}

	i := start + 1
	if i < len(l.s) && l.s[i] == '*' {
		d.Suppress = true
		i++
	}
	for ; i < len(l.s) && l.s[i] >= '0' && l.s[i] <= '9'; i++ {
		if d.Width < 0 {
			d.Width = 0
		}
		d.Width = d.Width*10 + int(l.s[i]-'0')
	}
	if d.Width == 0 {
		d.Width = -1
	}
	length, n := format.ParseLength(l.s[i:])
	d.Length = length
	i += n

	if i >= len(l.s) || !isVerb(l.s[i]) {
		return bad()
	}
	d.Verb = l.s[i]
	i++

	if d.Verb == '[' {
		set, end, ok := parseSet(l.s, i)
		if !ok {
			return bad()
		}
		d.Set = set
		i = end
	}
	l.pos = i
	return d, true, nil
}

// parseSet reads the body of a scan set starting just past the '['. A ']'
// directly after the opening bracket (or after '^') is a member, and a '-'
// between two members denotes a range.
func parseSet(s string, i int) (*Set, int, bool) {
	var set Set
	negate := false
	if i < len(s) && s[i] == '^' {
		negate = true
		i++
	}
	if i < len(s) && s[i] == ']' {
		set.add(']')
		i++
	}
	for ; i < len(s) && s[i] != ']'; i++ {
		c := s[i]
		if c == '-' && i > 0 && i+1 < len(s) && s[i+1] != ']' && s[i-1] != '[' && s[i-1] != '^' {
			lo, hi := s[i-1], s[i+1]
			for b := int(lo); b <= int(hi); b++ {
				set.add(byte(b))
			}
			i++
			continue
		}
		set.add(c)
	}
	if i >= len(s) {
		return nil, 0, false
	}
	if negate {
		set.invert()
	}
	return &set, i + 1, true
}

// Parse splits a scan descriptor into its directives.
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

// Conversions returns the directives of descriptor that consume a slot, in the
// order the slots must be supplied.
func Conversions(descriptor string) ([]Directive, error) {
	all, err := Parse(descriptor)
	if err != nil {
		return nil, err
	}
	var out []Directive
	for _, d := range all {
		if d.Assigns() {
			out = append(out, d)
		}
	}
	return out, nil
}
