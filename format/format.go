package format

import (
	"bytes"
	"math"
	"strconv"

	"emperror.dev/errors"
)

var (
	spaces = bytes.Repeat([]byte{' '}, 32)
	zeros  = bytes.Repeat([]byte{'0'}, 32)
)

// printer carries the state of one formatted call.
type printer struct {
	sink Sink
	args *Args
	// n is the number of bytes the sink has accepted so far.
	n   int
	buf [72]byte
}

// Format interprets descriptor against args and delivers the output to sink.
// It returns the number of bytes emitted. On any failure, whether a malformed
// descriptor, a missing or mistyped argument or a sink that stops accepting,
// the call is aborted and -1 is returned along with the cause. Output emitted
// before the failure has already been delivered and is not taken back.
func Format(sink Sink, descriptor string, args *Args) (int, error) {
	p := printer{sink: sink, args: args}
	l := lexer{s: descriptor}
	for {
		d, ok, err := l.next()
		if err != nil {
			return -1, err
		}
		if !ok {
			return p.n, nil
		}
		if err := p.directive(&d); err != nil {
			return -1, err
		}
	}
}

// Fprintf formats args according to descriptor into sink.
func Fprintf(sink Sink, descriptor string, args ...any) (int, error) {
	return Format(sink, descriptor, NewArgs(args...))
}

// emit delivers b to the sink, retrying partial accepts.
func (p *printer) emit(b []byte) error {
	for len(b) > 0 {
		n, err := p.sink.Accept(b)
		if n > 0 {
			p.n += n
			b = b[n:]
		}
		if err != nil {
			return errors.WithStack(err)
		}
		if n <= 0 {
			return errors.WithDetails(ErrSinkFailed, "emitted", p.n)
		}
	}
	return nil
}

func (p *printer) repeat(fill []byte, n int) error {
	for n > 0 {
		k := min(n, len(fill))
		if err := p.emit(fill[:k]); err != nil {
			return err
		}
		n -= k
	}
	return nil
}

// field writes prefix, then z zeros, then body, padded with spaces to width on
// the side the flags select.
func (p *printer) field(d *Directive, prefix string, z int, body []byte) error {
	pad := d.Width - len(prefix) - z - len(body)
	if !d.Flags.Has(FlagLeft) {
		if err := p.repeat(spaces, pad); err != nil {
			return err
		}
	}
	if err := p.emit([]byte(prefix)); err != nil {
		return err
	}
	if err := p.repeat(zeros, z); err != nil {
		return err
	}
	if err := p.emit(body); err != nil {
		return err
	}
	if d.Flags.Has(FlagLeft) {
		return p.repeat(spaces, pad)
	}
	return nil
}

// resolve fetches '*' width and precision from the argument list. A negative
// width argument means left justification, a negative precision argument
// means no precision at all.
func (p *printer) resolve(d *Directive) error {
	if d.WidthArg {
		w, err := p.args.Int(LengthNone)
		if err != nil {
			return err
		}
		if w < 0 {
			d.Flags |= FlagLeft
			w = -w
		}
		d.Width = int(w)
	}
	if d.PrecArg {
		v, err := p.args.Int(LengthNone)
		if err != nil {
			return err
		}
		d.Prec = -1
		if v >= 0 {
			d.Prec = int(v)
		}
	}
	return nil
}

func (p *printer) directive(d *Directive) error {
	if d.IsLiteral() {
		return p.emit([]byte(d.Literal))
	}
	if err := p.resolve(d); err != nil {
		return err
	}
	switch d.Verb {
	case '%':
		return p.emit([]byte{'%'})
	case 'd', 'i':
		v, err := p.args.Int(d.Length)
		if err != nil {
			return err
		}
		u := uint64(v)
		if v < 0 {
			u = -u
		}
		return p.integer(d, v < 0, true, u, 10)
	case 'u':
		v, err := p.args.Uint(d.Length)
		if err != nil {
			return err
		}
		return p.integer(d, false, false, v, 10)
	case 'o':
		v, err := p.args.Uint(d.Length)
		if err != nil {
			return err
		}
		return p.integer(d, false, false, v, 8)
	case 'x', 'X':
		v, err := p.args.Uint(d.Length)
		if err != nil {
			return err
		}
		return p.integer(d, false, false, v, 16)
	case 'f', 'F', 'e', 'E', 'g', 'G', 'a', 'A':
		v, err := p.args.Float()
		if err != nil {
			return err
		}
		return p.float(d, v)
	case 'c':
		v, err := p.args.Int(LengthNone)
		if err != nil {
			return err
		}
		return p.field(d, "", 0, []byte{byte(v)})
	case 's':
		b, ok, err := p.args.Bytes()
		if err != nil {
			return err
		}
		if !ok {
			b = []byte("(null)")
			if d.Prec >= 0 && d.Prec < len(b) {
				// A cut down "(null)" would read as data.
				b = nil
			}
		}
		if d.Prec >= 0 && d.Prec < len(b) {
			b = b[:d.Prec]
		}
		return p.field(d, "", 0, b)
	case 'p':
		v, err := p.args.Pointer()
		if err != nil {
			return err
		}
		if v == 0 {
			return p.field(d, "", 0, []byte("(nil)"))
		}
		return p.field(d, "0x", 0, strconv.AppendUint(p.buf[:0], uint64(v), 16))
	case 'n':
		return p.args.Store(p.n)
	}
	return errors.WithDetails(ErrInvalidFormat, "offset", d.Offset)
}

// sign returns the sign prefix for a signed conversion.
func sign(d *Directive, neg bool) string {
	switch {
	case neg:
		return "-"
	case d.Flags.Has(FlagSign):
		return "+"
	case d.Flags.Has(FlagSpace):
		return " "
	}
	return ""
}

func (p *printer) integer(d *Directive, neg, signed bool, u uint64, base int) error {
	digits := strconv.AppendUint(p.buf[:0], u, base)
	if d.Prec == 0 && u == 0 {
		digits = digits[:0]
	}
	if d.Verb == 'X' {
		digits = bytes.ToUpper(digits)
	}

	var prefix string
	if signed {
		prefix = sign(d, neg)
	}
	if d.Flags.Has(FlagAlt) && base == 16 && u != 0 {
		if d.Verb == 'X' {
			prefix = "0X"
		} else {
			prefix = "0x"
		}
	}

	z := max(d.Prec-len(digits), 0)
	// The alternate octal form raises the precision just enough to lead with
	// a zero.
	if d.Flags.Has(FlagAlt) && base == 8 && z == 0 && (len(digits) == 0 || digits[0] != '0') {
		z = 1
	}
	if d.Flags.Has(FlagZero) && !d.Flags.Has(FlagLeft) && d.Prec < 0 {
		z = max(z, d.Width-len(prefix)-len(digits))
	}
	return p.field(d, prefix, z, digits)
}

func isUpper(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

func (p *printer) float(d *Directive, f float64) error {
	neg := math.Signbit(f)
	if neg {
		f = -f
	}
	prefix := sign(d, neg)
	upper := isUpper(d.Verb)

	if math.IsInf(f, 0) || math.IsNaN(f) {
		s := "inf"
		if math.IsNaN(f) {
			s = "nan"
		}
		b := []byte(s)
		if upper {
			b = bytes.ToUpper(b)
		}
		return p.field(d, prefix, 0, b)
	}

	alt := d.Flags.Has(FlagAlt)
	prec := d.Prec
	if prec < 0 {
		prec = 6
	}

	var body []byte
	switch d.Verb | 0x20 {
	case 'f':
		body = strconv.AppendFloat(p.buf[:0], f, 'f', prec, 64)
		if alt && prec == 0 {
			body = append(body, '.')
		}
	case 'e':
		body = strconv.AppendFloat(p.buf[:0], f, 'e', prec, 64)
		if alt && prec == 0 {
			body = insertPoint(body, 'e')
		}
	case 'g':
		body = shortest(p.buf[:0], f, prec, alt)
	case 'a':
		prec = d.Prec
		body = strconv.AppendFloat(p.buf[:0], f, 'x', prec, 64)
		body = trimExponent(body[2:])
		if alt && !bytes.ContainsRune(body, '.') {
			body = insertPoint(body, 'p')
		}
		if upper {
			prefix += "0X"
		} else {
			prefix += "0x"
		}
	}
	if upper {
		body = bytes.ToUpper(body)
	}

	z := 0
	if d.Flags.Has(FlagZero) && !d.Flags.Has(FlagLeft) {
		z = max(d.Width-len(prefix)-len(body), 0)
	}
	return p.field(d, prefix, z, body)
}

// shortest renders f the way %g does: prec significant digits, in fixed
// notation when the decimal exponent X satisfies -4 <= X < prec and in
// scientific notation otherwise.
func shortest(dst []byte, f float64, prec int, alt bool) []byte {
	if prec == 0 {
		prec = 1
	}
	x := 0
	if f != 0 {
		e := strconv.AppendFloat(dst, f, 'e', prec-1, 64)
		i := bytes.IndexByte(e, 'e')
		x, _ = strconv.Atoi(string(e[i+1:]))
	}

	var body []byte
	if x >= -4 && x < prec {
		body = strconv.AppendFloat(dst, f, 'f', prec-1-x, 64)
	} else {
		body = strconv.AppendFloat(dst, f, 'e', prec-1, 64)
	}

	if alt {
		if !bytes.ContainsRune(body, '.') {
			body = insertPoint(body, 'e')
		}
		return body
	}
	return trimZeros(body)
}

// trimZeros removes trailing zeros from the fraction of a rendered number, and
// the decimal point itself if nothing is left after it.
func trimZeros(b []byte) []byte {
	dot := bytes.IndexByte(b, '.')
	if dot < 0 {
		return b
	}
	end := bytes.IndexByte(b, 'e')
	if end < 0 {
		end = len(b)
	}
	i := end
	for i > dot+1 && b[i-1] == '0' {
		i--
	}
	if i == dot+1 {
		i = dot
	}
	return append(b[:i], b[end:]...)
}

// insertPoint adds a decimal point in front of the exponent marker, or at the
// end when there is none.
func insertPoint(b []byte, marker byte) []byte {
	i := bytes.IndexByte(b, marker)
	if i < 0 {
		return append(b, '.')
	}
	b = append(b, 0)
	copy(b[i+1:], b[i:])
	b[i] = '.'
	return b
}

// trimExponent strips leading zeros from a binary exponent so that "p+03"
// becomes "p+3".
func trimExponent(b []byte) []byte {
	i := bytes.IndexByte(b, 'p')
	if i < 0 || i+2 >= len(b) {
		return b
	}
	start := i + 2
	j := start
	for j < len(b)-1 && b[j] == '0' {
		j++
	}
	return append(b[:start], b[j:]...)
}
