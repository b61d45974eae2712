package scan

import (
	"io"
	"math"
	"reflect"
	"strconv"

	"emperror.dev/errors"
)

var (
	// ErrSlotType is returned when a slot is not a pointer to a value the
	// conversion can be stored in.
	ErrSlotType = errors.Sentinel("scan: slot has the wrong type")
	// ErrMissingSlot is returned when an assigning conversion runs out of
	// slots.
	ErrMissingSlot = errors.Sentinel("scan: missing slot")
)

type outcome int

const (
	matched outcome = iota
	// inputFailure means the source ran dry (or failed) before the directive
	// was satisfied.
	inputFailure
	// matchingFailure means the input did not fit the directive.
	matchingFailure
)

type scanner struct {
	src   Source
	slots []any
	slot  int
	count int
	// consumed counts the bytes taken from the source, reported by %n.
	consumed int
	// err holds a source failure other than io.EOF.
	err error
	tok []byte
}

// Scan reads from src according to descriptor, storing converted values
// through the pointers in slots. It returns the number of assignments made.
//
// Scanning stops quietly at the first directive the input does not match. If
// the input is exhausted before anything has been assigned, Scan returns -1
// and io.EOF. A malformed descriptor or a slot of the wrong type aborts the
// call with -1. A failing source returns its error along with the count, or
// -1 when nothing was assigned.
func Scan(src Source, descriptor string, slots ...any) (int, error) {
	s := scanner{src: src, slots: slots}
	l := lexer{s: descriptor}
	for {
		d, ok, err := l.next()
		if err != nil {
			return -1, err
		}
		if !ok {
			return s.count, nil
		}
		o, err := s.directive(&d)
		if err != nil {
			return -1, err
		}
		switch o {
		case matchingFailure:
			return s.count, nil
		case inputFailure:
			if s.count == 0 {
				if s.err != nil {
					return -1, s.err
				}
				return -1, io.EOF
			}
			return s.count, s.err
		}
	}
}

func (s *scanner) peek() (byte, bool) {
	c, err := s.src.Peek()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.err = err
		}
		return 0, false
	}
	return c, true
}

func (s *scanner) advance() {
	s.src.Advance()
	s.consumed++
}

func (s *scanner) skipSpace() {
	for {
		c, ok := s.peek()
		if !ok || !isSpace(c) {
			return
		}
		s.advance()
	}
}

// field is a width-bounded view of the source that collects the bytes it
// consumes.
type field struct {
	s    *scanner
	left int
}

func (s *scanner) field(width int) *field {
	if width < 0 {
		width = math.MaxInt
	}
	s.tok = s.tok[:0]
	return &field{s: s, left: width}
}

func (f *field) peek() (byte, bool) {
	if f.left <= 0 {
		return 0, false
	}
	return f.s.peek()
}

func (f *field) take(c byte) {
	f.s.tok = append(f.s.tok, c)
	f.s.advance()
	f.left--
}

func (f *field) accept(fn func(c byte) bool) bool {
	c, ok := f.peek()
	if ok && fn(c) {
		f.take(c)
		return true
	}
	return false
}

func (f *field) acceptFold(lower byte) bool {
	return f.accept(func(c byte) bool { return c|0x20 == lower })
}

func (f *field) sign() {
	f.accept(func(c byte) bool { return c == '+' || c == '-' })
}

func digit(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return 36
}

func (s *scanner) directive(d *Directive) (outcome, error) {
	switch {
	case d.Space:
		s.skipSpace()
		return matched, nil
	case d.Literal != "":
		for i := 0; i < len(d.Literal); i++ {
			c, ok := s.peek()
			if !ok {
				return inputFailure, nil
			}
			if c != d.Literal[i] {
				return matchingFailure, nil
			}
			s.advance()
		}
		return matched, nil
	}

	if d.Verb == 'n' {
		if d.Suppress {
			return matched, nil
		}
		v, err := s.next()
		if err != nil {
			return matched, err
		}
		return matched, setInt(v, uint64(s.consumed), true)
	}
	if d.Verb != 'c' && d.Verb != '[' {
		s.skipSpace()
	}
	if _, ok := s.peek(); !ok {
		return inputFailure, nil
	}

	switch d.Verb {
	case '%':
		if c, _ := s.peek(); c != '%' {
			return matchingFailure, nil
		}
		s.advance()
		return matched, nil
	case 'd':
		return s.integer(d, 10, true)
	case 'i':
		return s.integer(d, 0, true)
	case 'u':
		return s.integer(d, 10, false)
	case 'o':
		return s.integer(d, 8, false)
	case 'x', 'X', 'p':
		return s.integer(d, 16, false)
	case 'f', 'F', 'e', 'E', 'g', 'G', 'a', 'A':
		return s.float(d)
	case 's':
		return s.run(d, func(c byte) bool { return !isSpace(c) })
	case '[':
		return s.run(d, d.Set.Has)
	case 'c':
		return s.chars(d)
	}
	return matched, errors.WithDetails(ErrInvalidFormat, "offset", d.Offset)
}

// integer consumes an optionally signed integer in the given base. A base of
// zero picks the base from the prefix: "0x" for hexadecimal, "0" for octal.
// Values out of range saturate the way strtol and strtoul do.
func (s *scanner) integer(d *Directive, base int, signed bool) (outcome, error) {
	f := s.field(d.Width)
	f.sign()
	neg := len(s.tok) > 0 && s.tok[0] == '-'

	zero := false
	if base == 0 || base == 16 {
		if f.accept(func(c byte) bool { return c == '0' }) {
			zero = true
			if f.acceptFold('x') {
				base = 16
			} else if base == 0 {
				base = 8
			}
		}
	}
	if base == 0 {
		base = 10
	}

	start := len(s.tok)
	for f.accept(func(c byte) bool { return digit(c) < base }) {
	}
	digits := s.tok[start:]
	if len(digits) == 0 && !zero {
		return matchingFailure, nil
	}

	var mag uint64
	if len(digits) > 0 {
		var err error
		if mag, err = strconv.ParseUint(string(digits), base, 64); err != nil {
			mag = math.MaxUint64
		}
	}

	v := mag
	if signed {
		switch {
		case neg && mag > 1<<63:
			v = 1 << 63
		case neg:
			v = -mag
		case mag > math.MaxInt64:
			v = math.MaxInt64
		}
	} else if neg {
		v = -mag
	}

	if d.Suppress {
		return matched, nil
	}
	bits := d.Length.Bits()
	if d.Verb == 'p' {
		bits = 64
	}
	slot, err := s.next()
	if err != nil {
		return matched, err
	}
	if err := setInt(slot, reduce(v, bits, signed), signed); err != nil {
		return matched, err
	}
	s.count++
	return matched, nil
}

// reduce truncates v to the given number of bits, sign extending it for
// signed conversions.
func reduce(v uint64, bits int, signed bool) uint64 {
	switch {
	case bits == 8 && signed:
		return uint64(int64(int8(v)))
	case bits == 8:
		return uint64(uint8(v))
	case bits == 16 && signed:
		return uint64(int64(int16(v)))
	case bits == 16:
		return uint64(uint16(v))
	case bits == 32 && signed:
		return uint64(int64(int32(v)))
	case bits == 32:
		return uint64(uint32(v))
	}
	return v
}

// float consumes a decimal or hexadecimal floating point number, or one of
// "inf", "infinity" and "nan" in any case.
func (s *scanner) float(d *Directive) (outcome, error) {
	f := s.field(d.Width)
	f.sign()
	signLen := len(s.tok)

	nan := false
	c, _ := f.peek()
	switch c | 0x20 {
	case 'i':
		if !f.word("inf") {
			return matchingFailure, nil
		}
		end := len(s.tok)
		if f.word("inity") {
			end = len(s.tok)
		}
		s.tok = s.tok[:end]
	case 'n':
		if !f.word("nan") {
			return matchingFailure, nil
		}
		nan = true
	default:
		if !f.number() {
			return matchingFailure, nil
		}
	}

	v, err := strconv.ParseFloat(string(s.tok), 64)
	if nan {
		v = math.NaN()
	} else if err != nil && !errors.Is(err, strconv.ErrRange) {
		// Only the hexadecimal "0x" with no digits gets here.
		v = 0
		if signLen > 0 && s.tok[0] == '-' {
			v = math.Copysign(0, -1)
		}
	}

	if d.Suppress {
		return matched, nil
	}
	slot, err := s.next()
	if err != nil {
		return matched, err
	}
	switch slot.Kind() {
	case reflect.Float32, reflect.Float64:
		slot.SetFloat(v)
	default:
		return matched, errors.WithDetails(ErrSlotType, "want", "float", "got", slot.Type())
	}
	s.count++
	return matched, nil
}

// word consumes w case-insensitively, reporting whether all of it matched.
func (f *field) word(w string) bool {
	for i := 0; i < len(w); i++ {
		if !f.acceptFold(w[i]) {
			return false
		}
	}
	return true
}

// number consumes the digits, point and exponent of a finite float. An
// exponent marker not followed by digits is dropped from the token.
func (f *field) number() bool {
	hex := false
	n := 0
	if f.accept(func(c byte) bool { return c == '0' }) {
		n++
		if f.acceptFold('x') {
			hex = true
			n = 0
		}
	}
	base, exp := 10, byte('e')
	if hex {
		base, exp = 16, 'p'
	}
	isDigit := func(c byte) bool { return digit(c) < base }

	for f.accept(isDigit) {
		n++
	}
	if f.accept(func(c byte) bool { return c == '.' }) {
		for f.accept(isDigit) {
			n++
		}
	}
	if n == 0 && !hex {
		return false
	}

	mantissa := len(f.s.tok)
	hasExp := false
	if f.acceptFold(exp) {
		f.sign()
		for f.accept(func(c byte) bool { return c >= '0' && c <= '9' }) {
			hasExp = true
		}
		if !hasExp {
			f.s.tok = f.s.tok[:mantissa]
		}
	}
	if hex && !hasExp {
		f.s.tok = append(f.s.tok, 'p', '0')
	}
	return true
}

// run consumes the longest sequence of bytes accepted by fn and stores it as
// a string.
func (s *scanner) run(d *Directive, fn func(c byte) bool) (outcome, error) {
	f := s.field(d.Width)
	for f.accept(fn) {
	}
	if len(s.tok) == 0 {
		return matchingFailure, nil
	}
	return s.storeBytes(d)
}

// chars consumes exactly width bytes, one when no width is given, without
// skipping white space.
func (s *scanner) chars(d *Directive) (outcome, error) {
	n := d.Width
	if n < 0 {
		n = 1
	}
	f := s.field(n)
	for len(s.tok) < n {
		if !f.accept(func(byte) bool { return true }) {
			return inputFailure, nil
		}
	}
	return s.storeBytes(d)
}

func (s *scanner) storeBytes(d *Directive) (outcome, error) {
	if d.Suppress {
		return matched, nil
	}
	slot, err := s.next()
	if err != nil {
		return matched, err
	}
	switch {
	case slot.Kind() == reflect.String:
		slot.SetString(string(s.tok))
	case slot.Kind() == reflect.Slice && slot.Type().Elem().Kind() == reflect.Uint8:
		slot.SetBytes(append([]byte(nil), s.tok...))
	case slot.Kind() == reflect.Uint8 && len(s.tok) == 1:
		slot.SetUint(uint64(s.tok[0]))
	default:
		return matched, errors.WithDetails(ErrSlotType, "want", "string", "got", slot.Type())
	}
	s.count++
	return matched, nil
}

// next returns the value the next slot points to.
func (s *scanner) next() (reflect.Value, error) {
	if s.slot >= len(s.slots) {
		return reflect.Value{}, errors.WithDetails(ErrMissingSlot, "position", s.slot)
	}
	v := s.slots[s.slot]
	s.slot++
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, errors.WithDetails(ErrSlotType, "position", s.slot-1, "got", reflect.TypeOf(v))
	}
	return rv.Elem(), nil
}

func setInt(v reflect.Value, n uint64, signed bool) error {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(int64(n))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v.SetUint(n)
	default:
		return errors.WithDetails(ErrSlotType, "want", "integer", "got", v.Type(), "signed", signed)
	}
	return nil
}
