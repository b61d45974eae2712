package format

import (
	"reflect"

	"emperror.dev/errors"
)

var (
	// ErrMissingArgument is returned when a directive needs an argument but the
	// argument list has been exhausted.
	ErrMissingArgument = errors.Sentinel("format: missing argument")
	// ErrArgumentType is returned when an argument cannot be read as the kind
	// of value a directive requires.
	ErrArgumentType = errors.Sentinel("format: argument has the wrong type")
)

// Args is a position-tracked cursor over the arguments of a formatted call.
// Every fetch advances the cursor by exactly one argument.
//
// The descriptor decides how an argument is read, the cursor never guesses.
// An int64 read through "%d" is truncated to 32 bits and a uint8 read through
// "%hhd" is reinterpreted as a signed char, just as the C calling convention
// would. Supplying arguments that match the descriptor is the caller's
// responsibility; only mismatches that Go's types make visible (a missing
// argument, a string where a number is expected) are reported.
type Args struct {
	v []any
	i int
}

// NewArgs returns a cursor positioned at the first of v.
func NewArgs(v ...any) *Args {
	return &Args{v: v}
}

// Pos returns the index of the next argument to be fetched.
func (a *Args) Pos() int {
	return a.i
}

// Remaining returns the number of arguments that have not been fetched.
func (a *Args) Remaining() int {
	return len(a.v) - a.i
}

func (a *Args) next() (any, error) {
	if a.i >= len(a.v) {
		return nil, errors.WithDetails(ErrMissingArgument, "position", a.i)
	}
	v := a.v[a.i]
	a.i++
	return v, nil
}

func (a *Args) mismatch(v any, want string) error {
	return errors.WithDetails(ErrArgumentType, "position", a.i-1, "want", want, "got", reflect.TypeOf(v))
}

// Int fetches a signed integer reduced to the width selected by l.
func (a *Args) Int(l Length) (int64, error) {
	v, err := a.next()
	if err != nil {
		return 0, err
	}
	raw, ok := integer(v)
	if !ok {
		return 0, a.mismatch(v, "integer")
	}
	switch l.Bits() {
	case 8:
		return int64(int8(raw)), nil
	case 16:
		return int64(int16(raw)), nil
	case 32:
		return int64(int32(raw)), nil
	}
	return int64(raw), nil
}

// Uint fetches an unsigned integer reduced to the width selected by l.
func (a *Args) Uint(l Length) (uint64, error) {
	v, err := a.next()
	if err != nil {
		return 0, err
	}
	raw, ok := integer(v)
	if !ok {
		return 0, a.mismatch(v, "integer")
	}
	switch l.Bits() {
	case 8:
		return uint64(uint8(raw)), nil
	case 16:
		return uint64(uint16(raw)), nil
	case 32:
		return uint64(uint32(raw)), nil
	}
	return raw, nil
}

// Float fetches a floating point value.
func (a *Args) Float() (float64, error) {
	v, err := a.next()
	if err != nil {
		return 0, err
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return 0, a.mismatch(v, "float")
}

// Bytes fetches a string argument. A nil argument reports ok as false, the
// equivalent of a NULL string pointer.
func (a *Args) Bytes() (b []byte, ok bool, err error) {
	v, err := a.next()
	if err != nil {
		return nil, false, err
	}
	switch s := v.(type) {
	case nil:
		return nil, false, nil
	case string:
		return []byte(s), true, nil
	case []byte:
		if s == nil {
			return nil, false, nil
		}
		return s, true, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return []byte(rv.String()), true, nil
	}
	return nil, false, a.mismatch(v, "string")
}

// Pointer fetches the address held by a pointer-like argument.
func (a *Args) Pointer() (uintptr, error) {
	v, err := a.next()
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Chan, reflect.Func, reflect.Map, reflect.Slice:
		return rv.Pointer(), nil
	case reflect.Uintptr:
		return uintptr(rv.Uint()), nil
	}
	return 0, a.mismatch(v, "pointer")
}

// Store writes n into the integer the next argument points to, as required by
// the 'n' conversion.
func (a *Args) Store(n int) error {
	v, err := a.next()
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return a.mismatch(v, "integer pointer")
	}
	e := rv.Elem()
	switch e.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		e.SetInt(int64(n))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		e.SetUint(uint64(n))
	default:
		return a.mismatch(v, "integer pointer")
	}
	return nil
}

// integer returns the two's complement bit pattern of any integer kind.
func integer(v any) (uint64, bool) {
	switch n := v.(type) {
	case int:
		return uint64(n), true
	case int64:
		return uint64(n), true
	case int32:
		return uint64(n), true
	case uint64:
		return n, true
	case uint8:
		return uint64(n), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), true
	case reflect.Bool:
		if rv.Bool() {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
