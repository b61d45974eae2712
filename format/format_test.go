package format

import (
	"math"
	"testing"

	. "github.com/franela/goblin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emperror.dev/errors"
)

func sprintf(t *testing.T, descriptor string, args ...any) string {
	t.Helper()
	var s GrowSink
	n, err := Fprintf(&s, descriptor, args...)
	require.NoError(t, err)
	require.Equal(t, len(s.Bytes()), n)
	return s.String()
}

func TestFormat_Conversions(t *testing.T) {
	cases := []struct {
		descriptor string
		args       []any
		want       string
	}{
		{"%d", []any{42}, "42"},
		{"%i", []any{-7}, "-7"},
		{"%5d", []any{42}, "   42"},
		{"%-5d|", []any{42}, "42   |"},
		{"%05d", []any{-42}, "-0042"},
		{"%+d", []any{5}, "+5"},
		{"% d", []any{5}, " 5"},
		{"%.3d", []any{7}, "007"},
		{"%08.3d", []any{7}, "     007"},
		{"[%.0d]", []any{0}, "[]"},
		{"%x", []any{255}, "ff"},
		{"%#X", []any{255}, "0XFF"},
		{"%#x", []any{0}, "0"},
		{"%#o", []any{8}, "010"},
		{"%#.0o", []any{0}, "0"},
		{"%hhd", []any{255}, "-1"},
		{"%hu", []any{70000}, "4464"},
		{"%u", []any{-1}, "4294967295"},
		{"%d", []any{int64(1<<32 + 3)}, "3"},
		{"%lld", []any{int64(-5000000000)}, "-5000000000"},
		{"%llu", []any{uint64(math.MaxUint64)}, "18446744073709551615"},
		{"%*d", []any{5, 42}, "   42"},
		{"%*d|", []any{-5, 42}, "42   |"},
		{"%.*d", []any{-1, 0}, "0"},
		{"%f", []any{3.14159}, "3.141590"},
		{"%.2f", []any{3.14159}, "3.14"},
		{"%#.0f", []any{3.0}, "3."},
		{"%010.3f", []any{-3.14159}, "-00003.142"},
		{"%-8.3f|", []any{3.14159}, "3.142   |"},
		{"%+.1f", []any{float32(2.5)}, "+2.5"},
		{"%e", []any{123456.0}, "1.234560e+05"},
		{"%E", []any{0.000123}, "1.230000E-04"},
		{"%#.0e", []any{3.0}, "3.e+00"},
		{"%g", []any{100000.0}, "100000"},
		{"%g", []any{1000000.0}, "1e+06"},
		{"%g", []any{0.0001}, "0.0001"},
		{"%g", []any{0.00001}, "1e-05"},
		{"%g", []any{3.14159}, "3.14159"},
		{"%.3g", []any{3.14159}, "3.14"},
		{"%#g", []any{1.0}, "1.00000"},
		{"%g", []any{0.0}, "0"},
		{"%G", []any{1e-10}, "1E-10"},
		{"%a", []any{1.0}, "0x1p+0"},
		{"%A", []any{1.5}, "0X1.8P+0"},
		{"%a", []any{0.5}, "0x1p-1"},
		{"%f", []any{math.Inf(1)}, "inf"},
		{"%F", []any{math.NaN()}, "NAN"},
		{"%05f", []any{math.Inf(-1)}, " -inf"},
		{"%f", []any{math.Copysign(0, -1)}, "-0.000000"},
		{"%s", []any{"hi"}, "hi"},
		{"%5s", []any{"hi"}, "   hi"},
		{"%-5s|", []any{"hi"}, "hi   |"},
		{"%.2s", []any{"hello"}, "he"},
		{"%s", []any{[]byte("raw")}, "raw"},
		{"%s", []any{nil}, "(null)"},
		{"%.3s|", []any{nil}, "|"},
		{"%5.2s|", []any{nil}, "     |"},
		{"%.6s", []any{nil}, "(null)"},
		{"%c", []any{'A'}, "A"},
		{"%3c", []any{'x'}, "  x"},
		{"%p", []any{nil}, "(nil)"},
		{"%p", []any{uintptr(0x1000)}, "0x1000"},
		{"100%%", nil, "100%"},
		{"plain text", nil, "plain text"},
		{"%s=%d;", []any{"a", 1}, "a=1;"},
	}

	for _, tc := range cases {
		t.Run(tc.descriptor, func(t *testing.T) {
			assert.Equal(t, tc.want, sprintf(t, tc.descriptor, tc.args...))
		})
	}
}

func TestFormat(t *testing.T) {
	g := Goblin(t)

	g.Describe("Format", func() {
		g.It("stores the count emitted so far for %n", func() {
			var s GrowSink
			var n int
			var h int16

			c, err := Fprintf(&s, "abc%nde%hn!", &n, &h)
			g.Assert(err).IsNil()
			g.Assert(c).Equal(6)
			g.Assert(n).Equal(3)
			g.Assert(h).Equal(int16(5))
		})

		g.It("aborts on an unknown conversion after emitting the prefix", func() {
			var s GrowSink

			n, err := Fprintf(&s, "abc%y", 1)
			g.Assert(n).Equal(-1)
			g.Assert(errors.Is(err, ErrInvalidFormat)).IsTrue()
			g.Assert(s.String()).Equal("abc")
		})

		g.It("aborts on a specifier truncated at the end", func() {
			var s GrowSink

			n, err := Fprintf(&s, "value: %-08.", 1)
			g.Assert(n).Equal(-1)
			g.Assert(errors.Is(err, ErrInvalidFormat)).IsTrue()
			g.Assert(s.String()).Equal("value: ")
		})

		g.It("reports missing and mistyped arguments", func() {
			var s GrowSink

			_, err := Fprintf(&s, "%d %d", 1)
			g.Assert(errors.Is(err, ErrMissingArgument)).IsTrue()

			_, err = Fprintf(&s, "%d", "one")
			g.Assert(errors.Is(err, ErrArgumentType)).IsTrue()

			_, err = Fprintf(&s, "%f", 1)
			g.Assert(errors.Is(err, ErrArgumentType)).IsTrue()
		})

		g.It("retries sinks that accept partially", func() {
			var out []byte
			sink := SinkFunc(func(p []byte) (int, error) {
				out = append(out, p[0])
				return 1, nil
			})

			n, err := Fprintf(sink, "%5s|%d", "ab", 123)
			g.Assert(err).IsNil()
			g.Assert(n).Equal(9)
			g.Assert(string(out)).Equal("   ab|123")
		})

		g.It("fails when the sink stops accepting", func() {
			accepted := 0
			sink := SinkFunc(func(p []byte) (int, error) {
				if accepted >= 4 {
					return 0, nil
				}
				accepted += len(p)
				return len(p), nil
			})

			n, err := Fprintf(sink, "%s %s", "abcd", "efgh")
			g.Assert(n).Equal(-1)
			g.Assert(errors.Is(err, ErrSinkFailed)).IsTrue()
		})

		g.It("passes sink errors through", func() {
			boom := errors.New("boom")
			sink := SinkFunc(func(p []byte) (int, error) {
				return 0, boom
			})

			n, err := Fprintf(sink, "x")
			g.Assert(n).Equal(-1)
			g.Assert(errors.Is(err, boom)).IsTrue()
		})
	})

	g.Describe("BufferSink", func() {
		g.It("truncates but reports the full logical length", func() {
			buf := make([]byte, 8)
			s := NewBufferSink(buf)

			n, err := Fprintf(s, "%s", "hello world")
			g.Assert(err).IsNil()
			g.Assert(n).Equal(11)
			g.Assert(s.Len()).Equal(11)
			g.Assert(s.Truncated()).IsTrue()
			g.Assert(string(s.Bytes())).Equal("hello w")
			g.Assert(buf[7]).Equal(byte(0))
		})

		g.It("terminates output that fits", func() {
			buf := []byte("xxxxxxxx")
			s := NewBufferSink(buf)

			n, err := Fprintf(s, "%d", 42)
			g.Assert(err).IsNil()
			g.Assert(n).Equal(2)
			g.Assert(s.Truncated()).IsFalse()
			g.Assert(string(buf[:3])).Equal("42\x00")
		})

		g.It("only counts when it has no capacity", func() {
			s := NewBufferSink(nil)

			n, err := Fprintf(s, "%s", "abc")
			g.Assert(err).IsNil()
			g.Assert(n).Equal(3)
			g.Assert(len(s.Bytes())).Equal(0)
			g.Assert(s.Truncated()).IsTrue()
		})
	})
}

func TestParse(t *testing.T) {
	g := Goblin(t)

	g.Describe("Parse", func() {
		g.It("splits literals and conversions", func() {
			d, err := Parse("x=%-08.3lld%%|%*.*s")
			g.Assert(err).IsNil()
			g.Assert(len(d)).Equal(5)

			g.Assert(d[0].Literal).Equal("x=")
			g.Assert(d[1].Verb).Equal(byte('d'))
			g.Assert(d[1].Flags.Has(FlagLeft | FlagZero)).IsTrue()
			g.Assert(d[1].Width).Equal(8)
			g.Assert(d[1].Prec).Equal(3)
			g.Assert(d[1].Length).Equal(LengthLL)
			g.Assert(d[2].Verb).Equal(byte('%'))
			g.Assert(d[3].Literal).Equal("|")
			g.Assert(d[4].WidthArg).IsTrue()
			g.Assert(d[4].PrecArg).IsTrue()
			g.Assert(d[4].Offset).Equal(14)
		})

		g.It("treats a lone point as a zero precision", func() {
			d, err := Parse("%.f")
			g.Assert(err).IsNil()
			g.Assert(d[0].Prec).Equal(0)
			g.Assert(d[0].HasPrec()).IsTrue()
		})

		g.It("rejects unknown conversion letters", func() {
			_, err := Parse("ok %q")
			g.Assert(errors.Is(err, ErrInvalidFormat)).IsTrue()
		})
	})
}
