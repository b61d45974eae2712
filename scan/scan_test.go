package scan

import (
	"bufio"
	"io"
	"math"
	"strings"
	"testing"

	. "github.com/franela/goblin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emperror.dev/errors"
)

func sscanf(input, descriptor string, slots ...any) (int, error) {
	return Scan(NewStringSource(input), descriptor, slots...)
}

func TestScan(t *testing.T) {
	g := Goblin(t)

	g.Describe("Scan", func() {
		g.It("assigns both values of a matching pair", func() {
			var a, b int
			n, err := sscanf("12,34", "%d,%d", &a, &b)
			g.Assert(err).IsNil()
			g.Assert(n).Equal(2)
			g.Assert(a).Equal(12)
			g.Assert(b).Equal(34)
		})

		g.It("stops quietly at a literal mismatch", func() {
			var a, b int
			n, err := sscanf("12-34", "%d,%d", &a, &b)
			g.Assert(err).IsNil()
			g.Assert(n).Equal(1)
			g.Assert(a).Equal(12)
			g.Assert(b).Equal(0)
		})

		g.It("returns EOF when input ends before the first conversion", func() {
			var a int
			n, err := sscanf("   ", "%d", &a)
			g.Assert(n).Equal(-1)
			g.Assert(err).Equal(io.EOF)
		})

		g.It("returns zero when the first conversion does not match", func() {
			var a int
			n, err := sscanf("abc", "%d", &a)
			g.Assert(err).IsNil()
			g.Assert(n).Equal(0)
		})

		g.It("returns the count when input ends after a conversion", func() {
			var a, b int
			n, err := sscanf("7", "%d %d", &a, &b)
			g.Assert(err).IsNil()
			g.Assert(n).Equal(1)
		})

		g.It("skips any amount of white space for a single space", func() {
			var a, b int
			n, _ := sscanf("1 \t\n 2", "%d %d", &a, &b)
			g.Assert(n).Equal(2)
			g.Assert(b).Equal(2)

			var s string
			n, _ = sscanf("x=  word", "x= %s", &s)
			g.Assert(n).Equal(1)
			g.Assert(s).Equal("word")
		})

		g.It("does not count suppressed conversions", func() {
			var b int
			n, err := sscanf("10 20", "%*d %d", &b)
			g.Assert(err).IsNil()
			g.Assert(n).Equal(1)
			g.Assert(b).Equal(20)
		})

		g.It("honors field widths", func() {
			var a, b int
			n, _ := sscanf("12345", "%2d%3d", &a, &b)
			g.Assert(n).Equal(2)
			g.Assert(a).Equal(12)
			g.Assert(b).Equal(345)
		})

		g.It("reads characters without skipping white space", func() {
			var c byte
			var buf []byte
			n, _ := sscanf(" xyz", "%c%2c", &c, &buf)
			g.Assert(n).Equal(2)
			g.Assert(c).Equal(byte(' '))
			g.Assert(string(buf)).Equal("xy")
		})

		g.It("matches scan sets", func() {
			var word, rest string
			n, _ := sscanf("abc123;tail", "%[a-z]%[^;]", &word, &rest)
			g.Assert(n).Equal(2)
			g.Assert(word).Equal("abc")
			g.Assert(rest).Equal("123")

			n, _ = sscanf("]]x", "%[]]", &word)
			g.Assert(n).Equal(1)
			g.Assert(word).Equal("]]")

			n, _ = sscanf("123", "%[a-z]", &word)
			g.Assert(n).Equal(0)
		})

		g.It("reports bytes consumed with %n", func() {
			var a, pos int
			n, _ := sscanf("  42 rest", "%d%n", &a, &pos)
			g.Assert(n).Equal(1)
			g.Assert(pos).Equal(4)
		})

		g.It("matches a literal percent", func() {
			var a int
			n, _ := sscanf("50 %", "%d %%", &a)
			g.Assert(n).Equal(1)
			g.Assert(a).Equal(50)
		})

		g.It("rejects malformed descriptors", func() {
			var a int
			n, err := sscanf("1", "%q", &a)
			g.Assert(n).Equal(-1)
			g.Assert(errors.Is(err, ErrInvalidFormat)).IsTrue()

			_, err = sscanf("abc", "%[abc", &a)
			g.Assert(errors.Is(err, ErrInvalidFormat)).IsTrue()
		})

		g.It("rejects slots of the wrong type", func() {
			var s string
			n, err := sscanf("1", "%d", &s)
			g.Assert(n).Equal(-1)
			g.Assert(errors.Is(err, ErrSlotType)).IsTrue()

			var a int
			_, err = sscanf("1", "%d", a)
			g.Assert(errors.Is(err, ErrSlotType)).IsTrue()

			_, err = sscanf("1 2", "%d %d", &a)
			g.Assert(errors.Is(err, ErrMissingSlot)).IsTrue()
		})

		g.It("passes source errors through with the count", func() {
			boom := errors.New("boom")
			r := io.MultiReader(strings.NewReader("5 "), iotestErr{boom})
			var a, b int

			n, err := Scan(NewReaderSource(bufio.NewReader(r)), "%d %d", &a, &b)
			g.Assert(n).Equal(1)
			g.Assert(errors.Is(err, boom)).IsTrue()
		})

		g.It("leaves the unconsumed byte pending in a reader source", func() {
			src := NewReaderSource(strings.NewReader("42x"))
			var a int

			n, _ := Scan(src, "%d", &a)
			g.Assert(n).Equal(1)
			c, ok := src.Pending()
			g.Assert(ok).IsTrue()
			g.Assert(c).Equal(byte('x'))
		})
	})
}

type iotestErr struct{ err error }

func (r iotestErr) Read([]byte) (int, error) { return 0, r.err }

func TestScan_Integers(t *testing.T) {
	cases := []struct {
		input, descriptor string
		want              int64
	}{
		{"42", "%d", 42},
		{"-42", "%d", -42},
		{"+7", "%d", 7},
		{"0x1f", "%i", 31},
		{"017", "%i", 15},
		{"-0x10", "%i", -16},
		{"08", "%i", 0},
		{"ff", "%x", 255},
		{"0XFF", "%X", 255},
		{"0x", "%x", 0},
		{"777", "%o", 511},
		{"300", "%hhd", 44},
		{"-1", "%hhu", 255},
		{"70000", "%hd", 4464},
		{"99999999999999999999", "%lld", math.MaxInt64},
		{"-99999999999999999999", "%lld", math.MinInt64},
		{"4294967296", "%d", 0},
	}

	for _, tc := range cases {
		t.Run(tc.input+" "+tc.descriptor, func(t *testing.T) {
			var v int64
			n, err := sscanf(tc.input, tc.descriptor, &v)
			require.NoError(t, err)
			require.Equal(t, 1, n)
			assert.Equal(t, tc.want, v)
		})
	}

	t.Run("unsigned negation wraps", func(t *testing.T) {
		var v uint64
		n, err := sscanf("-1", "%llu", &v)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		assert.Equal(t, uint64(math.MaxUint64), v)
	})

	t.Run("pointers", func(t *testing.T) {
		var p uintptr
		n, err := sscanf("0xdeadbeef", "%p", &p)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		assert.Equal(t, uintptr(0xdeadbeef), p)
	})
}

func TestScan_Floats(t *testing.T) {
	cases := []struct {
		input string
		want  float64
	}{
		{"3.25", 3.25},
		{"-1e3", -1000},
		{".5", 0.5},
		{"2.", 2},
		{"1e", 1},
		{"0x1.8p3", 12},
		{"0x10", 16},
		{"inf", math.Inf(1)},
		{"-Infinity", math.Inf(-1)},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			var v float64
			n, err := sscanf(tc.input, "%lf", &v)
			require.NoError(t, err)
			require.Equal(t, 1, n)
			assert.Equal(t, tc.want, v)
		})
	}

	t.Run("nan", func(t *testing.T) {
		var v float32
		n, err := sscanf("+NaN", "%f", &v)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		assert.True(t, math.IsNaN(float64(v)))
	})

	t.Run("exponent marker without digits is dropped", func(t *testing.T) {
		var v float64
		var rest string
		n, err := sscanf("1e+x", "%lf%s", &v, &rest)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		assert.Equal(t, 1.0, v)
		assert.Equal(t, "x", rest)
	})
}

func TestConversions(t *testing.T) {
	d, err := Conversions("%d %*s %% %[a-c] %n")
	require.NoError(t, err)
	require.Len(t, d, 3)
	assert.Equal(t, byte('d'), d[0].Verb)
	assert.Equal(t, byte('['), d[1].Verb)
	assert.True(t, d[1].Set.Has('b'))
	assert.False(t, d[1].Set.Has('d'))
	assert.Equal(t, byte('n'), d[2].Verb)
}
