package system

import (
	"testing"

	. "github.com/franela/goblin"
)

func Test_Utils(t *testing.T) {
	g := Goblin(t)

	g.Describe("FormatBytes", func() {
		g.It("keeps small values in bytes", func() {
			g.Assert(FormatBytes(0)).Equal("0 B")
			g.Assert(FormatBytes(int64(1023))).Equal("1023 B")
		})

		g.It("uses binary prefixes", func() {
			g.Assert(FormatBytes(1024)).Equal("1.0 KiB")
			g.Assert(FormatBytes(1536)).Equal("1.5 KiB")
			g.Assert(FormatBytes(uint64(5) << 30)).Equal("5.0 GiB")
		})
	})

	g.Describe("FirstNotEmpty", func() {
		g.It("returns the first value that is set", func() {
			g.Assert(FirstNotEmpty("", "a", "b")).Equal("a")
			g.Assert(FirstNotEmpty("", "")).Equal("")
		})
	})
}
