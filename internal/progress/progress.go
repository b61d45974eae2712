package progress

import (
	"io"
	"strings"
	"sync/atomic"

	"github.com/ghostkernel/ghostio/system"
)

// Meter counts the bytes copied through it on their way to Writer and renders
// how far along a copy of known size is.
type Meter struct {
	copied atomic.Uint64
	size   atomic.Uint64

	// Writer receives the bytes. A nil Writer only counts.
	Writer io.Writer
}

// NewMeter returns a meter for a copy of size bytes writing to w.
func NewMeter(w io.Writer, size uint64) *Meter {
	m := &Meter{Writer: w}
	m.size.Store(size)
	return m
}

// Copied returns the number of bytes that went through the meter.
func (m *Meter) Copied() uint64 {
	return m.copied.Load()
}

// Size returns the expected size of the copy.
func (m *Meter) Size() uint64 {
	return m.size.Load()
}

// SetSize changes the expected size of the copy.
func (m *Meter) SetSize(size uint64) {
	m.size.Store(size)
}

// Write passes v on to the writer, counting the bytes it accepted.
func (m *Meter) Write(v []byte) (int, error) {
	n := len(v)
	var err error
	if m.Writer != nil {
		n, err = m.Writer.Write(v)
	}
	m.copied.Add(uint64(n))
	return n, err
}

// Bar renders the progress as a bar of width ticks followed by the copied and
// expected sizes. A copy of unknown (zero) size shows a full bar.
func (m *Meter) Bar(width int) string {
	copied, size := m.Copied(), m.Size()
	ticks := width
	if size > 0 {
		ticks = int(float64(copied) / float64(size) * float64(width))
	}
	ticks = min(max(ticks, 0), width)
	return "[" + strings.Repeat("=", ticks) + strings.Repeat(" ", width-ticks) + "] " +
		system.FormatBytes(copied) + " / " + system.FormatBytes(size)
}
