package stdio

// Platform limits. None of them can be negotiated per call.
const (
	// BufSize is the capacity of a stream buffer when the configuration does
	// not say otherwise.
	BufSize = 0x2000
	// BufSizeMin is the smallest buffer a stream allocates for itself.
	BufSizeMin = 128
	// FopenMax is the number of streams a process may have open at once.
	FopenMax = 1024
	// FilenameMax is the longest file name component.
	FilenameMax = 512
	// PathMax bounds the length of a path, including its terminator.
	PathMax = 4096
	// TmpMax is the number of distinct names TempName guarantees.
	TmpMax = FopenMax
	// EOF is the value returned by the counting calls on end of input.
	EOF = -1
)

// BufferMode selects when a stream hands buffered output to its descriptor.
type BufferMode int

const (
	// FullyBuffered streams write when the buffer fills up.
	FullyBuffered BufferMode = 1
	// LineBuffered streams also write whenever a newline is written.
	LineBuffered BufferMode = 2
	// Unbuffered streams pass every write straight to the descriptor.
	Unbuffered BufferMode = 3
)

func (m BufferMode) String() string {
	switch m {
	case FullyBuffered:
		return "full"
	case LineBuffered:
		return "line"
	case Unbuffered:
		return "none"
	}
	return "invalid"
}

// Position is an opaque stream position saved by GetPos and restored by
// SetPos.
type Position int64
