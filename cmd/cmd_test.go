package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostkernel/ghostio/config"
	"github.com/ghostkernel/ghostio/format"
	"github.com/ghostkernel/ghostio/internal/ufs"
	"github.com/ghostkernel/ghostio/stdio"
)

func TestPrintfArguments(t *testing.T) {
	tests := []struct {
		descriptor string
		raw        []string
		want       string
	}{
		{"%d|%5s|%.2f", []string{"-7", "ab", "3.14159"}, "-7|   ab|3.14"},
		{"%x %o %u", []string{"255", "8", "0x10"}, "ff 10 16"},
		{"%*d|%-*.*s|", []string{"4", "9", "5", "2", "hello"}, "   9|he   |"},
		{"%c%c", []string{"hi", "!"}, "h!"},
		{"100%%", nil, "100%"},
		{"%s", []string{"used", "ignored"}, "used"},
	}
	for _, tc := range tests {
		t.Run(tc.descriptor, func(t *testing.T) {
			args, err := printfArguments(tc.descriptor, tc.raw)
			require.NoError(t, err)
			out, err := stdio.Sprintf(tc.descriptor, args...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestPrintfArguments_Errors(t *testing.T) {
	_, err := printfArguments("%d %d", []string{"1"})
	assert.ErrorIs(t, err, format.ErrMissingArgument)

	_, err = printfArguments("%d", []string{"one"})
	assert.Error(t, err)

	_, err = printfArguments("%n", []string{"1"})
	assert.Error(t, err)

	_, err = printfArguments("%y", nil)
	assert.ErrorIs(t, err, format.ErrInvalidFormat)
}

func TestScannedValues(t *testing.T) {
	descriptor := "%d %s%n %f %x"
	slots, verbs, err := scanfSlots(descriptor)
	require.NoError(t, err)
	require.Len(t, slots, 5)

	n, err := stdio.Sscanf("12 word 2.5 zz", descriptor, slots...)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []any{int64(12), "word", int64(7), 2.5}, scannedValues(slots, verbs, n))

	assert.Equal(t, []any{}, scannedValues(slots, verbs, -1))
}

func TestCatFile(t *testing.T) {
	m := ufs.NewMemIO()
	m.WritePipe("stdin", []byte(" world"))
	m.Bind(ufs.StdinFileno, "stdin", ufs.O_RDONLY)
	m.Bind(ufs.StdoutFileno, "stdout", ufs.O_WRONLY)
	m.Bind(ufs.StderrFileno, "stderr", ufs.O_WRONLY)
	m.WriteFile("f", []byte("hello"))
	c, err := config.NewAtPath("")
	require.NoError(t, err)
	reg := stdio.NewRegistry(m, stdio.WithConfiguration(c))

	catProgress = true
	defer func() { catProgress = false }()

	require.NoError(t, catFile(reg, "f"))
	require.NoError(t, catFile(reg, "-"))
	require.NoError(t, reg.Stdout().Flush())

	out, _ := m.ReadFile("stdout")
	assert.Equal(t, "hello world", string(out))
	diag, _ := m.ReadFile("stderr")
	assert.Equal(t, "f [=========================] 5 B / 5 B\n- [=========================] 6 B / 0 B\n", string(diag))
	assert.Equal(t, 3, reg.Len())

	assert.Error(t, catFile(reg, "missing"))
}

func TestConfigurationPath(t *testing.T) {
	defer func() { configPath = "" }()

	t.Setenv("GHOSTIO_CONFIG", "")
	assert.Equal(t, config.DefaultLocation, configurationPath())

	t.Setenv("GHOSTIO_CONFIG", "/srv/ghostio.yml")
	assert.Equal(t, "/srv/ghostio.yml", configurationPath())

	configPath = "local.yml"
	assert.Equal(t, "local.yml", configurationPath())
}
