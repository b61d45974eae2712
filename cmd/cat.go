package cmd

import (
	"io"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/ghostkernel/ghostio/internal/progress"
	"github.com/ghostkernel/ghostio/stdio"
)

var (
	catUnbuffered = false
	catProgress   = false
)

var catCmd = &cobra.Command{
	Use:   "cat [FILE...]",
	Short: "Copy files, or standard input, to standard output",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := stdio.Default()
		if catUnbuffered {
			if err := reg.Stdout().SetBuffering(stdio.Unbuffered, nil, 0); err != nil {
				return err
			}
		}
		if len(args) == 0 {
			args = []string{"-"}
		}
		for _, name := range args {
			if err := catFile(reg, name); err != nil {
				return err
			}
		}
		return reg.Stdout().Flush()
	},
}

func init() {
	catCmd.Flags().BoolVarP(&catUnbuffered, "unbuffered", "u", false, "write output without buffering")
	catCmd.Flags().BoolVar(&catProgress, "progress", false, "report the progress of every file on the diagnostic stream")
}

// catFile copies the named file, or standard input for "-", to standard
// output.
func catFile(reg *stdio.Registry, name string) error {
	src := reg.Stdin()
	if name != "-" {
		s, err := reg.Open(name, "r")
		if err != nil {
			return errors.WrapIf(err, name)
		}
		defer s.Close()
		src = s
	}
	m := progress.NewMeter(reg.Stdout(), streamSize(src))
	_, err := io.Copy(m, src)
	log.WithFields(log.Fields{"name": name, "bytes": m.Copied()}).Debug("copied file to standard output")
	if err != nil {
		return errors.WrapIf(err, name)
	}
	if catProgress {
		_, err = reg.Stderr().Printf("%s %s\n", name, m.Bar(25))
	}
	return err
}

// streamSize returns the number of bytes between the current position of s
// and its end, or zero when s cannot seek.
func streamSize(s *stdio.Stream) uint64 {
	pos, err := s.Tell()
	if err != nil {
		return 0
	}
	end, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0
	}
	if _, err := s.Seek(pos, io.SeekStart); err != nil {
		return 0
	}
	return uint64(max(end-pos, 0))
}
