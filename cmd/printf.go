package cmd

import (
	"strconv"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/ghostkernel/ghostio/format"
	"github.com/ghostkernel/ghostio/stdio"
)

var printfCmd = &cobra.Command{
	Use:   "printf FORMAT [ARG...]",
	Short: "Format the arguments and write them to standard output",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := printfArguments(args[0], args[1:])
		if err != nil {
			return err
		}
		_, err = stdio.Printf(args[0], values...)
		return err
	},
}

// printfArguments converts the command line arguments into the values
// expected by the conversions of descriptor, in order.
func printfArguments(descriptor string, raw []string) ([]any, error) {
	directives, err := format.Parse(descriptor)
	if err != nil {
		return nil, err
	}

	var out []any
	next := func(d *format.Directive) (string, error) {
		if len(out) >= len(raw) {
			return "", errors.WithDetails(format.ErrMissingArgument, "offset", d.Offset)
		}
		return raw[len(out)], nil
	}
	integer := func(d *format.Directive) error {
		s, err := next(d)
		if err != nil {
			return err
		}
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return errors.WrapIff(err, "argument %d is not an integer", len(out)+1)
		}
		out = append(out, v)
		return nil
	}

	for i := range directives {
		d := &directives[i]
		if d.IsLiteral() || d.Verb == '%' {
			continue
		}
		if d.WidthArg {
			if err := integer(d); err != nil {
				return nil, err
			}
		}
		if d.PrecArg {
			if err := integer(d); err != nil {
				return nil, err
			}
		}

		switch d.Verb {
		case 'd', 'i':
			err = integer(d)
		case 'u', 'o', 'x', 'X', 'p':
			var s string
			if s, err = next(d); err == nil {
				var v uint64
				if v, err = strconv.ParseUint(s, 0, 64); err != nil {
					err = errors.WrapIff(err, "argument %d is not an unsigned integer", len(out)+1)
				} else if d.Verb == 'p' {
					out = append(out, uintptr(v))
				} else {
					out = append(out, v)
				}
			}
		case 'f', 'F', 'e', 'E', 'g', 'G', 'a', 'A':
			var s string
			if s, err = next(d); err == nil {
				var v float64
				if v, err = strconv.ParseFloat(s, 64); err != nil {
					err = errors.WrapIff(err, "argument %d is not a number", len(out)+1)
				} else {
					out = append(out, v)
				}
			}
		case 'c':
			var s string
			if s, err = next(d); err == nil {
				if s == "" {
					out = append(out, 0)
				} else {
					out = append(out, int(s[0]))
				}
			}
		case 's':
			var s string
			if s, err = next(d); err == nil {
				out = append(out, s)
			}
		case 'n':
			err = errors.New("the n conversion cannot be used from the command line")
		}
		if err != nil {
			return nil, err
		}
	}

	if len(out) < len(raw) {
		log.WithField("unused", len(raw)-len(out)).Debug("ignoring arguments not consumed by the format")
	}
	return out, nil
}
