package cmd

import (
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ghostkernel/ghostio/scan"
	"github.com/ghostkernel/ghostio/stdio"
)

var scanfJSON = false

var scanfCmd = &cobra.Command{
	Use:   "scanf FORMAT",
	Short: "Scan standard input and print the values that were read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slots, verbs, err := scanfSlots(args[0])
		if err != nil {
			return err
		}
		n, err := stdio.Scanf(args[0], slots...)
		if err != nil && n < 0 {
			return err
		}
		return printScanned(scannedValues(slots, verbs, n))
	},
}

func init() {
	scanfCmd.Flags().BoolVar(&scanfJSON, "json", false, "print the values as a JSON array")
}

// scanfSlots allocates a value of the right type for every assigning
// conversion of descriptor.
func scanfSlots(descriptor string) ([]any, []byte, error) {
	directives, err := scan.Conversions(descriptor)
	if err != nil {
		return nil, nil, err
	}
	slots := make([]any, 0, len(directives))
	verbs := make([]byte, 0, len(directives))
	for _, d := range directives {
		verbs = append(verbs, d.Verb)
		switch d.Verb {
		case 'd', 'i', 'n':
			slots = append(slots, new(int64))
		case 'u', 'o', 'x', 'X', 'p':
			slots = append(slots, new(uint64))
		case 'f', 'F', 'e', 'E', 'g', 'G', 'a', 'A':
			slots = append(slots, new(float64))
		default:
			slots = append(slots, new(string))
		}
	}
	return slots, verbs, nil
}

// scannedValues returns the values of the slots filled in by a scan that
// made n assignments. Byte counts stored by the n conversion are not
// assignments but are reported along with the values around them.
func scannedValues(slots []any, verbs []byte, n int) []any {
	values := []any{}
	for i, s := range slots {
		if verbs[i] != 'n' {
			if n <= 0 {
				break
			}
			n--
		}
		switch v := s.(type) {
		case *int64:
			values = append(values, *v)
		case *uint64:
			values = append(values, *v)
		case *float64:
			values = append(values, *v)
		case *string:
			values = append(values, *v)
		}
	}
	return values
}

func printScanned(values []any) error {
	if scanfJSON {
		b, err := json.Marshal(values)
		if err != nil {
			return err
		}
		_, err = stdio.Stdout().Printf("%s\n", b)
		return err
	}
	for _, v := range values {
		var err error
		switch v := v.(type) {
		case int64:
			_, err = stdio.Printf("%lld\n", v)
		case uint64:
			_, err = stdio.Printf("%llu\n", v)
		case float64:
			_, err = stdio.Printf("%g\n", v)
		case string:
			_, err = stdio.Printf("%s\n", v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
