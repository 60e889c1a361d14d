package sorter

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// WriteSummary prints the parseable summary block. Color codes wrap whole lines, never
// split a label from its value; with colored false the lines are exactly:
//
//	Total drawings from master CSV: <N>
//	Found in index CSV: <N>
//	Missing from CSV: <N>
//	Missing drawings: <a, b, ...>   (only when something is missing)
func WriteSummary(w io.Writer, res Result, colored bool) error {
	good := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	if !colored {
		good.DisableColor()
		bad.DisableColor()
	} else {
		good.EnableColor()
		bad.EnableColor()
	}
	missing := good
	if len(res.Missing) > 0 {
		missing = bad
	}

	lines := []string{
		fmt.Sprintf("Total drawings from master CSV: %d", res.Entries),
		good.Sprintf("Found in index CSV: %d", res.Found),
		missing.Sprintf("Missing from CSV: %d", len(res.Missing)),
	}
	if len(res.Missing) > 0 {
		lines = append(lines, bad.Sprint("Missing drawings: "+strings.Join(res.Missing, ", ")))
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
