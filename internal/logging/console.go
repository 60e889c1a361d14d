package logging

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Console prints human-facing progress and summaries to a terminal.
type Console struct {
	w       io.Writer
	ok      *color.Color
	warn    *color.Color
	bad     *color.Color
	heading *color.Color
}

// NewConsole returns a Console over w. Colors are used only when enabled and
// stdout is a terminal (color.NoColor unset).
func NewConsole(w io.Writer, enabled bool) *Console {
	if color.NoColor {
		enabled = false
	}
	c := &Console{
		w:       w,
		ok:      color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		bad:     color.New(color.FgRed),
		heading: color.New(color.Bold),
	}
	if !enabled {
		for _, cc := range []*color.Color{c.ok, c.warn, c.bad, c.heading} {
			cc.DisableColor()
		}
	}
	return c
}

// Heading prints a bold line.
func (c *Console) Heading(format string, args ...any) {
	_, _ = c.heading.Fprintf(c.w, format+"\n", args...)
}

// Line prints label followed by a value; only the value is colored so the plain text stays parseable.
func (c *Console) Line(label string, value any, good bool) {
	cc := c.ok
	if !good {
		cc = c.bad
	}
	_, _ = fmt.Fprintf(c.w, "%s%s\n", label, cc.Sprint(value))
}

// Warn prints a yellow line.
func (c *Console) Warn(format string, args ...any) {
	_, _ = c.warn.Fprintf(c.w, format+"\n", args...)
}

// Writer exposes the underlying writer.
func (c *Console) Writer() io.Writer { return c.w }
