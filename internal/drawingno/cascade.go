// Package drawingno finds drawing numbers in OCR text.
//
// A Cascade is an ordered list of patterns tried until one matches. The captured
// identifier is cleaned (trimmed, letter O read as digit 0) and classified.
package drawingno

import (
	"regexp"
	"strings"

	"github.com/Alisasanian/PDFsorter/constants"
)

// Pattern is one step of a cascade. Group selects the capture holding the identifier;
// zero means the whole match.
type Pattern struct {
	Name  string
	re    *regexp.Regexp
	group int
}

// NewPattern compiles expr. It panics on an invalid expression.
func NewPattern(name, expr string, group int) Pattern {
	return Pattern{Name: name, re: regexp.MustCompile(expr), group: group}
}

func (p Pattern) find(text string) (string, bool) {
	m := p.re.FindStringSubmatch(text)
	if m == nil || p.group >= len(m) || m[p.group] == "" {
		return "", false
	}
	return m[p.group], true
}

// String returns the expression.
func (p Pattern) String() string { return p.re.String() }

// OCR commonly drops the leading characters of the label.
const (
	drawingLabel = `(?:DRAWING|RAWING|AWING)\s*NO[:.]\s*`
	sheetLabel   = `(?:SHEET|HEET|EET)\s*NO[:.]\s*`
)

// Identifier shapes shared by the labeled and unlabeled cascades.
const (
	dottedStrict = `([A-Z]+[0-9Oo]?(?:\.[0-9Oo]+[A-Z]?)+[^\s]*)`
	dottedLoose  = `([A-Z]+[0-9Oo]*(?:\.[0-9Oo]+[A-Z]?)+)`
	bare         = `[A-Z]+[0-9]+\.[0-9]+[A-Z]?`
	sheetDashed  = `([A-Z]+\-[0-9Oo]+\.[0-9Oo]+[-_]?)`
	dashed       = `([A-Z]+[0-9Oo]+\-[0-9Oo]+[A-Z]?)`
)

// Fixup rewrites an identifier a specific OCR engine family is known to misread.
type Fixup struct {
	Pattern *regexp.Regexp
	Replace string
	// AfterCleanup applies the fixup to the cleaned identifier instead of the raw capture.
	AfterCleanup bool
}

// TesseractFixups correct misreads of the tesseract family: a G followed by a
// spurious O, and a trailing Q glued onto A0.
var TesseractFixups = []Fixup{
	{Pattern: regexp.MustCompile(`^GO(\d)`), Replace: "G$1"},
	{Pattern: regexp.MustCompile(`^A0Q`), Replace: "A0", AfterCleanup: true},
}

// Cascade is an ordered list of patterns; the first match wins.
type Cascade struct {
	patterns []Pattern
	fixups   []Fixup
}

// Labeled is the page cascade: label anchored patterns first, the bare identifier
// pattern as a fallback, then the SHEET NO and dashed forms.
func Labeled() *Cascade {
	return &Cascade{patterns: []Pattern{
		NewPattern("drawing-no", drawingLabel+dottedStrict, 1),
		NewPattern("drawing-no-noisy", drawingLabel+`.*?`+dottedLoose, 1),
		NewPattern("bare", bare, 0),
		NewPattern("sheet-no", sheetLabel+`.*?`+sheetDashed, 1),
		NewPattern("drawing-no-dashed", drawingLabel+`.*?`+dashed, 1),
	}}
}

// Unlabeled is the same cascade without the label anchors, for free text such as
// master list cells.
func Unlabeled() *Cascade {
	return &Cascade{patterns: []Pattern{
		NewPattern("dotted", dottedStrict, 1),
		NewPattern("dotted-loose", dottedLoose, 1),
		NewPattern("bare", bare, 0),
		NewPattern("sheet-dashed", sheetDashed, 1),
		NewPattern("dashed", dashed, 1),
	}}
}

// WithFixups returns a copy of c that also applies fixups.
func (c *Cascade) WithFixups(fixups ...Fixup) *Cascade {
	out := &Cascade{patterns: c.patterns}
	out.fixups = append(append([]Fixup(nil), c.fixups...), fixups...)
	return out
}

// Patterns returns the patterns in the order they are tried.
func (c *Cascade) Patterns() []Pattern {
	return append([]Pattern(nil), c.patterns...)
}

// Match is a drawing number found in text.
type Match struct {
	Raw      string // captured text before cleanup
	Number   string
	Pattern  string
	Priority bool
}

// Extract runs the cascade over text.
func (c *Cascade) Extract(text string) (Match, bool) {
	for _, p := range c.patterns {
		raw, ok := p.find(text)
		if !ok {
			continue
		}
		n := c.clean(raw)
		if n == "" {
			continue
		}
		return Match{Raw: raw, Number: n, Pattern: p.Name, Priority: constants.IsPriority(n)}, true
	}
	return Match{}, false
}

func (c *Cascade) clean(raw string) string {
	s := strings.TrimSpace(raw)
	for _, f := range c.fixups {
		if !f.AfterCleanup {
			s = f.Pattern.ReplaceAllString(s, f.Replace)
		}
	}
	s = Clean(s)
	for _, f := range c.fixups {
		if f.AfterCleanup {
			s = f.Pattern.ReplaceAllString(s, f.Replace)
		}
	}
	return s
}

var confusables = strings.NewReplacer("O", "0", "o", "0")

// Clean trims s and reads every letter O as the digit 0.
func Clean(s string) string {
	return confusables.Replace(strings.TrimSpace(s))
}
