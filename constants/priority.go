package constants

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DrawingClass is the discipline letter a drawing number starts with.
type DrawingClass string

const (
	Architectural DrawingClass = "A"
	General       DrawingClass = "G"
)

var priorityClasses = []DrawingClass{Architectural, General}

// IsPriority reports whether the drawing number belongs to a privileged class.
// Comparison is on the first character, case-insensitive.
func IsPriority(drawing string) bool {
	drawing = strings.TrimSpace(drawing)
	if drawing == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(drawing)
	first := string(unicode.ToUpper(r))
	for _, c := range priorityClasses {
		if first == string(c) {
			return true
		}
	}
	return false
}
