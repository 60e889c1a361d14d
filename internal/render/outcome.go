package render

import (
	"fmt"
	"strings"
)

// Outcome classifies what a crop attempt produced.
type Outcome int

const (
	// OutcomeOK means the document was cropped and renders cleanly.
	OutcomeOK Outcome = iota
	// OutcomeNeedsFlatten means the document is damaged in a way rasterizing can repair.
	OutcomeNeedsFlatten
	// OutcomeFatal means the document cannot be processed; it is skipped.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNeedsFlatten:
		return "needs_flatten"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ErrorVocabulary holds lowercase fragments of renderer diagnostics that mark a
// document as damaged.
var ErrorVocabulary = []string{
	"invalid rect",
	"rect",
	"syntax error",
	"internal error",
	"format error",
	"cannot",
	"code",
	"illegal",
	"unknown operator",
	"bad",
}

// Classify maps renderer diagnostics to an Outcome: any line containing a vocabulary
// fragment means NeedsFlatten.
func Classify(diagnostics []string) Outcome {
	for _, d := range diagnostics {
		l := strings.ToLower(d)
		for _, v := range ErrorVocabulary {
			if strings.Contains(l, v) {
				return OutcomeNeedsFlatten
			}
		}
	}
	return OutcomeOK
}

// SplitDiagnostics splits stderr output into trimmed non-empty lines.
func SplitDiagnostics(stderr []byte) []string {
	var out []string
	for _, ln := range strings.Split(string(stderr), "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			out = append(out, ln)
		}
	}
	return out
}
