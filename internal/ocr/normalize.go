package ocr

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText folds compatibility characters (NFKC) and joins the fragments with
// single spaces, collapsing any whitespace runs inside them.
func NormalizeText(fragments ...string) string {
	var words []string
	for _, f := range fragments {
		words = append(words, strings.Fields(norm.NFKC.String(f))...)
	}
	return strings.Join(words, " ")
}
