package staging

import (
	"path/filepath"
	"strings"

	"github.com/Alisasanian/PDFsorter/constants"
)

// Stem returns the file name of path without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// StripSuffix removes a trailing stage marker from stem, if any.
func StripSuffix(stem string) string {
	for _, s := range constants.StageSuffixes {
		if strings.HasSuffix(stem, s) {
			return strings.TrimSuffix(stem, s)
		}
	}
	return stem
}

// DocumentName is the stage-independent name of the document stored at path.
func DocumentName(path string) string {
	return StripSuffix(Stem(path))
}

// Compose builds the next-stage path for src: <dir>/<stem without marker><suffix>.pdf.
func Compose(src, dir, suffix string) string {
	return filepath.Join(dir, DocumentName(src)+suffix+".pdf")
}

// HasSuffix reports whether the stem of path ends with the stage marker. An empty
// marker matches everything.
func HasSuffix(path, suffix string) bool {
	return suffix == "" || strings.HasSuffix(Stem(path), suffix)
}
