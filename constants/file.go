package constants

import "strings"

// Stage markers appended to a document stem as it moves through the staging directories.
const (
	SuffixFlattened  = "-bwoken"
	SuffixCropped    = "-drawingno"
	SuffixRasterized = "-drawingnoimage"
)

// StageSuffixes lists every marker, longest first so stripping never leaves a partial marker behind.
var StageSuffixes = []string{SuffixRasterized, SuffixCropped, SuffixFlattened}

const (
	CombinedFileName    = "combined.pdf"
	SortedPrefix        = "SORTED_"
	DatasetSuffix       = "_drawing_numbers_dataset.csv"
	UnsortedSuffix      = "_drawing_numbers_dataset_unsorted.csv"
	CombinedDatasetName = "combined_drawing_numbers_dataset.csv"
	CombinedDatasetDir  = "combined_data"
)

// AllowedExtensions holds the extensions picked up from staging directories.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// MasterExtensions holds the extensions accepted for the master ordering source.
var MasterExtensions = map[string]struct{}{
	"csv":  {},
	"xlsx": {},
	"json": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDFExt reports whether ext (with or without dot) names a PDF.
func IsPDFExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
