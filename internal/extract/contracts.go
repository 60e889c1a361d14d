package extract

import (
	"context"

	"github.com/Alisasanian/PDFsorter/internal/dataset"
	"github.com/Alisasanian/PDFsorter/internal/ocr"
)

// Recognizer is the OCR step: page image -> text.
type Recognizer interface {
	Name() string
	Family() ocr.Family
	Recognize(ctx context.Context, img ocr.Image) (ocr.Result, error)
}

// DocumentResult is what one rasterized document produced.
type DocumentResult struct {
	Source      string
	Name        string // document name without stage marker
	Pages       int
	Found       int
	Priority    int
	OCRFailures int
	Records     []dataset.Record
	File        string // per-document CSV
	Skipped     bool   // no pages; nothing written
	Err         error
}
