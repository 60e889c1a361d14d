// Package extract reads drawing numbers off rasterized title blocks.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Alisasanian/PDFsorter/constants"
	"github.com/Alisasanian/PDFsorter/internal/common"
	"github.com/Alisasanian/PDFsorter/internal/dataset"
	"github.com/Alisasanian/PDFsorter/internal/drawingno"
	"github.com/Alisasanian/PDFsorter/internal/ocr"
	"github.com/Alisasanian/PDFsorter/internal/pdfdoc"
	"github.com/Alisasanian/PDFsorter/internal/render"
	"github.com/Alisasanian/PDFsorter/internal/staging"
)

// Report holds the stage counters and the accumulated dataset.
type Report struct {
	DocumentsAttempted int
	DocumentsSucceeded int
	DocumentsSkipped   int
	Pages              int
	OCRFailures        int
	Found              int
	Priority           int
	Records            []dataset.Record
	Documents          []DocumentResult
	CombinedFile       string
	Duration           time.Duration
}

type Extractor struct {
	recognizer Recognizer
	renderer   render.Renderer
	cascade    *drawingno.Cascade
	dpi        int
	preprocess bool
	minSide    int
	logger     *slog.Logger
	pageCount  func(path string) (int, error)
}

// New builds an extractor. Tesseract-family recognizers get their fixups added to
// the labeled cascade.
func New(recognizer Recognizer, renderer render.Renderer, cfg common.OCRConfig, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	cascade := drawingno.Labeled()
	if recognizer.Family() == ocr.FamilyTesseract {
		cascade = cascade.WithFixups(drawingno.TesseractFixups...)
	}
	dpi := cfg.DPI
	if dpi <= 0 {
		dpi = 300
	}
	return &Extractor{
		recognizer: recognizer,
		renderer:   renderer,
		cascade:    cascade,
		dpi:        dpi,
		preprocess: cfg.Preprocess,
		minSide:    cfg.MinSide,
		logger:     logger,
		pageCount:  pdfdoc.PageCount,
	}
}

// Run extracts every -drawingnoimage document in inDir and writes the per-document
// datasets to outDir and the combined one to outDir/combined_data.
func (e *Extractor) Run(ctx context.Context, inDir, outDir string) (Report, error) {
	start := time.Now()
	logger := common.LoggerFrom(ctx, e.logger)
	var rep Report

	files, _, err := staging.List(ctx, inDir, constants.SuffixRasterized)
	if err != nil {
		return rep, err
	}
	if len(files) == 0 {
		return rep, common.NoInputError(constants.SuffixRasterized + " documents in " + inDir)
	}
	combinedDir := filepath.Join(outDir, constants.CombinedDatasetDir)
	if err := staging.EnsureDirs(outDir, combinedDir); err != nil {
		return rep, err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res := e.Document(ctx, f)
		rep.DocumentsAttempted++
		rep.Pages += res.Pages
		rep.OCRFailures += res.OCRFailures
		if res.Skipped {
			rep.DocumentsSkipped++
			rep.Documents = append(rep.Documents, res)
			logger.Warn("ocr.document.skipped", "path", f, "reason", "no pages")
			continue
		}
		if res.Err != nil {
			rep.Documents = append(rep.Documents, res)
			logger.Error("ocr.document.failed", "path", f, "error", res.Err)
			continue
		}

		res.File = filepath.Join(outDir, dataset.DocumentFileName(res.Name, res.Priority > 0))
		if err := dataset.WriteCSVFile(res.File, res.Records); err != nil {
			res.Err = err
			rep.Documents = append(rep.Documents, res)
			logger.Error("ocr.document.failed", "path", f, "error", err)
			continue
		}
		rep.DocumentsSucceeded++
		rep.Found += res.Found
		rep.Priority += res.Priority
		rep.Records = append(rep.Records, res.Records...)
		rep.Documents = append(rep.Documents, res)
		logger.Info("ocr.document.ok",
			"path", f,
			"pages", res.Pages,
			"found", res.Found,
			"priority", res.Priority,
			"ocr_failures", res.OCRFailures,
			"dataset", res.File,
		)
	}

	rep.CombinedFile = filepath.Join(combinedDir, constants.CombinedDatasetName)
	if err := dataset.WriteCSVFile(rep.CombinedFile, rep.Records); err != nil {
		return rep, fmt.Errorf("combined dataset: %w", err)
	}
	rep.Duration = time.Since(start)
	logger.Info("ocr.done",
		"engine", e.recognizer.Name(),
		"attempted", rep.DocumentsAttempted,
		"succeeded", rep.DocumentsSucceeded,
		"skipped", rep.DocumentsSkipped,
		"pages", rep.Pages,
		"ocr_failures", rep.OCRFailures,
		"found", rep.Found,
		"priority", rep.Priority,
		"dataset", rep.CombinedFile,
		"duration_ms", rep.Duration.Milliseconds(),
	)
	return rep, nil
}

// Document reads every page of one rasterized document. Pages that fail OCR are
// counted but produce no record; pages without a match produce an empty record. A
// document without pages is marked Skipped.
func (e *Extractor) Document(ctx context.Context, path string) DocumentResult {
	logger := common.LoggerFrom(ctx, e.logger)
	res := DocumentResult{Source: path, Name: staging.DocumentName(path)}
	n, err := e.pageCount(path)
	if err != nil {
		res.Err = err
		return res
	}
	if n == 0 {
		res.Skipped = true
		return res
	}
	for page := 1; page <= n; page++ {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		res.Pages++
		text, err := e.pageText(ctx, path, page)
		if err != nil {
			res.OCRFailures++
			logger.Warn("ocr.page.failed", "path", path, "page", page, "error", err)
			continue
		}
		rec := dataset.Record{PDFName: res.Name, Page: page}
		if m, ok := e.cascade.Extract(text); ok {
			rec.DrawingNumber, rec.Priority = m.Number, m.Priority
			res.Found++
			if m.Priority {
				res.Priority++
			}
			logger.Debug("ocr.page.match", "path", path, "page", page, "number", m.Number, "pattern", m.Pattern)
		} else {
			logger.Debug("ocr.page.no_match", "path", path, "page", page, "text", render.Truncate(text, 200))
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

func (e *Extractor) pageText(ctx context.Context, path string, page int) (string, error) {
	r, _, err := e.renderer.RenderPage(ctx, path, page, render.Options{DPI: e.dpi})
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	img := ocr.Image{Data: r.Data, MIMEType: "image/jpeg"}
	if e.preprocess {
		if img, err = ocr.Preprocess(img, e.minSide); err != nil {
			return "", err
		}
	}
	out, err := e.recognizer.Recognize(ctx, img)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}
