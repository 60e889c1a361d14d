// Package combine merges the input PDFs into one document.
package combine

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Alisasanian/PDFsorter/constants"
	"github.com/Alisasanian/PDFsorter/internal/common"
	"github.com/Alisasanian/PDFsorter/internal/pdfdoc"
	"github.com/Alisasanian/PDFsorter/internal/staging"
)

// DocumentResult is the outcome for one input.
type DocumentResult struct {
	Source string
	Pages  int
	Status constants.DocStatus
	Err    error
}

// Report holds the stage counters.
type Report struct {
	Attempted int
	Merged    int
	Skipped   int
	Pages     int
	Output    string
	Documents []DocumentResult
	Duration  time.Duration
}

type Combiner struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Combiner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Combiner{logger: logger}
}

// Run merges every readable PDF in inDir, in name order, into outDir/combined.pdf.
// Unreadable and empty inputs are skipped.
func (c *Combiner) Run(ctx context.Context, inDir, outDir string) (Report, error) {
	start := time.Now()
	logger := common.LoggerFrom(ctx, c.logger)
	var rep Report

	files, stats, err := staging.List(ctx, inDir, "")
	if err != nil {
		return rep, err
	}
	logger.Debug("combine.scan", "dir", inDir, "scanned", stats.Scanned, "matched", stats.Matched, "hidden", stats.Hidden)
	if len(files) == 0 {
		return rep, common.NoInputError("pdf files in " + inDir)
	}

	var inputs []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Attempted++
		res := DocumentResult{Source: f}
		n, err := pdfdoc.PageCount(f)
		switch {
		case err != nil:
			res.Status, res.Err = constants.DocStatusFailed, err
			logger.Error("combine.document.failed", "path", f, "error", err)
		case n == 0:
			res.Status = constants.DocStatusSkipped
			logger.Warn("combine.document.empty", "path", f)
		default:
			res.Status, res.Pages = constants.DocStatusOK, n
			inputs = append(inputs, f)
			rep.Pages += n
		}
		if res.Status != constants.DocStatusOK {
			rep.Skipped++
		}
		rep.Documents = append(rep.Documents, res)
	}
	if len(inputs) == 0 {
		return rep, common.NoInputError("readable pdf files in " + inDir)
	}

	if err := staging.EnsureDirs(outDir); err != nil {
		return rep, err
	}
	out := filepath.Join(outDir, constants.CombinedFileName)
	if err := pdfdoc.Merge(inputs, out); err != nil {
		return rep, err
	}
	rep.Merged = len(inputs)
	rep.Output = out
	rep.Duration = time.Since(start)
	logger.Info("combine.done",
		"attempted", rep.Attempted,
		"merged", rep.Merged,
		"skipped", rep.Skipped,
		"pages", rep.Pages,
		"output", out,
		"duration_ms", rep.Duration.Milliseconds(),
	)
	return rep, nil
}
