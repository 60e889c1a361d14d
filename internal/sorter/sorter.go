package sorter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Alisasanian/PDFsorter/constants"
	"github.com/Alisasanian/PDFsorter/internal/common"
	"github.com/Alisasanian/PDFsorter/internal/dataset"
	"github.com/Alisasanian/PDFsorter/internal/pdfdoc"
	"github.com/Alisasanian/PDFsorter/internal/staging"
)

// Report is what a sort produced.
type Report struct {
	Result
	Source      string
	SourcePages int
	Output      string // empty when no page resolved
	Written     int
	Skipped     []int // resolved pages beyond the end of the source
	Warnings    []string
	Duration    time.Duration
}

// Sorter writes the reordered document.
type Sorter struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Sorter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sorter{logger: logger}
}

// OutputPath is where the sorted copy of source is written.
func OutputPath(source, outDir string) string {
	return filepath.Join(outDir, constants.SortedPrefix+staging.Stem(source)+".pdf")
}

// Run matches entries against recs and copies the resolved pages of source, in
// master order, to outDir. Pages past the end of source are skipped with a warning.
func (s *Sorter) Run(ctx context.Context, entries []string, recs []dataset.Record, source, outDir string) (Report, error) {
	start := time.Now()
	logger := common.LoggerFrom(ctx, s.logger)
	rep := Report{Source: source}
	if len(entries) == 0 {
		return rep, common.NoInputError("master drawing entries")
	}
	if _, err := os.Stat(source); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rep, common.NoInputError("combined source document " + source)
		}
		return rep, err
	}
	n, err := pdfdoc.PageCount(source)
	if err != nil {
		return rep, err
	}
	rep.SourcePages = n
	rep.Result = Match(entries, forDocument(recs, staging.DocumentName(source)))

	pages := make([]int, 0, len(rep.Pages))
	for _, p := range rep.Pages {
		if p < 1 || p > n {
			msg := fmt.Sprintf("Page %d doesn't exist in source PDF (only has %d pages)", p, n)
			rep.Warnings = append(rep.Warnings, msg)
			rep.Skipped = append(rep.Skipped, p)
			logger.Warn(msg, "source", source)
			continue
		}
		pages = append(pages, p)
	}

	if len(pages) > 0 {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := staging.EnsureDirs(outDir); err != nil {
			return rep, err
		}
		out := OutputPath(source, outDir)
		if err := pdfdoc.Collect(source, out, pages); err != nil {
			return rep, err
		}
		rep.Output = out
		rep.Written = len(pages)
	} else {
		logger.Warn("sort.no_pages", "source", source, "entries", rep.Entries)
	}

	rep.Duration = time.Since(start)
	logger.Info("sort.done",
		"entries", rep.Entries,
		"found", rep.Found,
		"missing", len(rep.Missing),
		"written", rep.Written,
		"skipped", len(rep.Skipped),
		"output", rep.Output,
		"duration_ms", rep.Duration.Milliseconds(),
	)
	return rep, nil
}

// forDocument keeps the records of the named document when the dataset has any;
// otherwise every record is taken to describe the source.
func forDocument(recs []dataset.Record, name string) []dataset.Record {
	var out []dataset.Record
	for _, r := range recs {
		if r.PDFName == name {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return recs
	}
	return out
}
