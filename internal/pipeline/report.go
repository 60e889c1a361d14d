package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/Alisasanian/PDFsorter/constants"
	"github.com/Alisasanian/PDFsorter/internal/combine"
	"github.com/Alisasanian/PDFsorter/internal/crop"
	"github.com/Alisasanian/PDFsorter/internal/extract"
	"github.com/Alisasanian/PDFsorter/internal/master"
	"github.com/Alisasanian/PDFsorter/internal/raster"
	"github.com/Alisasanian/PDFsorter/internal/sorter"
)

// RunReport accumulates what each stage of one run produced. Stages that did not
// run leave their field nil.
type RunReport struct {
	ID       uuid.UUID
	Stages   []constants.Stage
	Started  time.Time
	Finished time.Time
	Status   constants.RunStatus
	Err      error

	Combine *combine.Report
	Crop    *crop.Report
	Raster  *raster.Report
	OCR     *extract.Report
	Master  *master.List
	Sort    *sorter.Report
}

// Summary is the persisted, JSON friendly view of a RunReport.
type Summary struct {
	Stages     []constants.Stage `json:"stages"`
	DurationMS int64             `json:"duration_ms"`
	Error      string            `json:"error,omitempty"`

	Combine *StageCounts `json:"combine,omitempty"`
	Crop    *StageCounts `json:"crop,omitempty"`
	Raster  *StageCounts `json:"raster,omitempty"`
	OCR     *OCRCounts   `json:"ocr,omitempty"`
	Sort    *SortCounts  `json:"sort,omitempty"`
}

type StageCounts struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Flattened int `json:"flattened,omitempty"`
	Failed    int `json:"failed"`
	Pages     int `json:"pages"`
}

type OCRCounts struct {
	Attempted   int    `json:"attempted"`
	Succeeded   int    `json:"succeeded"`
	Skipped     int    `json:"skipped,omitempty"`
	Pages       int    `json:"pages"`
	OCRFailures int    `json:"ocr_failures"`
	Found       int    `json:"found"`
	Priority    int    `json:"priority"`
	Dataset     string `json:"dataset"`
}

type SortCounts struct {
	Entries int      `json:"entries"`
	Found   int      `json:"found"`
	Missing []string `json:"missing,omitempty"`
	Written int      `json:"written"`
	Skipped []int    `json:"skipped,omitempty"`
	Output  string   `json:"output,omitempty"`
}

// Summary condenses the report.
func (r *RunReport) Summary() Summary {
	s := Summary{Stages: r.Stages}
	if !r.Finished.IsZero() {
		s.DurationMS = r.Finished.Sub(r.Started).Milliseconds()
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}
	if c := r.Combine; c != nil {
		s.Combine = &StageCounts{Attempted: c.Attempted, Succeeded: c.Merged, Failed: c.Skipped, Pages: c.Pages}
	}
	if c := r.Crop; c != nil {
		s.Crop = &StageCounts{Attempted: c.Attempted, Succeeded: c.Succeeded, Flattened: c.Flattened, Failed: c.Failed + c.Skipped, Pages: c.Pages}
	}
	if c := r.Raster; c != nil {
		s.Raster = &StageCounts{Attempted: c.Attempted, Succeeded: c.Succeeded, Failed: c.Failed, Pages: c.Pages}
	}
	if o := r.OCR; o != nil {
		s.OCR = &OCRCounts{
			Attempted:   o.DocumentsAttempted,
			Succeeded:   o.DocumentsSucceeded,
			Skipped:     o.DocumentsSkipped,
			Pages:       o.Pages,
			OCRFailures: o.OCRFailures,
			Found:       o.Found,
			Priority:    o.Priority,
			Dataset:     o.CombinedFile,
		}
	}
	if so := r.Sort; so != nil {
		s.Sort = &SortCounts{
			Entries: so.Entries,
			Found:   so.Found,
			Missing: so.Missing,
			Written: so.Written,
			Skipped: so.Skipped,
			Output:  so.Output,
		}
	}
	return s
}
