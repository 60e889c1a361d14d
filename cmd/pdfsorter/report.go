package main

import (
	"github.com/Alisasanian/PDFsorter/internal/logging"
	"github.com/Alisasanian/PDFsorter/internal/pipeline"
	"github.com/Alisasanian/PDFsorter/internal/sorter"
)

func printReport(c *logging.Console, rep *pipeline.RunReport, colored bool) {
	if rep == nil {
		return
	}
	if r := rep.Combine; r != nil {
		c.Heading("Combine")
		c.Line("  PDFs merged: ", r.Merged, r.Merged > 0)
		c.Line("  PDFs skipped: ", r.Skipped, r.Skipped == 0)
		c.Line("  Pages: ", r.Pages, true)
	}
	if r := rep.Crop; r != nil {
		c.Heading("Crop")
		c.Line("  Cropped: ", r.Succeeded, r.Succeeded > 0)
		c.Line("  Cropped after flattening: ", r.Flattened, true)
		c.Line("  Failed: ", r.Failed, r.Failed == 0)
		for _, d := range r.Documents {
			if d.Err != nil {
				c.Warn("  %s: %v", d.Source, d.Err)
			}
		}
	}
	if r := rep.Raster; r != nil {
		c.Heading("Rasterize")
		c.Line("  Documents: ", r.Succeeded, r.Failed == 0)
		c.Line("  Pages: ", r.Pages, true)
		c.Line("  Size before: ", r.Input, true)
		c.Line("  Size after: ", r.Output, true)
		c.Line("  Reduction: ", r.Reduction(), true)
	}
	if r := rep.OCR; r != nil {
		c.Heading("OCR")
		c.Line("  Pages read: ", r.Pages, true)
		c.Line("  Drawing numbers found: ", r.Found, r.Found > 0)
		c.Line("  A/G drawings: ", r.Priority, true)
		c.Line("  OCR failures: ", r.OCRFailures, r.OCRFailures == 0)
		if r.DocumentsSkipped > 0 {
			c.Line("  Empty documents skipped: ", r.DocumentsSkipped, false)
		}
		if r.CombinedFile != "" {
			c.Line("  Dataset: ", r.CombinedFile, true)
		}
	}
	if r := rep.Sort; r != nil {
		c.Heading("Sort")
		for _, w := range r.Warnings {
			c.Warn("%s", w)
		}
		_ = sorter.WriteSummary(c.Writer(), r.Result, colored)
		if r.Output != "" {
			c.Line("Sorted PDF: ", r.Output, true)
		} else {
			c.Warn("No matching pages, nothing written")
		}
	}
}
