// Package raster turns cropped documents into image-only documents.
package raster

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Alisasanian/PDFsorter/constants"
	"github.com/Alisasanian/PDFsorter/internal/common"
	"github.com/Alisasanian/PDFsorter/internal/pdfdoc"
	"github.com/Alisasanian/PDFsorter/internal/render"
	"github.com/Alisasanian/PDFsorter/internal/staging"
)

type DocumentResult struct {
	Source string
	Output string
	Pages  int
	Status constants.DocStatus
	Err    error
}

// Report holds the stage counters and the input/output sizes.
type Report struct {
	Attempted int
	Succeeded int
	Failed    int
	Pages     int
	Input     staging.Usage
	Output    staging.Usage
	Documents []DocumentResult
	Duration  time.Duration
}

// Reduction is the relative size saving, e.g. "92.4%".
func (r Report) Reduction() string { return staging.Reduction(r.Input, r.Output) }

type Rasterizer struct {
	renderer render.Renderer
	dpi      int
	quality  int
	logger   *slog.Logger
}

func New(renderer render.Renderer, cfg common.RasterConfig, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	dpi, q := cfg.DPI, cfg.Quality
	if dpi <= 0 {
		dpi = 300
	}
	if q <= 0 {
		q = 75
	}
	return &Rasterizer{renderer: renderer, dpi: dpi, quality: q, logger: logger}
}

// Run rasterizes the crop box of every page of each -drawingno document in inDir.
func (r *Rasterizer) Run(ctx context.Context, inDir, outDir string) (Report, error) {
	start := time.Now()
	logger := common.LoggerFrom(ctx, r.logger)
	var rep Report

	files, _, err := staging.List(ctx, inDir, constants.SuffixCropped)
	if err != nil {
		return rep, err
	}
	if len(files) == 0 {
		return rep, common.NoInputError(constants.SuffixCropped + " documents in " + inDir)
	}
	if err := staging.EnsureDirs(outDir); err != nil {
		return rep, err
	}

	var outputs []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res := r.Document(ctx, f, outDir)
		rep.Attempted++
		rep.Documents = append(rep.Documents, res)
		if res.Err != nil {
			rep.Failed++
			logger.Error("raster.document.failed", "path", f, "error", res.Err)
			continue
		}
		rep.Succeeded++
		rep.Pages += res.Pages
		outputs = append(outputs, res.Output)
		logger.Info("raster.document.ok", "path", f, "output", res.Output, "pages", res.Pages)
	}

	rep.Input = staging.FilesUsage(files)
	rep.Output = staging.FilesUsage(outputs)
	rep.Duration = time.Since(start)
	logger.Info("raster.done",
		"attempted", rep.Attempted,
		"succeeded", rep.Succeeded,
		"pages", rep.Pages,
		"input", rep.Input.String(),
		"output", rep.Output.String(),
		"reduction", rep.Reduction(),
		"duration_ms", rep.Duration.Milliseconds(),
	)
	return rep, nil
}

// Document rasterizes one document. The output has exactly as many pages as the input.
func (r *Rasterizer) Document(ctx context.Context, src, outDir string) DocumentResult {
	res := DocumentResult{Source: src, Output: staging.Compose(src, outDir, constants.SuffixRasterized)}
	fail := func(err error) DocumentResult {
		res.Status, res.Err = constants.DocStatusFailed, err
		return res
	}

	want, err := pdfdoc.PageCount(src)
	if err != nil {
		return fail(err)
	}
	if want == 0 {
		res.Status, res.Err = constants.DocStatusSkipped, fmt.Errorf("%s has no pages", src)
		return res
	}
	rs, diags, err := r.renderer.RenderAll(ctx, src, render.Options{DPI: r.dpi, Quality: r.quality, CropBox: true})
	if err != nil {
		return fail(fmt.Errorf("render: %w", err))
	}
	if len(diags) > 0 {
		r.logger.Debug("raster.diagnostics", "path", src, "diagnostics", diags)
	}
	if len(rs) != want {
		return fail(fmt.Errorf("rendered %d of %d pages", len(rs), want))
	}

	imgs := make([]pdfdoc.Image, len(rs))
	for i, rr := range rs {
		imgs[i] = pdfdoc.Image{Data: rr.Data, Width: rr.Width, Height: rr.Height}
	}
	if err := pdfdoc.WriteImagesFile(res.Output, imgs, float64(r.dpi)); err != nil {
		return fail(err)
	}
	res.Pages = len(imgs)
	res.Status = constants.DocStatusOK
	return res
}
