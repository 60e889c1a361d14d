package crop

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Alisasanian/PDFsorter/constants"
	"github.com/Alisasanian/PDFsorter/internal/common"
	"github.com/Alisasanian/PDFsorter/internal/pdfdoc"
	"github.com/Alisasanian/PDFsorter/internal/render"
	"github.com/Alisasanian/PDFsorter/internal/staging"
)

// FlattenDir is the sub-directory of the crop output holding flattened intermediates.
const FlattenDir = "flattened"

var errEmptyDocument = errors.New("document has no pages")

// DocumentResult is the outcome for one input document.
type DocumentResult struct {
	Source      string
	Output      string
	Status      constants.DocStatus
	Outcome     render.Outcome
	Pages       int
	Diagnostics []string
	Err         error
}

// Report accumulates the stage counters.
type Report struct {
	Attempted int
	Succeeded int
	Flattened int
	Skipped   int
	Failed    int
	Pages     int
	Documents []DocumentResult
	Duration  time.Duration
}

func (r *Report) add(res DocumentResult) {
	r.Attempted++
	r.Documents = append(r.Documents, res)
	switch res.Status {
	case constants.DocStatusOK:
		r.Succeeded++
		r.Pages += res.Pages
	case constants.DocStatusFlattened:
		r.Succeeded++
		r.Flattened++
		r.Pages += res.Pages
	case constants.DocStatusSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

// Cropper applies a Strategy to every page and recovers damaged documents by flattening.
type Cropper struct {
	strategy      Strategy
	renderer      render.Renderer
	flattenDPI    int
	probe         bool
	keepFlattened bool
	logger        *slog.Logger
}

type Option func(*Cropper)

// WithFlattenDPI sets the resolution damaged documents are rasterized at.
func WithFlattenDPI(dpi int) Option {
	return func(c *Cropper) {
		if dpi > 0 {
			c.flattenDPI = dpi
		}
	}
}

// WithProbe toggles the post-crop probe render.
func WithProbe(on bool) Option {
	return func(c *Cropper) { c.probe = on }
}

// WithKeepFlattened keeps the -bwoken intermediates instead of removing them.
func WithKeepFlattened(keep bool) Option {
	return func(c *Cropper) { c.keepFlattened = keep }
}

func New(strategy Strategy, renderer render.Renderer, logger *slog.Logger, opts ...Option) *Cropper {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cropper{
		strategy:   strategy,
		renderer:   renderer,
		flattenDPI: 300,
		probe:      true,
		logger:     logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run crops every PDF in inDir into outDir. Only a missing input is an error; document
// failures are recorded in the report.
func (c *Cropper) Run(ctx context.Context, inDir, outDir string) (Report, error) {
	start := time.Now()
	var rep Report
	files, _, err := staging.List(ctx, inDir, "")
	if err != nil {
		return rep, err
	}
	if len(files) == 0 {
		return rep, common.NoInputError("pdf files in " + inDir)
	}
	if err := staging.EnsureDirs(outDir); err != nil {
		return rep, err
	}
	logger := common.LoggerFrom(ctx, c.logger)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res := c.CropDocument(ctx, f, outDir)
		rep.add(res)
		if res.Err != nil {
			logger.Error("crop.document.failed", "path", f, "status", res.Status, "outcome", res.Outcome, "error", res.Err)
			continue
		}
		logger.Info("crop.document.ok", "path", f, "output", res.Output, "pages", res.Pages, "status", res.Status)
	}
	rep.Duration = time.Since(start)
	logger.Info("crop.done",
		"attempted", rep.Attempted,
		"succeeded", rep.Succeeded,
		"flattened", rep.Flattened,
		"failed", rep.Failed,
		"pages", rep.Pages,
		"duration_ms", rep.Duration.Milliseconds(),
	)
	return rep, nil
}

// CropDocument crops src into outDir, creating it if needed, and flattens and retries
// once when the first attempt reports damage. I/O failures are fatal, never flattened.
func (c *Cropper) CropDocument(ctx context.Context, src, outDir string) DocumentResult {
	out := staging.Compose(src, outDir, constants.SuffixCropped)
	res := DocumentResult{Source: src, Output: out}
	if err := staging.EnsureDirs(outDir); err != nil {
		res.Outcome, res.Status, res.Err = render.OutcomeFatal, constants.DocStatusFailed, err
		return res
	}

	outcome, pages, diags, err := c.cropOnce(ctx, src, out)
	res.Diagnostics = diags
	if outcome == render.OutcomeNeedsFlatten {
		c.logger.Warn("crop.flatten", "path", src, "diagnostics", diags, "error", err)
		outcome, pages, err = c.retryFlattened(ctx, src, out, outDir, &res)
		if outcome == render.OutcomeOK {
			res.Status = constants.DocStatusFlattened
		}
	} else if outcome == render.OutcomeOK {
		res.Status = constants.DocStatusOK
	}

	res.Outcome = outcome
	res.Pages = pages
	res.Err = err
	if outcome == render.OutcomeFatal {
		res.Status = constants.DocStatusFailed
		if errors.Is(err, errEmptyDocument) {
			res.Status = constants.DocStatusSkipped
		}
	}
	return res
}

func (c *Cropper) retryFlattened(ctx context.Context, src, out, outDir string, res *DocumentResult) (render.Outcome, int, error) {
	flat, err := c.flatten(ctx, src, filepath.Join(outDir, FlattenDir))
	if err != nil {
		return render.OutcomeFatal, 0, fmt.Errorf("flatten: %w", err)
	}
	if !c.keepFlattened {
		defer func() {
			if err := os.Remove(flat); err != nil {
				c.logger.Warn("failed to remove flattened document", "path", flat, "error", err)
			}
		}()
	}
	outcome, pages, diags, err := c.cropOnce(ctx, flat, out)
	res.Diagnostics = append(res.Diagnostics, diags...)
	if outcome == render.OutcomeNeedsFlatten {
		_ = os.Remove(out)
		if err == nil {
			err = errors.New("document still damaged after flattening")
		}
		return render.OutcomeFatal, 0, err
	}
	return outcome, pages, err
}

// cropOnce sets the crop box of every page of src and writes the result to out.
func (c *Cropper) cropOnce(ctx context.Context, src, out string) (render.Outcome, int, []string, error) {
	doc, err := pdfdoc.Open(src)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return render.OutcomeFatal, 0, nil, err
	}
	if err != nil {
		return render.OutcomeNeedsFlatten, 0, []string{err.Error()}, err
	}
	n := doc.PageCount()
	if n == 0 {
		return render.OutcomeFatal, 0, nil, errEmptyDocument
	}
	if err := doc.Validate(); err != nil {
		return render.OutcomeNeedsFlatten, n, []string{err.Error()}, err
	}

	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return render.OutcomeFatal, 0, nil, err
		}
		p, err := doc.Page(i)
		if err != nil {
			return render.OutcomeNeedsFlatten, n, []string{err.Error()}, err
		}
		r, err := c.strategy.Rect(p.MediaBox)
		if err != nil {
			return render.OutcomeNeedsFlatten, n, []string{fmt.Sprintf("page %d: %v", i, err)}, err
		}
		if err := doc.SetCropBox(i, r); err != nil {
			return render.OutcomeNeedsFlatten, n, []string{err.Error()}, err
		}
	}
	if err := doc.Write(out); err != nil {
		_ = os.Remove(out)
		return render.OutcomeFatal, 0, nil, err
	}

	if !c.probe {
		return render.OutcomeOK, n, nil, nil
	}
	outcome, diags := c.renderer.Probe(ctx, out)
	if outcome != render.OutcomeOK {
		_ = os.Remove(out)
	}
	return outcome, n, diags, nil
}

// flatten rasterizes every page of src and rebuilds it as an image-only document in dir.
func (c *Cropper) flatten(ctx context.Context, src, dir string) (string, error) {
	rs, diags, err := c.renderer.RenderAll(ctx, src, render.Options{DPI: c.flattenDPI})
	if err != nil {
		return "", fmt.Errorf("render %s: %w (diagnostics: %v)", src, err, diags)
	}
	imgs := make([]pdfdoc.Image, len(rs))
	for i, r := range rs {
		imgs[i] = pdfdoc.Image{Data: r.Data, Width: r.Width, Height: r.Height}
	}
	if err := staging.EnsureDirs(dir); err != nil {
		return "", err
	}
	flat := staging.Compose(src, dir, constants.SuffixFlattened)
	if err := pdfdoc.WriteImagesFile(flat, imgs, float64(c.flattenDPI)); err != nil {
		return "", err
	}
	c.logger.Info("crop.flattened", "path", src, "output", flat, "pages", len(imgs), "dpi", c.flattenDPI)
	return flat, nil
}
