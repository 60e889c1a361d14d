package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Options controls a render.
type Options struct {
	DPI     int  // default 300
	Quality int  // JPEG quality, default 75
	CropBox bool // render only the crop box instead of the media box
}

// Raster is one rendered page.
type Raster struct {
	Page   int
	Data   []byte // JPEG
	Width  int    // pixels
	Height int
}

// Renderer rasterizes PDF pages. Diagnostics are the renderer's warning lines.
type Renderer interface {
	RenderPage(ctx context.Context, path string, page int, opts Options) (Raster, []string, error)
	RenderAll(ctx context.Context, path string, opts Options) ([]Raster, []string, error)
	Probe(ctx context.Context, path string) (Outcome, []string)
}

// Pdftoppm renders through poppler's pdftoppm.
type Pdftoppm struct {
	bin     string
	runner  Runner
	timeout time.Duration
	logger  *slog.Logger
}

// NewPdftoppm returns a renderer invoking bin (default "pdftoppm") through runner.
func NewPdftoppm(bin string, runner Runner, timeout time.Duration, logger *slog.Logger) *Pdftoppm {
	if logger == nil {
		logger = slog.Default()
	}
	if bin == "" {
		bin = "pdftoppm"
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &Pdftoppm{bin: bin, runner: runner, timeout: timeout, logger: logger}
}

const probeDPI = 18

func (p *Pdftoppm) args(path, prefix string, page int, opts Options) []string {
	dpi := opts.DPI
	if dpi <= 0 {
		dpi = 300
	}
	q := opts.Quality
	if q <= 0 {
		q = 75
	}
	args := []string{"-r", strconv.Itoa(dpi), "-jpeg", "-jpegopt", "quality=" + strconv.Itoa(q)}
	if page > 0 {
		n := strconv.Itoa(page)
		args = append(args, "-f", n, "-l", n, "-singlefile")
	}
	if opts.CropBox {
		args = append(args, "-cropbox")
	}
	return append(args, path, prefix)
}

func (p *Pdftoppm) run(ctx context.Context, args []string) ([]string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	_, errb, err := p.runner.Run(ctx, p.bin, args...)
	diags := SplitDiagnostics(errb)
	if err != nil {
		return diags, fmt.Errorf("pdftoppm: %w", err)
	}
	return diags, nil
}

// RenderPage renders one 1-based page to JPEG.
func (p *Pdftoppm) RenderPage(ctx context.Context, path string, page int, opts Options) (Raster, []string, error) {
	tmpDir, err := os.MkdirTemp("", "pdfsorter-pp-*")
	if err != nil {
		return Raster{}, nil, err
	}
	defer p.cleanup(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	diags, err := p.run(ctx, p.args(path, prefix, page, opts))
	if err != nil {
		return Raster{}, diags, err
	}
	r, err := readRaster(prefix+".jpg", page)
	return r, diags, err
}

// RenderAll renders every page of the document, in page order.
func (p *Pdftoppm) RenderAll(ctx context.Context, path string, opts Options) ([]Raster, []string, error) {
	tmpDir, err := os.MkdirTemp("", "pdfsorter-pp-*")
	if err != nil {
		return nil, nil, err
	}
	defer p.cleanup(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	diags, err := p.run(ctx, p.args(path, prefix, 0, opts))
	if err != nil {
		return nil, diags, err
	}

	// prefix-1.jpg ... or zero padded prefix-01.jpg ...; padding keeps lexical order
	matches, _ := filepath.Glob(prefix + "-*.jpg")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, diags, fmt.Errorf("pdftoppm produced no images for %s", path)
	}
	out := make([]Raster, 0, len(matches))
	for i, m := range matches {
		num := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), "page-"), ".jpg")
		page, err := strconv.Atoi(num)
		if err != nil {
			page = i + 1
		}
		r, err := readRaster(m, page)
		if err != nil {
			return nil, diags, err
		}
		out = append(out, r)
	}
	return out, diags, nil
}

// Probe renders every page inside its crop box at a tiny resolution and classifies the
// diagnostics of the whole pass. A document the renderer cannot open also needs flattening.
func (p *Pdftoppm) Probe(ctx context.Context, path string) (Outcome, []string) {
	tmpDir, err := os.MkdirTemp("", "pdfsorter-probe-*")
	if err != nil {
		return OutcomeFatal, []string{err.Error()}
	}
	defer p.cleanup(tmpDir)

	diags, err := p.run(ctx, p.args(path, filepath.Join(tmpDir, "page"), 0, Options{DPI: probeDPI, CropBox: true}))
	if err != nil {
		p.logger.Warn("probe render failed", "path", path, "error", err)
		return OutcomeNeedsFlatten, append(diags, err.Error())
	}
	return Classify(diags), diags
}

func (p *Pdftoppm) cleanup(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		p.logger.Warn("failed to remove temp dir", "dir", dir, "error", err)
	}
}

func readRaster(path string, page int) (Raster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Raster{}, fmt.Errorf("read rendered page: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Raster{}, fmt.Errorf("decode rendered page: %w", err)
	}
	return Raster{Page: page, Data: data, Width: cfg.Width, Height: cfg.Height}, nil
}
