// Package rendertest provides an in-process render.Renderer for tests.
package rendertest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"sync"

	"github.com/Alisasanian/PDFsorter/internal/pdfdoc"
	"github.com/Alisasanian/PDFsorter/internal/render"
)

// Renderer returns blank JPEG pages without running any external tool.
type Renderer struct {
	Width, Height int // pixel size of every rendered page, default 300x100

	// Pages overrides the page count RenderAll uses, keyed by file base name. Without an
	// entry the count is read from the PDF itself.
	Pages map[string]int
	// Probes is consumed one entry per Probe call; once empty, probes are clean.
	Probes [][]string
	// Fail makes renders of the named files (base name) fail.
	Fail map[string]error

	mu          sync.Mutex
	RenderCalls int
	ProbeCalls  int
}

func (r *Renderer) size() (int, int) {
	w, h := r.Width, r.Height
	if w <= 0 {
		w = 300
	}
	if h <= 0 {
		h = 100
	}
	return w, h
}

func (r *Renderer) raster(page int) (render.Raster, error) {
	w, h := r.size()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return render.Raster{}, err
	}
	return render.Raster{Page: page, Data: buf.Bytes(), Width: w, Height: h}, nil
}

func (r *Renderer) RenderPage(_ context.Context, path string, page int, _ render.Options) (render.Raster, []string, error) {
	r.mu.Lock()
	r.RenderCalls++
	r.mu.Unlock()
	if err := r.Fail[filepath.Base(path)]; err != nil {
		return render.Raster{}, nil, err
	}
	rs, err := r.raster(page)
	return rs, nil, err
}

func (r *Renderer) RenderAll(_ context.Context, path string, _ render.Options) ([]render.Raster, []string, error) {
	r.mu.Lock()
	r.RenderCalls++
	r.mu.Unlock()
	if err := r.Fail[filepath.Base(path)]; err != nil {
		return nil, nil, err
	}
	n, ok := r.Pages[filepath.Base(path)]
	if !ok {
		var err error
		if n, err = pdfdoc.PageCount(path); err != nil {
			return nil, nil, fmt.Errorf("rendertest: %w", err)
		}
	}
	out := make([]render.Raster, 0, n)
	for i := 1; i <= n; i++ {
		rs, err := r.raster(i)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, rs)
	}
	return out, nil, nil
}

func (r *Renderer) Probe(_ context.Context, _ string) (render.Outcome, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ProbeCalls++
	if len(r.Probes) == 0 {
		return render.OutcomeOK, nil
	}
	diags := r.Probes[0]
	r.Probes = r.Probes[1:]
	return render.Classify(diags), diags
}

var _ render.Renderer = (*Renderer)(nil)
