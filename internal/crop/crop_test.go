package crop

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/go-pdf/fpdf"

	"github.com/Alisasanian/PDFsorter/constants"
	"github.com/Alisasanian/PDFsorter/internal/common"
	"github.com/Alisasanian/PDFsorter/internal/pdfdoc"
	"github.com/Alisasanian/PDFsorter/internal/pdfdoc/pdftest"
	"github.com/Alisasanian/PDFsorter/internal/render"
	"github.com/Alisasanian/PDFsorter/internal/render/rendertest"
)

func boxNear(a, b pdfdoc.Box) bool {
	const eps = 1e-6
	return math.Abs(a.LLX-b.LLX) < eps && math.Abs(a.LLY-b.LLY) < eps &&
		math.Abs(a.URX-b.URX) < eps && math.Abs(a.URY-b.URY) < eps
}

func TestStrategyRect(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		mb       pdfdoc.Box
		want     pdfdoc.Box
	}{
		{
			name:     "expanded zero origin",
			strategy: Expanded,
			mb:       pdfdoc.Box{URX: 1000, URY: 800},
			want:     pdfdoc.Box{LLX: 850, LLY: 8, URX: 990, URY: 120},
		},
		{
			name:     "expanded center origin",
			strategy: Expanded,
			mb:       pdfdoc.Box{LLX: -500, LLY: -400, URX: 500, URY: 400},
			want:     pdfdoc.Box{LLX: 400, LLY: -392, URX: 495, URY: -320},
		},
		{
			name:     "narrow zero origin",
			strategy: Narrow,
			mb:       pdfdoc.Box{URX: 1000, URY: 1000},
			want:     pdfdoc.Box{LLX: 930, LLY: 10, URX: 990, URY: 80},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.strategy.Rect(tt.mb)
			if err != nil {
				t.Fatalf("Rect: %v", err)
			}
			if !boxNear(got, tt.want) {
				t.Errorf("Rect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStrategyRectInvalid(t *testing.T) {
	// origin negative on one axis only: the zero-origin formula lands left of the media box
	mb := pdfdoc.Box{LLX: -1000, LLY: 0, URX: -10, URY: 800}
	if _, err := Expanded.Rect(mb); !errors.Is(err, ErrInvalidRect) {
		t.Errorf("want ErrInvalidRect, got %v", err)
	}
	if _, err := Expanded.Rect(pdfdoc.Box{}); !errors.Is(err, ErrInvalidRect) {
		t.Errorf("empty media box: want ErrInvalidRect, got %v", err)
	}
}

func TestStrategyFromConfig(t *testing.T) {
	s, err := StrategyFromConfig(common.CropConfig{Strategy: "narrow"})
	if err != nil || s.Name != "narrow" {
		t.Fatalf("narrow: %v %v", s.Name, err)
	}
	s, err = StrategyFromConfig(common.CropConfig{
		Strategy:     "custom",
		CenterOrigin: [4]float64{0.1, 0.2, 0.3, 0.4},
		ZeroOrigin:   [4]float64{0.5, 0.6, 0.7, 0.8},
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.ZeroOrigin != (Fractions{X0: 0.5, Y0: 0.6, X1: 0.7, Y1: 0.8}) {
		t.Errorf("custom zero origin = %+v", s.ZeroOrigin)
	}
	if _, err := StrategyFromConfig(common.CropConfig{Strategy: "wide"}); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("unknown strategy: %v", err)
	}
}

func TestCropDocumentClean(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.WritePDF(t, dir, "combined.pdf", fpdf.SizeType{Wd: 1000, Ht: 800}, "DRAWING NO: A1.01", "DRAWING NO: A1.02")
	out := filepath.Join(dir, "cropped")
	if err := os.Mkdir(out, 0o755); err != nil {
		t.Fatal(err)
	}

	r := &rendertest.Renderer{}
	res := New(Expanded, r, nil).CropDocument(context.Background(), src, out)
	if res.Err != nil {
		t.Fatalf("CropDocument: %v", res.Err)
	}
	if res.Status != constants.DocStatusOK || res.Outcome != render.OutcomeOK || res.Pages != 2 {
		t.Errorf("result = %+v", res)
	}
	if want := filepath.Join(out, "combined-drawingno.pdf"); res.Output != want {
		t.Errorf("output = %q, want %q", res.Output, want)
	}
	if r.ProbeCalls != 1 || r.RenderCalls != 0 {
		t.Errorf("probe calls = %d, render calls = %d", r.ProbeCalls, r.RenderCalls)
	}

	doc, err := pdfdoc.Open(res.Output)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 2; i++ {
		p, err := doc.Page(i)
		if err != nil {
			t.Fatal(err)
		}
		want := pdfdoc.Box{LLX: 850, LLY: 8, URX: 990, URY: 120}
		if p.CropBox == nil || math.Abs(p.CropBox.LLX-want.LLX) > 0.01 || math.Abs(p.CropBox.URY-want.URY) > 0.01 {
			t.Errorf("page %d crop box = %v, want %v", i, p.CropBox, want)
		}
	}
}

func TestCropDocumentFlattensOnDiagnostics(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.WritePDF(t, dir, "plans.pdf", pdftest.Letter, "one", "two", "three")
	out := filepath.Join(dir, "cropped")

	r := &rendertest.Renderer{Width: 600, Height: 900, Probes: [][]string{{"Syntax Error (12): Illegal character"}}}
	res := New(Expanded, r, nil, WithFlattenDPI(150)).CropDocument(context.Background(), src, out)
	if res.Err != nil {
		t.Fatalf("CropDocument: %v", res.Err)
	}
	if res.Status != constants.DocStatusFlattened || res.Pages != 3 {
		t.Errorf("result = %+v", res)
	}
	if r.ProbeCalls != 2 || r.RenderCalls != 1 {
		t.Errorf("probe calls = %d, render calls = %d, want 2 and 1", r.ProbeCalls, r.RenderCalls)
	}
	n, err := pdfdoc.PageCount(res.Output)
	if err != nil || n != 3 {
		t.Fatalf("output pages = %d, %v", n, err)
	}
	doc, err := pdfdoc.Open(res.Output)
	if err != nil {
		t.Fatal(err)
	}
	p, err := doc.Page(1)
	if err != nil {
		t.Fatal(err)
	}
	// rebuilt from a 600x900 px image at 150 dpi
	if math.Abs(p.MediaBox.Width()-288) > 0.01 || math.Abs(p.MediaBox.Height()-432) > 0.01 {
		t.Errorf("flattened media box = %v", p.MediaBox)
	}
	if _, err := os.Stat(filepath.Join(out, FlattenDir, "plans-bwoken.pdf")); !os.IsNotExist(err) {
		t.Errorf("flattened intermediate should be removed, stat err = %v", err)
	}
}

func TestCropDocumentRecoversUnreadable(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.pdf")
	if err := os.WriteFile(src, []byte("%PDF-1.4\nthis is not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "cropped")

	r := &rendertest.Renderer{Pages: map[string]int{"broken.pdf": 2}}
	res := New(Narrow, r, nil, WithKeepFlattened(true)).CropDocument(context.Background(), src, out)
	if res.Err != nil {
		t.Fatalf("CropDocument: %v", res.Err)
	}
	if res.Status != constants.DocStatusFlattened || res.Pages != 2 {
		t.Errorf("result = %+v", res)
	}
	if _, err := os.Stat(filepath.Join(out, FlattenDir, "broken-bwoken.pdf")); err != nil {
		t.Errorf("kept intermediate missing: %v", err)
	}
}

func TestCropDocumentFatalAfterRetry(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.WritePDF(t, dir, "bad.pdf", pdftest.Letter, "x")
	out := filepath.Join(dir, "cropped")

	bad := []string{"Internal Error: xref"}
	r := &rendertest.Renderer{Probes: [][]string{bad, bad}}
	res := New(Expanded, r, nil).CropDocument(context.Background(), src, out)
	if res.Outcome != render.OutcomeFatal || res.Status != constants.DocStatusFailed || res.Err == nil {
		t.Fatalf("result = %+v", res)
	}
	if r.ProbeCalls != 2 || r.RenderCalls != 1 {
		t.Errorf("probe calls = %d, render calls = %d, want 2 and 1", r.ProbeCalls, r.RenderCalls)
	}
	if _, err := os.Stat(res.Output); !os.IsNotExist(err) {
		t.Errorf("failed output should not exist, stat err = %v", err)
	}

	r = &rendertest.Renderer{Pages: map[string]int{}, Fail: map[string]error{"gone.pdf": errors.New("boom")}}
	garbage := filepath.Join(dir, "gone.pdf")
	if err := os.WriteFile(garbage, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	res = New(Expanded, r, nil).CropDocument(context.Background(), garbage, out)
	if res.Outcome != render.OutcomeFatal {
		t.Errorf("unrenderable document outcome = %v", res.Outcome)
	}
}

func TestCropDocumentCreatesMissingOutDir(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.WritePDF(t, dir, "plans.pdf", pdftest.Letter, "one", "two")
	out := filepath.Join(dir, "not", "yet", "cropped")

	r := &rendertest.Renderer{}
	res := New(Expanded, r, nil).CropDocument(context.Background(), src, out)
	if res.Err != nil {
		t.Fatalf("CropDocument: %v", res.Err)
	}
	if res.Status != constants.DocStatusOK || res.Pages != 2 {
		t.Errorf("result = %+v", res)
	}
	if r.RenderCalls != 0 {
		t.Errorf("clean document was rasterized: %d render calls", r.RenderCalls)
	}
}

func TestCropDocumentWriteFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.WritePDF(t, dir, "plans.pdf", pdftest.Letter, "one", "two")
	out := filepath.Join(dir, "cropped")
	// a directory where the cropped file belongs makes the write fail
	if err := os.MkdirAll(filepath.Join(out, "plans-drawingno.pdf"), 0o755); err != nil {
		t.Fatal(err)
	}

	r := &rendertest.Renderer{}
	res := New(Expanded, r, nil).CropDocument(context.Background(), src, out)
	if res.Outcome != render.OutcomeFatal || res.Status != constants.DocStatusFailed || res.Err == nil {
		t.Fatalf("result = %+v", res)
	}
	if r.RenderCalls != 0 || r.ProbeCalls != 0 {
		t.Errorf("write failure led to render calls = %d, probe calls = %d", r.RenderCalls, r.ProbeCalls)
	}
	if _, err := os.Stat(filepath.Join(out, FlattenDir)); !os.IsNotExist(err) {
		t.Errorf("flatten dir should not exist, stat err = %v", err)
	}

	// an output location that cannot be a directory
	blocked := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocked, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	res = New(Expanded, r, nil).CropDocument(context.Background(), src, blocked)
	if res.Outcome != render.OutcomeFatal || res.Err == nil {
		t.Errorf("unusable out dir: result = %+v", res)
	}
}

func TestCropDocumentMissingSourceIsFatal(t *testing.T) {
	dir := t.TempDir()
	r := &rendertest.Renderer{}
	res := New(Expanded, r, nil).CropDocument(context.Background(), filepath.Join(dir, "gone.pdf"), filepath.Join(dir, "cropped"))
	if res.Outcome != render.OutcomeFatal || !errors.Is(res.Err, os.ErrNotExist) {
		t.Fatalf("result = %+v", res)
	}
	if r.RenderCalls != 0 {
		t.Errorf("missing source was flattened")
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "combined")
	out := filepath.Join(dir, "cropped")
	if err := os.Mkdir(in, 0o755); err != nil {
		t.Fatal(err)
	}

	c := New(Expanded, &rendertest.Renderer{}, nil)
	if _, err := c.Run(context.Background(), in, out); !errors.Is(err, common.ErrNoInput) {
		t.Fatalf("empty input: want ErrNoInput, got %v", err)
	}

	pdftest.WritePDF(t, in, "combined.pdf", pdftest.Letter, "a", "b")
	if err := os.WriteFile(filepath.Join(in, "junk.pdf"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	c = New(Expanded, &rendertest.Renderer{Fail: map[string]error{"junk.pdf": errors.New("cannot render")}}, nil)
	rep, err := c.Run(context.Background(), in, out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Attempted != 2 || rep.Succeeded != 1 || rep.Failed != 1 || rep.Pages != 2 {
		t.Errorf("report = %+v", rep)
	}
}
