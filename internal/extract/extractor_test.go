package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/Alisasanian/PDFsorter/internal/common"
	"github.com/Alisasanian/PDFsorter/internal/dataset"
	"github.com/Alisasanian/PDFsorter/internal/ocr"
	"github.com/Alisasanian/PDFsorter/internal/pdfdoc/pdftest"
	"github.com/Alisasanian/PDFsorter/internal/render/rendertest"
)

// scripted returns one canned text per call; an empty string fails the call.
type scripted struct {
	mu     sync.Mutex
	family ocr.Family
	texts  []string
	mimes  []string
}

func (s *scripted) Name() string       { return "scripted" }
func (s *scripted) Family() ocr.Family { return s.family }

func (s *scripted) Recognize(_ context.Context, img ocr.Image) (ocr.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mimes = append(s.mimes, img.MIMEType)
	if len(s.texts) == 0 {
		return ocr.Result{}, errors.New("no more pages")
	}
	t := s.texts[0]
	s.texts = s.texts[1:]
	if t == "" {
		return ocr.Result{}, errors.New("engine crashed")
	}
	return ocr.Result{Fragments: []string{t}, Text: t}, nil
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "rasterized")
	out := filepath.Join(dir, "dataset")
	if err := os.Mkdir(in, 0o755); err != nil {
		t.Fatal(err)
	}

	rec := &scripted{family: ocr.FamilyTesseract}
	e := New(rec, &rendertest.Renderer{}, common.OCRConfig{}, nil)
	if _, err := e.Run(context.Background(), in, out); !errors.Is(err, common.ErrNoInput) {
		t.Fatalf("no input: %v", err)
	}

	pdftest.WritePDF(t, in, "combined-drawingnoimage.pdf", pdftest.Letter, "1", "2", "3", "4")
	pdftest.WritePDF(t, in, "plans-drawingnoimage.pdf", pdftest.Letter, "1")
	rec.texts = []string{
		"DRAWING NO: AG.O21.O2",
		"GENERAL NOTES",
		"",
		"DRAWING NO: GO1.02",
		"DRAWING NO: M1.01",
	}
	rep, err := e.Run(context.Background(), in, out)
	if err != nil {
		t.Fatal(err)
	}
	if rep.DocumentsAttempted != 2 || rep.DocumentsSucceeded != 2 || rep.Pages != 5 ||
		rep.OCRFailures != 1 || rep.Found != 3 || rep.Priority != 2 {
		t.Errorf("report = %+v", rep)
	}

	want := []dataset.Record{
		{PDFName: "combined", Page: 1, DrawingNumber: "AG.021.02", Priority: true},
		{PDFName: "combined", Page: 2},
		{PDFName: "combined", Page: 4, DrawingNumber: "G1.02", Priority: true},
		{PDFName: "plans", Page: 1, DrawingNumber: "M1.01"},
	}
	if !reflect.DeepEqual(rep.Records, want) {
		t.Errorf("records = %+v", rep.Records)
	}

	got, err := dataset.ReadCSVFile(filepath.Join(out, "combined_data", "combined_drawing_numbers_dataset.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("combined csv = %+v", got)
	}
	for _, name := range []string{"combined_drawing_numbers_dataset.csv", "plans_drawing_numbers_dataset_unsorted.csv"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("per-document dataset: %v", err)
		}
	}
}

func TestDocumentPreprocessAndFamily(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.WritePDF(t, dir, "x-drawingnoimage.pdf", pdftest.Letter, "1")

	rec := &scripted{family: ocr.FamilyCloud, texts: []string{"DRAWING NO: GO1.02"}}
	e := New(rec, &rendertest.Renderer{Width: 50, Height: 20}, common.OCRConfig{Preprocess: true, MinSide: 100}, nil)
	res := e.Document(context.Background(), src)
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	// no tesseract fixups for other engine families
	if len(res.Records) != 1 || res.Records[0].DrawingNumber != "G01.02" {
		t.Errorf("records = %+v", res.Records)
	}
	if !reflect.DeepEqual(rec.mimes, []string{"image/png"}) {
		t.Errorf("recognizer saw %v", rec.mimes)
	}
}

func TestDocumentRenderFailure(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.WritePDF(t, dir, "y-drawingnoimage.pdf", pdftest.Letter, "1", "2")
	fake := &rendertest.Renderer{Fail: map[string]error{"y-drawingnoimage.pdf": errors.New("boom")}}
	res := New(&scripted{}, fake, common.OCRConfig{}, nil).Document(context.Background(), src)
	if res.Err != nil || res.Pages != 2 || res.OCRFailures != 2 || len(res.Records) != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestRunSkipsEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "rasterized")
	out := filepath.Join(dir, "dataset")
	if err := os.Mkdir(in, 0o755); err != nil {
		t.Fatal(err)
	}
	pdftest.WritePDF(t, in, "blank-drawingnoimage.pdf", pdftest.Letter, "1")
	pdftest.WritePDF(t, in, "plans-drawingnoimage.pdf", pdftest.Letter, "1")

	rec := &scripted{family: ocr.FamilyCloud, texts: []string{"DRAWING NO: M1.01"}}
	r := &rendertest.Renderer{}
	e := New(rec, r, common.OCRConfig{}, nil)
	e.pageCount = func(path string) (int, error) {
		if filepath.Base(path) == "blank-drawingnoimage.pdf" {
			return 0, nil
		}
		return 1, nil
	}

	rep, err := e.Run(context.Background(), in, out)
	if err != nil {
		t.Fatal(err)
	}
	if rep.DocumentsAttempted != 2 || rep.DocumentsSucceeded != 1 || rep.DocumentsSkipped != 1 || rep.Pages != 1 {
		t.Errorf("report = %+v", rep)
	}
	if r.RenderCalls != 1 {
		t.Errorf("render calls = %d, want 1", r.RenderCalls)
	}
	if _, err := os.Stat(filepath.Join(out, "blank_drawing_numbers_dataset_unsorted.csv")); !os.IsNotExist(err) {
		t.Errorf("empty document wrote a dataset, stat err = %v", err)
	}
	want := []dataset.Record{{PDFName: "plans", Page: 1, DrawingNumber: "M1.01"}}
	if !reflect.DeepEqual(rep.Records, want) {
		t.Errorf("records = %+v", rep.Records)
	}
}
