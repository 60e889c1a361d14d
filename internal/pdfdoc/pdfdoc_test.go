package pdfdoc_test

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"codeberg.org/go-pdf/fpdf"

	"github.com/Alisasanian/PDFsorter/internal/pdfdoc"
	"github.com/Alisasanian/PDFsorter/internal/pdfdoc/pdftest"
)

func near(a, b float64) bool { return math.Abs(a-b) < 0.01 }

func TestOpenAndCrop(t *testing.T) {
	dir := t.TempDir()
	in := pdftest.WritePDF(t, dir, "in.pdf", fpdf.SizeType{Wd: 1000, Ht: 800}, "DRAWING NO: A1.01", "DRAWING NO: A1.02")

	doc, err := pdfdoc.Open(in)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if doc.PageCount() != 2 {
		t.Fatalf("PageCount = %d", doc.PageCount())
	}
	p, err := doc.Page(1)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if !near(p.MediaBox.Width(), 1000) || !near(p.MediaBox.Height(), 800) {
		t.Errorf("media box = %v", p.MediaBox)
	}

	crop := pdfdoc.Box{LLX: 850, LLY: 8, URX: 990, URY: 120}
	if err := doc.SetCropBox(1, crop); err != nil {
		t.Fatalf("SetCropBox: %v", err)
	}
	out := filepath.Join(dir, "out.pdf")
	if err := doc.Write(out); err != nil {
		t.Fatalf("Write: %v", err)
	}

	again, err := pdfdoc.Open(out)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	p, err = again.Page(1)
	if err != nil {
		t.Fatal(err)
	}
	if p.CropBox == nil || !near(p.CropBox.LLX, 850) || !near(p.CropBox.URY, 120) {
		t.Errorf("crop box = %v", p.CropBox)
	}
	if p.Rotate != 0 {
		t.Errorf("rotate = %d", p.Rotate)
	}
}

func TestMergeAndCollect(t *testing.T) {
	dir := t.TempDir()
	a := pdftest.WritePDF(t, dir, "a.pdf", pdftest.Letter, "1", "2")
	b := pdftest.WritePDF(t, dir, "b.pdf", pdftest.Letter, "3", "4", "5")

	merged := filepath.Join(dir, "merged.pdf")
	if err := pdfdoc.Merge([]string{a, b}, merged); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if n, err := pdfdoc.PageCount(merged); err != nil || n != 5 {
		t.Fatalf("merged pages = %d, %v", n, err)
	}

	picked := filepath.Join(dir, "picked.pdf")
	if err := pdfdoc.Collect(merged, picked, []int{5, 1, 5}); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if n, err := pdfdoc.PageCount(picked); err != nil || n != 3 {
		t.Fatalf("picked pages = %d, %v", n, err)
	}

	if err := pdfdoc.Merge(nil, merged); err == nil {
		t.Error("Merge(nil) should fail")
	}
	if err := pdfdoc.Collect(merged, picked, nil); err == nil {
		t.Error("Collect(nil) should fail")
	}
}

func TestWriteImages(t *testing.T) {
	img := pdftest.JPEG(t, 600, 300)
	var buf bytes.Buffer
	err := pdfdoc.WriteImages(&buf, []pdfdoc.Image{
		{Data: img, Width: 600, Height: 300},
		{Data: img, Width: 600, Height: 300},
	}, 300)
	if err != nil {
		t.Fatalf("WriteImages: %v", err)
	}

	path := filepath.Join(t.TempDir(), "img.pdf")
	if err := pdfdoc.WriteImagesFile(path, []pdfdoc.Image{{Data: img, Width: 600, Height: 300}}, 300); err != nil {
		t.Fatalf("WriteImagesFile: %v", err)
	}
	doc, err := pdfdoc.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	p, err := doc.Page(1)
	if err != nil {
		t.Fatal(err)
	}
	// 600px at 300dpi is two inches
	if !near(p.MediaBox.Width(), 144) || !near(p.MediaBox.Height(), 72) {
		t.Errorf("media box = %v", p.MediaBox)
	}

	if err := pdfdoc.WriteImages(&buf, nil, 300); err == nil {
		t.Error("no images should fail")
	}
}

func TestBoxIntersect(t *testing.T) {
	a := pdfdoc.Box{LLX: 0, LLY: 0, URX: 100, URY: 100}
	b := pdfdoc.Box{LLX: 50, LLY: -10, URX: 150, URY: 40}
	got := a.Intersect(b)
	if got != (pdfdoc.Box{LLX: 50, LLY: 0, URX: 100, URY: 40}) {
		t.Errorf("Intersect = %v", got)
	}
	if !a.Intersect(pdfdoc.Box{LLX: 200, LLY: 200, URX: 300, URY: 300}).Empty() {
		t.Error("disjoint boxes should intersect empty")
	}
}
