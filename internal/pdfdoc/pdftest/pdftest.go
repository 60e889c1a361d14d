// Package pdftest writes small real PDFs for tests.
package pdftest

import (
	"bytes"
	"image"
	"image/jpeg"
	"path/filepath"
	"testing"

	"codeberg.org/go-pdf/fpdf"
)

// Letter is a US letter page in points.
var Letter = fpdf.SizeType{Wd: 612, Ht: 792}

// WritePDF writes a document with one page per text, all of the given size, and returns its path.
func WritePDF(t testing.TB, dir, name string, size fpdf.SizeType, texts ...string) string {
	t.Helper()
	pdf := fpdf.New("P", "pt", "", "")
	pdf.SetAutoPageBreak(false, 0)
	for _, txt := range texts {
		pdf.AddPageFormat("P", size)
		pdf.SetFont("Helvetica", "", 12)
		pdf.Text(size.Wd*0.86, size.Ht*0.95, txt)
	}
	path := filepath.Join(dir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// JPEG returns a white JPEG of w x h pixels.
func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}
