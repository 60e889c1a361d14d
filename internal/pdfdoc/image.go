package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"codeberg.org/go-pdf/fpdf"
)

// PointsPerInch is the PDF user-space resolution.
const PointsPerInch = 72.0

// Image is a page image to embed.
type Image struct {
	Data   []byte
	Width  int    // pixels
	Height int    // pixels
	Type   string // fpdf image type, "JPG" by default
}

// PageSize converts a pixel size rendered at dpi back to points.
func PageSize(px int, dpi float64) float64 {
	return float64(px) * PointsPerInch / dpi
}

// WriteImages writes a document with one page per image, each page sized to the
// physical size of its image at dpi. No vector or text content is kept.
func WriteImages(w io.Writer, images []Image, dpi float64) error {
	if len(images) == 0 {
		return errors.New("image document: no images")
	}
	if dpi <= 0 {
		dpi = 300
	}
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	for i, img := range images {
		if img.Width <= 0 || img.Height <= 0 {
			return fmt.Errorf("image %d: invalid size %dx%d", i+1, img.Width, img.Height)
		}
		pw, ph := PageSize(img.Width, dpi), PageSize(img.Height, dpi)
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: pw, Ht: ph})

		typ := img.Type
		if typ == "" {
			typ = "JPG"
		}
		name := fmt.Sprintf("page-%d", i+1)
		opts := fpdf.ImageOptions{ImageType: typ}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
		pdf.ImageOptions(name, 0, 0, pw, ph, false, opts, 0, "")
		if pdf.Err() {
			return fmt.Errorf("image %d: %w", i+1, pdf.Error())
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("image document: %w", err)
	}
	return nil
}

// WriteImagesFile writes the image document to path.
func WriteImagesFile(path string, images []Image, dpi float64) error {
	var buf bytes.Buffer
	if err := WriteImages(&buf, images, dpi); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
