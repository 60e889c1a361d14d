package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// Preprocess converts img to grayscale PNG, upscaling it so its shorter side is at
// least minSide pixels. minSide <= 0 disables upscaling.
func Preprocess(img Image, minSide int) (Image, error) {
	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return Image{}, fmt.Errorf("decode page image: %w", err)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return Image{}, fmt.Errorf("empty page image")
	}

	scale := 1.0
	if short := min(w, h); minSide > 0 && short < minSide {
		scale = float64(minSide) / float64(short)
	}
	dw, dh := int(float64(w)*scale+0.5), int(float64(h)*scale+0.5)

	dst := image.NewGray(image.Rect(0, 0, dw, dh))
	if scale == 1 {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return Image{}, fmt.Errorf("encode page image: %w", err)
	}
	return Image{Data: buf.Bytes(), MIMEType: "image/png"}, nil
}
