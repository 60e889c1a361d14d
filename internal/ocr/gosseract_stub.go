//go:build !ocr

package ocr

import (
	"context"

	"github.com/Alisasanian/PDFsorter/internal/common"
)

// Gosseract is unavailable without the ocr build tag.
type Gosseract struct{}

func NewGosseract(common.OCRConfig) (*Gosseract, error) {
	return nil, ErrOCRNotEnabled
}

func (g *Gosseract) Name() string   { return EngineGosseract }
func (g *Gosseract) Family() Family { return FamilyTesseract }

func (g *Gosseract) Recognize(context.Context, Image) (Result, error) {
	return Result{}, ErrOCRNotEnabled
}
