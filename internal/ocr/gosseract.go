//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/Alisasanian/PDFsorter/internal/common"
)

// Gosseract recognizes text through the tesseract C API. Build with -tags ocr.
type Gosseract struct {
	cfg           common.OCRConfig
	clientFactory func() *gosseract.Client
}

func NewGosseract(cfg common.OCRConfig) (*Gosseract, error) {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	return &Gosseract{cfg: cfg, clientFactory: gosseract.NewClient}, nil
}

func (g *Gosseract) Name() string   { return EngineGosseract }
func (g *Gosseract) Family() Family { return FamilyTesseract }

func (g *Gosseract) Recognize(ctx context.Context, img Image) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	c := g.clientFactory()
	defer c.Close()

	if g.cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(g.cfg.TessdataDir); err != nil {
			return Result{}, fmt.Errorf("set tessdata: %w", err)
		}
	}
	if err := c.SetLanguage(strings.Split(g.cfg.Language, "+")...); err != nil {
		return Result{}, fmt.Errorf("set languages: %w", err)
	}
	if g.cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(g.cfg.PSM)); err != nil {
			return Result{}, fmt.Errorf("set psm: %w", err)
		}
	}
	if g.cfg.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(g.cfg.DPI)); err != nil {
			return Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := c.SetImageFromBytes(img.Data); err != nil {
		return Result{}, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return Result{}, fmt.Errorf("recognize text: %w", err)
	}
	frags := make([]string, 0, len(boxes))
	for _, b := range boxes {
		if w := strings.TrimSpace(b.Word); w != "" {
			frags = append(frags, w)
		}
	}
	return newResult(frags), nil
}
