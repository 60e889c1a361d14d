// Package ocr recognizes text on rendered title-block images.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Alisasanian/PDFsorter/internal/common"
	"github.com/Alisasanian/PDFsorter/internal/render"
)

// Family groups engines that share misreading habits.
type Family string

const (
	FamilyTesseract Family = "tesseract"
	FamilyCloud     Family = "cloud"
)

// Engine names accepted in configuration.
const (
	EngineTesseract  = "tesseract"
	EngineGosseract  = "gosseract"
	EngineDocumentAI = "documentai"
)

// ErrOCRNotEnabled is returned by engines compiled out of the binary.
var ErrOCRNotEnabled = errors.New("ocr engine not enabled in this build")

// Image is one page image handed to an engine.
type Image struct {
	Data     []byte
	MIMEType string // image/jpeg or image/png
}

// Result is the text an engine found, fragment by fragment, and the fragments joined.
type Result struct {
	Fragments []string
	Text      string
}

func newResult(fragments []string) Result {
	return Result{Fragments: fragments, Text: NormalizeText(fragments...)}
}

// Engine recognizes text in one image per call.
type Engine interface {
	Name() string
	Family() Family
	Recognize(ctx context.Context, img Image) (Result, error)
}

// NewEngine builds the engine cfg names. Closing the returned func releases clients.
func NewEngine(ctx context.Context, cfg common.OCRConfig, tools common.ToolsConfig, runner render.Runner, logger *slog.Logger) (Engine, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Engine {
	case "", EngineTesseract:
		return NewTesseractCLI(TesseractOptions{
			Bin:         tools.Tesseract,
			Language:    cfg.Language,
			PSM:         cfg.PSM,
			TessdataDir: cfg.TessdataDir,
			DPI:         cfg.DPI,
			Timeout:     tools.Timeout,
		}, runner, logger), noop, nil
	case EngineGosseract:
		e, err := NewGosseract(cfg)
		if err != nil {
			return nil, noop, err
		}
		return e, noop, nil
	case EngineDocumentAI:
		e, err := NewDocumentAI(ctx, cfg.DocumentAI, logger)
		if err != nil {
			return nil, noop, err
		}
		return e, e.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown ocr engine %q: %w", cfg.Engine, common.ErrInvalidInput)
	}
}
