package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Alisasanian/PDFsorter/internal/render"
)

// TesseractOptions configures the tesseract command line engine.
type TesseractOptions struct {
	Bin         string // default "tesseract"
	Language    string // default "eng"
	PSM         int    // page segmentation mode; 11 finds sparse text such as title blocks
	TessdataDir string
	DPI         int
	Timeout     time.Duration
}

// TesseractCLI runs the tesseract binary on a temp copy of the image.
type TesseractCLI struct {
	opts   TesseractOptions
	runner render.Runner
	logger *slog.Logger
}

func NewTesseractCLI(opts TesseractOptions, runner render.Runner, logger *slog.Logger) *TesseractCLI {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Bin == "" {
		opts.Bin = "tesseract"
	}
	if opts.Language == "" {
		opts.Language = "eng"
	}
	if runner == nil {
		runner = render.ExecRunner{Logger: logger}
	}
	return &TesseractCLI{opts: opts, runner: runner, logger: logger}
}

func (t *TesseractCLI) Name() string   { return EngineTesseract }
func (t *TesseractCLI) Family() Family { return FamilyTesseract }

var reBoxNoise = regexp.MustCompile(`(?m)^\s*[_\-|=]{3,}\s*$`)

func (t *TesseractCLI) args(path string) []string {
	// tesseract <file> stdout -l <lang> [--psm n] [--dpi n] [--tessdata-dir d]
	args := []string{path, "stdout", "-l", t.opts.Language}
	if t.opts.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.opts.PSM))
	}
	if t.opts.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(t.opts.DPI))
	}
	if t.opts.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.opts.TessdataDir)
	}
	return args
}

func (t *TesseractCLI) Recognize(ctx context.Context, img Image) (Result, error) {
	f, err := os.CreateTemp("", "pdfsorter-ocr-*"+extFor(img.MIMEType))
	if err != nil {
		return Result{}, err
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.Write(img.Data); err != nil {
		_ = f.Close()
		return Result{}, err
	}
	if err := f.Close(); err != nil {
		return Result{}, err
	}

	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}
	out, errb, err := t.runner.Run(ctx, t.opts.Bin, t.args(path)...)
	if err != nil {
		return Result{}, fmt.Errorf("tesseract: %w: %s", err, render.Truncate(string(errb), 512))
	}

	txt := reBoxNoise.ReplaceAllString(string(out), "")
	var frags []string
	for _, ln := range strings.Split(txt, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			frags = append(frags, ln)
		}
	}
	return newResult(frags), nil
}

func extFor(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	default:
		return ".jpg"
	}
}
