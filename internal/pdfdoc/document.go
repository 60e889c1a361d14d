// Package pdfdoc wraps the PDF structure operations the pipeline needs: page geometry,
// crop boxes, merging and page collection (pdfcpu) and image-only documents (fpdf).
package pdfdoc

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrNoMediaBox is returned for pages without a usable media box.
var ErrNoMediaBox = errors.New("page has no media box")

var confOnce sync.Once

// Configuration returns a relaxed pdfcpu configuration that never touches the user config dir.
func Configuration() *model.Configuration {
	confOnce.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Box is a rectangle in PDF user space.
type Box struct {
	LLX, LLY, URX, URY float64
}

func (b Box) Width() float64  { return b.URX - b.LLX }
func (b Box) Height() float64 { return b.URY - b.LLY }

// Empty reports whether the box has no area.
func (b Box) Empty() bool { return b.Width() <= 0 || b.Height() <= 0 }

// Intersect returns the overlap of b and o.
func (b Box) Intersect(o Box) Box {
	return Box{
		LLX: max(b.LLX, o.LLX),
		LLY: max(b.LLY, o.LLY),
		URX: min(b.URX, o.URX),
		URY: min(b.URY, o.URY),
	}
}

func (b Box) String() string {
	return fmt.Sprintf("[%.2f %.2f %.2f %.2f]", b.LLX, b.LLY, b.URX, b.URY)
}

// Page is the geometry of one page. CropBox is nil unless the page sets one itself.
type Page struct {
	Number   int
	MediaBox Box
	CropBox  *Box
	Rotate   int
}

// Document is an open PDF held in memory.
type Document struct {
	path string
	ctx  *model.Context
}

// Open reads the document at path.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ctx, err := api.ReadContext(f, Configuration())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("page count %s: %w", path, err)
	}
	return &Document{path: path, ctx: ctx}, nil
}

// Path is where the document was read from.
func (d *Document) Path() string { return d.path }

// PageCount is the number of pages.
func (d *Document) PageCount() int { return d.ctx.PageCount }

// Validate runs pdfcpu's relaxed validation over the whole document.
func (d *Document) Validate() error {
	d.ctx.Configuration = Configuration()
	if err := api.ValidateContext(d.ctx); err != nil {
		return fmt.Errorf("validate %s: %w", d.path, err)
	}
	return nil
}

// Page returns the geometry of the 1-based page n, resolving inherited attributes.
func (d *Document) Page(n int) (Page, error) {
	dict, _, inh, err := d.ctx.PageDict(n, false)
	if err != nil {
		return Page{}, fmt.Errorf("page %d: %w", n, err)
	}
	if inh == nil || inh.MediaBox == nil {
		return Page{}, fmt.Errorf("page %d: %w", n, ErrNoMediaBox)
	}
	mb := inh.MediaBox
	p := Page{
		Number:   n,
		MediaBox: Box{LLX: mb.LL.X, LLY: mb.LL.Y, URX: mb.UR.X, URY: mb.UR.Y},
		Rotate:   inh.Rotate,
	}
	if cb, ok := boxFromArray(dict.ArrayEntry("CropBox")); ok {
		p.CropBox = &cb
	}
	return p, nil
}

func boxFromArray(a types.Array) (Box, bool) {
	if len(a) != 4 {
		return Box{}, false
	}
	var f [4]float64
	for i, o := range a {
		switch v := o.(type) {
		case types.Float:
			f[i] = float64(v)
		case types.Integer:
			f[i] = float64(v)
		default:
			return Box{}, false
		}
	}
	return Box{LLX: min(f[0], f[2]), LLY: min(f[1], f[3]), URX: max(f[0], f[2]), URY: max(f[1], f[3])}, true
}

// SetCropBox resets the page rotation to zero and sets its crop box. Content is untouched.
func (d *Document) SetCropBox(n int, b Box) error {
	dict, _, _, err := d.ctx.PageDict(n, false)
	if err != nil {
		return fmt.Errorf("page %d: %w", n, err)
	}
	if dict == nil {
		return fmt.Errorf("page %d: no page dict", n)
	}
	dict.Update("Rotate", types.Integer(0))
	dict.Update("CropBox", types.NewNumberArray(b.LLX, b.LLY, b.URX, b.URY))
	return nil
}

// Write saves the document to path.
func (d *Document) Write(path string) error {
	if err := api.WriteContextFile(d.ctx, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// PageCount returns the number of pages of the PDF at path.
func PageCount(path string) (int, error) {
	confOnce.Do(api.DisableConfigDir)
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("page count %s: %w", path, err)
	}
	return n, nil
}

// Merge concatenates inputs, in order, into out.
func Merge(inputs []string, out string) error {
	if len(inputs) == 0 {
		return errors.New("merge: no inputs")
	}
	if err := api.MergeCreateFile(inputs, out, false, Configuration()); err != nil {
		return fmt.Errorf("merge into %s: %w", out, err)
	}
	return nil
}

// Collect writes the given 1-based pages of in to out, in the given order.
// Repeated page numbers produce repeated pages.
func Collect(in, out string, pages []int) error {
	if len(pages) == 0 {
		return errors.New("collect: no pages")
	}
	sel := make([]string, len(pages))
	for i, p := range pages {
		sel[i] = strconv.Itoa(p)
	}
	if err := api.CollectFile(in, out, sel, Configuration()); err != nil {
		return fmt.Errorf("collect pages from %s: %w", in, err)
	}
	return nil
}
