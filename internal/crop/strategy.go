// Package crop isolates the title block of each drawing page by setting its crop box.
package crop

import (
	"errors"
	"fmt"

	"github.com/Alisasanian/PDFsorter/internal/common"
	"github.com/Alisasanian/PDFsorter/internal/pdfdoc"
)

// ErrInvalidRect is returned when a strategy yields no usable rectangle for a page.
var ErrInvalidRect = errors.New("invalid rect")

// Fractions are k1..k4 of a crop: X0 and X1 scale the horizontal extent, Y0 and Y1 are
// offsets from the top edge as fractions of the page height.
type Fractions struct {
	X0, Y0, X1, Y1 float64
}

// Strategy picks the title-block rectangle for a page.
type Strategy struct {
	Name string
	// CenterOrigin applies when the media box origin is negative on both axes.
	CenterOrigin Fractions
	// ZeroOrigin applies otherwise.
	ZeroOrigin Fractions
}

var (
	// Expanded is the wide-tolerance default: catches more title-block layouts at the cost of more noise.
	Expanded = Strategy{
		Name:         "expanded",
		CenterOrigin: Fractions{X0: 0.80, Y0: 0.90, X1: 0.99, Y1: 0.99},
		ZeroOrigin:   Fractions{X0: 0.85, Y0: 0.85, X1: 0.99, Y1: 0.99},
	}
	// Narrow is the tight variant for drawing sets with a consistent lower-right title block.
	Narrow = Strategy{
		Name:         "narrow",
		CenterOrigin: Fractions{X0: 0.88, Y0: 0.92, X1: 0.98, Y1: 0.98},
		ZeroOrigin:   Fractions{X0: 0.93, Y0: 0.92, X1: 0.99, Y1: 0.99},
	}
)

// StrategyFromConfig resolves the configured strategy.
func StrategyFromConfig(cfg common.CropConfig) (Strategy, error) {
	switch cfg.Strategy {
	case "", Expanded.Name:
		return Expanded, nil
	case Narrow.Name:
		return Narrow, nil
	case "custom":
		k, z := cfg.CenterOrigin, cfg.ZeroOrigin
		return Strategy{
			Name:         "custom",
			CenterOrigin: Fractions{X0: k[0], Y0: k[1], X1: k[2], Y1: k[3]},
			ZeroOrigin:   Fractions{X0: z[0], Y0: z[1], X1: z[2], Y1: z[3]},
		}, nil
	default:
		return Strategy{}, fmt.Errorf("unknown crop strategy %q: %w", cfg.Strategy, common.ErrInvalidInput)
	}
}

// Rect computes the crop box, in user space, for a page with media box mb.
//
// With a center-origin media box the horizontal bounds are 0.5*width*k from the origin;
// otherwise they are the right edge scaled by k. Vertical bounds are measured down from
// the top edge (height*k for center-origin pages, top*k otherwise). The result is clipped
// to the media box.
func (s Strategy) Rect(mb pdfdoc.Box) (pdfdoc.Box, error) {
	if mb.Empty() {
		return pdfdoc.Box{}, fmt.Errorf("%w: empty media box %v", ErrInvalidRect, mb)
	}
	var x0, y0, x1, y1 float64 // y measured from the top edge
	if mb.LLX < 0 && mb.LLY < 0 {
		k := s.CenterOrigin
		w, h := mb.Width(), mb.Height()
		x0, y0, x1, y1 = 0.5*w*k.X0, h*k.Y0, 0.5*w*k.X1, h*k.Y1
	} else {
		k := s.ZeroOrigin
		x0, y0, x1, y1 = mb.URX*k.X0, mb.URY*k.Y0, mb.URX*k.X1, mb.URY*k.Y1
	}
	r := pdfdoc.Box{LLX: x0, LLY: mb.URY - y1, URX: x1, URY: mb.URY - y0}.Intersect(mb)
	if r.Empty() {
		return pdfdoc.Box{}, fmt.Errorf("%w: %v outside media box %v", ErrInvalidRect, r, mb)
	}
	return r, nil
}
