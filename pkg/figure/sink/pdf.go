package sink

import (
	"github.com/tanaylab/mcbrowse/pkg/figure"
)

// RenderPDF renders the figure as PDF via SVG conversion.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(f *figure.Figure, opts ...Option) ([]byte, error) {
	svg, err := RenderSVG(f, opts...)
	if err != nil {
		return nil, err
	}
	return ToPDF(svg)
}
