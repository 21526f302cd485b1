package sink

import (
	"html"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/tanaylab/mcbrowse/pkg/figure"
)

// RenderSVG draws the figure as SVG.
func RenderSVG(f *figure.Figure, opts ...Option) ([]byte, error) {
	r := newChartRenderer(opts...)
	r.text = html.EscapeString
	return r.render(f.Spec(), chart.SVG)
}
