package sink

import (
	"github.com/wcharczuk/go-chart/v2"

	"github.com/tanaylab/mcbrowse/pkg/figure"
)

// RenderPNG rasterizes the figure. Use [WithScale] for high-density output.
func RenderPNG(f *figure.Figure, opts ...Option) ([]byte, error) {
	r := newChartRenderer(opts...)
	return r.render(f.Spec(), chart.PNG)
}
