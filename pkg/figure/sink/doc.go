// Package sink draws rendered figures in concrete output formats.
//
// A "sink" takes a [figure.Figure] and produces bytes. None of the sinks
// touch the dataset or veneer the figure came from; everything they need is
// in [figure.Figure.Spec].
//
//   - SVG: vector output drawn with go-chart
//   - PNG: raster output drawn with go-chart
//   - PDF: print-ready output (requires rsvg-convert)
//   - JSON: the figure description, readable again with [ReadJSON]
//   - HTML: a stand-alone page embedding the SVG, hover tooltips and the JSON
//
// Basic usage:
//
//	svg, err := sink.RenderSVG(fig)
//	png, err := sink.RenderPNG(fig, sink.WithScale(2))
//	data, err := sink.Render(fig, sink.FormatHTML)
//
// Axes, ticks and titles come from go-chart. Points and the legend are drawn
// by custom renderables so every point keeps its own color, size and border,
// and highlighted points are painted last.
//
// PDF conversion shells out to rsvg-convert:
//   - macOS: brew install librsvg
//   - Linux: apt install librsvg2-bin
package sink
