package sink

import (
	"bytes"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/tanaylab/mcbrowse/pkg/figure"
)

const (
	defaultPadding = 20
	legendSwatch   = 6
	legendGap      = 6
	legendLineGap  = 4
)

// Option configures the chart-based sinks (SVG, PNG, PDF and HTML).
type Option func(*chartRenderer)

type chartRenderer struct {
	scale   float64
	dpi     float64
	padding int

	// text prepares strings for the backend; the SVG backend writes them
	// unescaped.
	text func(string) string

	// placed receives the pixel position of every drawn point when set.
	placed *[]placedPoint
}

type placedPoint struct {
	X, Y   int
	Radius float64
	Point  figure.Point
}

// WithScale multiplies the figure's pixel size (default 1).
func WithScale(s float64) Option {
	return func(r *chartRenderer) { r.scale = s }
}

// WithDPI sets the resolution used to size text (default 92).
func WithDPI(dpi float64) Option {
	return func(r *chartRenderer) { r.dpi = dpi }
}

// WithPadding sets the blank margin around the chart in pixels (default 20).
func WithPadding(px int) Option {
	return func(r *chartRenderer) { r.padding = px }
}

func newChartRenderer(opts ...Option) chartRenderer {
	r := chartRenderer{scale: 1, dpi: chart.DefaultDPI, padding: defaultPadding, text: plain}
	for _, opt := range opts {
		opt(&r)
	}
	if r.scale <= 0 {
		r.scale = 1
	}
	return r
}

// render draws s with the given go-chart backend.
func (r chartRenderer) render(s figure.Spec, backend chart.RendererProvider) ([]byte, error) {
	if len(s.Points) == 0 {
		return nil, fmt.Errorf("figure has no points")
	}
	c := r.chart(s)
	var buf bytes.Buffer
	if err := c.Render(backend, &buf); err != nil {
		return nil, fmt.Errorf("draw chart: %w", err)
	}
	return buf.Bytes(), nil
}

func (r chartRenderer) px(v float64) float64 { return v * r.scale }

func (r chartRenderer) chart(s figure.Spec) chart.Chart {
	pad := int(r.px(float64(r.padding)))
	top := pad
	titleStyle := chart.Style{FontSize: r.px(s.TitleFontSize)}
	if s.Title == "" || s.TitleFontSize == 0 {
		titleStyle.Hidden = true
	} else {
		top += int(r.px(s.TitleFontSize) * 2)
	}
	right := pad
	if s.ShowLegend && len(s.Legend) > 0 {
		right += r.legendWidth(s)
	}

	xAxis := chart.XAxis{
		Name:      r.text(s.XAxis.Title),
		NameStyle: axisTitleStyle(r.px(s.XAxis.TitleFontSize)),
		Style:     chart.Style{FontSize: r.px(s.XAxis.LabelFontSize)},
		Range:     &chart.ContinuousRange{Min: s.XAxis.Min, Max: s.XAxis.Max},
	}
	yAxis := chart.YAxis{
		Name:      r.text(s.YAxis.Title),
		NameStyle: axisTitleStyle(r.px(s.YAxis.TitleFontSize)),
		Style:     chart.Style{FontSize: r.px(s.YAxis.LabelFontSize)},
		Range:     &chart.ContinuousRange{Min: s.YAxis.Min, Max: s.YAxis.Max},
	}
	// Tick labels at size 0 would fall back to the library default.
	if s.XAxis.LabelFontSize == 0 {
		xAxis.Style.FontColor = drawing.ColorTransparent
	}
	if s.YAxis.LabelFontSize == 0 {
		yAxis.Style.FontColor = drawing.ColorTransparent
	}

	background := drawing.ColorFromHex(s.Style.Background)
	elements := []chart.Renderable{r.points(s)}
	if s.ShowLegend && len(s.Legend) > 0 {
		elements = append(elements, r.legend(s))
	}

	return chart.Chart{
		Title:      r.text(s.Title),
		TitleStyle: titleStyle,
		Width:      int(r.px(s.Width)),
		Height:     int(r.px(s.Height)),
		DPI:        r.dpi,
		Background: chart.Style{
			FillColor: background,
			Padding:   chart.Box{Top: top, Left: pad, Right: right, Bottom: pad},
		},
		Canvas: chart.Style{FillColor: background},
		XAxis:  xAxis,
		YAxis:  yAxis,
		// The extent series only sizes the axes; points are drawn by
		// r.points so that each keeps its own color, size and border.
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "extent",
				Style:   chart.Style{StrokeWidth: chart.Disabled, DotWidth: chart.Disabled},
				XValues: []float64{s.XAxis.Min, s.XAxis.Max},
				YValues: []float64{s.YAxis.Min, s.YAxis.Max},
			},
		},
		Elements: elements,
	}
}

func axisTitleStyle(size float64) chart.Style {
	if size == 0 {
		return chart.Style{Hidden: true}
	}
	return chart.Style{FontSize: size}
}

// points draws every point in spec order, so highlighted points land on top.
func (r chartRenderer) points(s figure.Spec) chart.Renderable {
	return func(cr chart.Renderer, box chart.Box, _ chart.Style) {
		xr := chart.ContinuousRange{Min: s.XAxis.Min, Max: s.XAxis.Max, Domain: box.Width()}
		yr := chart.ContinuousRange{Min: s.YAxis.Min, Max: s.YAxis.Max, Domain: box.Height()}
		alpha := uint8(math.Round(clamp01(s.Style.Opacity) * 255))
		border := drawing.ColorFromHex(s.Style.BorderColor).WithAlpha(alpha)

		for _, p := range s.Points {
			if p.X < s.XAxis.Min || p.X > s.XAxis.Max || p.Y < s.YAxis.Min || p.Y > s.YAxis.Max {
				continue
			}
			x := box.Left + xr.Translate(p.X)
			y := box.Bottom - yr.Translate(p.Y)
			radius := r.px(p.Size) / 2

			fill := drawing.ColorFromHex(p.Color).WithAlpha(alpha)
			cr.SetFillColor(fill)
			if s.Style.BorderWidth > 0 {
				cr.SetStrokeColor(border)
				cr.SetStrokeWidth(r.px(s.Style.BorderWidth))
			} else {
				cr.SetStrokeColor(fill)
				cr.SetStrokeWidth(0)
			}
			cr.Circle(radius, x, y)
			cr.FillStroke()

			if r.placed != nil {
				*r.placed = append(*r.placed, placedPoint{X: x, Y: y, Radius: radius, Point: p})
			}
		}
	}
}

func (r chartRenderer) legendFontSize(s figure.Spec) float64 {
	if s.XAxis.LabelFontSize > 0 {
		return r.px(s.XAxis.LabelFontSize)
	}
	return r.px(chart.DefaultFontSize)
}

// legendWidth estimates the legend's width before any font is loaded.
func (r chartRenderer) legendWidth(s figure.Spec) int {
	longest := 0
	for _, e := range s.Legend {
		longest = max(longest, utf8.RuneCountInString(e.Group))
	}
	size := r.legendFontSize(s) * r.dpi / 72
	return int(r.px(2*legendSwatch+2*legendGap) + float64(longest)*size*0.6)
}

// legend draws one colored dot and label per group to the right of the
// canvas. The built-in go-chart legend draws line swatches, which stay
// invisible for dot-only series.
func (r chartRenderer) legend(s figure.Spec) chart.Renderable {
	return func(cr chart.Renderer, box chart.Box, defaults chart.Style) {
		cr.SetFont(defaults.Font)
		cr.SetFontSize(r.legendFontSize(s))
		cr.SetFontColor(chart.DefaultTextColor)

		radius := r.px(legendSwatch) / 2
		x := box.Right + int(r.px(legendGap)+radius)
		y := box.Top
		for _, e := range s.Legend {
			label := r.text(e.Group)
			tb := cr.MeasureText(label)
			lineHeight := max(tb.Height(), int(2*radius))
			cy := y + lineHeight/2

			c := drawing.ColorFromHex(e.Color)
			cr.SetFillColor(c)
			cr.SetStrokeColor(c)
			cr.SetStrokeWidth(0)
			cr.Circle(radius, x, cy)
			cr.FillStroke()

			cr.Text(label, x+int(radius+r.px(legendGap)), cy+tb.Height()/2)
			y += lineHeight + int(r.px(legendLineGap))
		}
	}
}

func plain(s string) string { return s }

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
