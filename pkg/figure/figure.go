// Package figure turns a tidy dataset and a veneer into a figure.
//
// Rendering is the last pipeline stage. [Render] looks up the veneer's chart
// type in the [Catalog], binds dataset columns to the chart's visual channels
// (x, y, color, label, tooltip, size) and resolves every visual decision:
// point colors and sizes, draw order, axis ranges, titles and the legend. The
// result is an immutable [Figure]; its [Figure.Spec] is a plain serializable
// value that the sinks in package sink draw as SVG, PNG, PDF, JSON or a
// stand-alone HTML page without touching the dataset or veneer again.
//
// Render is pure. Equal inputs yield figures with equal specs, and every
// figure records the digests of the dataset and veneer that built it.
//
// Failure modes:
//
//   - EMPTY_DATA: the dataset has no rows, or every row lacks x or y
//   - SCHEMA_MISMATCH: the dataset's columns do not fit the chart type
package figure

import (
	"slices"
)

// Point is one drawn marker.
type Point struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Group       string  `json:"group"`
	Color       string  `json:"color"`
	Size        float64 `json:"size"`
	Label       string  `json:"label,omitempty"`
	Tooltip     string  `json:"tooltip,omitempty"`
	Highlighted bool    `json:"highlighted,omitempty"`
}

// Axis is a resolved continuous axis.
type Axis struct {
	Title         string  `json:"title"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	TitleFontSize float64 `json:"title_font_size"`
	LabelFontSize float64 `json:"label_font_size"`
}

// LegendEntry maps a group to its color.
type LegendEntry struct {
	Group string `json:"group"`
	Color string `json:"color"`
}

// Style holds the marker and canvas settings shared by all points.
type Style struct {
	Background      string  `json:"background"`
	BorderColor     string  `json:"border_color"`
	BorderWidth     float64 `json:"border_width"`
	Opacity         float64 `json:"opacity"`
	TooltipFontSize float64 `json:"tooltip_font_size"`
}

// Provenance identifies the inputs a figure was built from.
type Provenance struct {
	Dataset string   `json:"dataset"`
	Veneer  string   `json:"veneer"`
	Schema  []string `json:"schema"`
	Rows    int      `json:"rows"`
	Dropped int      `json:"dropped"`
}

// Spec is the complete, serializable description of a figure.
type Spec struct {
	ChartType     string        `json:"chart_type"`
	Title         string        `json:"title"`
	TitleFontSize float64       `json:"title_font_size"`
	Width         float64       `json:"width"`
	Height        float64       `json:"height"`
	Channels      []Assignment  `json:"channels"`
	XAxis         Axis          `json:"x_axis"`
	YAxis         Axis          `json:"y_axis"`
	ShowLegend    bool          `json:"show_legend"`
	Legend        []LegendEntry `json:"legend"`
	Style         Style         `json:"style"`
	Points        []Point       `json:"points"`
	Provenance    Provenance    `json:"provenance"`
}

// clone returns a deep copy of s.
func (s Spec) clone() Spec {
	s.Channels = slices.Clone(s.Channels)
	s.Legend = slices.Clone(s.Legend)
	s.Points = slices.Clone(s.Points)
	s.Provenance.Schema = slices.Clone(s.Provenance.Schema)
	return s
}

// Figure is an immutable rendered figure.
type Figure struct {
	spec Spec
}

// FromSpec wraps a spec, for example one decoded from JSON, as a figure.
func FromSpec(s Spec) *Figure {
	return &Figure{spec: s.clone()}
}

// Spec returns a deep copy of the figure's description.
func (f *Figure) Spec() Spec { return f.spec.clone() }

// ChartType returns the chart type.
func (f *Figure) ChartType() string { return f.spec.ChartType }

// Channels returns the channel assignments.
func (f *Figure) Channels() []Assignment { return slices.Clone(f.spec.Channels) }

// Column returns the column bound to channel, or "" when it is unbound.
func (f *Figure) Column(channel Channel) string {
	for _, a := range f.spec.Channels {
		if a.Channel == channel {
			return a.Column
		}
	}
	return ""
}

// Provenance returns the digests of the inputs.
func (f *Figure) Provenance() Provenance {
	p := f.spec.Provenance
	p.Schema = slices.Clone(p.Schema)
	return p
}

// Len returns the number of drawn points.
func (f *Figure) Len() int { return len(f.spec.Points) }
