package figure

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/tidy"
	"github.com/tanaylab/mcbrowse/pkg/veneer"
)

// rangePad is the fraction of the data extent added on each side of an
// automatic axis range.
const rangePad = 0.05

// Render builds a figure from ds and v.
func Render(ds tidy.Dataset, v veneer.Veneer) (*Figure, error) {
	f, err := render(ds, v)
	return f, errors.WithStage(errors.StageRender, err)
}

func render(ds tidy.Dataset, v veneer.Veneer) (*Figure, error) {
	if ds.Empty() {
		return nil, errors.EmptyData("dataset has no rows")
	}
	ct, err := Lookup(v.ChartType())
	if err != nil {
		return nil, err
	}
	channels, err := ct.Assign(ds.Fields())
	if err != nil {
		return nil, err
	}
	bound := make(map[Channel]tidy.Column, len(channels))
	for _, a := range channels {
		bound[a.Channel], _ = ds.Column(a.Column)
	}

	x, y := bound[ChannelX], bound[ChannelY]
	var rows []int
	for i := range ds.Len() {
		if finite(x.Float(i)) && finite(y.Float(i)) {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, errors.EmptyData("all %d rows lack a finite x or y value", ds.Len())
	}

	legend := colorGroups(bound[ChannelColor], rows, v.Palette())
	colors := make(map[string]string, len(legend))
	for _, e := range legend {
		colors[e.Group] = e.Color
	}

	pointSize := v.Number(veneer.KeyPointSize)
	highlightSize := v.Number(veneer.KeyHighlightSize)
	highlightColor := v.Color(veneer.KeyHighlightColor)

	points := make([]Point, 0, len(rows))
	var highlighted []Point
	for _, i := range rows {
		p := Point{
			X:     x.Float(i),
			Y:     y.Float(i),
			Group: bound[ChannelColor].Str(i),
			Size:  pointSize,
		}
		p.Color = colors[p.Group]
		if c, ok := bound[ChannelLabel]; ok {
			p.Label = c.Str(i)
		}
		// The tooltip defaults to the point's label, the sample name.
		p.Tooltip = p.Label
		if c, ok := bound[ChannelTooltip]; ok {
			p.Tooltip = c.Str(i)
		}
		if c, ok := bound[ChannelSize]; ok && c.Flag(i) {
			p.Highlighted = true
			p.Color = highlightColor
			p.Size = highlightSize
			highlighted = append(highlighted, p)
			continue
		}
		points = append(points, p)
	}
	// Highlighted points are drawn last, on top.
	points = append(points, highlighted...)

	xTitle := v.Text(veneer.KeyXTitle)
	if xTitle == "" {
		xTitle = x.Name
	}
	yTitle := v.Text(veneer.KeyYTitle)
	if yTitle == "" {
		yTitle = y.Name
	}
	title := v.Text(veneer.KeyTitle)
	if title == "" {
		title = x.Name + " vs " + y.Name
	}

	axis := func(name string, col tidy.Column, minKey, maxKey string) Axis {
		lo, hi := axisRange(col, rows, v, minKey, maxKey)
		return Axis{
			Title:         name,
			Min:           lo,
			Max:           hi,
			TitleFontSize: v.Number(veneer.KeyAxisTitleFontSize),
			LabelFontSize: v.Number(veneer.KeyAxisLabelFontSize),
		}
	}

	spec := Spec{
		ChartType:     ct.Name,
		Title:         title,
		TitleFontSize: v.Number(veneer.KeyTitleFontSize),
		Width:         v.Number(veneer.KeyWidth),
		Height:        v.Number(veneer.KeyHeight),
		Channels:      channels,
		XAxis:         axis(xTitle, x, veneer.KeyXMin, veneer.KeyXMax),
		YAxis:         axis(yTitle, y, veneer.KeyYMin, veneer.KeyYMax),
		ShowLegend:    v.Bool(veneer.KeyLegend),
		Legend:        legend,
		Style: Style{
			Background:      v.Color(veneer.KeyBackgroundColor),
			BorderColor:     v.Color(veneer.KeyBorderColor),
			BorderWidth:     v.Number(veneer.KeyBorderWidth),
			Opacity:         1 - v.Number(veneer.KeyTransparency),
			TooltipFontSize: v.Number(veneer.KeyTooltipFontSize),
		},
		Points: points,
		Provenance: Provenance{
			Dataset: ds.Digest(),
			Veneer:  v.Digest(),
			Schema:  ds.Schema(),
			Rows:    ds.Len(),
			Dropped: ds.Len() - len(rows),
		},
	}
	return &Figure{spec: spec}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// colorGroups assigns palette colors to the distinct groups of the kept
// rows, in sorted group order. Groups that are all numbers are sorted by
// value, so the palette runs from the smallest to the largest.
func colorGroups(col tidy.Column, rows []int, p veneer.Palette) []LegendEntry {
	seen := map[string]bool{}
	var groups []string
	for _, i := range rows {
		g := col.Str(i)
		if !seen[g] {
			seen[g] = true
			groups = append(groups, g)
		}
	}
	sortGroups(groups)
	colors := p.Sample(len(groups))
	out := make([]LegendEntry, len(groups))
	for i, g := range groups {
		out[i] = LegendEntry{Group: g, Color: colors[i]}
	}
	return out
}

func sortGroups(groups []string) {
	values := make(map[string]float64, len(groups))
	for _, g := range groups {
		v, err := strconv.ParseFloat(g, 64)
		if err != nil {
			slices.Sort(groups)
			return
		}
		values[g] = v
	}
	slices.SortFunc(groups, func(a, b string) int {
		return cmp.Or(cmp.Compare(values[a], values[b]), strings.Compare(a, b))
	})
}

// axisRange returns the explicit bounds of the veneer where set, and the
// padded data extent otherwise.
func axisRange(col tidy.Column, rows []int, v veneer.Veneer, minKey, maxKey string) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, i := range rows {
		lo = min(lo, col.Float(i))
		hi = max(hi, col.Float(i))
	}
	pad := (hi - lo) * rangePad
	if hi == lo {
		pad = 0.5
	}
	lo, hi = lo-pad, hi+pad

	fixedLo, hasLo := v.Float(minKey)
	fixedHi, hasHi := v.Float(maxKey)
	if hasLo {
		lo = fixedLo
	}
	if hasHi {
		hi = fixedHi
	}
	if hi <= lo {
		// Only one bound is fixed and the data lies beyond it.
		if hasLo {
			hi = lo + 1
		} else {
			lo = hi - 1
		}
	}
	return lo, hi
}
