// Package extract pulls tidy datasets out of an axis-organised repository.
//
// Extraction is the first pipeline stage. Given a [source.Reader], a
// [Selector] naming entities on the entity axis (genes) and [Options], it
// reads one matrix row per entity and reshapes the values into a
// [tidy.Dataset] with one row per sample (paired layout) or one row per
// (entity, sample) pair (long layout):
//
//	sel, _ := extract.NewSelector("G1", "G2")
//	ds, err := extract.Extract(src, sel, extract.Options{})
//	// columns: sample, G1, G2, group
//
// Extraction reads the repository and nothing else. It does not cache, it
// does not mutate the repository, and for a fixed repository state the
// result is always the same. Every error it returns carries the extract
// stage tag, including errors from the reader, which are otherwise left
// untouched.
package extract

import (
	"math"
	"slices"

	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/source"
	"github.com/tanaylab/mcbrowse/pkg/tidy"
)

// Default option values.
const (
	DefaultEntityAxis  = "gene"
	DefaultSampleAxis  = "metacell"
	DefaultStatistic   = "fraction"
	DefaultGroup       = "type"
	DefaultPseudoCount = 1e-5
	DefaultTransform   = TransformNone
	DefaultLayout      = LayoutPaired
)

// Column names produced by extraction.
const (
	SampleColumn  = "sample"
	ValueColumn   = "value"
	GroupColumn   = "group"
	TooltipColumn = "tooltip"
)

// Transform is applied to every extracted value.
type Transform string

// Transforms.
const (
	TransformNone       Transform = "none"
	TransformLog2       Transform = "log2"        // log2(v + pseudo)
	TransformFoldChange Transform = "fold_change" // log2((v + pseudo) / (median + pseudo))
)

// Layout selects the shape of the extracted dataset.
type Layout string

// Layouts.
const (
	LayoutPaired Layout = "paired"
	LayoutLong   Layout = "long"
)

// ValidTransforms is the set of supported transforms.
var ValidTransforms = map[Transform]bool{
	TransformNone:       true,
	TransformLog2:       true,
	TransformFoldChange: true,
}

// ValidLayouts is the set of supported layouts.
var ValidLayouts = map[Layout]bool{
	LayoutPaired: true,
	LayoutLong:   true,
}

// Options configures an extraction. The zero value extracts gene fractions
// over metacells in the paired layout, grouped by the metacell type.
type Options struct {
	EntityAxis  string    `json:"entity_axis,omitempty"`
	SampleAxis  string    `json:"sample_axis,omitempty"`
	Statistic   string    `json:"statistic,omitempty"`
	Transform   Transform `json:"transform,omitempty"`
	PseudoCount float64   `json:"pseudo_count,omitempty"`
	Layout      Layout    `json:"layout,omitempty"`

	// Group is the sample-axis property copied into the group column.
	// Empty means DefaultGroup; set NoGroup to omit the column.
	Group   string `json:"group,omitempty"`
	NoGroup bool   `json:"no_group,omitempty"`

	// Tooltips lists the sample-axis properties shown under the sample name.
	// Nil omits the tooltip column.
	Tooltips []Tooltip `json:"tooltips,omitempty"`
}

// withDefaults returns a copy of o with defaults applied, or an
// INVALID_INPUT error.
func (o Options) withDefaults() (Options, error) {
	if o.EntityAxis == "" {
		o.EntityAxis = DefaultEntityAxis
	}
	if o.SampleAxis == "" {
		o.SampleAxis = DefaultSampleAxis
	}
	if o.Statistic == "" {
		o.Statistic = DefaultStatistic
	}
	if o.Transform == "" {
		o.Transform = DefaultTransform
	}
	if o.PseudoCount == 0 {
		o.PseudoCount = DefaultPseudoCount
	}
	if o.Layout == "" {
		o.Layout = DefaultLayout
	}
	if o.Group == "" {
		o.Group = DefaultGroup
	}

	if o.EntityAxis == o.SampleAxis {
		return o, errors.New(errors.ErrCodeInvalidInput, "entity and sample axis are both %q", o.EntityAxis)
	}
	if !ValidTransforms[o.Transform] {
		return o, errors.New(errors.ErrCodeInvalidInput,
			"invalid transform %q (must be one of: none, log2, fold_change)", o.Transform)
	}
	if !(o.PseudoCount > 0) || math.IsInf(o.PseudoCount, 0) {
		return o, errors.New(errors.ErrCodeInvalidInput, "pseudo count must be > 0, got %v", o.PseudoCount)
	}
	if !ValidLayouts[o.Layout] {
		return o, errors.New(errors.ErrCodeInvalidInput, "invalid layout %q (must be paired or long)", o.Layout)
	}
	for _, t := range o.Tooltips {
		if t.Property == "" {
			return o, errors.New(errors.ErrCodeInvalidInput, "tooltip property cannot be empty")
		}
	}
	return o, nil
}

// Selector names one or more distinct entities.
type Selector struct {
	ids []string
}

// NewSelector validates ids. It rejects an empty selector, empty or
// malformed identifiers and duplicates.
func NewSelector(ids ...string) (Selector, error) {
	if len(ids) == 0 {
		return Selector{}, errors.New(errors.ErrCodeInvalidInput, "selector names no entities")
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if err := errors.ValidateIdentifier(id); err != nil {
			return Selector{}, err
		}
		if seen[id] {
			return Selector{}, errors.New(errors.ErrCodeInvalidInput, "selector names %q twice", id)
		}
		seen[id] = true
	}
	return Selector{ids: slices.Clone(ids)}, nil
}

// IDs returns the identifiers in selector order.
func (s Selector) IDs() []string { return slices.Clone(s.ids) }

// Len returns the number of identifiers.
func (s Selector) Len() int { return len(s.ids) }

// Extract reads the selected entities from src and returns them as a tidy
// dataset.
//
// Unknown identifiers fail with NOT_FOUND naming exactly those identifiers,
// in selector order.
func Extract(src source.Reader, sel Selector, opts Options) (tidy.Dataset, error) {
	ds, err := extract(src, sel, opts)
	return ds, errors.WithStage(errors.StageExtract, err)
}

func extract(src source.Reader, sel Selector, opts Options) (tidy.Dataset, error) {
	if src == nil {
		return tidy.Dataset{}, errors.New(errors.ErrCodeInvalidInput, "no source")
	}
	if sel.Len() == 0 {
		return tidy.Dataset{}, errors.New(errors.ErrCodeInvalidInput, "selector names no entities")
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return tidy.Dataset{}, err
	}

	entities, err := src.AxisEntries(opts.EntityAxis)
	if err != nil {
		return tidy.Dataset{}, err
	}
	if missing := unknown(sel.ids, entities); len(missing) > 0 {
		return tidy.Dataset{}, errors.NotFound(opts.EntityAxis, missing)
	}

	samples, err := src.AxisEntries(opts.SampleAxis)
	if err != nil {
		return tidy.Dataset{}, err
	}

	values := make([][]float64, sel.Len())
	for i, id := range sel.ids {
		row, err := src.Lookup(opts.EntityAxis, opts.SampleAxis, opts.Statistic, id)
		if err != nil {
			return tidy.Dataset{}, err
		}
		if len(row) != len(samples) {
			return tidy.Dataset{}, errors.New(errors.ErrCodeInternal,
				"lookup of %q returned %d values for %d samples", id, len(row), len(samples))
		}
		values[i] = transform(row, opts.Transform, opts.PseudoCount)
	}

	var extras []tidy.Column
	if !opts.NoGroup {
		group, err := groupColumn(src, opts.SampleAxis, opts.Group)
		if err != nil {
			return tidy.Dataset{}, err
		}
		extras = append(extras, group)
	}
	if opts.Tooltips != nil {
		tips, err := Tooltips(src, opts.SampleAxis, opts.Tooltips)
		if err != nil {
			return tidy.Dataset{}, err
		}
		extras = append(extras, tidy.Text(TooltipColumn, tidy.RoleTooltip, tips))
	}

	if opts.Layout == LayoutLong {
		return long(opts.EntityAxis, sel.ids, samples, values, extras)
	}
	return paired(sel.ids, samples, values, extras)
}

// paired builds one row per sample with one value column per entity.
func paired(ids, samples []string, values [][]float64, extras []tidy.Column) (tidy.Dataset, error) {
	cols := []tidy.Column{tidy.Text(SampleColumn, tidy.RoleKey, samples)}
	for i, id := range ids {
		if id == SampleColumn || id == GroupColumn || id == TooltipColumn {
			return tidy.Dataset{}, errors.New(errors.ErrCodeInvalidInput,
				"entity %q clashes with a column name of the paired layout", id)
		}
		cols = append(cols, tidy.Numeric(id, tidy.RoleValue, values[i]))
	}
	return tidy.New(append(cols, extras...)...)
}

// long builds one row per (entity, sample) pair, entities outermost.
func long(entityAxis string, ids, samples []string, values [][]float64, extras []tidy.Column) (tidy.Dataset, error) {
	switch entityAxis {
	case SampleColumn, ValueColumn, GroupColumn, TooltipColumn:
		return tidy.Dataset{}, errors.New(errors.ErrCodeInvalidInput,
			"entity axis %q clashes with a column name of the long layout", entityAxis)
	}
	n := len(ids) * len(samples)
	rows := make([]int, 0, n)
	entity := make([]string, 0, n)
	sample := make([]string, 0, n)
	value := make([]float64, 0, n)
	for i, id := range ids {
		for j, s := range samples {
			entity = append(entity, id)
			sample = append(sample, s)
			value = append(value, values[i][j])
			rows = append(rows, j)
		}
	}

	cols := []tidy.Column{
		tidy.Categorical(entityAxis, tidy.RoleEntity, entity),
		tidy.Text(SampleColumn, tidy.RoleKey, sample),
		tidy.Numeric(ValueColumn, tidy.RoleValue, value),
	}
	if len(extras) == 0 {
		return tidy.New(cols...)
	}
	perSample, err := tidy.New(extras...)
	if err != nil {
		return tidy.Dataset{}, err
	}
	return tidy.New(append(cols, perSample.Take(rows).Columns()...)...)
}

// groupColumn reads the group property and stores it as a categorical
// column. Numeric and bool properties are formatted as text.
func groupColumn(src source.Reader, axis, property string) (tidy.Column, error) {
	vec, err := src.Vector(axis, property)
	if err != nil {
		return tidy.Column{}, err
	}
	labels := make([]string, vec.Len())
	for i := range labels {
		labels[i] = vec.Format(i)
	}
	return tidy.Categorical(GroupColumn, tidy.RoleGroup, labels), nil
}

func unknown(ids, entries []string) []string {
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e] = true
	}
	var missing []string
	for _, id := range ids {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func transform(row []float64, t Transform, pseudo float64) []float64 {
	out := slices.Clone(row)
	switch t {
	case TransformLog2:
		for i, v := range out {
			out[i] = math.Log2(v + pseudo)
		}
	case TransformFoldChange:
		base := median(row) + pseudo
		for i, v := range out {
			out[i] = math.Log2((v + pseudo) / base)
		}
	}
	return out
}

// median ignores NaN values. A row with no values has a NaN median.
func median(row []float64) float64 {
	vals := make([]float64, 0, len(row))
	for _, v := range row {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	slices.Sort(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}
