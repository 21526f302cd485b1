package veneer

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Option keys.
const (
	KeyChartType         = "chart_type"
	KeyTitle             = "title"
	KeyWidth             = "width"
	KeyHeight            = "height"
	KeyTitleFontSize     = "title_font_size"
	KeyXTitle            = "x_title"
	KeyYTitle            = "y_title"
	KeyAxisTitleFontSize = "axis_title_font_size"
	KeyAxisLabelFontSize = "axis_label_font_size"
	KeyXMin              = "x_min"
	KeyXMax              = "x_max"
	KeyYMin              = "y_min"
	KeyYMax              = "y_max"
	KeyPointSize         = "point_size"
	KeyBorderWidth       = "border_width"
	KeyBorderColor       = "border_color"
	KeyTransparency      = "transparency"
	KeyColorScale        = "color_scale"
	KeyHighlightSize     = "highlight_size"
	KeyHighlightColor    = "highlight_color"
	KeyLegend            = "legend"
	KeyBackgroundColor   = "background_color"
	KeyTooltipFontSize   = "tooltip_font_size"
)

// ChartGeneGene is the gene-gene scatter chart.
const ChartGeneGene = "gene_gene"

// ChartTypes lists the supported chart types.
var ChartTypes = []string{ChartGeneGene}

// valueType is the type an option accepts.
type valueType int

const (
	typeNumber valueType = iota
	typeString
	typeBool
	typeColor
	typeEnum
)

func (t valueType) String() string {
	switch t {
	case typeNumber:
		return "number"
	case typeBool:
		return "bool"
	case typeColor:
		return "color"
	case typeEnum:
		return "enum"
	default:
		return "string"
	}
}

// option describes one recognized option.
type option struct {
	key      string
	typ      valueType
	def      any      // default; nil for optional options without a default
	check    func(float64) bool
	rule     string   // constraint text for numbers, e.g. "must be > 0"
	choices  []string // allowed values of enum options
	nullable bool     // nil is a valid value meaning "unset"
	doc      string
}

func positive(v float64) bool    { return v > 0 }
func nonNegative(v float64) bool { return v >= 0 }
func unit(v float64) bool        { return v >= 0 && v <= 1 }

// schema is the set of recognized options, by key.
var schema = indexSchema([]option{
	{key: KeyChartType, typ: typeEnum, def: ChartGeneGene, choices: ChartTypes, doc: "chart type"},
	{key: KeyTitle, typ: typeString, def: "", doc: "figure title; empty uses \"<x> vs <y>\""},
	{key: KeyWidth, typ: typeNumber, def: 800.0, check: positive, rule: "must be > 0", doc: "figure width in points"},
	{key: KeyHeight, typ: typeNumber, def: 600.0, check: positive, rule: "must be > 0", doc: "figure height in points"},
	{key: KeyTitleFontSize, typ: typeNumber, def: 18.0, check: nonNegative, rule: "must be >= 0", doc: "title font size; 0 hides the title"},
	{key: KeyXTitle, typ: typeString, def: "", doc: "x axis title; empty uses the x column name"},
	{key: KeyYTitle, typ: typeString, def: "", doc: "y axis title; empty uses the y column name"},
	{key: KeyAxisTitleFontSize, typ: typeNumber, def: 16.0, check: nonNegative, rule: "must be >= 0", doc: "axis title font size"},
	{key: KeyAxisLabelFontSize, typ: typeNumber, def: 12.0, check: nonNegative, rule: "must be >= 0", doc: "axis tick label font size"},
	{key: KeyXMin, typ: typeNumber, nullable: true, doc: "lowest x shown; unset picks it from the data"},
	{key: KeyXMax, typ: typeNumber, nullable: true, doc: "highest x shown; unset picks it from the data"},
	{key: KeyYMin, typ: typeNumber, nullable: true, doc: "lowest y shown; unset picks it from the data"},
	{key: KeyYMax, typ: typeNumber, nullable: true, doc: "highest y shown; unset picks it from the data"},
	{key: KeyPointSize, typ: typeNumber, def: 6.0, check: positive, rule: "must be > 0", doc: "point diameter"},
	{key: KeyBorderWidth, typ: typeNumber, def: 1.0, check: nonNegative, rule: "must be >= 0", doc: "point border width"},
	{key: KeyBorderColor, typ: typeColor, def: "black", doc: "point border color"},
	{key: KeyTransparency, typ: typeNumber, def: 0.0, check: unit, rule: "must be in [0, 1]", doc: "0 is opaque, 1 is invisible"},
	{key: KeyColorScale, typ: typeEnum, def: DefaultPalette, choices: PaletteNames(), doc: "palette for group colors"},
	{key: KeyHighlightSize, typ: typeNumber, def: 10.0, check: positive, rule: "must be > 0", doc: "diameter of highlighted points"},
	{key: KeyHighlightColor, typ: typeColor, def: "red", doc: "fill color of highlighted points"},
	{key: KeyLegend, typ: typeBool, def: true, doc: "show the group legend"},
	{key: KeyBackgroundColor, typ: typeColor, def: "white", doc: "canvas color"},
	{key: KeyTooltipFontSize, typ: typeNumber, def: 12.0, check: nonNegative, rule: "must be >= 0", doc: "tooltip font size"},
})

// bounds pairs options that must be ordered when both are set.
var bounds = [][2]string{{KeyXMin, KeyXMax}, {KeyYMin, KeyYMax}}

func indexSchema(opts []option) map[string]option {
	out := make(map[string]option, len(opts))
	for _, o := range opts {
		out[o.key] = o
	}
	return out
}

// Keys returns the recognized option keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(schema))
	for k := range schema {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// OptionInfo documents one recognized option.
type OptionInfo struct {
	Key     string   `json:"key"`
	Type    string   `json:"type"`
	Default any      `json:"default"`
	Rule    string   `json:"rule,omitempty"`
	Choices []string `json:"choices,omitempty"`
	Doc     string   `json:"doc"`
}

// Describe documents every recognized option, sorted by key.
func Describe() []OptionInfo {
	out := make([]OptionInfo, 0, len(schema))
	for _, k := range Keys() {
		o := schema[k]
		out = append(out, OptionInfo{
			Key:     o.key,
			Type:    o.typ.String(),
			Default: o.def,
			Rule:    o.constraint(),
			Choices: o.choices,
			Doc:     o.doc,
		})
	}
	return out
}

// constraint is the text used in INVALID_OPTION errors.
func (o option) constraint() string {
	switch o.typ {
	case typeNumber:
		if o.rule != "" {
			return o.rule
		}
		return "must be a finite number"
	case typeBool:
		return "must be true or false"
	case typeColor:
		return "must be a standard color name or #rrggbb"
	case typeEnum:
		return "must be one of: " + strings.Join(o.choices, ", ")
	default:
		return "must be a string"
	}
}

// violation is the constraint v breaks. A value of the wrong type breaks
// the type rule rather than the option's range rule.
func (o option) violation(v any) string {
	if o.typ == typeNumber {
		if f, ok := number(v); !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return "must be a finite number"
		}
	}
	return o.constraint()
}

// normalize converts v to the option's canonical Go type: float64, string
// or bool. A nil v is only accepted by nullable options.
func (o option) normalize(v any) (any, bool) {
	if v == nil {
		return nil, o.nullable
	}
	switch o.typ {
	case typeNumber:
		f, ok := number(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		if o.check != nil && !o.check(f) {
			return nil, false
		}
		return f, true
	case typeBool:
		b, ok := v.(bool)
		return b, ok
	case typeColor:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		s = strings.ToLower(strings.TrimSpace(s))
		if _, err := ColorRGB(s); err != nil {
			return nil, false
		}
		return s, true
	case typeEnum:
		s, ok := v.(string)
		if !ok || !slices.Contains(o.choices, s) {
			return nil, false
		}
		return s, true
	default:
		s, ok := v.(string)
		return s, ok
	}
}

// number accepts every Go numeric type and json.Number.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// parseValue converts command-line text to the option's type.
func (o option) parseValue(s string) (any, error) {
	switch o.typ {
	case typeNumber:
		if o.nullable && (s == "" || s == "auto") {
			return nil, nil
		}
		n := json.Number(strings.TrimSpace(s))
		if _, err := n.Float64(); err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		return n, nil
	case typeBool:
		switch strings.ToLower(s) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0":
			return false, nil
		}
		return nil, fmt.Errorf("%q is not a bool", s)
	default:
		return s, nil
	}
}
