// Package veneer holds figure display configuration.
//
// A [Veneer] is an immutable, validated set of display options (titles,
// sizes, axis ranges, colors) that does not depend on any dataset, so one
// veneer can be reused across many render calls. Options are a flat map of
// recognized keys; every key has a documented default:
//
//	v, err := veneer.Build(map[string]any{"color_scale": "viridis", "point_size": 8})
//	if err != nil {
//	    // UNKNOWN_OPTION or INVALID_OPTION
//	}
//	v2, _ := v.With("title", "CD3E vs CD8A")
//
// [Build] rejects unknown keys with UNKNOWN_OPTION and values that violate
// their type or range with INVALID_OPTION, before any data is touched.
// Building from [Veneer.Options] yields an equal veneer.
package veneer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/tanaylab/mcbrowse/pkg/errors"
)

// Veneer is a validated, immutable option set. The zero value is not valid;
// use [Build] or [Default].
type Veneer struct {
	values map[string]any
}

// Default returns the veneer with every option at its default.
func Default() Veneer {
	v, _ := Build(nil)
	return v
}

// Build validates options and fills in defaults.
//
// Keys outside the schema fail with UNKNOWN_OPTION naming the first one in
// sorted order (all of them are in the error detail). Values of the wrong
// type or outside their range fail with INVALID_OPTION. Numbers may be any Go
// numeric type or json.Number and are stored as float64.
func Build(options map[string]any) (Veneer, error) {
	keys := slices.Sorted(maps.Keys(options))

	var unknown []string
	for _, k := range keys {
		if _, ok := schema[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		return Veneer{}, errors.UnknownOption(unknown)
	}

	values := make(map[string]any, len(schema))
	for k, o := range schema {
		values[k] = o.def
	}
	for _, k := range keys {
		o := schema[k]
		v, ok := o.normalize(options[k])
		if !ok {
			return Veneer{}, errors.InvalidOption(k, o.violation(options[k]))
		}
		values[k] = v
	}

	for _, b := range bounds {
		lo, hasLo := values[b[0]].(float64)
		hi, hasHi := values[b[1]].(float64)
		if hasLo && hasHi && !(lo < hi) {
			return Veneer{}, errors.InvalidOption(b[0], "must be less than "+b[1])
		}
	}
	return Veneer{values: values}, nil
}

// Options returns the full normalized option map, including defaults.
// Unset optional options map to nil.
func (v Veneer) Options() map[string]any {
	return maps.Clone(v.values)
}

// With returns a copy of v with key set to value.
func (v Veneer) With(key string, value any) (Veneer, error) {
	opts := v.Options()
	if opts == nil {
		opts = map[string]any{}
	}
	opts[key] = value
	return Build(opts)
}

// Merge returns a copy of v with every option of overrides applied.
func (v Veneer) Merge(overrides map[string]any) (Veneer, error) {
	opts := v.Options()
	if opts == nil {
		opts = map[string]any{}
	}
	maps.Copy(opts, overrides)
	return Build(opts)
}

// Equal reports whether v and other hold the same options.
func (v Veneer) Equal(other Veneer) bool {
	return maps.Equal(v.values, other.values)
}

// Digest returns a hex SHA-256 over the options in key order.
func (v Veneer) Digest() string {
	h := sha256.New()
	for _, k := range slices.Sorted(maps.Keys(v.values)) {
		val, _ := json.Marshal(v.values[k])
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write(val)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MarshalJSON writes the option map.
func (v Veneer) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.values)
}

// UnmarshalJSON builds the veneer from an option map.
func (v *Veneer) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var opts map[string]any
	if err := dec.Decode(&opts); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode veneer")
	}
	built, err := Build(opts)
	if err != nil {
		return err
	}
	*v = built
	return nil
}

// Float returns a number option. Unset optional numbers report false.
func (v Veneer) Float(key string) (float64, bool) {
	f, ok := v.values[key].(float64)
	return f, ok
}

// Number returns a number option, or 0 when it is unset.
func (v Veneer) Number(key string) float64 {
	f, _ := v.Float(key)
	return f
}

// Text returns a string, color or enum option.
func (v Veneer) Text(key string) string {
	s, _ := v.values[key].(string)
	return s
}

// Bool returns a bool option.
func (v Veneer) Bool(key string) bool {
	b, _ := v.values[key].(bool)
	return b
}

// Color returns a color option as #rrggbb.
func (v Veneer) Color(key string) string {
	rgb, err := ColorRGB(v.Text(key))
	if err != nil {
		return "#000000"
	}
	return rgb
}

// ChartType returns the chart_type option.
func (v Veneer) ChartType() string { return v.Text(KeyChartType) }

// Palette returns the palette named by color_scale.
func (v Veneer) Palette() Palette {
	p, err := LookupPalette(v.Text(KeyColorScale))
	if err != nil {
		p, _ = LookupPalette(DefaultPalette)
	}
	return p
}

// ParseAssignments parses "key=value" strings, converting each value to the
// type its option expects. The result is meant for [Build] or
// [Veneer.Merge]; unknown keys are kept so Build reports them.
func ParseAssignments(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "expected key=value, got %q", arg)
		}
		o, known := schema[key]
		if !known {
			out[key] = raw
			continue
		}
		val, err := o.parseValue(raw)
		if err != nil {
			return nil, errors.InvalidOption(key, o.constraint())
		}
		out[key] = val
	}
	return out, nil
}
