package tidy

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/tanaylab/mcbrowse/pkg/errors"
)

// Matcher decides whether a single column value is kept. Values are passed
// as float64 (numeric columns), string (categorical and string columns) or
// bool (bool columns).
type Matcher interface {
	Match(v any) bool
}

// Where adapts a predicate to a [Matcher].
type Where func(v any) bool

// Match calls w(v).
func (w Where) Match(v any) bool { return w(v) }

type valueSet struct {
	floats map[float64]bool
	strs   map[string]bool
	bools  map[bool]bool
}

// In returns a [Matcher] that keeps values equal to one of values. Numbers of
// any Go numeric type match numeric columns by value.
func In(values ...any) Matcher {
	s := valueSet{
		floats: map[float64]bool{},
		strs:   map[string]bool{},
		bools:  map[bool]bool{},
	}
	for _, v := range values {
		if f, ok := toFloat(v); ok {
			s.floats[f] = true
			continue
		}
		switch x := v.(type) {
		case string:
			s.strs[x] = true
		case bool:
			s.bools[x] = true
		}
	}
	return s
}

func (s valueSet) Match(v any) bool {
	switch x := v.(type) {
	case float64:
		return s.floats[x]
	case string:
		return s.strs[x]
	case bool:
		return s.bools[x]
	}
	return false
}

// Filter selects rows column by column. Each key is "|name" or "&name"; the
// row mask is the OR of all "|" column masks, AND-ed with every "&" column
// mask. An empty filter keeps every row.
type Filter map[string]Matcher

// MaskFunc decides whether a whole row is kept.
type MaskFunc func(r Record) bool

// Mask returns which rows survive f.
func (d Dataset) Mask(f Filter) ([]bool, error) {
	var orMask, andMask []bool

	// Sorted keys keep error reporting deterministic.
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if len(key) < 2 || (key[0] != '|' && key[0] != '&') {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"filter key %q must start with '|' or '&'", key)
		}
		col, ok := d.Column(key[1:])
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "filter names unknown column %q", key[1:])
		}
		m := f[key]
		if m == nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "filter %q has no matcher", key)
		}

		if key[0] == '|' {
			if orMask == nil {
				orMask = make([]bool, d.rows)
			}
			for i := range orMask {
				orMask[i] = orMask[i] || m.Match(col.Value(i))
			}
		} else {
			if andMask == nil {
				andMask = make([]bool, d.rows)
				for i := range andMask {
					andMask[i] = true
				}
			}
			for i := range andMask {
				andMask[i] = andMask[i] && m.Match(col.Value(i))
			}
		}
	}

	switch {
	case orMask == nil && andMask == nil:
		all := make([]bool, d.rows)
		for i := range all {
			all[i] = true
		}
		return all, nil
	case orMask == nil:
		return andMask, nil
	case andMask == nil:
		return orMask, nil
	}
	for i := range andMask {
		andMask[i] = andMask[i] && orMask[i]
	}
	return andMask, nil
}

// MaskWhere returns which rows fn keeps.
func (d Dataset) MaskWhere(fn MaskFunc) []bool {
	mask := make([]bool, d.rows)
	for i := range mask {
		mask[i] = fn(d.Record(i))
	}
	return mask
}

// Filter returns the rows that survive f.
func (d Dataset) Filter(f Filter) (Dataset, error) {
	mask, err := d.Mask(f)
	if err != nil {
		return Dataset{}, err
	}
	return d.Take(maskRows(mask)), nil
}

// FilterWhere returns the rows fn keeps.
func (d Dataset) FilterWhere(fn MaskFunc) Dataset {
	return d.Take(maskRows(d.MaskWhere(fn)))
}

// Highlight returns the dataset with a bool [HighlightColumn] column marking
// the rows selected by f. An existing highlight column is replaced.
func (d Dataset) Highlight(f Filter) (Dataset, error) {
	mask, err := d.Mask(f)
	if err != nil {
		return Dataset{}, err
	}
	return d.WithColumn(Bool(HighlightColumn, RoleHighlight, mask))
}

// HighlightWhere is like [Dataset.Highlight] with a row predicate.
func (d Dataset) HighlightWhere(fn MaskFunc) (Dataset, error) {
	return d.WithColumn(Bool(HighlightColumn, RoleHighlight, d.MaskWhere(fn)))
}

// ParseFilter builds a filter from plain data: each key maps to a list of
// values to keep, as sent by JSON or command-line callers.
func ParseFilter(spec map[string][]any) (Filter, error) {
	f := make(Filter, len(spec))
	for key, values := range spec {
		if len(key) < 2 || (key[0] != '|' && key[0] != '&') {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"filter key %q must start with '|' or '&'", key)
		}
		f[key] = In(values...)
	}
	return f, nil
}

// ParseFilterArgs parses "|name=v1,v2" and "&name=v" arguments with
// [SpecFromArgs] and builds the filter.
func ParseFilterArgs(args []string) (Filter, error) {
	spec, err := SpecFromArgs(args)
	if err != nil {
		return nil, err
	}
	return ParseFilter(spec)
}

// SpecFromArgs turns "|name=v1,v2" and "&name=v" arguments into the plain
// form accepted by [ParseFilter]. Values that parse as numbers or booleans
// also match numeric and bool columns; all values match textual columns
// verbatim.
func SpecFromArgs(args []string) (map[string][]any, error) {
	spec := make(map[string][]any, len(args))
	for _, arg := range args {
		key, list, ok := strings.Cut(arg, "=")
		if !ok || len(key) < 2 || (key[0] != '|' && key[0] != '&') {
			return nil, errors.New(errors.ErrCodeInvalidInput, "filter %q must look like |name=v1,v2", arg)
		}
		for _, v := range strings.Split(list, ",") {
			v = strings.TrimSpace(v)
			spec[key] = append(spec[key], v)
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				spec[key] = append(spec[key], f)
			}
			if b, err := strconv.ParseBool(v); err == nil {
				spec[key] = append(spec[key], b)
			}
		}
	}
	return spec, nil
}

func maskRows(mask []bool) []int {
	rows := make([]int, 0, len(mask))
	for i, keep := range mask {
		if keep {
			rows = append(rows, i)
		}
	}
	return rows
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}
