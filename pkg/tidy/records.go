package tidy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/tanaylab/mcbrowse/pkg/errors"
)

// FromRecords builds a dataset from plain records. Fields with an empty Kind
// get one inferred from the first non-nil value; fields with an empty Role
// get one inferred from the name and kind (see [InferRole]). A nil numeric
// value becomes NaN.
func FromRecords(fields []Field, records []map[string]any) (Dataset, error) {
	cols := make([]Column, len(fields))
	for i, f := range fields {
		if f.Kind == "" {
			f.Kind = inferKind(f.Name, records)
		}
		if f.Role == "" {
			f.Role = InferRole(f.Name, f.Kind)
		}
		col := Column{Field: f}
		for r, rec := range records {
			v, ok := rec[f.Name]
			if !ok {
				return Dataset{}, errors.New(errors.ErrCodeInvalidInput,
					"record %d has no value for column %q", r, f.Name)
			}
			if err := col.appendValue(v); err != nil {
				return Dataset{}, errors.Wrap(errors.ErrCodeInvalidInput, err,
					"record %d column %q", r, f.Name)
			}
		}
		cols[i] = col
	}
	if len(cols) == 0 && len(records) > 0 {
		return Dataset{}, errors.New(errors.ErrCodeInvalidInput, "records without columns")
	}
	return New(cols...)
}

// InferRole guesses a column role from its name and kind, for data that
// arrives without role metadata.
func InferRole(name string, kind Kind) Role {
	switch name {
	case "sample", "name":
		return RoleKey
	case "group":
		return RoleGroup
	case "tooltip":
		return RoleTooltip
	case HighlightColumn:
		if kind == KindBool {
			return RoleHighlight
		}
	}
	if kind == KindNumeric {
		return RoleValue
	}
	return RoleNone
}

func inferKind(name string, records []map[string]any) Kind {
	for _, rec := range records {
		switch v := rec[name].(type) {
		case nil:
			continue
		case string:
			if name == "group" {
				return KindCategorical
			}
			return KindString
		case bool:
			return KindBool
		default:
			if _, ok := toFloat(v); ok {
				return KindNumeric
			}
			return KindString
		}
	}
	return KindNumeric
}

func (c *Column) appendValue(v any) error {
	switch {
	case c.Kind == KindNumeric:
		if v == nil {
			c.floats = append(c.floats, math.NaN())
			return nil
		}
		f, ok := toFloat(v)
		if !ok {
			s, isStr := v.(string)
			if !isStr {
				return fmt.Errorf("want a number, got %T", v)
			}
			var err error
			if f, err = strconv.ParseFloat(s, 64); err != nil {
				return fmt.Errorf("want a number, got %q", s)
			}
		}
		c.floats = append(c.floats, f)
	case c.Kind == KindBool:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("want a bool, got %T", v)
		}
		c.bools = append(c.bools, b)
	default:
		switch x := v.(type) {
		case nil:
			c.strings = append(c.strings, "")
		case string:
			c.strings = append(c.strings, x)
		default:
			c.strings = append(c.strings, fmt.Sprint(x))
		}
	}
	return nil
}

type datasetJSON struct {
	Columns []Field          `json:"columns"`
	Records []map[string]any `json:"records"`
}

// MarshalJSON encodes the dataset as {"columns": [...], "records": [...]}.
// NaN values are encoded as null.
func (d Dataset) MarshalJSON() ([]byte, error) {
	out := datasetJSON{Columns: d.Fields(), Records: make([]map[string]any, d.rows)}
	if out.Columns == nil {
		out.Columns = []Field{}
	}
	for i := range out.Records {
		rec := make(map[string]any, len(d.cols))
		for _, c := range d.cols {
			v := c.Value(i)
			if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				v = nil
			}
			rec[c.Name] = v
		}
		out.Records[i] = rec
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var in datasetJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&in); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode dataset")
	}
	ds, err := FromRecords(in.Columns, in.Records)
	if err != nil {
		return err
	}
	*d = ds
	return nil
}
