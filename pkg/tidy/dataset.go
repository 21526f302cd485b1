// Package tidy holds tidy datasets: ordered records over a fixed, typed
// column schema, where each row is one observation and each column one
// variable.
//
// A [Dataset] is immutable. Every transformation ([Dataset.Filter],
// [Dataset.Highlight], [Dataset.Sort], [Dataset.Randomize],
// [Dataset.Select]) returns a new dataset and leaves the receiver untouched,
// so a dataset can be shared freely between goroutines and render calls.
//
// Columns are stored by kind: numeric columns as float64 (NaN marks a missing
// value), categorical and string columns as strings, and bool columns as
// bools. Each column also carries a [Role] that tells renderers which visual
// channel it can feed.
package tidy

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"strconv"

	"github.com/tanaylab/mcbrowse/pkg/errors"
)

// Kind is the scalar type of a column.
type Kind string

// Column kinds.
const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
	KindString      Kind = "string"
	KindBool        Kind = "bool"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindNumeric, KindCategorical, KindString, KindBool:
		return true
	}
	return false
}

// Textual reports whether values of kind k are stored as strings.
func (k Kind) Textual() bool {
	return k == KindCategorical || k == KindString
}

// Role tells renderers what a column means.
type Role string

// Column roles.
const (
	RoleKey       Role = "key"       // identifies the observation (sample name)
	RoleEntity    Role = "entity"    // names the entity a long-form row belongs to
	RoleValue     Role = "value"     // measured values
	RoleGroup     Role = "group"     // grouping variable (e.g. metacell type)
	RoleTooltip   Role = "tooltip"   // hover text
	RoleHighlight Role = "highlight" // highlighted-row flag
	RoleNone      Role = "none"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleKey, RoleEntity, RoleValue, RoleGroup, RoleTooltip, RoleHighlight, RoleNone:
		return true
	}
	return false
}

// HighlightColumn is the name of the column added by [Dataset.Highlight].
const HighlightColumn = "highlighted"

// Field describes one column of a dataset.
type Field struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	Role Role   `json:"role"`
}

// String returns "name:kind:role".
func (f Field) String() string {
	return f.Name + ":" + string(f.Kind) + ":" + string(f.Role)
}

// Column is a named, typed vector of values. Build one with [Numeric],
// [Categorical], [Text] or [Bool].
type Column struct {
	Field
	floats  []float64
	strings []string
	bools   []bool
}

// Numeric returns a numeric column. NaN marks a missing value.
func Numeric(name string, role Role, values []float64) Column {
	return Column{Field: Field{name, KindNumeric, role}, floats: values}
}

// Categorical returns a categorical column.
func Categorical(name string, role Role, values []string) Column {
	return Column{Field: Field{name, KindCategorical, role}, strings: values}
}

// Text returns a free-form string column.
func Text(name string, role Role, values []string) Column {
	return Column{Field: Field{name, KindString, role}, strings: values}
}

// Bool returns a bool column.
func Bool(name string, role Role, values []bool) Column {
	return Column{Field: Field{name, KindBool, role}, bools: values}
}

// Len returns the number of values in the column.
func (c Column) Len() int {
	switch {
	case c.Kind == KindNumeric:
		return len(c.floats)
	case c.Kind == KindBool:
		return len(c.bools)
	default:
		return len(c.strings)
	}
}

// Float returns the i-th value of a numeric column.
func (c Column) Float(i int) float64 { return c.floats[i] }

// Str returns the i-th value of a categorical or string column.
func (c Column) Str(i int) string { return c.strings[i] }

// Flag returns the i-th value of a bool column.
func (c Column) Flag(i int) bool { return c.bools[i] }

// Value returns the i-th value as float64, string or bool.
func (c Column) Value(i int) any {
	switch {
	case c.Kind == KindNumeric:
		return c.floats[i]
	case c.Kind == KindBool:
		return c.bools[i]
	default:
		return c.strings[i]
	}
}

// Format returns the i-th value as text.
func (c Column) Format(i int) string {
	switch {
	case c.Kind == KindNumeric:
		return FormatFloat(c.floats[i])
	case c.Kind == KindBool:
		return strconv.FormatBool(c.bools[i])
	default:
		return c.strings[i]
	}
}

// FormatFloat formats v without an exponent when it is a whole number of
// reasonable size, and in the shortest 'g' form otherwise.
func FormatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Floats returns a copy of a numeric column's values.
func (c Column) Floats() []float64 { return append([]float64(nil), c.floats...) }

// Strings returns a copy of a textual column's values.
func (c Column) Strings() []string { return append([]string(nil), c.strings...) }

// Bools returns a copy of a bool column's values.
func (c Column) Bools() []bool { return append([]bool(nil), c.bools...) }

func (c Column) clone() Column {
	out := Column{Field: c.Field}
	switch {
	case c.Kind == KindNumeric:
		out.floats = c.Floats()
	case c.Kind == KindBool:
		out.bools = c.Bools()
	default:
		out.strings = c.Strings()
	}
	return out
}

func (c Column) take(rows []int) Column {
	out := Column{Field: c.Field}
	switch {
	case c.Kind == KindNumeric:
		out.floats = make([]float64, len(rows))
		for i, r := range rows {
			out.floats[i] = c.floats[r]
		}
	case c.Kind == KindBool:
		out.bools = make([]bool, len(rows))
		for i, r := range rows {
			out.bools[i] = c.bools[r]
		}
	default:
		out.strings = make([]string, len(rows))
		for i, r := range rows {
			out.strings[i] = c.strings[r]
		}
	}
	return out
}

// Record is one row of a dataset keyed by column name.
type Record map[string]any

// Dataset is an immutable tidy table. The zero value is an empty dataset
// with no columns.
type Dataset struct {
	cols  []Column
	index map[string]int
	rows  int
}

// New builds a dataset from columns. Column names must be unique and
// non-empty, kinds and roles must be valid, and all columns must have the
// same length. The input slices are copied.
func New(cols ...Column) (Dataset, error) {
	d := Dataset{
		cols:  make([]Column, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if c.Name == "" {
			return Dataset{}, errors.New(errors.ErrCodeInvalidInput, "column %d has no name", i)
		}
		if _, dup := d.index[c.Name]; dup {
			return Dataset{}, errors.New(errors.ErrCodeInvalidInput, "duplicate column %q", c.Name)
		}
		if !c.Kind.Valid() {
			return Dataset{}, errors.New(errors.ErrCodeInvalidInput, "column %q has invalid kind %q", c.Name, c.Kind)
		}
		if c.Role == "" {
			c.Role = RoleNone
		}
		if !c.Role.Valid() {
			return Dataset{}, errors.New(errors.ErrCodeInvalidInput, "column %q has invalid role %q", c.Name, c.Role)
		}
		if i == 0 {
			d.rows = c.Len()
		} else if c.Len() != d.rows {
			return Dataset{}, errors.New(errors.ErrCodeInvalidInput,
				"column %q has %d values, want %d", c.Name, c.Len(), d.rows)
		}
		d.cols[i] = c.clone()
		d.index[c.Name] = i
	}
	return d, nil
}

// withColumns builds a dataset from columns that are already owned and
// consistent.
func withColumns(cols []Column, rows int) Dataset {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c.Name] = i
	}
	return Dataset{cols: cols, index: index, rows: rows}
}

// Len returns the number of rows.
func (d Dataset) Len() int { return d.rows }

// Empty reports whether the dataset has no rows.
func (d Dataset) Empty() bool { return d.rows == 0 }

// Fields returns the column schema in order.
func (d Dataset) Fields() []Field {
	out := make([]Field, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Field
	}
	return out
}

// Names returns the column names in order.
func (d Dataset) Names() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name
	}
	return out
}

// Schema returns the column schema as "name:kind:role" strings.
func (d Dataset) Schema() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Field.String()
	}
	return out
}

// Column returns the named column.
func (d Dataset) Column(name string) (Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return Column{}, false
	}
	return d.cols[i], true
}

// Columns returns all columns in order.
func (d Dataset) Columns() []Column {
	return append([]Column(nil), d.cols...)
}

// Record returns row i as a record.
func (d Dataset) Record(i int) Record {
	rec := make(Record, len(d.cols))
	for _, c := range d.cols {
		rec[c.Name] = c.Value(i)
	}
	return rec
}

// Records returns all rows as records.
func (d Dataset) Records() []Record {
	out := make([]Record, d.rows)
	for i := range out {
		out[i] = d.Record(i)
	}
	return out
}

// Take returns a dataset holding the given rows, in the given order.
func (d Dataset) Take(rows []int) Dataset {
	cols := make([]Column, len(d.cols))
	for i, c := range d.cols {
		cols[i] = c.take(rows)
	}
	return withColumns(cols, len(rows))
}

// Select returns a dataset holding only the named columns, in the given
// order.
func (d Dataset) Select(names ...string) (Dataset, error) {
	cols := make([]Column, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		c, ok := d.Column(name)
		if !ok {
			return Dataset{}, errors.New(errors.ErrCodeInvalidInput, "unknown column %q", name)
		}
		if seen[name] {
			return Dataset{}, errors.New(errors.ErrCodeInvalidInput, "duplicate column %q", name)
		}
		seen[name] = true
		cols = append(cols, c)
	}
	return withColumns(cols, d.rows), nil
}

// WithColumn returns a dataset with c appended, or replacing an existing
// column of the same name in place.
func (d Dataset) WithColumn(c Column) (Dataset, error) {
	if len(d.cols) > 0 && c.Len() != d.rows {
		return Dataset{}, errors.New(errors.ErrCodeInvalidInput,
			"column %q has %d values, want %d", c.Name, c.Len(), d.rows)
	}
	cols := append([]Column(nil), d.cols...)
	if i, ok := d.index[c.Name]; ok {
		cols[i] = c.clone()
	} else {
		cols = append(cols, c.clone())
	}
	return New(cols...)
}

// WithRoles returns a dataset whose named columns carry new roles.
func (d Dataset) WithRoles(roles map[string]Role) (Dataset, error) {
	cols := append([]Column(nil), d.cols...)
	for name, role := range roles {
		i, ok := d.index[name]
		if !ok {
			return Dataset{}, errors.New(errors.ErrCodeInvalidInput, "unknown column %q", name)
		}
		if !role.Valid() {
			return Dataset{}, errors.New(errors.ErrCodeInvalidInput, "column %q has invalid role %q", name, role)
		}
		cols[i].Role = role
	}
	return withColumns(cols, d.rows), nil
}

// Equal reports whether d and other have the same schema and values. NaN
// equals NaN.
func (d Dataset) Equal(other Dataset) bool {
	if d.rows != other.rows || len(d.cols) != len(other.cols) {
		return false
	}
	for i, c := range d.cols {
		o := other.cols[i]
		if c.Field != o.Field {
			return false
		}
		for r := 0; r < d.rows; r++ {
			switch {
			case c.Kind == KindNumeric:
				if !sameFloat(c.floats[r], o.floats[r]) {
					return false
				}
			case c.Kind == KindBool:
				if c.bools[r] != o.bools[r] {
					return false
				}
			default:
				if c.strings[r] != o.strings[r] {
					return false
				}
			}
		}
	}
	return true
}

// Digest returns a hex SHA-256 over the schema and values. Equal datasets
// have equal digests.
func (d Dataset) Digest() string {
	h := sha256.New()
	var buf [8]byte
	writeString := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write(buf[:])
		h.Write([]byte(s))
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(d.rows))
	h.Write(buf[:])
	for _, c := range d.cols {
		writeString(c.Field.String())
		for r := 0; r < d.rows; r++ {
			switch {
			case c.Kind == KindNumeric:
				v := c.floats[r]
				if math.IsNaN(v) {
					v = math.NaN()
				}
				binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
				h.Write(buf[:])
			case c.Kind == KindBool:
				if c.bools[r] {
					h.Write([]byte{1})
				} else {
					h.Write([]byte{0})
				}
			default:
				writeString(c.strings[r])
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func sameFloat(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}
