package source

import (
	"fmt"
	"sort"

	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/tidy"
)

type memAxis struct {
	entries []string
	index   map[string]int
	vectors map[string]tidy.Column
}

type matrixKey struct {
	rows, cols, property string
}

// Memory is an in-memory repository. It is immutable once built and safe for
// concurrent use.
type Memory struct {
	axes     map[string]*memAxis
	matrices map[matrixKey][][]float64
}

var (
	_ Reader    = (*Memory)(nil)
	_ Describer = (*Memory)(nil)
)

// Axes returns the axis names in sorted order.
func (m *Memory) Axes() []string {
	names := make([]string, 0, len(m.axes))
	for name := range m.axes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AxisEntries returns the entries of axis.
func (m *Memory) AxisEntries(axis string) ([]string, error) {
	a, err := m.axis(axis)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), a.entries...), nil
}

// Vector returns the named per-entry property of axis.
func (m *Memory) Vector(axis, property string) (tidy.Column, error) {
	a, err := m.axis(axis)
	if err != nil {
		return tidy.Column{}, err
	}
	col, ok := a.vectors[property]
	if !ok {
		return tidy.Column{}, propertyNotFound(axis + ";" + property)
	}
	return col, nil
}

// Lookup returns the matrix row of entry.
func (m *Memory) Lookup(rowsAxis, colsAxis, property, entry string) ([]float64, error) {
	rows, err := m.axis(rowsAxis)
	if err != nil {
		return nil, err
	}
	if _, err := m.axis(colsAxis); err != nil {
		return nil, err
	}
	matrix, ok := m.matrices[matrixKey{rowsAxis, colsAxis, property}]
	if !ok {
		return nil, propertyNotFound(MatrixInfo{rowsAxis, colsAxis, property}.String())
	}
	i, ok := rows.index[entry]
	if !ok {
		return nil, errors.NotFound(rowsAxis, []string{entry})
	}
	return append([]float64(nil), matrix[i]...), nil
}

// Describe lists the axes, their vector properties and the matrices.
func (m *Memory) Describe() (Description, error) {
	var desc Description
	for _, name := range m.Axes() {
		a := m.axes[name]
		var props []string
		for p := range a.vectors {
			props = append(props, p)
		}
		sort.Strings(props)
		desc.Axes = append(desc.Axes, AxisInfo{Name: name, Entries: len(a.entries), Properties: props})
	}
	for k := range m.matrices {
		desc.Matrices = append(desc.Matrices, MatrixInfo{k.rows, k.cols, k.property})
	}
	sortMatrices(desc.Matrices)
	return desc, nil
}

func (m *Memory) axis(name string) (*memAxis, error) {
	a, ok := m.axes[name]
	if !ok {
		return nil, errors.NotFound("axis", []string{name})
	}
	return a, nil
}

func propertyNotFound(name string) error {
	return errors.NotFound("property", []string{name})
}

// Builder assembles a [Memory] repository. Methods record the first error,
// which Build returns.
//
//	src, err := source.NewBuilder().
//	    Axis("gene", []string{"G1", "G2"}).
//	    Axis("metacell", []string{"M1", "M2"}).
//	    Matrix("gene", "metacell", "fraction", [][]float64{{1, 3}, {2, 1.5}}).
//	    Build()
type Builder struct {
	m   *Memory
	err error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{m: &Memory{
		axes:     map[string]*memAxis{},
		matrices: map[matrixKey][][]float64{},
	}}
}

// Axis adds an axis with unique entry names.
func (b *Builder) Axis(name string, entries []string) *Builder {
	if b.err != nil {
		return b
	}
	if err := errors.ValidateName("axis", name); err != nil {
		b.err = err
		return b
	}
	if _, dup := b.m.axes[name]; dup {
		b.err = errors.New(errors.ErrCodeInvalidInput, "duplicate axis %q", name)
		return b
	}
	a := &memAxis{
		entries: append([]string(nil), entries...),
		index:   make(map[string]int, len(entries)),
		vectors: map[string]tidy.Column{},
	}
	for i, e := range entries {
		if _, dup := a.index[e]; dup {
			b.err = errors.New(errors.ErrCodeInvalidInput, "axis %q has duplicate entry %q", name, e)
			return b
		}
		a.index[e] = i
	}
	b.m.axes[name] = a
	return b
}

// Strings adds a textual vector property to an existing axis.
func (b *Builder) Strings(axis, property string, values []string) *Builder {
	return b.vector(axis, tidy.Categorical(property, tidy.RoleNone, values))
}

// Floats adds a numeric vector property to an existing axis.
func (b *Builder) Floats(axis, property string, values []float64) *Builder {
	return b.vector(axis, tidy.Numeric(property, tidy.RoleNone, values))
}

func (b *Builder) vector(axis string, col tidy.Column) *Builder {
	if b.err != nil {
		return b
	}
	a, ok := b.m.axes[axis]
	if !ok {
		b.err = errors.New(errors.ErrCodeInvalidInput, "vector %q on undeclared axis %q", col.Name, axis)
		return b
	}
	if col.Len() != len(a.entries) {
		b.err = errors.New(errors.ErrCodeInvalidInput,
			"vector %s;%s has %d values, want %d", axis, col.Name, col.Len(), len(a.entries))
		return b
	}
	ds, err := tidy.New(col)
	if err != nil {
		b.err = err
		return b
	}
	a.vectors[col.Name], _ = ds.Column(col.Name)
	return b
}

// Matrix adds a matrix property. values has one row per rowsAxis entry and
// one column per colsAxis entry.
func (b *Builder) Matrix(rowsAxis, colsAxis, property string, values [][]float64) *Builder {
	if b.err != nil {
		return b
	}
	rows, ok := b.m.axes[rowsAxis]
	if !ok {
		b.err = errors.New(errors.ErrCodeInvalidInput, "matrix on undeclared axis %q", rowsAxis)
		return b
	}
	cols, ok := b.m.axes[colsAxis]
	if !ok {
		b.err = errors.New(errors.ErrCodeInvalidInput, "matrix on undeclared axis %q", colsAxis)
		return b
	}
	name := MatrixInfo{rowsAxis, colsAxis, property}.String()
	if len(values) != len(rows.entries) {
		b.err = errors.New(errors.ErrCodeInvalidInput,
			"matrix %s has %d rows, want %d", name, len(values), len(rows.entries))
		return b
	}
	copied := make([][]float64, len(values))
	for i, row := range values {
		if len(row) != len(cols.entries) {
			b.err = errors.New(errors.ErrCodeInvalidInput,
				"matrix %s row %d has %d values, want %d", name, i, len(row), len(cols.entries))
			return b
		}
		copied[i] = append([]float64(nil), row...)
	}
	b.m.matrices[matrixKey{rowsAxis, colsAxis, property}] = copied
	return b
}

// Build returns the repository, or the first error recorded.
func (b *Builder) Build() (*Memory, error) {
	if b.err != nil {
		return nil, fmt.Errorf("build memory source: %w", b.err)
	}
	m := b.m
	b.m = nil
	b.err = errors.New(errors.ErrCodeInvalidInput, "builder already used")
	return m, nil
}
