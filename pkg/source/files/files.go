// Package files implements a [source.Reader] over a directory of CSV or
// Parquet tables.
//
// Layout:
//
//	<root>/axes/<axis>.{parquet,csv}
//	    column "name" holds the axis entries, every other column is a vector
//	    property of the axis
//	<root>/matrices/<rows>/<columns>/<property>.{parquet,csv}
//	    column "name" holds row-axis entries, and there is one numeric column
//	    per column-axis entry
//
// Tables are read through Apache Arrow and kept in a bounded LRU cache, so a
// repository serves repeated lookups without rereading files. A Repository
// is safe for concurrent use.
package files

import (
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/source"
	"github.com/tanaylab/mcbrowse/pkg/tidy"
)

// Directory and column names of the repository layout.
const (
	AxesDir     = "axes"
	MatricesDir = "matrices"
	NameColumn  = "name"
)

// DefaultCacheSize is the number of tables kept in memory.
const DefaultCacheSize = 64

// Format is a table file format.
type Format string

// Supported formats. Parquet is preferred when both files exist.
const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
)

var formats = []Format{FormatParquet, FormatCSV}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", errors.New(errors.ErrCodeUnsupported, "unsupported table format %q (want parquet or csv)", s)
}

type table struct {
	ds    tidy.Dataset
	names []string
	index map[string]int
}

// Repository reads a repository directory.
type Repository struct {
	root   string
	axes   []string
	tables *lru.Cache[string, *table]
}

var (
	_ source.Reader    = (*Repository)(nil)
	_ source.Describer = (*Repository)(nil)
)

// Option configures a Repository.
type Option func(*options)

type options struct {
	cacheSize int
}

// WithCacheSize sets how many tables are kept in memory.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// Open opens the repository at root. Axis tables are discovered eagerly;
// table contents are read on first use.
func Open(root string, opts ...Option) (*Repository, error) {
	o := options{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cacheSize <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cache size must be > 0")
	}

	entries, err := os.ReadDir(filepath.Join(root, AxesDir))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open repository %s", root)
	}

	seen := map[string]bool{}
	var axes []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := tableName(e.Name())
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		axes = append(axes, name)
	}
	sort.Strings(axes)

	cache, err := lru.New[string, *table](o.cacheSize)
	if err != nil {
		return nil, err
	}
	return &Repository{root: root, axes: axes, tables: cache}, nil
}

// Root returns the repository directory.
func (r *Repository) Root() string { return r.root }

// Axes returns the axis names in sorted order.
func (r *Repository) Axes() []string {
	return append([]string(nil), r.axes...)
}

// AxisEntries returns the entries of axis.
func (r *Repository) AxisEntries(axis string) ([]string, error) {
	t, err := r.axisTable(axis)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), t.names...), nil
}

// Vector returns a vector property of axis.
func (r *Repository) Vector(axis, property string) (tidy.Column, error) {
	t, err := r.axisTable(axis)
	if err != nil {
		return tidy.Column{}, err
	}
	col, ok := t.ds.Column(property)
	if !ok || property == NameColumn {
		return tidy.Column{}, errors.NotFound("property", []string{axis + ";" + property})
	}
	switch col.Kind {
	case tidy.KindNumeric:
		return tidy.Numeric(property, tidy.RoleNone, col.Floats()), nil
	case tidy.KindBool:
		return tidy.Bool(property, tidy.RoleNone, col.Bools()), nil
	default:
		return tidy.Categorical(property, tidy.RoleNone, col.Strings()), nil
	}
}

// Lookup returns the matrix row of entry, aligned with the entries of
// colsAxis.
func (r *Repository) Lookup(rowsAxis, colsAxis, property, entry string) ([]float64, error) {
	rows, err := r.axisTable(rowsAxis)
	if err != nil {
		return nil, err
	}
	cols, err := r.axisTable(colsAxis)
	if err != nil {
		return nil, err
	}
	if _, ok := rows.index[entry]; !ok {
		return nil, errors.NotFound(rowsAxis, []string{entry})
	}

	m, err := r.matrixTable(rowsAxis, colsAxis, property)
	if err != nil {
		return nil, err
	}
	i, ok := m.index[entry]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"matrix %s has no row for %q", matrixName(rowsAxis, colsAxis, property), entry)
	}

	out := make([]float64, len(cols.names))
	for j, name := range cols.names {
		col, ok := m.ds.Column(name)
		if !ok || col.Kind != tidy.KindNumeric {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"matrix %s has no numeric column for %q", matrixName(rowsAxis, colsAxis, property), name)
		}
		out[j] = col.Float(i)
	}
	return out, nil
}

// Describe lists axes with their properties and every matrix file.
func (r *Repository) Describe() (source.Description, error) {
	var desc source.Description
	for _, axis := range r.axes {
		t, err := r.axisTable(axis)
		if err != nil {
			return source.Description{}, err
		}
		var props []string
		for _, name := range t.ds.Names() {
			if name != NameColumn {
				props = append(props, name)
			}
		}
		sort.Strings(props)
		desc.Axes = append(desc.Axes, source.AxisInfo{Name: axis, Entries: len(t.names), Properties: props})
	}

	base := filepath.Join(r.root, MatricesDir)
	err := filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 3 {
			return nil
		}
		property, ok := tableName(parts[2])
		if !ok {
			return nil
		}
		info := source.MatrixInfo{Rows: parts[0], Columns: parts[1], Property: property}
		for _, m := range desc.Matrices {
			if m == info {
				return nil
			}
		}
		desc.Matrices = append(desc.Matrices, info)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return source.Description{}, errors.Wrap(errors.ErrCodeInternal, err, "list matrices")
	}
	sort.Slice(desc.Matrices, func(i, j int) bool {
		return desc.Matrices[i].String() < desc.Matrices[j].String()
	})
	return desc, nil
}

func (r *Repository) axisTable(axis string) (*table, error) {
	if err := errors.ValidateName("axis", axis); err != nil {
		return nil, err
	}
	if _, found := slices.BinarySearch(r.axes, axis); !found {
		return nil, errors.NotFound("axis", []string{axis})
	}
	return r.load(filepath.Join(AxesDir, axis))
}

func (r *Repository) matrixTable(rowsAxis, colsAxis, property string) (*table, error) {
	if err := errors.ValidateName("property", property); err != nil {
		return nil, err
	}
	t, err := r.load(filepath.Join(MatricesDir, rowsAxis, colsAxis, property))
	if errors.Is(err, errors.ErrCodeNotFound) {
		return nil, errors.NotFound("property", []string{matrixName(rowsAxis, colsAxis, property)})
	}
	return t, err
}

// load reads the table at base (without extension), preferring Parquet.
func (r *Repository) load(base string) (*table, error) {
	if t, ok := r.tables.Get(base); ok {
		return t, nil
	}

	for _, f := range formats {
		path := filepath.Join(r.root, base+"."+string(f))
		if _, err := os.Stat(path); err != nil {
			continue
		}
		ds, err := readTable(path, f)
		if err != nil {
			return nil, err
		}
		t, err := index(ds, path)
		if err != nil {
			return nil, err
		}
		r.tables.Add(base, t)
		return t, nil
	}
	return nil, errors.New(errors.ErrCodeNotFound, "no table at %s", base)
}

func readTable(path string, f Format) (tidy.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return tidy.Dataset{}, errors.Wrap(errors.ErrCodeInternal, err, "open %s", path)
	}
	defer file.Close()

	var ds tidy.Dataset
	switch f {
	case FormatParquet:
		ds, err = tidy.ReadParquet(file)
	default:
		ds, err = tidy.ReadCSV(file, NameColumn)
	}
	if err != nil {
		return tidy.Dataset{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	return ds, nil
}

func index(ds tidy.Dataset, path string) (*table, error) {
	col, ok := ds.Column(NameColumn)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s has no %q column", path, NameColumn)
	}
	t := &table{ds: ds, names: make([]string, ds.Len()), index: make(map[string]int, ds.Len())}
	for i := range t.names {
		name := col.Format(i)
		if _, dup := t.index[name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "%s has duplicate name %q", path, name)
		}
		t.names[i] = name
		t.index[name] = i
	}
	return t, nil
}

func tableName(file string) (string, bool) {
	for _, f := range formats {
		if name, ok := strings.CutSuffix(file, "."+string(f)); ok && name != "" {
			return name, true
		}
	}
	return "", false
}

func matrixName(rows, cols, property string) string {
	return source.MatrixInfo{Rows: rows, Columns: cols, Property: property}.String()
}
