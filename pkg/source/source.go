// Package source defines read access to structured scientific data
// repositories organised by axes.
//
// A repository has named axes (for example "gene" and "metacell"), each with
// an ordered list of unique entry names. Per-axis vector properties
// (metacell "type") hold one value per entry; matrix properties
// ("gene,metacell;fraction") hold one number per (row entry, column entry)
// pair.
//
// [Reader] is the capability the extraction stage needs. It is read-only and
// returns NOT_FOUND errors for unknown axes, properties and entries.
// Implementations: [Memory], built with [Builder], and the file-backed
// repository in package files.
package source

import (
	"sort"

	"github.com/tanaylab/mcbrowse/pkg/tidy"
)

// Reader is read-only access to an axis-organised repository.
type Reader interface {
	// Axes returns the axis names in a stable order.
	Axes() []string

	// AxisEntries returns the ordered entry names of an axis.
	AxisEntries(axis string) ([]string, error)

	// Vector returns a per-entry property of an axis, aligned with
	// AxisEntries(axis). The column is named after the property.
	Vector(axis, property string) (tidy.Column, error)

	// Lookup returns the matrix row for entry of rowsAxis, aligned with
	// AxisEntries(colsAxis).
	Lookup(rowsAxis, colsAxis, property, entry string) ([]float64, error)
}

// AxisInfo summarises one axis.
type AxisInfo struct {
	Name       string   `json:"name"`
	Entries    int      `json:"entries"`
	Properties []string `json:"properties"`
}

// MatrixInfo names one matrix property.
type MatrixInfo struct {
	Rows     string `json:"rows"`
	Columns  string `json:"columns"`
	Property string `json:"property"`
}

// String returns the "rows,columns;property" form.
func (m MatrixInfo) String() string {
	return m.Rows + "," + m.Columns + ";" + m.Property
}

// Description lists what a repository holds.
type Description struct {
	Axes     []AxisInfo   `json:"axes"`
	Matrices []MatrixInfo `json:"matrices"`
}

// Describer is implemented by readers that can list their properties.
type Describer interface {
	Describe() (Description, error)
}

// Describe returns r's description. Readers that do not implement
// [Describer] are described by their axes alone.
func Describe(r Reader) (Description, error) {
	if d, ok := r.(Describer); ok {
		return d.Describe()
	}
	var desc Description
	for _, axis := range r.Axes() {
		entries, err := r.AxisEntries(axis)
		if err != nil {
			return Description{}, err
		}
		desc.Axes = append(desc.Axes, AxisInfo{Name: axis, Entries: len(entries)})
	}
	return desc, nil
}

func sortMatrices(ms []MatrixInfo) {
	sort.Slice(ms, func(i, j int) bool {
		return ms[i].String() < ms[j].String()
	})
}
