package files

import (
	"os"
	"path/filepath"

	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/source"
	"github.com/tanaylab/mcbrowse/pkg/tidy"
)

// Export writes every axis, vector and matrix of src under dir in the
// repository layout, so [Open] can read it back.
func Export(dir string, src source.Reader, format Format) error {
	if _, err := ParseFormat(string(format)); err != nil {
		return err
	}
	desc, err := source.Describe(src)
	if err != nil {
		return err
	}

	for _, axis := range desc.Axes {
		entries, err := src.AxisEntries(axis.Name)
		if err != nil {
			return err
		}
		cols := []tidy.Column{tidy.Text(NameColumn, tidy.RoleKey, entries)}
		for _, p := range axis.Properties {
			col, err := src.Vector(axis.Name, p)
			if err != nil {
				return err
			}
			cols = append(cols, col)
		}
		if err := writeTable(filepath.Join(dir, AxesDir, axis.Name), format, cols); err != nil {
			return err
		}
	}

	for _, m := range desc.Matrices {
		rows, err := src.AxisEntries(m.Rows)
		if err != nil {
			return err
		}
		colEntries, err := src.AxisEntries(m.Columns)
		if err != nil {
			return err
		}
		values := make([][]float64, len(colEntries))
		for j := range values {
			values[j] = make([]float64, len(rows))
		}
		for i, entry := range rows {
			row, err := src.Lookup(m.Rows, m.Columns, m.Property, entry)
			if err != nil {
				return err
			}
			for j, v := range row {
				values[j][i] = v
			}
		}
		cols := []tidy.Column{tidy.Text(NameColumn, tidy.RoleKey, rows)}
		for j, name := range colEntries {
			cols = append(cols, tidy.Numeric(name, tidy.RoleValue, values[j]))
		}
		base := filepath.Join(dir, MatricesDir, m.Rows, m.Columns, m.Property)
		if err := writeTable(base, format, cols); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(base string, format Format, cols []tidy.Column) error {
	ds, err := tidy.New(cols...)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", filepath.Dir(base))
	}

	path := base + "." + string(format)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", path)
	}
	defer f.Close()

	switch format {
	case FormatParquet:
		err = ds.WriteParquet(f)
	default:
		err = ds.WriteCSV(f)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return nil
}
