package tidy

import (
	"bytes"
	"context"
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/tanaylab/mcbrowse/pkg/errors"
)

// Field metadata keys carrying column kinds and roles through Arrow schemas.
const (
	metaKind = "mcbrowse.kind"
	metaRole = "mcbrowse.role"
)

// ToArrow converts the dataset to an Arrow record. Kinds and roles are kept
// in field metadata. The caller must Release the record.
func (d Dataset) ToArrow(mem memory.Allocator) arrow.Record {
	fields := make([]arrow.Field, len(d.cols))
	arrs := make([]arrow.Array, len(d.cols))
	for i, c := range d.cols {
		md := arrow.NewMetadata([]string{metaKind, metaRole}, []string{string(c.Kind), string(c.Role)})
		switch {
		case c.Kind == KindNumeric:
			b := array.NewFloat64Builder(mem)
			b.AppendValues(c.floats, nil)
			arrs[i] = b.NewArray()
			b.Release()
			fields[i] = arrow.Field{Name: c.Name, Type: arrow.PrimitiveTypes.Float64, Nullable: true, Metadata: md}
		case c.Kind == KindBool:
			b := array.NewBooleanBuilder(mem)
			b.AppendValues(c.bools, nil)
			arrs[i] = b.NewArray()
			b.Release()
			fields[i] = arrow.Field{Name: c.Name, Type: arrow.FixedWidthTypes.Boolean, Nullable: true, Metadata: md}
		default:
			b := array.NewStringBuilder(mem)
			b.AppendValues(c.strings, nil)
			arrs[i] = b.NewArray()
			b.Release()
			fields[i] = arrow.Field{Name: c.Name, Type: arrow.BinaryTypes.String, Nullable: true, Metadata: md}
		}
	}

	rec := array.NewRecord(arrow.NewSchema(fields, nil), arrs, int64(d.rows))
	for _, a := range arrs {
		a.Release()
	}
	return rec
}

// FromTable converts an Arrow table to a dataset. Kinds and roles come from
// field metadata when present and are inferred otherwise.
func FromTable(tbl arrow.Table) (Dataset, error) {
	cols, err := columnsFor(tbl.Schema())
	if err != nil {
		return Dataset{}, err
	}
	if tbl.NumRows() > 0 {
		tr := array.NewTableReader(tbl, tbl.NumRows())
		defer tr.Release()
		for tr.Next() {
			if err := appendRecord(cols, tr.Record()); err != nil {
				return Dataset{}, err
			}
		}
		if err := tr.Err(); err != nil {
			return Dataset{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read table")
		}
	}
	return New(cols...)
}

// WriteCSV writes the dataset as CSV with a header row. Kinds and roles are
// not stored; [ReadCSV] infers them.
func (d Dataset) WriteCSV(w io.Writer) error {
	rec := d.ToArrow(memory.DefaultAllocator)
	defer rec.Release()

	cw := csv.NewWriter(w, rec.Schema(), csv.WithHeader(true))
	if err := cw.Write(rec); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if err := cw.Flush(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ReadCSV reads a CSV table with a header row. Column types are decided
// over the whole file: a column is numeric when every non-empty cell parses
// as a number, bool when every such cell is true or false, and text
// otherwise. The named textColumns are always read as text, so identifiers
// that look like numbers keep their spelling.
func ReadCSV(r io.Reader, textColumns ...string) (Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Dataset{}, fmt.Errorf("read csv: %w", err)
	}
	schema, err := sniffCSV(data, textColumns)
	if err != nil {
		return Dataset{}, err
	}
	if schema.NumFields() == 0 {
		return Dataset{}, nil
	}
	cols, err := columnsFor(schema)
	if err != nil {
		return Dataset{}, err
	}

	cr := csv.NewReader(bytes.NewReader(data), schema,
		csv.WithHeader(true),
		csv.WithChunk(csvChunk),
		csv.WithNullReader(false, csvNulls...),
	)
	defer cr.Release()

	for cr.Next() {
		if err := appendRecord(cols, cr.Record()); err != nil {
			return Dataset{}, err
		}
	}
	if err := cr.Err(); err != nil && err != io.EOF {
		return Dataset{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read csv")
	}
	return New(cols...)
}

const csvChunk = 1024

var (
	csvNulls = []string{"", "NA"}
	csvBools = []string{"true", "false", "True", "False", "TRUE", "FALSE"}
)

// sniffCSV decides column types from every row, where the Arrow inferring
// reader would look only at the first one.
func sniffCSV(data []byte, textColumns []string) (*arrow.Schema, error) {
	cr := stdcsv.NewReader(bytes.NewReader(data))
	header, err := cr.Read()
	if err == io.EOF {
		return arrow.NewSchema(nil, nil), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read csv header")
	}

	numeric := make([]bool, len(header))
	boolean := make([]bool, len(header))
	for i := range header {
		numeric[i], boolean[i] = true, true
	}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read csv")
		}
		for i, cell := range row {
			if slices.Contains(csvNulls, cell) {
				continue
			}
			if numeric[i] {
				_, perr := strconv.ParseFloat(cell, 64)
				numeric[i] = perr == nil
			}
			if boolean[i] {
				boolean[i] = slices.Contains(csvBools, cell)
			}
		}
	}

	fields := make([]arrow.Field, len(header))
	for i, name := range header {
		f := arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
		switch {
		case slices.Contains(textColumns, name):
		case numeric[i]:
			f.Type = arrow.PrimitiveTypes.Float64
		case boolean[i]:
			f.Type = arrow.FixedWidthTypes.Boolean
		}
		fields[i] = f
	}
	return arrow.NewSchema(fields, nil), nil
}

// WriteParquet writes the dataset as a Snappy-compressed Parquet file with
// the Arrow schema stored alongside, so kinds and roles survive.
func (d Dataset) WriteParquet(w io.Writer) error {
	rec := d.ToArrow(memory.DefaultAllocator)
	defer rec.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	fw, err := pqarrow.NewFileWriter(rec.Schema(), w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// ReadParquet reads a Parquet file written by [Dataset.WriteParquet] or any
// other producer of flat tables.
func ReadParquet(r parquet.ReaderAtSeeker) (Dataset, error) {
	pf, err := file.NewParquetReader(r)
	if err != nil {
		return Dataset{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "open parquet")
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return Dataset{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "create arrow reader")
	}

	tbl, err := fr.ReadTable(context.Background())
	if err != nil {
		return Dataset{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read parquet")
	}
	defer tbl.Release()

	return FromTable(tbl)
}

func columnsFor(schema *arrow.Schema) ([]Column, error) {
	cols := make([]Column, schema.NumFields())
	for i, f := range schema.Fields() {
		kind := Kind(metaValue(f.Metadata, metaKind))
		if !kind.Valid() {
			k, err := kindOf(f)
			if err != nil {
				return nil, err
			}
			kind = k
		}
		role := Role(metaValue(f.Metadata, metaRole))
		if !role.Valid() {
			role = InferRole(f.Name, kind)
		}
		cols[i] = Column{Field: Field{Name: f.Name, Kind: kind, Role: role}}
	}
	return cols, nil
}

func kindOf(f arrow.Field) (Kind, error) {
	switch f.Type.ID() {
	case arrow.FLOAT64, arrow.FLOAT32, arrow.FLOAT16,
		arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return KindNumeric, nil
	case arrow.BOOL:
		return KindBool, nil
	case arrow.DICTIONARY:
		return KindCategorical, nil
	case arrow.STRING, arrow.LARGE_STRING:
		if f.Name == "group" {
			return KindCategorical, nil
		}
		return KindString, nil
	}
	return "", errors.New(errors.ErrCodeUnsupported, "column %q has unsupported type %s", f.Name, f.Type)
}

func metaValue(md arrow.Metadata, key string) string {
	if i := md.FindKey(key); i >= 0 {
		return md.Values()[i]
	}
	return ""
}

func appendRecord(cols []Column, rec arrow.Record) error {
	for i := range cols {
		if err := appendArray(&cols[i], rec.Column(i)); err != nil {
			return err
		}
	}
	return nil
}

func appendArray(c *Column, arr arrow.Array) error {
	for i := 0; i < arr.Len(); i++ {
		var v any
		if !arr.IsNull(i) {
			switch a := arr.(type) {
			case *array.Float64:
				v = a.Value(i)
			case *array.Float32:
				v = a.Value(i)
			case *array.Int64:
				v = a.Value(i)
			case *array.Int32:
				v = a.Value(i)
			case *array.Int16:
				v = a.Value(i)
			case *array.Int8:
				v = a.Value(i)
			case *array.Uint64:
				v = a.Value(i)
			case *array.Uint32:
				v = a.Value(i)
			case *array.Uint16:
				v = a.Value(i)
			case *array.Uint8:
				v = a.Value(i)
			case *array.Boolean:
				v = a.Value(i)
			case *array.String:
				v = a.Value(i)
			case *array.LargeString:
				v = a.Value(i)
			case *array.Dictionary:
				v = a.Dictionary().ValueStr(a.GetValueIndex(i))
			default:
				v = arr.ValueStr(i)
			}
		} else if c.Kind == KindBool {
			v = false
		}
		if err := c.appendValue(v); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "column %q row %d", c.Name, i)
		}
	}
	return nil
}
