package tidy

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

func sampleDataset(t *testing.T) Dataset {
	t.Helper()
	ds, err := New(
		Text("sample", RoleKey, []string{"m1", "m2", "m3"}),
		Numeric("G1", RoleValue, []float64{1, 3, 0.5}),
		Numeric("G2", RoleValue, []float64{2, 1.5, 4}),
		Categorical("group", RoleGroup, []string{"T", "B", "T"}),
		Text("tooltip", RoleTooltip, []string{"m1", "m2", "m3"}),
	)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestToArrow(t *testing.T) {
	ds := sampleDataset(t)
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec := ds.ToArrow(mem)
	defer rec.Release()

	if rec.NumRows() != 3 {
		t.Errorf("NumRows() = %d, want 3", rec.NumRows())
	}
	if rec.NumCols() != 5 {
		t.Errorf("NumCols() = %d, want 5", rec.NumCols())
	}
	if got := metaValue(rec.Schema().Field(3).Metadata, metaKind); got != string(KindCategorical) {
		t.Errorf("group kind metadata = %q, want categorical", got)
	}
}

func TestParquetRoundTrip(t *testing.T) {
	ds := sampleDataset(t)

	var buf bytes.Buffer
	if err := ds.WriteParquet(&buf); err != nil {
		t.Fatalf("WriteParquet() error = %v", err)
	}

	back, err := ReadParquet(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadParquet() error = %v", err)
	}
	if !back.Equal(ds) {
		t.Errorf("round trip schema = %v, want %v", back.Schema(), ds.Schema())
	}
}

func TestCSVRoundTrip(t *testing.T) {
	ds := sampleDataset(t)

	var buf bytes.Buffer
	if err := ds.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "sample,G1,G2,group,tooltip\n") {
		t.Errorf("CSV header = %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}

	back, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if !back.Equal(ds) {
		t.Errorf("round trip schema = %v, want %v", back.Schema(), ds.Schema())
	}
}

func TestReadCSVTextColumns(t *testing.T) {
	in := "name,type,umis\n1,T,10\n2,B,20\n"

	ds, err := ReadCSV(strings.NewReader(in), "name")
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}

	name, _ := ds.Column("name")
	if name.Kind != KindString {
		t.Errorf("name kind = %q, want string", name.Kind)
	}
	if want := []string{"1", "2"}; !reflect.DeepEqual(name.Strings(), want) {
		t.Errorf("names = %v, want %v", name.Strings(), want)
	}
	umis, _ := ds.Column("umis")
	if want := []float64{10, 20}; !reflect.DeepEqual(umis.Floats(), want) {
		t.Errorf("umis = %v, want %v", umis.Floats(), want)
	}
}
