package tidy

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"github.com/tanaylab/mcbrowse/pkg/errors"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		cols []Column
	}{
		{"unnamed", []Column{Numeric("", RoleValue, []float64{1})}},
		{"duplicate", []Column{Numeric("a", RoleValue, []float64{1}), Numeric("a", RoleValue, []float64{2})}},
		{"ragged", []Column{Numeric("a", RoleValue, []float64{1}), Text("b", RoleKey, []string{"x", "y"})}},
		{"bad role", []Column{Numeric("a", Role("axis"), []float64{1})}},
		{"bad kind", []Column{{Field: Field{Name: "a", Kind: "complex"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cols...)
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("New() error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestNewCopiesInput(t *testing.T) {
	values := []float64{1, 2}
	ds, err := New(Numeric("a", RoleValue, values))
	if err != nil {
		t.Fatal(err)
	}
	values[0] = 99

	col, _ := ds.Column("a")
	if col.Float(0) != 1 {
		t.Errorf("dataset value changed with input slice: %v", col.Floats())
	}

	out := col.Floats()
	out[1] = 99
	if col.Float(1) != 2 {
		t.Errorf("dataset value changed through Floats(): %v", col.Floats())
	}
}

func TestDefaultRole(t *testing.T) {
	ds, err := New(Numeric("a", "", []float64{1}))
	if err != nil {
		t.Fatal(err)
	}
	if got := ds.Fields()[0].Role; got != RoleNone {
		t.Errorf("Role = %q, want %q", got, RoleNone)
	}
}

func TestSelect(t *testing.T) {
	ds := ageBeauty(t)

	got, err := ds.Select("beauty")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if want := []string{"beauty"}; !reflect.DeepEqual(got.Names(), want) {
		t.Errorf("Names() = %v, want %v", got.Names(), want)
	}
	if got.Len() != 4 {
		t.Errorf("Len() = %d, want 4", got.Len())
	}

	if _, err := ds.Select("nope"); err == nil {
		t.Error("Select(unknown) error = nil, want error")
	}
	if _, err := ds.Select("age", "age"); err == nil {
		t.Error("Select(duplicate) error = nil, want error")
	}
}

func TestWithRoles(t *testing.T) {
	ds := ageBeauty(t)
	got, err := ds.WithRoles(map[string]Role{"age": RoleGroup})
	if err != nil {
		t.Fatalf("WithRoles() error = %v", err)
	}
	if got.Fields()[0].Role != RoleGroup {
		t.Errorf("Role = %q, want group", got.Fields()[0].Role)
	}
	if ds.Fields()[0].Role != RoleValue {
		t.Error("WithRoles() mutated its receiver")
	}
}

func TestDigest(t *testing.T) {
	a := ageBeauty(t)
	b := ageBeauty(t)
	if a.Digest() != b.Digest() {
		t.Error("equal datasets have different digests")
	}

	sorted, err := a.Sort(">age")
	if err != nil {
		t.Fatal(err)
	}
	if sorted.Digest() == a.Digest() {
		t.Error("reordered dataset has the same digest")
	}

	retagged, _ := a.WithRoles(map[string]Role{"age": RoleNone})
	if retagged.Digest() == a.Digest() {
		t.Error("dataset with different roles has the same digest")
	}
}

func TestEqualNaN(t *testing.T) {
	a, _ := New(Numeric("v", RoleValue, []float64{math.NaN(), 1}))
	b, _ := New(Numeric("v", RoleValue, []float64{math.NaN(), 1}))
	if !a.Equal(b) {
		t.Error("Equal() = false for NaN at the same position")
	}
	if a.Digest() != b.Digest() {
		t.Error("Digest() differs for NaN at the same position")
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1"},
		{12345678, "12345678"},
		{0.25, "0.25"},
		{-3, "-3"},
		{1e20, "1e+20"},
		{math.NaN(), "NaN"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.in); got != tt.want {
			t.Errorf("FormatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	ds, err := New(
		Text("sample", RoleKey, []string{"m1", "m2"}),
		Numeric("G1", RoleValue, []float64{1, math.NaN()}),
		Categorical("group", RoleGroup, []string{"T", "B"}),
		Bool(HighlightColumn, RoleHighlight, []bool{true, false}),
	)
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(ds)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var back Dataset
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !back.Equal(ds) {
		t.Errorf("round trip = %v, want %v", back.Records(), ds.Records())
	}
}

func TestFromRecordsInference(t *testing.T) {
	ds, err := FromRecords(
		[]Field{{Name: "sample"}, {Name: "G1"}, {Name: "group"}},
		[]map[string]any{
			{"sample": "m1", "G1": 1.5, "group": "T"},
			{"sample": "m2", "G1": nil, "group": "B"},
		},
	)
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}

	want := []string{"sample:string:key", "G1:numeric:value", "group:categorical:group"}
	if !reflect.DeepEqual(ds.Schema(), want) {
		t.Errorf("Schema() = %v, want %v", ds.Schema(), want)
	}
	g1, _ := ds.Column("G1")
	if !math.IsNaN(g1.Float(1)) {
		t.Errorf("nil numeric = %v, want NaN", g1.Float(1))
	}

	if _, err := FromRecords([]Field{{Name: "x"}}, []map[string]any{{"y": 1}}); err == nil {
		t.Error("FromRecords(missing value) error = nil, want error")
	}
	if _, err := FromRecords([]Field{{Name: "x", Kind: KindNumeric}}, []map[string]any{{"x": "abc"}}); err == nil {
		t.Error("FromRecords(non-number) error = nil, want error")
	}
}
