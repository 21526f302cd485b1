package pipeline

import (
	"bytes"
	"context"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/tanaylab/mcbrowse/pkg/cache"
	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/extract"
	"github.com/tanaylab/mcbrowse/pkg/source"
	"github.com/tanaylab/mcbrowse/pkg/tidy"
)

func testSource(t *testing.T) *source.Memory {
	t.Helper()
	src, err := source.NewBuilder().
		Axis("gene", []string{"CD3E", "CD8A", "MS4A1"}).
		Axis("metacell", []string{"M1", "M2", "M3", "M4"}).
		Strings("metacell", "type", []string{"T", "B", "T", "NK"}).
		Floats("metacell", "umis", []float64{100, 200, 300, 400}).
		Matrix("gene", "metacell", "fraction", [][]float64{
			{0.1, 0.2, 0.3, 0.4},
			{0.4, 0.3, 0.2, 0.1},
			{0, 0, 0.5, 0},
		}).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return src
}

func quietRunner(c cache.Cache) *Runner {
	return NewRunner(c, nil, log.New(io.Discard))
}

func extractLong() extract.Options {
	return extract.Options{Layout: extract.LayoutLong}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"json", false},
		{"html", false},
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "png"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}

	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}

	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	opts := Options{Entities: []string{"CD3E", "CD8A"}}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if !reflect.DeepEqual(opts.Formats, DefaultFormats) {
		t.Errorf("Formats = %v, want %v", opts.Formats, DefaultFormats)
	}
	if opts.Scale != DefaultScale {
		t.Errorf("Scale = %v, want %v", opts.Scale, DefaultScale)
	}
	if opts.Seed != DefaultSeed {
		t.Errorf("Seed = %v, want %v", opts.Seed, DefaultSeed)
	}

	// Idempotent
	before := opts
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("second ValidateAndSetDefaults() error = %v", err)
	}
	if !reflect.DeepEqual(before, opts) {
		t.Error("second call changed the options")
	}

	invalid := []Options{
		{},
		{Entities: []string{"CD3E"}, Formats: []string{"gif"}},
		{Entities: []string{"CD3E"}, Scale: -1},
	}
	for _, o := range invalid {
		if err := o.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("ValidateAndSetDefaults(%+v) error = %v, want INVALID_INPUT", o, err)
		}
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	opts := Options{Scale: 2}
	if got := opts.ArtifactKeyOpts("png"); got.Scale != 2 || got.Format != "png" {
		t.Errorf("ArtifactKeyOpts(png) = %+v", got)
	}
	if got := opts.ArtifactKeyOpts("json"); got.Scale != 0 {
		t.Errorf("ArtifactKeyOpts(json) scale = %v, want 0", got.Scale)
	}
}

func TestExecute(t *testing.T) {
	r := quietRunner(nil)
	res, err := r.Execute(context.Background(), testSource(t), Options{
		Entities: []string{"CD3E", "CD8A"},
		Veneer:   map[string]any{"title": "T cells"},
		Formats:  []string{"svg", "json"},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if res.Stats.Rows != 4 || res.Stats.Points != 4 {
		t.Errorf("Stats = %+v, want 4 rows and 4 points", res.Stats)
	}
	if res.Figure.Spec().Title != "T cells" {
		t.Errorf("Title = %q", res.Figure.Spec().Title)
	}
	if !strings.HasPrefix(string(res.Artifacts["svg"]), "<svg") {
		t.Error("svg artifact missing")
	}
	if !strings.Contains(string(res.Artifacts["json"]), `"chart_type"`) {
		t.Error("json artifact missing")
	}
	if res.FigureKey == "" {
		t.Error("FigureKey is empty")
	}
	if res.CacheInfo.RenderHit || res.CacheInfo.ExportHit {
		t.Errorf("CacheInfo = %+v on a null cache", res.CacheInfo)
	}
}

func TestExecuteCacheHits(t *testing.T) {
	c, err := cache.NewMemoryCache(0)
	if err != nil {
		t.Fatal(err)
	}
	r := quietRunner(c)
	defer r.Close()
	src := testSource(t)
	opts := Options{Entities: []string{"CD3E", "CD8A"}, Formats: []string{"svg"}}

	first, err := r.Execute(context.Background(), src, opts)
	if err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	second, err := r.Execute(context.Background(), src, opts)
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}
	if !second.CacheInfo.RenderHit || !second.CacheInfo.ExportHit {
		t.Errorf("second CacheInfo = %+v, want hits", second.CacheInfo)
	}
	if first.FigureKey != second.FigureKey {
		t.Error("figure keys differ between identical runs")
	}
	if !bytes.Equal(first.Artifacts["svg"], second.Artifacts["svg"]) {
		t.Error("cached artifact differs from the rendered one")
	}

	// A new format misses the export cache but still reuses the figure.
	opts.Formats = []string{"svg", "json"}
	third, err := r.Execute(context.Background(), src, opts)
	if err != nil {
		t.Fatalf("third Execute() error = %v", err)
	}
	if !third.CacheInfo.RenderHit || third.CacheInfo.ExportHit {
		t.Errorf("third CacheInfo = %+v", third.CacheInfo)
	}

	opts.Refresh = true
	fourth, err := r.Execute(context.Background(), src, opts)
	if err != nil {
		t.Fatalf("refresh Execute() error = %v", err)
	}
	if fourth.CacheInfo.RenderHit || fourth.CacheInfo.ExportHit {
		t.Errorf("refresh CacheInfo = %+v, want misses", fourth.CacheInfo)
	}
}

func TestShape(t *testing.T) {
	r := quietRunner(nil)
	ds, err := r.Extract(context.Background(), testSource(t), Options{Entities: []string{"CD3E", "CD8A"}})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	tests := []struct {
		name        string
		opts        Options
		wantSamples []string
		wantHigh    []bool
	}{
		{
			name:        "none",
			wantSamples: []string{"M1", "M2", "M3", "M4"},
		},
		{
			name:        "filter",
			opts:        Options{Filter: map[string][]any{"|group": {"T", "NK"}}},
			wantSamples: []string{"M1", "M3", "M4"},
		},
		{
			name:        "highlight",
			opts:        Options{Highlight: map[string][]any{"|group": {"B"}}},
			wantSamples: []string{"M1", "M2", "M3", "M4"},
			wantHigh:    []bool{false, true, false, false},
		},
		{
			name:        "sort",
			opts:        Options{Sort: []string{"<group", ">CD3E"}},
			wantSamples: []string{"M2", "M4", "M3", "M1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Shape(ds, tt.opts)
			if err != nil {
				t.Fatalf("Shape() error = %v", err)
			}
			samples, _ := got.Column("sample")
			if !reflect.DeepEqual(samples.Strings(), tt.wantSamples) {
				t.Errorf("samples = %v, want %v", samples.Strings(), tt.wantSamples)
			}
			if tt.wantHigh != nil {
				col, ok := got.Column(tidy.HighlightColumn)
				if !ok {
					t.Fatal("highlight column missing")
				}
				if !reflect.DeepEqual(col.Bools(), tt.wantHigh) {
					t.Errorf("highlighted = %v, want %v", col.Bools(), tt.wantHigh)
				}
			}
		})
	}

	a, _ := r.Shape(ds, Options{Randomize: true, Seed: 7})
	b, _ := r.Shape(ds, Options{Randomize: true, Seed: 7})
	if !a.Equal(b) {
		t.Error("randomize with equal seeds gave different orders")
	}

	_, err = r.Shape(ds, Options{Sort: []string{"group"}})
	if !errors.Is(err, errors.ErrCodeInvalidInput) || errors.StageOf(err) != errors.StageExtract {
		t.Errorf("Shape(bad sort) error = %v, want INVALID_INPUT at extract", err)
	}
}

func TestExecuteStageErrors(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantCode  errors.Code
		wantStage errors.Stage
	}{
		{
			name:      "unknown entity",
			opts:      Options{Entities: []string{"CD3E", "NOPE"}},
			wantCode:  errors.ErrCodeNotFound,
			wantStage: errors.StageExtract,
		},
		{
			name:      "unknown option",
			opts:      Options{Entities: []string{"CD3E", "CD8A"}, Veneer: map[string]any{"colour": "red"}},
			wantCode:  errors.ErrCodeUnknownOption,
			wantStage: errors.StageConfigure,
		},
		{
			name:      "invalid option",
			opts:      Options{Entities: []string{"CD3E", "CD8A"}, Veneer: map[string]any{"point_size": -1}},
			wantCode:  errors.ErrCodeInvalidOption,
			wantStage: errors.StageConfigure,
		},
		{
			name:      "empty after filter",
			opts:      Options{Entities: []string{"CD3E", "CD8A"}, Filter: map[string][]any{"|group": {"none"}}},
			wantCode:  errors.ErrCodeEmptyData,
			wantStage: errors.StageRender,
		},
		{
			name: "long layout",
			opts: Options{
				Entities: []string{"CD3E", "CD8A"},
				Options:  extractLong(),
			},
			wantCode:  errors.ErrCodeSchemaMismatch,
			wantStage: errors.StageRender,
		},
	}
	r := quietRunner(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Execute(context.Background(), testSource(t), tt.opts)
			if !errors.Is(err, tt.wantCode) {
				t.Fatalf("Execute() error = %v, want %s", err, tt.wantCode)
			}
			if got := errors.StageOf(err); got != tt.wantStage {
				t.Errorf("StageOf() = %q, want %q", got, tt.wantStage)
			}
		})
	}
}

// countingReader counts every read that reaches the wrapped reader.
type countingReader struct {
	source.Reader
	reads int
}

func (c *countingReader) AxisEntries(axis string) ([]string, error) {
	c.reads++
	return c.Reader.AxisEntries(axis)
}

func (c *countingReader) Vector(axis, property string) (tidy.Column, error) {
	c.reads++
	return c.Reader.Vector(axis, property)
}

func (c *countingReader) Lookup(rowsAxis, colsAxis, property, entry string) ([]float64, error) {
	c.reads++
	return c.Reader.Lookup(rowsAxis, colsAxis, property, entry)
}

func TestExecuteConfiguresBeforeReading(t *testing.T) {
	tests := []struct {
		name     string
		entities []string
		veneer   map[string]any
		wantCode errors.Code
	}{
		{"invalid option", []string{"CD3E", "CD8A"}, map[string]any{"point_size": -1}, errors.ErrCodeInvalidOption},
		{"unknown option", []string{"CD3E", "CD8A"}, map[string]any{"colour": "red"}, errors.ErrCodeUnknownOption},
		{"unknown entity too", []string{"CD3E", "NOPE"}, map[string]any{"point_size": -1}, errors.ErrCodeInvalidOption},
	}
	r := quietRunner(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &countingReader{Reader: testSource(t)}
			_, err := r.Execute(context.Background(), src, Options{Entities: tt.entities, Veneer: tt.veneer})
			if !errors.Is(err, tt.wantCode) {
				t.Fatalf("Execute() error = %v, want %s", err, tt.wantCode)
			}
			if errors.StageOf(err) != errors.StageConfigure {
				t.Errorf("StageOf() = %q, want configure", errors.StageOf(err))
			}
			if src.reads != 0 {
				t.Errorf("reads = %d, want 0", src.reads)
			}
		})
	}
}
