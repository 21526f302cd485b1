package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/source"
	"github.com/tanaylab/mcbrowse/pkg/source/files"
	"github.com/tanaylab/mcbrowse/pkg/tidy"
)

func testRepo(t *testing.T) string {
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
	dir := t.TempDir()
	if err := files.Export(dir, src, files.FormatCSV); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	return dir
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv(dataEnv, "")
	old := statusOut
	statusOut = io.Discard
	t.Cleanup(func() { statusOut = old })

	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInspect(t *testing.T) {
	repo := testRepo(t)

	out, err := execute(t, "inspect", "-d", repo)
	if err != nil {
		t.Fatalf("inspect error = %v", err)
	}
	for _, want := range []string{"gene", "metacell", "type", "fraction"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output lacks %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "inspect", "gene", "-d", repo)
	if err != nil {
		t.Fatalf("inspect gene error = %v", err)
	}
	if out != "CD3E\nCD8A\nMS4A1\n" {
		t.Errorf("inspect gene = %q", out)
	}

	out, err = execute(t, "inspect", "--json", "-d", repo)
	if err != nil {
		t.Fatalf("inspect --json error = %v", err)
	}
	var desc source.Description
	if err := json.Unmarshal([]byte(out), &desc); err != nil {
		t.Fatalf("inspect --json output is not JSON: %v", err)
	}
	if len(desc.Axes) != 2 {
		t.Errorf("axes = %d, want 2", len(desc.Axes))
	}

	if _, err := execute(t, "inspect", "cell", "-d", repo); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("inspect cell error = %v, want NOT_FOUND", err)
	}
}

func TestNoRepository(t *testing.T) {
	for _, args := range [][]string{
		{"inspect"},
		{"extract", "CD3E"},
		{"render", "CD3E", "CD8A"},
		{"pick"},
		{"serve"},
	} {
		t.Run(args[0], func(t *testing.T) {
			if _, err := execute(t, args...); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("%v error = %v, want INVALID_INPUT", args, err)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	repo := testRepo(t)

	out, err := execute(t, "extract", "CD3E,CD8A", "-d", repo, "--filter", "|group=T", "--sort", ">CD3E")
	if err != nil {
		t.Fatalf("extract error = %v", err)
	}
	var ds tidy.Dataset
	if err := json.Unmarshal([]byte(out), &ds); err != nil {
		t.Fatalf("extract output is not a dataset: %v", err)
	}
	samples, _ := ds.Column("sample")
	if want := []string{"M3", "M1"}; !reflect.DeepEqual(samples.Strings(), want) {
		t.Errorf("samples = %v, want %v", samples.Strings(), want)
	}

	path := filepath.Join(t.TempDir(), "tcells.csv")
	if _, err := execute(t, "extract", "CD3E", "CD8A", "-d", repo, "-o", path); err != nil {
		t.Fatalf("extract -o error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "sample,") {
		t.Errorf("csv output starts with %.20q", data)
	}

	if _, err := execute(t, "extract", "CD3E", "NOPE", "-d", repo); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("extract unknown gene error = %v, want NOT_FOUND", err)
	}
	if _, err := execute(t, "extract", "CD3E", "-d", repo, "-f", "xlsx"); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("extract -f xlsx error = %v, want UNSUPPORTED", err)
	}
}

func TestVeneer(t *testing.T) {
	out, err := execute(t, "veneer", "point_size=5", "-f", "json")
	if err != nil {
		t.Fatalf("veneer error = %v", err)
	}
	var opts map[string]any
	if err := json.Unmarshal([]byte(out), &opts); err != nil {
		t.Fatalf("veneer output is not JSON: %v", err)
	}
	if opts["point_size"] != 5.0 {
		t.Errorf("point_size = %v, want 5", opts["point_size"])
	}

	file := filepath.Join(t.TempDir(), "v.yaml")
	if err := os.WriteFile(file, []byte("title: T cells\npoint_size: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "veneer", "--veneer", file, "--set", "point_size=7", "-f", "toml")
	if err != nil {
		t.Fatalf("veneer --veneer error = %v", err)
	}
	if !strings.Contains(out, `title = "T cells"`) || !strings.Contains(out, "point_size = 7") {
		t.Errorf("toml output:\n%s", out)
	}

	out, err = execute(t, "veneer", "--list")
	if err != nil {
		t.Fatalf("veneer --list error = %v", err)
	}
	if !strings.Contains(out, "point_size") {
		t.Error("--list does not document point_size")
	}

	tests := []struct {
		args []string
		code errors.Code
	}{
		{[]string{"veneer", "colour=red"}, errors.ErrCodeUnknownOption},
		{[]string{"veneer", "point_size=-1"}, errors.ErrCodeInvalidOption},
		{[]string{"veneer", "point_size"}, errors.ErrCodeInvalidInput},
		{[]string{"veneer", "--veneer", "v.ini"}, errors.ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args[1:], " "), func(t *testing.T) {
			if _, err := execute(t, tt.args...); !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestRender(t *testing.T) {
	repo := testRepo(t)
	base := filepath.Join(t.TempDir(), "figs", "tcells")

	_, err := execute(t, "render", "CD3E", "CD8A", "-d", repo, "-f", "svg,json", "-o", base,
		"--set", "title=T cells", "--highlight", "|group=NK")
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	svg, err := os.ReadFile(base + ".svg")
	if err != nil {
		t.Fatalf("svg not written: %v", err)
	}
	if !strings.HasPrefix(string(svg), "<svg") {
		t.Errorf("svg output starts with %.20q", svg)
	}
	spec, err := os.ReadFile(base + ".json")
	if err != nil {
		t.Fatalf("json not written: %v", err)
	}
	if !strings.Contains(string(spec), "T cells") {
		t.Error("title missing from the json figure")
	}

	single := filepath.Join(t.TempDir(), "one.svg")
	if _, err := execute(t, "render", "CD3E,CD8A", "-d", repo, "-o", single, "--no-cache"); err != nil {
		t.Fatalf("render -o error = %v", err)
	}
	if _, err := os.Stat(single); err != nil {
		t.Errorf("single output not written: %v", err)
	}

	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"bad format", []string{"-f", "gif"}, errors.ErrCodeInvalidInput},
		{"bad option", []string{"--set", "point_size=-1"}, errors.ErrCodeInvalidOption},
		{"empty", []string{"--filter", "|group=none"}, errors.ErrCodeEmptyData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"render", "CD3E", "CD8A", "-d", repo, "--no-cache", "-o", filepath.Join(t.TempDir(), "x")}, tt.args...)
			if _, err := execute(t, args...); !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestWarnDropped(t *testing.T) {
	tests := []struct {
		dropped int
		want    string
	}{
		{0, ""},
		{1, "1 row has no finite x or y value"},
		{3, "3 rows have no finite x or y value"},
	}
	defer func(w io.Writer) { statusOut = w }(statusOut)
	for _, tt := range tests {
		var buf bytes.Buffer
		statusOut = &buf
		warnDropped(tt.dropped)
		got := buf.String()
		if tt.want == "" {
			if got != "" {
				t.Errorf("warnDropped(0) printed %q", got)
			}
			continue
		}
		if !strings.Contains(got, tt.want) || !strings.Contains(got, iconWarning) {
			t.Errorf("warnDropped(%d) = %q, want a warning containing %q", tt.dropped, got, tt.want)
		}
	}
}

func TestOutputPaths(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		formats  []string
		want     map[string]string
		entities []string
	}{
		{
			name:     "default",
			entities: []string{"CD3E", "CD8A"},
			formats:  []string{"svg"},
			want:     map[string]string{"svg": "CD3E_CD8A.svg"},
		},
		{
			name:     "single explicit",
			output:   "out/fig.png",
			entities: []string{"CD3E", "CD8A"},
			formats:  []string{"svg"},
			want:     map[string]string{"svg": "out/fig.png"},
		},
		{
			name:     "multiple strip extension",
			output:   "fig.svg",
			entities: []string{"CD3E", "CD8A"},
			formats:  []string{"svg", "png"},
			want:     map[string]string{"svg": "fig.svg", "png": "fig.png"},
		},
		{
			name:     "multiple unknown extension",
			output:   "fig.v1",
			entities: []string{"CD3E"},
			formats:  []string{"svg", "json"},
			want:     map[string]string{"svg": "fig.v1.svg", "json": "fig.v1.json"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := outputPaths(tt.output, tt.entities, tt.formats)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("outputPaths() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"svg"}},
		{"png", []string{"png"}},
		{"svg, png,,json", []string{"svg", "png", "json"}},
	}
	for _, tt := range tests {
		if got := parseFormats(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEntityArgs(t *testing.T) {
	got := entityArgs([]string{"CD3E,CD8A", " MS4A1 ", ","})
	if want := []string{"CD3E", "CD8A", "MS4A1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("entityArgs() = %v, want %v", got, want)
	}
}

func TestDataFlagsOptions(t *testing.T) {
	f := dataFlags{
		tooltips: []string{"umis: UMIs"},
		filters:  []string{"|group=T,NK"},
		sort:     []string{"<group"},
	}
	opts, err := f.options([]string{"CD3E"})
	if err != nil {
		t.Fatalf("options() error = %v", err)
	}
	if len(opts.Tooltips) != 1 || opts.Tooltips[0].Title != "UMIs" {
		t.Errorf("Tooltips = %+v", opts.Tooltips)
	}
	if got := opts.Filter["|group"]; len(got) != 2 {
		t.Errorf("Filter = %v", opts.Filter)
	}
	if opts.Highlight != nil {
		t.Errorf("Highlight = %v, want nil", opts.Highlight)
	}

	bad := []dataFlags{
		{tooltips: []string{": title"}},
		{filters: []string{"group=T"}},
		{highlights: []string{"|group"}},
	}
	for _, f := range bad {
		if _, err := f.options([]string{"CD3E"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("options(%+v) error = %v, want INVALID_INPUT", f, err)
		}
	}
}
