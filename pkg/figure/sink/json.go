package sink

import (
	"encoding/json"
	"fmt"

	"github.com/tanaylab/mcbrowse/pkg/figure"
)

// jsonVersion is bumped when the JSON layout changes incompatibly.
const jsonVersion = 1

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	indent bool
	source string
}

// WithJSONIndent pretty-prints the output.
func WithJSONIndent() JSONOption { return func(r *jsonRenderer) { r.indent = true } }

// WithJSONSource records a label for the data source (for example a file
// path) alongside the figure.
func WithJSONSource(name string) JSONOption { return func(r *jsonRenderer) { r.source = name } }

type jsonOutput struct {
	Version int         `json:"version"`
	Source  string      `json:"source,omitempty"`
	Figure  figure.Spec `json:"figure"`
}

// RenderJSON exports the complete figure description. [ReadJSON] restores
// it, so a figure can be re-drawn in any format without the dataset.
func RenderJSON(f *figure.Figure, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}
	out := jsonOutput{Version: jsonVersion, Source: r.source, Figure: f.Spec()}
	if r.indent {
		return json.MarshalIndent(out, "", "  ")
	}
	return json.Marshal(out)
}

// ReadJSON restores a figure written by [RenderJSON].
func ReadJSON(data []byte) (*figure.Figure, error) {
	var in jsonOutput
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode figure: %w", err)
	}
	if in.Version != jsonVersion {
		return nil, fmt.Errorf("unsupported figure version %d", in.Version)
	}
	return figure.FromSpec(in.Figure), nil
}
