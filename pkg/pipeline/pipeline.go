// Package pipeline runs the mcbrowse figure pipeline end to end.
//
// The core packages each implement one pure stage:
//
//  1. Extract: pull tidy data for the selected entities ([extract.Extract])
//  2. Shape: filter, highlight, sort and randomize rows ([tidy.Dataset])
//  3. Configure: validate the display options ([veneer.Build])
//  4. Render: bind columns to chart channels ([figure.Render])
//  5. Export: draw the figure in the requested formats ([sink.Render])
//
// This package wires them together for the CLI, the HTTP server and the
// bridge, adding what the core deliberately leaves out: caching of rendered
// figures and artifacts, logging and observability hooks.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, src, pipeline.Options{
//	    Entities: []string{"CD3E", "CD8A"},
//	    Veneer:   map[string]any{"point_size": 8},
//	    Formats:  []string{"svg", "png"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Stages can also be run one at a time with [Runner.Extract],
// [Runner.Configure], [Runner.RenderFigure] and [Runner.Export].
package pipeline

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tanaylab/mcbrowse/pkg/cache"
	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/extract"
	"github.com/tanaylab/mcbrowse/pkg/figure"
	"github.com/tanaylab/mcbrowse/pkg/figure/sink"
	"github.com/tanaylab/mcbrowse/pkg/tidy"
	"github.com/tanaylab/mcbrowse/pkg/veneer"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Bridge
// =============================================================================

const (
	// DefaultScale is the default pixel scale of exported images.
	DefaultScale = 1.0

	// DefaultSeed is the default random seed for row randomization.
	DefaultSeed = uint64(42)
)

// DefaultFormats are exported when no format is requested.
var DefaultFormats = []string{sink.FormatSVG}

// ValidFormats is the set of supported output formats.
var ValidFormats = func() map[string]bool {
	m := make(map[string]bool, len(sink.Formats))
	for _, f := range sink.Formats {
		m[f] = true
	}
	return m
}()

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Extract options
	Entities []string `json:"entities"`
	extract.Options

	// Shape options. Filter and Highlight map "|column" or "&column" to the
	// values to keep; Sort lists "<column" (ascending) or ">column".
	Filter    map[string][]any `json:"filter,omitempty"`
	Highlight map[string][]any `json:"highlight,omitempty"`
	Sort      []string         `json:"sort,omitempty"`
	Randomize bool             `json:"randomize,omitempty"`
	Seed      uint64           `json:"seed,omitempty"`

	// Configure options: the veneer, as a flat option map.
	Veneer map[string]any `json:"veneer,omitempty"`

	// Export options
	Formats []string `json:"formats,omitempty"`
	Scale   float64  `json:"scale,omitempty"`
	Refresh bool     `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Dataset is the shaped dataset the figure was rendered from.
	Dataset tidy.Dataset

	// Veneer is the validated display configuration.
	Veneer veneer.Veneer

	// Figure is the rendered figure.
	Figure *figure.Figure

	// FigureKey identifies the figure in the cache and the figure store.
	FigureKey string

	// Artifacts contains exported outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Rows        int
	Points      int
	Dropped     int
	ExtractTime time.Duration
	RenderTime  time.Duration
	ExportTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	RenderHit bool // Whether the figure came from cache
	ExportHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: %s)",
			format, strings.Join(sink.Formats, ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForExtract(); err != nil {
		return err
	}
	if err := o.ValidateForExport(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForExtract checks the entity selection.
func (o *Options) ValidateForExtract() error {
	if len(o.Entities) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "at least one entity is required")
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	return nil
}

// ValidateForExport validates and sets defaults for exporting.
func (o *Options) ValidateForExport() error {
	if len(o.Formats) == 0 {
		o.Formats = slices.Clone(DefaultFormats)
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "scale must be > 0, got %v", o.Scale)
	}
	return ValidateFormats(o.Formats)
}

// Selector returns the validated entity selector.
func (o *Options) Selector() (extract.Selector, error) {
	return extract.NewSelector(o.Entities...)
}

// ArtifactKeyOpts returns cache key options for exporting one format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{Format: format}
	if format != sink.FormatJSON {
		opts.Scale = o.Scale
	}
	return opts
}

// sinkOptions returns the chart options for exporting.
func (o *Options) sinkOptions() []sink.Option {
	return []sink.Option{sink.WithScale(o.Scale)}
}

// String summarizes the run for log lines.
func (o *Options) String() string {
	return fmt.Sprintf("entities=%s formats=%s", strings.Join(o.Entities, ","), strings.Join(o.Formats, ","))
}
