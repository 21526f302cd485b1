// Package bridge exposes mcbrowse to other environments as plain data.
//
// Callers outside Go (notebooks, dashboards, the C ABI in cmd/libmcbrowse)
// hold string handles instead of Go values: a handle names an open
// repository or a rendered figure in the [Bridge]'s tables. Datasets cross
// the boundary as tables ({"columns": [...], "records": [...]}) and options
// as flat maps, so every call can be expressed in JSON. [Bridge.Call] does
// exactly that.
//
// A Bridge holds no package-level state; tables are guarded by a mutex and
// one Bridge may be shared between goroutines.
package bridge

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/extract"
	"github.com/tanaylab/mcbrowse/pkg/figure"
	"github.com/tanaylab/mcbrowse/pkg/figure/sink"
	"github.com/tanaylab/mcbrowse/pkg/pipeline"
	"github.com/tanaylab/mcbrowse/pkg/source"
	"github.com/tanaylab/mcbrowse/pkg/source/files"
	"github.com/tanaylab/mcbrowse/pkg/tidy"
	"github.com/tanaylab/mcbrowse/pkg/veneer"
)

// Bridge holds the handle tables of one embedding.
type Bridge struct {
	runner *pipeline.Runner

	mu      sync.Mutex
	sources map[string]source.Reader
	figures map[string]figureEntry
}

type figureEntry struct {
	fig *figure.Figure
	key string
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithRunner sets the runner used for extraction and rendering; its cache
// then serves repeated renders.
func WithRunner(r *pipeline.Runner) Option {
	return func(b *Bridge) { b.runner = r }
}

// New creates an empty bridge.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		sources: make(map[string]source.Reader),
		figures: make(map[string]figureEntry),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.runner == nil {
		b.runner = pipeline.NewRunner(nil, nil, nil)
	}
	return b
}

// OpenSource opens the file-backed repository at path.
func (b *Bridge) OpenSource(path string) (string, error) {
	repo, err := files.Open(path)
	if err != nil {
		return "", err
	}
	return b.RegisterSource(repo), nil
}

// RegisterSource adds an already open repository.
func (b *Bridge) RegisterSource(r source.Reader) string {
	h := uuid.NewString()
	b.mu.Lock()
	b.sources[h] = r
	b.mu.Unlock()
	return h
}

// CloseSource forgets a repository handle.
func (b *Bridge) CloseSource(h string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sources[h]; !ok {
		return unknownHandle("source", h)
	}
	delete(b.sources, h)
	return nil
}

func (b *Bridge) source(h string) (source.Reader, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	src, ok := b.sources[h]
	if !ok {
		return nil, unknownHandle("source", h)
	}
	return src, nil
}

// Describe summarizes a repository.
func (b *Bridge) Describe(h string) (source.Description, error) {
	src, err := b.source(h)
	if err != nil {
		return source.Description{}, err
	}
	return source.Describe(src)
}

// Entities lists the entries of an axis.
func (b *Bridge) Entities(h, axis string) ([]string, error) {
	src, err := b.source(h)
	if err != nil {
		return nil, err
	}
	return src.AxisEntries(axis)
}

// Extract reads entities from a repository and applies the shaping options
// (filter, highlight, sort, randomize). Option keys follow the JSON names of
// [pipeline.Options]; unknown keys fail with UNKNOWN_OPTION.
func (b *Bridge) Extract(h string, entities []string, options map[string]any) (tidy.Dataset, error) {
	src, err := b.source(h)
	if err != nil {
		return tidy.Dataset{}, err
	}
	opts, err := decodeOptions(options)
	if err != nil {
		return tidy.Dataset{}, errors.WithStage(errors.StageExtract, err)
	}
	opts.Entities = entities

	ctx := context.Background()
	ds, err := b.runner.Extract(ctx, src, opts)
	if err != nil {
		return tidy.Dataset{}, err
	}
	return b.runner.Shape(ds, opts)
}

// BuildVeneer validates options and returns them with defaults filled in.
func (b *Bridge) BuildVeneer(options map[string]any) (map[string]any, error) {
	v, err := veneer.Build(options)
	if err != nil {
		return nil, errors.WithStage(errors.StageConfigure, err)
	}
	return v.Options(), nil
}

// Render renders a table with the given veneer options and returns a figure
// handle.
func (b *Bridge) Render(table tidy.Dataset, options map[string]any) (string, error) {
	ctx := context.Background()
	v, err := b.runner.Configure(ctx, pipeline.Options{Veneer: options})
	if err != nil {
		return "", err
	}
	fig, key, _, err := b.runner.RenderFigureWithCacheInfo(ctx, table, v, pipeline.Options{})
	if err != nil {
		return "", err
	}
	h := uuid.NewString()
	b.mu.Lock()
	b.figures[h] = figureEntry{fig: fig, key: key}
	b.mu.Unlock()
	return h, nil
}

func (b *Bridge) figure(h string) (figureEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.figures[h]
	if !ok {
		return figureEntry{}, unknownHandle("figure", h)
	}
	return e, nil
}

// Figure returns the description of a rendered figure.
func (b *Bridge) Figure(h string) (figure.Spec, error) {
	e, err := b.figure(h)
	if err != nil {
		return figure.Spec{}, err
	}
	return e.fig.Spec(), nil
}

// Export draws a rendered figure in one format. A scale of 0 means 1.
func (b *Bridge) Export(h, format string, scale float64) ([]byte, error) {
	e, err := b.figure(h)
	if err != nil {
		return nil, err
	}
	artifacts, err := b.runner.Export(context.Background(), e.fig, e.key, pipeline.Options{
		Formats: []string{format},
		Scale:   scale,
	})
	if err != nil {
		return nil, err
	}
	return artifacts[format], nil
}

// ReleaseFigure forgets a figure handle.
func (b *Bridge) ReleaseFigure(h string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.figures[h]; !ok {
		return unknownHandle("figure", h)
	}
	delete(b.figures, h)
	return nil
}

// Handles returns the open source and figure handles, sorted.
func (b *Bridge) Handles() (sources, figures []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Sorted(maps.Keys(b.sources)), slices.Sorted(maps.Keys(b.figures))
}

// Close drops every handle and closes the runner.
func (b *Bridge) Close() error {
	b.mu.Lock()
	clear(b.sources)
	clear(b.figures)
	b.mu.Unlock()
	return b.runner.Close()
}

func unknownHandle(kind, h string) error {
	return errors.New(errors.ErrCodeNotFound, "unknown %s handle %q", kind, h)
}

// extractKeys are the option keys Extract accepts.
var extractKeys = map[string]bool{
	"entity_axis": true, "sample_axis": true, "statistic": true, "transform": true,
	"pseudo_count": true, "layout": true, "group": true, "no_group": true, "tooltips": true,
	"filter": true, "highlight": true, "sort": true, "randomize": true, "seed": true,
}

// decodeOptions maps a flat option map onto pipeline options through their
// JSON names. Tooltips may be given as "property" or "property: title"
// strings as well as objects.
func decodeOptions(options map[string]any) (pipeline.Options, error) {
	var unknown []string
	for k := range options {
		if !extractKeys[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return pipeline.Options{}, errors.UnknownOption(unknown)
	}

	var tooltipArgs []string
	if list, ok := options["tooltips"].([]any); ok {
		for _, t := range list {
			if s, ok := t.(string); ok {
				tooltipArgs = append(tooltipArgs, s)
			}
		}
		if len(tooltipArgs) > 0 {
			if len(tooltipArgs) != len(list) {
				return pipeline.Options{}, errors.New(errors.ErrCodeInvalidInput,
					"tooltips must be all strings or all objects")
			}
			options = maps.Clone(options)
			delete(options, "tooltips")
		}
	}

	data, err := json.Marshal(options)
	if err != nil {
		return pipeline.Options{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "encode options")
	}
	var opts pipeline.Options
	if err := json.Unmarshal(data, &opts); err != nil {
		return pipeline.Options{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode options")
	}
	if len(tooltipArgs) > 0 {
		if opts.Tooltips, err = extract.ParseTooltips(tooltipArgs); err != nil {
			return pipeline.Options{}, err
		}
	}
	return opts, nil
}

// ExportResult is the result of an export call.
type ExportResult struct {
	Format      string `json:"format"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

func exportResult(format string, data []byte) ExportResult {
	return ExportResult{Format: format, ContentType: sink.ContentType(format), Data: data}
}
