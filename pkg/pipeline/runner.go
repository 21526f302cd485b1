package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tanaylab/mcbrowse/pkg/cache"
	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/extract"
	"github.com/tanaylab/mcbrowse/pkg/figure"
	"github.com/tanaylab/mcbrowse/pkg/figure/sink"
	"github.com/tanaylab/mcbrowse/pkg/observability"
	"github.com/tanaylab/mcbrowse/pkg/source"
	"github.com/tanaylab/mcbrowse/pkg/tidy"
	"github.com/tanaylab/mcbrowse/pkg/veneer"
)

// Runner encapsulates pipeline execution with caching.
// The CLI, the HTTP server and the bridge all use it.
//
// The Runner is stateless except for the cache and logger; it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete pipeline: configure, extract, render and export.
// Veneer errors are reported before any data is read.
func (r *Runner) Execute(ctx context.Context, src source.Reader, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1: Configure. The veneer is built before the source is read.
	v, err := r.Configure(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Veneer = v

	// Stage 2: Extract and shape
	extractStart := time.Now()
	ds, err := r.Extract(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	ds, err = r.Shape(ds, opts)
	if err != nil {
		return nil, err
	}
	result.Dataset = ds
	result.Stats.Rows = ds.Len()
	result.Stats.ExtractTime = time.Since(extractStart)

	r.Logger.Info("extracted data",
		"entities", len(opts.Entities),
		"rows", ds.Len(),
		"duration", result.Stats.ExtractTime)

	// Stage 3: Render
	renderStart := time.Now()
	fig, key, renderHit, err := r.RenderFigureWithCacheInfo(ctx, ds, v, opts)
	if err != nil {
		return nil, err
	}
	result.Figure = fig
	result.FigureKey = key
	result.Stats.Points = fig.Len()
	result.Stats.Dropped = fig.Provenance().Dropped
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered figure",
		"chart", fig.ChartType(),
		"points", fig.Len(),
		"dropped", result.Stats.Dropped,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	// Stage 4: Export
	exportStart := time.Now()
	artifacts, exportHit, err := r.ExportWithCacheInfo(ctx, fig, key, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.ExportTime = time.Since(exportStart)
	result.CacheInfo.ExportHit = exportHit

	r.Logger.Info("exported outputs",
		"formats", opts.Formats,
		"cached", exportHit,
		"duration", result.Stats.ExportTime)

	return result, nil
}

// Extract reads the selected entities from src.
func (r *Runner) Extract(ctx context.Context, src source.Reader, opts Options) (tidy.Dataset, error) {
	if err := opts.ValidateForExtract(); err != nil {
		return tidy.Dataset{}, errors.WithStage(errors.StageExtract, err)
	}
	sel, err := opts.Selector()
	if err != nil {
		return tidy.Dataset{}, errors.WithStage(errors.StageExtract, err)
	}

	hooks := observability.Pipeline()
	axis := opts.EntityAxis
	if axis == "" {
		axis = extract.DefaultEntityAxis
	}
	hooks.OnExtractStart(ctx, axis, sel.Len())
	start := time.Now()
	ds, err := extract.Extract(src, sel, opts.Options)
	hooks.OnExtractComplete(ctx, axis, ds.Len(), time.Since(start), err)
	return ds, err
}

// Shape applies the filter, highlight and ordering options to ds. Rows are
// randomized before sorting, so sort keys win and ties stay shuffled.
func (r *Runner) Shape(ds tidy.Dataset, opts Options) (tidy.Dataset, error) {
	ds, err := shape(ds, opts)
	return ds, errors.WithStage(errors.StageExtract, err)
}

func shape(ds tidy.Dataset, opts Options) (tidy.Dataset, error) {
	if len(opts.Filter) > 0 {
		f, err := tidy.ParseFilter(opts.Filter)
		if err != nil {
			return tidy.Dataset{}, err
		}
		if ds, err = ds.Filter(f); err != nil {
			return tidy.Dataset{}, err
		}
	}
	if len(opts.Highlight) > 0 {
		f, err := tidy.ParseFilter(opts.Highlight)
		if err != nil {
			return tidy.Dataset{}, err
		}
		if ds, err = ds.Highlight(f); err != nil {
			return tidy.Dataset{}, err
		}
	}
	if opts.Randomize {
		seed := opts.Seed
		if seed == 0 {
			seed = DefaultSeed
		}
		ds = ds.Randomize(seed)
	}
	if len(opts.Sort) > 0 {
		return ds.Sort(opts.Sort...)
	}
	return ds, nil
}

// Configure validates the veneer options.
func (r *Runner) Configure(ctx context.Context, opts Options) (veneer.Veneer, error) {
	v, err := veneer.Build(opts.Veneer)
	observability.Pipeline().OnConfigure(ctx, len(opts.Veneer), err)
	if err != nil {
		return veneer.Veneer{}, errors.WithStage(errors.StageConfigure, err)
	}
	return v, nil
}

// RenderFigureWithCacheInfo renders ds with v, reusing a cached figure when
// one exists for the same dataset and veneer. It returns the figure, its
// cache key and whether it came from the cache.
func (r *Runner) RenderFigureWithCacheInfo(ctx context.Context, ds tidy.Dataset, v veneer.Veneer, opts Options) (*figure.Figure, string, bool, error) {
	key := r.Keyer.FigureKey(ds.Digest(), v.Digest())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if fig, err := sink.ReadJSON(data); err == nil {
				return fig, key, true, nil
			}
			// If deserialization fails, fall through to re-render
		}
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, v.ChartType(), ds.Len())
	start := time.Now()
	fig, err := figure.Render(ds, v)
	points := 0
	if fig != nil {
		points = fig.Len()
	}
	hooks.OnRenderComplete(ctx, v.ChartType(), points, time.Since(start), err)
	if err != nil {
		return nil, "", false, err
	}

	if data, err := sink.RenderJSON(fig); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.FigureTTL); err != nil {
			r.Logger.Warn("cache figure", "key", key, "error", err)
		}
	}
	return fig, key, false, nil
}

// RenderFigure is a convenience wrapper that calls RenderFigureWithCacheInfo
// and discards the cache information.
func (r *Runner) RenderFigure(ctx context.Context, ds tidy.Dataset, v veneer.Veneer, opts Options) (*figure.Figure, error) {
	fig, _, _, err := r.RenderFigureWithCacheInfo(ctx, ds, v, opts)
	return fig, err
}

// ExportWithCacheInfo draws fig in every requested format, reusing cached
// artifacts. The second result reports that every format came from the
// cache. An empty figureKey disables the artifact cache.
func (r *Runner) ExportWithCacheInfo(ctx context.Context, fig *figure.Figure, figureKey string, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForExport(); err != nil {
		return nil, false, errors.WithStage(errors.StageExport, err)
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	if figureKey != "" && !opts.Refresh {
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(figureKey, opts.ArtifactKeyOpts(format))
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				artifacts[format] = data
			}
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil
		}
	}

	hooks := observability.Pipeline()
	hooks.OnExportStart(ctx, opts.Formats)
	start := time.Now()
	var err error
	for _, format := range opts.Formats {
		if _, ok := artifacts[format]; ok {
			continue
		}
		var data []byte
		data, err = sink.Render(fig, format, opts.sinkOptions()...)
		if err != nil {
			break
		}
		artifacts[format] = data
		if figureKey == "" {
			continue
		}
		key := r.Keyer.ArtifactKey(figureKey, opts.ArtifactKeyOpts(format))
		if cerr := r.Cache.Set(ctx, key, data, cache.ArtifactTTL); cerr != nil {
			opts.Logger.Warn("cache artifact", "key", key, "error", cerr)
		}
	}
	hooks.OnExportComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}
	return artifacts, false, nil
}

// Export is a convenience wrapper that calls ExportWithCacheInfo and discards
// the cache hit info.
func (r *Runner) Export(ctx context.Context, fig *figure.Figure, figureKey string, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.ExportWithCacheInfo(ctx, fig, figureKey, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
