// Package cli implements the mcbrowse command-line interface.
//
// This package provides commands for inspecting metacell repositories,
// extracting tidy data, validating display configurations and rendering
// figures, plus the HTTP server and cache management. The CLI is built
// using cobra and supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - inspect: List the axes, properties and matrices of a repository
//   - extract: Write the tidy dataset for a set of genes
//   - veneer: Validate, convert or document display options
//   - render: Generate SVG, PNG, PDF, HTML or JSON figures
//   - pick: Choose genes interactively
//   - serve: Run the HTTP server
//   - cache: Manage the figure cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// logs every pipeline, cache and HTTP event. Loggers are passed through
// context.Context.
//
// # Example
//
//	import "github.com/tanaylab/mcbrowse/internal/cli"
//
//	func main() {
//	    c := cli.New(os.Stderr, cli.LogInfo)
//	    if err := c.RootCommand().Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Rendered 2 figures (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if ctx == nil {
		return log.Default()
	}
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// =============================================================================
// Observability
// =============================================================================

// logHooks writes pipeline, cache and HTTP events to a logger at debug
// level. It is installed by --verbose.
type logHooks struct {
	logger *log.Logger
}

func (h logHooks) OnExtractStart(_ context.Context, axis string, entities int) {
	h.logger.Debug("extract start", "axis", axis, "entities", entities)
}

func (h logHooks) OnExtractComplete(_ context.Context, axis string, rows int, d time.Duration, err error) {
	h.logger.Debug("extract done", "axis", axis, "rows", rows, "duration", d, "error", err)
}

func (h logHooks) OnConfigure(_ context.Context, options int, err error) {
	h.logger.Debug("configure", "options", options, "error", err)
}

func (h logHooks) OnRenderStart(_ context.Context, chartType string, rows int) {
	h.logger.Debug("render start", "chart", chartType, "rows", rows)
}

func (h logHooks) OnRenderComplete(_ context.Context, chartType string, points int, d time.Duration, err error) {
	h.logger.Debug("render done", "chart", chartType, "points", points, "duration", d, "error", err)
}

func (h logHooks) OnExportStart(_ context.Context, formats []string) {
	h.logger.Debug("export start", "formats", formats)
}

func (h logHooks) OnExportComplete(_ context.Context, formats []string, d time.Duration, err error) {
	h.logger.Debug("export done", "formats", formats, "duration", d, "error", err)
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h logHooks) OnRequest(_ context.Context, method, route string) {
	h.logger.Debug("request", "method", method, "route", route)
}

func (h logHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.logger.Debug("response", "method", method, "route", route, "status", status, "duration", d)
}
