package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanaylab/mcbrowse/pkg/pipeline"
	"github.com/tanaylab/mcbrowse/pkg/source"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	data    dataFlags
	veneer  veneerFlags
	output  string   // output file (single format) or base path
	formats []string // svg, png, pdf, html, json
	scale   float64  // pixel scale of png and pdf output
	noCache bool     // bypass the figure cache entirely
	refresh bool     // re-render and overwrite cached entries
}

// renderCommand creates the render command for generating figures.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{scale: pipeline.DefaultScale}

	cmd := &cobra.Command{
		Use:   "render <entity>...",
		Short: "Render a scatter figure for a set of genes",
		Long: `Render extracts the selected entities, applies the veneer and writes the
figure in every requested format. Two entities give a scatter of one against
the other; the long layout needs a chart type that accepts it.

Rendered figures and exported files are cached, keyed by the extracted data
and the veneer, so repeating a render is cheap.`,
		Example: `  mcbrowse render CD3E CD8A -d pbmc -f svg,png
  mcbrowse render CD3E,CD8A --set point_size=6 --set title="T cells" -o tcells.svg
  mcbrowse render CD3E CD8A --transform log2 --highlight '|group=T'`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: c.completeEntities,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			src, err := c.openSource()
			if err != nil {
				return err
			}
			return c.runRender(cmd.Context(), src, entityArgs(args), &opts)
		},
	}

	opts.data.register(cmd)
	opts.veneer.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, pdf, html, json (comma-separated)")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "pixel scale of png and pdf output")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the figure cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-render even when the figure is cached")

	return cmd
}

// runRender runs the pipeline and writes one file per format.
func (c *CLI) runRender(ctx context.Context, src source.Reader, entities []string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)

	popts, err := opts.data.options(entities)
	if err != nil {
		return err
	}
	if popts.Veneer, err = opts.veneer.options(); err != nil {
		return err
	}
	popts.Formats = opts.formats
	popts.Scale = opts.scale
	popts.Refresh = opts.refresh
	popts.Logger = logger

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Rendering "+strings.Join(entities, ", "))
	spinner.Start()
	result, err := runner.Execute(ctx, src, popts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	paths := outputPaths(opts.output, entities, opts.formats)
	for _, format := range opts.formats {
		path := paths[format]
		if err := writeFile(path, result.Artifacts[format]); err != nil {
			return fmt.Errorf("%s: %w", format, err)
		}
		logger.Debugf("Wrote %s: %d bytes", path, len(result.Artifacts[format]))
	}

	printSuccess("Rendered %s", StyleHighlight.Render(result.Figure.ChartType()))
	printStats(result.Stats.Rows, result.Stats.Points, result.Stats.Dropped, result.CacheInfo.RenderHit)
	warnDropped(result.Stats.Dropped)
	for _, format := range opts.formats {
		printFile(paths[format])
	}
	return nil
}

// warnDropped reports rows the figure could not draw.
func warnDropped(dropped int) {
	switch {
	case dropped == 1:
		printWarning("1 row has no finite x or y value and was not drawn")
	case dropped > 1:
		printWarning("%d rows have no finite x or y value and were not drawn", dropped)
	}
}

// outputPaths maps each format to its output file. A single format with an
// explicit output is written there as is; otherwise the format extension is
// appended to the base path, which defaults to the joined entity names.
func outputPaths(output string, entities, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if output != "" && len(formats) == 1 {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, entities)
	for _, f := range formats {
		paths[f] = base + "." + f
	}
	return paths
}

// basePath strips a known format extension from output, or derives a name
// from the entities when output is empty.
func basePath(output string, entities []string) string {
	if output == "" {
		return strings.Join(entities, "_")
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
