package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/pipeline"
	"github.com/tanaylab/mcbrowse/pkg/source"
	"github.com/tanaylab/mcbrowse/pkg/tidy"
)

// Dataset output formats.
const (
	tableJSON    = "json"
	tableCSV     = "csv"
	tableParquet = "parquet"
)

// extractCommand writes the tidy dataset for a set of entities.
func (c *CLI) extractCommand() *cobra.Command {
	var (
		data   dataFlags
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "extract <entity>...",
		Short: "Write the tidy dataset for a set of genes",
		Long: `Extract reads the selected entities from the repository and writes the tidy
dataset the figure would be drawn from. Entities may be given as separate
arguments or comma-separated.`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: c.completeEntities,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := data.options(entityArgs(args))
			if err != nil {
				return err
			}
			if format == "" {
				format = tableFormatOf(output)
			}
			src, err := c.openSource()
			if err != nil {
				return err
			}
			return c.runExtract(cmd.Context(), cmd.OutOrStdout(), src, opts, output, format)
		},
	}

	data.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: json (default), csv, parquet")
	return cmd
}

func (c *CLI) runExtract(ctx context.Context, stdout io.Writer, src source.Reader, opts pipeline.Options, output, format string) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	runner := pipeline.NewRunner(nil, nil, c.Logger)
	ds, err := runner.Extract(ctx, src, opts)
	if err != nil {
		return err
	}
	if ds, err = runner.Shape(ds, opts); err != nil {
		return err
	}

	w := stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := writeTable(w, ds, format); err != nil {
		return err
	}

	if output != "" {
		prog.done("Extracted " + strings.Join(opts.Entities, ", "))
		printFile(output)
	}
	return nil
}

func writeTable(w io.Writer, ds tidy.Dataset, format string) error {
	switch format {
	case "", tableJSON:
		return writeJSON(w, ds)
	case tableCSV:
		return ds.WriteCSV(w)
	case tableParquet:
		return ds.WriteParquet(w)
	}
	return errors.New(errors.ErrCodeUnsupported, "unsupported table format %q (want json, csv or parquet)", format)
}

// tableFormatOf picks the table format from an output path's extension.
func tableFormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return tableCSV
	case ".parquet":
		return tableParquet
	}
	return tableJSON
}
