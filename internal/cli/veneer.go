package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/veneer"
)

// veneerCommand validates display options and prints them normalized.
func (c *CLI) veneerCommand() *cobra.Command {
	var (
		flags  veneerFlags
		format string
		list   bool
	)

	cmd := &cobra.Command{
		Use:   "veneer [key=value]...",
		Short: "Validate display options and print them with defaults applied",
		Long: `Veneer merges a veneer file, --set assignments and key=value arguments,
validates the result and prints every option, including defaults, as TOML,
YAML or JSON. Use --list to document the recognized options.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				writeOptionDocs(out)
				return nil
			}
			flags.sets = append(flags.sets, args...)
			opts, err := flags.options()
			if err != nil {
				return err
			}
			v, err := veneer.Build(opts)
			if err != nil {
				return errors.WithStage(errors.StageConfigure, err)
			}
			c.Logger.Debug("veneer built", "digest", v.Digest(), "chart", v.ChartType())
			return v.Encode(out, format)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", veneer.FormatTOML, "output format: toml, yaml, json")
	cmd.Flags().BoolVar(&list, "list", false, "document the recognized options")
	return cmd
}

func writeOptionDocs(w io.Writer) {
	infos := veneer.Describe()
	rows := make([][]string, 0, len(infos))
	for _, o := range infos {
		rule := o.Rule
		if len(o.Choices) > 0 {
			rule = strings.Join(o.Choices, " | ")
		}
		def := "unset"
		if o.Default != nil {
			def = fmt.Sprint(o.Default)
		}
		rows = append(rows, []string{o.Key, o.Type, def, rule, o.Doc})
	}
	fmt.Fprintln(w, renderTable([]string{"Option", "Type", "Default", "Rule", "Description"}, rows))
}
