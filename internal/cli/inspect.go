package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanaylab/mcbrowse/pkg/source"
)

// inspectCommand lists what a repository holds, or the entries of one axis.
func (c *CLI) inspectCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect [axis]",
		Short: "List the axes and matrices of a repository, or the entries of an axis",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := c.openSource()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				return writeEntries(out, src, args[0], asJSON)
			}
			desc, err := source.Describe(src)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, desc)
			}
			writeDescription(out, desc)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func writeEntries(w io.Writer, src source.Reader, axis string, asJSON bool) error {
	entries, err := src.AxisEntries(axis)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, map[string][]string{"entries": entries})
	}
	for _, e := range entries {
		fmt.Fprintln(w, e)
	}
	return nil
}

func writeDescription(w io.Writer, desc source.Description) {
	rows := make([][]string, 0, len(desc.Axes))
	for _, a := range desc.Axes {
		rows = append(rows, []string{a.Name, strconv.Itoa(a.Entries), strings.Join(a.Properties, ", ")})
	}
	fmt.Fprintln(w, StyleTitle.Render("Axes"))
	fmt.Fprintln(w, renderTable([]string{"Axis", "Entries", "Properties"}, rows))

	if len(desc.Matrices) == 0 {
		return
	}
	rows = make([][]string, 0, len(desc.Matrices))
	for _, m := range desc.Matrices {
		rows = append(rows, []string{m.Property, m.Rows, m.Columns})
	}
	fmt.Fprintln(w, StyleTitle.Render("Matrices"))
	fmt.Fprintln(w, renderTable([]string{"Property", "Rows", "Columns"}, rows))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
