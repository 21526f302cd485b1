package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/extract"
	"github.com/tanaylab/mcbrowse/pkg/pipeline"
	"github.com/tanaylab/mcbrowse/pkg/tidy"
	"github.com/tanaylab/mcbrowse/pkg/veneer"
)

var errNoData = errors.New(errors.ErrCodeInvalidInput,
	"no repository: pass --data or set $%s", dataEnv)

// dataFlags holds the extraction and shaping flags shared by extract and
// render.
type dataFlags struct {
	entityAxis  string
	sampleAxis  string
	statistic   string
	transform   string
	pseudoCount float64
	layout      string
	group       string
	noGroup     bool
	tooltips    []string

	filters    []string
	highlights []string
	sort       []string
	randomize  bool
	seed       uint64
}

func (f *dataFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.entityAxis, "entity-axis", extract.DefaultEntityAxis, "axis of the selected entities")
	fs.StringVar(&f.sampleAxis, "sample-axis", extract.DefaultSampleAxis, "axis the values are spread over")
	fs.StringVar(&f.statistic, "statistic", extract.DefaultStatistic, "matrix property to extract")
	fs.StringVar(&f.transform, "transform", string(extract.DefaultTransform), "value transform: none, log2, fold_change")
	fs.Float64Var(&f.pseudoCount, "pseudo-count", extract.DefaultPseudoCount, "pseudo count for log2 and fold_change")
	fs.StringVar(&f.layout, "layout", string(extract.DefaultLayout), "dataset layout: paired, long")
	fs.StringVar(&f.group, "group", extract.DefaultGroup, "sample property copied into the group column")
	fs.BoolVar(&f.noGroup, "no-group", false, "omit the group column")
	fs.StringArrayVar(&f.tooltips, "tooltip", nil, `tooltip line "property" or "property: title" (repeatable)`)

	fs.StringArrayVar(&f.filters, "filter", nil, `keep rows matching "|column=v1,v2" or "&column=v" (repeatable)`)
	fs.StringArrayVar(&f.highlights, "highlight", nil, `highlight rows matching "|column=v1,v2" (repeatable)`)
	fs.StringSliceVar(&f.sort, "sort", nil, `sort keys "<column" (ascending) or ">column"`)
	fs.BoolVar(&f.randomize, "randomize", false, "shuffle rows before sorting")
	fs.Uint64Var(&f.seed, "seed", pipeline.DefaultSeed, "random seed for --randomize")
}

// options converts the flags into pipeline options for entities.
func (f *dataFlags) options(entities []string) (pipeline.Options, error) {
	tooltips, err := extract.ParseTooltips(f.tooltips)
	if err != nil {
		return pipeline.Options{}, err
	}
	if len(f.tooltips) == 0 {
		tooltips = nil
	}
	filter, err := filterSpec(f.filters)
	if err != nil {
		return pipeline.Options{}, err
	}
	highlight, err := filterSpec(f.highlights)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Entities: entities,
		Options: extract.Options{
			EntityAxis:  f.entityAxis,
			SampleAxis:  f.sampleAxis,
			Statistic:   f.statistic,
			Transform:   extract.Transform(f.transform),
			PseudoCount: f.pseudoCount,
			Layout:      extract.Layout(f.layout),
			Group:       f.group,
			NoGroup:     f.noGroup,
			Tooltips:    tooltips,
		},
		Filter:    filter,
		Highlight: highlight,
		Sort:      f.sort,
		Randomize: f.randomize,
		Seed:      f.seed,
	}, nil
}

func filterSpec(args []string) (map[string][]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	return tidy.SpecFromArgs(args)
}

// veneerFlags holds the display options of render and veneer.
type veneerFlags struct {
	file string
	sets []string
}

func (f *veneerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "veneer", "", "veneer file (.toml, .yaml or .json)")
	cmd.Flags().StringArrayVarP(&f.sets, "set", "s", nil, `veneer option "key=value" (repeatable, overrides --veneer)`)
}

// options merges the veneer file with the --set assignments. Validation is
// left to the configure stage so errors carry its stage tag.
func (f *veneerFlags) options() (map[string]any, error) {
	opts := map[string]any{}
	if f.file != "" {
		format, err := veneer.FormatOf(f.file)
		if err != nil {
			return nil, err
		}
		file, err := os.Open(f.file)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read veneer file")
		}
		defer file.Close()
		if opts, err = veneer.Decode(file, format); err != nil {
			return nil, fmt.Errorf("%s: %w", f.file, err)
		}
	}
	sets, err := veneer.ParseAssignments(f.sets)
	if err != nil {
		return nil, err
	}
	for k, v := range sets {
		opts[k] = v
	}
	return opts, nil
}

// entityArgs splits comma-separated entity arguments.
func entityArgs(args []string) []string {
	var out []string
	for _, arg := range args {
		for _, e := range strings.Split(arg, ",") {
			if e = strings.TrimSpace(e); e != "" {
				out = append(out, e)
			}
		}
	}
	return out
}
