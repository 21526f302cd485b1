package figure

import (
	"slices"
	"strings"

	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/tidy"
	"github.com/tanaylab/mcbrowse/pkg/veneer"
)

// Channel is a visual channel a dataset column can feed.
type Channel string

// Channels.
const (
	ChannelX       Channel = "x"
	ChannelY       Channel = "y"
	ChannelColor   Channel = "color"
	ChannelLabel   Channel = "label"
	ChannelTooltip Channel = "tooltip"
	ChannelSize    Channel = "size"
)

// Slot is a channel of a chart type and the columns it accepts.
type Slot struct {
	Channel  Channel
	Role     tidy.Role
	Kinds    []tidy.Kind
	Required bool
}

// String returns "channel<-role:kind|kind", with a trailing "?" for optional
// slots.
func (s Slot) String() string {
	kinds := make([]string, len(s.Kinds))
	for i, k := range s.Kinds {
		kinds[i] = string(k)
	}
	out := string(s.Channel) + "<-" + string(s.Role) + ":" + strings.Join(kinds, "|")
	if !s.Required {
		out += "?"
	}
	return out
}

func (s Slot) accepts(f tidy.Field) bool {
	return f.Role == s.Role && slices.Contains(s.Kinds, f.Kind)
}

// ChartType is a chart with a fixed channel assignment.
type ChartType struct {
	Name  string
	Slots []Slot
}

var textual = []tidy.Kind{tidy.KindCategorical, tidy.KindString}

// Catalog holds every chart type.
var Catalog = map[string]ChartType{
	veneer.ChartGeneGene: {
		Name: veneer.ChartGeneGene,
		Slots: []Slot{
			{Channel: ChannelX, Role: tidy.RoleValue, Kinds: []tidy.Kind{tidy.KindNumeric}, Required: true},
			{Channel: ChannelY, Role: tidy.RoleValue, Kinds: []tidy.Kind{tidy.KindNumeric}, Required: true},
			{Channel: ChannelColor, Role: tidy.RoleGroup, Kinds: textual, Required: true},
			{Channel: ChannelLabel, Role: tidy.RoleKey, Kinds: textual},
			{Channel: ChannelTooltip, Role: tidy.RoleTooltip, Kinds: textual},
			{Channel: ChannelSize, Role: tidy.RoleHighlight, Kinds: []tidy.Kind{tidy.KindBool}},
		},
	},
}

// Lookup returns the named chart type.
func Lookup(name string) (ChartType, error) {
	ct, ok := Catalog[name]
	if !ok {
		return ChartType{}, errors.New(errors.ErrCodeUnsupported, "unknown chart type %q", name)
	}
	return ct, nil
}

// Expected returns the slot descriptions of the chart type.
func (ct ChartType) Expected() []string {
	out := make([]string, len(ct.Slots))
	for i, s := range ct.Slots {
		out[i] = s.String()
	}
	return out
}

// Assignment binds a channel to a dataset column.
type Assignment struct {
	Channel Channel   `json:"channel"`
	Column  string    `json:"column"`
	Kind    tidy.Kind `json:"kind"`
}

// Assign binds dataset columns to the chart's slots. Columns are taken in
// dataset order; each goes to the first free slot that accepts its role and
// kind. A required slot left empty or a column no slot accepts fails with
// SCHEMA_MISMATCH.
func (ct ChartType) Assign(fields []tidy.Field) ([]Assignment, error) {
	bound := make([]*tidy.Field, len(ct.Slots))
	var extra []string
	for i := range fields {
		f := &fields[i]
		placed := false
		for j, s := range ct.Slots {
			if bound[j] == nil && s.accepts(*f) {
				bound[j] = f
				placed = true
				break
			}
		}
		if !placed {
			extra = append(extra, f.Name)
		}
	}

	var missing []string
	var out []Assignment
	for j, s := range ct.Slots {
		if bound[j] == nil {
			if s.Required {
				missing = append(missing, s.String())
			}
			continue
		}
		out = append(out, Assignment{Channel: s.Channel, Column: bound[j].Name, Kind: bound[j].Kind})
	}

	if len(missing) > 0 || len(extra) > 0 {
		actual := make([]string, len(fields))
		for i, f := range fields {
			actual[i] = f.String()
		}
		return nil, errors.SchemaMismatch(ct.Name, missing, extra, ct.Expected(), actual)
	}
	return out, nil
}
