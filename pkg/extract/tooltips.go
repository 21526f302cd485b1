package extract

import (
	"strings"

	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/source"
)

// Tooltip is one tooltip line: the value of Property, shown as
// "Title: value". An empty Title uses the property name.
type Tooltip struct {
	Property string `json:"property"`
	Title    string `json:"title,omitempty"`
}

// ParseTooltip parses "property" or "property: title".
func ParseTooltip(s string) (Tooltip, error) {
	prop, title, _ := strings.Cut(s, ":")
	t := Tooltip{Property: strings.TrimSpace(prop), Title: strings.TrimSpace(title)}
	if t.Property == "" {
		return Tooltip{}, errors.New(errors.ErrCodeInvalidInput, "tooltip %q names no property", s)
	}
	return t, nil
}

// ParseTooltips parses each entry with [ParseTooltip].
func ParseTooltips(entries []string) ([]Tooltip, error) {
	out := make([]Tooltip, 0, len(entries))
	for _, e := range entries {
		t, err := ParseTooltip(e)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (t Tooltip) title() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Property
}

// Tooltips returns the tooltip text of every entry of axis: the entry name,
// followed by one "title: value" line per tooltip.
func Tooltips(src source.Reader, axis string, tooltips []Tooltip) ([]string, error) {
	entries, err := src.AxisEntries(axis)
	if err != nil {
		return nil, err
	}
	lines := make([]strings.Builder, len(entries))
	for i, e := range entries {
		lines[i].WriteString(e)
	}
	for _, t := range tooltips {
		vec, err := src.Vector(axis, t.Property)
		if err != nil {
			return nil, err
		}
		if vec.Len() != len(entries) {
			return nil, errors.New(errors.ErrCodeInternal,
				"vector %s;%s has %d values for %d entries", axis, t.Property, vec.Len(), len(entries))
		}
		for i := range lines {
			lines[i].WriteString("\n")
			lines[i].WriteString(t.title())
			lines[i].WriteString(": ")
			lines[i].WriteString(vec.Format(i))
		}
	}
	out := make([]string, len(lines))
	for i := range lines {
		out[i] = lines[i].String()
	}
	return out, nil
}
