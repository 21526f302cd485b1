package tidy

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/tanaylab/mcbrowse/pkg/errors"
)

// Sort returns the rows reordered by the given keys. Each key is "<name"
// (ascending) or ">name" (descending); later keys break ties of earlier ones.
// The sort is stable. NaN values sort after all numbers in either direction.
//
// Renderers draw rows in order, so sorting decides which points end up on
// top.
func (d Dataset) Sort(order ...string) (Dataset, error) {
	type sortKey struct {
		col  Column
		desc bool
	}
	keys := make([]sortKey, 0, len(order))
	for _, o := range order {
		if len(o) < 2 || (o[0] != '<' && o[0] != '>') {
			return Dataset{}, errors.New(errors.ErrCodeInvalidInput,
				"sort key %q must start with '<' or '>'", o)
		}
		col, ok := d.Column(o[1:])
		if !ok {
			return Dataset{}, errors.New(errors.ErrCodeInvalidInput, "sort names unknown column %q", o[1:])
		}
		keys = append(keys, sortKey{col: col, desc: o[0] == '>'})
	}

	rows := identity(d.rows)
	slices.SortStableFunc(rows, func(a, b int) int {
		for _, k := range keys {
			c, nan := compareRows(k.col, a, b)
			if c == 0 {
				continue
			}
			if k.desc && !nan {
				c = -c
			}
			return c
		}
		return 0
	})
	return d.Take(rows), nil
}

// SortFunc returns the rows reordered by a stable sort using compare on
// records.
func (d Dataset) SortFunc(compare func(a, b Record) int) Dataset {
	records := d.Records()
	rows := identity(d.rows)
	slices.SortStableFunc(rows, func(a, b int) int {
		return compare(records[a], records[b])
	})
	return d.Take(rows)
}

// Randomize returns the rows in a pseudo-random order determined by seed.
// Equal seeds give equal orders.
func (d Dataset) Randomize(seed uint64) Dataset {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return d.Take(r.Perm(d.rows))
}

// compareRows compares rows a and b of c. The second result reports that
// the order was decided by a NaN, which must not be flipped for descending
// keys.
func compareRows(c Column, a, b int) (int, bool) {
	switch {
	case c.Kind == KindNumeric:
		x, y := c.floats[a], c.floats[b]
		xn, yn := math.IsNaN(x), math.IsNaN(y)
		switch {
		case xn && yn:
			return 0, false
		case xn:
			return 1, true
		case yn:
			return -1, true
		}
		return cmp.Compare(x, y), false
	case c.Kind == KindBool:
		x, y := c.bools[a], c.bools[b]
		switch {
		case x == y:
			return 0, false
		case !x:
			return -1, false
		}
		return 1, false
	default:
		return cmp.Compare(c.strings[a], c.strings[b]), false
	}
}

func identity(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}
