package dataslice

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/claimspec/internal/frame"
	"github.com/roach88/claimspec/internal/ir"
	"github.com/roach88/claimspec/internal/value"
)

// Aggregate kinds.
const (
	KindConst   = "const"
	KindMeanAgg = "mean_agg"
)

// Invalid reasons produced by aggregates.
const (
	ReasonMissingColumn          = "missing_column"
	ReasonNonConstantWithinUnit  = "non_constant_within_unit"
	ReasonNonNumericAggregateCol = "non_numeric_aggregate_col"
)

// maxExamples bounds the offending groups reported by Const.
const maxExamples = 5

// ErrNoGroupKeys is returned by an aggregate with an empty By list.
var ErrNoGroupKeys = errors.New("aggregate needs at least one by column")

// Aggregate reduces a frame to one row per unit of analysis. Data problems
// are reported as an Invalid; a Go error means the aggregate itself is
// malformed.
type Aggregate interface {
	Kind() string
	Apply(f *frame.Frame) (*frame.Frame, *value.Invalid, error)
	Encode() ir.IRObject
}

// Const checks that every column in Cols holds at most one distinct
// non-missing value per By group, then keeps the first row of each group
// with the By and Cols columns.
type Const struct {
	By   []string
	Cols []string
}

func (Const) Kind() string { return KindConst }

func (c Const) Columns() []string { return append(slices.Clone(c.By), c.Cols...) }

func (c Const) Encode() ir.IRObject { return encodeByCols(KindConst, c.By, c.Cols) }

func (c Const) Apply(f *frame.Frame) (*frame.Frame, *value.Invalid, error) {
	if inv := missingColumns(f, c.By, c.Cols); inv != nil {
		return nil, inv, nil
	}
	if len(c.By) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", KindConst, ErrNoGroupKeys)
	}

	groups, err := f.Partition(c.By...)
	if err != nil {
		return nil, nil, err
	}

	for _, col := range c.Cols {
		cells, err := f.Column(col)
		if err != nil {
			return nil, nil, err
		}
		examples := make(map[string]any)
		for _, g := range groups {
			n := distinct(cells, g.Rows)
			if n > 1 && len(examples) < maxExamples {
				examples[FormatKey(g.Key)] = n
			}
		}
		if len(examples) > 0 {
			inv := value.NewInvalid(ReasonNonConstantWithinUnit, map[string]any{
				"col":      col,
				"examples": examples,
			})
			return nil, &inv, nil
		}
	}

	first := make([]int, len(groups))
	for i, g := range groups {
		first[i] = g.Rows[0]
	}
	out, err := f.Take(first).Select(append(append([]string{}, c.By...), c.Cols...)...)
	if err != nil {
		return nil, nil, err
	}
	return out, nil, nil
}

// MeanAgg reduces each By group to one row holding the mean of each column
// in Cols. Groups keep first-appearance order.
type MeanAgg struct {
	By   []string
	Cols []string
}

func (MeanAgg) Kind() string { return KindMeanAgg }

func (m MeanAgg) Columns() []string { return append(slices.Clone(m.By), m.Cols...) }

func (m MeanAgg) Encode() ir.IRObject { return encodeByCols(KindMeanAgg, m.By, m.Cols) }

func (m MeanAgg) Apply(f *frame.Frame) (*frame.Frame, *value.Invalid, error) {
	if inv := missingColumns(f, m.By, m.Cols); inv != nil {
		return nil, inv, nil
	}

	var bad []string
	dtypes := make(map[string]any)
	for _, col := range m.Cols {
		typ, err := f.Type(col)
		if err != nil {
			return nil, nil, err
		}
		if !typ.Numeric() {
			bad = append(bad, col)
			dtypes[col] = typ.String()
		}
	}
	if len(bad) > 0 {
		inv := value.NewInvalid(ReasonNonNumericAggregateCol, map[string]any{
			"cols":   bad,
			"dtypes": dtypes,
		})
		return nil, &inv, nil
	}
	if len(m.By) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", KindMeanAgg, ErrNoGroupKeys)
	}

	groups, err := f.Partition(m.By...)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool)
	var cols []frame.Column
	for i, by := range m.By {
		if seen[by] {
			continue
		}
		seen[by] = true
		cells := make([]any, len(groups))
		for g, grp := range groups {
			cells[g] = grp.Key[i]
		}
		cols = append(cols, frame.Values(by, cells...))
	}
	for _, col := range m.Cols {
		if seen[col] {
			continue
		}
		seen[col] = true
		src, err := f.Column(col)
		if err != nil {
			return nil, nil, err
		}
		cells := make([]any, len(groups))
		for g, grp := range groups {
			cells[g] = mean(src, grp.Rows)
		}
		cols = append(cols, frame.Values(col, cells...))
	}

	out, err := frame.New(cols...)
	if err != nil {
		return nil, nil, err
	}
	return out, nil, nil
}

// FormatKey joins the formatted key cells with "|".
func FormatKey(key []any) string {
	parts := make([]string, len(key))
	for i, k := range key {
		parts[i] = frame.FormatCell(k)
	}
	return strings.Join(parts, "|")
}

func missingColumns(f *frame.Frame, by, cols []string) *value.Invalid {
	var missing []string
	for _, c := range append(append([]string{}, by...), cols...) {
		if !f.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	inv := value.NewInvalid(ReasonMissingColumn, map[string]any{"cols": missing})
	return &inv
}

func distinct(cells []any, rows []int) int {
	seen := make(map[string]bool)
	for _, r := range rows {
		if cells[r] == nil {
			continue
		}
		seen[frame.CellKey(cells[r])] = true
	}
	return len(seen)
}

// mean returns the mean of the numeric cells at rows, or nil when there
// are none.
func mean(cells []any, rows []int) any {
	var sum float64
	var n int
	for _, r := range rows {
		if x, ok := frame.Numeric(cells[r]); ok {
			sum += x
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return sum / float64(n)
}

func encodeByCols(kind string, by, cols []string) ir.IRObject {
	return ir.Object(
		ir.O("kind", ir.IRString(kind)),
		ir.O("by", listIR(by)),
		ir.O("cols", listIR(cols)),
	)
}

// listIR encodes a column list, always as an array.
func listIR(ss []string) ir.IRValue {
	if ss == nil {
		return ir.IRArray{}
	}
	return ir.Strings(ss)
}
