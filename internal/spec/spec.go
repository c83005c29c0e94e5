// Package spec defines the questions a claim asks of a dataset. A Spec
// names a reduction (count of distinct values, mean, ...) over a column,
// optionally scoped by a DataSlice, and is executed against a frame with
// Apply.
//
// Spec identity is content-addressed: two specs are the same spec when
// their canonical encodings hash to the same fingerprint, however they
// were built.
package spec

import (
	"slices"

	"github.com/roach88/claimspec/internal/dataslice"
	"github.com/roach88/claimspec/internal/frame"
	"github.com/roach88/claimspec/internal/ir"
	"github.com/roach88/claimspec/internal/value"
)

// Spec kinds.
const (
	KindCountUnique = "count_unique"
	KindMean        = "mean"
	KindStd         = "std"
	KindCount       = "count"
	KindMedian      = "median"
)

// Spec is a reduction over one group of rows.
type Spec interface {
	Kind() string

	// DataSlice returns the filter/aggregate/group-by scope, or nil.
	DataSlice() *dataslice.DataSlice

	// Compute reduces an already sliced group of rows to a single value.
	// Data problems are returned as value.Invalid.
	Compute(f *frame.Frame) value.Value

	Encode() ir.IRObject
}

// CountUnique counts the distinct non-missing values of Col.
type CountUnique struct {
	Col   string
	Slice *dataslice.DataSlice
}

func (CountUnique) Kind() string                      { return KindCountUnique }
func (s CountUnique) DataSlice() *dataslice.DataSlice { return s.Slice }
func (s CountUnique) Column() string                  { return s.Col }
func (s CountUnique) Encode() ir.IRObject             { return encodeColumn(KindCountUnique, s.Col, s.Slice) }

func (s CountUnique) Compute(f *frame.Frame) value.Value {
	cells, inv := column(f, s.Col)
	if inv != nil {
		return *inv
	}
	seen := make(map[string]bool)
	for _, c := range cells {
		if c != nil {
			seen[frame.CellKey(c)] = true
		}
	}
	return value.Number(len(seen))
}

// Mean is the arithmetic mean of the numeric-coercible cells of Col.
type Mean struct {
	Col   string
	Slice *dataslice.DataSlice
}

func (Mean) Kind() string                      { return KindMean }
func (s Mean) DataSlice() *dataslice.DataSlice { return s.Slice }
func (s Mean) Column() string                  { return s.Col }
func (s Mean) Encode() ir.IRObject             { return encodeColumn(KindMean, s.Col, s.Slice) }

func (s Mean) Compute(f *frame.Frame) value.Value {
	xs, inv := numeric(f, s.Col)
	if inv != nil {
		return *inv
	}
	if len(xs) == 0 {
		return value.NewInvalid(ReasonNoData, map[string]any{"col": s.Col, "n_rows": f.Len()})
	}
	return value.Number(mean(xs))
}

// Std is the sample standard deviation (n-1 divisor) of the
// numeric-coercible cells of Col.
type Std struct {
	Col   string
	Slice *dataslice.DataSlice
}

func (Std) Kind() string                      { return KindStd }
func (s Std) DataSlice() *dataslice.DataSlice { return s.Slice }
func (s Std) Column() string                  { return s.Col }
func (s Std) Encode() ir.IRObject             { return encodeColumn(KindStd, s.Col, s.Slice) }

func (s Std) Compute(f *frame.Frame) value.Value {
	xs, inv := numeric(f, s.Col)
	if inv != nil {
		return *inv
	}
	if len(xs) < 2 {
		return value.NewInvalid(ReasonNotEnoughData, map[string]any{"col": s.Col, "n_rows": len(xs)})
	}
	return value.Number(stdDev(xs))
}

// Count is the number of non-missing cells of Col.
type Count struct {
	Col   string
	Slice *dataslice.DataSlice
}

func (Count) Kind() string                      { return KindCount }
func (s Count) DataSlice() *dataslice.DataSlice { return s.Slice }
func (s Count) Column() string                  { return s.Col }
func (s Count) Encode() ir.IRObject             { return encodeColumn(KindCount, s.Col, s.Slice) }

func (s Count) Compute(f *frame.Frame) value.Value {
	cells, inv := column(f, s.Col)
	if inv != nil {
		return *inv
	}
	n := 0
	for _, c := range cells {
		if c != nil {
			n++
		}
	}
	return value.Number(n)
}

// Median is the median of the numeric-coercible cells of Col; an even
// sample yields the mean of the two middle values.
type Median struct {
	Col   string
	Slice *dataslice.DataSlice
}

func (Median) Kind() string                      { return KindMedian }
func (s Median) DataSlice() *dataslice.DataSlice { return s.Slice }
func (s Median) Column() string                  { return s.Col }
func (s Median) Encode() ir.IRObject             { return encodeColumn(KindMedian, s.Col, s.Slice) }

func (s Median) Compute(f *frame.Frame) value.Value {
	xs, inv := numeric(f, s.Col)
	if inv != nil {
		return *inv
	}
	if len(xs) == 0 {
		return value.NewInvalid(ReasonNoData, map[string]any{"col": s.Col, "n_rows": f.Len()})
	}
	return value.Number(median(xs))
}

// Columns returns the sorted set of columns s reads. Specs contribute
// their own column when they implement Column() string.
func Columns(s Spec) []string {
	cols := s.DataSlice().Columns()
	if c, ok := s.(interface{ Column() string }); ok {
		cols = append(cols, c.Column())
		slices.Sort(cols)
		cols = slices.Compact(cols)
	}
	return cols
}

func encodeColumn(kind, col string, slice *dataslice.DataSlice) ir.IRObject {
	var sl ir.IRValue = ir.IRNull{}
	if slice != nil {
		sl = slice.Encode()
	}
	return ir.Object(
		ir.O("kind", ir.IRString(kind)),
		ir.O("col", ir.IRString(col)),
		ir.O("slice", sl),
	)
}
