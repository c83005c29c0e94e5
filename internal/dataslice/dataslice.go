package dataslice

import (
	"slices"

	"github.com/roach88/claimspec/internal/ir"
)

// DataSlice describes the subset and shape of data a spec is computed on:
// an optional row filter, an ordered list of aggregates, and optional
// grouping keys. It is immutable once built.
type DataSlice struct {
	filter     RowFilter
	aggregates []Aggregate
	groupBy    []string
}

// Option configures a DataSlice.
type Option func(*DataSlice)

// Where sets the row filter.
func Where(f RowFilter) Option {
	return func(d *DataSlice) { d.filter = f }
}

// Aggregates appends aggregates, applied in order after the row filter.
func Aggregates(aggs ...Aggregate) Option {
	return func(d *DataSlice) { d.aggregates = append(d.aggregates, aggs...) }
}

// GroupBy adds grouping keys. Keys are deduplicated and sorted so that
// the same set of keys always yields the same slice.
func GroupBy(cols ...string) Option {
	return func(d *DataSlice) { d.groupBy = append(d.groupBy, cols...) }
}

// New builds a DataSlice. With no options it selects every row, applies no
// aggregates and produces a scalar.
func New(opts ...Option) *DataSlice {
	d := &DataSlice{}
	for _, opt := range opts {
		opt(d)
	}
	d.groupBy = canonicalKeys(d.groupBy)
	if len(d.aggregates) == 0 {
		d.aggregates = nil
	}
	return d
}

func canonicalKeys(cols []string) []string {
	if len(cols) == 0 {
		return nil
	}
	out := slices.Clone(cols)
	slices.Sort(out)
	return slices.Compact(out)
}

// Filter returns the row filter, or nil.
func (d *DataSlice) Filter() RowFilter {
	if d == nil {
		return nil
	}
	return d.filter
}

// Aggregates returns a copy of the aggregate list.
func (d *DataSlice) Aggregates() []Aggregate {
	if d == nil {
		return nil
	}
	return slices.Clone(d.aggregates)
}

// GroupBy returns a copy of the sorted grouping keys, or nil.
func (d *DataSlice) GroupBy() []string {
	if d == nil {
		return nil
	}
	return slices.Clone(d.groupBy)
}

// Grouped reports whether the slice produces a per-group result.
func (d *DataSlice) Grouped() bool { return d != nil && len(d.groupBy) > 0 }

// Columns returns the sorted set of columns the slice reads: filter
// columns, aggregate keys and columns, and group_by keys. Custom filters
// and aggregates contribute only if they implement Columns() []string.
func (d *DataSlice) Columns() []string {
	if d == nil {
		return nil
	}
	var cols []string
	if d.filter != nil {
		cols = append(cols, itemColumns(d.filter)...)
	}
	for _, a := range d.aggregates {
		if cr, ok := a.(columnReader); ok {
			cols = append(cols, cr.Columns()...)
		}
	}
	cols = append(cols, d.groupBy...)
	return canonicalKeys(cols)
}

// Encode returns the IR form. Absent parts are encoded as null.
func (d *DataSlice) Encode() ir.IRObject {
	if d == nil {
		d = &DataSlice{}
	}
	var filter ir.IRValue = ir.IRNull{}
	if d.filter != nil {
		filter = d.filter.Encode()
	}
	var aggs ir.IRValue = ir.IRNull{}
	if len(d.aggregates) > 0 {
		arr := make(ir.IRArray, len(d.aggregates))
		for i, a := range d.aggregates {
			arr[i] = a.Encode()
		}
		aggs = arr
	}
	return ir.Object(
		ir.O("row_filter", filter),
		ir.O("aggregates", aggs),
		ir.O("group_by", ir.Strings(d.groupBy)),
	)
}
