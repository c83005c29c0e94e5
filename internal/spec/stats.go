package spec

import (
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/roach88/claimspec/internal/dataslice"
	"github.com/roach88/claimspec/internal/frame"
	"github.com/roach88/claimspec/internal/value"
)

// Invalid reasons produced by specs and the Apply pipeline.
const (
	ReasonMissingColumn      = dataslice.ReasonMissingColumn
	ReasonNoData             = "no_data"
	ReasonNotEnoughData      = "not_enough_data"
	ReasonRowFilterFailed    = "row_filter_failed"
	ReasonAggregateFailed    = "aggregate_failed"
	ReasonUnsupportedEngine  = "unsupported_engine"
	ReasonMissingGroupColumn = "missing_group_column"
)

func column(f *frame.Frame, col string) ([]any, *value.Invalid) {
	cells, err := f.Column(col)
	if err != nil {
		inv := value.NewInvalid(ReasonMissingColumn, map[string]any{"col": col, "columns": f.Columns()})
		return nil, &inv
	}
	return cells, nil
}

// numeric returns the cells of col that coerce to finite numbers, dropping
// the rest.
func numeric(f *frame.Frame, col string) ([]float64, *value.Invalid) {
	cells, inv := column(f, col)
	if inv != nil {
		return nil, inv
	}
	xs := make([]float64, 0, len(cells))
	for _, c := range cells {
		if x, ok := frame.Numeric(c); ok {
			xs = append(xs, x)
		}
	}
	return xs, nil
}

func mean(xs []float64) float64 { return stat.Mean(xs, nil) }

func stdDev(xs []float64) float64 { return stat.StdDev(xs, nil) }

func median(xs []float64) float64 {
	s := slices.Clone(xs)
	slices.Sort(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
