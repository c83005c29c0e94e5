package spec

import (
	"errors"
	"fmt"

	"github.com/roach88/claimspec/internal/dataslice"
	"github.com/roach88/claimspec/internal/frame"
	"github.com/roach88/claimspec/internal/value"
)

// EngineMemory is the only execution engine: in-memory frames.
const EngineMemory = "memory"

type applyConfig struct {
	engine string
}

// Option configures Apply.
type Option func(*applyConfig)

// WithEngine selects the execution engine. Engines other than
// EngineMemory produce an unsupported_engine Invalid.
func WithEngine(name string) Option {
	return func(c *applyConfig) { c.engine = name }
}

// Apply runs s against f: row filter, aggregates in order, grouping, then
// the reduction per group. Without group_by the result is a single Value;
// with it, a value.Grouped keyed by the "|"-joined group values.
//
// Data problems and failures inside the filter or aggregates (including
// panics) are returned as value.Invalid so one bad spec cannot abort its
// siblings. f is never modified.
func Apply(s Spec, f *frame.Frame, opts ...Option) value.Result {
	cfg := applyConfig{engine: EngineMemory}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.engine != EngineMemory {
		return value.NewInvalid(ReasonUnsupportedEngine, map[string]any{
			"engine":    cfg.engine,
			"supported": []string{EngineMemory},
		})
	}

	sliced, inv := applySlice(s.DataSlice(), f)
	if inv != nil {
		return *inv
	}

	ds := s.DataSlice()
	if !ds.Grouped() {
		return s.Compute(sliced)
	}

	keys := ds.GroupBy()
	var missing []string
	for _, k := range keys {
		if !sliced.Has(k) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return value.NewInvalid(ReasonMissingGroupColumn, map[string]any{
			"cols":    missing,
			"columns": sliced.Columns(),
		})
	}

	groups, err := sliced.Partition(keys...)
	if err != nil {
		return failed(ReasonAggregateFailed, err)
	}
	out := make(value.Grouped, len(groups))
	for _, g := range groups {
		out[dataslice.FormatKey(g.Key)] = s.Compute(sliced.Take(g.Rows))
	}
	return out
}

func applySlice(ds *dataslice.DataSlice, f *frame.Frame) (*frame.Frame, *value.Invalid) {
	out := f
	if rf := ds.Filter(); rf != nil {
		next, err := guard(func() (*frame.Frame, error) { return rf.Apply(out) })
		if err != nil {
			inv := failed(ReasonRowFilterFailed, err)
			return nil, &inv
		}
		out = next
	}

	for _, agg := range ds.Aggregates() {
		var inv *value.Invalid
		next, err := guard(func() (*frame.Frame, error) {
			res, i, err := agg.Apply(out)
			inv = i
			return res, err
		})
		if err != nil {
			failure := failed(ReasonAggregateFailed, err)
			return nil, &failure
		}
		if inv != nil {
			return nil, inv
		}
		out = next
	}
	return out, nil
}

// panicError is a recovered panic from a filter or aggregate.
type panicError struct {
	value any
}

func (p *panicError) Error() string { return fmt.Sprint(p.value) }

func guard(fn func() (*frame.Frame, error)) (out *frame.Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, &panicError{value: r}
		}
	}()
	return fn()
}

func failed(reason string, err error) value.Invalid {
	return value.NewInvalid(reason, map[string]any{
		"error":   errorName(err),
		"message": err.Error(),
	})
}

// errorName names the root cause of err: "panic" for a recovered panic,
// otherwise the dynamic type of the innermost wrapped error.
func errorName(err error) string {
	var p *panicError
	if errors.As(err, &p) {
		return "panic"
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}
