package spec

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/claimspec/internal/dataslice"
	"github.com/roach88/claimspec/internal/frame"
	"github.com/roach88/claimspec/internal/ir"
	"github.com/roach88/claimspec/internal/value"
)

func trials(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.New(
		frame.Strings("participant", "p1", "p1", "p2", "p2", "p3", "p3"),
		frame.Strings("cond", "A", "B", "A", "A", "B", "A"),
		frame.Ints("trial", 1, 2, 1, 2, 1, 1),
	)
	require.NoError(t, err)
	return f
}

func condA() dataslice.RowFilter {
	return dataslice.Cmp{Op: dataslice.OpEQ, Col: "cond", Value: "A"}
}

func TestApplyCountUniqueWithFilter(t *testing.T) {
	s := CountUnique{Col: "trial", Slice: dataslice.New(dataslice.Where(condA()))}
	assert.Equal(t, value.Number(2), Apply(s, trials(t)))
}

func TestApplyCountUniqueGrouped(t *testing.T) {
	s := CountUnique{Col: "trial", Slice: dataslice.New(
		dataslice.Where(condA()),
		dataslice.GroupBy("participant"),
	)}

	got := Apply(s, trials(t))
	want := value.Grouped{"p1": value.Number(1), "p2": value.Number(2), "p3": value.Number(1)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("grouped result mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyCompositeGroupKey(t *testing.T) {
	s := Count{Col: "trial", Slice: dataslice.New(dataslice.GroupBy("participant", "cond"))}

	got := Apply(s, trials(t))
	want := value.Grouped{
		"A|p1": value.Number(1), "B|p1": value.Number(1),
		"A|p2": value.Number(2),
		"B|p3": value.Number(1), "A|p3": value.Number(1),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("grouped result mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyGroupsNumericKeys(t *testing.T) {
	s := Count{Col: "participant", Slice: dataslice.New(dataslice.GroupBy("trial"))}
	got := Apply(s, trials(t))
	assert.Equal(t, value.Grouped{"1": value.Number(4), "2": value.Number(2)}, got)
}

func TestApplyAggregateThenReduce(t *testing.T) {
	s := Mean{Col: "trial", Slice: dataslice.New(
		dataslice.Aggregates(dataslice.MeanAgg{By: []string{"participant"}, Cols: []string{"trial"}}),
	)}
	assert.InDelta(t, 4.0/3, number(t, Apply(s, trials(t))), 1e-12)
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	f := trials(t)
	s := Mean{Col: "trial", Slice: dataslice.New(
		dataslice.Where(condA()),
		dataslice.Aggregates(dataslice.MeanAgg{By: []string{"participant"}, Cols: []string{"trial"}}),
		dataslice.GroupBy("participant"),
	)}
	Apply(s, f)
	Apply(s, f)

	assert.Equal(t, 6, f.Len())
	assert.Equal(t, []string{"participant", "cond", "trial"}, f.Columns())
	cells, err := f.Column("trial")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(1), int64(2), int64(1), int64(1)}, cells)
}

func TestApplyUnsupportedEngine(t *testing.T) {
	inv := invalid(t, Apply(CountUnique{Col: "trial"}, trials(t), WithEngine("pandas")))
	assert.Equal(t, ReasonUnsupportedEngine, inv.Reason)
	assert.Equal(t, map[string]any{"engine": "pandas", "supported": []string{EngineMemory}}, inv.Detail)

	assert.Equal(t, value.Number(2), Apply(CountUnique{Col: "trial"}, trials(t), WithEngine(EngineMemory)))
}

func TestApplyMissingGroupColumn(t *testing.T) {
	s := CountUnique{Col: "trial", Slice: dataslice.New(dataslice.GroupBy("participant", "session"))}
	inv := invalid(t, Apply(s, trials(t)))
	assert.Equal(t, ReasonMissingGroupColumn, inv.Reason)
	assert.Equal(t, map[string]any{
		"cols":    []string{"session"},
		"columns": []string{"participant", "cond", "trial"},
	}, inv.Detail)
}

func TestApplyFilterFailure(t *testing.T) {
	s := CountUnique{Col: "trial", Slice: dataslice.New(
		dataslice.Where(dataslice.Eq{Col: "session", Value: 1}),
	)}
	inv := invalid(t, Apply(s, trials(t)))
	assert.Equal(t, ReasonRowFilterFailed, inv.Reason)
	assert.Contains(t, inv.Detail["message"], "session")
	assert.NotEmpty(t, inv.Detail["error"])
}

// panicFilter is a row filter that always panics.
type panicFilter struct{}

func (panicFilter) Kind() string                             { return "panic" }
func (panicFilter) Apply(*frame.Frame) (*frame.Frame, error) { panic("boom") }
func (panicFilter) Encode() ir.IRObject                      { return ir.Object(ir.O("kind", ir.IRString("panic"))) }

// panicAggregate is an aggregate that always panics.
type panicAggregate struct{}

func (panicAggregate) Kind() string { return "panic" }
func (panicAggregate) Apply(*frame.Frame) (*frame.Frame, *value.Invalid, error) {
	panic(errors.New("kaboom"))
}
func (panicAggregate) Encode() ir.IRObject { return ir.Object(ir.O("kind", ir.IRString("panic"))) }

func TestApplyRecoversPanics(t *testing.T) {
	inv := invalid(t, Apply(CountUnique{Col: "trial", Slice: dataslice.New(dataslice.Where(panicFilter{}))}, trials(t)))
	assert.Equal(t, ReasonRowFilterFailed, inv.Reason)
	assert.Equal(t, map[string]any{"error": "panic", "message": "boom"}, inv.Detail)

	inv = invalid(t, Apply(CountUnique{Col: "trial", Slice: dataslice.New(dataslice.Aggregates(panicAggregate{}))}, trials(t)))
	assert.Equal(t, ReasonAggregateFailed, inv.Reason)
	assert.Equal(t, map[string]any{"error": "panic", "message": "kaboom"}, inv.Detail)
}

func TestApplyAggregateFailures(t *testing.T) {
	// an aggregate's own Invalid propagates unchanged
	s := CountUnique{Col: "trial", Slice: dataslice.New(
		dataslice.Aggregates(dataslice.Const{By: []string{"participant"}, Cols: []string{"cond"}}),
	)}
	inv := invalid(t, Apply(s, trials(t)))
	assert.Equal(t, dataslice.ReasonNonConstantWithinUnit, inv.Reason)

	// a malformed aggregate is reported as aggregate_failed
	s = CountUnique{Col: "trial", Slice: dataslice.New(
		dataslice.Aggregates(dataslice.Const{Cols: []string{"cond"}}),
	)}
	inv = invalid(t, Apply(s, trials(t)))
	assert.Equal(t, ReasonAggregateFailed, inv.Reason)
	assert.Contains(t, inv.Detail["message"], "at least one by column")
}

func TestApplyAggregateRemovesColumn(t *testing.T) {
	s := CountUnique{Col: "cond", Slice: dataslice.New(
		dataslice.Aggregates(dataslice.MeanAgg{By: []string{"participant"}, Cols: []string{"trial"}}),
	)}
	inv := invalid(t, Apply(s, trials(t)))
	assert.Equal(t, ReasonMissingColumn, inv.Reason)
}

func TestApplyEmptyFilterResult(t *testing.T) {
	s := Mean{Col: "trial", Slice: dataslice.New(dataslice.Where(dataslice.Eq{Col: "cond", Value: "Z"}))}
	inv := invalid(t, Apply(s, trials(t)))
	assert.Equal(t, ReasonNoData, inv.Reason)

	grouped := Mean{Col: "trial", Slice: dataslice.New(
		dataslice.Where(dataslice.Eq{Col: "cond", Value: "Z"}),
		dataslice.GroupBy("participant"),
	)}
	assert.Equal(t, value.Grouped{}, Apply(grouped, trials(t)))
}
