// Package dataslice defines how a spec selects and reshapes its input:
// row filters (a predicate tree), aggregates (unit-of-analysis reducers)
// and the DataSlice that combines them with grouping keys.
package dataslice

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/claimspec/internal/frame"
	"github.com/roach88/claimspec/internal/ir"
)

// Filter kinds.
const (
	KindEq  = "eq"
	KindCmp = "cmp"
	KindAnd = "and"
	KindOr  = "or"
	KindNot = "not"
)

// Comparison operators accepted by Cmp.
const (
	OpEQ = "=="
	OpNE = "!="
	OpLT = "<"
	OpLE = "<="
	OpGT = ">"
	OpGE = ">="
	OpIn = "in"
)

var (
	// ErrUnknownOp is returned when a Cmp names an unsupported operator.
	ErrUnknownOp = errors.New("unknown operator")

	// ErrBadOperand is returned when a Cmp value does not suit its operator.
	ErrBadOperand = errors.New("bad operand")

	// ErrNilItem is returned for a Not without an item.
	ErrNilItem = errors.New("not: item must not be nil")
)

// RowFilter selects rows of a frame.
type RowFilter interface {
	Kind() string
	Apply(f *frame.Frame) (*frame.Frame, error)
	Encode() ir.IRObject
}

// Eq selects rows where Col equals Value. It is shorthand for
// Cmp{Op: "==", ...} with its own encoding.
type Eq struct {
	Col   string
	Value any
}

func (Eq) Kind() string { return KindEq }

func (e Eq) Apply(f *frame.Frame) (*frame.Frame, error) {
	return applyCmp(f, OpEQ, e.Col, e.Value)
}

func (e Eq) Columns() []string { return []string{e.Col} }

func (e Eq) Encode() ir.IRObject {
	return ir.Object(
		ir.O("kind", ir.IRString(KindEq)),
		ir.O("col", ir.IRString(e.Col)),
		ir.O("value", literalIR(e.Value)),
	)
}

// Cmp selects rows where "Col Op Value" holds.
type Cmp struct {
	Op    string
	Col   string
	Value any
}

func (Cmp) Kind() string { return KindCmp }

func (c Cmp) Apply(f *frame.Frame) (*frame.Frame, error) {
	return applyCmp(f, c.Op, c.Col, c.Value)
}

func (c Cmp) Columns() []string { return []string{c.Col} }

func (c Cmp) Encode() ir.IRObject {
	return ir.Object(
		ir.O("kind", ir.IRString(KindCmp)),
		ir.O("op", ir.IRString(c.Op)),
		ir.O("col", ir.IRString(c.Col)),
		ir.O("value", literalIR(c.Value)),
	)
}

// And applies its items in sequence, each narrowing the previous result.
// An empty And keeps every row.
type And struct {
	Items []RowFilter
}

func (And) Kind() string { return KindAnd }

func (a And) Apply(f *frame.Frame) (*frame.Frame, error) {
	out := f
	for i, item := range a.Items {
		next, err := applyItem(item, out)
		if err != nil {
			return nil, fmt.Errorf("and[%d]: %w", i, err)
		}
		out = next
	}
	return out, nil
}

func (a And) Columns() []string { return itemColumns(a.Items...) }

func (a And) Encode() ir.IRObject { return encodeItems(KindAnd, a.Items) }

// Or selects the union of its items' matches by row identity. An Or with no
// items selects no rows.
type Or struct {
	Items []RowFilter
}

func (Or) Kind() string { return KindOr }

func (o Or) Apply(f *frame.Frame) (*frame.Frame, error) {
	selected := make(map[int]bool)
	for i, item := range o.Items {
		sub, err := applyItem(item, f)
		if err != nil {
			return nil, fmt.Errorf("or[%d]: %w", i, err)
		}
		for _, id := range sub.RowIDs() {
			selected[id] = true
		}
	}
	return maskByID(f, selected, true), nil
}

func (o Or) Columns() []string { return itemColumns(o.Items...) }

func (o Or) Encode() ir.IRObject { return encodeItems(KindOr, o.Items) }

// Not selects the complement of its item's matches by row identity.
type Not struct {
	Item RowFilter
}

// NewNot returns Not{item}, rejecting a nil item.
func NewNot(item RowFilter) (Not, error) {
	if item == nil {
		return Not{}, ErrNilItem
	}
	return Not{Item: item}, nil
}

func (Not) Kind() string { return KindNot }

func (n Not) Apply(f *frame.Frame) (*frame.Frame, error) {
	if n.Item == nil {
		return nil, ErrNilItem
	}
	sub, err := n.Item.Apply(f)
	if err != nil {
		return nil, fmt.Errorf("not: %w", err)
	}
	matched := make(map[int]bool, sub.Len())
	for _, id := range sub.RowIDs() {
		matched[id] = true
	}
	return maskByID(f, matched, false), nil
}

func (n Not) Columns() []string { return itemColumns(n.Item) }

func (n Not) Encode() ir.IRObject {
	var item ir.IRValue = ir.IRNull{}
	if n.Item != nil {
		item = n.Item.Encode()
	}
	return ir.Object(ir.O("kind", ir.IRString(KindNot)), ir.O("item", item))
}

// columnReader is implemented by filters and aggregates that can report
// the columns they read.
type columnReader interface {
	Columns() []string
}

func itemColumns(items ...RowFilter) []string {
	var cols []string
	for _, item := range items {
		if cr, ok := item.(columnReader); ok {
			cols = append(cols, cr.Columns()...)
		}
	}
	return cols
}

func applyItem(item RowFilter, f *frame.Frame) (*frame.Frame, error) {
	if item == nil {
		return nil, errors.New("nil filter item")
	}
	return item.Apply(f)
}

func maskByID(f *frame.Frame, ids map[int]bool, want bool) *frame.Frame {
	rowIDs := f.RowIDs()
	keep := make([]bool, len(rowIDs))
	for i, id := range rowIDs {
		keep[i] = ids[id] == want
	}
	return f.Filter(keep)
}

func encodeItems(kind string, items []RowFilter) ir.IRObject {
	arr := make(ir.IRArray, len(items))
	for i, item := range items {
		if item == nil {
			arr[i] = ir.IRNull{}
			continue
		}
		arr[i] = item.Encode()
	}
	return ir.Object(ir.O("kind", ir.IRString(kind)), ir.O("items", arr))
}

// literalIR encodes a filter operand. Operands that cannot be represented
// are encoded as their printed form so encoding stays total.
func literalIR(v any) ir.IRValue {
	iv, err := ir.FromGo(v)
	if err != nil {
		return ir.IRString(fmt.Sprint(v))
	}
	return iv
}

// literal normalizes a filter operand to frame cell types: nil, int64,
// float64, string, bool or, for lists, []any of those.
func literal(v any) (any, error) {
	iv, err := ir.FromGo(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadOperand, err)
	}
	return ir.ToGo(iv), nil
}

func applyCmp(f *frame.Frame, op, col string, raw any) (*frame.Frame, error) {
	cells, err := f.Column(col)
	if err != nil {
		return nil, err
	}
	v, err := literal(raw)
	if err != nil {
		return nil, err
	}

	var pred func(cell any) (bool, error)
	switch op {
	case OpEQ:
		pred = func(cell any) (bool, error) { return frame.Equal(cell, v), nil }
	case OpNE:
		pred = func(cell any) (bool, error) { return !frame.Equal(cell, v), nil }
	case OpLT, OpLE, OpGT, OpGE:
		if v == nil {
			return nil, fmt.Errorf("%w: %s needs a non-null value", ErrBadOperand, op)
		}
		if _, isList := v.([]any); isList {
			return nil, fmt.Errorf("%w: %s needs a scalar value", ErrBadOperand, op)
		}
		pred = func(cell any) (bool, error) {
			if cell == nil {
				return false, nil
			}
			c, err := frame.Compare(cell, v)
			if err != nil {
				return false, err
			}
			return ordered(op, c), nil
		}
	case OpIn:
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %q requires a list, got %T", ErrBadOperand, op, raw)
		}
		pred = func(cell any) (bool, error) {
			return slices.ContainsFunc(list, func(x any) bool { return frame.Equal(cell, x) }), nil
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, op)
	}

	keep := make([]bool, len(cells))
	for i, cell := range cells {
		ok, err := pred(cell)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		keep[i] = ok
	}
	return f.Filter(keep), nil
}

func ordered(op string, c int) bool {
	switch op {
	case OpLT:
		return c < 0
	case OpLE:
		return c <= 0
	case OpGT:
		return c > 0
	default:
		return c >= 0
	}
}
