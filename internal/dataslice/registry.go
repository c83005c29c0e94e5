package dataslice

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/claimspec/internal/ir"
)

var (
	// ErrDuplicateKind is returned when a filter or aggregate kind is
	// registered twice.
	ErrDuplicateKind = errors.New("duplicate kind")

	// ErrFrozen is returned when registering into a frozen registry.
	ErrFrozen = errors.New("registry is frozen")
)

// FilterDecoder reconstructs a RowFilter. The registry is passed so that
// composite filters can decode their children.
type FilterDecoder func(r *Registry, obj ir.IRObject) (RowFilter, error)

// AggregateDecoder reconstructs an Aggregate.
type AggregateDecoder func(obj ir.IRObject) (Aggregate, error)

// Registry maps filter and aggregate kinds to decoders.
type Registry struct {
	filters    map[string]FilterDecoder
	aggregates map[string]AggregateDecoder
	frozen     bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{
		filters:    make(map[string]FilterDecoder),
		aggregates: make(map[string]AggregateDecoder),
	}
}

var standard = sync.OnceValue(func() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		panic(fmt.Sprintf("dataslice: builtin registration: %v", err))
	}
	r.Freeze()
	return r
})

// Standard returns the shared frozen registry holding the built-in filters
// and aggregates.
func Standard() *Registry { return standard() }

// RegisterBuiltins adds eq, cmp, and, or, not, const and mean_agg to r.
func RegisterBuiltins(r *Registry) error {
	for kind, dec := range map[string]FilterDecoder{
		KindEq:  decodeEq,
		KindCmp: decodeCmp,
		KindAnd: decodeAnd,
		KindOr:  decodeOr,
		KindNot: decodeNot,
	} {
		if err := r.RegisterFilter(kind, dec); err != nil {
			return err
		}
	}
	if err := r.RegisterAggregate(KindConst, decodeConst); err != nil {
		return err
	}
	return r.RegisterAggregate(KindMeanAgg, decodeMeanAgg)
}

// RegisterFilter adds a decoder for a row filter kind.
func (r *Registry) RegisterFilter(kind string, dec FilterDecoder) error {
	if r.frozen {
		return fmt.Errorf("register filter %q: %w", kind, ErrFrozen)
	}
	if kind == "" || dec == nil {
		return fmt.Errorf("register filter %q: kind and decoder are required", kind)
	}
	if _, dup := r.filters[kind]; dup {
		return fmt.Errorf("register filter %q: %w", kind, ErrDuplicateKind)
	}
	r.filters[kind] = dec
	return nil
}

// RegisterAggregate adds a decoder for an aggregate kind.
func (r *Registry) RegisterAggregate(kind string, dec AggregateDecoder) error {
	if r.frozen {
		return fmt.Errorf("register aggregate %q: %w", kind, ErrFrozen)
	}
	if kind == "" || dec == nil {
		return fmt.Errorf("register aggregate %q: kind and decoder are required", kind)
	}
	if _, dup := r.aggregates[kind]; dup {
		return fmt.Errorf("register aggregate %q: %w", kind, ErrDuplicateKind)
	}
	r.aggregates[kind] = dec
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() { r.frozen = true }

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool { return r.frozen }

// DecodeFilter reconstructs a RowFilter from its canonical object.
func (r *Registry) DecodeFilter(obj ir.IRObject) (RowFilter, error) {
	kind, err := obj.Kind()
	if err != nil {
		return nil, err
	}
	dec, ok := r.filters[kind]
	if !ok {
		return nil, fmt.Errorf("row filter kind %q: %w", kind, ir.ErrUnknownKind)
	}
	f, err := dec(r, obj)
	if err != nil {
		return nil, tagKind(err, kind)
	}
	return f, nil
}

// DecodeAggregate reconstructs an Aggregate from its canonical object.
func (r *Registry) DecodeAggregate(obj ir.IRObject) (Aggregate, error) {
	kind, err := obj.Kind()
	if err != nil {
		return nil, err
	}
	dec, ok := r.aggregates[kind]
	if !ok {
		return nil, fmt.Errorf("aggregate kind %q: %w", kind, ir.ErrUnknownKind)
	}
	a, err := dec(obj)
	if err != nil {
		return nil, tagKind(err, kind)
	}
	return a, nil
}

// DecodeSlice reconstructs a DataSlice. group_by may be a single string or
// a list; an empty aggregates list is treated as absent.
func (r *Registry) DecodeSlice(obj ir.IRObject) (*DataSlice, error) {
	var opts []Option

	rf, ok, err := obj.Object("row_filter")
	if err != nil {
		return nil, err
	}
	if ok {
		f, err := r.DecodeFilter(rf)
		if err != nil {
			return nil, fmt.Errorf("row_filter: %w", err)
		}
		opts = append(opts, Where(f))
	}

	aggObjs, err := obj.Objects("aggregates")
	if err != nil {
		return nil, err
	}
	for i, ao := range aggObjs {
		a, err := r.DecodeAggregate(ao)
		if err != nil {
			return nil, fmt.Errorf("aggregates[%d]: %w", i, err)
		}
		opts = append(opts, Aggregates(a))
	}

	groupBy, err := obj.StringList("group_by")
	if err != nil {
		return nil, err
	}
	opts = append(opts, GroupBy(groupBy...))

	return New(opts...), nil
}

func tagKind(err error, kind string) error {
	var de *ir.DecodeError
	if errors.As(err, &de) && de.Kind == "" {
		de.Kind = kind
	}
	return err
}

func operand(obj ir.IRObject) any {
	v, ok := obj.Lookup("value")
	if !ok {
		return nil
	}
	return ir.ToGo(v)
}

func decodeEq(_ *Registry, obj ir.IRObject) (RowFilter, error) {
	col, err := obj.String("col")
	if err != nil {
		return nil, err
	}
	return Eq{Col: col, Value: operand(obj)}, nil
}

func decodeCmp(_ *Registry, obj ir.IRObject) (RowFilter, error) {
	col, err := obj.String("col")
	if err != nil {
		return nil, err
	}
	op, err := obj.OptString("op")
	if err != nil {
		return nil, err
	}
	if op == "" {
		op = OpEQ
	}
	return Cmp{Op: op, Col: col, Value: operand(obj)}, nil
}

func decodeItems(r *Registry, obj ir.IRObject) ([]RowFilter, error) {
	objs, err := obj.Objects("items")
	if err != nil {
		return nil, err
	}
	items := make([]RowFilter, len(objs))
	for i, o := range objs {
		f, err := r.DecodeFilter(o)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		items[i] = f
	}
	return items, nil
}

func decodeAnd(r *Registry, obj ir.IRObject) (RowFilter, error) {
	items, err := decodeItems(r, obj)
	if err != nil {
		return nil, err
	}
	return And{Items: items}, nil
}

func decodeOr(r *Registry, obj ir.IRObject) (RowFilter, error) {
	items, err := decodeItems(r, obj)
	if err != nil {
		return nil, err
	}
	return Or{Items: items}, nil
}

func decodeNot(r *Registry, obj ir.IRObject) (RowFilter, error) {
	itemObj, ok, err := obj.Object("item")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ir.DecodeError{Field: "item", Message: "required"}
	}
	item, err := r.DecodeFilter(itemObj)
	if err != nil {
		return nil, fmt.Errorf("item: %w", err)
	}
	return NewNot(item)
}

func decodeByCols(obj ir.IRObject) (by, cols []string, err error) {
	if by, err = obj.StringList("by"); err != nil {
		return nil, nil, err
	}
	if cols, err = obj.StringList("cols"); err != nil {
		return nil, nil, err
	}
	return by, cols, nil
}

func decodeConst(obj ir.IRObject) (Aggregate, error) {
	by, cols, err := decodeByCols(obj)
	if err != nil {
		return nil, err
	}
	return Const{By: by, Cols: cols}, nil
}

func decodeMeanAgg(obj ir.IRObject) (Aggregate, error) {
	by, cols, err := decodeByCols(obj)
	if err != nil {
		return nil, err
	}
	return MeanAgg{By: by, Cols: cols}, nil
}
