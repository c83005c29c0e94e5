package spec

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/claimspec/internal/dataslice"
	"github.com/roach88/claimspec/internal/ir"
)

var (
	// ErrDuplicateKind is returned when a spec kind is registered twice.
	ErrDuplicateKind = errors.New("duplicate spec kind")

	// ErrFrozen is returned when registering into a frozen registry.
	ErrFrozen = errors.New("registry is frozen")
)

// DecodeFunc reconstructs a Spec. The registry is passed so decoders can
// reach the DataSlice decoder through DecodeSlice.
type DecodeFunc func(r *Registry, obj ir.IRObject) (Spec, error)

// Registry maps spec kinds to decoders.
type Registry struct {
	slices   *dataslice.Registry
	decoders map[string]DecodeFunc
	frozen   bool
}

// NewRegistry returns an empty registry decoding slices through ds.
func NewRegistry(ds *dataslice.Registry) *Registry {
	return &Registry{
		slices:   ds,
		decoders: make(map[string]DecodeFunc),
	}
}

var standard = sync.OnceValue(func() *Registry {
	r := NewRegistry(dataslice.Standard())
	if err := RegisterBuiltins(r); err != nil {
		panic(fmt.Sprintf("spec: builtin registration: %v", err))
	}
	r.Freeze()
	return r
})

// Standard returns the shared frozen registry with the built-in specs.
func Standard() *Registry { return standard() }

// RegisterBuiltins adds count_unique, mean, std, count and median to r.
func RegisterBuiltins(r *Registry) error {
	for kind, dec := range map[string]DecodeFunc{
		KindCountUnique: columnDecoder(func(col string, sl *dataslice.DataSlice) Spec { return CountUnique{Col: col, Slice: sl} }),
		KindMean:        columnDecoder(func(col string, sl *dataslice.DataSlice) Spec { return Mean{Col: col, Slice: sl} }),
		KindStd:         columnDecoder(func(col string, sl *dataslice.DataSlice) Spec { return Std{Col: col, Slice: sl} }),
		KindCount:       columnDecoder(func(col string, sl *dataslice.DataSlice) Spec { return Count{Col: col, Slice: sl} }),
		KindMedian:      columnDecoder(func(col string, sl *dataslice.DataSlice) Spec { return Median{Col: col, Slice: sl} }),
	} {
		if err := r.Register(kind, dec); err != nil {
			return err
		}
	}
	return nil
}

// Register adds a decoder for kind.
func (r *Registry) Register(kind string, dec DecodeFunc) error {
	if r.frozen {
		return fmt.Errorf("register spec %q: %w", kind, ErrFrozen)
	}
	if kind == "" || dec == nil {
		return fmt.Errorf("register spec %q: kind and decoder are required", kind)
	}
	if _, dup := r.decoders[kind]; dup {
		return fmt.Errorf("register spec %q: %w", kind, ErrDuplicateKind)
	}
	r.decoders[kind] = dec
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() { r.frozen = true }

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool { return r.frozen }

// Kinds returns the registered spec kinds in sorted order.
func (r *Registry) Kinds() []string {
	return slices.Sorted(maps.Keys(r.decoders))
}

// Decode reconstructs a Spec from its canonical object. An unknown kind is
// an error wrapping ir.ErrUnknownKind.
func (r *Registry) Decode(obj ir.IRObject) (Spec, error) {
	kind, err := obj.Kind()
	if err != nil {
		return nil, err
	}
	dec, ok := r.decoders[kind]
	if !ok {
		return nil, fmt.Errorf("spec kind %q: %w", kind, ir.ErrUnknownKind)
	}
	s, err := dec(r, obj)
	if err != nil {
		var de *ir.DecodeError
		if errors.As(err, &de) && de.Kind == "" {
			de.Kind = kind
		}
		return nil, err
	}
	return s, nil
}

// DecodeSlice decodes the optional "slice" field of a spec object.
func (r *Registry) DecodeSlice(obj ir.IRObject) (*dataslice.DataSlice, error) {
	sl, ok, err := obj.Object("slice")
	if err != nil || !ok {
		return nil, err
	}
	ds, err := r.slices.DecodeSlice(sl)
	if err != nil {
		return nil, fmt.Errorf("slice: %w", err)
	}
	return ds, nil
}

func columnDecoder(build func(col string, sl *dataslice.DataSlice) Spec) DecodeFunc {
	return func(r *Registry, obj ir.IRObject) (Spec, error) {
		col, err := obj.String("col")
		if err != nil {
			return nil, err
		}
		sl, err := r.DecodeSlice(obj)
		if err != nil {
			return nil, err
		}
		return build(col, sl), nil
	}
}
