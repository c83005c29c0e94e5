package value

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/claimspec/internal/ir"
)

var (
	// ErrDuplicateKind is returned when a kind is registered twice.
	ErrDuplicateKind = errors.New("duplicate value kind")

	// ErrDuplicateComparator is returned when a (family, left, right)
	// comparator is registered twice.
	ErrDuplicateComparator = errors.New("duplicate comparator")

	// ErrFrozen is returned when registering into a frozen registry.
	ErrFrozen = errors.New("registry is frozen")

	// ErrReservedKind is returned when registering the reserved grouped kind.
	ErrReservedKind = errors.New("reserved kind")
)

// DecodeFunc reconstructs a Value from its canonical object.
type DecodeFunc func(obj ir.IRObject) (Value, error)

// CompareFunc is a directional comparator: a is the value of the registered
// left kind, b of the right kind.
type CompareFunc func(a, b Value, tol Tolerance) bool

type pairKey struct {
	family, left, right string
}

// Registry maps kinds to decoders and kind pairs to comparators. It is
// populated at startup, then frozen and shared read-only.
type Registry struct {
	decoders    map[string]DecodeFunc
	comparators map[pairKey]CompareFunc
	frozen      bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{
		decoders:    make(map[string]DecodeFunc),
		comparators: make(map[pairKey]CompareFunc),
	}
}

var standard = sync.OnceValue(func() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		panic(fmt.Sprintf("value: builtin registration: %v", err))
	}
	r.Freeze()
	return r
})

// Standard returns the shared frozen registry with the built-in kinds and
// number comparators.
func Standard() *Registry { return standard() }

// RegisterBuiltins adds the built-in kinds (number, approx_number,
// interval_number, invalid) and the number comparators to r. Use it to seed
// a registry that is extended with custom kinds before freezing.
func RegisterBuiltins(r *Registry) error {
	for kind, dec := range map[string]DecodeFunc{
		KindNumber:         decodeNumber,
		KindApproxNumber:   decodeApprox,
		KindIntervalNumber: decodeInterval,
		KindInvalid:        decodeInvalid,
	} {
		if err := r.Register(kind, dec); err != nil {
			return err
		}
	}
	return registerNumberComparators(r)
}

// Register adds a decoder for kind.
func (r *Registry) Register(kind string, decode DecodeFunc) error {
	if r.frozen {
		return fmt.Errorf("register %q: %w", kind, ErrFrozen)
	}
	if kind == "" || decode == nil {
		return fmt.Errorf("register %q: kind and decoder are required", kind)
	}
	if kind == KindGrouped {
		return fmt.Errorf("register %q: %w", kind, ErrReservedKind)
	}
	if _, dup := r.decoders[kind]; dup {
		return fmt.Errorf("register %q: %w", kind, ErrDuplicateKind)
	}
	r.decoders[kind] = decode
	return nil
}

// RegisterCompare adds the comparator for (family, left, right). The reverse
// pair is derived at lookup time and should not be registered.
func (r *Registry) RegisterCompare(family, left, right string, fn CompareFunc) error {
	key := pairKey{family, left, right}
	if r.frozen {
		return fmt.Errorf("register comparator %v: %w", key, ErrFrozen)
	}
	if fn == nil {
		return fmt.Errorf("register comparator %v: nil function", key)
	}
	if _, dup := r.comparators[key]; dup {
		return fmt.Errorf("register comparator %v: %w", key, ErrDuplicateComparator)
	}
	r.comparators[key] = fn
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() { r.frozen = true }

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool { return r.frozen }

// Has reports whether kind has a decoder.
func (r *Registry) Has(kind string) bool {
	_, ok := r.decoders[kind]
	return ok
}

// Decode reconstructs a Value from its canonical object. An unknown kind is
// an error wrapping ir.ErrUnknownKind.
func (r *Registry) Decode(obj ir.IRObject) (Value, error) {
	kind, err := obj.Kind()
	if err != nil {
		return nil, err
	}
	dec, ok := r.decoders[kind]
	if !ok {
		return nil, fmt.Errorf("value kind %q: %w", kind, ir.ErrUnknownKind)
	}
	v, err := dec(obj)
	if err != nil {
		var de *ir.DecodeError
		if errors.As(err, &de) && de.Kind == "" {
			de.Kind = kind
		}
		return nil, err
	}
	return v, nil
}

// DecodeResult reconstructs a Value or, for the grouped kind, a Grouped.
func (r *Registry) DecodeResult(obj ir.IRObject) (Result, error) {
	kind, err := obj.Kind()
	if err != nil {
		return nil, err
	}
	if kind != KindGrouped {
		return r.Decode(obj)
	}

	groups, ok, err := obj.Object("groups")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ir.DecodeError{Kind: KindGrouped, Field: "groups", Message: "required"}
	}
	out := make(Grouped, len(groups))
	for _, key := range groups.SortedKeys() {
		entry, ok := groups[key].(ir.IRObject)
		if !ok {
			return nil, &ir.DecodeError{Kind: KindGrouped, Field: "groups." + key, Message: "expected value object"}
		}
		v, err := r.Decode(entry)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}

func decodeNumber(obj ir.IRObject) (Value, error) {
	d, err := obj.Float("data", 0)
	if err != nil {
		return nil, err
	}
	return Number(d), nil
}

func decodeApprox(obj ir.IRObject) (Value, error) {
	center, err := obj.Float("data", 0)
	if err != nil {
		return nil, err
	}
	atol, err := obj.Float("atol", 0)
	if err != nil {
		return nil, err
	}
	rtol, err := obj.Float("rtol", 0)
	if err != nil {
		return nil, err
	}
	return ApproxNumber{Center: center, ATol: atol, RTol: rtol}, nil
}

func decodeInterval(obj ir.IRObject) (Value, error) {
	data, _, err := obj.Object("data")
	if err != nil {
		return nil, err
	}
	lo, err := data.Float("lo", 0)
	if err != nil {
		return nil, err
	}
	hi, err := data.Float("hi", 0)
	if err != nil {
		return nil, err
	}
	return Interval(lo, hi), nil
}

func decodeInvalid(obj ir.IRObject) (Value, error) {
	reason, err := obj.OptString("reason")
	if err != nil {
		return nil, err
	}
	detail, ok, err := obj.Object("detail")
	if err != nil {
		return nil, err
	}
	inv := Invalid{Reason: reason}
	if ok {
		inv.Detail = ir.ToGo(detail).(map[string]any)
	}
	return inv, nil
}
