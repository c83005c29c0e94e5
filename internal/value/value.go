// Package value implements the tagged result type of spec evaluation and the
// tolerance-aware comparator registry that judges expected against observed
// values.
//
// A Value is a scalar with a kind (its concrete tag) and a family (the class
// of kinds that may be compared with each other). A Grouped value maps group
// keys to Values. A Result is either one Value or one Grouped; nothing nests
// deeper than that.
package value

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/claimspec/internal/ir"
)

// Built-in kinds.
const (
	KindNumber         = "number"
	KindApproxNumber   = "approx_number"
	KindIntervalNumber = "interval_number"
	KindInvalid        = "invalid"

	// KindGrouped is reserved for the encoding of Grouped results and cannot
	// be registered as a Value kind.
	KindGrouped = "grouped"

	FamilyNumber = "number"
)

// Result is the outcome of evaluating a spec: a Value or a Grouped.
type Result interface {
	Encode() ir.IRObject
}

// Value is a scalar result.
type Value interface {
	Result

	// Kind is the concrete tag used for encoding and comparator lookup.
	Kind() string

	// Family is the comparability class. Empty means the same as Kind.
	Family() string

	// Data is the payload compared when two values of the same kind have
	// no registered comparator.
	Data() ir.IRValue
}

// FamilyOf returns the effective family of v.
func FamilyOf(v Value) string {
	if f := v.Family(); f != "" {
		return f
	}
	return v.Kind()
}

// Number is an exact scalar.
type Number float64

func (Number) Kind() string   { return KindNumber }
func (Number) Family() string { return FamilyNumber }

func (n Number) Data() ir.IRValue { return ir.IRFloat(n) }

func (n Number) Encode() ir.IRObject {
	return ir.Object(
		ir.O("kind", ir.IRString(KindNumber)),
		ir.O("data", ir.IRFloat(n)),
	)
}

// ApproxNumber is a scalar center with its own tolerance. Its tolerance is
// added to the caller's when compared.
type ApproxNumber struct {
	Center float64
	ATol   float64
	RTol   float64
}

func (ApproxNumber) Kind() string   { return KindApproxNumber }
func (ApproxNumber) Family() string { return FamilyNumber }

func (a ApproxNumber) Data() ir.IRValue { return ir.IRFloat(a.Center) }

func (a ApproxNumber) Encode() ir.IRObject {
	return ir.Object(
		ir.O("kind", ir.IRString(KindApproxNumber)),
		ir.O("data", ir.IRFloat(a.Center)),
		ir.O("atol", ir.IRFloat(a.ATol)),
		ir.O("rtol", ir.IRFloat(a.RTol)),
	)
}

// Bounds returns the closed interval the approximation covers once the
// caller's tolerance is added to its own.
func (a ApproxNumber) Bounds(tol Tolerance) (lo, hi float64) {
	t := (a.ATol + tol.ATol) + (a.RTol+tol.RTol)*abs(a.Center)
	return a.Center - t, a.Center + t
}

// IntervalNumber is a closed range [Lo, Hi]. Construct it with Interval so
// the bounds are ordered.
type IntervalNumber struct {
	lo, hi float64
}

// Interval returns the closed interval between a and b, in either order.
func Interval(a, b float64) IntervalNumber {
	if a > b {
		a, b = b, a
	}
	return IntervalNumber{lo: a, hi: b}
}

func (IntervalNumber) Kind() string   { return KindIntervalNumber }
func (IntervalNumber) Family() string { return FamilyNumber }

// Lo returns the lower bound.
func (i IntervalNumber) Lo() float64 { return i.lo }

// Hi returns the upper bound.
func (i IntervalNumber) Hi() float64 { return i.hi }

// Contains reports whether x lies in the closed interval.
func (i IntervalNumber) Contains(x float64) bool { return i.lo <= x && x <= i.hi }

func (i IntervalNumber) Data() ir.IRValue {
	return ir.Object(ir.O("lo", ir.IRFloat(i.lo)), ir.O("hi", ir.IRFloat(i.hi)))
}

func (i IntervalNumber) Encode() ir.IRObject {
	return ir.Object(
		ir.O("kind", ir.IRString(KindIntervalNumber)),
		ir.O("data", i.Data()),
	)
}

// Invalid marks a result that could not be computed. It poisons every
// comparison it takes part in.
type Invalid struct {
	Reason string
	Detail map[string]any
}

// NewInvalid returns an Invalid with the given reason and detail.
func NewInvalid(reason string, detail map[string]any) Invalid {
	return Invalid{Reason: reason, Detail: detail}
}

func (Invalid) Kind() string   { return KindInvalid }
func (Invalid) Family() string { return "" }

func (Invalid) Data() ir.IRValue { return ir.IRNull{} }

func (v Invalid) Encode() ir.IRObject {
	return ir.Object(
		ir.O("kind", ir.IRString(KindInvalid)),
		ir.O("data", ir.IRNull{}),
		ir.O("reason", ir.IRString(v.Reason)),
		ir.O("detail", detailIR(v.Detail)),
	)
}

func (v Invalid) String() string {
	return fmt.Sprintf("invalid(%s)", v.Reason)
}

// Grouped maps group keys to per-group Values.
type Grouped map[string]Value

// Keys returns the group keys in sorted order.
func (g Grouped) Keys() []string {
	return slices.Sorted(maps.Keys(g))
}

// Encode returns {"kind":"grouped","groups":{key: value}}.
func (g Grouped) Encode() ir.IRObject {
	groups := make(ir.IRObject, len(g))
	for k, v := range g {
		if v == nil {
			groups[k] = ir.IRNull{}
			continue
		}
		groups[k] = v.Encode()
	}
	return ir.Object(
		ir.O("kind", ir.IRString(KindGrouped)),
		ir.O("groups", groups),
	)
}

// IsInvalid reports whether r is an Invalid scalar or a Grouped containing
// one.
func IsInvalid(r Result) bool {
	switch v := r.(type) {
	case Grouped:
		for _, e := range v {
			if e != nil && e.Kind() == KindInvalid {
				return true
			}
		}
		return false
	case Value:
		return v.Kind() == KindInvalid
	default:
		return false
	}
}

// EncodeResult encodes a Result, mapping nil to IRNull.
func EncodeResult(r Result) ir.IRValue {
	if r == nil {
		return ir.IRNull{}
	}
	return r.Encode()
}

// detailIR converts free-form detail into IR. Entries that cannot be
// represented (non-finite floats, foreign types) are rendered as strings so
// an Invalid always encodes.
func detailIR(d map[string]any) ir.IRValue {
	if d == nil {
		return ir.IRNull{}
	}
	obj := make(ir.IRObject, len(d))
	for k, v := range d {
		iv, err := ir.FromGo(v)
		if err != nil {
			iv = ir.IRString(fmt.Sprint(v))
		}
		obj[k] = iv
	}
	return obj
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
