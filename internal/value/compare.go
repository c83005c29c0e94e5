package value

import (
	"fmt"
	"maps"

	"github.com/roach88/claimspec/internal/ir"
)

// Comparison reasons.
const (
	// Not evaluable (OK=false).
	ReasonFamilyMismatch      = "family_mismatch"
	ReasonInvalidGroupedValue = "invalid_grouped_value"
	ReasonInvalidValue        = "invalid_value"
	ReasonNoComparator        = "no_comparator"
	ReasonSpecMismatch        = "spec_mismatch"
	ReasonInternalError       = "internal_error"

	// Evaluable but failed (OK=true, Passed=false).
	ReasonValueMismatch     = "value_mismatch"
	ReasonBroadcastMismatch = "broadcast_mismatch"
	ReasonDictMismatch      = "dict_mismatch"
)

// Broadcast directions recorded in broadcast_mismatch details.
const (
	DirectionGroupedVsScalar = "grouped_vs_scalar"
	DirectionScalarVsGrouped = "scalar_vs_grouped"
)

// Tolerance is the caller-supplied global tolerance.
type Tolerance struct {
	RTol float64
	ATol float64
}

// Comparison is the outcome of comparing two results. Passed is nil
// whenever OK is false.
type Comparison struct {
	OK     bool
	Passed *bool
	Reason string
	Detail map[string]any
}

// Succeeded reports whether the comparison was evaluable and passed.
func (c Comparison) Succeeded() bool {
	return c.OK && c.Passed != nil && *c.Passed
}

// DetailJSON returns the canonical JSON of Detail ("null" when empty).
func (c Comparison) DetailJSON() string {
	if c.Detail == nil {
		return "null"
	}
	data, err := ir.MarshalCanonical(detailIR(c.Detail))
	if err != nil {
		return fmt.Sprintf("%q", err.Error())
	}
	return string(data)
}

func notEvaluable(reason string, detail map[string]any) Comparison {
	return Comparison{OK: false, Reason: reason, Detail: detail}
}

func judged(passed bool, reason string, detail map[string]any) Comparison {
	if passed {
		return Comparison{OK: true, Passed: &passed}
	}
	return Comparison{OK: true, Passed: &passed, Reason: reason, Detail: detail}
}

// Compare judges a against b. By convention a is the expected (claimed)
// result and b the observed one.
func (r *Registry) Compare(a, b Result, tol Tolerance) Comparison {
	if a == nil || b == nil {
		return notEvaluable(ReasonInternalError, map[string]any{"note": "nil operand"})
	}
	for _, side := range []struct {
		name string
		r    Result
	}{{"left", a}, {"right", b}} {
		switch v := side.r.(type) {
		case Grouped:
			if hasNilEntry(v) {
				return notEvaluable(ReasonInvalidGroupedValue, map[string]any{
					"side": side.name,
					"note": "grouped entries must all be values",
				})
			}
		case Value:
		default:
			return notEvaluable(ReasonInternalError, map[string]any{
				"side": side.name,
				"note": fmt.Sprintf("unsupported result type %T", side.r),
			})
		}
	}

	if IsInvalid(a) || IsInvalid(b) {
		return notEvaluable(ReasonInvalidValue, map[string]any{
			"left":  a.Encode(),
			"right": b.Encode(),
		})
	}

	ga, aGrouped := a.(Grouped)
	gb, bGrouped := b.(Grouped)
	switch {
	case !aGrouped && !bGrouped:
		return r.compareScalar(a.(Value), b.(Value), tol)
	case aGrouped && bGrouped:
		return r.compareGrouped(ga, gb, tol)
	case aGrouped:
		return r.compareBroadcast(ga, b.(Value), tol, DirectionGroupedVsScalar)
	default:
		return r.compareBroadcast(gb, a.(Value), tol, DirectionScalarVsGrouped)
	}
}

func (r *Registry) compareScalar(a, b Value, tol Tolerance) Comparison {
	fa, fb := FamilyOf(a), FamilyOf(b)
	if fa != fb {
		return notEvaluable(ReasonFamilyMismatch, map[string]any{
			"left_family":  fa,
			"right_family": fb,
			"left_kind":    a.Kind(),
			"right_kind":   b.Kind(),
		})
	}

	var passed bool
	if fn, ok := r.comparators[pairKey{fa, a.Kind(), b.Kind()}]; ok {
		passed = fn(a, b, tol)
	} else if fn, ok := r.comparators[pairKey{fa, b.Kind(), a.Kind()}]; ok {
		passed = fn(b, a, tol)
	} else if a.Kind() == b.Kind() {
		passed = sameData(a, b)
	} else {
		return notEvaluable(ReasonNoComparator, map[string]any{
			"family":     fa,
			"left_kind":  a.Kind(),
			"right_kind": b.Kind(),
		})
	}

	return judged(passed, ReasonValueMismatch, map[string]any{
		"left":  a.Encode(),
		"right": b.Encode(),
	})
}

func sameData(a, b Value) bool {
	x, errA := ir.MarshalCanonical(a.Data())
	y, errB := ir.MarshalCanonical(b.Data())
	return errA == nil && errB == nil && string(x) == string(y)
}

func (r *Registry) compareGrouped(a, b Grouped, tol Tolerance) Comparison {
	missingLeft := []string{}
	missingRight := []string{}
	for _, k := range b.Keys() {
		if _, ok := a[k]; !ok {
			missingLeft = append(missingLeft, k)
		}
	}
	for _, k := range a.Keys() {
		if _, ok := b[k]; !ok {
			missingRight = append(missingRight, k)
		}
	}

	passed := len(missingLeft) == 0 && len(missingRight) == 0
	perKey := make(map[string]any)
	for _, k := range a.Keys() {
		bv, ok := b[k]
		if !ok {
			continue
		}
		sub := r.compareScalar(a[k], bv, tol)
		if !sub.OK {
			return withKey(sub, k)
		}
		perKey[k] = map[string]any{
			"passed": *sub.Passed,
			"left":   a[k].Encode(),
			"right":  bv.Encode(),
		}
		passed = passed && *sub.Passed
	}

	return judged(passed, ReasonDictMismatch, map[string]any{
		"missing_left":  missingLeft,
		"missing_right": missingRight,
		"per_key":       perKey,
	})
}

func (r *Registry) compareBroadcast(g Grouped, scalar Value, tol Tolerance, direction string) Comparison {
	passed := true
	perKey := make(map[string]any, len(g))
	for _, k := range g.Keys() {
		left, right := g[k], scalar
		if direction == DirectionScalarVsGrouped {
			left, right = scalar, g[k]
		}
		sub := r.compareScalar(left, right, tol)
		if !sub.OK {
			return withKey(sub, k)
		}
		perKey[k] = map[string]any{
			"passed": *sub.Passed,
			"left":   left.Encode(),
			"right":  right.Encode(),
		}
		passed = passed && *sub.Passed
	}

	return judged(passed, ReasonBroadcastMismatch, map[string]any{
		"direction": direction,
		"per_key":   perKey,
	})
}

func hasNilEntry(g Grouped) bool {
	for _, v := range g {
		if v == nil {
			return true
		}
	}
	return false
}

func withKey(c Comparison, key string) Comparison {
	detail := make(map[string]any, len(c.Detail)+1)
	maps.Copy(detail, c.Detail)
	detail["key"] = key
	c.Detail = detail
	return c
}
