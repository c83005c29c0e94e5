package value

// Comparators for the number family. Each is written for its registered
// (left, right) order; the registry swaps operands for the reverse pair.

func registerNumberComparators(r *Registry) error {
	for _, c := range []struct {
		left, right string
		fn          CompareFunc
	}{
		{KindNumber, KindNumber, compareNumberNumber},
		{KindApproxNumber, KindNumber, compareApproxNumber},
		{KindIntervalNumber, KindNumber, compareIntervalNumber},
		{KindIntervalNumber, KindIntervalNumber, compareIntervalInterval},
		{KindApproxNumber, KindIntervalNumber, compareApproxInterval},
	} {
		if err := r.RegisterCompare(FamilyNumber, c.left, c.right, c.fn); err != nil {
			return err
		}
	}
	return nil
}

// |a - b| <= atol + rtol*|b|
func compareNumberNumber(a, b Value, tol Tolerance) bool {
	x, y := float64(a.(Number)), float64(b.(Number))
	return abs(x-y) <= tol.ATol+tol.RTol*abs(y)
}

func compareApproxNumber(a, b Value, tol Tolerance) bool {
	lo, hi := a.(ApproxNumber).Bounds(tol)
	x := float64(b.(Number))
	return lo <= x && x <= hi
}

// The interval is exact; the global tolerance does not widen it.
func compareIntervalNumber(a, b Value, _ Tolerance) bool {
	return a.(IntervalNumber).Contains(float64(b.(Number)))
}

func compareIntervalInterval(a, b Value, _ Tolerance) bool {
	x, y := a.(IntervalNumber), b.(IntervalNumber)
	return overlaps(x.lo, x.hi, y.lo, y.hi)
}

func compareApproxInterval(a, b Value, tol Tolerance) bool {
	lo, hi := a.(ApproxNumber).Bounds(tol)
	y := b.(IntervalNumber)
	return overlaps(lo, hi, y.lo, y.hi)
}

// overlaps reports whether two closed intervals intersect; touching
// endpoints count.
func overlaps(alo, ahi, blo, bhi float64) bool {
	return !(ahi < blo || bhi < alo)
}
