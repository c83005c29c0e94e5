package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/claimspec/internal/evaluate"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string

	// Rows are the rows the assertion looked at.
	Rows []evaluate.Row
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Rows) > 0 {
		fmt.Fprintf(&buf, "\nRows:\n")
		for _, r := range e.Rows {
			fmt.Fprintf(&buf, "  %s/%s #%d %s passed=%t reason=%q\n",
				r.Experiment, r.Dataset, r.ClaimIndex, r.SpecKind, r.CorrectnessPassed, r.Reason)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against rows and returns one
// message per failure.
func EvaluateAssertions(rows []evaluate.Row, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(rows, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluateAssertion(rows []evaluate.Row, a Assertion) error {
	switch a.Type {
	case AssertClaimOutcome:
		return assertClaimOutcome(rows, a)
	case AssertPassCount:
		return assertPassCount(rows, a)
	case AssertCoverage:
		return assertCoverage(rows, a)
	case AssertReasonCount:
		return assertReasonCount(rows, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// selectRows returns the rows matching the assertion's experiment and
// dataset filters. An empty filter matches everything.
func selectRows(rows []evaluate.Row, a Assertion) []evaluate.Row {
	var out []evaluate.Row
	for _, r := range rows {
		if a.Experiment != "" && r.Experiment != a.Experiment {
			continue
		}
		if a.Dataset != "" && r.Dataset != a.Dataset {
			continue
		}
		out = append(out, r)
	}
	return out
}

func scope(a Assertion) string {
	parts := []string{}
	if a.Experiment != "" {
		parts = append(parts, "experiment "+a.Experiment)
	}
	if a.Dataset != "" {
		parts = append(parts, "dataset "+a.Dataset)
	}
	if len(parts) == 0 {
		return "all rows"
	}
	return strings.Join(parts, ", ")
}

func assertClaimOutcome(rows []evaluate.Row, a Assertion) error {
	var row *evaluate.Row
	for i, r := range rows {
		if r.Experiment == a.Experiment && r.Dataset == a.Dataset && r.ClaimIndex == *a.Claim {
			row = &rows[i]
			break
		}
	}
	if row == nil {
		return &AssertionError{
			Type:     AssertClaimOutcome,
			Expected: fmt.Sprintf("a row for %s/%s claim %d", a.Experiment, a.Dataset, *a.Claim),
			Actual:   "no such row",
		}
	}

	var want, got []string
	if a.Passed != nil && *a.Passed != row.CorrectnessPassed {
		want = append(want, fmt.Sprintf("passed=%t", *a.Passed))
		got = append(got, fmt.Sprintf("passed=%t", row.CorrectnessPassed))
	}
	if a.Computable != nil && *a.Computable != row.CoverageComputable {
		want = append(want, fmt.Sprintf("computable=%t", *a.Computable))
		got = append(got, fmt.Sprintf("computable=%t", row.CoverageComputable))
	}
	if a.Reason != "" && a.Reason != row.Reason {
		want = append(want, fmt.Sprintf("reason=%q", a.Reason))
		got = append(got, fmt.Sprintf("reason=%q", row.Reason))
	}
	if len(want) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertClaimOutcome,
		Expected: strings.Join(want, " "),
		Actual:   strings.Join(got, " "),
		Rows:     []evaluate.Row{*row},
	}
}

func assertPassCount(rows []evaluate.Row, a Assertion) error {
	selected := selectRows(rows, a)
	passed := 0
	for _, r := range selected {
		if r.CorrectnessPassed {
			passed++
		}
	}
	if passed == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertPassCount,
		Expected: fmt.Sprintf("%d passing in %s", *a.Count, scope(a)),
		Actual:   fmt.Sprintf("%d of %d passing", passed, len(selected)),
		Rows:     selected,
	}
}

func assertCoverage(rows []evaluate.Row, a Assertion) error {
	selected := selectRows(rows, a)
	if len(selected) == 0 {
		return &AssertionError{
			Type:     AssertCoverage,
			Expected: fmt.Sprintf("coverage >= %g in %s", *a.MinRate, scope(a)),
			Actual:   "no rows",
		}
	}
	computable := 0
	for _, r := range selected {
		if r.CoverageComputable {
			computable++
		}
	}
	rate := float64(computable) / float64(len(selected))
	if rate >= *a.MinRate {
		return nil
	}
	return &AssertionError{
		Type:     AssertCoverage,
		Expected: fmt.Sprintf("coverage >= %g in %s", *a.MinRate, scope(a)),
		Actual:   fmt.Sprintf("%g (%d of %d computable)", rate, computable, len(selected)),
		Rows:     selected,
	}
}

func assertReasonCount(rows []evaluate.Row, a Assertion) error {
	selected := selectRows(rows, a)
	var matched []evaluate.Row
	for _, r := range selected {
		if r.Reason == a.Reason {
			matched = append(matched, r)
		}
	}
	if len(matched) == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertReasonCount,
		Expected: fmt.Sprintf("%d rows with reason %q in %s", *a.Count, a.Reason, scope(a)),
		Actual:   fmt.Sprintf("%d rows", len(matched)),
		Rows:     matched,
	}
}
