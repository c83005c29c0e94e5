package evaluate

import (
	"cmp"
	"slices"
)

// Summary counts outcomes over a group of rows. Experiment is empty for
// overall summaries.
type Summary struct {
	Paper      string `json:"paper"`
	Experiment string `json:"experiment,omitempty"`
	Dataset    string `json:"dataset"`
	Claims     int    `json:"n_claims"`
	Computable int    `json:"coverage_computable_n"`
	Passed     int    `json:"correctness_pass_n"`
	CompareOK  int    `json:"compare_ok_n"`
}

func (s Summary) ComputableRate() float64 { return rate(s.Computable, s.Claims) }
func (s Summary) PassRate() float64       { return rate(s.Passed, s.Claims) }
func (s Summary) CompareOKRate() float64  { return rate(s.CompareOK, s.Claims) }

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// SummarizeByExperiment groups rows by (paper, experiment, dataset).
func SummarizeByExperiment(rows []Row) []Summary {
	return summarize(rows, func(r Row) Summary {
		return Summary{Paper: r.Paper, Experiment: r.Experiment, Dataset: r.Dataset}
	})
}

// SummarizeOverall groups rows by (paper, dataset) across experiments.
func SummarizeOverall(rows []Row) []Summary {
	return summarize(rows, func(r Row) Summary {
		return Summary{Paper: r.Paper, Dataset: r.Dataset}
	})
}

// summarize tallies rows per key and returns the summaries sorted by
// paper, experiment, then dataset.
func summarize(rows []Row, key func(Row) Summary) []Summary {
	byKey := make(map[Summary]*Summary)
	for _, r := range rows {
		k := key(r)
		s, ok := byKey[k]
		if !ok {
			s = &Summary{Paper: k.Paper, Experiment: k.Experiment, Dataset: k.Dataset}
			byKey[k] = s
		}
		s.Claims++
		if r.CoverageComputable {
			s.Computable++
		}
		if r.CorrectnessPassed {
			s.Passed++
		}
		if r.CompareOK {
			s.CompareOK++
		}
	}

	out := make([]Summary, 0, len(byKey))
	for _, s := range byKey {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b Summary) int {
		return cmp.Or(
			cmp.Compare(a.Paper, b.Paper),
			cmp.Compare(a.Experiment, b.Experiment),
			cmp.Compare(a.Dataset, b.Dataset),
		)
	})
	return out
}
