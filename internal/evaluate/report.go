package evaluate

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Report file names written by WriteReports.
const (
	PerClaimFile            = "per_claim.csv"
	SummaryByExperimentFile = "summary_by_experiment.csv"
	SummaryOverallFile      = "summary_overall.csv"
)

var perClaimHeader = []string{
	"paper", "experiment", "dataset", "claim_index", "spec_type", "spec_fingerprint",
	"expected", "observed", "coverage_computable", "correctness_passed",
	"cmp_ok", "cmp_passed", "cmp_reason", "cmp_detail", "source",
}

// WritePerClaimCSV writes one line per row.
func WritePerClaimCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(perClaimHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Paper,
			r.Experiment,
			r.Dataset,
			strconv.Itoa(r.ClaimIndex),
			r.SpecKind,
			r.SpecFingerprint,
			r.Expected,
			r.Observed,
			strconv.FormatBool(r.CoverageComputable),
			strconv.FormatBool(r.CorrectnessPassed),
			strconv.FormatBool(r.CompareOK),
			strconv.FormatBool(r.ComparePassed),
			r.Reason,
			r.Detail,
			r.Source,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes summaries with their counts and rates. The
// experiment column is included when byExperiment is set.
func WriteSummaryCSV(w io.Writer, sums []Summary, byExperiment bool) error {
	cw := csv.NewWriter(w)
	header := []string{"paper"}
	if byExperiment {
		header = append(header, "experiment")
	}
	header = append(header, "dataset", "n_claims",
		"coverage_computable_n", "coverage_computable_rate",
		"correctness_pass_n", "correctness_pass_rate",
		"compare_ok_n", "compare_ok_rate",
	)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range sums {
		record := []string{s.Paper}
		if byExperiment {
			record = append(record, s.Experiment)
		}
		record = append(record, s.Dataset, strconv.Itoa(s.Claims),
			strconv.Itoa(s.Computable), formatRate(s.ComputableRate()),
			strconv.Itoa(s.Passed), formatRate(s.PassRate()),
			strconv.Itoa(s.CompareOK), formatRate(s.CompareOKRate()),
		)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatRate(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// WriteReports writes the per-claim table and both summaries into dir,
// creating it if needed, and returns the paths written.
func WriteReports(dir string, rows []Row) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	writes := []struct {
		name  string
		write func(io.Writer) error
	}{
		{PerClaimFile, func(w io.Writer) error { return WritePerClaimCSV(w, rows) }},
		{SummaryByExperimentFile, func(w io.Writer) error { return WriteSummaryCSV(w, SummarizeByExperiment(rows), true) }},
		{SummaryOverallFile, func(w io.Writer) error { return WriteSummaryCSV(w, SummarizeOverall(rows), false) }},
	}

	paths := make([]string, 0, len(writes))
	for _, wr := range writes {
		path := filepath.Join(dir, wr.name)
		if err := writeFile(path, wr.write); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("write report: %w", cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
