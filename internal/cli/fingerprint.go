package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/claimspec/internal/claim"
	"github.com/roach88/claimspec/internal/ir"
	"github.com/roach88/claimspec/internal/spec"
)

// FingerprintOptions holds flags for the fingerprint command.
type FingerprintOptions struct {
	*RootOptions
	Experiment string
	Canonical  bool
}

// ClaimFingerprint identifies one claim of a suite.
type ClaimFingerprint struct {
	Experiment  string `json:"experiment"`
	Claim       int    `json:"claim"`
	SpecKind    string `json:"spec_type"`
	Spec        string `json:"spec_fingerprint"`
	Fingerprint string `json:"claim_fingerprint"`
	Canonical   string `json:"canonical,omitempty"`
}

// NewFingerprintCommand creates the fingerprint command.
func NewFingerprintCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FingerprintOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fingerprint <suite>",
		Short: "Print content fingerprints of a suite's specs and claims",
		Long: `Print the SHA-256 content fingerprint of every spec and claim in a suite.

Structurally equal specs share a fingerprint however they were written,
so fingerprints match claims across suites and across ledger runs.

Examples:
  claimspec fingerprint suite.yaml
  claimspec fingerprint suite.yaml --experiment exp1 --canonical`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFingerprint(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Experiment, "experiment", "", "only this experiment")
	cmd.Flags().BoolVar(&opts.Canonical, "canonical", false, "include each claim's canonical JSON")

	return cmd
}

func runFingerprint(opts *FingerprintOptions, suitePath string, cmd *cobra.Command) error {
	_, formatter, err := setup(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	s, err := LoadSuite(suitePath)
	if err != nil {
		var le *LoadError
		errors.As(err, &le)
		return fail(formatter, le.Code, "failed to load suite", err)
	}

	entries := []ClaimFingerprint{}
	found := opts.Experiment == ""
	for _, e := range s.Experiments {
		if opts.Experiment != "" && e.ID != opts.Experiment {
			continue
		}
		found = true
		for i, c := range e.Claims {
			entry, err := fingerprintClaim(e.ID, i, c, opts.Canonical)
			if err != nil {
				return fail(formatter, ErrCodeInvalidClaim, fmt.Sprintf("%s claim %d", e.ID, i), err)
			}
			entries = append(entries, entry)
		}
	}
	if !found {
		return fail(formatter, ErrCodeNotFound, fmt.Sprintf("experiment %q not in suite", opts.Experiment), nil)
	}

	if formatter.JSON() {
		return formatter.Success(entries)
	}
	w := formatter.Writer
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", entry.Experiment, entry.Claim, entry.SpecKind, entry.Spec, entry.Fingerprint)
		if entry.Canonical != "" {
			fmt.Fprintf(w, "  %s\n", entry.Canonical)
		}
	}
	return nil
}

func fingerprintClaim(experiment string, index int, c *claim.Claim, canonical bool) (ClaimFingerprint, error) {
	specFP, err := spec.Fingerprint(c.Spec())
	if err != nil {
		return ClaimFingerprint{}, err
	}
	claimFP, err := claim.Fingerprint(c)
	if err != nil {
		return ClaimFingerprint{}, err
	}
	entry := ClaimFingerprint{
		Experiment:  experiment,
		Claim:       index,
		SpecKind:    c.Spec().Kind(),
		Spec:        specFP,
		Fingerprint: claimFP,
	}
	if canonical {
		data, err := ir.MarshalCanonical(c.Encode())
		if err != nil {
			return ClaimFingerprint{}, err
		}
		entry.Canonical = string(data)
	}
	return entry, nil
}
