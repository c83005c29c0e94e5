package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/roach88/claimspec/internal/suite"
)

// Error codes for CLI responses.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeConfig        = "E002" // Invalid configuration
	ErrCodeUnknownFormat = "E003" // Suite file extension not recognized
	ErrCodeDecodeFailed  = "E004" // Suite document could not be decoded
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeCUEFailed     = "E006" // CUE evaluation failed
	ErrCodeWriteFailed   = "E007" // Report write error
	ErrCodeStore         = "E008" // Ledger open or query error
	ErrCodeDataset       = "E009" // Dataset argument or table error

	// Claim-level codes
	ErrCodeInvalidClaim = "E101" // Claim could not be decoded
	ErrCodeClaimsFailed = "E102" // One or more claim evaluations failed
	ErrCodeTestFailed   = "E103" // One or more audit scenarios failed

	// Warnings
	WarnUndocumentedColumn = "W101" // Column missing from the suite's convention
)

// LoadError describes why a suite could not be loaded.
type LoadError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Experiment string `json:"experiment,omitempty"`
	Claim      *int   `json:"claim,omitempty"`
	Line       int    `json:"line,omitempty"`
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// commandError reports whether the failure lies outside the suite's
// content, such as a missing file.
func (e *LoadError) commandError() bool {
	return e.Code == ErrCodeNotFound || e.Code == ErrCodeUnknownFormat
}

// LoadSuite loads the suite at path. Failures are returned as *LoadError.
func LoadSuite(path string) (*suite.Suite, error) {
	s, err := suite.Load(path)
	if err != nil {
		return nil, classifyLoadError(err)
	}
	return s, nil
}

func classifyLoadError(err error) *LoadError {
	le := &LoadError{Code: ErrCodeDecodeFailed, Message: err.Error()}

	var claimErr *suite.ClaimError
	var cueErr *suite.CUEError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		le.Code = ErrCodeNotFound
	case errors.Is(err, suite.ErrUnknownFormat):
		le.Code = ErrCodeUnknownFormat
	case errors.As(err, &claimErr):
		le.Code = ErrCodeInvalidClaim
		le.Experiment = claimErr.Experiment
		idx := claimErr.Index
		le.Claim = &idx
	case errors.As(err, &cueErr):
		le.Code = ErrCodeCUEFailed
		if cueErr.Pos.IsValid() {
			le.Line = cueErr.Pos.Line()
		}
	}
	return le
}
