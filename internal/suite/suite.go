// Package suite loads claim suites: a paper's claims grouped by
// experiment, authored as YAML, JSON or CUE.
//
// A suite document looks like:
//
//	paper: badham2017_deficits
//	convention: conventions/psyche.yaml
//	experiments:
//	  - id: exp1
//	    claims:
//	      - spec: {kind: count_unique, col: subject_id}
//	        value: {kind: number, data: 96}
//	        source: {source_type: paper, locator: "p. 3"}
//
// Every claim is decoded through a claim.Codec, so unknown spec, filter,
// aggregate or value kinds fail the load.
package suite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/claimspec/internal/claim"
	"github.com/roach88/claimspec/internal/convention"
	"github.com/roach88/claimspec/internal/ir"
	"github.com/roach88/claimspec/internal/spec"
)

// Format is a suite document syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCUE  Format = "cue"
)

// ErrUnknownFormat is returned for file extensions with no known syntax.
var ErrUnknownFormat = errors.New("unknown suite format")

// Suite is a decoded claim suite.
type Suite struct {
	Paper       string
	Experiments []Experiment

	// ConventionPath is the convention file named by the document, resolved
	// against the suite's directory by Load.
	ConventionPath string
	// Convention is loaded by Load when ConventionPath is set.
	Convention *convention.Convention
}

// Experiment holds the claims made about one experiment's dataset.
type Experiment struct {
	ID     string
	Claims []*claim.Claim
}

// NumClaims returns the total number of claims across experiments.
func (s *Suite) NumClaims() int {
	n := 0
	for _, e := range s.Experiments {
		n += len(e.Claims)
	}
	return n
}

// ClaimError locates a claim that failed to decode.
type ClaimError struct {
	Experiment string
	Index      int
	Err        error
}

func (e *ClaimError) Error() string {
	return fmt.Sprintf("experiment %s: claim %d: %v", e.Experiment, e.Index, e.Err)
}

func (e *ClaimError) Unwrap() error { return e.Err }

// document is the raw shape shared by all formats.
type document struct {
	Paper       string          `yaml:"paper" json:"paper"`
	Convention  string          `yaml:"convention,omitempty" json:"convention,omitempty"`
	Experiments []rawExperiment `yaml:"experiments" json:"experiments"`
}

type rawExperiment struct {
	ID     string     `yaml:"id" json:"id"`
	Claims []rawClaim `yaml:"claims" json:"claims"`
}

type rawClaim struct {
	Spec   any           `yaml:"spec" json:"spec"`
	Value  any           `yaml:"value" json:"value"`
	Source *claim.Source `yaml:"source,omitempty" json:"source,omitempty"`
}

type loadConfig struct {
	codec claim.Codec
}

// Option configures Parse and Load.
type Option func(*loadConfig)

// WithCodec decodes claims with custom registries.
func WithCodec(cd claim.Codec) Option {
	return func(c *loadConfig) { c.codec = cd }
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Load reads a suite file, choosing the syntax by extension. A convention
// named by the suite is loaded relative to the suite's directory.
func Load(path string, opts ...Option) (*Suite, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}
	s, err := parse(data, format, path, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.ConventionPath != "" {
		if !filepath.IsAbs(s.ConventionPath) {
			s.ConventionPath = filepath.Join(filepath.Dir(path), s.ConventionPath)
		}
		s.Convention, err = convention.Load(s.ConventionPath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return s, nil
}

// Parse decodes a suite document. The convention path, if any, is kept
// as written and not loaded.
func Parse(data []byte, format Format, opts ...Option) (*Suite, error) {
	return parse(data, format, "suite."+string(format), opts...)
}

func parse(data []byte, format Format, filename string, opts ...Option) (*Suite, error) {
	cfg := loadConfig{codec: claim.StandardCodec()}
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		doc *document
		err error
	)
	switch format {
	case FormatYAML:
		doc, err = decodeYAML(data)
	case FormatJSON:
		doc, err = decodeJSON(data)
	case FormatCUE:
		doc, err = decodeCUE(data, filename)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return build(doc, cfg.codec)
}

func build(doc *document, codec claim.Codec) (*Suite, error) {
	if doc.Paper == "" {
		return nil, errors.New("suite: paper is required")
	}
	s := &Suite{
		Paper:          doc.Paper,
		ConventionPath: doc.Convention,
		Experiments:    make([]Experiment, 0, len(doc.Experiments)),
	}
	seen := make(map[string]bool, len(doc.Experiments))
	for i, re := range doc.Experiments {
		if re.ID == "" {
			return nil, fmt.Errorf("suite: experiments[%d]: id is required", i)
		}
		if seen[re.ID] {
			return nil, fmt.Errorf("suite: duplicate experiment %q", re.ID)
		}
		seen[re.ID] = true

		exp := Experiment{ID: re.ID, Claims: make([]*claim.Claim, 0, len(re.Claims))}
		for j, rc := range re.Claims {
			c, err := decodeClaim(codec, rc)
			if err != nil {
				return nil, &ClaimError{Experiment: re.ID, Index: j, Err: err}
			}
			exp.Claims = append(exp.Claims, c)
		}
		s.Experiments = append(s.Experiments, exp)
	}
	return s, nil
}

// decodeClaim assembles the canonical claim object and hands it to the
// codec.
func decodeClaim(codec claim.Codec, rc rawClaim) (*claim.Claim, error) {
	obj := ir.IRObject{}
	for key, raw := range map[string]any{"spec": rc.Spec, "value": rc.Value} {
		if raw == nil {
			continue
		}
		v, err := ir.FromGo(normalize(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		obj[key] = v
	}
	if rc.Source != nil {
		obj["claim_source"] = rc.Source.Encode()
	}
	return codec.Decode(obj)
}

// normalize rewrites YAML mappings with non-string keys, such as grouped
// values keyed by numeric participant ids, into string-keyed maps.
func normalize(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[fmt.Sprint(k)] = normalize(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalize(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalize(elem)
		}
		return out
	default:
		return v
	}
}

// Column documents a claim column that its suite's convention does not.
type Column struct {
	Experiment string
	Index      int
	Column     string
}

// Undocumented lists, per claim, the columns the claim's spec reads that
// conv does not document. A nil conv documents nothing and yields nil.
func (s *Suite) Undocumented(conv *convention.Convention) []Column {
	if conv == nil {
		return nil
	}
	var out []Column
	for _, e := range s.Experiments {
		for i, c := range e.Claims {
			for _, col := range conv.Undocumented(spec.Columns(c.Spec())) {
				out = append(out, Column{Experiment: e.ID, Index: i, Column: col})
			}
		}
	}
	return out
}
