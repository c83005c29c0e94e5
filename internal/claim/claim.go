// Package claim pairs a spec with the value a paper (or any other source)
// asserts for it, and compares claims against each other.
package claim

import (
	"errors"
	"fmt"

	"github.com/roach88/claimspec/internal/ir"
	"github.com/roach88/claimspec/internal/spec"
	"github.com/roach88/claimspec/internal/value"
)

// ReasonSpecMismatch marks a comparison between claims about different
// specs.
const ReasonSpecMismatch = value.ReasonSpecMismatch

var (
	// ErrNilSpec is returned when building a claim without a spec.
	ErrNilSpec = errors.New("claim: spec is required")

	// ErrNilValue is returned when building a claim without a value.
	ErrNilValue = errors.New("claim: value is required")
)

// Claim is an immutable (spec, value) pair with optional provenance. The
// value is a single value.Value or a value.Grouped.
type Claim struct {
	spec   spec.Spec
	value  value.Result
	source *Source
}

// Option configures a Claim.
type Option func(*Claim)

// WithSource attaches provenance.
func WithSource(src Source) Option {
	return func(c *Claim) { c.source = &src }
}

// New builds a claim. The spec and value are required and the source, if
// any, must pass validation.
func New(s spec.Spec, v value.Result, opts ...Option) (*Claim, error) {
	if s == nil {
		return nil, ErrNilSpec
	}
	if v == nil {
		return nil, ErrNilValue
	}
	c := &Claim{spec: s, value: v}
	for _, opt := range opts {
		opt(c)
	}
	if c.source != nil {
		if err := c.source.Validate(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error.
func MustNew(s spec.Spec, v value.Result, opts ...Option) *Claim {
	c, err := New(s, v, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Claim) Spec() spec.Spec     { return c.spec }
func (c *Claim) Value() value.Result { return c.value }

// Source returns a copy of the provenance, or nil.
func (c *Claim) Source() *Source {
	if c.source == nil {
		return nil
	}
	src := *c.source
	return &src
}

// Compare compares c's value against other's using the standard value
// registry. Claims about different specs are not comparable.
func (c *Claim) Compare(other *Claim, tol value.Tolerance) value.Comparison {
	return c.CompareWith(value.Standard(), other, tol)
}

// CompareWith is Compare with an explicit value registry.
func (c *Claim) CompareWith(r *value.Registry, other *Claim, tol value.Tolerance) value.Comparison {
	if other == nil || !spec.Equal(c.spec, other.spec) {
		return value.Comparison{OK: false, Reason: ReasonSpecMismatch}
	}
	return r.Compare(c.value, other.value, tol)
}

// Encode returns the IR form: spec, value and, when present, claim_source.
func (c *Claim) Encode() ir.IRObject {
	obj := ir.Object(
		ir.O("spec", c.spec.Encode()),
		ir.O("value", value.EncodeResult(c.value)),
	)
	if c.source != nil {
		obj["claim_source"] = c.source.Encode()
	}
	return obj
}

// Fingerprint returns the content address of c over the claim domain.
func Fingerprint(c *Claim) (string, error) {
	return ir.Fingerprint(ir.DomainClaim, c.Encode())
}

// Equal reports whether a and b have the same canonical form.
func Equal(a, b *Claim) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	fa, err := Fingerprint(a)
	if err != nil {
		return false
	}
	fb, err := Fingerprint(b)
	if err != nil {
		return false
	}
	return fa == fb
}

// Codec decodes claims using explicit spec and value registries.
type Codec struct {
	Specs  *spec.Registry
	Values *value.Registry
}

// StandardCodec decodes with the built-in registries.
func StandardCodec() Codec {
	return Codec{Specs: spec.Standard(), Values: value.Standard()}
}

// Decode reconstructs a claim. Unknown spec, filter, aggregate or value
// kinds are errors.
func (cd Codec) Decode(obj ir.IRObject) (*Claim, error) {
	specObj, ok, err := obj.Object("spec")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ir.DecodeError{Kind: "claim", Field: "spec", Message: "required"}
	}
	s, err := cd.Specs.Decode(specObj)
	if err != nil {
		return nil, fmt.Errorf("spec: %w", err)
	}

	valObj, ok, err := obj.Object("value")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ir.DecodeError{Kind: "claim", Field: "value", Message: "required"}
	}
	v, err := cd.Values.DecodeResult(valObj)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}

	var opts []Option
	srcObj, ok, err := obj.Object("claim_source")
	if err != nil {
		return nil, err
	}
	if ok {
		src, err := decodeSource(srcObj)
		if err != nil {
			return nil, fmt.Errorf("claim_source: %w", err)
		}
		if src != nil {
			opts = append(opts, WithSource(*src))
		}
	}
	return New(s, v, opts...)
}

// Unmarshal decodes a claim from JSON with the standard codec.
func Unmarshal(data []byte) (*Claim, error) {
	obj, err := ir.UnmarshalObject(data)
	if err != nil {
		return nil, err
	}
	return StandardCodec().Decode(obj)
}
