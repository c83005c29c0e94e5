package spec

import (
	"github.com/roach88/claimspec/internal/ir"
)

// Fingerprint returns the content address of s: SHA-256 over the spec
// domain and its canonical encoding, hex encoded.
func Fingerprint(s Spec) (string, error) {
	return ir.Fingerprint(ir.DomainSpec, s.Encode())
}

// Equal reports whether a and b are the same spec. Specs that cannot be
// fingerprinted are never equal.
func Equal(a, b Spec) bool {
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
