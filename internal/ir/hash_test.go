package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meanSpec(col string) IRObject {
	return Object(
		O("kind", IRString("mean")),
		O("col", IRString(col)),
		O("slice", IRNull{}),
	)
}

func TestFingerprintDeterminism(t *testing.T) {
	fp1, err := Fingerprint(DomainSpec, meanSpec("age"))
	require.NoError(t, err)

	fp2, err := Fingerprint(DomainSpec, meanSpec("age"))
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2, "Fingerprint must be deterministic")
	assert.Len(t, fp1, 64, "SHA-256 hex is 64 characters")
	assert.Regexp(t, "^[0-9a-f]{64}$", fp1)
}

func TestFingerprintChangesWithContent(t *testing.T) {
	fp1 := MustFingerprint(DomainSpec, meanSpec("age"))
	fp2 := MustFingerprint(DomainSpec, meanSpec("rt"))

	assert.NotEqual(t, fp1, fp2, "Different columns should produce different fingerprints")
}

func TestFingerprintIgnoresConstructionOrder(t *testing.T) {
	a := IRObject{}
	a["kind"] = IRString("mean")
	a["col"] = IRString("age")

	b := IRObject{}
	b["col"] = IRString("age")
	b["kind"] = IRString("mean")

	assert.Equal(t, MustFingerprint(DomainSpec, a), MustFingerprint(DomainSpec, b))
}

func TestFingerprintIntFloatEquivalence(t *testing.T) {
	a := Object(O("kind", IRString("number")), O("data", IRInt(2)))
	b := Object(O("kind", IRString("number")), O("data", IRFloat(2.0)))

	assert.Equal(t, MustFingerprint(DomainValue, a), MustFingerprint(DomainValue, b))
}

func TestDomainSeparation(t *testing.T) {
	obj := meanSpec("age")

	spec := MustFingerprint(DomainSpec, obj)
	claim := MustFingerprint(DomainClaim, obj)
	value := MustFingerprint(DomainValue, obj)

	assert.NotEqual(t, spec, claim, "Domain separation must prevent collisions")
	assert.NotEqual(t, spec, value)
	assert.NotEqual(t, claim, value)
}

func TestHashWithDomainSeparator(t *testing.T) {
	// "ab" + 0x00 + "c" must not collide with "a" + 0x00 + "bc"
	assert.NotEqual(t,
		hashWithDomain("ab", []byte("c")),
		hashWithDomain("a", []byte("bc")),
	)
}

func TestFingerprintRejectsNonFinite(t *testing.T) {
	_, err := Fingerprint(DomainValue, IRObject{"data": IRFloat(nan())})
	require.Error(t, err)
	assert.Contains(t, err.Error(), DomainValue)

	assert.Panics(t, func() {
		MustFingerprint(DomainValue, IRObject{"data": IRFloat(nan())})
	})
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestDomainsCarryEncodingVersion(t *testing.T) {
	for _, d := range []string{DomainSpec, DomainClaim, DomainValue} {
		assert.True(t, strings.HasSuffix(d, "/v"+EncodingVersion), d)
	}
}
