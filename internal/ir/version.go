package ir

// Version constants for the encoding and the tool.
const (
	// EncodingVersion is the canonical encoding version. It matches the
	// "/v1" suffix of the fingerprint domains.
	EncodingVersion = "1"

	// ToolVersion is the claimspec release reported by --version.
	ToolVersion = "0.1.0"
)
