// Package ir provides the canonical intermediate representation used to encode
// claimspec entities (values, row filters, aggregates, slices, specs, claims).
//
// Every entity encodes itself to an IRObject with a "kind" discriminator. The
// canonical JSON form of that object is the basis for content-addressed
// identity: two entities are the same entity iff their canonical bytes are
// equal, and therefore iff their fingerprints are equal.
//
// ir imports nothing internal. All other internal packages import ir.
//
// Key design constraints:
//   - Object keys sorted by UTF-16 code units (RFC 8785)
//   - Strings NFC normalized at the serialization boundary
//   - Floats formatted as shortest round-trip ECMAScript numbers; NaN and
//     infinities cannot be encoded
//   - All JSON tags use snake_case
package ir
