// Package canon provides the payload value model and the canonical byte
// representation that ledger fingerprints are computed over.
//
// canon imports nothing internal. Every other package that hashes or stores
// block payloads goes through it, so a payload serialized at append time and
// re-serialized after a reload yields identical bytes.
//
// Key constraints:
//   - NO floats and NO null anywhere in a payload
//   - Canonical JSON follows RFC 8785 (UTF-16 key order)
//   - Strings are valid UTF-8 in NFC form; MarshalCanonical rejects the rest
//   - Timestamps use TimeLayout, never ad-hoc formatting
package canon
