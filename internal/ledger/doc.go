// Package ledger implements the tamper-evident report ledger: a hash-chained
// sequence of immutable blocks, each bound to its predecessor by fingerprint.
//
// Components, leaves first:
//   - Fingerprint: deterministic SHA-256 over a block's canonical fields
//   - Block: index, previous fingerprint, creation time, payload, fingerprint
//   - Chain: the durable, ordered block sequence (genesis, append, reload)
//   - Validate: walks a sequence and recomputes every link and fingerprint
//   - Service: the facade collaborators call to anchor and audit reports
//
// # Invariants
//
//   - block 0 links to "0" and carries GenesisMarker
//   - block i links to the fingerprint of block i-1
//   - every stored fingerprint equals the recomputed one
//   - block i has index i
//   - blocks are never rewritten; corrections are new blocks
//
// The ledger is a single-writer structure. Chain serializes appends with a
// write lock spanning tail read, block construction, durable write and
// in-memory publish. It is not a consensus system: there are no peers and no
// forks, only local tamper-evidence.
//
// All fingerprints use canon.MarshalCanonical and canon.TimeLayout, so a
// chain reloaded from storage re-hashes to exactly the stored values.
package ledger
