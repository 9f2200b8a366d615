// Package store provides durable storage for the cyberaid ledger and its
// incident report records.
//
// Two ledger backends implement ledger.Backend and ledger.Quarantiner:
//
//   - FileBackend: the whole chain as one indented JSON array, rewritten
//     atomically (temp file, fsync, rename) on every append
//   - Store: SQLite, one row per block in the blocks table, appended inside
//     a transaction; rows are never updated
//
// Store also holds the reports table, the relational record of every
// submitted report and the block it was anchored in.
//
// # Block Layout
//
// Both backends persist exactly the fields the fingerprint covers: index,
// previous_hash, timestamp (canon.TimeLayout), data and hash. In SQLite the
// data column holds RFC 8785 canonical JSON, so a row can be re-hashed
// without re-encoding.
//
// # Database Configuration
//
// Every connection runs with journal_mode=WAL and synchronous=FULL, so Save
// returns only once the block's transaction is on disk, and waits up to five
// seconds on a locked database. Schema upgrades are keyed on user_version.
//
// # Corrupt Storage
//
// Load returns *ledger.CorruptStorageError when stored data exists but
// cannot be parsed. Quarantine moves such data aside (file rename, or rows
// copied to quarantined_blocks) and is only called after the operator has
// acknowledged a reset.
package store
