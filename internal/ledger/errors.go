package ledger

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned by Chain operations before Load has succeeded.
var ErrNotReady = errors.New("ledger: chain not loaded")

// PersistenceError means a block could not be written durably. The append
// that caused it has been rolled back; memory and storage still agree.
type PersistenceError struct {
	Op  string // "append" or "genesis"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger %s: persist chain: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CorruptStorageError means durable storage exists but cannot be parsed.
// Chain.Load treats it as fatal unless the operator has acknowledged a
// reset, in which case the corrupt data is quarantined first.
type CorruptStorageError struct {
	Source string // file path or table name
	Err    error
}

func (e *CorruptStorageError) Error() string {
	return fmt.Sprintf("ledger storage %s is corrupt: %v", e.Source, e.Err)
}

func (e *CorruptStorageError) Unwrap() error { return e.Err }

// IsCorruptStorage reports whether err wraps a *CorruptStorageError.
func IsCorruptStorage(err error) bool {
	var ce *CorruptStorageError
	return errors.As(err, &ce)
}

// IntegrityViolation is the error form of an Invalid validation result.
// It is surfaced, never repaired.
type IntegrityViolation struct {
	Index  int64
	Reason Reason
	Detail string
}

func (e *IntegrityViolation) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("integrity violation at block %d: %s (%s)", e.Index, e.Reason, e.Detail)
	}
	return fmt.Sprintf("integrity violation at block %d: %s", e.Index, e.Reason)
}
