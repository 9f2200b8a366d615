package ledger

import (
	"fmt"

	"github.com/roach88/cyberaid/internal/canon"
)

// Reason names the invariant a block violates.
type Reason string

const (
	// ReasonBadGenesis: block 0 does not link to "0" or lacks GenesisMarker.
	ReasonBadGenesis Reason = "BadGenesis"

	// ReasonBrokenLink: previous_hash differs from the predecessor's fingerprint.
	ReasonBrokenLink Reason = "BrokenLink"

	// ReasonHashMismatch: the stored fingerprint differs from the recomputed one.
	ReasonHashMismatch Reason = "HashMismatch"

	// ReasonIndexGap: block i does not carry index i.
	ReasonIndexGap Reason = "IndexGap"

	// ReasonTimeRegression: created_at is earlier than the predecessor's.
	ReasonTimeRegression Reason = "TimeRegression"
)

// Result is the outcome of Validate: either Valid, or Invalid at Index for
// Reason.
type Result struct {
	Valid  bool   `json:"valid"`
	Length int    `json:"length"`
	Index  int64  `json:"index"`
	Reason Reason `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Err returns nil for a valid result, otherwise an *IntegrityViolation.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &IntegrityViolation{Index: r.Index, Reason: r.Reason, Detail: r.Detail}
}

func (r Result) String() string {
	if r.Valid {
		return fmt.Sprintf("valid (%d blocks)", r.Length)
	}
	return r.Err().Error()
}

// Validate walks blocks in order and stops at the first violation.
// It never mutates blocks and may be called any number of times.
//
// Per-block check order: index, genesis link, predecessor link,
// fingerprint, genesis marker, timestamp order. A block whose data was
// edited therefore reports HashMismatch even when it is block 0.
func Validate(blocks []Block) Result {
	if len(blocks) == 0 {
		return Result{Valid: false, Index: 0, Reason: ReasonBadGenesis, Detail: "chain is empty"}
	}

	invalid := func(i int, reason Reason, format string, args ...any) Result {
		return Result{
			Length: len(blocks),
			Index:  int64(i),
			Reason: reason,
			Detail: fmt.Sprintf(format, args...),
		}
	}

	for i, b := range blocks {
		if b.Index != int64(i) {
			return invalid(i, ReasonIndexGap, "block at position %d has index %d", i, b.Index)
		}

		if i == 0 {
			if b.PreviousHash != GenesisPrevious {
				return invalid(i, ReasonBadGenesis, "previous_hash is %q, want %q", b.PreviousHash, GenesisPrevious)
			}
		} else if prev := blocks[i-1]; b.PreviousHash != prev.Hash {
			return invalid(i, ReasonBrokenLink, "previous_hash %s does not match block %d hash %s", short(b.PreviousHash), i-1, short(prev.Hash))
		}

		computed, err := b.Recompute()
		if err != nil {
			return invalid(i, ReasonHashMismatch, "cannot recompute: %v", err)
		}
		if computed != b.Hash {
			return invalid(i, ReasonHashMismatch, "stored %s, computed %s", short(b.Hash), short(computed))
		}

		if i == 0 {
			if marker, ok := b.Payload.(canon.String); !ok || marker != GenesisMarker {
				return invalid(i, ReasonBadGenesis, "payload is not the genesis marker")
			}
		} else if b.CreatedAt.Before(blocks[i-1].CreatedAt) {
			return invalid(i, ReasonTimeRegression, "created_at precedes block %d", i-1)
		}
	}

	return Result{Valid: true, Length: len(blocks)}
}

// short abbreviates a fingerprint for diagnostics.
func short(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
