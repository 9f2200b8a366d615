package ledger

import (
	"fmt"
	"time"

	"github.com/roach88/cyberaid/internal/canon"
)

// DomainBlock separates block fingerprints from any other SHA-256 use.
// Version suffix enables future algorithm migration.
const DomainBlock = "cyberaid/block/v1"

// GenesisPrevious is the previous fingerprint carried by block 0.
const GenesisPrevious = "0"

// GenesisMarker is the payload of block 0.
const GenesisMarker = canon.String("Genesis Block")

// Block is one immutable, hash-linked ledger entry.
//
// Blocks are values. Once built by NewGenesis or NewBlock no field is ever
// changed; Chain hands out deep copies so callers cannot alter its history.
type Block struct {
	Index        int64
	PreviousHash string
	CreatedAt    time.Time
	Payload      canon.Value
	Hash         string
}

// BlockRef is the proof-of-anchoring handed back to collaborators.
type BlockRef struct {
	Index int64  `json:"index"`
	Hash  string `json:"hash"`
}

// Ref returns the block's index and fingerprint.
func (b Block) Ref() BlockRef {
	return BlockRef{Index: b.Index, Hash: b.Hash}
}

// Preimage returns the canonical bytes a fingerprint is computed over:
// RFC 8785 JSON of {"data","index","previous_hash","timestamp"}.
func Preimage(index int64, previousHash string, createdAt time.Time, payload canon.Value) ([]byte, error) {
	if payload == nil {
		return nil, fmt.Errorf("block payload is nil")
	}
	obj := canon.Object{
		"index":         canon.Int(index),
		"previous_hash": canon.String(previousHash),
		"timestamp":     canon.String(canon.FormatTime(createdAt)),
		"data":          payload,
	}
	data, err := canon.MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("canonical block: %w", err)
	}
	return data, nil
}

// Fingerprint computes a block fingerprint. It is pure: identical inputs
// always produce the identical 64-character hex digest.
func Fingerprint(index int64, previousHash string, createdAt time.Time, payload canon.Value) (string, error) {
	preimage, err := Preimage(index, previousHash, createdAt, payload)
	if err != nil {
		return "", fmt.Errorf("fingerprint block %d: %w", index, err)
	}
	return canon.Digest(DomainBlock, preimage), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(index int64, previousHash string, createdAt time.Time, payload canon.Value) string {
	h, err := Fingerprint(index, previousHash, createdAt, payload)
	if err != nil {
		panic(err)
	}
	return h
}

// Recompute returns the fingerprint b should carry given its other fields.
func (b Block) Recompute() (string, error) {
	return Fingerprint(b.Index, b.PreviousHash, b.CreatedAt, b.Payload)
}

// NewGenesis builds block 0.
func NewGenesis(createdAt time.Time) Block {
	createdAt = canon.Normalize(createdAt)
	return Block{
		Index:        0,
		PreviousHash: GenesisPrevious,
		CreatedAt:    createdAt,
		Payload:      GenesisMarker,
		Hash:         MustFingerprint(0, GenesisPrevious, createdAt, GenesisMarker),
	}
}

// NewBlock builds the successor of prev. createdAt is clamped so that it
// never precedes prev.CreatedAt; coarse or skewed clocks may yield equal
// timestamps but never decreasing ones.
func NewBlock(prev Block, createdAt time.Time, payload canon.Value) (Block, error) {
	createdAt = canon.Normalize(createdAt)
	if createdAt.Before(prev.CreatedAt) {
		createdAt = prev.CreatedAt
	}

	index := prev.Index + 1
	hash, err := Fingerprint(index, prev.Hash, createdAt, payload)
	if err != nil {
		return Block{}, err
	}

	return Block{
		Index:        index,
		PreviousHash: prev.Hash,
		CreatedAt:    createdAt,
		Payload:      canon.Clone(payload),
		Hash:         hash,
	}, nil
}

// clone returns a copy of b whose payload shares no storage with b.
func (b Block) clone() Block {
	b.Payload = canon.Clone(b.Payload)
	return b
}
