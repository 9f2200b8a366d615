package store

import (
	"fmt"

	"github.com/roach88/cyberaid/internal/canon"
	"github.com/roach88/cyberaid/internal/ledger"
)

// marshalPayload converts a block payload to canonical JSON TEXT for storage.
// Canonical form means the stored bytes are exactly what the fingerprint
// was computed over.
func marshalPayload(v canon.Value) (string, error) {
	data, err := canon.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT back into a payload.
// Floats and nulls are rejected so a hand-edited row cannot smuggle in a
// value the hasher would encode differently.
func unmarshalPayload(data string) (canon.Value, error) {
	if data == "" {
		return nil, fmt.Errorf("unmarshal payload: empty")
	}
	v, err := canon.Unmarshal([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return v, nil
}

// blockRow is one row of the blocks table.
type blockRow struct {
	idx          int64
	previousHash string
	timestamp    string
	data         string
	hash         string
}

func newBlockRow(b ledger.Block) (blockRow, error) {
	data, err := marshalPayload(b.Payload)
	if err != nil {
		return blockRow{}, fmt.Errorf("block %d: %w", b.Index, err)
	}
	return blockRow{
		idx:          b.Index,
		previousHash: b.PreviousHash,
		timestamp:    canon.FormatTime(b.CreatedAt),
		data:         data,
		hash:         b.Hash,
	}, nil
}

func (r blockRow) block() (ledger.Block, error) {
	payload, err := unmarshalPayload(r.data)
	if err != nil {
		return ledger.Block{}, fmt.Errorf("block %d: %w", r.idx, err)
	}
	return ledger.Record{
		Index:        r.idx,
		PreviousHash: r.previousHash,
		Timestamp:    r.timestamp,
		Data:         payload,
		Hash:         r.hash,
	}.Block()
}
