package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/cyberaid/internal/canon"
)

// Record is the stored and displayed form of a Block: explicit field names,
// the timestamp rendered in canon.TimeLayout, the fingerprint as hex.
type Record struct {
	Index        int64       `json:"index"`
	PreviousHash string      `json:"previous_hash"`
	Timestamp    string      `json:"timestamp"`
	Data         canon.Value `json:"data"`
	Hash         string      `json:"hash"`
}

// Record projects b into its stored form.
func (b Block) Record() Record {
	return Record{
		Index:        b.Index,
		PreviousHash: b.PreviousHash,
		Timestamp:    canon.FormatTime(b.CreatedAt),
		Data:         canon.Clone(b.Payload),
		Hash:         b.Hash,
	}
}

// Block parses r back into a Block. The stored hash is taken as-is;
// checking it is Validate's job.
func (r Record) Block() (Block, error) {
	ts, err := canon.ParseTime(r.Timestamp)
	if err != nil {
		return Block{}, fmt.Errorf("block %d: timestamp %q: %w", r.Index, r.Timestamp, err)
	}
	if r.Data == nil {
		return Block{}, fmt.Errorf("block %d: missing data", r.Index)
	}
	return Block{
		Index:        r.Index,
		PreviousHash: r.PreviousHash,
		CreatedAt:    ts,
		Payload:      r.Data,
		Hash:         r.Hash,
	}, nil
}

// UnmarshalJSON decodes data strictly through canon.Unmarshal so integers
// keep their precision and floats or nulls are rejected.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		Index        *int64          `json:"index"`
		PreviousHash string          `json:"previous_hash"`
		Timestamp    string          `json:"timestamp"`
		Data         json.RawMessage `json:"data"`
		Hash         string          `json:"hash"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Index == nil {
		return fmt.Errorf("record: missing index")
	}
	if len(raw.Data) == 0 {
		return fmt.Errorf("record %d: missing data", *raw.Index)
	}

	payload, err := canon.Unmarshal(raw.Data)
	if err != nil {
		return fmt.Errorf("record %d: data: %w", *raw.Index, err)
	}

	*r = Record{
		Index:        *raw.Index,
		PreviousHash: raw.PreviousHash,
		Timestamp:    raw.Timestamp,
		Data:         payload,
		Hash:         raw.Hash,
	}
	return nil
}

// Records projects blocks into stored form.
func Records(blocks []Block) []Record {
	out := make([]Record, len(blocks))
	for i, b := range blocks {
		out[i] = b.Record()
	}
	return out
}

// BlocksFromRecords parses stored records in order.
func BlocksFromRecords(records []Record) ([]Block, error) {
	out := make([]Block, len(records))
	for i, r := range records {
		b, err := r.Block()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
