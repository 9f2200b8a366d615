package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/cyberaid/internal/canon"
	"github.com/roach88/cyberaid/internal/ledger"
)

var (
	_ ledger.Backend     = (*Store)(nil)
	_ ledger.Quarantiner = (*Store)(nil)
)

// String identifies the store in logs.
func (s *Store) String() string {
	return "sqlite:" + s.path
}

// Load returns every block ordered by index, or (nil, nil) when the blocks
// table is empty. A row whose payload or timestamp cannot be parsed makes
// the whole table corrupt.
func (s *Store) Load(ctx context.Context) ([]ledger.Block, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, previous_hash, timestamp, data, hash
		FROM blocks
		ORDER BY idx ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	var blocks []ledger.Block
	for rows.Next() {
		var r blockRow
		if err := rows.Scan(&r.idx, &r.previousHash, &r.timestamp, &r.data, &r.hash); err != nil {
			return nil, &ledger.CorruptStorageError{Source: s.String() + "#blocks", Err: err}
		}
		b, err := r.block()
		if err != nil {
			return nil, &ledger.CorruptStorageError{Source: s.String() + "#blocks", Err: err}
		}
		blocks = append(blocks, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}

	return blocks, nil
}

// Save inserts the blocks the table does not have yet, in one transaction.
// Rows already stored are never rewritten; the stored tail must match the
// block at the same index or Save refuses to extend a diverged history.
func (s *Store) Save(ctx context.Context, blocks []ledger.Block) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save blocks: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var (
		maxIdx   sql.NullInt64
		tailHash sql.NullString
	)
	err = tx.QueryRowContext(ctx, `
		SELECT idx, hash FROM blocks ORDER BY idx DESC LIMIT 1
	`).Scan(&maxIdx, &tailHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("save blocks: read tail: %w", err)
	}

	next := int64(0)
	if maxIdx.Valid {
		if maxIdx.Int64 >= int64(len(blocks)) {
			return fmt.Errorf("save blocks: storage holds block %d but only %d given", maxIdx.Int64, len(blocks))
		}
		if blocks[maxIdx.Int64].Hash != tailHash.String {
			return fmt.Errorf("save blocks: stored block %d diverges from chain", maxIdx.Int64)
		}
		next = maxIdx.Int64 + 1
	}

	for _, b := range blocks[next:] {
		r, err := newBlockRow(b)
		if err != nil {
			return fmt.Errorf("save blocks: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO blocks
			(idx, previous_hash, timestamp, data, hash)
			VALUES (?, ?, ?, ?, ?)
		`,
			r.idx,
			r.previousHash,
			r.timestamp,
			r.data,
			r.hash,
		)
		if err != nil {
			return fmt.Errorf("save blocks: insert %d: %w", b.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save blocks: commit: %w", err)
	}
	return nil
}

// Quarantine moves every block row into quarantined_blocks so a fresh
// chain can start. The rows are kept verbatim for investigation.
func (s *Store) Quarantine(ctx context.Context) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("quarantine blocks: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stamp := canon.FormatTime(s.now())
	_, err = tx.ExecContext(ctx, `
		INSERT INTO quarantined_blocks
		(idx, previous_hash, timestamp, data, hash, quarantined_at)
		SELECT idx, previous_hash, timestamp, data, hash, ?
		FROM blocks
		ORDER BY idx ASC
	`, stamp)
	if err != nil {
		return "", fmt.Errorf("quarantine blocks: copy: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks`); err != nil {
		return "", fmt.Errorf("quarantine blocks: clear: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("quarantine blocks: commit: %w", err)
	}
	return s.String() + "#quarantined_blocks@" + stamp, nil
}

// CountQuarantined returns the number of quarantined block rows.
func (s *Store) CountQuarantined(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quarantined_blocks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count quarantined blocks: %w", err)
	}
	return n, nil
}
