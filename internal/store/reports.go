package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/cyberaid/internal/canon"
	"github.com/roach88/cyberaid/internal/ledger"
	"github.com/roach88/cyberaid/internal/report"
)

// ErrNotFound is returned when a report id has no record.
var ErrNotFound = errors.New("store: not found")

// ReportRecord is a stored incident report plus its anchoring state.
type ReportRecord struct {
	Fields    report.Fields    `json:"fields"`
	CreatedAt string           `json:"created_at"`
	Anchor    *ledger.BlockRef `json:"anchor,omitempty"`
}

// Anchored reports whether the report has been anchored in the ledger.
func (r ReportRecord) Anchored() bool { return r.Anchor != nil }

// SaveReport inserts a report record keyed by f.ReportID and reports whether
// a new row was written.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency - saving the same id
// twice keeps the first record and returns inserted=false.
func (s *Store) SaveReport(ctx context.Context, f report.Fields) (inserted bool, err error) {
	if f.ReportID == "" {
		return false, fmt.Errorf("save report: empty id")
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO reports
		(id, name, mobile, place, incident_date, reporting_date, description, crime_type, extracted_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		f.ReportID,
		f.Name,
		f.Mobile,
		f.Place,
		f.IncidentDate,
		f.ReportingDate,
		f.Description,
		f.CrimeType,
		f.ExtractedText,
		canon.FormatTime(s.now()),
	)
	if err != nil {
		return false, fmt.Errorf("save report %s: %w", f.ReportID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save report %s: rows affected: %w", f.ReportID, err)
	}
	return rowsAffected > 0, nil
}

// MarkAnchored records the block a report was anchored in. Re-anchoring a
// report overwrites the reference with the newer block.
func (s *Store) MarkAnchored(ctx context.Context, id string, ref ledger.BlockRef) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reports SET block_index = ?, block_hash = ?
		WHERE id = ?
	`, ref.Index, ref.Hash, id)
	if err != nil {
		return fmt.Errorf("mark report %s anchored: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark report %s anchored: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("mark report %s anchored: %w", id, ErrNotFound)
	}
	return nil
}

// GetReport retrieves a single report by id.
// Returns ErrNotFound if no record exists.
func (s *Store) GetReport(ctx context.Context, id string) (ReportRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, mobile, place, incident_date, reporting_date, description, crime_type,
		       extracted_text, created_at, block_index, block_hash
		FROM reports
		WHERE id = ?
	`, id)

	rec, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ReportRecord{}, fmt.Errorf("get report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ReportRecord{}, fmt.Errorf("get report %s: %w", id, err)
	}
	return rec, nil
}

// ListReports returns every report, oldest first.
// Ties on created_at are broken by id so results are deterministic.
//
// Returns an empty slice (not nil) if no reports exist.
func (s *Store) ListReports(ctx context.Context) ([]ReportRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, mobile, place, incident_date, reporting_date, description, crime_type,
		       extracted_text, created_at, block_index, block_hash
		FROM reports
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	records := []ReportRecord{}
	for rows.Next() {
		rec, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return records, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (ReportRecord, error) {
	var (
		rec        ReportRecord
		blockIndex sql.NullInt64
		blockHash  sql.NullString
	)
	f := &rec.Fields
	err := row.Scan(
		&f.ReportID,
		&f.Name,
		&f.Mobile,
		&f.Place,
		&f.IncidentDate,
		&f.ReportingDate,
		&f.Description,
		&f.CrimeType,
		&f.ExtractedText,
		&rec.CreatedAt,
		&blockIndex,
		&blockHash,
	)
	if err != nil {
		return ReportRecord{}, err
	}
	if blockIndex.Valid {
		rec.Anchor = &ledger.BlockRef{Index: blockIndex.Int64, Hash: blockHash.String}
	}
	return rec, nil
}
