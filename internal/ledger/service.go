package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/cyberaid/internal/canon"
	"github.com/roach88/cyberaid/internal/report"
)

// ChainStore is the part of Chain the Service depends on.
type ChainStore interface {
	Append(ctx context.Context, payload canon.Value) (Block, error)
	All() ([]Block, error)
}

// Service is the facade collaborators use to anchor and audit reports.
// It knows nothing about how a report was created or where its record lives.
type Service struct {
	chain     ChainStore
	validator report.Validator
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithValidator adds a collaborator-supplied report validator. Required
// field presence is always checked first.
func WithValidator(v report.Validator) ServiceOption {
	return func(s *Service) { s.validator = report.All(report.RequiredFields, v) }
}

// WithServiceLogger sets the logger. Defaults to slog.Default().
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService returns a Service over a loaded chain.
func NewService(chain ChainStore, opts ...ServiceOption) *Service {
	s := &Service{
		chain:     chain,
		validator: report.RequiredFields,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordReport validates snap and appends it as a new block.
//
// Errors:
//   - *report.ValidationError when required fields are missing or invalid
//   - *PersistenceError when the block could not be written durably
//   - ErrNotReady when the chain was never loaded
func (s *Service) RecordReport(ctx context.Context, snap report.Snapshot) (BlockRef, error) {
	if err := s.validator.Validate(snap.Fields()); err != nil {
		s.logger.Debug("report rejected",
			"report_id", snap.ID(),
			"error", err,
		)
		return BlockRef{}, fmt.Errorf("record report: %w", err)
	}

	b, err := s.chain.Append(ctx, snap.Payload())
	if err != nil {
		return BlockRef{}, fmt.Errorf("record report %s: %w", snap.ID(), err)
	}

	s.logger.Info("report anchored",
		"report_id", snap.ID(),
		"index", b.Index,
		"hash", b.Hash,
	)
	return b.Ref(), nil
}

// ListChain returns the full chain in display form: timestamps as
// canon.TimeLayout strings, fingerprints as hex.
func (s *Service) ListChain() ([]Record, error) {
	blocks, err := s.chain.All()
	if err != nil {
		return nil, fmt.Errorf("list chain: %w", err)
	}
	return Records(blocks), nil
}

// VerifyIntegrity validates the currently loaded chain. The error return is
// reserved for an unloaded chain; tampering is reported through Result.
func (s *Service) VerifyIntegrity() (Result, error) {
	blocks, err := s.chain.All()
	if err != nil {
		return Result{}, fmt.Errorf("verify integrity: %w", err)
	}

	res := Validate(blocks)
	if !res.Valid {
		s.logger.Error("ledger integrity violation",
			"index", res.Index,
			"reason", res.Reason,
			"detail", res.Detail,
		)
	}
	return res, nil
}
