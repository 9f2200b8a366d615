// Package intake is the report-submission workflow. It saves a report to
// the record store first and anchors it in the ledger second, so a ledger
// failure never loses the report itself.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/cyberaid/internal/ledger"
	"github.com/roach88/cyberaid/internal/report"
	"github.com/roach88/cyberaid/internal/store"
)

// Outcome messages shown to the submitter.
const (
	MsgSubmitted    = "report submitted and anchored"
	MsgAnchorFailed = "report stored but ledger anchoring failed"
	MsgReanchored   = "report anchored"
)

var (
	// ErrReportNotFound is returned by Anchor when the report id has no record.
	ErrReportNotFound = errors.New("report not found")

	// ErrDuplicateReport is returned by Submit when the report id is taken.
	// Use Anchor to anchor an existing report again.
	ErrDuplicateReport = errors.New("report id already exists")
)

// RecordStore persists report records. *store.Store implements it.
type RecordStore interface {
	SaveReport(ctx context.Context, f report.Fields) (inserted bool, err error)
	GetReport(ctx context.Context, id string) (store.ReportRecord, error)
	MarkAnchored(ctx context.Context, id string, ref ledger.BlockRef) error
}

// Anchorer appends report snapshots to the ledger. *ledger.Service
// implements it.
type Anchorer interface {
	RecordReport(ctx context.Context, snap report.Snapshot) (ledger.BlockRef, error)
}

// Outcome is the result of a submission. Anchored is false on partial
// success: the record was stored, the ledger append was not.
type Outcome struct {
	ReportID string           `json:"report_id"`
	Anchored bool             `json:"anchored"`
	Block    *ledger.BlockRef `json:"block,omitempty"`
	Message  string           `json:"message"`
	Cause    string           `json:"cause,omitempty"`
}

// Partial reports whether the record was stored without a ledger anchor.
func (o Outcome) Partial() bool { return !o.Anchored }

// Workflow wires the record store and the ledger together.
type Workflow struct {
	records   RecordStore
	ledger    Anchorer
	validator report.Validator
	newID     func() string
	logger    *slog.Logger
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithValidator checks fields before anything is stored. Required field
// presence is always checked first.
func WithValidator(v report.Validator) Option {
	return func(w *Workflow) { w.validator = report.All(report.RequiredFields, v) }
}

// WithIDGenerator sets the generator for reports submitted without an id.
// Defaults to report.NewID.
func WithIDGenerator(fn func() string) Option {
	return func(w *Workflow) { w.newID = fn }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

// New returns a Workflow.
func New(records RecordStore, anchorer Anchorer, opts ...Option) *Workflow {
	w := &Workflow{
		records:   records,
		ledger:    anchorer,
		validator: report.RequiredFields,
		newID:     report.NewID,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Submit validates f, stores the record and anchors it.
//
// A validation or record-store failure is returned as an error and nothing
// is anchored. A ledger failure after the record was stored is not an
// error: the Outcome has Anchored=false and Message=MsgAnchorFailed.
func (w *Workflow) Submit(ctx context.Context, f report.Fields) (Outcome, error) {
	f = f.Trimmed()
	if f.ReportID == "" {
		f.ReportID = w.newID()
	}

	snap, err := report.New(f)
	if err != nil {
		return Outcome{}, fmt.Errorf("submit report: %w", err)
	}
	if err := w.validator.Validate(snap.Fields()); err != nil {
		return Outcome{}, fmt.Errorf("submit report: %w", err)
	}

	inserted, err := w.records.SaveReport(ctx, snap.Fields())
	if err != nil {
		return Outcome{}, fmt.Errorf("submit report: %w", err)
	}
	if !inserted {
		return Outcome{}, fmt.Errorf("submit report %s: %w", snap.ID(), ErrDuplicateReport)
	}

	// Partial success: the ledger error is already logged and carried in
	// the outcome.
	out, _ := w.anchor(ctx, snap, MsgSubmitted)
	return out, nil
}

// Anchor appends an already stored report to the ledger again. Unlike
// Submit, a ledger failure is returned as an error since there is no new
// record to report.
func (w *Workflow) Anchor(ctx context.Context, id string) (Outcome, error) {
	rec, err := w.records.GetReport(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return Outcome{}, fmt.Errorf("anchor %s: %w", id, ErrReportNotFound)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("anchor %s: %w", id, err)
	}

	snap, err := report.New(rec.Fields)
	if err != nil {
		return Outcome{}, fmt.Errorf("anchor %s: %w", id, err)
	}

	out, err := w.anchor(ctx, snap, MsgReanchored)
	if err != nil {
		return out, fmt.Errorf("anchor %s: %w", id, err)
	}
	return out, nil
}

func (w *Workflow) anchor(ctx context.Context, snap report.Snapshot, okMsg string) (Outcome, error) {
	out := Outcome{ReportID: snap.ID()}

	ref, err := w.ledger.RecordReport(ctx, snap)
	if err != nil {
		w.logger.Error("ledger anchoring failed; report record kept",
			"report_id", snap.ID(),
			"error", err,
		)
		out.Message = MsgAnchorFailed
		out.Cause = err.Error()
		return out, err
	}

	out.Anchored = true
	out.Block = &ref
	out.Message = okMsg

	// The block is already durable; only the back-reference is lost.
	if err := w.records.MarkAnchored(ctx, snap.ID(), ref); err != nil {
		w.logger.Warn("could not record anchor on report",
			"report_id", snap.ID(),
			"index", ref.Index,
			"error", err,
		)
	}
	return out, nil
}
