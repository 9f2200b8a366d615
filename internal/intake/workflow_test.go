package intake

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cyberaid/internal/ledger"
	"github.com/roach88/cyberaid/internal/report"
	"github.com/roach88/cyberaid/internal/store"
	"github.com/roach88/cyberaid/internal/testutil"
)

var errLedgerDown = errors.New("disk full")

// failingAnchorer always fails the way a ledger write failure surfaces.
type failingAnchorer struct{ calls int }

func (f *failingAnchorer) RecordReport(ctx context.Context, snap report.Snapshot) (ledger.BlockRef, error) {
	f.calls++
	return ledger.BlockRef{}, &ledger.PersistenceError{Op: "append", Err: errLedgerDown}
}

type testEnv struct {
	records *store.Store
	chain   *ledger.Chain
	service *ledger.Service
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	clock := testutil.NewDefaultClock()

	records, err := store.Open(filepath.Join(dir, "records.db"), store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { records.Close() })

	chain, err := ledger.OpenChain(context.Background(),
		store.NewFileBackend(filepath.Join(dir, "blockchain.json")),
		ledger.WithClock(clock.Now),
		ledger.WithLogger(discardLogger()),
	)
	require.NoError(t, err)

	return testEnv{
		records: records,
		chain:   chain,
		service: ledger.NewService(chain, ledger.WithServiceLogger(discardLogger())),
	}
}

func validFields(id string) report.Fields {
	return report.Fields{
		ReportID:      id,
		Name:          "Alice",
		Mobile:        "+91 98765 43210",
		Place:         "Pune",
		IncidentDate:  "2025-01-10",
		ReportingDate: "2025-01-11",
		Description:   "Fake bank SMS",
		CrimeType:     "phishing",
	}
}

func TestSubmit_StoresAndAnchors(t *testing.T) {
	env := newTestEnv(t)
	w := New(env.records, env.service, WithLogger(discardLogger()))
	ctx := context.Background()

	out, err := w.Submit(ctx, validFields("r1"))
	require.NoError(t, err)
	assert.True(t, out.Anchored)
	assert.False(t, out.Partial())
	assert.Equal(t, MsgSubmitted, out.Message)
	require.NotNil(t, out.Block)
	assert.Equal(t, int64(1), out.Block.Index)

	rec, err := env.records.GetReport(ctx, "r1")
	require.NoError(t, err)
	require.True(t, rec.Anchored())
	assert.Equal(t, *out.Block, *rec.Anchor)

	tail, err := env.chain.Tail()
	require.NoError(t, err)
	assert.Equal(t, out.Block.Hash, tail.Hash)
}

func TestSubmit_GeneratesID(t *testing.T) {
	env := newTestEnv(t)
	ids := testutil.NewSequenceIDs("rep")
	w := New(env.records, env.service, WithIDGenerator(ids.Next), WithLogger(discardLogger()))

	out, err := w.Submit(context.Background(), validFields(""))
	require.NoError(t, err)
	assert.Equal(t, "rep-1", out.ReportID)
}

func TestSubmit_DefaultIDIsUUID(t *testing.T) {
	env := newTestEnv(t)
	w := New(env.records, env.service, WithLogger(discardLogger()))

	out, err := w.Submit(context.Background(), validFields(""))
	require.NoError(t, err)
	assert.Len(t, out.ReportID, 36)
}

func TestSubmit_ValidationStoresNothing(t *testing.T) {
	env := newTestEnv(t)
	w := New(env.records, env.service, WithLogger(discardLogger()))
	ctx := context.Background()

	f := validFields("r1")
	f.Place = "   "
	_, err := w.Submit(ctx, f)
	require.Error(t, err)
	assert.True(t, report.IsValidationError(err))

	_, err = env.records.GetReport(ctx, "r1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, env.chain.Len())
}

func TestSubmit_SchemaValidator(t *testing.T) {
	env := newTestEnv(t)
	schema, err := report.DefaultSchemaValidator()
	require.NoError(t, err)
	w := New(env.records, env.service, WithValidator(schema), WithLogger(discardLogger()))

	f := validFields("r1")
	f.IncidentDate = "last tuesday"
	_, err = w.Submit(context.Background(), f)
	require.Error(t, err)
	assert.True(t, report.IsValidationError(err))
}

func TestSubmit_PartialSuccessWhenLedgerFails(t *testing.T) {
	env := newTestEnv(t)
	anchorer := &failingAnchorer{}
	w := New(env.records, anchorer, WithLogger(discardLogger()))
	ctx := context.Background()

	out, err := w.Submit(ctx, validFields("r1"))
	require.NoError(t, err, "ledger failure is partial success, not an error")
	assert.False(t, out.Anchored)
	assert.True(t, out.Partial())
	assert.Equal(t, MsgAnchorFailed, out.Message)
	assert.Contains(t, out.Cause, "disk full")
	assert.Nil(t, out.Block)
	assert.Equal(t, 1, anchorer.calls)

	rec, err := env.records.GetReport(ctx, "r1")
	require.NoError(t, err, "record must survive a ledger failure")
	assert.False(t, rec.Anchored())
}

func TestSubmit_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	w := New(env.records, env.service, WithLogger(discardLogger()))
	ctx := context.Background()

	_, err := w.Submit(ctx, validFields("r1"))
	require.NoError(t, err)

	_, err = w.Submit(ctx, validFields("r1"))
	assert.ErrorIs(t, err, ErrDuplicateReport)
	assert.Equal(t, 2, env.chain.Len())
}

func TestAnchor_ReanchorsStoredReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Stored while the ledger was down.
	failing := New(env.records, &failingAnchorer{}, WithLogger(discardLogger()))
	out, err := failing.Submit(ctx, validFields("r1"))
	require.NoError(t, err)
	require.False(t, out.Anchored)

	w := New(env.records, env.service, WithLogger(discardLogger()))
	out, err = w.Anchor(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, out.Anchored)
	assert.Equal(t, MsgReanchored, out.Message)

	rec, err := env.records.GetReport(ctx, "r1")
	require.NoError(t, err)
	require.True(t, rec.Anchored())
	assert.Equal(t, int64(1), rec.Anchor.Index)

	blocks, err := env.chain.All()
	require.NoError(t, err)
	snap, err := report.FromPayload(blocks[1].Payload)
	require.NoError(t, err)
	assert.Equal(t, rec.Fields, snap.Fields())
}

func TestAnchor_NotFound(t *testing.T) {
	env := newTestEnv(t)
	w := New(env.records, env.service, WithLogger(discardLogger()))

	_, err := w.Anchor(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestAnchor_LedgerFailureIsError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.records.SaveReport(ctx, validFields("r1"))
	require.NoError(t, err)

	w := New(env.records, &failingAnchorer{}, WithLogger(discardLogger()))
	out, err := w.Anchor(ctx, "r1")
	require.Error(t, err)
	assert.False(t, out.Anchored)

	var pe *ledger.PersistenceError
	assert.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, errLedgerDown)
}
