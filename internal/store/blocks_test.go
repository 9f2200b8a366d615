package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cyberaid/internal/ledger"
	"github.com/roach88/cyberaid/internal/report"
	"github.com/roach88/cyberaid/internal/testutil"
)

func TestStoreLoad_Empty(t *testing.T) {
	s := createTestStore(t)

	blocks, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, blocks)
}

func TestStoreSaveLoad_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	want := buildTestChain(t, 3)
	saveEach(t, s, want)

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ledger.Records(want), ledger.Records(got))
	assert.True(t, ledger.Validate(got).Valid)
}

func TestStoreSaveLoad_NonASCIIRoundTrip(t *testing.T) {
	s := createTestStore(t)
	want := buildNonASCIIChain(t)
	saveEach(t, s, want)

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, want[1].Payload, got[1].Payload)
	assert.True(t, ledger.Validate(got).Valid)

	var data string
	require.NoError(t, s.db.QueryRow("SELECT data FROM blocks WHERE idx = 1").Scan(&data))
	assert.Contains(t, data, "\"place\":\"Caf\u00e9\"")
}

func TestStoreLoad_NormalizationTamperDetected(t *testing.T) {
	s := createTestStore(t)
	saveEach(t, s, buildNonASCIIChain(t))

	// Swap the stored precomposed é for e + combining acute.
	_, err := s.db.Exec(`UPDATE blocks SET data = replace(data, ?, ?) WHERE idx = 1`,
		"Caf\u00e9", "Caf"+"e\u0301")
	require.NoError(t, err)

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	res := ledger.Validate(got)
	require.False(t, res.Valid)
	assert.Equal(t, int64(1), res.Index)
	assert.Equal(t, ledger.ReasonHashMismatch, res.Reason)
}

func TestStoreSave_OnlyInsertsNewBlocks(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	blocks := buildTestChain(t, 2)

	require.NoError(t, s.Save(ctx, blocks[:1]))
	require.NoError(t, s.Save(ctx, blocks))
	// Saving the same sequence again is a no-op.
	require.NoError(t, s.Save(ctx, blocks))

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM blocks").Scan(&n))
	assert.Equal(t, 3, n)
}

func TestStoreSave_StoresCanonicalData(t *testing.T) {
	s := createTestStore(t)
	saveEach(t, s, buildTestChain(t, 1))

	var data string
	require.NoError(t, s.db.QueryRow("SELECT data FROM blocks WHERE idx = 1").Scan(&data))
	assert.Equal(t,
		`{"crime_type":"phishing","description":"Fake bank SMS","incident_date":"2025-01-10","mobile":"+91 98765 43210","name":"Alice","place":"Pune","report_id":"r1","reporting_date":"2025-01-11"}`,
		data)
}

func TestStoreSave_RejectsDivergedHistory(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	saveEach(t, s, buildTestChain(t, 1))

	other := buildTestChain(t, 2)
	other[1].Hash = "forged"
	err := s.Save(ctx, other)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "diverges")

	err = s.Save(ctx, other[:1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage holds block 1")
}

func TestStoreLoad_CorruptRow(t *testing.T) {
	s := createTestStore(t)
	saveEach(t, s, buildTestChain(t, 1))

	_, err := s.db.Exec(`UPDATE blocks SET data = '{"amount":1.5}' WHERE idx = 1`)
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, ledger.IsCorruptStorage(err))
}

func TestStoreLoad_BadTimestamp(t *testing.T) {
	s := createTestStore(t)
	saveEach(t, s, buildTestChain(t, 1))

	_, err := s.db.Exec(`UPDATE blocks SET timestamp = 'yesterday' WHERE idx = 0`)
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	assert.True(t, ledger.IsCorruptStorage(err))
}

func TestStoreQuarantine(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	saveEach(t, s, buildTestChain(t, 2))

	where, err := s.Quarantine(ctx)
	require.NoError(t, err)
	assert.Contains(t, where, "quarantined_blocks")

	blocks, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, blocks)

	n, err := s.CountQuarantined(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStoreAsChainBackend_TamperDetected(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	chain, err := ledger.OpenChain(ctx, s, ledger.WithClock(testutil.NewDefaultClock().Now), ledger.WithLogger(logger))
	require.NoError(t, err)
	svc := ledger.NewService(chain, ledger.WithServiceLogger(logger))

	_, err = svc.RecordReport(ctx, report.MustNew(createTestFields("r1")))
	require.NoError(t, err)

	// Edit the stored genesis payload behind the ledger's back.
	_, err = s.db.Exec(`UPDATE blocks SET data = '"Tampered"' WHERE idx = 0`)
	require.NoError(t, err)

	reloaded, err := ledger.OpenChain(ctx, s, ledger.WithLogger(logger))
	require.NoError(t, err)
	res, err := ledger.NewService(reloaded, ledger.WithServiceLogger(logger)).VerifyIntegrity()
	require.NoError(t, err)

	assert.False(t, res.Valid)
	assert.Equal(t, int64(0), res.Index)
	assert.Equal(t, ledger.ReasonHashMismatch, res.Reason)
}

func TestStoreAsChainBackend_ResetOnCorrupt(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	saveEach(t, s, buildTestChain(t, 1))

	_, err := s.db.Exec(`UPDATE blocks SET data = 'null' WHERE idx = 1`)
	require.NoError(t, err)

	_, err = ledger.OpenChain(ctx, s, ledger.WithLogger(logger))
	require.Error(t, err)
	assert.True(t, ledger.IsCorruptStorage(err))

	chain, err := ledger.OpenChain(ctx, s, ledger.WithLogger(logger), ledger.WithResetOnCorrupt(true))
	require.NoError(t, err)
	assert.Equal(t, 1, chain.Len())

	n, err := s.CountQuarantined(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
