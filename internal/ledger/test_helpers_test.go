package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/roach88/cyberaid/internal/report"
	"github.com/roach88/cyberaid/internal/testutil"
)

var errDiskFull = errors.New("no space left on device")

// memBackend keeps the chain as serialized JSON, so every Load goes
// through the same decode path a real backend would.
type memBackend struct {
	mu          sync.Mutex
	data        []byte
	saves       int
	failSave    bool
	corrupt     bool
	quarantined [][]byte
}

func (m *memBackend) String() string { return "memory" }

func (m *memBackend) Load(ctx context.Context) ([]Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.corrupt {
		return nil, &CorruptStorageError{Source: "memory", Err: errors.New("unexpected end of JSON input")}
	}
	if len(m.data) == 0 {
		return nil, nil
	}
	var records []Record
	if err := json.Unmarshal(m.data, &records); err != nil {
		return nil, &CorruptStorageError{Source: "memory", Err: err}
	}
	return BlocksFromRecords(records)
}

func (m *memBackend) Save(ctx context.Context, blocks []Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSave {
		return errDiskFull
	}
	data, err := json.Marshal(Records(blocks))
	if err != nil {
		return err
	}
	m.data = data
	m.saves++
	return nil
}

func (m *memBackend) Quarantine(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quarantined = append(m.quarantined, m.data)
	m.data = nil
	m.corrupt = false
	return "memory-quarantine", nil
}

// records decodes what is currently stored.
func (m *memBackend) records(t *testing.T) []Record {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	var records []Record
	if err := json.Unmarshal(m.data, &records); err != nil {
		t.Fatalf("decode stored chain: %v", err)
	}
	return records
}

// rewrite lets a test tamper with stored records.
func (m *memBackend) rewrite(t *testing.T, edit func([]Record)) {
	t.Helper()
	records := m.records(t)
	edit(records)
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatalf("encode tampered chain: %v", err)
	}
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
}

// plainBackend hides memBackend's Quarantine method.
type plainBackend struct{ m *memBackend }

func (p plainBackend) String() string { return p.m.String() }

func (p plainBackend) Load(ctx context.Context) ([]Block, error) { return p.m.Load(ctx) }

func (p plainBackend) Save(ctx context.Context, blocks []Block) error { return p.m.Save(ctx, blocks) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openTestChain loads a chain over backend with a deterministic clock.
func openTestChain(t *testing.T, backend Backend, opts ...ChainOption) (*Chain, *testutil.StepClock) {
	t.Helper()
	clock := testutil.NewDefaultClock()
	all := append([]ChainOption{WithClock(clock.Now), WithLogger(discardLogger())}, opts...)
	c, err := OpenChain(context.Background(), backend, all...)
	if err != nil {
		t.Fatalf("OpenChain() failed: %v", err)
	}
	return c, clock
}

func testFields(id string) report.Fields {
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

func testSnapshot(id string) report.Snapshot {
	return report.MustNew(testFields(id))
}
