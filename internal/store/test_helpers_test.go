package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/roach88/cyberaid/internal/ledger"
	"github.com/roach88/cyberaid/internal/report"
	"github.com/roach88/cyberaid/internal/testutil"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(testutil.NewDefaultClock().Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestFields creates report fields with every required value set.
func createTestFields(id string) report.Fields {
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

// buildTestChain returns genesis plus n report blocks, one second apart
// starting at testutil.Epoch.
func buildTestChain(t *testing.T, n int) []ledger.Block {
	t.Helper()
	clock := testutil.NewDefaultClock()
	blocks := []ledger.Block{ledger.NewGenesis(clock.Now())}
	for i := 1; i <= n; i++ {
		snap := report.MustNew(createTestFields(fmt.Sprintf("r%d", i)))
		b, err := ledger.NewBlock(blocks[i-1], clock.Now(), snap.Payload())
		if err != nil {
			t.Fatalf("NewBlock() failed: %v", err)
		}
		blocks = append(blocks, b)
	}
	return blocks
}

// saveEach saves the chain one append at a time, the way Chain does.
func saveEach(t *testing.T, backend ledger.Backend, blocks []ledger.Block) {
	t.Helper()
	for i := range blocks {
		if err := backend.Save(context.Background(), blocks[:i+1]); err != nil {
			t.Fatalf("Save(%d blocks) failed: %v", i+1, err)
		}
	}
}

// buildNonASCIIChain returns genesis plus one report whose fields mix
// scripts, a decomposed accent and characters JSON encoders like to escape.
func buildNonASCIIChain(t *testing.T) []ledger.Block {
	t.Helper()
	f := createTestFields("r1")
	f.Name = "Ñandú Pérez"
	f.Place = "Caf" + "e\u0301"
	f.Description = "Überweisungsbetrug 日本語 \u2028 <b>&</b> \"quoted\""
	f.ExtractedText = "𝟘𝟙 tab\tend"

	clock := testutil.NewDefaultClock()
	genesis := ledger.NewGenesis(clock.Now())
	b, err := ledger.NewBlock(genesis, clock.Now(), report.MustNew(f).Payload())
	if err != nil {
		t.Fatalf("NewBlock() failed: %v", err)
	}
	return []ledger.Block{genesis, b}
}
