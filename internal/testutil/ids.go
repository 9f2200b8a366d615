package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs hands out predictable report identifiers: "<prefix>-1",
// "<prefix>-2", ... It stands in for report.NewID where tests need stable
// payloads and therefore stable fingerprints.
//
// Thread-safety: SequenceIDs is safe for concurrent use via internal mutex.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDs creates a generator. An empty prefix becomes "report".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "report"
	}
	return &SequenceIDs{prefix: prefix}
}

// Next returns the next identifier.
func (g *SequenceIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
