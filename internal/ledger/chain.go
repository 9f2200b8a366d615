package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/cyberaid/internal/canon"
)

// Backend is durable storage for a chain.
type Backend interface {
	fmt.Stringer // storage location, for logs

	// Load returns the stored blocks in order. It returns (nil, nil) when
	// storage is absent or empty and a *CorruptStorageError when stored data
	// cannot be parsed.
	Load(ctx context.Context) ([]Block, error)

	// Save durably persists blocks, which extend the previously saved
	// sequence by at most a few blocks. Save is synchronous and atomic:
	// when it returns an error, storage still holds the previous sequence.
	Save(ctx context.Context, blocks []Block) error
}

// Quarantiner is implemented by backends that can move corrupt data aside
// so a fresh chain can be started without destroying the evidence.
type Quarantiner interface {
	Quarantine(ctx context.Context) (where string, err error)
}

// State is the chain's macro-state.
type State int

const (
	// StateUninitialized: Load has not succeeded yet.
	StateUninitialized State = iota
	// StateReady: the chain is loaded and genesis is guaranteed present.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Chain is the in-memory, write-through view of a Backend.
//
// Durable storage is authoritative. Every append is persisted before it
// becomes visible in memory, so a crash can lose at most an append that was
// never acknowledged.
//
// Thread-safety: appends take the write lock for the whole
// read-tail/build/persist/publish sequence, so two concurrent appends can
// never build on the same tail. Reads take the read lock.
type Chain struct {
	mu             sync.RWMutex
	backend        Backend
	now            func() time.Time
	logger         *slog.Logger
	resetOnCorrupt bool

	state  State
	blocks []Block
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithClock sets the time source for new blocks. Defaults to time.Now.
func WithClock(now func() time.Time) ChainOption {
	return func(c *Chain) { c.now = now }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) ChainOption {
	return func(c *Chain) { c.logger = l }
}

// WithResetOnCorrupt records the operator's acknowledgment that corrupt
// storage may be quarantined and replaced by a fresh genesis chain.
// Without it, Load fails with *CorruptStorageError.
func WithResetOnCorrupt(ack bool) ChainOption {
	return func(c *Chain) { c.resetOnCorrupt = ack }
}

// NewChain returns an uninitialized chain over backend. Call Load before use.
func NewChain(backend Backend, opts ...ChainOption) *Chain {
	c := &Chain{
		backend: backend,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenChain is NewChain followed by Load.
func OpenChain(ctx context.Context, backend Backend, opts ...ChainOption) (*Chain, error) {
	c := NewChain(backend, opts...)
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the chain from durable storage, replacing any in-memory state.
// Empty or absent storage yields a single genesis block, persisted before
// Load returns.
func (c *Chain) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	blocks, err := c.backend.Load(ctx)
	if err != nil {
		if !IsCorruptStorage(err) {
			return fmt.Errorf("load chain from %s: %w", c.backend, err)
		}
		if blocks, err = c.recoverCorrupt(ctx, err); err != nil {
			return err
		}
	}

	if len(blocks) == 0 {
		genesis := NewGenesis(c.now())
		if err := c.backend.Save(ctx, []Block{genesis}); err != nil {
			return &PersistenceError{Op: "genesis", Err: err}
		}
		c.logger.Info("genesis block created",
			"storage", c.backend.String(),
			"hash", genesis.Hash,
		)
		blocks = []Block{genesis}
	}

	c.blocks = blocks
	c.state = StateReady

	tail := blocks[len(blocks)-1]
	c.logger.Info("chain loaded",
		"storage", c.backend.String(),
		"length", len(blocks),
		"tail_index", tail.Index,
		"tail_hash", tail.Hash,
	)

	if res := Validate(blocks); !res.Valid {
		c.logger.Error("chain failed integrity check at load",
			"index", res.Index,
			"reason", res.Reason,
			"detail", res.Detail,
		)
	}
	return nil
}

// recoverCorrupt either refuses to continue (the default) or, with operator
// acknowledgment, quarantines the corrupt data so a new chain can start.
func (c *Chain) recoverCorrupt(ctx context.Context, cause error) ([]Block, error) {
	if !c.resetOnCorrupt {
		c.logger.Error("ledger storage is corrupt; refusing to start without operator acknowledgment",
			"storage", c.backend.String(),
			"error", cause,
		)
		return nil, cause
	}

	q, ok := c.backend.(Quarantiner)
	if !ok {
		return nil, fmt.Errorf("reset on corrupt: %s cannot quarantine data: %w", c.backend, cause)
	}
	where, err := q.Quarantine(ctx)
	if err != nil {
		return nil, fmt.Errorf("reset on corrupt: quarantine %s: %w", c.backend, err)
	}

	c.logger.Error("ledger storage was corrupt; prior history quarantined and chain reset",
		"storage", c.backend.String(),
		"quarantined_to", where,
		"error", cause,
	)
	return nil, nil
}

// State returns the chain's macro-state.
func (c *Chain) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Append builds the next block over payload, persists the full sequence and
// only then publishes it in memory. On a failed write nothing changes and a
// *PersistenceError is returned.
//
// Append is bounded local work; caller cancellation is ignored once the
// write lock is held so a durable write is never abandoned half-way.
func (c *Chain) Append(ctx context.Context, payload canon.Value) (Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return Block{}, ErrNotReady
	}

	tail := c.blocks[len(c.blocks)-1]
	b, err := NewBlock(tail, c.now(), payload)
	if err != nil {
		return Block{}, fmt.Errorf("append: %w", err)
	}

	next := append(slices.Clip(c.blocks), b)
	if err := c.backend.Save(context.WithoutCancel(ctx), next); err != nil {
		c.logger.Error("append rolled back: chain not persisted",
			"storage", c.backend.String(),
			"index", b.Index,
			"error", err,
		)
		return Block{}, &PersistenceError{Op: "append", Err: err}
	}
	c.blocks = next

	c.logger.Debug("block appended",
		"index", b.Index,
		"hash", b.Hash,
	)
	return b.clone(), nil
}

// Tail returns the last block.
func (c *Chain) Tail() (Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != StateReady {
		return Block{}, ErrNotReady
	}
	return c.blocks[len(c.blocks)-1].clone(), nil
}

// All returns a snapshot of the chain in order. The snapshot shares no
// storage with the chain.
func (c *Chain) All() ([]Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != StateReady {
		return nil, ErrNotReady
	}
	out := make([]Block, len(c.blocks))
	for i, b := range c.blocks {
		out[i] = b.clone()
	}
	return out, nil
}

// Len returns the number of blocks, 0 before Load.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}
