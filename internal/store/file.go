package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/roach88/cyberaid/internal/ledger"
)

var (
	_ ledger.Backend     = (*FileBackend)(nil)
	_ ledger.Quarantiner = (*FileBackend)(nil)
)

// quarantineLayout is the suffix stamp for quarantined chain files.
const quarantineLayout = "20060102T150405Z"

// FileBackend stores the chain as one JSON document: an array of records
// in index order, pretty-printed for human inspection.
//
// Every Save rewrites the whole document through a temp file in the same
// directory that is synced and then renamed over the target, so readers
// and crashes only ever observe the previous or the new version.
type FileBackend struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileBackend returns a backend for the chain file at path. The file and
// its directory are created on first Save.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path, now: time.Now}
}

// Path returns the chain file location.
func (f *FileBackend) Path() string { return f.path }

// String identifies the backend in logs.
func (f *FileBackend) String() string { return "file:" + f.path }

// Load reads the chain file. An absent or empty file is an empty chain.
func (f *FileBackend) Load(ctx context.Context) ([]ledger.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chain file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var records []ledger.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &ledger.CorruptStorageError{Source: f.path, Err: err}
	}
	blocks, err := ledger.BlocksFromRecords(records)
	if err != nil {
		return nil, &ledger.CorruptStorageError{Source: f.path, Err: err}
	}
	return blocks, nil
}

// Save atomically replaces the chain file with blocks.
func (f *FileBackend) Save(ctx context.Context, blocks []ledger.Block) error {
	data, err := EncodeChain(blocks)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return writeFileAtomic(f.path, data)
}

// Quarantine renames the chain file to <path>.corrupt-<UTC stamp> so a new
// chain can be started without destroying the old one.
func (f *FileBackend) Quarantine(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	dest := fmt.Sprintf("%s.corrupt-%s", f.path, f.now().UTC().Format(quarantineLayout))
	if err := os.Rename(f.path, dest); err != nil {
		return "", fmt.Errorf("quarantine chain file: %w", err)
	}
	return dest, nil
}

// EncodeChain renders blocks in the on-disk layout: a two-space indented
// JSON array of records followed by a newline.
func EncodeChain(blocks []ledger.Block) ([]byte, error) {
	data, err := json.MarshalIndent(ledger.Records(blocks), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode chain: %w", err)
	}
	return append(data, '\n'), nil
}

// writeFileAtomic writes data to a temp file next to path, syncs it and
// renames it over path. The temp file is removed on any failure.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create chain directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp chain file: %w", err)
	}
	tmpPath := tmpFile.Name()

	cleanupTmp := true
	defer func() {
		if cleanupTmp {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write temp chain file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to sync temp chain file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp chain file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to atomically publish chain file: %w", err)
	}
	cleanupTmp = false

	syncDir(dir)
	return nil
}

// syncDir flushes the directory entry for a rename. Not every platform
// supports fsync on directories, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
