// internal/storage/memory/memory.go
package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/littleexplorer/atlas/internal/config"
	"github.com/littleexplorer/atlas/internal/storage"
	"github.com/littleexplorer/atlas/pkg/core"
)

// Backend keeps the snapshot in process memory. When an output directory is configured
// every save is mirrored to <key>.json (or .json.gz) and the mirror is reloaded on Init.
type Backend struct {
	cfg config.MemoryConfig
	key string

	snapshot  []byte
	mirrorErr error // set when the mirror exists but cannot be read
	saves     int

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, key string) *Backend {
	if key == "" {
		key = storage.DefaultKey
	}
	return &Backend{
		cfg: cfg,
		key: key,
	}
}

// Init loads the mirror file if one exists. An unreadable mirror does not fail Init;
// Load reports it as ErrCorruptSnapshot until the next Save replaces it.
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}

	data, err := b.readMirror(b.mirrorPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.mirrorErr = fmt.Errorf("reading mirror %s: %w", b.mirrorPath(), err)
		return nil
	}
	b.snapshot = data
	b.lastExportPath = b.mirrorPath()
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// Load returns the last saved snapshot
func (b *Backend) Load(ctx context.Context) ([]core.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	data, mirrorErr := b.snapshot, b.mirrorErr
	b.mu.RUnlock()

	if data == nil && mirrorErr != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrCorruptSnapshot, mirrorErr)
	}
	if data == nil {
		return nil, storage.ErrSnapshotNotFound
	}
	return storage.Decode(data)
}

// Save replaces the snapshot and refreshes the mirror
func (b *Backend) Save(ctx context.Context, memories []core.Memory) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := storage.Encode(memories)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.OutputDir != "" {
		if err := b.exportJSON(data); err != nil {
			return err
		}
	}
	b.snapshot = data
	b.mirrorErr = nil
	b.saves++
	return nil
}

// Saves returns how many times Save succeeded
func (b *Backend) Saves() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.saves
}

// MirrorPath returns the path of the last written or loaded mirror file
func (b *Backend) MirrorPath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
