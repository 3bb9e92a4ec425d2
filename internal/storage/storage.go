// internal/storage/storage.go
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/littleexplorer/atlas/pkg/core"
)

// DefaultKey is the snapshot key the journal has always been stored under
const DefaultKey = "explorer_memories"

var (
	// ErrSnapshotNotFound is returned by Load when nothing was saved under the key yet
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrCorruptSnapshot is returned by Load when the stored bytes are not a memory list
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

// Backend is the interface all storage implementations must satisfy.
// The whole memory collection is read and written as one snapshot.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	Load(ctx context.Context) ([]core.Memory, error)
	Save(ctx context.Context, memories []core.Memory) error
}

// Mirrored is an optional interface for backends that keep a copy of the snapshot on disk.
type Mirrored interface {
	MirrorPath() string
}

// Encode serializes memories into the snapshot format. A nil slice is stored as an empty list.
func Encode(memories []core.Memory) ([]byte, error) {
	if memories == nil {
		memories = []core.Memory{}
	}
	data, err := json.Marshal(memories)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot. Anything that is not a JSON list of memories is ErrCorruptSnapshot.
func Decode(data []byte) ([]core.Memory, error) {
	var memories []core.Memory
	if err := json.Unmarshal(data, &memories); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if memories == nil {
		return nil, fmt.Errorf("%w: null snapshot", ErrCorruptSnapshot)
	}
	return memories, nil
}
