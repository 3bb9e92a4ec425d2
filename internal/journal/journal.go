// Package journal owns the memory collection: loading it, adding and removing
// memories, persisting every change, and tracking which memory is selected.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/littleexplorer/atlas/internal/cache"
	"github.com/littleexplorer/atlas/internal/geo"
	"github.com/littleexplorer/atlas/internal/storage"
	"github.com/littleexplorer/atlas/pkg/core"
)

var (
	// ErrNotFound is returned for an unknown memory ID
	ErrNotFound = errors.New("memory not found")

	// ErrInvalidDraft is returned when a draft cannot become a memory
	ErrInvalidDraft = errors.New("invalid draft")
)

// Listener receives the full memory set after every change.
type Listener func(memories []core.Memory)

// Journal is safe for concurrent use.
type Journal struct {
	mu        sync.RWMutex
	backend   storage.Backend
	memories  []core.Memory // most recently added first
	index     *cache.MemoryCache
	selected  string
	seeded    bool
	listeners []Listener

	log   *slog.Logger
	now   func() time.Time
	newID func() string
}

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(j *Journal) {
		j.log = l
	}
}

// WithClock replaces time.Now for date defaults and placeholder photos.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		j.now = now
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(newID func() string) Option {
	return func(j *Journal) {
		j.newID = newID
	}
}

// New creates an empty journal on backend. Call Load before use.
func New(backend storage.Backend, opts ...Option) *Journal {
	j := &Journal{
		backend: backend,
		index:   cache.NewMemoryCache(),
		log:     slog.Default(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Load reads the stored collection. A missing or unreadable snapshot falls back to the seed
// dataset; only context errors are returned.
func (j *Journal) Load(ctx context.Context) error {
	memories, err := j.backend.Load(ctx)
	seeded := false
	switch {
	case err == nil:
		memories = j.dropInvalid(memories)
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, storage.ErrSnapshotNotFound):
		j.log.Info("no saved journal, using sample memories")
		memories, seeded = Seed(), true
	default:
		j.log.Warn("saved journal unreadable, using sample memories", "error", err)
		memories, seeded = Seed(), true
	}

	j.mu.Lock()
	j.install(memories)
	j.seeded = seeded
	j.selected = ""
	snapshot := j.copyLocked()
	j.mu.Unlock()

	j.notify(snapshot)
	return nil
}

// dropInvalid removes stored records the globe cannot place.
func (j *Journal) dropInvalid(memories []core.Memory) []core.Memory {
	out := memories[:0:0]
	seen := make(map[string]bool, len(memories))
	for _, m := range memories {
		if err := geo.Validate(m.Coordinates); err != nil {
			j.log.Warn("skipping stored memory", "id", m.ID, "error", err)
			continue
		}
		if m.ID == "" || seen[m.ID] {
			j.log.Warn("skipping stored memory with missing or duplicate id", "id", m.ID)
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	return out
}

// Seeded reports whether the current collection came from the seed dataset.
func (j *Journal) Seeded() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.seeded
}

// Memories returns the collection in storage order, most recently added first.
func (j *Journal) Memories() []core.Memory {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.copyLocked()
}

// List returns the collection by date, newest first.
func (j *Journal) List() []core.Memory {
	list := j.Memories()
	slices.SortStableFunc(list, func(a, b core.Memory) int {
		return b.Date.Compare(a.Date.Time)
	})
	return list
}

// Chronological returns the collection by date, oldest first.
func (j *Journal) Chronological() []core.Memory {
	list := j.Memories()
	slices.SortStableFunc(list, func(a, b core.Memory) int {
		return a.Date.Compare(b.Date.Time)
	})
	return list
}

// Len returns the number of memories.
func (j *Journal) Len() int {
	return j.index.Len()
}

// Get returns the memory with id.
func (j *Journal) Get(id string) (core.Memory, bool) {
	return j.index.Get(id)
}

// Add turns a reviewed draft into a memory, stores the whole collection and selects the new memory.
// A draft without a date is dated today; without photos it gets a placeholder picture.
func (j *Journal) Add(ctx context.Context, draft core.EnrichedData, photos []string) (core.Memory, error) {
	if strings.TrimSpace(draft.LocationName) == "" {
		return core.Memory{}, fmt.Errorf("%w: missing location name", ErrInvalidDraft)
	}
	if err := geo.Validate(draft.Coordinates); err != nil {
		return core.Memory{}, err
	}

	now := j.now()
	memory := core.Memory{
		ID:           j.newID(),
		LocationName: strings.TrimSpace(draft.LocationName),
		Coordinates:  draft.Coordinates,
		Date:         core.DateOf(now.UTC()),
		Companions:   orEmpty(draft.Companions),
		Description:  draft.Description,
		FunFact:      draft.FunFact,
		Photos:       orEmpty(photos),
		Tags:         orEmpty(draft.Tags),
	}
	if draft.Date != nil && !draft.Date.IsZero() {
		memory.Date = *draft.Date
	}
	if len(memory.Photos) == 0 {
		memory.Photos = []string{PlaceholderPhoto(now)}
	}

	j.mu.Lock()
	if _, exists := j.index.Get(memory.ID); exists {
		j.mu.Unlock()
		return core.Memory{}, fmt.Errorf("%w: duplicate id %s", ErrInvalidDraft, memory.ID)
	}
	next := make([]core.Memory, 0, len(j.memories)+1)
	next = append(next, memory)
	next = append(next, j.memories...)

	if err := j.backend.Save(ctx, next); err != nil {
		j.mu.Unlock()
		return core.Memory{}, fmt.Errorf("failed to save journal: %w", err)
	}
	j.install(next)
	j.seeded = false
	j.selected = memory.ID
	snapshot := j.copyLocked()
	j.mu.Unlock()

	j.log.Info("memory added", "id", memory.ID, "location", memory.LocationName, "date", memory.Date.String())
	j.notify(snapshot)
	return memory, nil
}

// Delete removes a memory and stores the remaining collection.
func (j *Journal) Delete(ctx context.Context, id string) error {
	j.mu.Lock()
	i := slices.IndexFunc(j.memories, func(m core.Memory) bool { return m.ID == id })
	if i < 0 {
		j.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := slices.Delete(slices.Clone(j.memories), i, i+1)

	if err := j.backend.Save(ctx, next); err != nil {
		j.mu.Unlock()
		return fmt.Errorf("failed to save journal: %w", err)
	}
	j.install(next)
	j.seeded = false
	if j.selected == id {
		j.selected = ""
	}
	snapshot := j.copyLocked()
	j.mu.Unlock()

	j.log.Info("memory deleted", "id", id)
	j.notify(snapshot)
	return nil
}

// Select marks id as the selected memory.
// The lookup and the assignment share the lock Delete holds, so a selection never outlives its memory.
func (j *Journal) Select(id string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.index.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	j.selected = id
	return nil
}

// ClearSelection deselects the current memory.
func (j *Journal) ClearSelection() {
	j.mu.Lock()
	j.selected = ""
	j.mu.Unlock()
}

// Selected returns the selected memory, if any.
func (j *Journal) Selected() (core.Memory, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.selected == "" {
		return core.Memory{}, false
	}
	return j.index.Get(j.selected)
}

// SelectedID returns the selected memory ID or "".
func (j *Journal) SelectedID() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.selected
}

// OnChange registers l. Listeners run on the goroutine that made the change, after it is stored.
func (j *Journal) OnChange(l Listener) {
	j.mu.Lock()
	j.listeners = append(j.listeners, l)
	j.mu.Unlock()
}

// PlaceholderPhoto is the picture used for memories saved without photos.
func PlaceholderPhoto(t time.Time) string {
	return fmt.Sprintf("https://picsum.photos/800/600?random=%d", t.UnixMilli())
}

func (j *Journal) install(memories []core.Memory) {
	j.memories = memories
	j.index.Load(memories)
}

func (j *Journal) copyLocked() []core.Memory {
	return slices.Clone(j.memories)
}

func (j *Journal) notify(memories []core.Memory) {
	j.mu.RLock()
	listeners := slices.Clone(j.listeners)
	j.mu.RUnlock()
	for _, l := range listeners {
		l(slices.Clone(memories))
	}
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return slices.Clone(values)
}
