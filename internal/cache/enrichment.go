package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/littleexplorer/atlas/pkg/core"
)

type enrichmentEntry struct {
	Data     core.EnrichedData `json:"data"`
	StoredAt time.Time         `json:"storedAt"`
}

// EnrichmentCache maps normalized story text to the structured data extracted from it.
// Entries older than the TTL are ignored and dropped on Save.
type EnrichmentCache struct {
	mu      sync.RWMutex
	results map[string]enrichmentEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewEnrichmentCache creates a cache whose entries live for ttl. ttl <= 0 never expires.
func NewEnrichmentCache(ttl time.Duration) *EnrichmentCache {
	return &EnrichmentCache{
		results: make(map[string]enrichmentEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key normalizes story text so whitespace-only differences share an entry
func Key(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func (c *EnrichmentCache) expired(e enrichmentEntry) bool {
	return c.ttl > 0 && c.now().Sub(e.StoredAt) > c.ttl
}

// Get retrieves a result by story text
func (c *EnrichmentCache) Get(text string) (core.EnrichedData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.results[Key(text)]
	if !ok || c.expired(e) {
		return core.EnrichedData{}, false
	}
	return e.Data, true
}

// Set stores a result by story text
func (c *EnrichmentCache) Set(text string, data core.EnrichedData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[Key(text)] = enrichmentEntry{Data: data, StoredAt: c.now()}
}

// Delete removes a result by story text
func (c *EnrichmentCache) Delete(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.results, Key(text))
}

// Reset clears all results from the cache
func (c *EnrichmentCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = make(map[string]enrichmentEntry)
}

// Len counts entries that have not expired.
func (c *EnrichmentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, e := range c.results {
		if !c.expired(e) {
			n++
		}
	}
	return n
}

// LoadFile merges entries saved by an earlier run. A missing file is not an error.
func (c *EnrichmentCache) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading enrichment cache: %w", err)
	}

	var stored map[string]enrichmentEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("parsing enrichment cache %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range stored {
		if !c.expired(e) {
			c.results[k] = e
		}
	}
	return nil
}

// SaveFile writes the live entries to path, replacing it atomically.
func (c *EnrichmentCache) SaveFile(path string) error {
	c.mu.RLock()
	live := make(map[string]enrichmentEntry, len(c.results))
	for k, e := range c.results {
		if !c.expired(e) {
			live[k] = e
		}
	}
	c.mu.RUnlock()

	data, err := json.Marshal(live)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing enrichment cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing enrichment cache: %w", err)
	}
	return nil
}
