package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/freightops/afrmm/pkg/money"
)

// StaleCache remembers the last amount the lookup API reported per CE.
// It exists only so a preview can still show a figure when the API
// refuses a repeat query inside its dedupe window; cached values are
// never authoritative and are always surfaced with a caveat.
type StaleCache struct {
	path    string
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	AmountCents int64     `yaml:"amount_cents"`
	ObservedAt  time.Time `yaml:"observed_at"`
}

// NewStaleCache loads (or initializes) the cache file at path.
func NewStaleCache(path string) (*StaleCache, error) {
	c := &StaleCache{path: path, entries: make(map[string]cacheEntry)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read value cache: %w", err)
	}
	if err := yaml.Unmarshal(data, &c.entries); err != nil {
		return nil, fmt.Errorf("decode value cache: %w", err)
	}
	return c, nil
}

// Put records the amount observed for a CE and persists the cache.
// Persistence failures are returned but callers may ignore them; the
// cache is an optimization, not a gate.
func (c *StaleCache) Put(ceNumber string, amount money.Centavos) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[ceNumber] = cacheEntry{
		AmountCents: int64(amount),
		ObservedAt:  time.Now().UTC(),
	}
	return c.save()
}

// Get returns the cached amount and when it was observed.
func (c *StaleCache) Get(ceNumber string) (money.Centavos, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[ceNumber]
	if !ok {
		return 0, time.Time{}, false
	}
	return money.Centavos(entry.AmountCents), entry.ObservedAt, true
}

func (c *StaleCache) save() error {
	data, err := yaml.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("encode value cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0750); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		return fmt.Errorf("write value cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save value cache: %w", err)
	}
	return nil
}
