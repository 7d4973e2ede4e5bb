// Package cache provides the content-addressed result caches that let the
// dispatcher skip backend calls for repeated lookups. Keys are exact-match:
// two semantically identical but textually different inputs (say, differing
// whitespace) are distinct entries. Entries live for the process lifetime;
// there is no eviction and no TTL.
package cache

import (
	"encoding/json"
	"sync"
)

// lookupKeySep joins word and context in a quick-lookup fingerprint. A unit
// separator cannot occur in learner text, so joint keys never collide with
// each other.
const lookupKeySep = "\x1f"

// AnalysisKey is the fingerprint for a full-sentence analysis: the sentence
// text verbatim.
func AnalysisKey(sentence string) string {
	return sentence
}

// LookupKey is the fingerprint for a word + surrounding-context quick lookup.
func LookupKey(word, context string) string {
	return word + lookupKeySep + context
}

// Stats is a point-in-time snapshot of a cache's counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// ResultCache maps string fingerprints to opaque result payloads.
type ResultCache struct {
	name     string
	onChange func()

	mu      sync.RWMutex
	entries map[string]json.RawMessage
	hits    int64
	misses  int64
}

// Option configures a ResultCache.
type Option func(*ResultCache)

// WithOnChange installs a hook invoked after every successful Put, so a
// change feed can cover cache mutations as well as store mutations.
func WithOnChange(fn func()) Option {
	return func(c *ResultCache) { c.onChange = fn }
}

// New creates an empty named cache.
func New(name string, opts ...Option) *ResultCache {
	c := &ResultCache{
		name:    name,
		entries: make(map[string]json.RawMessage),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the cache's name, used as a metrics label.
func (c *ResultCache) Name() string {
	return c.name
}

// Get returns the payload stored under key, if any, and records the
// hit or miss.
func (c *ResultCache) Get(key string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return payload, ok
}

// Put stores a payload under key. Callers only write successful results;
// failures are never cached, so a retry re-queries the backend.
func (c *ResultCache) Put(key string, payload json.RawMessage) {
	stored := make(json.RawMessage, len(payload))
	copy(stored, payload)

	c.mu.Lock()
	c.entries[key] = stored
	c.mu.Unlock()

	if c.onChange != nil {
		c.onChange()
	}
}

// Len returns the number of entries.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns the current counters.
func (c *ResultCache) Snapshot() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
}
