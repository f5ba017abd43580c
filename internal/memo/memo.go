// Package memo caches pipeline results keyed by a fingerprint of the input,
// so interactive callers can re-request a graph without recomputing it.
package memo

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/tordrt/schemagraph/internal/model"
	"github.com/tordrt/schemagraph/internal/pipeline"
)

// DefaultSize is the number of results kept when no size is given.
const DefaultSize = 16

// Cache is a bounded FIFO of pipeline results. It is safe for concurrent use;
// concurrent requests for the same fingerprint share one computation.
type Cache struct {
	opts  *pipeline.Options
	size  int
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*pipeline.Result
	order   []string
	hits    int
	misses  int
}

// New creates a cache holding at most size results.
func New(size int, opts *pipeline.Options) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	return &Cache{
		opts:    opts,
		size:    size,
		entries: make(map[string]*pipeline.Result, size),
	}
}

// Fingerprint hashes a (variant, schema) pair.
func Fingerprint(raw model.RawSchema, variant string) (string, error) {
	body, err := json.Marshal(struct {
		Variant string          `json:"variant"`
		Schema  model.RawSchema `json:"schema"`
	}{Variant: variant, Schema: raw})
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint schema: %w", err)
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

// Run returns the cached result for the variant of set, computing it on a miss.
// A warehouse derived from the original schema is cached apart from a stored
// warehouse with the same tables.
func (c *Cache) Run(set model.SchemaSet, variant string) (*pipeline.Result, error) {
	raw, derived := pipeline.Select(set, variant)
	return c.run(raw, variant, derived)
}

// RunSchema returns the cached result for raw processed as variant.
func (c *Cache) RunSchema(raw model.RawSchema, variant string) (*pipeline.Result, error) {
	return c.run(raw, variant, false)
}

func (c *Cache) run(raw model.RawSchema, variant string, derived bool) (*pipeline.Result, error) {
	key, err := Fingerprint(raw, variant)
	if err != nil {
		return nil, err
	}
	if derived {
		key += ":derived"
	}

	if r, ok := c.lookup(key); ok {
		return r, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if r, ok := c.lookup(key); ok {
			return r, nil
		}
		r := pipeline.RunSchema(raw, variant, c.opts)
		r.Derived = derived
		c.store(key, r)
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*pipeline.Result), nil
}

// Stats reports cache hits and misses.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) lookup(key string) (*pipeline.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return r, ok
}

func (c *Cache) store(key string, r *pipeline.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
	if _, ok := c.entries[key]; ok {
		return
	}
	if len(c.order) >= c.size {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = r
	c.order = append(c.order, key)
}
