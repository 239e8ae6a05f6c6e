package render

import (
	"encoding/hex"
	"sync"
	"sync/atomic"

	"github.com/Abraxas-365/courier/pkg/metrics"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

// Hash returns the content hash used in cache keys.
func Hash(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Key builds the cache key of text compiled under identity.
func Key(identity, text string) string {
	return identity + ":" + Hash(text)
}

type entry struct {
	hash string
	eval Evaluator
}

// Stats is a snapshot of cache activity since creation or the last Reset.
type Stats struct {
	Engine        string `json:"engine"`
	Entries       int    `json:"entries"`
	Compiles      int64  `json:"compiles"`
	Hits          int64  `json:"hits"`
	CompileErrors int64  `json:"compile_errors"`
}

// Cache memoizes compiled templates by identity and content hash. Editing a
// template's text changes the key, so stale entries are never served and
// nothing needs explicit invalidation. Entries live for the lifetime of the
// cache; failed compilations are not cached.
type Cache struct {
	engine  Engine
	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group

	compiles      atomic.Int64
	hits          atomic.Int64
	compileErrors atomic.Int64
}

func NewCache(engine Engine) *Cache {
	if engine == nil {
		engine = HTMLEngine{}
	}
	return &Cache{
		engine:  engine,
		entries: make(map[string]entry),
	}
}

func (c *Cache) Engine() Engine {
	return c.engine
}

func (c *Cache) lookup(key, hash string) (Evaluator, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || e.hash != hash {
		return nil, false
	}
	return e.eval, true
}

// Resolve returns the evaluator for text under identity, compiling it on a
// miss. Concurrent misses on the same key share a single compilation.
func (c *Cache) Resolve(identity, text string) (Evaluator, error) {
	return c.resolve(c.engine, identity, text)
}

// ResolvePlain is Resolve for plain-text content such as subjects: text is
// always compiled with text/template, whatever the cache engine.
func (c *Cache) ResolvePlain(identity, text string) (Evaluator, error) {
	if _, ok := c.engine.(TextEngine); ok {
		return c.resolve(c.engine, identity, text)
	}
	return c.resolve(TextEngine{}, identity+":plain", text)
}

func (c *Cache) resolve(engine Engine, identity, text string) (Evaluator, error) {
	hash := Hash(text)
	key := identity + ":" + hash

	if eval, ok := c.lookup(key, hash); ok {
		c.hits.Add(1)
		metrics.CacheHits.Inc()
		return eval, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if eval, ok := c.lookup(key, hash); ok {
			return eval, nil
		}

		eval, err := engine.Compile(key, text)
		if err != nil {
			c.compileErrors.Add(1)
			metrics.CacheCompileErrors.Inc()
			return nil, err
		}
		c.compiles.Add(1)
		metrics.CacheCompiles.Inc()

		c.mu.Lock()
		c.entries[key] = entry{hash: hash, eval: eval}
		size := len(c.entries)
		c.mu.Unlock()
		metrics.CacheEntries.Set(float64(size))

		return eval, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Evaluator), nil
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) Stats() Stats {
	return Stats{
		Engine:        c.engine.Name(),
		Entries:       c.Len(),
		Compiles:      c.compiles.Load(),
		Hits:          c.hits.Load(),
		CompileErrors: c.compileErrors.Load(),
	}
}

// Reset drops every entry and zeroes the counters.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.compiles.Store(0)
	c.hits.Store(0)
	c.compileErrors.Store(0)
	metrics.CacheEntries.Set(0)
}
