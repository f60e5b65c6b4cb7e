package exprscore

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultCacheSize bounds a ProgramCache created with a non-positive size.
const DefaultCacheSize = 1000

// ProgramCache is a thread-safe LRU of compiled expr programs keyed by their
// source. Programs compiled with differing options need distinct keys, see
// CompileKey.
type ProgramCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	maxSize int
	hits    int64
	misses  int64
}

type cacheEntry struct {
	expression string
	program    *vm.Program
}

// NewProgramCache returns an empty cache holding at most maxSize programs.
func NewProgramCache(maxSize int) *ProgramCache {
	if maxSize < 1 {
		maxSize = DefaultCacheSize
	}
	return &ProgramCache{
		entries: make(map[string]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// Get returns the cached program for expression, marking it most recently
// used.
func (c *ProgramCache) Get(expression string) (*vm.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[expression]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheEntry).program, true
}

// Put stores program, evicting the least recently used entry when full.
func (c *ProgramCache) Put(expression string, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[expression]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).program = program
		return
	}
	c.entries[expression] = c.lru.PushFront(&cacheEntry{expression: expression, program: program})
	c.evict()
}

// Compile returns the cached program for expression, compiling and caching
// it on a miss. Compile errors are not cached.
func (c *ProgramCache) Compile(expression string, opts ...expr.Option) (*vm.Program, error) {
	return c.CompileKey(expression, expression, opts...)
}

// CompileKey is Compile with an explicit cache key, for callers whose
// options vary with something other than the source.
func (c *ProgramCache) CompileKey(key, expression string, opts ...expr.Option) (*vm.Program, error) {
	if program, ok := c.Get(key); ok {
		return program, nil
	}
	program, err := expr.Compile(expression, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}
	c.Put(key, program)
	return program, nil
}

// Resize changes the bound, evicting immediately if needed.
func (c *ProgramCache) Resize(maxSize int) {
	if maxSize < 1 {
		maxSize = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = maxSize
	c.evict()
}

func (c *ProgramCache) evict() {
	for c.lru.Len() > c.maxSize {
		elem := c.lru.Back()
		delete(c.entries, elem.Value.(*cacheEntry).expression)
		c.lru.Remove(elem)
	}
}

// Clear empties the cache. Statistics are kept.
func (c *ProgramCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
}

// Len returns the number of cached programs.
func (c *ProgramCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns the size and hit/miss counters.
func (c *ProgramCache) Stats() (size int, hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len(), c.hits, c.misses
}

func (c *ProgramCache) String() string {
	size, hits, misses := c.Stats()
	ratio := 0.0
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return fmt.Sprintf("ProgramCache{size=%d, hits=%d, misses=%d, hit_ratio=%.2f%%}", size, hits, misses, ratio*100)
}
