package compiler

import "github.com/meikuraledutech/dialog/runtime"

// Entry is the compiled form of one graph node: a handle into the tree of
// the pass that produced it.
type Entry struct {
	Tree   *runtime.Tree
	Handle runtime.Handle
}

// Cache maps graph node identities to their compiled entries. A missing
// entry means the node must be compiled again. Cache is not safe for
// concurrent use.
type Cache struct {
	entries map[string]Entry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// Get returns the entry for id.
func (c *Cache) Get(id string) (Entry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// Put stores the entry for id.
func (c *Cache) Put(id string, e Entry) {
	c.entries[id] = e
}

// Invalidate clears id and, transitively, every descendant reported by
// children. Recursion stops at nodes that are already cleared. It returns
// the number of entries removed.
func (c *Cache) Invalidate(id string, children func(id string) []string) int {
	if _, ok := c.entries[id]; !ok {
		return 0
	}
	delete(c.entries, id)
	n := 1
	if children == nil {
		return n
	}
	for _, child := range children(id) {
		n += c.Invalidate(child, children)
	}
	return n
}

// Clear drops every entry.
func (c *Cache) Clear() {
	clear(c.entries)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int { return len(c.entries) }
