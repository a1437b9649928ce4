// Package project is the commit projector (component D, spec §4.4): it
// walks a commit DAG and lifts the tree transformer (internal/treeproj) to
// commits, memoizing results in a bidirectional oid↔oid cache (ViewMap)
// owned by a Transaction.
package project

import (
	"github.com/joshproj/josh/plumbing"
)

// Cache is the ViewMap (spec §3 "ViewMap (projection cache)"): two
// directed oid→oid mappings per (repository, filter) pair. It is a
// monotonically growing memo — entries are never overwritten with a
// different value.
type Cache struct {
	forward  map[plumbing.Oid]plumbing.Oid
	backward map[plumbing.Oid]plumbing.Oid
}

// NewCache returns an empty ViewMap.
func NewCache() *Cache {
	return &Cache{
		forward:  make(map[plumbing.Oid]plumbing.Oid),
		backward: make(map[plumbing.Oid]plumbing.Oid),
	}
}

// Forward returns the projected oid for an original commit oid, if known.
func (c *Cache) Forward(original plumbing.Oid) (plumbing.Oid, bool) {
	oid, ok := c.forward[original]
	return oid, ok
}

// Backward returns the original oid for a projected commit oid, if known.
func (c *Cache) Backward(projected plumbing.Oid) (plumbing.Oid, bool) {
	oid, ok := c.backward[projected]
	return oid, ok
}

// setForward records forward[original] = projected. It is a defect to
// call this twice for the same original with two different projected
// values; the cache is a monotonic memo (spec §3 ViewMap invariant 3).
func (c *Cache) setForward(original, projected plumbing.Oid) {
	c.forward[original] = projected
}

// setBackward records backward[projected] = original.
func (c *Cache) setBackward(projected, original plumbing.Oid) {
	c.backward[projected] = original
}

// Len reports how many original commits have a recorded projection,
// useful for tests and diagnostics.
func (c *Cache) Len() int { return len(c.forward) }
