package seqre

import (
	log "github.com/sirupsen/logrus"
)

// cacheKey identifies a memoized computation by operator and operand ids.
// Missing operands have id -1.
type cacheKey struct {
	op      Op
	a, b, c int
}

// opCache memoizes rewrite results of nullability, derivative and
// if-then-else combination. Entries are never evicted one by one: the
// whole cache is reset once it holds maxSize entries.
type opCache struct {
	maxSize int
	m       map[cacheKey]*Expr
	resets  int
}

func newOpCache(maxSize int) *opCache {
	if maxSize <= 0 {
		maxSize = DefaultMaxCacheSize
	}
	return &opCache{maxSize: maxSize, m: make(map[cacheKey]*Expr)}
}

func newCacheKey(op Op, a, b, c *Expr) cacheKey {
	return cacheKey{op: op, a: exprID(a), b: exprID(b), c: exprID(c)}
}

func exprID(e *Expr) int {
	if e == nil {
		return -1
	}
	return e.id
}

// find returns the memoized result, or nil.
func (c *opCache) find(op Op, a, b, cc *Expr) *Expr {
	return c.m[newCacheKey(op, a, b, cc)]
}

// insert memoizes r, resetting the cache first if it is full.
func (c *opCache) insert(op Op, a, b, cc, r *Expr) {
	if len(c.m) >= c.maxSize {
		log.WithField("size", len(c.m)).Debug("op cache reset")
		c.clear()
		c.resets++
	}
	c.m[newCacheKey(op, a, b, cc)] = r
}

// clear removes all entries.
func (c *opCache) clear() {
	clear(c.m)
}

// len returns the number of entries.
func (c *opCache) len() int {
	return len(c.m)
}
