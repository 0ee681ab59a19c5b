// Package setcache implements the set expansion cache (§4.6): the role
// a BDD library would normally play, interning repeated points-to sets
// so structurally identical sets share one backing allocation instead of
// being duplicated across thousands of nodes. There is no BDD library in
// the dependency stack available to this project (§11 Design Notes), so
// the cache is built on pkg/bitvec.Set, which the spec explicitly
// allows as a swappable in-memory backend.
package setcache

import (
	"container/list"

	"github.com/kahrendsen/andersgo/pkg/bitvec"
)

// Cache interns *bitvec.Set values by content hash, evicting
// least-recently-used entries once MaxEntries is exceeded.
type Cache struct {
	maxEntries int
	lru        *list.List
	index      map[uint64][]*list.Element
}

type entry struct {
	hash uint64
	set  *bitvec.Set
}

// New creates a cache that holds at most maxEntries distinct sets.
// The solver passes its LCDSize option as maxEntries; the cache itself
// only counts entries.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	return &Cache{
		maxEntries: maxEntries,
		lru:        list.New(),
		index:      make(map[uint64][]*list.Element),
	}
}

// Intern returns a canonical *bitvec.Set equal to s: either s itself, or
// a previously cached set with identical contents. Callers should treat
// the returned set as shared and never mutate it in place.
func (c *Cache) Intern(s *bitvec.Set) *bitvec.Set {
	h := s.Hash()
	for _, el := range c.index[h] {
		cached := el.Value.(*entry).set
		if cached.Equal(s) {
			c.lru.MoveToFront(el)
			return cached
		}
	}

	el := c.lru.PushFront(&entry{hash: h, set: s})
	c.index[h] = append(c.index[h], el)
	c.evictIfNeeded()
	return s
}

// Len returns the number of distinct sets currently cached.
func (c *Cache) Len() int { return c.lru.Len() }

func (c *Cache) evictIfNeeded() {
	for c.lru.Len() > c.maxEntries {
		oldest := c.lru.Back()
		if oldest == nil {
			return
		}
		e := oldest.Value.(*entry)
		c.lru.Remove(oldest)
		c.removeFromIndex(e.hash, oldest)
	}
}

func (c *Cache) removeFromIndex(hash uint64, target *list.Element) {
	elems := c.index[hash]
	for i, el := range elems {
		if el == target {
			c.index[hash] = append(elems[:i], elems[i+1:]...)
			break
		}
	}
	if len(c.index[hash]) == 0 {
		delete(c.index, hash)
	}
}
