// Package bitvec provides a dense, growable bit-vector set used as the
// points-to set representation throughout the engine. It plays the role a
// BDD library would in a larger implementation: a compact, shareable
// encoding of "this node's points-to set" that supports cheap union,
// subset tests, and change detection during fixpoint iteration.
//
// There is no BDD package in the available dependency stack, so the
// engine substitutes a word-packed bitset modeled on collections.Bitset,
// extended with the union-with-change-detection and hashing operations
// the solver needs.
package bitvec

import (
	"hash/maphash"
	"math/bits"
)

// Set is a growable set of non-negative integers backed by a []uint64
// bit vector.
type Set struct {
	words []uint64
}

// New creates an empty set with room for at least capacity bits.
func New(capacity int) *Set {
	n := (capacity + 63) / 64
	if n == 0 {
		n = 1
	}
	return &Set{words: make([]uint64, n)}
}

// Add sets bit i, returning true if it was not already set.
func (s *Set) Add(i int) bool {
	s.ensure(i)
	w, b := i/64, uint(i%64)
	mask := uint64(1) << b
	if s.words[w]&mask != 0 {
		return false
	}
	s.words[w] |= mask
	return true
}

// Has reports whether bit i is set.
func (s *Set) Has(i int) bool {
	w := i / 64
	if w < 0 || w >= len(s.words) {
		return false
	}
	return s.words[w]&(uint64(1)<<uint(i%64)) != 0
}

// Remove clears bit i.
func (s *Set) Remove(i int) {
	w := i / 64
	if w < 0 || w >= len(s.words) {
		return
	}
	s.words[w] &^= uint64(1) << uint(i%64)
}

// Len returns the number of set bits.
func (s *Set) Len() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// IsEmpty reports whether the set has no members.
func (s *Set) IsEmpty() bool {
	for _, w := range s.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the set.
func (s *Set) Clone() *Set {
	words := make([]uint64, len(s.words))
	copy(words, s.words)
	return &Set{words: words}
}

// UnionWith ORs other into s in place, returning true if s changed. This
// is the hot operation driven by the solver's COPY/LOAD/STORE
// propagation and is why the set needs no allocation on the common,
// no-op path.
func (s *Set) UnionWith(other *Set) bool {
	if other == nil {
		return false
	}
	if len(other.words) > len(s.words) {
		s.growTo(len(other.words))
	}
	changed := false
	for i, w := range other.words {
		if w == 0 {
			continue
		}
		before := s.words[i]
		after := before | w
		if after != before {
			s.words[i] = after
			changed = true
		}
	}
	return changed
}

// IsSubsetOf reports whether every bit set in s is also set in other.
func (s *Set) IsSubsetOf(other *Set) bool {
	for i, w := range s.words {
		if w == 0 {
			continue
		}
		if i >= len(other.words) {
			return false
		}
		if w&^other.words[i] != 0 {
			return false
		}
	}
	return true
}

// Equal reports whether s and other contain the same members.
func (s *Set) Equal(other *Set) bool {
	n := len(s.words)
	if len(other.words) > n {
		n = len(other.words)
	}
	for i := 0; i < n; i++ {
		var a, b uint64
		if i < len(s.words) {
			a = s.words[i]
		}
		if i < len(other.words) {
			b = other.words[i]
		}
		if a != b {
			return false
		}
	}
	return true
}

// ForEach calls fn for every set bit in ascending order. Iteration stops
// early if fn returns false.
func (s *Set) ForEach(fn func(i int) bool) {
	for wi, w := range s.words {
		base := wi * 64
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			if !fn(base + tz) {
				return
			}
			w &= w - 1
		}
	}
}

// Slice returns the set members as a sorted slice.
func (s *Set) Slice() []int {
	out := make([]int, 0, s.Len())
	s.ForEach(func(i int) bool {
		out = append(out, i)
		return true
	})
	return out
}

// Clear empties the set without releasing its backing array.
func (s *Set) Clear() {
	for i := range s.words {
		s.words[i] = 0
	}
}

var hashSeed = maphash.MakeSeed()

// Hash returns a content hash suitable for grouping nodes with identical
// points-to sets, as used by setcache to index interned sets.
func (s *Set) Hash() uint64 {
	var h maphash.Hash
	h.SetSeed(hashSeed)
	buf := make([]byte, 8)
	for _, w := range s.words {
		if w == 0 {
			continue
		}
		for i := 0; i < 8; i++ {
			buf[i] = byte(w >> (8 * i))
		}
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}

func (s *Set) ensure(i int) {
	w := i / 64
	if w < len(s.words) {
		return
	}
	s.growTo(w + 1)
}

func (s *Set) growTo(words int) {
	if words <= len(s.words) {
		return
	}
	newCap := len(s.words) * 2
	if newCap < words {
		newCap = words
	}
	grown := make([]uint64, newCap)
	copy(grown, s.words)
	s.words = grown
}
