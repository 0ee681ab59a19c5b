// Package layout computes the flattened field layout of IR types (§4.1).
// Field sensitivity means a struct isn't represented by one node: it is
// represented by one contiguous block of object nodes, one per scalar or
// pointer-typed leaf field, in declaration order. Arrays collapse their
// element type to a single slot, matching how the original analysis
// treats arrays (no per-index sensitivity).
package layout

import "github.com/kahrendsen/andersgo/pkg/ir"

// Layout describes how many object nodes a type expands to, and the
// node offset (relative to the block's first node) of each top-level
// field. Offsets beyond len(Off) fall back to the last field's offset,
// modeling C-style "array tail" access into the final aggregate member.
type Layout struct {
	Size uint32 // total object nodes in the block
	Off  []uint32
	// Sz[i] is the number of object nodes field i's own sub-block
	// occupies: 1 for a scalar or pointer leaf, or the nested struct's
	// own total Size when field i is itself an aggregate. A GEP chained
	// through field i's node needs this (not the outer block's total
	// Size) to bound a second-level field access within it — see
	// Analyzer.FieldSize.
	Sz []uint32
}

// Analyzer memoizes per-type layouts so recursive/shared struct types
// are only flattened once.
type Analyzer struct {
	// FieldInsensitive, when true, collapses every type to a
	// single-node layout (spec's FIELD_SENSITIVE=0 mode, §11), trading
	// precision for a much smaller arena.
	FieldInsensitive bool

	cache map[ir.Type]Layout
}

// NewAnalyzer creates a layout analyzer.
func NewAnalyzer(fieldInsensitive bool) *Analyzer {
	return &Analyzer{
		FieldInsensitive: fieldInsensitive,
		cache:            make(map[ir.Type]Layout),
	}
}

// Of returns the layout for t, computing and caching it on first use.
func (a *Analyzer) Of(t ir.Type) Layout {
	if t == nil {
		return Layout{Size: 1, Off: []uint32{0}, Sz: []uint32{1}}
	}
	if a.FieldInsensitive {
		return Layout{Size: 1, Off: []uint32{0}, Sz: []uint32{1}}
	}
	if l, ok := a.cache[t]; ok {
		return l
	}

	// Guard against recursive struct types (e.g. a linked-list node
	// whose field is a pointer back to its own type) by seeding the
	// cache with a provisional single-slot layout before recursing.
	a.cache[t] = Layout{Size: 1, Off: []uint32{0}, Sz: []uint32{1}}

	var l Layout
	switch v := t.(type) {
	case *ir.Struct:
		l = a.flattenStruct(v)
	case *ir.Array:
		// The element layout is collapsed to one slot regardless of
		// its own internal structure's size, since array indices are
		// not tracked individually.
		l = Layout{Size: 1, Off: []uint32{0}, Sz: []uint32{1}}
	default:
		l = Layout{Size: 1, Off: []uint32{0}, Sz: []uint32{1}}
	}

	a.cache[t] = l
	return l
}

func (a *Analyzer) flattenStruct(s *ir.Struct) Layout {
	if len(s.Fields) == 0 {
		return Layout{Size: 1, Off: []uint32{0}, Sz: []uint32{1}}
	}

	off := make([]uint32, len(s.Fields))
	sz := make([]uint32, len(s.Fields))
	var total uint32
	for i, f := range s.Fields {
		off[i] = total
		if nested, ok := f.Type.(*ir.Struct); ok {
			nestedSize := a.flattenStruct(nested).Size
			sz[i] = nestedSize
			total += nestedSize
		} else {
			sz[i] = 1
			total++
		}
	}
	return Layout{Size: total, Off: off, Sz: sz}
}

// FieldOffset returns the object-node offset of the given top-level
// field index within t's layout, clamping to the last field if index is
// out of range (mirrors tail-access-past-declared-fields behavior).
func (a *Analyzer) FieldOffset(t ir.Type, index int) uint32 {
	l := a.Of(t)
	if len(l.Off) == 0 {
		return 0
	}
	if index < 0 {
		index = 0
	}
	if index >= len(l.Off) {
		index = len(l.Off) - 1
	}
	return l.Off[index]
}

// FieldSize returns the number of object nodes the given top-level
// field index's own sub-block occupies — 1 for a scalar/pointer leaf,
// or a nested struct's own total size. The generator uses this to stamp
// a block size onto a nested aggregate field's head node, so a GEP
// chained through it (e.g. t.s.b where s is itself a struct field of t)
// can bound itself correctly instead of inheriting the outer block's
// much larger total size.
func (a *Analyzer) FieldSize(t ir.Type, index int) uint32 {
	l := a.Of(t)
	if len(l.Sz) == 0 {
		return 1
	}
	if index < 0 {
		index = 0
	}
	if index >= len(l.Sz) {
		index = len(l.Sz) - 1
	}
	return l.Sz[index]
}
