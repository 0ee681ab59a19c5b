package engine

import "github.com/kahrendsen/andersgo/pkg/bitvec"

// Arena owns the node table and the union-find structure over it. It is
// shared by the constraint generator, the offline optimizer, and the
// solver — each of them mutates it through these methods rather than
// touching Node slices directly, so Find/Union stay consistent no
// matter which phase is running.
type Arena struct {
	nodes []Node
	rank  []uint8
}

// NewArena creates an arena pre-seeded with the reserved nodes
// (NodeNone, NodeUnknown).
func NewArena() *Arena {
	a := &Arena{}
	a.nodes = append(a.nodes, newNode(KindObject, "<none>", NodeNone))
	a.nodes = append(a.nodes, newNode(KindObject, "<unknown>", NodeUnknown))
	a.rank = append(a.rank, 0, 0)
	return a
}

// Len returns the number of nodes allocated so far, including reserved
// nodes.
func (a *Arena) Len() int { return len(a.nodes) }

// AddNode allocates a fresh node of the given kind and label, returning
// its ID.
func (a *Arena) AddNode(kind NodeKind, label string) NodeID {
	id := NodeID(len(a.nodes))
	a.nodes = append(a.nodes, newNode(kind, label, id))
	a.rank = append(a.rank, 0)
	return id
}

// AddObjectBlock allocates size contiguous object nodes and returns the
// ID of the first (the block's "field 0" node), recording the block
// size on it so GEP offsets can be bounds-checked.
func (a *Arena) AddObjectBlock(label string, size uint32) NodeID {
	if size == 0 {
		size = 1
	}
	first := a.AddNode(KindObject, label)
	a.nodes[first].ObjSize = size
	for i := uint32(1); i < size; i++ {
		a.AddNode(KindObject, label)
	}
	return first
}

// SetObjectBlockSize stamps size onto id's node as its own block size,
// independent of AddObjectBlock. It lets the constraint generator mark
// a nested aggregate field's head node with its own sub-block size, so
// a GEP chained through that node bounds itself against its own fields
// rather than the enclosing block's total size.
func (a *Arena) SetObjectBlockSize(id NodeID, size uint32) {
	a.nodes[id].ObjSize = size
}

// Node returns a pointer to the raw node entry for id, without
// resolving unions. Callers that need the canonical node should resolve
// with Find first.
func (a *Arena) Node(id NodeID) *Node {
	return &a.nodes[id]
}

// Find returns the representative NodeID for id's union-find set,
// applying path compression.
func (a *Arena) Find(id NodeID) NodeID {
	for a.nodes[id].Rep != id {
		a.nodes[id].Rep = a.nodes[a.nodes[id].Rep].Rep
		id = a.nodes[id].Rep
	}
	return id
}

// Union merges the sets containing x and y, merging the absorbed
// representative's edges and points-to set into the surviving one, and
// returns the survivor. Used by the solver's cycle detection (LCD) and
// by the offline copy-cycle collapse in package optimize, which merges
// nodes proven equivalent before the fixpoint loop even starts.
func (a *Arena) Union(x, y NodeID) NodeID {
	rx, ry := a.Find(x), a.Find(y)
	if rx == ry {
		return rx
	}

	// Union by rank, except that NodeUnknown is always the absorbed
	// side: it never becomes the representative of a merged set.
	if rx == NodeUnknown {
		rx, ry = ry, rx
	}
	if ry != NodeUnknown {
		if a.rank[rx] < a.rank[ry] {
			rx, ry = ry, rx
		} else if a.rank[rx] == a.rank[ry] {
			a.rank[rx]++
		}
	}

	survivor, absorbed := &a.nodes[rx], &a.nodes[ry]
	a.nodes[ry].Rep = rx

	if absorbed.PointsTo != nil {
		if survivor.PointsTo == nil {
			survivor.PointsTo = bitvec.New(a.Len())
		}
		survivor.PointsTo.UnionWith(absorbed.PointsTo)
	}
	survivor.copyEdges = append(survivor.copyEdges, absorbed.copyEdges...)
	survivor.loadEdges = append(survivor.loadEdges, absorbed.loadEdges...)
	survivor.storeEdges = append(survivor.storeEdges, absorbed.storeEdges...)
	survivor.gepEdges = append(survivor.gepEdges, absorbed.gepEdges...)
	survivor.complex = survivor.complex || absorbed.complex

	absorbed.copyEdges = nil
	absorbed.loadEdges = nil
	absorbed.storeEdges = nil
	absorbed.gepEdges = nil
	absorbed.PointsTo = nil
	absorbed.PrevPointsTo = nil

	return rx
}

// AddPointsTo adds obj to id's points-to set, returning true if the set
// changed. id is resolved through Find first.
func (a *Arena) AddPointsTo(id, obj NodeID) bool {
	id = a.Find(id)
	n := &a.nodes[id]
	if n.PointsTo == nil {
		n.PointsTo = bitvec.New(a.Len())
	}
	return n.PointsTo.Add(int(obj))
}

// PointsTo returns the resolved node's points-to set, or nil if empty.
func (a *Arena) PointsTo(id NodeID) *bitvec.Set {
	return a.nodes[a.Find(id)].PointsTo
}

// AddPointsToSet unions other into id's points-to set, returning true
// if anything changed. id is resolved through Find first.
func (a *Arena) AddPointsToSet(id NodeID, other *bitvec.Set) bool {
	if other == nil {
		return false
	}
	id = a.Find(id)
	n := &a.nodes[id]
	if n.PointsTo == nil {
		n.PointsTo = bitvec.New(a.Len())
	}
	return n.PointsTo.UnionWith(other)
}

// AddCopyEdge records src -> dst: src's points-to set flows into dst.
func (a *Arena) AddCopyEdge(src, dst NodeID) {
	src, dst = a.Find(src), a.Find(dst)
	if src == dst {
		return
	}
	n := &a.nodes[src]
	for _, e := range n.copyEdges {
		if e == dst {
			return
		}
	}
	n.copyEdges = append(n.copyEdges, dst)
}

// AddLoadEdge records load(dst, src): every object src points to gets
// its own points-to set merged into dst.
func (a *Arena) AddLoadEdge(src, dst NodeID) {
	src, dst = a.Find(src), a.Find(dst)
	n := &a.nodes[src]
	n.loadEdges = append(n.loadEdges, dst)
	n.complex = true
}

// AddStoreEdge records store(dst, src): every object dst points to gets
// src's points-to set merged into it.
func (a *Arena) AddStoreEdge(dst, src NodeID) {
	dst, src = a.Find(dst), a.Find(src)
	n := &a.nodes[dst]
	n.storeEdges = append(n.storeEdges, src)
	n.complex = true
}

// AddGepEdge records that for every object base points to, field offset
// field of that object flows into dst.
func (a *Arena) AddGepEdge(base NodeID, field int, dst NodeID) {
	base, dst = a.Find(base), a.Find(dst)
	n := &a.nodes[base]
	n.gepEdges = append(n.gepEdges, gepEdge{field: field, dst: dst})
	n.complex = true
}

// FactorLoadStore deduplicates each node's LOAD and STORE edges once a
// node accumulates at least minSz of them, so the solver doesn't
// reprocess the same load(lval, this)/store(this, rval) pair once per
// duplicate constraint the generator emitted (e.g. the same field
// loaded through a pointer inside a loop body). It returns the number
// of duplicate edges removed.
func (a *Arena) FactorLoadStore(minSz int) int {
	removed := 0
	for i := range a.nodes {
		n := &a.nodes[i]
		if len(n.loadEdges) >= minSz {
			before := len(n.loadEdges)
			n.loadEdges = dedupeNodeIDs(n.loadEdges)
			removed += before - len(n.loadEdges)
		}
		if len(n.storeEdges) >= minSz {
			before := len(n.storeEdges)
			n.storeEdges = dedupeNodeIDs(n.storeEdges)
			removed += before - len(n.storeEdges)
		}
	}
	return removed
}

func dedupeNodeIDs(ids []NodeID) []NodeID {
	seen := make(map[NodeID]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// CopyEdges, LoadEdges, StoreEdges, GepEdges expose a resolved node's
// outgoing edges for the optimizer and solver.
func (a *Arena) CopyEdges(id NodeID) []NodeID     { return a.nodes[a.Find(id)].copyEdges }
func (a *Arena) LoadEdges(id NodeID) []NodeID      { return a.nodes[a.Find(id)].loadEdges }
func (a *Arena) StoreEdges(id NodeID) []NodeID     { return a.nodes[a.Find(id)].storeEdges }
func (a *Arena) GepEdgesOf(id NodeID) []gepEdge    { return a.nodes[a.Find(id)].gepEdges }
func (a *Arena) IsComplex(id NodeID) bool          { return a.nodes[a.Find(id)].complex }
func (a *Arena) Label(id NodeID) string            { return a.nodes[id].Label }
func (a *Arena) Kind(id NodeID) NodeKind           { return a.nodes[id].Kind }
func (a *Arena) ObjectBlockSize(id NodeID) uint32  { return a.nodes[id].ObjSize }
