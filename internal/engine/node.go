// Package engine implements the inclusion-based (Andersen-style),
// field-sensitive, context-insensitive pointer analysis: constraint
// generation, offline optimization, and the fixpoint solver, all
// addressed through a single arena of NodeIDs rather than pointers so
// the constraint graph can be cyclic without fighting Go's garbage
// collector or ownership rules.
package engine

import "github.com/kahrendsen/andersgo/pkg/bitvec"

// NodeID identifies a node in the engine's arena. The zero value is
// reserved and never assigned to a real node, so a NodeID can double as
// an "absent" sentinel in maps and slices.
type NodeID uint32

// Reserved node IDs, allocated once when the arena is created. They
// exist so every node kind has a concrete place to point when the
// program being analyzed has no more specific target.
const (
	// NodeNone is the invalid/absent NodeID (the zero value).
	NodeNone NodeID = 0
	// NodeUnknown is the object every external, unmodeled allocation
	// is treated as pointing to, and the seed an uninitialized
	// pointer-typed global is given when CheckGlobalNull is enabled —
	// the conservative "points to something, we don't know what"
	// target. With CheckGlobalNull at its default (off), an
	// uninitialized global is left with an empty points-to set instead.
	NodeUnknown NodeID = 1
	// firstUserNode is the first NodeID the arena hands out to actual
	// IR values.
	firstUserNode NodeID = 2
)

// NodeKind classifies what a node represents.
type NodeKind int

const (
	// KindVar is a plain value node: a variable, temporary, or
	// parameter that can point somewhere but has no address of its
	// own taken.
	KindVar NodeKind = iota
	// KindObject is an object node: the target a VAR node's
	// points-to set can contain. Every address-taken variable,
	// allocation site, global, and address-taken function gets
	// exactly one, at a fixed offset from its block's first node
	// (§3 struct expansion).
	KindObject
	// KindFunc is an object node standing for a function itself,
	// the target of `&f` and the thing resolved through an
	// IndirectCall's points-to set.
	KindFunc
)

// Node is one entry in the engine's arena. Nodes are stored by value in
// a single growable slice (Arena.nodes) and referenced exclusively by
// NodeID; there are no pointers between nodes.
type Node struct {
	Kind NodeKind

	// Label is a human-readable name used only for diagnostics
	// (pkg/ptsquery, diag package) — never consulted by the solver.
	Label string

	// Rep is this node's representative in the union-find structure
	// used to collapse cycles detected by the solver (LCD) and by the
	// offline copy-cycle collapse. Rep == the node's own ID iff it is
	// currently its own representative.
	Rep NodeID

	// ObjSize is the number of contiguous object nodes that make up
	// this node's block when Kind == KindObject and the node is the
	// block's first node (the field-0 node), or the head node of a
	// nested aggregate field, which Arena.SetObjectBlockSize stamps
	// with that field's own sub-block size. It is 0 for every other
	// node.
	ObjSize uint32

	// PointsTo is this node's current points-to set. For a VAR node it
	// is what the variable may point to; for an object node it is what
	// may be stored in that object (filled by STORE constraints and
	// read back by LOAD constraints).
	PointsTo *bitvec.Set

	// PrevPointsTo is the points-to set as of the last time this
	// node's outgoing copy/load/store edges were processed. The
	// solver diffs PointsTo against PrevPointsTo to find the
	// "new" pts-to elements it still needs to propagate (a single
	// generation is all that interprocedural, context-insensitive
	// Andersen analysis needs — no new/old alternation beyond one
	// step is required).
	PrevPointsTo *bitvec.Set

	// copyEdges are outgoing COPY-constraint targets: this node's
	// points-to set flows into each of them.
	copyEdges []NodeID

	// loadEdges are LOAD constraints load(lval, this): whenever this
	// node gains a points-to member o, lval gains everything o points
	// to.
	loadEdges []NodeID

	// storeEdges are STORE constraints store(this, rval): whenever
	// this node gains a points-to member o, o gains everything rval
	// points to.
	storeEdges []NodeID

	// gepEdges are field-sensitive offsets applied through this node:
	// (field, dst) pairs meaning "for every object o this node points
	// to, dst gains o+field".
	gepEdges []gepEdge

	// complex marks that this node participates in at least one
	// LOAD/STORE/GEP constraint and therefore needs rescanning as its
	// points-to set grows, even if no new COPY edges are touched by
	// a given worklist pass.
	complex bool

	// LastFired is the solver's vtime at the last point this node was
	// popped off the worklist and processed; zero means it has never
	// fired. WL_PRIO's LRF (least-recently-fired) discipline prioritizes
	// the smallest LastFired value first, so a node that has never run
	// (or hasn't run in a long time) is scheduled ahead of one that just
	// ran and is unlikely to have new work yet (§4.5/§6.4).
	LastFired int
}

type gepEdge struct {
	field int
	dst   NodeID
}

// Field returns the field offset the edge applies.
func (e gepEdge) Field() int { return e.field }

// Dst returns the node that receives the offset address.
func (e gepEdge) Dst() NodeID { return e.dst }

func newNode(kind NodeKind, label string, id NodeID) Node {
	return Node{
		Kind:  kind,
		Label: label,
		Rep:   id,
	}
}
