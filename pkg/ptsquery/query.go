// Package ptsquery is the client-facing read side of a finished analysis
// (§4.7): given the arena and bookkeeping an internal/analysis.Run
// produced, it answers points-to, alias, and reachability questions
// without exposing internal/engine's NodeID arithmetic to callers.
package ptsquery

import (
	"sort"

	"github.com/kahrendsen/andersgo/internal/engine"
	"github.com/kahrendsen/andersgo/internal/engine/constraints"
	"github.com/kahrendsen/andersgo/pkg/collections"
	"github.com/kahrendsen/andersgo/pkg/ir"
)

// Query answers questions against one finished analysis run. It holds
// no mutable state of its own — every method re-reads the arena, so
// results would reflect any solving done after Bind (no caller in this
// module solves after Bind).
type Query struct {
	arena      *engine.Arena
	valueNodes map[ir.Value]engine.NodeID
	objNodes   map[ir.Value]engine.NodeID
}

// Bind wraps the arena and node tables produced by a generator run so
// a caller can query it by ir.Value instead of engine.NodeID.
func Bind(arena *engine.Arena, gen *constraints.Result) *Query {
	return &Query{arena: arena, valueNodes: gen.ValueNodes, objNodes: gen.ObjNodes}
}

// objectOf resolves v to the node naming the object &v refers to,
// falling back to its plain value node if v was never address-taken —
// lets Reachable's target argument be either a pointer variable or the
// addressable thing it points at.
func (q *Query) objectOf(v ir.Value) (engine.NodeID, bool) {
	if id, ok := q.objNodes[v]; ok {
		return id, true
	}
	id, ok := q.valueNodes[v]
	return id, ok
}

// PointsTo returns the sorted, human-readable labels of every object v
// may point to. The second return is false if v was never seen during
// generation (so has no node at all), distinct from "node exists but
// points to nothing".
func (q *Query) PointsTo(v ir.Value) ([]string, bool) {
	id, ok := q.valueNodes[v]
	if !ok {
		return nil, false
	}
	pts := q.arena.PointsTo(id)
	if pts == nil {
		return nil, true
	}
	labels := make([]string, 0, pts.Len())
	pts.ForEach(func(obj int) bool {
		labels = append(labels, q.arena.Label(engine.NodeID(obj)))
		return true
	})
	sort.Strings(labels)
	return labels, true
}

// MayAlias reports whether a and b's points-to sets share at least one
// object — the standard may-alias query (§4.7): true is conservative
// (a real alias analysis never has false negatives here), false is a
// hard guarantee the two values never refer to the same location.
func (q *Query) MayAlias(a, b ir.Value) bool {
	idA, okA := q.valueNodes[a]
	idB, okB := q.valueNodes[b]
	if !okA || !okB {
		return false
	}
	ptsA := q.arena.PointsTo(idA)
	ptsB := q.arena.PointsTo(idB)
	if ptsA == nil || ptsB == nil {
		return false
	}
	shared := false
	ptsA.ForEach(func(obj int) bool {
		if ptsB.Has(obj) {
			shared = true
			return false
		}
		return true
	})
	return shared
}

// Reachable reports whether obj is in from's transitive points-to
// closure after following LOAD edges through every object from may
// point to — i.e. whether `from` can reach `obj` through some chain of
// field dereferences. This is the heap-reachability query used by
// escape-style clients that need more than direct points-to.
func (q *Query) Reachable(from ir.Value, obj ir.Value) bool {
	fromID, ok := q.valueNodes[from]
	if !ok {
		return false
	}
	objID, ok := q.objectOf(obj)
	if !ok {
		return false
	}
	target := q.arena.Find(objID)

	visited := collections.NewBitset(q.arena.Len())
	var stack []engine.NodeID

	pts := q.arena.PointsTo(fromID)
	if pts == nil {
		return false
	}
	pts.ForEach(func(o int) bool {
		stack = append(stack, engine.NodeID(o))
		return true
	})

	for len(stack) > 0 {
		n := len(stack) - 1
		cur := q.arena.Find(stack[n])
		stack = stack[:n]
		if visited.Test(int(cur)) {
			continue
		}
		visited.Set(int(cur))
		if cur == target {
			return true
		}
		curPts := q.arena.PointsTo(cur)
		if curPts == nil {
			continue
		}
		curPts.ForEach(func(o int) bool {
			stack = append(stack, engine.NodeID(o))
			return true
		})
	}
	return false
}

// Callees returns the labels of every function an indirect-call-site
// pointer's points-to set currently contains. A client passes the
// value used as the IndirectCall's Callee operand.
func (q *Query) Callees(funcPtr ir.Value) []string {
	id, ok := q.valueNodes[funcPtr]
	if !ok {
		return nil
	}
	pts := q.arena.PointsTo(id)
	if pts == nil {
		return nil
	}
	var out []string
	pts.ForEach(func(obj int) bool {
		oid := engine.NodeID(obj)
		if q.arena.Kind(oid) == engine.KindFunc {
			out = append(out, q.arena.Label(oid))
		}
		return true
	})
	sort.Strings(out)
	return out
}
