// Package optimize performs the offline passes (§4.4) that run once,
// before the fixpoint solver starts, to shrink the constraint graph it
// has to iterate over:
//
//   - SeedAddrOf folds every AddrOf constraint directly into its
//     target's points-to set up front, since AddrOf never needs a
//     fixpoint — it's a fact, not a propagation rule.
//   - CollapseCycles (the offline half of hybrid cycle detection, HCD)
//     finds strongly-connected components in the copy-only subgraph —
//     the part of the graph that's static before solving begins — and
//     unions each one to a single representative, since nodes in a
//     cycle of COPY edges always end up with identical points-to sets.
//   - FactorLoadStore dedups a node's repeated LOAD/STORE edges once it
//     has accumulated at least FactorLSMinSz of them, so a field
//     dereferenced through the same pointer many times (e.g. inside a
//     loop) costs the solver one propagation per distinct edge instead
//     of one per occurrence in the source.
//
// Full hash-value numbering (HVN/HU/HR) — offline node merging by
// structural or points-to hash equivalence, iterated to a fixpoint — is
// not implemented; see the accompanying design notes for the scope-cut
// rationale. What this package drops, the solver's online LCD pass
// recovers at runtime instead.
package optimize

import "github.com/kahrendsen/andersgo/internal/engine"

// Result reports how much the offline passes shrank the problem.
type Result struct {
	SeededAddrOf    int
	CyclesCollapsed int
	NodesMerged     int
	LSFactored      int
}

// Run executes the offline passes over constraints, applying AddrOf
// immediately and returning the remaining (non-AddrOf) constraints for
// the solver, plus a summary of what the other passes did.
// factorLSMinSz is pkg/config's engine.factor_ls_min_sz: the minimum
// number of LOAD or STORE edges a node must carry before
// FactorLoadStore bothers deduplicating it; values <= 1 disable the
// pass (every node already has at least one edge, so there'd be
// nothing left to skip).
func Run(a *engine.Arena, cs []engine.Constraint, factorLSMinSz int) ([]engine.Constraint, Result) {
	var res Result
	remaining := cs[:0:0]

	for _, c := range cs {
		if c.Kind == engine.AddrOf {
			engine.Apply(a, c)
			res.SeededAddrOf++
			continue
		}
		remaining = append(remaining, c)
	}

	merged := collapseCopyCycles(a, remaining)
	res.CyclesCollapsed = merged.cycles
	res.NodesMerged = merged.nodes

	if factorLSMinSz > 1 {
		res.LSFactored = a.FactorLoadStore(factorLSMinSz)
	}

	return remaining, res
}

type cycleSummary struct {
	cycles int
	nodes  int
}

// collapseCopyCycles builds the copy-only graph implied by remaining,
// finds its strongly-connected components with Tarjan's algorithm, and
// unions every node in a nontrivial component.
func collapseCopyCycles(a *engine.Arena, remaining []engine.Constraint) cycleSummary {
	adj := make(map[engine.NodeID][]engine.NodeID)
	nodeSet := make(map[engine.NodeID]bool)

	for _, c := range remaining {
		if c.Kind != engine.Copy {
			continue
		}
		src, dst := a.Find(c.Src), a.Find(c.Dst)
		adj[src] = append(adj[src], dst)
		nodeSet[src] = true
		nodeSet[dst] = true
	}

	t := &tarjan{
		adj:     adj,
		index:   make(map[engine.NodeID]int),
		lowlink: make(map[engine.NodeID]int),
		onStack: make(map[engine.NodeID]bool),
	}

	for n := range nodeSet {
		if _, seen := t.index[n]; !seen {
			t.strongConnect(n)
		}
	}

	summary := cycleSummary{}
	for _, scc := range t.sccs {
		if len(scc) < 2 {
			continue
		}
		summary.cycles++
		summary.nodes += len(scc)
		rep := scc[0]
		for _, n := range scc[1:] {
			rep = a.Union(rep, n)
		}
	}
	return summary
}

// tarjan is a minimal iterative-enough (recursive, since constraint
// graphs from realistic modules don't approach Go's stack limits)
// implementation of Tarjan's SCC algorithm.
type tarjan struct {
	adj     map[engine.NodeID][]engine.NodeID
	index   map[engine.NodeID]int
	lowlink map[engine.NodeID]int
	onStack map[engine.NodeID]bool
	stack   []engine.NodeID
	counter int
	sccs    [][]engine.NodeID
}

func (t *tarjan) strongConnect(v engine.NodeID) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.adj[v] {
		if _, seen := t.index[w]; !seen {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []engine.NodeID
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.sccs = append(t.sccs, scc)
	}
}
