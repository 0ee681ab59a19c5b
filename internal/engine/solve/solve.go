// Package solve implements the fixpoint worklist solver (§4.5): it
// repeatedly drains the worklist, propagating each node's points-to set
// along its COPY/LOAD/STORE/GEP edges until nothing changes, resolving
// indirect calls on the fly as their function-pointer operand's
// points-to set reveals new callees, and applying LCD (lazy/online
// cycle detection) to collapse COPY cycles the offline optimizer never
// saw — accumulating candidate edges as propagation proves pairs of
// nodes equivalent, then unioning whatever an SCC pass over that
// candidate subgraph confirms is a genuine cycle.
package solve

import (
	"runtime"
	"time"

	"github.com/kahrendsen/andersgo/internal/engine"
	"github.com/kahrendsen/andersgo/internal/engine/constraints"
	"github.com/kahrendsen/andersgo/internal/engine/setcache"
	"github.com/kahrendsen/andersgo/internal/engine/worklist"
	"github.com/kahrendsen/andersgo/pkg/bitvec"
)

// TerminationReason explains why Run stopped.
type TerminationReason string

const (
	Converged    TerminationReason = "converged"
	RAMLimitHit  TerminationReason = "ram_limit"
	TimeLimitHit TerminationReason = "time_limit"
)

// Options configures the solver (§6.4 Configuration).
type Options struct {
	WLOrder    worklist.Order
	DualWL     bool
	RAMLimitMB int // 0 disables the check
	TimeLimit  time.Duration
	LCDSize    int // cache size for online equivalence detection; 0 disables LCD
	LCDPeriod  int // run LCD every N processed nodes
}

// Stats summarizes one solver run for diagnostics and persistence.
type Stats struct {
	NodesProcessed    int
	ConstraintsSeeded int
	LCDMerges         int
	Duration          time.Duration
	Termination       TerminationReason
}

// Run drives the fixpoint to completion (or until a resource limit
// fires) over the constraints and call sites the generator produced.
func Run(res *constraints.Result, opt Options) Stats {
	s := &solver{
		arena:         res.Arena,
		funcSigs:      res.FuncSigs,
		indirectCalls: res.IndirectCalls,
		opt:           opt,
		wl:            worklist.New(opt.WLOrder, opt.DualWL),
		wired:         make(map[wireKey]bool),
		callSitesByFP: make(map[engine.NodeID][]int),
		lcdCandidates: make(map[engine.NodeID]bool),
	}
	if opt.LCDSize > 0 {
		s.lcdCache = setcache.New(opt.LCDSize)
	}

	for i, cs := range res.IndirectCalls {
		fp := s.arena.Find(cs.FuncPtr)
		s.callSitesByFP[fp] = append(s.callSitesByFP[fp], i)
	}

	for _, c := range res.Constraints {
		engine.Apply(s.arena, c)
	}

	return s.run()
}

type wireKey struct {
	site int
	fn   engine.NodeID
}

type solver struct {
	arena         *engine.Arena
	funcSigs      map[engine.NodeID]constraints.FuncSig
	indirectCalls []constraints.IndirectCallSite
	opt           Options

	wl            *worklist.Worklist
	wired         map[wireKey]bool
	callSitesByFP map[engine.NodeID][]int

	lcdCache      *setcache.Cache
	lcdCandidates map[engine.NodeID]bool
	lcdEdges      []lcdEdge

	vtime int // monotonically increasing fire counter backing WL_PRIO's LRF ordering

	stats Stats
}

// priority returns id's scheduling priority under WL_PRIO: its
// LastFired vtime, so the least-recently-fired node among those pending
// sorts first. A node that has never fired has LastFired == 0, the
// lowest possible value, so first-time work always goes ahead of
// already-seen nodes.
func (s *solver) priority(id engine.NodeID) int {
	return s.arena.Node(s.arena.Find(id)).LastFired
}

// markFired bumps id's vtime to the solver's current fire counter,
// recording that it was just processed.
func (s *solver) markFired(id engine.NodeID) {
	s.vtime++
	s.arena.Node(id).LastFired = s.vtime
}

// lcdEdge is a copy edge recorded as an LCD candidate: propagating
// src's points-to set along it left dst holding exactly src's set,
// which is what a node on a yet-undiscovered cycle of COPY edges looks
// like mid-solve (everything on the cycle converges to one shared set).
// It is only a candidate — two nodes can coincidentally reach equal
// sets with no edge between them at all, which is the bug this replaces
// (see runLCD).
type lcdEdge struct {
	src, dst engine.NodeID
}

func (s *solver) run() Stats {
	start := time.Now()
	s.seedWorklist()

	processed := 0
	for {
		if s.wl.Empty() {
			s.wl.Swap()
			if s.wl.Empty() {
				break
			}
		}

		id, ok := s.wl.Pop()
		if !ok {
			s.wl.Swap()
			continue
		}

		s.processNode(engine.NodeID(id))
		processed++

		if s.opt.TimeLimit > 0 && time.Since(start) > s.opt.TimeLimit {
			s.stats.Termination = TimeLimitHit
			s.finish(start, processed)
			return s.stats
		}
		if s.opt.RAMLimitMB > 0 && processed%4096 == 0 && overRAMLimit(s.opt.RAMLimitMB) {
			s.stats.Termination = RAMLimitHit
			s.finish(start, processed)
			return s.stats
		}
		if s.opt.LCDPeriod > 0 && s.lcdCache != nil && processed%s.opt.LCDPeriod == 0 {
			s.runLCD()
		}
	}

	s.stats.Termination = Converged
	s.finish(start, processed)
	return s.stats
}

func (s *solver) finish(start time.Time, processed int) {
	s.stats.NodesProcessed = processed
	s.stats.Duration = time.Since(start)
}

// seedWorklist pushes every node whose points-to set is already
// non-empty (from the offline AddrOf seeding pass) so the first round
// of propagation has something to do.
func (s *solver) seedWorklist() {
	for id := engine.NodeID(0); int(id) < s.arena.Len(); id++ {
		if s.arena.Find(id) != id {
			continue
		}
		if pts := s.arena.PointsTo(id); pts != nil && !pts.IsEmpty() {
			s.wl.Push(int(id), s.priority(id))
		}
	}
}

// processNode propagates id's current points-to set along its edges,
// restricting LOAD/STORE/GEP effects to the members added since the
// last time id was processed.
func (s *solver) processNode(id engine.NodeID) {
	id = s.arena.Find(id)
	cur := s.arena.PointsTo(id)
	if cur == nil {
		return
	}

	s.markFired(id)

	node := s.arena.Node(id)
	var diff *bitvec.Set
	if node.PrevPointsTo == nil {
		diff = cur.Clone()
	} else {
		diff = bitvec.New(cur.Len())
		cur.ForEach(func(i int) bool {
			if !node.PrevPointsTo.Has(i) {
				diff.Add(i)
			}
			return true
		})
	}
	node.PrevPointsTo = cur.Clone()

	if diff.IsEmpty() {
		return
	}

	for _, dst := range s.arena.CopyEdges(id) {
		grew := s.arena.AddPointsToSet(dst, cur)
		if grew {
			s.wl.Push(int(s.arena.Find(dst)), s.priority(dst))
		}
		if dstPts := s.arena.PointsTo(s.arena.Find(dst)); dstPts != nil && dstPts.Equal(cur) {
			s.lcdCandidates[id] = true
			s.lcdCandidates[s.arena.Find(dst)] = true
			s.lcdEdges = append(s.lcdEdges, lcdEdge{src: id, dst: s.arena.Find(dst)})
		}
	}

	diff.ForEach(func(objI int) bool {
		obj := engine.NodeID(objI)
		s.propagateFromObject(id, obj)
		return true
	})

	s.wireIndirectCalls(id, diff)
}

func (s *solver) propagateFromObject(holder, obj engine.NodeID) {
	for _, dst := range s.arena.LoadEdges(holder) {
		s.arena.AddCopyEdge(obj, dst)
		if objPts := s.arena.PointsTo(obj); objPts != nil {
			if s.arena.AddPointsToSet(dst, objPts) {
				s.wl.Push(int(s.arena.Find(dst)), s.priority(dst))
			}
		}
	}
	for _, rval := range s.arena.StoreEdges(holder) {
		s.arena.AddCopyEdge(rval, obj)
		if rvalPts := s.arena.PointsTo(rval); rvalPts != nil {
			if s.arena.AddPointsToSet(obj, rvalPts) {
				s.wl.Push(int(s.arena.Find(obj)), s.priority(obj))
			}
		}
	}
	for _, ge := range s.arena.GepEdgesOf(holder) {
		target := s.fieldTarget(obj, ge.Field())
		if s.arena.AddPointsTo(ge.Dst(), target) {
			s.wl.Push(int(s.arena.Find(ge.Dst())), s.priority(ge.Dst()))
		}
	}
}

// fieldTarget returns the object node at the given field offset from
// obj's block, clamping to the block's last node if the offset runs
// past its declared size (tail-access tolerance, §3 invariants). obj
// need not be a whole aggregate's head node: the generator stamps a
// block size onto every nested-aggregate field's own head node too
// (constraints.Generator.stampNestedBlockSizes), so a GEP chained
// through a struct field that is itself a struct resolves against that
// field's own size instead of silently no-op'ing or the enclosing
// block's much larger total.
func (s *solver) fieldTarget(obj engine.NodeID, field int) engine.NodeID {
	if field == 0 {
		return obj
	}
	size := s.arena.ObjectBlockSize(obj)
	if size == 0 {
		return obj
	}
	if uint32(field) >= size {
		field = int(size) - 1
	}
	return obj + engine.NodeID(field)
}

// wireIndirectCalls checks every call site whose function-pointer
// operand resolves to id and, for each newly discovered callee in
// diff, binds arguments and return value exactly once.
func (s *solver) wireIndirectCalls(id engine.NodeID, diff *bitvec.Set) {
	sites, ok := s.callSitesByFP[id]
	if !ok {
		return
	}
	diff.ForEach(func(objI int) bool {
		obj := engine.NodeID(objI)
		if s.arena.Kind(obj) != engine.KindFunc {
			return true
		}
		sig, ok := s.funcSigs[obj]
		if !ok {
			return true
		}
		for _, siteIdx := range sites {
			s.wireOne(siteIdx, obj, sig)
		}
		return true
	})
}

func (s *solver) wireOne(siteIdx int, fn engine.NodeID, sig constraints.FuncSig) {
	key := wireKey{site: siteIdx, fn: fn}
	if s.wired[key] {
		return
	}
	s.wired[key] = true

	site := s.indirectCalls[siteIdx]
	n := len(sig.Params)
	if len(site.Args) < n {
		n = len(site.Args)
	}
	for i := 0; i < n; i++ {
		s.arena.AddCopyEdge(site.Args[i], sig.Params[i])
		if pts := s.arena.PointsTo(site.Args[i]); pts != nil && !pts.IsEmpty() {
			if s.arena.AddPointsToSet(sig.Params[i], pts) {
				s.wl.Push(int(s.arena.Find(sig.Params[i])), s.priority(sig.Params[i]))
			}
		}
	}
	if site.Dst != engine.NodeNone && sig.Ret != engine.NodeNone {
		s.arena.AddCopyEdge(sig.Ret, site.Dst)
		if pts := s.arena.PointsTo(sig.Ret); pts != nil && !pts.IsEmpty() {
			if s.arena.AddPointsToSet(site.Dst, pts) {
				s.wl.Push(int(s.arena.Find(site.Dst)), s.priority(site.Dst))
			}
		}
	}
}

// runLCD resolves the LCD candidates accumulated across the whole run
// so far: copy edges where propagation left the destination holding
// exactly the source's set, which is what every node on an
// as-yet-uncollapsed COPY cycle looks like mid-solve. It is not enough
// for two nodes to merely hold equal sets — unrelated variables
// coincidentally converge on the same set all the time without being
// on a cycle together — so this builds the subgraph of just the
// candidate copy edges and runs Tarjan SCC over it, unioning only the
// nodes a real cycle in that subgraph proves equivalent. Candidates
// accumulate rather than reset between runs: a cycle's edges are
// typically discovered one hop per solver step (each hop only proves
// its own src/dst pair equal), so the full cycle usually isn't visible
// until several periods' worth of candidates have built up. This is an
// optimization only: skipping it never changes the final result, only
// how much work remains before the fixpoint is reached.
func (s *solver) runLCD() {
	if len(s.lcdCandidates) == 0 {
		return
	}

	adj := make(map[engine.NodeID][]engine.NodeID)
	nodeSet := make(map[engine.NodeID]bool, len(s.lcdCandidates))
	for _, e := range s.lcdEdges {
		src, dst := s.arena.Find(e.src), s.arena.Find(e.dst)
		if src == dst || !s.lcdCandidates[src] || !s.lcdCandidates[dst] {
			continue
		}
		adj[src] = append(adj[src], dst)
		nodeSet[src] = true
		nodeSet[dst] = true
	}

	t := &lcdTarjan{
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

	for _, scc := range t.sccs {
		if len(scc) < 2 {
			continue
		}
		rep := scc[0]
		for _, n := range scc[1:] {
			rep = s.arena.Union(rep, n)
		}
		s.stats.LCDMerges += len(scc) - 1
		if pts := s.arena.PointsTo(rep); pts != nil && s.lcdCache != nil {
			s.lcdCache.Intern(pts)
		}
		s.wl.Push(int(rep), s.priority(rep))
	}
}

// lcdTarjan is the same textbook recursive Tarjan SCC pass
// internal/engine/optimize uses offline, run here online over just the
// LCD candidate subgraph rather than the whole copy graph.
type lcdTarjan struct {
	adj     map[engine.NodeID][]engine.NodeID
	index   map[engine.NodeID]int
	lowlink map[engine.NodeID]int
	onStack map[engine.NodeID]bool
	stack   []engine.NodeID
	counter int
	sccs    [][]engine.NodeID
}

func (t *lcdTarjan) strongConnect(v engine.NodeID) {
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

func overRAMLimit(limitMB int) bool {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc/(1024*1024) > uint64(limitMB)
}

func (r TerminationReason) String() string { return string(r) }
