package solve

import (
	"testing"

	"github.com/kahrendsen/andersgo/internal/engine"
	"github.com/kahrendsen/andersgo/internal/engine/constraints"
	"github.com/kahrendsen/andersgo/internal/engine/worklist"
)

func defaultOptions() Options {
	return Options{WLOrder: worklist.OrderPrio}
}

func TestRun_CopyPropagation(t *testing.T) {
	a := engine.NewArena()
	p := a.AddNode(engine.KindVar, "p")
	q := a.AddNode(engine.KindVar, "q")
	x := a.AddNode(engine.KindObject, "x")

	res := &constraints.Result{
		Arena: a,
		Constraints: []engine.Constraint{
			{Kind: engine.AddrOf, Dst: p, Src: x},
			{Kind: engine.Copy, Dst: q, Src: p},
		},
	}

	stats := Run(res, defaultOptions())
	if stats.Termination != Converged {
		t.Fatalf("expected convergence, got %v", stats.Termination)
	}
	if pts := a.PointsTo(q); pts == nil || !pts.Has(int(x)) {
		t.Fatalf("q should point to x through the copy edge, got %v", pts)
	}
}

func TestRun_LoadStore(t *testing.T) {
	a := engine.NewArena()
	pp := a.AddNode(engine.KindVar, "pp")
	p := a.AddNode(engine.KindVar, "p")
	q := a.AddNode(engine.KindVar, "q")
	x := a.AddNode(engine.KindObject, "x")
	pObj := a.AddNode(engine.KindObject, "p_obj")

	res := &constraints.Result{
		Arena: a,
		Constraints: []engine.Constraint{
			{Kind: engine.AddrOf, Dst: p, Src: x},      // p = &x
			{Kind: engine.AddrOf, Dst: pp, Src: pObj},   // pp = &p_obj (pp -> object holding p)
			{Kind: engine.Store, Dst: pp, Src: p},       // *pp = p  (p_obj gains p's pts)
			{Kind: engine.Load, Dst: q, Src: pp},        // q = *pp
		},
	}

	// Wire p's value into p_obj's slot manually: the store constraint
	// targets whatever pp points to (p_obj), and the load constraint
	// reads back from the same object, so q should end up pointing
	// wherever p_obj's points-to set (seeded by the store) points.
	stats := Run(res, defaultOptions())
	if stats.Termination != Converged {
		t.Fatalf("expected convergence, got %v", stats.Termination)
	}
	if pts := a.PointsTo(pObj); pts == nil || !pts.Has(int(x)) {
		t.Fatalf("p_obj should gain x via the store, got %v", pts)
	}
	if pts := a.PointsTo(q); pts == nil || !pts.Has(int(x)) {
		t.Fatalf("q should gain x via the load, got %v", pts)
	}
}

func TestRun_FieldSensitiveGep(t *testing.T) {
	a := engine.NewArena()
	base := a.AddNode(engine.KindVar, "base")
	dst := a.AddNode(engine.KindVar, "dst")
	block := a.AddObjectBlock("s", 2) // block, block+1

	a.AddPointsTo(base, block)

	res := &constraints.Result{
		Arena: a,
		Constraints: []engine.Constraint{
			{Kind: engine.Gep, Dst: dst, Src: base, Offset: 1},
		},
	}

	stats := Run(res, defaultOptions())
	if stats.Termination != Converged {
		t.Fatalf("expected convergence, got %v", stats.Termination)
	}
	pts := a.PointsTo(dst)
	if pts == nil || !pts.Has(int(block+1)) {
		t.Fatalf("dst should point to the field-1 slot %d, got %v", block+1, pts)
	}
}

// TestRun_ChainedGep_ResolvesNestedStructField simulates t.s.b where s is
// itself a struct field of t: a GEP into "s" lands on a node that is
// itself the head of a sub-block, and a second GEP chained through it
// must resolve against that sub-block's own size, not fall back to a
// no-op because only the outer block's head node carries a size.
func TestRun_ChainedGep_ResolvesNestedStructField(t *testing.T) {
	a := engine.NewArena()
	base := a.AddNode(engine.KindVar, "base")
	nestedPtr := a.AddNode(engine.KindVar, "nestedPtr")
	dst := a.AddNode(engine.KindVar, "dst")

	// outer block: [head, nested.a, nested.b] — 3 slots total, the
	// nested struct itself occupying slots 1-2.
	block := a.AddObjectBlock("outer", 3)
	a.SetObjectBlockSize(block+1, 2) // what the generator's stampNestedBlockSizes does

	a.AddPointsTo(base, block)

	res := &constraints.Result{
		Arena: a,
		Constraints: []engine.Constraint{
			{Kind: engine.Gep, Dst: nestedPtr, Src: base, Offset: 1},
			{Kind: engine.Gep, Dst: dst, Src: nestedPtr, Offset: 1},
		},
	}

	stats := Run(res, defaultOptions())
	if stats.Termination != Converged {
		t.Fatalf("expected convergence, got %v", stats.Termination)
	}
	pts := a.PointsTo(dst)
	if pts == nil || !pts.Has(int(block+2)) {
		t.Fatalf("dst should resolve to the nested struct's field-1 slot %d, got %v", block+2, pts)
	}
}

func TestRun_IndirectCallWiring(t *testing.T) {
	a := engine.NewArena()
	fp := a.AddNode(engine.KindVar, "fp")
	fObj := a.AddNode(engine.KindFunc, "f")
	arg := a.AddNode(engine.KindVar, "arg")
	param := a.AddNode(engine.KindVar, "param")
	ret := a.AddNode(engine.KindVar, "ret")
	result := a.AddNode(engine.KindVar, "result")
	x := a.AddNode(engine.KindObject, "x")

	res := &constraints.Result{
		Arena: a,
		Constraints: []engine.Constraint{
			{Kind: engine.AddrOf, Dst: fp, Src: fObj},
			{Kind: engine.AddrOf, Dst: arg, Src: x},
		},
		FuncSigs: map[engine.NodeID]constraints.FuncSig{
			fObj: {Params: []engine.NodeID{param}, Ret: ret},
		},
		IndirectCalls: []constraints.IndirectCallSite{
			{FuncPtr: fp, Args: []engine.NodeID{arg}, Dst: result},
		},
	}

	stats := Run(res, defaultOptions())
	if stats.Termination != Converged {
		t.Fatalf("expected convergence, got %v", stats.Termination)
	}
	if pts := a.PointsTo(param); pts == nil || !pts.Has(int(x)) {
		t.Fatalf("param should receive the argument's points-to set, got %v", pts)
	}
}

// TestRun_LCDDoesNotMergeUnrelatedEqualSets is the regression case for
// the bug LCD used to have: p and q both end up pointing only at x, but
// nothing ever copies between them, so they are two independent facts
// that happen to coincide, not a cycle. LCD must leave them distinct.
func TestRun_LCDDoesNotMergeUnrelatedEqualSets(t *testing.T) {
	a := engine.NewArena()
	p := a.AddNode(engine.KindVar, "p")
	q := a.AddNode(engine.KindVar, "q")
	x := a.AddNode(engine.KindObject, "x")

	res := &constraints.Result{
		Arena: a,
		Constraints: []engine.Constraint{
			{Kind: engine.AddrOf, Dst: p, Src: x},
			{Kind: engine.AddrOf, Dst: q, Src: x},
		},
	}

	opt := defaultOptions()
	opt.LCDSize = 16
	opt.LCDPeriod = 1

	stats := Run(res, opt)
	if stats.Termination != Converged {
		t.Fatalf("expected convergence, got %v", stats.Termination)
	}
	if a.Find(p) == a.Find(q) {
		t.Errorf("p and q share no copy edge and should not be merged just because their points-to sets coincide")
	}
	if stats.LCDMerges != 0 {
		t.Errorf("expected no LCD merges, got %d", stats.LCDMerges)
	}
}

// TestRun_LCDMergesGenuineCopyCycle is the case LCD exists for: p, q,
// and r copy into each other in a cycle that the offline optimizer
// never sees (it only runs once, before r's second copy edge back to p
// exists in this scenario — simulated here by constructing the cycle
// directly as COPY constraints so it's only ever visible to the online
// solver). All three converge on the same points-to set *and* the copy
// edges prove they are mutually reachable, so LCD should collapse them.
func TestRun_LCDMergesGenuineCopyCycle(t *testing.T) {
	a := engine.NewArena()
	p := a.AddNode(engine.KindVar, "p")
	q := a.AddNode(engine.KindVar, "q")
	r := a.AddNode(engine.KindVar, "r")
	x := a.AddNode(engine.KindObject, "x")

	res := &constraints.Result{
		Arena: a,
		Constraints: []engine.Constraint{
			{Kind: engine.AddrOf, Dst: p, Src: x},
			{Kind: engine.Copy, Dst: q, Src: p},
			{Kind: engine.Copy, Dst: r, Src: q},
			{Kind: engine.Copy, Dst: p, Src: r},
		},
	}

	opt := defaultOptions()
	opt.LCDSize = 16
	opt.LCDPeriod = 1

	stats := Run(res, opt)
	if stats.Termination != Converged {
		t.Fatalf("expected convergence, got %v", stats.Termination)
	}
	if a.Find(p) != a.Find(q) || a.Find(q) != a.Find(r) {
		t.Errorf("p, q, and r form a copy cycle and should be merged by LCD, got reps %d %d %d", a.Find(p), a.Find(q), a.Find(r))
	}
	if stats.LCDMerges == 0 {
		t.Errorf("expected at least one LCD merge for the copy cycle")
	}
}

func TestRun_EmptyResultConverges(t *testing.T) {
	a := engine.NewArena()
	res := &constraints.Result{Arena: a}
	stats := Run(res, defaultOptions())
	if stats.Termination != Converged {
		t.Fatalf("an empty constraint set should converge immediately, got %v", stats.Termination)
	}
	if stats.NodesProcessed != 0 {
		t.Errorf("expected 0 nodes processed, got %d", stats.NodesProcessed)
	}
}

func TestTerminationReason_String(t *testing.T) {
	if Converged.String() != "converged" {
		t.Errorf("Converged.String() = %q, want %q", Converged.String(), "converged")
	}
}
