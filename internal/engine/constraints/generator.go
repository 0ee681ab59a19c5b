// Package constraints walks an ir.Module and emits the inclusion
// constraints (§4.3) that the rest of the engine solves. It is the
// client-facing boundary between the IR contract (pkg/ir) and the
// arena-based internal representation (internal/engine): every ir.Value
// the module ever mentions gets exactly one node, allocated the first
// time it's seen.
package constraints

import (
	"fmt"

	"github.com/kahrendsen/andersgo/internal/engine"
	"github.com/kahrendsen/andersgo/internal/engine/extern"
	"github.com/kahrendsen/andersgo/internal/engine/layout"
	"github.com/kahrendsen/andersgo/pkg/ir"
)

// FuncSig records where a function's parameters and return value live
// in the arena, so the solver can wire a call site's arguments once it
// learns (via points-to propagation) which functions a call can reach.
type FuncSig struct {
	Params []engine.NodeID
	Ret    engine.NodeID // engine.NodeNone if the function is void
}

// IndirectCallSite is a call through a function pointer, deferred to
// solve time because the set of callees isn't known until the pointer's
// points-to set is computed.
type IndirectCallSite struct {
	FuncPtr engine.NodeID
	Args    []engine.NodeID
	Dst     engine.NodeID // engine.NodeNone if the result is discarded
}

// Result is everything the solver needs to pick up where generation
// left off.
type Result struct {
	Arena         *engine.Arena
	Constraints   []engine.Constraint
	FuncSigs      map[engine.NodeID]FuncSig // keyed by the function's own object node
	IndirectCalls []IndirectCallSite
	ValueNodes    map[ir.Value]engine.NodeID
	// ObjNodes maps every addressable value (global, stack variable,
	// address-taken function) to the first node of its object block —
	// the target a client's "what object does &v name" query needs,
	// distinct from ValueNodes' "what does v point to" nodes.
	ObjNodes    map[ir.Value]engine.NodeID
	Diagnostics []string
}

// Generator builds a Result from an ir.Module.
type Generator struct {
	arena   *engine.Arena
	layout  *layout.Analyzer
	externs *extern.Table

	valueNodes map[ir.Value]engine.NodeID // plain variable/parameter/return nodes
	objNodes   map[ir.Value]engine.NodeID // object-block first-node for addressable values
	funcSigs   map[engine.NodeID]FuncSig

	constraints   []engine.Constraint
	indirectCalls []IndirectCallSite
	diagnostics   []string

	checkConsUndef bool
	// ociOnly restricts AddrOf generation to object-creation
	// instructions (ir.Alloc): address-of on ordinary globals and
	// stack locals is skipped, matching the original analysis's
	// OCI_ONLY mode for approximating heap-only clients that don't
	// care about stack/global aliasing.
	ociOnly bool
	// checkGlobalNull gates how an uninitialized pointer-typed global is
	// seeded: conservatively toward NodeUnknown when true, or, at the
	// default (false), left empty so a query against it reports
	// "points to nothing" instead of a manufactured escape.
	checkGlobalNull bool
}

// New creates a Generator over a fresh arena using the given layout
// analyzer and external-function table.
func New(la *layout.Analyzer, externs *extern.Table, checkConsUndef, ociOnly, checkGlobalNull bool) *Generator {
	return &Generator{
		arena:           engine.NewArena(),
		layout:          la,
		externs:         externs,
		valueNodes:      make(map[ir.Value]engine.NodeID),
		objNodes:        make(map[ir.Value]engine.NodeID),
		funcSigs:        make(map[engine.NodeID]FuncSig),
		checkConsUndef:  checkConsUndef,
		ociOnly:         ociOnly,
		checkGlobalNull: checkGlobalNull,
	}
}

// Generate walks every function and global in mod and returns the
// accumulated constraint set.
func (g *Generator) Generate(mod *ir.Module) *Result {
	for _, gl := range mod.Globals {
		g.objectNode(gl)
		if !gl.Initialized && g.checkGlobalNull {
			if _, ok := gl.GType.(*ir.Pointer); ok {
				g.emit(engine.Constraint{Kind: engine.Copy, Dst: g.valueNode(gl), Src: engine.NodeUnknown})
			}
		}
	}
	for _, fn := range mod.Funcs {
		if fn.AddressTaken {
			g.funcObjectNode(fn)
		}
	}
	for _, fn := range mod.Funcs {
		g.genFunc(fn)
	}

	return &Result{
		Arena:         g.arena,
		Constraints:   g.constraints,
		FuncSigs:      g.funcSigs,
		IndirectCalls: g.indirectCalls,
		ValueNodes:    g.valueNodes,
		ObjNodes:      g.objNodes,
		Diagnostics:   g.diagnostics,
	}
}

func (g *Generator) emit(c engine.Constraint) {
	g.constraints = append(g.constraints, c)
}

// valueNode returns the plain node representing v as an operand,
// allocating one on first use.
func (g *Generator) valueNode(v ir.Value) engine.NodeID {
	if v == nil {
		return engine.NodeNone
	}
	if id, ok := g.valueNodes[v]; ok {
		return id
	}
	id := g.arena.AddNode(engine.KindVar, v.Name())
	g.valueNodes[v] = id
	return id
}

// objectNode returns the first node of v's object block — the target
// of `&v` — allocating a layout-sized block on first use.
func (g *Generator) objectNode(v ir.Value) engine.NodeID {
	if v == nil {
		return engine.NodeUnknown
	}
	if id, ok := g.objNodes[v]; ok {
		return id
	}
	l := g.layout.Of(v.Type())
	id := g.arena.AddObjectBlock(v.Name(), l.Size)
	g.stampNestedBlockSizes(id, v.Type())
	g.objNodes[v] = id
	return id
}

// stampNestedBlockSizes marks every nested-aggregate field's head node
// within a just-allocated object block with its own sub-block size.
// AddObjectBlock only records the whole block's total size on the
// block's first node; without this, a GEP chained through a struct
// field that is itself a struct (e.g. t.s.b, where s is a struct field
// of t) would read ObjectBlockSize on s's head node, find it zero, and
// silently fail to offset into b at all (§3/§4.1 field sensitivity).
func (g *Generator) stampNestedBlockSizes(head engine.NodeID, t ir.Type) {
	st, ok := t.(*ir.Struct)
	if !ok {
		return
	}
	l := g.layout.Of(st)
	for i, f := range st.Fields {
		sz := l.Sz[i]
		if sz <= 1 {
			continue
		}
		fieldHead := head + engine.NodeID(l.Off[i])
		g.arena.SetObjectBlockSize(fieldHead, sz)
		g.stampNestedBlockSizes(fieldHead, f.Type)
	}
}

// funcObjectNode returns the object node standing for an address-taken
// function, registering its signature so the solver can wire call sites
// once this node appears in a points-to set.
func (g *Generator) funcObjectNode(fn *ir.Function) engine.NodeID {
	if id, ok := g.objNodes[fn]; ok {
		return id
	}
	id := g.arena.AddNode(engine.KindFunc, fn.FName)
	g.objNodes[fn] = id

	params := make([]engine.NodeID, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = g.valueNode(p)
	}
	ret := engine.NodeNone
	if fn.Ret != nil {
		ret = g.valueNode(fn.Ret)
	}
	g.funcSigs[id] = FuncSig{Params: params, Ret: ret}

	return id
}

func (g *Generator) genFunc(fn *ir.Function) {
	for _, instr := range fn.Instrs {
		g.genInstr(fn, instr)
	}
}

func (g *Generator) genInstr(fn *ir.Function, instr ir.Instruction) {
	switch in := instr.(type) {
	case ir.AddrOf:
		// Under ociOnly, only object-creation instructions (ir.Alloc,
		// handled below) seed points-to sets; address-of on an
		// ordinary global or stack variable is dropped so its node
		// stays empty rather than pointing at a stack/global block.
		if g.ociOnly {
			break
		}
		g.emit(engine.Constraint{Kind: engine.AddrOf, Dst: g.valueNode(in.Dst), Src: g.addressableNode(in.Of)})

	case ir.Copy:
		g.emit(engine.Constraint{Kind: engine.Copy, Dst: g.valueNode(in.Dst), Src: g.valueNode(in.Src)})

	case ir.Load:
		g.emit(engine.Constraint{Kind: engine.Load, Dst: g.valueNode(in.Dst), Src: g.valueNode(in.Src)})

	case ir.Store:
		g.emit(engine.Constraint{Kind: engine.Store, Dst: g.valueNode(in.Dst), Src: g.valueNode(in.Src)})

	case ir.Gep:
		field := 0
		if st, ok := baseStruct(in.Src.Type()); ok {
			field = int(g.layout.FieldOffset(st, in.Field))
		}
		g.emit(engine.Constraint{Kind: engine.Gep, Dst: g.valueNode(in.Dst), Src: g.valueNode(in.Src), Offset: field})

	case ir.Alloc:
		l := g.layout.Of(in.AllocTy)
		label := in.HeapSite
		if label == "" {
			label = fmt.Sprintf("%s#heap", in.Dst.Name())
		}
		obj := g.arena.AddObjectBlock(label, l.Size)
		g.stampNestedBlockSizes(obj, in.AllocTy)
		g.emit(engine.Constraint{Kind: engine.AddrOf, Dst: g.valueNode(in.Dst), Src: obj})

	case ir.Call:
		g.genDirectCall(in)

	case ir.IndirectCall:
		g.genIndirectCall(in)

	case ir.ExternCall:
		g.genExternCall(in)

	case ir.Return:
		if in.Value != nil && fn.Ret != nil {
			g.emit(engine.Constraint{Kind: engine.Copy, Dst: g.valueNode(fn.Ret), Src: g.valueNode(in.Value)})
		}
	}
}

// addressableNode resolves the operand of AddrOf, which may be a
// global, a stack variable, or a function.
func (g *Generator) addressableNode(v ir.Value) engine.NodeID {
	if fn, ok := v.(*ir.Function); ok {
		return g.funcObjectNode(fn)
	}
	return g.objectNode(v)
}

func baseStruct(t ir.Type) (*ir.Struct, bool) {
	if p, ok := t.(*ir.Pointer); ok {
		if s, ok := p.Elem.(*ir.Struct); ok {
			return s, true
		}
	}
	return nil, false
}

// genDirectCall binds args to params and the callee's return to Dst
// immediately, since the target is statically known.
func (g *Generator) genDirectCall(c ir.Call) {
	sig, ok := g.funcSigs[g.funcObjectNode(c.Callee)]
	if !ok {
		return
	}
	g.bindCall(sig, c.Args, c.Dst)
}

func (g *Generator) bindCall(sig FuncSig, args []ir.Value, dst ir.Value) {
	n := len(sig.Params)
	if len(args) < n {
		n = len(args)
	}
	for i := 0; i < n; i++ {
		g.emit(engine.Constraint{Kind: engine.Copy, Dst: sig.Params[i], Src: g.valueNode(args[i])})
	}
	if dst != nil && sig.Ret != engine.NodeNone {
		g.emit(engine.Constraint{Kind: engine.Copy, Dst: g.valueNode(dst), Src: sig.Ret})
	}
}

// genIndirectCall defers binding until solve time, when the callee
// pointer's points-to set is known.
func (g *Generator) genIndirectCall(c ir.IndirectCall) {
	args := make([]engine.NodeID, len(c.Args))
	for i, a := range c.Args {
		args[i] = g.valueNode(a)
	}
	g.indirectCalls = append(g.indirectCalls, IndirectCallSite{
		FuncPtr: g.valueNode(c.Callee),
		Args:    args,
		Dst:     g.valueNode(c.Dst),
	})
}

// genExternCall looks up the external function's effect tag (§4.2,
// §6.3) and synthesizes the matching constraints.
func (g *Generator) genExternCall(c ir.ExternCall) {
	tag := g.externs.Lookup(c.Name)

	switch tag {
	case extern.EffectAlloc:
		obj := g.arena.AddNode(engine.KindObject, c.Name+"#extern")
		if c.Dst != nil {
			g.emit(engine.Constraint{Kind: engine.AddrOf, Dst: g.valueNode(c.Dst), Src: obj})
		}

	case extern.EffectRetArg0:
		if c.Dst != nil && len(c.Args) > 0 {
			g.emit(engine.Constraint{Kind: engine.Copy, Dst: g.valueNode(c.Dst), Src: g.valueNode(c.Args[0])})
		}

	case extern.EffectArgAlias:
		if len(c.Args) > 1 {
			first := g.valueNode(c.Args[0])
			for _, a := range c.Args[1:] {
				n := g.valueNode(a)
				g.emit(engine.Constraint{Kind: engine.Copy, Dst: first, Src: n})
				g.emit(engine.Constraint{Kind: engine.Copy, Dst: n, Src: first})
			}
		}
		if c.Dst != nil && len(c.Args) > 0 {
			g.emit(engine.Constraint{Kind: engine.Copy, Dst: g.valueNode(c.Dst), Src: g.valueNode(c.Args[0])})
		}

	case extern.EffectArgEscape, extern.EffectUnknown:
		for _, a := range c.Args {
			n := g.valueNode(a)
			// Whatever a points to becomes part of the unknown/escaped
			// set, and a may in turn come to point at anything unknown.
			g.emit(engine.Constraint{Kind: engine.Copy, Dst: engine.NodeUnknown, Src: n})
			g.emit(engine.Constraint{Kind: engine.Store, Dst: n, Src: engine.NodeUnknown})
		}
		if tag == extern.EffectUnknown && g.checkConsUndef {
			g.diagnostics = append(g.diagnostics, fmt.Sprintf("call to unmodeled external function %q treated as escaping", c.Name))
		}

	case extern.EffectNone:
		// no pointer-relevant effect
	}
}
