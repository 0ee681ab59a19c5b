// Package testir builds small, hand-assembled ir.Module fixtures used by
// the engine's test suites. Each builder documents the program shape it
// produces in its doc comment rather than the test that consumes it.
package testir

import "github.com/kahrendsen/andersgo/pkg/ir"

var intType = &ir.Basic{Name: "int"}

// SimpleAssignment builds:
//
//	var x int
//	p := &x
//	q := p
//
// p and q must alias, and both must point only to x.
func SimpleAssignment() *ir.Module {
	x := &ir.Global{GName: "x", GType: intType}
	p := &ir.Var{VName: "p", VType: &ir.Pointer{Elem: intType}}
	q := &ir.Var{VName: "q", VType: &ir.Pointer{Elem: intType}}

	main := &ir.Function{
		FName: "main",
		Instrs: []ir.Instruction{
			ir.AddrOf{Dst: p, Of: x},
			ir.Copy{Dst: q, Src: p},
		},
	}

	return &ir.Module{
		Name:    "simple_assignment",
		Funcs:   []*ir.Function{main},
		Globals: []*ir.Global{x},
	}
}

// LoadStoreChain builds:
//
//	var x, y int
//	p := &x
//	pp := &p
//	q := *pp   // q aliases p, points to x
//	q = p
//	*p = y     (store doesn't change what p points to, only *p's target)
func LoadStoreChain() *ir.Module {
	x := &ir.Global{GName: "x", GType: intType}
	y := &ir.Global{GName: "y", GType: intType}
	ptrToInt := &ir.Pointer{Elem: intType}

	p := &ir.Var{VName: "p", VType: ptrToInt}
	pp := &ir.Var{VName: "pp", VType: &ir.Pointer{Elem: ptrToInt}}
	q := &ir.Var{VName: "q", VType: ptrToInt}

	main := &ir.Function{
		FName: "main",
		Instrs: []ir.Instruction{
			ir.AddrOf{Dst: p, Of: x},
			ir.AddrOf{Dst: pp, Of: p},
			ir.Load{Dst: q, Src: pp},
			ir.Copy{Dst: q, Src: p},
			ir.Store{Dst: p, Src: y},
		},
	}

	return &ir.Module{
		Name:    "load_store_chain",
		Funcs:   []*ir.Function{main},
		Globals: []*ir.Global{x, y},
	}
}

// StructFields builds a field-sensitive scenario:
//
//	struct S { a *int; b *int }
//	var x, y int
//	var s S
//	sp := &s
//	sp->a = &x
//	sp->b = &y
//	p := sp->a
//
// p must point only to x, never to y, when field sensitivity is on.
func StructFields() *ir.Module {
	x := &ir.Global{GName: "x", GType: intType}
	y := &ir.Global{GName: "y", GType: intType}
	ptrToInt := &ir.Pointer{Elem: intType}

	structTy := &ir.Struct{
		Name: "S",
		Fields: []ir.Field{
			{Name: "a", Type: ptrToInt},
			{Name: "b", Type: ptrToInt},
		},
	}
	s := &ir.Global{GName: "s", GType: structTy}

	sp := &ir.Var{VName: "sp", VType: &ir.Pointer{Elem: structTy}}
	addrX := &ir.Var{VName: "addrX", VType: ptrToInt}
	addrY := &ir.Var{VName: "addrY", VType: ptrToInt}
	aAddr := &ir.Var{VName: "sp.a#addr", VType: &ir.Pointer{Elem: ptrToInt}}
	bAddr := &ir.Var{VName: "sp.b#addr", VType: &ir.Pointer{Elem: ptrToInt}}
	p := &ir.Var{VName: "p", VType: ptrToInt}

	main := &ir.Function{
		FName: "main",
		Instrs: []ir.Instruction{
			ir.AddrOf{Dst: sp, Of: s},
			ir.AddrOf{Dst: addrX, Of: x},
			ir.AddrOf{Dst: addrY, Of: y},
			ir.Gep{Dst: aAddr, Src: sp, Field: 0},
			ir.Gep{Dst: bAddr, Src: sp, Field: 1},
			ir.Store{Dst: aAddr, Src: addrX},
			ir.Store{Dst: bAddr, Src: addrY},
			ir.Load{Dst: p, Src: aAddr},
		},
	}

	return &ir.Module{
		Name:    "struct_fields",
		Funcs:   []*ir.Function{main},
		Globals: []*ir.Global{x, y, s},
		Structs: []*ir.Struct{structTy},
	}
}

// IndirectCall builds:
//
//	func f(p *int) *int { return p }
//	func g(p *int) *int { return p }
//	var x, y int
//	fp := f   (address-taken)
//	fp = g    (reassigned, so fp's points-to set is {f, g})
//	r := fp(&x)
//
// r must point only to what f/g return, i.e. whatever was passed in —
// exercising call-argument/return binding through an unresolved callee.
func IndirectCall() *ir.Module {
	x := &ir.Global{GName: "x", GType: intType}
	ptrToInt := &ir.Pointer{Elem: intType}

	fParam := &ir.Var{VName: "f.p", VType: ptrToInt}
	fRet := &ir.Var{VName: "f.ret", VType: ptrToInt}
	f := &ir.Function{
		FName:  "f",
		Params: []ir.Value{fParam},
		Ret:    fRet,
		Instrs: []ir.Instruction{
			ir.Copy{Dst: fRet, Src: fParam},
			ir.Return{Value: fRet},
		},
		AddressTaken: true,
	}

	gParam := &ir.Var{VName: "g.p", VType: ptrToInt}
	gRet := &ir.Var{VName: "g.ret", VType: ptrToInt}
	g := &ir.Function{
		FName:  "g",
		Params: []ir.Value{gParam},
		Ret:    gRet,
		Instrs: []ir.Instruction{
			ir.Copy{Dst: gRet, Src: gParam},
			ir.Return{Value: gRet},
		},
		AddressTaken: true,
	}

	fp := &ir.Var{VName: "fp", VType: &ir.Pointer{Elem: &ir.Func{}}}
	addrX := &ir.Var{VName: "addrX", VType: ptrToInt}
	r := &ir.Var{VName: "r", VType: ptrToInt}

	main := &ir.Function{
		FName: "main",
		Instrs: []ir.Instruction{
			ir.AddrOf{Dst: addrX, Of: x},
			ir.AddrOf{Dst: fp, Of: f},
			ir.Copy{Dst: fp, Src: g},
			ir.IndirectCall{Dst: r, Callee: fp, Args: []ir.Value{addrX}},
		},
	}

	return &ir.Module{
		Name:    "indirect_call",
		Funcs:   []*ir.Function{f, g, main},
		Globals: []*ir.Global{x},
	}
}

// ExternalCall builds a call to the external function malloc, whose
// EffectAlloc tag makes the destination point at a fresh unnamed heap
// object.
func ExternalCall() *ir.Module {
	ptrToInt := &ir.Pointer{Elem: intType}
	dst := &ir.Var{VName: "dst", VType: ptrToInt}

	main := &ir.Function{
		FName: "main",
		Instrs: []ir.Instruction{
			ir.ExternCall{Dst: dst, Name: "malloc"},
		},
	}

	return &ir.Module{
		Name:  "external_call",
		Funcs: []*ir.Function{main},
	}
}
