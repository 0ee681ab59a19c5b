package ptsquery

import "github.com/kahrendsen/andersgo/pkg/ir"

// FindValue looks up a value by its source name across mod's globals,
// function parameters, return slots, and instruction operands. It is
// the textual-name equivalent of the node tables Bind works from,
// meant for callers (the RPC front end, the CLI) that only have a
// string identifying the value they want to query.
func FindValue(mod *ir.Module, name string) (ir.Value, bool) {
	for _, fn := range mod.Funcs {
		for _, v := range fn.Params {
			if v.Name() == name {
				return v, true
			}
		}
		if fn.Ret != nil && fn.Ret.Name() == name {
			return fn.Ret, true
		}
		for _, instr := range fn.Instrs {
			for _, v := range instrValues(instr) {
				if v != nil && v.Name() == name {
					return v, true
				}
			}
		}
	}
	for _, g := range mod.Globals {
		if g.GName == name {
			return g, true
		}
	}
	return nil, false
}

func instrValues(instr ir.Instruction) []ir.Value {
	switch in := instr.(type) {
	case ir.AddrOf:
		return []ir.Value{in.Dst, in.Of}
	case ir.Copy:
		return []ir.Value{in.Dst, in.Src}
	case ir.Load:
		return []ir.Value{in.Dst, in.Src}
	case ir.Store:
		return []ir.Value{in.Dst, in.Src}
	case ir.Gep:
		return []ir.Value{in.Dst, in.Src}
	case ir.Alloc:
		return []ir.Value{in.Dst}
	case ir.Call:
		return append([]ir.Value{in.Dst}, in.Args...)
	case ir.IndirectCall:
		return append([]ir.Value{in.Dst, in.Callee}, in.Args...)
	case ir.ExternCall:
		return append([]ir.Value{in.Dst}, in.Args...)
	case ir.Return:
		return []ir.Value{in.Value}
	default:
		return nil
	}
}
