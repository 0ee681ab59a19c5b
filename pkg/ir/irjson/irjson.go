// Package irjson decodes the JSON textual encoding of an ir.Module used
// by cmd/andersgo as a stand-in for a real host-compiler frontend (§6
// treats the IR's actual producer as an external collaborator; this
// package is just enough of one to drive the CLI and the test suite
// from a file on disk).
package irjson

import (
	"encoding/json"
	"fmt"
	"io"

	apperrors "github.com/kahrendsen/andersgo/pkg/errors"
	"github.com/kahrendsen/andersgo/pkg/ir"
)

// jsonType mirrors ir.Type as a tagged union so struct/pointer/array
// types can nest without Go's json package needing an ir.Type
// UnmarshalJSON method on the interface itself.
type jsonType struct {
	Kind   string      `json:"kind"` // basic, pointer, struct, array, func, opaque
	Name   string      `json:"name,omitempty"`
	Elem   *jsonType   `json:"elem,omitempty"`
	Fields []jsonField `json:"fields,omitempty"`
	Len    int         `json:"len,omitempty"`
	Params []jsonType  `json:"params,omitempty"`
	Return *jsonType   `json:"return,omitempty"`
}

type jsonField struct {
	Name string   `json:"name"`
	Type jsonType `json:"type"`
}

// jsonValue references a value by its bare name: a local, parameter or
// return value of the enclosing function, or else a global of that
// name. An empty string means "no value" (e.g. a void return, or an
// unused call result).
type jsonValue = string

type jsonGlobal struct {
	Name        string   `json:"name"`
	Type        jsonType `json:"type"`
	Initialized bool     `json:"initialized"`
}

type jsonInstr struct {
	Op       string        `json:"op"` // addrof, copy, load, store, gep, alloc, call, indirectcall, externcall, return
	Dst      jsonValue     `json:"dst,omitempty"`
	Src      jsonValue     `json:"src,omitempty"`
	Of       jsonValue     `json:"of,omitempty"`
	Field    int           `json:"field,omitempty"`
	AllocTy  *jsonType     `json:"alloc_ty,omitempty"`
	HeapSite string        `json:"heap_site,omitempty"`
	Callee   string        `json:"callee,omitempty"` // function name for "call", value name for "indirectcall"
	ExternFn string        `json:"extern_fn,omitempty"`
	Args     []jsonValue   `json:"args,omitempty"`
	Value    jsonValue     `json:"value,omitempty"`
}

type jsonFunc struct {
	Name   string      `json:"name"`
	Params []jsonParam `json:"params"`
	Ret    *jsonParam  `json:"ret,omitempty"`
	Instrs []jsonInstr `json:"instrs"`
}

type jsonParam struct {
	Name string   `json:"name"`
	Type jsonType `json:"type"`
}

type jsonModule struct {
	Name    string       `json:"name"`
	Globals []jsonGlobal `json:"globals"`
	Funcs   []jsonFunc   `json:"funcs"`
}

// Decode reads a JSON-encoded module from r and resolves every value
// and function reference, returning errors.ErrParseError wrapping the
// first integrity problem found (malformed JSON, undefined value
// reference, or a call to a function not defined in the module).
func Decode(r io.Reader) (*ir.Module, error) {
	var jm jsonModule
	dec := json.NewDecoder(r)
	if err := dec.Decode(&jm); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeParseError, "malformed IR module JSON", err)
	}
	return build(&jm)
}

type builder struct {
	globals map[string]*ir.Global
	funcs   map[string]*ir.Function
}

func build(jm *jsonModule) (*ir.Module, error) {
	b := &builder{
		globals: make(map[string]*ir.Global),
		funcs:   make(map[string]*ir.Function),
	}

	mod := &ir.Module{Name: jm.Name}

	for _, jg := range jm.Globals {
		g := &ir.Global{GName: jg.Name, GType: toType(&jg.Type), Initialized: jg.Initialized}
		if _, dup := b.globals[jg.Name]; dup {
			return nil, apperrors.Wrap(apperrors.CodeParseError,
				fmt.Sprintf("duplicate global %q", jg.Name), nil)
		}
		b.globals[jg.Name] = g
		mod.Globals = append(mod.Globals, g)
	}

	// Pre-register every function so forward-referenced direct calls
	// (f calls g, defined later in the file) resolve correctly.
	for _, jf := range jm.Funcs {
		if _, dup := b.funcs[jf.Name]; dup {
			return nil, apperrors.Wrap(apperrors.CodeParseError,
				fmt.Sprintf("duplicate function %q", jf.Name), nil)
		}
		b.funcs[jf.Name] = &ir.Function{FName: jf.Name}
	}

	for _, jf := range jm.Funcs {
		fn := b.funcs[jf.Name]
		scope := make(map[string]ir.Value)

		for _, p := range jf.Params {
			v := &ir.Var{VName: p.Name, VType: toType(&p.Type)}
			fn.Params = append(fn.Params, v)
			scope[p.Name] = v
		}
		if jf.Ret != nil {
			v := &ir.Var{VName: jf.Ret.Name, VType: toType(&jf.Ret.Type)}
			fn.Ret = v
			scope[jf.Ret.Name] = v
		}

		for i, ji := range jf.Instrs {
			instr, err := b.buildInstr(ji, scope)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.CodeParseError,
					fmt.Sprintf("function %q instruction %d", jf.Name, i), err)
			}
			fn.Instrs = append(fn.Instrs, instr)
		}

		mod.Funcs = append(mod.Funcs, fn)
	}

	return mod, nil
}

// resolve looks up name as a local/parameter/return value first, then
// as a global, and reports an error if it is neither. Locals come into
// scope through declare, when they first appear as an instruction
// destination, so the format needs no separate local declarations.
func (b *builder) resolve(name string, scope map[string]ir.Value) (ir.Value, error) {
	if name == "" {
		return nil, nil
	}
	if v, ok := scope[name]; ok {
		return v, nil
	}
	if g, ok := b.globals[name]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("undefined value %q", name)
}

// declare registers name as a fresh local of the given type if it is
// not already bound in scope, and returns its Value either way — every
// instruction destination declares its own result.
func (b *builder) declare(name string, t ir.Type, scope map[string]ir.Value) ir.Value {
	if v, ok := scope[name]; ok {
		return v
	}
	v := &ir.Var{VName: name, VType: t}
	scope[name] = v
	return v
}

func (b *builder) buildInstr(ji jsonInstr, scope map[string]ir.Value) (ir.Instruction, error) {
	switch ji.Op {
	case "addrof":
		of, err := b.resolve(ji.Of, scope)
		if err != nil {
			return nil, err
		}
		dst := b.declare(ji.Dst, &ir.Pointer{Elem: of.Type()}, scope)
		return ir.AddrOf{Dst: dst, Of: of}, nil

	case "copy":
		src, err := b.resolve(ji.Src, scope)
		if err != nil {
			return nil, err
		}
		dst := b.declare(ji.Dst, src.Type(), scope)
		return ir.Copy{Dst: dst, Src: src}, nil

	case "load":
		src, err := b.resolve(ji.Src, scope)
		if err != nil {
			return nil, err
		}
		elemTy := Type(src.Type())
		dst := b.declare(ji.Dst, elemTy, scope)
		return ir.Load{Dst: dst, Src: src}, nil

	case "store":
		dst, err := b.resolve(ji.Dst, scope)
		if err != nil {
			return nil, err
		}
		src, err := b.resolve(ji.Src, scope)
		if err != nil {
			return nil, err
		}
		return ir.Store{Dst: dst, Src: src}, nil

	case "gep":
		src, err := b.resolve(ji.Src, scope)
		if err != nil {
			return nil, err
		}
		dst := b.declare(ji.Dst, &ir.Pointer{Elem: &ir.Opaque{Name: "field"}}, scope)
		return ir.Gep{Dst: dst, Src: src, Field: ji.Field}, nil

	case "alloc":
		var allocTy ir.Type = &ir.Opaque{Name: "heap"}
		if ji.AllocTy != nil {
			allocTy = toType(ji.AllocTy)
		}
		dst := b.declare(ji.Dst, &ir.Pointer{Elem: allocTy}, scope)
		return ir.Alloc{Dst: dst, AllocTy: allocTy, HeapSite: ji.HeapSite}, nil

	case "call":
		callee, ok := b.funcs[ji.Callee]
		if !ok {
			return nil, fmt.Errorf("call to undefined function %q", ji.Callee)
		}
		args, err := b.resolveArgs(ji.Args, scope)
		if err != nil {
			return nil, err
		}
		var dst ir.Value
		if ji.Dst != "" {
			dst = b.declare(ji.Dst, &ir.Opaque{Name: "callresult"}, scope)
		}
		return ir.Call{Dst: dst, Callee: callee, Args: args}, nil

	case "indirectcall":
		fp, err := b.resolve(ji.Callee, scope)
		if err != nil {
			return nil, err
		}
		args, err := b.resolveArgs(ji.Args, scope)
		if err != nil {
			return nil, err
		}
		var dst ir.Value
		if ji.Dst != "" {
			dst = b.declare(ji.Dst, &ir.Opaque{Name: "callresult"}, scope)
		}
		return ir.IndirectCall{Dst: dst, Callee: fp, Args: args}, nil

	case "externcall":
		args, err := b.resolveArgs(ji.Args, scope)
		if err != nil {
			return nil, err
		}
		var dst ir.Value
		if ji.Dst != "" {
			dst = b.declare(ji.Dst, &ir.Opaque{Name: "callresult"}, scope)
		}
		return ir.ExternCall{Dst: dst, Name: ji.ExternFn, Args: args}, nil

	case "return":
		v, err := b.resolve(ji.Value, scope)
		if err != nil {
			return nil, err
		}
		return ir.Return{Value: v}, nil

	default:
		return nil, fmt.Errorf("unknown instruction opcode %q", ji.Op)
	}
}

func (b *builder) resolveArgs(names []jsonValue, scope map[string]ir.Value) ([]ir.Value, error) {
	args := make([]ir.Value, 0, len(names))
	for _, n := range names {
		v, err := b.resolve(n, scope)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// Type returns the element type t implies when dereferenced once: the
// Elem of a pointer, or an opaque "deref" type for anything else. It is
// used by buildInstr's load case above.
func Type(t ir.Type) ir.Type {
	if p, ok := t.(*ir.Pointer); ok {
		return p.Elem
	}
	return &ir.Opaque{Name: "deref"}
}

func toType(jt *jsonType) ir.Type {
	if jt == nil {
		return &ir.Opaque{Name: "unknown"}
	}
	switch jt.Kind {
	case "basic":
		return &ir.Basic{Name: jt.Name}
	case "pointer":
		return &ir.Pointer{Elem: toType(jt.Elem)}
	case "struct":
		fields := make([]ir.Field, 0, len(jt.Fields))
		for _, f := range jt.Fields {
			fields = append(fields, ir.Field{Name: f.Name, Type: toType(&f.Type)})
		}
		return &ir.Struct{Name: jt.Name, Fields: fields}
	case "array":
		return &ir.Array{Elem: toType(jt.Elem), Len: jt.Len}
	case "func":
		params := make([]ir.Type, 0, len(jt.Params))
		for i := range jt.Params {
			params = append(params, toType(&jt.Params[i]))
		}
		var ret ir.Type
		if jt.Return != nil {
			ret = toType(jt.Return)
		}
		return &ir.Func{Params: params, Return: ret}
	case "opaque", "":
		return &ir.Opaque{Name: jt.Name}
	default:
		return &ir.Opaque{Name: jt.Kind}
	}
}
