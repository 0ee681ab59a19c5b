// Package ir defines the typed low-level intermediate representation the
// pointer-analysis engine consumes. It is the client contract: anything
// that can produce a Module built from these types and instructions can
// be analyzed without the engine knowing anything about the original
// source language or compiler.
package ir

// TypeKind classifies a Type for layout and constraint-generation
// purposes.
type TypeKind int

const (
	KindBasic TypeKind = iota
	KindPointer
	KindStruct
	KindArray
	KindFunc
	KindOpaque
)

func (k TypeKind) String() string {
	switch k {
	case KindBasic:
		return "basic"
	case KindPointer:
		return "pointer"
	case KindStruct:
		return "struct"
	case KindArray:
		return "array"
	case KindFunc:
		return "func"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Type describes the shape of a value well enough to compute a struct
// layout (§4.1) without reference to any source-language type checker.
type Type interface {
	Kind() TypeKind
	String() string
}

// Basic is a scalar type with no pointer content (int, float, char...).
type Basic struct {
	Name string
}

func (b *Basic) Kind() TypeKind { return KindBasic }
func (b *Basic) String() string { return b.Name }

// Pointer is a pointer to another type.
type Pointer struct {
	Elem Type
}

func (p *Pointer) Kind() TypeKind { return KindPointer }
func (p *Pointer) String() string { return "*" + p.Elem.String() }

// Field is one member of a Struct, in declaration order.
type Field struct {
	Name string
	Type Type
}

// Struct is an aggregate type whose fields are flattened by the layout
// analyzer (§4.1) into a contiguous run of object nodes when field
// sensitivity is enabled.
type Struct struct {
	Name   string
	Fields []Field
}

func (s *Struct) Kind() TypeKind { return KindStruct }
func (s *Struct) String() string { return "struct " + s.Name }

// Array is a fixed-length homogeneous aggregate. Pointer analysis treats
// every element as aliasing the same abstract location (collapsed to a
// single field), matching how the original C++ implementation handles
// arrays.
type Array struct {
	Elem Type
	Len  int
}

func (a *Array) Kind() TypeKind { return KindArray }
func (a *Array) String() string { return "array" }

// Func is a function type, used for indirect-call signature matching.
type Func struct {
	Params   []Type
	Return   Type
	Variadic bool
}

func (f *Func) Kind() TypeKind { return KindFunc }
func (f *Func) String() string { return "func" }

// Opaque stands in for a type the client could not resolve in full
// (typically the layout of a type defined only in an external library).
// The engine treats values of opaque type as pointer-sized and
// field-insensitive.
type Opaque struct {
	Name string
}

func (o *Opaque) Kind() TypeKind { return KindOpaque }
func (o *Opaque) String() string { return "opaque " + o.Name }

// Value is an IR operand: a local variable, parameter, global, or
// function. Every Value that can have its address taken or hold a
// pointer gets at least one node in the engine's arena.
type Value interface {
	Name() string
	Type() Type
}

// Var is a local variable or temporary within a function body.
type Var struct {
	VName string
	VType Type
}

func (v *Var) Name() string { return v.VName }
func (v *Var) Type() Type   { return v.VType }

// Global is a module-level variable. Globals are always address-taken:
// the engine allocates an object node for each one (§3 lifecycle).
type Global struct {
	GName string
	GType Type
	// Initialized records whether the source program gave this global
	// an explicit initializer. An uninitialized pointer-typed global
	// reads as NULL until some function stores into it; whether the
	// engine treats that as "points to nothing" or conservatively
	// "points to unknown" is governed by CheckGlobalNull (§6.4).
	Initialized bool
}

func (g *Global) Name() string { return g.GName }
func (g *Global) Type() Type   { return g.GType }

// Instruction is one constraint-relevant operation in a function body.
// The generator (§4.3) walks a function's instructions in order and
// emits one or more constraints per instruction; instructions with no
// pointer-relevant effect (arithmetic, comparisons, branches) simply
// don't appear in this IR at all — the client is expected to have
// already filtered them out.
type Instruction interface {
	instr()
}

// AddrOf models `dst = &of`. Binds dst's node to point at of's object
// node.
type AddrOf struct {
	Dst Value
	Of  Value
}

func (AddrOf) instr() {}

// Copy models `dst = src` for pointer-typed values, including function
// parameter binding and return-value propagation.
type Copy struct {
	Dst Value
	Src Value
}

func (Copy) instr() {}

// Load models `dst = *src`.
type Load struct {
	Dst Value
	Src Value
}

func (Load) instr() {}

// Store models `*dst = src`.
type Store struct {
	Dst Value
	Src Value
}

func (Store) instr() {}

// Gep ("get element pointer") models `dst = &src->Field`: Src must be a
// pointer-typed value, and the constraint is dynamic — for every object
// Src's points-to set contains, Dst gains that object's node offset by
// Field. Field is the struct's top-level field index; the generator
// resolves it to a flattened object-node offset via the layout
// analyzer, not necessarily equal to the source-level field number.
type Gep struct {
	Dst   Value
	Src   Value
	Field int
}

func (Gep) instr() {}

// Alloc models a heap or stack allocation whose address escapes into
// Dst, e.g. `dst = new(T)` or `dst = malloc(sizeof(T))`. It is
// equivalent to introducing a fresh anonymous global and taking its
// address, but keeps the allocation's static type attached so the
// layout analyzer can size its object block.
type Alloc struct {
	Dst      Value
	AllocTy  Type
	HeapSite string // unique label for the allocation site, used in diagnostics
}

func (Alloc) instr() {}

// Call models a direct call to a statically known function.
type Call struct {
	Dst    Value // nil if the call result is unused or void
	Callee *Function
	Args   []Value
}

func (Call) instr() {}

// IndirectCall models a call through a function pointer. The engine
// resolves Callee's points-to set during solving and connects arguments
// and return value to every function currently in it (§4.5).
type IndirectCall struct {
	Dst    Value
	Callee Value
	Args   []Value
}

func (IndirectCall) instr() {}

// ExternCall models a call to a function with no analyzable body — a
// library or syscall boundary. Name is looked up in the external
// effects table (§4.2) to decide how arguments and the return value
// connect to each other.
type ExternCall struct {
	Dst  Value
	Name string
	Args []Value
}

func (ExternCall) instr() {}

// Return models a function's return value flowing to its callers.
type Return struct {
	Value Value // nil for void returns
}

func (Return) instr() {}

// Function is one analyzable function body.
type Function struct {
	FName        string
	Params       []Value
	Ret          Value // representative value for the return slot, nil if void
	Instrs       []Instruction
	AddressTaken bool // true if this function's address is stored somewhere
}

func (f *Function) Name() string { return f.FName }
func (f *Function) Type() Type   { return &Func{} }

// Module is the complete unit the engine analyzes: every function body,
// every global, and the flat list of struct types referenced from them.
type Module struct {
	Name    string
	Funcs   []*Function
	Globals []*Global
	Structs []*Struct
}
