package engine

// ConstraintKind is one of the five inclusion-constraint forms Andersen's
// analysis reduces every pointer-relevant instruction to.
type ConstraintKind int

const (
	// AddrOf: Dst ⊇ {Src}.  Src is an object node.
	AddrOf ConstraintKind = iota
	// Copy: Dst ⊇ Src.
	Copy
	// Load: Dst ⊇ *Src, i.e. for every object o in pts(Src), Dst ⊇ pts(o).
	Load
	// Store: *Dst ⊇ Src, i.e. for every object o in pts(Dst), pts(o) ⊇ Src.
	Store
	// Gep: Dst ⊇ Src + Offset, a field-sensitive address computation.
	Gep
)

func (k ConstraintKind) String() string {
	switch k {
	case AddrOf:
		return "addr_of"
	case Copy:
		return "copy"
	case Load:
		return "load"
	case Store:
		return "store"
	case Gep:
		return "gep"
	default:
		return "unknown"
	}
}

// Constraint is one inclusion constraint emitted by the generator (§4.3)
// before it is folded into the arena's edge lists, optimized (§4.4), and
// solved (§4.5).
type Constraint struct {
	Kind   ConstraintKind
	Dst    NodeID
	Src    NodeID
	Offset int // meaningful only for Gep
}

// Apply folds a constraint into the arena's representation: simple
// constraints (AddrOf, Copy) become immediate points-to updates or
// direct graph edges; complex constraints (Load, Store, Gep) become
// edges the solver re-evaluates every time their Src's points-to set
// grows.
func Apply(a *Arena, c Constraint) (changed bool) {
	switch c.Kind {
	case AddrOf:
		return a.AddPointsTo(c.Dst, a.Find(c.Src))
	case Copy:
		a.AddCopyEdge(c.Src, c.Dst)
		return false
	case Load:
		a.AddLoadEdge(c.Src, c.Dst)
		return false
	case Store:
		a.AddStoreEdge(c.Dst, c.Src)
		return false
	case Gep:
		a.AddGepEdge(c.Src, c.Offset, c.Dst)
		return false
	}
	return false
}
