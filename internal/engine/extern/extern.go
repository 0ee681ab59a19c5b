// Package extern models the effect of calls to functions whose bodies
// are not available to the analysis — libc, syscalls, and anything else
// that crosses the boundary of what the IR describes (§4.2, §6.3). Each
// known external function is tagged with how its arguments and return
// value interact, so the generator can synthesize the right constraints
// without a body to walk.
package extern

// EffectTag classifies how an external function's arguments and return
// value connect.
type EffectTag int

const (
	// EffectNone: the call has no pointer-relevant effect at all
	// (e.g. an arithmetic libm function).
	EffectNone EffectTag = iota
	// EffectAlloc: the return value points to a fresh, otherwise
	// unreachable heap object (malloc, calloc-like allocators).
	EffectAlloc
	// EffectRetArg0: the return value aliases the first argument
	// (e.g. realloc, strcpy-style "return the destination").
	EffectRetArg0
	// EffectArgAlias: every argument's points-to set is unioned
	// together and flows back into every argument and the return
	// value (e.g. a generic swap/exchange primitive).
	EffectArgAlias
	// EffectArgEscape: the pointee of every argument becomes
	// reachable from NodeUnknown, modeling a function that stashes
	// its inputs somewhere outside the analysis's view (e.g. a
	// registration/callback-store function).
	EffectArgEscape
	// EffectUnknown: the function's behavior could not be
	// determined; the engine conservatively applies EffectArgEscape
	// and, if CheckConsUndef is enabled, records a diagnostic.
	EffectUnknown
)

func (t EffectTag) String() string {
	switch t {
	case EffectNone:
		return "none"
	case EffectAlloc:
		return "alloc"
	case EffectRetArg0:
		return "ret_arg0"
	case EffectArgAlias:
		return "arg_alias"
	case EffectArgEscape:
		return "arg_escape"
	case EffectUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Table maps external function names to their effect tag.
type Table struct {
	byName map[string]EffectTag
}

// NewDefaultTable returns a table seeded with the common libc-family
// functions the original implementation special-cased.
func NewDefaultTable() *Table {
	t := &Table{byName: make(map[string]EffectTag, 32)}

	for _, name := range []string{"malloc", "calloc", "valloc", "xmalloc", "xcalloc"} {
		t.byName[name] = EffectAlloc
	}
	for _, name := range []string{"realloc", "strcpy", "strncpy", "memcpy", "memmove"} {
		t.byName[name] = EffectRetArg0
	}
	for _, name := range []string{"free", "exit", "abort"} {
		t.byName[name] = EffectNone
	}
	for _, name := range []string{"setenv", "putenv", "atexit"} {
		t.byName[name] = EffectArgEscape
	}

	return t
}

// Lookup returns the effect tag registered for name, or EffectUnknown
// if the table has no entry.
func (t *Table) Lookup(name string) EffectTag {
	if tag, ok := t.byName[name]; ok {
		return tag
	}
	return EffectUnknown
}

// Register adds or overrides the effect tag for name, letting a client
// extend the table with project-specific externals (§6.4 configuration).
func (t *Table) Register(name string, tag EffectTag) {
	t.byName[name] = tag
}
