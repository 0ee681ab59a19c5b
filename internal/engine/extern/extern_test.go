package extern

import "testing"

func TestEffectTag_String(t *testing.T) {
	cases := map[EffectTag]string{
		EffectNone:       "none",
		EffectAlloc:      "alloc",
		EffectRetArg0:    "ret_arg0",
		EffectArgAlias:   "arg_alias",
		EffectArgEscape:  "arg_escape",
		EffectUnknown:    "unknown",
		EffectTag(99):    "invalid",
	}
	for tag, want := range cases {
		if got := tag.String(); got != want {
			t.Errorf("EffectTag(%d).String() = %q, want %q", tag, got, want)
		}
	}
}

func TestNewDefaultTable_Lookup(t *testing.T) {
	tbl := NewDefaultTable()

	cases := map[string]EffectTag{
		"malloc":  EffectAlloc,
		"calloc":  EffectAlloc,
		"realloc": EffectRetArg0,
		"memcpy":  EffectRetArg0,
		"free":    EffectNone,
		"setenv":  EffectArgEscape,
	}
	for name, want := range cases {
		if got := tbl.Lookup(name); got != want {
			t.Errorf("Lookup(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestLookup_UnknownDefaultsToUnknown(t *testing.T) {
	tbl := NewDefaultTable()
	if got := tbl.Lookup("totally_unmodeled_function"); got != EffectUnknown {
		t.Errorf("Lookup of an unregistered name = %v, want EffectUnknown", got)
	}
}

func TestRegister_OverridesAndAdds(t *testing.T) {
	tbl := NewDefaultTable()

	tbl.Register("my_alloc", EffectAlloc)
	if got := tbl.Lookup("my_alloc"); got != EffectAlloc {
		t.Errorf("Lookup(%q) after Register = %v, want EffectAlloc", "my_alloc", got)
	}

	tbl.Register("malloc", EffectNone)
	if got := tbl.Lookup("malloc"); got != EffectNone {
		t.Errorf("Register should override an existing entry, got %v", got)
	}
}
