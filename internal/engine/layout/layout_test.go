package layout

import (
	"testing"

	"github.com/kahrendsen/andersgo/pkg/ir"
)

func TestOf_ScalarType(t *testing.T) {
	a := NewAnalyzer(false)
	l := a.Of(&ir.Basic{Name: "int"})
	if l.Size != 1 || len(l.Off) != 1 || l.Off[0] != 0 {
		t.Fatalf("expected a single-slot layout for a scalar type, got %+v", l)
	}
}

func TestOf_Struct_FieldSensitive(t *testing.T) {
	a := NewAnalyzer(false)
	s := &ir.Struct{
		Name: "point",
		Fields: []ir.Field{
			{Name: "x", Type: &ir.Basic{Name: "int"}},
			{Name: "y", Type: &ir.Basic{Name: "int"}},
		},
	}
	l := a.Of(s)
	if l.Size != 2 {
		t.Fatalf("expected a 2-slot layout, got size %d", l.Size)
	}
	if l.Off[0] != 0 || l.Off[1] != 1 {
		t.Fatalf("expected offsets [0, 1], got %v", l.Off)
	}
}

func TestOf_Struct_FieldInsensitive(t *testing.T) {
	a := NewAnalyzer(true)
	s := &ir.Struct{
		Name: "point",
		Fields: []ir.Field{
			{Name: "x", Type: &ir.Basic{Name: "int"}},
			{Name: "y", Type: &ir.Basic{Name: "int"}},
		},
	}
	l := a.Of(s)
	if l.Size != 1 {
		t.Fatalf("field-insensitive layout should always collapse to size 1, got %d", l.Size)
	}
}

func TestOf_NestedStruct(t *testing.T) {
	a := NewAnalyzer(false)
	inner := &ir.Struct{
		Name: "inner",
		Fields: []ir.Field{
			{Name: "a", Type: &ir.Basic{Name: "int"}},
			{Name: "b", Type: &ir.Basic{Name: "int"}},
		},
	}
	outer := &ir.Struct{
		Name: "outer",
		Fields: []ir.Field{
			{Name: "head", Type: &ir.Basic{Name: "int"}},
			{Name: "nested", Type: inner},
			{Name: "tail", Type: &ir.Basic{Name: "int"}},
		},
	}
	l := a.Of(outer)
	if l.Size != 4 {
		t.Fatalf("expected head(1) + inner(2) + tail(1) = 4 slots, got %d", l.Size)
	}
	if l.Off[0] != 0 || l.Off[1] != 1 || l.Off[2] != 3 {
		t.Fatalf("expected offsets [0, 1, 3], got %v", l.Off)
	}
}

func TestOf_Array_CollapsesToOneSlot(t *testing.T) {
	a := NewAnalyzer(false)
	arr := &ir.Array{Elem: &ir.Basic{Name: "int"}, Len: 10}
	l := a.Of(arr)
	if l.Size != 1 {
		t.Fatalf("arrays should collapse to a single slot regardless of length, got size %d", l.Size)
	}
}

func TestOf_EmptyStruct(t *testing.T) {
	a := NewAnalyzer(false)
	l := a.Of(&ir.Struct{Name: "empty"})
	if l.Size != 1 {
		t.Fatalf("an empty struct should still get a single slot, got %d", l.Size)
	}
}

func TestOf_Memoizes(t *testing.T) {
	a := NewAnalyzer(false)
	s := &ir.Struct{Fields: []ir.Field{{Name: "x", Type: &ir.Basic{Name: "int"}}}}

	first := a.Of(s)
	second := a.Of(s)
	if first.Size != second.Size || len(first.Off) != len(second.Off) {
		t.Fatalf("repeated calls should return an equivalent cached layout")
	}
}

func TestOf_RecursiveStruct_DoesNotInfiniteLoop(t *testing.T) {
	a := NewAnalyzer(false)
	node := &ir.Struct{Name: "node"}
	node.Fields = []ir.Field{
		{Name: "value", Type: &ir.Basic{Name: "int"}},
		{Name: "next", Type: &ir.Pointer{Elem: node}},
	}

	l := a.Of(node)
	if l.Size != 2 {
		t.Fatalf("a self-referential struct's pointer field should count as one slot, got size %d", l.Size)
	}
}

func TestFieldSize_NestedStructReportsOwnSize(t *testing.T) {
	a := NewAnalyzer(false)
	inner := &ir.Struct{
		Name: "inner",
		Fields: []ir.Field{
			{Name: "a", Type: &ir.Basic{Name: "int"}},
			{Name: "b", Type: &ir.Basic{Name: "int"}},
		},
	}
	outer := &ir.Struct{
		Name: "outer",
		Fields: []ir.Field{
			{Name: "head", Type: &ir.Basic{Name: "int"}},
			{Name: "nested", Type: inner},
		},
	}

	if got := a.FieldSize(outer, 0); got != 1 {
		t.Errorf("FieldSize(head) = %d, want 1", got)
	}
	if got := a.FieldSize(outer, 1); got != 2 {
		t.Errorf("FieldSize(nested) = %d, want 2 (inner's own size, not outer's total)", got)
	}
}

func TestFieldOffset_ClampsOutOfRange(t *testing.T) {
	a := NewAnalyzer(false)
	s := &ir.Struct{
		Fields: []ir.Field{
			{Name: "x", Type: &ir.Basic{Name: "int"}},
			{Name: "y", Type: &ir.Basic{Name: "int"}},
		},
	}

	if got := a.FieldOffset(s, 0); got != 0 {
		t.Errorf("FieldOffset(0) = %d, want 0", got)
	}
	if got := a.FieldOffset(s, 1); got != 1 {
		t.Errorf("FieldOffset(1) = %d, want 1", got)
	}
	if got := a.FieldOffset(s, 5); got != 1 {
		t.Errorf("FieldOffset(5) should clamp to the last field's offset 1, got %d", got)
	}
	if got := a.FieldOffset(s, -1); got != 0 {
		t.Errorf("FieldOffset(-1) should clamp to the first field's offset 0, got %d", got)
	}
}
