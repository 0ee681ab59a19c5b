package bitvec

import "testing"

func TestSet_AddHas(t *testing.T) {
	s := New(64)

	if !s.Add(5) {
		t.Error("expected Add(5) to report a change")
	}
	if s.Add(5) {
		t.Error("expected Add(5) to report no change the second time")
	}
	if !s.Has(5) {
		t.Error("expected Has(5) true")
	}
	if s.Has(6) {
		t.Error("expected Has(6) false")
	}
}

func TestSet_GrowsBeyondCapacity(t *testing.T) {
	s := New(8)

	s.Add(500)
	if !s.Has(500) {
		t.Error("expected Has(500) true after growing past initial capacity")
	}
	if s.Len() != 1 {
		t.Errorf("expected Len() == 1, got %d", s.Len())
	}
}

func TestSet_UnionWith(t *testing.T) {
	a := New(64)
	a.Add(1)
	a.Add(2)

	b := New(64)
	b.Add(2)
	b.Add(3)

	if !a.UnionWith(b) {
		t.Error("expected UnionWith to report a change")
	}
	if a.UnionWith(b) {
		t.Error("expected second UnionWith to be a no-op")
	}

	for _, i := range []int{1, 2, 3} {
		if !a.Has(i) {
			t.Errorf("expected Has(%d) true after union", i)
		}
	}
}

func TestSet_IsSubsetOf(t *testing.T) {
	small := New(64)
	small.Add(1)

	big := New(64)
	big.Add(1)
	big.Add(2)

	if !small.IsSubsetOf(big) {
		t.Error("expected small to be a subset of big")
	}
	if big.IsSubsetOf(small) {
		t.Error("expected big not to be a subset of small")
	}
}

func TestSet_Equal(t *testing.T) {
	a := New(64)
	a.Add(10)
	a.Add(200)

	b := New(4)
	b.Add(200)
	b.Add(10)

	if !a.Equal(b) {
		t.Error("expected sets with the same members to be equal regardless of backing size")
	}

	b.Add(5)
	if a.Equal(b) {
		t.Error("expected sets to differ after adding an extra member")
	}
}

func TestSet_ForEachAndSlice(t *testing.T) {
	s := New(64)
	for _, i := range []int{3, 1, 64, 2} {
		s.Add(i)
	}

	got := s.Slice()
	want := []int{1, 2, 3, 64}
	if len(got) != len(want) {
		t.Fatalf("expected %d members, got %d", len(want), len(got))
	}
	for i, v := range want {
		if got[i] != v {
			t.Errorf("expected member %d at position %d, got %d", v, i, got[i])
		}
	}
}

func TestSet_Clear(t *testing.T) {
	s := New(64)
	s.Add(1)
	s.Add(2)
	s.Clear()
	if !s.IsEmpty() {
		t.Error("expected set to be empty after Clear")
	}
}

func TestSet_HashStableAcrossClone(t *testing.T) {
	s := New(64)
	s.Add(4)
	s.Add(70)

	clone := s.Clone()
	if s.Hash() != clone.Hash() {
		t.Error("expected clone to hash identically to the original")
	}

	clone.Add(5)
	if s.Hash() == clone.Hash() {
		t.Error("expected hash to change after modifying the clone")
	}
}
