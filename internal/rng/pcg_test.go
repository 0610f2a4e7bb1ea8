package rng

import "testing"

func TestDeterministic(t *testing.T) {
	a := New(42)
	b := New(42)

	for i := 0; i < 100; i++ {
		av := a.UintN(1000)
		bv := b.UintN(1000)
		if av != bv {
			t.Fatalf("draw %d: got %d and %d for identical seeds", i, av, bv)
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := New(1)
	b := New(2)

	same := true
	for i := 0; i < 20; i++ {
		if a.UintN(1<<32) != b.UintN(1<<32) {
			same = false
			break
		}
	}
	if same {
		t.Fatal("expected different seeds to diverge within 20 draws")
	}
}

func TestFloat64Range(t *testing.T) {
	s := New(7)
	for i := 0; i < 1000; i++ {
		v := s.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("Float64() = %v, want [0,1)", v)
		}
	}
}

func TestUniformInBounds(t *testing.T) {
	s := New(7)
	for i := 0; i < 1000; i++ {
		v := s.UniformIn(50)
		if v < 0 || v >= 50 {
			t.Fatalf("UniformIn(50) = %v, want [0,50)", v)
		}
	}
}

func TestUniformInZeroTotal(t *testing.T) {
	s := New(7)
	if v := s.UniformIn(0); v != 0 {
		t.Fatalf("UniformIn(0) = %v, want 0", v)
	}
}
