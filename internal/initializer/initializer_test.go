package initializer

import (
	"testing"

	"github.com/gogpu/colorcrunch/internal/kmath"
	"github.com/gogpu/colorcrunch/internal/rng"
)

func sampleSet() []kmath.Vec3 {
	return []kmath.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 1, Z: 1},
		{X: 10, Y: 10, Z: 10},
		{X: 11, Y: 11, Z: 11},
		{X: 200, Y: 200, Z: 200},
	}
}

func TestRandomCount(t *testing.T) {
	centers := Random(rng.New(1), sampleSet(), 3)
	if len(centers) != 3 {
		t.Fatalf("len = %d, want 3", len(centers))
	}
}

func TestRandomFromSample(t *testing.T) {
	s := sampleSet()
	centers := Random(rng.New(1), s, 4)
	for _, c := range centers {
		found := false
		for _, x := range s {
			if x == c {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("center %v not present in sample", c)
		}
	}
}

func TestRandomDeterministic(t *testing.T) {
	s := sampleSet()
	a := Random(rng.New(42), s, 3)
	b := Random(rng.New(42), s, 3)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("index %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestRandomAllowsDuplicates(t *testing.T) {
	// A single-element sample forces every draw to collide.
	s := []kmath.Vec3{{X: 5, Y: 5, Z: 5}}
	centers := Random(rng.New(0), s, 4)
	for _, c := range centers {
		if c != s[0] {
			t.Fatalf("center %v, want %v", c, s[0])
		}
	}
}

func TestKMeansPlusPlusCount(t *testing.T) {
	centers := KMeansPlusPlus(rng.New(1), sampleSet(), 3)
	if len(centers) != 3 {
		t.Fatalf("len = %d, want 3", len(centers))
	}
}

func TestKMeansPlusPlusDeterministic(t *testing.T) {
	s := sampleSet()
	a := KMeansPlusPlus(rng.New(7), s, 4)
	b := KMeansPlusPlus(rng.New(7), s, 4)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("index %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestKMeansPlusPlusSpreadsCenters(t *testing.T) {
	// With five well-separated points and k=5, KMeans++ should pick each
	// point exactly once: after each pick the chosen point's own
	// contribution to the weighting drops to zero, making it very unlikely
	// (and here, with these separations, impossible) to repeat.
	s := sampleSet()
	centers := KMeansPlusPlus(rng.New(3), s, len(s))
	seen := map[kmath.Vec3]int{}
	for _, c := range centers {
		seen[c]++
	}
	if len(seen) != len(s) {
		t.Fatalf("got %d distinct centers, want %d: %v", len(seen), len(s), centers)
	}
}

func TestKMeansPlusPlusSingleSample(t *testing.T) {
	s := []kmath.Vec3{{X: 1, Y: 2, Z: 3}}
	centers := KMeansPlusPlus(rng.New(0), s, 4)
	if len(centers) != 4 {
		t.Fatalf("len = %d, want 4", len(centers))
	}
	for _, c := range centers {
		if c != s[0] {
			t.Fatalf("center %v, want %v", c, s[0])
		}
	}
}

func TestKMeansPlusPlusEmptySample(t *testing.T) {
	if centers := KMeansPlusPlus(rng.New(0), nil, 3); centers != nil {
		t.Fatalf("centers = %v, want nil", centers)
	}
}
