// Package initializer implements spec §4.4: producing the K initial
// centers a Lloyd iteration starts from. Both variants operate purely over
// already-sampled pixel values (kmath.Vec3) and an rng.Source, so they have
// no dependency on the root package's PixelBuffer type — the caller
// converts the sampled index set to PixelF values once, up front.
package initializer

import (
	"github.com/gogpu/colorcrunch/internal/kmath"
	"github.com/gogpu/colorcrunch/internal/rng"
)

// Random chooses k indices from sampled uniformly at random with
// replacement; duplicates are kept deliberately (spec §4.4: "If duplicates
// arise they are kept"). The Quantizer's empty-cluster pruning (spec §4.7)
// is what resolves any resulting empty cluster, not deduplication here —
// this is a documented choice, not an oversight (spec §9 Open Question).
func Random(src *rng.Source, sampled []kmath.Vec3, k int) []kmath.Vec3 {
	centers := make([]kmath.Vec3, k)
	m := uint64(len(sampled))
	for i := range centers {
		centers[i] = sampled[src.UintN(m)]
	}
	return centers
}
