package initializer

import (
	"github.com/gogpu/colorcrunch/internal/kmath"
	"github.com/gogpu/colorcrunch/internal/rng"
)

// KMeansPlusPlus chooses the first center uniformly from sampled, then each
// subsequent center with probability proportional to its squared distance
// to the nearest already-chosen center (spec §4.4). A running per-point
// minimum-distance array is updated incrementally against only the most
// recently added center, so the whole pass costs O(k*m) distance
// evaluations rather than the O(k^2*m) a naive "distance to every center"
// recompute would cost.
func KMeansPlusPlus(src *rng.Source, sampled []kmath.Vec3, k int) []kmath.Vec3 {
	m := len(sampled)
	if m == 0 || k == 0 {
		return nil
	}

	centers := make([]kmath.Vec3, 0, k)
	first := sampled[src.UintN(uint64(m))]
	centers = append(centers, first)

	minDist := make([]float32, m)
	for i, x := range sampled {
		minDist[i] = kmath.SquaredDistance(x, first)
	}

	for len(centers) < k {
		var total float64
		for _, d := range minDist {
			total += float64(d)
		}

		var next int
		if total == 0 {
			// Every sampled point already coincides with a chosen center;
			// there is no meaningful weighting left. Pick the lowest index,
			// matching the tie-break rule for identical prefix boundaries.
			next = 0
		} else {
			target := src.UniformIn(total)
			var cum float64
			next = m - 1
			for i, d := range minDist {
				cum += float64(d)
				if target < cum {
					next = i
					break
				}
			}
		}

		c := sampled[next]
		centers = append(centers, c)
		for i, x := range sampled {
			if d := kmath.SquaredDistance(x, c); d < minDist[i] {
				minDist[i] = d
			}
		}
	}

	return centers
}
