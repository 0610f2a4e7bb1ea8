package colorcrunch

import (
	"math"

	"github.com/gogpu/colorcrunch/internal/kmath"
)

// QuantizationResult is the output of Quantizer.QuantizeImage (spec §3,
// §6): a palette of K' representative colors and, for every input pixel,
// which palette entry it was assigned to.
type QuantizationResult struct {
	// Centers holds the final palette, rounded half-to-even and clamped to
	// [0, 255] per channel (spec §6). len(Centers) == K'.
	Centers []Pixel8
	// Assignments holds the palette index for every input pixel.
	// len(Assignments) == N, and every entry is in [0, len(Centers)).
	Assignments []uint32

	// Iterations is the number of Lloyd iterations run before termination.
	Iterations int
	// Converged is true if termination was by drift <= tolerance, false if
	// it was by hitting maxIterations.
	Converged bool
	// FinalDrift is the drift computed on the last iteration run (0 if
	// maxIterations was 0, which Build never allows).
	FinalDrift float64
	// Sizes holds the population of each surviving cluster, in the same
	// order as Centers.
	Sizes []uint32
}

// roundHalfToEvenClamp rounds v to the nearest integer, breaking exact .5
// ties toward the nearest even integer, then clamps to [0, 255] for 8-bit
// channel storage (spec §6). This differs deliberately from a
// round-half-up scheme: k-means centroids land on exact .5 boundaries
// often enough (e.g. an even split between two channel values) that the
// rounding rule is externally observable.
func roundHalfToEvenClamp(v float32) uint8 {
	r := math.RoundToEven(float64(v))
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}

func centersToPixel8(centers []kmath.Vec3) []Pixel8 {
	out := make([]Pixel8, len(centers))
	for i, c := range centers {
		out[i] = Pixel8{
			R: roundHalfToEvenClamp(c.X),
			G: roundHalfToEvenClamp(c.Y),
			B: roundHalfToEvenClamp(c.Z),
		}
	}
	return out
}
