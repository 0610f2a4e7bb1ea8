package colorcrunch

import "github.com/gogpu/colorcrunch/internal/kmath"

// Pixel8 is a three-channel 8-bit pixel, the storage form pixels arrive and
// leave the engine in (spec §3).
type Pixel8 struct {
	R, G, B uint8
}

// PixelF is a three-channel 32-bit floating-point pixel, the compute form
// used by both Lloyd backends. Conversion from Pixel8 is per-channel
// numeric widening — no gamma transformation is applied.
type PixelF struct {
	R, G, B float32
}

// Float widens p to its compute form.
func (p Pixel8) Float() PixelF {
	return PixelF{R: float32(p.R), G: float32(p.G), B: float32(p.B)}
}

// vec3 adapts p to the internal kmath.Vec3 shape the clustering kernels
// operate on, keeping the root package's public Pixel8/PixelF types free of
// any internal/ dependency in their own definitions.
func (p PixelF) vec3() kmath.Vec3 {
	return kmath.Vec3{X: p.R, Y: p.G, Z: p.B}
}
