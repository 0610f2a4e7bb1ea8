package colorcrunch

import "github.com/gogpu/colorcrunch/internal/kmath"

// PixelBuffer owns a caller's pixel bytes for the duration of a
// quantization call (spec §4.8). It is immutable and provides random
// indexed access in PixelF form on demand — no bulk conversion pass is
// required up front.
type PixelBuffer struct {
	pixels []Pixel8
}

// NewPixelBuffer wraps a contiguous byte array of interleaved R,G,B,R,G,B…
// channels. len(data) must be a positive multiple of 3; otherwise an
// EmptyBufferError (len==0) or InvalidConfigError (not a multiple of 3) is
// returned.
func NewPixelBuffer(data []byte) (*PixelBuffer, error) {
	if len(data) == 0 {
		return nil, &EmptyBufferError{}
	}
	if len(data)%3 != 0 {
		return nil, &InvalidConfigError{Field: "pixels", Reason: "length must be a multiple of 3"}
	}

	n := len(data) / 3
	pixels := make([]Pixel8, n)
	for i := 0; i < n; i++ {
		pixels[i] = Pixel8{R: data[i*3], G: data[i*3+1], B: data[i*3+2]}
	}
	return &PixelBuffer{pixels: pixels}, nil
}

// Len returns the number of pixels N in the buffer.
func (b *PixelBuffer) Len() int { return len(b.pixels) }

// At returns the storage-form pixel at index i.
func (b *PixelBuffer) At(i int) Pixel8 { return b.pixels[i] }

// PixelAt returns the compute-form pixel at index i.
func (b *PixelBuffer) PixelAt(i int) PixelF { return b.pixels[i].Float() }

// Float implements internal/lloyd.PixelSource; QuantizeImage also uses it
// to convert the sampled pixels it hands to internal/initializer.
func (b *PixelBuffer) Float(i int) kmath.Vec3 { return b.pixels[i].Float().vec3() }

// Channels implements internal/lloyd.PixelSource and
// internal/gpulloyd.PixelSource: the raw 8-bit channels widened to uint32
// for integer-accumulated reduction (spec §4.5 step 2).
func (b *PixelBuffer) Channels(i int) (r, g, b2 uint32) {
	p := b.pixels[i]
	return uint32(p.R), uint32(p.G), uint32(p.B)
}

// Bytes reconstructs the interleaved R,G,B byte representation of the
// buffer.
func (b *PixelBuffer) Bytes() []byte {
	out := make([]byte, len(b.pixels)*3)
	for i, p := range b.pixels {
		out[i*3] = p.R
		out[i*3+1] = p.G
		out[i*3+2] = p.B
	}
	return out
}
