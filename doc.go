// Package colorcrunch reduces an RGB image to a small palette of
// representative colors using k-means clustering (Lloyd's algorithm), and
// reports which palette entry each pixel was assigned to.
//
// # Overview
//
// colorcrunch takes a flat buffer of interleaved 8-bit R,G,B pixels and
// produces a palette of at most K colors plus a per-pixel assignment into
// that palette. It is built around one algorithm — Lloyd's algorithm, in
// float32 RGB space with squared Euclidean distance — with two
// interchangeable backends: a scalar CPU implementation and a compute-shader
// GPU implementation selected through the same public API.
//
// # Quick Start
//
//	import "github.com/gogpu/colorcrunch"
//
//	buf, err := colorcrunch.NewPixelBuffer(rgbBytes)
//	if err != nil {
//		// handle error
//	}
//
//	q, err := colorcrunch.NewBuilder().
//		SetMaxColors(8).
//		Build()
//	if err != nil {
//		// handle error
//	}
//	defer q.Close()
//
//	result, err := q.QuantizeImage(buf)
//	if err != nil {
//		// handle error
//	}
//	// result.Centers holds up to 8 palette colors.
//	// result.Assignments[i] is the palette index for pixel i.
//
// # GPU backend
//
// The GPU backend is selected with SetAlgorithm(LloydGpu) and requires a
// compute.Adapter supplied via SetAdapter, injected the way gogpu-gg
// injects a custom Renderer. Tests and callers without real GPU hardware
// can use internal/compute/software, a goroutine-driven simulator that
// implements the same buffer layout and reduction semantics as the WGSL
// compute shader.
//
// # Determinism
//
// Given the same pixel buffer, Builder configuration, and seed, the CPU
// backend produces the same palette and assignments on every run:
// initialization and sampling draw from a seeded PRNG (internal/rng), and
// every tie (nearest-center distance ties, empty-cluster pruning order)
// breaks toward the lowest index. The GPU backend starts from the same
// seeded centers; its tests check its palette against the CPU backend's to
// within 1 per channel, not byte for byte.
//
// # Architecture
//
// The library is organized into:
//   - Public API: PixelBuffer, Builder, Quantizer, QuantizationResult
//   - internal/kmath: the shared Vec3 type every clustering kernel operates on
//   - internal/rng, internal/sampler, internal/initializer: sampling and seeding
//   - internal/lloyd: the CPU backend
//   - internal/compute, internal/compute/shader, internal/compute/native,
//     internal/compute/software, internal/gpulloyd: the GPU backend
//   - internal/parallel: the worker pool both backends fan work out to
package colorcrunch
