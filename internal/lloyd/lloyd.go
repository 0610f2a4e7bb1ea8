// Package lloyd implements the CPU Lloyd backend (spec §4.5): the scalar
// assign/reduce/update/drift iteration that either fits a sample or
// produces the final full-buffer assignment.
//
// Work is fanned out across internal/parallel's WorkerPool the same way
// gogpu-gg's rasterizer splits scanlines across workers: each worker
// accumulates into its own slice of per-cluster counters, and a final
// sequential merge combines them. That mirrors the GPU backend's
// workgroup-local-then-global reduction (spec §9) without needing atomics
// on the CPU side.
package lloyd

import (
	"github.com/gogpu/colorcrunch/internal/kmath"
	"github.com/gogpu/colorcrunch/internal/parallel"
)

// PixelSource is the read-only view the CPU backend needs into a pixel
// buffer: PixelF for distance computation, raw widened channels for
// integer-accumulated reduction. The root package's PixelBuffer implements
// this; internal/lloyd never imports the root package, avoiding a cycle.
type PixelSource interface {
	Len() int
	Float(i int) kmath.Vec3
	Channels(i int) (r, g, b uint32)
}

// accum holds one worker's partial reduction over its slice of the working
// set, keyed by cluster index.
type accum struct {
	counts []uint64
	sums   [][3]uint64
}

func newAccum(k int) accum {
	return accum{counts: make([]uint64, k), sums: make([][3]uint64, k)}
}

// Assign writes assignments[idx] = argmin_k ||Float(idx) - centers[k]||^2
// for every idx in working, breaking ties to the lowest k (spec §4.5 step
// 1). It is also used standalone for the Quantizer's final full-buffer
// assignment pass (spec §4.7).
func Assign(pixels PixelSource, working []int, centers []kmath.Vec3, assignments []uint32, pool *parallel.WorkerPool) {
	if pool == nil || pool.Workers() <= 1 || len(working) < 2*pool.Workers() {
		assignRange(pixels, working, centers, assignments)
		return
	}

	chunks := splitChunks(len(working), pool.Workers())
	work := make([]func(), 0, len(chunks))
	for _, c := range chunks {
		lo, hi := c[0], c[1]
		work = append(work, func() {
			assignRange(pixels, working[lo:hi], centers, assignments)
		})
	}
	pool.ExecuteAll(work)
}

func assignRange(pixels PixelSource, working []int, centers []kmath.Vec3, assignments []uint32) {
	for _, idx := range working {
		k, _ := kmath.NearestCenter(pixels.Float(idx), centers)
		assignments[idx] = uint32(k)
	}
}

// Iterate performs one full Lloyd iteration (spec §4.5): assign, reduce,
// update, drift. centers is updated in place; the returned drift is
// max_k ||c_k_new - c_k_old||. Clusters with zero count keep their prior
// center for this iteration (pruning is the Quantizer's job, spec §4.7).
func Iterate(pixels PixelSource, working []int, centers []kmath.Vec3, assignments []uint32, pool *parallel.WorkerPool) float32 {
	k := len(centers)
	Assign(pixels, working, centers, assignments, pool)

	var total accum
	if pool == nil || pool.Workers() <= 1 || len(working) < 2*pool.Workers() {
		total = reduceRange(pixels, working, assignments, k)
	} else {
		chunks := splitChunks(len(working), pool.Workers())
		partials := make([]accum, len(chunks))
		work := make([]func(), len(chunks))
		for i, c := range chunks {
			i, lo, hi := i, c[0], c[1]
			work[i] = func() {
				partials[i] = reduceRange(pixels, working[lo:hi], assignments, k)
			}
		}
		pool.ExecuteAll(work)

		total = newAccum(k)
		for _, p := range partials {
			for c := 0; c < k; c++ {
				total.counts[c] += p.counts[c]
				total.sums[c][0] += p.sums[c][0]
				total.sums[c][1] += p.sums[c][1]
				total.sums[c][2] += p.sums[c][2]
			}
		}
	}

	var drift float32
	for c := 0; c < k; c++ {
		old := centers[c]
		if total.counts[c] > 0 {
			n := float32(total.counts[c])
			centers[c] = kmath.Vec3{
				X: float32(total.sums[c][0]) / n,
				Y: float32(total.sums[c][1]) / n,
				Z: float32(total.sums[c][2]) / n,
			}
		}
		if d := kmath.Distance(centers[c], old); d > drift {
			drift = d
		}
	}
	return drift
}

func reduceRange(pixels PixelSource, working []int, assignments []uint32, k int) accum {
	a := newAccum(k)
	for _, idx := range working {
		c := assignments[idx]
		a.counts[c]++
		r, g, b := pixels.Channels(idx)
		a.sums[c][0] += uint64(r)
		a.sums[c][1] += uint64(g)
		a.sums[c][2] += uint64(b)
	}
	return a
}

// splitChunks partitions [0, n) into up to parts contiguous ranges,
// returning each as a [lo, hi) pair.
func splitChunks(n, parts int) [][2]int {
	if parts > n {
		parts = n
	}
	if parts < 1 {
		parts = 1
	}
	base := n / parts
	rem := n % parts
	chunks := make([][2]int, 0, parts)
	lo := 0
	for i := 0; i < parts; i++ {
		size := base
		if i < rem {
			size++
		}
		hi := lo + size
		if hi > lo {
			chunks = append(chunks, [2]int{lo, hi})
		}
		lo = hi
	}
	return chunks
}
