package colorcrunch

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gogpu/colorcrunch/internal/compute"
	"github.com/gogpu/colorcrunch/internal/gpulloyd"
	"github.com/gogpu/colorcrunch/internal/initializer"
	"github.com/gogpu/colorcrunch/internal/kmath"
	"github.com/gogpu/colorcrunch/internal/lloyd"
	"github.com/gogpu/colorcrunch/internal/parallel"
	"github.com/gogpu/colorcrunch/internal/rng"
	"github.com/gogpu/colorcrunch/internal/sampler"
)

// gpuBufferLimit is the largest pixel count the GPU backend's 32-bit
// atomic channel sums can hold without overflow: 255*N must fit in a
// uint32 (spec §4.6).
const gpuBufferLimit = 1 << 24

// Quantizer orchestrates initialization and Lloyd iteration to reduce a
// PixelBuffer to a palette (spec §4.7 / C7). Build a Quantizer with
// NewBuilder; it is not constructible directly. Call Close when done with
// it to release any worker pool and GPU pipeline resources it owns.
type Quantizer struct {
	maxColors     uint
	sampleRate    float64
	tolerance     float64
	maxIterations uint
	initializer   Initializer
	algorithm     Algorithm
	seed          uint64
	adapter       compute.Adapter
	pool          *parallel.WorkerPool
	ownsPool      bool

	driverOnce sync.Once
	driver     *gpulloyd.Driver
	driverErr  error
}

// Close releases resources the Quantizer owns: a worker pool created
// internally by Build (never one injected via SetWorkerPool/WithWorkerPool)
// and, if the GPU backend was ever invoked, its compiled pipeline, mirroring
// gpulloyd.Driver's own Close. Close is safe to call more than once; it does
// not close an injected worker pool or adapter, since the caller retains
// ownership of those.
func (q *Quantizer) Close() {
	if q.driver != nil {
		q.driver.Close()
	}
	if q.ownsPool && q.pool != nil {
		q.pool.Close()
	}
}

// QuantizeImage runs the full pipeline: seed centers from a sample, iterate
// Lloyd's algorithm on the selected backend until convergence or the
// iteration cap, assign every pixel in the buffer to its nearest final
// center, prune empty clusters, and return the resulting palette (spec
// §4.7, §6).
func (q *Quantizer) QuantizeImage(buf *PixelBuffer) (*QuantizationResult, error) {
	n := buf.Len()
	if n == 0 {
		return nil, &EmptyBufferError{}
	}
	if q.algorithm == LloydGpu && n > gpuBufferLimit {
		return nil, &BufferTooLargeError{N: n, Max: gpuBufferLimit}
	}

	Logger().Info("quantizing image", slog.String("algorithm", q.algorithm.String()), slog.Int("n", n))

	src := rng.New(q.seed)
	working := sampler.Draw(src, n, q.sampleRate)

	Logger().Debug("drew working set", slog.Int("m", len(working)), slog.String("initializer", q.initializer.String()))

	sampled := make([]kmath.Vec3, len(working))
	for i, idx := range working {
		sampled[i] = buf.Float(idx)
	}

	k := int(q.maxColors)
	var centers []kmath.Vec3
	switch q.initializer {
	case Random:
		centers = initializer.Random(src, sampled, k)
	default:
		centers = initializer.KMeansPlusPlus(src, sampled, k)
	}

	assignments := make([]uint32, n)

	var driver *gpulloyd.Driver
	if q.algorithm == LloydGpu {
		var err error
		driver, err = q.gpuDriver()
		if err != nil {
			return nil, err
		}
	}

	iterations := 0
	converged := false
	var drift float32
	for iterations < int(q.maxIterations) {
		var err error
		if q.algorithm == LloydGpu {
			drift, err = driver.Run(buf, working, centers, assignments)
			if err != nil {
				return nil, err
			}
		} else {
			drift = lloyd.Iterate(buf, working, centers, assignments, q.pool)
		}
		iterations++

		if math32IsNonFinite(drift) {
			return nil, &NumericFailureError{Stage: "iterate"}
		}
		Logger().Debug("iteration complete", slog.Int("iteration", iterations), slog.Float64("drift", float64(drift)))
		if float64(drift) <= q.tolerance {
			converged = true
			break
		}
	}

	full := identityIndices(n)
	lloyd.Assign(buf, full, centers, assignments, q.pool)

	for _, c := range centers {
		if math32IsNonFinite(c.X) || math32IsNonFinite(c.Y) || math32IsNonFinite(c.Z) {
			return nil, &NumericFailureError{Stage: "assignment"}
		}
	}

	prunedCenters, prunedAssignments, sizes := pruneEmptyClusters(centers, assignments)

	return &QuantizationResult{
		Centers:     centersToPixel8(prunedCenters),
		Assignments: prunedAssignments,
		Iterations:  iterations,
		Converged:   converged,
		FinalDrift:  float64(drift),
		Sizes:       sizes,
	}, nil
}

// gpuDriver lazily builds and caches the GPU pipeline the first time it's
// needed, so a Quantizer configured for LloydGpu but never invoked never
// pays shader-compile cost.
func (q *Quantizer) gpuDriver() (*gpulloyd.Driver, error) {
	q.driverOnce.Do(func() {
		Logger().Info("selecting GPU adapter", slog.String("adapter", adapterTypeName(q.adapter)))
		q.driver, q.driverErr = gpulloyd.New(q.adapter)
	})
	return q.driver, q.driverErr
}

// adapterTypeName reports the concrete compute.Adapter implementation, for
// the Info-level "adapter chosen" log point.
func adapterTypeName(a compute.Adapter) string {
	return fmt.Sprintf("%T", a)
}

func identityIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// pruneEmptyClusters removes clusters with zero population, compacts the
// surviving centers, and remaps assignments to the new indices, preserving
// the relative order of surviving clusters (spec §4.7).
func pruneEmptyClusters(centers []kmath.Vec3, assignments []uint32) ([]kmath.Vec3, []uint32, []uint32) {
	counts := make([]uint32, len(centers))
	for _, a := range assignments {
		counts[a]++
	}

	remap := make([]uint32, len(centers))
	prunedCenters := make([]kmath.Vec3, 0, len(centers))
	sizes := make([]uint32, 0, len(centers))
	for old, c := range counts {
		if c == 0 {
			Logger().Warn("empty cluster pruned", slog.Int("cluster", old))
			continue
		}
		remap[old] = uint32(len(prunedCenters))
		prunedCenters = append(prunedCenters, centers[old])
		sizes = append(sizes, c)
	}

	prunedAssignments := make([]uint32, len(assignments))
	for i, a := range assignments {
		prunedAssignments[i] = remap[a]
	}

	return prunedCenters, prunedAssignments, sizes
}

func math32IsNonFinite(v float32) bool {
	f := float64(v)
	return math.IsNaN(f) || math.IsInf(f, 0)
}
