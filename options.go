package colorcrunch

import (
	"log/slog"

	"github.com/gogpu/colorcrunch/internal/compute"
	"github.com/gogpu/colorcrunch/internal/compute/shader"
	"github.com/gogpu/colorcrunch/internal/parallel"
)

// Initializer selects how the Builder seeds initial centers (spec §4.4).
type Initializer int

const (
	// KMeansPlusPlus seeds centers with probability proportional to
	// squared distance from already-chosen centers. This is the default.
	KMeansPlusPlus Initializer = iota
	// Random chooses centers uniformly at random from the working set,
	// with replacement.
	Random
)

// String returns the initializer's name, for logging.
func (i Initializer) String() string {
	if i == Random {
		return "random"
	}
	return "kmeans++"
}

// Algorithm selects the Lloyd iteration backend (spec §4.1).
type Algorithm int

const (
	// Lloyd runs the scalar CPU backend. This is the default.
	Lloyd Algorithm = iota
	// LloydGpu runs the compute-shader backend via a compute.Adapter.
	LloydGpu
)

// String returns the algorithm's name, for logging.
func (a Algorithm) String() string {
	if a == LloydGpu {
		return "lloyd-gpu"
	}
	return "lloyd"
}

// Builder accumulates configuration for a Quantizer (spec §4.1). Every
// option has a mutating setter and a returning with-style combinator; they
// are semantically identical, one mutates b in place for fluent chaining,
// the other returns an independent copy so a base configuration can seed
// several variants.
//
// Example:
//
//	q, err := colorcrunch.NewBuilder().
//		SetMaxColors(8).
//		SetInitializer(colorcrunch.Random).
//		Build()
type Builder struct {
	maxColors     uint
	sampleRate    float64
	tolerance     float64
	maxIterations uint
	initializer   Initializer
	algorithm     Algorithm
	seed          uint64
	adapter       compute.Adapter
	pool          *parallel.WorkerPool
}

// NewBuilder returns a Builder populated with the documented defaults:
// maxColors=16, sampleRate=1.0, tolerance=1.0, maxIterations=100,
// initializer=KMeansPlusPlus, algorithm=Lloyd, seed=0.
func NewBuilder() *Builder {
	return &Builder{
		maxColors:     16,
		sampleRate:    1.0,
		tolerance:     1.0,
		maxIterations: 100,
		initializer:   KMeansPlusPlus,
		algorithm:     Lloyd,
		seed:          0,
	}
}

// SetMaxColors sets the palette size upper bound K and returns b for
// chaining.
func (b *Builder) SetMaxColors(k uint) *Builder { b.maxColors = k; return b }

// WithMaxColors returns a copy of b with the palette size upper bound
// changed, leaving b untouched.
func (b *Builder) WithMaxColors(k uint) *Builder { c := *b; c.maxColors = k; return &c }

// SetSampleRate sets the fraction of pixels used for fitting and returns b
// for chaining.
func (b *Builder) SetSampleRate(rate float64) *Builder { b.sampleRate = rate; return b }

// WithSampleRate returns a copy of b with the sample rate changed.
func (b *Builder) WithSampleRate(rate float64) *Builder { c := *b; c.sampleRate = rate; return &c }

// SetTolerance sets the convergence drift threshold and returns b for
// chaining.
func (b *Builder) SetTolerance(t float64) *Builder { b.tolerance = t; return b }

// WithTolerance returns a copy of b with the tolerance changed.
func (b *Builder) WithTolerance(t float64) *Builder { c := *b; c.tolerance = t; return &c }

// SetMaxIterations sets the hard cap on Lloyd iterations and returns b for
// chaining.
func (b *Builder) SetMaxIterations(n uint) *Builder { b.maxIterations = n; return b }

// WithMaxIterations returns a copy of b with the iteration cap changed.
func (b *Builder) WithMaxIterations(n uint) *Builder { c := *b; c.maxIterations = n; return &c }

// SetInitializer sets the center-seeding strategy and returns b for
// chaining.
func (b *Builder) SetInitializer(i Initializer) *Builder { b.initializer = i; return b }

// WithInitializer returns a copy of b with the initializer changed.
func (b *Builder) WithInitializer(i Initializer) *Builder { c := *b; c.initializer = i; return &c }

// SetAlgorithm sets the backend and returns b for chaining.
func (b *Builder) SetAlgorithm(a Algorithm) *Builder { b.algorithm = a; return b }

// WithAlgorithm returns a copy of b with the backend changed.
func (b *Builder) WithAlgorithm(a Algorithm) *Builder { c := *b; c.algorithm = a; return &c }

// SetSeed sets the RNG seed and returns b for chaining.
func (b *Builder) SetSeed(seed uint64) *Builder { b.seed = seed; return b }

// WithSeed returns a copy of b with the seed changed.
func (b *Builder) WithSeed(seed uint64) *Builder { c := *b; c.seed = seed; return &c }

// SetAdapter injects a compute.Adapter to drive the LloydGpu backend and
// returns b for chaining. It is the dependency-injection seam a GPU
// backend needs so it can be constructed and tested without real
// hardware, in the same spirit as gogpu-gg's WithRenderer.
//
// Example:
//
//	adapter := software.New(nil) // or a native.Adapter wrapping a real GPU
//	q, err := colorcrunch.NewBuilder().
//		SetAlgorithm(colorcrunch.LloydGpu).
//		SetAdapter(adapter).
//		Build()
func (b *Builder) SetAdapter(a compute.Adapter) *Builder { b.adapter = a; return b }

// WithAdapter returns a copy of b with the adapter changed.
func (b *Builder) WithAdapter(a compute.Adapter) *Builder { c := *b; c.adapter = a; return &c }

// SetWorkerPool injects the worker pool the CPU backend fans assign/reduce
// work out to. If unset, Build creates one sized to GOMAXPROCS.
func (b *Builder) SetWorkerPool(p *parallel.WorkerPool) *Builder { b.pool = p; return b }

// WithWorkerPool returns a copy of b with the worker pool changed.
func (b *Builder) WithWorkerPool(p *parallel.WorkerPool) *Builder { c := *b; c.pool = p; return &c }

// validate checks the accumulated options against spec §4.1's ranges.
func (b *Builder) validate() error {
	if b.maxColors < 1 || b.maxColors > 256 {
		return &InvalidConfigError{Field: "maxColors", Reason: "must be in [1, 256]"}
	}
	if b.sampleRate <= 0 || b.sampleRate > 1 {
		return &InvalidConfigError{Field: "sampleRate", Reason: "must be in (0, 1]"}
	}
	if b.tolerance < 0 {
		return &InvalidConfigError{Field: "tolerance", Reason: "must be >= 0"}
	}
	if b.maxIterations < 1 {
		return &InvalidConfigError{Field: "maxIterations", Reason: "must be >= 1"}
	}
	if b.initializer != KMeansPlusPlus && b.initializer != Random {
		return &InvalidConfigError{Field: "initializer", Reason: "must be KMeansPlusPlus or Random"}
	}
	if b.algorithm != Lloyd && b.algorithm != LloydGpu {
		return &InvalidConfigError{Field: "algorithm", Reason: "must be Lloyd or LloydGpu"}
	}

	if b.algorithm == LloydGpu {
		if b.maxColors > shader.MaxClusters {
			return &InvalidConfigError{Field: "maxColors", Reason: "must be <= 64 for the GPU backend's MAX_CLUSTERS bound"}
		}
		if b.adapter == nil {
			return &BackendUnavailableError{Reason: "algorithm is LloydGpu but no compute adapter was supplied via SetAdapter/WithAdapter"}
		}
	}

	return nil
}

// Build validates the accumulated options and, on success, returns a
// ready-to-use Quantizer. A Quantizer can only be constructed once its
// configuration is fully validated (spec §4.1).
func (b *Builder) Build() (*Quantizer, error) {
	if err := b.validate(); err != nil {
		Logger().Debug("builder validation failed", slog.Any("error", err))
		return nil, err
	}
	Logger().Debug("builder validation succeeded",
		slog.Uint64("maxColors", uint64(b.maxColors)),
		slog.String("initializer", b.initializer.String()),
		slog.String("algorithm", b.algorithm.String()))

	pool := b.pool
	ownsPool := pool == nil
	if ownsPool {
		pool = parallel.NewWorkerPool(0)
	}

	return &Quantizer{
		maxColors:     b.maxColors,
		sampleRate:    b.sampleRate,
		tolerance:     b.tolerance,
		maxIterations: b.maxIterations,
		initializer:   b.initializer,
		algorithm:     b.algorithm,
		seed:          b.seed,
		adapter:       b.adapter,
		pool:          pool,
		ownsPool:      ownsPool,
	}, nil
}
