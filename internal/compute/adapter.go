// Package compute defines the portable compute-shader abstraction the GPU
// Lloyd backend (spec §4.6) is driven through. It is a trimmed copy of
// gogpu-gg's gpucore.GPUAdapter interface: buffer, shader, pipeline and
// bind-group management plus command recording survive; every
// texture-related method is dropped since color quantization never touches
// a texture.
//
// Two implementations exist: internal/compute/software, a goroutine-driven
// simulation used in every test (no GPU hardware required),
// and internal/compute/native, a real github.com/gogpu/wgpu/hal-backed
// adapter for production dispatch. Callers select one via the root
// package's WithAdapter option.
package compute

// Adapter abstracts over a compute-shader backend. Implementations must be
// safe for sequential use by a single Quantizer call; the spec's
// concurrency model (§5) never issues two calls into the same adapter
// concurrently.
type Adapter interface {
	// SupportsCompute reports whether this adapter can run compute
	// dispatches at all. The software adapter always returns true.
	SupportsCompute() bool

	// MaxBufferSize returns the largest single buffer this adapter can
	// allocate, in bytes.
	MaxBufferSize() uint64

	// CreateShaderModule compiles SPIR-V words (already produced by
	// naga.Compile from WGSL source) into a shader module.
	CreateShaderModule(spirv []uint32, label string) (ShaderModuleID, error)
	DestroyShaderModule(id ShaderModuleID)

	// CreateBuffer allocates a GPU-visible buffer of size bytes.
	CreateBuffer(size int, usage BufferUsage) (BufferID, error)
	DestroyBuffer(id BufferID)

	// WriteBuffer uploads data at offset into an existing buffer.
	WriteBuffer(id BufferID, offset uint64, data []byte) error

	// ReadBuffer reads size bytes back from offset. This may stall for a
	// GPU-CPU synchronization on a native adapter.
	ReadBuffer(id BufferID, offset, size uint64) ([]byte, error)

	// CreateBindGroupLayout describes the binding slots a pipeline uses.
	CreateBindGroupLayout(desc *BindGroupLayoutDesc) (BindGroupLayoutID, error)
	DestroyBindGroupLayout(id BindGroupLayoutID)

	// CreatePipelineLayout combines bind group layouts for a pipeline.
	CreatePipelineLayout(layouts []BindGroupLayoutID) (PipelineLayoutID, error)
	DestroyPipelineLayout(id PipelineLayoutID)

	// CreateComputePipeline builds an executable pipeline from a compiled
	// shader module and layout.
	CreateComputePipeline(desc *ComputePipelineDesc) (ComputePipelineID, error)
	DestroyComputePipeline(id ComputePipelineID)

	// CreateBindGroup binds concrete resources to a bind group layout.
	CreateBindGroup(layout BindGroupLayoutID, entries []BindGroupEntry) (BindGroupID, error)
	DestroyBindGroup(id BindGroupID)

	// BeginComputePass starts recording compute commands.
	BeginComputePass() ComputePass

	// Submit executes all recorded passes since the last Submit.
	Submit()

	// WaitIdle blocks until all submitted work has completed.
	WaitIdle()
}

// ComputePass records the pipeline, bind group and dispatch calls for one
// pass, mirroring gogpu-gg's gpucore.ComputePassEncoder.
type ComputePass interface {
	SetPipeline(pipeline ComputePipelineID)
	SetBindGroup(index uint32, group BindGroupID)
	Dispatch(x, y, z uint32)
	End()
}
