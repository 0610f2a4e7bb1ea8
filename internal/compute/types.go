package compute

// Resource IDs, buffer usage flags, binding types and descriptors, trimmed
// from gogpu-gg's gpucore/types.go down to the subset the Lloyd shader
// actually needs — buffers and bind groups only.

type (
	BufferID           uint64
	ShaderModuleID     uint64
	ComputePipelineID  uint64
	BindGroupLayoutID  uint64
	BindGroupID        uint64
	PipelineLayoutID   uint64
)

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

const (
	BufferUsageMapRead  BufferUsage = 1 << 0
	BufferUsageMapWrite BufferUsage = 1 << 1
	BufferUsageCopySrc  BufferUsage = 1 << 2
	BufferUsageCopyDst  BufferUsage = 1 << 3
	BufferUsageStorage  BufferUsage = 1 << 4
	BufferUsageUniform  BufferUsage = 1 << 5
)

// BindingType specifies the type of a shader binding.
type BindingType uint32

const (
	BindingTypeStorageBuffer BindingType = iota + 1
	BindingTypeReadOnlyStorageBuffer
	BindingTypeUniformBuffer
)

// ComputePipelineDesc describes a compute pipeline.
type ComputePipelineDesc struct {
	Label        string
	Layout       PipelineLayoutID
	ShaderModule ShaderModuleID
	EntryPoint   string
}

// BindGroupLayoutDesc describes a bind group layout.
type BindGroupLayoutDesc struct {
	Label   string
	Entries []BindGroupLayoutEntry
}

// BindGroupLayoutEntry describes a single binding in a bind group layout.
type BindGroupLayoutEntry struct {
	Binding        uint32
	Type           BindingType
	MinBindingSize uint64
}

// BindGroupEntry describes a single binding in a bind group.
type BindGroupEntry struct {
	Binding uint32
	Buffer  BufferID
	Offset  uint64
	Size    uint64
}

// BindGroupDesc describes a bind group.
type BindGroupDesc struct {
	Label   string
	Layout  BindGroupLayoutID
	Entries []BindGroupEntry
}
