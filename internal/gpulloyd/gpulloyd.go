// Package gpulloyd is the host-side driver for the GPU Lloyd backend (spec
// §4.6): it owns the compiled pipeline and, once per fitting iteration,
// uploads the working set, dispatches the shader, and reads the updated
// centers and assignments back.
//
// The final full-buffer assignment pass (spec §4.7) is always performed on
// the CPU via internal/lloyd.Assign regardless of which backend fit the
// model — it is a single O(N*K) pass that both backends must agree on
// exactly, and running it on the host avoids needing a second "assign
// without reduce" shader variant. This mirrors gpucore/pipeline.go's
// HybridPipeline, which likewise falls back to CPU for stages a GPU path
// doesn't carry.
package gpulloyd

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/colorcrunch/internal/compute"
	"github.com/gogpu/colorcrunch/internal/compute/shader"
	"github.com/gogpu/colorcrunch/internal/kmath"
)

// PixelSource is the read-only view the GPU backend needs to build the
// working-set pixel buffer it uploads once per Run call.
type PixelSource interface {
	Channels(i int) (r, g, b uint32)
}

// Driver owns the compiled Lloyd pipeline against one compute.Adapter.
type Driver struct {
	adapter compute.Adapter

	shaderModule   compute.ShaderModuleID
	bindLayout     compute.BindGroupLayoutID
	pipelineLayout compute.PipelineLayoutID
	pipeline       compute.ComputePipelineID
}

// New compiles the Lloyd shader against adapter and builds its pipeline.
// The returned Driver must be closed with Close when the caller is done.
func New(adapter compute.Adapter) (*Driver, error) {
	spirv, err := shader.CompileLloyd()
	if err != nil {
		return nil, fmt.Errorf("compile lloyd shader: %w", err)
	}

	module, err := adapter.CreateShaderModule(spirv, "colorcrunch-lloyd")
	if err != nil {
		return nil, fmt.Errorf("create shader module: %w", err)
	}

	layout, err := adapter.CreateBindGroupLayout(&compute.BindGroupLayoutDesc{
		Label: "colorcrunch-lloyd-bindings",
		Entries: []compute.BindGroupLayoutEntry{
			{Binding: 0, Type: compute.BindingTypeReadOnlyStorageBuffer},
			{Binding: 1, Type: compute.BindingTypeStorageBuffer},
			{Binding: 2, Type: compute.BindingTypeStorageBuffer},
			{Binding: 3, Type: compute.BindingTypeStorageBuffer},
			{Binding: 4, Type: compute.BindingTypeStorageBuffer},
			{Binding: 5, Type: compute.BindingTypeUniformBuffer},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group layout: %w", err)
	}

	pipelineLayout, err := adapter.CreatePipelineLayout([]compute.BindGroupLayoutID{layout})
	if err != nil {
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}

	pipeline, err := adapter.CreateComputePipeline(&compute.ComputePipelineDesc{
		Label:        "colorcrunch-lloyd",
		Layout:       pipelineLayout,
		ShaderModule: module,
		EntryPoint:   "main",
	})
	if err != nil {
		return nil, fmt.Errorf("create compute pipeline: %w", err)
	}

	return &Driver{
		adapter:        adapter,
		shaderModule:   module,
		bindLayout:     layout,
		pipelineLayout: pipelineLayout,
		pipeline:       pipeline,
	}, nil
}

// Close releases the driver's pipeline resources. It does not close the
// underlying adapter.
func (d *Driver) Close() {
	d.adapter.DestroyComputePipeline(d.pipeline)
	d.adapter.DestroyPipelineLayout(d.pipelineLayout)
	d.adapter.DestroyBindGroupLayout(d.bindLayout)
	d.adapter.DestroyShaderModule(d.shaderModule)
}

// Run performs one Lloyd iteration (spec §4.5 steps 1-3) over the working
// set on the GPU: it uploads pixels[working[i]] for each i, dispatches,
// reads back the updated centers and per-invocation assignments, then
// scatters the assignments into assignments[working[i]]. centers is
// updated in place; the returned drift is max_k ||c_k_new - c_k_old||.
func (d *Driver) Run(pixels PixelSource, working []int, centers []kmath.Vec3, assignments []uint32) (float32, error) {
	m := uint32(len(working))
	k := uint32(len(centers))

	pixelBytes := make([]byte, m*12)
	for i, idx := range working {
		r, g, b := pixels.Channels(idx)
		binary.LittleEndian.PutUint32(pixelBytes[i*12:], r)
		binary.LittleEndian.PutUint32(pixelBytes[i*12+4:], g)
		binary.LittleEndian.PutUint32(pixelBytes[i*12+8:], b)
	}

	centerBytes := make([]byte, k*12)
	for i, c := range centers {
		binary.LittleEndian.PutUint32(centerBytes[i*12:], math.Float32bits(c.X))
		binary.LittleEndian.PutUint32(centerBytes[i*12+4:], math.Float32bits(c.Y))
		binary.LittleEndian.PutUint32(centerBytes[i*12+8:], math.Float32bits(c.Z))
	}

	configBytes := make([]byte, 8)
	binary.LittleEndian.PutUint32(configBytes[0:], m)
	binary.LittleEndian.PutUint32(configBytes[4:], k)

	buffers, err := d.allocate(pixelBytes, centerBytes, configBytes, int(m), int(k))
	if err != nil {
		return 0, err
	}
	defer buffers.destroy(d.adapter)

	group, err := d.adapter.CreateBindGroup(d.bindLayout, buffers.entries())
	if err != nil {
		return 0, fmt.Errorf("create bind group: %w", err)
	}
	defer d.adapter.DestroyBindGroup(group)

	workgroups := (m + shader.WorkgroupSize - 1) / shader.WorkgroupSize
	if workgroups == 0 {
		workgroups = 1
	}

	pass := d.adapter.BeginComputePass()
	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(0, group)
	pass.Dispatch(workgroups, 1, 1)
	pass.End()
	d.adapter.Submit()
	d.adapter.WaitIdle()

	newCenterBytes, err := d.adapter.ReadBuffer(buffers.centers, 0, uint64(k)*12)
	if err != nil {
		return 0, fmt.Errorf("read back centers: %w", err)
	}
	assignBytes, err := d.adapter.ReadBuffer(buffers.assign, 0, uint64(m)*4)
	if err != nil {
		return 0, fmt.Errorf("read back assignments: %w", err)
	}

	var drift float32
	for c := range centers {
		old := centers[c]
		nc := kmath.Vec3{
			X: math.Float32frombits(binary.LittleEndian.Uint32(newCenterBytes[c*12:])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(newCenterBytes[c*12+4:])),
			Z: math.Float32frombits(binary.LittleEndian.Uint32(newCenterBytes[c*12+8:])),
		}
		centers[c] = nc
		if dd := kmath.Distance(nc, old); dd > drift {
			drift = dd
		}
	}

	for i, idx := range working {
		assignments[idx] = binary.LittleEndian.Uint32(assignBytes[i*4:])
	}

	return drift, nil
}

type lloydBuffers struct {
	pixels, centers, assign, counts, sums, config compute.BufferID
}

func (b lloydBuffers) entries() []compute.BindGroupEntry {
	return []compute.BindGroupEntry{
		{Binding: 0, Buffer: b.pixels},
		{Binding: 1, Buffer: b.centers},
		{Binding: 2, Buffer: b.assign},
		{Binding: 3, Buffer: b.counts},
		{Binding: 4, Buffer: b.sums},
		{Binding: 5, Buffer: b.config},
	}
}

func (b lloydBuffers) destroy(a compute.Adapter) {
	a.DestroyBuffer(b.pixels)
	a.DestroyBuffer(b.centers)
	a.DestroyBuffer(b.assign)
	a.DestroyBuffer(b.counts)
	a.DestroyBuffer(b.sums)
	a.DestroyBuffer(b.config)
}

// allocate creates and populates the six fixed buffers for one dispatch.
// The count and sum buffers are zero-filled by CreateBuffer, satisfying the
// host responsibility spec §4.6 calls out explicitly.
func (d *Driver) allocate(pixelBytes, centerBytes, configBytes []byte, m, k int) (lloydBuffers, error) {
	var b lloydBuffers
	var err error

	if b.pixels, err = d.adapter.CreateBuffer(len(pixelBytes), compute.BufferUsageStorage|compute.BufferUsageCopyDst); err != nil {
		return b, fmt.Errorf("create pixels buffer: %w", err)
	}
	if err = d.adapter.WriteBuffer(b.pixels, 0, pixelBytes); err != nil {
		return b, err
	}

	// centers and assign are both read back after the dispatch via
	// ReadBuffer, which copies through CopyBufferToBuffer on the native
	// adapter — that requires the source to carry BufferUsageCopySrc, so
	// both need it in addition to Storage. counts and sums are internal
	// accumulation buffers never read back to the host; they only need
	// Storage, but carry CopySrc too since they're the natural place a
	// future per-cluster diagnostic read-back would hook in, and it costs
	// nothing on either adapter to declare it up front.
	if b.centers, err = d.adapter.CreateBuffer(len(centerBytes), compute.BufferUsageStorage|compute.BufferUsageCopyDst|compute.BufferUsageCopySrc); err != nil {
		return b, fmt.Errorf("create centers buffer: %w", err)
	}
	if err = d.adapter.WriteBuffer(b.centers, 0, centerBytes); err != nil {
		return b, err
	}

	if b.assign, err = d.adapter.CreateBuffer(m*4, compute.BufferUsageStorage|compute.BufferUsageCopySrc); err != nil {
		return b, fmt.Errorf("create assignments buffer: %w", err)
	}
	if b.counts, err = d.adapter.CreateBuffer(k*4, compute.BufferUsageStorage|compute.BufferUsageCopySrc); err != nil {
		return b, fmt.Errorf("create counts buffer: %w", err)
	}
	if b.sums, err = d.adapter.CreateBuffer(k*12, compute.BufferUsageStorage|compute.BufferUsageCopySrc); err != nil {
		return b, fmt.Errorf("create sums buffer: %w", err)
	}

	if b.config, err = d.adapter.CreateBuffer(len(configBytes), compute.BufferUsageUniform|compute.BufferUsageCopyDst); err != nil {
		return b, fmt.Errorf("create config buffer: %w", err)
	}
	if err = d.adapter.WriteBuffer(b.config, 0, configBytes); err != nil {
		return b, err
	}

	return b, nil
}
