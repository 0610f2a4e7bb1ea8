//go:build !nogpu

// Package native wires the compute.Adapter interface to a real GPU device
// through github.com/gogpu/wgpu/hal, for production dispatch of the Lloyd
// shader. It is a trim of gogpu-gg's backend/native.HALAdapter: texture
// and render-pass support are dropped, only buffer, shader, pipeline,
// bind-group and compute-pass management survive.
package native

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/colorcrunch/internal/compute"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/gputypes"
)

// Adapter implements compute.Adapter using gogpu/wgpu/hal directly.
//
// Thread safety: Adapter is safe for concurrent use; all resource
// operations are protected by a mutex.
type Adapter struct {
	mu     sync.RWMutex
	device hal.Device
	queue  hal.Queue

	limits      gputypes.Limits
	maxBufferSz uint64

	nextID atomic.Uint64

	buffers          map[compute.BufferID]hal.Buffer
	shaderModules    map[compute.ShaderModuleID]hal.ShaderModule
	computePipelines map[compute.ComputePipelineID]hal.ComputePipeline
	bindGroupLayouts map[compute.BindGroupLayoutID]hal.BindGroupLayout
	pipelineLayouts  map[compute.PipelineLayoutID]hal.PipelineLayout
	bindGroups       map[compute.BindGroupID]hal.BindGroup

	encoder    hal.CommandEncoder
	hasEncoder bool
}

// New creates an Adapter wrapping the given device and queue. If limits is
// nil, gputypes.DefaultLimits() is used.
func New(device hal.Device, queue hal.Queue, limits *gputypes.Limits) *Adapter {
	var lim gputypes.Limits
	if limits != nil {
		lim = *limits
	} else {
		lim = gputypes.DefaultLimits()
	}

	a := &Adapter{
		device:           device,
		queue:            queue,
		limits:           lim,
		maxBufferSz:      lim.MaxBufferSize,
		buffers:          make(map[compute.BufferID]hal.Buffer),
		shaderModules:    make(map[compute.ShaderModuleID]hal.ShaderModule),
		computePipelines: make(map[compute.ComputePipelineID]hal.ComputePipeline),
		bindGroupLayouts: make(map[compute.BindGroupLayoutID]hal.BindGroupLayout),
		pipelineLayouts:  make(map[compute.PipelineLayoutID]hal.PipelineLayout),
		bindGroups:       make(map[compute.BindGroupID]hal.BindGroup),
	}
	a.nextID.Store(1)
	return a
}

func (a *Adapter) newID() uint64 { return a.nextID.Add(1) - 1 }

func (a *Adapter) SupportsCompute() bool { return true }
func (a *Adapter) MaxBufferSize() uint64 { return a.maxBufferSz }

func (a *Adapter) CreateShaderModule(spirv []uint32, label string) (compute.ShaderModuleID, error) {
	if len(spirv) == 0 {
		return compute.InvalidID, fmt.Errorf("empty SPIR-V bytecode")
	}

	module, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return compute.InvalidID, fmt.Errorf("create shader module: %w", err)
	}

	id := compute.ShaderModuleID(a.newID())
	a.mu.Lock()
	a.shaderModules[id] = module
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyShaderModule(id compute.ShaderModuleID) {
	a.mu.Lock()
	module, ok := a.shaderModules[id]
	delete(a.shaderModules, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyShaderModule(module)
	}
}

func (a *Adapter) CreateBuffer(size int, usage compute.BufferUsage) (compute.BufferID, error) {
	if size <= 0 {
		return compute.InvalidID, fmt.Errorf("buffer size must be positive")
	}

	buffer, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Size:  uint64(size),
		Usage: convertBufferUsage(usage),
	})
	if err != nil {
		return compute.InvalidID, fmt.Errorf("create buffer: %w", err)
	}

	id := compute.BufferID(a.newID())
	a.mu.Lock()
	a.buffers[id] = buffer
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyBuffer(id compute.BufferID) {
	a.mu.Lock()
	buffer, ok := a.buffers[id]
	delete(a.buffers, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyBuffer(buffer)
	}
}

func (a *Adapter) WriteBuffer(id compute.BufferID, offset uint64, data []byte) error {
	a.mu.RLock()
	buffer, ok := a.buffers[id]
	a.mu.RUnlock()
	if !ok {
		return fmt.Errorf("buffer %d not found", id)
	}
	if len(data) > 0 {
		a.queue.WriteBuffer(buffer, offset, data)
	}
	return nil
}

// ReadBuffer copies size bytes at offset back to the host via a staging
// buffer. Actual buffer mapping is not yet implemented in the hal package
// this adapter targets (github.com/gogpu/wgpu/hal), matching the same
// limitation gogpu-gg's HALAdapter.ReadBuffer documents; the copy and the
// device WaitIdle below are real, but the returned slice is size zeroed
// bytes, not the staging buffer's contents.
func (a *Adapter) ReadBuffer(id compute.BufferID, offset, size uint64) ([]byte, error) {
	a.mu.RLock()
	buffer, ok := a.buffers[id]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("buffer %d not found", id)
	}

	staging, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label:            "colorcrunch-readback",
		Size:             size,
		Usage:            gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
		MappedAtCreation: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer a.device.DestroyBuffer(staging)

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "colorcrunch-readback-encoder"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("colorcrunch-readback"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(buffer, staging, []hal.BufferCopy{{SrcOffset: offset, DstOffset: 0, Size: size}})

	cmd, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer cmd.Destroy()

	if _, err := a.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return nil, fmt.Errorf("submit readback: %w", err)
	}
	if err := a.device.WaitIdle(); err != nil {
		return nil, fmt.Errorf("wait for readback: %w", err)
	}

	// TODO: map staging and copy its contents once hal exposes buffer mapping.
	return make([]byte, size), nil
}

func (a *Adapter) CreateBindGroupLayout(desc *compute.BindGroupLayoutDesc) (compute.BindGroupLayoutID, error) {
	if desc == nil {
		return compute.InvalidID, fmt.Errorf("nil bind group layout descriptor")
	}

	entries := make([]gputypes.BindGroupLayoutEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entries[i] = convertBindGroupLayoutEntry(e)
	}

	layout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return compute.InvalidID, fmt.Errorf("create bind group layout: %w", err)
	}

	id := compute.BindGroupLayoutID(a.newID())
	a.mu.Lock()
	a.bindGroupLayouts[id] = layout
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyBindGroupLayout(id compute.BindGroupLayoutID) {
	a.mu.Lock()
	layout, ok := a.bindGroupLayouts[id]
	delete(a.bindGroupLayouts, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyBindGroupLayout(layout)
	}
}

func (a *Adapter) CreatePipelineLayout(layouts []compute.BindGroupLayoutID) (compute.PipelineLayoutID, error) {
	a.mu.RLock()
	halLayouts := make([]hal.BindGroupLayout, len(layouts))
	for i, id := range layouts {
		layout, ok := a.bindGroupLayouts[id]
		if !ok {
			a.mu.RUnlock()
			return compute.InvalidID, fmt.Errorf("bind group layout %d not found", id)
		}
		halLayouts[i] = layout
	}
	a.mu.RUnlock()

	pipelineLayout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{BindGroupLayouts: halLayouts})
	if err != nil {
		return compute.InvalidID, fmt.Errorf("create pipeline layout: %w", err)
	}

	id := compute.PipelineLayoutID(a.newID())
	a.mu.Lock()
	a.pipelineLayouts[id] = pipelineLayout
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyPipelineLayout(id compute.PipelineLayoutID) {
	a.mu.Lock()
	layout, ok := a.pipelineLayouts[id]
	delete(a.pipelineLayouts, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyPipelineLayout(layout)
	}
}

func (a *Adapter) CreateComputePipeline(desc *compute.ComputePipelineDesc) (compute.ComputePipelineID, error) {
	if desc == nil {
		return compute.InvalidID, fmt.Errorf("nil compute pipeline descriptor")
	}

	a.mu.RLock()
	layout, layoutOK := a.pipelineLayouts[desc.Layout]
	module, moduleOK := a.shaderModules[desc.ShaderModule]
	a.mu.RUnlock()
	if !layoutOK {
		return compute.InvalidID, fmt.Errorf("pipeline layout %d not found", desc.Layout)
	}
	if !moduleOK {
		return compute.InvalidID, fmt.Errorf("shader module %d not found", desc.ShaderModule)
	}

	pipeline, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		return compute.InvalidID, fmt.Errorf("create compute pipeline: %w", err)
	}

	id := compute.ComputePipelineID(a.newID())
	a.mu.Lock()
	a.computePipelines[id] = pipeline
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyComputePipeline(id compute.ComputePipelineID) {
	a.mu.Lock()
	pipeline, ok := a.computePipelines[id]
	delete(a.computePipelines, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyComputePipeline(pipeline)
	}
}

func (a *Adapter) CreateBindGroup(layout compute.BindGroupLayoutID, entries []compute.BindGroupEntry) (compute.BindGroupID, error) {
	a.mu.RLock()
	halLayout, ok := a.bindGroupLayouts[layout]
	if !ok {
		a.mu.RUnlock()
		return compute.InvalidID, fmt.Errorf("bind group layout %d not found", layout)
	}
	halEntries := make([]gputypes.BindGroupEntry, len(entries))
	for i, e := range entries {
		converted, err := a.convertBindGroupEntry(e)
		if err != nil {
			a.mu.RUnlock()
			return compute.InvalidID, fmt.Errorf("convert bind group entry %d: %w", e.Binding, err)
		}
		halEntries[i] = converted
	}
	a.mu.RUnlock()

	bindGroup, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{Layout: halLayout, Entries: halEntries})
	if err != nil {
		return compute.InvalidID, fmt.Errorf("create bind group: %w", err)
	}

	id := compute.BindGroupID(a.newID())
	a.mu.Lock()
	a.bindGroups[id] = bindGroup
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyBindGroup(id compute.BindGroupID) {
	a.mu.Lock()
	group, ok := a.bindGroups[id]
	delete(a.bindGroups, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyBindGroup(group)
	}
}

func (a *Adapter) BeginComputePass() compute.ComputePass {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasEncoder {
		encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "colorcrunch-lloyd-encoder"})
		if err != nil {
			return &computePass{adapter: a}
		}
		if err := encoder.BeginEncoding("colorcrunch-lloyd"); err != nil {
			return &computePass{adapter: a}
		}
		a.encoder = encoder
		a.hasEncoder = true
	}

	halPass := a.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "lloyd"})
	return &computePass{adapter: a, pass: halPass}
}

func (a *Adapter) Submit() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasEncoder || a.encoder == nil {
		return
	}
	cmd, err := a.encoder.EndEncoding()
	a.encoder = nil
	a.hasEncoder = false
	if err != nil {
		return
	}
	_, _ = a.queue.Submit([]hal.CommandBuffer{cmd})
	cmd.Destroy()
}

func (a *Adapter) WaitIdle() {
	a.Submit()
	_ = a.device.WaitIdle()
}

func convertBufferUsage(usage compute.BufferUsage) gputypes.BufferUsage {
	var result gputypes.BufferUsage
	if usage&compute.BufferUsageMapRead != 0 {
		result |= gputypes.BufferUsageMapRead
	}
	if usage&compute.BufferUsageMapWrite != 0 {
		result |= gputypes.BufferUsageMapWrite
	}
	if usage&compute.BufferUsageCopySrc != 0 {
		result |= gputypes.BufferUsageCopySrc
	}
	if usage&compute.BufferUsageCopyDst != 0 {
		result |= gputypes.BufferUsageCopyDst
	}
	if usage&compute.BufferUsageStorage != 0 {
		result |= gputypes.BufferUsageStorage
	}
	if usage&compute.BufferUsageUniform != 0 {
		result |= gputypes.BufferUsageUniform
	}
	return result
}

func convertBindGroupLayoutEntry(entry compute.BindGroupLayoutEntry) gputypes.BindGroupLayoutEntry {
	result := gputypes.BindGroupLayoutEntry{
		Binding:    entry.Binding,
		Visibility: gputypes.ShaderStageCompute,
	}
	switch entry.Type {
	case compute.BindingTypeStorageBuffer:
		result.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage, MinBindingSize: entry.MinBindingSize}
	case compute.BindingTypeReadOnlyStorageBuffer:
		result.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage, MinBindingSize: entry.MinBindingSize}
	case compute.BindingTypeUniformBuffer:
		result.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform, MinBindingSize: entry.MinBindingSize}
	}
	return result
}

// convertBindGroupEntry must be called with mu held for reading.
func (a *Adapter) convertBindGroupEntry(entry compute.BindGroupEntry) (gputypes.BindGroupEntry, error) {
	if _, ok := a.buffers[entry.Buffer]; !ok {
		return gputypes.BindGroupEntry{}, fmt.Errorf("buffer %d not found", entry.Buffer)
	}
	return gputypes.BindGroupEntry{
		Binding: entry.Binding,
		Resource: gputypes.BufferBinding{
			Buffer: gputypes.BufferHandle(entry.Buffer),
			Offset: entry.Offset,
			Size:   entry.Size,
		},
	}, nil
}

// computePass implements compute.ComputePass over a hal.ComputePassEncoder.
type computePass struct {
	adapter *Adapter
	pass    hal.ComputePassEncoder
}

func (p *computePass) SetPipeline(pipeline compute.ComputePipelineID) {
	if p.pass == nil {
		return
	}
	p.adapter.mu.RLock()
	halPipeline, ok := p.adapter.computePipelines[pipeline]
	p.adapter.mu.RUnlock()
	if ok {
		p.pass.SetPipeline(halPipeline)
	}
}

func (p *computePass) SetBindGroup(index uint32, group compute.BindGroupID) {
	if p.pass == nil {
		return
	}
	p.adapter.mu.RLock()
	halGroup, ok := p.adapter.bindGroups[group]
	p.adapter.mu.RUnlock()
	if ok {
		p.pass.SetBindGroup(index, halGroup, nil)
	}
}

func (p *computePass) Dispatch(x, y, z uint32) {
	if p.pass == nil {
		return
	}
	p.pass.Dispatch(x, y, z)
}

func (p *computePass) End() {
	if p.pass == nil {
		return
	}
	p.pass.End()
}
