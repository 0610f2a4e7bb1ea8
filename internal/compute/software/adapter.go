// Package software provides a goroutine-driven Adapter that executes the
// Lloyd shader's per-invocation logic directly in Go instead of dispatching
// real GPU work. It is not a general SPIR-V interpreter — it is a
// purpose-built stand-in for exactly the one shader this repository ships,
// which is what makes the GPU backend (spec §4.6) testable without
// hardware and lets P5 (cross-backend equivalence) be checked in CI.
//
// The two-phase reduction — per-workgroup local accumulation merged into
// global counters — is reproduced with a worker pool and a mutex-guarded
// merge rather than real GPU atomics; integer addition is commutative, so
// the merge order does not affect the result (spec §5, "Ordering").
package software

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gogpu/colorcrunch/internal/compute"
	"github.com/gogpu/colorcrunch/internal/compute/shader"
	"github.com/gogpu/colorcrunch/internal/kmath"
	"github.com/gogpu/colorcrunch/internal/parallel"
)

// Adapter implements compute.Adapter entirely in host memory.
type Adapter struct {
	pool *parallel.WorkerPool

	mu               sync.Mutex
	buffers          map[compute.BufferID][]byte
	bindGroupLayouts map[compute.BindGroupLayoutID]*compute.BindGroupLayoutDesc
	pipelineLayouts  map[compute.PipelineLayoutID][]compute.BindGroupLayoutID
	pipelines        map[compute.ComputePipelineID]compute.ComputePipelineDesc
	bindGroups       map[compute.BindGroupID][]compute.BindGroupEntry

	nextBuffer  atomic.Uint64
	nextLayout  atomic.Uint64
	nextPLayout atomic.Uint64
	nextShader  atomic.Uint64
	nextPipe    atomic.Uint64
	nextGroup   atomic.Uint64
}

// New creates a software Adapter. pool may be nil, in which case dispatches
// run each workgroup sequentially on the calling goroutine.
func New(pool *parallel.WorkerPool) *Adapter {
	return &Adapter{
		pool:             pool,
		buffers:          make(map[compute.BufferID][]byte),
		bindGroupLayouts: make(map[compute.BindGroupLayoutID]*compute.BindGroupLayoutDesc),
		pipelineLayouts:  make(map[compute.PipelineLayoutID][]compute.BindGroupLayoutID),
		pipelines:        make(map[compute.ComputePipelineID]compute.ComputePipelineDesc),
		bindGroups:       make(map[compute.BindGroupID][]compute.BindGroupEntry),
	}
}

func (a *Adapter) SupportsCompute() bool    { return true }
func (a *Adapter) MaxBufferSize() uint64    { return 1 << 32 }

func (a *Adapter) CreateShaderModule(spirv []uint32, label string) (compute.ShaderModuleID, error) {
	return compute.ShaderModuleID(a.nextShader.Add(1)), nil
}

func (a *Adapter) DestroyShaderModule(compute.ShaderModuleID) {}

func (a *Adapter) CreateBuffer(size int, usage compute.BufferUsage) (compute.BufferID, error) {
	if size < 0 {
		return 0, fmt.Errorf("software adapter: negative buffer size %d", size)
	}
	id := compute.BufferID(a.nextBuffer.Add(1))
	a.mu.Lock()
	a.buffers[id] = make([]byte, size)
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyBuffer(id compute.BufferID) {
	a.mu.Lock()
	delete(a.buffers, id)
	a.mu.Unlock()
}

func (a *Adapter) WriteBuffer(id compute.BufferID, offset uint64, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	buf, ok := a.buffers[id]
	if !ok {
		return fmt.Errorf("software adapter: unknown buffer %d", id)
	}
	if offset+uint64(len(data)) > uint64(len(buf)) {
		return fmt.Errorf("software adapter: write out of bounds on buffer %d", id)
	}
	copy(buf[offset:], data)
	return nil
}

func (a *Adapter) ReadBuffer(id compute.BufferID, offset, size uint64) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	buf, ok := a.buffers[id]
	if !ok {
		return nil, fmt.Errorf("software adapter: unknown buffer %d", id)
	}
	if offset+size > uint64(len(buf)) {
		return nil, fmt.Errorf("software adapter: read out of bounds on buffer %d", id)
	}
	out := make([]byte, size)
	copy(out, buf[offset:offset+size])
	return out, nil
}

func (a *Adapter) CreateBindGroupLayout(desc *compute.BindGroupLayoutDesc) (compute.BindGroupLayoutID, error) {
	id := compute.BindGroupLayoutID(a.nextLayout.Add(1))
	a.mu.Lock()
	a.bindGroupLayouts[id] = desc
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyBindGroupLayout(id compute.BindGroupLayoutID) {
	a.mu.Lock()
	delete(a.bindGroupLayouts, id)
	a.mu.Unlock()
}

func (a *Adapter) CreatePipelineLayout(layouts []compute.BindGroupLayoutID) (compute.PipelineLayoutID, error) {
	id := compute.PipelineLayoutID(a.nextPLayout.Add(1))
	a.mu.Lock()
	a.pipelineLayouts[id] = layouts
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyPipelineLayout(id compute.PipelineLayoutID) {
	a.mu.Lock()
	delete(a.pipelineLayouts, id)
	a.mu.Unlock()
}

func (a *Adapter) CreateComputePipeline(desc *compute.ComputePipelineDesc) (compute.ComputePipelineID, error) {
	id := compute.ComputePipelineID(a.nextPipe.Add(1))
	a.mu.Lock()
	a.pipelines[id] = *desc
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyComputePipeline(id compute.ComputePipelineID) {
	a.mu.Lock()
	delete(a.pipelines, id)
	a.mu.Unlock()
}

func (a *Adapter) CreateBindGroup(layout compute.BindGroupLayoutID, entries []compute.BindGroupEntry) (compute.BindGroupID, error) {
	id := compute.BindGroupID(a.nextGroup.Add(1))
	a.mu.Lock()
	a.bindGroups[id] = entries
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyBindGroup(id compute.BindGroupID) {
	a.mu.Lock()
	delete(a.bindGroups, id)
	a.mu.Unlock()
}

func (a *Adapter) BeginComputePass() compute.ComputePass {
	return &pass{adapter: a, bindGroups: make(map[uint32]compute.BindGroupID)}
}

func (a *Adapter) Submit()   {}
func (a *Adapter) WaitIdle() {}

// pass records the single pipeline/bind-group pair the Lloyd shader uses
// (group 0 only) and executes the reduction synchronously on Dispatch.
type pass struct {
	adapter    *Adapter
	pipeline   compute.ComputePipelineID
	bindGroups map[uint32]compute.BindGroupID
}

func (p *pass) SetPipeline(pipeline compute.ComputePipelineID) { p.pipeline = pipeline }

func (p *pass) SetBindGroup(index uint32, group compute.BindGroupID) {
	p.bindGroups[index] = group
}

func (p *pass) Dispatch(x, y, z uint32) {
	entries := p.adapter.entriesFor(p.bindGroups[0])
	buffers := p.adapter.bufferBindings(entries)
	p.adapter.runLloyd(buffers, x)
}

func (p *pass) End() {}

func (a *Adapter) entriesFor(id compute.BindGroupID) []compute.BindGroupEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bindGroups[id]
}

// bindingBuffers holds direct references to this Adapter's underlying
// buffer slices, keyed by the shader's fixed binding numbers (spec §4.6).
type bindingBuffers struct {
	pixels  []byte
	centers []byte
	assign  []byte
	counts  []byte
	sums    []byte
	config  []byte
}

func (a *Adapter) bufferBindings(entries []compute.BindGroupEntry) bindingBuffers {
	a.mu.Lock()
	defer a.mu.Unlock()
	var b bindingBuffers
	for _, e := range entries {
		buf := a.buffers[e.Buffer]
		switch e.Binding {
		case 0:
			b.pixels = buf
		case 1:
			b.centers = buf
		case 2:
			b.assign = buf
		case 3:
			b.counts = buf
		case 4:
			b.sums = buf
		case 5:
			b.config = buf
		}
	}
	return b
}

// runLloyd performs the assign + two-phase reduce + update steps described
// in spec §4.6, using workgroups goroups-many workgroups of shader.WorkgroupSize
// invocations each.
func (a *Adapter) runLloyd(b bindingBuffers, workgroups uint32) {
	n := binary.LittleEndian.Uint32(b.config[0:4])
	k := binary.LittleEndian.Uint32(b.config[4:8])

	centers := make([]kmath.Vec3, k)
	for c := range centers {
		centers[c] = readVec3(b.centers, int(c))
	}

	globalCounts := make([]uint32, k)
	globalSums := make([]uint32, k*3)
	for c := uint32(0); c < k; c++ {
		globalCounts[c] = binary.LittleEndian.Uint32(b.counts[c*4:])
		globalSums[c*3] = binary.LittleEndian.Uint32(b.sums[(c*3)*4:])
		globalSums[c*3+1] = binary.LittleEndian.Uint32(b.sums[(c*3+1)*4:])
		globalSums[c*3+2] = binary.LittleEndian.Uint32(b.sums[(c*3+2)*4:])
	}

	var mu sync.Mutex
	tasks := make([]func(), 0, workgroups)
	for wg := uint32(0); wg < workgroups; wg++ {
		start := wg * shader.WorkgroupSize
		end := start + shader.WorkgroupSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		tasks = append(tasks, func() {
			localCounts := make([]uint32, k)
			localSums := make([]uint32, k*3)
			for i := start; i < end; i++ {
				r := binary.LittleEndian.Uint32(b.pixels[(i*3)*4:])
				g := binary.LittleEndian.Uint32(b.pixels[(i*3+1)*4:])
				bch := binary.LittleEndian.Uint32(b.pixels[(i*3+2)*4:])
				p := kmath.Vec3{X: float32(r), Y: float32(g), Z: float32(bch)}
				best, _ := kmath.NearestCenter(p, centers)
				binary.LittleEndian.PutUint32(b.assign[i*4:], uint32(best))
				localCounts[best]++
				localSums[best*3] += r
				localSums[best*3+1] += g
				localSums[best*3+2] += bch
			}
			mu.Lock()
			for c := uint32(0); c < k; c++ {
				globalCounts[c] += localCounts[c]
				globalSums[c*3] += localSums[c*3]
				globalSums[c*3+1] += localSums[c*3+1]
				globalSums[c*3+2] += localSums[c*3+2]
			}
			mu.Unlock()
		})
	}

	if a.pool != nil && len(tasks) > 1 {
		a.pool.ExecuteAll(tasks)
	} else {
		for _, t := range tasks {
			t()
		}
	}

	for c := uint32(0); c < k; c++ {
		binary.LittleEndian.PutUint32(b.counts[c*4:], globalCounts[c])
		binary.LittleEndian.PutUint32(b.sums[(c*3)*4:], globalSums[c*3])
		binary.LittleEndian.PutUint32(b.sums[(c*3+1)*4:], globalSums[c*3+1])
		binary.LittleEndian.PutUint32(b.sums[(c*3+2)*4:], globalSums[c*3+2])

		if globalCounts[c] > 0 {
			n := float32(globalCounts[c])
			writeVec3(b.centers, int(c), kmath.Vec3{
				X: float32(globalSums[c*3]) / n,
				Y: float32(globalSums[c*3+1]) / n,
				Z: float32(globalSums[c*3+2]) / n,
			})
		}
	}
}

func readVec3(buf []byte, index int) kmath.Vec3 {
	off := index * 12
	return kmath.Vec3{
		X: math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:])),
		Z: math.Float32frombits(binary.LittleEndian.Uint32(buf[off+8:])),
	}
}

func writeVec3(buf []byte, index int, v kmath.Vec3) {
	off := index * 12
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v.X))
	binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(v.Y))
	binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(v.Z))
}
