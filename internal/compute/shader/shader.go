// Package shader owns the Lloyd compute shader source and its compiled
// SPIR-V form. Compilation goes through naga.Compile, the same path
// gogpu-gg's internal/native.CompileShaderToSPIRV uses, coalesced with
// singleflight so that Quantizer.QuantizeImage calls that build their GPU
// driver concurrently share one compilation while it is in flight.
package shader

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
	"golang.org/x/sync/singleflight"
)

// LloydSource is the WGSL source implementing spec §4.6.
//
//go:embed lloyd.wgsl
var LloydSource string

// WorkgroupSize is the reference workgroup size W from spec §4.6.
const WorkgroupSize = 64

// MaxClusters is the shader-side MAX_CLUSTERS constant; the Builder rejects
// configurations with maxColors above this bound when algorithm is
// LloydGpu.
const MaxClusters = 64

var compileGroup singleflight.Group

// CompileLloyd compiles LloydSource to SPIR-V words. Concurrent callers
// share a single naga.Compile invocation.
func CompileLloyd() ([]uint32, error) {
	v, err, _ := compileGroup.Do("lloyd", func() (any, error) {
		return compileToSPIRV(LloydSource)
	})
	if err != nil {
		return nil, err
	}
	return v.([]uint32), nil
}

// compileToSPIRV mirrors internal/native.CompileShaderToSPIRV: naga.Compile
// produces little-endian SPIR-V bytes, which are packed into uint32 words.
func compileToSPIRV(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile lloyd shader: %w", err)
	}

	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
