// Package shader compiles WGSL kernels and owns the HAL objects that make
// up one compute pipeline.
package shader

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// ErrBadSPIRV is returned when the compiler output is not a whole number of
// 32-bit words.
var ErrBadSPIRV = errors.New("shader: SPIR-V length is not a multiple of 4")

// CompileSPIRV compiles WGSL source to SPIR-V words.
func CompileSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, err
	}
	return Words(spirvBytes)
}

// Words converts little-endian SPIR-V bytes to 32-bit words.
func Words(spirvBytes []byte) ([]uint32, error) {
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadSPIRV, len(spirvBytes))
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}

// Resources is the set of HAL objects behind one compute pipeline.
// A partially built set can be destroyed; nil members are skipped.
type Resources struct {
	Device         hal.Device
	Module         hal.ShaderModule
	BindLayouts    []hal.BindGroupLayout
	PipelineLayout hal.PipelineLayout
	Pipeline       hal.ComputePipeline
}

// Destroy releases the objects in reverse creation order and clears them.
func (r *Resources) Destroy() {
	if r.Device == nil {
		return
	}
	if r.Pipeline != nil {
		r.Device.DestroyComputePipeline(r.Pipeline)
		r.Pipeline = nil
	}
	if r.PipelineLayout != nil {
		r.Device.DestroyPipelineLayout(r.PipelineLayout)
		r.PipelineLayout = nil
	}
	for i, l := range r.BindLayouts {
		if l != nil {
			r.Device.DestroyBindGroupLayout(l)
		}
		r.BindLayouts[i] = nil
	}
	r.BindLayouts = nil
	if r.Module != nil {
		r.Device.DestroyShaderModule(r.Module)
		r.Module = nil
	}
}
