package wgimage

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// pointTile is the workgroup size of the per-pixel kernels.
const pointTile = 16

// pointFilter runs a per-pixel kernel whose last bind group is
// {0: input, 1: output}. Earlier groups are fixed at construction.
type pointFilter struct {
	ctx    *Context
	pipe   *computePipeline
	output *ImageBuffer

	// fixed holds the bind groups before the image group and the buffers
	// they reference; they live as long as the filter.
	fixed    []hal.BindGroup
	fixedBuf []hal.Buffer
}

func newPointFilter(ctx *Context, schema BindingSchema, source string, width, height uint32) (*pointFilter, error) {
	output, err := newImageBuffer(ctx, width, height, scratchUsage, schema.Name+"_output")
	if err != nil {
		return nil, err
	}
	pipe, err := newComputePipeline(ctx, schema, source)
	if err != nil {
		output.Close()
		return nil, err
	}
	return &pointFilter{ctx: ctx, pipe: pipe, output: output}, nil
}

// Output returns the filter's output buffer. It is owned by the filter.
func (f *pointFilter) Output() *ImageBuffer { return f.output }

// Run records one compute pass over input and submits it. It does not wait
// for the device; downloading Output blocks until the pass has completed.
func (f *pointFilter) Run(input *ImageBuffer) error {
	if f.pipe == nil {
		return ErrClosed
	}
	if err := f.ctx.checkOpen(); err != nil {
		return err
	}
	if err := checkInput(input, f.output); err != nil {
		return err
	}
	if err := f.pipe.retire(); err != nil {
		return err
	}

	imageGroup := len(f.fixed)
	bg, err := f.pipe.bindGroup(imageGroup, textureEntry(0, input), textureEntry(1, f.output))
	if err != nil {
		return err
	}

	encoder, err := f.ctx.beginEncoding(f.pipe.schema.Name)
	if err != nil {
		f.ctx.device.DestroyBindGroup(bg)
		return err
	}
	input.transition(encoder, gputypes.TextureUsageTextureBinding)
	f.output.transition(encoder, gputypes.TextureUsageStorageBinding)

	nx, ny := ComputeWorkGroupCount(f.output.Width(), f.output.Height(), pointTile, pointTile)
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: f.pipe.schema.Name})
	pass.SetPipeline(f.pipe.res.Pipeline)
	for g, fixed := range f.fixed {
		pass.SetBindGroup(uint32(g), fixed, nil) //nolint:gosec // group index is small
	}
	pass.SetBindGroup(uint32(imageGroup), bg, nil) //nolint:gosec // group index is small
	pass.Dispatch(nx, ny, 1)
	pass.End()

	if err := f.pipe.finish(encoder, []hal.BindGroup{bg}, input, f.output); err != nil {
		return err
	}
	Logger().Debug("wgimage: filter submitted", "kernel", f.pipe.schema.Name,
		"width", f.output.Width(), "height", f.output.Height(), "groups_x", nx, "groups_y", ny)
	return nil
}

// Close waits for in-flight work and releases the pipeline, parameter
// buffers and output. Closing twice is a no-op.
func (f *pointFilter) Close() {
	if f.pipe == nil {
		return
	}
	f.pipe.destroy()
	if f.ctx.device != nil {
		for _, bg := range f.fixed {
			f.ctx.device.DestroyBindGroup(bg)
		}
		for _, buf := range f.fixedBuf {
			f.ctx.device.DestroyBuffer(buf)
		}
	}
	f.fixed, f.fixedBuf = nil, nil
	f.output.Close()
	f.pipe = nil
}

// checkInput validates a filter input against the filter's output buffer.
func checkInput(input, output *ImageBuffer) error {
	if input == nil || input.texture == nil {
		return fmt.Errorf("%w: input buffer", ErrClosed)
	}
	if input == output {
		return ErrAliasedInput
	}
	if input.Width() != output.Width() || input.Height() != output.Height() {
		return fmt.Errorf("%w: input %dx%d, filter %dx%d", ErrExtentMismatch,
			input.Width(), input.Height(), output.Width(), output.Height())
	}
	return nil
}
