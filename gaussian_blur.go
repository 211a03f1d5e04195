package wgimage

import (
	"encoding/binary"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// blurTile is the workgroup length along the convolution axis.
const blurTile = 128

// Orientation uniform values read by the blur kernel.
const (
	orientationHorizontal uint32 = 0
	orientationVertical   uint32 = 1
)

// uniformU32Size is the size of a uniform struct holding one u32.
const uniformU32Size = 16

// GaussianBlur is a separable Gaussian blur: a vertical pass into an
// intermediate texture followed by a horizontal pass into the output. Both
// passes are recorded into one command buffer.
//
// GaussianBlur is NOT safe for concurrent use.
type GaussianBlur struct {
	ctx    *Context
	pipe   *computePipeline
	kernel Kernel

	intermediate *ImageBuffer
	output       *ImageBuffer

	settingsBuf   hal.Buffer
	kernelBuf     hal.Buffer
	kernelBufSize uint64
	verticalBuf   hal.Buffer
	horizontalBuf hal.Buffer
	kernelGroup   hal.BindGroup

	stages blurSequencer
}

// NewGaussianBlur builds a blur with standard deviation sigma for width x
// height images.
func NewGaussianBlur(ctx *Context, width, height uint32, sigma float32) (*GaussianBlur, error) {
	kernel, err := NewKernel(sigma)
	if err != nil {
		return nil, err
	}
	if err := ctx.checkOpen(); err != nil {
		return nil, err
	}

	b := &GaussianBlur{ctx: ctx, kernel: kernel}
	if err := b.init(width, height); err != nil {
		b.Close()
		return nil, err
	}
	Logger().Info("wgimage: gaussian blur ready", "width", width, "height", height,
		"sigma", sigma, "kernel_size", kernel.Size())
	return b, nil
}

func (b *GaussianBlur) init(width, height uint32) error {
	var err error
	if b.intermediate, err = newImageBuffer(b.ctx, width, height, scratchUsage, "blur_intermediate"); err != nil {
		return err
	}
	if b.output, err = newImageBuffer(b.ctx, width, height, scratchUsage, "blur_output"); err != nil {
		return err
	}
	if b.pipe, err = newComputePipeline(b.ctx, gaussianBlurSchema, gaussianBlurShaderSource); err != nil {
		return err
	}

	if b.settingsBuf, err = b.ctx.newUniformBuffer("blur_settings", uniformU32(uint32(b.kernel.Size()))); err != nil { //nolint:gosec // kernel size fits uint32
		return err
	}
	packed := float32Bytes(b.kernel.Packed())
	b.kernelBufSize = uint64(len(packed))
	if b.kernelBuf, err = b.ctx.newReadOnlyStorageBuffer("blur_kernel", packed); err != nil {
		return err
	}
	if b.verticalBuf, err = b.ctx.newUniformBuffer("blur_vertical", uniformU32(orientationVertical)); err != nil {
		return err
	}
	if b.horizontalBuf, err = b.ctx.newUniformBuffer("blur_horizontal", uniformU32(orientationHorizontal)); err != nil {
		return err
	}

	b.kernelGroup, err = b.pipe.bindGroup(0,
		bufferEntry(0, b.settingsBuf, uniformU32Size),
		bufferEntry(1, b.kernelBuf, b.kernelBufSize),
	)
	return err
}

// Kernel returns the sampled kernel.
func (b *GaussianBlur) Kernel() Kernel { return b.kernel }

// Output returns the blur's output buffer. It is owned by the blur.
func (b *GaussianBlur) Output() *ImageBuffer { return b.output }

// Run records the vertical and horizontal passes over input and submits
// them. It does not wait for the device.
func (b *GaussianBlur) Run(input *ImageBuffer) error {
	if b.pipe == nil {
		return ErrClosed
	}
	if err := b.ctx.checkOpen(); err != nil {
		return err
	}
	if err := checkInput(input, b.output); err != nil {
		return err
	}
	if input == b.intermediate {
		return ErrAliasedInput
	}
	if err := b.pipe.retire(); err != nil {
		return err
	}

	verticalGroup, err := b.pipe.bindGroup(1,
		textureEntry(0, input),
		textureEntry(1, b.intermediate),
		bufferEntry(2, b.verticalBuf, uniformU32Size),
	)
	if err != nil {
		return err
	}
	horizontalGroup, err := b.pipe.bindGroup(1,
		textureEntry(0, b.intermediate),
		textureEntry(1, b.output),
		bufferEntry(2, b.horizontalBuf, uniformU32Size),
	)
	if err != nil {
		b.ctx.device.DestroyBindGroup(verticalGroup)
		return err
	}
	groups := []hal.BindGroup{verticalGroup, horizontalGroup}

	encoder, err := b.ctx.beginEncoding("gaussian_blur")
	if err != nil {
		b.pipe.release(groups, nil)
		return err
	}

	images := []*ImageBuffer{input, b.intermediate, b.output}
	b.stages.reset()
	for _, stage := range []BlurStage{StageVertical, StageHorizontal} {
		if err := b.record(encoder, input, stage, groups[stage]); err != nil {
			b.pipe.abort(encoder, groups, images...)
			return err
		}
	}
	return b.pipe.finish(encoder, groups, images...)
}

// record encodes one stage as its own compute pass.
func (b *GaussianBlur) record(encoder hal.CommandEncoder, input *ImageBuffer, stage BlurStage, group hal.BindGroup) error {
	if err := b.stages.advance(stage); err != nil {
		return err
	}

	w, h := b.output.Width(), b.output.Height()
	var nx, ny uint32
	switch stage {
	case StageVertical:
		input.transition(encoder, gputypes.TextureUsageTextureBinding)
		b.intermediate.transition(encoder, gputypes.TextureUsageStorageBinding)
		nx, ny = ComputeWorkGroupCount(w, h, blurTile, 1)
	case StageHorizontal:
		b.intermediate.transition(encoder, gputypes.TextureUsageTextureBinding)
		b.output.transition(encoder, gputypes.TextureUsageStorageBinding)
		// The kernel runs along x, so rows are dispatched on x.
		dh, dw := ComputeWorkGroupCount(w, h, 1, blurTile)
		nx, ny = dw, dh
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "gaussian_blur_" + stage.String()})
	pass.SetPipeline(b.pipe.res.Pipeline)
	pass.SetBindGroup(0, b.kernelGroup, nil)
	pass.SetBindGroup(1, group, nil)
	pass.Dispatch(nx, ny, 1)
	pass.End()

	Logger().Debug("wgimage: blur stage recorded", "stage", stage, "groups_x", nx, "groups_y", ny)
	return nil
}

// Close waits for in-flight work and releases every GPU object the blur
// owns. Closing twice is a no-op.
func (b *GaussianBlur) Close() {
	if b.pipe != nil {
		b.pipe.destroy()
		b.pipe = nil
	}
	if device := b.ctx.device; device != nil {
		if b.kernelGroup != nil {
			device.DestroyBindGroup(b.kernelGroup)
		}
		for _, buf := range []hal.Buffer{b.settingsBuf, b.kernelBuf, b.verticalBuf, b.horizontalBuf} {
			if buf != nil {
				device.DestroyBuffer(buf)
			}
		}
	}
	b.kernelGroup = nil
	b.settingsBuf, b.kernelBuf, b.verticalBuf, b.horizontalBuf = nil, nil, nil, nil
	if b.intermediate != nil {
		b.intermediate.Close()
	}
	if b.output != nil {
		b.output.Close()
	}
}

func uniformU32(v uint32) []byte {
	data := make([]byte, uniformU32Size)
	binary.LittleEndian.PutUint32(data, v)
	return data
}

func float32Bytes(values []float32) []byte {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math32.Float32bits(v))
	}
	return data
}
