package wgimage

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/wgimage/internal/shader"
)

// computePipeline is one validated, compiled kernel with its bind group
// layouts. Filters own one each.
type computePipeline struct {
	ctx    *Context
	schema BindingSchema
	res    shader.Resources

	// lastSubmit is the queue index of the last submitted run. inFlight
	// and cmdBufs are what that run referenced.
	lastSubmit uint64
	inFlight   []hal.BindGroup
	cmdBufs    []hal.CommandBuffer
}

// newComputePipeline checks source against schema, compiles it and builds
// the pipeline. On failure every object created so far is destroyed.
func newComputePipeline(ctx *Context, schema BindingSchema, source string) (*computePipeline, error) {
	if err := ctx.checkOpen(); err != nil {
		return nil, err
	}
	if err := schema.Validate(source); err != nil {
		return nil, err
	}
	spirv, err := shader.CompileSPIRV(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrShaderCompile, schema.Name, err)
	}

	device := ctx.device
	p := &computePipeline{
		ctx:    ctx,
		schema: schema,
		res:    shader.Resources{Device: device},
	}

	p.res.Module, err = device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  ctx.label(schema.Name + "_shader"),
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		p.res.Destroy()
		return nil, fmt.Errorf("%w: %s: create shader module: %w", ErrShaderCompile, schema.Name, err)
	}

	for g := range schema.Groups {
		layout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   ctx.label(fmt.Sprintf("%s_layout_%d", schema.Name, g)),
			Entries: schema.layoutEntries(g),
		})
		if err != nil {
			p.res.Destroy()
			return nil, fmt.Errorf("create bind group layout %d: %w", g, err)
		}
		p.res.BindLayouts = append(p.res.BindLayouts, layout)
	}

	p.res.PipelineLayout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            ctx.label(schema.Name + "_pipe_layout"),
		BindGroupLayouts: p.res.BindLayouts,
	})
	if err != nil {
		p.res.Destroy()
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}

	p.res.Pipeline, err = device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  ctx.label(schema.Name + "_pipeline"),
		Layout: p.res.PipelineLayout,
		Compute: hal.ComputeState{
			Module:     p.res.Module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		p.res.Destroy()
		return nil, fmt.Errorf("create compute pipeline: %w", err)
	}

	Logger().Debug("wgimage: pipeline created", "kernel", schema.Name, "version", schema.Version,
		"spirv_words", len(spirv))
	return p, nil
}

// bindGroup creates a bind group for group g of the pipeline.
func (p *computePipeline) bindGroup(g int, entries ...gputypes.BindGroupEntry) (hal.BindGroup, error) {
	bg, err := p.ctx.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   p.ctx.label(fmt.Sprintf("%s_bind_%d", p.schema.Name, g)),
		Layout:  p.res.BindLayouts[g],
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group %d: %w", g, err)
	}
	return bg, nil
}

// retire blocks until the previous run has completed and releases what
// it referenced. On a timeout the run stays in flight.
func (p *computePipeline) retire() error {
	if len(p.inFlight) == 0 && len(p.cmdBufs) == 0 {
		return nil
	}
	if err := p.ctx.wait(p.lastSubmit, p.ctx.readbackTimeout()); err != nil {
		return err
	}
	p.release(p.inFlight, p.cmdBufs)
	p.inFlight, p.cmdBufs = p.inFlight[:0], p.cmdBufs[:0]
	return nil
}

func (p *computePipeline) release(groups []hal.BindGroup, cmdBufs []hal.CommandBuffer) {
	for _, bg := range groups {
		if bg != nil {
			p.ctx.device.DestroyBindGroup(bg)
		}
	}
	for _, cb := range cmdBufs {
		p.ctx.device.FreeCommandBuffer(cb)
	}
}

// finish ends encoding and submits the run. It does not wait. On success
// the images' pending states become current and groups stay alive until
// the next retire; on failure groups are destroyed and the pending states
// are dropped, so nothing refers to work the device never received.
func (p *computePipeline) finish(encoder hal.CommandEncoder, groups []hal.BindGroup, images ...*ImageBuffer) error {
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		dropStates(images...)
		p.release(groups, nil)
		return fmt.Errorf("end encoding: %w", err)
	}
	index, err := p.ctx.submit(cmdBuf)
	if err != nil {
		dropStates(images...)
		p.release(groups, []hal.CommandBuffer{cmdBuf})
		return err
	}
	commitStates(images...)
	p.lastSubmit = index
	p.inFlight = append(p.inFlight, groups...)
	p.cmdBufs = append(p.cmdBufs, cmdBuf)
	return nil
}

// abort discards a recording that will not be submitted.
func (p *computePipeline) abort(encoder hal.CommandEncoder, groups []hal.BindGroup, images ...*ImageBuffer) {
	encoder.DiscardEncoding()
	dropStates(images...)
	p.release(groups, nil)
}

// destroy waits for in-flight work and releases everything the pipeline
// owns.
func (p *computePipeline) destroy() {
	if p.res.Device == nil {
		return
	}
	if p.ctx.device == nil {
		// The context was closed first; its device took everything with it.
		p.res.Device = nil
		return
	}
	if err := p.retire(); err != nil {
		Logger().Warn("wgimage: pipeline released while work in flight", "kernel", p.schema.Name, "err", err)
	}
	p.res.Destroy()
	p.res.Device = nil
}

// beginEncoding creates a command encoder and opens it for recording.
func (c *Context) beginEncoding(name string) (hal.CommandEncoder, error) {
	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: c.label(name + "_encoder")})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(name); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	return encoder, nil
}

// newUniformBuffer creates a uniform buffer holding data.
func (c *Context) newUniformBuffer(name string, data []byte) (hal.Buffer, error) {
	return c.newFilledBuffer(name, data, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
}

// newReadOnlyStorageBuffer creates a storage buffer holding data.
func (c *Context) newReadOnlyStorageBuffer(name string, data []byte) (hal.Buffer, error) {
	return c.newFilledBuffer(name, data, gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst)
}

func (c *Context) newFilledBuffer(name string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: c.label(name),
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s buffer: %w", name, err)
	}
	if err := c.queue.WriteBuffer(buf, 0, data); err != nil {
		c.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("write %s buffer: %w", name, err)
	}
	return buf, nil
}

func bufferEntry(binding uint32, buf hal.Buffer, size uint64) gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{
		Binding:  binding,
		Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: size},
	}
}

func textureEntry(binding uint32, b *ImageBuffer) gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{
		Binding:  binding,
		Resource: gputypes.TextureViewBinding{TextureView: b.view.NativeHandle()},
	}
}
