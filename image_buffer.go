package wgimage

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// textureFormat is the only device format used by wgimage.
const textureFormat = gputypes.TextureFormatRGBA8Unorm

const (
	readOnlyUsage  = gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst
	readWriteUsage = readOnlyUsage | gputypes.TextureUsageStorageBinding | gputypes.TextureUsageCopySrc
	scratchUsage   = gputypes.TextureUsageTextureBinding | gputypes.TextureUsageStorageBinding | gputypes.TextureUsageCopySrc
)

// ImageBuffer is a device-resident RGBA8 image.
//
// Buffers created by FromHostImage and FromSize can be written by a compute
// pass and read back with ToHostImage. Buffers created by
// FromHostImageReadOnly can only be bound as a filter input.
//
// ImageBuffer is NOT safe for concurrent use.
type ImageBuffer struct {
	ctx     *Context
	texture hal.Texture
	view    hal.TextureView
	extent  hal.Extent3D
	usage   gputypes.TextureUsage

	// state is the usage the texture was left in by submitted commands.
	// Zero means the contents are undefined. pending is the usage recorded
	// by a command buffer that has not been submitted yet.
	state   gputypes.TextureUsage
	pending gputypes.TextureUsage
}

// FromHostImage uploads img into a new texture that can also be written by
// a compute pass and downloaded. The upload is enqueued immediately; later
// GPU work on the same queue observes it.
func FromHostImage(ctx *Context, img *image.RGBA) (*ImageBuffer, error) {
	return fromHostImage(ctx, img, readWriteUsage)
}

// FromHostImageReadOnly uploads img into a texture that can only be bound
// as a filter input.
func FromHostImageReadOnly(ctx *Context, img *image.RGBA) (*ImageBuffer, error) {
	return fromHostImage(ctx, img, readOnlyUsage)
}

// FromSize allocates an uninitialized width x height texture usable as a
// filter input, a compute output and a download source.
func FromSize(ctx *Context, width, height uint32) (*ImageBuffer, error) {
	return newImageBuffer(ctx, width, height, scratchUsage, "image")
}

func fromHostImage(ctx *Context, img *image.RGBA, usage gputypes.TextureUsage) (*ImageBuffer, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidDimensions)
	}
	bounds := img.Bounds()
	width, height := uint32(bounds.Dx()), uint32(bounds.Dy()) //nolint:gosec // bounds are non-negative
	b, err := newImageBuffer(ctx, width, height, usage, "upload")
	if err != nil {
		return nil, err
	}

	data := packRGBA(img)
	err = ctx.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  b.texture,
			MipLevel: 0,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  UnpaddedBytesPerRow(width),
			RowsPerImage: height,
		},
		&b.extent,
	)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("upload: %w", err)
	}
	b.state = gputypes.TextureUsageCopyDst

	Logger().Debug("wgimage: uploaded image", "width", width, "height", height, "bytes", len(data))
	return b, nil
}

func newImageBuffer(ctx *Context, width, height uint32, usage gputypes.TextureUsage, name string) (*ImageBuffer, error) {
	if err := ctx.checkOpen(); err != nil {
		return nil, err
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if limit := ctx.MaxTextureDimension(); limit > 0 && (width > limit || height > limit) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrInvalidDimensions, width, height, limit)
	}

	extent := hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}
	texture, err := ctx.device.CreateTexture(&hal.TextureDescriptor{
		Label:         ctx.label(name),
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        textureFormat,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture: %w", err)
	}

	view, err := ctx.device.CreateTextureView(texture, &hal.TextureViewDescriptor{
		Label:         ctx.label(name + "_view"),
		Format:        textureFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		ctx.device.DestroyTexture(texture)
		return nil, fmt.Errorf("create texture view: %w", err)
	}

	return &ImageBuffer{
		ctx:     ctx,
		texture: texture,
		view:    view,
		extent:  extent,
		usage:   usage,
	}, nil
}

// Width returns the image width in pixels.
func (b *ImageBuffer) Width() uint32 { return b.extent.Width }

// Height returns the image height in pixels.
func (b *ImageBuffer) Height() uint32 { return b.extent.Height }

// Extent returns the texture extent. Depth is always 1.
func (b *ImageBuffer) Extent() hal.Extent3D { return b.extent }

// ReadOnly reports whether the buffer lacks storage and copy-source usage.
func (b *ImageBuffer) ReadOnly() bool {
	return b.usage&gputypes.TextureUsageStorageBinding == 0
}

// Usage returns the usage flags the texture was created with.
func (b *ImageBuffer) Usage() gputypes.TextureUsage { return b.usage }

// ToHostImage copies the texture into a staging buffer, blocks until the
// device has finished, strips the row padding required by the copy and
// returns the pixels as a tightly packed image.
//
// The wait has no deadline unless the Context was created with
// WithReadbackTimeout. After ErrReadbackTimeout the staging buffer is
// abandoned rather than freed under a copy that may still be running.
func (b *ImageBuffer) ToHostImage() (*image.RGBA, error) {
	if b.texture == nil {
		return nil, ErrClosed
	}
	if err := b.ctx.checkOpen(); err != nil {
		return nil, err
	}
	if b.usage&gputypes.TextureUsageCopySrc == 0 {
		return nil, ErrNotReadable
	}

	device := b.ctx.device
	w, h := b.extent.Width, b.extent.Height
	alignedBytesPerRow := PaddedBytesPerRow(w)
	stagingBufSize := uint64(alignedBytesPerRow) * uint64(h)

	stagingBuf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.ctx.label("readback_staging"),
		Size:  stagingBufSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	// A copy still running after a timeout may write into the staging
	// buffer, so it and the command buffer are kept alive in that case.
	var cmdBuf hal.CommandBuffer
	leak := false
	defer func() {
		if leak {
			return
		}
		if cmdBuf != nil {
			device.FreeCommandBuffer(cmdBuf)
		}
		device.DestroyBuffer(stagingBuf)
	}()

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: b.ctx.label("readback_encoder")})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	b.transition(encoder, gputypes.TextureUsageCopySrc)
	encoder.CopyTextureToBuffer(b.texture, stagingBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: b.texture, MipLevel: 0},
		Size:         b.extent,
	}})

	cmdBuf, err = encoder.EndEncoding()
	if err != nil {
		dropStates(b)
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	index, err := b.ctx.submit(cmdBuf)
	if err != nil {
		dropStates(b)
		return nil, err
	}
	commitStates(b)

	if err := b.ctx.wait(index, b.ctx.readbackTimeout()); err != nil {
		if errors.Is(err, ErrReadbackTimeout) {
			leak = true
			Logger().Warn("wgimage: staging buffer abandoned after readback timeout", "bytes", stagingBufSize)
		}
		return nil, err
	}

	readback, err := readMapped(device, stagingBuf, stagingBufSize)
	if err != nil {
		return nil, err
	}

	tight, err := StripRowPadding(readback, w, h)
	if err != nil {
		return nil, err
	}
	Logger().Debug("wgimage: downloaded image", "width", w, "height", h,
		"padded_row", alignedBytesPerRow, "bytes", len(tight))
	return imageFromRaw(w, h, tight)
}

// Close releases the texture and its view. Closing twice is a no-op.
func (b *ImageBuffer) Close() {
	if b.texture == nil {
		return
	}
	if b.ctx.device != nil {
		b.ctx.device.DestroyTextureView(b.view)
		b.ctx.device.DestroyTexture(b.texture)
	}
	b.view = nil
	b.texture = nil
}

// transition records a barrier moving the texture to usage. Transitions
// from the current state are no-ops. The new state stays pending until
// commitStates.
func (b *ImageBuffer) transition(encoder hal.CommandEncoder, usage gputypes.TextureUsage) {
	from := b.recordedState()
	if from == usage {
		return
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: b.texture,
		Usage: hal.TextureUsageTransition{
			OldUsage: from,
			NewUsage: usage,
		},
	}})
	b.pending = usage
}

// recordedState is the usage seen by the next recorded command.
func (b *ImageBuffer) recordedState() gputypes.TextureUsage {
	if b.pending != 0 {
		return b.pending
	}
	return b.state
}

// commitStates makes pending transitions current once their command
// buffer has been submitted.
func commitStates(bufs ...*ImageBuffer) {
	for _, b := range bufs {
		if b.pending != 0 {
			b.state = b.pending
			b.pending = 0
		}
	}
}

// dropStates forgets transitions from a command buffer that was never
// submitted.
func dropStates(bufs ...*ImageBuffer) {
	for _, b := range bufs {
		b.pending = 0
	}
}

// readMapped copies size bytes out of a host-visible buffer.
func readMapped(device hal.Device, buf hal.Buffer, size uint64) ([]byte, error) {
	m, err := device.MapBuffer(buf, 0, size)
	if err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(m.Ptr), size))
	if err := device.UnmapBuffer(buf); err != nil {
		return nil, fmt.Errorf("unmap staging buffer: %w", err)
	}
	return out, nil
}

// imageFromRaw wraps tightly packed RGBA bytes. It fails when the byte
// count is not exactly width*height*4.
func imageFromRaw(width, height uint32, pix []byte) (*image.RGBA, error) {
	want := int(width) * int(height) * BytesPerPixel
	if len(pix) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(pix), want)
	}
	return &image.RGBA{
		Pix:    pix,
		Stride: int(width) * BytesPerPixel,
		Rect:   image.Rect(0, 0, int(width), int(height)),
	}, nil
}

// packRGBA returns img's pixels as tightly packed rows. Images that are
// already packed and anchored at the origin are returned without copying.
func packRGBA(img *image.RGBA) []byte {
	bounds := img.Bounds()
	rowBytes := bounds.Dx() * BytesPerPixel
	if bounds.Min == (image.Point{}) && img.Stride == rowBytes {
		return img.Pix[:rowBytes*bounds.Dy()]
	}
	out := make([]byte, rowBytes*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		src := img.PixOffset(bounds.Min.X, y)
		dst := (y - bounds.Min.Y) * rowBytes
		copy(out[dst:dst+rowBytes], img.Pix[src:src+rowBytes])
	}
	return out
}
