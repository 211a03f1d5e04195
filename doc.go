// Package wgimage runs image filters as WebGPU compute shaders.
//
// # Overview
//
// wgimage uploads RGBA8 images to device textures, runs compute kernels
// over them and downloads the results. Kernels are written in WGSL,
// compiled to SPIR-V with gogpu/naga and executed through the gogpu/wgpu
// HAL, so no CGO is required.
//
// # Quick Start
//
//	import "github.com/gogpu/wgimage"
//
//	gpu, err := wgimage.NewContext(context.Background())
//	if err != nil {
//	    return err // wraps wgimage.ErrNoGPU when no adapter is present
//	}
//	defer gpu.Close()
//
//	input, err := wgimage.FromHostImageReadOnly(gpu, img)
//	if err != nil {
//	    return err
//	}
//	defer input.Close()
//
//	blur, err := wgimage.NewGaussianBlur(gpu, input.Width(), input.Height(), 3)
//	if err != nil {
//	    return err
//	}
//	defer blur.Close()
//
//	if err := blur.Run(input); err != nil {
//	    return err
//	}
//	out, err := blur.Output().ToHostImage()
//
// # Filters
//
//   - Grayscale: BT.601 luma, alpha preserved
//   - Threshold: binary luma threshold with a 0..255 cutoff
//   - GaussianBlur: separable blur, one vertical and one horizontal pass
//
// Each filter is built for a fixed extent and owns its output buffer. Run
// submits work without waiting; ToHostImage blocks until the device is done.
//
// # Kernel Bindings
//
// Every kernel has a BindingSchema describing the resource kind at each
// (group, binding). The schema is checked against the WGSL source before the
// pipeline is created, and a mismatch fails with ErrLayoutMismatch.
//
// # Devices
//
// NewContext opens its own Vulkan device. Applications that already own a
// device can share it with NewContextFromProvider or NewContextFromHAL.
//
// # Logging
//
// wgimage is silent by default. Call SetLogger to receive device, pipeline
// and transfer events through log/slog.
package wgimage
