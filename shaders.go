package wgimage

import (
	_ "embed"
)

// Embedded WGSL kernel sources.

//go:embed shaders/grayscale.wgsl
var grayscaleShaderSource string

//go:embed shaders/threshold.wgsl
var thresholdShaderSource string

//go:embed shaders/gaussian_blur.wgsl
var gaussianBlurShaderSource string

// Binding schemas the host code is built against. Bump Version whenever a
// kernel's bindings change.
var (
	grayscaleSchema = BindingSchema{
		Name:    "grayscale",
		Version: 1,
		Groups: [][]BindingKind{
			{BindingSampledTexture, BindingStorageTextureWrite},
		},
	}

	thresholdSchema = BindingSchema{
		Name:    "threshold",
		Version: 1,
		Groups: [][]BindingKind{
			{BindingUniform},
			{BindingSampledTexture, BindingStorageTextureWrite},
		},
	}

	gaussianBlurSchema = BindingSchema{
		Name:    "gaussian_blur",
		Version: 1,
		Groups: [][]BindingKind{
			{BindingUniform, BindingReadOnlyStorage},
			{BindingSampledTexture, BindingStorageTextureWrite, BindingUniform},
		},
	}
)
