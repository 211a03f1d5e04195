package wgimage

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestShippedKernelsMatchSchemas(t *testing.T) {
	tests := []struct {
		schema BindingSchema
		source string
	}{
		{grayscaleSchema, grayscaleShaderSource},
		{thresholdSchema, thresholdShaderSource},
		{gaussianBlurSchema, gaussianBlurShaderSource},
	}
	for _, tt := range tests {
		t.Run(tt.schema.Name, func(t *testing.T) {
			if err := tt.schema.Validate(tt.source); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestValidateRejectsMismatch(t *testing.T) {
	tests := []struct {
		name   string
		schema BindingSchema
		source string
	}{
		{
			"missing binding", gaussianBlurSchema,
			strings.Replace(gaussianBlurShaderSource,
				"@group(1) @binding(2) var<uniform> orientation: Orientation;", "", 1),
		},
		{
			"retyped binding", gaussianBlurSchema,
			strings.Replace(gaussianBlurShaderSource,
				"var<storage, read> weights", "var<storage, read_write> weights", 1),
		},
		{
			"moved group", thresholdSchema,
			strings.Replace(thresholdShaderSource,
				"@group(0) @binding(0) var<uniform>", "@group(2) @binding(0) var<uniform>", 1),
		},
		{
			"extra binding", grayscaleSchema,
			grayscaleShaderSource + "\n@group(0) @binding(2) var<uniform> extra: f32;\n",
		},
		{
			"duplicate binding", grayscaleSchema,
			grayscaleShaderSource + "\n@group(0) @binding(0) var<uniform> dup: f32;\n",
		},
		{
			"sampler", grayscaleSchema,
			grayscaleShaderSource + "\n@group(0) @binding(2) var samp: sampler;\n",
		},
		{
			"wrong kernel", thresholdSchema, grayscaleShaderSource,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.schema.Validate(tt.source); !errors.Is(err, ErrLayoutMismatch) {
				t.Errorf("Validate() error = %v, want ErrLayoutMismatch", err)
			}
		})
	}
}

func TestClassifyBinding(t *testing.T) {
	tests := []struct {
		space, typ string
		want       BindingKind
		ok         bool
	}{
		{"<uniform>", "Settings", BindingUniform, true},
		{"<storage, read>", "array<f32>", BindingReadOnlyStorage, true},
		{"<storage,read_write>", "array<u32>", BindingStorage, true},
		{"<storage>", "array<u32>", BindingStorage, true},
		{"", "texture_2d<f32>", BindingSampledTexture, true},
		{"", "texture_storage_2d<rgba8unorm, write>", BindingStorageTextureWrite, true},
		{"", "texture_storage_2d<rgba8unorm, read>", 0, false},
		{"", "sampler", 0, false},
		{"<private>", "f32", 0, false},
	}
	for _, tt := range tests {
		got, ok := classifyBinding(tt.space, tt.typ)
		if got != tt.want || ok != tt.ok {
			t.Errorf("classifyBinding(%q, %q) = (%v, %v), want (%v, %v)", tt.space, tt.typ, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLayoutEntries(t *testing.T) {
	entries := gaussianBlurSchema.layoutEntries(1)
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	for i, e := range entries {
		if e.Binding != uint32(i) {
			t.Errorf("entries[%d].Binding = %d", i, e.Binding)
		}
		if e.Visibility != gputypes.ShaderStageCompute {
			t.Errorf("entries[%d] not compute-visible", i)
		}
	}
	if entries[0].Texture == nil {
		t.Error("binding 0 should be a sampled texture")
	}
	if entries[1].StorageTexture == nil || entries[1].StorageTexture.Format != gputypes.TextureFormatRGBA8Unorm {
		t.Error("binding 1 should be an rgba8unorm storage texture")
	}
	if entries[2].Buffer == nil || entries[2].Buffer.Type != gputypes.BufferBindingTypeUniform {
		t.Error("binding 2 should be a uniform buffer")
	}

	kernel := gaussianBlurSchema.layoutEntries(0)
	if kernel[1].Buffer == nil || kernel[1].Buffer.Type != gputypes.BufferBindingTypeReadOnlyStorage {
		t.Error("kernel weights should be read-only storage")
	}
}

func TestBindingKindString(t *testing.T) {
	if got := BindingStorageTextureWrite.String(); got != "texture_storage_2d<write>" {
		t.Errorf("String() = %q", got)
	}
	if got := BindingKind(0).String(); got != "unknown" {
		t.Errorf("BindingKind(0).String() = %q, want unknown", got)
	}
}
