package wgimage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
)

// BindingKind is the resource type bound at one (group, binding) slot.
type BindingKind uint8

const (
	// BindingUniform is a uniform buffer.
	BindingUniform BindingKind = iota + 1
	// BindingReadOnlyStorage is a read-only storage buffer.
	BindingReadOnlyStorage
	// BindingStorage is a read-write storage buffer.
	BindingStorage
	// BindingSampledTexture is a texture_2d<f32> read with textureLoad.
	BindingSampledTexture
	// BindingStorageTextureWrite is a write-only rgba8unorm storage texture.
	BindingStorageTextureWrite
)

// String returns the WGSL-flavored name of the binding kind.
func (k BindingKind) String() string {
	switch k {
	case BindingUniform:
		return "uniform"
	case BindingReadOnlyStorage:
		return "storage<read>"
	case BindingStorage:
		return "storage<read_write>"
	case BindingSampledTexture:
		return "texture_2d"
	case BindingStorageTextureWrite:
		return "texture_storage_2d<write>"
	default:
		return "unknown"
	}
}

// BindingSchema is the host-side contract for one kernel: the resource kind
// expected at every (group, binding). Groups[g][b] is the kind at group g,
// binding b.
//
// The schema is checked against the kernel source before any pipeline is
// created, so a kernel edited out of step with its host code fails with
// ErrLayoutMismatch instead of failing inside the driver.
type BindingSchema struct {
	Name    string
	Version int
	Groups  [][]BindingKind
}

var bindingDecl = regexp.MustCompile(
	`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(<[^>]*>)?\s+(\w+)\s*:\s*([^;]+);`)

// Validate reports whether wgsl declares exactly the bindings in s.
func (s BindingSchema) Validate(wgsl string) error {
	declared := make(map[[2]int]BindingKind)
	for _, m := range bindingDecl.FindAllStringSubmatch(wgsl, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		kind, ok := classifyBinding(m[3], m[5])
		if !ok {
			return fmt.Errorf("%w: %s v%d: unsupported type %q at group %d binding %d",
				ErrLayoutMismatch, s.Name, s.Version, strings.TrimSpace(m[5]), group, binding)
		}
		key := [2]int{group, binding}
		if _, dup := declared[key]; dup {
			return fmt.Errorf("%w: %s v%d: duplicate group %d binding %d",
				ErrLayoutMismatch, s.Name, s.Version, group, binding)
		}
		declared[key] = kind
	}

	for g, group := range s.Groups {
		for b, want := range group {
			key := [2]int{g, b}
			got, ok := declared[key]
			if !ok {
				return fmt.Errorf("%w: %s v%d: group %d binding %d (%s) not declared",
					ErrLayoutMismatch, s.Name, s.Version, g, b, want)
			}
			if got != want {
				return fmt.Errorf("%w: %s v%d: group %d binding %d is %s, want %s",
					ErrLayoutMismatch, s.Name, s.Version, g, b, got, want)
			}
			delete(declared, key)
		}
	}
	for key, kind := range declared {
		return fmt.Errorf("%w: %s v%d: unexpected %s at group %d binding %d",
			ErrLayoutMismatch, s.Name, s.Version, kind, key[0], key[1])
	}
	return nil
}

// classifyBinding maps a WGSL address space and type to a BindingKind.
func classifyBinding(space, typ string) (BindingKind, bool) {
	space = strings.ReplaceAll(strings.Trim(space, "<>"), " ", "")
	typ = strings.ReplaceAll(typ, " ", "")
	switch {
	case space == "uniform":
		return BindingUniform, true
	case space == "storage,read":
		return BindingReadOnlyStorage, true
	case space == "storage" || space == "storage,read_write":
		return BindingStorage, true
	case space != "":
		return 0, false
	case strings.HasPrefix(typ, "texture_storage_2d<") && strings.HasSuffix(typ, ",write>"):
		return BindingStorageTextureWrite, true
	case typ == "texture_2d<f32>":
		return BindingSampledTexture, true
	}
	return 0, false
}

// layoutEntries returns the bind group layout entries for group g.
func (s BindingSchema) layoutEntries(g int) []gputypes.BindGroupLayoutEntry {
	kinds := s.Groups[g]
	entries := make([]gputypes.BindGroupLayoutEntry, len(kinds))
	for b, kind := range kinds {
		e := gputypes.BindGroupLayoutEntry{
			Binding:    uint32(b), //nolint:gosec // binding indices are small
			Visibility: gputypes.ShaderStageCompute,
		}
		switch kind {
		case BindingUniform:
			e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
		case BindingReadOnlyStorage:
			e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
		case BindingStorage:
			e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
		case BindingSampledTexture:
			e.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		case BindingStorageTextureWrite:
			e.StorageTexture = &gputypes.StorageTextureBindingLayout{
				Access:        gputypes.StorageTextureAccessWriteOnly,
				Format:        textureFormat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		}
		entries[b] = e
	}
	return entries
}
