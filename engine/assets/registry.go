package assets

import "github.com/sylvagraph/sylva/engine/core"

// Asset types understood by the loader dispatch.
const (
	TypeTexture              = "texture"
	TypeEnvironmentEXR       = "environment-exr"
	TypeEnvironmentHDR       = "environment-hdr"
	TypeRiggedModel          = "rigged-model"
	TypeGLTFModel            = "gltf-model"
	TypeMultiTextureMaterial = "multi-texture-material"
)

// Descriptor identifies one loadable asset. SubTextures is only used by the
// multi-texture material type and maps material slot names to paths.
type Descriptor struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Path        string            `json:"path"`
	SubTextures map[string]string `json:"subTextures,omitempty"`
	Equirect    bool              `json:"equirect,omitempty"`
}

// MergeRegistries concatenates descriptor lists, skipping later entries whose
// name already appeared. First occurrence wins.
func MergeRegistries(lists ...[]Descriptor) []Descriptor {
	seen := map[string]struct{}{}
	var out []Descriptor
	for _, list := range lists {
		for _, d := range list {
			if _, ok := seen[d.Name]; ok {
				core.LogWarn("registry entry %q already present, skipping duplicate", d.Name)
				continue
			}
			seen[d.Name] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

// BaseRegistry is the static asset list every run starts from. Template
// model entries are typically appended from the template catalog before
// loading.
func BaseRegistry() []Descriptor {
	return []Descriptor{
		{Name: "envmap", Type: TypeEnvironmentEXR, Path: "textures/envmap.exr", Equirect: true},
		{Name: "skybox", Type: TypeEnvironmentHDR, Path: "textures/skybox.hdr", Equirect: true},
		{Name: "map", Type: TypeGLTFModel, Path: "models/map.glb"},
		{Name: "character", Type: TypeRiggedModel, Path: "models/character.glb"},
		{Name: "groundColor", Type: TypeTexture, Path: "textures/ground/color.jpg"},
		{Name: "groundNormal", Type: TypeTexture, Path: "textures/ground/normal.jpg"},
	}
}
