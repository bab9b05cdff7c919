package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeRegistriesFirstWins(t *testing.T) {
	base := []Descriptor{
		{Name: "map", Type: TypeGLTFModel, Path: "models/map.glb"},
		{Name: "envmap", Type: TypeEnvironmentEXR, Path: "textures/envmap.exr"},
	}
	extra := []Descriptor{
		{Name: "map", Type: TypeGLTFModel, Path: "models/other.glb"},
		{Name: "bush", Type: TypeGLTFModel, Path: "models/bush.glb"},
	}

	merged := MergeRegistries(base, extra)

	assert.Len(t, merged, 3)
	assert.Equal(t, "models/map.glb", merged[0].Path)
	assert.Equal(t, "bush", merged[2].Name)
}
