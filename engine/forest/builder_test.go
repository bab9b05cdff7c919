package forest

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylvagraph/sylva/engine/assets"
	"github.com/sylvagraph/sylva/engine/config"
	"github.com/sylvagraph/sylva/engine/optimize"
	"github.com/sylvagraph/sylva/engine/scene"
)

func newTestBuilder(store *assets.ItemStore) *Builder {
	cfg := config.Default()
	cfg.Builder.RetryAttempts = 2
	cfg.Builder.RetryBackoffMS = 10
	return NewBuilder(cfg.Builder, store, optimize.NewOptimizer(cfg.Decimation), nil)
}

func trunkModel() *scene.Model {
	root := scene.NewNode("TreeNaked")
	mesh := scene.NewNode("mesh")
	mesh.Geometry = &scene.Geometry{
		Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		UVs:       []float32{0, 0, 1, 0, 0, 1},
		Indices:   []uint32{0, 1, 2},
	}
	mesh.Material = scene.NewMaterial("bark")
	mesh.CastShadow = true
	mesh.ReceiveShadow = true
	root.Add(mesh)
	return &scene.Model{Scene: root}
}

func twoRecords() []PlacementRecord {
	return []PlacementRecord{
		{X: 1, Y: 0, Z: 0, ScaleX: 1, ScaleY: 1, ScaleZ: 1},
		{X: 0, Y: 0, Z: 5, RotationY: 1.2, ScaleX: 2, ScaleY: 2, ScaleZ: 2},
	}
}

func TestBuildEmptyRecordsIsNil(t *testing.T) {
	b := newTestBuilder(assets.NewItemStore())
	assert.Nil(t, b.Build("TreeNaked", trunkModel(), nil, nil))
}

func TestBuildNoMeshIsNil(t *testing.T) {
	b := newTestBuilder(assets.NewItemStore())
	model := &scene.Model{Scene: scene.NewNode("empty")}
	assert.Nil(t, b.Build("TreeNaked", model, twoRecords(), nil))
}

func TestBuildInstancedMesh(t *testing.T) {
	b := newTestBuilder(assets.NewItemStore())

	im := b.Build("TreeNaked", trunkModel(), twoRecords(), nil)
	require.NotNil(t, im)

	assert.Equal(t, "TreeNaked", im.Name)
	assert.Equal(t, 2, im.Count)
	assert.True(t, im.Material.DoubleSided)
	assert.Equal(t, 0.5, im.Material.AlphaTest)

	// The batch is flagged for one upload after the fill loop.
	assert.True(t, im.ConsumeDirty())
	assert.False(t, im.ConsumeDirty())

	m, err := im.MatrixAt(0)
	require.NoError(t, err)
	p := mgl64.TransformCoordinate(mgl64.Vec3{}, m)
	assert.InDelta(t, 1.0, p.X(), 1e-9)

	m, err = im.MatrixAt(1)
	require.NoError(t, err)
	p = mgl64.TransformCoordinate(mgl64.Vec3{}, m)
	assert.InDelta(t, 5.0, p.Z(), 1e-9)
}

func TestBuildAttachesTexturesWithoutFlip(t *testing.T) {
	b := newTestBuilder(assets.NewItemStore())

	set := &assets.MaterialSet{
		Name: "TreeNakedTextures",
		Slots: map[string]*scene.Texture{
			scene.SlotColor: scene.NewTexture("color", 4, 4, make([]byte, 4*4*4)),
			scene.SlotAO:    scene.NewTexture("ao", 4, 4, make([]byte, 4*4*4)),
		},
	}

	im := b.Build("TreeNaked", trunkModel(), twoRecords(), set)
	require.NotNil(t, im)

	color := im.Material.Texture(scene.SlotColor)
	require.NotNil(t, color)
	assert.False(t, color.FlipY)

	// Ambient occlusion needs the secondary UV channel.
	assert.True(t, im.Geometry.HasUV2())
}

func TestBuildAllSkipsMissingModels(t *testing.T) {
	store := assets.NewItemStore()
	store.Set(assets.Item{Name: "TreeNaked", Type: assets.TypeGLTFModel, Payload: trunkModel()})
	b := newTestBuilder(store)

	set := PlacementSet{
		"TreeNaked":      twoRecords(),
		"Bush":           twoRecords(), // never loaded
		ObjectUndefined:  {{X: 1, ScaleX: 1, ScaleY: 1, ScaleZ: 1}},
		"ThinTrunk":      {},
	}

	meshes := b.BuildAll(context.Background(), set)

	require.Len(t, meshes, 1)
	assert.Equal(t, "TreeNaked", meshes[0].Name)
}

func TestBuildAllEmptySet(t *testing.T) {
	b := newTestBuilder(assets.NewItemStore())
	assert.Empty(t, b.BuildAll(context.Background(), PlacementSet{}))
}

func TestBuildAppliesMaterialOverride(t *testing.T) {
	cfg := config.Default()
	cfg.Builder.RetryAttempts = 2
	cfg.Builder.RetryBackoffMS = 10
	rough := 0.35
	color := uint32(0x8a6f4d)
	cfg.Builder.MaterialOverrides = map[string]config.MaterialOverride{
		"TreeNaked": {Color: &color, Roughness: &rough},
	}
	b := NewBuilder(cfg.Builder, assets.NewItemStore(), optimize.NewOptimizer(cfg.Decimation), nil)

	im := b.Build("TreeNaked", trunkModel(), twoRecords(), nil)
	require.NotNil(t, im)

	assert.Equal(t, color, im.Material.Color)
	assert.True(t, im.Material.HasColor)
	assert.Equal(t, rough, im.Material.Roughness)
	// Metalness was not overridden and keeps the template's value.
	assert.Equal(t, 0.0, im.Material.Metalness)
}
