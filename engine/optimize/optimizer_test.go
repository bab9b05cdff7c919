package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylvagraph/sylva/engine/config"
	"github.com/sylvagraph/sylva/engine/scene"
)

func testDecimationConfig() config.Decimation {
	return config.Default().Decimation
}

func TestTargetTriangles(t *testing.T) {
	// A 5,000 triangle mesh in the 0.6 band targets floor(5000·0.6).
	assert.Equal(t, 3000, targetTriangles(5000, 0.6, 100))
	// The floor wins when the band ratio would go below it.
	assert.Equal(t, 100, targetTriangles(120, 0.2, 100))
}

func TestOptimizeDecimatesLargeMesh(t *testing.T) {
	o := NewOptimizer(testDecimationConfig())

	node := scene.NewNode("big")
	node.Geometry = gridGeometry(60)
	node.CastShadow = true
	node.ReceiveShadow = true
	source := node.Geometry.TriangleCount()

	root := scene.NewNode("root")
	root.Add(node)
	o.Optimize(root)

	assert.Less(t, node.Geometry.TriangleCount(), source)
	assert.GreaterOrEqual(t, node.Geometry.TriangleCount(), 100)
}

func TestOptimizeLeavesSmallMeshAlone(t *testing.T) {
	o := NewOptimizer(testDecimationConfig())

	node := scene.NewNode("small")
	node.Geometry = gridGeometry(6) // 50 triangles, under the floor
	before := node.Geometry

	o.Optimize(node)
	assert.Same(t, before, node.Geometry)
}

func TestOptimizeSharesMaterialsBySignature(t *testing.T) {
	o := NewOptimizer(testDecimationConfig())

	a := scene.NewNode("a")
	a.Geometry = gridGeometry(4)
	a.Material = scene.NewMaterial("a-mat")
	a.Material.Color = 0x336622
	a.Material.HasColor = true

	b := scene.NewNode("b")
	b.Geometry = gridGeometry(4)
	b.Material = scene.NewMaterial("b-mat")
	b.Material.Color = 0x336622
	b.Material.HasColor = true

	root := scene.NewNode("root")
	root.Add(a, b)
	o.Optimize(root)

	assert.Same(t, a.Material, b.Material)
	assert.Equal(t, 1, o.SharedMaterialCount())
}

func TestOptimizeDisablesShadowsOnTinyMeshes(t *testing.T) {
	o := NewOptimizer(testDecimationConfig())

	node := scene.NewNode("pebble")
	node.Geometry = &scene.Geometry{
		Positions: []float32{0, 0, 0, 0.1, 0, 0, 0, 0.1, 0},
		Indices:   []uint32{0, 1, 2},
	}
	node.CastShadow = true
	node.ReceiveShadow = true

	o.Optimize(node)

	assert.False(t, node.CastShadow)
	assert.False(t, node.ReceiveShadow)
}

func TestOptimizeNilRoot(t *testing.T) {
	o := NewOptimizer(testDecimationConfig())
	assert.Nil(t, o.Optimize(nil))
}

func TestOptimizeForInstancingAggressiveBand(t *testing.T) {
	o := NewOptimizer(testDecimationConfig())

	g := gridGeometry(60)
	source := g.TriangleCount()

	out := o.OptimizeForInstancing("forest", g, 500)
	require.NotNil(t, out)

	// 500 instances sit in the most aggressive band.
	assert.Less(t, out.TriangleCount(), source/2)
	assert.GreaterOrEqual(t, out.TriangleCount(), 100)
}
