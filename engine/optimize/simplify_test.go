package optimize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylvagraph/sylva/engine/scene"
)

// gridGeometry builds an n×n vertex grid triangulated into 2·(n-1)² faces,
// with a UV per vertex.
func gridGeometry(n int) *scene.Geometry {
	g := &scene.Geometry{}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			fx := float32(x) / float32(n-1)
			fy := float32(y) / float32(n-1)
			g.Positions = append(g.Positions, fx, fy, float32(math.Sin(float64(fx*7))*0.1))
			g.UVs = append(g.UVs, fx, fy)
		}
	}
	for y := 0; y < n-1; y++ {
		for x := 0; x < n-1; x++ {
			a := uint32(y*n + x)
			b := a + 1
			c := a + uint32(n)
			d := c + 1
			g.Indices = append(g.Indices, a, b, c, b, d, c)
		}
	}
	return g
}

func TestDecimateReachesTarget(t *testing.T) {
	g := gridGeometry(60) // 2·59² = 6962 triangles
	source := g.TriangleCount()
	target := source / 3

	out, err := Decimate(g, target)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, out.TriangleCount(), target)
	assert.Less(t, out.TriangleCount(), source)
}

func TestDecimateNeverIncreases(t *testing.T) {
	g := gridGeometry(20)
	source := g.TriangleCount()

	out, err := Decimate(g, source/2)
	require.NoError(t, err)
	assert.LessOrEqual(t, out.TriangleCount(), source)
}

func TestDecimateAtOrBelowTargetIsUntouched(t *testing.T) {
	g := gridGeometry(6) // 50 triangles
	out, err := Decimate(g, 100)
	require.NoError(t, err)
	assert.Same(t, g, out)
}

func TestDecimatePreservesUVPresence(t *testing.T) {
	g := gridGeometry(40)

	out, err := Decimate(g, g.TriangleCount()/2)
	require.NoError(t, err)

	assert.True(t, out.HasUV())
	assert.Equal(t, out.VertexCount()*2, len(out.UVs))
}

func TestDecimateDropsNothingFromDegenerateInput(t *testing.T) {
	g := &scene.Geometry{}
	out, err := Decimate(g, 100)
	require.NoError(t, err)
	assert.Same(t, g, out)
}
