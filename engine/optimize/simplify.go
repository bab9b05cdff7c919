package optimize

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/sylvagraph/sylva/engine/scene"
)

// Decimate reduces a geometry to roughly targetTriangles by vertex
// clustering: vertices are snapped to a uniform grid and triangles that
// collapse are dropped. The grid resolution is binary-searched so the result
// is the finest clustering at or below the source count that still reaches
// the target. The triangle count never increases; geometry already at or
// below the target is returned unchanged.
func Decimate(g *scene.Geometry, targetTriangles int) (*scene.Geometry, error) {
	if g == nil || g.VertexCount() == 0 {
		return g, nil
	}
	if targetTriangles < 1 {
		targetTriangles = 1
	}
	if g.TriangleCount() <= targetTriangles {
		return g, nil
	}

	indices := g.Indices
	if len(indices) == 0 {
		indices = make([]uint32, g.VertexCount())
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	min, max := g.Bounds()
	size := max.Sub(min)
	for a := 0; a < 3; a++ {
		if size[a] < 1e-9 {
			size[a] = 1e-9
		}
	}

	// Triangle count grows monotonically with grid resolution. Double until
	// the target is reached, then binary-search the smallest resolution that
	// still reaches it.
	const maxResolution = 1 << 14
	hi := 2
	for hi < maxResolution && countAtResolution(g, indices, min, size, hi) < targetTriangles {
		hi *= 2
	}
	if countAtResolution(g, indices, min, size, hi) < targetTriangles {
		return nil, errors.Errorf("cannot reach %d triangles at any grid resolution", targetTriangles)
	}
	lo := hi/2 + 1
	for lo < hi {
		mid := (lo + hi) / 2
		if countAtResolution(g, indices, min, size, mid) >= targetTriangles {
			hi = mid
		} else {
			lo = mid + 1
		}
	}

	return rebuildAtResolution(g, indices, min, size, hi), nil
}

// cellOf buckets a vertex into the clustering grid.
func cellOf(g *scene.Geometry, v int, min, size mgl64.Vec3, res int) [3]int {
	var cell [3]int
	for a := 0; a < 3; a++ {
		f := (float64(g.Positions[v*3+a]) - min[a]) / size[a]
		c := int(f * float64(res))
		cell[a] = scene.Clamp(c, 0, res-1)
	}
	return cell
}

func countAtResolution(g *scene.Geometry, indices []uint32, minV, sizeV mgl64.Vec3, res int) int {
	cluster := clusterVertices(g, minV, sizeV, res)
	count := 0
	for i := 0; i+2 < len(indices); i += 3 {
		a := cluster[indices[i]]
		b := cluster[indices[i+1]]
		c := cluster[indices[i+2]]
		if a != b && b != c && a != c {
			count++
		}
	}
	return count
}

// clusterVertices maps every vertex to its cluster ordinal. The first vertex
// seen in a cell is the cell's representative and keeps its attributes.
func clusterVertices(g *scene.Geometry, minV, sizeV mgl64.Vec3, res int) []uint32 {
	cells := map[[3]int]uint32{}
	cluster := make([]uint32, g.VertexCount())
	next := uint32(0)
	for v := 0; v < g.VertexCount(); v++ {
		cell := cellOf(g, v, minV, sizeV, res)
		id, ok := cells[cell]
		if !ok {
			id = next
			next++
			cells[cell] = id
		}
		cluster[v] = id
	}
	return cluster
}

func rebuildAtResolution(g *scene.Geometry, indices []uint32, minV, sizeV mgl64.Vec3, res int) *scene.Geometry {
	cluster := clusterVertices(g, minV, sizeV, res)

	// Representative per cluster: first source vertex mapped to it.
	repr := map[uint32]int{}
	clusterCount := 0
	for v := 0; v < g.VertexCount(); v++ {
		id := cluster[v]
		if _, ok := repr[id]; !ok {
			repr[id] = v
			clusterCount++
		}
	}

	hasNormals := len(g.Normals) == g.VertexCount()*3
	hasUV := g.HasUV()
	hasUV2 := g.HasUV2()

	out := &scene.Geometry{
		Positions: make([]float32, 0, clusterCount*3),
	}
	if hasNormals {
		out.Normals = make([]float32, 0, clusterCount*3)
	}
	if hasUV {
		out.UVs = make([]float32, 0, clusterCount*2)
	}
	if hasUV2 {
		out.UV2s = make([]float32, 0, clusterCount*2)
	}
	for id := uint32(0); id < uint32(clusterCount); id++ {
		v := repr[id]
		out.Positions = append(out.Positions, g.Positions[v*3], g.Positions[v*3+1], g.Positions[v*3+2])
		if hasNormals {
			out.Normals = append(out.Normals, g.Normals[v*3], g.Normals[v*3+1], g.Normals[v*3+2])
		}
		if hasUV {
			out.UVs = append(out.UVs, g.UVs[v*2], g.UVs[v*2+1])
		}
		if hasUV2 {
			out.UV2s = append(out.UV2s, g.UV2s[v*2], g.UV2s[v*2+1])
		}
	}

	for i := 0; i+2 < len(indices); i += 3 {
		a := cluster[indices[i]]
		b := cluster[indices[i+1]]
		c := cluster[indices[i+2]]
		if a != b && b != c && a != c {
			out.Indices = append(out.Indices, a, b, c)
		}
	}
	return out
}
