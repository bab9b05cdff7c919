package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Geometry holds indexed triangle data in flat attribute arrays, three floats
// per position and normal, two per UV coordinate.
type Geometry struct {
	Positions []float32
	Normals   []float32
	UVs       []float32
	UV2s      []float32
	Indices   []uint32
}

func (g *Geometry) VertexCount() int {
	return len(g.Positions) / 3
}

func (g *Geometry) TriangleCount() int {
	if len(g.Indices) > 0 {
		return len(g.Indices) / 3
	}
	return g.VertexCount() / 3
}

func (g *Geometry) HasUV() bool {
	return len(g.UVs) == g.VertexCount()*2 && g.VertexCount() > 0
}

func (g *Geometry) HasUV2() bool {
	return len(g.UV2s) == g.VertexCount()*2 && g.VertexCount() > 0
}

// SynthesizeUV2 duplicates the primary UV channel into UV2 when a second
// channel is required but absent. No-op when UV2 already exists or there is
// no primary channel to copy.
func (g *Geometry) SynthesizeUV2() {
	if g.HasUV2() || !g.HasUV() {
		return
	}
	g.UV2s = make([]float32, len(g.UVs))
	copy(g.UV2s, g.UVs)
}

// Bounds returns the axis-aligned bounding box of the positions. Zero vectors
// are returned for empty geometry.
func (g *Geometry) Bounds() (min, max mgl64.Vec3) {
	if g.VertexCount() == 0 {
		return min, max
	}
	min = mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	max = mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i := 0; i+2 < len(g.Positions); i += 3 {
		for a := 0; a < 3; a++ {
			v := float64(g.Positions[i+a])
			if v < min[a] {
				min[a] = v
			}
			if v > max[a] {
				max[a] = v
			}
		}
	}
	return min, max
}

// BoundingSphere returns the center and radius of a sphere around the
// bounding box.
func (g *Geometry) BoundingSphere() (center mgl64.Vec3, radius float64) {
	if g.VertexCount() == 0 {
		return center, 0
	}
	min, max := g.Bounds()
	center = min.Add(max).Mul(0.5)
	for i := 0; i+2 < len(g.Positions); i += 3 {
		p := mgl64.Vec3{float64(g.Positions[i]), float64(g.Positions[i+1]), float64(g.Positions[i+2])}
		if d := p.Sub(center).Len(); d > radius {
			radius = d
		}
	}
	return center, radius
}

// BoundsVolume returns the volume of the axis-aligned bounding box.
func (g *Geometry) BoundsVolume() float64 {
	min, max := g.Bounds()
	d := max.Sub(min)
	return d.X() * d.Y() * d.Z()
}

// BoundsAspect returns the ratio of the longest to the shortest bounding box
// edge, with degenerate edges clamped to a small epsilon.
func (g *Geometry) BoundsAspect() float64 {
	min, max := g.Bounds()
	d := max.Sub(min)
	longest, shortest := 0.0, math.Inf(1)
	for a := 0; a < 3; a++ {
		e := d[a]
		if e < 1e-9 {
			e = 1e-9
		}
		if e > longest {
			longest = e
		}
		if e < shortest {
			shortest = e
		}
	}
	if shortest == math.Inf(1) {
		return 1
	}
	return longest / shortest
}
