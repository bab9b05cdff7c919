package optimize

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/sylvagraph/sylva/engine/config"
	"github.com/sylvagraph/sylva/engine/core"
	"github.com/sylvagraph/sylva/engine/scene"
)

// Optimizer rewrites loaded models for rendering performance: duplicate
// materials are shared by signature, large meshes are decimated under the
// triangle-band policy, tiny meshes stop casting shadows.
type Optimizer struct {
	cfg config.Decimation

	materials map[string]*scene.Material
}

func NewOptimizer(cfg config.Decimation) *Optimizer {
	return &Optimizer{
		cfg:       cfg,
		materials: map[string]*scene.Material{},
	}
}

// Optimize processes every mesh under root in place and returns root. A
// failure in any single mesh degrades that mesh only; the returned root is
// always usable.
func (o *Optimizer) Optimize(root *scene.Node) *scene.Node {
	if root == nil {
		return nil
	}
	root.Walk(func(node *scene.Node, _ mgl64.Mat4) bool {
		if node.IsMesh() {
			o.optimizeMesh(node)
		}
		return true
	})
	return root
}

func (o *Optimizer) optimizeMesh(node *scene.Node) {
	defer func() {
		if r := recover(); r != nil {
			core.LogWarn("optimizing mesh %q panicked: %v, keeping original geometry", node.Name, r)
		}
	}()

	o.shareMaterial(node)

	tc := node.Geometry.TriangleCount()
	if tc > o.cfg.MinTriangles {
		ratio := o.cfg.RatioForTriangles(tc)
		target := targetTriangles(tc, ratio, o.cfg.MinTriangles)
		node.Geometry = o.decimate(node.Name, node.Geometry, target)
	}

	if _, radius := node.Geometry.BoundingSphere(); radius < o.cfg.ShadowRadiusCutoff {
		node.CastShadow = false
		node.ReceiveShadow = false
	}
}

// shareMaterial replaces the node's material with the canonical instance for
// its signature, so equal materials become one GPU object.
func (o *Optimizer) shareMaterial(node *scene.Node) {
	if node.Material == nil {
		return
	}
	key := node.Material.SignatureKey()
	if canonical, ok := o.materials[key]; ok {
		node.Material = canonical
		return
	}
	o.materials[key] = node.Material
}

// SharedMaterialCount returns how many distinct material signatures the
// optimizer has seen.
func (o *Optimizer) SharedMaterialCount() int {
	return len(o.materials)
}

// OptimizeForInstancing applies the aggressive instance-count-keyed
// decimation used before building GPU-instanced meshes.
func (o *Optimizer) OptimizeForInstancing(name string, g *scene.Geometry, instanceCount int) *scene.Geometry {
	if g == nil {
		return nil
	}
	tc := g.TriangleCount()
	if tc <= o.cfg.MinTriangles {
		return g
	}
	ratio := o.cfg.RatioForInstances(instanceCount)
	target := targetTriangles(tc, ratio, o.cfg.MinTriangles)
	return o.decimate(name, g, target)
}

// decimate runs the simplifier and keeps the original geometry on failure.
// Dropping the UV channel is a known simplifier limitation and only warned
// about.
func (o *Optimizer) decimate(name string, g *scene.Geometry, target int) *scene.Geometry {
	hadUV := g.HasUV()
	out, err := Decimate(g, target)
	if err != nil {
		core.LogWarn("decimating %q to %d triangles: %v, keeping original", name, target, err)
		return g
	}
	if len(g.UVs) > 0 && !hadUV {
		core.LogWarn("mesh %q has a malformed uv channel, dropped during decimation", name)
		out.UVs = nil
		out.UV2s = nil
	}
	return out
}

func targetTriangles(count int, keepRatio float64, floor int) int {
	target := int(math.Floor(float64(count) * keepRatio))
	if target < floor {
		target = floor
	}
	return target
}
