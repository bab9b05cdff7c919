package forest

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/sylvagraph/sylva/engine/config"
	"github.com/sylvagraph/sylva/engine/scene"
)

// Fingerprint is a derived geometric summary of a mesh subtree, computed on
// demand for similarity scoring and never persisted.
type Fingerprint struct {
	VertexCount   int
	FaceCount     int
	MeshCount     int
	MaterialCount int
	MaterialTypes map[string]struct{}
	BoundingSize  mgl64.Vec3
	AspectRatio   mgl64.Vec3
	Volume        float64
}

// FingerprintOf summarizes the subtree rooted at node. Extents are taken in
// the subtree's own frame, so two copies of the same object fingerprint
// identically regardless of placement.
func FingerprintOf(node *scene.Node) Fingerprint {
	fp := Fingerprint{MaterialTypes: map[string]struct{}{}}
	materials := map[*scene.Material]struct{}{}

	bbMin := mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	bbMax := mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}

	// Walk hands world matrices that include the root's own placement;
	// stripping it keeps the fingerprint frame local to the subtree.
	rootInv := node.LocalMatrix().Inv()

	node.Walk(func(n *scene.Node, world mgl64.Mat4) bool {
		if !n.IsMesh() {
			return true
		}
		fp.MeshCount++
		fp.VertexCount += n.Geometry.VertexCount()
		fp.FaceCount += n.Geometry.TriangleCount()
		if n.Material != nil {
			materials[n.Material] = struct{}{}
			fp.MaterialTypes[n.Material.Type] = struct{}{}
		}

		gMin, gMax := n.Geometry.Bounds()
		local := rootInv.Mul4(world)
		for _, corner := range boxCorners(gMin, gMax) {
			p := mgl64.TransformCoordinate(corner, local)
			for a := 0; a < 3; a++ {
				if p[a] < bbMin[a] {
					bbMin[a] = p[a]
				}
				if p[a] > bbMax[a] {
					bbMax[a] = p[a]
				}
			}
		}
		return true
	})

	fp.MaterialCount = len(materials)
	if fp.MeshCount > 0 {
		fp.BoundingSize = bbMax.Sub(bbMin)
		fp.Volume = fp.BoundingSize.X() * fp.BoundingSize.Y() * fp.BoundingSize.Z()
		fp.AspectRatio = mgl64.Vec3{
			safeRatio(fp.BoundingSize.X(), fp.BoundingSize.Y()),
			safeRatio(fp.BoundingSize.Y(), fp.BoundingSize.Z()),
			safeRatio(fp.BoundingSize.X(), fp.BoundingSize.Z()),
		}
	}
	return fp
}

func boxCorners(min, max mgl64.Vec3) [8]mgl64.Vec3 {
	return [8]mgl64.Vec3{
		{min.X(), min.Y(), min.Z()},
		{min.X(), min.Y(), max.Z()},
		{min.X(), max.Y(), min.Z()},
		{min.X(), max.Y(), max.Z()},
		{max.X(), min.Y(), min.Z()},
		{max.X(), min.Y(), max.Z()},
		{max.X(), max.Y(), min.Z()},
		{max.X(), max.Y(), max.Z()},
	}
}

func safeRatio(a, b float64) float64 {
	if math.Abs(b) < 1e-9 {
		b = 1e-9
	}
	return a / b
}

// Score computes the weighted dissimilarity between two fingerprints. Lower
// is more similar; the result is normalized by the weight sum so it stays
// comparable across weight configurations. Pure function, no side effects.
func Score(a, b Fingerprint, w config.Matcher) float64 {
	total := 0.0
	weightSum := 0.0
	add := func(weight, diff float64) {
		total += weight * diff
		weightSum += weight
	}

	add(w.WeightVertex, relDiff(float64(a.VertexCount), float64(b.VertexCount)))
	add(w.WeightFace, relDiff(float64(a.FaceCount), float64(b.FaceCount)))
	add(w.WeightMesh, relDiff(float64(a.MeshCount), float64(b.MeshCount)))
	add(w.WeightMaterial, relDiff(float64(a.MaterialCount), float64(b.MaterialCount)))
	add(w.WeightVolume, relDiff(a.Volume, b.Volume))

	aspect := (relDiff(a.AspectRatio.X(), b.AspectRatio.X()) +
		relDiff(a.AspectRatio.Y(), b.AspectRatio.Y()) +
		relDiff(a.AspectRatio.Z(), b.AspectRatio.Z())) / 3
	add(w.WeightAspect, aspect)

	if weightSum == 0 {
		return 0
	}
	return total / weightSum
}

// relDiff is the difference between two magnitudes relative to the larger of
// the pair, clamped so matching zeros score zero.
func relDiff(a, b float64) float64 {
	a, b = math.Abs(a), math.Abs(b)
	larger := math.Max(a, b)
	if larger < 1e-12 {
		return 0
	}
	return math.Abs(a-b) / larger
}

type reference struct {
	templateName string
	fp           Fingerprint
}

// Matcher scores instance fingerprints against registered template reference
// fingerprints. Registration order is the tie-break: on equal scores the
// first-registered template wins.
type Matcher struct {
	cfg  config.Matcher
	refs []reference
}

func NewMatcher(cfg config.Matcher) *Matcher {
	return &Matcher{cfg: cfg}
}

func (m *Matcher) Register(templateName string, fp Fingerprint) {
	m.refs = append(m.refs, reference{templateName: templateName, fp: fp})
}

// ReferenceCount returns how many template fingerprints are registered.
func (m *Matcher) ReferenceCount() int {
	return len(m.refs)
}

// Match returns the template minimizing the weighted score. ok is false when
// no references are registered or the best score exceeds the threshold.
func (m *Matcher) Match(fp Fingerprint) (templateName string, score float64, ok bool) {
	if len(m.refs) == 0 {
		return "", 0, false
	}
	best := m.refs[0]
	bestScore := Score(fp, best.fp, m.cfg)
	for _, ref := range m.refs[1:] {
		if s := Score(fp, ref.fp, m.cfg); s < bestScore {
			best = ref
			bestScore = s
		}
	}
	if bestScore > m.cfg.Threshold {
		return "", bestScore, false
	}
	return best.templateName, bestScore, true
}
