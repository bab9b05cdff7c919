package loaders

import (
	"bytes"
	"context"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/sylvagraph/sylva/engine/assets"
	"github.com/sylvagraph/sylva/engine/core"
	"github.com/sylvagraph/sylva/engine/scene"
)

// ModelLoader decodes glTF and GLB documents into scene graphs. Rigged
// models additionally carry their animation clips.
type ModelLoader struct{}

func (l *ModelLoader) Load(_ context.Context, data []byte, desc assets.Descriptor) (interface{}, error) {
	doc := &gltf.Document{}
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, errors.Wrapf(err, "decoding gltf %q", desc.Name)
	}

	root := scene.NewNode(desc.Name)
	for _, idx := range sceneRoots(doc) {
		child, err := buildNode(doc, idx)
		if err != nil {
			return nil, err
		}
		root.Add(child)
	}

	model := &scene.Model{Scene: root}
	if desc.Type == assets.TypeRiggedModel {
		clips, err := buildAnimations(doc)
		if err != nil {
			core.LogWarn("model %q: %v, animations dropped", desc.Name, err)
		} else {
			model.Animations = clips
		}
	}
	return model, nil
}

func sceneRoots(doc *gltf.Document) []uint32 {
	if len(doc.Scenes) == 0 {
		// No scene: treat every node as a root. Good enough for
		// single-object template files.
		roots := make([]uint32, len(doc.Nodes))
		for i := range doc.Nodes {
			roots[i] = uint32(i)
		}
		return roots
	}
	si := uint32(0)
	if doc.Scene != nil {
		si = *doc.Scene
	}
	return doc.Scenes[si].Nodes
}

func buildNode(doc *gltf.Document, idx uint32) (*scene.Node, error) {
	if int(idx) >= len(doc.Nodes) {
		return nil, errors.Errorf("node index %d out of range", idx)
	}
	gn := doc.Nodes[idx]

	node := scene.NewNode(gn.Name)
	applyTransform(node, gn)

	if gn.Mesh != nil {
		if err := attachMesh(doc, node, *gn.Mesh); err != nil {
			return nil, err
		}
	}
	for _, ci := range gn.Children {
		child, err := buildNode(doc, ci)
		if err != nil {
			return nil, err
		}
		node.Add(child)
	}
	return node, nil
}

func applyTransform(node *scene.Node, gn *gltf.Node) {
	// Omitted TRS fields decode as zeros, so go through the OrDefault
	// accessors.
	if m4 := gn.MatrixOrDefault(); m4 != gltf.DefaultMatrix {
		m := mgl64.Mat4{}
		for i, v := range m4 {
			m[i] = float64(v)
		}
		node.Position, node.Rotation, node.Scale = scene.Decompose(m)
		return
	}
	t := gn.TranslationOrDefault()
	r := gn.RotationOrDefault()
	s := gn.ScaleOrDefault()
	node.Position = mgl64.Vec3{float64(t[0]), float64(t[1]), float64(t[2])}
	node.Rotation = mgl64.Quat{
		W: float64(r[3]),
		V: mgl64.Vec3{float64(r[0]), float64(r[1]), float64(r[2])},
	}.Normalize()
	node.Scale = mgl64.Vec3{float64(s[0]), float64(s[1]), float64(s[2])}
}

// attachMesh flattens the mesh's primitives into child mesh nodes. A mesh
// with a single primitive becomes the node's own geometry.
func attachMesh(doc *gltf.Document, node *scene.Node, meshIdx uint32) error {
	if int(meshIdx) >= len(doc.Meshes) {
		return errors.Errorf("mesh index %d out of range", meshIdx)
	}
	mesh := doc.Meshes[meshIdx]

	for pi, prim := range mesh.Primitives {
		geo, mat, err := buildPrimitive(doc, prim)
		if err != nil {
			return errors.Wrapf(err, "mesh %q primitive %d", mesh.Name, pi)
		}
		if len(mesh.Primitives) == 1 {
			node.Geometry = geo
			node.Material = mat
			node.CastShadow = true
			node.ReceiveShadow = true
			return nil
		}
		child := scene.NewNode(mesh.Name)
		child.Geometry = geo
		child.Material = mat
		child.CastShadow = true
		child.ReceiveShadow = true
		node.Add(child)
	}
	return nil
}

func buildPrimitive(doc *gltf.Document, prim *gltf.Primitive) (*scene.Geometry, *scene.Material, error) {
	geo := &scene.Geometry{}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil, errors.New("primitive has no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading positions")
	}
	geo.Positions = flatten3(positions)

	if ni, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, err := modeler.ReadNormal(doc, doc.Accessors[ni], nil)
		if err != nil {
			return nil, nil, errors.Wrap(err, "reading normals")
		}
		geo.Normals = flatten3(normals)
	}
	if ti, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[ti], nil)
		if err != nil {
			return nil, nil, errors.Wrap(err, "reading uvs")
		}
		geo.UVs = flatten2(uvs)
	}
	if ti, ok := prim.Attributes[gltf.TEXCOORD_1]; ok {
		uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[ti], nil)
		if err != nil {
			return nil, nil, errors.Wrap(err, "reading uv2s")
		}
		geo.UV2s = flatten2(uvs)
	}
	if prim.Indices != nil {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, nil, errors.Wrap(err, "reading indices")
		}
		geo.Indices = indices
	}

	var mat *scene.Material
	if prim.Material != nil && int(*prim.Material) < len(doc.Materials) {
		mat = buildMaterial(doc.Materials[*prim.Material])
	}
	return geo, mat, nil
}

func buildMaterial(gm *gltf.Material) *scene.Material {
	mat := scene.NewMaterial(gm.Name)
	mat.DoubleSided = gm.DoubleSided
	if gm.AlphaMode == gltf.AlphaMask {
		mat.AlphaTest = float64(gm.AlphaCutoffOrDefault())
	}
	if gm.AlphaMode == gltf.AlphaBlend {
		mat.Transparent = true
	}
	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		c := pbr.BaseColorFactorOrDefault()
		mat.Color = packColor(float64(c[0]), float64(c[1]), float64(c[2]))
		mat.HasColor = true
		mat.Opacity = float64(c[3])
		mat.Roughness = float64(pbr.RoughnessFactorOrDefault())
		mat.Metalness = float64(pbr.MetallicFactorOrDefault())
	}
	return mat
}

func packColor(r, g, b float64) uint32 {
	to8 := func(v float64) uint32 {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		return uint32(v*255 + 0.5)
	}
	return to8(r)<<16 | to8(g)<<8 | to8(b)
}

func buildAnimations(doc *gltf.Document) ([]scene.AnimationClip, error) {
	var clips []scene.AnimationClip
	for _, anim := range doc.Animations {
		clip := scene.AnimationClip{Name: anim.Name}
		for _, ch := range anim.Channels {
			if ch.Sampler == nil || ch.Target.Node == nil {
				continue
			}
			sampler := anim.Samplers[*ch.Sampler]
			times, err := readScalars(doc, int(sampler.Input))
			if err != nil {
				return nil, errors.Wrap(err, "reading keyframe times")
			}
			values, err := readFloats(doc, int(sampler.Output))
			if err != nil {
				return nil, errors.Wrap(err, "reading keyframe values")
			}
			clip.Tracks = append(clip.Tracks, scene.Keyframes{
				Node:     doc.Nodes[*ch.Target.Node].Name,
				Property: string(ch.Target.Path),
				Times:    times,
				Values:   values,
			})
			for _, t := range times {
				if d := float64(t); d > clip.Duration {
					clip.Duration = d
				}
			}
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

func readScalars(doc *gltf.Document, accessor int) ([]float32, error) {
	raw, err := modeler.ReadAccessor(doc, doc.Accessors[accessor], nil)
	if err != nil {
		return nil, err
	}
	out, ok := raw.([]float32)
	if !ok {
		return nil, errors.Errorf("expected scalar floats, got %T", raw)
	}
	return out, nil
}

func readFloats(doc *gltf.Document, accessor int) ([]float32, error) {
	raw, err := modeler.ReadAccessor(doc, doc.Accessors[accessor], nil)
	if err != nil {
		return nil, err
	}
	switch v := raw.(type) {
	case []float32:
		return v, nil
	case [][3]float32:
		return flatten3(v), nil
	case [][4]float32:
		return flatten4(v), nil
	default:
		return nil, errors.Errorf("unsupported keyframe value type %T", raw)
	}
}

func flatten2(in [][2]float32) []float32 {
	out := make([]float32, 0, len(in)*2)
	for _, v := range in {
		out = append(out, v[0], v[1])
	}
	return out
}

func flatten3(in [][3]float32) []float32 {
	out := make([]float32, 0, len(in)*3)
	for _, v := range in {
		out = append(out, v[0], v[1], v[2])
	}
	return out
}

func flatten4(in [][4]float32) []float32 {
	out := make([]float32, 0, len(in)*4)
	for _, v := range in {
		out = append(out, v[0], v[1], v[2], v[3])
	}
	return out
}
