package loaders

import (
	"bytes"
	"context"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylvagraph/sylva/engine/assets"
	"github.com/sylvagraph/sylva/engine/scene"
)

// encodeGLB authors a one-triangle document: a mesh node with an explicit
// transform plus a bare node that relies on the format's TRS defaults.
func encodeGLB(t *testing.T) []byte {
	t.Helper()
	doc := gltf.NewDocument()

	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {0, 1}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})

	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:        "bark",
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{1, 0, 0, 1},
		},
	})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "trunk",
		Primitives: []*gltf.Primitive{{
			Attributes: gltf.Attribute{gltf.POSITION: pos, gltf.TEXCOORD_0: uv},
			Indices:    gltf.Index(idx),
			Material:   gltf.Index(0),
		}},
	})
	doc.Nodes = append(doc.Nodes,
		&gltf.Node{
			Name:        "GN_Instance_753",
			Mesh:        gltf.Index(0),
			Translation: [3]float32{2, 0, 0},
			Rotation:    [4]float32{0, 0, 0, 1},
			Scale:       [3]float32{1, 1, 1},
		},
		&gltf.Node{Name: "anchor"},
	)
	doc.Scenes[0].Nodes = []uint32{0, 1}

	var buf bytes.Buffer
	require.NoError(t, gltf.NewEncoder(&buf).Encode(doc))
	return buf.Bytes()
}

func TestModelLoaderDecodesGLB(t *testing.T) {
	var l ModelLoader
	payload, err := l.Load(context.Background(), encodeGLB(t), assets.Descriptor{
		Name: "TreeNaked",
		Type: assets.TypeGLTFModel,
	})
	require.NoError(t, err)

	model, ok := payload.(*scene.Model)
	require.True(t, ok)

	mesh := model.Scene.FindFirstMesh()
	require.NotNil(t, mesh)
	assert.Equal(t, "GN_Instance_753", mesh.Name)
	assert.Equal(t, 3, mesh.Geometry.VertexCount())
	assert.Equal(t, 1, mesh.Geometry.TriangleCount())
	assert.True(t, mesh.Geometry.HasUV())
	assert.InDelta(t, 2.0, mesh.Position.X(), 1e-6)
	assert.True(t, mesh.CastShadow)

	require.NotNil(t, mesh.Material)
	assert.True(t, mesh.Material.DoubleSided)
	assert.True(t, mesh.Material.HasColor)
	assert.Equal(t, uint32(0xff0000), mesh.Material.Color)
}

func TestModelLoaderDefaultsOmittedTransforms(t *testing.T) {
	var l ModelLoader
	payload, err := l.Load(context.Background(), encodeGLB(t), assets.Descriptor{
		Name: "TreeNaked",
		Type: assets.TypeGLTFModel,
	})
	require.NoError(t, err)

	model := payload.(*scene.Model)
	anchor := model.Scene.Find("anchor")
	require.NotNil(t, anchor)

	// A node with no authored TRS must come out at identity, not zero scale.
	assert.Equal(t, 1.0, anchor.Scale.X())
	assert.Equal(t, 1.0, anchor.Scale.Y())
	assert.Equal(t, 1.0, anchor.Scale.Z())
	assert.InDelta(t, 1.0, anchor.Rotation.W, 1e-9)
}

func TestModelLoaderRejectsGarbage(t *testing.T) {
	var l ModelLoader
	_, err := l.Load(context.Background(), []byte("not a gltf"), assets.Descriptor{Name: "broken"})
	assert.Error(t, err)
}
