package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstancedMeshMatrices(t *testing.T) {
	im := NewInstancedMesh("forest", &Geometry{}, NewMaterial("m"), 3)

	m := mgl64.Translate3D(1, 2, 3)
	require.NoError(t, im.SetMatrixAt(1, m))

	got, err := im.MatrixAt(1)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	ident, err := im.MatrixAt(0)
	require.NoError(t, err)
	assert.Equal(t, mgl64.Ident4(), ident)
}

func TestInstancedMeshIndexBounds(t *testing.T) {
	im := NewInstancedMesh("forest", &Geometry{}, NewMaterial("m"), 2)

	assert.Error(t, im.SetMatrixAt(-1, mgl64.Ident4()))
	assert.Error(t, im.SetMatrixAt(2, mgl64.Ident4()))
}

func TestInstancedMeshDirtyFlag(t *testing.T) {
	im := NewInstancedMesh("forest", &Geometry{}, NewMaterial("m"), 1)

	assert.False(t, im.ConsumeDirty())
	im.MarkDirty()
	assert.True(t, im.ConsumeDirty())
	assert.False(t, im.ConsumeDirty())
}

func TestMaterialSignatureKey(t *testing.T) {
	m := NewMaterial("bark")
	assert.Equal(t, "standard_nocolor", m.SignatureKey())

	m.Color = 0x00ff80
	m.HasColor = true
	assert.Equal(t, "standard_00ff80", m.SignatureKey())

	n := NewMaterial("other")
	n.Color = 0x00ff80
	n.HasColor = true
	assert.Equal(t, m.SignatureKey(), n.SignatureKey())
}
