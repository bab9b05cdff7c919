package scene

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// InstancedMesh renders one geometry many times, each instance with its own
// world matrix. Matrices are staged on the CPU side and uploaded in a single
// batch once MarkDirty is called.
type InstancedMesh struct {
	Name     string
	Geometry *Geometry
	Material *Material

	Count    int
	matrices []mgl64.Mat4

	CastShadow    bool
	ReceiveShadow bool

	dirty bool
}

// NewInstancedMesh allocates matrix storage for count instances, all set to
// identity.
func NewInstancedMesh(name string, geo *Geometry, mat *Material, count int) *InstancedMesh {
	matrices := make([]mgl64.Mat4, count)
	for i := range matrices {
		matrices[i] = mgl64.Ident4()
	}
	return &InstancedMesh{
		Name:     name,
		Geometry: geo,
		Material: mat,
		Count:    count,
		matrices: matrices,
	}
}

// SetMatrixAt stages the world matrix of one instance. The upload is deferred
// until MarkDirty so filling all slots costs a single buffer update.
func (im *InstancedMesh) SetMatrixAt(index int, m mgl64.Mat4) error {
	if index < 0 || index >= im.Count {
		return errors.Errorf("instance index %d out of range [0,%d)", index, im.Count)
	}
	im.matrices[index] = m
	return nil
}

func (im *InstancedMesh) MatrixAt(index int) (mgl64.Mat4, error) {
	if index < 0 || index >= im.Count {
		return mgl64.Mat4{}, errors.Errorf("instance index %d out of range [0,%d)", index, im.Count)
	}
	return im.matrices[index], nil
}

// MarkDirty flags the staged matrices for upload.
func (im *InstancedMesh) MarkDirty() {
	im.dirty = true
}

// ConsumeDirty reports whether an upload is pending and clears the flag.
func (im *InstancedMesh) ConsumeDirty() bool {
	d := im.dirty
	im.dirty = false
	return d
}
