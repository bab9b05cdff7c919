package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

const tol = 1e-9

func assertVec3Near(t *testing.T, want, got mgl64.Vec3) {
	t.Helper()
	for a := 0; a < 3; a++ {
		assert.InDelta(t, want[a], got[a], tol)
	}
}

func TestComposeDecomposeRoundTrip(t *testing.T) {
	pos := mgl64.Vec3{1.5, -2, 4}
	euler := mgl64.Vec3{0.3, -0.7, 1.2}
	scale := mgl64.Vec3{2, 0.5, 3}

	m := ComposeTRS(pos, euler, scale)
	gotPos, gotRot, gotScale := Decompose(m)

	assertVec3Near(t, pos, gotPos)
	assertVec3Near(t, scale, gotScale)

	rx, ry, rz := EulerXYZ(gotRot)
	assert.InDelta(t, euler.X(), rx, 1e-6)
	assert.InDelta(t, euler.Y(), ry, 1e-6)
	assert.InDelta(t, euler.Z(), rz, 1e-6)
}

func TestDecomposeIdentity(t *testing.T) {
	pos, rot, scale := Decompose(mgl64.Ident4())
	assertVec3Near(t, mgl64.Vec3{}, pos)
	assertVec3Near(t, mgl64.Vec3{1, 1, 1}, scale)

	rx, ry, rz := EulerXYZ(rot)
	assert.InDelta(t, 0.0, rx, tol)
	assert.InDelta(t, 0.0, ry, tol)
	assert.InDelta(t, 0.0, rz, tol)
}

func TestDecomposeNegativeDeterminant(t *testing.T) {
	m := mgl64.Scale3D(-2, 3, 4)
	_, _, scale := Decompose(m)

	// A mirrored transform folds the sign into X.
	assert.InDelta(t, -2.0, scale.X(), tol)
	assert.InDelta(t, 3.0, scale.Y(), tol)
	assert.InDelta(t, 4.0, scale.Z(), tol)
}

func TestEulerXYZGimbalLock(t *testing.T) {
	q := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})
	rx, ry, rz := EulerXYZ(q)

	assert.InDelta(t, math.Pi/2, ry, 1e-6)
	assert.InDelta(t, 0.0, rz, tol)

	// Recomposing must land on the same rotation.
	back := RotationXYZ(rx, ry, rz)
	want := q.Mat4()
	for i := 0; i < 16; i++ {
		assert.InDelta(t, want[i], back[i], 1e-6)
	}
}
