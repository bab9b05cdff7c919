package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/constraints"
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// ComposeTRS builds a world matrix from a translation, an XYZ Euler rotation
// (radians) and a scale.
func ComposeTRS(position mgl64.Vec3, euler mgl64.Vec3, scale mgl64.Vec3) mgl64.Mat4 {
	t := mgl64.Translate3D(position.X(), position.Y(), position.Z())
	r := RotationXYZ(euler.X(), euler.Y(), euler.Z())
	s := mgl64.Scale3D(scale.X(), scale.Y(), scale.Z())
	return t.Mul4(r).Mul4(s)
}

// RotationXYZ returns the rotation matrix Rx·Ry·Rz.
func RotationXYZ(x, y, z float64) mgl64.Mat4 {
	rx := mgl64.HomogRotate3DX(x)
	ry := mgl64.HomogRotate3DY(y)
	rz := mgl64.HomogRotate3DZ(z)
	return rx.Mul4(ry).Mul4(rz)
}

// Decompose splits an affine transform into translation, rotation and scale.
// A negative determinant is folded into the X scale.
func Decompose(m mgl64.Mat4) (position mgl64.Vec3, rotation mgl64.Quat, scale mgl64.Vec3) {
	position = mgl64.Vec3{m.At(0, 3), m.At(1, 3), m.At(2, 3)}

	bx := mgl64.Vec3{m.At(0, 0), m.At(1, 0), m.At(2, 0)}
	by := mgl64.Vec3{m.At(0, 1), m.At(1, 1), m.At(2, 1)}
	bz := mgl64.Vec3{m.At(0, 2), m.At(1, 2), m.At(2, 2)}

	sx, sy, sz := bx.Len(), by.Len(), bz.Len()
	if m.Det() < 0 {
		sx = -sx
	}
	scale = mgl64.Vec3{sx, sy, sz}

	if sx == 0 || sy == 0 || sz == 0 {
		return position, mgl64.QuatIdent(), scale
	}

	rm := mgl64.Ident4()
	setColumn(&rm, 0, bx.Mul(1/sx))
	setColumn(&rm, 1, by.Mul(1/sy))
	setColumn(&rm, 2, bz.Mul(1/sz))
	rotation = mgl64.Mat4ToQuat(rm).Normalize()
	return position, rotation, scale
}

// EulerXYZ extracts XYZ Euler angles (radians) from a rotation, matching the
// Rx·Ry·Rz convention of RotationXYZ.
func EulerXYZ(q mgl64.Quat) (x, y, z float64) {
	m := q.Normalize().Mat4()

	m02 := clamp(m.At(0, 2), -1, 1)
	y = math.Asin(m02)
	if math.Abs(m02) < 0.9999999 {
		x = math.Atan2(-m.At(1, 2), m.At(2, 2))
		z = math.Atan2(-m.At(0, 1), m.At(0, 0))
	} else {
		// Gimbal lock: Y is ±90°, X and Z collapse into one rotation.
		x = math.Atan2(m.At(2, 1), m.At(1, 1))
		z = 0
	}
	return x, y, z
}

func setColumn(m *mgl64.Mat4, col int, v mgl64.Vec3) {
	m.Set(0, col, v.X())
	m.Set(1, col, v.Y())
	m.Set(2, col, v.Z())
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
