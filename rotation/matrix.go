// Package rotation implements a small fixed-size 3x3 matrix type and the
// six named axis-rotation-order compositions used to carry a sensor-frame
// look vector into ECEF.
package rotation

import "math"

// Matrix3 is a row-major 3x3 matrix.
type Matrix3 [3][3]float64

// Vector3 is a 3-component column vector.
type Vector3 struct {
	X, Y, Z float64
}

// Mul returns m * v.
func (m Matrix3) Mul(v Vector3) Vector3 {
	return Vector3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// MatMul returns a * b.
func MatMul(a, b Matrix3) Matrix3 {
	var r Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += a[i][k] * b[k][j]
			}
			r[i][j] = s
		}
	}
	return r
}

const deg2rad = math.Pi / 180.0

// rotX, rotY, rotZ are the elementary right-handed (anticlockwise)
// rotation matrices: a positive rx rotates Y towards Z, a positive ry
// rotates Z towards X, a positive rz rotates X towards Y.
func rotX(rx float64) Matrix3 {
	c, s := math.Cos(rx*deg2rad), math.Sin(rx*deg2rad)
	return Matrix3{{1, 0, 0}, {0, c, -s}, {0, s, c}}
}

func rotY(ry float64) Matrix3 {
	c, s := math.Cos(ry*deg2rad), math.Sin(ry*deg2rad)
	return Matrix3{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}
}

func rotZ(rz float64) Matrix3 {
	c, s := math.Cos(rz*deg2rad), math.Sin(rz*deg2rad)
	return Matrix3{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
}

// Order names one of the six permutations of axis-rotation composition
// order. Only RzRxRy and RxRzRy are exercised by the geocorrection
// pipeline, but all six are tabulated so any composition can be
// requested by name.
type Order uint8

const (
	RxRyRz Order = iota
	RxRzRy
	RyRxRz
	RyRzRx
	RzRxRy
	RzRyRx
)

// Compose builds the 3x3 matrix for (rx, ry, rz) degrees in the named
// order. Each order applies the elementary matrices right-to-left, e.g.
// RzRxRy means the composed matrix is (Rz*Rx)*Ry, applied to a vector as
// ((Rz*Rx)*Ry) * v.
func Compose(rx, ry, rz float64, order Order) Matrix3 {
	x, y, z := rotX(rx), rotY(ry), rotZ(rz)
	switch order {
	case RxRyRz:
		return MatMul(MatMul(x, y), z)
	case RxRzRy:
		return MatMul(MatMul(x, z), y)
	case RyRxRz:
		return MatMul(MatMul(y, x), z)
	case RyRzRx:
		return MatMul(MatMul(y, z), x)
	case RzRxRy:
		return MatMul(MatMul(z, x), y)
	case RzRyRx:
		return MatMul(MatMul(z, y), x)
	default:
		return Matrix3{}
	}
}

// Apply rotates v by (rx, ry, rz) degrees composed in the given order.
func Apply(rx, ry, rz float64, order Order, v Vector3) Vector3 {
	return Compose(rx, ry, rz, order).Mul(v)
}

// Inverse returns the inverse rotation: the transpose, since rotation
// matrices are orthonormal. Composing the inverse angles in reverse
// order and applying Inverse returns the original vector to within
// floating point precision.
func (m Matrix3) Inverse() Matrix3 {
	var t Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[j][i] = m[i][j]
		}
	}
	return t
}
