package vecmath

import "gonum.org/v1/gonum/spatial/r3"

// Mat4 is a row-major 4x4 homogeneous transform, the shape of the
// --xForm CLI matrix. It plays the same role as the teacher's
// internal/d3.Transform but additionally exposes the inverse-transpose
// needed to carry normals through a non-uniform input transform.
type Mat4 [16]float64

// Identity4 returns the identity transform.
func Identity4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// TransformPoint applies the transform to a position, including translation.
func (m Mat4) TransformPoint(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z + m[3],
		Y: m[4]*v.X + m[5]*v.Y + m[6]*v.Z + m[7],
		Z: m[8]*v.X + m[9]*v.Y + m[10]*v.Z + m[11],
	}
}

// TransformDirection applies only the 3x3 linear part of the transform,
// ignoring translation.
func (m Mat4) TransformDirection(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[4]*v.X + m[5]*v.Y + m[6]*v.Z,
		Z: m[8]*v.X + m[9]*v.Y + m[10]*v.Z,
	}
}

// InverseTranspose3 returns the inverse transpose of the transform's
// upper-left 3x3 block, the matrix that must be applied to normals so
// that they remain perpendicular to the surface under a non-uniform
// --xForm scale (spec.md §4.4 pass 2).
func (m Mat4) InverseTranspose3() Mat4 {
	a00, a01, a02 := m[0], m[1], m[2]
	a10, a11, a12 := m[4], m[5], m[6]
	a20, a21, a22 := m[8], m[9], m[10]

	det := a00*(a11*a22-a12*a21) - a01*(a10*a22-a12*a20) + a02*(a10*a21-a11*a20)
	if det == 0 {
		return Identity4()
	}
	invDet := 1 / det

	// cij is the (i,j) cofactor over det; laid out row-major as-is it
	// is the inverse-transpose (its transpose would be the inverse).
	c00 := (a11*a22 - a12*a21) * invDet
	c01 := -(a10*a22 - a12*a20) * invDet
	c02 := (a10*a21 - a11*a20) * invDet
	c10 := -(a01*a22 - a02*a21) * invDet
	c11 := (a00*a22 - a02*a20) * invDet
	c12 := -(a00*a21 - a01*a20) * invDet
	c20 := (a01*a12 - a02*a11) * invDet
	c21 := -(a00*a12 - a02*a10) * invDet
	c22 := (a00*a11 - a01*a10) * invDet

	return Mat4{
		c00, c01, c02, 0,
		c10, c11, c12, 0,
		c20, c21, c22, 0,
		0, 0, 0, 1,
	}
}
