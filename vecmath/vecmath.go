// Package vecmath supplies the small set of r3.Vec/r3.Box helpers the
// octree, point pipeline and iso-extractor all share. It plays the role
// that internal/d3 plays in the teacher (soypat/sdf): a thin,
// dependency-free layer over gonum's spatial vectors.
package vecmath

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// MinElem returns a vector with the minimum components of two vectors.
func MinElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

// MaxElem returns a vector with the maximum components of two vectors.
func MaxElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}

// MaxAxis returns the largest component of the vector.
func MaxAxis(a r3.Vec) float64 {
	return math.Max(a.Z, math.Max(a.X, a.Y))
}

// Elem returns a vector with all components set to v.
func Elem(v float64) r3.Vec {
	return r3.Vec{X: v, Y: v, Z: v}
}

// Clamp clamps x between a and b, assuming a <= b.
func Clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}

// Mix performs a linear interpolation from x to y at parameter a in [0,1].
func Mix(x, y, a float64) float64 {
	return x + a*(y-x)
}

// Box is an axis-aligned 3D bounding box, the same shape as gonum's
// r3.Box but with the extra operations the octree bounds pass needs.
type Box struct {
	Min, Max r3.Vec
}

// NewCenteredBox builds a box from a center and a full-width size.
func NewCenteredBox(center, size r3.Vec) Box {
	half := r3.Scale(0.5, size)
	return Box{Min: r3.Sub(center, half), Max: r3.Add(center, half)}
}

// Size returns the box's extent along each axis.
func (b Box) Size() r3.Vec { return r3.Sub(b.Max, b.Min) }

// Center returns the box's midpoint.
func (b Box) Center() r3.Vec { return r3.Add(b.Min, r3.Scale(0.5, b.Size())) }

// ScaleAboutCenter returns a new box scaled by k about its own center,
// used to keep the octree's bounding cube off the input surface.
func (b Box) ScaleAboutCenter(k float64) Box {
	return NewCenteredBox(b.Center(), r3.Scale(k, b.Size()))
}

// Include grows the box, if necessary, to contain v.
func (b Box) Include(v r3.Vec) Box {
	return Box{Min: MinElem(b.Min, v), Max: MaxElem(b.Max, v)}
}

// Contains reports whether v lies within the box, bounds inclusive.
func (b Box) Contains(v r3.Vec) bool {
	return b.Min.X <= v.X && b.Min.Y <= v.Y && b.Min.Z <= v.Z &&
		v.X <= b.Max.X && v.Y <= b.Max.Y && v.Z <= b.Max.Z
}
