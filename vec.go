package imdraw

import "math"

// Vec2 is a 2D point or displacement in pixels.
// Components are float32 because they are written straight into vertices.
type Vec2 struct {
	X, Y float32
}

// V2 is a convenience function to create a Vec2.
func V2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

// Add returns the sum of two vectors.
func (v Vec2) Add(w Vec2) Vec2 {
	return Vec2{X: v.X + w.X, Y: v.Y + w.Y}
}

// Sub returns the difference of two vectors.
func (v Vec2) Sub(w Vec2) Vec2 {
	return Vec2{X: v.X - w.X, Y: v.Y - w.Y}
}

// Mul returns the vector scaled by a scalar.
func (v Vec2) Mul(s float32) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// MulVec returns the component-wise product.
func (v Vec2) MulVec(w Vec2) Vec2 {
	return Vec2{X: v.X * w.X, Y: v.Y * w.Y}
}

// Dot returns the dot product of two vectors.
func (v Vec2) Dot(w Vec2) float32 {
	return v.X*w.X + v.Y*w.Y
}

// LengthSq returns the squared length of the vector.
func (v Vec2) LengthSq() float32 {
	return v.X*v.X + v.Y*v.Y
}

// Length returns the length of the vector.
func (v Vec2) Length() float32 {
	return float32(math.Sqrt(float64(v.LengthSq())))
}

// normalizeOr returns v scaled to unit length, or v unchanged when its
// length is zero. Degenerate segments then contribute a zero normal instead
// of NaNs.
func (v Vec2) normalizeOr() Vec2 {
	d2 := v.LengthSq()
	if d2 <= 0 {
		return v
	}
	inv := 1 / float32(math.Sqrt(float64(d2)))
	return Vec2{X: v.X * inv, Y: v.Y * inv}
}

// Rect is an axis-aligned rectangle given by its min and max corners.
// It is used both for pixel areas and for normalized UV regions.
type Rect struct {
	Min, Max Vec2
}

// R is a convenience function to create a Rect from corner coordinates.
func R(x0, y0, x1, y1 float32) Rect {
	return Rect{Min: Vec2{x0, y0}, Max: Vec2{x1, y1}}
}

// FullUV covers a whole texture.
var FullUV = Rect{Min: Vec2{0, 0}, Max: Vec2{1, 1}}

// Size returns the width and height of r.
func (r Rect) Size() Vec2 {
	return r.Max.Sub(r.Min)
}

// Area returns the signed area of r.
func (r Rect) Area() float32 {
	s := r.Size()
	return s.X * s.Y
}
