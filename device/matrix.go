// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

// Matrix4 is a 4x4 float32 matrix in column-major order, the layout WGSL
// expects for mat4x4<f32> uniforms:
//
//	| M[0]  M[4]  M[8]   M[12] |
//	| M[1]  M[5]  M[9]   M[13] |
//	| M[2]  M[6]  M[10]  M[14] |
//	| M[3]  M[7]  M[11]  M[15] |
type Matrix4 [16]float32

// Identity4 returns the identity matrix.
func Identity4() Matrix4 {
	return Matrix4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Ortho returns an orthographic projection mapping the box
// [left,right]x[bottom,top]x[near,far] to clip space with z in [0,1].
//
// A typical 2D screen projection with the origin at the top-left is
// Ortho(0, width, height, 0, -1, 1).
func Ortho(left, right, bottom, top, near, far float32) Matrix4 {
	rl := right - left
	tb := top - bottom
	fn := far - near
	return Matrix4{
		2 / rl, 0, 0, 0,
		0, 2 / tb, 0, 0,
		0, 0, -1 / fn, 0,
		-(right + left) / rl, -(top + bottom) / tb, -near / fn, 1,
	}
}

// Translate4 returns a translation matrix.
func Translate4(x, y, z float32) Matrix4 {
	m := Identity4()
	m[12], m[13], m[14] = x, y, z
	return m
}

// Scale4 returns a scaling matrix.
func Scale4(x, y, z float32) Matrix4 {
	m := Identity4()
	m[0], m[5], m[10] = x, y, z
	return m
}

// Mul returns m*n. Applied to a point, n transforms first.
func (m Matrix4) Mul(n Matrix4) Matrix4 {
	var r Matrix4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var s float32
			for k := 0; k < 4; k++ {
				s += m[k*4+row] * n[col*4+k]
			}
			r[col*4+row] = s
		}
	}
	return r
}

// Project transforms the point (x, y, 0, 1) and returns normalized device
// coordinates after the perspective divide.
func (m Matrix4) Project(x, y float32) (nx, ny float32) {
	cx := m[0]*x + m[4]*y + m[12]
	cy := m[1]*x + m[5]*y + m[13]
	w := m[3]*x + m[7]*y + m[15]
	if w == 0 {
		return cx, cy
	}
	return cx / w, cy / w
}
