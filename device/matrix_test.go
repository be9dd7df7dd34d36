// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"math"
	"testing"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestOrthoScreenCorners(t *testing.T) {
	m := Ortho(0, 800, 600, 0, -1, 1)

	tests := []struct {
		name   string
		x, y   float32
		nx, ny float32
	}{
		{"top-left", 0, 0, -1, 1},
		{"top-right", 800, 0, 1, 1},
		{"bottom-left", 0, 600, -1, -1},
		{"bottom-right", 800, 600, 1, -1},
		{"center", 400, 300, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nx, ny := m.Project(tt.x, tt.y)
			if !approx(nx, tt.nx) || !approx(ny, tt.ny) {
				t.Errorf("Project(%v, %v) = (%v, %v), want (%v, %v)", tt.x, tt.y, nx, ny, tt.nx, tt.ny)
			}
		})
	}
}

func TestMatrixMulIdentity(t *testing.T) {
	m := Ortho(0, 320, 240, 0, -1, 1)
	if got := m.Mul(Identity4()); got != m {
		t.Errorf("m*I = %v, want %v", got, m)
	}
	if got := Identity4().Mul(m); got != m {
		t.Errorf("I*m = %v, want %v", got, m)
	}
}

func TestMatrixMulOrder(t *testing.T) {
	// Scale first, then translate.
	m := Translate4(10, 20, 0).Mul(Scale4(2, 3, 1))
	x, y := m.Project(1, 1)
	if !approx(x, 12) || !approx(y, 23) {
		t.Errorf("Project(1, 1) = (%v, %v), want (12, 23)", x, y)
	}
}
