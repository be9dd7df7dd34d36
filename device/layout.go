// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import "github.com/gogpu/gputypes"

// VertexAttribute describes one field of a vertex.
type VertexAttribute struct {
	// Name is informational; it shows up in debug labels and capture dumps.
	Name string

	// Format is the attribute data format.
	Format gputypes.VertexFormat

	// Offset is the byte offset from the start of the vertex.
	Offset int

	// Location is the shader input location.
	Location uint32
}

// VertexLayout describes the memory layout of one vertex type.
//
// Layouts are declared statically next to the vertex type they describe,
// for example:
//
//	var VertexLayout = device.VertexLayout{
//	    Name:   "pos2-col-uv2",
//	    Stride: 20,
//	    Attributes: []device.VertexAttribute{
//	        {Name: "position", Format: gputypes.VertexFormatFloat32x2, Offset: 0, Location: 0},
//	        {Name: "color", Format: gputypes.VertexFormatUnorm8x4, Offset: 8, Location: 1},
//	        {Name: "uv", Format: gputypes.VertexFormatFloat32x2, Offset: 12, Location: 2},
//	    },
//	}
type VertexLayout struct {
	Name       string
	Stride     int
	Attributes []VertexAttribute
}

// GPU returns the gputypes descriptor for pipeline creation.
func (l VertexLayout) GPU() gputypes.VertexBufferLayout {
	attrs := make([]gputypes.VertexAttribute, len(l.Attributes))
	for i, a := range l.Attributes {
		attrs[i] = gputypes.VertexAttribute{
			Format:         a.Format,
			Offset:         uint64(a.Offset), //nolint:gosec // offsets are small and non-negative
			ShaderLocation: a.Location,
		}
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: uint64(l.Stride), //nolint:gosec // stride is small and non-negative
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}
}

// Validate reports whether every attribute fits inside the stride.
func (l VertexLayout) Validate() bool {
	if l.Stride <= 0 {
		return false
	}
	for _, a := range l.Attributes {
		if a.Offset < 0 || a.Offset+FormatSize(a.Format) > l.Stride {
			return false
		}
	}
	return true
}

// FormatSize returns the byte size of a vertex format, or 0 when the format
// is not one imdraw uses.
func FormatSize(f gputypes.VertexFormat) int {
	switch f {
	case gputypes.VertexFormatFloat32:
		return 4
	case gputypes.VertexFormatFloat32x2:
		return 8
	case gputypes.VertexFormatFloat32x3:
		return 12
	case gputypes.VertexFormatFloat32x4:
		return 16
	case gputypes.VertexFormatUnorm8x4:
		return 4
	default:
		return 0
	}
}
