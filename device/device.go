// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

// Device is the graphics device a recorded command stream is replayed
// against.
//
// Every method corresponds to one record kind. Implementations apply state
// lazily: nothing is required to reach the GPU until DrawIndexedTriangles,
// which consumes whatever state, buffers and texture are bound at that point.
//
// Two implementations ship with imdraw:
//   - soft.Device keeps everything in memory and optionally rasterizes on the CPU
//   - wgpu.Device drives a gogpu/wgpu HAL render pass
type Device interface {
	// SetBlendState sets the color blending applied to subsequent draws.
	SetBlendState(BlendState)

	// SetDepthState sets depth testing for subsequent draws.
	SetDepthState(DepthState)

	// SetRasterizerState sets culling and winding for subsequent draws.
	SetRasterizerState(RasterizerState)

	// SetSamplerState sets texture filtering for subsequent draws.
	SetSamplerState(SamplerState)

	// SetEffect selects the shader program. A nil effect selects the
	// device's built-in sprite program.
	SetEffect(Effect)

	// SetProjection sets the clip-space projection matrix.
	SetProjection(Matrix4)

	// BindTexture binds the texture sampled by subsequent draws.
	BindTexture(Texture)

	// BindVertexBuffer binds the vertex source of subsequent draws.
	BindVertexBuffer(VertexBuffer)

	// BindIndexBuffer binds the 16-bit index source of subsequent draws.
	BindIndexBuffer(IndexBuffer)

	// DrawIndexedTriangles draws primitiveCount triangles reading
	// 3*primitiveCount indices starting at startIndex.
	DrawIndexedTriangles(startIndex, primitiveCount int)
}

// Texture is a sampled image owned by the host application.
type Texture interface {
	// ID returns a stable, non-zero identifier.
	// Two textures with the same ID are treated as the same texture.
	ID() uint32

	// Width returns the texture width in texels.
	Width() int

	// Height returns the texture height in texels.
	Height() int
}

// VertexBuffer is a GPU buffer of fixed-stride vertices.
type VertexBuffer interface {
	// ID returns a stable identifier, unique among buffers of one factory.
	ID() uint32

	// Len returns the capacity in vertices.
	Len() int

	// Layout returns the layout the buffer was created with.
	Layout() VertexLayout

	// SetData uploads length vertices, encoded in data, starting at vertex
	// start. len(data) must equal length*Layout().Stride.
	SetData(data []byte, start, length int)
}

// IndexBuffer is a GPU buffer of 16-bit indices.
type IndexBuffer interface {
	// ID returns a stable identifier, unique among buffers of one factory.
	ID() uint32

	// Len returns the capacity in indices.
	Len() int

	// SetData uploads data[:length] starting at index start.
	SetData(data []uint16, start, length int)
}

// BufferFactory creates GPU buffers. Creation may fail when the device
// is lost or out of memory. Those errors propagate to the caller unchanged.
type BufferFactory interface {
	// CreateVertexBuffer creates a buffer holding count vertices of layout.
	// Dynamic buffers are rewritten every frame.
	CreateVertexBuffer(layout VertexLayout, count int, dynamic bool) (VertexBuffer, error)

	// CreateIndex16Buffer creates a buffer holding count 16-bit indices.
	CreateIndex16Buffer(count int, dynamic bool) (IndexBuffer, error)
}

// Effect identifies a shader program.
type Effect interface {
	// Name returns a stable name. Devices cache compiled programs by name.
	Name() string
}

// Stats counts the device-side work done by a replay.
// Devices that track uploads embed it for tests and diagnostics.
type Stats struct {
	DrawCalls       int
	Triangles       int
	VertexUploads   int
	VerticesWritten int
	IndexUploads    int
	IndicesWritten  int
}
