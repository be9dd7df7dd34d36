// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package device defines the boundary between imdraw's recording layer and
// a graphics backend.
//
// The recording layer (packages imdraw and command) never talks to a GPU
// directly. It creates buffers through a [BufferFactory] and, at replay
// time, drives a [Device]. Textures, buffers and effects are opaque handles
// identified by a stable numeric ID.
//
// Pipeline state is expressed as small comparable value types
// ([BlendState], [DepthState], [RasterizerState], [SamplerState]) built on
// github.com/gogpu/gputypes, so a backend can key pipeline caches on them.
//
// Vertex formats are described by statically declared [VertexLayout]
// values; nothing is discovered by reflection.
//
// Implementations:
//   - github.com/gogpu/imdraw/device/soft: in-memory device with an
//     optional CPU rasterizer, used by tests and the demo command
//   - github.com/gogpu/imdraw/device/wgpu: gogpu/wgpu HAL backend
package device
