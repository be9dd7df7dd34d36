// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu replays imdraw command streams on the GPU through the
// gogpu/wgpu HAL.
//
// A Device is both the replay target and the buffer factory of a
// DrawContext. It compiles WGSL effects to SPIR-V with naga, keeps render
// pipelines in an LRU cache keyed by effect, vertex layout and render
// states, and caches one texture bind group per texture and sampler.
//
// Inside a gogpu application the device shares the window's GPU device:
//
//	dev, err := wgpu.NewFromProvider(app.DeviceProvider(), wgpu.Config{})
//	white, _ := dev.WhiteTexture()
//	dc, _ := imdraw.NewDrawContext(dev, imdraw.WithWhiteTexture(white, imdraw.Vec2{}))
//	// each frame:
//	err = dev.Frame(wgpu.FrameTarget{Color: view, Clear: &gputypes.Color{A: 1}}, func() error {
//		_, err := dc.Render(dev)
//		return err
//	})
//
// Hosts that own their render pass call BeginPass and EndPass around
// DrawContext.Render instead of Frame.
//
// The projection matrix lives in a ring of uniform slots, one per
// projection change in a pass. Config.MaxProjections bounds the ring.
package wgpu
