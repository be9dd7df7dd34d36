// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/imdraw/device"
)

// pipelineKey identifies a render pipeline. Vertex layouts are keyed by name
// and stride; layouts sharing a name must share attributes.
type pipelineKey struct {
	effect string
	layout string
	stride int
	blend  device.BlendState
	depth  device.DepthState
	raster device.RasterizerState
	format gputypes.TextureFormat
}

// textureGroupKey identifies a texture and sampler bind group.
type textureGroupKey struct {
	texture uint32
	sampler device.SamplerState
}

// pipeline returns the render pipeline for the current state, creating it
// on a cache miss.
func (d *Device) pipeline() (hal.RenderPipeline, error) {
	name, source := d.program()
	key := pipelineKey{
		effect: name,
		layout: d.vb.layout.Name,
		stride: d.vb.layout.Stride,
		blend:  d.blend,
		depth:  d.depth,
		raster: d.raster,
		format: d.cfg.Format,
	}
	if p, ok := d.pipelines.Get(key); ok {
		return p, nil
	}
	module, err := d.shaderModule(name, source)
	if err != nil {
		return nil, err
	}
	p, err := d.device.CreateRenderPipeline(d.pipelineDescriptor(key, module))
	if err != nil {
		return nil, fmt.Errorf("wgpu: create pipeline for effect %q: %w", name, err)
	}
	d.pipelines.Add(key, p)
	d.log.Debug("wgpu: pipeline created", "effect", name, "layout", key.layout, "cached", d.pipelines.Len())
	return p, nil
}

func (d *Device) pipelineDescriptor(key pipelineKey, module hal.ShaderModule) *hal.RenderPipelineDescriptor {
	desc := &hal.RenderPipelineDescriptor{
		Label:  "imdraw_" + key.effect,
		Layout: d.pipelineLayout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    []gputypes.VertexBufferLayout{d.vb.layout.GPU()},
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    key.format,
				Blend:     key.blend.GPUBlend(),
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: key.raster.FrontFace,
			CullMode:  key.raster.CullMode,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
	// A pass with a depth attachment needs every pipeline to declare it,
	// so disabled depth becomes an always-pass test without writes.
	if d.cfg.DepthFormat != gputypes.TextureFormatUndefined {
		keep := hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		}
		ds := &hal.DepthStencilState{
			Format:       d.cfg.DepthFormat,
			DepthCompare: gputypes.CompareFunctionAlways,
			StencilFront: keep,
			StencilBack:  keep,
		}
		if key.depth.Enabled {
			ds.DepthWriteEnabled = key.depth.Write
			ds.DepthCompare = key.depth.Compare
		}
		desc.DepthStencil = ds
	}
	return desc
}

// retirePipeline is the cache eviction callback. A pipeline may still be
// referenced by the pass being encoded, so it is destroyed at the next pass.
func (d *Device) retirePipeline(key pipelineKey, p hal.RenderPipeline) {
	if !d.closed {
		d.log.Warn("wgpu: pipeline cache full, evicting", "effect", key.effect, "size", d.cfg.PipelineCacheSize)
	}
	d.retired = append(d.retired, p)
}

func (d *Device) destroyRetired() {
	for _, p := range d.retired {
		d.device.DestroyRenderPipeline(p)
	}
	d.retired = d.retired[:0]
}

// textureGroup returns the bind group for the bound texture and sampler.
func (d *Device) textureGroup() (hal.BindGroup, error) {
	if d.texture == nil {
		return nil, ErrNoTexture
	}
	tex, ok := d.texture.(*Texture)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrForeignTexture, d.texture)
	}
	if tex.view == nil {
		return nil, fmt.Errorf("wgpu: texture %d was destroyed", tex.id)
	}
	key := textureGroupKey{texture: tex.id, sampler: d.sampler}
	if bg, ok := d.textureGroups[key]; ok {
		return bg, nil
	}
	s, err := d.samplerFor(d.sampler)
	if err != nil {
		return nil, err
	}
	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "imdraw_texture",
		Layout:  d.textureLayout,
		Entries: textureEntries(tex.view, s),
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture bind group: %w", err)
	}
	d.textureGroups[key] = bg
	return bg, nil
}

func textureEntries(view hal.TextureView, s hal.Sampler) []gputypes.BindGroupEntry {
	return []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.TextureViewBinding{
			TextureView: view.NativeHandle(),
		}},
		{Binding: 1, Resource: gputypes.SamplerBinding{
			Sampler: s.NativeHandle(),
		}},
	}
}

func (d *Device) samplerFor(st device.SamplerState) (hal.Sampler, error) {
	if s, ok := d.samplers[st]; ok {
		return s, nil
	}
	s, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "imdraw_sampler",
		AddressModeU: st.Address,
		AddressModeV: st.Address,
		AddressModeW: st.Address,
		MagFilter:    st.Filter,
		MinFilter:    st.Filter,
		MipmapFilter: st.Filter,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create sampler: %w", err)
	}
	d.samplers[st] = s
	return s, nil
}

// dropTextureGroups destroys the bind groups of a texture being destroyed.
func (d *Device) dropTextureGroups(id uint32) {
	for k, bg := range d.textureGroups {
		if k.texture != id {
			continue
		}
		if d.boundTexture == bg {
			d.boundTexture = nil
		}
		d.device.DestroyBindGroup(bg)
		delete(d.textureGroups, k)
	}
}
