// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import "github.com/gogpu/gputypes"

// BlendState describes color blending.
// The zero value disables blending (source replaces destination).
//
// State values are comparable so command streams can deduplicate them and
// GPU devices can key pipeline caches on them.
type BlendState struct {
	// Enabled turns blending on. When false, Color and Alpha are ignored.
	Enabled bool

	// Color is the color channel blend equation.
	Color gputypes.BlendComponent

	// Alpha is the alpha channel blend equation.
	Alpha gputypes.BlendComponent
}

// DepthState describes depth testing.
// The zero value disables depth testing and writing.
type DepthState struct {
	Enabled bool
	Write   bool
	Compare gputypes.CompareFunction
}

// RasterizerState describes primitive culling.
type RasterizerState struct {
	CullMode  gputypes.CullMode
	FrontFace gputypes.FrontFace
}

// SamplerState describes texture sampling.
type SamplerState struct {
	Filter  gputypes.FilterMode
	Address gputypes.AddressMode
}

// Predefined states.
var (
	// BlendOpaque writes source colors unchanged.
	BlendOpaque = BlendState{}

	// BlendAlpha is straight (non-premultiplied) alpha blending.
	BlendAlpha = BlendState{
		Enabled: true,
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
	}

	// BlendPremultiplied is blending for premultiplied-alpha sources.
	BlendPremultiplied = BlendState{
		Enabled: true,
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
	}

	// BlendAdditive adds source color weighted by source alpha.
	BlendAdditive = BlendState{
		Enabled: true,
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOne,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOne,
			Operation: gputypes.BlendOperationAdd,
		},
	}

	// DepthNone disables depth testing.
	DepthNone = DepthState{Compare: gputypes.CompareFunctionAlways}

	// DepthDefault tests and writes with a less-equal comparison.
	DepthDefault = DepthState{Enabled: true, Write: true, Compare: gputypes.CompareFunctionLessEqual}

	// CullNone draws both faces. 2D geometry is emitted with mixed winding,
	// so this is the default rasterizer state.
	CullNone = RasterizerState{CullMode: gputypes.CullModeNone, FrontFace: gputypes.FrontFaceCCW}

	// SamplerLinearClamp filters bilinearly and clamps to the edge.
	SamplerLinearClamp = SamplerState{Filter: gputypes.FilterModeLinear, Address: gputypes.AddressModeClampToEdge}

	// SamplerPointClamp samples the nearest texel and clamps to the edge.
	// Pixel-art sprites use it.
	SamplerPointClamp = SamplerState{Filter: gputypes.FilterModeNearest, Address: gputypes.AddressModeClampToEdge}
)

// GPUBlend converts s to the gputypes form used in color target states.
// It returns nil when blending is disabled.
func (s BlendState) GPUBlend() *gputypes.BlendState {
	if !s.Enabled {
		return nil
	}
	return &gputypes.BlendState{Color: s.Color, Alpha: s.Alpha}
}
