// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// spriteShaderSource is the built-in program used when no effect is set.
//
//go:embed shaders/sprite.wgsl
var spriteShaderSource string

// BuiltinEffect is the name of the built-in sprite program.
const BuiltinEffect = "imdraw.sprite"

// Effect is a WGSL program usable with DrawContext.SetEffect.
//
// The program must declare the same interface as the built-in one:
// vs_main and fs_main entry points, the imdraw vertex at locations 0-2, the
// projection uniform at @group(0) @binding(0), and the texture and sampler
// at @group(1) bindings 0 and 1. SpriteShaderSource returns it as a
// starting point.
type Effect struct {
	name   string
	source string
}

// NewEffect returns an effect named name. Devices compile it on first use
// and cache the module by name, so different sources need different names.
func NewEffect(name, wgsl string) *Effect {
	return &Effect{name: name, source: wgsl}
}

// Name implements device.Effect.
func (e *Effect) Name() string { return e.name }

// Source returns the WGSL source.
func (e *Effect) Source() string { return e.source }

// SpriteShaderSource returns the WGSL source of the built-in program.
func SpriteShaderSource() string {
	return spriteShaderSource
}

// compileWGSL compiles WGSL to SPIR-V words.
func compileWGSL(source string) ([]uint32, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	return spirvWords(spirv)
}

// spirvWords converts a little-endian SPIR-V byte stream to words.
func spirvWords(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("wgpu: SPIR-V length %d is not a multiple of 4", len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words, nil
}

// shaderModule returns the compiled module for the named program, compiling
// it on first use.
func (d *Device) shaderModule(name, source string) (hal.ShaderModule, error) {
	if m, ok := d.shaders[name]; ok {
		return m, nil
	}
	code, err := compileWGSL(source)
	if err != nil {
		return nil, fmt.Errorf("wgpu: effect %q: %w", name, err)
	}
	m, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  name,
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create shader module %q: %w", name, err)
	}
	d.shaders[name] = m
	d.log.Debug("wgpu: compiled effect", "effect", name, "words", len(code))
	return m, nil
}

// program resolves the bound effect to a name and source. Effects this
// device cannot compile fall back to the built-in program.
func (d *Device) program() (name, source string) {
	switch e := d.effect.(type) {
	case nil:
		return BuiltinEffect, spriteShaderSource
	case *Effect:
		return e.name, e.source
	default:
		if !d.warnedEffect[e.Name()] {
			d.warnedEffect[e.Name()] = true
			d.log.Warn("wgpu: effect has no WGSL source, using the built-in program", "effect", e.Name())
		}
		return BuiltinEffect, spriteShaderSource
	}
}
