// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package capture saves recorded imdraw frames for offline inspection.
//
// A capture holds the command arena of one frame together with everything
// its records reference: the state tables, plus the identity and size of
// each texture and buffer. Resource contents are not captured.
//
// The file format is the magic "IMDC", a little-endian uint16 version and a
// zstd frame holding the msgpack encoding of Frame.
//
//	f, err := capture.Record(dc.Stream())
//	...
//	err = capture.Write(w, f)
//
// Captures are read back with Read and inspected with Frame.Stats and
// Frame.Dump.
package capture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/gogpu/gputypes"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/gogpu/imdraw/command"
	"github.com/gogpu/imdraw/device"
)

// Version is the capture format version written by Write.
const Version uint16 = 1

var magic = [4]byte{'I', 'M', 'D', 'C'}

var (
	// ErrBadMagic is returned by Read for input that is not a capture.
	ErrBadMagic = errors.New("capture: not an imdraw capture")

	// ErrVersion is returned by Read for captures of an unsupported version.
	ErrVersion = errors.New("capture: unsupported version")
)

// BlendComponent is the captured form of gputypes.BlendComponent.
type BlendComponent struct {
	Src uint32 `msgpack:"src"`
	Dst uint32 `msgpack:"dst"`
	Op  uint32 `msgpack:"op"`
}

// BlendState is the captured form of device.BlendState.
type BlendState struct {
	Enabled bool           `msgpack:"enabled"`
	Color   BlendComponent `msgpack:"color"`
	Alpha   BlendComponent `msgpack:"alpha"`
}

// DepthState is the captured form of device.DepthState.
type DepthState struct {
	Enabled bool   `msgpack:"enabled"`
	Write   bool   `msgpack:"write"`
	Compare uint32 `msgpack:"compare"`
}

// RasterizerState is the captured form of device.RasterizerState.
type RasterizerState struct {
	CullMode  uint32 `msgpack:"cull"`
	FrontFace uint32 `msgpack:"front"`
}

// SamplerState is the captured form of device.SamplerState.
type SamplerState struct {
	Filter  uint32 `msgpack:"filter"`
	Address uint32 `msgpack:"address"`
}

// TextureInfo identifies a captured texture.
type TextureInfo struct {
	ID     uint32 `msgpack:"id"`
	Width  int    `msgpack:"w"`
	Height int    `msgpack:"h"`
}

// BufferInfo identifies a captured vertex or index buffer.
type BufferInfo struct {
	ID  uint32 `msgpack:"id"`
	Len int    `msgpack:"len"`
}

// Frame is one captured frame. Table entries are addressed by the indices
// stored in the records of Stream.
type Frame struct {
	Version       uint16            `msgpack:"version"`
	Stream        []byte            `msgpack:"stream"`
	Blend         []BlendState      `msgpack:"blend"`
	Depth         []DepthState      `msgpack:"depth"`
	Rasterizer    []RasterizerState `msgpack:"rasterizer"`
	Sampler       []SamplerState    `msgpack:"sampler"`
	Textures      []TextureInfo     `msgpack:"textures"`
	Effects       []string          `msgpack:"effects"`
	VertexBuffers []BufferInfo      `msgpack:"vertex_buffers"`
	IndexBuffers  []BufferInfo      `msgpack:"index_buffers"`
	Stats         command.Stats     `msgpack:"stats"`
}

// Record captures the current contents of s. The frame owns copies of
// everything it holds, so s can be reset afterwards.
func Record(s *command.Stream) (*Frame, error) {
	st, err := command.Count(s.Bytes())
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	f := &Frame{
		Version: Version,
		Stream:  bytes.Clone(s.Bytes()),
		Stats:   st,
	}
	for _, b := range s.BlendStates() {
		f.Blend = append(f.Blend, BlendState{
			Enabled: b.Enabled,
			Color:   blendComponent(b.Color),
			Alpha:   blendComponent(b.Alpha),
		})
	}
	for _, d := range s.DepthStates() {
		f.Depth = append(f.Depth, DepthState{Enabled: d.Enabled, Write: d.Write, Compare: uint32(d.Compare)})
	}
	for _, r := range s.RasterizerStates() {
		f.Rasterizer = append(f.Rasterizer, RasterizerState{CullMode: uint32(r.CullMode), FrontFace: uint32(r.FrontFace)})
	}
	for _, sm := range s.SamplerStates() {
		f.Sampler = append(f.Sampler, SamplerState{Filter: uint32(sm.Filter), Address: uint32(sm.Address)})
	}
	for _, e := range s.Effects() {
		name := ""
		if e != nil {
			name = e.Name()
		}
		f.Effects = append(f.Effects, name)
	}
	for _, t := range s.Textures() {
		f.Textures = append(f.Textures, TextureInfo{ID: t.ID(), Width: t.Width(), Height: t.Height()})
	}
	for _, b := range s.VertexBuffers() {
		f.VertexBuffers = append(f.VertexBuffers, BufferInfo{ID: b.ID(), Len: b.Len()})
	}
	for _, b := range s.IndexBuffers() {
		f.IndexBuffers = append(f.IndexBuffers, BufferInfo{ID: b.ID(), Len: b.Len()})
	}
	return f, nil
}

func blendComponent(c gputypes.BlendComponent) BlendComponent {
	return BlendComponent{Src: uint32(c.SrcFactor), Dst: uint32(c.DstFactor), Op: uint32(c.Operation)}
}

func (c BlendComponent) device() gputypes.BlendComponent {
	return gputypes.BlendComponent{
		SrcFactor: gputypes.BlendFactor(c.Src),
		DstFactor: gputypes.BlendFactor(c.Dst),
		Operation: gputypes.BlendOperation(c.Op),
	}
}

// Device converts b back to the device form.
func (b BlendState) Device() device.BlendState {
	return device.BlendState{Enabled: b.Enabled, Color: b.Color.device(), Alpha: b.Alpha.device()}
}

// Device converts d back to the device form.
func (d DepthState) Device() device.DepthState {
	return device.DepthState{Enabled: d.Enabled, Write: d.Write, Compare: gputypes.CompareFunction(d.Compare)}
}

// Device converts r back to the device form.
func (r RasterizerState) Device() device.RasterizerState {
	return device.RasterizerState{CullMode: gputypes.CullMode(r.CullMode), FrontFace: gputypes.FrontFace(r.FrontFace)}
}

// Device converts s back to the device form.
func (s SamplerState) Device() device.SamplerState {
	return device.SamplerState{Filter: gputypes.FilterMode(s.Filter), Address: gputypes.AddressMode(s.Address)}
}

// Write writes f to w in the capture format.
func Write(w io.Writer, f *Frame) error {
	var hdr [6]byte
	copy(hdr[:4], magic[:])
	binary.LittleEndian.PutUint16(hdr[4:], Version)
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("capture: write header: %w", err)
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("capture: create zstd writer: %w", err)
	}
	defer zw.Close()

	out := *f
	out.Version = Version
	if err := msgpack.NewEncoder(zw).Encode(&out); err != nil {
		return fmt.Errorf("capture: encode frame: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("capture: close zstd writer: %w", err)
	}
	return nil
}

// Read reads a capture written by Write.
func Read(r io.Reader) (*Frame, error) {
	var hdr [6]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrBadMagic
		}
		return nil, fmt.Errorf("capture: read header: %w", err)
	}
	if !bytes.Equal(hdr[:4], magic[:]) {
		return nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(hdr[4:]); v != Version {
		return nil, fmt.Errorf("%w %d", ErrVersion, v)
	}

	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("capture: create zstd reader: %w", err)
	}
	defer zr.Close()

	var f Frame
	if err := msgpack.NewDecoder(zr).Decode(&f); err != nil {
		return nil, fmt.Errorf("capture: decode frame: %w", err)
	}
	if f.Version != Version {
		return nil, fmt.Errorf("%w %d", ErrVersion, f.Version)
	}
	return &f, nil
}
