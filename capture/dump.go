// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package capture

import (
	"bufio"
	"fmt"
	"io"

	"github.com/gogpu/imdraw/command"
)

// Recount decodes the captured arena and returns what a replay would
// report. It matches the recorded Stats for an undamaged capture.
func (f *Frame) Recount() (command.Stats, error) {
	return command.Count(f.Stream)
}

// Dump writes a listing of the captured records to w, one per line:
//
//	0000 Texture        #0 id=3 32x32
//	0008 Render         start=0 prims=2
//
// Records referencing a missing table entry are listed as such rather than
// failing, so damaged captures can still be inspected.
func (f *Frame) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)
	dec := command.NewDecoder(f.Stream)
	for dec.Next() {
		k := dec.Kind()
		fmt.Fprintf(bw, "%04x %-15s ", dec.Offset(), k)
		switch {
		case k == command.KindRender:
			start, n := dec.Render()
			fmt.Fprintf(bw, "start=%d prims=%d", start, n)
		case k == command.KindProjection:
			m := dec.Projection()
			fmt.Fprintf(bw, "scale=(%g, %g) translate=(%g, %g)", m[0], m[5], m[12], m[13])
		case k.IsIndexed():
			i := dec.Index()
			fmt.Fprintf(bw, "#%d %s", i, f.describe(k, int(i)))
		}
		bw.WriteByte('\n')
	}
	if err := dec.Err(); err != nil {
		fmt.Fprintf(bw, "error: %v\n", err)
	}
	st, _ := f.Recount()
	fmt.Fprintf(bw, "-- %s\n", st)
	return bw.Flush()
}

func (f *Frame) describe(k command.Kind, i int) string {
	missing := "<missing>"
	switch k {
	case command.KindBlendState:
		if i < len(f.Blend) {
			b := f.Blend[i]
			if !b.Enabled {
				return "opaque"
			}
			return fmt.Sprintf("color=%d/%d/%d alpha=%d/%d/%d",
				b.Color.Src, b.Color.Dst, b.Color.Op, b.Alpha.Src, b.Alpha.Dst, b.Alpha.Op)
		}
	case command.KindDepthState:
		if i < len(f.Depth) {
			d := f.Depth[i]
			return fmt.Sprintf("enabled=%t write=%t compare=%d", d.Enabled, d.Write, d.Compare)
		}
	case command.KindRasterizerState:
		if i < len(f.Rasterizer) {
			r := f.Rasterizer[i]
			return fmt.Sprintf("cull=%d front=%d", r.CullMode, r.FrontFace)
		}
	case command.KindSamplerState:
		if i < len(f.Sampler) {
			s := f.Sampler[i]
			return fmt.Sprintf("filter=%d address=%d", s.Filter, s.Address)
		}
	case command.KindEffect:
		if i < len(f.Effects) {
			if f.Effects[i] == "" {
				return "built-in"
			}
			return fmt.Sprintf("%q", f.Effects[i])
		}
	case command.KindTexture:
		if i < len(f.Textures) {
			t := f.Textures[i]
			return fmt.Sprintf("id=%d %dx%d", t.ID, t.Width, t.Height)
		}
	case command.KindVertexBuffer:
		if i < len(f.VertexBuffers) {
			b := f.VertexBuffers[i]
			return fmt.Sprintf("id=%d len=%d", b.ID, b.Len)
		}
	case command.KindIndexBuffer:
		if i < len(f.IndexBuffers) {
			b := f.IndexBuffers[i]
			return fmt.Sprintf("id=%d len=%d", b.ID, b.Len)
		}
	}
	return missing
}
