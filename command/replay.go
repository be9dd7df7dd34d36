package command

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/imdraw/device"
)

// Stats summarizes one replay.
type Stats struct {
	// Commands is the number of records replayed.
	Commands int

	// Triangles is the sum of primitive counts of all Render records.
	Triangles int

	// DrawCalls is the number of Render records.
	DrawCalls int

	// StateChanges is the number of state and binding records.
	StateChanges int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d commands, %d draw calls, %d tris, %d state changes",
		s.Commands, s.DrawCalls, s.Triangles, s.StateChanges)
}

// Merge adds the counters of o to s.
func (s *Stats) Merge(o Stats) {
	s.Commands += o.Commands
	s.Triangles += o.Triangles
	s.DrawCalls += o.DrawCalls
	s.StateChanges += o.StateChanges
}

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("commands", s.Commands),
		slog.Int("draw_calls", s.DrawCalls),
		slog.Int("tris", s.Triangles),
		slog.Int("state_changes", s.StateChanges),
	)
}

// Count walks an arena without a device and returns what a replay would
// report. It is used to inspect captured frames.
func Count(buf []byte) (Stats, error) {
	var st Stats
	dec := NewDecoder(buf)
	for dec.Next() {
		st.Commands++
		switch k := dec.Kind(); {
		case k == KindRender:
			_, n := dec.Render()
			st.Triangles += int(n)
			st.DrawCalls++
		case k.IsIndexed():
			st.StateChanges++
		}
	}
	return st, dec.Err()
}

// Replay walks the stream from head to tail and applies every record to
// dev. The stream is left unchanged; callers Reset it when the frame is
// done.
//
// A stream only contains records written by its own Append methods, so a
// decoding failure here means memory corruption and panics.
func (s *Stream) Replay(dev device.Device) Stats {
	var st Stats
	dec := NewDecoder(s.buf)
	for dec.Next() {
		st.Commands++
		k := dec.Kind()
		switch k {
		case KindBlendState:
			dev.SetBlendState(lookup(s.blend, dec.Index(), k))
		case KindDepthState:
			dev.SetDepthState(lookup(s.depth, dec.Index(), k))
		case KindRasterizerState:
			dev.SetRasterizerState(lookup(s.rasterizer, dec.Index(), k))
		case KindSamplerState:
			dev.SetSamplerState(lookup(s.sampler, dec.Index(), k))
		case KindEffect:
			dev.SetEffect(lookup(s.effects, dec.Index(), k))
		case KindTexture:
			dev.BindTexture(lookup(s.textures, dec.Index(), k))
		case KindVertexBuffer:
			dev.BindVertexBuffer(lookup(s.vertexBuffers, dec.Index(), k))
		case KindIndexBuffer:
			dev.BindIndexBuffer(lookup(s.indexBuffers, dec.Index(), k))
		case KindProjection:
			dev.SetProjection(dec.Projection())
		case KindRender:
			start, n := dec.Render()
			dev.DrawIndexedTriangles(int(start), int(n))
			st.Triangles += int(n)
			st.DrawCalls++
			continue
		}
		if k.IsIndexed() {
			st.StateChanges++
		}
	}
	if err := dec.Err(); err != nil {
		panic(err.Error())
	}
	if st.Commands != s.count {
		panic(fmt.Sprintf("command: replayed %d records, stream holds %d", st.Commands, s.count))
	}
	return st
}
