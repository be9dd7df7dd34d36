// Package imdraw batches sprites and vector shapes into GPU draw calls.
//
// # Overview
//
// imdraw is a deferred renderer for 2D games and tools. Drawing calls made
// during a frame do not touch the GPU. Instead they write vertices into
// staging arrays and append compact records (state changes, buffer binds,
// draws) to a [command.Stream]. At the end of the frame the staged data is
// uploaded into pooled buffers and the stream is replayed once against a
// [device.Device].
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/imdraw"
//	    "github.com/gogpu/imdraw/device/soft"
//	)
//
//	dev := soft.New(soft.WithSize(640, 480))
//	dc, err := imdraw.NewDrawContext(dev, imdraw.WithViewport(640, 480))
//	if err != nil {
//	    return err
//	}
//	defer dc.Close()
//
//	dc.SetTexture(player)
//	dc.AddSprite(imdraw.V2(10, 10), imdraw.V2(1, 1), imdraw.White, imdraw.FullUV)
//
//	g := dc.Geometry()
//	g.AddRectFilled(imdraw.V2(0, 0), imdraw.V2(100, 20), imdraw.Red, 4, imdraw.CornerAll)
//	g.AddCircle(imdraw.V2(200, 200), 50, imdraw.Green, 0, 2)
//
//	stats, err := dc.Render(dev)
//
// # Architecture
//
// The module is organized into:
//   - imdraw: DrawContext (sprites) and GeometryContext (paths and shapes)
//   - command: the tagged record stream and its replay
//   - pool: frame-delayed recycling of buffer handles
//   - device: the backend boundary, state values and vertex layouts
//   - device/soft: in-memory backend with an optional CPU rasterizer
//   - device/wgpu: gogpu/wgpu HAL backend
//   - capture: frame capture files
//
// # Buffers
//
// Buffers written in frame N may still be read by the GPU while frame N+1
// is recorded. Returned buffers are therefore reissued no earlier than two
// frames later; see package pool.
//
// # Coordinate System
//
// The default projection maps pixels of Options.Viewport with the origin at
// the top-left and Y increasing down. PathArcToFast steps and PathArcTo
// angles run clockwise on screen.
package imdraw
