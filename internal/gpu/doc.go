// Package gpu records the GPU work for one GUI frame through the gogpu
// hardware abstraction layer (github.com/gogpu/wgpu/hal).
//
// This is an internal package used by meshpaint/render. It owns every GPU
// object the painter creates and knows nothing about windows or surfaces:
// the caller hands it a device, a queue and a texture view to draw into.
//
// # Architecture Overview
//
//	FrameOutput -> TextureRegistry (upload) -> BufferPool (vertices, indices)
//	            -> render pass (scissor + DrawIndexed per mesh)
//	            -> TextureRegistry (free) -> Queue.Submit
//
// Key components:
//
//   - Painter: runs the six ordered steps of a frame
//   - Pipeline: shader module, bind group layouts and the render pipeline,
//     plus the screen size uniform shared by every frame
//   - TextureRegistry: one texture, view, info uniform and bind group per
//     texture id
//   - BufferPool: positional vertex or index buffers reused across frames
//   - retireQueue: keeps replaced resources and command buffers alive until
//     the submission that used them has completed
//
// # Resource Lifetime
//
// Nothing the GPU may still read is destroyed immediately. Replaced buffers,
// freed textures and finished command buffers are parked with the index of
// the submission that last used them and released once
// hal.Queue.PollCompleted reaches that index.
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent use. The render package
// serializes access.
package gpu
