// Package meshpaint paints the tessellated output of an immediate-mode GUI
// toolkit with the gogpu WebGPU hardware abstraction layer.
//
// # Overview
//
// Every frame a GUI toolkit produces a list of clipped triangle meshes and a
// delta of textures to add or free. meshpaint turns that into GPU work:
//
//  1. textures named in the delta are uploaded
//  2. the screen size uniform is updated
//  3. vertex and index data of every mesh is written to pooled GPU buffers
//  4. one render pass draws each mesh with its clip rectangle as scissor
//  5. textures named in the delta's free list are released
//  6. the command buffer is submitted
//
// This package holds the data model shared by the toolkit side and the GPU
// side: [TextureID], [TexturesDelta], [Mesh], [ClippedMesh], [FrameOutput]
// and the scissor computation [ClipScissor]. It has no GPU dependency.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/meshpaint"
//	    "github.com/gogpu/meshpaint/render"
//	)
//
//	r, err := render.New(device, queue, render.WithOutputFormat(gputypes.TextureFormatBGRA8UnormSrgb))
//	if err != nil {
//	    return err
//	}
//	defer r.Destroy()
//
//	var mesh meshpaint.Mesh
//	mesh.TextureID = meshpaint.ManagedTexture(0)
//	mesh.AddRectWithUV(meshpaint.RectFromMinSize(meshpaint.Pos2{X: 10, Y: 10}, 100, 40),
//	    meshpaint.Rect{}, meshpaint.White)
//
//	stats, err := r.Paint(render.Target{View: view, Width: w, Height: h}, meshpaint.FrameOutput{
//	    Meshes:         []meshpaint.ClippedMesh{{ClipRect: clip, Mesh: mesh}},
//	    Textures:       delta,
//	    PixelsPerPoint: 2,
//	})
//
// # Texture ids
//
// The id space is partitioned: [ManagedTexture] ids belong to the toolkit,
// [UserTexture] ids to the application. The two never collide.
//
// # Logging
//
// meshpaint is silent by default. Use [SetLogger] to route diagnostics to a
// [log/slog] logger.
package meshpaint
