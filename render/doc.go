// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render is the public entry point of meshpaint.
//
// A Renderer receives a GPU device from the host application and draws the
// tessellated output of an immediate-mode GUI toolkit into a render target
// once per frame. It does NOT create its own device.
//
// # Creating a Renderer
//
// From a raw HAL device and queue:
//
//	r, err := render.New(device, queue,
//	    render.WithOutputFormat(gputypes.TextureFormatBGRA8UnormSrgb),
//	)
//
// From a host that implements gpucontext.DeviceProvider and exposes its HAL
// objects through HalDevice() any and HalQueue() any:
//
//	r, err := render.NewFromProvider(app.DeviceProvider())
//
// When no output format is given, NewFromProvider uses the provider's
// surface format.
//
// # Painting
//
//	stats, err := r.Paint(render.Target{
//	    View:       surfaceView,
//	    Width:      w,
//	    Height:     h,
//	    ClearColor: &gputypes.Color{A: 1},
//	}, frame)
//
// frame is a meshpaint.FrameOutput: clipped meshes plus the texture delta
// the toolkit produced for this frame. Textures in the delta's set list are
// uploaded before the draw; textures in its free list are released after it.
//
// # Offscreen rendering
//
// TextureTarget owns a texture that can be painted into and read back:
//
//	target, _ := r.NewTextureTarget(256, 256)
//	defer target.Destroy()
//	_, _ = r.Paint(target.Target(nil), frame)
//	img, _ := target.ReadPixels()
//
// # User textures
//
// With WithUserTextures, applications can register their own images and
// reference them from meshes with the returned meshpaint.TextureID.
//
// # Thread Safety
//
// Renderer methods are serialized by a mutex. Frames are still expected to
// come from a single render loop.
package render
