// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package uicanvas

import (
	"errors"
	"math"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/meshpaint"
	"github.com/gogpu/meshpaint/render"
	"github.com/gogpu/wgpu/hal"
)

// Common errors returned by Canvas operations.
var (
	// ErrCanvasClosed is returned when operations are attempted on a closed canvas.
	ErrCanvasClosed = errors.New("uicanvas: canvas is closed")

	// ErrNilRenderer is returned when a nil renderer is passed.
	ErrNilRenderer = errors.New("uicanvas: nil renderer")

	// ErrNilWindow is returned when a nil WindowProvider is passed.
	ErrNilWindow = errors.New("uicanvas: nil WindowProvider")
)

// Canvas feeds toolkit output to a renderer and paints it into a window.
//
// Canvas is NOT safe for concurrent use.
type Canvas struct {
	renderer *render.Renderer
	window   gpucontext.WindowProvider

	pending meshpaint.FrameOutput
	closed  bool
}

// New creates a Canvas. The caller keeps ownership of renderer.
func New(renderer *render.Renderer, window gpucontext.WindowProvider) (*Canvas, error) {
	if renderer == nil {
		return nil, ErrNilRenderer
	}
	if window == nil {
		return nil, ErrNilWindow
	}
	return &Canvas{renderer: renderer, window: window}, nil
}

// Queue stores the output of one toolkit run. Meshes and pixels-per-point
// replace the previous ones; the texture delta is appended to what is
// pending. A redraw is requested from the window.
func (c *Canvas) Queue(frame meshpaint.FrameOutput) error {
	if c.closed {
		return ErrCanvasClosed
	}
	c.pending.Meshes = frame.Meshes
	c.pending.PixelsPerPoint = frame.PixelsPerPoint
	c.pending.Textures.Append(frame.Textures)
	c.window.RequestRedraw()
	return nil
}

// Pending returns the number of meshes and texture delta entries waiting
// for the next Render.
func (c *Canvas) Pending() (meshes, textureSets, textureFrees int) {
	return len(c.pending.Meshes), len(c.pending.Textures.Set), len(c.pending.Textures.Free)
}

// PhysicalSize returns the window size in physical pixels.
func (c *Canvas) PhysicalSize() (width, height uint32) {
	w, h := c.window.Size()
	scale := c.window.ScaleFactor()
	return toPhysical(w, scale), toPhysical(h, scale)
}

func toPhysical(logical int, scale float64) uint32 {
	if logical <= 0 || scale <= 0 {
		return 0
	}
	return uint32(math.Round(float64(logical) * scale))
}

// Render paints the pending frame into view, which must have the window's
// physical size. A nil clear color keeps the view's contents.
//
// A minimized window (zero physical size) paints nothing and keeps the
// pending state. After a successful paint the pending state is cleared.
func (c *Canvas) Render(view hal.TextureView, clearColor *gputypes.Color) (render.FrameStats, error) {
	if c.closed {
		return render.FrameStats{}, ErrCanvasClosed
	}
	width, height := c.PhysicalSize()
	if width == 0 || height == 0 {
		return render.FrameStats{}, nil
	}
	frame := c.pending
	if frame.PixelsPerPoint == 0 {
		frame.PixelsPerPoint = float32(c.window.ScaleFactor())
	}
	stats, err := c.renderer.Paint(render.Target{
		View:       view,
		Width:      width,
		Height:     height,
		ClearColor: clearColor,
	}, frame)
	if err != nil {
		return stats, err
	}
	c.pending.Meshes = nil
	c.pending.Textures = meshpaint.TexturesDelta{}
	return stats, nil
}

// Renderer returns the wrapped renderer.
func (c *Canvas) Renderer() *render.Renderer { return c.renderer }

// Close drops pending state. The renderer is not destroyed.
// Safe to call multiple times.
func (c *Canvas) Close() error {
	c.closed = true
	c.pending = meshpaint.FrameOutput{}
	return nil
}
