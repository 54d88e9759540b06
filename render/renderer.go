// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/meshpaint"
	"github.com/gogpu/meshpaint/internal/gpu"
	"github.com/gogpu/wgpu/hal"
)

// Renderer errors.
var (
	// ErrRendererClosed is returned by every method after Destroy.
	ErrRendererClosed = errors.New("render: renderer destroyed")

	// ErrUserTexturesDisabled is returned by RegisterUserTexture when the
	// renderer was created without WithUserTextures.
	ErrUserTexturesDisabled = errors.New("render: user textures are disabled")

	// ErrNotUserTexture is returned when a user texture operation gets a
	// managed texture id or an id that was never registered.
	ErrNotUserTexture = errors.New("render: not a registered user texture")
)

// Target is the texture a frame is drawn into.
type Target = gpu.Target

// FrameStats describes the work done by one Paint call.
type FrameStats = gpu.FrameStats

// Renderer draws meshpaint frames with a host-provided GPU device.
type Renderer struct {
	mu sync.Mutex

	device  hal.Device
	queue   hal.Queue
	painter *gpu.Painter
	opts    options

	nextUserTexture uint64
	closed          bool
}

// New creates a renderer on device and queue. The caller keeps ownership of
// both and must destroy the renderer before them.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Renderer, error) {
	if device == nil || queue == nil {
		return nil, ErrNoHalDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newRenderer(device, queue, o)
}

// NewFromProvider creates a renderer on the device shared by a host
// application. Unless WithOutputFormat is given, the provider's surface
// format is used when it is defined.
func NewFromProvider(provider DeviceHandle, opts ...Option) (*Renderer, error) {
	if provider == nil {
		return nil, ErrNoHalDevice
	}
	device, queue, err := halFromProvider(provider)
	if err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if !o.formatSet {
		if f := provider.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
			o.painter.Pipeline.OutputFormat = f
		}
	}
	return newRenderer(device, queue, o)
}

func newRenderer(device hal.Device, queue hal.Queue, o options) (*Renderer, error) {
	painter, err := gpu.NewPainter(device, queue, o.painter)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	cfg := painter.Pipeline().Config()
	meshpaint.Logger().Info("render: renderer created",
		"format", cfg.OutputFormat,
		"samples", cfg.SampleCount,
		"user_textures", o.userTextures)
	return &Renderer{
		device:  device,
		queue:   queue,
		painter: painter,
		opts:    o,
	}, nil
}

// Paint uploads the frame's texture delta, draws its meshes into target and
// submits the work. Textures in the delta's free list are released after
// the draw.
func (r *Renderer) Paint(target Target, frame meshpaint.FrameOutput) (FrameStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return FrameStats{}, ErrRendererClosed
	}
	return r.painter.Paint(target, frame)
}

// RegisterUserTexture uploads an application image and returns the id that
// meshes use to reference it. Requires WithUserTextures.
func (r *Renderer) RegisterUserTexture(delta meshpaint.ImageDelta) (meshpaint.TextureID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return meshpaint.TextureID{}, ErrRendererClosed
	}
	if !r.opts.userTextures {
		return meshpaint.TextureID{}, ErrUserTexturesDisabled
	}
	id := meshpaint.UserTexture(r.nextUserTexture)
	if err := r.painter.Textures().Upload(id, delta); err != nil {
		return meshpaint.TextureID{}, err
	}
	r.nextUserTexture++
	return id, nil
}

// UpdateUserTexture replaces the image of a registered user texture. The
// old image stays alive until frames using it have completed.
func (r *Renderer) UpdateUserTexture(id meshpaint.TextureID, delta meshpaint.ImageDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}
	if id.Kind != meshpaint.TextureUser || !r.painter.Textures().Contains(id) {
		return fmt.Errorf("%w: %s", ErrNotUserTexture, id)
	}
	return r.painter.Textures().Upload(id, delta)
}

// FreeUserTexture releases a user texture. Its id is never reused.
func (r *Renderer) FreeUserTexture(id meshpaint.TextureID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}
	if id.Kind != meshpaint.TextureUser || !r.painter.Textures().Free(id) {
		return fmt.Errorf("%w: %s", ErrNotUserTexture, id)
	}
	return nil
}

// OutputFormat returns the render target format the pipeline was built for.
func (r *Renderer) OutputFormat() gputypes.TextureFormat {
	return r.painter.Pipeline().Config().OutputFormat
}

// SampleCount returns the MSAA sample count the pipeline was built for.
func (r *Renderer) SampleCount() uint32 {
	return r.painter.Pipeline().Config().SampleCount
}

// TextureCount returns the number of registered textures, managed and user.
func (r *Renderer) TextureCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.painter.Textures().Len()
}

// Destroy waits for the GPU and releases every resource the renderer owns.
// The device and queue are not destroyed. Safe to call multiple times.
func (r *Renderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.painter.Destroy()
	meshpaint.Logger().Info("render: renderer destroyed")
}
