// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/meshpaint/internal/gpu"
	"github.com/gogpu/wgpu/hal"
)

// ErrUnreadableFormat is returned by ReadPixels for formats other than
// 8-bit RGBA or BGRA.
var ErrUnreadableFormat = errors.New("render: texture format cannot be read back")

// TextureTarget is an offscreen render target owned by the caller.
//
// With a sample count above 1 the target holds a multisampled attachment
// and a single-sampled resolve texture; ReadPixels reads the resolved one.
//
// Example:
//
//	target, err := r.NewTextureTarget(800, 600)
//	if err != nil { ... }
//	defer target.Destroy()
//	_, err = r.Paint(target.Target(&gputypes.Color{A: 1}), frame)
//	img, err := target.ReadPixels()
type TextureTarget struct {
	device hal.Device
	queue  hal.Queue

	width, height uint32
	format        gputypes.TextureFormat

	texture hal.Texture // single-sampled, readable
	view    hal.TextureView

	msaaTexture hal.Texture
	msaaView    hal.TextureView
}

// NewTextureTarget creates an offscreen target matching the renderer's
// output format and sample count.
func (r *Renderer) NewTextureTarget(width, height uint32) (*TextureTarget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRendererClosed
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("render: invalid target size %dx%d", width, height)
	}
	t := &TextureTarget{
		device: r.device,
		queue:  r.queue,
		width:  width,
		height: height,
		format: r.OutputFormat(),
	}
	var err error
	t.texture, t.view, err = t.createTexture("target", 1,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc|gputypes.TextureUsageTextureBinding)
	if err != nil {
		t.Destroy()
		return nil, err
	}
	if samples := r.SampleCount(); samples > 1 {
		t.msaaTexture, t.msaaView, err = t.createTexture("target_msaa", samples, gputypes.TextureUsageRenderAttachment)
		if err != nil {
			t.Destroy()
			return nil, err
		}
	}
	return t, nil
}

func (t *TextureTarget) createTexture(label string, samples uint32, usage gputypes.TextureUsage) (hal.Texture, hal.TextureView, error) {
	tex, err := t.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        t.format,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("render: create %s texture: %w", label, err)
	}
	view, err := t.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        t.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		t.device.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("render: create %s view: %w", label, err)
	}
	return tex, view, nil
}

// Target returns the paint target for this texture. A nil clear color keeps
// the previous contents.
func (t *TextureTarget) Target(clear *gputypes.Color) Target {
	target := Target{
		View:       t.view,
		Width:      t.width,
		Height:     t.height,
		ClearColor: clear,
		Offscreen:  true,
	}
	if t.msaaView != nil {
		target.View = t.msaaView
		target.ResolveTarget = t.view
	}
	return target
}

// Width returns the target width in pixels.
func (t *TextureTarget) Width() int { return int(t.width) }

// Height returns the target height in pixels.
func (t *TextureTarget) Height() int { return int(t.height) }

// Format returns the pixel format of the target.
func (t *TextureTarget) Format() gputypes.TextureFormat { return t.format }

// Texture returns the single-sampled texture.
func (t *TextureTarget) Texture() hal.Texture { return t.texture }

// ReadPixels copies the target back to the CPU. It blocks until the GPU is
// idle. BGRA targets are swizzled to RGBA; sRGB targets return the encoded
// values unchanged.
func (t *TextureTarget) ReadPixels() (*image.RGBA, error) {
	if t.texture == nil {
		return nil, errors.New("render: texture target destroyed")
	}
	switch t.format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFormat, t.format)
	}
	pix, err := gpu.ReadTexture(t.device, t.queue, t.texture, t.format, t.width, t.height)
	if err != nil {
		return nil, fmt.Errorf("render: read pixels: %w", err)
	}
	return &image.RGBA{
		Pix:    pix,
		Stride: int(t.width) * 4,
		Rect:   image.Rect(0, 0, int(t.width), int(t.height)),
	}, nil
}

// Destroy releases the target's textures. Safe to call multiple times.
func (t *TextureTarget) Destroy() {
	if t.msaaView != nil {
		t.device.DestroyTextureView(t.msaaView)
		t.msaaView = nil
	}
	if t.msaaTexture != nil {
		t.device.DestroyTexture(t.msaaTexture)
		t.msaaTexture = nil
	}
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.texture != nil {
		t.device.DestroyTexture(t.texture)
		t.texture = nil
	}
}
