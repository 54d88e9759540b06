// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/meshpaint/internal/gpu"
)

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := render.New(device, queue,
//	    render.WithOutputFormat(gputypes.TextureFormatRGBA8Unorm),
//	    render.WithSampleCount(4),
//	)
type Option func(*options)

// options holds optional configuration for Renderer creation.
type options struct {
	painter      gpu.PainterConfig
	formatSet    bool
	userTextures bool
}

// defaultOptions returns the default renderer options.
func defaultOptions() options {
	return options{painter: gpu.DefaultPainterConfig()}
}

// WithOutputFormat sets the format of the render targets the renderer draws
// into. sRGB formats make the shader convert vertex colors to linear space.
//
// Default: gputypes.TextureFormatBGRA8UnormSrgb, or the provider's surface
// format with NewFromProvider.
func WithOutputFormat(format gputypes.TextureFormat) Option {
	return func(o *options) {
		o.painter.Pipeline.OutputFormat = format
		o.formatSet = true
	}
}

// WithSampleCount sets the MSAA sample count of the render targets.
// Must be a power of two up to 16. Default: 1
func WithSampleCount(n uint32) Option {
	return func(o *options) {
		o.painter.Pipeline.SampleCount = n
	}
}

// WithSamplerFilter sets the texture filter. Default: gputypes.FilterModeLinear
func WithSamplerFilter(filter gputypes.FilterMode) Option {
	return func(o *options) {
		o.painter.SamplerFilter = filter
	}
}

// WithSPIRV makes the renderer hand the device SPIR-V compiled by naga
// instead of WGSL source.
func WithSPIRV(enabled bool) Option {
	return func(o *options) {
		o.painter.Pipeline.PrecompileSPIRV = enabled
	}
}

// WithUserTextures enables RegisterUserTexture.
func WithUserTextures(enabled bool) Option {
	return func(o *options) {
		o.userTextures = enabled
	}
}
