// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop HAL device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

// testProvider is a host device provider exposing HAL objects.
type testProvider struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
}

func (p *testProvider) Device() gpucontext.Device             { return p.device }
func (p *testProvider) Queue() gpucontext.Queue               { return p.queue }
func (p *testProvider) Adapter() gpucontext.Adapter           { return nil }
func (p *testProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{} }
func (p *testProvider) SurfaceFormat() gputypes.TextureFormat { return p.format }
func (p *testProvider) HalDevice() any                        { return p.device }
func (p *testProvider) HalQueue() any                         { return p.queue }

// plainProvider implements DeviceProvider without HAL access.
type plainProvider struct{ testProvider }

func (plainProvider) HalDevice() {}

func TestHalFromProvider(t *testing.T) {
	device, queue := createNoopDevice(t)

	gotDevice, gotQueue, err := halFromProvider(&testProvider{device: device, queue: queue})
	if err != nil {
		t.Fatalf("halFromProvider: %v", err)
	}
	if gotDevice != device || gotQueue != queue {
		t.Error("halFromProvider returned different objects")
	}

	if _, _, err := halFromProvider(&testProvider{}); !errors.Is(err, ErrNoHalDevice) {
		t.Errorf("nil HAL objects: err = %v", err)
	}
	if _, _, err := halFromProvider(struct{}{}); !errors.Is(err, ErrNoHalDevice) {
		t.Errorf("non-provider: err = %v", err)
	}
}

func TestNewFromProvider(t *testing.T) {
	device, queue := createNoopDevice(t)

	r, err := NewFromProvider(&testProvider{device: device, queue: queue, format: gputypes.TextureFormatRGBA8Unorm})
	if err != nil {
		t.Fatalf("NewFromProvider: %v", err)
	}
	defer r.Destroy()
	if r.OutputFormat() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("OutputFormat() = %v, want the surface format", r.OutputFormat())
	}

	r2, err := NewFromProvider(&testProvider{device: device, queue: queue, format: gputypes.TextureFormatRGBA8Unorm},
		WithOutputFormat(gputypes.TextureFormatBGRA8UnormSrgb))
	if err != nil {
		t.Fatalf("NewFromProvider with format: %v", err)
	}
	defer r2.Destroy()
	if r2.OutputFormat() != gputypes.TextureFormatBGRA8UnormSrgb {
		t.Errorf("explicit format overridden: %v", r2.OutputFormat())
	}

	r3, err := NewFromProvider(&testProvider{device: device, queue: queue})
	if err != nil {
		t.Fatalf("NewFromProvider headless: %v", err)
	}
	defer r3.Destroy()
	if r3.OutputFormat() != gputypes.TextureFormatBGRA8UnormSrgb {
		t.Errorf("headless provider format = %v, want default", r3.OutputFormat())
	}
}

func TestNewFromProviderWithoutHal(t *testing.T) {
	if _, err := NewFromProvider(nil); !errors.Is(err, ErrNoHalDevice) {
		t.Errorf("nil provider: err = %v", err)
	}
	if _, err := NewFromProvider(&plainProvider{}); !errors.Is(err, ErrNoHalDevice) {
		t.Errorf("provider without HAL: err = %v", err)
	}
}
