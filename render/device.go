// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// DeviceHandle provides GPU device access from the host application.
//
// The host (for example a gogpu window) implements DeviceHandle and passes
// it to NewFromProvider so the renderer shares the host's device and queue.
// To be usable the handle must also expose its HAL objects:
//
//	func (h *handle) HalDevice() any { return h.device } // hal.Device
//	func (h *handle) HalQueue() any  { return h.queue }  // hal.Queue
//
// DeviceHandle is an alias for gpucontext.DeviceProvider.
type DeviceHandle = gpucontext.DeviceProvider

// ErrNoHalDevice is returned by NewFromProvider when the provider does not
// expose a hal.Device and hal.Queue.
var ErrNoHalDevice = errors.New("render: provider does not expose HAL device and queue")

// halProvider is implemented by device providers that expose HAL types.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// halFromProvider extracts the HAL device and queue of a provider.
func halFromProvider(provider any) (hal.Device, hal.Queue, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, nil, ErrNoHalDevice
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil, ErrNoHalDevice
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, ErrNoHalDevice
	}
	return device, queue, nil
}
