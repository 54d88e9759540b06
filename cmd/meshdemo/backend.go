package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/allbackends"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/gogpu/wgpu/hal/software"
)

// selectBackend resolves a -backend flag value. "auto" picks the best
// registered GPU backend and falls back to software when none is usable.
//
// The software backend does not rasterize geometry and its texture readback
// ignores the row pitch, so its PNG only shows that the frame was encoded
// and submitted. Use auto (or a real GPU) for meaningful pixels.
func selectBackend(name string) (hal.Backend, error) {
	switch name {
	case "software":
		return software.API{}, nil
	case "noop":
		return noop.API{}, nil
	case "auto":
		b, err := hal.SelectBestBackend()
		if err != nil {
			slog.Warn("no GPU backend available, using software", "err", err)
			return software.API{}, nil
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want auto, software or noop)", name)
	}
}

// openDevice opens the first adapter of the named backend. The returned
// function destroys the device and instance.
func openDevice(name string) (hal.Device, hal.Queue, func(), error) {
	backend, err := selectBackend(name)
	if err != nil {
		return nil, nil, nil, err
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Backends: gputypes.BackendsAll})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create %s instance: %w", name, err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, nil, errors.New("no adapters found")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, nil, fmt.Errorf("open adapter: %w", err)
	}
	slog.Info("device opened", "backend", name, "adapter", adapters[0].Info.Name)
	cleanup := func() {
		open.Device.Destroy()
		instance.Destroy()
	}
	return open.Device, open.Queue, cleanup, nil
}
