// Command meshdemo paints a GUI-like scene with meshpaint into an offscreen
// texture and saves it as PNG.
//
// Usage:
//
//	meshdemo [-width 640] [-height 400] [-scale 1] [-frames 3]
//	         [-scene scene.toml] [-output demo.png] [-backend auto] [-v]
//
// The default backend is the best GPU the system offers. The software
// backend only checks that the frame is recorded and submitted: it draws no
// geometry, so its PNG holds at most the clear color.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/meshpaint"
	"github.com/gogpu/meshpaint/render"
)

// defaultBackend prefers a real GPU; see selectBackend.
const defaultBackend = "auto"

func main() {
	var (
		width     = flag.Int("width", 640, "window width in logical points")
		height    = flag.Int("height", 400, "window height in logical points")
		scale     = flag.Float64("scale", 1, "pixels per point")
		frames    = flag.Int("frames", 3, "frames to paint")
		sceneFile = flag.String("scene", "", "TOML scene file (default: built-in scene)")
		output    = flag.String("output", "demo.png", "output file")
		backend   = flag.String("backend", defaultBackend, "HAL backend: auto, software or noop")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	meshpaint.SetLogger(logger)

	if err := run(*width, *height, *scale, *frames, *sceneFile, *output, *backend); err != nil {
		log.Fatalf("meshdemo: %v", err)
	}
}

func run(width, height int, scale float64, frames int, sceneFile, output, backend string) error {
	if width <= 0 || height <= 0 || scale <= 0 || frames <= 0 {
		return fmt.Errorf("invalid size %dx%d, scale %v or frame count %d", width, height, scale, frames)
	}
	scene := defaultScene(float32(width), float32(height))
	if sceneFile != "" {
		var err error
		if scene, err = loadScene(sceneFile); err != nil {
			return err
		}
	}

	device, queue, closeDevice, err := openDevice(backend)
	if err != nil {
		return err
	}
	defer closeDevice()

	// RGBA keeps the read-back pixels in image.RGBA order.
	r, err := render.New(device, queue, render.WithOutputFormat(gputypes.TextureFormatRGBA8UnormSrgb))
	if err != nil {
		return err
	}
	defer r.Destroy()

	pw := uint32(math.Round(float64(width) * scale))
	ph := uint32(math.Round(float64(height) * scale))
	target, err := r.NewTextureTarget(pw, ph)
	if err != nil {
		return err
	}
	defer target.Destroy()

	clearColor, err := scene.clearColor(r.OutputFormat().IsSrgb())
	if err != nil {
		return err
	}
	for i := range frames {
		frame, err := scene.Build(float32(scale))
		if err != nil {
			return err
		}
		if i > 0 {
			// Textures only change on the first frame, like a toolkit that
			// uploads its font atlas once.
			frame.Textures = meshpaint.TexturesDelta{}
		}
		stats, err := r.Paint(target.Target(&clearColor), frame)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		slog.Info("frame painted",
			"frame", i,
			"draws", stats.DrawCalls,
			"skipped_clip", stats.SkippedClip,
			"allocations", stats.BufferAllocations,
			"uploads", stats.TextureUploads)
	}

	img, err := target.ReadPixels()
	if err != nil {
		return err
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	slog.Info("saved", "file", output, "width", pw, "height", ph)
	return nil
}
