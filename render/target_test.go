// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/meshpaint"
)

func TestTextureTarget(t *testing.T) {
	r := newTestRenderer(t)
	target, err := r.NewTextureTarget(33, 7)
	if err != nil {
		t.Fatalf("NewTextureTarget: %v", err)
	}
	defer target.Destroy()

	if target.Width() != 33 || target.Height() != 7 || target.Format() != r.OutputFormat() {
		t.Errorf("target %dx%d %v", target.Width(), target.Height(), target.Format())
	}
	bg := &gputypes.Color{R: 1, A: 1}
	pt := target.Target(bg)
	if pt.View == nil || pt.ResolveTarget != nil || pt.ClearColor != bg || !pt.Offscreen {
		t.Errorf("Target() = %+v", pt)
	}
	if pt.Width != 33 || pt.Height != 7 {
		t.Errorf("Target() size = %dx%d", pt.Width, pt.Height)
	}
}

func TestTextureTargetMultisampled(t *testing.T) {
	r := newTestRenderer(t, WithSampleCount(4))
	target, err := r.NewTextureTarget(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Destroy()
	if pt := target.Target(nil); pt.ResolveTarget == nil {
		t.Error("multisampled target has no resolve target")
	}
	if _, err := r.Paint(target.Target(nil), meshpaint.FrameOutput{}); err != nil {
		t.Errorf("Paint: %v", err)
	}
}

func TestTextureTargetReadPixels(t *testing.T) {
	r := newTestRenderer(t)
	target, err := r.NewTextureTarget(70, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Destroy()
	if _, err := r.Paint(target.Target(&gputypes.Color{A: 1}), testFrame(meshpaint.ManagedTexture(0))); err != nil {
		t.Fatal(err)
	}

	img, err := target.ReadPixels()
	if err != nil {
		t.Fatalf("ReadPixels: %v", err)
	}
	if img.Bounds().Dx() != 70 || img.Bounds().Dy() != 3 {
		t.Errorf("bounds = %v", img.Bounds())
	}
	if len(img.Pix) != 70*3*4 || img.Stride != 280 {
		t.Errorf("len(Pix)=%d stride=%d", len(img.Pix), img.Stride)
	}
}

func TestTextureTargetErrors(t *testing.T) {
	r := newTestRenderer(t, WithOutputFormat(gputypes.TextureFormatRGBA16Float))
	if _, err := r.NewTextureTarget(0, 4); err == nil {
		t.Error("zero width accepted")
	}
	target, err := r.NewTextureTarget(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := target.ReadPixels(); !errors.Is(err, ErrUnreadableFormat) {
		t.Errorf("ReadPixels(RGBA16Float) = %v", err)
	}
	target.Destroy()
	target.Destroy()
	if _, err := target.ReadPixels(); err == nil {
		t.Error("ReadPixels after Destroy succeeded")
	}
}
