// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package uicanvas connects a meshpaint renderer to a host window.
//
// The GUI toolkit may run several times between two presented frames (for
// example once per input event). Canvas keeps the latest meshes and
// accumulates every texture delta in between, so no upload or free is
// lost:
//
//	canvas, err := uicanvas.New(renderer, window)
//	if err != nil { ... }
//	defer canvas.Close()
//
//	// after each toolkit run
//	_ = canvas.Queue(output)
//
//	// in the window's draw callback
//	_, err = canvas.Render(surfaceView, &gputypes.Color{A: 1})
//
// Render converts the window's logical size to physical pixels with the
// window's scale factor, which is also used as pixels-per-point when the
// toolkit did not set one.
package uicanvas
