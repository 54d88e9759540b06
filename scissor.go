package meshpaint

import "math"

// ScissorRect is a pixel rectangle passed to the rasterizer scissor test.
type ScissorRect struct {
	X, Y          uint32
	Width, Height uint32
}

// ClipScissor converts a clip rectangle in logical points to a scissor rect
// inside a width x height target.
//
// ok is false when the clip rectangle has no positive area or does not
// overlap the target; such meshes are not drawn. Otherwise the rect is at
// least 1x1 and satisfies X+Width <= width and Y+Height <= height.
//
// Corners are rounded half away from zero after scaling by pixelsPerPoint
// (zero means 1).
func ClipScissor(clip Rect, pixelsPerPoint float32, width, height uint32) (ScissorRect, bool) {
	if width == 0 || height == 0 {
		return ScissorRect{}, false
	}
	if pixelsPerPoint == 0 {
		pixelsPerPoint = 1
	}
	w := float64(width)
	h := float64(height)

	minX := float64(clip.Min.X) * float64(pixelsPerPoint)
	minY := float64(clip.Min.Y) * float64(pixelsPerPoint)
	maxX := float64(clip.Max.X) * float64(pixelsPerPoint)
	maxY := float64(clip.Max.Y) * float64(pixelsPerPoint)

	// Negated comparisons also reject NaN.
	if !(maxX > minX) || !(maxY > minY) {
		return ScissorRect{}, false
	}
	if maxX <= 0 || maxY <= 0 || minX >= w || minY >= h {
		return ScissorRect{}, false
	}

	minX = clampf(minX, 0, w)
	minY = clampf(minY, 0, h)
	maxX = clampf(maxX, minX, w)
	maxY = clampf(maxY, minY, h)

	// All values are in [0, dim] here, so the conversions cannot overflow.
	x0 := uint32(math.Round(minX))
	y0 := uint32(math.Round(minY))
	x1 := uint32(math.Round(maxX))
	y1 := uint32(math.Round(maxY))

	sw := max(x1-x0, 1)
	sh := max(y1-y0, 1)

	// A sliver narrower than half a pixel at the far edge rounds onto the
	// edge itself; keep the last column or row.
	x := min(x0, width-1)
	y := min(y0, height-1)
	sw = min(sw, width-x)
	sh = min(sh, height-y)

	return ScissorRect{X: x, Y: y, Width: sw, Height: sh}, true
}

// clampf clamps v to [lo, hi].
func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
