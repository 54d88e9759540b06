package meshpaint

import (
	"fmt"
	"image/color"
)

// Color32 is an 8-bit per channel sRGBA color with premultiplied alpha,
// the color representation GUI toolkits emit in tessellated vertices.
//
// In GPU memory a Color32 is one little-endian uint32 with R in the lowest
// byte, which the vertex shader unpacks with unpack4x8unorm.
type Color32 struct {
	R, G, B, A uint8
}

// Common colors.
var (
	Transparent = Color32{}
	Black       = Color32{0, 0, 0, 255}
	White       = Color32{255, 255, 255, 255}
)

// RGBA32 returns a color from already premultiplied components.
func RGBA32(r, g, b, a uint8) Color32 {
	return Color32{R: r, G: g, B: b, A: a}
}

// FromStraight converts a straight (unmultiplied) sRGBA color to Color32.
func FromStraight(r, g, b, a uint8) Color32 {
	if a == 255 {
		return Color32{r, g, b, a}
	}
	return Color32{
		R: premul(r, a),
		G: premul(g, a),
		B: premul(b, a),
		A: a,
	}
}

func premul(c, a uint8) uint8 {
	//nolint:gosec // result is at most 255
	return uint8((uint32(c)*uint32(a) + 127) / 255)
}

// Packed returns the color as the uint32 stored in a vertex.
func (c Color32) Packed() uint32 {
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16 | uint32(c.A)<<24
}

// UnpackColor32 is the inverse of Color32.Packed.
func UnpackColor32(v uint32) Color32 {
	//nolint:gosec // byte extraction
	return Color32{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16), A: uint8(v >> 24)}
}

// RGBA implements color.Color. Color32 is already premultiplied, which is
// exactly what color.Color expects.
func (c Color32) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}.RGBA()
}

// String returns the color as #rrggbbaa.
func (c Color32) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
