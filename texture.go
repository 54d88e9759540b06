package meshpaint

import (
	"errors"
	"fmt"
)

// Sentinel errors for texture data.
var (
	// ErrTexelCountMismatch is returned (and panicked with on upload) when an
	// image's pixel slice does not hold exactly width*height texels.
	ErrTexelCountMismatch = errors.New("meshpaint: mismatch between texture size and texel count")

	// ErrEmptyImage is returned when an image has a zero dimension.
	ErrEmptyImage = errors.New("meshpaint: image has zero width or height")
)

// TextureKind partitions the texture id space.
type TextureKind uint8

const (
	// TextureManaged ids are allocated by the GUI toolkit (font atlas,
	// loaded images).
	TextureManaged TextureKind = iota

	// TextureUser ids are allocated by the application for textures it
	// registers directly with the renderer.
	TextureUser
)

// String returns the kind name.
func (k TextureKind) String() string {
	switch k {
	case TextureManaged:
		return "managed"
	case TextureUser:
		return "user"
	default:
		return fmt.Sprintf("TextureKind(%d)", k)
	}
}

// TextureID identifies a texture referenced by meshes and texture deltas.
// It is comparable and used as a map key. A managed and a user id with the
// same index are distinct.
type TextureID struct {
	Kind  TextureKind
	Index uint64
}

// ManagedTexture returns the toolkit-managed texture id with index i.
func ManagedTexture(i uint64) TextureID {
	return TextureID{Kind: TextureManaged, Index: i}
}

// UserTexture returns the user texture id with index i.
func UserTexture(i uint64) TextureID {
	return TextureID{Kind: TextureUser, Index: i}
}

// String returns a compact form like "managed#3".
func (id TextureID) String() string {
	return fmt.Sprintf("%s#%d", id.Kind, id.Index)
}

// ImageData is the pixel payload of a texture update.
// It is implemented by *ColorImage and *AlphaImage only.
type ImageData interface {
	// Size returns width and height in texels.
	Size() (width, height int)

	// Validate checks that the texel slice matches the size.
	Validate() error

	isImageData()
}

// ColorImage is an RGBA image of premultiplied sRGB texels, row-major.
type ColorImage struct {
	Width, Height int
	Pixels        []Color32
}

// NewColorImage returns a transparent image of the given size.
func NewColorImage(width, height int) *ColorImage {
	return &ColorImage{
		Width:  width,
		Height: height,
		Pixels: make([]Color32, width*height),
	}
}

// Size implements ImageData.
func (img *ColorImage) Size() (int, int) { return img.Width, img.Height }

// Validate implements ImageData.
func (img *ColorImage) Validate() error {
	return validateTexels(img.Width, img.Height, len(img.Pixels))
}

// Bytes returns the texels as tightly packed RGBA bytes.
func (img *ColorImage) Bytes() []byte {
	out := make([]byte, len(img.Pixels)*4)
	for i, c := range img.Pixels {
		out[i*4+0] = c.R
		out[i*4+1] = c.G
		out[i*4+2] = c.B
		out[i*4+3] = c.A
	}
	return out
}

// Set sets the texel at (x, y). Out of range coordinates are ignored.
func (img *ColorImage) Set(x, y int, c Color32) {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return
	}
	img.Pixels[y*img.Width+x] = c
}

func (*ColorImage) isImageData() {}

// AlphaImage is a single channel coverage image, as used for font atlases.
type AlphaImage struct {
	Width, Height int
	Pixels        []uint8
}

// NewAlphaImage returns a zeroed image of the given size.
func NewAlphaImage(width, height int) *AlphaImage {
	return &AlphaImage{
		Width:  width,
		Height: height,
		Pixels: make([]uint8, width*height),
	}
}

// Size implements ImageData.
func (img *AlphaImage) Size() (int, int) { return img.Width, img.Height }

// Validate implements ImageData.
func (img *AlphaImage) Validate() error {
	return validateTexels(img.Width, img.Height, len(img.Pixels))
}

func (*AlphaImage) isImageData() {}

func validateTexels(w, h, n int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyImage, w, h)
	}
	if w*h != n {
		return fmt.Errorf("%w: %dx%d image has %d texels", ErrTexelCountMismatch, w, h, n)
	}
	return nil
}

// ImageDelta is a whole or partial texture update.
//
// Pos is nil for a whole-texture replacement. A non-nil Pos marks a partial
// update at that texel offset; the painter currently replaces the whole
// texture with Image in both cases.
type ImageDelta struct {
	Image ImageData
	Pos   *[2]int
}

// FullDelta returns a whole-texture update.
func FullDelta(img ImageData) ImageDelta {
	return ImageDelta{Image: img}
}

// TextureSet is one entry of TexturesDelta.Set.
type TextureSet struct {
	ID    TextureID
	Delta ImageDelta
}

// TexturesDelta lists the textures to upload before a frame is drawn and
// the textures to free after it. An id may appear in both lists, meaning
// upload, draw, then free within the same frame.
type TexturesDelta struct {
	Set  []TextureSet
	Free []TextureID
}

// IsEmpty reports whether the delta has nothing to do.
func (d *TexturesDelta) IsEmpty() bool {
	return len(d.Set) == 0 && len(d.Free) == 0
}

// Append appends other's entries after d's, preserving order.
// Used to accumulate deltas from several toolkit runs between two paints.
func (d *TexturesDelta) Append(other TexturesDelta) {
	d.Set = append(d.Set, other.Set...)
	d.Free = append(d.Free, other.Free...)
}

// Clear empties the delta, keeping the allocated slices.
func (d *TexturesDelta) Clear() {
	d.Set = d.Set[:0]
	d.Free = d.Free[:0]
}
