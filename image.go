package meshpaint

import (
	"image"

	"golang.org/x/image/draw"
)

// ColorImageFromImage converts any image.Image to a ColorImage.
// Texels are premultiplied, matching image.RGBA.
func ColorImageFromImage(src image.Image) *ColorImage {
	b := src.Bounds()
	rgba, ok := src.(*image.RGBA)
	if !ok || rgba.Stride != b.Dx()*4 {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	}
	return colorImageFromRGBA(rgba)
}

// ColorImageFromImageScaled resamples src to width x height.
// CatmullRom is used for downscaling, bilinear otherwise.
func ColorImageFromImageScaled(src image.Image, width, height int) *ColorImage {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	var scaler draw.Scaler = draw.BiLinear
	if width < b.Dx() || height < b.Dy() {
		scaler = draw.CatmullRom
	}
	scaler.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return colorImageFromRGBA(dst)
}

func colorImageFromRGBA(rgba *image.RGBA) *ColorImage {
	b := rgba.Bounds()
	img := NewColorImage(b.Dx(), b.Dy())
	for y := 0; y < img.Height; y++ {
		row := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < img.Width; x++ {
			p := row[x*4 : x*4+4 : x*4+4]
			img.Pixels[y*img.Width+x] = Color32{R: p[0], G: p[1], B: p[2], A: p[3]}
		}
	}
	return img
}

// AlphaImageFromImage converts the alpha channel of src to an AlphaImage.
func AlphaImageFromImage(src image.Image) *AlphaImage {
	b := src.Bounds()
	alpha := image.NewAlpha(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(alpha, alpha.Bounds(), src, b.Min, draw.Src)

	img := NewAlphaImage(b.Dx(), b.Dy())
	for y := 0; y < img.Height; y++ {
		copy(img.Pixels[y*img.Width:(y+1)*img.Width], alpha.Pix[y*alpha.Stride:])
	}
	return img
}

// ToRGBA returns the image as an *image.RGBA sharing no memory with img.
func (img *ColorImage) ToRGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	copy(out.Pix, img.Bytes())
	return out
}
