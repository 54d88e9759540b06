package meshpaint

import (
	"image"
	"image/color"
	"testing"
)

func TestColorImageFromImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 7, 6))
	src.SetNRGBA(5, 5, color.NRGBA{R: 255, A: 255})
	src.SetNRGBA(6, 5, color.NRGBA{G: 255, A: 128})

	img := ColorImageFromImage(src)
	if img.Width != 2 || img.Height != 1 {
		t.Fatalf("size = %dx%d, want 2x1", img.Width, img.Height)
	}
	if err := img.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if img.Pixels[0] != (Color32{255, 0, 0, 255}) {
		t.Errorf("pixel 0 = %v", img.Pixels[0])
	}
	// NRGBA is converted to premultiplied texels.
	if p := img.Pixels[1]; p.A != 128 || p.G != 128 {
		t.Errorf("pixel 1 = %v, want premultiplied green", p)
	}
}

func TestColorImageFromImageScaled(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	img := ColorImageFromImageScaled(src, 4, 2)
	if img.Width != 4 || img.Height != 2 || len(img.Pixels) != 8 {
		t.Fatalf("scaled image %dx%d with %d texels", img.Width, img.Height, len(img.Pixels))
	}
	if p := img.Pixels[5]; p.R < 250 || p.A < 250 {
		t.Errorf("uniform white source should stay white, got %v", p)
	}
}

func TestAlphaImageFromImage(t *testing.T) {
	src := image.NewAlpha(image.Rect(0, 0, 3, 2))
	src.SetAlpha(2, 1, color.Alpha{A: 200})

	img := AlphaImageFromImage(src)
	if err := img.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if img.Pixels[5] != 200 || img.Pixels[0] != 0 {
		t.Errorf("pixels = %v", img.Pixels)
	}
}

func TestColorImageToRGBA(t *testing.T) {
	img := NewColorImage(1, 1)
	img.Pixels[0] = RGBA32(9, 8, 7, 6)
	rgba := img.ToRGBA()
	if got := rgba.RGBAAt(0, 0); got != (color.RGBA{9, 8, 7, 6}) {
		t.Errorf("RGBAAt = %v", got)
	}
}
