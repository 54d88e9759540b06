package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/meshpaint"
	"github.com/pelletier/go-toml/v2"
	_ "golang.org/x/image/bmp"
)

// Texture ids used by demo scenes. Image files follow checkerTexture.
var (
	whiteTexture   = meshpaint.ManagedTexture(0)
	checkerTexture = meshpaint.ManagedTexture(1)
)

func imageTexture(i int) meshpaint.TextureID {
	return meshpaint.ManagedTexture(uint64(i) + 2) //nolint:gosec // slice index
}

// Scene is the TOML description of a demo frame. Coordinates are in
// logical points.
//
//	background = "#1e1e2eff"
//
//	[checker]
//	size = 8
//	cells = 4
//	a = "#ffffffff"
//	b = "#404040ff"
//
//	[[image]]
//	name = "logo"
//	file = "logo.png"        # PNG or BMP, relative to the scene file
//	width = 64               # optional, resample to width x height
//	height = 64
//	alpha = false            # optional, upload the alpha channel only
//
//	[[rect]]
//	x = 10
//	y = 10
//	w = 100
//	h = 40
//	color = "#ff8000ff"
//	texture = "checker"      # optional: "white", "checker" or an image name
//	clip = [0, 0, 60, 60]    # optional, default is the rect itself
type Scene struct {
	Background string      `toml:"background"`
	Checker    *Checker    `toml:"checker"`
	Images     []ImageSpec `toml:"image"`
	Rects      []RectSpec  `toml:"rect"`

	// images holds the decoded Images, in order, after loadImages.
	images []meshpaint.ImageData
}

// ImageSpec is a texture read from an image file.
type ImageSpec struct {
	Name   string `toml:"name"`
	File   string `toml:"file"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Alpha  bool   `toml:"alpha"`
}

// Checker describes a checkerboard texture.
type Checker struct {
	Size  int    `toml:"size"`  // texels per cell
	Cells int    `toml:"cells"` // cells per side
	A     string `toml:"a"`
	B     string `toml:"b"`
}

// RectSpec is one textured rectangle.
type RectSpec struct {
	X       float32   `toml:"x"`
	Y       float32   `toml:"y"`
	W       float32   `toml:"w"`
	H       float32   `toml:"h"`
	Color   string    `toml:"color"`
	Texture string    `toml:"texture"`
	Clip    []float32 `toml:"clip"`
}

// defaultScene is drawn when no scene file is given.
func defaultScene(width, height float32) Scene {
	s := Scene{
		Background: "#1e1e2eff",
		Checker:    &Checker{Size: 4, Cells: 8, A: "#f5f5f5ff", B: "#3c3c46ff"},
	}
	s.Rects = append(s.Rects,
		RectSpec{X: 0, Y: 0, W: width, H: 24, Color: "#313244ff"},
		RectSpec{X: 16, Y: 40, W: width/2 - 24, H: height - 56, Color: "#ffffffff", Texture: "checker"},
		RectSpec{X: width/2 + 8, Y: 40, W: width/2 - 24, H: 48, Color: "#f38ba8ff"},
		RectSpec{X: width/2 + 8, Y: 96, W: width/2 - 24, H: 48, Color: "#a6e3a180"},
		// Clipped to its upper half.
		RectSpec{X: width/2 + 8, Y: 152, W: width/2 - 24, H: 48, Color: "#89b4faff",
			Clip: []float32{width/2 + 8, 152, width/2 - 24, 24}},
	)
	return s
}

// loadScene reads a TOML scene file and the image files it names. Unknown
// keys are rejected.
func loadScene(path string) (Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scene{}, err
	}
	s, err := parseScene(data)
	if err != nil {
		return Scene{}, err
	}
	if err := s.loadImages(filepath.Dir(path)); err != nil {
		return Scene{}, err
	}
	return s, nil
}

// loadImages decodes every image file. Relative paths are resolved against
// dir.
func (s *Scene) loadImages(dir string) error {
	seen := make(map[string]bool, len(s.Images))
	s.images = make([]meshpaint.ImageData, 0, len(s.Images))
	for i, spec := range s.Images {
		switch {
		case spec.Name == "" || spec.File == "":
			return fmt.Errorf("scene: image %d needs a name and a file", i)
		case spec.Name == "white" || spec.Name == "checker":
			return fmt.Errorf("scene: image %d: name %q is reserved", i, spec.Name)
		case seen[spec.Name]:
			return fmt.Errorf("scene: image %d: duplicate name %q", i, spec.Name)
		}
		seen[spec.Name] = true
		img, err := spec.load(dir)
		if err != nil {
			return fmt.Errorf("scene: image %q: %w", spec.Name, err)
		}
		s.images = append(s.images, img)
	}
	return nil
}

func (spec ImageSpec) load(dir string) (meshpaint.ImageData, error) {
	if (spec.Width > 0) != (spec.Height > 0) || spec.Width < 0 || spec.Height < 0 {
		return nil, fmt.Errorf("width and height must both be positive, got %dx%d", spec.Width, spec.Height)
	}
	path := spec.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", spec.File, err)
	}

	var color *meshpaint.ColorImage
	if spec.Width > 0 {
		color = meshpaint.ColorImageFromImageScaled(src, spec.Width, spec.Height)
		src = color.ToRGBA()
	}
	switch {
	case spec.Alpha:
		return meshpaint.AlphaImageFromImage(src), nil
	case color != nil:
		return color, nil
	default:
		return meshpaint.ColorImageFromImage(src), nil
	}
}

func parseScene(data []byte) (Scene, error) {
	var s Scene
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			keys := make([]string, 0, len(serr.Errors))
			for _, e := range serr.Errors {
				keys = append(keys, strings.Join(e.Key(), "."))
			}
			return Scene{}, fmt.Errorf("scene: unknown keys: %s", strings.Join(keys, ", "))
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Scene{}, fmt.Errorf("scene: line %d column %d: %w", row, col, err)
		}
		return Scene{}, fmt.Errorf("scene: %w", err)
	}
	return s, nil
}

// Build converts the scene into toolkit output. The texture delta uploads
// every texture the scene needs.
func (s Scene) Build(pixelsPerPoint float32) (meshpaint.FrameOutput, error) {
	frame := meshpaint.FrameOutput{PixelsPerPoint: pixelsPerPoint}

	white := meshpaint.NewColorImage(1, 1)
	white.Set(0, 0, meshpaint.White)
	frame.Textures.Set = append(frame.Textures.Set, meshpaint.TextureSet{ID: whiteTexture, Delta: meshpaint.FullDelta(white)})
	if s.Checker != nil {
		img, err := s.Checker.image()
		if err != nil {
			return frame, err
		}
		frame.Textures.Set = append(frame.Textures.Set, meshpaint.TextureSet{ID: checkerTexture, Delta: meshpaint.FullDelta(img)})
	}
	if len(s.images) != len(s.Images) {
		return frame, errors.New("scene: image files not loaded")
	}
	for i, img := range s.images {
		frame.Textures.Set = append(frame.Textures.Set, meshpaint.TextureSet{ID: imageTexture(i), Delta: meshpaint.FullDelta(img)})
	}

	for i, r := range s.Rects {
		c, err := parseColor(r.Color)
		if err != nil {
			return frame, fmt.Errorf("scene: rect %d: %w", i, err)
		}
		var mesh meshpaint.Mesh
		switch r.Texture {
		case "", "white":
			mesh.TextureID = whiteTexture
		case "checker":
			if s.Checker == nil {
				return frame, fmt.Errorf("scene: rect %d uses the checker texture but none is defined", i)
			}
			mesh.TextureID = checkerTexture
		default:
			id, ok := s.imageID(r.Texture)
			if !ok {
				return frame, fmt.Errorf("scene: rect %d: unknown texture %q", i, r.Texture)
			}
			mesh.TextureID = id
		}
		rect := meshpaint.RectFromMinSize(meshpaint.Pos2{X: r.X, Y: r.Y}, r.W, r.H)
		mesh.AddRectWithUV(rect, meshpaint.Rect{Max: meshpaint.Pos2{X: 1, Y: 1}}, c)

		clip := rect
		switch len(r.Clip) {
		case 0:
		case 4:
			clip = meshpaint.RectFromMinSize(meshpaint.Pos2{X: r.Clip[0], Y: r.Clip[1]}, r.Clip[2], r.Clip[3])
		default:
			return frame, fmt.Errorf("scene: rect %d: clip needs 4 values, got %d", i, len(r.Clip))
		}
		frame.Meshes = append(frame.Meshes, meshpaint.ClippedMesh{ClipRect: clip, Mesh: mesh})
	}
	return frame, nil
}

func (s Scene) imageID(name string) (meshpaint.TextureID, bool) {
	for i, spec := range s.Images {
		if spec.Name == name {
			return imageTexture(i), true
		}
	}
	return meshpaint.TextureID{}, false
}

func (c *Checker) image() (*meshpaint.ColorImage, error) {
	if c.Size <= 0 || c.Cells <= 0 {
		return nil, fmt.Errorf("scene: checker size and cells must be positive, got %d and %d", c.Size, c.Cells)
	}
	a, err := parseColor(c.A)
	if err != nil {
		return nil, fmt.Errorf("scene: checker: %w", err)
	}
	b, err := parseColor(c.B)
	if err != nil {
		return nil, fmt.Errorf("scene: checker: %w", err)
	}
	n := c.Size * c.Cells
	img := meshpaint.NewColorImage(n, n)
	for y := range n {
		for x := range n {
			if (x/c.Size+y/c.Size)%2 == 0 {
				img.Set(x, y, a)
			} else {
				img.Set(x, y, b)
			}
		}
	}
	return img, nil
}

// parseColor parses "#rrggbb" or "#rrggbbaa" with straight alpha.
func parseColor(s string) (meshpaint.Color32, error) {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || (len(hex) != 6 && len(hex) != 8) {
		return meshpaint.Color32{}, fmt.Errorf("invalid color %q", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return meshpaint.Color32{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return meshpaint.FromStraight(uint8(v>>24), uint8(v>>16), uint8(v>>8), uint8(v)), nil
}

// clearColor returns the background as a clear value. sRGB targets expect
// linear values.
func (s Scene) clearColor(srgb bool) (gputypes.Color, error) {
	if s.Background == "" {
		return gputypes.Color{A: 1}, nil
	}
	c, err := parseColor(s.Background)
	if err != nil {
		return gputypes.Color{}, fmt.Errorf("scene: background: %w", err)
	}
	ch := func(v uint8) float64 {
		f := float64(v) / 255
		if srgb {
			return linearFromSRGB(f)
		}
		return f
	}
	return gputypes.Color{R: ch(c.R), G: ch(c.G), B: ch(c.B), A: float64(c.A) / 255}, nil
}

func linearFromSRGB(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}
