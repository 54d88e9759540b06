package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/meshpaint"
	"github.com/gogpu/wgpu/hal"
)

// textureInfoSize is the byte size of the TextureInfo uniform in mesh.wgsl.
const textureInfoSize = 4

// Texture registry errors.
var (
	// ErrUnsupportedImage is returned for ImageData implementations the
	// registry cannot upload.
	ErrUnsupportedImage = errors.New("gpu: unsupported image data")
)

// textureEntry owns the GPU objects backing one texture id.
type textureEntry struct {
	texture   hal.Texture
	view      hal.TextureView
	info      hal.Buffer
	bindGroup hal.BindGroup

	format        gputypes.TextureFormat
	width, height uint32
}

// TextureRegistry maps texture ids to bind groups for bind group 1 of the
// mesh pipeline. It owns a single sampler shared by every entry.
type TextureRegistry struct {
	device hal.Device
	queue  hal.Queue
	layout hal.BindGroupLayout
	retire *retireQueue

	sampler hal.Sampler
	entries map[meshpaint.TextureID]*textureEntry
}

// NewTextureRegistry creates an empty registry whose bind groups use layout.
func NewTextureRegistry(device hal.Device, queue hal.Queue, layout hal.BindGroupLayout, filter gputypes.FilterMode, retire *retireQueue) (*TextureRegistry, error) {
	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "mesh_texture_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: filter,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create texture sampler: %w", err)
	}
	return &TextureRegistry{
		device:  device,
		queue:   queue,
		layout:  layout,
		retire:  retire,
		sampler: sampler,
		entries: make(map[meshpaint.TextureID]*textureEntry),
	}, nil
}

// Upload creates the GPU texture for delta and stores it under id,
// replacing any previous entry.
//
// Upload panics with meshpaint.ErrTexelCountMismatch when the image's texel
// slice does not match its size; no GPU object is created in that case.
// GPU failures are returned as errors and leave the previous entry intact.
func (r *TextureRegistry) Upload(id meshpaint.TextureID, delta meshpaint.ImageDelta) error {
	if delta.Image == nil {
		return fmt.Errorf("%w: nil image for %s", ErrUnsupportedImage, id)
	}
	if err := delta.Image.Validate(); err != nil {
		if errors.Is(err, meshpaint.ErrTexelCountMismatch) {
			panic(err)
		}
		return fmt.Errorf("gpu: upload %s: %w", id, err)
	}

	var (
		data       []byte
		format     gputypes.TextureFormat
		components uint32
	)
	switch img := delta.Image.(type) {
	case *meshpaint.ColorImage:
		data, format, components = img.Bytes(), gputypes.TextureFormatRGBA8UnormSrgb, 4
	case *meshpaint.AlphaImage:
		data, format, components = img.Pixels, gputypes.TextureFormatR8Unorm, 1
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedImage, delta.Image)
	}
	w, h := delta.Image.Size()
	if delta.Pos != nil {
		slogger().Debug("texture registry: partial update replaces whole texture",
			"id", id, "x", delta.Pos[0], "y", delta.Pos[1])
	}

	entry, err := r.createEntry(id, data, format, components, uint32(w), uint32(h)) //nolint:gosec // validated positive
	if err != nil {
		return err
	}
	if old, ok := r.entries[id]; ok {
		r.retireEntry(old)
	}
	r.entries[id] = entry
	slogger().Debug("texture registry: uploaded", "id", id, "width", w, "height", h, "format", format)
	return nil
}

// createEntry builds texture, view, info uniform and bind group. On error
// everything created so far is destroyed.
func (r *TextureRegistry) createEntry(id meshpaint.TextureID, data []byte, format gputypes.TextureFormat, components, w, h uint32) (*textureEntry, error) {
	e := &textureEntry{format: format, width: w, height: h}
	ok := false
	defer func() {
		if !ok {
			r.destroyEntry(e)
		}
	}()

	label := id.String()
	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}
	tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "mesh_texture_" + label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create texture %s: %w", label, err)
	}
	e.texture = tex

	err = r.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * components,
			RowsPerImage: h,
		},
		&size,
	)
	if err != nil {
		return nil, fmt.Errorf("gpu: write texture %s: %w", label, err)
	}

	view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "mesh_texture_view_" + label,
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create texture view %s: %w", label, err)
	}
	e.view = view

	info, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mesh_texture_info_" + label,
		Size:  textureInfoSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create texture info %s: %w", label, err)
	}
	e.info = info
	var infoData [textureInfoSize]byte
	binary.LittleEndian.PutUint32(infoData[:], components)
	if err := r.queue.WriteBuffer(info, 0, infoData[:]); err != nil {
		return nil, fmt.Errorf("gpu: write texture info %s: %w", label, err)
	}

	bg, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "mesh_texture_bind_" + label,
		Layout: r.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: r.sampler.NativeHandle()}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: info.NativeHandle(), Offset: 0, Size: textureInfoSize}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create texture bind group %s: %w", label, err)
	}
	e.bindGroup = bg

	ok = true
	return e, nil
}

// Free removes id and schedules its GPU objects for release. It reports
// whether id was present; freeing an absent id is a no-op.
func (r *TextureRegistry) Free(id meshpaint.TextureID) bool {
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	delete(r.entries, id)
	r.retireEntry(e)
	slogger().Debug("texture registry: freed", "id", id)
	return true
}

// Lookup returns the bind group for id.
func (r *TextureRegistry) Lookup(id meshpaint.TextureID) (hal.BindGroup, bool) {
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.bindGroup, true
}

// Contains reports whether id is registered.
func (r *TextureRegistry) Contains(id meshpaint.TextureID) bool {
	_, ok := r.entries[id]
	return ok
}

// Len returns the number of registered textures.
func (r *TextureRegistry) Len() int { return len(r.entries) }

// Destroy releases every entry and the sampler immediately. The caller must
// have waited for the device to become idle. Safe to call multiple times.
func (r *TextureRegistry) Destroy() {
	for id, e := range r.entries {
		r.destroyEntry(e)
		delete(r.entries, id)
	}
	if r.sampler != nil {
		r.device.DestroySampler(r.sampler)
		r.sampler = nil
	}
}

func (r *TextureRegistry) retireEntry(e *textureEntry) {
	r.retire.add(func() { r.destroyEntry(e) })
}

// destroyEntry releases in reverse creation order.
func (r *TextureRegistry) destroyEntry(e *textureEntry) {
	if e.bindGroup != nil {
		r.device.DestroyBindGroup(e.bindGroup)
		e.bindGroup = nil
	}
	if e.info != nil {
		r.device.DestroyBuffer(e.info)
		e.info = nil
	}
	if e.view != nil {
		r.device.DestroyTextureView(e.view)
		e.view = nil
	}
	if e.texture != nil {
		r.device.DestroyTexture(e.texture)
		e.texture = nil
	}
}
