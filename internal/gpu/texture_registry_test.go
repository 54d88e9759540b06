package gpu

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/meshpaint"
	"github.com/gogpu/wgpu/hal"
)

func newTestRegistry(t *testing.T) (*TextureRegistry, *recordingDevice, *retireQueue) {
	t.Helper()
	device, queue := newRecordingDevice(t)
	layout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{Label: "test_texture_layout"})
	if err != nil {
		t.Fatalf("CreateBindGroupLayout: %v", err)
	}
	retire := &retireQueue{}
	reg, err := NewTextureRegistry(device, queue, layout, gputypes.FilterModeLinear, retire)
	if err != nil {
		t.Fatalf("NewTextureRegistry: %v", err)
	}
	t.Cleanup(reg.Destroy)
	return reg, device, retire
}

func components(t *testing.T, reg *TextureRegistry, device hal.Device, id meshpaint.TextureID) uint32 {
	t.Helper()
	e, ok := reg.entries[id]
	if !ok {
		t.Fatalf("%s not registered", id)
	}
	return binary.LittleEndian.Uint32(readBuffer(t, device, e.info, textureInfoSize))
}

func TestTextureRegistryUploadColor(t *testing.T) {
	reg, device, _ := newTestRegistry(t)
	id := meshpaint.ManagedTexture(0)

	img := meshpaint.NewColorImage(4, 2)
	img.Set(1, 1, meshpaint.White)
	if err := reg.Upload(id, meshpaint.FullDelta(img)); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !reg.Contains(id) || reg.Len() != 1 {
		t.Fatalf("Contains=%v Len=%d", reg.Contains(id), reg.Len())
	}
	e := reg.entries[id]
	if e.format != gputypes.TextureFormatRGBA8UnormSrgb || e.width != 4 || e.height != 2 {
		t.Errorf("entry = %v %dx%d", e.format, e.width, e.height)
	}
	if got := components(t, reg, device, id); got != 4 {
		t.Errorf("components = %d, want 4", got)
	}
	bg, ok := reg.Lookup(id)
	if !ok || bg == nil {
		t.Fatal("Lookup failed after upload")
	}
	if tb := bg.(*taggedBindGroup); tb.label != "mesh_texture_bind_managed#0" {
		t.Errorf("bind group label = %q", tb.label)
	}
}

func TestTextureRegistryUploadAlpha(t *testing.T) {
	reg, device, _ := newTestRegistry(t)
	id := meshpaint.UserTexture(7)
	if err := reg.Upload(id, meshpaint.FullDelta(meshpaint.NewAlphaImage(3, 3))); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if e := reg.entries[id]; e.format != gputypes.TextureFormatR8Unorm {
		t.Errorf("format = %v, want R8Unorm", e.format)
	}
	if got := components(t, reg, device, id); got != 1 {
		t.Errorf("components = %d, want 1", got)
	}
}

func TestTextureRegistryTexelMismatchPanics(t *testing.T) {
	reg, device, _ := newTestRegistry(t)
	before := device.createdBuffers

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, meshpaint.ErrTexelCountMismatch) {
			t.Fatalf("recovered %v, want ErrTexelCountMismatch", r)
		}
		if device.createdBuffers != before || reg.Len() != 0 {
			t.Error("GPU objects created for a malformed image")
		}
	}()

	img := &meshpaint.ColorImage{Width: 2, Height: 2, Pixels: make([]meshpaint.Color32, 3)}
	_ = reg.Upload(meshpaint.ManagedTexture(1), meshpaint.FullDelta(img))
	t.Fatal("Upload did not panic")
}

func TestTextureRegistryRejects(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	id := meshpaint.ManagedTexture(0)

	if err := reg.Upload(id, meshpaint.ImageDelta{}); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("nil image: %v", err)
	}
	empty := &meshpaint.AlphaImage{}
	if err := reg.Upload(id, meshpaint.FullDelta(empty)); !errors.Is(err, meshpaint.ErrEmptyImage) {
		t.Errorf("empty image: %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d after rejected uploads", reg.Len())
	}
}

func TestTextureRegistryReplaceRetiresOld(t *testing.T) {
	reg, device, retire := newTestRegistry(t)
	id := meshpaint.ManagedTexture(0)

	if err := reg.Upload(id, meshpaint.FullDelta(meshpaint.NewColorImage(2, 2))); err != nil {
		t.Fatal(err)
	}
	old, _ := reg.Lookup(id)
	if err := reg.Upload(id, meshpaint.FullDelta(meshpaint.NewColorImage(8, 8))); err != nil {
		t.Fatal(err)
	}
	current, _ := reg.Lookup(id)
	if current == old {
		t.Fatal("replacement kept the old bind group")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
	if device.bindGroupDestroyed(old) {
		t.Error("old bind group destroyed before the frame completed")
	}
	retire.seal(1)
	retire.collect(1)
	if !device.bindGroupDestroyed(old) {
		t.Error("old bind group not destroyed after completion")
	}
	if device.bindGroupDestroyed(current) {
		t.Error("current bind group destroyed")
	}
}

func TestTextureRegistryFree(t *testing.T) {
	reg, device, retire := newTestRegistry(t)
	id := meshpaint.UserTexture(3)
	if err := reg.Upload(id, meshpaint.FullDelta(meshpaint.NewAlphaImage(1, 1))); err != nil {
		t.Fatal(err)
	}
	bg, _ := reg.Lookup(id)

	if !reg.Free(id) {
		t.Fatal("Free() = false for a registered id")
	}
	if reg.Free(id) {
		t.Error("second Free() = true")
	}
	if reg.Free(meshpaint.ManagedTexture(99)) {
		t.Error("Free() of an unknown id = true")
	}
	if _, ok := reg.Lookup(id); ok {
		t.Error("Lookup succeeded after Free")
	}
	if retire.len() != 1 {
		t.Fatalf("retired %d entries, want 1", retire.len())
	}
	retire.seal(1)
	retire.collect(1)
	if !device.bindGroupDestroyed(bg) {
		t.Error("freed bind group never destroyed")
	}
}

func TestTextureRegistryFailureKeepsPrevious(t *testing.T) {
	reg, device, retire := newTestRegistry(t)
	id := meshpaint.ManagedTexture(0)
	if err := reg.Upload(id, meshpaint.FullDelta(meshpaint.NewColorImage(2, 2))); err != nil {
		t.Fatal(err)
	}
	prev, _ := reg.Lookup(id)
	buffersBefore := len(device.destroyedBuffers)
	texturesBefore := device.destroyedTextures

	device.failBindGroups = true
	err := reg.Upload(id, meshpaint.FullDelta(meshpaint.NewColorImage(4, 4)))
	if !errors.Is(err, errInjected) {
		t.Fatalf("Upload() = %v, want injected error", err)
	}
	if got, _ := reg.Lookup(id); got != prev {
		t.Error("failed upload replaced the previous entry")
	}
	if retire.len() != 0 {
		t.Error("failed upload retired the previous entry")
	}
	// The partial entry is torn down immediately.
	if len(device.destroyedBuffers) != buffersBefore+1 || device.destroyedTextures != texturesBefore+1 {
		t.Errorf("partial entry cleanup: buffers %d->%d textures %d->%d",
			buffersBefore, len(device.destroyedBuffers), texturesBefore, device.destroyedTextures)
	}

	device.failBindGroups = false
	device.failTextures = true
	if err := reg.Upload(meshpaint.ManagedTexture(1), meshpaint.FullDelta(meshpaint.NewColorImage(1, 1))); !errors.Is(err, errInjected) {
		t.Errorf("Upload() with texture failure = %v", err)
	}
	if reg.Contains(meshpaint.ManagedTexture(1)) {
		t.Error("failed upload registered an id")
	}
}

func TestTextureRegistryDestroy(t *testing.T) {
	reg, device, _ := newTestRegistry(t)
	for i := range 3 {
		if err := reg.Upload(meshpaint.ManagedTexture(uint64(i)), meshpaint.FullDelta(meshpaint.NewAlphaImage(2, 2))); err != nil {
			t.Fatal(err)
		}
	}
	reg.Destroy()
	reg.Destroy()
	if reg.Len() != 0 {
		t.Errorf("Len() after Destroy = %d", reg.Len())
	}
	if len(device.destroyedBindGroups) != 3 || device.destroyedTextures != 3 {
		t.Errorf("destroyed %d bind groups and %d textures, want 3 each",
			len(device.destroyedBindGroups), device.destroyedTextures)
	}
}
