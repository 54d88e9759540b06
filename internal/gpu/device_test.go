package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop HAL device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

var errInjected = errors.New("injected failure")

// taggedBindGroup is a bind group with identity. Noop bind groups are
// zero-size values and cannot be told apart.
type taggedBindGroup struct {
	id    int
	label string
}

func (*taggedBindGroup) Destroy() {}

// taggedView is a texture view with identity.
type taggedView struct{ id int }

func (*taggedView) Destroy()              {}
func (*taggedView) NativeHandle() uintptr { return 0 }

// recordingDevice wraps a noop device, records resource lifetimes and
// render passes, and can inject creation failures.
type recordingDevice struct {
	hal.Device

	nextID int
	passes []*recordingPass

	createdBuffers      int
	destroyedBuffers    []hal.Buffer
	destroyedBindGroups []hal.BindGroup
	destroyedTextures   int
	createdEncoders     int
	destroyedEncoders   int

	failTextures   bool
	failBindGroups bool
	failBuffers    bool
}

func newRecordingDevice(t *testing.T) (*recordingDevice, *recordingQueue) {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)
	return &recordingDevice{Device: device}, &recordingQueue{Queue: queue}
}

func (d *recordingDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if d.failBuffers {
		return nil, errInjected
	}
	d.createdBuffers++
	return d.Device.CreateBuffer(desc)
}

func (d *recordingDevice) DestroyBuffer(b hal.Buffer) {
	d.destroyedBuffers = append(d.destroyedBuffers, b)
	d.Device.DestroyBuffer(b)
}

func (d *recordingDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if d.failTextures {
		return nil, errInjected
	}
	return d.Device.CreateTexture(desc)
}

func (d *recordingDevice) DestroyTexture(tex hal.Texture) {
	d.destroyedTextures++
	d.Device.DestroyTexture(tex)
}

func (d *recordingDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	if d.failBindGroups {
		return nil, errInjected
	}
	d.nextID++
	return &taggedBindGroup{id: d.nextID, label: desc.Label}, nil
}

func (d *recordingDevice) DestroyBindGroup(bg hal.BindGroup) {
	d.destroyedBindGroups = append(d.destroyedBindGroups, bg)
}

func (d *recordingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	d.createdEncoders++
	return &recordingEncoder{CommandEncoder: enc, device: d}, nil
}

func (d *recordingDevice) lastPass(t *testing.T) *recordingPass {
	t.Helper()
	if len(d.passes) == 0 {
		t.Fatal("no render pass recorded")
	}
	return d.passes[len(d.passes)-1]
}

func (d *recordingDevice) bindGroupDestroyed(bg hal.BindGroup) bool {
	for _, b := range d.destroyedBindGroups {
		if b == bg {
			return true
		}
	}
	return false
}

func (d *recordingDevice) bufferDestroyed(buf hal.Buffer) bool {
	for _, b := range d.destroyedBuffers {
		if b == buf {
			return true
		}
	}
	return false
}

// newView returns a distinct texture view to use as a render target.
func (d *recordingDevice) newView() hal.TextureView {
	d.nextID++
	return &taggedView{id: d.nextID}
}

type recordingEncoder struct {
	hal.CommandEncoder
	device *recordingDevice
}

func (e *recordingEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	rp := &recordingPass{
		RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc),
		desc:              *desc,
		groups:            make(map[uint32]hal.BindGroup),
	}
	e.device.passes = append(e.device.passes, rp)
	return rp
}

func (e *recordingEncoder) Destroy() {
	e.device.destroyedEncoders++
	e.CommandEncoder.Destroy()
}

type drawCall struct {
	scissor    [4]uint32
	pipeline   hal.RenderPipeline
	uniforms   hal.BindGroup
	texture    hal.BindGroup
	vertex     hal.Buffer
	index      hal.Buffer
	format     gputypes.IndexFormat
	indexCount uint32
	instances  uint32
}

type recordingPass struct {
	hal.RenderPassEncoder
	desc hal.RenderPassDescriptor

	pipeline hal.RenderPipeline
	scissor  [4]uint32
	groups   map[uint32]hal.BindGroup
	vertex   hal.Buffer
	index    hal.Buffer
	format   gputypes.IndexFormat
	draws    []drawCall
	ended    bool
}

func (p *recordingPass) SetPipeline(pipeline hal.RenderPipeline) { p.pipeline = pipeline }

func (p *recordingPass) SetBindGroup(index uint32, group hal.BindGroup, _ []uint32) {
	p.groups[index] = group
}

func (p *recordingPass) SetVertexBuffer(_ uint32, buffer hal.Buffer, _ uint64) { p.vertex = buffer }

func (p *recordingPass) SetIndexBuffer(buffer hal.Buffer, format gputypes.IndexFormat, _ uint64) {
	p.index = buffer
	p.format = format
}

func (p *recordingPass) SetScissorRect(x, y, w, h uint32) { p.scissor = [4]uint32{x, y, w, h} }

func (p *recordingPass) DrawIndexed(indexCount, instanceCount, _ uint32, _ int32, _ uint32) {
	p.draws = append(p.draws, drawCall{
		scissor:    p.scissor,
		pipeline:   p.pipeline,
		uniforms:   p.groups[0],
		texture:    p.groups[1],
		vertex:     p.vertex,
		index:      p.index,
		format:     p.format,
		indexCount: indexCount,
		instances:  instanceCount,
	})
}

func (p *recordingPass) End() {
	p.ended = true
	p.RenderPassEncoder.End()
}

// recordingQueue counts submissions and lets tests hold back completion.
type recordingQueue struct {
	hal.Queue

	submits   int
	submitted uint64
	// lag is how many submissions stay in flight.
	lag        uint64
	failSubmit bool
	// suppressed records SetSwapchainSuppressed calls.
	suppressed []bool
}

func (q *recordingQueue) SetSwapchainSuppressed(v bool) {
	q.suppressed = append(q.suppressed, v)
	q.Queue.SetSwapchainSuppressed(v)
}

func (q *recordingQueue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	if q.failSubmit {
		return 0, errInjected
	}
	q.submits++
	index, err := q.Queue.Submit(cmds)
	q.submitted = index
	return index, err
}

func (q *recordingQueue) PollCompleted() uint64 {
	if q.submitted < q.lag {
		return 0
	}
	return q.submitted - q.lag
}
