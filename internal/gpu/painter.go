package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/meshpaint"
	"github.com/gogpu/wgpu/hal"
)

// Painter errors.
var (
	// ErrPainterDestroyed is returned when painting after Destroy.
	ErrPainterDestroyed = errors.New("gpu: painter destroyed")

	// ErrInvalidTarget is returned for a target without a view or with a
	// zero dimension.
	ErrInvalidTarget = errors.New("gpu: invalid render target")
)

// Target is the texture a frame is drawn into.
type Target struct {
	// View is the color attachment.
	View hal.TextureView

	// ResolveTarget receives the resolved image when View is multisampled.
	ResolveTarget hal.TextureView

	// Width and Height are the attachment size in physical pixels.
	Width, Height uint32

	// ClearColor clears the attachment before drawing when non-nil.
	// Otherwise the existing contents are loaded.
	ClearColor *gputypes.Color

	// Offscreen marks a target that is not a swapchain image. The submit
	// then skips swapchain synchronization.
	Offscreen bool
}

// FrameStats describes the work done by one Paint call.
type FrameStats struct {
	Meshes            int    // meshes in the frame
	DrawCalls         int    // DrawIndexed calls recorded
	SkippedEmpty      int    // meshes without indices
	SkippedClip       int    // meshes whose clip rect has no area on the target
	SkippedTexture    int    // meshes referencing an unknown texture
	BufferAllocations int    // vertex and index buffers created or replaced
	TextureUploads    int    // entries of the delta's set list uploaded
	TextureFrees      int    // registered textures freed
	Released          int    // deferred releases run at frame start
	SubmissionIndex   uint64 // index returned by Queue.Submit
}

// PainterConfig configures a Painter.
type PainterConfig struct {
	Pipeline PipelineConfig

	// SamplerFilter is used for magnification, minification and mipmaps.
	// Default: gputypes.FilterModeLinear
	SamplerFilter gputypes.FilterMode
}

// DefaultPainterConfig returns the default configuration.
func DefaultPainterConfig() PainterConfig {
	return PainterConfig{
		Pipeline:      DefaultPipelineConfig(),
		SamplerFilter: gputypes.FilterModeLinear,
	}
}

// Painter turns FrameOutput into one submitted command buffer per frame.
//
// Each Paint runs these steps strictly in order:
//
//  1. upload every texture in the delta's set list
//  2. write the target size into the screen size uniform
//  3. write every mesh's vertices and indices into the buffer pools
//  4. record one render pass with a scissored draw per mesh
//  5. free every texture in the delta's free list
//  6. submit
//
// A texture uploaded and freed in the same frame is therefore drawn with
// the fresh upload and released only after the GPU has finished with it.
type Painter struct {
	device hal.Device
	queue  hal.Queue

	pipeline *Pipeline
	textures *TextureRegistry
	vertices *BufferPool
	indices  *BufferPool

	retire   retireQueue
	encoders []hal.CommandEncoder

	destroyed bool
}

// NewPainter creates the pipeline, texture registry and buffer pools.
func NewPainter(device hal.Device, queue hal.Queue, config PainterConfig) (*Painter, error) {
	if config.SamplerFilter == gputypes.FilterModeUndefined {
		config.SamplerFilter = gputypes.FilterModeLinear
	}
	pipeline, err := NewPipeline(device, queue, config.Pipeline)
	if err != nil {
		return nil, err
	}
	p := &Painter{
		device:   device,
		queue:    queue,
		pipeline: pipeline,
	}
	p.textures, err = NewTextureRegistry(device, queue, pipeline.TextureLayout(), config.SamplerFilter, &p.retire)
	if err != nil {
		pipeline.Destroy()
		return nil, err
	}
	p.vertices = NewBufferPool(device, queue, "mesh_vertex", gputypes.BufferUsageVertex, &p.retire)
	p.indices = NewBufferPool(device, queue, "mesh_index", gputypes.BufferUsageIndex, &p.retire)
	return p, nil
}

// Paint records and submits one frame into target.
//
// A GPU failure aborts the frame: the error is returned and nothing is
// submitted. Textures uploaded before the failure stay registered.
func (p *Painter) Paint(target Target, frame meshpaint.FrameOutput) (FrameStats, error) {
	var stats FrameStats
	if p.destroyed {
		return stats, ErrPainterDestroyed
	}
	if target.View == nil || target.Width == 0 || target.Height == 0 {
		return stats, fmt.Errorf("%w: view=%v size=%dx%d", ErrInvalidTarget, target.View != nil, target.Width, target.Height)
	}
	stats.Meshes = len(frame.Meshes)
	stats.Released = p.retire.collect(p.queue.PollCompleted())

	// 1. Texture sync.
	for _, set := range frame.Textures.Set {
		if err := p.textures.Upload(set.ID, set.Delta); err != nil {
			return stats, err
		}
		stats.TextureUploads++
	}

	// 2. Uniform update.
	if err := p.pipeline.WriteScreenSize(target.Width, target.Height, frame.PixelsPerPoint); err != nil {
		return stats, err
	}

	// 3. Buffer upload.
	for i := range frame.Meshes {
		mesh := &frame.Meshes[i].Mesh
		created, err := p.vertices.WriteAt(i, mesh.VertexBytes())
		if err != nil {
			return stats, err
		}
		if created {
			stats.BufferAllocations++
		}
		created, err = p.indices.WriteAt(i, mesh.IndexBytes())
		if err != nil {
			return stats, err
		}
		if created {
			stats.BufferAllocations++
		}
	}

	// 4. Draw.
	encoder, err := p.acquireEncoder()
	if err != nil {
		return stats, err
	}
	if err := encoder.BeginEncoding("mesh_frame"); err != nil {
		p.encoders = append(p.encoders, encoder)
		return stats, fmt.Errorf("gpu: begin encoding: %w", err)
	}
	p.recordPass(encoder, target, frame, &stats)
	cmd, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		p.encoders = append(p.encoders, encoder)
		return stats, fmt.Errorf("gpu: end encoding: %w", err)
	}

	// 5. Texture teardown.
	for _, id := range frame.Textures.Free {
		if p.textures.Free(id) {
			stats.TextureFrees++
		}
	}

	// 6. Submit.
	if target.Offscreen {
		p.queue.SetSwapchainSuppressed(true)
		defer p.queue.SetSwapchainSuppressed(false)
	}
	index, err := p.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		encoder.ResetAll([]hal.CommandBuffer{cmd})
		p.encoders = append(p.encoders, encoder)
		return stats, fmt.Errorf("gpu: submit: %w", err)
	}
	p.retire.add(func() {
		encoder.ResetAll([]hal.CommandBuffer{cmd})
		p.encoders = append(p.encoders, encoder)
	})
	p.retire.seal(index)
	stats.SubmissionIndex = index

	slogger().Debug("frame painted",
		"meshes", stats.Meshes,
		"draws", stats.DrawCalls,
		"skipped_clip", stats.SkippedClip,
		"skipped_texture", stats.SkippedTexture,
		"allocations", stats.BufferAllocations,
		"uploads", stats.TextureUploads,
		"frees", stats.TextureFrees,
		"submission", index)
	return stats, nil
}

// recordPass records the render pass of step 4.
func (p *Painter) recordPass(encoder hal.CommandEncoder, target Target, frame meshpaint.FrameOutput, stats *FrameStats) {
	attachment := hal.RenderPassColorAttachment{
		View:          target.View,
		ResolveTarget: target.ResolveTarget,
		LoadOp:        gputypes.LoadOpLoad,
		StoreOp:       gputypes.StoreOpStore,
	}
	if target.ClearColor != nil {
		attachment.LoadOp = gputypes.LoadOpClear
		attachment.ClearValue = *target.ClearColor
	}
	pass := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            "mesh_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{attachment},
	})
	defer pass.End()

	pass.SetPipeline(p.pipeline.pipeline)
	pass.SetBindGroup(0, p.pipeline.uniformBind, nil)

	for i := range frame.Meshes {
		cm := &frame.Meshes[i]
		if cm.Mesh.IsEmpty() {
			stats.SkippedEmpty++
			continue
		}
		scissor, ok := meshpaint.ClipScissor(cm.ClipRect, frame.PixelsPerPoint, target.Width, target.Height)
		if !ok {
			stats.SkippedClip++
			continue
		}
		bindGroup, ok := p.textures.Lookup(cm.Mesh.TextureID)
		if !ok {
			stats.SkippedTexture++
			slogger().Debug("mesh skipped: texture not registered", "mesh", i, "texture", cm.Mesh.TextureID)
			continue
		}

		pass.SetScissorRect(scissor.X, scissor.Y, scissor.Width, scissor.Height)
		pass.SetBindGroup(1, bindGroup, nil)
		pass.SetVertexBuffer(0, p.vertices.Buffer(i), 0)
		pass.SetIndexBuffer(p.indices.Buffer(i), gputypes.IndexFormatUint32, 0)
		pass.DrawIndexed(uint32(len(cm.Mesh.Indices)), 1, 0, 0, 0) //nolint:gosec // index count fits uint32
		stats.DrawCalls++
	}
}

func (p *Painter) acquireEncoder() (hal.CommandEncoder, error) {
	if n := len(p.encoders); n > 0 {
		enc := p.encoders[n-1]
		p.encoders = p.encoders[:n-1]
		return enc, nil
	}
	enc, err := p.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "mesh_frame_encoder"})
	if err != nil {
		return nil, fmt.Errorf("gpu: create command encoder: %w", err)
	}
	return enc, nil
}

// Pipeline returns the mesh pipeline.
func (p *Painter) Pipeline() *Pipeline { return p.pipeline }

// Textures returns the texture registry.
func (p *Painter) Textures() *TextureRegistry { return p.textures }

// VertexPool returns the vertex buffer pool.
func (p *Painter) VertexPool() *BufferPool { return p.vertices }

// IndexPool returns the index buffer pool.
func (p *Painter) IndexPool() *BufferPool { return p.indices }

// PendingReleases returns the number of deferred releases not yet run.
func (p *Painter) PendingReleases() int { return p.retire.len() }

// Destroy waits for the device to become idle and releases everything the
// painter owns. Safe to call multiple times.
func (p *Painter) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	if err := p.device.WaitIdle(); err != nil {
		slogger().Warn("painter destroy: wait idle failed", "err", err)
	}
	released := p.retire.drain()
	for _, enc := range p.encoders {
		enc.Destroy()
	}
	p.encoders = nil
	p.vertices.Destroy()
	p.indices.Destroy()
	p.textures.Destroy()
	p.pipeline.Destroy()
	slogger().Info("painter destroyed", "deferred_released", released)
}
