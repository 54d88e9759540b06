package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/meshpaint"
	"github.com/gogpu/wgpu/hal"
)

// screenUniformSize is the byte size of the Locals uniform in mesh.wgsl:
// screen_size (vec2<f32>), pixels_per_point (f32) and one f32 of padding.
const screenUniformSize = 16

// Pipeline errors.
var (
	// ErrInvalidSampleCount is returned for a sample count that is not a
	// power of two between 1 and 16.
	ErrInvalidSampleCount = errors.New("gpu: invalid sample count")

	// ErrUndefinedFormat is returned when no output format is configured.
	ErrUndefinedFormat = errors.New("gpu: output format is undefined")
)

// PipelineConfig configures the mesh render pipeline.
type PipelineConfig struct {
	// OutputFormat is the format of the render target. sRGB formats select
	// the vs_main vertex entry point, all others vs_conv_main.
	OutputFormat gputypes.TextureFormat

	// SampleCount is the MSAA sample count of the render target.
	// Default: 1
	SampleCount uint32

	// PrecompileSPIRV passes SPIR-V compiled by naga to the device instead
	// of WGSL source.
	PrecompileSPIRV bool
}

// DefaultPipelineConfig returns the default configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		OutputFormat: gputypes.TextureFormatBGRA8UnormSrgb,
		SampleCount:  1,
	}
}

// Pipeline owns the render pipeline used for every mesh, its layouts and the
// screen size uniform with its bind group (group 0).
type Pipeline struct {
	device hal.Device
	queue  hal.Queue
	config PipelineConfig

	shader         hal.ShaderModule
	uniformLayout  hal.BindGroupLayout
	textureLayout  hal.BindGroupLayout
	pipeLayout     hal.PipelineLayout
	pipeline       hal.RenderPipeline
	uniformBuffer  hal.Buffer
	uniformBind    hal.BindGroup
	lastScreenSize [2]float32
	lastPPP        float32
}

// NewPipeline validates the mesh shader and creates every pipeline object.
// On error nothing is left allocated.
func NewPipeline(device hal.Device, queue hal.Queue, config PipelineConfig) (*Pipeline, error) {
	if config.SampleCount == 0 {
		config.SampleCount = 1
	}
	if config.SampleCount > 16 || config.SampleCount&(config.SampleCount-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleCount, config.SampleCount)
	}
	if config.OutputFormat == gputypes.TextureFormatUndefined {
		return nil, ErrUndefinedFormat
	}
	if err := checkShader(meshShaderSource); err != nil {
		return nil, err
	}

	p := &Pipeline{device: device, queue: queue, config: config}
	if err := p.create(); err != nil {
		p.Destroy()
		return nil, err
	}
	slogger().Info("mesh pipeline created",
		"format", config.OutputFormat,
		"vertex_entry", p.VertexEntryPoint(),
		"samples", config.SampleCount,
		"spirv", config.PrecompileSPIRV)
	return p, nil
}

func (p *Pipeline) create() error {
	source := hal.ShaderSource{WGSL: meshShaderSource}
	if p.config.PrecompileSPIRV {
		words, err := compileSPIRV(meshShaderSource)
		if err != nil {
			return err
		}
		source = hal.ShaderSource{SPIRV: words}
	}
	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "mesh_shader",
		Source: source,
	})
	if err != nil {
		return fmt.Errorf("gpu: create mesh shader: %w", err)
	}
	p.shader = shader

	// Group 0: Locals (screen size), vertex stage.
	uniformLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "mesh_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create mesh uniform layout: %w", err)
	}
	p.uniformLayout = uniformLayout

	// Group 1: texture, sampler, TextureInfo, fragment stage.
	textureLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "mesh_texture_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Buffer: &gputypes.BufferBindingLayout{
					Type:           gputypes.BufferBindingTypeUniform,
					MinBindingSize: textureInfoSize,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create mesh texture layout: %w", err)
	}
	p.textureLayout = textureLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "mesh_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.uniformLayout, p.textureLayout},
	})
	if err != nil {
		return fmt.Errorf("gpu: create mesh pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	blend := meshBlendState()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "mesh_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: p.VertexEntryPoint(),
			Buffers:    meshVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: entryFragment,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    p.config.OutputFormat,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: p.config.SampleCount,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create mesh pipeline: %w", err)
	}
	p.pipeline = pipeline

	uniformBuffer, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mesh_uniform_buffer",
		Size:  screenUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create mesh uniform buffer: %w", err)
	}
	p.uniformBuffer = uniformBuffer

	uniformBind, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "mesh_uniform_bind",
		Layout: p.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: uniformBuffer.NativeHandle(), Offset: 0, Size: screenUniformSize,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create mesh uniform bind group: %w", err)
	}
	p.uniformBind = uniformBind
	return nil
}

// WriteScreenSize stores the render target size in physical pixels and the
// pixels-per-point scale into the screen size uniform. The vertex stage
// divides one by the other to map logical points to clip space. A zero
// scale is written as 1.
func (p *Pipeline) WriteScreenSize(width, height uint32, pixelsPerPoint float32) error {
	if pixelsPerPoint == 0 {
		pixelsPerPoint = 1
	}
	size := [2]float32{float32(width), float32(height)}
	data := make([]byte, screenUniformSize)
	binary.LittleEndian.PutUint32(data[0:], math.Float32bits(size[0]))
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(size[1]))
	binary.LittleEndian.PutUint32(data[8:], math.Float32bits(pixelsPerPoint))
	if err := p.queue.WriteBuffer(p.uniformBuffer, 0, data); err != nil {
		return fmt.Errorf("gpu: write screen size: %w", err)
	}
	p.lastScreenSize = size
	p.lastPPP = pixelsPerPoint
	return nil
}

// ScreenSize returns the size last written by WriteScreenSize.
func (p *Pipeline) ScreenSize() [2]float32 { return p.lastScreenSize }

// PixelsPerPoint returns the scale last written by WriteScreenSize.
func (p *Pipeline) PixelsPerPoint() float32 { return p.lastPPP }

// VertexEntryPoint returns the vertex entry point used for the configured
// output format.
func (p *Pipeline) VertexEntryPoint() string {
	if p.config.OutputFormat.IsSrgb() {
		return entryVertexSRGB
	}
	return entryVertexLinear
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() PipelineConfig { return p.config }

// TextureLayout returns the layout of bind group 1.
func (p *Pipeline) TextureLayout() hal.BindGroupLayout { return p.textureLayout }

// Destroy releases all pipeline objects in reverse creation order. Safe to
// call multiple times.
func (p *Pipeline) Destroy() {
	if p.device == nil {
		return
	}
	if p.uniformBind != nil {
		p.device.DestroyBindGroup(p.uniformBind)
		p.uniformBind = nil
	}
	if p.uniformBuffer != nil {
		p.device.DestroyBuffer(p.uniformBuffer)
		p.uniformBuffer = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.textureLayout != nil {
		p.device.DestroyBindGroupLayout(p.textureLayout)
		p.textureLayout = nil
	}
	if p.uniformLayout != nil {
		p.device.DestroyBindGroupLayout(p.uniformLayout)
		p.uniformLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// meshBlendState blends premultiplied color over the target.
// Alpha is OneMinusDstAlpha * src + dst.
func meshBlendState() gputypes.BlendState {
	return gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOneMinusDstAlpha,
			DstFactor: gputypes.BlendFactorOne,
			Operation: gputypes.BlendOperationAdd,
		},
	}
}

// meshVertexLayout matches the vertex inputs of mesh.wgsl and the encoding
// of meshpaint.Mesh.VertexBytes:
//
//	location 0: position  (Float32x2) offset 0
//	location 1: tex_coord (Float32x2) offset 8
//	location 2: color     (Uint32)    offset 16
func meshVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: meshpaint.VertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
				{Format: gputypes.VertexFormatUint32, Offset: 16, ShaderLocation: 2},
			},
		},
	}
}
