// Package sprite draws instanced, textured quads grouped by texture.
package sprite

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/gekko2d/spritert/rt/core"
	"github.com/gekko3d/gekko2d/spritert/rt/gpu"
	"github.com/gekko3d/gekko2d/spritert/rt/shaders"
)

const (
	// Stride is the size of one instance record: Transform then SpriteData.
	Stride = core.TransformSize + core.SpriteDataSize
	// InitialCapacity is the byte size of the instance buffer before growth.
	InitialCapacity = 16
	// VerticesPerSprite is the vertex count of one quad, two triangles.
	VerticesPerSprite = 6
)

const (
	instanceUsage = wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	cameraUsage   = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
)

// Sprite names a texture and the region of it to draw.
type Sprite struct {
	Texture gpu.TextureHandle
	Data    core.SpriteData
}

// Instance is one drawable: where the quad goes and what it shows.
type Instance struct {
	Transform core.Transform
	Sprite    Sprite
}

// Span is a run of instances sharing a texture. End is inclusive.
type Span struct {
	Start, End uint32
	Texture    gpu.TextureHandle
}

func (s Span) Count() uint32 { return s.End - s.Start + 1 }

// Pipeline batches sprite instances into one instance buffer and draws one
// instanced call per texture run. Use gpu.GetPipeline to obtain it.
type Pipeline struct {
	ctx      *gpu.Context
	layout   gpu.BindGroupLayout
	sampler  gpu.Sampler
	pipeline gpu.RenderPipeline

	cameraBuffer   gpu.BufferHandle
	instanceBuffer gpu.BufferHandle
	capacity       uint64

	staging    []byte
	bindGroups map[gpu.TextureHandle]gpu.BindGroup
	spans      []Span
}

var _ gpu.Pipeline = (*Pipeline)(nil)

var bindGroupLayoutEntries = []wgpu.BindGroupLayoutEntry{
	{
		Binding:    0,
		Visibility: wgpu.ShaderStageVertex,
		Buffer: wgpu.BufferBindingLayout{
			Type: wgpu.BufferBindingTypeUniform,
		},
	},
	{
		Binding:    1,
		Visibility: wgpu.ShaderStageFragment,
		Texture: wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeFloat,
			ViewDimension: wgpu.TextureViewDimension2D,
		},
	},
	{
		Binding:    2,
		Visibility: wgpu.ShaderStageFragment,
		Sampler: wgpu.SamplerBindingLayout{
			Type: wgpu.SamplerBindingTypeFiltering,
		},
	},
}

var samplerDescriptor = wgpu.SamplerDescriptor{
	AddressModeU:  wgpu.AddressModeClampToEdge,
	AddressModeV:  wgpu.AddressModeClampToEdge,
	AddressModeW:  wgpu.AddressModeClampToEdge,
	MagFilter:     wgpu.FilterModeNearest,
	MinFilter:     wgpu.FilterModeLinear,
	MipmapFilter:  wgpu.MipmapFilterModeNearest,
	LodMinClamp:   0,
	LodMaxClamp:   100,
	Compare:       wgpu.CompareFunctionUndefined,
	MaxAnisotropy: 1,
}

var blendState = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOne,
		Operation: wgpu.BlendOperationAdd,
	},
}

// InstanceLayout describes the per-instance vertex buffer.
var InstanceLayout = wgpu.VertexBufferLayout{
	ArrayStride: Stride,
	StepMode:    wgpu.VertexStepModeInstance,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 2},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 48, ShaderLocation: 3},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 56, ShaderLocation: 4},
	},
}

func (p *Pipeline) Init(ctx *gpu.Context) (err error) {
	p.ctx = ctx
	p.bindGroups = make(map[gpu.TextureHandle]gpu.BindGroup)
	defer func() {
		if err != nil {
			p.Release()
		}
	}()

	src, err := shaders.Load(shaders.Sprite)
	if err != nil {
		return err
	}
	backend := ctx.Backend()

	p.layout, err = backend.CreateBindGroupLayout("sprite bind group layout", bindGroupLayoutEntries)
	if err != nil {
		return fmt.Errorf("bind group layout: %w", err)
	}
	desc := samplerDescriptor
	p.sampler, err = backend.CreateSampler(&desc)
	if err != nil {
		return fmt.Errorf("sampler: %w", err)
	}
	blend := blendState
	p.pipeline, err = backend.CreateRenderPipeline(&gpu.RenderPipelineDescriptor{
		Label:            "sprite pipeline",
		Shader:           src,
		VertexEntry:      "vs_main",
		FragmentEntry:    "fs_main",
		BindGroupLayouts: []gpu.BindGroupLayout{p.layout},
		VertexBuffers:    []wgpu.VertexBufferLayout{InstanceLayout},
		Blend:            &blend,
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
	})
	if err != nil {
		return fmt.Errorf("render pipeline: %w", err)
	}

	p.cameraBuffer, err = ctx.AllocateBuffer("sprite camera", gpu.AlignedSize(core.CameraDataSize), cameraUsage)
	if err != nil {
		return err
	}
	p.instanceBuffer, err = ctx.AllocateBuffer("sprite instances", InitialCapacity, instanceUsage)
	if err != nil {
		return err
	}
	p.capacity = InitialCapacity
	return nil
}

// UpdateElementCount grows the instance buffer, doubling its capacity until
// count records fit. It never shrinks.
func (p *Pipeline) UpdateElementCount(count int) error {
	if p.instanceBuffer == 0 {
		panic("sprite pipeline used before Init or after Release")
	}
	need := uint64(count) * Stride
	if need <= p.capacity {
		return nil
	}
	capacity := p.capacity
	for capacity < need {
		capacity *= 2
	}
	h, err := p.ctx.ReallocateBuffer(p.instanceBuffer, capacity)
	if err != nil {
		return fmt.Errorf("grow instance buffer to %d bytes: %w", capacity, err)
	}
	p.ctx.Logger().Debugf("sprite instance buffer %d -> %d bytes", p.capacity, capacity)
	p.instanceBuffer = h
	p.capacity = capacity
	return nil
}

// Prepare sorts batch by texture, keeping the relative order of sprites that
// share one, computes the draw spans and uploads camera and instance data.
// batch is reordered in place.
func (p *Pipeline) Prepare(camera core.CameraData, batch []Instance) error {
	p.spans = p.spans[:0]
	if err := p.UpdateElementCount(len(batch)); err != nil {
		return err
	}

	slices.SortStableFunc(batch, func(a, b Instance) int {
		return cmp.Compare(a.Sprite.Texture, b.Sprite.Texture)
	})

	p.staging = p.staging[:0]
	spans := p.spans
	for i, inst := range batch {
		p.staging = inst.Transform.AppendBytes(p.staging)
		p.staging = inst.Sprite.Data.AppendBytes(p.staging)

		tex := inst.Sprite.Texture
		if n := len(spans); n == 0 || spans[n-1].Texture != tex {
			if err := p.ensureBindGroup(tex); err != nil {
				return err
			}
			if n > 0 {
				spans[n-1].End = uint32(i - 1)
			}
			spans = append(spans, Span{Start: uint32(i), Texture: tex})
		}
	}
	if n := len(spans); n > 0 {
		spans[n-1].End = uint32(len(batch) - 1)
	}

	if err := p.ctx.WriteBuffer(p.cameraBuffer, 0, camera.Bytes()); err != nil {
		return fmt.Errorf("upload camera: %w", err)
	}
	if len(p.staging) > 0 {
		if err := p.ctx.WriteBuffer(p.instanceBuffer, 0, p.staging); err != nil {
			return fmt.Errorf("upload instances: %w", err)
		}
	}
	p.spans = spans
	return nil
}

// ensureBindGroup caches the bind group of texture h. A handle that was never
// loaded or has been released panics, cached or not.
func (p *Pipeline) ensureBindGroup(h gpu.TextureHandle) error {
	tex, err := p.ctx.Registry().LookupTexture(h)
	if err != nil {
		panic(fmt.Sprintf("sprite pipeline: %v", err))
	}
	if _, ok := p.bindGroups[h]; ok {
		return nil
	}
	bg, err := p.createBindGroup(h, tex)
	if err != nil {
		return err
	}
	p.bindGroups[h] = bg
	return nil
}

func (p *Pipeline) createBindGroup(h gpu.TextureHandle, tex gpu.Texture) (gpu.BindGroup, error) {
	bg, err := p.ctx.Backend().CreateBindGroup(fmt.Sprintf("sprite texture %d", h), p.layout, []gpu.BindGroupEntry{
		{Binding: 0, Buffer: p.ctx.Buffer(p.cameraBuffer), Size: core.CameraDataSize},
		{Binding: 1, Texture: tex},
		{Binding: 2, Sampler: p.sampler},
	})
	if err != nil {
		return nil, fmt.Errorf("bind group for texture %d: %w", h, err)
	}
	return bg, nil
}

// Draw records the spans computed by the last Prepare into pass. It records
// nothing when there are no spans.
func (p *Pipeline) Draw(pass gpu.RenderPass) {
	if len(p.spans) == 0 {
		return
	}
	pass.SetPipeline(p.pipeline)
	pass.SetVertexBuffer(0, p.ctx.Buffer(p.instanceBuffer))
	for _, s := range p.spans {
		pass.SetBindGroup(0, p.bindGroups[s.Texture])
		pass.Draw(VerticesPerSprite, s.Count(), 0, s.Start)
	}
}

func (p *Pipeline) Spans() []Span       { return p.spans }
func (p *Pipeline) Capacity() uint64    { return p.capacity }
func (p *Pipeline) BindGroupCount() int { return len(p.bindGroups) }

func (p *Pipeline) Release() {
	for h, bg := range p.bindGroups {
		bg.Release()
		delete(p.bindGroups, h)
	}
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	if p.sampler != nil {
		p.sampler.Release()
		p.sampler = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	if p.instanceBuffer != 0 {
		p.ctx.ReleaseBuffer(p.instanceBuffer)
		p.instanceBuffer = 0
	}
	if p.cameraBuffer != 0 {
		p.ctx.ReleaseBuffer(p.cameraBuffer)
		p.cameraBuffer = 0
	}
	p.spans = nil
	p.capacity = 0
}
