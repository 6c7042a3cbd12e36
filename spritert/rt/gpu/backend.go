package gpu

import (
	"encoding/binary"
	"image"

	"github.com/cogentcore/webgpu/wgpu"
)

// Backend is the device, queue and presentation surface the renderer draws
// through. WgpuBackend is the production implementation.
type Backend interface {
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (Buffer, error)
	WriteBuffer(buf Buffer, offset uint64, data []byte) error
	// CreateTexture creates an RGBA8 texture and uploads img into it.
	CreateTexture(label string, img *image.RGBA) (Texture, error)
	CreateSampler(desc *wgpu.SamplerDescriptor) (Sampler, error)
	CreateBindGroupLayout(label string, entries []wgpu.BindGroupLayoutEntry) (BindGroupLayout, error)
	CreateBindGroup(label string, layout BindGroupLayout, entries []BindGroupEntry) (BindGroup, error)
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error)

	SurfaceFormat() wgpu.TextureFormat
	ConfigureSurface(width, height uint32) error
	UnconfigureSurface()
	// AcquireFrame blocks until the next presentable image is available.
	AcquireFrame() (Frame, error)
}

// Frame is one acquired presentable image and the command recording for it.
type Frame interface {
	// BeginRenderPass starts the single color pass of the frame. A nil clear
	// loads the previous contents instead of clearing.
	BeginRenderPass(clear *wgpu.Color) (RenderPass, error)
	Submit() error
	// Present hands the image to the surface and releases the frame.
	Present()
	// Discard releases the frame without presenting it.
	Discard()
}

type RenderPass interface {
	SetPipeline(p RenderPipeline)
	SetBindGroup(index uint32, bg BindGroup)
	SetVertexBuffer(slot uint32, buf Buffer)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	End() error
}

type Buffer interface {
	Size() uint64
	Release()
}

type Texture interface {
	Width() uint32
	Height() uint32
	Release()
}

type Sampler interface{ Release() }

type BindGroupLayout interface{ Release() }

type BindGroup interface{ Release() }

type RenderPipeline interface{ Release() }

// BindGroupEntry binds exactly one of Buffer, Texture or Sampler.
type BindGroupEntry struct {
	Binding uint32
	Buffer  Buffer
	Offset  uint64
	Size    uint64
	Texture Texture
	Sampler Sampler
}

// ShaderSource carries a shader as WGSL text and as compiled SPIR-V words.
// Backends build the module from SPIRV when it is set, otherwise from WGSL.
type ShaderSource struct {
	Name  string
	WGSL  string
	SPIRV []uint32
}

// SPIRVBytes returns SPIRV as little-endian bytes.
func (s ShaderSource) SPIRVBytes() []byte {
	out := make([]byte, 0, len(s.SPIRV)*4)
	for _, w := range s.SPIRV {
		out = binary.LittleEndian.AppendUint32(out, w)
	}
	return out
}

type RenderPipelineDescriptor struct {
	Label            string
	Shader           ShaderSource
	VertexEntry      string
	FragmentEntry    string
	BindGroupLayouts []BindGroupLayout
	VertexBuffers    []wgpu.VertexBufferLayout
	Blend            *wgpu.BlendState
	Primitive        wgpu.PrimitiveState
}
