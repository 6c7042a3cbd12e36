package gpu

import (
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

type WgpuOptions struct {
	// VSync selects FIFO presentation. Otherwise Mailbox is used when the
	// surface supports it.
	VSync bool
	// PreferredFormat is used when the surface offers it, otherwise the
	// surface's first format.
	PreferredFormat wgpu.TextureFormat
}

// WgpuBackend implements Backend on a cogentcore/webgpu device.
type WgpuBackend struct {
	mu sync.Mutex

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	config   wgpu.SurfaceConfiguration

	configured bool
	frame      *wgpuFrame
}

// NewWgpuBackend requests an adapter and device able to present to the
// surface described by surfaceDescriptor.
func NewWgpuBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, opts WgpuOptions) (*WgpuBackend, error) {
	instance := wgpu.CreateInstance(nil)
	surface := instance.CreateSurface(surfaceDescriptor)

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		surface.Release()
		instance.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "gekko2d device",
	})
	if err != nil {
		adapter.Release()
		surface.Release()
		instance.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}

	caps := surface.GetCapabilities(adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		device.Release()
		adapter.Release()
		surface.Release()
		instance.Release()
		return nil, errors.New("surface is not presentable with this adapter")
	}

	format := caps.Formats[0]
	if opts.PreferredFormat != wgpu.TextureFormatUndefined && slices.Contains(caps.Formats, opts.PreferredFormat) {
		format = opts.PreferredFormat
	}
	presentMode := wgpu.PresentModeFifo
	if !opts.VSync && slices.Contains(caps.PresentModes, wgpu.PresentModeMailbox) {
		presentMode = wgpu.PresentModeMailbox
	}

	return &WgpuBackend{
		instance: instance,
		surface:  surface,
		adapter:  adapter,
		device:   device,
		queue:    device.GetQueue(),
		config: wgpu.SurfaceConfiguration{
			Usage:       wgpu.TextureUsageRenderAttachment,
			Format:      format,
			PresentMode: presentMode,
			AlphaMode:   caps.AlphaModes[0],
		},
	}, nil
}

func (b *WgpuBackend) Device() *wgpu.Device { return b.device }

func (b *WgpuBackend) SurfaceFormat() wgpu.TextureFormat { return b.config.Format }

func (b *WgpuBackend) ConfigureSurface(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.config.Width = width
	b.config.Height = height
	b.surface.Configure(b.adapter, b.device, &b.config)
	b.configured = true
	return nil
}

// UnconfigureSurface stops presenting. The surface keeps its last
// configuration until the next ConfigureSurface.
func (b *WgpuBackend) UnconfigureSurface() {
	b.mu.Lock()
	b.configured = false
	b.mu.Unlock()
}

func (b *WgpuBackend) AcquireFrame() (Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.configured {
		return nil, errors.New("surface not configured")
	}
	if b.frame != nil {
		return nil, errors.New("previous frame surface not yet presented")
	}

	texture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, err
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		texture.Release()
		return nil, err
	}

	b.frame = &wgpuFrame{backend: b, texture: texture, view: view, encoder: encoder}
	return b.frame, nil
}

func (b *WgpuBackend) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{buf: buf, size: size}, nil
}

func (b *WgpuBackend) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return b.queue.WriteBuffer(buf.(*wgpuBuffer).buf, offset, data)
}

func (b *WgpuBackend) CreateTexture(label string, img *image.RGBA) (Texture, error) {
	w := uint32(img.Rect.Dx())
	h := uint32(img.Rect.Dy())
	extent := wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	err = b.queue.WriteTexture(tex.AsImageCopy(), img.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(img.Stride),
		RowsPerImage: h,
	}, &extent)
	if err != nil {
		tex.Release()
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &wgpuTexture{tex: tex, view: view, width: w, height: h}, nil
}

func (b *WgpuBackend) CreateSampler(desc *wgpu.SamplerDescriptor) (Sampler, error) {
	s, err := b.device.CreateSampler(desc)
	if err != nil {
		return nil, err
	}
	return &wgpuSampler{s}, nil
}

func (b *WgpuBackend) CreateBindGroupLayout(label string, entries []wgpu.BindGroupLayoutEntry) (BindGroupLayout, error) {
	l, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroupLayout{l}, nil
}

func (b *WgpuBackend) CreateBindGroup(label string, layout BindGroupLayout, entries []BindGroupEntry) (BindGroup, error) {
	wentries := make([]wgpu.BindGroupEntry, len(entries))
	for i, e := range entries {
		we := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != nil:
			we.Buffer = e.Buffer.(*wgpuBuffer).buf
			we.Offset = e.Offset
			we.Size = e.Size
		case e.Texture != nil:
			we.TextureView = e.Texture.(*wgpuTexture).view
		case e.Sampler != nil:
			we.Sampler = e.Sampler.(*wgpuSampler).s
		}
		wentries[i] = we
	}
	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout.(*wgpuBindGroupLayout).l,
		Entries: wentries,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroup{bg}, nil
}

func (b *WgpuBackend) CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error) {
	moduleDesc := &wgpu.ShaderModuleDescriptor{Label: desc.Shader.Name}
	if len(desc.Shader.SPIRV) > 0 {
		moduleDesc.SPIRVDescriptor = &wgpu.ShaderModuleSPIRVDescriptor{Code: desc.Shader.SPIRVBytes()}
	} else {
		moduleDesc.WGSLDescriptor = &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Shader.WGSL}
	}
	module, err := b.device.CreateShaderModule(moduleDesc)
	if err != nil {
		return nil, fmt.Errorf("shader module %s: %w", desc.Shader.Name, err)
	}
	defer module.Release()

	layouts := make([]*wgpu.BindGroupLayout, len(desc.BindGroupLayouts))
	for i, l := range desc.BindGroupLayouts {
		layouts[i] = l.(*wgpuBindGroupLayout).l
	}
	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label + " layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, err
	}
	defer pipelineLayout.Release()

	pipeline, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntry,
			Buffers:    desc.VertexBuffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    b.config.Format,
				Blend:     desc.Blend,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: desc.Primitive,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuRenderPipeline{pipeline}, nil
}

// Release destroys the device and surface. Registry resources must be
// released first.
func (b *WgpuBackend) Release() {
	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	b.surface.Release()
	b.instance.Release()
}

type wgpuFrame struct {
	backend *WgpuBackend
	texture *wgpu.Texture
	view    *wgpu.TextureView
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
}

func (f *wgpuFrame) BeginRenderPass(clear *wgpu.Color) (RenderPass, error) {
	if f.pass != nil {
		return nil, errors.New("render pass already begun")
	}
	attachment := wgpu.RenderPassColorAttachment{
		View:    f.view,
		LoadOp:  wgpu.LoadOpLoad,
		StoreOp: wgpu.StoreOpStore,
	}
	if clear != nil {
		attachment.LoadOp = wgpu.LoadOpClear
		attachment.ClearValue = *clear
	}
	f.pass = f.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{attachment},
	})
	return &wgpuRenderPass{f.pass}, nil
}

func (f *wgpuFrame) Submit() error {
	cmd, err := f.encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer cmd.Release()
	f.backend.queue.Submit(cmd)
	return nil
}

func (f *wgpuFrame) Present() {
	b := f.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	b.surface.Present()
	f.release()
}

func (f *wgpuFrame) Discard() {
	b := f.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	f.release()
}

// release frees the frame's recording state. The caller holds backend.mu.
func (f *wgpuFrame) release() {
	b := f.backend
	if f.pass != nil {
		f.pass.Release()
	}
	f.encoder.Release()
	f.view.Release()
	f.texture.Release()
	b.frame = nil
}

type wgpuRenderPass struct {
	pass *wgpu.RenderPassEncoder
}

func (p *wgpuRenderPass) SetPipeline(pl RenderPipeline) {
	p.pass.SetPipeline(pl.(*wgpuRenderPipeline).p)
}

func (p *wgpuRenderPass) SetBindGroup(index uint32, bg BindGroup) {
	p.pass.SetBindGroup(index, bg.(*wgpuBindGroup).bg, nil)
}

func (p *wgpuRenderPass) SetVertexBuffer(slot uint32, buf Buffer) {
	p.pass.SetVertexBuffer(slot, buf.(*wgpuBuffer).buf, 0, wgpu.WholeSize)
}

func (p *wgpuRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *wgpuRenderPass) End() error { return p.pass.End() }

type wgpuBuffer struct {
	buf  *wgpu.Buffer
	size uint64
}

func (b *wgpuBuffer) Size() uint64 { return b.size }
func (b *wgpuBuffer) Release()     { b.buf.Release() }

type wgpuTexture struct {
	tex           *wgpu.Texture
	view          *wgpu.TextureView
	width, height uint32
}

func (t *wgpuTexture) Width() uint32  { return t.width }
func (t *wgpuTexture) Height() uint32 { return t.height }
func (t *wgpuTexture) Release() {
	t.view.Release()
	t.tex.Release()
}

type wgpuSampler struct{ s *wgpu.Sampler }

func (s *wgpuSampler) Release() { s.s.Release() }

type wgpuBindGroupLayout struct{ l *wgpu.BindGroupLayout }

func (l *wgpuBindGroupLayout) Release() { l.l.Release() }

type wgpuBindGroup struct{ bg *wgpu.BindGroup }

func (g *wgpuBindGroup) Release() { g.bg.Release() }

type wgpuRenderPipeline struct{ p *wgpu.RenderPipeline }

func (p *wgpuRenderPipeline) Release() { p.p.Release() }
