// Package gputest provides an in-memory gpu.Backend that records what the
// renderer asks of it.
package gputest

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/gekko2d/spritert/rt/gpu"
)

// Backend records resource creation and render pass commands. Failure hooks
// let tests inject errors.
type Backend struct {
	mu sync.Mutex

	Format     wgpu.TextureFormat
	Configured bool
	Width      uint32
	Height     uint32

	Buffers          []*Buffer
	Textures         []*Texture
	Samplers         int
	BindGroupLayouts int
	BindGroups       []*BindGroup
	Pipelines        []*gpu.RenderPipelineDescriptor

	Frames    []*Frame
	Presented int
	Discarded int

	FailAcquire       error
	FailCreateBuffer  error
	FailCreateTexture error
	FailBindGroup     error
	FailSubmit        error
}

var _ gpu.Backend = (*Backend)(nil)

func NewBackend() *Backend {
	return &Backend{Format: wgpu.TextureFormatBGRA8Unorm}
}

func (b *Backend) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (gpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailCreateBuffer != nil {
		return nil, b.FailCreateBuffer
	}
	buf := &Buffer{Label: label, Usage: usage, Data: make([]byte, size)}
	b.Buffers = append(b.Buffers, buf)
	return buf, nil
}

func (b *Backend) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error {
	fb := buf.(*Buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if fb.Released {
		return errors.New("write to released buffer")
	}
	if offset+uint64(len(data)) > uint64(len(fb.Data)) {
		return fmt.Errorf("write of %d bytes at %d overflows %d byte buffer", len(data), offset, len(fb.Data))
	}
	copy(fb.Data[offset:], data)
	fb.Writes++
	return nil
}

func (b *Backend) CreateTexture(label string, img *image.RGBA) (gpu.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailCreateTexture != nil {
		return nil, b.FailCreateTexture
	}
	tex := &Texture{
		Label: label,
		W:     uint32(img.Rect.Dx()),
		H:     uint32(img.Rect.Dy()),
		Pix:   append([]byte(nil), img.Pix...),
	}
	b.Textures = append(b.Textures, tex)
	return tex, nil
}

func (b *Backend) CreateSampler(*wgpu.SamplerDescriptor) (gpu.Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Samplers++
	return &resource{}, nil
}

func (b *Backend) CreateBindGroupLayout(string, []wgpu.BindGroupLayoutEntry) (gpu.BindGroupLayout, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.BindGroupLayouts++
	return &resource{}, nil
}

func (b *Backend) CreateBindGroup(label string, _ gpu.BindGroupLayout, entries []gpu.BindGroupEntry) (gpu.BindGroup, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailBindGroup != nil {
		return nil, b.FailBindGroup
	}
	bg := &BindGroup{Label: label, Entries: entries}
	b.BindGroups = append(b.BindGroups, bg)
	return bg, nil
}

func (b *Backend) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Pipelines = append(b.Pipelines, desc)
	return &resource{}, nil
}

func (b *Backend) SurfaceFormat() wgpu.TextureFormat { return b.Format }

func (b *Backend) ConfigureSurface(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Configured = true
	b.Width, b.Height = width, height
	return nil
}

func (b *Backend) UnconfigureSurface() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Configured = false
}

func (b *Backend) AcquireFrame() (gpu.Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailAcquire != nil {
		return nil, b.FailAcquire
	}
	f := &Frame{backend: b}
	b.Frames = append(b.Frames, f)
	return f, nil
}

// LiveBuffers returns the buffers that have not been released.
func (b *Backend) LiveBuffers() []*Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	var live []*Buffer
	for _, buf := range b.Buffers {
		if !buf.Released {
			live = append(live, buf)
		}
	}
	return live
}

// LastFrame returns the most recently acquired frame, or nil.
func (b *Backend) LastFrame() *Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Frames) == 0 {
		return nil
	}
	return b.Frames[len(b.Frames)-1]
}

type Buffer struct {
	Label    string
	Usage    wgpu.BufferUsage
	Data     []byte
	Writes   int
	Released bool
}

func (b *Buffer) Size() uint64 { return uint64(len(b.Data)) }
func (b *Buffer) Release()     { b.Released = true }

type Texture struct {
	Label    string
	W, H     uint32
	Pix      []byte
	Released bool
}

func (t *Texture) Width() uint32  { return t.W }
func (t *Texture) Height() uint32 { return t.H }
func (t *Texture) Release()       { t.Released = true }

type BindGroup struct {
	Label    string
	Entries  []gpu.BindGroupEntry
	Released bool
}

func (g *BindGroup) Release() { g.Released = true }

type resource struct{ released bool }

func (r *resource) Release() { r.released = true }

// Frame records the passes recorded into it.
type Frame struct {
	backend   *Backend
	Clear     *wgpu.Color
	Pass      *RenderPass
	Submitted bool
	Presented bool
	Discarded bool
}

func (f *Frame) BeginRenderPass(clear *wgpu.Color) (gpu.RenderPass, error) {
	if f.Pass != nil {
		return nil, errors.New("render pass already begun")
	}
	f.Clear = clear
	f.Pass = &RenderPass{}
	return f.Pass, nil
}

func (f *Frame) Submit() error {
	if f.backend.FailSubmit != nil {
		return f.backend.FailSubmit
	}
	f.Submitted = true
	return nil
}

func (f *Frame) Present() {
	f.Presented = true
	f.backend.mu.Lock()
	f.backend.Presented++
	f.backend.mu.Unlock()
}

func (f *Frame) Discard() {
	f.Discarded = true
	f.backend.mu.Lock()
	f.backend.Discarded++
	f.backend.mu.Unlock()
}

// Draw is one recorded draw call with the state bound at the time.
type Draw struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
	BindGroup     gpu.BindGroup
	VertexBuffer  gpu.Buffer
}

type RenderPass struct {
	Pipeline     gpu.RenderPipeline
	Commands     []string
	Draws        []Draw
	Ended        bool
	bindGroup    gpu.BindGroup
	vertexBuffer gpu.Buffer
}

func (p *RenderPass) SetPipeline(pl gpu.RenderPipeline) {
	p.Pipeline = pl
	p.Commands = append(p.Commands, "SetPipeline")
}

func (p *RenderPass) SetBindGroup(index uint32, bg gpu.BindGroup) {
	p.bindGroup = bg
	p.Commands = append(p.Commands, fmt.Sprintf("SetBindGroup(%d)", index))
}

func (p *RenderPass) SetVertexBuffer(slot uint32, buf gpu.Buffer) {
	p.vertexBuffer = buf
	p.Commands = append(p.Commands, fmt.Sprintf("SetVertexBuffer(%d)", slot))
}

func (p *RenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.Draws = append(p.Draws, Draw{
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		FirstVertex:   firstVertex,
		FirstInstance: firstInstance,
		BindGroup:     p.bindGroup,
		VertexBuffer:  p.vertexBuffer,
	})
	p.Commands = append(p.Commands, "Draw")
}

func (p *RenderPass) End() error {
	if p.Ended {
		return errors.New("render pass already ended")
	}
	p.Ended = true
	return nil
}

// Images is an in-memory gpu.ImageSource.
type Images struct {
	mu     sync.Mutex
	images map[string]*image.RGBA
	Loads  map[string]int
}

func NewImages() *Images {
	return &Images{images: make(map[string]*image.RGBA), Loads: make(map[string]int)}
}

// Add registers a solid w x h image under path.
func (s *Images) Add(path string, w, h int) *Images {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	s.mu.Lock()
	s.images[path] = img
	s.mu.Unlock()
	return s
}

func (s *Images) LoadImage(path string) (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Loads[path]++
	img, ok := s.images[path]
	if !ok {
		return nil, fmt.Errorf("image %q not found", path)
	}
	return img, nil
}

// LoadCount reports how many times path was decoded.
func (s *Images) LoadCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Loads[path]
}
