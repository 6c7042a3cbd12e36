package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrSurfaceUnconfigured is returned by AcquireFrame while the
	// presentation target has zero area.
	ErrSurfaceUnconfigured = errors.New("gpu: presentation target not configured")
	// ErrAcquire wraps a backend failure to produce the next image.
	ErrAcquire = errors.New("gpu: acquire frame")
)

// Context ties a Backend to the Registry that owns its resources and tracks
// the presentation target and the frame currently being recorded.
type Context struct {
	backend  Backend
	registry *Registry
	logger   Logger

	mu            sync.Mutex
	width, height uint32
	configured    bool
	frame         Frame
}

func NewContext(backend Backend, images ImageSource, logger Logger) *Context {
	logger = orNop(logger)
	return &Context{
		backend:  backend,
		registry: NewRegistry(backend, images, logger),
		logger:   logger,
	}
}

func (c *Context) Backend() Backend    { return c.backend }
func (c *Context) Registry() *Registry { return c.registry }
func (c *Context) Logger() Logger      { return c.logger }
func (c *Context) SurfaceFormat() wgpu.TextureFormat {
	return c.backend.SurfaceFormat()
}

// CreatePresentationTarget (re)configures the swap target. A zero width or
// height tears presentation down; that is the minimised state, not an error.
func (c *Context) CreatePresentationTarget(width, height uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if width == 0 || height == 0 {
		if c.configured {
			c.backend.UnconfigureSurface()
			c.logger.Infof("presentation target suspended")
		}
		c.configured = false
		return nil
	}
	if err := c.backend.ConfigureSurface(width, height); err != nil {
		c.configured = false
		return fmt.Errorf("configure surface %dx%d: %w", width, height, err)
	}
	c.width, c.height = width, height
	c.configured = true
	c.logger.Infof("presentation target configured %dx%d", width, height)
	return nil
}

func (c *Context) Configured() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configured
}

// Size is the last configured size, kept while suspended.
func (c *Context) Size() (width, height uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// AcquireFrame obtains the next presentable image. Only one frame may be
// outstanding; call ReleaseFrame before acquiring another.
func (c *Context) AcquireFrame() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.configured {
		return nil, ErrSurfaceUnconfigured
	}
	if c.frame != nil {
		return nil, fmt.Errorf("%w: previous frame not released", ErrAcquire)
	}
	frame, err := c.backend.AcquireFrame()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAcquire, err)
	}
	c.frame = frame
	return frame, nil
}

// ReleaseFrame presents the outstanding frame. It is a no-op without one.
func (c *Context) ReleaseFrame() {
	c.mu.Lock()
	frame := c.frame
	c.frame = nil
	c.mu.Unlock()

	if frame != nil {
		frame.Present()
	}
}

func (c *Context) AllocateBuffer(label string, size uint64, usage wgpu.BufferUsage) (BufferHandle, error) {
	return c.registry.AllocateBuffer(label, size, usage)
}

func (c *Context) ReallocateBuffer(h BufferHandle, size uint64) (BufferHandle, error) {
	return c.registry.ReallocateBuffer(h, size)
}

func (c *Context) ReleaseBuffer(h BufferHandle) { c.registry.ReleaseBuffer(h) }

func (c *Context) Buffer(h BufferHandle) Buffer { return c.registry.Buffer(h) }

func (c *Context) WriteBuffer(h BufferHandle, offset uint64, data []byte) error {
	return c.registry.WriteBuffer(h, offset, data)
}

func (c *Context) LoadTexture(path string) (TextureHandle, error) {
	return c.registry.LoadTexture(path)
}

func (c *Context) Texture(h TextureHandle) Texture { return c.registry.Texture(h) }

func (c *Context) ReleaseTexture(h TextureHandle) { c.registry.ReleaseTexture(h) }

// DiscardFrame drops the outstanding frame without presenting it. It is a
// no-op without one.
func (c *Context) DiscardFrame() {
	c.mu.Lock()
	frame := c.frame
	c.frame = nil
	c.mu.Unlock()

	if frame != nil {
		frame.Discard()
	}
}

// Release discards any outstanding frame and destroys all resources.
func (c *Context) Release() {
	c.DiscardFrame()
	c.registry.Release()
}
