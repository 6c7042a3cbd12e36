package gpu

import (
	"context"
	"errors"
	"fmt"
	"image"
	"reflect"
	"runtime"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// BindBufferAlignment is the offset and size granularity of uniform bindings.
const BindBufferAlignment = 256

var (
	ErrUnknownBuffer  = errors.New("gpu: unknown buffer handle")
	ErrUnknownTexture = errors.New("gpu: unknown texture handle")
)

// BufferHandle identifies a buffer owned by a Registry. Zero is never issued.
type BufferHandle uint64

// TextureHandle identifies a texture owned by a Registry. Zero is never issued.
type TextureHandle uint64

// ImageSource decodes images for texture upload.
type ImageSource interface {
	LoadImage(path string) (*image.RGBA, error)
}

// AlignedSize rounds size up to a multiple of BindBufferAlignment.
func AlignedSize(size uint64) uint64 {
	if size == 0 {
		return BindBufferAlignment
	}
	return (size + BindBufferAlignment - 1) / BindBufferAlignment * BindBufferAlignment
}

type bufferEntry struct {
	buf   Buffer
	label string
	usage wgpu.BufferUsage
}

// Registry owns every GPU buffer, texture and pipeline of a Context. Each
// resource kind lives in its own sharded map with its own handle counter.
type Registry struct {
	backend Backend
	images  ImageSource
	logger  Logger

	buffers      *shardedMap[BufferHandle, bufferEntry]
	textures     *shardedMap[TextureHandle, Texture]
	textureCache *shardedMap[string, TextureHandle]
	pipelines    *shardedMap[reflect.Type, Pipeline]

	// Counters are only reset by constructing a new Registry.
	bufferCounter  atomic.Uint64
	textureCounter atomic.Uint64

	loads singleflight.Group
}

func NewRegistry(backend Backend, images ImageSource, logger Logger) *Registry {
	return &Registry{
		backend:      backend,
		images:       images,
		logger:       orNop(logger),
		buffers:      newShardedMap[BufferHandle, bufferEntry](handleHasher[BufferHandle]),
		textures:     newShardedMap[TextureHandle, Texture](handleHasher[TextureHandle]),
		textureCache: newShardedMap[string, TextureHandle](stringHasher),
		pipelines:    newShardedMap[reflect.Type, Pipeline](typeHasher),
	}
}

// AllocateBuffer creates a buffer and returns its handle. Handles start at 1
// and are never reused.
func (r *Registry) AllocateBuffer(label string, size uint64, usage wgpu.BufferUsage) (BufferHandle, error) {
	buf, err := r.backend.CreateBuffer(label, size, usage)
	if err != nil {
		return 0, fmt.Errorf("allocate buffer %q (%d bytes): %w", label, size, err)
	}
	h := BufferHandle(r.bufferCounter.Add(1))
	r.buffers.Store(h, bufferEntry{buf: buf, label: label, usage: usage})
	return h, nil
}

// ReallocateBuffer replaces h with a new buffer of the given size, label and
// usage, then releases h. On failure h is left untouched and returned.
func (r *Registry) ReallocateBuffer(h BufferHandle, size uint64) (BufferHandle, error) {
	entry, ok := r.buffers.Load(h)
	if !ok {
		panic(fmt.Sprintf("%v: %d", ErrUnknownBuffer, h))
	}
	next, err := r.AllocateBuffer(entry.label, size, entry.usage)
	if err != nil {
		return h, err
	}
	r.ReleaseBuffer(h)
	return next, nil
}

// ReleaseBuffer destroys the buffer. Releasing an unknown handle panics.
func (r *Registry) ReleaseBuffer(h BufferHandle) {
	entry, ok := r.buffers.LoadAndDelete(h)
	if !ok {
		panic(fmt.Sprintf("%v: %d", ErrUnknownBuffer, h))
	}
	entry.buf.Release()
}

// Buffer returns the buffer behind h. The value must not be kept past the
// current frame. An unknown handle panics.
func (r *Registry) Buffer(h BufferHandle) Buffer {
	buf, err := r.LookupBuffer(h)
	if err != nil {
		panic(err.Error())
	}
	return buf
}

// LookupBuffer is Buffer for callers that treat a dead handle as an error.
// The error wraps ErrUnknownBuffer.
func (r *Registry) LookupBuffer(h BufferHandle) (Buffer, error) {
	entry, ok := r.buffers.Load(h)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBuffer, h)
	}
	return entry.buf, nil
}

// WriteBuffer uploads data at offset into the buffer behind h. An unknown
// handle panics.
func (r *Registry) WriteBuffer(h BufferHandle, offset uint64, data []byte) error {
	return r.backend.WriteBuffer(r.Buffer(h), offset, data)
}

// LoadTexture returns the handle of the texture decoded from path, uploading
// it on first use. While that texture is live every call with the same path
// returns the same handle. Concurrent first loads share one upload.
func (r *Registry) LoadTexture(path string) (TextureHandle, error) {
	if h, ok := r.TextureHandleFor(path); ok {
		return h, nil
	}
	v, err, _ := r.loads.Do("texture:"+path, func() (any, error) {
		if h, ok := r.TextureHandleFor(path); ok {
			return h, nil
		}
		img, err := r.images.LoadImage(path)
		if err != nil {
			return TextureHandle(0), fmt.Errorf("load texture %q: %w", path, err)
		}
		return r.uploadTexture(path, img)
	})
	if err != nil {
		return 0, err
	}
	return v.(TextureHandle), nil
}

// PreloadTextures decodes paths concurrently and uploads them in order.
// Paths that are already live are not decoded again.
func (r *Registry) PreloadTextures(ctx context.Context, paths []string) ([]TextureHandle, error) {
	decoded := make([]*image.RGBA, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		if _, ok := r.TextureHandleFor(path); ok {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := r.images.LoadImage(path)
			if err != nil {
				return fmt.Errorf("load texture %q: %w", path, err)
			}
			decoded[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	handles := make([]TextureHandle, len(paths))
	for i, path := range paths {
		if h, ok := r.TextureHandleFor(path); ok {
			handles[i] = h
			continue
		}
		v, err, _ := r.loads.Do("texture:"+path, func() (any, error) {
			if h, ok := r.TextureHandleFor(path); ok {
				return h, nil
			}
			return r.uploadTexture(path, decoded[i])
		})
		if err != nil {
			return nil, err
		}
		handles[i] = v.(TextureHandle)
	}
	return handles, nil
}

func (r *Registry) uploadTexture(path string, img *image.RGBA) (TextureHandle, error) {
	tex, err := r.backend.CreateTexture(path, img)
	if err != nil {
		return 0, fmt.Errorf("upload texture %q: %w", path, err)
	}
	h := TextureHandle(r.textureCounter.Add(1))
	r.textures.Store(h, tex)
	r.textureCache.Store(path, h)
	r.logger.Debugf("texture %d loaded from %s (%dx%d)", h, path, tex.Width(), tex.Height())
	return h, nil
}

// TextureHandleFor reports the live handle cached for path.
func (r *Registry) TextureHandleFor(path string) (TextureHandle, bool) {
	h, ok := r.textureCache.Load(path)
	if !ok {
		return 0, false
	}
	if _, live := r.textures.Load(h); !live {
		return 0, false
	}
	return h, true
}

// Texture returns the texture behind h. An unknown handle panics.
func (r *Registry) Texture(h TextureHandle) Texture {
	tex, err := r.LookupTexture(h)
	if err != nil {
		panic(err.Error())
	}
	return tex
}

// LookupTexture returns the texture behind h, or an error wrapping
// ErrUnknownTexture when h was never loaded or has been released.
func (r *Registry) LookupTexture(h TextureHandle) (Texture, error) {
	tex, ok := r.textures.Load(h)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTexture, h)
	}
	return tex, nil
}

// ReleaseTexture destroys the texture. A later LoadTexture of the same path
// uploads it again under a new handle.
func (r *Registry) ReleaseTexture(h TextureHandle) {
	tex, ok := r.textures.LoadAndDelete(h)
	if !ok {
		panic(fmt.Sprintf("%v: %d", ErrUnknownTexture, h))
	}
	tex.Release()
}

// pipeline returns the pipeline stored under key, constructing it on first
// access. Concurrent first accesses construct it once.
func (r *Registry) pipeline(key reflect.Type, construct func() (Pipeline, error)) (Pipeline, error) {
	if p, ok := r.pipelines.Load(key); ok {
		return p, nil
	}
	v, err, _ := r.loads.Do("pipeline:"+key.PkgPath()+"."+key.String(), func() (any, error) {
		if p, ok := r.pipelines.Load(key); ok {
			return p, nil
		}
		p, err := construct()
		if err != nil {
			return nil, err
		}
		actual, _ := r.pipelines.LoadOrStore(key, p)
		r.logger.Debugf("pipeline %s constructed", key)
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Pipeline), nil
}

func (r *Registry) BufferCount() int   { return r.buffers.Len() }
func (r *Registry) TextureCount() int  { return r.textures.Len() }
func (r *Registry) PipelineCount() int { return r.pipelines.Len() }

// Release destroys every pipeline, texture and buffer. Pipelines go first
// since they hold buffer handles.
func (r *Registry) Release() {
	for _, p := range r.pipelines.Drain() {
		p.Release()
	}
	for _, tex := range r.textures.Drain() {
		tex.Release()
	}
	r.textureCache.Drain()
	for _, entry := range r.buffers.Drain() {
		entry.buf.Release()
	}
}
