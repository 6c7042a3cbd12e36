package app

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/gekko2d/spritert/rt/core"
	"github.com/gekko3d/gekko2d/spritert/rt/gpu"
	"github.com/gekko3d/gekko2d/spritert/rt/gpu/gputest"
	"github.com/gekko3d/gekko2d/spritert/rt/sprite"
)

type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) Debugf(string, ...any) {}
func (l *recordingLogger) Infof(string, ...any)  {}
func (l *recordingLogger) Warnf(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}
func (l *recordingLogger) Errorf(string, ...any) {}

type fakeClock struct{ now float64 }

func (c *fakeClock) tick(dt float64) float64 {
	c.now += dt
	return c.now
}

func newApp(t *testing.T, cfg Config) (*App, *gputest.Backend, *recordingLogger, gpu.TextureHandle) {
	t.Helper()
	backend := gputest.NewBackend()
	images := gputest.NewImages().Add("atlas.png", 8, 8)
	logger := &recordingLogger{}
	ctx := gpu.NewContext(backend, images, logger)

	a := NewApp(ctx, cfg)
	require.NoError(t, a.Init())
	require.NoError(t, a.Resize(800, 600))
	tex, err := ctx.LoadTexture("atlas.png")
	require.NoError(t, err)
	return a, backend, logger, tex
}

func batchOf(n int, tex gpu.TextureHandle) []sprite.Instance {
	batch := make([]sprite.Instance, n)
	for i := range batch {
		batch[i] = sprite.Instance{
			Transform: core.NewTransform(mgl32.Vec3{float32(i), 0, 5}, mgl32.Vec2{1, 1}),
			Sprite:    sprite.Sprite{Texture: tex, Data: core.FullTexture},
		}
	}
	return batch
}

func TestRenderFrame(t *testing.T) {
	clear := &wgpu.Color{R: 0.1, G: 0.2, B: 0.3, A: 1}
	a, backend, _, tex := newApp(t, Config{ClearColor: clear})

	require.NoError(t, a.Render(batchOf(3, tex)))

	frame := backend.LastFrame()
	require.NotNil(t, frame)
	assert.Same(t, clear, frame.Clear)
	assert.True(t, frame.Pass.Ended)
	assert.True(t, frame.Submitted)
	assert.True(t, frame.Presented)
	require.Len(t, frame.Pass.Draws, 1)
	assert.Equal(t, uint32(3), frame.Pass.Draws[0].InstanceCount)

	stats := a.Stats()
	assert.Equal(t, uint64(1), stats.FramesRendered)
	assert.Equal(t, uint64(0), stats.FramesSkipped)
	assert.Equal(t, 1, stats.LastSpanCount)
}

func TestRenderEmptyWorld(t *testing.T) {
	a, backend, _, _ := newApp(t, Config{})

	require.NoError(t, a.Render(nil))

	frame := backend.LastFrame()
	require.NotNil(t, frame)
	assert.Nil(t, frame.Clear)
	assert.Empty(t, frame.Pass.Draws)
	assert.True(t, frame.Presented)
	assert.Equal(t, 0, a.Stats().LastSpanCount)
}

func TestRenderSkipsWhenAcquireFails(t *testing.T) {
	a, backend, logger, tex := newApp(t, Config{})
	backend.FailAcquire = errors.New("surface outdated")

	require.NoError(t, a.Render(batchOf(2, tex)))
	assert.Empty(t, backend.Frames)
	assert.Equal(t, 0, backend.Presented)
	assert.Equal(t, uint64(1), a.Stats().FramesSkipped)
	require.Len(t, logger.warnings, 1)
	assert.Contains(t, logger.warnings[0], "surface outdated")

	backend.FailAcquire = nil
	require.NoError(t, a.Render(batchOf(2, tex)))
	assert.Equal(t, 1, backend.Presented)
	assert.Equal(t, uint64(1), a.Stats().FramesRendered)
}

func TestRenderWhileMinimised(t *testing.T) {
	a, backend, logger, tex := newApp(t, Config{})

	require.NoError(t, a.Resize(0, 600))
	assert.False(t, backend.Configured)
	require.NoError(t, a.Render(batchOf(1, tex)))
	assert.Empty(t, backend.Frames)
	assert.Empty(t, logger.warnings)
	assert.Equal(t, uint64(1), a.Stats().FramesSkipped)

	require.NoError(t, a.Resize(1024, 512))
	assert.True(t, backend.Configured)
	assert.Equal(t, float32(2), a.Camera().Aspect)
	require.NoError(t, a.Render(batchOf(1, tex)))
	assert.Len(t, backend.Frames, 1)
}

func TestResizeSetsAspect(t *testing.T) {
	a, backend, _, _ := newApp(t, Config{})
	assert.InDelta(t, 800.0/600.0, a.Camera().Aspect, 1e-6)
	assert.Equal(t, uint32(800), backend.Width)
	assert.Equal(t, uint32(600), backend.Height)
}

func TestRenderSubmitFailureDiscardsFrame(t *testing.T) {
	a, backend, _, tex := newApp(t, Config{})
	backend.FailSubmit = errors.New("device lost")

	err := a.Render(batchOf(1, tex))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device lost")
	assert.Equal(t, uint64(0), a.Stats().FramesRendered)
	failed := backend.LastFrame()
	assert.True(t, failed.Discarded)
	assert.False(t, failed.Presented)
	assert.Equal(t, 0, backend.Presented)

	backend.FailSubmit = nil
	require.NoError(t, a.Render(batchOf(1, tex)))
	assert.Len(t, backend.Frames, 2)
	assert.True(t, backend.LastFrame().Presented)
	assert.Equal(t, 1, backend.Discarded)
}

func TestRenderPrepareFailureDiscardsFrame(t *testing.T) {
	a, backend, _, tex := newApp(t, Config{})
	backend.FailCreateBuffer = errors.New("out of memory")

	err := a.Render(batchOf(100, tex))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prepare sprites")

	frame := backend.LastFrame()
	require.NotNil(t, frame)
	assert.Nil(t, frame.Pass, "no pass is recorded")
	assert.True(t, frame.Discarded)
	assert.Equal(t, 0, backend.Presented)

	backend.FailCreateBuffer = nil
	require.NoError(t, a.Render(batchOf(100, tex)))
	assert.Equal(t, 1, backend.Presented)
}

func TestRenderInitialisesLazily(t *testing.T) {
	backend := gputest.NewBackend()
	ctx := gpu.NewContext(backend, gputest.NewImages(), nil)
	a := NewApp(ctx, Config{})
	require.NoError(t, a.Resize(64, 64))

	assert.Nil(t, a.Sprites())
	require.NoError(t, a.Render(nil))
	assert.NotNil(t, a.Sprites())
	assert.Len(t, backend.Pipelines, 1)
}

func TestFPS(t *testing.T) {
	clock := &fakeClock{}
	a, _, _, tex := newApp(t, Config{Clock: func() float64 { return clock.tick(0.25) }})

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Render(batchOf(1, tex)))
	}
	assert.InDelta(t, 4.0, a.Stats().FPS, 1e-9)
}

func TestRelease(t *testing.T) {
	a, backend, _, tex := newApp(t, Config{})
	require.NoError(t, a.Render(batchOf(1, tex)))

	a.Release()
	assert.Empty(t, backend.LiveBuffers())
	for _, tx := range backend.Textures {
		assert.True(t, tx.Released)
	}
	assert.Equal(t, 0, a.Context().Registry().PipelineCount())
}
