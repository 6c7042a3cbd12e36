package gpu_test

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/gekko2d/spritert/rt/gpu"
	"github.com/gekko3d/gekko2d/spritert/rt/gpu/gputest"
)

func TestContext_PresentationTarget(t *testing.T) {
	backend := gputest.NewBackend()
	ctx := gpu.NewContext(backend, gputest.NewImages(), nil)

	assert.False(t, ctx.Configured())
	_, err := ctx.AcquireFrame()
	assert.ErrorIs(t, err, gpu.ErrSurfaceUnconfigured)

	require.NoError(t, ctx.CreatePresentationTarget(800, 600))
	assert.True(t, ctx.Configured())
	assert.True(t, backend.Configured)
	w, h := ctx.Size()
	assert.Equal(t, uint32(800), w)
	assert.Equal(t, uint32(600), h)

	require.NoError(t, ctx.CreatePresentationTarget(0, 600))
	assert.False(t, ctx.Configured())
	assert.False(t, backend.Configured)

	require.NoError(t, ctx.CreatePresentationTarget(1024, 0))
	assert.False(t, ctx.Configured())
}

func TestContext_AcquireAndRelease(t *testing.T) {
	backend := gputest.NewBackend()
	ctx := gpu.NewContext(backend, gputest.NewImages(), nil)
	require.NoError(t, ctx.CreatePresentationTarget(64, 64))

	frame, err := ctx.AcquireFrame()
	require.NoError(t, err)
	require.NotNil(t, frame)

	_, err = ctx.AcquireFrame()
	assert.ErrorIs(t, err, gpu.ErrAcquire, "one frame at a time")

	ctx.ReleaseFrame()
	assert.Equal(t, 1, backend.Presented)
	assert.True(t, backend.LastFrame().Presented)

	ctx.ReleaseFrame()
	assert.Equal(t, 1, backend.Presented, "release without a frame is a no-op")
}

func TestContext_DiscardFrame(t *testing.T) {
	backend := gputest.NewBackend()
	ctx := gpu.NewContext(backend, gputest.NewImages(), nil)
	require.NoError(t, ctx.CreatePresentationTarget(64, 64))

	_, err := ctx.AcquireFrame()
	require.NoError(t, err)
	ctx.DiscardFrame()

	assert.Equal(t, 0, backend.Presented)
	assert.Equal(t, 1, backend.Discarded)
	assert.True(t, backend.LastFrame().Discarded)

	// The slot is free again.
	_, err = ctx.AcquireFrame()
	require.NoError(t, err)
	ctx.Release()
	assert.Equal(t, 0, backend.Presented, "release drops an unsubmitted frame")
	assert.Equal(t, 2, backend.Discarded)

	ctx.DiscardFrame()
	assert.Equal(t, 2, backend.Discarded, "discard without a frame is a no-op")
}

func TestContext_AcquireFailure(t *testing.T) {
	backend := gputest.NewBackend()
	ctx := gpu.NewContext(backend, gputest.NewImages(), nil)
	require.NoError(t, ctx.CreatePresentationTarget(64, 64))

	timeout := errors.New("surface timeout")
	backend.FailAcquire = timeout
	_, err := ctx.AcquireFrame()
	assert.ErrorIs(t, err, gpu.ErrAcquire)
	assert.ErrorIs(t, err, timeout)

	backend.FailAcquire = nil
	_, err = ctx.AcquireFrame()
	assert.NoError(t, err, "a failed acquire leaves no frame outstanding")
}

func TestContext_DelegatesToRegistry(t *testing.T) {
	backend := gputest.NewBackend()
	ctx := gpu.NewContext(backend, gputest.NewImages().Add("x.png", 2, 2), nil)

	h, err := ctx.AllocateBuffer("buf", 32, wgpu.BufferUsageVertex)
	require.NoError(t, err)
	assert.Equal(t, uint64(32), ctx.Buffer(h).Size())
	require.NoError(t, ctx.WriteBuffer(h, 0, []byte{9}))

	h, err = ctx.ReallocateBuffer(h, 64)
	require.NoError(t, err)
	assert.Equal(t, uint64(64), ctx.Buffer(h).Size())
	ctx.ReleaseBuffer(h)
	assert.Equal(t, 0, ctx.Registry().BufferCount())

	tex, err := ctx.LoadTexture("x.png")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), ctx.Texture(tex).Width())
	ctx.ReleaseTexture(tex)
	assert.Equal(t, 0, ctx.Registry().TextureCount())

	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, ctx.SurfaceFormat())
}
