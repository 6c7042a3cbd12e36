package gpu_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/gekko2d/spritert/rt/gpu"
	"github.com/gekko3d/gekko2d/spritert/rt/gpu/gputest"
)

var countingInits atomic.Int32

type countingPipeline struct {
	ctx      *gpu.Context
	buffer   gpu.BufferHandle
	released bool
}

func (p *countingPipeline) Init(ctx *gpu.Context) error {
	countingInits.Add(1)
	p.ctx = ctx
	var err error
	p.buffer, err = ctx.AllocateBuffer("counting", 16, wgpu.BufferUsageUniform)
	return err
}

func (p *countingPipeline) Release() {
	p.ctx.ReleaseBuffer(p.buffer)
	p.released = true
}

type failingPipeline struct{}

func (failingPipeline) Init(*gpu.Context) error { return errors.New("no shader") }
func (failingPipeline) Release()                {}

type otherPipeline struct{}

func (*otherPipeline) Init(*gpu.Context) error { return nil }
func (*otherPipeline) Release()                {}

func TestGetPipeline_ConstructsOnce(t *testing.T) {
	countingInits.Store(0)
	ctx := gpu.NewContext(gputest.NewBackend(), gputest.NewImages(), nil)

	assert.False(t, gpu.HasPipeline[countingPipeline](ctx))

	var wg sync.WaitGroup
	results := make([]*countingPipeline, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := gpu.GetPipeline[countingPipeline](ctx)
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	wg.Wait()

	for _, p := range results {
		assert.Same(t, results[0], p)
	}
	assert.Equal(t, int32(1), countingInits.Load())
	assert.True(t, gpu.HasPipeline[countingPipeline](ctx))
	assert.Equal(t, 1, ctx.Registry().PipelineCount())
	assert.Equal(t, 1, ctx.Registry().BufferCount())

	ctx.Release()
	assert.True(t, results[0].released)
	assert.Equal(t, 0, ctx.Registry().BufferCount())
}

func TestGetPipeline_InitError(t *testing.T) {
	ctx := gpu.NewContext(gputest.NewBackend(), gputest.NewImages(), nil)

	_, err := gpu.GetPipeline[failingPipeline](ctx)
	assert.ErrorContains(t, err, "no shader")
	assert.False(t, gpu.HasPipeline[failingPipeline](ctx), "failed construction is not cached")
}

func TestGetPipeline_TypeMismatch(t *testing.T) {
	ctx := gpu.NewContext(gputest.NewBackend(), gputest.NewImages(), nil)
	gpu.StorePipeline[countingPipeline](ctx, &otherPipeline{})

	p, err := gpu.GetPipeline[countingPipeline](ctx)
	require.ErrorIs(t, err, gpu.ErrPipelineType)
	assert.Nil(t, p)
}
