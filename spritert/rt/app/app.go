// Package app drives one frame of sprite rendering: acquire, prepare, draw,
// submit and present.
package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/gekko2d/spritert/rt/core"
	"github.com/gekko3d/gekko2d/spritert/rt/gpu"
	"github.com/gekko3d/gekko2d/spritert/rt/sprite"
)

type Config struct {
	// ClearColor clears the target each frame. Nil keeps the previous
	// contents.
	ClearColor *wgpu.Color
	// Clock returns seconds since an arbitrary epoch. Defaults to wall time.
	Clock func() float64
}

type Stats struct {
	FramesRendered uint64
	FramesSkipped  uint64
	LastSpanCount  int
	FPS            float64
}

type App struct {
	ctx     *gpu.Context
	cfg     Config
	camera  *core.Camera
	sprites *sprite.Pipeline

	stats          Stats
	frameCount     int
	fpsTime        float64
	lastRenderTime float64
}

func NewApp(ctx *gpu.Context, cfg Config) *App {
	if cfg.Clock == nil {
		start := time.Now()
		cfg.Clock = func() float64 { return time.Since(start).Seconds() }
	}
	return &App{
		ctx:    ctx,
		cfg:    cfg,
		camera: core.NewCamera(1),
	}
}

// Init builds the sprite pipeline so shader and layout errors surface before
// the first frame.
func (a *App) Init() error {
	p, err := gpu.GetPipeline[sprite.Pipeline](a.ctx)
	if err != nil {
		return err
	}
	a.sprites = p
	return nil
}

// Resize follows a framebuffer size change. Zero area suspends rendering
// until the next non-zero resize.
func (a *App) Resize(width, height uint32) error {
	a.camera.SetAspect(width, height)
	return a.ctx.CreatePresentationTarget(width, height)
}

func (a *App) Camera() *core.Camera      { return a.camera }
func (a *App) Context() *gpu.Context     { return a.ctx }
func (a *App) Sprites() *sprite.Pipeline { return a.sprites }
func (a *App) Stats() Stats              { return a.stats }

// Render draws batch as one frame. A frame that cannot be acquired is
// skipped and counted; that is not an error. A frame that fails before
// submission is discarded, not presented. batch is reordered by texture.
func (a *App) Render(batch []sprite.Instance) error {
	if a.sprites == nil {
		if err := a.Init(); err != nil {
			return err
		}
	}

	frame, err := a.ctx.AcquireFrame()
	if err != nil {
		a.stats.FramesSkipped++
		if errors.Is(err, gpu.ErrSurfaceUnconfigured) {
			a.ctx.Logger().Debugf("frame skipped: %v", err)
		} else {
			a.ctx.Logger().Warnf("frame skipped: %v", err)
		}
		return nil
	}
	submitted := false
	defer func() {
		if submitted {
			a.ctx.ReleaseFrame()
		} else {
			a.ctx.DiscardFrame()
		}
	}()

	if err := a.sprites.Prepare(a.camera.Data(), batch); err != nil {
		return fmt.Errorf("prepare sprites: %w", err)
	}

	pass, err := frame.BeginRenderPass(a.cfg.ClearColor)
	if err != nil {
		return fmt.Errorf("begin render pass: %w", err)
	}
	a.sprites.Draw(pass)
	if err := pass.End(); err != nil {
		return fmt.Errorf("end render pass: %w", err)
	}
	if err := frame.Submit(); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	submitted = true

	a.stats.FramesRendered++
	a.stats.LastSpanCount = len(a.sprites.Spans())
	a.updateFPS()
	return nil
}

func (a *App) updateFPS() {
	now := a.cfg.Clock()
	if a.lastRenderTime > 0 {
		a.frameCount++
		a.fpsTime += now - a.lastRenderTime
		if a.fpsTime >= 1.0 {
			a.stats.FPS = float64(a.frameCount) / a.fpsTime
			a.frameCount = 0
			a.fpsTime = 0
		}
	}
	a.lastRenderTime = now
}

// Release frees every GPU resource owned by the context's registry.
func (a *App) Release() {
	a.ctx.Release()
	a.sprites = nil
}
