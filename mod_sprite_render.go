package gekko2d

import (
	"context"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/gekko2d/spritert/rt/app"
	"github.com/gekko3d/gekko2d/spritert/rt/assets"
	"github.com/gekko3d/gekko2d/spritert/rt/core"
	"github.com/gekko3d/gekko2d/spritert/rt/gpu"
	"github.com/gekko3d/gekko2d/spritert/rt/sprite"
)

// SpriteRenderModule opens the window, brings up the GPU and draws every
// entity with a TransformComponent and a SpriteComponent once per step.
// The active camera is the *core.Camera resource it installs.
type SpriteRenderModule struct {
	WindowWidth  int
	WindowHeight int
	WindowTitle  string
	// ImageRoot resolves sheet paths when no AssetServer is installed.
	ImageRoot string
	VSync     bool
	// ClearColor clears every frame; nil keeps the previous frame's pixels.
	ClearColor *wgpu.Color
	Debug      bool
}

type resolvedSheet struct {
	sheet   SpriteSheet
	texture gpu.TextureHandle
}

// SpriteRenderState holds the renderer and the per-step sprite batch.
type SpriteRenderState struct {
	renderer *app.App
	release  func()
	textures map[string]gpu.TextureHandle
	sheets   map[AssetId]resolvedSheet
	unknown  set[AssetId]
	batch    []sprite.Instance
}

func newSpriteRenderState(renderer *app.App, release func()) *SpriteRenderState {
	return &SpriteRenderState{
		renderer: renderer,
		release:  release,
		textures: make(map[string]gpu.TextureHandle),
		sheets:   make(map[AssetId]resolvedSheet),
		unknown:  make(set[AssetId]),
	}
}

func (s *SpriteRenderState) Renderer() *app.App { return s.renderer }
func (s *SpriteRenderState) Stats() app.Stats   { return s.renderer.Stats() }

func (mod SpriteRenderModule) Install(a *App, cmd *Commands) {
	ensureSingleRenderer(a, string(RendererSprites))
	ws := ensureWindowResource(a, mod.WindowWidth, mod.WindowHeight, mod.WindowTitle)

	server, ok := Resource[AssetServer](a)
	if !ok {
		server = newAssetServer(mod.ImageRoot)
		cmd.AddResources(server)
	}

	logger := a.Logger()
	if mod.Debug {
		logger.SetDebug(true)
	}

	backend, err := gpu.NewWgpuBackend(ws.SurfaceDescriptor(), gpu.WgpuOptions{VSync: mod.VSync})
	if err != nil {
		panic(err)
	}
	ctx := gpu.NewContext(backend, assets.Dir{Root: server.Root()}, logger)
	renderer := app.NewApp(ctx, app.Config{ClearColor: mod.ClearColor})
	if err := renderer.Init(); err != nil {
		panic(err)
	}
	if err := renderer.Resize(uint32(ws.FramebufferWidth), uint32(ws.FramebufferHeight)); err != nil {
		panic(err)
	}

	installSpriteSystems(cmd, newSpriteRenderState(renderer, func() {
		renderer.Release()
		backend.Release()
	}))
}

func installSpriteSystems(cmd *Commands, state *SpriteRenderState) {
	cmd.AddResources(state, state.renderer.Camera())
	cmd.UseSystem(System(spriteResizeSystem).InStage(PreRender))
	cmd.UseSystem(System(spritePreloadSystem).InStage(PreRender))
	cmd.UseSystem(System(spriteRenderSystem).InStage(Render))
	cmd.UseSystem(System(spriteShutdownSystem).InStage(Finale))
}

func spriteResizeSystem(cmd *Commands, ws *WindowState, state *SpriteRenderState) {
	width, height, changed := ws.TakeResize()
	if !changed {
		return
	}
	if err := state.renderer.Resize(uint32(width), uint32(height)); err != nil {
		cmd.Logger().Errorf("sprite renderer resize %dx%d: %v", width, height, err)
	}
}

// spritePreloadSystem uploads the images of newly registered sheets, decoding
// them in parallel. A missing or corrupt image is fatal.
func spritePreloadSystem(cmd *Commands, state *SpriteRenderState, server *AssetServer) {
	if state.released() {
		return
	}
	var pending []string
	for _, path := range server.Paths() {
		if _, ok := state.textures[path]; !ok {
			pending = append(pending, path)
		}
	}
	if len(pending) == 0 {
		return
	}

	handles, err := state.renderer.Context().Registry().PreloadTextures(context.Background(), pending)
	if err != nil {
		cmd.Logger().Errorf("sprite textures: %v", err)
		panic(err)
	}
	for i, path := range pending {
		state.textures[path] = handles[i]
	}
	cmd.Logger().Debugf("sprite textures loaded: %v", pending)
}

func spriteRenderSystem(cmd *Commands, state *SpriteRenderState, server *AssetServer) {
	if state.released() {
		return
	}
	state.batch = state.batch[:0]
	MakeQuery2[TransformComponent, SpriteComponent](cmd).Map(func(_ EntityId, t *TransformComponent, s *SpriteComponent) bool {
		sheet, ok := state.resolve(cmd, server, s.Sheet)
		if !ok {
			return true
		}
		state.batch = append(state.batch, sprite.Instance{
			Transform: t.gpuTransform(),
			Sprite: sprite.Sprite{
				Texture: sheet.texture,
				Data:    sheet.sheet.Tile(s.Col, s.Row),
			},
		})
		return true
	})

	if err := state.renderer.Render(state.batch); err != nil {
		cmd.Logger().Errorf("sprite render: %v", err)
		return
	}
	if stats := state.renderer.Stats(); stats.FramesRendered%600 == 0 && stats.FramesRendered > 0 {
		cmd.Logger().Debugf("sprites: %d instances, %d draws, %.1f fps", len(state.batch), stats.LastSpanCount, stats.FPS)
	}
}

// resolve maps a sheet id to its texture. Unknown ids are reported once and
// their sprites skipped.
func (s *SpriteRenderState) resolve(cmd *Commands, server *AssetServer, id AssetId) (resolvedSheet, bool) {
	if r, ok := s.sheets[id]; ok {
		return r, true
	}
	if _, reported := s.unknown[id]; reported {
		return resolvedSheet{}, false
	}
	sheet, ok := server.SpriteSheet(id)
	if !ok {
		s.unknown[id] = struct{}{}
		cmd.Logger().Warnf("sprite sheet %s is not registered; its sprites are skipped", id)
		return resolvedSheet{}, false
	}
	tex, ok := s.textures[sheet.Path]
	if !ok {
		var err error
		tex, err = s.renderer.Context().LoadTexture(sheet.Path)
		if err != nil {
			cmd.Logger().Errorf("sprite texture %s: %v", sheet.Path, err)
			panic(err)
		}
		s.textures[sheet.Path] = tex
	}
	r := resolvedSheet{sheet: sheet, texture: tex}
	s.sheets[id] = r
	return r, true
}

func (s *SpriteRenderState) released() bool { return s.release == nil }

func spriteShutdownSystem(cmd *Commands, state *SpriteRenderState) {
	if !cmd.Exiting() || state.released() {
		return
	}
	state.release()
	state.release = nil
	cmd.Logger().Infof("sprite renderer released after %d frames", state.renderer.Stats().FramesRendered)
}

// Camera returns the camera sprites are drawn through.
func (s *SpriteRenderState) Camera() *core.Camera { return s.renderer.Camera() }
