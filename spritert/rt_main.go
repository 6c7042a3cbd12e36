package main

import (
	"context"
	"flag"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/gekko2d"
	"github.com/gekko3d/gekko2d/spritert/rt/app"
	"github.com/gekko3d/gekko2d/spritert/rt/assets"
	"github.com/gekko3d/gekko2d/spritert/rt/core"
	"github.com/gekko3d/gekko2d/spritert/rt/gpu"
	"github.com/gekko3d/gekko2d/spritert/rt/sprite"
)

const (
	atlasCols = 48
	atlasRows = 22
)

var atlases = []string{
	"monochrome_transparent_packed.png",
	"colored_transparent_packed.png",
}

func init() {
	runtime.LockOSThread()
}

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	grid := flag.Int("grid", 200, "Sprites per row and column")
	width := flag.Int("width", 1280, "Window width")
	height := flag.Int("height", 720, "Window height")
	images := flag.String("images", "assets", "Directory holding the sprite atlases")
	vsync := flag.Bool("vsync", false, "Wait for vertical blank")
	flag.Parse()

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(*width, *height, "SpriteRT Go", nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	backend, err := gpu.NewWgpuBackend(wgpuglfw.GetSurfaceDescriptor(window), gpu.WgpuOptions{VSync: *vsync})
	if err != nil {
		panic(err)
	}
	defer backend.Release()

	logger := gekko2d.NewDefaultLogger("spritert", *debug)
	ctx := gpu.NewContext(backend, assets.Dir{Root: *images}, logger)
	start := time.Now()
	application := app.NewApp(ctx, app.Config{
		ClearColor: &wgpu.Color{R: 0.05, G: 0.05, B: 0.08, A: 1},
		Clock:      func() float64 { return time.Since(start).Seconds() },
	})
	defer application.Release()
	if err := application.Init(); err != nil {
		panic(err)
	}

	fbw, fbh := window.GetFramebufferSize()
	if err := application.Resize(uint32(fbw), uint32(fbh)); err != nil {
		panic(err)
	}
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		if err := application.Resize(uint32(w), uint32(h)); err != nil {
			logger.Errorf("resize: %v", err)
		}
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	textures, err := ctx.Registry().PreloadTextures(context.Background(), atlases)
	if err != nil {
		panic(err)
	}
	batch := spriteGrid(*grid, textures, rand.New(rand.NewPCG(1, 2)))
	logger.Infof("drawing %d sprites from %d atlases", len(batch), len(textures))

	lastReport := time.Now()
	for !window.ShouldClose() {
		glfw.PollEvents()
		if err := application.Render(batch); err != nil {
			logger.Errorf("render: %v", err)
		}
		if time.Since(lastReport) >= 5*time.Second {
			stats := application.Stats()
			logger.Infof("%.1f fps, %d draws, %d frames skipped", stats.FPS, stats.LastSpanCount, stats.FramesSkipped)
			lastReport = time.Now()
		}
	}
}

// spriteGrid lays n x n random atlas tiles over a 20 x 20 square centred in
// front of the camera.
func spriteGrid(n int, textures []gpu.TextureHandle, rng *rand.Rand) []sprite.Instance {
	batch := make([]sprite.Instance, 0, n*n)
	half := float32(n) / 2
	size := 5 / float32(n)
	for i := range n {
		for j := range n {
			x := (-1 + (float32(i)+0.5)/half) * 10
			y := (-1 + (float32(j)+0.5)/half) * 10
			batch = append(batch, sprite.Instance{
				Transform: core.NewTransform(mgl32.Vec3{x, y, 5}, mgl32.Vec2{size, size}),
				Sprite: sprite.Sprite{
					Texture: textures[rng.IntN(len(textures))],
					Data:    core.GridCell(atlasCols, atlasRows, rng.IntN(atlasCols), rng.IntN(atlasRows)),
				},
			})
		}
	}
	return batch
}
