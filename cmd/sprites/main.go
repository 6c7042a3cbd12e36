package main

import (
	"flag"
	"math"
	"math/rand/v2"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/gekko2d"
)

type spinner struct {
	Speed float32
}

type scene struct {
	Count int
}

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	count := flag.Int("count", 2000, "Number of sprites")
	images := flag.String("images", "assets", "Directory holding the sprite atlases")
	vsync := flag.Bool("vsync", true, "Wait for vertical blank")
	flag.Parse()

	app := gekko2d.NewAppBuilder().
		UseModule(gekko2d.LoggingModule{Prefix: "sprites", Debug: *debug}).
		UseModule(gekko2d.TimeModule{}).
		UseModule(gekko2d.AssetServerModule{Root: *images}).
		UseModule(gekko2d.SpriteRenderModule{
			WindowWidth:  1280,
			WindowHeight: 720,
			WindowTitle:  "Gekko2D sprites",
			VSync:        *vsync,
			ClearColor:   &wgpu.Color{R: 0.05, G: 0.05, B: 0.08, A: 1},
		}).
		Build()

	cmd := app.Commands()
	cmd.AddResources(&scene{Count: *count})
	cmd.UseSystem(gekko2d.System(spawnSystem).InStage(gekko2d.Prelude))
	cmd.UseSystem(gekko2d.System(spinSystem))
	app.Run()
}

// spawnSystem fills the view with random tiles from two atlases on the first step.
func spawnSystem(cmd *gekko2d.Commands, server *gekko2d.AssetServer, s *scene) {
	if s.Count == 0 {
		return
	}
	sheets := []gekko2d.AssetId{
		server.LoadSpriteSheet("monochrome_transparent_packed.png", 48, 22),
		server.LoadSpriteSheet("colored_transparent_packed.png", 48, 22),
	}
	rng := rand.New(rand.NewPCG(1, 2))
	side := int(math.Ceil(math.Sqrt(float64(s.Count))))
	size := 10 / float32(side)
	for i := range s.Count {
		col, row := i%side, i/side
		cmd.AddEntity(
			gekko2d.TransformComponent{
				Position: mgl32.Vec3{
					(-1 + (float32(col)+0.5)/(float32(side)/2)) * 10,
					(-1 + (float32(row)+0.5)/(float32(side)/2)) * 10,
					5,
				},
				Size: mgl32.Vec2{size, size},
			},
			gekko2d.SpriteComponent{
				Sheet: sheets[rng.IntN(len(sheets))],
				Col:   rng.IntN(48),
				Row:   rng.IntN(22),
			},
			spinner{Speed: rng.Float32()*2 - 1},
		)
	}
	cmd.Logger().Infof("spawned %d sprites", s.Count)
	s.Count = 0
}

func spinSystem(cmd *gekko2d.Commands, t *gekko2d.Time) {
	dt := float32(t.Dt.Seconds())
	gekko2d.MakeQuery2[gekko2d.TransformComponent, spinner](cmd).Map(func(_ gekko2d.EntityId, tr *gekko2d.TransformComponent, s *spinner) bool {
		tr.Rotation += s.Speed * dt
		return true
	})
}
