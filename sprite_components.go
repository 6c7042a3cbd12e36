package gekko2d

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/gekko2d/spritert/rt/core"
)

// TransformComponent places a sprite quad in world space. Size is the full
// quad extent; Rotation is radians about the view axis.
type TransformComponent struct {
	Position mgl32.Vec3
	Rotation float32
	Size     mgl32.Vec2
}

func (t TransformComponent) gpuTransform() core.Transform {
	return core.NewTransform(t.Position, t.Size).WithRotation(t.Rotation)
}

// SpriteComponent draws tile (Col, Row) of a sprite sheet registered with the
// AssetServer.
type SpriteComponent struct {
	Sheet AssetId
	Col   int
	Row   int
}
