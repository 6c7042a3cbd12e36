package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// TransformSize is the GPU size of a Transform: three vec4<f32>.
const TransformSize = 48

// Transform places a sprite in world space. Each field is a vec4 so the
// record can be copied into an instance buffer without repacking; the w
// components are padding.
//
// Rotation is in radians around each axis. The sprite shader only applies Z.
type Transform struct {
	Position mgl32.Vec4
	Rotation mgl32.Vec4
	Size     mgl32.Vec4
}

func NewTransform(position mgl32.Vec3, size mgl32.Vec2) Transform {
	return Transform{
		Position: position.Vec4(1),
		Size:     mgl32.Vec4{size.X(), size.Y(), 0, 1},
	}
}

func (t Transform) WithRotation(radians float32) Transform {
	t.Rotation = mgl32.Vec4{0, 0, radians, 0}
	return t
}

// AppendBytes appends the little-endian GPU representation of t to dst.
func (t Transform) AppendBytes(dst []byte) []byte {
	dst = appendVec4(dst, t.Position)
	dst = appendVec4(dst, t.Rotation)
	return appendVec4(dst, t.Size)
}

func appendVec4(dst []byte, v mgl32.Vec4) []byte {
	for _, f := range v {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}

func appendVec2(dst []byte, v mgl32.Vec2) []byte {
	for _, f := range v {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}
