package core

import "github.com/go-gl/mathgl/mgl32"

// SpriteDataSize is the GPU size of SpriteData: two vec2<f32>.
const SpriteDataSize = 16

// SpriteData selects a sub-rectangle of an atlas in normalised UV space.
type SpriteData struct {
	UVOffset mgl32.Vec2
	UVSize   mgl32.Vec2
}

// FullTexture covers the whole texture.
var FullTexture = SpriteData{UVSize: mgl32.Vec2{1, 1}}

// GridCell returns the UV rectangle of cell (col, row) in an atlas split into
// cols x rows equally sized tiles.
func GridCell(cols, rows, col, row int) SpriteData {
	w := 1 / float32(cols)
	h := 1 / float32(rows)
	return SpriteData{
		UVOffset: mgl32.Vec2{float32(col) * w, float32(row) * h},
		UVSize:   mgl32.Vec2{w, h},
	}
}

func (d SpriteData) AppendBytes(dst []byte) []byte {
	dst = appendVec2(dst, d.UVOffset)
	return appendVec2(dst, d.UVSize)
}
