package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraDataSize is the GPU size of CameraData: one mat4x4<f32>.
const CameraDataSize = 64

// Camera is a perspective camera. FovY is in degrees.
type Camera struct {
	Eye    mgl32.Vec3
	Target mgl32.Vec3
	Up     mgl32.Vec3
	Aspect float32
	FovY   float32
	ZNear  float32
	ZFar   float32
}

// NewCamera looks from the origin down +Z, where the sprite plane sits.
func NewCamera(aspect float32) *Camera {
	return &Camera{
		Eye:    mgl32.Vec3{0, 0, 0},
		Target: mgl32.Vec3{0, 0, 100},
		Up:     mgl32.Vec3{0, 1, 0},
		Aspect: aspect,
		FovY:   90,
		ZNear:  0,
		ZFar:   100,
	}
}

// SetAspect updates the aspect ratio from a framebuffer size. A zero-area
// size leaves the camera untouched.
func (c *Camera) SetAspect(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	c.Aspect = float32(width) / float32(height)
}

// glToWebGPU remaps OpenGL clip depth [-1, 1] to the [0, 1] range WebGPU uses.
var glToWebGPU = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

func (c *Camera) Projection() mgl32.Mat4 {
	return glToWebGPU.Mul4(mgl32.Perspective(mgl32.DegToRad(c.FovY), c.Aspect, c.ZNear, c.ZFar))
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye, c.Target, c.Up)
}

func (c *Camera) Data() CameraData {
	return CameraData{ViewProj: c.Projection().Mul4(c.View())}
}

// CameraData is the uniform block consumed by the sprite vertex stage.
type CameraData struct {
	ViewProj mgl32.Mat4
}

// Bytes returns the column-major little-endian matrix.
func (d CameraData) Bytes() []byte {
	buf := make([]byte, 0, CameraDataSize)
	for _, f := range d.ViewProj {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}
