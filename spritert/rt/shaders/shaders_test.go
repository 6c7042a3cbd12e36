package shaders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spirvMagic = 0x07230203

func TestLoadSprite(t *testing.T) {
	src, err := Load(Sprite)
	require.NoError(t, err)
	assert.Equal(t, Sprite, src.Name)
	assert.Equal(t, SpriteWGSL, src.WGSL)
	require.NotEmpty(t, src.SPIRV)
	assert.Equal(t, uint32(spirvMagic), src.SPIRV[0])

	again, err := Load(Sprite)
	require.NoError(t, err)
	assert.Equal(t, src.SPIRV, again.SPIRV)
}

func TestLoadUnknown(t *testing.T) {
	_, err := Load("nope")
	assert.ErrorContains(t, err, "unknown shader")
}

func TestCompileSPIRVError(t *testing.T) {
	_, err := CompileSPIRV("fn broken( {")
	assert.Error(t, err)
}
