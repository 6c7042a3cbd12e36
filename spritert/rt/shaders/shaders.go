package shaders

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gogpu/naga"

	"github.com/gekko3d/gekko2d/spritert/rt/gpu"
)

//go:embed sprite.wgsl
var SpriteWGSL string

const Sprite = "sprite"

var sources = map[string]string{
	Sprite: SpriteWGSL,
}

var (
	compiledMu sync.Mutex
	compiled   = map[string]gpu.ShaderSource{}
)

// Load returns the named shader with its SPIR-V compiled from WGSL. Results
// are cached for the life of the process.
func Load(name string) (gpu.ShaderSource, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if src, ok := compiled[name]; ok {
		return src, nil
	}
	wgsl, ok := sources[name]
	if !ok {
		return gpu.ShaderSource{}, fmt.Errorf("unknown shader %q", name)
	}
	words, err := CompileSPIRV(wgsl)
	if err != nil {
		return gpu.ShaderSource{}, fmt.Errorf("shader %q: %w", name, err)
	}
	src := gpu.ShaderSource{Name: name, WGSL: wgsl, SPIRV: words}
	compiled[name] = src
	return src, nil
}

// CompileSPIRV compiles WGSL to little-endian SPIR-V words.
func CompileSPIRV(wgsl string) ([]uint32, error) {
	spirv, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	if len(spirv)%4 != 0 {
		return nil, fmt.Errorf("compile: SPIR-V length %d is not word aligned", len(spirv))
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}
	return words, nil
}
