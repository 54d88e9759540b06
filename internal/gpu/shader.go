package gpu

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// Embedded mesh shader source.
//
//go:embed shaders/mesh.wgsl
var meshShaderSource string

// Shader entry points in mesh.wgsl.
const (
	entryVertexSRGB   = "vs_main"
	entryVertexLinear = "vs_conv_main"
	entryFragment     = "fs_main"
)

// Shader errors.
var (
	// ErrShaderInvalid is returned when WGSL fails to parse or validate.
	ErrShaderInvalid = errors.New("gpu: invalid mesh shader")

	// ErrMissingEntryPoint is returned when a required entry point is absent.
	ErrMissingEntryPoint = errors.New("gpu: shader entry point missing")
)

// MeshShaderSource returns the embedded WGSL source of the mesh shader.
func MeshShaderSource() string { return meshShaderSource }

// checkShader parses, lowers and validates WGSL source and verifies that
// every entry point the pipeline uses exists with the right stage.
func checkShader(source string) error {
	ast, err := naga.Parse(source)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrShaderInvalid, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrShaderInvalid, err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrShaderInvalid, err)
	}
	if len(verrs) > 0 {
		return fmt.Errorf("%w: %w (%d validation errors)", ErrShaderInvalid, verrs[0], len(verrs))
	}

	want := map[string]ir.ShaderStage{
		entryVertexSRGB:   ir.StageVertex,
		entryVertexLinear: ir.StageVertex,
		entryFragment:     ir.StageFragment,
	}
	for _, ep := range module.EntryPoints {
		if stage, ok := want[ep.Name]; ok && stage == ep.Stage {
			delete(want, ep.Name)
		}
	}
	if len(want) > 0 {
		missing := slices.Sorted(maps.Keys(want))
		return fmt.Errorf("%w: %s", ErrMissingEntryPoint, strings.Join(missing, ", "))
	}
	return nil
}

// compileSPIRV compiles WGSL source to SPIR-V words.
func compileSPIRV(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("gpu: compile mesh shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
