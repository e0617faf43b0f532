package gfx

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"

	"github.com/gogpu/renderpass/resource"
)

// VarKind is the type of a program variable.
type VarKind uint8

const (
	VarTexture VarKind = iota + 1
	VarBuffer
	VarFloats
	VarSampler
)

// String returns the kind name.
func (k VarKind) String() string {
	switch k {
	case VarTexture:
		return "texture"
	case VarBuffer:
		return "buffer"
	case VarFloats:
		return "floats"
	case VarSampler:
		return "sampler"
	default:
		return fmt.Sprintf("VarKind(%d)", k)
	}
}

// VarDecl declares a program variable and its WGSL binding slot.
type VarDecl struct {
	Name    string
	Kind    VarKind
	Binding uint32
}

// FragmentInput is what a CPU fragment function sees for one pixel.
type FragmentInput struct {
	X, Y          int
	U, V          float32
	Width, Height int
	// Color is the interpolated vertex color for mesh draws.
	Color RGBA
	// Depth is the interpolated fragment depth for mesh draws.
	Depth  float32
	Vars   *Vars
	Texels TexelReader
}

// TexelReader reads context resources from CPU fragment functions.
type TexelReader interface {
	// Fetch loads one texel with clamp-to-edge addressing.
	Fetch(tex *resource.Texture, x, y int) RGBA
	// Sample filters tex at normalized coordinates.
	Sample(tex *resource.Texture, s Sampler, u, v float32) RGBA
	// Floats views a buffer as little-endian float32 values.
	Floats(buf *resource.Buffer) []float32
}

// FragmentFunc is the CPU rendition of a program's fragment stage.
// Returning false discards the fragment.
type FragmentFunc func(in *FragmentInput) (RGBA, bool)

// Sampler describes texture filtering.
type Sampler struct {
	Filter  gputypes.FilterMode
	Address gputypes.AddressMode
}

// LinearClamp is the sampler full-screen passes use.
var LinearClamp = Sampler{Filter: gputypes.FilterModeLinear, Address: gputypes.AddressModeClampToEdge}

// ProgramDesc describes a program.
type ProgramDesc struct {
	Name string
	// Source is the WGSL module with vs_main and fs_main entry points.
	Source   string
	Vars     []VarDecl
	Fragment FragmentFunc
}

// Program is a shader program: WGSL source for GPU contexts plus a CPU
// fragment function for the software context.
type Program struct {
	name     string
	source   string
	vars     []VarDecl
	index    map[string]int
	fragment FragmentFunc

	once  sync.Once
	spirv []uint32
	err   error
}

// NewProgram validates desc and returns a program.
// WGSL compilation is deferred to Compile.
func NewProgram(desc ProgramDesc) (*Program, error) {
	if desc.Name == "" {
		return nil, fmt.Errorf("%w: program has no name", ErrProgramCompile)
	}
	if desc.Source == "" && desc.Fragment == nil {
		return nil, fmt.Errorf("%w: %s: no source and no fragment function", ErrProgramCompile, desc.Name)
	}
	p := &Program{
		name:     desc.Name,
		source:   desc.Source,
		vars:     append([]VarDecl(nil), desc.Vars...),
		index:    make(map[string]int, len(desc.Vars)),
		fragment: desc.Fragment,
	}
	for i, v := range p.vars {
		if v.Name == "" {
			return nil, fmt.Errorf("%w: %s: variable %d has no name", ErrProgramCompile, desc.Name, i)
		}
		if _, dup := p.index[v.Name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate variable %q", ErrProgramCompile, desc.Name, v.Name)
		}
		p.index[v.Name] = i
	}
	return p, nil
}

// MustProgram is like NewProgram but panics on error.
// It is intended for package-level program tables.
func MustProgram(desc ProgramDesc) *Program {
	p, err := NewProgram(desc)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the program name.
func (p *Program) Name() string { return p.name }

// Source returns the WGSL source.
func (p *Program) Source() string { return p.source }

// Vars returns the declared variables in declaration order.
func (p *Program) Vars() []VarDecl { return p.vars }

// Var looks up a declared variable.
func (p *Program) Var(name string) (VarDecl, bool) {
	i, ok := p.index[name]
	if !ok {
		return VarDecl{}, false
	}
	return p.vars[i], true
}

// Fragment returns the CPU fragment function, or nil.
func (p *Program) Fragment() FragmentFunc { return p.fragment }

// Compile translates the WGSL source to SPIR-V words. The result is
// computed once and cached.
func (p *Program) Compile() ([]uint32, error) {
	p.once.Do(func() {
		if p.source == "" {
			p.err = fmt.Errorf("%w: %s: no WGSL source", ErrProgramCompile, p.name)
			return
		}
		spirvBytes, err := naga.Compile(p.source)
		if err != nil {
			p.err = fmt.Errorf("%w: %s: %w", ErrProgramCompile, p.name, err)
			return
		}
		// SPIR-V is little-endian 32-bit words
		p.spirv = make([]uint32, len(spirvBytes)/4)
		for i := range p.spirv {
			p.spirv[i] = uint32(spirvBytes[i*4]) |
				uint32(spirvBytes[i*4+1])<<8 |
				uint32(spirvBytes[i*4+2])<<16 |
				uint32(spirvBytes[i*4+3])<<24
		}
	})
	return p.spirv, p.err
}
