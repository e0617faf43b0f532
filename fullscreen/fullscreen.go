// Package fullscreen provides the full-screen pass primitive: a program
// drawn over every pixel of a target set with no vertex input.
package fullscreen

import (
	"fmt"

	"github.com/gogpu/renderpass/gfx"
	"github.com/gogpu/renderpass/resource"
)

// VertexWGSL is the vertex stage shared by full-screen programs. It emits
// a single oversized triangle from the vertex index, with uv in [0, 1] and
// v pointing down.
const VertexWGSL = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> VertexOutput {
    var out: VertexOutput;
    let x = f32(i32(idx & 1u) * 4 - 1);
    let y = f32(i32(idx >> 1u) * 4 - 1);
    out.position = vec4<f32>(x, y, 0.0, 1.0);
    out.uv = vec2<f32>((x + 1.0) * 0.5, (1.0 - y) * 0.5);
    return out;
}
`

// Pass draws one program over a whole target set.
type Pass struct {
	program *gfx.Program
	vars    *gfx.Vars
	blend   gfx.BlendMode
}

// New returns a pass drawing p.
func New(p *gfx.Program) *Pass {
	return &Pass{program: p, vars: gfx.NewVars(p)}
}

// NewFromDesc builds the program from desc, prepending VertexWGSL to its
// fragment source. A source that does not compile is an error.
func NewFromDesc(desc gfx.ProgramDesc) (*Pass, error) {
	if desc.Source != "" {
		desc.Source = VertexWGSL + desc.Source
	}
	p, err := gfx.NewProgram(desc)
	if err != nil {
		return nil, fmt.Errorf("fullscreen: %w", err)
	}
	if desc.Source != "" {
		if _, err := p.Compile(); err != nil {
			return nil, fmt.Errorf("fullscreen: %w", err)
		}
	}
	return New(p), nil
}

// Program returns the program.
func (p *Pass) Program() *gfx.Program { return p.program }

// Vars returns the bound variables.
func (p *Pass) Vars() *gfx.Vars { return p.vars }

// SetBlend selects how the program's output combines with the target.
func (p *Pass) SetBlend(b gfx.BlendMode) { p.blend = b }

// SetTexture binds a texture variable.
func (p *Pass) SetTexture(name string, tex *resource.Texture) error {
	return p.vars.SetTexture(name, tex)
}

// SetBuffer binds a buffer variable.
func (p *Pass) SetBuffer(name string, buf *resource.Buffer) error {
	return p.vars.SetBuffer(name, buf)
}

// SetFloats sets a constant variable.
func (p *Pass) SetFloats(name string, vals ...float32) error {
	return p.vars.SetFloats(name, vals...)
}

// SetSampler sets a sampler variable.
func (p *Pass) SetSampler(name string, s gfx.Sampler) error {
	return p.vars.SetSampler(name, s)
}

// Execute draws the program over every pixel of dst. The target is not
// cleared and depth is neither tested nor written.
func (p *Pass) Execute(ctx gfx.Context, dst *gfx.TargetSet) error {
	return ctx.Draw(&gfx.DrawCall{
		Program: p.program,
		Vars:    p.vars,
		Targets: dst,
		Depth:   gfx.DepthDisabled,
		Blend:   p.blend,
	})
}
