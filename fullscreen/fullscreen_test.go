package fullscreen

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/renderpass/gfx"
	"github.com/gogpu/renderpass/resource"
	"github.com/gogpu/renderpass/software"
)

func invertDesc() gfx.ProgramDesc {
	return gfx.ProgramDesc{
		Name: "invert",
		Source: `
@group(0) @binding(0) var src: texture_2d<f32>;

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let c = textureLoad(src, vec2<i32>(in.position.xy), 0);
    return vec4<f32>(1.0 - c.rgb, c.a);
}
`,
		Vars: []gfx.VarDecl{{Name: "src", Kind: gfx.VarTexture, Binding: 0}},
		Fragment: func(in *gfx.FragmentInput) (gfx.RGBA, bool) {
			c := in.Texels.Fetch(in.Vars.Texture("src"), in.X, in.Y)
			return gfx.RGBA{1 - c[0], 1 - c[1], 1 - c[2], c[3]}, true
		},
	}
}

func TestNewFromDescPrependsVertexStage(t *testing.T) {
	p, err := NewFromDesc(invertDesc())
	if err != nil {
		t.Fatalf("NewFromDesc() error = %v", err)
	}
	src := p.Program().Source()
	if !strings.HasPrefix(src, VertexWGSL) || !strings.Contains(src, "fs_main") {
		t.Error("program source should be the vertex stage followed by the fragment stage")
	}
	if _, err := NewFromDesc(gfx.ProgramDesc{}); !errors.Is(err, gfx.ErrProgramCompile) {
		t.Errorf("NewFromDesc(empty) error = %v, want %v", err, gfx.ErrProgramCompile)
	}
}

func TestNewFromDescCompiles(t *testing.T) {
	p, err := NewFromDesc(invertDesc())
	if err != nil {
		t.Fatalf("NewFromDesc() error = %v", err)
	}
	if words, err := p.Program().Compile(); err != nil || len(words) == 0 {
		t.Errorf("Compile() = %d words, %v; want SPIR-V", len(words), err)
	}

	bad := invertDesc()
	bad.Source = "this is not wgsl"
	if p, err := NewFromDesc(bad); p != nil || !errors.Is(err, gfx.ErrProgramCompile) {
		t.Errorf("NewFromDesc(bad source) = %v, %v; want nil, %v", p, err, gfx.ErrProgramCompile)
	}

	// CPU-only programs have nothing to compile.
	cpu := invertDesc()
	cpu.Source = ""
	if _, err := NewFromDesc(cpu); err != nil {
		t.Errorf("NewFromDesc(no source) error = %v", err)
	}
}

func TestSetUnknownVariable(t *testing.T) {
	p, _ := NewFromDesc(invertDesc())
	if err := p.SetTexture("missing", nil); !errors.Is(err, gfx.ErrUnknownVar) {
		t.Errorf("SetTexture(missing) error = %v, want %v", err, gfx.ErrUnknownVar)
	}
	if err := p.SetFloats("src", 1); !errors.Is(err, gfx.ErrVarKind) {
		t.Errorf("SetFloats(src) error = %v, want %v", err, gfx.ErrVarKind)
	}
	if err := p.SetBuffer("missing", nil); !errors.Is(err, gfx.ErrUnknownVar) {
		t.Errorf("SetBuffer(missing) error = %v, want %v", err, gfx.ErrUnknownVar)
	}
	if err := p.SetSampler("missing", gfx.LinearClamp); !errors.Is(err, gfx.ErrUnknownVar) {
		t.Errorf("SetSampler(missing) error = %v, want %v", err, gfx.ErrUnknownVar)
	}
}

func TestExecuteCoversTargetWithoutClearing(t *testing.T) {
	ctx := software.New()
	src, _ := ctx.CreateTexture(resource.DefaultTextureDesc(4, 4))
	dst, _ := ctx.CreateTexture(resource.DefaultTextureDesc(4, 4))
	srcSet := gfx.NewTargetSet(src)
	_ = ctx.Clear(srcSet, gfx.ClearValues{Color: gfx.RGBA{1, 0, 0, 1}}, gfx.ClearColor)

	p, _ := NewFromDesc(invertDesc())
	if err := p.SetTexture("src", src); err != nil {
		t.Fatal(err)
	}
	if err := p.Execute(ctx, gfx.NewTargetSet(dst)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if got := ctx.Fetch(dst, x, y); got != (gfx.RGBA{0, 1, 1, 1}) {
				t.Fatalf("pixel (%d,%d) = %v, want (0,1,1,1)", x, y, got)
			}
		}
	}
	if s := ctx.Stats(); s.Draws != 1 || s.Clears != 1 {
		t.Errorf("Stats() = %+v, want one draw and only the setup clear", s)
	}
}

func TestExecuteBlend(t *testing.T) {
	ctx := software.New()
	dst, _ := ctx.CreateTexture(resource.DefaultTextureDesc(2, 2))
	ts := gfx.NewTargetSet(dst)
	_ = ctx.Clear(ts, gfx.ClearValues{Color: gfx.RGBA{0, 0, 0, 1}}, gfx.ClearColor)

	p := New(gfx.MustProgram(gfx.ProgramDesc{
		Name: "half-white",
		Fragment: func(*gfx.FragmentInput) (gfx.RGBA, bool) {
			return gfx.RGBA{1, 1, 1, 0.5}, true
		},
	}))
	p.SetBlend(gfx.BlendAlpha)
	if err := p.Execute(ctx, ts); err != nil {
		t.Fatal(err)
	}
	if got := ctx.Fetch(dst, 1, 1); got != (gfx.RGBA{0.5, 0.5, 0.5, 1}) {
		t.Errorf("blended = %v, want (0.5, 0.5, 0.5, 1)", got)
	}
}
