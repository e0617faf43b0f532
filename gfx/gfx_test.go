package gfx

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/renderpass/resource"
)

func testProgram(t *testing.T) *Program {
	t.Helper()
	p, err := NewProgram(ProgramDesc{
		Name:   "test",
		Source: "// no-op",
		Vars: []VarDecl{
			{Name: "src", Kind: VarTexture, Binding: 0},
			{Name: "weights", Kind: VarBuffer, Binding: 1},
			{Name: "params", Kind: VarFloats, Binding: 2},
		},
	})
	if err != nil {
		t.Fatalf("NewProgram() error = %v", err)
	}
	return p
}

func TestNewProgramErrors(t *testing.T) {
	tests := []struct {
		name string
		desc ProgramDesc
	}{
		{"no name", ProgramDesc{Source: "x"}},
		{"no source", ProgramDesc{Name: "p"}},
		{"duplicate var", ProgramDesc{Name: "p", Source: "x", Vars: []VarDecl{
			{Name: "a", Kind: VarTexture}, {Name: "a", Kind: VarBuffer},
		}}},
		{"unnamed var", ProgramDesc{Name: "p", Source: "x", Vars: []VarDecl{{Kind: VarFloats}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProgram(tt.desc)
			if !errors.Is(err, ErrProgramCompile) {
				t.Errorf("NewProgram() error = %v, want %v", err, ErrProgramCompile)
			}
		})
	}
}

func TestVarsBinding(t *testing.T) {
	p := testProgram(t)
	v := NewVars(p)
	tex := resource.NewTexture(resource.DefaultTextureDesc(2, 2), nil, nil)

	if err := v.SetTexture("src", tex); err != nil {
		t.Fatalf("SetTexture() error = %v", err)
	}
	if v.Texture("src") != tex {
		t.Error("Texture(src) did not return the bound texture")
	}
	if err := v.SetTexture("missing", tex); !errors.Is(err, ErrUnknownVar) {
		t.Errorf("SetTexture(missing) error = %v, want %v", err, ErrUnknownVar)
	}
	if err := v.SetFloats("src", 1); !errors.Is(err, ErrVarKind) {
		t.Errorf("SetFloats(src) error = %v, want %v", err, ErrVarKind)
	}
	if err := v.SetFloats("params", 1, 2, 3); err != nil {
		t.Fatalf("SetFloats() error = %v", err)
	}
	if got := v.Float("params", 0); got != 1 {
		t.Errorf("Float(params) = %v, want 1", got)
	}
	if got := v.Float("unset", 7); got != 7 {
		t.Errorf("Float(unset) = %v, want 7", got)
	}
	if err := v.SetTexture("src", nil); err != nil || v.Texture("src") != nil {
		t.Errorf("SetTexture(nil) did not unbind, err = %v", err)
	}
	if got := v.Sampler("any"); got != LinearClamp {
		t.Errorf("Sampler() = %+v, want LinearClamp", got)
	}
}

func TestProgramCompileWithoutSource(t *testing.T) {
	p, err := NewProgram(ProgramDesc{
		Name:     "cpu-only",
		Fragment: func(*FragmentInput) (RGBA, bool) { return RGBA{}, true },
	})
	if err != nil {
		t.Fatalf("NewProgram() error = %v", err)
	}
	if _, err := p.Compile(); !errors.Is(err, ErrProgramCompile) {
		t.Errorf("Compile() error = %v, want %v", err, ErrProgramCompile)
	}
}

func TestProgramCompileWGSL(t *testing.T) {
	p := MustProgram(ProgramDesc{
		Name: "solid",
		Source: `
@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    let x = f32(i32(idx & 1u) * 4 - 1);
    let y = f32(i32(idx >> 1u) * 4 - 1);
    return vec4<f32>(x, y, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`,
	})
	spirv, err := p.Compile()
	if err != nil {
		if !errors.Is(err, ErrProgramCompile) {
			t.Fatalf("Compile() error = %v, want wrapped %v", err, ErrProgramCompile)
		}
		t.Skipf("Skipping: naga could not lower the shader: %v", err)
	}
	if len(spirv) == 0 {
		t.Fatal("Compile() returned empty SPIR-V")
	}
	// SPIR-V magic number
	if spirv[0] != 0x07230203 {
		t.Errorf("SPIR-V magic = %#x, want 0x07230203", spirv[0])
	}
}

func TestTargetSetStatus(t *testing.T) {
	color := resource.NewTexture(resource.DefaultTextureDesc(8, 8), nil, nil)
	depth := resource.NewTexture(resource.TextureDesc{
		Width: 8, Height: 8, Format: gputypes.TextureFormatDepth32Float, Flags: resource.DepthStencil,
	}, nil, nil)
	smallDepth := resource.NewTexture(resource.TextureDesc{
		Width: 4, Height: 4, Format: gputypes.TextureFormatDepth32Float, Flags: resource.DepthStencil,
	}, nil, nil)

	tests := []struct {
		name    string
		ts      *TargetSet
		wantErr error
	}{
		{"empty", NewTargetSet(), ErrIncompleteTargets},
		{"color only", NewTargetSet(color), nil},
		{"color and depth", func() *TargetSet { ts := NewTargetSet(color); ts.AttachDepth(depth); return ts }(), nil},
		{"size mismatch", func() *TargetSet { ts := NewTargetSet(color); ts.AttachDepth(smallDepth); return ts }(), ErrTargetSizeMismatch},
		{"color as depth", func() *TargetSet { ts := NewTargetSet(color); ts.AttachDepth(color); return ts }(), ErrDepthFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ts.CheckStatus()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckStatus() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	ts := NewTargetSet(color)
	if ts.Width() != 8 || ts.Height() != 8 {
		t.Errorf("size = %dx%d, want 8x8", ts.Width(), ts.Height())
	}
}

func TestDepthStatePasses(t *testing.T) {
	tests := []struct {
		name      string
		state     DepthState
		z, stored float32
		want      bool
	}{
		{"disabled", DepthDisabled, 1, 0, true},
		{"less pass", DepthReadWrite, 0.2, 0.5, true},
		{"less equal fails", DepthReadWrite, 0.5, 0.5, false},
		{"less-equal equal", DepthReadOnly, 0.5, 0.5, true},
		{"less-equal behind", DepthReadOnly, 0.6, 0.5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Passes(tt.z, tt.stored); got != tt.want {
				t.Errorf("Passes(%v, %v) = %v, want %v", tt.z, tt.stored, got, tt.want)
			}
		})
	}
}

func TestRGBAHelpers(t *testing.T) {
	a := RGBA{0, 0, 0, 0}
	b := RGBA{1, 2, 3, 4}
	if got := a.Lerp(b, 0.5); got != (RGBA{0.5, 1, 1.5, 2}) {
		t.Errorf("Lerp() = %v", got)
	}
	if got := b.Scale(2); got != (RGBA{2, 4, 6, 8}) {
		t.Errorf("Scale() = %v", got)
	}
	if got := a.Add(b); got != b {
		t.Errorf("Add() = %v, want %v", got, b)
	}
}
