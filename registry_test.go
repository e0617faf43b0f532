package renderpass

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/renderpass/fullscreen"
	"github.com/gogpu/renderpass/gfx"
	"github.com/gogpu/renderpass/resource"
)

// stubPass is the smallest Pass: one input, one output, one parameter.
type stubPass struct {
	slots *Slots
	gain  float32
	runs  int
}

func newStubPass(_ gfx.Context, d Dictionary) (Pass, error) {
	gain := d.Float("gain", 1)
	if gain < 0 {
		return nil, errors.New("gain must be non-negative")
	}
	p := &stubPass{gain: gain}
	p.slots = NewSlots(p.Name(), p.Reflect(DefaultCompileData()))
	return p, nil
}

func (p *stubPass) Name() string { return "Stub" }

func (p *stubPass) Reflect(CompileData) *Reflection {
	r := NewReflection()
	r.AddInput("src", "")
	r.AddOutput("dst", "")
	return r
}

func (p *stubPass) SetInput(name string, h resource.Handle) bool {
	return p.slots.Set(Input, name, h)
}

func (p *stubPass) SetOutput(name string, h resource.Handle) bool {
	return p.slots.Set(Output, name, h)
}

func (p *stubPass) IsValid(log *Log) bool { return p.slots.Validate(log) }

func (p *stubPass) Execute(gfx.Context, *RenderData) { p.runs++ }

func (p *stubPass) Dictionary() Dictionary { return Dictionary{"gain": p.gain} }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Desc{Name: "Stub", Summary: "test pass", Factory: newStubPass}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(Desc{Name: "NoFactory"}); err == nil {
		t.Error("Register() without factory error = nil")
	}
	if got := r.Names(); len(got) != 1 || got[0] != "Stub" {
		t.Errorf("Names() = %v, want [Stub]", got)
	}

	p, err := r.New(nil, "Stub", Dictionary{"gain": 2.0})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := p.Dictionary().Float("gain", 0); got != 2 {
		t.Errorf("gain = %v, want 2", got)
	}

	// Round trip through the factory.
	again, err := r.New(nil, "Stub", p.Dictionary())
	if err != nil {
		t.Fatalf("New(round trip) error = %v", err)
	}
	if again.Dictionary().Float("gain", 0) != 2 {
		t.Error("dictionary round trip lost gain")
	}

	if _, err := r.New(nil, "Missing", nil); !errors.Is(err, ErrUnknownPass) {
		t.Errorf("New(Missing) error = %v, want %v", err, ErrUnknownPass)
	}
}

func TestRegistryCreateLogsFailure(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	r := NewRegistry()
	_ = r.Register(Desc{Name: "Stub", Factory: newStubPass})

	if p := r.Create(nil, "Stub", Dictionary{"gain": -1.0}); p != nil {
		t.Error("Create() with invalid parameters should return nil")
	}
	if !strings.Contains(buf.String(), "gain must be non-negative") {
		t.Errorf("log = %q, want the factory error", buf.String())
	}
}

func TestRegistryCreateRejectsBadShader(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	r := NewRegistry()
	_ = r.Register(Desc{Name: "Broken", Factory: func(ctx gfx.Context, d Dictionary) (Pass, error) {
		if _, err := fullscreen.NewFromDesc(gfx.ProgramDesc{Name: "broken", Source: "this is not wgsl"}); err != nil {
			return nil, err
		}
		return newStubPass(ctx, d)
	}})

	if _, err := r.New(nil, "Broken", nil); !errors.Is(err, gfx.ErrProgramCompile) {
		t.Errorf("New() error = %v, want %v", err, gfx.ErrProgramCompile)
	}
	if p := r.Create(nil, "Broken", nil); p != nil {
		t.Error("Create() with a broken shader should return nil")
	}
	if !strings.Contains(buf.String(), "broken") {
		t.Errorf("log = %q, want the program name", buf.String())
	}
}

func TestSetInputUnknownLogs(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	p, _ := newStubPass(nil, nil)
	tex := newTex(4, 4, 0, resource.ShaderResource)
	if p.SetInput("nope", resource.FromTexture(tex)) {
		t.Error("SetInput(nope) = true, want false")
	}
	if !strings.Contains(buf.String(), "nope") {
		t.Errorf("log = %q, want the slot name", buf.String())
	}
	if p.IsValid(nil) {
		t.Error("IsValid() = true with nothing bound")
	}
}

func TestDefaultRegistry(t *testing.T) {
	Register(Desc{Name: "StubDefault", Factory: newStubPass})
	if _, ok := DefaultRegistry().Lookup("StubDefault"); !ok {
		t.Fatal("Register() did not add to the default registry")
	}
	if p := Create(nil, "StubDefault", nil); p == nil {
		t.Error("Create() returned nil for a registered pass")
	}
}
