package blur

import (
	"math"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/renderpass"
	"github.com/gogpu/renderpass/gfx"
	"github.com/gogpu/renderpass/resource"
	"github.com/gogpu/renderpass/software"
)

func floatTex(t *testing.T, ctx *software.Context, w, h int) *resource.Texture {
	t.Helper()
	tex, err := ctx.CreateTexture(resource.TextureDesc{
		Width: w, Height: h,
		Format: gputypes.TextureFormatRGBA32Float,
		Flags:  resource.RenderTarget | resource.ShaderResource,
	})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	return tex
}

func bind(t *testing.T, p *Pass, src, dst *resource.Texture) {
	t.Helper()
	if !p.SetInput(SlotSrc, resource.FromTexture(src)) {
		t.Fatal("SetInput(src) = false")
	}
	if !p.SetOutput(SlotDst, resource.FromTexture(dst)) {
		t.Fatal("SetOutput(dst) = false")
	}
}

func TestDefaults(t *testing.T) {
	p, err := Create(nil, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.KernelWidth() != DefaultKernelWidth || p.Sigma() != DefaultSigma {
		t.Errorf("defaults = (%d, %v), want (%d, %v)", p.KernelWidth(), p.Sigma(), DefaultKernelWidth, DefaultSigma)
	}
	if p.Name() != Name {
		t.Errorf("Name() = %q, want %q", p.Name(), Name)
	}
	if p.Ready() {
		t.Error("new pass should be uninitialized")
	}
	if _, err := Create(nil, renderpass.Dictionary{"kernelWidth": MaxKernelWidth + 1}); err == nil {
		t.Error("Create() with oversized kernel error = nil")
	}
}

func TestReflect(t *testing.T) {
	r := New(5, 2).Reflect(renderpass.DefaultCompileData())
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	src := r.Field(SlotSrc)
	if src == nil || src.Direction() != renderpass.Input || !src.BindFlags().Has(resource.ShaderResource) {
		t.Errorf("src field = %+v, want a shader-readable input", src)
	}
	dst := r.Field(SlotDst)
	if dst == nil || dst.Direction() != renderpass.Output || dst.Fmt() != gputypes.TextureFormatUndefined {
		t.Errorf("dst field = %+v, want an output with inherited format", dst)
	}
}

func TestIsValid(t *testing.T) {
	ctx := software.New()
	p := New(3, 1)

	var log renderpass.Log
	if p.IsValid(&log) {
		t.Fatal("IsValid() with nothing bound = true")
	}
	if log.Len() != 2 {
		t.Errorf("log = %q, want two messages", log.Messages())
	}

	bind(t, p, floatTex(t, ctx, 8, 8), floatTex(t, ctx, 4, 4))
	log.Reset()
	if p.IsValid(&log) || !log.Contains("is 8x8 but") {
		t.Errorf("IsValid() with mismatched sizes log = %q", log.String())
	}

	p.SetOutput(SlotDst, resource.FromTexture(floatTex(t, ctx, 8, 8)))
	log.Reset()
	if !p.IsValid(&log) || log.Len() != 0 {
		t.Errorf("IsValid() = false, log = %q", log.String())
	}
}

func TestUnknownSlot(t *testing.T) {
	ctx := software.New()
	p := New(3, 1)
	src := floatTex(t, ctx, 4, 4)
	bind(t, p, src, floatTex(t, ctx, 4, 4))

	if p.SetInput("source", resource.FromTexture(floatTex(t, ctx, 4, 4))) {
		t.Error("SetInput(unknown) = true")
	}
	if p.SetOutput(SlotSrc, resource.FromTexture(src)) {
		t.Error("SetOutput(src) = true for an input-only slot")
	}
	if p.slots.Texture(SlotSrc) != src {
		t.Error("failed binds changed the src slot")
	}
}

func TestConstantImageUnchanged(t *testing.T) {
	ctx := software.New()
	src := floatTex(t, ctx, 12, 9)
	dst := floatTex(t, ctx, 12, 9)
	want := gfx.RGBA{0.25, 0.5, 0.75, 1}
	_ = ctx.Clear(gfx.NewTargetSet(src), gfx.ClearValues{Color: want}, gfx.ClearColor)

	p := New(4, 1.5)
	bind(t, p, src, dst)
	p.Execute(ctx, &renderpass.RenderData{})

	for y := 0; y < 9; y++ {
		for x := 0; x < 12; x++ {
			got := ctx.Fetch(dst, x, y)
			for c := range got {
				if math.Abs(float64(got[c]-want[c])) > 1e-5 {
					t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
				}
			}
		}
	}
	if got := ctx.Stats().Draws; got != 2 {
		t.Errorf("Draws = %d, want 2", got)
	}
}

func TestImpulseSpreads(t *testing.T) {
	ctx := software.New()
	const size = 15
	src := floatTex(t, ctx, size, size)
	dst := floatTex(t, ctx, size, size)
	texels := make([]float32, size*size*4)
	center := (size/2*size + size/2) * 4
	texels[center] = 1
	if err := ctx.WriteTexture(src, gfx.EncodeFloats(texels)); err != nil {
		t.Fatal(err)
	}

	p := New(3, 1)
	bind(t, p, src, dst)
	p.Execute(ctx, nil)

	var sum float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			sum += float64(ctx.Fetch(dst, x, y)[0])
		}
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Errorf("energy = %v, want 1", sum)
	}
	w := p.Weights()
	wantCenter := w[3] * w[3]
	if got := ctx.Fetch(dst, size/2, size/2)[0]; math.Abs(float64(got-wantCenter)) > 1e-6 {
		t.Errorf("center = %v, want %v", got, wantCenter)
	}
	if a, b := ctx.Fetch(dst, size/2-2, size/2)[0], ctx.Fetch(dst, size/2+2, size/2)[0]; a != b || a == 0 {
		t.Errorf("horizontal neighbours = %v, %v, want equal and non-zero", a, b)
	}
	if got := ctx.Fetch(dst, size/2+4, size/2)[0]; got != 0 {
		t.Errorf("outside kernel = %v, want 0", got)
	}
}

func TestScratchFollowsSource(t *testing.T) {
	ctx := software.New()
	p := New(2, 1)
	bind(t, p, floatTex(t, ctx, 8, 8), floatTex(t, ctx, 8, 8))
	if err := p.Compile(ctx, renderpass.DefaultCompileData()); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !p.Ready() || p.Scratch() == nil || p.Scratch().Width() != 8 {
		t.Fatalf("after Compile scratch = %v, want 8x8", p.Scratch())
	}
	first := p.Scratch()

	p.Execute(ctx, nil)
	if p.Scratch() != first {
		t.Error("scratch reallocated without a source change")
	}

	bind(t, p, floatTex(t, ctx, 16, 4), floatTex(t, ctx, 16, 4))
	released := ctx.Stats().TexturesReleased
	p.Execute(ctx, nil)
	s := p.Scratch()
	if s == first || s.Width() != 16 || s.Height() != 4 {
		t.Errorf("scratch after resize = %dx%d, want 16x4", s.Width(), s.Height())
	}
	if !first.Released() || ctx.Stats().TexturesReleased != released+1 {
		t.Error("old scratch texture was not released")
	}

	p.Release()
	if p.Scratch() != nil || p.Ready() {
		t.Error("Release() kept the scratch texture")
	}
	if ctx.Stats().BuffersReleased != ctx.Stats().BuffersCreated {
		t.Error("Release() leaked the weight buffer")
	}
}

func TestParameterChangeReuploads(t *testing.T) {
	ctx := software.New()
	p := New(2, 1)
	bind(t, p, floatTex(t, ctx, 4, 4), floatTex(t, ctx, 4, 4))
	p.Execute(ctx, nil)
	p.Execute(ctx, nil)
	if got := ctx.Stats().BuffersCreated; got != 1 {
		t.Errorf("BuffersCreated = %d, want 1", got)
	}
	p.SetKernelWidth(6)
	p.Execute(ctx, nil)
	if got := len(ctx.Floats(p.weights.Buffer())); got != 7 {
		t.Errorf("weights length = %d, want 7", got)
	}
	p.SetKernelWidth(MaxKernelWidth * 2)
	if p.KernelWidth() != MaxKernelWidth {
		t.Errorf("KernelWidth() = %d, want clamp to %d", p.KernelWidth(), MaxKernelWidth)
	}
}

func TestDictionaryRoundTrip(t *testing.T) {
	p := New(9, 3.5)
	var buf strings.Builder
	if err := p.Dictionary().EncodeTOML(&buf); err != nil {
		t.Fatalf("EncodeTOML() error = %v", err)
	}
	dict, err := renderpass.DecodeTOML(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("DecodeTOML() error = %v", err)
	}
	q, err := Create(nil, dict)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if q.KernelWidth() != 9 || q.Sigma() != 3.5 {
		t.Errorf("round trip = (%d, %v), want (9, 3.5)", q.KernelWidth(), q.Sigma())
	}
}

func TestRegistered(t *testing.T) {
	pass := renderpass.Create(nil, Name, renderpass.Dictionary{"sigma": 4.0})
	p, ok := pass.(*Pass)
	if !ok {
		t.Fatalf("Create(%q) = %T, want *Pass", Name, pass)
	}
	if p.Sigma() != 4 {
		t.Errorf("Sigma() = %v, want 4", p.Sigma())
	}
}
