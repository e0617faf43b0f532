package software

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/renderpass/gfx"
	"github.com/gogpu/renderpass/resource"
)

func newTarget(t *testing.T, c *Context, w, h int) *resource.Texture {
	t.Helper()
	tex, err := c.CreateTexture(resource.DefaultTextureDesc(w, h))
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	return tex
}

func newDepth(t *testing.T, c *Context, w, h int) *resource.Texture {
	t.Helper()
	tex, err := c.CreateTexture(resource.TextureDesc{
		Width: w, Height: h, Format: gputypes.TextureFormatDepth32Float, Flags: resource.DepthStencil,
	})
	if err != nil {
		t.Fatalf("CreateTexture(depth) error = %v", err)
	}
	return tex
}

func solidProgram(col gfx.RGBA) *gfx.Program {
	return gfx.MustProgram(gfx.ProgramDesc{
		Name: "solid",
		Fragment: func(*gfx.FragmentInput) (gfx.RGBA, bool) {
			return col, true
		},
	})
}

func TestCreateTexture(t *testing.T) {
	c := New()
	tests := []struct {
		name    string
		desc    resource.TextureDesc
		wantErr bool
	}{
		{"rgba", resource.DefaultTextureDesc(16, 8), false},
		{"zero", resource.DefaultTextureDesc(0, 8), true},
		{"too large", resource.DefaultTextureDesc(maxTextureSize+1, 1), true},
		{"no format", resource.TextureDesc{Width: 4, Height: 4}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tex, err := c.CreateTexture(tt.desc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateTexture() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (tex.Width() != tt.desc.Width || tex.Height() != tt.desc.Height) {
				t.Errorf("size = %dx%d, want %dx%d", tex.Width(), tex.Height(), tt.desc.Width, tt.desc.Height)
			}
		})
	}
	if got := c.Stats().TexturesCreated; got != 1 {
		t.Errorf("TexturesCreated = %d, want 1", got)
	}
}

func TestTextureReleaseCounts(t *testing.T) {
	c := New()
	tex := newTarget(t, c, 4, 4)
	tex.Release()
	tex.Release()
	if s := c.Stats(); s.TexturesReleased != 1 || s.LiveTextures() != 0 {
		t.Errorf("Stats() = %+v, want one release and no live textures", s)
	}
	if _, err := SurfaceOf(tex); !errors.Is(err, gfx.ErrReleased) {
		t.Errorf("SurfaceOf(released) error = %v, want %v", err, gfx.ErrReleased)
	}
}

func TestClear(t *testing.T) {
	c := New()
	color := newTarget(t, c, 4, 4)
	depth := newDepth(t, c, 4, 4)
	ts := gfx.NewTargetSet(color)
	ts.AttachDepth(depth)

	vals := gfx.ClearValues{Color: gfx.RGBA{0.25, 0.5, 0.75, 1}, Depth: 0.5}
	if err := c.Clear(ts, vals, gfx.ClearColor); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got := c.Fetch(color, 2, 2); got != vals.Color {
		t.Errorf("color = %v, want %v", got, vals.Color)
	}
	if got := c.Fetch(depth, 2, 2)[0]; got != 0 {
		t.Errorf("depth = %v, want untouched 0", got)
	}

	if err := c.Clear(ts, vals, gfx.ClearColor|gfx.ClearDepth); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got := c.Fetch(depth, 2, 2)[0]; got != 0.5 {
		t.Errorf("depth = %v, want 0.5", got)
	}
	if got := c.Stats().Clears; got != 2 {
		t.Errorf("Clears = %d, want 2", got)
	}
}

func TestDrawFullscreen(t *testing.T) {
	c := New()
	dst := newTarget(t, c, 8, 4)
	want := gfx.RGBA{1, 0, 0, 1}

	call := &gfx.DrawCall{Program: solidProgram(want), Targets: gfx.NewTargetSet(dst)}
	if err := c.Draw(call); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	for _, p := range [][2]int{{0, 0}, {7, 3}, {4, 2}} {
		if got := c.Fetch(dst, p[0], p[1]); got != want {
			t.Errorf("pixel %v = %v, want %v", p, got, want)
		}
	}
}

func TestDrawFullscreenWorkers(t *testing.T) {
	prog := gfx.MustProgram(gfx.ProgramDesc{
		Name: "gradient",
		Fragment: func(in *gfx.FragmentInput) (gfx.RGBA, bool) {
			if in.X == in.Y {
				return gfx.RGBA{}, false
			}
			return gfx.RGBA{in.U, in.V, in.U * in.V, 1}, true
		},
	})
	render := func(c *Context) *resource.Texture {
		dst := newTarget(t, c, 40, 70)
		if err := c.Draw(&gfx.DrawCall{Program: prog, Targets: gfx.NewTargetSet(dst)}); err != nil {
			t.Fatalf("Draw() error = %v", err)
		}
		return dst
	}

	serial := New()
	par := New(WithWorkers(4))
	defer par.Close()
	if got := par.Workers(); got != 4 {
		t.Fatalf("Workers() = %d, want 4", got)
	}
	a, b := render(serial), render(par)
	for y := 0; y < 70; y++ {
		for x := 0; x < 40; x++ {
			if ga, gb := serial.Fetch(a, x, y), par.Fetch(b, x, y); ga != gb {
				t.Fatalf("pixel (%d,%d) = %v with workers, want %v", x, y, gb, ga)
			}
		}
	}

	par.Close()
	if err := par.Draw(&gfx.DrawCall{Program: solidProgram(gfx.RGBA{0, 1, 0, 1}), Targets: gfx.NewTargetSet(b)}); err != nil {
		t.Fatalf("Draw() after Close error = %v", err)
	}
	if got := par.Fetch(b, 39, 69); got != (gfx.RGBA{0, 1, 0, 1}) {
		t.Errorf("pixel after Close = %v, want green", got)
	}
}

func TestDrawUVs(t *testing.T) {
	c := New()
	dst, err := c.CreateTexture(resource.TextureDesc{
		Width: 4, Height: 2, Format: gputypes.TextureFormatRGBA32Float, Flags: resource.RenderTarget,
	})
	if err != nil {
		t.Fatal(err)
	}
	prog := gfx.MustProgram(gfx.ProgramDesc{
		Name: "uv",
		Fragment: func(in *gfx.FragmentInput) (gfx.RGBA, bool) {
			return gfx.RGBA{in.U, in.V, 0, 1}, true
		},
	})
	if err := c.Draw(&gfx.DrawCall{Program: prog, Targets: gfx.NewTargetSet(dst)}); err != nil {
		t.Fatal(err)
	}
	if got := c.Fetch(dst, 0, 0); got[0] != 0.125 || got[1] != 0.25 {
		t.Errorf("uv at (0,0) = %v, want (0.125, 0.25)", got)
	}
}

func TestDrawErrors(t *testing.T) {
	c := New()
	dst := newTarget(t, c, 4, 4)
	prog := gfx.MustProgram(gfx.ProgramDesc{
		Name: "read",
		Vars: []gfx.VarDecl{{Name: "src", Kind: gfx.VarTexture}},
		Fragment: func(in *gfx.FragmentInput) (gfx.RGBA, bool) {
			return in.Texels.Fetch(in.Vars.Texture("src"), in.X, in.Y), true
		},
	})
	vars := gfx.NewVars(prog)
	_ = vars.SetTexture("src", dst)

	tests := []struct {
		name string
		call *gfx.DrawCall
	}{
		{"nil call", nil},
		{"no program", &gfx.DrawCall{Targets: gfx.NewTargetSet(dst)}},
		{"no targets", &gfx.DrawCall{Program: prog}},
		{"empty targets", &gfx.DrawCall{Program: prog, Targets: gfx.NewTargetSet()}},
		{"feedback", &gfx.DrawCall{Program: prog, Vars: vars, Targets: gfx.NewTargetSet(dst)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Draw(tt.call); err == nil {
				t.Error("Draw() error = nil")
			}
		})
	}
}

func TestDrawMeshDepth(t *testing.T) {
	c := New()
	dst := newTarget(t, c, 16, 16)
	depth := newDepth(t, c, 16, 16)
	ts := gfx.NewTargetSet(dst)
	ts.AttachDepth(depth)
	if err := c.Clear(ts, gfx.DefaultClearValues(), gfx.ClearAll); err != nil {
		t.Fatal(err)
	}

	quad := func(z float32, col gfx.RGBA) *gfx.Mesh {
		return &gfx.Mesh{
			Vertices: []gfx.Vertex{
				{Pos: [3]float32{-1, -1, z}, Color: col},
				{Pos: [3]float32{1, -1, z}, Color: col},
				{Pos: [3]float32{1, 1, z}, Color: col},
				{Pos: [3]float32{-1, 1, z}, Color: col},
			},
			Indices: []uint32{0, 1, 2, 0, 2, 3},
		}
	}
	prog := gfx.MustProgram(gfx.ProgramDesc{Name: "vertex-color", Source: "// passthrough"})
	red := gfx.RGBA{1, 0, 0, 1}
	green := gfx.RGBA{0, 1, 0, 1}

	if err := c.Draw(&gfx.DrawCall{Program: prog, Targets: ts, Mesh: quad(0.5, red), Depth: gfx.DepthReadWrite}); err != nil {
		t.Fatal(err)
	}
	// Farther quad fails the depth test.
	if err := c.Draw(&gfx.DrawCall{Program: prog, Targets: ts, Mesh: quad(0.8, green), Depth: gfx.DepthReadWrite}); err != nil {
		t.Fatal(err)
	}
	if got := c.Fetch(dst, 8, 8); got != red {
		t.Errorf("after far quad = %v, want %v", got, red)
	}
	if got := c.Fetch(depth, 8, 8)[0]; got != 0.5 {
		t.Errorf("depth = %v, want 0.5", got)
	}
	// Nearer quad wins.
	if err := c.Draw(&gfx.DrawCall{Program: prog, Targets: ts, Mesh: quad(0.2, green), Depth: gfx.DepthReadOnly}); err != nil {
		t.Fatal(err)
	}
	if got := c.Fetch(dst, 8, 8); got != green {
		t.Errorf("after near quad = %v, want %v", got, green)
	}
	if got := c.Fetch(depth, 8, 8)[0]; got != 0.5 {
		t.Errorf("read-only depth changed to %v", got)
	}
}

func TestBlendAlpha(t *testing.T) {
	c := New()
	dst := newTarget(t, c, 2, 2)
	ts := gfx.NewTargetSet(dst)
	_ = c.Clear(ts, gfx.ClearValues{Color: gfx.RGBA{0, 0, 1, 1}}, gfx.ClearColor)

	call := &gfx.DrawCall{Program: solidProgram(gfx.RGBA{1, 0, 0, 0.5}), Targets: ts, Blend: gfx.BlendAlpha}
	if err := c.Draw(call); err != nil {
		t.Fatal(err)
	}
	got := c.Fetch(dst, 0, 0)
	if got != (gfx.RGBA{0.5, 0, 0.5, 1}) {
		t.Errorf("blended = %v, want (0.5, 0, 0.5, 1)", got)
	}
}

func TestBuffersAndFloats(t *testing.T) {
	c := New()
	buf, err := c.CreateBuffer(resource.BufferDesc{Size: 12, Flags: resource.ShaderResource})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.WriteFloats(buf, []float32{1, 2.5, -3}); err != nil {
		t.Fatal(err)
	}
	got := c.Floats(buf)
	if len(got) != 3 || got[1] != 2.5 || got[2] != -3 {
		t.Errorf("Floats() = %v, want [1 2.5 -3]", got)
	}
	if err := c.WriteBuffer(buf, 8, make([]byte, 8)); err == nil {
		t.Error("WriteBuffer() overflow error = nil")
	}
	if _, err := c.CreateBuffer(resource.BufferDesc{}); err == nil {
		t.Error("CreateBuffer(size 0) error = nil")
	}
}

func TestWriteTextureFormats(t *testing.T) {
	c := New()
	tests := []struct {
		name   string
		format gputypes.TextureFormat
		data   []byte
		want   gfx.RGBA
	}{
		{"rgba8", gputypes.TextureFormatRGBA8Unorm, []byte{255, 0, 51, 255}, gfx.RGBA{1, 0, 0.2, 1}},
		{"bgra8", gputypes.TextureFormatBGRA8Unorm, []byte{255, 0, 0, 255}, gfx.RGBA{0, 0, 1, 1}},
		{"r8", gputypes.TextureFormatR8Unorm, []byte{255}, gfx.RGBA{1, 0, 0, 1}},
		{"rgba16f", gputypes.TextureFormatRGBA16Float, []byte{0x00, 0x3c, 0x00, 0x38, 0x00, 0xc0, 0x00, 0x00}, gfx.RGBA{1, 0.5, -2, 0}},
		{"depth32f", gputypes.TextureFormatDepth32Float, gfx.EncodeFloats([]float32{0.75}), gfx.RGBA{0.75, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tex, err := c.CreateTexture(resource.TextureDesc{Width: 1, Height: 1, Format: tt.format, Flags: resource.ShaderResource})
			if err != nil {
				t.Fatal(err)
			}
			if err := c.WriteTexture(tex, tt.data); err != nil {
				t.Fatalf("WriteTexture() error = %v", err)
			}
			got := c.Fetch(tex, 0, 0)
			for k := range got {
				if math.Abs(float64(got[k]-tt.want[k])) > 1e-6 {
					t.Errorf("texel = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}

	tex := newTarget(t, c, 2, 2)
	if err := c.WriteTexture(tex, []byte{1, 2, 3}); err == nil {
		t.Error("WriteTexture() with short data error = nil")
	}
}

func TestSampleLinear(t *testing.T) {
	c := New()
	tex, err := c.CreateTexture(resource.TextureDesc{Width: 2, Height: 1, Format: gputypes.TextureFormatRGBA32Float, Flags: resource.ShaderResource})
	if err != nil {
		t.Fatal(err)
	}
	_ = c.WriteTexture(tex, gfx.EncodeFloats([]float32{0, 0, 0, 1, 1, 1, 1, 1}))

	if got := c.Sample(tex, gfx.LinearClamp, 0.5, 0.5)[0]; math.Abs(float64(got-0.5)) > 1e-6 {
		t.Errorf("Sample(center) = %v, want 0.5", got)
	}
	if got := c.Sample(tex, gfx.LinearClamp, 0, 0.5)[0]; got != 0 {
		t.Errorf("Sample(left edge) = %v, want 0 (clamped)", got)
	}
	nearest := gfx.Sampler{Filter: gputypes.FilterModeNearest, Address: gputypes.AddressModeClampToEdge}
	if got := c.Sample(tex, nearest, 0.9, 0.5)[0]; got != 1 {
		t.Errorf("Sample(nearest) = %v, want 1", got)
	}
}

func TestImageRoundTrip(t *testing.T) {
	c := New()
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(1, 1, color.RGBA{R: 255, G: 128, A: 255})

	tex, err := c.FromImage("photo", src, resource.ShaderResource)
	if err != nil {
		t.Fatalf("FromImage() error = %v", err)
	}
	if tex.Width() != 3 || tex.Height() != 2 {
		t.Fatalf("size = %dx%d, want 3x2", tex.Width(), tex.Height())
	}
	img, err := c.Image(tex)
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}
	if got := img.NRGBAAt(1, 1); got != (color.NRGBA{R: 255, G: 128, A: 255}) {
		t.Errorf("pixel = %v, want {255 128 0 255}", got)
	}
}

func TestDrawText(t *testing.T) {
	c := New()
	dst := newTarget(t, c, 120, 30)
	w, h := c.MeasureText("Left side")
	if w <= 0 || h <= 0 {
		t.Fatalf("MeasureText() = %v, %v, want positive", w, h)
	}
	if err := c.DrawText(dst, "Left side", 2, 2, gfx.RGBA{1, 1, 1, 1}); err != nil {
		t.Fatalf("DrawText() error = %v", err)
	}
	lit := 0
	s, _ := SurfaceOf(dst)
	for i := 0; i < len(s.Pix); i += 4 {
		if s.Pix[i] > 0 {
			lit++
		}
	}
	if lit == 0 {
		t.Error("DrawText() left the target blank")
	}
	if c.Stats().TextDraws != 1 {
		t.Errorf("TextDraws = %d, want 1", c.Stats().TextDraws)
	}
}

func TestShaderValidation(t *testing.T) {
	c := New(WithShaderValidation(true))
	dst := newTarget(t, c, 2, 2)
	broken := gfx.MustProgram(gfx.ProgramDesc{
		Name:     "broken",
		Source:   "this is not wgsl",
		Fragment: func(*gfx.FragmentInput) (gfx.RGBA, bool) { return gfx.RGBA{}, true },
	})
	err := c.Draw(&gfx.DrawCall{Program: broken, Targets: gfx.NewTargetSet(dst)})
	if !errors.Is(err, gfx.ErrProgramCompile) {
		t.Errorf("Draw() error = %v, want %v", err, gfx.ErrProgramCompile)
	}
	if !c.Capabilities().ValidatesShaders {
		t.Error("Capabilities().ValidatesShaders = false")
	}
}

func TestDeviceProvider(t *testing.T) {
	c := New()
	if _, ok := c.DeviceProvider().(NullDevice); !ok {
		t.Errorf("DeviceProvider() = %T, want NullDevice", c.DeviceProvider())
	}
	if got := c.DeviceProvider().SurfaceFormat(); got != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("SurfaceFormat() = %v, want RGBA8Unorm", got)
	}
	info := c.DeviceProvider().AdapterInfo()
	if info.Type != gpucontext.AdapterTypeSoftware || info.Name != "Software" {
		t.Errorf("AdapterInfo() = %+v, want Software/AdapterTypeSoftware", info)
	}
}
