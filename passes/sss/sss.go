// Package sss implements SubsurfaceScattering, a separable screen-space
// subsurface scattering pass.
//
// The pass needs the diffuse-lit color, the scene depth and an optional
// mask selecting the scattering surfaces. The diffuse signal is blurred
// with a diffusion profile along x into a scratch texture, then along y,
// and the result is blended over the original diffuse color by
// mask*strength. Taps that cross a depth discontinuity fall back to the
// center color.
package sss

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/gogpu/renderpass"
	"github.com/gogpu/renderpass/fullscreen"
	"github.com/gogpu/renderpass/gfx"
	"github.com/gogpu/renderpass/internal/scratch"
	"github.com/gogpu/renderpass/kernel"
	"github.com/gogpu/renderpass/resource"
)

// Name is the registered pass name.
const Name = "SubsurfaceScattering"

// Defaults and limits.
const (
	DefaultKernelWidth     = 20
	DefaultScatteringWidth = 1.0
	DefaultStrength        = 1.0
	MaxKernelWidth         = 128

	// FollowSurface scales how quickly taps fall back to the center color
	// as their depth departs from the center depth.
	FollowSurface = 300.0
)

// Slot names.
const (
	SlotDiffuse = "diffuse"
	SlotDepth   = "depth"
	SlotMask    = "mask"
	SlotDst     = "dst"
)

const (
	keyKernelWidth = "kernelWidth"
	keySigma       = "sigma"
	keyColor       = "color"
	keyMode        = "mode"
	keyStrength    = "strength"
)

func init() {
	renderpass.Register(renderpass.Desc{
		Name:    Name,
		Summary: "Separable screen-space subsurface scattering",
		Factory: func(ctx gfx.Context, dict renderpass.Dictionary) (renderpass.Pass, error) {
			return Create(ctx, dict)
		},
	})
}

// Pass is the subsurface scattering pass.
type Pass struct {
	kernelWidth     uint32
	scatteringWidth float32
	color           [3]float32
	mode            kernel.Mode
	strength        float32
	dirty           bool

	slots   *renderpass.Slots
	program *gfx.Program
	hpass   *fullscreen.Pass
	vpass   *fullscreen.Pass
	scratch *scratch.Target
	profile *scratch.Weights
}

var (
	_ renderpass.Pass     = (*Pass)(nil)
	_ renderpass.Compiler = (*Pass)(nil)
	_ renderpass.Releaser = (*Pass)(nil)
)

var sssProgram = gfx.MustProgram(gfx.ProgramDesc{
	Name:   "sss",
	Source: fullscreen.VertexWGSL + sssShaderSource,
	Vars: []gfx.VarDecl{
		{Name: "src", Kind: gfx.VarTexture, Binding: 0},
		{Name: "diffuse", Kind: gfx.VarTexture, Binding: 1},
		{Name: "depth", Kind: gfx.VarTexture, Binding: 2},
		{Name: "mask", Kind: gfx.VarTexture, Binding: 3},
		{Name: "profile", Kind: gfx.VarBuffer, Binding: 4},
		{Name: "params", Kind: gfx.VarFloats, Binding: 5},
		{Name: "src_sampler", Kind: gfx.VarSampler, Binding: 6},
	},
	Fragment: sssFragment,
})

// New returns a pass with the Translucent profile and full strength.
func New(kernelWidth uint32, scatteringWidth float32, color [3]float32) *Pass {
	p := &Pass{
		mode:     kernel.Translucent,
		strength: DefaultStrength,
		program:  sssProgram,
		hpass:    fullscreen.New(sssProgram),
		vpass:    fullscreen.New(sssProgram),
		scratch:  scratch.NewTarget("sss.scratch", resource.BindNone),
		profile:  scratch.NewWeights("sss.profile"),
		dirty:    true,
	}
	p.slots = renderpass.NewSlots(Name, p.Reflect(renderpass.DefaultCompileData()))
	p.SetKernelWidth(kernelWidth)
	p.SetScatteringWidth(scatteringWidth)
	p.SetColor(color)
	return p
}

// Create builds a pass from a dictionary.
func Create(_ gfx.Context, dict renderpass.Dictionary) (*Pass, error) {
	width := dict.Uint(keyKernelWidth, DefaultKernelWidth)
	if width > MaxKernelWidth {
		return nil, fmt.Errorf("sss: %s %d exceeds %d", keyKernelWidth, width, MaxKernelWidth)
	}
	mode, err := kernel.ParseMode(dict.String(keyMode, kernel.Translucent.String()))
	if err != nil {
		return nil, fmt.Errorf("sss: %w", err)
	}
	if _, err := sssProgram.Compile(); err != nil {
		return nil, fmt.Errorf("sss: %w", err)
	}
	p := New(width, dict.Float(keySigma, DefaultScatteringWidth), dict.Vec3(keyColor, [3]float32{1, 1, 1}))
	p.SetMode(mode)
	p.SetStrength(dict.Float(keyStrength, DefaultStrength))
	return p, nil
}

// Name implements renderpass.Pass.
func (p *Pass) Name() string { return Name }

// Reflect implements renderpass.Pass.
func (p *Pass) Reflect(renderpass.CompileData) *renderpass.Reflection {
	r := renderpass.NewReflection()
	r.AddInput(SlotDiffuse, "Diffuse-lit color").Dimension(resource.Texture2D)
	r.AddInput(SlotDepth, "Scene depth").
		Dimension(resource.Texture2D).
		Flags(resource.ShaderResource | resource.DepthStencil)
	r.AddInput(SlotMask, "Scattering mask, red channel").Dimension(resource.Texture2D).Optional()
	r.AddOutput(SlotDst, "Diffuse color with scattering").Dimension(resource.Texture2D)
	return r
}

// SetInput implements renderpass.Pass.
func (p *Pass) SetInput(name string, h resource.Handle) bool {
	return p.slots.Set(renderpass.Input, name, h)
}

// SetOutput implements renderpass.Pass.
func (p *Pass) SetOutput(name string, h resource.Handle) bool {
	return p.slots.Set(renderpass.Output, name, h)
}

// IsValid implements renderpass.Pass. Every bound texture must have the
// size of the diffuse input.
func (p *Pass) IsValid(log *renderpass.Log) bool {
	ok := p.slots.Validate(log)
	ref := p.slots.Texture(SlotDiffuse)
	if ref == nil || ref.Released() {
		return ok
	}
	for _, name := range []string{SlotDepth, SlotMask, SlotDst} {
		tex := p.slots.Texture(name)
		if tex == nil || tex.Released() {
			continue
		}
		if tex.Width() != ref.Width() || tex.Height() != ref.Height() {
			log.Addf("%s: %q is %dx%d, %q is %dx%d", Name,
				name, tex.Width(), tex.Height(), SlotDiffuse, ref.Width(), ref.Height())
			ok = false
		}
	}
	return ok
}

// Compile provisions the scratch texture when the diffuse input is bound.
func (p *Pass) Compile(ctx gfx.Context, _ renderpass.CompileData) error {
	if diffuse := p.slots.Texture(SlotDiffuse); diffuse != nil {
		if _, err := p.scratch.EnsureLike(ctx, diffuse); err != nil {
			return fmt.Errorf("sss: %w", err)
		}
	}
	return nil
}

// Execute implements renderpass.Pass.
func (p *Pass) Execute(ctx gfx.Context, _ *renderpass.RenderData) {
	err := p.Apply(ctx,
		p.slots.Texture(SlotDiffuse),
		p.slots.Texture(SlotDepth),
		p.slots.Texture(SlotDst),
		p.slots.Texture(SlotMask))
	if err != nil {
		renderpass.Logger().Error("sss: execute failed", "err", err)
	}
}

// Apply runs both axes with explicit resources. mask may be nil.
func (p *Pass) Apply(ctx gfx.Context, diffuse, depth, dst, mask *resource.Texture) error {
	if diffuse == nil || depth == nil || dst == nil {
		return fmt.Errorf("sss: diffuse, depth and dst must be bound")
	}
	if _, err := p.scratch.EnsureLike(ctx, diffuse); err != nil {
		return fmt.Errorf("sss: %w", err)
	}
	if err := p.updateProfile(ctx); err != nil {
		return err
	}

	taps := float32(kernel.Size(int(p.kernelWidth)))
	hasMask := float32(0)
	if mask != nil {
		hasMask = 1
	} else {
		// The shader always declares a mask; bind something readable.
		mask = diffuse
	}
	tmp := p.scratch.Texture()

	h := [8]float32{1, 0, taps, p.strength, FollowSurface, 0, hasMask, 0}
	if err := p.dispatch(ctx, p.hpass, diffuse, diffuse, depth, mask, tmp, h); err != nil {
		return fmt.Errorf("sss: horizontal: %w", err)
	}
	v := [8]float32{0, 1, taps, p.strength, FollowSurface, 1, hasMask, 0}
	if err := p.dispatch(ctx, p.vpass, tmp, diffuse, depth, mask, dst, v); err != nil {
		return fmt.Errorf("sss: vertical: %w", err)
	}
	return nil
}

func (p *Pass) dispatch(ctx gfx.Context, fs *fullscreen.Pass, src, diffuse, depth, mask, dst *resource.Texture, params [8]float32) error {
	for _, b := range []struct {
		name string
		tex  *resource.Texture
	}{
		{"src", src},
		{"diffuse", diffuse},
		{"depth", depth},
		{"mask", mask},
	} {
		if err := fs.SetTexture(b.name, b.tex); err != nil {
			return err
		}
	}
	if err := fs.SetBuffer("profile", p.profile.Buffer()); err != nil {
		return err
	}
	if err := fs.SetFloats("params", params[:]...); err != nil {
		return err
	}
	if err := fs.SetSampler("src_sampler", gfx.LinearClamp); err != nil {
		return err
	}
	return fs.Execute(ctx, gfx.NewTargetSet(dst))
}

func (p *Pass) updateProfile(ctx gfx.Context) error {
	if !p.dirty && p.profile.Buffer() != nil {
		return nil
	}
	prof := kernel.CachedDiffusion(int(p.kernelWidth), p.scatteringWidth, p.color, p.mode)
	if _, err := p.profile.Upload(ctx, prof.Packed()); err != nil {
		return fmt.Errorf("sss: %w", err)
	}
	p.dirty = false
	return nil
}

// Profile returns the diffusion profile for the current parameters.
func (p *Pass) Profile() *kernel.Profile {
	return kernel.CachedDiffusion(int(p.kernelWidth), p.scatteringWidth, p.color, p.mode)
}

// KernelWidth returns the number of taps per side.
func (p *Pass) KernelWidth() uint32 { return p.kernelWidth }

// SetKernelWidth sets the taps per side, clamped to MaxKernelWidth.
func (p *Pass) SetKernelWidth(w uint32) {
	w = min(w, MaxKernelWidth)
	if w != p.kernelWidth {
		p.kernelWidth = w
		p.dirty = true
	}
}

// ScatteringWidth returns the pixel distance of one profile unit.
func (p *Pass) ScatteringWidth() float32 { return p.scatteringWidth }

// SetScatteringWidth sets the scattering width.
func (p *Pass) SetScatteringWidth(w float32) {
	if w != p.scatteringWidth {
		p.scatteringWidth = w
		p.dirty = true
	}
}

// Color returns the per-channel scattering distance.
func (p *Pass) Color() [3]float32 { return p.color }

// SetColor sets the per-channel scattering distance.
func (p *Pass) SetColor(c [3]float32) {
	if c != p.color {
		p.color = c
		p.dirty = true
	}
}

// Mode returns the profile shape.
func (p *Pass) Mode() kernel.Mode { return p.mode }

// SetMode selects the profile shape.
func (p *Pass) SetMode(m kernel.Mode) {
	if m != p.mode {
		p.mode = m
		p.dirty = true
	}
}

// Strength returns the composite weight.
func (p *Pass) Strength() float32 { return p.strength }

// SetStrength sets the composite weight. It does not touch the profile.
func (p *Pass) SetStrength(s float32) { p.strength = s }

// Scratch returns the intermediate texture, or nil.
func (p *Pass) Scratch() *resource.Texture { return p.scratch.Texture() }

// Dictionary implements renderpass.Pass.
func (p *Pass) Dictionary() renderpass.Dictionary {
	return renderpass.NewDictionary().
		Set(keyKernelWidth, p.kernelWidth).
		Set(keySigma, p.scatteringWidth).
		Set(keyColor, []float32{p.color[0], p.color[1], p.color[2]}).
		Set(keyMode, p.mode.String()).
		Set(keyStrength, p.strength)
}

// Release frees the scratch texture and the profile buffer.
func (p *Pass) Release() {
	p.scratch.Release()
	p.profile.Release()
	p.dirty = true
}

// sssFragment is the CPU form of sss.wgsl.
func sssFragment(in *gfx.FragmentInput) (gfx.RGBA, bool) {
	params := in.Vars.Floats("params")
	if len(params) < 8 {
		return gfx.RGBA{}, true
	}
	src := in.Vars.Texture("src")
	depth := in.Vars.Texture("depth")
	smp := in.Vars.Sampler("src_sampler")
	profile := in.Texels.Floats(in.Vars.Buffer("profile"))
	dx, dy := params[0], params[1]
	taps := min(int(params[2]), len(profile)/4)
	follow := params[4]

	colorM := in.Texels.Fetch(src, in.X, in.Y)
	depthM := in.Texels.Fetch(depth, in.X, in.Y)[0]

	var blurred [3]float32
	for i := 0; i < taps; i++ {
		tap := profile[i*4 : i*4+4]
		ox, oy := dx*tap[0], dy*tap[0]
		c := in.Texels.Sample(src, smp, in.U+ox/float32(in.Width), in.V+oy/float32(in.Height))
		d := in.Texels.Fetch(depth, in.X+int(math32.Round(ox)), in.Y+int(math32.Round(oy)))[0]
		s := clamp01(follow * math32.Abs(depthM-d))
		c = c.Lerp(colorM, s)
		for ch := range blurred {
			blurred[ch] += tap[1+ch] * c[ch]
		}
	}

	if params[5] < 0.5 {
		return gfx.RGBA{blurred[0], blurred[1], blurred[2], colorM[3]}, true
	}
	base := in.Texels.Fetch(in.Vars.Texture("diffuse"), in.X, in.Y)
	m := float32(1)
	if params[6] > 0.5 {
		m = in.Texels.Fetch(in.Vars.Texture("mask"), in.X, in.Y)[0]
	}
	t := clamp01(m * params[3])
	out := gfx.RGBA{blurred[0], blurred[1], blurred[2], base[3]}
	return base.Lerp(out, t), true
}

func clamp01(v float32) float32 {
	return math32.Max(0, math32.Min(1, v))
}
