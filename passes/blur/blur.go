// Package blur implements GaussianBlurPass, a separable Gaussian blur.
//
// The pass draws twice per frame: a horizontal dispatch from the source
// into a pass-owned scratch texture, then a vertical dispatch from the
// scratch texture into the destination. The scratch texture follows the
// source's size and format and is reallocated whenever they change.
package blur

import (
	"fmt"

	"github.com/gogpu/renderpass"
	"github.com/gogpu/renderpass/fullscreen"
	"github.com/gogpu/renderpass/gfx"
	"github.com/gogpu/renderpass/internal/scratch"
	"github.com/gogpu/renderpass/kernel"
	"github.com/gogpu/renderpass/resource"
)

// Name is the registered pass name.
const Name = "GaussianBlurPass"

// Defaults and limits.
const (
	DefaultKernelWidth = 5
	DefaultSigma       = 2.0
	MaxKernelWidth     = 128
)

// Slot names.
const (
	SlotSrc = "src"
	SlotDst = "dst"
)

// Dictionary keys.
const (
	keyKernelWidth = "kernelWidth"
	keySigma       = "sigma"
)

func init() {
	renderpass.Register(renderpass.Desc{
		Name:    Name,
		Summary: "Separable Gaussian blur",
		Factory: func(ctx gfx.Context, dict renderpass.Dictionary) (renderpass.Pass, error) {
			return Create(ctx, dict)
		},
	})
}

type state uint8

const (
	stateUninitialized state = iota
	stateReady
)

// Pass is the separable blur pass.
type Pass struct {
	kernelWidth uint32
	sigma       float32

	slots    *renderpass.Slots
	program  *gfx.Program
	hpass    *fullscreen.Pass
	vpass    *fullscreen.Pass
	scratch  *scratch.Target
	weights  *scratch.Weights
	state    state
	kernelOK bool
}

var (
	_ renderpass.Pass     = (*Pass)(nil)
	_ renderpass.Compiler = (*Pass)(nil)
	_ renderpass.Releaser = (*Pass)(nil)
)

var blurProgram = gfx.MustProgram(gfx.ProgramDesc{
	Name:   "blur",
	Source: fullscreen.VertexWGSL + blurShaderSource,
	Vars: []gfx.VarDecl{
		{Name: "src", Kind: gfx.VarTexture, Binding: 0},
		{Name: "weights", Kind: gfx.VarBuffer, Binding: 1},
		{Name: "params", Kind: gfx.VarFloats, Binding: 2},
	},
	Fragment: blurFragment,
})

// New returns a blur pass. kernelWidth is clamped to MaxKernelWidth.
func New(kernelWidth uint32, sigma float32) *Pass {
	p := &Pass{
		program: blurProgram,
		hpass:   fullscreen.New(blurProgram),
		vpass:   fullscreen.New(blurProgram),
		scratch: scratch.NewTarget("blur.scratch", resource.BindNone),
		weights: scratch.NewWeights("blur.weights"),
	}
	p.slots = renderpass.NewSlots(Name, p.Reflect(renderpass.DefaultCompileData()))
	p.SetKernelWidth(kernelWidth)
	p.SetSigma(sigma)
	return p
}

// Create builds a pass from a dictionary. Missing keys take the defaults.
func Create(_ gfx.Context, dict renderpass.Dictionary) (*Pass, error) {
	width := dict.Uint(keyKernelWidth, DefaultKernelWidth)
	if width > MaxKernelWidth {
		return nil, fmt.Errorf("blur: %s %d exceeds %d", keyKernelWidth, width, MaxKernelWidth)
	}
	if _, err := blurProgram.Compile(); err != nil {
		return nil, fmt.Errorf("blur: %w", err)
	}
	return New(width, dict.Float(keySigma, DefaultSigma)), nil
}

// Name implements renderpass.Pass.
func (p *Pass) Name() string { return Name }

// Reflect implements renderpass.Pass.
func (p *Pass) Reflect(renderpass.CompileData) *renderpass.Reflection {
	r := renderpass.NewReflection()
	r.AddInput(SlotSrc, "Source image").Dimension(resource.Texture2D)
	r.AddOutput(SlotDst, "Blurred image").Dimension(resource.Texture2D)
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

// IsValid implements renderpass.Pass.
func (p *Pass) IsValid(log *renderpass.Log) bool {
	ok := p.slots.Validate(log)
	src, dst := p.slots.Texture(SlotSrc), p.slots.Texture(SlotDst)
	if src != nil && dst != nil && !src.Released() && !dst.Released() &&
		(src.Width() != dst.Width() || src.Height() != dst.Height()) {
		log.Addf("%s: %q is %dx%d but %q is %dx%d", Name,
			SlotSrc, src.Width(), src.Height(), SlotDst, dst.Width(), dst.Height())
		ok = false
	}
	return ok
}

// Compile drops the ready state and provisions the scratch texture when
// a source is already bound.
func (p *Pass) Compile(ctx gfx.Context, _ renderpass.CompileData) error {
	p.state = stateUninitialized
	if src := p.slots.Texture(SlotSrc); src != nil {
		return p.provision(ctx, src)
	}
	return nil
}

// Execute implements renderpass.Pass.
func (p *Pass) Execute(ctx gfx.Context, _ *renderpass.RenderData) {
	if err := p.Apply(ctx, p.slots.Texture(SlotSrc), p.slots.Texture(SlotDst)); err != nil {
		renderpass.Logger().Error("blur: execute failed", "err", err)
	}
}

// Apply blurs src into dst without going through the slot table. Other
// passes use it to blur their own intermediates.
func (p *Pass) Apply(ctx gfx.Context, src, dst *resource.Texture) error {
	if src == nil || dst == nil {
		return fmt.Errorf("blur: src and dst must be bound")
	}
	if err := p.provision(ctx, src); err != nil {
		return err
	}
	if err := p.uploadKernel(ctx); err != nil {
		return err
	}
	tmp := p.scratch.Texture()
	w := float32(p.kernelWidth)

	if err := p.dispatch(ctx, p.hpass, src, tmp, [4]float32{1, 0, w, 0}); err != nil {
		return fmt.Errorf("blur: horizontal: %w", err)
	}
	if err := p.dispatch(ctx, p.vpass, tmp, dst, [4]float32{0, 1, w, 0}); err != nil {
		return fmt.Errorf("blur: vertical: %w", err)
	}
	return nil
}

func (p *Pass) dispatch(ctx gfx.Context, fs *fullscreen.Pass, src, dst *resource.Texture, params [4]float32) error {
	if err := fs.SetTexture("src", src); err != nil {
		return err
	}
	if err := fs.SetBuffer("weights", p.weights.Buffer()); err != nil {
		return err
	}
	if err := fs.SetFloats("params", params[:]...); err != nil {
		return err
	}
	return fs.Execute(ctx, gfx.NewTargetSet(dst))
}

// provision moves the pass to Ready, reallocating the scratch texture when
// the source shape changed.
func (p *Pass) provision(ctx gfx.Context, src *resource.Texture) error {
	if p.state == stateReady && p.scratch.Matches(src.Width(), src.Height(), src.Format()) {
		return nil
	}
	if _, err := p.scratch.EnsureLike(ctx, src); err != nil {
		p.state = stateUninitialized
		return fmt.Errorf("blur: %w", err)
	}
	p.state = stateReady
	return nil
}

func (p *Pass) uploadKernel(ctx gfx.Context) error {
	if p.kernelOK && p.weights.Buffer() != nil {
		return nil
	}
	w := kernel.OneSided(kernel.CachedGaussian(int(p.kernelWidth), p.sigma))
	if _, err := p.weights.Upload(ctx, w); err != nil {
		return fmt.Errorf("blur: %w", err)
	}
	p.kernelOK = true
	return nil
}

// KernelWidth returns the number of taps per side.
func (p *Pass) KernelWidth() uint32 { return p.kernelWidth }

// SetKernelWidth sets the taps per side. Widths under twice sigma cut the
// kernel short.
func (p *Pass) SetKernelWidth(w uint32) {
	if w > MaxKernelWidth {
		w = MaxKernelWidth
	}
	if w != p.kernelWidth {
		p.kernelWidth = w
		p.kernelOK = false
	}
}

// Sigma returns the Gaussian standard deviation in pixels.
func (p *Pass) Sigma() float32 { return p.sigma }

// SetSigma sets the standard deviation.
func (p *Pass) SetSigma(s float32) {
	if s != p.sigma {
		p.sigma = s
		p.kernelOK = false
	}
}

// Weights returns the full symmetric kernel for the current parameters.
func (p *Pass) Weights() []float32 {
	return kernel.CachedGaussian(int(p.kernelWidth), p.sigma)
}

// Ready reports whether the scratch texture is provisioned.
func (p *Pass) Ready() bool { return p.state == stateReady }

// Scratch returns the intermediate texture, or nil before the first
// execute.
func (p *Pass) Scratch() *resource.Texture { return p.scratch.Texture() }

// Program returns the blur program.
func (p *Pass) Program() *gfx.Program { return p.program }

// Dictionary implements renderpass.Pass.
func (p *Pass) Dictionary() renderpass.Dictionary {
	return renderpass.NewDictionary().
		Set(keyKernelWidth, p.kernelWidth).
		Set(keySigma, p.sigma)
}

// Release frees the scratch texture and weight buffer.
func (p *Pass) Release() {
	p.scratch.Release()
	p.weights.Release()
	p.state = stateUninitialized
	p.kernelOK = false
}

// blurFragment is the CPU form of blur.wgsl.
func blurFragment(in *gfx.FragmentInput) (gfx.RGBA, bool) {
	params := in.Vars.Floats("params")
	if len(params) < 3 {
		return gfx.RGBA{}, true
	}
	src := in.Vars.Texture("src")
	weights := in.Texels.Floats(in.Vars.Buffer("weights"))
	dx, dy := int(params[0]), int(params[1])
	width := int(params[2])
	if width >= len(weights) {
		width = len(weights) - 1
	}
	if width < 0 {
		return in.Texels.Fetch(src, in.X, in.Y), true
	}

	sum := in.Texels.Fetch(src, in.X, in.Y).Scale(weights[0])
	for i := 1; i <= width; i++ {
		a := in.Texels.Fetch(src, in.X+dx*i, in.Y+dy*i)
		b := in.Texels.Fetch(src, in.X-dx*i, in.Y-dy*i)
		sum = sum.Add(a.Add(b).Scale(weights[i]))
	}
	return sum, true
}
