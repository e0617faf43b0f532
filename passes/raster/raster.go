// Package raster implements SceneRenderPass, which rasterizes a scene
// into a color target with depth testing.
//
// The depth target is either supplied by the host through the optional
// "depth" input or allocated by the pass. An external depth buffer is
// tested but never written or cleared; a pass-owned one is cleared every
// frame and written by the scene.
package raster

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/renderpass"
	"github.com/gogpu/renderpass/gfx"
	"github.com/gogpu/renderpass/internal/scratch"
	"github.com/gogpu/renderpass/resource"
)

// Name is the registered pass name.
const Name = "SceneRenderPass"

// Slot names.
const (
	SlotColor = "color"
	SlotDepth = "depth"
)

const keyClearColor = "clearColor"

// DefaultClearColor is opaque black.
var DefaultClearColor = gfx.RGBA{0, 0, 0, 1}

func init() {
	renderpass.Register(renderpass.Desc{
		Name:    Name,
		Summary: "Rasterizes a scene into a color and depth target",
		Factory: func(ctx gfx.Context, dict renderpass.Dictionary) (renderpass.Pass, error) {
			return Create(ctx, dict)
		},
	})
}

// Option configures a Pass.
type Option func(*Pass)

// WithRendererFactory replaces the default mesh renderer.
func WithRendererFactory(f RendererFactory) Option {
	return func(p *Pass) { p.factory = f }
}

// WithClearColor sets the color the target is cleared to.
func WithClearColor(c gfx.RGBA) Option {
	return func(p *Pass) { p.clearColor = c }
}

// Pass is the scene raster pass.
type Pass struct {
	slots      *renderpass.Slots
	factory    RendererFactory
	scene      Scene
	renderer   Renderer
	ownedDepth *scratch.Target
	clearColor gfx.RGBA
	clearFlags gfx.ClearFlags
	depthState gfx.DepthState
}

var (
	_ renderpass.Pass     = (*Pass)(nil)
	_ renderpass.Releaser = (*Pass)(nil)
)

// New returns a pass with no scene attached.
func New(opts ...Option) *Pass {
	p := &Pass{
		factory:    NewMeshRenderer,
		ownedDepth: scratch.NewTarget("scene.depth", resource.DepthStencil),
		clearColor: DefaultClearColor,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.slots = renderpass.NewSlots(Name, p.Reflect(renderpass.DefaultCompileData()))
	p.useOwnedDepth()
	return p
}

// Create builds a pass from a dictionary.
func Create(_ gfx.Context, dict renderpass.Dictionary) (*Pass, error) {
	if _, err := sceneProgram.Compile(); err != nil {
		return nil, fmt.Errorf("raster: %w", err)
	}
	c := dict.Vec4(keyClearColor, DefaultClearColor)
	return New(WithClearColor(gfx.RGBA(c))), nil
}

// Name implements renderpass.Pass.
func (p *Pass) Name() string { return Name }

// Reflect implements renderpass.Pass.
func (p *Pass) Reflect(renderpass.CompileData) *renderpass.Reflection {
	r := renderpass.NewReflection()
	r.AddOutput(SlotColor, "Rendered color").Dimension(resource.Texture2D)
	r.AddInput(SlotDepth, "Pre-initialized depth buffer").
		Flags(resource.DepthStencil).
		Optional()
	return r
}

// SetScene attaches scene and rebuilds the renderer. A nil scene detaches.
func (p *Pass) SetScene(scene Scene) {
	p.scene = scene
	p.renderer = nil
	if scene == nil {
		return
	}
	r, err := p.factory(scene)
	if err != nil {
		renderpass.Logger().Error("raster: scene renderer creation failed", "err", err)
		return
	}
	p.renderer = r
}

// Scene returns the attached scene.
func (p *Pass) Scene() Scene { return p.scene }

// SetInput implements renderpass.Pass. Binding a depth texture switches
// the pass to read-only depth; the empty handle switches back to a
// pass-owned depth buffer.
func (p *Pass) SetInput(name string, h resource.Handle) bool {
	if !p.slots.Set(renderpass.Input, name, h) {
		return false
	}
	if name == SlotDepth {
		if h.IsEmpty() {
			p.useOwnedDepth()
		} else {
			p.ownedDepth.Release()
			p.depthState = gfx.DepthReadOnly
			p.clearFlags = gfx.ClearColor
		}
	}
	return true
}

func (p *Pass) useOwnedDepth() {
	p.depthState = gfx.DepthReadWrite
	p.clearFlags = gfx.ClearColor | gfx.ClearDepth
}

// SetOutput implements renderpass.Pass.
func (p *Pass) SetOutput(name string, h resource.Handle) bool {
	return p.slots.Set(renderpass.Output, name, h)
}

// Output returns the color target.
func (p *Pass) Output() *resource.Texture { return p.slots.Texture(SlotColor) }

// Depth returns the depth texture in use: the external one when bound,
// otherwise the pass-owned one, which may be nil before the first execute.
func (p *Pass) Depth() *resource.Texture {
	if ext := p.slots.Texture(SlotDepth); ext != nil {
		return ext
	}
	return p.ownedDepth.Texture()
}

// OwnsDepth reports whether the pass allocates and clears its depth buffer.
func (p *Pass) OwnsDepth() bool { return !p.slots.IsBound(SlotDepth) }

// ClearFlags returns the attachments cleared each frame.
func (p *Pass) ClearFlags() gfx.ClearFlags { return p.clearFlags }

// DepthState returns the depth state the scene is drawn with.
func (p *Pass) DepthState() gfx.DepthState { return p.depthState }

// ClearColor returns the color clear value.
func (p *Pass) ClearColor() gfx.RGBA { return p.clearColor }

// SetClearColor sets the color clear value.
func (p *Pass) SetClearColor(c gfx.RGBA) { p.clearColor = c }

// IsValid implements renderpass.Pass.
func (p *Pass) IsValid(log *renderpass.Log) bool {
	ok := true
	if p.renderer == nil {
		log.Add(Name + " must have a scene attached to it")
		ok = false
	}
	color := p.slots.Texture(SlotColor)
	if color == nil {
		log.Add(Name + " must have a color texture attached")
		ok = false
	}
	depth := p.slots.Texture(SlotDepth)
	if color != nil || depth != nil {
		if err := targetsFor(color, depth).CheckStatus(); err != nil {
			log.Add(Name + " FBO is invalid, probably because the depth and color textures have different dimensions")
			ok = false
		}
	}
	return ok
}

func targetsFor(color, depth *resource.Texture) *gfx.TargetSet {
	ts := gfx.NewTargetSet()
	if color != nil {
		ts.AttachColor(0, color)
	}
	ts.AttachDepth(depth)
	return ts
}

// Execute implements renderpass.Pass. Without a scene it only clears.
func (p *Pass) Execute(ctx gfx.Context, _ *renderpass.RenderData) {
	color := p.slots.Texture(SlotColor)
	if color == nil {
		return
	}
	depth := p.slots.Texture(SlotDepth)
	if depth == nil {
		if _, err := p.ownedDepth.Ensure(ctx, color.Width(), color.Height(), gputypes.TextureFormatDepth32Float); err != nil {
			renderpass.Logger().Error("raster: depth allocation failed", "err", err)
			return
		}
		depth = p.ownedDepth.Texture()
	}
	ts := targetsFor(color, depth)

	vals := gfx.DefaultClearValues()
	vals.Color = p.clearColor
	if err := ctx.Clear(ts, vals, p.clearFlags); err != nil {
		renderpass.Logger().Error("raster: clear failed", "err", err)
		return
	}
	if p.renderer == nil {
		return
	}
	if err := p.renderer.Render(ctx, ts, p.depthState); err != nil {
		renderpass.Logger().Error("raster: render failed", "err", err)
	}
}

// Dictionary implements renderpass.Pass.
func (p *Pass) Dictionary() renderpass.Dictionary {
	c := p.clearColor
	return renderpass.NewDictionary().Set(keyClearColor, []float32{c[0], c[1], c[2], c[3]})
}

// Release frees the pass-owned depth buffer.
func (p *Pass) Release() { p.ownedDepth.Release() }
