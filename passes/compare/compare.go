// Package compare implements ComparisonPass, a split-screen overlay that
// shows two images on either side of a draggable vertical divider.
//
// The divider follows the pointer while it is grabbed. A double click on
// the divider swaps the two inputs. Labels are drawn beside the divider
// when the context can render text.
package compare

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/renderpass"
	"github.com/gogpu/renderpass/fullscreen"
	"github.com/gogpu/renderpass/gfx"
	"github.com/gogpu/renderpass/resource"
)

// Name is the registered pass name.
const Name = "ComparisonPass"

// Slot names.
const (
	SlotLeft   = "leftInput"
	SlotRight  = "rightInput"
	SlotOutput = "outputColor"
)

// Defaults.
const (
	DefaultSplitLoc    = 0.5
	DefaultDividerSize = 2
	DefaultLeftLabel   = "Left side"
	DefaultRightLabel  = "Right side"

	// DoubleClickWindow is the longest gap between two presses on the
	// divider that still counts as a double click.
	DoubleClickWindow = 100 * time.Millisecond

	// minGrabWidth keeps thin dividers easy to grab.
	minGrabWidth = 4

	// Label placement relative to the divider and the bottom edge.
	labelGap    = 16
	labelBottom = 32
)

const (
	keySplitLoc               = "splitLoc"
	keyDividerSize            = "dividerSize"
	keyDrawArrows             = "drawArrows"
	keyShowLabels             = "showLabels"
	keyLabelsOnlyWhenHovering = "labelsOnlyWhenHovering"
	keyLeftLabel              = "leftLabel"
	keyRightLabel             = "rightLabel"
	keySwapSides              = "swapSides"
)

func init() {
	renderpass.Register(renderpass.Desc{
		Name:    Name,
		Summary: "Split-screen comparison of two images",
		Factory: func(ctx gfx.Context, dict renderpass.Dictionary) (renderpass.Pass, error) {
			return Create(ctx, dict)
		},
	})
}

// State is the pointer state of the divider.
type State uint8

const (
	Idle State = iota
	Hovering
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Hovering:
		return "Hovering"
	case Dragging:
		return "Dragging"
	}
	return fmt.Sprintf("State(%d)", s)
}

// Pass is the comparison pass.
type Pass struct {
	slots *renderpass.Slots
	split *fullscreen.Pass
	arrow *resource.Texture

	splitLoc    float32
	dividerSize uint32
	drawArrows  bool
	swapSides   bool

	showLabels             bool
	labelsOnlyWhenHovering bool
	leftLabel              string
	rightLabel             string

	hovering  bool
	grabbed   bool
	mouseX    int
	mouseY    int
	lastPress time.Duration
	pressed   bool
}

var (
	_ renderpass.Pass         = (*Pass)(nil)
	_ renderpass.MouseHandler = (*Pass)(nil)
	_ renderpass.Releaser     = (*Pass)(nil)
)

var splitProgram = gfx.MustProgram(gfx.ProgramDesc{
	Name:   "split",
	Source: fullscreen.VertexWGSL + splitShaderSource,
	Vars: []gfx.VarDecl{
		{Name: "left_input", Kind: gfx.VarTexture, Binding: 0},
		{Name: "right_input", Kind: gfx.VarTexture, Binding: 1},
		{Name: "arrow", Kind: gfx.VarTexture, Binding: 2},
		{Name: "params", Kind: gfx.VarFloats, Binding: 3},
	},
	Fragment: splitFragment,
})

// New returns a pass with the divider uninitialized.
func New() *Pass {
	p := &Pass{
		split:       fullscreen.New(splitProgram),
		splitLoc:    -1,
		dividerSize: DefaultDividerSize,
		leftLabel:   DefaultLeftLabel,
		rightLabel:  DefaultRightLabel,
	}
	p.slots = renderpass.NewSlots(Name, p.Reflect(renderpass.DefaultCompileData()))
	return p
}

// Create builds a pass from a dictionary.
func Create(_ gfx.Context, dict renderpass.Dictionary) (*Pass, error) {
	if _, err := splitProgram.Compile(); err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	p := New()
	p.ParseDictionary(dict)
	return p, nil
}

// ParseDictionary applies the keys present in dict. Absent keys keep
// their current values.
func (p *Pass) ParseDictionary(dict renderpass.Dictionary) {
	p.splitLoc = dict.Float(keySplitLoc, p.splitLoc)
	p.dividerSize = dict.Uint(keyDividerSize, p.dividerSize)
	p.drawArrows = dict.Bool(keyDrawArrows, p.drawArrows)
	p.showLabels = dict.Bool(keyShowLabels, p.showLabels)
	p.labelsOnlyWhenHovering = dict.Bool(keyLabelsOnlyWhenHovering, p.labelsOnlyWhenHovering)
	p.SetLabels(dict.String(keyLeftLabel, p.leftLabel), dict.String(keyRightLabel, p.rightLabel))
	p.swapSides = dict.Bool(keySwapSides, p.swapSides)
}

// Name implements renderpass.Pass.
func (p *Pass) Name() string { return Name }

// Reflect implements renderpass.Pass.
func (p *Pass) Reflect(renderpass.CompileData) *renderpass.Reflection {
	r := renderpass.NewReflection()
	r.AddInput(SlotLeft, "Left side image")
	r.AddInput(SlotRight, "Right side image")
	r.AddOutput(SlotOutput, "Comparison image")
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

// IsValid implements renderpass.Pass. Both inputs must match the output
// size.
func (p *Pass) IsValid(log *renderpass.Log) bool {
	ok := p.slots.Validate(log)
	out := p.slots.Texture(SlotOutput)
	if out == nil || out.Released() {
		return ok
	}
	for _, name := range []string{SlotLeft, SlotRight} {
		tex := p.slots.Texture(name)
		if tex == nil || tex.Released() {
			continue
		}
		if tex.Width() != out.Width() || tex.Height() != out.Height() {
			log.Addf("%s: %q is %dx%d, %q is %dx%d", Name,
				name, tex.Width(), tex.Height(), SlotOutput, out.Width(), out.Height())
			ok = false
		}
	}
	return ok
}

// SplitLoc returns the divider position as a fraction of the width.
// Uninitialized (negative) positions read as 0.5.
func (p *Pass) SplitLoc() float32 {
	if p.splitLoc < 0 {
		return DefaultSplitLoc
	}
	return min(p.splitLoc, 1)
}

// SetSplitLoc sets the divider position. Negative values reset it.
func (p *Pass) SetSplitLoc(v float32) { p.splitLoc = v }

// DividerSize returns the divider half-width; the divider is
// 2*DividerSize+1 pixels wide.
func (p *Pass) DividerSize() uint32 { return p.dividerSize }

// SetDividerSize sets the divider half-width.
func (p *Pass) SetDividerSize(n uint32) { p.dividerSize = n }

// SwapSides reports whether the inputs are shown swapped.
func (p *Pass) SwapSides() bool { return p.swapSides }

// SetSwapSides shows the right input on the left when true.
func (p *Pass) SetSwapSides(v bool) { p.swapSides = v }

// SetDrawArrows enables the drag arrows shown while hovering.
func (p *Pass) SetDrawArrows(v bool) { p.drawArrows = v }

// SetShowLabels enables the side labels. With onlyWhenHovering they are
// drawn only while the pointer is over the divider.
func (p *Pass) SetShowLabels(show, onlyWhenHovering bool) {
	p.showLabels = show
	p.labelsOnlyWhenHovering = onlyWhenHovering
}

// SetLabels sets the label text, normalized to NFC.
func (p *Pass) SetLabels(left, right string) {
	p.leftLabel = norm.NFC.String(left)
	p.rightLabel = norm.NFC.String(right)
}

// Labels returns the labels for the left and right input.
func (p *Pass) Labels() (left, right string) { return p.leftLabel, p.rightLabel }

// State returns the pointer state of the divider.
func (p *Pass) State() State {
	switch {
	case p.grabbed:
		return Dragging
	case p.hovering:
		return Hovering
	}
	return Idle
}

// viewportSize prefers the output size over the event's viewport.
func (p *Pass) viewportSize(e renderpass.MouseEvent) (int, int) {
	if out := p.slots.Texture(SlotOutput); out != nil {
		return out.Width(), out.Height()
	}
	return e.Width, e.Height
}

// dividerX returns the divider column for a viewport width.
func (p *Pass) dividerX(width int) int {
	return int(p.SplitLoc() * float32(width))
}

// OnMouseEvent implements renderpass.MouseHandler. The cursor hovers the
// divider when it is less than max(dividerSize, 4) pixels from it.
func (p *Pass) OnMouseEvent(e renderpass.MouseEvent) bool {
	w, h := p.viewportSize(e)
	if w <= 0 || h <= 0 {
		return false
	}
	// Claim every event while the divider is held.
	handled := p.grabbed
	p.mouseX = clampInt(int(e.X), 0, w-1)
	p.mouseY = clampInt(int(e.Y), 0, h-1)

	switch {
	case p.hovering && e.Type == renderpass.MouseButtonDown && e.Button == renderpass.MouseLeft:
		p.grabbed = true
		handled = true
		if p.pressed && e.Time-p.lastPress < DoubleClickWindow {
			p.swapSides = !p.swapSides
			p.pressed = false
			renderpass.Logger().Debug("compare: sides swapped", "swap", p.swapSides)
		} else {
			p.lastPress = e.Time
			p.pressed = true
		}
	case p.grabbed && e.Type == renderpass.MouseButtonUp && e.Button == renderpass.MouseLeft:
		p.grabbed = false
		handled = true
	case p.grabbed && e.Type == renderpass.MouseMove:
		p.splitLoc = float32(p.mouseX) / float32(w)
		handled = true
	}

	grab := int(max(p.dividerSize, minGrabWidth))
	d := p.dividerX(w) - p.mouseX
	p.hovering = d < grab && -d < grab
	return handled
}

func (p *Pass) labelsVisible() bool {
	return p.showLabels && (!p.labelsOnlyWhenHovering || p.hovering)
}

// Execute implements renderpass.Pass.
func (p *Pass) Execute(ctx gfx.Context, _ *renderpass.RenderData) {
	if err := p.execute(ctx); err != nil {
		renderpass.Logger().Error("compare: execute failed", "err", err)
	}
}

func (p *Pass) execute(ctx gfx.Context) error {
	out := p.slots.Texture(SlotOutput)
	left, right := p.slots.Texture(SlotLeft), p.slots.Texture(SlotRight)
	if out == nil || left == nil || right == nil {
		return fmt.Errorf("compare: inputs and output must be bound")
	}
	if p.swapSides {
		left, right = right, left
	}
	if err := p.ensureArrow(ctx); err != nil {
		return err
	}

	split := p.dividerX(out.Width())
	arrows := float32(0)
	if p.drawArrows && p.hovering {
		arrows = 1
	}
	for _, b := range []struct {
		name string
		tex  *resource.Texture
	}{
		{"left_input", left},
		{"right_input", right},
		{"arrow", p.arrow},
	} {
		if err := p.split.SetTexture(b.name, b.tex); err != nil {
			return err
		}
	}
	params := []float32{float32(split), float32(p.dividerSize), float32(p.mouseX), float32(p.mouseY), arrows, 0, 0, 0}
	if err := p.split.SetFloats("params", params...); err != nil {
		return err
	}
	if err := p.split.Execute(ctx, gfx.NewTargetSet(out)); err != nil {
		return err
	}

	if !p.labelsVisible() {
		return nil
	}
	text, ok := ctx.(gfx.TextRenderer)
	if !ok {
		renderpass.Logger().Debug("compare: context cannot draw labels")
		return nil
	}
	leftLabel, rightLabel := p.leftLabel, p.rightLabel
	if p.swapSides {
		leftLabel, rightLabel = rightLabel, leftLabel
	}
	white := gfx.RGBA{1, 1, 1, 1}
	y := float32(out.Height() - labelBottom)
	if err := text.DrawText(out, rightLabel, float32(split+labelGap), y, white); err != nil {
		return err
	}
	lw, _ := text.MeasureText(leftLabel)
	return text.DrawText(out, leftLabel, float32(split-labelGap)-lw, y, white)
}

func (p *Pass) ensureArrow(ctx gfx.Context) error {
	if p.arrow != nil && !p.arrow.Released() {
		return nil
	}
	tex, err := ctx.CreateTexture(resource.TextureDesc{
		Label:  "compare.arrow",
		Width:  ArrowSize,
		Height: ArrowSize,
		Format: gputypes.TextureFormatR8Unorm,
		Flags:  resource.ShaderResource | resource.CopyDst,
	})
	if err != nil {
		return fmt.Errorf("compare: arrow texture: %w", err)
	}
	if err := ctx.WriteTexture(tex, arrowImage().Pix); err != nil {
		tex.Release()
		return fmt.Errorf("compare: arrow texture: %w", err)
	}
	p.arrow = tex
	return nil
}

// Dictionary implements renderpass.Pass.
func (p *Pass) Dictionary() renderpass.Dictionary {
	return renderpass.NewDictionary().
		Set(keySplitLoc, p.splitLoc).
		Set(keyDividerSize, p.dividerSize).
		Set(keyDrawArrows, p.drawArrows).
		Set(keyShowLabels, p.showLabels).
		Set(keyLabelsOnlyWhenHovering, p.labelsOnlyWhenHovering).
		Set(keyLeftLabel, p.leftLabel).
		Set(keyRightLabel, p.rightLabel).
		Set(keySwapSides, p.swapSides)
}

// Release frees the arrow texture.
func (p *Pass) Release() {
	if p.arrow != nil {
		p.arrow.Release()
		p.arrow = nil
	}
}

// splitFragment is the CPU form of split.wgsl.
func splitFragment(in *gfx.FragmentInput) (gfx.RGBA, bool) {
	params := in.Vars.Floats("params")
	if len(params) < 5 {
		return gfx.RGBA{}, true
	}
	split, div := int(params[0]), int(params[1])
	if in.X >= split-div && in.X <= split+div {
		return gfx.RGBA{1, 1, 1, 1}, true
	}
	var c gfx.RGBA
	if in.X < split {
		c = in.Texels.Fetch(in.Vars.Texture("left_input"), in.X, in.Y)
	} else {
		c = in.Texels.Fetch(in.Vars.Texture("right_input"), in.X, in.Y)
	}
	if params[4] > 0.5 {
		if a := arrowAlpha(in, split, div, int(params[3])); a > 0 {
			alpha := c[3]
			c = c.Lerp(gfx.RGBA{1, 1, 1, 1}, a)
			c[3] = alpha
		}
	}
	return c, true
}

const arrowGap = 4

func arrowAlpha(in *gfx.FragmentInput, split, div, mouseY int) float32 {
	ay := in.Y - (mouseY - ArrowSize/2)
	if ay < 0 || ay >= ArrowSize {
		return 0
	}
	tex := in.Vars.Texture("arrow")
	if r := in.X - (split + div + arrowGap); r >= 0 && r < ArrowSize {
		return in.Texels.Fetch(tex, r, ay)[0]
	}
	if l := (split - div - arrowGap) - in.X; l >= 0 && l < ArrowSize {
		return in.Texels.Fetch(tex, l, ay)[0]
	}
	return 0
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
