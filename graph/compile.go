package graph

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/renderpass"
	"github.com/gogpu/renderpass/gfx"
	"github.com/gogpu/renderpass/resource"
)

// SetSize changes the size of graph-allocated textures. The graph must be
// compiled again.
func (g *Graph) SetSize(width, height int) {
	if g.data.DefaultWidth == width && g.data.DefaultHeight == height {
		return
	}
	g.data.DefaultWidth = width
	g.data.DefaultHeight = height
	g.compiled = false
}

// Compiled reports whether the graph can be executed.
func (g *Graph) Compiled() bool { return g.compiled }

// Order returns the pass names in execution order. It is empty until the
// graph is compiled.
func (g *Graph) Order() []string {
	names := make([]string, len(g.order))
	for i, n := range g.order {
		names[i] = n.name
	}
	return names
}

// sort orders the passes so every producer runs before its consumers.
// Among independent passes insertion order is kept.
func (g *Graph) sort() ([]*node, error) {
	indeg := make(map[string]int, len(g.nodes))
	for _, e := range g.edges {
		indeg[e.Dst.Pass]++
	}
	done := make(map[string]bool, len(g.nodes))
	order := make([]*node, 0, len(g.nodes))
	for len(order) < len(g.names) {
		var next *node
		for _, name := range g.names {
			if !done[name] && indeg[name] == 0 {
				next = g.nodes[name]
				break
			}
		}
		if next == nil {
			var stuck []string
			for _, name := range g.names {
				if !done[name] {
					stuck = append(stuck, name)
				}
			}
			return nil, fmt.Errorf("%w among %s", ErrCycle, strings.Join(stuck, ", "))
		}
		done[next.name] = true
		order = append(order, next)
		for _, e := range g.edges {
			if e.Src.Pass == next.name {
				indeg[e.Dst.Pass]--
			}
		}
	}
	return order, nil
}

// needed returns the outputs the graph allocates: marked outputs, outputs
// feeding an edge and required outputs, minus host-bound ones.
func (g *Graph) needed() map[Ref]bool {
	need := make(map[Ref]bool)
	for _, r := range g.marks {
		need[r] = true
	}
	for _, e := range g.edges {
		need[e.Src] = true
	}
	for _, name := range g.names {
		for _, f := range g.nodes[name].refl.Outputs() {
			if !f.IsOptional() {
				need[Ref{Pass: name, Field: f.Name()}] = true
			}
		}
	}
	for r := range g.external {
		delete(need, r)
	}
	for _, e := range g.edges {
		// A pass-through field written in place uses its producer's texture.
		if g.nodes[e.Dst.Pass].refl.Field(e.Dst.Field).Direction() == renderpass.InputOutput {
			delete(need, e.Dst)
		}
	}
	return need
}

// textureDesc is the description of the texture backing output r.
func (g *Graph) textureDesc(r Ref, f *renderpass.Field) resource.TextureDesc {
	w, h := f.Size()
	if w <= 0 || h <= 0 {
		w, h = g.data.DefaultWidth, g.data.DefaultHeight
	}
	flags := f.BindFlags() | resource.ShaderResource
	for _, e := range g.edges {
		if e.Src == r {
			flags |= g.nodes[e.Dst.Pass].refl.Field(e.Dst.Field).BindFlags()
		}
	}
	format := f.Fmt()
	if format == gputypes.TextureFormatUndefined {
		format = g.data.DefaultFormat
		if flags.Has(resource.DepthStencil) {
			format = gputypes.TextureFormatDepth32Float
		}
	}
	return resource.TextureDesc{
		Label:     r.String(),
		Width:     w,
		Height:    h,
		Format:    format,
		Dimension: f.Dim(),
		Flags:     flags,
	}
}

// Compile orders the passes, allocates the textures between them, binds
// every field and calls Compile on passes that implement
// renderpass.Compiler. Textures whose description did not change are
// kept across compiles.
func (g *Graph) Compile(ctx gfx.Context) error {
	order, err := g.sort()
	if err != nil {
		return err
	}
	need := g.needed()
	for r, tex := range g.owned {
		if !need[r] {
			tex.Release()
			delete(g.owned, r)
		}
	}

	g.compiled = false
	allocated := 0
	for _, n := range order {
		for _, f := range n.refl.Fields() {
			r := Ref{Pass: n.name, Field: f.Name()}
			h, err := g.allocate(ctx, r, f, need[r], &allocated)
			if err != nil {
				return err
			}
			if err := g.apply(r, f, h); err != nil {
				return err
			}
		}
		if c, ok := n.pass.(renderpass.Compiler); ok {
			if err := c.Compile(ctx, g.data); err != nil {
				return fmt.Errorf("graph: compile %s: %w", n.name, err)
			}
		}
	}
	g.order = order
	g.compiled = true
	renderpass.Logger().Info("graph: compiled",
		"passes", len(order), "edges", len(g.edges), "allocated", allocated,
		"width", g.data.DefaultWidth, "height", g.data.DefaultHeight)
	return nil
}

// allocate returns the resource field r is bound to, creating or
// recreating the graph-owned texture when r needs one.
func (g *Graph) allocate(ctx gfx.Context, r Ref, f *renderpass.Field, owned bool, count *int) (resource.Handle, error) {
	if !owned {
		return g.resolve(r), nil
	}
	if f.ResourceKind() != resource.KindTexture {
		return resource.Handle{}, fmt.Errorf("graph: %s: buffer outputs must be bound by the host", r)
	}
	desc := g.textureDesc(r, f)
	if tex, ok := g.owned[r]; ok {
		if tex.Desc() == desc && !tex.Released() {
			return resource.FromTexture(tex), nil
		}
		tex.Release()
		delete(g.owned, r)
	}
	tex, err := ctx.CreateTexture(desc)
	if err != nil {
		return resource.Handle{}, fmt.Errorf("graph: allocate %s: %w", r, err)
	}
	g.owned[r] = tex
	*count++
	return resource.FromTexture(tex), nil
}

// Execute runs the compiled passes in order. A pass whose IsValid check
// fails is skipped and the reasons are logged.
func (g *Graph) Execute(ctx gfx.Context, data *renderpass.RenderData) error {
	if !g.compiled {
		return ErrNotCompiled
	}
	if data == nil {
		data = &renderpass.RenderData{}
	}
	g.skipped = g.skipped[:0]
	for _, n := range g.order {
		var log renderpass.Log
		if !n.pass.IsValid(&log) {
			renderpass.Logger().Warn("graph: skipping invalid pass",
				"pass", n.name, "type", n.typ, "reasons", log.Messages())
			g.skipped = append(g.skipped, n.name)
			continue
		}
		n.pass.Execute(ctx, data)
	}
	return nil
}

// Skipped returns the passes the last Execute skipped.
func (g *Graph) Skipped() []string { return append([]string(nil), g.skipped...) }

// OnMouseEvent forwards e to the interactive passes, last executed first,
// and stops at the first one that consumes it.
func (g *Graph) OnMouseEvent(e renderpass.MouseEvent) bool {
	order := g.order
	if !g.compiled {
		order = make([]*node, 0, len(g.names))
		for _, name := range g.names {
			order = append(order, g.nodes[name])
		}
	}
	for i := len(order) - 1; i >= 0; i-- {
		if h, ok := order[i].pass.(renderpass.MouseHandler); ok && h.OnMouseEvent(e) {
			return true
		}
	}
	return false
}

// Release frees the graph-owned textures and releases every pass that
// owns resources. The graph stays usable; Compile allocates again.
func (g *Graph) Release() {
	for r, tex := range g.owned {
		tex.Release()
		delete(g.owned, r)
	}
	for _, name := range g.names {
		if r, ok := g.nodes[name].pass.(renderpass.Releaser); ok {
			r.Release()
		}
	}
	g.compiled = false
}
