// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package graph is a minimal host for render passes.
//
// A Graph owns named pass instances, wires outputs to inputs by
// "pass.field" references, allocates the textures between them, and
// executes the passes in dependency order. Passes whose IsValid check
// fails are skipped for the frame with a warning.
//
//	g := graph.New(graph.WithSize(640, 480))
//	g.CreatePass(ctx, "blur", blur.Name, nil)
//	g.CreatePass(ctx, "cmp", compare.Name, nil)
//	g.Connect("blur.dst", "cmp.rightInput")
//	g.MarkOutput("cmp.outputColor")
//	g.Compile(ctx)
//	g.Execute(ctx, &renderpass.RenderData{})
package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/renderpass"
	"github.com/gogpu/renderpass/gfx"
	"github.com/gogpu/renderpass/resource"
)

// Graph errors.
var (
	ErrDuplicatePass = errors.New("graph: duplicate pass name")
	ErrNoPass        = errors.New("graph: no such pass")
	ErrNoField       = errors.New("graph: no such field")
	ErrBadReference  = errors.New("graph: reference must be pass.field")
	ErrCycle         = errors.New("graph: dependency cycle")
	ErrNotCompiled   = errors.New("graph: not compiled")
	ErrBind          = errors.New("graph: pass rejected binding")
)

// Option configures a Graph.
type Option func(*Graph)

// WithSize sets the size of textures allocated between passes.
func WithSize(width, height int) Option {
	return func(g *Graph) {
		g.data.DefaultWidth = width
		g.data.DefaultHeight = height
	}
}

// WithFormat sets the format of allocated textures whose field leaves the
// format open.
func WithFormat(format gputypes.TextureFormat) Option {
	return func(g *Graph) { g.data.DefaultFormat = format }
}

// WithRegistry sets the registry CreatePass and Load resolve pass types
// in. The default is renderpass.DefaultRegistry.
func WithRegistry(r *renderpass.Registry) Option {
	return func(g *Graph) { g.registry = r }
}

// Ref names a field of a pass in the graph.
type Ref struct {
	Pass  string
	Field string
}

// ParseRef parses "pass.field". The pass name may itself contain dots.
func ParseRef(s string) (Ref, error) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return Ref{}, fmt.Errorf("%w: %q", ErrBadReference, s)
	}
	return Ref{Pass: s[:i], Field: s[i+1:]}, nil
}

// String returns "pass.field".
func (r Ref) String() string { return r.Pass + "." + r.Field }

// Edge connects an output of one pass to an input of another.
type Edge struct {
	Src Ref
	Dst Ref
}

type node struct {
	name string
	typ  string
	pass renderpass.Pass
	refl *renderpass.Reflection
}

// Graph is a set of passes and the edges between them. It is not safe for
// concurrent use.
type Graph struct {
	registry *renderpass.Registry
	data     renderpass.CompileData

	nodes map[string]*node
	names []string // insertion order
	edges []Edge
	marks []Ref

	external map[Ref]resource.Handle
	owned    map[Ref]*resource.Texture

	order    []*node // execution order, valid when compiled
	compiled bool
	skipped  []string
}

// New returns an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		registry: renderpass.DefaultRegistry(),
		data:     renderpass.DefaultCompileData(),
		nodes:    make(map[string]*node),
		external: make(map[Ref]resource.Handle),
		owned:    make(map[Ref]*resource.Texture),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CompileData returns the defaults passed to Reflect and Compile.
func (g *Graph) CompileData() renderpass.CompileData { return g.data }

// AddPass adds p under name. typ is recorded for Save; pass "" to use
// p.Name().
func (g *Graph) AddPass(name, typ string, p renderpass.Pass) error {
	if _, ok := g.nodes[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicatePass, name)
	}
	if name == "" || strings.ContainsAny(name, " \t\n") {
		return fmt.Errorf("graph: invalid pass name %q", name)
	}
	if typ == "" {
		typ = p.Name()
	}
	g.nodes[name] = &node{name: name, typ: typ, pass: p, refl: p.Reflect(g.data)}
	g.names = append(g.names, name)
	g.compiled = false
	return nil
}

// CreatePass creates a pass of type typ from the registry and adds it.
func (g *Graph) CreatePass(ctx gfx.Context, name, typ string, dict renderpass.Dictionary) error {
	p, err := g.registry.New(ctx, typ, dict)
	if err != nil {
		return err
	}
	if err := g.AddPass(name, typ, p); err != nil {
		if r, ok := p.(renderpass.Releaser); ok {
			r.Release()
		}
		return err
	}
	return nil
}

// RemovePass removes a pass together with its edges, marks and bindings.
func (g *Graph) RemovePass(name string) error {
	n, ok := g.nodes[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoPass, name)
	}
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool {
		return e.Src.Pass == name || e.Dst.Pass == name
	})
	g.marks = slices.DeleteFunc(g.marks, func(r Ref) bool { return r.Pass == name })
	for ref := range g.external {
		if ref.Pass == name {
			delete(g.external, ref)
		}
	}
	for ref, tex := range g.owned {
		if ref.Pass == name {
			tex.Release()
			delete(g.owned, ref)
		}
	}
	if r, ok := n.pass.(renderpass.Releaser); ok {
		r.Release()
	}
	delete(g.nodes, name)
	g.names = slices.DeleteFunc(g.names, func(s string) bool { return s == name })
	g.compiled = false
	return nil
}

// Pass returns the named pass, or nil.
func (g *Graph) Pass(name string) renderpass.Pass {
	if n, ok := g.nodes[name]; ok {
		return n.pass
	}
	return nil
}

// Passes returns the pass names in insertion order.
func (g *Graph) Passes() []string { return slices.Clone(g.names) }

// Edges returns the edges in the order they were connected.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// Outputs returns the marked graph outputs.
func (g *Graph) Outputs() []Ref { return slices.Clone(g.marks) }

func (g *Graph) field(s string, dir renderpass.Direction) (Ref, *renderpass.Field, error) {
	ref, err := ParseRef(s)
	if err != nil {
		return Ref{}, nil, err
	}
	n, ok := g.nodes[ref.Pass]
	if !ok {
		return Ref{}, nil, fmt.Errorf("%w: %q", ErrNoPass, ref.Pass)
	}
	f := n.refl.Field(ref.Field)
	if f == nil || f.Direction()&dir == 0 {
		return Ref{}, nil, fmt.Errorf("%w: %s has no %s %q", ErrNoField, n.typ, dir, ref.Field)
	}
	return ref, f, nil
}

// Connect wires output src to input dst, both given as "pass.field". An
// input has at most one producer; connecting it again replaces the edge.
func (g *Graph) Connect(src, dst string) error {
	s, sf, err := g.field(src, renderpass.Output)
	if err != nil {
		return err
	}
	d, df, err := g.field(dst, renderpass.Input)
	if err != nil {
		return err
	}
	if s.Pass == d.Pass {
		return fmt.Errorf("%w: %s -> %s", ErrCycle, s, d)
	}
	if sf.ResourceKind() != df.ResourceKind() {
		return fmt.Errorf("graph: connect %s -> %s: %w", s, d, renderpass.ErrKindMismatch)
	}
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool { return e.Dst == d })
	g.edges = append(g.edges, Edge{Src: s, Dst: d})
	delete(g.external, d)
	g.compiled = false
	return nil
}

// Disconnect removes the edge feeding input dst.
func (g *Graph) Disconnect(dst string) error {
	d, err := ParseRef(dst)
	if err != nil {
		return err
	}
	n := len(g.edges)
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool { return e.Dst == d })
	if len(g.edges) == n {
		return fmt.Errorf("%w: %s is not connected", ErrNoField, d)
	}
	g.compiled = false
	return nil
}

// MarkOutput marks an output field as a graph output. Marked outputs are
// always allocated and can be read back with Texture.
func (g *Graph) MarkOutput(ref string) error {
	r, _, err := g.field(ref, renderpass.Output)
	if err != nil {
		return err
	}
	if !slices.Contains(g.marks, r) {
		g.marks = append(g.marks, r)
		g.compiled = false
	}
	return nil
}

// Bind binds a host-owned resource to a field. Bound inputs are not fed
// by edges and bound outputs are not allocated by the graph. The empty
// handle removes the binding.
func (g *Graph) Bind(ref string, h resource.Handle) error {
	r, f, err := g.field(ref, renderpass.InputOutput)
	if err != nil {
		return err
	}
	if h.IsEmpty() {
		delete(g.external, r)
	} else {
		g.external[r] = h
	}
	if f.Direction()&renderpass.Input != 0 {
		g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool { return e.Dst == r })
	}
	if !g.compiled {
		return nil
	}
	return g.apply(r, f, h)
}

func (g *Graph) apply(r Ref, f *renderpass.Field, h resource.Handle) error {
	p := g.nodes[r.Pass].pass
	var ok bool
	if f.Direction()&renderpass.Output != 0 {
		ok = p.SetOutput(r.Field, h)
	} else {
		ok = p.SetInput(r.Field, h)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrBind, r)
	}
	return nil
}

// Texture returns the texture bound to a field after Compile, or nil.
// Inputs resolve to the texture of their producer.
func (g *Graph) Texture(ref string) *resource.Texture {
	r, err := ParseRef(ref)
	if err != nil {
		return nil
	}
	tex, _ := g.resolve(r).Texture()
	return tex
}

func (g *Graph) resolve(r Ref) resource.Handle {
	if tex, ok := g.owned[r]; ok {
		return resource.FromTexture(tex)
	}
	if h, ok := g.external[r]; ok {
		return h
	}
	if e, ok := g.producer(r); ok {
		return g.resolve(e.Src)
	}
	return resource.Handle{}
}

func (g *Graph) producer(dst Ref) (Edge, bool) {
	for _, e := range g.edges {
		if e.Dst == dst {
			return e, true
		}
	}
	return Edge{}, false
}
