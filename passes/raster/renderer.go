package raster

import (
	"fmt"

	"github.com/gogpu/renderpass/gfx"
)

// Scene is the geometry the pass draws. Vertex positions are in
// normalized device coordinates.
type Scene interface {
	Meshes() []gfx.Mesh
}

// MeshList is a Scene backed by a slice.
type MeshList []gfx.Mesh

// Meshes implements Scene.
func (l MeshList) Meshes() []gfx.Mesh { return l }

// Renderer draws one scene into a target set.
type Renderer interface {
	Render(ctx gfx.Context, targets *gfx.TargetSet, depth gfx.DepthState) error
}

// RendererFactory builds the renderer for a newly attached scene.
type RendererFactory func(scene Scene) (Renderer, error)

var sceneProgram = gfx.MustProgram(gfx.ProgramDesc{
	Name:   "scene",
	Source: sceneShaderSource,
	Fragment: func(in *gfx.FragmentInput) (gfx.RGBA, bool) {
		return in.Color, true
	},
})

// meshRenderer draws every mesh of a scene with interpolated vertex
// colors.
type meshRenderer struct {
	scene Scene
}

// NewMeshRenderer is the default RendererFactory.
func NewMeshRenderer(scene Scene) (Renderer, error) {
	if scene == nil {
		return nil, fmt.Errorf("raster: nil scene")
	}
	return &meshRenderer{scene: scene}, nil
}

func (r *meshRenderer) Render(ctx gfx.Context, targets *gfx.TargetSet, depth gfx.DepthState) error {
	meshes := r.scene.Meshes()
	for i := range meshes {
		m := &meshes[i]
		if m.TriangleCount() == 0 {
			continue
		}
		err := ctx.Draw(&gfx.DrawCall{
			Program: sceneProgram,
			Targets: targets,
			Mesh:    m,
			Depth:   depth,
		})
		if err != nil {
			return fmt.Errorf("raster: mesh %d: %w", i, err)
		}
	}
	return nil
}
