package software

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/renderpass/gfx"
	"github.com/gogpu/renderpass/internal/parallel"
)

// rasterizer executes one draw call.
type rasterizer struct {
	ctx   *Context
	call  *gfx.DrawCall
	vars  *gfx.Vars
	dst   *Surface
	depth *Surface
}

func (r *rasterizer) input(x, y int) gfx.FragmentInput {
	return gfx.FragmentInput{
		X:      x,
		Y:      y,
		U:      (float32(x) + 0.5) / float32(r.dst.Width),
		V:      (float32(y) + 0.5) / float32(r.dst.Height),
		Width:  r.dst.Width,
		Height: r.dst.Height,
		Vars:   r.vars,
		Texels: r.ctx,
	}
}

func (r *rasterizer) write(x, y int, c gfx.RGBA) {
	if r.call.Blend == gfx.BlendAlpha {
		under := r.dst.At(x, y)
		a := c[3]
		c = gfx.RGBA{
			c[0]*a + under[0]*(1-a),
			c[1]*a + under[1]*(1-a),
			c[2]*a + under[2]*(1-a),
			a + under[3]*(1-a),
		}
	}
	r.dst.Set(x, y, c)
}

// fullscreen covers every pixel, as the vertex-index triangle does on a GPU.
func (r *rasterizer) fullscreen() {
	frag := r.call.Program.Fragment()
	if frag == nil {
		return
	}
	pool := r.ctx.pool
	if pool == nil || r.dst.Height < minParallelRows {
		r.shadeRows(frag, 0, r.dst.Height)
		return
	}
	bands := parallel.Bands(r.dst.Height, pool.Workers()*2)
	work := make([]func(), len(bands))
	for i, b := range bands {
		work[i] = func() { r.shadeRows(frag, b.Y0, b.Y1) }
	}
	pool.ExecuteAll(work)
}

// minParallelRows is the smallest target worth splitting into bands.
const minParallelRows = 32

// shadeRows runs frag over rows [y0, y1). Fragments only read textures
// other than the target, so disjoint bands may run concurrently.
func (r *rasterizer) shadeRows(frag gfx.FragmentFunc, y0, y1 int) {
	for y := y0; y < y1; y++ {
		for x := 0; x < r.dst.Width; x++ {
			in := r.input(x, y)
			if c, keep := frag(&in); keep {
				r.write(x, y, c)
			}
		}
	}
}

type screenVertex struct {
	x, y, z float32
	color   gfx.RGBA
}

func (r *rasterizer) toScreen(v gfx.Vertex) screenVertex {
	return screenVertex{
		x:     (v.Pos[0]*0.5 + 0.5) * float32(r.dst.Width),
		y:     (0.5 - v.Pos[1]*0.5) * float32(r.dst.Height),
		z:     v.Pos[2],
		color: v.Color,
	}
}

func (r *rasterizer) mesh(m *gfx.Mesh) {
	n := m.TriangleCount()
	for t := 0; t < n; t++ {
		var idx [3]int
		for k := 0; k < 3; k++ {
			if len(m.Indices) > 0 {
				idx[k] = int(m.Indices[t*3+k])
			} else {
				idx[k] = t*3 + k
			}
			if idx[k] >= len(m.Vertices) {
				return
			}
		}
		r.triangle(
			r.toScreen(m.Vertices[idx[0]]),
			r.toScreen(m.Vertices[idx[1]]),
			r.toScreen(m.Vertices[idx[2]]),
		)
	}
}

func edge(a, b screenVertex, px, py float32) float32 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// triangle fills the pixels whose centers lie inside a, b, c. Both
// windings are drawn.
func (r *rasterizer) triangle(a, b, c screenVertex) {
	area := edge(a, b, c.x, c.y)
	if area == 0 {
		return
	}
	minX := int(math32.Floor(math32.Min(a.x, math32.Min(b.x, c.x))))
	maxX := int(math32.Ceil(math32.Max(a.x, math32.Max(b.x, c.x))))
	minY := int(math32.Floor(math32.Min(a.y, math32.Min(b.y, c.y))))
	maxY := int(math32.Ceil(math32.Max(a.y, math32.Max(b.y, c.y))))
	minX = clampInt(minX, 0, r.dst.Width-1)
	maxX = clampInt(maxX, 0, r.dst.Width-1)
	minY = clampInt(minY, 0, r.dst.Height-1)
	maxY = clampInt(maxY, 0, r.dst.Height-1)

	frag := r.call.Program.Fragment()
	ds := r.call.Depth
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float32(x)+0.5, float32(y)+0.5
			w0 := edge(b, c, px, py) / area
			w1 := edge(c, a, px, py) / area
			w2 := edge(a, b, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			// Interpolate relative to a so flat attributes stay exact.
			z := a.z + (b.z-a.z)*w1 + (c.z-a.z)*w2
			if r.depth != nil && ds.Test {
				if !ds.Passes(z, r.depth.At(x, y)[0]) {
					continue
				}
			}
			col := a.color.Add(b.color.Add(a.color.Scale(-1)).Scale(w1)).
				Add(c.color.Add(a.color.Scale(-1)).Scale(w2))
			if frag != nil {
				in := r.input(x, y)
				in.Color = col
				in.Depth = z
				var keep bool
				if col, keep = frag(&in); !keep {
					continue
				}
			}
			if r.depth != nil && ds.Write {
				r.depth.Set(x, y, gfx.RGBA{z, 0, 0, 0})
			}
			r.write(x, y, col)
		}
	}
}
