// Package software is a CPU implementation of gfx.Context.
//
// Textures are float32 surfaces and programs run through their CPU
// fragment functions in submission order. Full-screen draws may shade row
// bands on a worker pool (WithWorkers); the result does not depend on the
// worker count. It exists so passes can be exercised and rendered
// headlessly without a GPU.
package software

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"golang.org/x/image/font"

	"github.com/gogpu/renderpass"
	"github.com/gogpu/renderpass/gfx"
	"github.com/gogpu/renderpass/internal/parallel"
	"github.com/gogpu/renderpass/resource"
)

// maxTextureSize bounds texture allocations.
const maxTextureSize = 16384

// Stats counts the work a Context has done.
type Stats struct {
	Draws            int
	Clears           int
	TexturesCreated  int
	TexturesReleased int
	BuffersCreated   int
	BuffersReleased  int
	TextDraws        int
}

// LiveTextures returns the number of textures not yet released.
func (s Stats) LiveTextures() int { return s.TexturesCreated - s.TexturesReleased }

// Option configures a Context.
type Option func(*options)

type options struct {
	provider        gpucontext.DeviceProvider
	validateShaders bool
	fontSize        float64
	face            font.Face
	workers         int
}

// WithDeviceProvider reports p from DeviceProvider instead of NullDevice.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) { o.provider = p }
}

// WithShaderValidation compiles every program's WGSL to SPIR-V before its
// first draw and fails draws whose program does not compile.
func WithShaderValidation(enabled bool) Option {
	return func(o *options) { o.validateShaders = enabled }
}

// WithFontSize sets the label font size in pixels. The default is 14.
func WithFontSize(px float64) Option {
	return func(o *options) { o.fontSize = px }
}

// WithWorkers shades full-screen draws on n goroutines; n <= 0 uses
// GOMAXPROCS. The default is 1, which shades on the calling goroutine.
// Contexts with workers must be closed.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithFace uses face for text instead of the built-in Go Regular face.
func WithFace(face font.Face) Option {
	return func(o *options) { o.face = face }
}

// Context is the software gfx.Context. It is not safe for concurrent use.
type Context struct {
	provider        gpucontext.DeviceProvider
	validateShaders bool
	validated       map[*gfx.Program]error
	fontSize        float64
	face            font.Face
	pool            *parallel.Pool
	stats           Stats
}

// New returns a software context.
func New(opts ...Option) *Context {
	o := options{fontSize: 14, workers: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.provider == nil {
		o.provider = NullDevice{}
	}
	c := &Context{
		provider:        o.provider,
		validateShaders: o.validateShaders,
		validated:       make(map[*gfx.Program]error),
		fontSize:        o.fontSize,
		face:            o.face,
	}
	if o.workers != 1 {
		c.pool = parallel.NewPool(o.workers)
	}
	return c
}

// Close stops the worker pool, if any. The context stays usable and
// shades on the calling goroutine afterwards.
func (c *Context) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

// Workers returns the number of goroutines full-screen draws use.
func (c *Context) Workers() int {
	if c.pool == nil {
		return 1
	}
	return c.pool.Workers()
}

var (
	_ gfx.Context      = (*Context)(nil)
	_ gfx.TextRenderer = (*Context)(nil)
	_ gfx.TexelReader  = (*Context)(nil)
)

// DeviceProvider returns the device the context reports.
func (c *Context) DeviceProvider() gpucontext.DeviceProvider { return c.provider }

// Capabilities describes the context.
func (c *Context) Capabilities() Capabilities {
	return Capabilities{
		MaxTextureSize:      maxTextureSize,
		MaxColorAttachments: 1,
		SupportsDepth:       true,
		SupportsText:        true,
		ValidatesShaders:    c.validateShaders,
	}
}

// Stats returns the work counters.
func (c *Context) Stats() Stats { return c.stats }

// ResetStats zeroes the draw and clear counters. Allocation counters are
// kept so leaks stay visible.
func (c *Context) ResetStats() {
	c.stats.Draws = 0
	c.stats.Clears = 0
	c.stats.TextDraws = 0
}

// CreateTexture allocates a surface-backed texture.
func (c *Context) CreateTexture(desc resource.TextureDesc) (*resource.Texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if desc.Width > maxTextureSize || desc.Height > maxTextureSize {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", resource.ErrInvalidSize, desc.Width, desc.Height, maxTextureSize)
	}
	if !resource.IsKnownFormat(desc.Format) {
		return nil, fmt.Errorf("software: unsupported format %v", desc.Format)
	}
	c.stats.TexturesCreated++
	tex := resource.NewTexture(desc, newSurface(desc.Width, desc.Height, desc.Format), func(*resource.Texture) {
		c.stats.TexturesReleased++
	})
	renderpass.Logger().Debug("software: texture created",
		"label", desc.Label, "width", desc.Width, "height", desc.Height,
		"format", resource.FormatName(desc.Format))
	return tex, nil
}

// CreateBuffer allocates a zeroed buffer.
func (c *Context) CreateBuffer(desc resource.BufferDesc) (*resource.Buffer, error) {
	if desc.Size <= 0 {
		return nil, fmt.Errorf("%w: buffer size %d", resource.ErrInvalidSize, desc.Size)
	}
	c.stats.BuffersCreated++
	data := make([]byte, desc.Size)
	return resource.NewBuffer(desc, &data, func(*resource.Buffer) {
		c.stats.BuffersReleased++
	}), nil
}

// WriteTexture replaces the texture contents with tightly packed texels.
func (c *Context) WriteTexture(tex *resource.Texture, data []byte) error {
	s, err := SurfaceOf(tex)
	if err != nil {
		return err
	}
	return s.decode(data)
}

// WriteBuffer copies data into buf at offset.
func (c *Context) WriteBuffer(buf *resource.Buffer, offset int, data []byte) error {
	b, err := bytesOf(buf)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(data) > len(*b) {
		return fmt.Errorf("software: write of %d bytes at %d overflows %d-byte buffer", len(data), offset, len(*b))
	}
	copy((*b)[offset:], data)
	return nil
}

// WriteFloats is a convenience for WriteBuffer with little-endian float32s.
func (c *Context) WriteFloats(buf *resource.Buffer, vals []float32) error {
	return c.WriteBuffer(buf, 0, gfx.EncodeFloats(vals))
}

// SurfaceOf returns the software surface behind tex.
func SurfaceOf(tex *resource.Texture) (*Surface, error) {
	if tex == nil {
		return nil, fmt.Errorf("software: nil texture")
	}
	if tex.Released() {
		return nil, fmt.Errorf("%w: texture %q", gfx.ErrReleased, tex.Label())
	}
	s, ok := tex.Backing().(*Surface)
	if !ok {
		return nil, fmt.Errorf("%w: texture %q", gfx.ErrForeignResource, tex.Label())
	}
	return s, nil
}

func bytesOf(buf *resource.Buffer) (*[]byte, error) {
	if buf == nil {
		return nil, fmt.Errorf("software: nil buffer")
	}
	if buf.Released() {
		return nil, fmt.Errorf("%w: buffer %q", gfx.ErrReleased, buf.Desc().Label)
	}
	b, ok := buf.Backing().(*[]byte)
	if !ok {
		return nil, fmt.Errorf("%w: buffer %q", gfx.ErrForeignResource, buf.Desc().Label)
	}
	return b, nil
}

// Fetch implements gfx.TexelReader. Unreadable textures read as zero.
func (c *Context) Fetch(tex *resource.Texture, x, y int) gfx.RGBA {
	s, err := SurfaceOf(tex)
	if err != nil {
		return gfx.RGBA{}
	}
	return s.At(x, y)
}

// Sample implements gfx.TexelReader.
func (c *Context) Sample(tex *resource.Texture, smp gfx.Sampler, u, v float32) gfx.RGBA {
	s, err := SurfaceOf(tex)
	if err != nil {
		return gfx.RGBA{}
	}
	return s.Sample(smp, u, v)
}

// Floats implements gfx.TexelReader.
func (c *Context) Floats(buf *resource.Buffer) []float32 {
	b, err := bytesOf(buf)
	if err != nil {
		return nil
	}
	return gfx.DecodeFloats(*b)
}

// Clear clears the selected attachments.
func (c *Context) Clear(targets *gfx.TargetSet, values gfx.ClearValues, flags gfx.ClearFlags) error {
	if targets == nil {
		return gfx.ErrIncompleteTargets
	}
	if err := targets.CheckStatus(); err != nil {
		return err
	}
	if flags.Has(gfx.ClearColor) {
		for _, tex := range targets.Colors() {
			s, err := SurfaceOf(tex)
			if err != nil {
				return err
			}
			s.Fill(values.Color)
		}
	}
	if d := targets.Depth(); d != nil && flags.Has(gfx.ClearDepth) {
		s, err := SurfaceOf(d)
		if err != nil {
			return err
		}
		s.Fill(gfx.RGBA{values.Depth, 0, 0, 0})
	}
	c.stats.Clears++
	return nil
}

// Draw runs the call's fragment function over the covered pixels.
func (c *Context) Draw(call *gfx.DrawCall) error {
	if call == nil || call.Program == nil {
		return gfx.ErrNoProgram
	}
	if call.Targets == nil {
		return gfx.ErrIncompleteTargets
	}
	if err := call.Targets.CheckStatus(); err != nil {
		return err
	}
	if err := c.validate(call.Program); err != nil {
		return err
	}
	color := call.Targets.Color(0)
	if color == nil {
		return fmt.Errorf("%w: draw needs color attachment 0", gfx.ErrIncompleteTargets)
	}
	dst, err := SurfaceOf(color)
	if err != nil {
		return err
	}
	var depth *Surface
	if d := call.Targets.Depth(); d != nil {
		if depth, err = SurfaceOf(d); err != nil {
			return err
		}
	}
	if err := c.checkVars(call, color); err != nil {
		return err
	}

	vars := call.Vars
	if vars == nil {
		vars = gfx.NewVars(call.Program)
	}
	r := rasterizer{
		ctx:   c,
		call:  call,
		vars:  vars,
		dst:   dst,
		depth: depth,
	}
	if call.Mesh == nil {
		r.fullscreen()
	} else {
		r.mesh(call.Mesh)
	}
	c.stats.Draws++
	return nil
}

// checkVars rejects reading from the texture being rendered to.
func (c *Context) checkVars(call *gfx.DrawCall, target *resource.Texture) error {
	if call.Vars == nil {
		return nil
	}
	for name, tex := range call.Vars.Textures() {
		if tex == target {
			return fmt.Errorf("software: %s reads %q from its own render target", call.Program.Name(), name)
		}
	}
	return nil
}

func (c *Context) validate(p *gfx.Program) error {
	if !c.validateShaders {
		return nil
	}
	if err, ok := c.validated[p]; ok {
		return err
	}
	_, err := p.Compile()
	c.validated[p] = err
	if err != nil {
		renderpass.Logger().Error("software: shader validation failed", "program", p.Name(), "err", err)
	}
	return err
}
