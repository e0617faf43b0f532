// Package gfx is the graphics-context abstraction render passes execute
// against.
//
// A [Context] creates textures and buffers, clears target sets and submits
// draw calls. Passes never talk to a device directly: they describe work
// with a [Program], its bound [Vars] and a [TargetSet], and the context
// decides how that work runs. The software package provides a CPU context;
// a GPU host supplies its own implementation backed by the same
// gpucontext device provider the rest of the gogpu stack uses.
package gfx

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/renderpass/resource"
)

// Errors returned by contexts and programs.
var (
	// ErrUnknownVar is returned when a program does not declare a variable.
	ErrUnknownVar = errors.New("gfx: unknown program variable")

	// ErrVarKind is returned when a variable is set with the wrong kind.
	ErrVarKind = errors.New("gfx: variable kind mismatch")

	// ErrProgramCompile wraps shader compilation failures.
	ErrProgramCompile = errors.New("gfx: program compile failed")

	// ErrNoProgram is returned for draw calls without a program.
	ErrNoProgram = errors.New("gfx: draw call has no program")

	// ErrIncompleteTargets is returned for target sets with no attachments.
	ErrIncompleteTargets = errors.New("gfx: target set has no attachments")

	// ErrTargetSizeMismatch is returned when attachments differ in size.
	ErrTargetSizeMismatch = errors.New("gfx: attachment sizes differ")

	// ErrDepthFormat is returned when a depth attachment has a color format.
	ErrDepthFormat = errors.New("gfx: depth attachment is not a depth format")

	// ErrForeignResource is returned when a resource was created by another context.
	ErrForeignResource = errors.New("gfx: resource belongs to another context")

	// ErrReleased is returned when a released resource is used.
	ErrReleased = errors.New("gfx: resource released")
)

// Context creates resources and executes draw work.
// A context is used from a single goroutine.
type Context interface {
	// DeviceProvider returns the device the context runs on.
	DeviceProvider() gpucontext.DeviceProvider

	CreateTexture(desc resource.TextureDesc) (*resource.Texture, error)
	CreateBuffer(desc resource.BufferDesc) (*resource.Buffer, error)

	// WriteTexture uploads tightly packed texels in the texture's format.
	WriteTexture(tex *resource.Texture, data []byte) error
	WriteBuffer(buf *resource.Buffer, offset int, data []byte) error

	// Clear clears the selected attachments of targets.
	Clear(targets *TargetSet, values ClearValues, flags ClearFlags) error

	// Draw submits a draw call. Calls execute in submission order.
	Draw(call *DrawCall) error
}

// TextRenderer is implemented by contexts that can draw text labels.
type TextRenderer interface {
	// DrawText draws a single line with its top-left corner at (x, y) pixels.
	DrawText(target *resource.Texture, text string, x, y float32, color RGBA) error
	// MeasureText returns the pixel size of a single line.
	MeasureText(text string) (width, height float32)
}

// ClearFlags selects the attachments Clear touches.
type ClearFlags uint8

const (
	ClearColor ClearFlags = 1 << iota
	ClearDepth
	ClearStencil

	ClearAll = ClearColor | ClearDepth | ClearStencil
)

// Has reports whether every flag in other is set.
func (f ClearFlags) Has(other ClearFlags) bool { return f&other == other }

// ClearValues holds the values written by Clear.
type ClearValues struct {
	Color   RGBA
	Depth   float32
	Stencil uint32
}

// DefaultClearValues clears color to transparent black and depth to the far plane.
func DefaultClearValues() ClearValues {
	return ClearValues{Depth: 1}
}

// RGBA is a linear float color.
type RGBA [4]float32

// GPUColor converts c to a gputypes clear color.
func (c RGBA) GPUColor() gputypes.Color {
	return gputypes.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
}

// Lerp returns c + (d-c)*t per channel.
func (c RGBA) Lerp(d RGBA, t float32) RGBA {
	return RGBA{
		c[0] + (d[0]-c[0])*t,
		c[1] + (d[1]-c[1])*t,
		c[2] + (d[2]-c[2])*t,
		c[3] + (d[3]-c[3])*t,
	}
}

// Scale multiplies every channel by s.
func (c RGBA) Scale(s float32) RGBA {
	return RGBA{c[0] * s, c[1] * s, c[2] * s, c[3] * s}
}

// Add returns the channel-wise sum.
func (c RGBA) Add(d RGBA) RGBA {
	return RGBA{c[0] + d[0], c[1] + d[1], c[2] + d[2], c[3] + d[3]}
}

// DepthState configures the depth test of a draw.
type DepthState struct {
	Test    bool
	Write   bool
	Compare gputypes.CompareFunction
}

// DepthDisabled turns off both testing and writing.
var DepthDisabled = DepthState{Compare: gputypes.CompareFunctionAlways}

// DepthReadWrite tests with Less and writes depth.
var DepthReadWrite = DepthState{Test: true, Write: true, Compare: gputypes.CompareFunctionLess}

// DepthReadOnly tests with LessEqual and keeps the existing depth.
var DepthReadOnly = DepthState{Test: true, Write: false, Compare: gputypes.CompareFunctionLessEqual}

// Passes reports whether a fragment at depth z survives against stored.
func (d DepthState) Passes(z, stored float32) bool {
	if !d.Test {
		return true
	}
	switch d.Compare {
	case gputypes.CompareFunctionNever:
		return false
	case gputypes.CompareFunctionLess:
		return z < stored
	case gputypes.CompareFunctionLessEqual:
		return z <= stored
	case gputypes.CompareFunctionEqual:
		return z == stored
	case gputypes.CompareFunctionGreater:
		return z > stored
	case gputypes.CompareFunctionGreaterEqual:
		return z >= stored
	case gputypes.CompareFunctionNotEqual:
		return z != stored
	default:
		return true
	}
}

// BlendMode selects how fragments combine with the target.
type BlendMode uint8

const (
	// BlendReplace overwrites the target.
	BlendReplace BlendMode = iota
	// BlendAlpha composites straight-alpha source over the target.
	BlendAlpha
)

// Vertex is a mesh vertex in normalized device coordinates.
// Z is in [0, 1] with 0 at the near plane.
type Vertex struct {
	Pos   [3]float32
	Color RGBA
}

// Mesh is an indexed triangle list.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// TriangleCount returns the number of complete triangles.
func (m *Mesh) TriangleCount() int {
	if len(m.Indices) > 0 {
		return len(m.Indices) / 3
	}
	return len(m.Vertices) / 3
}

// DrawCall describes one draw. A nil Mesh draws a full-screen triangle.
type DrawCall struct {
	Program *Program
	Vars    *Vars
	Targets *TargetSet
	Mesh    *Mesh
	Depth   DepthState
	Blend   BlendMode
}

// EncodeFloats packs vals as little-endian float32s, the layout of
// storage and uniform buffers.
func EncodeFloats(vals []float32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// DecodeFloats is the inverse of EncodeFloats. Trailing bytes are ignored.
func DecodeFloats(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
