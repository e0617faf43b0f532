package renderpass

import (
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/renderpass/gfx"
	"github.com/gogpu/renderpass/resource"
)

// Pass is a render-graph node.
//
// The host calls Reflect to learn the pass's fields, binds resources with
// SetInput and SetOutput, checks IsValid, then calls Execute once per
// frame. Passes hold non-owning references to bound resources.
type Pass interface {
	// Name returns the registered pass type name.
	Name() string

	// Reflect describes the pass's inputs and outputs. It does not depend
	// on the currently bound resources.
	Reflect(data CompileData) *Reflection

	// SetInput binds h to the named input. It returns false and logs an
	// error when the name is unknown or the resource is incompatible.
	// The empty handle unbinds the slot.
	SetInput(name string, h resource.Handle) bool

	// SetOutput is SetInput for outputs.
	SetOutput(name string, h resource.Handle) bool

	// IsValid reports whether Execute may be called, appending every
	// problem found to log. log may be nil.
	IsValid(log *Log) bool

	// Execute records the pass's work into ctx. Callers must only call
	// Execute after IsValid returned true.
	Execute(ctx gfx.Context, data *RenderData)

	// Dictionary returns the pass's tunable parameters. Feeding it back to
	// the pass's factory yields an equivalent pass.
	Dictionary() Dictionary
}

// Compiler is implemented by passes that prepare state when the graph is
// compiled.
type Compiler interface {
	Compile(ctx gfx.Context, data CompileData) error
}

// MouseHandler is implemented by interactive passes.
type MouseHandler interface {
	// OnMouseEvent returns true when the pass consumed the event.
	OnMouseEvent(e MouseEvent) bool
}

// Releaser is implemented by passes that own context resources.
type Releaser interface {
	Release()
}

// CompileData carries graph-level defaults to Reflect and Compile.
type CompileData struct {
	DefaultWidth  int
	DefaultHeight int
	DefaultFormat gputypes.TextureFormat
}

// DefaultCompileData returns 1280x720 RGBA8.
func DefaultCompileData() CompileData {
	return CompileData{
		DefaultWidth:  1280,
		DefaultHeight: 720,
		DefaultFormat: gputypes.TextureFormatRGBA8Unorm,
	}
}

// RenderData carries per-frame information to Execute.
type RenderData struct {
	Frame uint64
	Time  time.Duration
}

// MouseEventType is the kind of pointer event.
type MouseEventType uint8

const (
	MouseMove MouseEventType = iota
	MouseButtonDown
	MouseButtonUp
)

// String returns the event type name.
func (t MouseEventType) String() string {
	switch t {
	case MouseMove:
		return "Move"
	case MouseButtonDown:
		return "ButtonDown"
	case MouseButtonUp:
		return "ButtonUp"
	default:
		return "Unknown"
	}
}

// MouseButton identifies a pointer button.
type MouseButton uint8

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
)

// MouseEvent is a pointer event in viewport pixels.
// Time is supplied by the host so handlers never read a wall clock.
type MouseEvent struct {
	Type   MouseEventType
	Button MouseButton
	X, Y   float32
	Width  int
	Height int
	Time   time.Duration
}

// NormalizedX returns X divided by the viewport width, or 0 for an empty
// viewport.
func (e MouseEvent) NormalizedX() float32 {
	if e.Width <= 0 {
		return 0
	}
	return e.X / float32(e.Width)
}
