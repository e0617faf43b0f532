package renderpass

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/renderpass/resource"
)

// Direction says whether a field is read, written, or both.
type Direction uint8

const (
	Input Direction = 1 << iota
	Output

	InputOutput = Input | Output
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	case InputOutput:
		return "input/output"
	default:
		return fmt.Sprintf("Direction(%d)", d)
	}
}

// Field is one reflected resource requirement of a pass.
type Field struct {
	name     string
	desc     string
	dir      Direction
	kind     resource.Kind
	optional bool
	dim      resource.Dimension
	format   gputypes.TextureFormat
	flags    resource.BindFlags
	width    int
	height   int
}

// Name returns the field name.
func (f *Field) Name() string { return f.name }

// Desc returns the human-readable description.
func (f *Field) Desc() string { return f.desc }

// Direction returns the field direction.
func (f *Field) Direction() Direction { return f.dir }

// ResourceKind returns the kind of resource the field accepts.
func (f *Field) ResourceKind() resource.Kind { return f.kind }

// IsOptional reports whether the pass runs without the field bound.
func (f *Field) IsOptional() bool { return f.optional }

// Dim returns the required dimension. DimensionUnknown accepts any.
func (f *Field) Dim() resource.Dimension { return f.dim }

// Fmt returns the required format. TextureFormatUndefined inherits the
// bound resource's format.
func (f *Field) Fmt() gputypes.TextureFormat { return f.format }

// BindFlags returns the bind flags a resource must support at least one of.
func (f *Field) BindFlags() resource.BindFlags { return f.flags }

// Size returns the fixed size, or 0, 0 to use the graph default.
func (f *Field) Size() (width, height int) { return f.width, f.height }

// Description sets the description.
func (f *Field) Description(desc string) *Field {
	f.desc = desc
	return f
}

// Optional marks the field as not required.
func (f *Field) Optional() *Field {
	f.optional = true
	return f
}

// Format sets the required format.
func (f *Field) Format(format gputypes.TextureFormat) *Field {
	f.format = format
	return f
}

// Dimension sets the required dimension.
func (f *Field) Dimension(dim resource.Dimension) *Field {
	f.dim = dim
	return f
}

// Flags sets the accepted bind flags.
func (f *Field) Flags(flags resource.BindFlags) *Field {
	f.flags = flags
	return f
}

// Buffer marks the field as a buffer field.
func (f *Field) Buffer() *Field {
	f.kind = resource.KindBuffer
	f.dim = resource.DimensionBuffer
	return f
}

// Resolution fixes the texture size instead of using the graph default.
func (f *Field) Resolution(width, height int) *Field {
	f.width, f.height = width, height
	return f
}

// Reflection is the ordered list of a pass's fields.
type Reflection struct {
	fields []*Field
}

// NewReflection returns an empty reflection.
func NewReflection() *Reflection {
	return &Reflection{}
}

func (r *Reflection) add(name, desc string, dir Direction, flags resource.BindFlags) *Field {
	if f := r.Field(name); f != nil {
		f.dir |= dir
		f.flags |= flags
		if desc != "" && f.desc == "" {
			f.desc = desc
		}
		return f
	}
	f := &Field{
		name:  name,
		desc:  desc,
		dir:   dir,
		kind:  resource.KindTexture,
		dim:   resource.Texture2D,
		flags: flags,
	}
	r.fields = append(r.fields, f)
	return f
}

// AddInput declares an input texture. Adding a name that is already an
// output turns it into an input/output field.
func (r *Reflection) AddInput(name, desc string) *Field {
	return r.add(name, desc, Input, resource.ShaderResource)
}

// AddOutput declares an output texture.
func (r *Reflection) AddOutput(name, desc string) *Field {
	return r.add(name, desc, Output, resource.RenderTarget)
}

// AddInputOutput declares a field that is both read and written.
func (r *Reflection) AddInputOutput(name, desc string) *Field {
	return r.add(name, desc, InputOutput, resource.RenderTarget|resource.ShaderResource)
}

// Field returns the named field, or nil.
func (r *Reflection) Field(name string) *Field {
	for _, f := range r.fields {
		if f.name == name {
			return f
		}
	}
	return nil
}

// Fields returns all fields in declaration order.
func (r *Reflection) Fields() []*Field { return r.fields }

// Len returns the number of fields.
func (r *Reflection) Len() int { return len(r.fields) }

// Inputs returns the fields readable by the pass.
func (r *Reflection) Inputs() []*Field { return r.filter(Input) }

// Outputs returns the fields written by the pass.
func (r *Reflection) Outputs() []*Field { return r.filter(Output) }

func (r *Reflection) filter(dir Direction) []*Field {
	var out []*Field
	for _, f := range r.fields {
		if f.dir&dir != 0 {
			out = append(out, f)
		}
	}
	return out
}
