package renderpass

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/renderpass/resource"
)

// Binding errors.
var (
	// ErrUnknownSlot is returned for names the pass does not reflect in the
	// requested direction.
	ErrUnknownSlot = errors.New("renderpass: unknown slot")

	// ErrKindMismatch is returned when a buffer is bound to a texture field
	// or the other way around.
	ErrKindMismatch = errors.New("renderpass: resource kind mismatch")

	// ErrUsageMismatch is returned when the resource supports none of the
	// field's bind flags.
	ErrUsageMismatch = errors.New("renderpass: resource bind flags incompatible with slot")
)

// Slots is the table of resources bound to a pass, keyed by field name.
// It holds non-owning references.
type Slots struct {
	owner  string
	refl   *Reflection
	values map[string]resource.Handle
}

// NewSlots returns an empty table for the fields of refl. owner names the
// pass in log messages.
func NewSlots(owner string, refl *Reflection) *Slots {
	return &Slots{
		owner:  owner,
		refl:   refl,
		values: make(map[string]resource.Handle, refl.Len()),
	}
}

// Reflection returns the fields the table was built from.
func (s *Slots) Reflection() *Reflection { return s.refl }

// Bind validates h against the named field and stores it. On error
// nothing is changed. The empty handle unbinds the slot.
func (s *Slots) Bind(dir Direction, name string, h resource.Handle) error {
	f := s.refl.Field(name)
	if f == nil || f.dir&dir == 0 {
		return fmt.Errorf("%w: %s has no %s named %q", ErrUnknownSlot, s.owner, dir, name)
	}
	if h.IsEmpty() {
		delete(s.values, name)
		return nil
	}
	if h.Kind() != f.kind {
		return fmt.Errorf("%w: %s.%s expects a %v, got a %v", ErrKindMismatch, s.owner, name, f.kind, h.Kind())
	}
	if f.flags != resource.BindNone && !h.Flags().Intersects(f.flags) {
		return fmt.Errorf("%w: %s.%s accepts %v, resource %q has %v",
			ErrUsageMismatch, s.owner, name, f.flags, h.Label(), h.Flags())
	}
	s.values[name] = h
	return nil
}

// Set binds h to the named field and logs failures. It returns whether the
// binding was accepted. Passes implement SetInput and SetOutput with it.
func (s *Slots) Set(dir Direction, name string, h resource.Handle) bool {
	if err := s.Bind(dir, name, h); err != nil {
		Logger().Error("renderpass: bind failed", "pass", s.owner, "slot", name, "err", err)
		return false
	}
	return true
}

// Get returns the handle bound to name.
func (s *Slots) Get(name string) resource.Handle { return s.values[name] }

// Texture returns the texture bound to name, or nil.
func (s *Slots) Texture(name string) *resource.Texture {
	t, _ := s.values[name].Texture()
	return t
}

// Buffer returns the buffer bound to name, or nil.
func (s *Slots) Buffer(name string) *resource.Buffer {
	b, _ := s.values[name].Buffer()
	return b
}

// IsBound reports whether name has a resource.
func (s *Slots) IsBound(name string) bool { return !s.values[name].IsEmpty() }

// Validate checks the bound resources against the reflection and appends
// every problem to log. It returns true when nothing was found.
func (s *Slots) Validate(log *Log) bool {
	ok := true
	for _, f := range s.refl.fields {
		h := s.values[f.name]
		if h.IsEmpty() {
			if !f.optional {
				log.Addf("%s: required %s %q is not bound", s.owner, f.dir, f.name)
				ok = false
			}
			continue
		}
		if f.dim != resource.DimensionUnknown && h.Dimension() != f.dim {
			log.Addf("%s: %q expects a %v resource, got %v", s.owner, f.name, f.dim, h.Dimension())
			ok = false
		}
		if tex, isTex := h.Texture(); isTex {
			if tex.Released() {
				log.Addf("%s: %q is bound to a released texture", s.owner, f.name)
				ok = false
				continue
			}
			if f.format != gputypes.TextureFormatUndefined && tex.Format() != f.format {
				log.Addf("%s: %q expects format %s, got %s", s.owner, f.name,
					resource.FormatName(f.format), resource.FormatName(tex.Format()))
				ok = false
			}
			if f.width > 0 && (tex.Width() != f.width || tex.Height() != f.height) {
				log.Addf("%s: %q expects %dx%d, got %dx%d", s.owner, f.name,
					f.width, f.height, tex.Width(), tex.Height())
				ok = false
			}
		}
	}
	return ok
}
