package resource

import "errors"

// Errors returned by resource helpers.
var (
	// ErrInvalidSize is returned for non-positive texture dimensions.
	ErrInvalidSize = errors.New("resource: invalid size")

	// ErrUnknownFormat is returned when a texture is created without a format.
	ErrUnknownFormat = errors.New("resource: unknown format")
)

// Handle is a tagged reference to a texture or a buffer.
// The zero value is the empty handle, used to unbind a slot.
type Handle struct {
	kind Kind
	tex  *Texture
	buf  *Buffer
}

// FromTexture returns a handle to t. A nil texture yields the empty handle.
func FromTexture(t *Texture) Handle {
	if t == nil {
		return Handle{}
	}
	return Handle{kind: KindTexture, tex: t}
}

// FromBuffer returns a handle to b. A nil buffer yields the empty handle.
func FromBuffer(b *Buffer) Handle {
	if b == nil {
		return Handle{}
	}
	return Handle{kind: KindBuffer, buf: b}
}

// Kind returns the variant tag.
func (h Handle) Kind() Kind { return h.kind }

// IsEmpty reports whether h refers to nothing.
func (h Handle) IsEmpty() bool { return h.kind == KindNone }

// Texture returns the texture and true when h holds one.
func (h Handle) Texture() (*Texture, bool) {
	return h.tex, h.kind == KindTexture
}

// Buffer returns the buffer and true when h holds one.
func (h Handle) Buffer() (*Buffer, bool) {
	return h.buf, h.kind == KindBuffer
}

// Flags returns the bind flags of the referenced resource.
func (h Handle) Flags() BindFlags {
	switch h.kind {
	case KindTexture:
		return h.tex.Flags()
	case KindBuffer:
		return h.buf.Flags()
	}
	return BindNone
}

// Dimension returns the shape of the referenced resource.
func (h Handle) Dimension() Dimension {
	switch h.kind {
	case KindTexture:
		return h.tex.Dimension()
	case KindBuffer:
		return DimensionBuffer
	}
	return DimensionUnknown
}

// Label returns a debug name for the referenced resource.
func (h Handle) Label() string {
	switch h.kind {
	case KindTexture:
		return h.tex.Label()
	case KindBuffer:
		return h.buf.desc.Label
	}
	return ""
}

// Same reports whether h and other refer to the same resource.
func (h Handle) Same(other Handle) bool {
	return h.kind == other.kind && h.tex == other.tex && h.buf == other.buf
}
