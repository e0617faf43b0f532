// Package resource defines the GPU resource handles that render passes bind
// to their reflected fields.
//
// A [Handle] is a tagged value: it holds a texture, a buffer, or nothing.
// Binding code switches on [Handle.Kind] instead of downcasting, so a buffer
// can never be mistaken for a texture at a slot boundary.
//
// Resources are owned by whoever created them. Passes keep non-owning
// references to externally bound handles and only release the scratch
// resources they allocated themselves.
package resource

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// Kind identifies the variant stored in a Handle.
type Kind uint8

const (
	// KindNone is the empty handle.
	KindNone Kind = iota
	// KindTexture is a texture handle.
	KindTexture
	// KindBuffer is a buffer handle.
	KindBuffer
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTexture:
		return "texture"
	case KindBuffer:
		return "buffer"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Dimension is the shape of a resource.
type Dimension uint8

const (
	// DimensionUnknown accepts any shape.
	DimensionUnknown Dimension = iota
	Texture1D
	Texture2D
	Texture3D
	TextureCube
	// DimensionBuffer marks a linear buffer.
	DimensionBuffer
)

// String returns the dimension name.
func (d Dimension) String() string {
	switch d {
	case DimensionUnknown:
		return "unknown"
	case Texture1D:
		return "1D"
	case Texture2D:
		return "2D"
	case Texture3D:
		return "3D"
	case TextureCube:
		return "Cube"
	case DimensionBuffer:
		return "buffer"
	default:
		return fmt.Sprintf("Dimension(%d)", d)
	}
}

// GPUDimension converts a texture dimension to its gputypes equivalent.
// Cube maps are 2D array textures.
func (d Dimension) GPUDimension() gputypes.TextureDimension {
	switch d {
	case Texture1D:
		return gputypes.TextureDimension1D
	case Texture3D:
		return gputypes.TextureDimension3D
	default:
		return gputypes.TextureDimension2D
	}
}

// BindFlags describes how a resource may be bound to the pipeline.
type BindFlags uint32

const (
	// RenderTarget allows binding as a color attachment.
	RenderTarget BindFlags = 1 << iota
	// DepthStencil allows binding as a depth attachment.
	DepthStencil
	// ShaderResource allows sampling or reading in shaders.
	ShaderResource
	// UnorderedAccess allows storage read/write access.
	UnorderedAccess
	// CopySrc allows the resource to be a copy source.
	CopySrc
	// CopyDst allows the resource to be a copy destination.
	CopyDst
	// Constant allows binding as a uniform buffer.
	Constant
)

// BindNone is the empty flag set.
const BindNone BindFlags = 0

// Has reports whether every flag in other is set.
func (f BindFlags) Has(other BindFlags) bool {
	return f&other == other
}

// Intersects reports whether f and other share at least one flag.
func (f BindFlags) Intersects(other BindFlags) bool {
	return f&other != 0
}

// String returns a compact "RT|SRV" style description.
func (f BindFlags) String() string {
	if f == BindNone {
		return "none"
	}
	names := []struct {
		flag BindFlags
		name string
	}{
		{RenderTarget, "RenderTarget"},
		{DepthStencil, "DepthStencil"},
		{ShaderResource, "ShaderResource"},
		{UnorderedAccess, "UnorderedAccess"},
		{CopySrc, "CopySrc"},
		{CopyDst, "CopyDst"},
		{Constant, "Constant"},
	}
	s := ""
	for _, n := range names {
		if f&n.flag == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += n.name
	}
	return s
}

// TextureUsage maps the flags to gputypes texture usage bits.
func (f BindFlags) TextureUsage() gputypes.TextureUsage {
	var u gputypes.TextureUsage
	if f.Intersects(RenderTarget | DepthStencil) {
		u |= gputypes.TextureUsageRenderAttachment
	}
	if f.Has(ShaderResource) {
		u |= gputypes.TextureUsageTextureBinding
	}
	if f.Has(UnorderedAccess) {
		u |= gputypes.TextureUsageStorageBinding
	}
	if f.Has(CopySrc) {
		u |= gputypes.TextureUsageCopySrc
	}
	if f.Has(CopyDst) {
		u |= gputypes.TextureUsageCopyDst
	}
	return u
}

// BufferUsage maps the flags to gputypes buffer usage bits.
func (f BindFlags) BufferUsage() gputypes.BufferUsage {
	var u gputypes.BufferUsage
	if f.Intersects(ShaderResource | UnorderedAccess) {
		u |= gputypes.BufferUsageStorage
	}
	if f.Has(Constant) {
		u |= gputypes.BufferUsageUniform
	}
	if f.Has(CopySrc) {
		u |= gputypes.BufferUsageCopySrc
	}
	if f.Has(CopyDst) {
		u |= gputypes.BufferUsageCopyDst
	}
	return u
}

// TextureDesc describes a texture to create.
type TextureDesc struct {
	Label     string
	Width     int
	Height    int
	Format    gputypes.TextureFormat
	Dimension Dimension
	Flags     BindFlags
}

// DefaultTextureDesc returns a 2D RGBA8 sampled render target description.
func DefaultTextureDesc(width, height int) TextureDesc {
	return TextureDesc{
		Width:     width,
		Height:    height,
		Format:    gputypes.TextureFormatRGBA8Unorm,
		Dimension: Texture2D,
		Flags:     RenderTarget | ShaderResource,
	}
}

// Validate checks the description for obvious errors.
func (d TextureDesc) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, d.Width, d.Height)
	}
	if d.Format == gputypes.TextureFormatUndefined {
		return ErrUnknownFormat
	}
	return nil
}

// BufferDesc describes a buffer to create.
type BufferDesc struct {
	Label string
	Size  int
	// Stride is the element size in bytes for structured buffers.
	Stride int
	Flags  BindFlags
}

// Texture is a non-owning view of a context texture plus its metadata.
type Texture struct {
	desc     TextureDesc
	backing  any
	released atomic.Bool
	onFree   func(*Texture)
}

// NewTexture wraps a context-specific backing. onFree, if non-nil, runs once
// on the first Release.
func NewTexture(desc TextureDesc, backing any, onFree func(*Texture)) *Texture {
	if desc.Dimension == DimensionUnknown {
		desc.Dimension = Texture2D
	}
	return &Texture{desc: desc, backing: backing, onFree: onFree}
}

// Desc returns the creation description.
func (t *Texture) Desc() TextureDesc { return t.desc }

// Label returns the debug label.
func (t *Texture) Label() string { return t.desc.Label }

// Width returns the width in pixels.
func (t *Texture) Width() int { return t.desc.Width }

// Height returns the height in pixels.
func (t *Texture) Height() int { return t.desc.Height }

// Format returns the pixel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.desc.Format }

// Dimension returns the texture shape.
func (t *Texture) Dimension() Dimension { return t.desc.Dimension }

// Flags returns the bind flags the texture was created with.
func (t *Texture) Flags() BindFlags { return t.desc.Flags }

// Backing returns the context-specific storage.
func (t *Texture) Backing() any { return t.backing }

// SameShape reports whether t and other have equal size and format.
func (t *Texture) SameShape(other *Texture) bool {
	if t == nil || other == nil {
		return false
	}
	return t.desc.Width == other.desc.Width &&
		t.desc.Height == other.desc.Height &&
		t.desc.Format == other.desc.Format
}

// Release frees the backing. Safe to call more than once.
func (t *Texture) Release() {
	if t == nil || !t.released.CompareAndSwap(false, true) {
		return
	}
	if t.onFree != nil {
		t.onFree(t)
	}
	t.backing = nil
}

// Released reports whether Release has been called.
func (t *Texture) Released() bool { return t.released.Load() }

// Buffer is a non-owning view of a context buffer.
type Buffer struct {
	desc     BufferDesc
	backing  any
	released atomic.Bool
	onFree   func(*Buffer)
}

// NewBuffer wraps a context-specific buffer backing.
func NewBuffer(desc BufferDesc, backing any, onFree func(*Buffer)) *Buffer {
	return &Buffer{desc: desc, backing: backing, onFree: onFree}
}

// Desc returns the creation description.
func (b *Buffer) Desc() BufferDesc { return b.desc }

// Size returns the size in bytes.
func (b *Buffer) Size() int { return b.desc.Size }

// Flags returns the bind flags.
func (b *Buffer) Flags() BindFlags { return b.desc.Flags }

// Backing returns the context-specific storage.
func (b *Buffer) Backing() any { return b.backing }

// Release frees the backing. Safe to call more than once.
func (b *Buffer) Release() {
	if b == nil || !b.released.CompareAndSwap(false, true) {
		return
	}
	if b.onFree != nil {
		b.onFree(b)
	}
	b.backing = nil
}

// Released reports whether Release has been called.
func (b *Buffer) Released() bool { return b.released.Load() }
