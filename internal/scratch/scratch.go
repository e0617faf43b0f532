// Package scratch manages the intermediate resources passes allocate for
// themselves: a render target matched to a reference texture, and a
// float weight buffer re-uploaded only when its contents change.
package scratch

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/renderpass"
	"github.com/gogpu/renderpass/gfx"
	"github.com/gogpu/renderpass/resource"
)

// Target is a pass-owned texture sized and formatted after a reference.
type Target struct {
	label string
	flags resource.BindFlags
	tex   *resource.Texture
}

// NewTarget returns an empty target. flags default to
// RenderTarget|ShaderResource.
func NewTarget(label string, flags resource.BindFlags) *Target {
	if flags == resource.BindNone {
		flags = resource.RenderTarget | resource.ShaderResource
	}
	return &Target{label: label, flags: flags}
}

// Texture returns the current texture, or nil.
func (t *Target) Texture() *resource.Texture { return t.tex }

// Matches reports whether the texture exists and has the given shape.
func (t *Target) Matches(width, height int, format gputypes.TextureFormat) bool {
	return t.tex != nil && !t.tex.Released() &&
		t.tex.Width() == width && t.tex.Height() == height && t.tex.Format() == format
}

// EnsureLike makes the target match ref's size and format. It returns true
// when a new texture was allocated.
func (t *Target) EnsureLike(ctx gfx.Context, ref *resource.Texture) (bool, error) {
	if ref == nil {
		return false, fmt.Errorf("scratch: %s: no reference texture", t.label)
	}
	return t.Ensure(ctx, ref.Width(), ref.Height(), ref.Format())
}

// Ensure creates or recreates the texture when the requested shape
// differs from the current one. Matching shapes are a no-op.
func (t *Target) Ensure(ctx gfx.Context, width, height int, format gputypes.TextureFormat) (bool, error) {
	if t.Matches(width, height, format) {
		return false, nil
	}
	t.Release()

	tex, err := ctx.CreateTexture(resource.TextureDesc{
		Label:     t.label,
		Width:     width,
		Height:    height,
		Format:    format,
		Dimension: resource.Texture2D,
		Flags:     t.flags,
	})
	if err != nil {
		return false, fmt.Errorf("scratch: create %s: %w", t.label, err)
	}
	t.tex = tex
	renderpass.Logger().Debug("scratch target allocated",
		"label", t.label, "width", width, "height", height, "format", resource.FormatName(format))
	return true, nil
}

// Release frees the texture.
func (t *Target) Release() {
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
}

// Weights is a pass-owned storage buffer of float32 values.
type Weights struct {
	label    string
	buf      *resource.Buffer
	uploaded []float32
}

// NewWeights returns an empty weight buffer.
func NewWeights(label string) *Weights {
	return &Weights{label: label}
}

// Buffer returns the current buffer, or nil.
func (w *Weights) Buffer() *resource.Buffer { return w.buf }

// Upload writes vals unless they equal the last upload. The buffer grows
// as needed. It returns true when data was written.
func (w *Weights) Upload(ctx gfx.Context, vals []float32) (bool, error) {
	if w.buf != nil && !w.buf.Released() && slices.Equal(w.uploaded, vals) {
		return false, nil
	}
	size := len(vals) * 4
	if size == 0 {
		size = 4
	}
	if w.buf == nil || w.buf.Released() || w.buf.Size() < size {
		w.Release()
		buf, err := ctx.CreateBuffer(resource.BufferDesc{
			Label:  w.label,
			Size:   size,
			Stride: 4,
			Flags:  resource.ShaderResource | resource.CopyDst,
		})
		if err != nil {
			return false, fmt.Errorf("scratch: create %s: %w", w.label, err)
		}
		w.buf = buf
	}
	if err := ctx.WriteBuffer(w.buf, 0, gfx.EncodeFloats(vals)); err != nil {
		return false, fmt.Errorf("scratch: upload %s: %w", w.label, err)
	}
	w.uploaded = append(w.uploaded[:0], vals...)
	renderpass.Logger().Debug("weights uploaded", "label", w.label, "count", len(vals))
	return true, nil
}

// Release frees the buffer.
func (w *Weights) Release() {
	if w.buf != nil {
		w.buf.Release()
		w.buf = nil
	}
	w.uploaded = w.uploaded[:0]
}
