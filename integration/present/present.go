// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package present draws a pass output into a host window.
//
// The data flow is:
//
//	pass output (resource.Texture) -> RGBA8 pixels -> window texture -> window
//
// A Presenter keeps one window texture alive across frames and updates it
// in place while the size is unchanged.
//
//	p := present.New()
//	defer p.Close()
//	app.OnDraw(func(dc *gogpu.Context) {
//	    p.Present(dc.AsTextureDrawer(), ctx, g.Texture("cmp.outputColor"), present.DefaultOptions())
//	})
package present

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/renderpass"
	"github.com/gogpu/renderpass/resource"
)

// Presentation errors.
var (
	ErrClosed        = errors.New("present: presenter is closed")
	ErrNoTexture     = errors.New("present: nothing to present")
	ErrNoCreator     = errors.New("present: draw context has no texture creator")
	ErrNotGPUTexture = errors.New("present: created texture is not a gpucontext.Texture")
)

// ImageReader reads a texture back to the CPU. The software context
// implements it.
type ImageReader interface {
	Image(tex *resource.Texture) (*image.NRGBA, error)
}

// Options controls how the output is packed and placed.
type Options struct {
	// X, Y is the window position of the top-left corner.
	X, Y float32

	// FlipY stores rows bottom-up.
	FlipY bool

	// Premultiply multiplies color by alpha, for hosts that composite
	// premultiplied textures.
	Premultiply bool
}

// DefaultOptions draws at the origin with straight alpha.
func DefaultOptions() Options { return Options{} }

type textureDestroyer interface {
	Destroy()
}

// Presenter uploads pass outputs into a window texture. It is not safe for
// concurrent use.
type Presenter struct {
	texture any
	width   int
	height  int
	pix     []byte
	closed  bool
	uploads int
}

// New returns a presenter with no window texture.
func New() *Presenter { return &Presenter{} }

// Present reads tex through r, uploads it and draws it at opts.X, opts.Y.
func (p *Presenter) Present(dc gpucontext.TextureDrawer, r ImageReader, tex *resource.Texture, opts Options) error {
	if p.closed {
		return ErrClosed
	}
	if tex == nil || tex.Released() {
		return ErrNoTexture
	}
	img, err := r.Image(tex)
	if err != nil {
		return fmt.Errorf("present: read %q: %w", tex.Label(), err)
	}
	p.pix = Pack(p.pix[:0], img, opts)
	w, h := img.Rect.Dx(), img.Rect.Dy()

	if err := p.upload(dc, w, h); err != nil {
		return err
	}
	gt, ok := p.texture.(gpucontext.Texture)
	if !ok {
		return ErrNotGPUTexture
	}
	return dc.DrawTexture(gt, opts.X, opts.Y)
}

func (p *Presenter) upload(dc gpucontext.TextureDrawer, w, h int) error {
	if p.texture != nil && w == p.width && h == p.height {
		if updater, ok := p.texture.(gpucontext.TextureUpdater); ok {
			if err := updater.UpdateData(p.pix); err != nil {
				return fmt.Errorf("present: texture update failed: %w", err)
			}
			p.uploads++
			return nil
		}
	}

	creator := dc.TextureCreator()
	if creator == nil {
		return ErrNoCreator
	}
	tex, err := creator.NewTextureFromRGBA(w, h, p.pix)
	if err != nil {
		return fmt.Errorf("present: NewTextureFromRGBA failed: %w", err)
	}
	// Destroy the old texture only after its replacement exists.
	p.destroy()
	p.texture = tex
	p.width, p.height = w, h
	p.uploads++
	renderpass.Logger().Debug("present: window texture created", "width", w, "height", h)
	return nil
}

// Uploads returns the number of texture uploads so far.
func (p *Presenter) Uploads() int { return p.uploads }

func (p *Presenter) destroy() {
	if d, ok := p.texture.(textureDestroyer); ok {
		d.Destroy()
	}
	p.texture = nil
}

// Close destroys the window texture. It is idempotent.
func (p *Presenter) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.destroy()
	p.pix = nil
	return nil
}

// Pack appends the pixels of img to dst as tightly packed RGBA8 rows.
func Pack(dst []byte, img *image.NRGBA, opts Options) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	rowLen := w * 4
	need := rowLen * h
	if cap(dst)-len(dst) < need {
		grown := make([]byte, len(dst), len(dst)+need)
		copy(grown, dst)
		dst = grown
	}
	base := len(dst)
	dst = dst[:base+need]
	for y := 0; y < h; y++ {
		srcY := y
		if opts.FlipY {
			srcY = h - 1 - y
		}
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+srcY)
		src := img.Pix[off : off+rowLen]
		row := dst[base+y*rowLen : base+(y+1)*rowLen]
		copy(row, src)
		if opts.Premultiply {
			premultiply(row)
		}
	}
	return dst
}

func premultiply(row []byte) {
	for i := 0; i+3 < len(row); i += 4 {
		a := uint32(row[i+3])
		if a == 0xff {
			continue
		}
		row[i] = byte((uint32(row[i])*a + 127) / 255)
		row[i+1] = byte((uint32(row[i+1])*a + 127) / 255)
		row[i+2] = byte((uint32(row[i+2])*a + 127) / 255)
	}
}
