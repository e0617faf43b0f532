package gfx

import (
	"fmt"

	"github.com/gogpu/renderpass/resource"
)

// MaxColorAttachments is the number of color slots in a TargetSet.
const MaxColorAttachments = 8

// TargetSet groups the color and depth attachments a draw renders into.
type TargetSet struct {
	color [MaxColorAttachments]*resource.Texture
	depth *resource.Texture
}

// NewTargetSet returns a target set with the given color attachments in
// slots 0..n-1.
func NewTargetSet(colors ...*resource.Texture) *TargetSet {
	ts := &TargetSet{}
	for i, c := range colors {
		if i >= MaxColorAttachments {
			break
		}
		ts.color[i] = c
	}
	return ts
}

// AttachColor sets color slot i. A nil texture detaches it.
func (ts *TargetSet) AttachColor(i int, tex *resource.Texture) {
	if i < 0 || i >= MaxColorAttachments {
		return
	}
	ts.color[i] = tex
}

// AttachDepth sets the depth attachment. A nil texture detaches it.
func (ts *TargetSet) AttachDepth(tex *resource.Texture) { ts.depth = tex }

// Color returns color slot i, or nil.
func (ts *TargetSet) Color(i int) *resource.Texture {
	if i < 0 || i >= MaxColorAttachments {
		return nil
	}
	return ts.color[i]
}

// Colors returns the attached color textures in slot order.
func (ts *TargetSet) Colors() []*resource.Texture {
	var out []*resource.Texture
	for _, c := range ts.color {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Depth returns the depth attachment, or nil.
func (ts *TargetSet) Depth() *resource.Texture { return ts.depth }

// first returns any attachment, preferring color slot 0.
func (ts *TargetSet) first() *resource.Texture {
	for _, c := range ts.color {
		if c != nil {
			return c
		}
	}
	return ts.depth
}

// Width returns the width of the attachments, or 0 when empty.
func (ts *TargetSet) Width() int {
	if t := ts.first(); t != nil {
		return t.Width()
	}
	return 0
}

// Height returns the height of the attachments, or 0 when empty.
func (ts *TargetSet) Height() int {
	if t := ts.first(); t != nil {
		return t.Height()
	}
	return 0
}

// CheckStatus reports whether the set can be rendered to.
func (ts *TargetSet) CheckStatus() error {
	ref := ts.first()
	if ref == nil {
		return ErrIncompleteTargets
	}
	check := func(what string, t *resource.Texture) error {
		if t == nil {
			return nil
		}
		if t.Released() {
			return fmt.Errorf("%w: %s %q", ErrReleased, what, t.Label())
		}
		if t.Width() != ref.Width() || t.Height() != ref.Height() {
			return fmt.Errorf("%w: %s is %dx%d, expected %dx%d",
				ErrTargetSizeMismatch, what, t.Width(), t.Height(), ref.Width(), ref.Height())
		}
		return nil
	}
	for i, c := range ts.color {
		if err := check(fmt.Sprintf("color %d", i), c); err != nil {
			return err
		}
	}
	if ts.depth != nil {
		if !resource.IsDepthFormat(ts.depth.Format()) {
			return fmt.Errorf("%w: %s", ErrDepthFormat, resource.FormatName(ts.depth.Format()))
		}
		if err := check("depth", ts.depth); err != nil {
			return err
		}
	}
	return nil
}
