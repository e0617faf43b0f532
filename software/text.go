package software

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/renderpass/gfx"
	"github.com/gogpu/renderpass/resource"
)

// labelFace returns the face used for text, creating the default
// Go Regular face on first use.
func (c *Context) labelFace() (font.Face, error) {
	if c.face != nil {
		return c.face, nil
	}
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("software: parse font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    c.fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("software: create face: %w", err)
	}
	c.face = face
	return face, nil
}

// MeasureText returns the advance width and line height of text.
func (c *Context) MeasureText(text string) (width, height float32) {
	face, err := c.labelFace()
	if err != nil {
		return 0, 0
	}
	adv := font.MeasureString(face, text)
	m := face.Metrics()
	return fixedToFloat(adv), fixedToFloat(m.Ascent + m.Descent)
}

// DrawText alpha-blends a single line of text onto target with its
// top-left corner at (x, y).
func (c *Context) DrawText(target *resource.Texture, text string, x, y float32, col gfx.RGBA) error {
	dst, err := SurfaceOf(target)
	if err != nil {
		return err
	}
	face, err := c.labelFace()
	if err != nil {
		return err
	}

	w, h := c.MeasureText(text)
	mw, mh := int(w)+2, int(h)+2
	if mw <= 2 || mh <= 2 {
		return nil
	}
	mask := image.NewAlpha(image.Rect(0, 0, mw, mh))
	drawer := &font.Drawer{
		Dst:  mask,
		Src:  image.NewUniform(color.Alpha{A: 255}),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(1), Y: face.Metrics().Ascent + fixed.I(1)},
	}
	drawer.DrawString(text)

	ox, oy := int(x)-1, int(y)-1
	for my := 0; my < mh; my++ {
		for mx := 0; mx < mw; mx++ {
			a := float32(mask.AlphaAt(mx, my).A) / 255
			if a == 0 {
				continue
			}
			px, py := ox+mx, oy+my
			if px < 0 || py < 0 || px >= dst.Width || py >= dst.Height {
				continue
			}
			cov := a * col[3]
			under := dst.At(px, py)
			dst.Set(px, py, gfx.RGBA{
				col[0]*cov + under[0]*(1-cov),
				col[1]*cov + under[1]*(1-cov),
				col[2]*cov + under[2]*(1-cov),
				cov + under[3]*(1-cov),
			})
		}
	}
	c.stats.TextDraws++
	return nil
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}
