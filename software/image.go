package software

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/renderpass/resource"
)

// FromImage uploads img into a new RGBA8 texture with the given flags.
// Pixels are converted to straight alpha.
func (c *Context) FromImage(label string, img image.Image, flags resource.BindFlags) (*resource.Texture, error) {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	tex, err := c.CreateTexture(resource.TextureDesc{
		Label:     label,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Format:    gputypes.TextureFormatRGBA8Unorm,
		Dimension: resource.Texture2D,
		Flags:     flags,
	})
	if err != nil {
		return nil, err
	}
	if err := c.WriteTexture(tex, nrgba.Pix); err != nil {
		tex.Release()
		return nil, err
	}
	return tex, nil
}

// Image reads tex back as an 8-bit straight-alpha image.
func (c *Context) Image(tex *resource.Texture) (*image.NRGBA, error) {
	s, err := SurfaceOf(tex)
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, s.Width, s.Height))
	copy(img.Pix, s.RGBA8())
	return img, nil
}
