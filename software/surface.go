package software

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/renderpass/gfx"
	"github.com/gogpu/renderpass/resource"
)

// Surface is the CPU storage behind a software texture: four float32
// channels per texel regardless of format. Unorm formats are clamped to
// [0, 1] on store; depth formats use channel 0.
type Surface struct {
	Width  int
	Height int
	Format gputypes.TextureFormat
	Pix    []float32
	unorm  bool
}

func newSurface(w, h int, format gputypes.TextureFormat) *Surface {
	return &Surface{
		Width:  w,
		Height: h,
		Format: format,
		Pix:    make([]float32, w*h*4),
		unorm:  !resource.IsFloatFormat(format),
	}
}

// At returns the texel at (x, y) with clamp-to-edge addressing.
func (s *Surface) At(x, y int) gfx.RGBA {
	x = clampInt(x, 0, s.Width-1)
	y = clampInt(y, 0, s.Height-1)
	i := (y*s.Width + x) * 4
	return gfx.RGBA{s.Pix[i], s.Pix[i+1], s.Pix[i+2], s.Pix[i+3]}
}

// Set stores c at (x, y). Out-of-range coordinates are ignored.
func (s *Surface) Set(x, y int, c gfx.RGBA) {
	if x < 0 || y < 0 || x >= s.Width || y >= s.Height {
		return
	}
	if s.unorm {
		for k := range c {
			c[k] = clamp01(c[k])
		}
	}
	i := (y*s.Width + x) * 4
	copy(s.Pix[i:i+4], c[:])
}

// Fill sets every texel to c.
func (s *Surface) Fill(c gfx.RGBA) {
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			s.Set(x, y, c)
		}
	}
}

// Sample filters the surface at normalized coordinates with clamp-to-edge
// addressing.
func (s *Surface) Sample(smp gfx.Sampler, u, v float32) gfx.RGBA {
	fx := u*float32(s.Width) - 0.5
	fy := v*float32(s.Height) - 0.5
	if smp.Filter != gputypes.FilterModeLinear {
		return s.At(int(math32.Floor(fx+0.5)), int(math32.Floor(fy+0.5)))
	}
	x0 := math32.Floor(fx)
	y0 := math32.Floor(fy)
	tx := fx - x0
	ty := fy - y0
	ix, iy := int(x0), int(y0)
	top := s.At(ix, iy).Lerp(s.At(ix+1, iy), tx)
	bottom := s.At(ix, iy+1).Lerp(s.At(ix+1, iy+1), tx)
	return top.Lerp(bottom, ty)
}

// decode fills the surface from tightly packed texels in its format.
func (s *Surface) decode(data []byte) error {
	bpp := resource.BytesPerPixel(s.Format)
	if bpp == 0 {
		return fmt.Errorf("software: cannot upload %s texels", resource.FormatName(s.Format))
	}
	if len(data) != s.Width*s.Height*bpp {
		return fmt.Errorf("software: upload is %d bytes, want %d", len(data), s.Width*s.Height*bpp)
	}
	n := s.Width * s.Height
	for i := 0; i < n; i++ {
		px := data[i*bpp : (i+1)*bpp]
		var c gfx.RGBA
		switch s.Format {
		case gputypes.TextureFormatR8Unorm:
			c = gfx.RGBA{unorm8(px[0]), 0, 0, 1}
		case gputypes.TextureFormatRGBA8Unorm:
			c = gfx.RGBA{unorm8(px[0]), unorm8(px[1]), unorm8(px[2]), unorm8(px[3])}
		case gputypes.TextureFormatBGRA8Unorm:
			c = gfx.RGBA{unorm8(px[2]), unorm8(px[1]), unorm8(px[0]), unorm8(px[3])}
		case gputypes.TextureFormatRGBA16Float:
			for k := 0; k < 4; k++ {
				c[k] = halfToFloat(binary.LittleEndian.Uint16(px[k*2:]))
			}
		case gputypes.TextureFormatRGBA32Float:
			for k := 0; k < 4; k++ {
				c[k] = math.Float32frombits(binary.LittleEndian.Uint32(px[k*4:]))
			}
		case gputypes.TextureFormatDepth32Float:
			c = gfx.RGBA{math.Float32frombits(binary.LittleEndian.Uint32(px)), 0, 0, 0}
		default:
			return fmt.Errorf("software: cannot upload %s texels", resource.FormatName(s.Format))
		}
		copy(s.Pix[i*4:i*4+4], c[:])
	}
	return nil
}

// RGBA8 returns the surface as tightly packed RGBA8 bytes.
// Float values are clamped; single-channel formats are replicated to gray.
func (s *Surface) RGBA8() []byte {
	out := make([]byte, s.Width*s.Height*4)
	gray := resource.Channels(s.Format) == 1
	for i := 0; i < s.Width*s.Height; i++ {
		p := s.Pix[i*4 : i*4+4]
		if gray {
			v := to8(p[0])
			out[i*4], out[i*4+1], out[i*4+2], out[i*4+3] = v, v, v, 255
			continue
		}
		out[i*4] = to8(p[0])
		out[i*4+1] = to8(p[1])
		out[i*4+2] = to8(p[2])
		out[i*4+3] = to8(p[3])
	}
	return out
}

func unorm8(b byte) float32 { return float32(b) / 255 }

func to8(v float32) byte { return byte(clamp01(v)*255 + 0.5) }

func clamp01(v float32) float32 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// halfToFloat converts an IEEE 754 binary16 value.
func halfToFloat(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h) & 0x3ff
	switch {
	case exp == 0 && mant == 0:
		return math.Float32frombits(sign)
	case exp == 0:
		// subnormal
		f := float32(mant) / 1024 / 16384
		if sign != 0 {
			return -f
		}
		return f
	case exp == 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | mant<<13)
	}
	return math.Float32frombits(sign | (exp+112)<<23 | mant<<13)
}
