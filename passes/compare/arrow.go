package compare

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ArrowSize is the side of the arrow texture in pixels.
const ArrowSize = 16

// arrowImage returns a 16x16 grayscale arrow pointing right, drawn at 4x
// and downsampled so its edges are antialiased.
func arrowImage() *image.Gray {
	const hi = ArrowSize * 4
	big := image.NewGray(image.Rect(0, 0, hi, hi))
	mid := float32(hi) / 2
	for y := 0; y < hi; y++ {
		fy := float32(y) + 0.5 - mid
		for x := 0; x < hi; x++ {
			fx := float32(x) + 0.5
			var inside bool
			switch {
			case fx >= 4 && fx < 36:
				inside = fy >= -6 && fy < 6
			case fx >= 36 && fx < 60:
				half := 60 - fx
				inside = fy >= -half && fy <= half
			}
			if inside {
				big.SetGray(x, y, color.Gray{Y: 0xff})
			}
		}
	}
	small := image.NewGray(image.Rect(0, 0, ArrowSize, ArrowSize))
	draw.CatmullRom.Scale(small, small.Bounds(), big, big.Bounds(), draw.Src, nil)
	return small
}
