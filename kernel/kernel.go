// Package kernel builds the 1D weight tables used by separable filters.
//
// A separable 2D filter is applied as a horizontal pass followed by a
// vertical pass with the same 1D kernel. Two kernel families are provided:
// the normalized Gaussian used by the blur pass, and the per-channel
// diffusion profile used by subsurface scattering.
//
// Kernels depend only on their parameters, so they are memoized in a
// bounded cache keyed by the full parameter set.
package kernel

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"
)

// Gaussian returns 2*width+1 weights w[i] proportional to
// exp(-x²/(2σ²)) for x in [-width, width], normalized to sum to 1.
//
// Width 0 returns [1]. A non-positive sigma collapses the kernel to a unit
// impulse at the center. Sigma values much larger than width/2 truncate the
// distribution and approach a box filter.
func Gaussian(width int, sigma float32) []float32 {
	if width < 0 {
		width = 0
	}
	size := width*2 + 1
	kernel := make([]float32, size)

	if width == 0 || sigma <= 0 || math32.IsNaN(sigma) {
		kernel[width] = 1
		return kernel
	}

	// The 1/(σ√(2π)) factor cancels during normalization. Weights are
	// summed and normalized in float64 so wide kernels still sum to 1.
	twoSigmaSq := 2 * float64(sigma) * float64(sigma)
	vals := make([]float64, size)
	sum := float64(0)
	for i := range vals {
		x := float64(i - width)
		vals[i] = math.Exp(-(x * x) / twoSigmaSq)
		sum += vals[i]
	}
	normalize(kernel, vals, sum)
	return kernel
}

// normalize stores vals/sum into dst.
func normalize(dst []float32, vals []float64, sum float64) {
	inv := 1 / sum
	for i, v := range vals {
		dst[i] = float32(v * inv)
	}
}

// OneSided returns the center weight followed by the width weights to its
// right. Shaders mirror the taps, so this is the form uploaded to GPU
// weight buffers.
func OneSided(full []float32) []float32 {
	if len(full) == 0 {
		return nil
	}
	center := len(full) / 2
	out := make([]float32, len(full)-center)
	copy(out, full[center:])
	return out
}

// Sum returns the sum of the weights, accumulated in float64.
func Sum(w []float32) float32 {
	s := float64(0)
	for _, v := range w {
		s += float64(v)
	}
	return float32(s)
}

// Size returns the tap count of a kernel with the given half width.
func Size(width int) int {
	if width <= 0 {
		return 1
	}
	return width*2 + 1
}

// Center returns the center index of a kernel of the given size.
func Center(size int) int {
	return size / 2
}

// Mode selects the diffusion profile shape.
type Mode uint8

const (
	// Translucent uses a single Gaussian per channel.
	Translucent Mode = iota
	// Skin uses a six-Gaussian fit of measured skin scattering.
	Skin
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Translucent:
		return "Translucent"
	case Skin:
		return "Skin"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// ParseMode parses a mode name as produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "Translucent", "translucent":
		return Translucent, nil
	case "Skin", "skin":
		return Skin, nil
	}
	return Translucent, fmt.Errorf("kernel: unknown diffusion mode %q", s)
}
