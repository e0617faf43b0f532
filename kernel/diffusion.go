package kernel

import "math"

// skinProfile is the six-Gaussian sum-of-Gaussians fit of skin diffusion.
// Variances are in mm²; weights are per RGB channel.
var skinProfile = []struct {
	variance float32
	weight   [3]float32
}{
	{0.0064, [3]float32{0.233, 0.455, 0.649}},
	{0.0484, [3]float32{0.100, 0.336, 0.344}},
	{0.187, [3]float32{0.118, 0.198, 0}},
	{0.567, [3]float32{0.113, 0.007, 0}},
	{1.99, [3]float32{0.358, 0.004, 0}},
	{7.41, [3]float32{0.078, 0, 0}},
}

// tapRange is how far the outermost tap reaches, in units of the
// scattering width.
const tapRange = 3

// Profile is a sampled diffusion profile.
// Offsets are in pixels; each channel's weights sum to 1.
type Profile struct {
	Offsets []float32
	Weights [3][]float32
}

// Len returns the number of taps.
func (p *Profile) Len() int { return len(p.Offsets) }

// Packed interleaves the profile as (offset, r, g, b) quadruples, the
// layout of the subsurface weight buffer.
func (p *Profile) Packed() []float32 {
	out := make([]float32, 0, len(p.Offsets)*4)
	for i, o := range p.Offsets {
		out = append(out, o, p.Weights[0][i], p.Weights[1][i], p.Weights[2][i])
	}
	return out
}

// gauss is the normalized 1D Gaussian with the given variance.
func gauss(variance, r float64) float64 {
	return math.Exp(-(r*r)/(2*variance)) / math.Sqrt(2*math.Pi*variance)
}

// Diffusion samples a diffusion profile with 2*width+1 taps.
//
// Taps are spread evenly over ±3 scattering widths, so spread is the
// distance in pixels covered by one unit of the profile. color scales the
// per-channel falloff: a channel with a larger value scatters further, and
// a zero channel does not scatter at all. width smaller than 2*spread
// under-samples the profile.
func Diffusion(width int, spread float32, color [3]float32, mode Mode) *Profile {
	if width < 0 {
		width = 0
	}
	size := width*2 + 1
	p := &Profile{Offsets: make([]float32, size)}
	for c := range p.Weights {
		p.Weights[c] = make([]float32, size)
	}

	if width == 0 || spread <= 0 {
		for c := range p.Weights {
			p.Weights[c][width] = 1
		}
		return p
	}

	step := float32(tapRange) / float32(width)
	for i := 0; i < size; i++ {
		p.Offsets[i] = float32(i-width) * step * spread
	}

	vals := make([]float64, size)
	for c := 0; c < 3; c++ {
		w := p.Weights[c]
		scale := float64(color[c]) * float64(color[c])
		if scale <= 0 {
			w[width] = 1
			continue
		}
		sum := float64(0)
		for i := range vals {
			r := float64(i-width) * float64(step)
			v := float64(0)
			switch mode {
			case Skin:
				for _, g := range skinProfile {
					if g.weight[c] == 0 {
						continue
					}
					v += float64(g.weight[c]) * gauss(float64(g.variance)*scale, r)
				}
			default:
				v = gauss(scale, r)
			}
			vals[i] = v
			sum += v
		}
		if sum <= 0 {
			w[width] = 1
			continue
		}
		normalize(w, vals, sum)
	}
	return p
}
