package noise

import (
	"math"
	"math/rand/v2"
)

// fog is the warm gray an image fades toward, as 0-1 RGB.
var fog = tint{245.0 / 255, 240.0 / 255, 230.0 / 255}

var sepiaMatrix = [Channels][Channels]float64{
	{0.393, 0.769, 0.189},
	{0.349, 0.686, 0.168},
	{0.272, 0.534, 0.131},
}

// Raster generates the RGB field for l. Values are signed intensities in
// [-1,1] with 0 at mid-gray, row-major with Channels values per pixel.
//
// Structure comes from fractal value noise tinted by the palette tags. The
// epoch's visual treatment is then applied in order: blur, sepia, saturation,
// contrast, grain, vignette, fade. Contrast and saturation scale with weight,
// grain does not, so faint layers are dominated by grain.
func Raster(l Layer, width, height int, p Params) ([]float64, error) {
	if err := CheckRaster(width, height); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rng := newRand(l.Seed, streamRaster)
	v := l.Epoch.Visual.OrNeutral()
	weight := clamp(l.Weight, 0, 1)

	lum := fractal(rng, width, height, p, p.Octaves)
	pal, chroma := paletteFor(l.Epoch)
	var wander [Channels][]float64
	if chroma > 0 {
		for c := range wander {
			wander[c] = fractal(rng, width, height, p, min(2, p.Octaves))
		}
	}

	n := width * height
	pix := make([]float64, n*Channels)
	for i := range n {
		for c := range Channels {
			val := lum[i] * pal[c]
			if wander[c] != nil {
				val += (wander[c][i] - 0.5) * chroma
			}
			pix[i*Channels+c] = val
		}
	}

	boxBlur(pix, width, height, int(math.Round(v.Blur)))
	applySepia(pix, v.Sepia)
	applySaturation(pix, v.Saturation*(0.5+0.5*weight))
	applyContrast(pix, v.Contrast*weight)
	applyGrain(pix, rng, v.Grain)
	applyVignette(pix, width, height, v.Vignette)
	applyFade(pix, v.Fade)

	for i := range pix {
		pix[i] = 2*clamp(pix[i], 0, 1) - 1
	}
	return pix, nil
}

// fractal sums octaves of value noise into a field normalized to [0,1].
func fractal(rng *rand.Rand, width, height int, p Params, octaves int) []float64 {
	out := make([]float64, width*height)
	amp, total := 1.0, 0.0
	cell := float64(p.BaseCell)
	for range octaves {
		addValueNoise(out, rng, width, height, max(cell, 1), amp)
		total += amp
		amp *= p.Persistence
		cell /= p.Lacunarity
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

// addValueNoise adds one octave of smoothly interpolated lattice noise.
func addValueNoise(dst []float64, rng *rand.Rand, width, height int, cell, amp float64) {
	gw := int(math.Ceil(float64(width)/cell)) + 2
	gh := int(math.Ceil(float64(height)/cell)) + 2
	lattice := make([]float64, gw*gh)
	for i := range lattice {
		lattice[i] = rng.Float64()
	}

	for y := range height {
		fy := float64(y) / cell
		y0 := int(fy)
		ty := smoothstep(fy - float64(y0))
		for x := range width {
			fx := float64(x) / cell
			x0 := int(fx)
			tx := smoothstep(fx - float64(x0))

			v00 := lattice[y0*gw+x0]
			v10 := lattice[y0*gw+x0+1]
			v01 := lattice[(y0+1)*gw+x0]
			v11 := lattice[(y0+1)*gw+x0+1]
			top := v00 + (v10-v00)*tx
			bot := v01 + (v11-v01)*tx
			dst[y*width+x] += amp * (top + (bot-top)*ty)
		}
	}
}

func smoothstep(t float64) float64 {
	return t * t * (3 - 2*t)
}

// boxBlur runs a separable box filter of the given radius, clamping at edges.
func boxBlur(pix []float64, width, height, radius int) {
	if radius < 1 {
		return
	}
	span := float64(2*radius + 1)
	tmp := make([]float64, len(pix))

	for y := range height {
		for x := range width {
			for c := range Channels {
				var sum float64
				for d := -radius; d <= radius; d++ {
					xx := min(max(x+d, 0), width-1)
					sum += pix[(y*width+xx)*Channels+c]
				}
				tmp[(y*width+x)*Channels+c] = sum / span
			}
		}
	}
	for y := range height {
		for x := range width {
			for c := range Channels {
				var sum float64
				for d := -radius; d <= radius; d++ {
					yy := min(max(y+d, 0), height-1)
					sum += tmp[(yy*width+x)*Channels+c]
				}
				pix[(y*width+x)*Channels+c] = sum / span
			}
		}
	}
}

func applySepia(pix []float64, amount float64) {
	if amount <= 0 {
		return
	}
	for i := 0; i < len(pix); i += Channels {
		r, g, b := pix[i], pix[i+1], pix[i+2]
		for c := range Channels {
			m := sepiaMatrix[c]
			toned := min(m[0]*r+m[1]*g+m[2]*b, 1)
			pix[i+c] = pix[i+c]*(1-amount) + toned*amount
		}
	}
}

func applySaturation(pix []float64, factor float64) {
	for i := 0; i < len(pix); i += Channels {
		gray := 0.299*pix[i] + 0.587*pix[i+1] + 0.114*pix[i+2]
		for c := range Channels {
			pix[i+c] = gray + (pix[i+c]-gray)*factor
		}
	}
}

func applyContrast(pix []float64, factor float64) {
	for i := range pix {
		pix[i] = 0.5 + (pix[i]-0.5)*factor
	}
}

// applyGrain adds luminance grain; one draw per pixel.
func applyGrain(pix []float64, rng *rand.Rand, amount float64) {
	if amount <= 0 {
		return
	}
	sigma := amount * 0.2
	for i := 0; i < len(pix); i += Channels {
		g := rng.NormFloat64() * sigma
		for c := range Channels {
			pix[i+c] += g
		}
	}
}

func applyVignette(pix []float64, width, height int, amount float64) {
	if amount <= 0 {
		return
	}
	axis := func(i, n int) float64 {
		if n == 1 {
			return 0
		}
		return -1 + 2*float64(i)/float64(n-1)
	}
	for y := range height {
		ny := axis(y, height)
		for x := range width {
			nx := axis(x, width)
			m := clamp(1-math.Hypot(nx, ny)*amount, 0, 1)
			i := (y*width + x) * Channels
			for c := range Channels {
				pix[i+c] *= m
			}
		}
	}
}

func applyFade(pix []float64, amount float64) {
	if amount <= 0 {
		return
	}
	for i := 0; i < len(pix); i += Channels {
		for c := range Channels {
			pix[i+c] = pix[i+c]*(1-amount) + fog[c]*amount
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return min(max(v, lo), hi)
}
