package noise

import "math"

// AmbientRaster is the low-contrast gray haze used when no epoch resolves.
// Values are signed intensities centered on 0.
func AmbientRaster(seed uint64, width, height int, p Params) ([]float64, error) {
	if err := CheckRaster(width, height); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rng := newRand(seed, streamAmbient)
	haze := fractal(rng, width, height, p, min(2, p.Octaves))
	pix := make([]float64, width*height*Channels)
	for i, h := range haze {
		g := (h-0.5)*0.4 + rng.NormFloat64()*0.05
		for c := range Channels {
			pix[i*Channels+c] = clamp(g, -1, 1)
		}
	}
	return pix, nil
}

// AmbientWaveform is room tone: soft low-passed noise over a faint mains hum.
func AmbientWaveform(seed uint64, samples int, p Params) ([]float64, error) {
	if err := CheckWaveform(samples); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rng := newRand(seed, streamAmbient)
	sr := float64(p.SampleRate)
	alpha := 1 - math.Exp(-2*math.Pi*1200/sr)
	out := make([]float64, samples)
	var lp float64
	for n := range out {
		lp += alpha * ((rng.Float64()*2 - 1) - lp)
		t := float64(n) / sr
		out[n] = 0.5*lp + 0.05*math.Sin(2*math.Pi*50*t)
	}
	return out, nil
}
