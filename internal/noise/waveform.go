package noise

import (
	"math"

	"github.com/lazypower/chronoscope/internal/epoch"
)

// tapeHiss is the weight-independent noise floor under every waveform layer.
const tapeHiss = 0.002

var reverbDelays = [...]float64{0.0297, 0.0371, 0.0411, 0.0437} // seconds

const reverbFeedback = 0.6

// Waveform generates the sample sequence for l.
//
// A handful of slowly tremoloed partials, drawn from the timbre tags, sit over
// a noise band low-passed according to the epoch's depth. Both are scaled by
// weight, then pass through a comb reverb whose mix grows with depth. A fixed
// tape hiss floor is added last.
func Waveform(l Layer, samples int, p Params) ([]float64, error) {
	if err := CheckWaveform(samples); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rng := newRand(l.Seed, streamWaveform)
	weight := clamp(l.Weight, 0, 1)
	depth := l.Epoch.Depth()
	sr := float64(p.SampleRate)
	nyquist := sr / 2
	cutoff := min(float64(epoch.LowpassHz(depth)), nyquist*0.9)
	pool, noiseLevel, hush := timbreFor(l.Epoch)

	out := make([]float64, samples)
	for i := range p.Partials {
		f := pool[rng.IntN(len(pool))] * (1 + (rng.Float64()-0.5)*0.02)
		phase := rng.Float64() * 2 * math.Pi
		amp := (0.6 + 0.4*rng.Float64()) / float64(i+1)
		tremRate := 0.1 + 1.9*rng.Float64()
		tremPhase := rng.Float64() * 2 * math.Pi

		if f >= nyquist {
			continue
		}
		if f > cutoff {
			amp *= cutoff / f
		}
		for n := range out {
			t := float64(n) / sr
			trem := 0.75 + 0.25*math.Sin(2*math.Pi*tremRate*t+tremPhase)
			out[n] += amp * trem * math.Sin(2*math.Pi*f*t+phase)
		}
	}

	alpha := 1 - math.Exp(-2*math.Pi*cutoff/sr)
	var lp float64
	for n := range out {
		lp += alpha * ((rng.Float64()*2 - 1) - lp)
		out[n] += noiseLevel * lp
	}

	gain := weight
	if hush {
		gain *= 0.5
	}
	for n := range out {
		out[n] *= gain
	}

	reverb(out, sr, epoch.ReverbPct(depth))

	for n := range out {
		out[n] += tapeHiss * (rng.Float64()*2 - 1)
	}
	return out, nil
}

// reverb mixes a bank of feedback combs into x in place. pct is the wet mix.
func reverb(x []float64, sampleRate float64, pct int) {
	wet := float64(pct) / 100
	if wet <= 0 {
		return
	}
	acc := make([]float64, len(x))
	y := make([]float64, len(x))
	scale := (1 - reverbFeedback) / float64(len(reverbDelays))
	for _, d := range reverbDelays {
		delay := max(1, int(d*sampleRate))
		for n := range x {
			y[n] = x[n]
			if n >= delay {
				y[n] += reverbFeedback * y[n-delay]
			}
			acc[n] += y[n] * scale
		}
	}
	for n := range x {
		x[n] = (1-wet)*x[n] + wet*acc[n]
	}
}
