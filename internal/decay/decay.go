// Package decay converts an epoch's distance and intensity into the weight it
// contributes to a synthesis.
//
// Weighting:
//   - weight = intensity * 0.5^(distance / halfLife), i.e. intensity * exp(-distance/tau)
//     with tau = halfLife / ln 2
//   - default half-life 100 years: an epoch one century back contributes half
//   - the configured value (half_life_years) is a true half-life, not the
//     e-folding constant; the exponent divides by Exponential.Tau, about
//     144.27 years for the default, so roman_forum (2000 years, 0.9) weighs
//     0.9*exp(-13.86) rather than 0.9*exp(-20)
//   - zero distance returns intensity exactly; zero intensity returns 0
//   - result is clamped to [0,1]
package decay

import (
	"fmt"
	"math"
)

// DefaultHalfLife is the distance, in years, at which weight halves.
const DefaultHalfLife = 100.0

// Kernel maps a distance to a persistence factor in [0,1]. Kernels must be
// non-increasing in distance and return 1 at distance 0.
type Kernel interface {
	Persistence(distance float64) float64
}

// Exponential is the closed-form half-life kernel.
type Exponential struct {
	HalfLife float64
}

// Persistence implements Kernel.
func (k Exponential) Persistence(distance float64) float64 {
	if distance <= 0 {
		return 1
	}
	return math.Exp(-distance * math.Ln2 / k.HalfLife)
}

// Tau returns the e-folding distance of the kernel.
func (k Exponential) Tau() float64 {
	return k.HalfLife / math.Ln2
}

// Model computes epoch weights.
type Model struct {
	Kernel Kernel
}

// New creates a Model with an exponential kernel of the given half-life.
func New(halfLife float64) (Model, error) {
	if !(halfLife > 0) || math.IsInf(halfLife, 0) {
		return Model{}, fmt.Errorf("half-life must be positive and finite, got %v", halfLife)
	}
	return Model{Kernel: Exponential{HalfLife: halfLife}}, nil
}

// Default returns a Model using DefaultHalfLife.
func Default() Model {
	return Model{Kernel: Exponential{HalfLife: DefaultHalfLife}}
}

// Weight returns how strongly an epoch at distance with the given intensity
// contributes to the output.
func (m Model) Weight(distance, intensity float64) float64 {
	if !(intensity > 0) {
		return 0
	}
	if distance <= 0 {
		return clamp01(intensity)
	}
	return clamp01(intensity * m.kernel().Persistence(distance))
}

func (m Model) kernel() Kernel {
	if m.Kernel == nil {
		return Exponential{HalfLife: DefaultHalfLife}
	}
	return m.Kernel
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
