// Package compose blends generated layers into a single output buffer.
//
// Blending:
//   - layers are sorted by epoch registration order (then key) before
//     accumulation, so results never depend on the order callers supply
//   - each layer's signal already carries its weight; it is multiplied by the
//     weight again while accumulating, so influence grows with weight squared
//   - the accumulated buffer is peak-normalized, optionally dissolved toward
//     ambient noise when the summed weight is too high, then soft-clipped
//   - if every weight is zero (or the weighted sum is silent) the result is an
//     ambient bed at AmbientLevel, flagged unresolved
package compose

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrEmptyInput is returned when no layers are supplied.
	ErrEmptyInput = errors.New("empty input")

	// ErrShapeMismatch is returned when layer buffers differ in length.
	ErrShapeMismatch = errors.New("layer shape mismatch")
)

// Layer is one generated signal ready for blending.
type Layer struct {
	Key    string
	Order  int // registration order of the epoch
	Weight float64
	Data   []float64
}

// Params are the tunable blending constants.
type Params struct {
	ClipDrive         float64 `json:"clip_drive"`         // tanh drive of the soft clip; higher saturates harder
	DissolveThreshold float64 `json:"dissolve_threshold"` // summed weight beyond which the output dissolves
	AmbientLevel      float64 `json:"ambient_level"`      // peak level of the ambient bed when unresolved
}

// DefaultParams returns the stock blending constants.
func DefaultParams() Params {
	return Params{
		ClipDrive:         1.5,
		DissolveThreshold: 1.25,
		AmbientLevel:      0.08,
	}
}

// Validate rejects constants the compositor cannot work with.
func (p Params) Validate() error {
	switch {
	case !(p.ClipDrive > 0) || math.IsInf(p.ClipDrive, 0):
		return fmt.Errorf("clip drive must be positive, got %v", p.ClipDrive)
	case !(p.DissolveThreshold > 0):
		return fmt.Errorf("dissolve threshold must be positive, got %v", p.DissolveThreshold)
	case !(p.AmbientLevel > 0 && p.AmbientLevel <= 1):
		return fmt.Errorf("ambient level must be in (0,1], got %v", p.AmbientLevel)
	}
	return nil
}

// AmbientFunc produces the baseline bed. It is called at most once per
// Composite and only when the bed is needed.
type AmbientFunc func() ([]float64, error)

// Result is a blended buffer with signed values in [-1,1].
type Result struct {
	Data        []float64
	Unresolved  bool
	Dissolve    float64 // fraction blended toward ambient, 0 when none
	TotalWeight float64
}

// Composite blends layers into one buffer. All layers and the ambient bed
// must share the same length.
func Composite(layers []Layer, ambient AmbientFunc, p Params) (Result, error) {
	if len(layers) == 0 {
		return Result{}, ErrEmptyInput
	}
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	size := len(layers[0].Data)
	for _, l := range layers {
		if len(l.Data) != size {
			return Result{}, fmt.Errorf("%w: %s has %d values, want %d", ErrShapeMismatch, l.Key, len(l.Data), size)
		}
	}

	sorted := Sorted(layers)

	var total float64
	for _, l := range sorted {
		total += max(l.Weight, 0)
	}

	acc := make([]float64, size)
	if total > 0 {
		for _, l := range sorted {
			w := max(l.Weight, 0)
			if w == 0 {
				continue
			}
			for i, v := range l.Data {
				acc[i] += w * v
			}
		}
	}

	peak := peakAbs(acc)
	if total == 0 || peak == 0 {
		bed, err := ambientBed(ambient, size)
		if err != nil {
			return Result{}, err
		}
		for i := range bed {
			bed[i] *= p.AmbientLevel
		}
		return Result{Data: bed, Unresolved: true, TotalWeight: total}, nil
	}

	for i := range acc {
		acc[i] /= peak
	}

	var dissolve float64
	if excess := total - p.DissolveThreshold; excess > 0 {
		dissolve = excess / (excess + p.DissolveThreshold)
		bed, err := ambientBed(ambient, size)
		if err != nil {
			return Result{}, err
		}
		for i := range acc {
			acc[i] = (1-dissolve)*acc[i] + dissolve*bed[i]
		}
	}

	for i, v := range acc {
		acc[i] = softClip(v, p.ClipDrive)
	}
	return Result{Data: acc, Dissolve: dissolve, TotalWeight: total}, nil
}

// Sorted returns a copy of layers in blending order: registration order, then key.
func Sorted(layers []Layer) []Layer {
	out := slices.Clone(layers)
	slices.SortStableFunc(out, func(a, b Layer) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}

// ambientBed fetches the bed and normalizes it to unit peak.
func ambientBed(ambient AmbientFunc, size int) ([]float64, error) {
	if ambient == nil {
		return nil, errors.New("no ambient source")
	}
	bed, err := ambient()
	if err != nil {
		return nil, fmt.Errorf("ambient: %w", err)
	}
	if len(bed) != size {
		return nil, fmt.Errorf("%w: ambient has %d values, want %d", ErrShapeMismatch, len(bed), size)
	}
	bed = slices.Clone(bed)
	if pk := peakAbs(bed); pk > 0 {
		for i := range bed {
			bed[i] /= pk
		}
	}
	return bed, nil
}

// Unit maps signed values in [-1,1] to [0,1] in place, for raster output.
func Unit(data []float64) []float64 {
	for i, v := range data {
		data[i] = min(max(0.5+0.5*v, 0), 1)
	}
	return data
}

// softClip saturates x through tanh, scaled so ±1 maps to ±1.
func softClip(x, drive float64) float64 {
	y := math.Tanh(drive*x) / math.Tanh(drive)
	return min(max(y, -1), 1)
}

func peakAbs(xs []float64) float64 {
	var m float64
	for _, v := range xs {
		m = max(m, math.Abs(v))
	}
	return m
}
