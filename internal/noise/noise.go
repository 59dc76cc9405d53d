// Package noise generates the raw, unblended signal layers of a synthesis:
// a 2D RGB field per epoch for imagery and a 1D sample sequence per epoch for
// audio. Every generator is a pure function of its arguments; randomness comes
// only from a PCG source seeded by the layer.
package noise

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"

	"github.com/lazypower/chronoscope/internal/epoch"
)

// ErrInvalidShape is returned for non-positive dimensions or durations.
var ErrInvalidShape = errors.New("invalid shape")

// Channels is the number of color channels in a raster field.
const Channels = 3

// Layer is one epoch paired with its weight and generator seed.
type Layer struct {
	Epoch  epoch.Epoch
	Weight float64
	Seed   uint64
}

// Params are the tunable generator constants.
type Params struct {
	Octaves     int     `json:"octaves"`     // fractal octaves for raster noise
	Persistence float64 `json:"persistence"` // amplitude falloff per octave
	Lacunarity  float64 `json:"lacunarity"`  // frequency growth per octave
	BaseCell    int     `json:"base_cell"`   // lattice cell size in pixels at the coarsest octave
	Partials    int     `json:"partials"`    // sinusoids per waveform layer
	SampleRate  int     `json:"sample_rate"` // Hz
}

// DefaultParams returns the stock generator constants.
func DefaultParams() Params {
	return Params{
		Octaves:     5,
		Persistence: 0.5,
		Lacunarity:  2.0,
		BaseCell:    32,
		Partials:    4,
		SampleRate:  48000,
	}
}

// Validate rejects constants the generators cannot work with.
func (p Params) Validate() error {
	switch {
	case p.Octaves < 1:
		return fmt.Errorf("octaves must be >= 1, got %d", p.Octaves)
	case !(p.Persistence > 0 && p.Persistence <= 1):
		return fmt.Errorf("persistence must be in (0,1], got %v", p.Persistence)
	case !(p.Lacunarity >= 1):
		return fmt.Errorf("lacunarity must be >= 1, got %v", p.Lacunarity)
	case p.BaseCell < 1:
		return fmt.Errorf("base cell must be >= 1, got %d", p.BaseCell)
	case p.Partials < 1:
		return fmt.Errorf("partials must be >= 1, got %d", p.Partials)
	case p.SampleRate < 4000:
		return fmt.Errorf("sample rate must be >= 4000, got %d", p.SampleRate)
	}
	return nil
}

// CheckRaster validates raster dimensions.
func CheckRaster(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: raster %dx%d", ErrInvalidShape, width, height)
	}
	return nil
}

// CheckWaveform validates a waveform length.
func CheckWaveform(samples int) error {
	if samples <= 0 {
		return fmt.Errorf("%w: %d samples", ErrInvalidShape, samples)
	}
	return nil
}

// DeriveSeed mixes a request seed with an epoch key so each layer of a
// request draws from its own stream.
func DeriveSeed(seed uint64, key string) uint64 {
	h := fnv.New64a()
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seed)
	h.Write(b[:])
	h.Write([]byte(key))
	return h.Sum64()
}

// Stream identifiers keep raster, waveform and ambient draws independent.
const (
	streamRaster   uint64 = 0x7261737465720001
	streamWaveform uint64 = 0x7761766566720002
	streamAmbient  uint64 = 0x616d6269656e0003
)

func newRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}
