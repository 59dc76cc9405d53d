package engine

import (
	"fmt"

	"github.com/lazypower/chronoscope/internal/artifact"
	"github.com/lazypower/chronoscope/internal/compose"
	"github.com/lazypower/chronoscope/internal/epoch"
	"github.com/lazypower/chronoscope/internal/noise"
)

// Request is a synthesis request as supplied by the CLI or HTTP API.
type Request struct {
	EpochKeys []string      `json:"epoch_keys"`
	Kind      artifact.Kind `json:"output_kind"`
	Width     int           `json:"width,omitempty"`
	Height    int           `json:"height,omitempty"`
	Samples   int           `json:"duration_samples,omitempty"`
	Seed      *uint64       `json:"seed,omitempty"`
}

// Seed returns a pointer to s, for building requests with an explicit seed.
func Seed(s uint64) *uint64 { return &s }

// validated is a request that passed every check.
type validated struct {
	kind    artifact.Kind
	epochs  []epoch.Epoch // duplicates removed, first occurrence kept
	order   []int         // registration index per epoch
	width   int
	height  int
	samples int
	seed    uint64
}

// validate checks the request in full before any buffer is built. The
// configured size limits apply only when enforceLimits is set; the hard
// shape checks always apply.
func (e *Engine) validate(req Request, enforceLimits bool) (validated, error) {
	var v validated

	kind, err := artifact.ParseKind(string(req.Kind))
	if err != nil {
		return v, err
	}
	v.kind = kind

	if len(req.EpochKeys) == 0 {
		return v, fmt.Errorf("%w: no epoch keys", compose.ErrEmptyInput)
	}

	seen := make(map[string]bool, len(req.EpochKeys))
	for _, key := range req.EpochKeys {
		if seen[key] {
			continue
		}
		seen[key] = true

		ep, err := e.registry.Lookup(key)
		if err != nil {
			return v, fmt.Errorf("%w %q: %w", ErrUnknownEpoch, key, err)
		}
		idx, _ := e.registry.Index(key)
		v.epochs = append(v.epochs, ep)
		v.order = append(v.order, idx)
	}

	if kind.WantsImage() {
		if err := noise.CheckRaster(req.Width, req.Height); err != nil {
			return v, err
		}
		if enforceLimits && (req.Width > e.limits.MaxWidth || req.Height > e.limits.MaxHeight) {
			return v, fmt.Errorf("%w: raster %dx%d exceeds %dx%d", noise.ErrInvalidShape,
				req.Width, req.Height, e.limits.MaxWidth, e.limits.MaxHeight)
		}
		v.width, v.height = req.Width, req.Height
	}
	if kind.WantsAudio() {
		if err := noise.CheckWaveform(req.Samples); err != nil {
			return v, err
		}
		if enforceLimits && req.Samples > e.limits.MaxSamples {
			return v, fmt.Errorf("%w: %d samples exceeds %d", noise.ErrInvalidShape, req.Samples, e.limits.MaxSamples)
		}
		v.samples = req.Samples
	}

	if req.Seed != nil {
		v.seed = *req.Seed
	} else {
		v.seed = e.seeds()
	}
	return v, nil
}
