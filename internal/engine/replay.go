package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/lazypower/chronoscope/internal/artifact"
)

// ErrProvenanceMismatch is returned when stored metadata can no longer be
// reproduced: a different engine version, or epochs that have since changed.
var ErrProvenanceMismatch = errors.New("provenance mismatch")

// Replay regenerates an artifact from its metadata. The result carries the
// original ID and timestamp and is byte-identical to the first emission.
func (e *Engine) Replay(ctx context.Context, meta artifact.Metadata) (*artifact.Artifact, error) {
	if meta.EngineVersion != Version {
		return nil, fmt.Errorf("%w: engine version %q, running %q", ErrProvenanceMismatch, meta.EngineVersion, Version)
	}
	eng, err := e.withSettings(meta.Settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvenanceMismatch, err)
	}

	req := RequestFor(meta)
	a, err := eng.synthesize(ctx, req, meta.CreatedAt, false)
	if err != nil {
		return nil, err
	}

	if len(a.Meta.Layers) != len(meta.Layers) {
		return nil, fmt.Errorf("%w: %d layers, recorded %d", ErrProvenanceMismatch, len(a.Meta.Layers), len(meta.Layers))
	}
	for i, l := range a.Meta.Layers {
		want := meta.Layers[i]
		if l.Key != want.Key || math.Float64bits(l.Weight) != math.Float64bits(want.Weight) {
			return nil, fmt.Errorf("%w: epoch %q weight %v, recorded %q weight %v",
				ErrProvenanceMismatch, l.Key, l.Weight, want.Key, want.Weight)
		}
	}
	if meta.ID != "" && a.Meta.ID != meta.ID {
		return nil, fmt.Errorf("%w: id %s, recorded %s", ErrProvenanceMismatch, a.Meta.ID, meta.ID)
	}
	return a, nil
}

// RequestFor rebuilds the request that produced meta.
func RequestFor(meta artifact.Metadata) Request {
	return Request{
		EpochKeys: meta.Keys(),
		Kind:      meta.Kind,
		Width:     meta.Width,
		Height:    meta.Height,
		Samples:   meta.Samples,
		Seed:      Seed(meta.Seed),
	}
}
