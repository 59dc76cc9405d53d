// Package engine runs synthesis requests through the chronoscope pipeline:
//
//	Received → Validated → Weighted → Generated → Composited → Emitted
//
// Any stage may fail; the run then stops with a *StageError naming the stage
// and wrapping the cause. No artifact is returned from a failed run.
//
// Every stage is a pure function of the request, the registry and the engine
// settings. Layers of one request are generated in parallel and blended in
// registration order, so output bytes never depend on scheduling.
package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/lazypower/chronoscope/internal/artifact"
	"github.com/lazypower/chronoscope/internal/compose"
	"github.com/lazypower/chronoscope/internal/config"
	"github.com/lazypower/chronoscope/internal/decay"
	"github.com/lazypower/chronoscope/internal/epoch"
	"github.com/lazypower/chronoscope/internal/noise"
)

// Version is recorded in every artifact. Bump it whenever generation output
// changes for the same metadata.
const Version = "1"

// ErrUnknownEpoch is returned when a request names an unregistered epoch.
var ErrUnknownEpoch = errors.New("unknown epoch")

// Stage is a step of the synthesis state machine.
type Stage string

const (
	StageReceived   Stage = "received"
	StageValidated  Stage = "validated"
	StageWeighted   Stage = "weighted"
	StageGenerated  Stage = "generated"
	StageComposited Stage = "composited"
	StageEmitted    Stage = "emitted"
)

// StageError is a failed run. Stage is the step that raised Err.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Engine orchestrates weighting, generation, compositing and emission.
type Engine struct {
	registry *epoch.Registry
	settings artifact.Settings
	decay    decay.Model
	limits   config.LimitsConfig
	log      *zap.Logger
	now      func() time.Time
	seeds    func() uint64
	workers  int
}

// New creates an Engine over reg using the tunables in cfg.
func New(reg *epoch.Registry, cfg config.Config, logger *zap.Logger) (*Engine, error) {
	if reg == nil {
		return nil, errors.New("nil registry")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := artifact.Settings{
		HalfLife: cfg.Decay.HalfLifeYears,
		Noise:    cfg.NoiseParams(),
		Compose:  cfg.ComposeParams(),
	}
	model, err := decay.New(settings.HalfLife)
	if err != nil {
		return nil, err
	}

	return &Engine{
		registry: reg,
		settings: settings,
		decay:    model,
		limits:   cfg.Limits,
		log:      logger.Named("engine"),
		now:      time.Now,
		seeds:    rand.Uint64,
	}, nil
}

// SetClock overrides the clock used for artifact timestamps.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// SetSeedSource overrides how seeds are picked for requests that omit one.
func (e *Engine) SetSeedSource(seeds func() uint64) {
	e.seeds = seeds
}

// SetWorkers caps parallel layer generation. Zero or less means one worker
// per layer.
func (e *Engine) SetWorkers(n int) {
	e.workers = n
}

// Registry returns the epoch registry the engine reads from.
func (e *Engine) Registry() *epoch.Registry {
	return e.registry
}

// Settings returns the tunables recorded into artifacts.
func (e *Engine) Settings() artifact.Settings {
	return e.settings
}

// Weight exposes the decay model for callers that preview epochs.
func (e *Engine) Weight(ep epoch.Epoch) float64 {
	return e.decay.Weight(ep.Distance, ep.Intensity)
}

// withSettings returns a copy of e generating under s.
func (e *Engine) withSettings(s artifact.Settings) (*Engine, error) {
	if err := s.Noise.Validate(); err != nil {
		return nil, fmt.Errorf("noise: %w", err)
	}
	if err := s.Compose.Validate(); err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	model, err := decay.New(s.HalfLife)
	if err != nil {
		return nil, err
	}
	cp := *e
	cp.settings = s
	cp.decay = model
	return &cp, nil
}

func (e *Engine) noiseParams() noise.Params     { return e.settings.Noise }
func (e *Engine) composeParams() compose.Params { return e.settings.Compose }
