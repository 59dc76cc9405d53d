package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lazypower/chronoscope/internal/artifact"
	"github.com/lazypower/chronoscope/internal/compose"
	"github.com/lazypower/chronoscope/internal/epoch"
	"github.com/lazypower/chronoscope/internal/noise"
)

// weightedLayer is a noise layer plus the epoch's registration order.
type weightedLayer struct {
	noise.Layer
	order int
}

// generated holds the raw buffers of one layer.
type generated struct {
	raster []float64
	wave   []float64
}

// Synthesize runs req through every stage and returns the emitted artifact.
// Cancelling ctx abandons the run between stages or layers.
func (e *Engine) Synthesize(ctx context.Context, req Request) (*artifact.Artifact, error) {
	return e.synthesize(ctx, req, time.Time{}, true)
}

// synthesize is the shared pipeline. Replay passes enforceLimits false so
// artifacts stored under earlier size limits still regenerate.
func (e *Engine) synthesize(ctx context.Context, req Request, createdAt time.Time, enforceLimits bool) (*artifact.Artifact, error) {
	stage := StageReceived
	log := e.log.With(zap.Strings("epochs", req.EpochKeys), zap.String("kind", string(req.Kind)))
	log.Debug("request received")

	fail := func(err error) (*artifact.Artifact, error) {
		log.Debug("request failed", zap.String("stage", string(stage)), zap.Error(err))
		return nil, &StageError{Stage: stage, Err: err}
	}
	step := func(next Stage) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stage = next
		return nil
	}

	if err := step(StageValidated); err != nil {
		return fail(err)
	}
	v, err := e.validate(req, enforceLimits)
	if err != nil {
		return fail(err)
	}
	log = log.With(zap.Uint64("seed", v.seed))

	if err := step(StageWeighted); err != nil {
		return fail(err)
	}
	layers := e.weigh(v)
	for _, l := range layers {
		log.Debug("layer weighted", zap.String("epoch", l.Epoch.Key), zap.Float64("weight", l.Weight))
	}

	if err := step(StageGenerated); err != nil {
		return fail(err)
	}
	bufs, err := e.generate(ctx, v, layers)
	if err != nil {
		return fail(err)
	}

	if err := step(StageComposited); err != nil {
		return fail(err)
	}
	meta := artifact.Metadata{
		Kind:          v.kind,
		Seed:          v.seed,
		Width:         v.width,
		Height:        v.height,
		Samples:       v.samples,
		Settings:      e.settings,
		EngineVersion: Version,
	}
	var raster *artifact.Raster
	var wave *artifact.Waveform

	if v.kind.WantsImage() {
		res, err := compose.Composite(composeLayers(layers, bufs, true), func() ([]float64, error) {
			return noise.AmbientRaster(v.seed, v.width, v.height, e.noiseParams())
		}, e.composeParams())
		if err != nil {
			return fail(err)
		}
		raster = &artifact.Raster{Width: v.width, Height: v.height, Pix: compose.Unit(res.Data)}
		meta.Unresolved = meta.Unresolved || res.Unresolved
		meta.Dissolve = max(meta.Dissolve, res.Dissolve)
	}
	if v.kind.WantsAudio() {
		res, err := compose.Composite(composeLayers(layers, bufs, false), func() ([]float64, error) {
			return noise.AmbientWaveform(v.seed, v.samples, e.noiseParams())
		}, e.composeParams())
		if err != nil {
			return fail(err)
		}
		wave = &artifact.Waveform{SampleRate: e.noiseParams().SampleRate, Samples: res.Data}
		meta.Unresolved = meta.Unresolved || res.Unresolved
		meta.Dissolve = max(meta.Dissolve, res.Dissolve)
	}

	if err := step(StageEmitted); err != nil {
		return fail(err)
	}
	for _, l := range sortedLayers(layers) {
		meta.Layers = append(meta.Layers, artifact.LayerMeta{
			Key:       l.Epoch.Key,
			Label:     l.Epoch.Label,
			Distance:  l.Epoch.Distance,
			Intensity: l.Epoch.Intensity,
			Weight:    l.Weight,
			Seed:      l.Seed,
		})
		if v.kind.WantsAudio() {
			meta.Soundscapes = append(meta.Soundscapes, epoch.SoundscapeFor(l.Epoch))
		}
	}
	if createdAt.IsZero() {
		createdAt = e.now().UTC().Truncate(time.Millisecond)
	}
	meta.CreatedAt = createdAt

	a, err := artifact.Emit(meta, raster, wave)
	if err != nil {
		return fail(err)
	}

	log.Info("echo emitted",
		zap.String("id", a.Meta.ID),
		zap.Bool("unresolved", a.Meta.Unresolved),
		zap.Float64("dissolve", a.Meta.Dissolve),
	)
	return a, nil
}

// weigh pairs each validated epoch with its decay weight and layer seed.
func (e *Engine) weigh(v validated) []weightedLayer {
	layers := make([]weightedLayer, len(v.epochs))
	for i, ep := range v.epochs {
		layers[i] = weightedLayer{
			Layer: noise.Layer{
				Epoch:  ep,
				Weight: e.decay.Weight(ep.Distance, ep.Intensity),
				Seed:   noise.DeriveSeed(v.seed, ep.Key),
			},
			order: v.order[i],
		}
	}
	return layers
}

// generate builds every layer's buffers in parallel. Results land at the
// layer's own index, so scheduling cannot reorder them.
func (e *Engine) generate(ctx context.Context, v validated, layers []weightedLayer) ([]generated, error) {
	out := make([]generated, len(layers))
	g, gctx := errgroup.WithContext(ctx)
	if e.workers > 0 {
		g.SetLimit(e.workers)
	}
	p := e.noiseParams()

	for i := range layers {
		l := layers[i].Layer
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if v.kind.WantsImage() {
				pix, err := noise.Raster(l, v.width, v.height, p)
				if err != nil {
					return fmt.Errorf("raster %s: %w", l.Epoch.Key, err)
				}
				out[i].raster = pix
			}
			if v.kind.WantsAudio() {
				samples, err := noise.Waveform(l, v.samples, p)
				if err != nil {
					return fmt.Errorf("waveform %s: %w", l.Epoch.Key, err)
				}
				out[i].wave = samples
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func composeLayers(layers []weightedLayer, bufs []generated, image bool) []compose.Layer {
	out := make([]compose.Layer, len(layers))
	for i, l := range layers {
		data := bufs[i].wave
		if image {
			data = bufs[i].raster
		}
		out[i] = compose.Layer{Key: l.Epoch.Key, Order: l.order, Weight: l.Weight, Data: data}
	}
	return out
}

// sortedLayers orders layers the same way the compositor blends them.
func sortedLayers(layers []weightedLayer) []weightedLayer {
	keyed := make([]compose.Layer, len(layers))
	byKey := make(map[string]weightedLayer, len(layers))
	for i, l := range layers {
		keyed[i] = compose.Layer{Key: l.Epoch.Key, Order: l.order}
		byKey[l.Epoch.Key] = l
	}
	out := make([]weightedLayer, 0, len(layers))
	for _, k := range compose.Sorted(keyed) {
		out = append(out, byKey[k.Key])
	}
	return out
}
