// Package epoch models the historical layers a chronoscope can tune into and
// the process-wide registry that holds them.
package epoch

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

var (
	// ErrDuplicateKey is returned when registering a key that already exists.
	ErrDuplicateKey = errors.New("duplicate epoch key")

	// ErrNotFound is returned when looking up a key that was never registered.
	ErrNotFound = errors.New("epoch not found")

	// ErrInvalidEpoch is returned for epochs whose fields are out of range.
	ErrInvalidEpoch = errors.New("invalid epoch")

	// ErrSealed is returned when registering into a sealed registry.
	ErrSealed = errors.New("registry sealed")
)

// Visual holds the image treatment an epoch applies to its raster layer.
type Visual struct {
	Sepia      float64 `json:"sepia" yaml:"sepia"`           // 0-1
	Blur       float64 `json:"blur" yaml:"blur"`             // radius in pixels
	Grain      float64 `json:"grain" yaml:"grain"`           // 0-1
	Vignette   float64 `json:"vignette" yaml:"vignette"`     // 0-1
	Saturation float64 `json:"saturation" yaml:"saturation"` // 0-2, 1 = unchanged
	Contrast   float64 `json:"contrast" yaml:"contrast"`     // 0-2, 1 = unchanged
	Fade       float64 `json:"fade" yaml:"fade"`             // 0-1
}

// Epoch is one temporal layer. Values are immutable once registered.
type Epoch struct {
	Key         string   `json:"key" yaml:"key"`
	Label       string   `json:"label" yaml:"label"`
	Period      string   `json:"period,omitempty" yaml:"period"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Distance    float64  `json:"distance" yaml:"distance"`   // years before present
	Intensity   float64  `json:"intensity" yaml:"intensity"` // 0-1
	Tags        []string `json:"tags,omitempty" yaml:"tags"`
	Visual      Visual   `json:"visual" yaml:"visual"`
	Soundscape  []string `json:"soundscape,omitempty" yaml:"soundscape"`
	AudioPrompt string   `json:"audio_prompt,omitempty" yaml:"audio_prompt"`
}

// depthBounds are the upper distance bounds (exclusive) for depths 0..5.
// Anything beyond the last bound is depth 6.
var depthBounds = [...]float64{10, 40, 70, 110, 150, 220}

// MaxDepth is the deepest layer an epoch can sit in.
const MaxDepth = len(depthBounds)

// Depth buckets the epoch's distance into the 0-6 layer scale used for
// audio filtering and prompt wording.
func (e Epoch) Depth() int {
	for i, b := range depthBounds {
		if e.Distance < b {
			return i
		}
	}
	return MaxDepth
}

// HasTag reports whether the epoch carries the given palette/timbre tag.
func (e Epoch) HasTag(tag string) bool {
	return slices.Contains(e.Tags, tag)
}

// Validate checks field ranges. The key must be a non-empty token without whitespace.
func (e Epoch) Validate() error {
	if e.Key == "" || strings.ContainsFunc(e.Key, isSpace) {
		return fmt.Errorf("%w: key %q", ErrInvalidEpoch, e.Key)
	}
	if math.IsNaN(e.Distance) || math.IsInf(e.Distance, 0) || e.Distance < 0 {
		return fmt.Errorf("%w: %s distance %v", ErrInvalidEpoch, e.Key, e.Distance)
	}
	if math.IsNaN(e.Intensity) || e.Intensity < 0 || e.Intensity > 1 {
		return fmt.Errorf("%w: %s intensity %v", ErrInvalidEpoch, e.Key, e.Intensity)
	}
	return nil
}

func (e Epoch) clone() Epoch {
	e.Tags = slices.Clone(e.Tags)
	e.Soundscape = slices.Clone(e.Soundscape)
	return e
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// Interpolate blends the visual treatment of two epochs. t is clamped to [0,1];
// 0 yields a's treatment and 1 yields b's.
func Interpolate(a, b Epoch, t float64) Visual {
	t = max(0, min(1, t))
	lerp := func(x, y float64) float64 { return x*(1-t) + y*t }
	return Visual{
		Sepia:      lerp(a.Visual.Sepia, b.Visual.Sepia),
		Blur:       lerp(a.Visual.Blur, b.Visual.Blur),
		Grain:      lerp(a.Visual.Grain, b.Visual.Grain),
		Vignette:   lerp(a.Visual.Vignette, b.Visual.Vignette),
		Saturation: lerp(a.Visual.Saturation, b.Visual.Saturation),
		Contrast:   lerp(a.Visual.Contrast, b.Visual.Contrast),
		Fade:       lerp(a.Visual.Fade, b.Visual.Fade),
	}
}

// OrNeutral returns v, or an untouched treatment when v is the zero value.
func (v Visual) OrNeutral() Visual {
	if v == (Visual{}) {
		return Visual{Saturation: 1, Contrast: 1}
	}
	return v
}
