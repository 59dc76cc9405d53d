package noise

import "github.com/lazypower/chronoscope/internal/epoch"

// tint is an RGB multiplier applied to the luminance field.
type tint [Channels]float64

var palettes = map[string]tint{
	"vivid":         {1.00, 1.00, 1.00},
	"warm":          {1.05, 0.98, 0.88},
	"golden":        {1.10, 0.95, 0.70},
	"monochrome":    {1.00, 1.00, 1.00},
	"sepia":         {1.07, 0.95, 0.78},
	"daguerreotype": {0.96, 0.95, 0.92},
	"ashen":         {0.90, 0.90, 0.93},
}

// chroma controls how much independent per-channel color wanders over the
// field. Tags not listed keep the default.
var chromaTags = map[string]float64{
	"vivid":      0.35,
	"monochrome": 0,
	"ashen":      0.03,
}

const defaultChroma = 0.12

// paletteFor averages the tints of every palette tag on e.
func paletteFor(e epoch.Epoch) (tint, float64) {
	var sum tint
	n := 0
	chroma, chromaSet := 0.0, 0
	for _, tag := range e.Tags {
		if t, ok := palettes[tag]; ok {
			for c := range sum {
				sum[c] += t[c]
			}
			n++
		}
		if c, ok := chromaTags[tag]; ok {
			chroma += c
			chromaSet++
		}
	}
	if n == 0 {
		sum = tint{1, 1, 1}
	} else {
		for c := range sum {
			sum[c] /= float64(n)
		}
	}
	if chromaSet == 0 {
		return sum, defaultChroma
	}
	return sum, chroma / float64(chromaSet)
}

// timbres lists candidate partial frequencies (Hz) per timbre tag.
var timbres = map[string][]float64{
	"traffic":    {82, 164},
	"electronic": {1760, 2637},
	"voices":     {180, 240, 320},
	"engines":    {55, 110},
	"ring":       {440, 480},
	"radio":      {523, 659, 784},
	"accordion":  {349, 440, 523},
	"bells":      {392, 1082, 1568},
	"hooves":     {120, 240},
	"tram":       {600, 900},
	"jazz":       {146, 220, 277},
	"organ":      {262, 330, 392},
	"hammer":     {1000, 1500},
}

var defaultTimbre = []float64{110, 220, 330}

// noisy tags raise the level of the filtered noise band.
var noisyTags = map[string]float64{
	"hiss":    0.3,
	"wind":    0.35,
	"water":   0.25,
	"traffic": 0.15,
}

const baseNoiseLevel = 0.15

// timbreFor collects the frequency pool and noise-band level for e. The pool
// preserves tag order so draws are reproducible.
func timbreFor(e epoch.Epoch) (pool []float64, noiseLevel float64, hush bool) {
	noiseLevel = baseNoiseLevel
	for _, tag := range e.Tags {
		pool = append(pool, timbres[tag]...)
		noiseLevel += noisyTags[tag]
		if tag == "silence" {
			hush = true
		}
	}
	if len(pool) == 0 {
		pool = defaultTimbre
	}
	return pool, noiseLevel, hush
}
