package noise

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/chronoscope/internal/epoch"
)

func testLayer(key string, weight float64, seed uint64) Layer {
	for _, e := range epoch.Builtin() {
		if e.Key == key {
			return Layer{Epoch: e, Weight: weight, Seed: seed}
		}
	}
	return Layer{Epoch: epoch.Epoch{Key: key, Intensity: 1}, Weight: weight, Seed: seed}
}

func TestRasterDeterministic(t *testing.T) {
	p := DefaultParams()
	l := testLayer("interwar", 0.4, 42)

	a, err := Raster(l, 40, 30, p)
	require.NoError(t, err)
	b, err := Raster(l, 40, 30, p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 40*30*Channels)

	l.Seed = 43
	c, err := Raster(l, 40, 30, p)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestRasterRange(t *testing.T) {
	p := DefaultParams()
	for _, e := range epoch.Builtin() {
		pix, err := Raster(Layer{Epoch: e, Weight: e.Intensity, Seed: 7}, 17, 11, p)
		require.NoError(t, err, e.Key)
		for _, v := range pix {
			if v < -1 || v > 1 || math.IsNaN(v) {
				t.Fatalf("%s: value %v out of [-1,1]", e.Key, v)
			}
		}
	}
}

func TestRasterZeroWeightNeutralIsFlat(t *testing.T) {
	l := Layer{Epoch: epoch.Epoch{Key: "flat", Intensity: 0}, Weight: 0, Seed: 1}
	pix, err := Raster(l, 8, 8, DefaultParams())
	require.NoError(t, err)
	for _, v := range pix {
		assert.Equal(t, 0.0, v)
	}
}

func TestRasterMonochromeHasNoChroma(t *testing.T) {
	l := Layer{
		Epoch:  epoch.Epoch{Key: "mono", Intensity: 1, Tags: []string{"monochrome"}},
		Weight: 1,
		Seed:   5,
	}
	pix, err := Raster(l, 12, 12, DefaultParams())
	require.NoError(t, err)
	for i := 0; i < len(pix); i += Channels {
		assert.InDelta(t, pix[i], pix[i+1], 1e-12)
		assert.InDelta(t, pix[i], pix[i+2], 1e-12)
	}
}

func TestRasterSinglePixel(t *testing.T) {
	pix, err := Raster(testLayer("ancient_times", 0.2, 3), 1, 1, DefaultParams())
	require.NoError(t, err)
	assert.Len(t, pix, Channels)
}

func TestInvalidShape(t *testing.T) {
	p := DefaultParams()
	l := testLayer("present", 1, 1)

	for _, dims := range [][2]int{{0, 10}, {10, 0}, {-1, 5}} {
		_, err := Raster(l, dims[0], dims[1], p)
		assert.ErrorIs(t, err, ErrInvalidShape, "%v", dims)
	}
	for _, n := range []int{0, -5} {
		_, err := Waveform(l, n, p)
		assert.ErrorIs(t, err, ErrInvalidShape, "%d", n)
	}
	_, err := AmbientRaster(1, 0, 1, p)
	assert.ErrorIs(t, err, ErrInvalidShape)
	_, err = AmbientWaveform(1, 0, p)
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestWaveformDeterministic(t *testing.T) {
	p := DefaultParams()
	l := testLayer("belle_epoque", 0.3, 99)

	a, err := Waveform(l, 2048, p)
	require.NoError(t, err)
	b, err := Waveform(l, 2048, p)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other := testLayer("present", 0.3, 99)
	c, err := Waveform(other, 2048, p)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestWaveformZeroWeightIsHissOnly(t *testing.T) {
	w, err := Waveform(testLayer("present", 0, 11), 4096, DefaultParams())
	require.NoError(t, err)
	for _, v := range w {
		if math.Abs(v) > tapeHiss {
			t.Fatalf("sample %v exceeds hiss floor", v)
		}
	}
}

func TestWaveformWeightScales(t *testing.T) {
	p := DefaultParams()
	peak := func(weight float64) float64 {
		w, err := Waveform(testLayer("previous_generation", weight, 8), 4096, p)
		require.NoError(t, err)
		var m float64
		for _, v := range w {
			m = max(m, math.Abs(v))
		}
		return m
	}
	assert.Greater(t, peak(0.9), peak(0.1))
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	bad := []func(*Params){
		func(p *Params) { p.Octaves = 0 },
		func(p *Params) { p.Persistence = 0 },
		func(p *Params) { p.Lacunarity = 0.5 },
		func(p *Params) { p.BaseCell = 0 },
		func(p *Params) { p.Partials = 0 },
		func(p *Params) { p.SampleRate = 100 },
	}
	for i, mut := range bad {
		p := DefaultParams()
		mut(&p)
		assert.Error(t, p.Validate(), "case %d", i)
	}
}

func TestDeriveSeed(t *testing.T) {
	assert.Equal(t, DeriveSeed(42, "interwar"), DeriveSeed(42, "interwar"))
	assert.NotEqual(t, DeriveSeed(42, "interwar"), DeriveSeed(42, "present"))
	assert.NotEqual(t, DeriveSeed(42, "interwar"), DeriveSeed(43, "interwar"))
}

func TestAmbientDeterministic(t *testing.T) {
	p := DefaultParams()
	a, err := AmbientWaveform(5, 512, p)
	require.NoError(t, err)
	b, err := AmbientWaveform(5, 512, p)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var energy float64
	for _, v := range a {
		energy += v * v
	}
	assert.Greater(t, energy, 0.0)

	r, err := AmbientRaster(5, 9, 9, p)
	require.NoError(t, err)
	assert.Len(t, r, 9*9*Channels)
}

func TestPaletteFor(t *testing.T) {
	pal, chroma := paletteFor(epoch.Epoch{Tags: []string{"golden", "bells"}})
	assert.Equal(t, palettes["golden"], pal)
	assert.Equal(t, defaultChroma, chroma)

	pal, chroma = paletteFor(epoch.Epoch{})
	assert.Equal(t, tint{1, 1, 1}, pal)
	assert.Equal(t, defaultChroma, chroma)
}

func TestTimbreFor(t *testing.T) {
	pool, level, hush := timbreFor(epoch.Epoch{Tags: []string{"wind", "silence"}})
	assert.Equal(t, defaultTimbre, pool)
	assert.InDelta(t, baseNoiseLevel+0.35, level, 1e-12)
	assert.True(t, hush)

	pool, _, hush = timbreFor(epoch.Epoch{Tags: []string{"bells"}})
	assert.Equal(t, timbres["bells"], pool)
	assert.False(t, hush)
}
