package compose

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticAmbient(data []float64) AmbientFunc {
	return func() ([]float64, error) { return data, nil }
}

func failAmbient() ([]float64, error) {
	return nil, errors.New("should not be called")
}

func TestCompositeEmpty(t *testing.T) {
	_, err := Composite(nil, failAmbient, DefaultParams())
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestCompositeSingleLayer(t *testing.T) {
	layers := []Layer{{Key: "a", Weight: 0.5, Data: []float64{0.1, -0.2, 0.05, 0}}}
	res, err := Composite(layers, failAmbient, DefaultParams())
	require.NoError(t, err)

	assert.False(t, res.Unresolved)
	assert.Zero(t, res.Dissolve)
	// Peak maps to -1 after normalization and soft clip.
	assert.InDelta(t, -1, res.Data[1], 1e-12)
	assert.InDelta(t, 0, res.Data[3], 1e-12)
	for _, v := range res.Data {
		assert.LessOrEqual(t, math.Abs(v), 1.0)
	}
}

func TestCompositeWeightSquared(t *testing.T) {
	// Each layer's data already carries its weight, so a is 0.8*0.8 vs b 0.2*0.2.
	a := Layer{Key: "a", Order: 0, Weight: 0.8, Data: []float64{0.8, 0}}
	b := Layer{Key: "b", Order: 1, Weight: 0.2, Data: []float64{0, 0.2}}
	res, err := Composite([]Layer{a, b}, failAmbient, Params{ClipDrive: 1e-9, DissolveThreshold: 10, AmbientLevel: 0.1})
	require.NoError(t, err)

	// A tiny drive makes the soft clip effectively linear.
	assert.InDelta(t, 1, res.Data[0], 1e-6)
	assert.InDelta(t, 0.04/0.64, res.Data[1], 1e-6)
}

func TestCompositeOrderIndependent(t *testing.T) {
	layers := []Layer{
		{Key: "present", Order: 0, Weight: 0.7, Data: []float64{0.3, 0.1, -0.7, 1e-17}},
		{Key: "interwar", Order: 3, Weight: 0.35, Data: []float64{0.1, 0.1, 0.2, 0.3}},
		{Key: "ancient", Order: 6, Weight: 0.035, Data: []float64{-1e-3, 0.7, 1e-16, 0.01}},
	}
	// Stays under the threshold so the ambient bed is never requested.
	require.LessOrEqual(t, totalWeight(layers), DefaultParams().DissolveThreshold)

	forward, err := Composite(layers, failAmbient, DefaultParams())
	require.NoError(t, err)
	assert.Zero(t, forward.Dissolve)

	reversed := []Layer{layers[2], layers[0], layers[1]}
	backward, err := Composite(reversed, failAmbient, DefaultParams())
	require.NoError(t, err)

	if diff := cmp.Diff(forward, backward); diff != "" {
		t.Errorf("composite depends on input order (-forward +backward):\n%s", diff)
	}
}

func TestCompositeOrderIndependentDissolving(t *testing.T) {
	layers := []Layer{
		{Key: "present", Order: 0, Weight: 0.98, Data: []float64{0.3, 0.1, -0.7, 1e-17}},
		{Key: "interwar", Order: 3, Weight: 0.35, Data: []float64{0.1, 0.1, 0.2, 0.3}},
		{Key: "ancient", Order: 6, Weight: 0.035, Data: []float64{-1e-3, 0.7, 1e-16, 0.01}},
	}
	require.Greater(t, totalWeight(layers), DefaultParams().DissolveThreshold)

	bed := []float64{0.05, -0.02, 0.01, 0.03}
	calls := 0
	ambient := func() ([]float64, error) {
		calls++
		return bed, nil
	}

	forward, err := Composite(layers, ambient, DefaultParams())
	require.NoError(t, err)
	assert.Greater(t, forward.Dissolve, 0.0)

	permutations := [][]Layer{
		{layers[2], layers[0], layers[1]},
		{layers[1], layers[2], layers[0]},
		{layers[2], layers[1], layers[0]},
	}
	for _, perm := range permutations {
		got, err := Composite(perm, staticAmbient(bed), DefaultParams())
		require.NoError(t, err)
		if diff := cmp.Diff(forward, got); diff != "" {
			t.Errorf("dissolving composite depends on input order (-forward +permuted):\n%s", diff)
		}
	}
	assert.Equal(t, 1, calls)
}

func totalWeight(layers []Layer) float64 {
	var total float64
	for _, l := range layers {
		total += l.Weight
	}
	return total
}

func TestSorted(t *testing.T) {
	in := []Layer{{Key: "c", Order: 2}, {Key: "b", Order: 0}, {Key: "a", Order: 0}}
	got := Sorted(in)
	keys := []string{got[0].Key, got[1].Key, got[2].Key}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
	assert.Equal(t, "c", in[0].Key, "input must not be reordered")
}

func TestCompositeAllZeroWeight(t *testing.T) {
	layers := []Layer{
		{Key: "a", Weight: 0, Data: []float64{0, 0, 0, 0}},
		{Key: "b", Order: 1, Weight: 0, Data: []float64{0.5, 0.5, 0.5, 0.5}},
	}
	bed := []float64{0.2, -0.4, 0.1, 0}
	res, err := Composite(layers, staticAmbient(bed), DefaultParams())
	require.NoError(t, err)

	assert.True(t, res.Unresolved)
	assert.Zero(t, res.TotalWeight)
	var energy float64
	for _, v := range res.Data {
		energy += v * v
		assert.LessOrEqual(t, math.Abs(v), DefaultParams().AmbientLevel+1e-12)
	}
	assert.Greater(t, energy, 0.0, "unresolved output must never be silent")
	// The caller's ambient buffer is left intact.
	assert.Equal(t, []float64{0.2, -0.4, 0.1, 0}, bed)
}

func TestCompositeDissolves(t *testing.T) {
	layers := []Layer{
		{Key: "a", Order: 0, Weight: 1, Data: []float64{1, 1, 1, 1}},
		{Key: "b", Order: 1, Weight: 1, Data: []float64{1, 1, 1, 1}},
	}
	bed := []float64{-1, -1, -1, -1}
	p := DefaultParams()
	res, err := Composite(layers, staticAmbient(bed), p)
	require.NoError(t, err)

	excess := 2 - p.DissolveThreshold
	want := excess / (excess + p.DissolveThreshold)
	assert.InDelta(t, want, res.Dissolve, 1e-12)
	assert.False(t, res.Unresolved)
	// Fully coherent layers pulled toward an inverted bed lose amplitude.
	assert.Less(t, res.Data[0], 1.0)
}

func TestCompositeShapeMismatch(t *testing.T) {
	layers := []Layer{
		{Key: "a", Weight: 1, Data: []float64{1, 2}},
		{Key: "b", Weight: 1, Data: []float64{1}},
	}
	_, err := Composite(layers, failAmbient, DefaultParams())
	assert.ErrorIs(t, err, ErrShapeMismatch)

	zero := []Layer{{Key: "a", Data: []float64{0, 0}}}
	_, err = Composite(zero, staticAmbient([]float64{1}), DefaultParams())
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestCompositeAmbientError(t *testing.T) {
	zero := []Layer{{Key: "a", Data: []float64{0, 0}}}
	_, err := Composite(zero, failAmbient, DefaultParams())
	assert.Error(t, err)
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())
	assert.Error(t, Params{ClipDrive: 0, DissolveThreshold: 1, AmbientLevel: 0.1}.Validate())
	assert.Error(t, Params{ClipDrive: 1, DissolveThreshold: 0, AmbientLevel: 0.1}.Validate())
	assert.Error(t, Params{ClipDrive: 1, DissolveThreshold: 1, AmbientLevel: 0}.Validate())
}

func TestSoftClip(t *testing.T) {
	assert.InDelta(t, 1, softClip(1, 1.5), 1e-12)
	assert.InDelta(t, -1, softClip(-1, 1.5), 1e-12)
	assert.Equal(t, 0.0, softClip(0, 1.5))
	// Saturating: mid values are lifted above linear.
	assert.Greater(t, softClip(0.5, 1.5), 0.5)
}

func TestUnit(t *testing.T) {
	got := Unit([]float64{-1, 0, 1, 0.5, 3})
	assert.Equal(t, []float64{0, 0.5, 1, 0.75, 1}, got)
}
