package persona

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProfileNeutral(t *testing.T) {
	p := NewProfile("p1", "test")

	require.NoError(t, p.Validate())
	for _, a := range Axes() {
		assert.Equal(t, 0.5, p.Get(a))
	}
}

func TestApplyCorrectionClamps(t *testing.T) {
	p := NewProfile("p1", "test")

	p.ApplyCorrection(PersonalityDelta{
		Adjustments: []Adjustment{
			{Axis: AxisHedging, Magnitude: 5},
			{Axis: AxisWarmth, Magnitude: -5},
		},
		Confidence: 1,
		Provenance: ProvenanceManual,
	})

	assert.Equal(t, 1.0, p.Get(AxisHedging))
	assert.Equal(t, 0.0, p.Get(AxisWarmth))
	require.NoError(t, p.Validate())
}

func TestApplyCorrectionArbitrarySequenceStaysInRange(t *testing.T) {
	p := NewProfile("p1", "test")

	magnitudes := []float64{0.9, -1.7, 0.33, 2.5, -0.01, -9, 4}
	for i, m := range magnitudes {
		axis := Axes()[i%len(Axes())]
		p.ApplyCorrection(PersonalityDelta{
			Adjustments: []Adjustment{{Axis: axis, Magnitude: m}},
			Confidence:  1,
			Provenance:  ProvenanceManual,
		})
	}

	for _, a := range Axes() {
		v := p.Get(a)
		assert.GreaterOrEqual(t, v, 0.0, "axis %s", a)
		assert.LessOrEqual(t, v, 1.0, "axis %s", a)
	}
}

func TestApplyCorrectionOrderMatters(t *testing.T) {
	p := NewProfile("p1", "test")
	p.Axes[AxisHedging] = 0.9

	// +0.5 clamps at 1.0 before -0.2 lands; a merged +0.3 would clamp
	// to 1.0 instead.
	p.ApplyCorrection(PersonalityDelta{
		Adjustments: []Adjustment{
			{Axis: AxisHedging, Magnitude: 0.5},
			{Axis: AxisHedging, Magnitude: -0.2},
		},
		Confidence: 1,
		Provenance: ProvenanceManual,
	})

	assert.InDelta(t, 0.8, p.Get(AxisHedging), 1e-12)
}

func TestApplyCorrectionConfidenceScales(t *testing.T) {
	p := NewProfile("p1", "test")

	p.ApplyCorrection(PersonalityDelta{
		Adjustments: []Adjustment{{Axis: AxisVerbosity, Magnitude: 0.4}},
		Confidence:  0.5,
		Provenance:  ProvenanceSelfMonitor,
	})

	assert.InDelta(t, 0.7, p.Get(AxisVerbosity), 1e-12)
}

func TestApplyCorrectionIgnoresUnknownAxis(t *testing.T) {
	p := NewProfile("p1", "test")

	p.ApplyCorrection(PersonalityDelta{
		Adjustments: []Adjustment{{Axis: Axis("charisma"), Magnitude: 0.4}},
		Confidence:  1,
	})

	require.NoError(t, p.Validate())
}

func TestDeltaIsZero(t *testing.T) {
	zero := PersonalityDelta{
		Adjustments: []Adjustment{{Axis: AxisHedging, Magnitude: 0}},
	}
	assert.True(t, zero.IsZero())

	small := PersonalityDelta{
		Adjustments: []Adjustment{{Axis: AxisHedging, Magnitude: 0.01}},
	}
	assert.False(t, small.IsZero())
	assert.InDelta(t, 0.01, small.MaxMagnitude(), 1e-12)
}

func TestValidateRejectsBadProfiles(t *testing.T) {
	missing := NewProfile("p1", "test")
	delete(missing.Axes, AxisHumor)
	assert.Error(t, missing.Validate())

	extra := NewProfile("p2", "test")
	extra.Axes[Axis("charisma")] = 0.5
	assert.Error(t, extra.Validate())

	outOfRange := NewProfile("p3", "test")
	outOfRange.Axes[AxisWarmth] = 1.2
	assert.Error(t, outOfRange.Validate())

	noID := NewProfile("", "test")
	assert.Error(t, noID.Validate())
}

func TestCloneIsIndependent(t *testing.T) {
	p := NewProfile("p1", "test")
	c := p.Clone()
	c.Axes[AxisHumor] = 0.9

	assert.Equal(t, 0.5, p.Get(AxisHumor))
	assert.Equal(t, 0.9, c.Get(AxisHumor))
}

func TestProfileFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.json")

	p := NewProfile("custom-1", "custom")
	p.Axes[AxisTechnicality] = 0.77
	require.NoError(t, SaveProfileFile(path, p))

	loaded, err := LoadProfileFile(path)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}

func TestLoadProfileFileRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, SaveProfileFile(path, &Profile{ID: "x", Name: "x", Axes: map[Axis]float64{"charisma": 2}}))

	_, err := LoadProfileFile(path)
	assert.Error(t, err)
}
