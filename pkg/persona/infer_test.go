package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipeed/mimiclaw/pkg/signature"
)

func hedgedSignature(t *testing.T) *signature.BehaviorSignature {
	t.Helper()
	return signature.BuildSignature("p1",
		"Perhaps this might work. I think it seems plausible, maybe.",
		"It could be fine, possibly. I believe it seems likely.",
	)
}

func TestAxesFromSignatureHedging(t *testing.T) {
	sig := hedgedSignature(t)
	axes := AxesFromSignature(sig)

	assert.Greater(t, axes[AxisHedging], 0.7)
	assert.Less(t, axes[AxisDirectness], 0.5)
}

func TestAxesFromSignatureAllInRange(t *testing.T) {
	sig := signature.BuildSignature("p1",
		"Great!!! Absolutely wonderful!!! I REALLY love this! Thanks so much!!!",
	)

	for axis, v := range AxesFromSignature(sig) {
		assert.GreaterOrEqual(t, v, 0.0, "axis %s", axis)
		assert.LessOrEqual(t, v, 1.0, "axis %s", axis)
	}
}

func TestFromSignatureColdStart(t *testing.T) {
	sig := hedgedSignature(t)
	p := FromSignature("observed-1", "observed", sig)

	require.NoError(t, p.Validate())
	assert.Greater(t, p.Get(AxisHedging), 0.7)
}

func TestCorrectionTowardMovesByRate(t *testing.T) {
	p := NewProfile("p1", "test")
	p.Axes[AxisHedging] = 0.2

	sig := hedgedSignature(t)
	target := AxesFromSignature(sig)[AxisHedging]

	delta := CorrectionToward(p, sig, 0.5, ProvenanceObservation)
	require.Len(t, delta.Adjustments, len(Axes()))
	assert.Equal(t, ProvenanceObservation, delta.Provenance)
	assert.Equal(t, 1.0, delta.Confidence)

	p.ApplyCorrection(delta)
	want := 0.2 + (target-0.2)*0.5
	assert.InDelta(t, want, p.Get(AxisHedging), 1e-9)
}

func TestCorrectionAdjustmentsCanonicalOrder(t *testing.T) {
	p := NewProfile("p1", "test")
	delta := CorrectionToward(p, hedgedSignature(t), 0.5, ProvenanceObservation)

	for i, axis := range Axes() {
		assert.Equal(t, axis, delta.Adjustments[i].Axis)
	}
}

func TestDeltaBetweenIdenticalIsNearZero(t *testing.T) {
	sig := hedgedSignature(t)

	delta := DeltaBetween(sig, sig, 0.2)

	require.Len(t, delta.Adjustments, len(Axes()))
	assert.True(t, delta.IsZero())
	assert.Equal(t, ProvenanceSelfMonitor, delta.Provenance)
}

func TestDeltaBetweenPullsTowardTarget(t *testing.T) {
	target := hedgedSignature(t)
	implied := signature.BuildSignature("p1", "Run the build. Ship it. Done.")

	delta := DeltaBetween(implied, target, 0.2)

	var hedgeAdj *Adjustment
	for i := range delta.Adjustments {
		if delta.Adjustments[i].Axis == AxisHedging {
			hedgeAdj = &delta.Adjustments[i]
		}
	}
	require.NotNil(t, hedgeAdj)
	assert.Greater(t, hedgeAdj.Magnitude, 0.0)
	assert.Greater(t, delta.Confidence, 0.0)
}

func TestDeltaBetweenUnobservedTargetHasNoConfidence(t *testing.T) {
	implied := signature.BuildSignature("p1", "Some text here.")
	target := signature.Zero("p1")

	delta := DeltaBetween(implied, target, 0.2)
	assert.Zero(t, delta.Confidence)
}
