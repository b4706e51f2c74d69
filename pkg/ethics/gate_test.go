package ethics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateFixedOrder(t *testing.T) {
	tests := []struct {
		name       string
		self       float64
		other      float64
		breaksLoop bool
		allowed    bool
		reason     string
	}{
		{"harm blocks regardless of self gain", 1.0, -0.1, false, false, ReasonOtherHarmed},
		{"harm blocks even at self loss", -1.0, -1.0, false, false, ReasonOtherHarmed},
		{"parasitic blocks", 0.9, 0.05, false, false, ReasonParasitic},
		{"parasitic outranks loop break", 0.9, 0.0, true, false, ReasonParasitic},
		{"loop break blocks mutual gain", 0.5, 0.5, true, false, ReasonBreaksLoop},
		{"mutual gain allows", 0.5, 0.5, false, true, ""},
		{"both zero allows", 0.0, 0.0, false, true, ""},
		{"at parasitic boundary allows", 0.7, 0.1, false, true, ""},
		{"below parasitic self allows", 0.69, 0.0, false, true, ""},
		{"self sacrifice allows", -0.5, 0.3, false, true, ""},
		{"self loss without counterpart gain blocks", -0.5, 0.0, false, false, ReasonNoMutualGain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.self, tt.other, tt.breaksLoop)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestEvaluateNeverAllowsHarm(t *testing.T) {
	for _, self := range []float64{-1, -0.5, 0, 0.5, 0.7, 1} {
		for _, other := range []float64{-1, -0.5, -0.01} {
			d := Evaluate(self, other, false)
			assert.False(t, d.Allowed, "self=%v other=%v", self, other)
			assert.Equal(t, ReasonOtherHarmed, d.Reason)
		}
	}
}

func TestEvaluateAllowsNonNegativePairs(t *testing.T) {
	// Outside the parasitic corner, no non-negative pair is blocked.
	for _, self := range []float64{0, 0.25, 0.5, 0.69} {
		for _, other := range []float64{0, 0.1, 0.5, 1} {
			d := Evaluate(self, other, false)
			assert.True(t, d.Allowed, "self=%v other=%v", self, other)
		}
	}
}

func TestEvaluateIsPure(t *testing.T) {
	first := Evaluate(0.9, 0.05, false)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(0.9, 0.05, false))
	}
}

func TestCheckWrapsDenial(t *testing.T) {
	require.NoError(t, Check("respond", 0.4, 0.6, false))

	err := Check("export", 0.9, 0.0, false)
	require.Error(t, err)

	var blocked *BlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, "export", blocked.Action)
	assert.Equal(t, ReasonParasitic, blocked.Reason)
	assert.Contains(t, err.Error(), "export")
	assert.Contains(t, err.Error(), ReasonParasitic)
}
