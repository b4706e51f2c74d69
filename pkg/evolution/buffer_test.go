package evolution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferQualities(tr *Tracker) []float64 {
	var out []float64
	for _, e := range tr.Exemplars() {
		out = append(out, e.Quality)
	}
	return out
}

func TestAddExemplarBelowCapacity(t *testing.T) {
	tr := New(Config{BufferCapacity: 3})

	assert.True(t, tr.AddExemplar(Exemplar{Text: "a", Quality: 0.5}))
	assert.True(t, tr.AddExemplar(Exemplar{Text: "b", Quality: 0.9}))
	assert.Equal(t, 2, tr.BufferLen())
	assert.Equal(t, []float64{0.9, 0.5}, bufferQualities(tr))
}

func TestAddExemplarEvictsLowestQuality(t *testing.T) {
	tr := New(Config{BufferCapacity: 3})
	tr.AddExemplar(Exemplar{Text: "mid", Quality: 0.5})
	tr.AddExemplar(Exemplar{Text: "best", Quality: 0.9})
	tr.AddExemplar(Exemplar{Text: "worst", Quality: 0.1})
	require.Equal(t, 3, tr.BufferLen())

	assert.True(t, tr.AddExemplar(Exemplar{Text: "better", Quality: 0.7}))
	assert.Equal(t, 3, tr.BufferLen())
	assert.Equal(t, []float64{0.9, 0.7, 0.5}, bufferQualities(tr))
}

func TestAddExemplarRejectsWorseThanWorst(t *testing.T) {
	tr := New(Config{BufferCapacity: 2})
	tr.AddExemplar(Exemplar{Text: "a", Quality: 0.6})
	tr.AddExemplar(Exemplar{Text: "b", Quality: 0.4})

	assert.False(t, tr.AddExemplar(Exemplar{Text: "c", Quality: 0.3}))
	assert.False(t, tr.AddExemplar(Exemplar{Text: "d", Quality: 0.4}))
	assert.Equal(t, []float64{0.6, 0.4}, bufferQualities(tr))
}

func TestExemplarsEmptyBuffer(t *testing.T) {
	tr := New(DefaultConfig())

	assert.Empty(t, tr.Exemplars())
	assert.Zero(t, tr.BufferLen())
}

func TestExemplarsKeepFields(t *testing.T) {
	tr := New(DefaultConfig())
	tr.AddExemplar(Exemplar{Text: "observed reply", Quality: 0.8, Source: "anthropic"})

	got := tr.Exemplars()
	require.Len(t, got, 1)
	assert.Equal(t, "observed reply", got[0].Text)
	assert.Equal(t, "anthropic", got[0].Source)
}
