package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeDeterministic(t *testing.T) {
	text := "Perhaps this might work. I think it seems likely, but maybe not.\n- first\n- second"

	a := Analyze(text)
	b := Analyze(text)

	require.Equal(t, a.Tokens, b.Tokens)
	for _, cat := range Categories() {
		assert.Equal(t, a.Counts[cat], b.Counts[cat], "category %s", cat)
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t\n"} {
		pc := Analyze(text)
		assert.Zero(t, pc.Tokens)
		assert.Zero(t, pc.Total())
	}
}

func TestAnalyzeHedging(t *testing.T) {
	hedged := "Perhaps this might work, though maybe it seems unlikely. I think possibly yes."
	plain := "The answer is four. Add the numbers and report the sum."

	assert.Greater(t, Analyze(hedged).Counts[CategoryHedging], 0)
	assert.Zero(t, Analyze(plain).Counts[CategoryHedging])
}

func TestAnalyzeStructure(t *testing.T) {
	text := "Steps:\n1. install\n2. configure\n- verify\nUse `go run` inside:\n```\nmake all\n```"

	pc := Analyze(text)
	assert.Equal(t, 3, pc.Counts[CategoryStructureList])
	assert.Greater(t, pc.Counts[CategoryStructureCode], 0)
}

func TestAnalyzeToneAndReasoning(t *testing.T) {
	text := "Great question! This fails because the port is busy; therefore restart it. Thanks!"

	pc := Analyze(text)
	assert.Greater(t, pc.Counts[CategoryTonePositive], 0)
	assert.Greater(t, pc.Counts[CategoryReasoning], 0)
	assert.Greater(t, pc.Counts[CategoryEmphasis], 0)
}

func TestBuildSignatureSkipsBlankTexts(t *testing.T) {
	sig := BuildSignature("p1", "", "  ", "Perhaps it might help.")

	assert.Equal(t, 1, sig.SampleCount)
	assert.Equal(t, 1, sig.Version)
	assert.Greater(t, sig.Weights[CategoryHedging], 0.0)
}

func TestBuildSignatureMalformedCorpus(t *testing.T) {
	sig := BuildSignature("p1", "", "\t\n", "   ")

	require.NotNil(t, sig)
	assert.Equal(t, "p1", sig.PersonaID)
	assert.Zero(t, sig.SampleCount)
	for _, cat := range Categories() {
		assert.Zero(t, sig.Weights[cat], "category %s", cat)
	}
}

func TestBuildSignatureReproducible(t *testing.T) {
	corpus := []string{
		"Hello! Perhaps we could try a list:\n- one\n- two\nHope this helps.",
		"I think it seems fine. Thanks!",
	}

	a := BuildSignature("p1", corpus...)
	b := BuildSignature("p1", corpus...)

	assert.Equal(t, a, b)
}
