package persona

import (
	"github.com/sipeed/mimiclaw/pkg/signature"
)

// verbosityScale is the response length, in tokens, treated as fully
// verbose when inferring the verbosity axis.
const verbosityScale = 360.0

// AxesFromSignature maps signature pattern weights onto profile axis
// targets. The mapping is a fixed heuristic: each axis is driven by the
// categories that most directly express it.
func AxesFromSignature(sig *signature.BehaviorSignature) map[Axis]float64 {
	w := func(cat signature.PatternCategory) float64 {
		return sig.Weights[cat]
	}

	verbosity := sig.AverageTokens() / verbosityScale
	if verbosity > 1 {
		verbosity = 1
	}

	return map[Axis]float64{
		AxisFormality:    clamp01(0.5 + (w(signature.CategoryFormalMarker)-w(signature.CategoryCasualMarker))*0.8),
		AxisHedging:      w(signature.CategoryHedging),
		AxisVerbosity:    verbosity,
		AxisWarmth:       clamp01(0.5 + (w(signature.CategoryTonePositive)-w(signature.CategoryToneNegative))*0.8),
		AxisDirectness:   clamp01(1 - w(signature.CategoryHedging)*0.8 - w(signature.CategoryFormalMarker)*0.2),
		AxisEnthusiasm:   clamp01(w(signature.CategoryEmphasis)*0.6 + w(signature.CategoryTonePositive)*0.4),
		AxisTechnicality: clamp01(w(signature.CategoryStructureCode)*0.8 + w(signature.CategoryStructureList)*0.4 + w(signature.CategoryReasoning)*0.3),
		AxisHumor:        w(signature.CategoryHumorMarker),
	}
}

// FromSignature builds a cold-start profile whose axes are inferred
// directly from an observed signature.
func FromSignature(id, name string, sig *signature.BehaviorSignature) *Profile {
	p := NewProfile(id, name)
	for a, v := range AxesFromSignature(sig) {
		p.Axes[a] = v
	}
	return p
}

// CorrectionToward produces the delta that moves a profile toward the
// axis targets implied by sig, scaled by rate. Adjustments come out in
// canonical axis order with confidence 1; the rate already encodes how
// strongly one observation round should pull.
func CorrectionToward(p *Profile, sig *signature.BehaviorSignature, rate float64, provenance string) PersonalityDelta {
	targets := AxesFromSignature(sig)
	adjustments := make([]Adjustment, 0, len(Axes()))
	for _, a := range Axes() {
		adjustments = append(adjustments, Adjustment{
			Axis:      a,
			Magnitude: (targets[a] - p.Axes[a]) * rate,
		})
	}
	return PersonalityDelta{
		Adjustments: adjustments,
		Confidence:  1,
		Provenance:  provenance,
	}
}

// DeltaBetween compares the signature implied by a generated text with
// the persona's target signature and produces the self-monitor delta:
// the per-axis difference, scaled by rate, weighted by how established
// the target is. A well-matched generation yields a near-zero delta,
// which is still emitted.
func DeltaBetween(implied, target *signature.BehaviorSignature, rate float64) PersonalityDelta {
	impliedAxes := AxesFromSignature(implied)
	targetAxes := AxesFromSignature(target)

	adjustments := make([]Adjustment, 0, len(Axes()))
	for _, a := range Axes() {
		adjustments = append(adjustments, Adjustment{
			Axis:      a,
			Magnitude: (targetAxes[a] - impliedAxes[a]) * rate,
		})
	}
	return PersonalityDelta{
		Adjustments: adjustments,
		Confidence:  sampleConfidence(target.SampleCount),
		Provenance:  ProvenanceSelfMonitor,
	}
}

// sampleConfidence saturates toward 1 as a signature accumulates
// samples; an unobserved target contributes nothing.
func sampleConfidence(samples int) float64 {
	if samples <= 0 {
		return 0
	}
	return float64(samples) / float64(samples+2)
}
