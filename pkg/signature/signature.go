// Package signature captures the observable writing habits of a model
// as a weighted pattern map. A signature is built from raw response
// texts and refined incrementally as new observations arrive; compiled
// read-optimized copies live in the signature cache.
package signature

// PatternCategory identifies one class of surface-level writing pattern.
type PatternCategory string

const (
	CategoryOpening       PatternCategory = "opening_style"
	CategoryClosing       PatternCategory = "closing_style"
	CategoryHedging       PatternCategory = "hedging"
	CategoryFormalMarker  PatternCategory = "formal_marker"
	CategoryCasualMarker  PatternCategory = "casual_marker"
	CategoryHumorMarker   PatternCategory = "humor_marker"
	CategoryTonePositive  PatternCategory = "tone_positive"
	CategoryToneNegative  PatternCategory = "tone_negative"
	CategoryReasoning     PatternCategory = "reasoning"
	CategoryStructureList PatternCategory = "structure_list"
	CategoryStructureCode PatternCategory = "structure_code"
	CategoryEmphasis      PatternCategory = "emphasis"
)

// Categories returns every pattern category in declaration order.
// Iteration over signature weights must go through this list so that
// derived values never depend on map ordering.
func Categories() []PatternCategory {
	return []PatternCategory{
		CategoryOpening,
		CategoryClosing,
		CategoryHedging,
		CategoryFormalMarker,
		CategoryCasualMarker,
		CategoryHumorMarker,
		CategoryTonePositive,
		CategoryToneNegative,
		CategoryReasoning,
		CategoryStructureList,
		CategoryStructureCode,
		CategoryEmphasis,
	}
}

// PatternCounts holds the raw hit counts for one analyzed text.
type PatternCounts struct {
	Counts map[PatternCategory]int `json:"counts"`
	Tokens int                     `json:"tokens"`
}

// Total returns the sum of all category hits.
func (pc PatternCounts) Total() int {
	total := 0
	for _, cat := range Categories() {
		total += pc.Counts[cat]
	}
	return total
}

// BehaviorSignature is the accumulated pattern profile of one persona.
// Weights are in [0,1] per category. For signatures built from raw
// observations, Counts and Tokens hold the exact cumulative tallies and
// Weights is derived from them; blended signatures carry weights only.
type BehaviorSignature struct {
	PersonaID   string                      `json:"persona_id"`
	Version     int                         `json:"version"`
	Weights     map[PatternCategory]float64 `json:"weights"`
	Counts      map[PatternCategory]int     `json:"counts,omitempty"`
	Tokens      int                         `json:"tokens"`
	SampleCount int                         `json:"sample_count"`
}

// Zero returns the empty signature for a persona: all weights zero,
// no samples. Used both for fresh personas and as the recovery value
// when analysis yields nothing usable.
func Zero(personaID string) *BehaviorSignature {
	weights := make(map[PatternCategory]float64, len(Categories()))
	counts := make(map[PatternCategory]int, len(Categories()))
	for _, cat := range Categories() {
		weights[cat] = 0
		counts[cat] = 0
	}
	return &BehaviorSignature{
		PersonaID:   personaID,
		Version:     1,
		Weights:     weights,
		Counts:      counts,
		SampleCount: 0,
	}
}

// Clone returns a deep copy.
func (s *BehaviorSignature) Clone() *BehaviorSignature {
	out := *s
	out.Weights = make(map[PatternCategory]float64, len(s.Weights))
	for k, v := range s.Weights {
		out.Weights[k] = v
	}
	if s.Counts != nil {
		out.Counts = make(map[PatternCategory]int, len(s.Counts))
		for k, v := range s.Counts {
			out.Counts[k] = v
		}
	}
	return &out
}

// Merge folds one observation's counts into the signature and returns
// the result as a new signature with an incremented version. The
// receiver is not modified. Signatures without exact counts (blends)
// fall back to a running-mean update on the weights.
func (s *BehaviorSignature) Merge(pc PatternCounts) *BehaviorSignature {
	out := s.Clone()
	out.Version = s.Version + 1
	out.SampleCount = s.SampleCount + 1

	if out.Counts != nil {
		for _, cat := range Categories() {
			out.Counts[cat] += pc.Counts[cat]
		}
		out.Tokens += pc.Tokens
		out.Weights = weightsFromCounts(out.Counts, out.Tokens)
		return out
	}

	obs := weightsFromCounts(pc.Counts, pc.Tokens)
	alpha := 1.0 / float64(out.SampleCount)
	for _, cat := range Categories() {
		out.Weights[cat] = s.Weights[cat]*(1-alpha) + obs[cat]*alpha
	}
	out.Tokens += pc.Tokens
	return out
}

// AverageTokens returns the mean response length across samples.
func (s *BehaviorSignature) AverageTokens() float64 {
	if s.SampleCount == 0 {
		return 0
	}
	return float64(s.Tokens) / float64(s.SampleCount)
}

// Similarity measures how close two signatures are, as 1 minus the
// normalized L1 distance over the category weight vectors. Identical
// signatures score 1, maximally different ones 0.
func Similarity(a, b *BehaviorSignature) float64 {
	if a == nil || b == nil {
		return 0
	}
	cats := Categories()
	dist := 0.0
	for _, cat := range cats {
		d := a.Weights[cat] - b.Weights[cat]
		if d < 0 {
			d = -d
		}
		dist += d
	}
	return 1 - dist/float64(len(cats))
}

// Blend combines two signatures into a derived one. weight is the share
// of a; 1-weight the share of b. The result carries no exact counts.
func Blend(personaID string, a, b *BehaviorSignature, weight float64) *BehaviorSignature {
	if weight < 0 {
		weight = 0
	}
	if weight > 1 {
		weight = 1
	}
	out := &BehaviorSignature{
		PersonaID:   personaID,
		Version:     1,
		Weights:     make(map[PatternCategory]float64, len(Categories())),
		SampleCount: a.SampleCount + b.SampleCount,
		Tokens:      int(float64(a.Tokens)*weight + float64(b.Tokens)*(1-weight)),
	}
	for _, cat := range Categories() {
		out.Weights[cat] = a.Weights[cat]*weight + b.Weights[cat]*(1-weight)
	}
	return out
}

// densityGain saturates a category at roughly one hit per eight tokens,
// which keeps habitual patterns near 1.0 without letting a single long
// text peg every category.
const densityGain = 8.0

// weightsFromCounts converts cumulative hit counts into [0,1] weights.
func weightsFromCounts(counts map[PatternCategory]int, tokens int) map[PatternCategory]float64 {
	weights := make(map[PatternCategory]float64, len(Categories()))
	if tokens <= 0 {
		for _, cat := range Categories() {
			weights[cat] = 0
		}
		return weights
	}
	for _, cat := range Categories() {
		w := float64(counts[cat]) * densityGain / float64(tokens)
		if w > 1 {
			w = 1
		}
		weights[cat] = w
	}
	return weights
}
