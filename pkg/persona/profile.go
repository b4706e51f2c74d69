// Package persona models who a mimic persona is: a named profile of
// personality axes, the feedback currency that adjusts it, and the
// compound persona that binds profile, signature, and capabilities
// together.
package persona

import (
	"fmt"
)

// Axis names one personality dimension. The set is closed; every axis
// value lives in [0,1].
type Axis string

const (
	AxisFormality    Axis = "formality"
	AxisHedging      Axis = "hedging"
	AxisVerbosity    Axis = "verbosity"
	AxisWarmth       Axis = "warmth"
	AxisDirectness   Axis = "directness"
	AxisEnthusiasm   Axis = "enthusiasm"
	AxisTechnicality Axis = "technicality"
	AxisHumor        Axis = "humor"
)

// Axes returns every personality axis in declaration order. Ordered
// iteration keeps delta application and rendering deterministic.
func Axes() []Axis {
	return []Axis{
		AxisFormality,
		AxisHedging,
		AxisVerbosity,
		AxisWarmth,
		AxisDirectness,
		AxisEnthusiasm,
		AxisTechnicality,
		AxisHumor,
	}
}

// Profile is the numeric personality of one persona.
type Profile struct {
	ID   string           `json:"id"`
	Name string           `json:"name"`
	Axes map[Axis]float64 `json:"axes"`
}

// NewProfile returns a neutral profile with every axis at 0.5.
func NewProfile(id, name string) *Profile {
	axes := make(map[Axis]float64, len(Axes()))
	for _, a := range Axes() {
		axes[a] = 0.5
	}
	return &Profile{ID: id, Name: name, Axes: axes}
}

// Get returns the value of one axis. Unknown axes read as 0.
func (p *Profile) Get(a Axis) float64 {
	return p.Axes[a]
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	out := &Profile{ID: p.ID, Name: p.Name, Axes: make(map[Axis]float64, len(p.Axes))}
	for k, v := range p.Axes {
		out.Axes[k] = v
	}
	return out
}

// Validate checks identity fields, the axis key set, and value ranges.
func (p *Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("persona: profile id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("persona: profile name is required")
	}
	known := make(map[Axis]bool, len(Axes()))
	for _, a := range Axes() {
		known[a] = true
		v, ok := p.Axes[a]
		if !ok {
			return fmt.Errorf("persona: profile %s missing axis %q", p.ID, a)
		}
		if v < 0 || v > 1 {
			return fmt.Errorf("persona: profile %s axis %q out of range: %v", p.ID, a, v)
		}
	}
	for a := range p.Axes {
		if !known[a] {
			return fmt.Errorf("persona: profile %s has unknown axis %q", p.ID, a)
		}
	}
	return nil
}

// Adjustment is a signed nudge on one axis.
type Adjustment struct {
	Axis      Axis    `json:"axis"`
	Magnitude float64 `json:"magnitude"`
}

// Delta provenance values.
const (
	ProvenanceSelfMonitor = "self-monitor"
	ProvenanceObservation = "observation"
	ProvenanceManual      = "manual"
)

// PersonalityDelta is the only currency subsystems use to adjust a
// profile. Adjustments is an ordered list; Confidence scales how
// strongly each magnitude is applied; Provenance names the subsystem
// that produced the delta. Deltas are ephemeral and consumed on apply.
type PersonalityDelta struct {
	Adjustments []Adjustment `json:"adjustments"`
	Confidence  float64      `json:"confidence"`
	Provenance  string       `json:"provenance"`
}

// IsZero reports whether every adjustment is negligible.
func (d PersonalityDelta) IsZero() bool {
	for _, adj := range d.Adjustments {
		if adj.Magnitude > 1e-9 || adj.Magnitude < -1e-9 {
			return false
		}
	}
	return true
}

// MaxMagnitude returns the largest absolute adjustment in the delta.
func (d PersonalityDelta) MaxMagnitude() float64 {
	max := 0.0
	for _, adj := range d.Adjustments {
		m := adj.Magnitude
		if m < 0 {
			m = -m
		}
		if m > max {
			max = m
		}
	}
	return max
}

// ApplyCorrection folds a delta into the profile. Adjustments apply in
// list order, each scaled by the delta's confidence and clamped to
// [0,1] immediately, so a later adjustment sees the clamped result of
// an earlier one. Multiple deltas in one feedback round must be applied
// one at a time, never merged.
func (p *Profile) ApplyCorrection(d PersonalityDelta) {
	conf := clamp01(d.Confidence)
	for _, adj := range d.Adjustments {
		if _, ok := p.Axes[adj.Axis]; !ok {
			continue
		}
		p.Axes[adj.Axis] = clamp01(p.Axes[adj.Axis] + adj.Magnitude*conf)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
