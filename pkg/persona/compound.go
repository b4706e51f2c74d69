package persona

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sipeed/mimiclaw/pkg/signature"
)

// Capability names a response modality a persona may serve.
type Capability string

const (
	CapabilityChat     Capability = "chat"
	CapabilityAnalysis Capability = "analysis"
	CapabilityCode     Capability = "code"
)

// CompoundPersona binds a profile to its behavioral signature and the
// capabilities it may serve. The compound owns its profile and
// signature exclusively; other subsystems adjust them only through
// PersonalityDelta values routed by the engine.
type CompoundPersona struct {
	Profile      *Profile                     `json:"profile"`
	Signature    *signature.BehaviorSignature `json:"signature"`
	Capabilities []Capability                 `json:"capabilities"`
}

// New creates a compound persona around a profile with an empty
// signature.
func New(profile *Profile, capabilities ...Capability) *CompoundPersona {
	if len(capabilities) == 0 {
		capabilities = []Capability{CapabilityChat}
	}
	return &CompoundPersona{
		Profile:      profile,
		Signature:    signature.Zero(profile.ID),
		Capabilities: capabilities,
	}
}

// ID returns the persona's stable identifier.
func (cp *CompoundPersona) ID() string {
	return cp.Profile.ID
}

// Name returns the persona's display name.
func (cp *CompoundPersona) Name() string {
	return cp.Profile.Name
}

// Can reports whether the persona serves a capability.
func (cp *CompoundPersona) Can(c Capability) bool {
	for _, have := range cp.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// SetSignature replaces the persona's signature. The new signature must
// belong to this persona.
func (cp *CompoundPersona) SetSignature(sig *signature.BehaviorSignature) error {
	if sig.PersonaID != cp.ID() {
		return fmt.Errorf("persona: signature owner %q does not match persona %q", sig.PersonaID, cp.ID())
	}
	cp.Signature = sig
	return nil
}

// Clone returns a deep copy of the compound persona.
func (cp *CompoundPersona) Clone() *CompoundPersona {
	caps := make([]Capability, len(cp.Capabilities))
	copy(caps, cp.Capabilities)
	return &CompoundPersona{
		Profile:      cp.Profile.Clone(),
		Signature:    cp.Signature.Clone(),
		Capabilities: caps,
	}
}

// Blend derives a new persona from two parents. Axis values and
// signature weights are the arithmetic weighted mean, with weight the
// share of a. The blend gets a fresh id, a combined name, and the union
// of the parents' capabilities.
func Blend(a, b *CompoundPersona, weight float64) *CompoundPersona {
	w := clamp01(weight)

	id := uuid.NewString()
	name := fmt.Sprintf("%s+%s", a.Name(), b.Name())

	profile := NewProfile(id, name)
	for _, axis := range Axes() {
		profile.Axes[axis] = a.Profile.Get(axis)*w + b.Profile.Get(axis)*(1-w)
	}

	caps := make([]Capability, 0, len(a.Capabilities)+len(b.Capabilities))
	caps = append(caps, a.Capabilities...)
	for _, c := range b.Capabilities {
		found := false
		for _, have := range caps {
			if have == c {
				found = true
				break
			}
		}
		if !found {
			caps = append(caps, c)
		}
	}

	return &CompoundPersona{
		Profile:      profile,
		Signature:    signature.Blend(id, a.Signature, b.Signature, w),
		Capabilities: caps,
	}
}
