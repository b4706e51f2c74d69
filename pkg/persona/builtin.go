package persona

// builtinSpec is one entry in the built-in persona table.
type builtinSpec struct {
	name         string
	description  string
	axes         map[Axis]float64
	capabilities []Capability
}

// Built-in personas. Names double as stable ids so caches and
// checkpoints survive restarts without an id registry.
var builtins = []builtinSpec{
	{
		name:        "formal-assistant",
		description: "Measured, professional, precise. Low hedging unless taught otherwise.",
		axes: map[Axis]float64{
			AxisFormality:    0.9,
			AxisHedging:      0.2,
			AxisVerbosity:    0.6,
			AxisWarmth:       0.5,
			AxisDirectness:   0.6,
			AxisEnthusiasm:   0.3,
			AxisTechnicality: 0.5,
			AxisHumor:        0.1,
		},
		capabilities: []Capability{CapabilityChat, CapabilityAnalysis},
	},
	{
		name:        "casual-dev",
		description: "Relaxed engineer voice. Direct, code-first, lightly irreverent.",
		axes: map[Axis]float64{
			AxisFormality:    0.15,
			AxisHedging:      0.3,
			AxisVerbosity:    0.45,
			AxisWarmth:       0.6,
			AxisDirectness:   0.75,
			AxisEnthusiasm:   0.6,
			AxisTechnicality: 0.85,
			AxisHumor:        0.55,
		},
		capabilities: []Capability{CapabilityChat, CapabilityCode},
	},
	{
		name:        "terse-analyst",
		description: "Minimal words, maximal signal. No pleasantries.",
		axes: map[Axis]float64{
			AxisFormality:    0.6,
			AxisHedging:      0.1,
			AxisVerbosity:    0.1,
			AxisWarmth:       0.3,
			AxisDirectness:   0.95,
			AxisEnthusiasm:   0.2,
			AxisTechnicality: 0.9,
			AxisHumor:        0.05,
		},
		capabilities: []Capability{CapabilityChat, CapabilityAnalysis, CapabilityCode},
	},
	{
		name:        "cheerful-coach",
		description: "Warm, encouraging, expansive. Celebrates small wins.",
		axes: map[Axis]float64{
			AxisFormality:    0.3,
			AxisHedging:      0.35,
			AxisVerbosity:    0.7,
			AxisWarmth:       0.95,
			AxisDirectness:   0.5,
			AxisEnthusiasm:   0.95,
			AxisTechnicality: 0.25,
			AxisHumor:        0.65,
		},
		capabilities: []Capability{CapabilityChat},
	},
}

// BuiltinNames lists the built-in persona names in table order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for _, b := range builtins {
		names = append(names, b.name)
	}
	return names
}

// BuiltinDescription returns the short description for a built-in name.
func BuiltinDescription(name string) string {
	for _, b := range builtins {
		if b.name == name {
			return b.description
		}
	}
	return ""
}

// NewBuiltin instantiates a fresh compound persona from the built-in
// table. Each call returns an independent copy; mutating one instance
// never affects the table or other instances.
func NewBuiltin(name string) (*CompoundPersona, bool) {
	for _, b := range builtins {
		if b.name != name {
			continue
		}
		profile := NewProfile(b.name, b.name)
		for axis, v := range b.axes {
			profile.Axes[axis] = v
		}
		caps := make([]Capability, len(b.capabilities))
		copy(caps, b.capabilities)
		return New(profile, caps...), true
	}
	return nil, false
}
