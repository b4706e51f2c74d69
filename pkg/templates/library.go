package templates

import (
	"sync"

	"github.com/sipeed/mimiclaw/pkg/persona"
)

// Modulation is the library's drifting generation state: small
// tendencies layered on top of the profile without rewriting it.
// Tone ranges -1..1, Hedge 0..1.
type Modulation struct {
	Tone  float64 `json:"tone"`
	Hedge float64 `json:"hedge"`
}

// feedbackAlpha is the EWMA factor for feedback drift. One delta moves
// modulation a third of the way toward its implied target.
const feedbackAlpha = 0.3

// voice carries persona-specific flavor fragments mixed into generated
// responses.
type voice struct {
	openerExtras []string
	closerExtras []string
	quipExtras   []string
}

// Built-in persona voices. Unknown personas (blends, imports) use the
// zero voice and rely on the shared pools.
var voices = map[string]voice{
	"formal-assistant": {
		openerExtras: []string{"At your service.", "Very well."},
		closerExtras: []string{"I trust this addresses the matter."},
	},
	"casual-dev": {
		openerExtras: []string{"Okay so.", "Right, let's see."},
		closerExtras: []string{"Ship it."},
		quipExtras:   []string{"Works on my machine, guaranteed*."},
	},
	"terse-analyst": {
		closerExtras: []string{"End of summary."},
	},
	"cheerful-coach": {
		openerExtras: []string{"Love this question!", "Great energy!"},
		closerExtras: []string{"You're doing great!", "Keep that momentum going!"},
		quipExtras:   []string{"High five from over here."},
	},
}

// Library is one persona's response material: a voice plus drifting
// modulation state. Fragment pools themselves are shared and immutable.
type Library struct {
	mu         sync.Mutex
	personaID  string
	voice      voice
	modulation Modulation
}

func newLibrary(personaID, personaName string) *Library {
	return &Library{
		personaID: personaID,
		voice:     voices[personaName],
	}
}

// ApplyFeedback drifts the library's modulation from a personality
// delta. Hedging adjustments pull the hedge tendency, warmth and
// enthusiasm adjustments pull tone. Adjustments apply in order with an
// EWMA step each, so feedback nudges rather than rewrites.
func (l *Library) ApplyFeedback(d persona.PersonalityDelta) {
	l.mu.Lock()
	defer l.mu.Unlock()

	conf := d.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	for _, adj := range d.Adjustments {
		step := adj.Magnitude * conf * feedbackAlpha
		switch adj.Axis {
		case persona.AxisHedging:
			l.modulation.Hedge = clampRange(l.modulation.Hedge+step, 0, 1)
		case persona.AxisWarmth, persona.AxisEnthusiasm:
			l.modulation.Tone = clampRange(l.modulation.Tone+step, -1, 1)
		}
	}
}

// Snapshot returns the current modulation state.
func (l *Library) Snapshot() Modulation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.modulation
}

// Restore replaces the modulation state, used when loading a
// checkpoint.
func (l *Library) Restore(m Modulation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modulation = m
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
