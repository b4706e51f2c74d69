// Package evolution tracks how closely a persona's generated behavior
// matches its target signature over time. A five-phase state machine
// walks Observation through Converged on rising convergence, detects
// sustained decline as drift, and fires each fixed milestone at most
// once per session.
package evolution

// Phase is an evolution lifecycle stage. Transitions only move forward
// except for the single Drifting -> Learning recovery edge.
type Phase string

const (
	PhaseObservation Phase = "observation"
	PhaseLearning    Phase = "learning"
	PhaseRefinement  Phase = "refinement"
	PhaseConverged   Phase = "converged"
	PhaseDrifting    Phase = "drifting"
)

// Milestones are fixed convergence percentages. Each fires its hook at
// most once, no matter how often convergence re-crosses it.
var Milestones = []int{25, 50, 75, 90, 95}

// minTrend is how many measurements the window needs before the
// tracker leaves Observation and a slope is meaningful.
const minTrend = 2

// Config tunes one tracker. Zero fields fall back to defaults.
type Config struct {
	WindowSize          int
	RefinementThreshold float64
	ConvergedThreshold  float64
	DriftTolerance      float64
	DriftPatience       int
	BufferCapacity      int
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		WindowSize:          40,
		RefinementThreshold: 0.5,
		ConvergedThreshold:  0.9,
		DriftTolerance:      0.005,
		DriftPatience:       3,
		BufferCapacity:      32,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WindowSize <= 0 {
		c.WindowSize = d.WindowSize
	}
	if c.RefinementThreshold <= 0 {
		c.RefinementThreshold = d.RefinementThreshold
	}
	if c.ConvergedThreshold <= 0 {
		c.ConvergedThreshold = d.ConvergedThreshold
	}
	if c.DriftTolerance <= 0 {
		c.DriftTolerance = d.DriftTolerance
	}
	if c.DriftPatience <= 0 {
		c.DriftPatience = d.DriftPatience
	}
	if c.BufferCapacity <= 0 {
		c.BufferCapacity = d.BufferCapacity
	}
	return c
}

// Transition reports a phase change from one Step call.
type Transition struct {
	From Phase
	To   Phase
}

// Changed reports whether the step actually moved phases.
func (tr Transition) Changed() bool {
	return tr.From != tr.To
}

// State is a tracker's full serializable snapshot.
type State struct {
	Phase       Phase      `json:"phase"`
	Window      []float64  `json:"window"`
	Milestones  []int      `json:"milestones_crossed"`
	DriftStreak int        `json:"drift_streak"`
	Steps       int        `json:"steps"`
	Buffer      []Exemplar `json:"buffer,omitempty"`
}

// Tracker is one persona's evolution state machine. It is owned and
// serialized by a single engine; callers must not share it across
// goroutines.
type Tracker struct {
	cfg         Config
	phase       Phase
	window      []float64
	crossed     map[int]bool
	driftStreak int
	steps       int
	buffer      exemplarHeap
	onMilestone func(milestone int, convergence float64)
}

// New creates a tracker in the Observation phase.
func New(cfg Config) *Tracker {
	return &Tracker{
		cfg:     cfg.withDefaults(),
		phase:   PhaseObservation,
		crossed: make(map[int]bool),
	}
}

// SetMilestoneHook registers the callback fired on each first milestone
// crossing, typically an automatic checkpoint.
func (t *Tracker) SetMilestoneHook(fn func(milestone int, convergence float64)) {
	t.onMilestone = fn
}

// Step records a new convergence measurement, re-evaluates the phase,
// and fires any newly crossed milestones. It returns the transition,
// which may be a no-op.
func (t *Tracker) Step(convergence float64) Transition {
	convergence = clamp01(convergence)
	t.steps++

	t.window = append(t.window, convergence)
	if len(t.window) > t.cfg.WindowSize {
		copy(t.window, t.window[1:])
		t.window = t.window[:t.cfg.WindowSize]
	}

	slope := regressionSlope(t.window)
	if slope < -t.cfg.DriftTolerance {
		t.driftStreak++
	} else {
		t.driftStreak = 0
	}

	from := t.phase
	switch t.phase {
	case PhaseObservation:
		if len(t.window) >= minTrend {
			t.phase = PhaseLearning
		}
	case PhaseLearning, PhaseRefinement, PhaseConverged:
		if t.driftStreak >= t.cfg.DriftPatience {
			t.phase = PhaseDrifting
			t.driftStreak = 0
			break
		}
		if t.phase != PhaseConverged && convergence > t.cfg.ConvergedThreshold {
			t.phase = PhaseConverged
		} else if t.phase == PhaseLearning && convergence > t.cfg.RefinementThreshold {
			t.phase = PhaseRefinement
		}
	case PhaseDrifting:
		if slope >= -t.cfg.DriftTolerance {
			t.phase = PhaseLearning
		}
	}

	t.fireMilestones(convergence)
	return Transition{From: from, To: t.phase}
}

// Phase returns the current lifecycle stage.
func (t *Tracker) Phase() Phase {
	return t.phase
}

// Convergence returns the latest measurement, zero before any step.
func (t *Tracker) Convergence() float64 {
	if len(t.window) == 0 {
		return 0
	}
	return t.window[len(t.window)-1]
}

// Slope returns the least-squares trend over the current window.
func (t *Tracker) Slope() float64 {
	return regressionSlope(t.window)
}

// Steps returns how many measurements have ever been recorded.
func (t *Tracker) Steps() int {
	return t.steps
}

// MilestonesCrossed lists crossed milestones in ascending order.
func (t *Tracker) MilestonesCrossed() []int {
	var out []int
	for _, m := range Milestones {
		if t.crossed[m] {
			out = append(out, m)
		}
	}
	return out
}

// Snapshot captures the full state for checkpointing.
func (t *Tracker) Snapshot() State {
	return State{
		Phase:       t.phase,
		Window:      append([]float64(nil), t.window...),
		Milestones:  t.MilestonesCrossed(),
		DriftStreak: t.driftStreak,
		Steps:       t.steps,
		Buffer:      t.Exemplars(),
	}
}

// Restore replaces the tracker's state from a snapshot. Milestones
// already crossed stay crossed, so a restored session never re-fires
// them.
func (t *Tracker) Restore(s State) {
	if s.Phase != "" {
		t.phase = s.Phase
	}
	t.window = append([]float64(nil), s.Window...)
	if len(t.window) > t.cfg.WindowSize {
		t.window = t.window[len(t.window)-t.cfg.WindowSize:]
	}
	t.crossed = make(map[int]bool, len(s.Milestones))
	for _, m := range s.Milestones {
		t.crossed[m] = true
	}
	t.driftStreak = s.DriftStreak
	t.steps = s.Steps
	t.buffer = nil
	for _, e := range s.Buffer {
		t.AddExemplar(e)
	}
}

func (t *Tracker) fireMilestones(convergence float64) {
	for _, m := range Milestones {
		if t.crossed[m] || convergence < float64(m)/100 {
			continue
		}
		t.crossed[m] = true
		if t.onMilestone != nil {
			t.onMilestone(m, convergence)
		}
	}
}

// regressionSlope fits y = a + b*x over the window by least squares and
// returns b. Fewer than two points have no trend.
func regressionSlope(ys []float64) float64 {
	n := len(ys)
	if n < minTrend {
		return 0
	}

	xMean := float64(n-1) / 2
	var yMean float64
	for _, y := range ys {
		yMean += y
	}
	yMean /= float64(n)

	var num, den float64
	for i, y := range ys {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
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
