// Package engine binds the mimicry subsystems into one request loop:
// routing, the compiled signature cache, template generation,
// self-monitor feedback, evolution tracking, and the ethics gate. An
// engine instance exclusively owns its personas, caches and trackers;
// nothing in this package is a singleton.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sipeed/mimiclaw/pkg/config"
	"github.com/sipeed/mimiclaw/pkg/ethics"
	"github.com/sipeed/mimiclaw/pkg/evolution"
	"github.com/sipeed/mimiclaw/pkg/logger"
	"github.com/sipeed/mimiclaw/pkg/obslog"
	"github.com/sipeed/mimiclaw/pkg/persistence"
	"github.com/sipeed/mimiclaw/pkg/persona"
	"github.com/sipeed/mimiclaw/pkg/providers"
	"github.com/sipeed/mimiclaw/pkg/routing"
	"github.com/sipeed/mimiclaw/pkg/sigcache"
	"github.com/sipeed/mimiclaw/pkg/templates"
)

// Correction rates: how strongly one round of each feedback source
// pulls the profile.
const (
	selfMonitorRate = 0.2
	observeRate     = 0.35
	missRefineRate  = 0.15
)

// Maintenance actions run through the gate with a fixed assessment:
// user-initiated upkeep serves both sides of the loop.
const (
	actionSelfBenefit  = 0.5
	actionOtherBenefit = 0.5
)

// UnknownPersonaError reports a persona name the engine does not hold.
type UnknownPersonaError struct {
	Name string
}

func (e *UnknownPersonaError) Error() string {
	return fmt.Sprintf("unknown persona: %s", e.Name)
}

type fallbackKey struct {
	personaID string
	category  routing.Category
}

// Engine owns every mutable mimicry structure. All public operations
// serialize on one mutex; provider network calls run outside it so the
// cold path never stalls the hot one.
type Engine struct {
	mu sync.Mutex

	cfg    *config.Config
	client *providers.Client
	cache  *sigcache.Cache
	store  *templates.Store
	evoCfg evolution.Config

	personas map[string]*persona.CompoundPersona
	trackers map[string]*evolution.Tracker
	active   string

	lastText map[fallbackKey]string

	persist *persistence.Manager
	archive *obslog.Store
	session *persistence.SessionLog
}

// New builds an engine from configuration with every built-in persona
// loaded. persist and archive may be nil; the engine then runs purely
// in memory.
func New(cfg *config.Config, persist *persistence.Manager, archive *obslog.Store) (*Engine, error) {
	e := &Engine{
		cfg:      cfg,
		client:   providers.NewClient(),
		cache:    sigcache.NewCache(),
		store:    templates.NewStore(cfg.Engine.Seed),
		evoCfg:   evolutionConfig(cfg),
		personas: make(map[string]*persona.CompoundPersona),
		trackers: make(map[string]*evolution.Tracker),
		lastText: make(map[fallbackKey]string),
		persist:  persist,
		archive:  archive,
	}

	for _, name := range persona.BuiltinNames() {
		cp, _ := persona.NewBuiltin(name)
		e.personas[cp.ID()] = cp
	}

	active := cfg.Engine.DefaultPersona
	if active == "" {
		active = persona.BuiltinNames()[0]
	}
	if _, ok := e.personas[active]; !ok {
		return nil, &UnknownPersonaError{Name: active}
	}
	e.active = active

	e.session = &persistence.SessionLog{
		ID:        uuid.NewString(),
		PersonaID: active,
		StartedAt: time.Now(),
	}

	logger.InfoCF("engine", "Engine ready", map[string]any{
		"personas": len(e.personas),
		"active":   active,
	})
	return e, nil
}

func evolutionConfig(cfg *config.Config) evolution.Config {
	return evolution.Config{
		WindowSize:          cfg.Evolution.WindowSize,
		RefinementThreshold: cfg.Evolution.RefinementThreshold,
		ConvergedThreshold:  cfg.Evolution.ConvergedThreshold,
		DriftTolerance:      cfg.Evolution.DriftTolerance,
		DriftPatience:       cfg.Evolution.DriftPatience,
		BufferCapacity:      cfg.Evolution.BufferCapacity,
	}
}

func (e *Engine) gate(action string) error {
	return ethics.Check(action, actionSelfBenefit, actionOtherBenefit, false)
}

// newTracker creates a hooked tracker without registering it.
func (e *Engine) newTracker(personaID string) *evolution.Tracker {
	tr := evolution.New(e.evoCfg)
	tr.SetMilestoneHook(func(milestone int, convergence float64) {
		e.milestoneCheckpointLocked(personaID, milestone, convergence)
	})
	return tr
}

func (e *Engine) trackerForLocked(personaID string) *evolution.Tracker {
	tr, ok := e.trackers[personaID]
	if !ok {
		tr = e.newTracker(personaID)
		e.trackers[personaID] = tr
	}
	return tr
}

// ActivePersona returns the id of the persona requests default to.
func (e *Engine) ActivePersona() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Use switches the active persona.
func (e *Engine) Use(name string) error {
	if err := e.gate("persona-switch"); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.personas[name]; !ok {
		return &UnknownPersonaError{Name: name}
	}
	e.active = name
	logger.InfoCF("engine", "Active persona switched", map[string]any{"persona": name})
	return nil
}

// BlendPersonas derives a new persona from two existing ones and makes
// it active. weight is the share of the first parent.
func (e *Engine) BlendPersonas(first, second string, weight float64) (string, error) {
	if err := e.gate("persona-blend"); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.personas[first]
	if !ok {
		return "", &UnknownPersonaError{Name: first}
	}
	b, ok := e.personas[second]
	if !ok {
		return "", &UnknownPersonaError{Name: second}
	}

	blend := persona.Blend(a, b, weight)
	e.personas[blend.ID()] = blend
	e.active = blend.ID()
	logger.InfoCF("engine", "Personas blended", map[string]any{
		"first":  first,
		"second": second,
		"weight": weight,
		"result": blend.ID(),
	})
	return blend.ID(), nil
}

// PersonaInfo is one row of the persona listing.
type PersonaInfo struct {
	ID          string
	Name        string
	Description string
	Active      bool
	Samples     int
	Phase       evolution.Phase
}

// Personas lists every loaded persona, built-ins first in table order,
// derived ones after by id.
func (e *Engine) Personas() []PersonaInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[string]bool, len(e.personas))
	var out []PersonaInfo

	add := func(id string) {
		cp, ok := e.personas[id]
		if !ok || seen[id] {
			return
		}
		seen[id] = true
		info := PersonaInfo{
			ID:          id,
			Name:        cp.Name(),
			Description: persona.BuiltinDescription(id),
			Active:      id == e.active,
			Samples:     cp.Signature.SampleCount,
			Phase:       evolution.PhaseObservation,
		}
		if tr, ok := e.trackers[id]; ok {
			info.Phase = tr.Phase()
		}
		out = append(out, info)
	}

	for _, name := range persona.BuiltinNames() {
		add(name)
	}
	rest := make([]string, 0, len(e.personas))
	for id := range e.personas {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		add(id)
	}
	return out
}

// DescribePersona renders a persona's style card and voice summary.
// An empty name describes the active persona.
func (e *Engine) DescribePersona(name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := name
	if id == "" {
		id = e.active
	}
	cp, ok := e.personas[id]
	if !ok {
		return "", &UnknownPersonaError{Name: id}
	}

	card := persona.Describe(cp.Profile)
	if voice := persona.DescribeVoice(cp.Profile); voice != "" {
		card += "\n" + voice
	}
	return card, nil
}

// WarmCache precompiles every (persona, category) entry so first
// requests are served from System 1 immediately.
func (e *Engine) WarmCache() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, cp := range e.personas {
		for _, cat := range routing.Categories() {
			if err := e.cache.Store(id, sigcache.CompileFrom(cp.Signature, cat)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Status summarizes the active persona's learning state.
type Status struct {
	PersonaID    string
	PersonaName  string
	Phase        evolution.Phase
	Convergence  float64
	Slope        float64
	Steps        int
	Milestones   []int
	Samples      int
	CacheEntries int
	BufferLen    int
	Providers    []string
	Archive      *obslog.Stats
}

// Status reports the active persona's state, including archive
// aggregates when an archive is attached.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	e.mu.Lock()
	cp := e.personas[e.active]
	tr := e.trackerForLocked(e.active)
	st := Status{
		PersonaID:    e.active,
		PersonaName:  cp.Name(),
		Phase:        tr.Phase(),
		Convergence:  tr.Convergence(),
		Slope:        tr.Slope(),
		Steps:        tr.Steps(),
		Milestones:   tr.MilestonesCrossed(),
		Samples:      cp.Signature.SampleCount,
		CacheEntries: e.cache.Len(),
		BufferLen:    tr.BufferLen(),
		Providers:    e.cfg.EnabledProviders(),
	}
	e.mu.Unlock()

	if e.archive != nil {
		stats, err := e.archive.PersonaStats(ctx, st.PersonaID)
		if err != nil {
			return Status{}, err
		}
		st.Archive = &stats
	}
	return st, nil
}

// History returns the newest archived observations for the active
// persona.
func (e *Engine) History(ctx context.Context, limit int) ([]obslog.Row, error) {
	if e.archive == nil {
		return nil, fmt.Errorf("no observation archive attached")
	}
	e.mu.Lock()
	active := e.active
	e.mu.Unlock()
	return e.archive.Recent(ctx, active, limit)
}

// Seed returns the template generation seed, fixed for the engine's
// lifetime.
func (e *Engine) Seed() int64 {
	return e.store.Seed()
}
