package engine

import (
	"context"
	"time"

	"github.com/sipeed/mimiclaw/pkg/ethics"
	"github.com/sipeed/mimiclaw/pkg/evolution"
	"github.com/sipeed/mimiclaw/pkg/logger"
	"github.com/sipeed/mimiclaw/pkg/persistence"
	"github.com/sipeed/mimiclaw/pkg/persona"
	"github.com/sipeed/mimiclaw/pkg/routing"
	"github.com/sipeed/mimiclaw/pkg/sigcache"
	"github.com/sipeed/mimiclaw/pkg/signature"
	"github.com/sipeed/mimiclaw/pkg/templates"
)

// Request is one conversational turn. PersonaID overrides the active
// persona for this turn only. The benefit fields feed the ethics gate;
// zero values pass (neutral exchange, no harm asserted).
type Request struct {
	Text         string
	PersonaID    string
	SelfBenefit  float64
	OtherBenefit float64
	BreaksLoop   bool
}

// Response is the engine's answer to one request. Blocked responses
// carry the gate's reason and an empty Text; they are refusals, not
// errors.
type Response struct {
	Text        string
	PersonaID   string
	Category    routing.Category
	CacheHit    bool
	Fallback    bool
	Convergence float64
	Phase       evolution.Phase
	Blocked     bool
	BlockReason string
}

// Handle runs one request through the full loop: route, cached-or-
// compiled generation, one self-monitor correction, and the ethics
// gate. The whole sequence holds the engine mutex; the hot path does
// no I/O.
func (e *Engine) Handle(ctx context.Context, req Request) (Response, error) {
	route := routing.Classify(req.Text)

	e.mu.Lock()
	defer e.mu.Unlock()

	id := req.PersonaID
	if id == "" {
		id = e.active
	}
	cp, ok := e.personas[id]
	if !ok {
		return Response{}, &UnknownPersonaError{Name: id}
	}

	resp := Response{
		PersonaID: id,
		Category:  route.Category,
	}

	compiled, err := e.cache.Lookup(id, route.Category)
	if err != nil {
		logger.WarnCF("engine", "Cache slot evicted", map[string]any{
			"persona":  id,
			"category": string(route.Category),
			"error":    err.Error(),
		})
		compiled = nil
	}
	if compiled == nil {
		compiled = e.compileLocked(cp, route.Category)
	} else {
		resp.CacheHit = true
	}

	text, genErr := e.store.Generate(req.Text, route.Category, cp.Profile, compiled)
	if genErr != nil {
		logger.WarnCF("engine", "Generation failed, serving fallback", map[string]any{
			"persona": id,
			"error":   genErr.Error(),
		})
		resp.Text = e.fallbackLocked(id, route.Category)
		resp.Fallback = true
	} else {
		resp.Text = text

		// Exactly one self-monitor delta per generation, even when
		// the implied signature already matches the target.
		implied := signature.BuildSignature(id, text)
		delta := persona.DeltaBetween(implied, cp.Signature, selfMonitorRate)
		cp.Profile.ApplyCorrection(delta)
		e.store.Library(id, cp.Name()).ApplyFeedback(delta)

		conv := signature.Similarity(implied, cp.Signature)
		tr := e.trackerForLocked(id)
		step := tr.Step(conv)
		if step.Changed() {
			logger.InfoCF("engine", "Phase transition", map[string]any{
				"persona": id,
				"from":    string(step.From),
				"to":      string(step.To),
			})
		}
		resp.Convergence = tr.Convergence()
		resp.Phase = tr.Phase()

		e.lastText[fallbackKey{personaID: id, category: route.Category}] = text
	}

	decision := ethics.Evaluate(req.SelfBenefit, req.OtherBenefit, req.BreaksLoop)
	if !decision.Allowed {
		resp.Blocked = true
		resp.BlockReason = decision.Reason
		resp.Text = ""
		logger.InfoCF("engine", "Response blocked by gate", map[string]any{
			"persona": id,
			"reason":  decision.Reason,
		})
	}

	e.appendSessionLocked(req, resp)
	return resp, nil
}

// compileLocked rebuilds the System-1 entry for one (persona, category)
// slot from the persona's accumulated signature. When observations
// exist the profile is nudged toward them first, so the compiled hints
// and the profile stay coherent.
func (e *Engine) compileLocked(cp *persona.CompoundPersona, cat routing.Category) *sigcache.CompiledSignature {
	if cp.Signature.SampleCount > 0 {
		delta := persona.CorrectionToward(cp.Profile, cp.Signature, missRefineRate, persona.ProvenanceObservation)
		cp.Profile.ApplyCorrection(delta)
	}
	compiled := sigcache.CompileFrom(cp.Signature, cat)
	if err := e.cache.Store(cp.ID(), compiled); err != nil {
		logger.WarnCF("engine", "Cache store rejected", map[string]any{
			"persona": cp.ID(),
			"error":   err.Error(),
		})
	}
	return compiled
}

// fallbackLocked serves the most recent successful response for the
// slot, or the neutral default when the slot has never produced one.
func (e *Engine) fallbackLocked(personaID string, cat routing.Category) string {
	if last, ok := e.lastText[fallbackKey{personaID: personaID, category: cat}]; ok {
		return last
	}
	return templates.NeutralResponse(cat)
}

func (e *Engine) appendSessionLocked(req Request, resp Response) {
	if e.session == nil {
		return
	}
	e.session.Append(persistence.SessionEntry{
		At:          time.Now(),
		Request:     req.Text,
		Category:    string(resp.Category),
		Response:    resp.Text,
		Convergence: resp.Convergence,
		BlockReason: resp.BlockReason,
	})
}
