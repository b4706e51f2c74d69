package engine

import (
	"errors"
	"testing"

	"github.com/sipeed/mimiclaw/pkg/ethics"
	"github.com/sipeed/mimiclaw/pkg/persona"
	"github.com/sipeed/mimiclaw/pkg/routing"
	"github.com/sipeed/mimiclaw/pkg/signature"
	"github.com/sipeed/mimiclaw/pkg/templates"
)

func TestHandleRespondsInCategory(t *testing.T) {
	e := newTestEngine(t, 42)

	resp, err := e.Handle(t.Context(), Request{Text: "hello there"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Category != routing.CategoryGreeting {
		t.Errorf("Category = %q, want greeting", resp.Category)
	}
	if resp.PersonaID != "formal-assistant" {
		t.Errorf("PersonaID = %q, want formal-assistant", resp.PersonaID)
	}
	if resp.Text == "" {
		t.Error("Text empty")
	}
	if resp.Blocked {
		t.Errorf("neutral request blocked: %s", resp.BlockReason)
	}
	if resp.Fallback {
		t.Error("healthy generation reported as fallback")
	}
}

func TestHandleCacheMissThenHit(t *testing.T) {
	e := newTestEngine(t, 42)

	first, err := e.Handle(t.Context(), Request{Text: "hello there"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if first.CacheHit {
		t.Error("first request should compile, not hit")
	}

	second, err := e.Handle(t.Context(), Request{Text: "hello there"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !second.CacheHit {
		t.Error("second request should hit the cache")
	}
}

func TestHandleCacheHitMatchesCompilePath(t *testing.T) {
	cold := newTestEngine(t, 42)
	warm := newTestEngine(t, 42)
	if err := warm.WarmCache(); err != nil {
		t.Fatalf("WarmCache() error = %v", err)
	}

	req := Request{Text: "how does this work?"}
	coldResp, err := cold.Handle(t.Context(), req)
	if err != nil {
		t.Fatalf("cold Handle() error = %v", err)
	}
	warmResp, err := warm.Handle(t.Context(), req)
	if err != nil {
		t.Fatalf("warm Handle() error = %v", err)
	}

	if coldResp.CacheHit {
		t.Error("cold engine should miss")
	}
	if !warmResp.CacheHit {
		t.Error("warmed engine should hit")
	}
	if coldResp.Text != warmResp.Text {
		t.Errorf("cache hit produced different bytes:\n cold: %q\n warm: %q", coldResp.Text, warmResp.Text)
	}
}

func TestHandleUnknownPersona(t *testing.T) {
	e := newTestEngine(t, 42)

	var unknownErr *UnknownPersonaError
	if _, err := e.Handle(t.Context(), Request{Text: "hi", PersonaID: "nobody"}); !errors.As(err, &unknownErr) {
		t.Fatalf("Handle() error = %v, want *UnknownPersonaError", err)
	}
}

func TestHandlePersonaOverride(t *testing.T) {
	e := newTestEngine(t, 42)

	resp, err := e.Handle(t.Context(), Request{Text: "hi", PersonaID: "casual-dev"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.PersonaID != "casual-dev" {
		t.Errorf("PersonaID = %q, want casual-dev", resp.PersonaID)
	}
	if got := e.ActivePersona(); got != "formal-assistant" {
		t.Errorf("override changed active persona to %q", got)
	}
}

func TestHandleSelfMonitorAppliesDelta(t *testing.T) {
	e := newTestEngine(t, 42)

	e.mu.Lock()
	cp := e.personas[e.active]
	cp.Signature = signature.BuildSignature(cp.ID(),
		"Perhaps this could work, I think. Maybe we should possibly try it.",
		"It seems likely, though I believe we should probably hedge a bit.",
		"Possibly. Maybe. I would say it might.",
	)
	before := make(map[persona.Axis]float64)
	for _, a := range persona.Axes() {
		before[a] = cp.Profile.Get(a)
	}
	e.mu.Unlock()

	resp, err := e.Handle(t.Context(), Request{Text: "what should we do?"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Convergence <= 0 || resp.Convergence > 1 {
		t.Errorf("Convergence = %v, want (0,1]", resp.Convergence)
	}

	moved := false
	for _, a := range persona.Axes() {
		if cp.Profile.Get(a) != before[a] {
			moved = true
			break
		}
	}
	if !moved {
		t.Error("self-monitor delta left every axis untouched")
	}
}

func TestHandleStepsTrackerOncePerGeneration(t *testing.T) {
	e := newTestEngine(t, 42)

	requests := []Request{
		{Text: "hello there"},
		{Text: "what is the plan?"},
		{Text: "write a summary", OtherBenefit: -1},
	}
	for _, req := range requests {
		if _, err := e.Handle(t.Context(), req); err != nil {
			t.Fatalf("Handle(%q) error = %v", req.Text, err)
		}
	}

	st, err := e.Status(t.Context())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Steps != len(requests) {
		t.Errorf("Steps = %d, want %d (one per generation, blocked included)", st.Steps, len(requests))
	}
}

func TestHandleBlockedWhenOtherHarmed(t *testing.T) {
	e := newTestEngine(t, 42)

	resp, err := e.Handle(t.Context(), Request{Text: "hello", OtherBenefit: -0.4})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !resp.Blocked {
		t.Fatal("harmful request not blocked")
	}
	if resp.BlockReason != ethics.ReasonOtherHarmed {
		t.Errorf("BlockReason = %q, want %q", resp.BlockReason, ethics.ReasonOtherHarmed)
	}
	if resp.Text != "" {
		t.Errorf("blocked response still carries text %q", resp.Text)
	}
}

func TestHandleBlockedWhenLoopBroken(t *testing.T) {
	e := newTestEngine(t, 42)

	resp, err := e.Handle(t.Context(), Request{
		Text:         "hello",
		SelfBenefit:  0.5,
		OtherBenefit: 0.5,
		BreaksLoop:   true,
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !resp.Blocked || resp.BlockReason != ethics.ReasonBreaksLoop {
		t.Errorf("Blocked = %v, BlockReason = %q, want loop-break denial", resp.Blocked, resp.BlockReason)
	}
}

func TestHandleParasiticBlocked(t *testing.T) {
	e := newTestEngine(t, 42)

	resp, err := e.Handle(t.Context(), Request{Text: "hello", SelfBenefit: 0.9, OtherBenefit: 0.05})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !resp.Blocked || resp.BlockReason != ethics.ReasonParasitic {
		t.Errorf("Blocked = %v, BlockReason = %q, want parasitic denial", resp.Blocked, resp.BlockReason)
	}
}

func TestHandleRecordsSession(t *testing.T) {
	e := newTestEngine(t, 42)

	allowed, err := e.Handle(t.Context(), Request{Text: "hello there"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if _, err := e.Handle(t.Context(), Request{Text: "bye now", OtherBenefit: -1}); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if len(e.session.Entries) != 2 {
		t.Fatalf("len(session.Entries) = %d, want 2", len(e.session.Entries))
	}
	first, second := e.session.Entries[0], e.session.Entries[1]
	if first.Request != "hello there" || first.Response != allowed.Text {
		t.Errorf("first entry = %+v", first)
	}
	if first.Category != string(routing.CategoryGreeting) {
		t.Errorf("first Category = %q, want greeting", first.Category)
	}
	if second.BlockReason == "" || second.Response != "" {
		t.Errorf("blocked entry = %+v, want reason and no response", second)
	}
}

func TestFallbackServesLastResponse(t *testing.T) {
	e := newTestEngine(t, 42)

	e.mu.Lock()
	neutral := e.fallbackLocked("formal-assistant", routing.CategoryQuestion)
	e.mu.Unlock()
	if neutral != templates.NeutralResponse(routing.CategoryQuestion) {
		t.Errorf("empty slot fallback = %q, want neutral default", neutral)
	}

	resp, err := e.Handle(t.Context(), Request{Text: "what is the plan?"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	e.mu.Lock()
	cached := e.fallbackLocked("formal-assistant", routing.CategoryQuestion)
	e.mu.Unlock()
	if cached != resp.Text {
		t.Errorf("fallback = %q, want last response %q", cached, resp.Text)
	}
}
