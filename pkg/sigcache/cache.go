// Package sigcache holds compiled, read-optimized views of behavior
// signatures for the hot response path. CompileFrom is the only code
// path that produces entries; Store replaces a persona's entry
// atomically, so readers always see either the old compiled form or
// the new one, never a half-written mix.
package sigcache

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sipeed/mimiclaw/pkg/routing"
	"github.com/sipeed/mimiclaw/pkg/signature"
)

// StyleHints are precomputed generation switches.
type StyleHints struct {
	Hedge          bool `json:"hedge"`
	Exclaim        bool `json:"exclaim"`
	UseLists       bool `json:"use_lists"`
	UseCode        bool `json:"use_code"`
	FormalRegister bool `json:"formal_register"`
	WarmTone       bool `json:"warm_tone"`
}

// CompiledSignature is the System-1 form of a behavior signature for
// one response category: everything generation needs, precomputed. It
// is a pure function of (signature, category); given the same inputs,
// CompileFrom always produces an identical value. Compiled entries are
// never mutated after creation.
type CompiledSignature struct {
	PersonaID     string                      `json:"persona_id"`
	Category      routing.Category            `json:"category"`
	SourceVersion int                         `json:"source_version"`
	HedgeLevel    float64                     `json:"hedge_level"`
	ToneBias      float64                     `json:"tone_bias"`
	Energy        float64                     `json:"energy"`
	Dominant      []signature.PatternCategory `json:"dominant"`
	Hints         StyleHints                  `json:"hints"`
}

// CompileFrom builds the compiled view of a signature for one response
// category.
func CompileFrom(sig *signature.BehaviorSignature, cat routing.Category) *CompiledSignature {
	w := func(c signature.PatternCategory) float64 {
		return sig.Weights[c]
	}

	compiled := &CompiledSignature{
		PersonaID:     sig.PersonaID,
		Category:      cat,
		SourceVersion: sig.Version,
		HedgeLevel:    w(signature.CategoryHedging),
		ToneBias:      w(signature.CategoryTonePositive) - w(signature.CategoryToneNegative),
		Energy:        w(signature.CategoryEmphasis),
		Dominant:      dominantCategories(sig, 3),
		Hints: StyleHints{
			Hedge:          w(signature.CategoryHedging) >= 0.4,
			Exclaim:        w(signature.CategoryEmphasis) >= 0.5,
			FormalRegister: w(signature.CategoryFormalMarker) >= w(signature.CategoryCasualMarker),
			WarmTone:       w(signature.CategoryTonePositive) > w(signature.CategoryToneNegative),
		},
	}

	// Structural hints depend on the category being served: a code
	// request needs far less structural evidence than smalltalk.
	switch cat {
	case routing.CategoryCode:
		compiled.Hints.UseCode = true
		compiled.Hints.UseLists = w(signature.CategoryStructureList) >= 0.3
	case routing.CategoryTask:
		compiled.Hints.UseCode = w(signature.CategoryStructureCode) >= 0.3
		compiled.Hints.UseLists = w(signature.CategoryStructureList) >= 0.2
	default:
		compiled.Hints.UseCode = w(signature.CategoryStructureCode) >= 0.5
		compiled.Hints.UseLists = w(signature.CategoryStructureList) >= 0.5
	}

	return compiled
}

// dominantCategories returns the top n pattern categories by weight.
// Ties resolve by canonical category order, keeping the result
// deterministic for equal-weight signatures.
func dominantCategories(sig *signature.BehaviorSignature, n int) []signature.PatternCategory {
	cats := signature.Categories()
	sorted := make([]signature.PatternCategory, len(cats))
	copy(sorted, cats)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sig.Weights[sorted[i]] > sig.Weights[sorted[j]]
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]signature.PatternCategory, n)
	copy(out, sorted[:n])
	return out
}

// InconsistencyError reports a cache slot whose stored entry belongs to
// a different persona than the slot claims. The slot is evicted; the
// caller must recompile from the authoritative signature.
type InconsistencyError struct {
	Slot  string
	Owner string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("sigcache: slot for persona %q holds entry owned by %q", e.Slot, e.Owner)
}

type cacheKey struct {
	personaID string
	category  routing.Category
}

// Cache is the concurrent compiled-signature store. Lookups are O(1)
// map reads under a read lock.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*CompiledSignature
}

func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]*CompiledSignature)}
}

// Lookup returns the compiled entry for (persona, category). A nil
// entry with nil error is a clean miss, the normal trigger for
// recompilation. An InconsistencyError means the slot was corrupt; it
// has been evicted and must be recompiled.
func (c *Cache) Lookup(personaID string, cat routing.Category) (*CompiledSignature, error) {
	key := cacheKey{personaID: personaID, category: cat}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if entry.PersonaID != personaID {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, &InconsistencyError{Slot: personaID, Owner: entry.PersonaID}
	}
	return entry, nil
}

// Store places a compiled entry in its persona's slot, replacing any
// previous entry in one step. An entry whose embedded persona id does
// not match the slot is rejected.
func (c *Cache) Store(personaID string, compiled *CompiledSignature) error {
	if compiled.PersonaID != personaID {
		return &InconsistencyError{Slot: personaID, Owner: compiled.PersonaID}
	}

	c.mu.Lock()
	c.entries[cacheKey{personaID: personaID, category: compiled.Category}] = compiled
	c.mu.Unlock()
	return nil
}

// Invalidate drops every cached entry for a persona.
func (c *Cache) Invalidate(personaID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key.personaID == personaID {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Versions reports the newest compiled source version per persona,
// used when snapshotting engine state.
func (c *Cache) Versions() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]int)
	for key, entry := range c.entries {
		if v, ok := out[key.personaID]; !ok || entry.SourceVersion > v {
			out[key.personaID] = entry.SourceVersion
		}
	}
	return out
}
