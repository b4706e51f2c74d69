// Package templates turns a routed request into styled response text.
// Fragment pools are static; which fragments fire is a pure function of
// the persona's profile, the compiled signature, and the library's
// modulation state, with a seed-derived RNG choosing among candidates.
// Identical inputs always produce identical bytes.
package templates

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/sipeed/mimiclaw/pkg/persona"
	"github.com/sipeed/mimiclaw/pkg/routing"
	"github.com/sipeed/mimiclaw/pkg/sigcache"
)

// Store owns the per-persona libraries and the generation seed.
type Store struct {
	mu        sync.Mutex
	seed      int64
	libraries map[string]*Library
}

// NewStore creates a template store. A zero seed derives one from the
// clock; any other value makes generation fully reproducible.
func NewStore(seed int64) *Store {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Store{
		seed:      seed,
		libraries: make(map[string]*Library),
	}
}

// Seed returns the store's generation seed.
func (s *Store) Seed() int64 {
	return s.seed
}

// Library returns the persona's library, creating and voice-seeding it
// on first use.
func (s *Store) Library(personaID, personaName string) *Library {
	s.mu.Lock()
	defer s.mu.Unlock()

	lib, ok := s.libraries[personaID]
	if !ok {
		lib = newLibrary(personaID, personaName)
		s.libraries[personaID] = lib
	}
	return lib
}

// Modulations snapshots every library's modulation state for
// checkpointing.
func (s *Store) Modulations() map[string]Modulation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Modulation, len(s.libraries))
	for id, lib := range s.libraries {
		out[id] = lib.Snapshot()
	}
	return out
}

// Generate produces response text for a routed request. The compiled
// signature must belong to the profile's persona.
func (s *Store) Generate(req string, cat routing.Category, p *persona.Profile, compiled *sigcache.CompiledSignature) (string, error) {
	if p == nil {
		return "", fmt.Errorf("templates: nil profile")
	}
	if compiled == nil {
		return "", fmt.Errorf("templates: nil compiled signature")
	}
	if compiled.PersonaID != p.ID {
		return "", fmt.Errorf("templates: compiled signature owner %q does not match profile %q", compiled.PersonaID, p.ID)
	}

	lib := s.Library(p.ID, p.Name)
	mod := lib.Snapshot()
	rng := s.deriveRNG(req, cat, p, compiled, mod)
	reg := registerFor(p.Get(persona.AxisFormality))

	verbosity := p.Get(persona.AxisVerbosity)
	terse := verbosity < 0.2

	var sentences []string

	if cat == routing.CategoryGreeting || (!terse && verbosity >= 0.6 && cat != routing.CategoryFarewell) {
		pool := append(append([]string{}, openers[reg]...), lib.voice.openerExtras...)
		sentences = append(sentences, pick(rng, pool))
	}

	body := pick(rng, bodies[cat][reg])
	hedgeStrength := clamp01(0.55*p.Get(persona.AxisHedging) + 0.30*compiled.HedgeLevel + 0.15*mod.Hedge)
	if rng.Float64() < hedgeStrength {
		body = joinHedge(pick(rng, hedges), body)
	}
	sentences = append(sentences, body)

	if !terse && verbosity >= 0.55 {
		sentences = append(sentences, pick(rng, elaborations[reg]))
	}

	if !terse && p.Get(persona.AxisHumor) >= 0.6 {
		pool := append(append([]string{}, quips...), lib.voice.quipExtras...)
		sentences = append(sentences, pick(rng, pool))
	}

	var blocks []string
	blocks = append(blocks, strings.Join(sentences, " "))

	if compiled.Hints.UseLists && (cat == routing.CategoryTask || cat == routing.CategoryQuestion) {
		scaffold, ok := listScaffolds[cat]
		if !ok {
			blocks = append(blocks, defaultListScaffold)
		} else {
			blocks = append(blocks, pick(rng, scaffold))
		}
	}

	if compiled.Hints.UseCode && cat == routing.CategoryCode {
		blocks = append(blocks, pick(rng, codeScaffolds))
	}

	if closer := s.closerFor(rng, lib, reg, cat, p, mod, terse); closer != "" {
		blocks = append(blocks, closer)
	}

	text := strings.Join(blocks, "\n\n")

	if compiled.Hints.Exclaim || p.Get(persona.AxisEnthusiasm) >= 0.75 {
		text = exclaim(text)
	}

	return text, nil
}

// NeutralResponse is the deterministic fallback when generation cannot
// run: no randomness, no persona styling.
func NeutralResponse(cat routing.Category) string {
	if text, ok := neutralFallbacks[cat]; ok {
		return text
	}
	return neutralFallbacks[routing.CategorySmalltalk]
}

func (s *Store) closerFor(rng *rand.Rand, lib *Library, reg register, cat routing.Category, p *persona.Profile, mod Modulation, terse bool) string {
	if terse || cat == routing.CategoryFarewell || cat == routing.CategoryGreeting {
		return ""
	}

	if p.Get(persona.AxisWarmth) >= 0.65 || mod.Tone >= 0.3 {
		pool := append(append([]string{}, warmClosers...), lib.voice.closerExtras...)
		return pick(rng, pool)
	}

	switch reg {
	case registerFormal:
		pool := append(append([]string{}, formalClosers...), lib.voice.closerExtras...)
		return pick(rng, pool)
	case registerNeutral:
		if p.Get(persona.AxisVerbosity) >= 0.4 {
			return pick(rng, neutralClosers)
		}
	}
	if len(lib.voice.closerExtras) > 0 {
		return pick(rng, lib.voice.closerExtras)
	}
	return ""
}

// deriveRNG seeds a generator from everything the response may depend
// on. Same store seed and same inputs give the same draws, which is
// what makes cache-hit responses byte-identical to the compile-path
// response they shadow.
func (s *Store) deriveRNG(req string, cat routing.Category, p *persona.Profile, compiled *sigcache.CompiledSignature, mod Modulation) *rand.Rand {
	h := fnv.New64a()

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(s.seed))
	h.Write(buf[:])

	h.Write([]byte(p.ID))
	h.Write([]byte(cat))
	h.Write([]byte(req))

	binary.LittleEndian.PutUint64(buf[:], uint64(compiled.SourceVersion))
	h.Write(buf[:])

	binary.LittleEndian.PutUint64(buf[:], uint64(int64(mod.Hedge*1000)))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(mod.Tone*1000)))
	h.Write(buf[:])

	for _, axis := range persona.Axes() {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.Get(axis)))
		h.Write(buf[:])
	}

	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func registerFor(formality float64) register {
	switch {
	case formality >= 0.65:
		return registerFormal
	case formality <= 0.35:
		return registerCasual
	default:
		return registerNeutral
	}
}

func pick(rng *rand.Rand, pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rng.Intn(len(pool))]
}

// joinHedge prefixes a body sentence with a hedge phrase, lowering the
// body's leading rune unless it starts with "I".
func joinHedge(hedge, body string) string {
	if body == "" {
		return hedge
	}
	runes := []rune(body)
	if !strings.HasPrefix(body, "I ") && !strings.HasPrefix(body, "I'") {
		runes[0] = unicode.ToLower(runes[0])
	}
	return hedge + " " + string(runes)
}

// exclaim upgrades the final period of the first paragraph to an
// exclamation mark.
func exclaim(text string) string {
	paragraphs := strings.SplitN(text, "\n\n", 2)
	first := paragraphs[0]
	if strings.HasSuffix(first, ".") && !strings.HasSuffix(first, "..") {
		first = strings.TrimSuffix(first, ".") + "!"
	}
	if len(paragraphs) == 2 {
		return first + "\n\n" + paragraphs[1]
	}
	return first
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
