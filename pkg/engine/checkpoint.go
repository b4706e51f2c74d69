package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sipeed/mimiclaw/pkg/evolution"
	"github.com/sipeed/mimiclaw/pkg/logger"
	"github.com/sipeed/mimiclaw/pkg/persistence"
	"github.com/sipeed/mimiclaw/pkg/persona"
	"github.com/sipeed/mimiclaw/pkg/sigcache"
	"github.com/sipeed/mimiclaw/pkg/templates"
)

// ErrNoPersistence is returned by snapshot operations on an engine
// built without a persistence manager.
var ErrNoPersistence = errors.New("no persistence manager attached")

// milestoneCheckpointLocked fires from the tracker's milestone hook,
// so the engine mutex is already held. Checkpoint ids are derived from
// the milestone, which keeps re-crossings after a restore idempotent.
func (e *Engine) milestoneCheckpointLocked(personaID string, milestone int, convergence float64) {
	if e.persist == nil {
		return
	}
	id := fmt.Sprintf("auto-%s-%d", personaID, milestone)
	if e.persist.Has(persistence.KindCheckpoint, id) {
		return
	}
	cp := e.buildCheckpointLocked(id, fmt.Sprintf("milestone %d%%", milestone))
	if err := e.persist.SaveCheckpoint(cp); err != nil {
		logger.ErrorCF("engine", "Milestone checkpoint failed", map[string]any{
			"persona":   personaID,
			"milestone": milestone,
			"error":     err.Error(),
		})
		return
	}
	logger.InfoCF("engine", "Milestone checkpoint saved", map[string]any{
		"persona":     personaID,
		"milestone":   milestone,
		"convergence": convergence,
		"checkpoint":  id,
	})
}

// buildCheckpointLocked snapshots the whole engine. Personas are
// ordered by id so the same state always produces the same checkpoint.
func (e *Engine) buildCheckpointLocked(id, label string) *persistence.EngineCheckpoint {
	cp := &persistence.EngineCheckpoint{
		ID:            id,
		Label:         label,
		CreatedAt:     time.Now(),
		ActivePersona: e.active,
		Seed:          e.store.Seed(),
		CacheVersions: e.cache.Versions(),
		Evolution:     make(map[string]evolution.State, len(e.trackers)),
		Modulations:   e.store.Modulations(),
	}

	ids := make([]string, 0, len(e.personas))
	for pid := range e.personas {
		ids = append(ids, pid)
	}
	sort.Strings(ids)
	for _, pid := range ids {
		cp.Personas = append(cp.Personas, persistence.SnapshotPersona(e.personas[pid]))
	}

	for pid, tr := range e.trackers {
		cp.Evolution[pid] = tr.Snapshot()
	}
	return cp
}

// SaveCheckpoint snapshots the whole engine under a fresh id and
// persists it. Returns the checkpoint id.
func (e *Engine) SaveCheckpoint(label string) (string, error) {
	if err := e.gate("save"); err != nil {
		return "", err
	}
	if e.persist == nil {
		return "", ErrNoPersistence
	}

	e.mu.Lock()
	cp := e.buildCheckpointLocked(uuid.NewString(), label)
	e.mu.Unlock()

	if err := e.persist.SaveCheckpoint(cp); err != nil {
		return "", fmt.Errorf("failed to save checkpoint: %w", err)
	}
	logger.InfoCF("engine", "Checkpoint saved", map[string]any{
		"checkpoint": cp.ID,
		"personas":   len(cp.Personas),
	})
	return cp.ID, nil
}

// LoadCheckpoint replaces the engine's entire mutable state with a
// stored checkpoint. The replacement is built off-lock and swapped in
// atomically; a failed load leaves the running state untouched. The
// cache comes back cold and refills on demand.
func (e *Engine) LoadCheckpoint(id string) error {
	if err := e.gate("load"); err != nil {
		return err
	}
	if e.persist == nil {
		return ErrNoPersistence
	}

	cp, err := e.persist.LoadCheckpoint(id)
	if err != nil {
		return err
	}
	if len(cp.Personas) == 0 {
		return fmt.Errorf("checkpoint %s holds no personas", id)
	}

	personas := make(map[string]*persona.CompoundPersona, len(cp.Personas))
	for _, snap := range cp.Personas {
		personas[snap.ID] = snap.Compound()
	}

	store := templates.NewStore(cp.Seed)
	for _, snap := range cp.Personas {
		if mod, ok := cp.Modulations[snap.ID]; ok {
			store.Library(snap.ID, snap.Name).Restore(mod)
		}
	}

	trackers := make(map[string]*evolution.Tracker, len(cp.Evolution))
	for pid, state := range cp.Evolution {
		if _, ok := personas[pid]; !ok {
			continue
		}
		tr := e.newTracker(pid)
		tr.Restore(state)
		trackers[pid] = tr
	}

	active := cp.ActivePersona
	if _, ok := personas[active]; !ok {
		ids := make([]string, 0, len(personas))
		for pid := range personas {
			ids = append(ids, pid)
		}
		sort.Strings(ids)
		active = ids[0]
	}

	e.mu.Lock()
	e.personas = personas
	e.store = store
	e.trackers = trackers
	e.cache = sigcache.NewCache()
	e.lastText = make(map[fallbackKey]string)
	e.active = active
	e.mu.Unlock()

	logger.InfoCF("engine", "Checkpoint loaded", map[string]any{
		"checkpoint": id,
		"personas":   len(personas),
		"active":     active,
	})
	return nil
}

// SavePersonaSnapshot persists one persona. An empty name saves the
// active persona. Returns the snapshot id.
func (e *Engine) SavePersonaSnapshot(name string) (string, error) {
	if err := e.gate("save"); err != nil {
		return "", err
	}
	if e.persist == nil {
		return "", ErrNoPersistence
	}

	e.mu.Lock()
	id := name
	if id == "" {
		id = e.active
	}
	cp, ok := e.personas[id]
	if !ok {
		e.mu.Unlock()
		return "", &UnknownPersonaError{Name: id}
	}
	snap := persistence.SnapshotPersona(cp)
	e.mu.Unlock()

	if err := e.persist.SavePersona(snap); err != nil {
		return "", fmt.Errorf("failed to save persona: %w", err)
	}
	return snap.ID, nil
}

// LoadPersonaSnapshot restores one stored persona, makes it active and
// drops its stale cache entries.
func (e *Engine) LoadPersonaSnapshot(id string) error {
	if err := e.gate("load"); err != nil {
		return err
	}
	if e.persist == nil {
		return ErrNoPersistence
	}

	snap, err := e.persist.LoadPersona(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.personas[snap.ID] = snap.Compound()
	e.cache.Invalidate(snap.ID)
	e.active = snap.ID
	e.mu.Unlock()

	logger.InfoCF("engine", "Persona loaded", map[string]any{"persona": snap.ID})
	return nil
}

// ExportPersona saves a persona snapshot and copies it to dest, a path
// outside the managed tree.
func (e *Engine) ExportPersona(name, dest string) error {
	id, err := e.SavePersonaSnapshot(name)
	if err != nil {
		return err
	}
	return e.persist.ExportPersona(id, dest)
}

// SaveProfile persists one persona's profile by itself. An empty name
// saves the active persona's. Returns the profile id.
func (e *Engine) SaveProfile(name string) (string, error) {
	if err := e.gate("save"); err != nil {
		return "", err
	}
	if e.persist == nil {
		return "", ErrNoPersistence
	}

	e.mu.Lock()
	id := name
	if id == "" {
		id = e.active
	}
	cp, ok := e.personas[id]
	if !ok {
		e.mu.Unlock()
		return "", &UnknownPersonaError{Name: id}
	}
	profile := cp.Profile.Clone()
	e.mu.Unlock()

	if err := e.persist.SaveProfile(profile); err != nil {
		return "", fmt.Errorf("failed to save profile: %w", err)
	}
	return profile.ID, nil
}

// LoadProfile restores a stored profile, or reads a hand-authored
// profile file when ref is a path. The profile lands on the persona
// carrying its id, created fresh when absent, and that persona becomes
// active. The persona's learned signature is untouched.
func (e *Engine) LoadProfile(ref string) error {
	if err := e.gate("load"); err != nil {
		return err
	}

	var (
		p   *persona.Profile
		err error
	)
	if profilePath(ref) {
		p, err = persona.LoadProfileFile(ref)
	} else {
		if e.persist == nil {
			return ErrNoPersistence
		}
		p, err = e.persist.LoadProfile(ref)
	}
	if err != nil {
		return err
	}

	e.mu.Lock()
	if cp, ok := e.personas[p.ID]; ok {
		cp.Profile = p
	} else {
		e.personas[p.ID] = persona.New(p, persona.CapabilityChat)
	}
	e.active = p.ID
	e.mu.Unlock()

	logger.InfoCF("engine", "Profile loaded", map[string]any{"persona": p.ID})
	return nil
}

// ExportProfile writes one persona's profile as a standalone editable
// file at dest. An edited copy comes back through LoadProfile.
func (e *Engine) ExportProfile(name, dest string) error {
	if err := e.gate("save"); err != nil {
		return err
	}

	e.mu.Lock()
	id := name
	if id == "" {
		id = e.active
	}
	cp, ok := e.personas[id]
	if !ok {
		e.mu.Unlock()
		return &UnknownPersonaError{Name: id}
	}
	profile := cp.Profile.Clone()
	e.mu.Unlock()

	return persona.SaveProfileFile(dest, profile)
}

// profilePath distinguishes file references from manifest ids. Manifest
// ids never contain separators or an extension.
func profilePath(ref string) bool {
	return strings.ContainsAny(ref, `/\`) || strings.HasSuffix(ref, ".json")
}

// SaveSession persists the running session transcript. Returns the
// session id.
func (e *Engine) SaveSession() (string, error) {
	if err := e.gate("save"); err != nil {
		return "", err
	}
	if e.persist == nil {
		return "", ErrNoPersistence
	}

	e.mu.Lock()
	log := &persistence.SessionLog{
		ID:        e.session.ID,
		PersonaID: e.session.PersonaID,
		StartedAt: e.session.StartedAt,
		Entries:   append([]persistence.SessionEntry(nil), e.session.Entries...),
	}
	e.mu.Unlock()

	if err := e.persist.SaveSession(log); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return log.ID, nil
}
