package persistence

import (
	"fmt"
	"os"
	"time"

	"github.com/sipeed/mimiclaw/pkg/evolution"
	"github.com/sipeed/mimiclaw/pkg/persona"
	"github.com/sipeed/mimiclaw/pkg/signature"
	"github.com/sipeed/mimiclaw/pkg/templates"
)

// PersonaSnapshot is a compound persona frozen for storage: profile
// axes, signature weights, and capabilities all survive a round trip
// exactly.
type PersonaSnapshot struct {
	ID           string                      `json:"id"`
	Name         string                      `json:"name"`
	Profile      persona.Profile             `json:"profile"`
	Signature    signature.BehaviorSignature `json:"signature"`
	Capabilities []persona.Capability        `json:"capabilities"`
	SavedAt      time.Time                   `json:"saved_at"`
}

// SnapshotPersona freezes a compound persona.
func SnapshotPersona(cp *persona.CompoundPersona) PersonaSnapshot {
	clone := cp.Clone()
	return PersonaSnapshot{
		ID:           clone.ID(),
		Name:         clone.Name(),
		Profile:      *clone.Profile,
		Signature:    *clone.Signature,
		Capabilities: clone.Capabilities,
		SavedAt:      time.Now(),
	}
}

// Compound rebuilds the runtime persona from a snapshot.
func (s PersonaSnapshot) Compound() *persona.CompoundPersona {
	return &persona.CompoundPersona{
		Profile:      s.Profile.Clone(),
		Signature:    s.Signature.Clone(),
		Capabilities: append([]persona.Capability(nil), s.Capabilities...),
	}
}

// SessionEntry is one handled request in a session log.
type SessionEntry struct {
	At          time.Time `json:"at"`
	Request     string    `json:"request"`
	Category    string    `json:"category"`
	Response    string    `json:"response"`
	Convergence float64   `json:"convergence"`
	BlockReason string    `json:"block_reason,omitempty"`
}

// SessionLog is the transcript of one engine session.
type SessionLog struct {
	ID        string         `json:"id"`
	PersonaID string         `json:"persona_id"`
	StartedAt time.Time      `json:"started_at"`
	Entries   []SessionEntry `json:"entries"`
}

// Append adds one entry to the transcript.
func (l *SessionLog) Append(e SessionEntry) {
	l.Entries = append(l.Entries, e)
}

// EngineCheckpoint is a whole-engine snapshot: every persona, the cache
// versions they were compiled at, evolution state, and template
// modulation, restorable as a unit.
type EngineCheckpoint struct {
	ID            string                          `json:"id"`
	Label         string                          `json:"label,omitempty"`
	CreatedAt     time.Time                       `json:"created_at"`
	ActivePersona string                          `json:"active_persona"`
	Seed          int64                           `json:"seed"`
	Personas      []PersonaSnapshot               `json:"personas"`
	CacheVersions map[string]int                  `json:"cache_versions,omitempty"`
	Evolution     map[string]evolution.State      `json:"evolution,omitempty"`
	Modulations   map[string]templates.Modulation `json:"modulations,omitempty"`
}

// SavePersona writes a persona snapshot and indexes it.
func (m *Manager) SavePersona(s PersonaSnapshot) error {
	if s.ID == "" {
		return fmt.Errorf("persona snapshot has no id")
	}
	return m.saveArtifact(KindPersona, s.ID, s)
}

// LoadPersona reads a persona snapshot back.
func (m *Manager) LoadPersona(id string) (PersonaSnapshot, error) {
	var s PersonaSnapshot
	if err := m.loadArtifact(KindPersona, id, &s); err != nil {
		return PersonaSnapshot{}, err
	}
	return s, nil
}

// SaveProfile writes a bare profile.
func (m *Manager) SaveProfile(p *persona.Profile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid profile: %w", err)
	}
	return m.saveArtifact(KindProfile, p.ID, p)
}

// LoadProfile reads a profile and validates it before returning.
func (m *Manager) LoadProfile(id string) (*persona.Profile, error) {
	var p persona.Profile
	if err := m.loadArtifact(KindProfile, id, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("stored profile %q is invalid: %w", id, err)
	}
	return &p, nil
}

// SaveSession writes a session transcript.
func (m *Manager) SaveSession(log *SessionLog) error {
	if log.ID == "" {
		return fmt.Errorf("session log has no id")
	}
	return m.saveArtifact(KindSession, log.ID, log)
}

// LoadSession reads a session transcript back.
func (m *Manager) LoadSession(id string) (*SessionLog, error) {
	var log SessionLog
	if err := m.loadArtifact(KindSession, id, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

// SaveCheckpoint writes every persona embedded in the checkpoint first,
// then the checkpoint itself, so the manifest always lists the personas
// a stored checkpoint references.
func (m *Manager) SaveCheckpoint(cp *EngineCheckpoint) error {
	if cp.ID == "" {
		return fmt.Errorf("checkpoint has no id")
	}
	for _, snapshot := range cp.Personas {
		if err := m.SavePersona(snapshot); err != nil {
			return err
		}
	}
	return m.saveArtifact(KindCheckpoint, cp.ID, cp)
}

// LoadCheckpoint reads a checkpoint and rejects it with a ManifestError
// if any persona it references is missing from the manifest.
func (m *Manager) LoadCheckpoint(id string) (*EngineCheckpoint, error) {
	var cp EngineCheckpoint
	if err := m.loadArtifact(KindCheckpoint, id, &cp); err != nil {
		return nil, err
	}

	var missing []string
	for _, snapshot := range cp.Personas {
		if !m.Has(KindPersona, snapshot.ID) {
			missing = append(missing, snapshot.ID)
		}
	}
	if len(missing) > 0 {
		return nil, &ManifestError{CheckpointID: id, Missing: missing}
	}
	return &cp, nil
}

// ExportPersona copies a stored persona snapshot to an arbitrary path
// outside the managed tree.
func (m *Manager) ExportPersona(id, dest string) error {
	path, err := m.artifactPath(KindPersona, id)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read persona %q: %w", id, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("failed to export persona %q: %w", id, err)
	}
	return nil
}
