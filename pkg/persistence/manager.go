// Package persistence stores personas, profiles, session logs, and
// engine checkpoints as JSON artifacts under one indexed directory
// tree. Every write goes through a temp file and rename, so a failed
// save never corrupts the previous good copy, and every saved artifact
// is recorded in a single append-only manifest.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Kind tags the artifact families the manager knows about.
type Kind string

const (
	KindPersona    Kind = "persona"
	KindProfile    Kind = "profile"
	KindSession    Kind = "session"
	KindCheckpoint Kind = "checkpoint"
)

const manifestFilename = "manifest.json"

func kindDir(kind Kind) (string, bool) {
	switch kind {
	case KindPersona:
		return "personas", true
	case KindProfile:
		return "profiles", true
	case KindSession:
		return "sessions", true
	case KindCheckpoint:
		return "checkpoints", true
	}
	return "", false
}

// ManifestEntry records one saved artifact.
type ManifestEntry struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	SavedAt time.Time `json:"saved_at"`
}

type manifest struct {
	Version int             `json:"version"`
	Entries []ManifestEntry `json:"entries"`
}

// ManifestError reports a checkpoint whose persona references are not
// listed in the manifest. Such a checkpoint is rejected, not partially
// restored.
type ManifestError struct {
	CheckpointID string
	Missing      []string
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("checkpoint %q references personas missing from manifest: %s",
		e.CheckpointID, strings.Join(e.Missing, ", "))
}

// Manager owns one artifact tree and its manifest.
type Manager struct {
	root         string
	mu           sync.RWMutex
	manifest     manifest
	manifestPath string
}

// NewManager opens (or initializes) the artifact tree rooted at dir.
func NewManager(root string) (*Manager, error) {
	for _, kind := range []Kind{KindPersona, KindProfile, KindSession, KindCheckpoint} {
		sub, _ := kindDir(kind)
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", sub, err)
		}
	}

	m := &Manager{
		root:         root,
		manifestPath: filepath.Join(root, manifestFilename),
		manifest:     manifest{Version: 1},
	}
	if err := m.loadManifest(); err != nil {
		return nil, err
	}
	return m, nil
}

// Root returns the tree's root directory.
func (m *Manager) Root() string {
	return m.root
}

// Has reports whether the manifest lists an artifact of the given kind
// and id.
func (m *Manager) Has(kind Kind, id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.manifest.Entries {
		if e.Kind == kind && e.ID == id {
			return true
		}
	}
	return false
}

// Entries returns the full manifest history in append order.
func (m *Manager) Entries() []ManifestEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]ManifestEntry(nil), m.manifest.Entries...)
}

// List returns the latest manifest entry per id for one kind, newest
// first.
func (m *Manager) List(kind Kind) []ManifestEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := make(map[string]ManifestEntry)
	var order []string
	for _, e := range m.manifest.Entries {
		if e.Kind != kind {
			continue
		}
		if _, seen := latest[e.ID]; !seen {
			order = append(order, e.ID)
		}
		latest[e.ID] = e
	}

	out := make([]ManifestEntry, 0, len(latest))
	for i := len(order) - 1; i >= 0; i-- {
		out = append(out, latest[order[i]])
	}
	return out
}

// saveArtifact writes one artifact atomically and appends its manifest
// entry.
func (m *Manager) saveArtifact(kind Kind, id string, v any) error {
	path, err := m.artifactPath(kind, id)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %q: %w", kind, id, err)
	}
	if err := writeFileAtomic(filepath.Dir(path), path, data); err != nil {
		return fmt.Errorf("failed to write %s %q: %w", kind, id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifest.Entries = append(m.manifest.Entries, ManifestEntry{
		ID:      id,
		Kind:    kind,
		SavedAt: time.Now(),
	})
	if err := m.saveManifestLocked(); err != nil {
		return fmt.Errorf("failed to update manifest for %s %q: %w", kind, id, err)
	}
	return nil
}

// loadArtifact reads one artifact into out. Missing files surface as
// os.ErrNotExist wrapped with context.
func (m *Manager) loadArtifact(kind Kind, id string, out any) error {
	path, err := m.artifactPath(kind, id)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s %q: %w", kind, id, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s %q: %w", kind, id, err)
	}
	return nil
}

func (m *Manager) artifactPath(kind Kind, id string) (string, error) {
	sub, ok := kindDir(kind)
	if !ok {
		return "", fmt.Errorf("unknown artifact kind %q", kind)
	}

	filename := strings.ReplaceAll(id, ":", "_")
	if filename == "" || filename == "." || !filepath.IsLocal(filename) || strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("invalid artifact id %q: %w", id, os.ErrInvalid)
	}
	return filepath.Join(m.root, sub, filename+".json"), nil
}

func (m *Manager) loadManifest() error {
	data, err := os.ReadFile(m.manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	var loaded manifest
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to parse manifest: %w", err)
	}
	if loaded.Version == 0 {
		loaded.Version = 1
	}
	m.manifest = loaded
	return nil
}

// saveManifestLocked writes the manifest atomically. Must be called
// with the lock held.
func (m *Manager) saveManifestLocked() error {
	m.manifest.Version = 1
	data, err := json.MarshalIndent(m.manifest, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(m.root, m.manifestPath, data)
}

// writeFileAtomic writes data through a temp file in dir and renames it
// over path. The temp file is removed if any step fails.
func writeFileAtomic(dir, path string, data []byte) error {
	tmpFile, err := os.CreateTemp(dir, ".write-*.tmp")
	if err != nil {
		return err
	}

	tmpPath := tmpFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	cleanup = false
	return nil
}
