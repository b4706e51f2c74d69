// Package schedule runs recurring study jobs against configured
// providers. Jobs live in a JSON store on disk and fire through a
// caller-supplied handler, so the service never imports the engine.
package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sipeed/mimiclaw/pkg/logger"
)

const storeVersion = 1

// tickInterval is how often the loop checks for due jobs. Tests
// shorten it.
var tickInterval = time.Second

// Handler runs one due job. The returned summary lands in the log; a
// non-nil error marks the run failed without disabling the job.
type Handler func(ctx context.Context, job *Job) (string, error)

type jobStore struct {
	Version int    `json:"version"`
	Jobs    []*Job `json:"jobs"`
}

// Service owns the job store and the run loop.
type Service struct {
	storePath string

	mu      sync.Mutex
	jobs    []*Job
	running map[string]bool
	onJob   Handler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(storePath string) *Service {
	s := &Service{
		storePath: storePath,
		running:   make(map[string]bool),
	}
	s.load()
	return s
}

// SetOnJob installs the handler invoked for each due job.
func (s *Service) SetOnJob(fn Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onJob = fn
}

// AddJob validates, stores and returns a new enabled job.
func (s *Service) AddJob(name string, spec Spec, personaID, provider string, prompts []string) (*Job, error) {
	if name == "" {
		return nil, fmt.Errorf("job name is required")
	}
	if personaID == "" {
		return nil, fmt.Errorf("persona id is required")
	}
	if provider == "" {
		return nil, fmt.Errorf("provider is required")
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("at least one prompt is required")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	next, err := spec.NextRun(now)
	if err != nil {
		return nil, err
	}
	nextMS := next.UnixMilli()

	job := &Job{
		ID:          uuid.NewString(),
		Name:        name,
		PersonaID:   personaID,
		Provider:    provider,
		Prompts:     append([]string(nil), prompts...),
		Schedule:    spec,
		Enabled:     true,
		State:       State{NextRunAtMS: &nextMS},
		CreatedAtMS: now.UnixMilli(),
		UpdatedAtMS: now.UnixMilli(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	if err := s.save(); err != nil {
		s.jobs = s.jobs[:len(s.jobs)-1]
		return nil, err
	}
	return job, nil
}

// RemoveJob deletes a job by id and reports whether it existed.
func (s *Service) RemoveJob(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, job := range s.jobs {
		if job.ID == id {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			if err := s.save(); err != nil {
				logger.ErrorCF("schedule", "Failed to save job store", map[string]any{"error": err.Error()})
			}
			return true
		}
	}
	return false
}

// EnableJob toggles a job and recomputes its next run when enabling.
// Returns nil when the id is unknown.
func (s *Service) EnableJob(id string, enabled bool) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.findLocked(id)
	if job == nil {
		return nil
	}
	job.Enabled = enabled
	job.UpdatedAtMS = time.Now().UnixMilli()
	if enabled {
		if next, err := job.Schedule.NextRun(time.Now()); err == nil {
			nextMS := next.UnixMilli()
			job.State.NextRunAtMS = &nextMS
		}
	} else {
		job.State.NextRunAtMS = nil
	}
	if err := s.save(); err != nil {
		logger.ErrorCF("schedule", "Failed to save job store", map[string]any{"error": err.Error()})
	}
	return job
}

// ListJobs returns jobs in store order, skipping disabled ones unless
// includeDisabled is set.
func (s *Service) ListJobs(includeDisabled bool) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if !job.Enabled && !includeDisabled {
			continue
		}
		out = append(out, job)
	}
	return out
}

func (s *Service) findLocked(id string) *Job {
	for _, job := range s.jobs {
		if job.ID == id {
			return job
		}
	}
	return nil
}

// Start launches the run loop. A handler must be installed first.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onJob == nil {
		return fmt.Errorf("no job handler configured")
	}
	if s.cancel != nil {
		return fmt.Errorf("schedule service already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(ctx)
	logger.InfoCF("schedule", "Schedule service started", map[string]any{"jobs": len(s.jobs)})
	return nil
}

// Stop cancels the loop and waits for in-flight runs to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	logger.InfoC("schedule", "Schedule service stopped")
}

func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.runDue(ctx, now)
		}
	}
}

// runDue launches a goroutine per due job. The running set keeps a
// job's next firing from starting while an earlier one is in flight.
func (s *Service) runDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	var due []*Job
	for _, job := range s.jobs {
		if !job.Enabled || job.State.NextRunAtMS == nil || s.running[job.ID] {
			continue
		}
		if *job.State.NextRunAtMS <= now.UnixMilli() {
			s.running[job.ID] = true
			due = append(due, job)
		}
	}
	handler := s.onJob
	s.mu.Unlock()

	for _, job := range due {
		s.wg.Add(1)
		go func(job *Job) {
			defer s.wg.Done()
			s.runJob(ctx, handler, job)
		}(job)
	}
}

func (s *Service) runJob(ctx context.Context, handler Handler, job *Job) {
	logger.InfoCF("schedule", "Running job", map[string]any{
		"job":     job.Name,
		"persona": job.PersonaID,
	})
	summary, err := handler(ctx, job)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, job.ID)

	now := time.Now()
	nowMS := now.UnixMilli()
	job.State.LastRunAtMS = &nowMS
	if err != nil {
		job.State.LastStatus = "error"
		job.State.LastError = err.Error()
		logger.WarnCF("schedule", "Job failed", map[string]any{
			"job":   job.Name,
			"error": err.Error(),
		})
	} else {
		job.State.LastStatus = "ok"
		job.State.LastError = ""
		logger.DebugCF("schedule", "Job finished", map[string]any{
			"job":     job.Name,
			"summary": summary,
		})
	}
	if next, nerr := job.Schedule.NextRun(now); nerr == nil {
		nextMS := next.UnixMilli()
		job.State.NextRunAtMS = &nextMS
	} else {
		job.State.NextRunAtMS = nil
	}
	job.UpdatedAtMS = nowMS
	if serr := s.save(); serr != nil {
		logger.ErrorCF("schedule", "Failed to save job store", map[string]any{"error": serr.Error()})
	}
}

func (s *Service) load() {
	if s.storePath == "" {
		return
	}
	data, err := os.ReadFile(s.storePath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.WarnCF("schedule", "Failed to read job store", map[string]any{"error": err.Error()})
		}
		return
	}
	var store jobStore
	if err := json.Unmarshal(data, &store); err != nil {
		logger.WarnCF("schedule", "Failed to parse job store", map[string]any{"error": err.Error()})
		return
	}
	s.jobs = store.Jobs
}

// save writes the store atomically with private permissions. Callers
// hold s.mu.
func (s *Service) save() error {
	if s.storePath == "" {
		return fmt.Errorf("no job store path configured")
	}
	dir := filepath.Dir(s.storePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := json.MarshalIndent(jobStore{Version: storeVersion, Jobs: s.jobs}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode job store: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "jobs-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp store: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write job store: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		cleanup()
		return fmt.Errorf("failed to set store permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync job store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close job store: %w", err)
	}
	if err := os.Rename(tmpPath, s.storePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace job store: %w", err)
	}
	return nil
}
