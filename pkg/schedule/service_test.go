package schedule

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func fastTicks(t *testing.T) {
	t.Helper()
	old := tickInterval
	tickInterval = 5 * time.Millisecond
	t.Cleanup(func() { tickInterval = old })
}

func everySpec(ms int64) Spec {
	return Spec{Kind: KindEvery, EveryMS: &ms}
}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	storePath := filepath.Join(t.TempDir(), "schedule", "jobs.json")
	return NewService(storePath), storePath
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached within deadline")
}

func TestSpecValidate(t *testing.T) {
	sixty := int64(60000)
	zero := int64(0)
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{"valid every", Spec{Kind: KindEvery, EveryMS: &sixty}, false},
		{"zero interval", Spec{Kind: KindEvery, EveryMS: &zero}, true},
		{"missing interval", Spec{Kind: KindEvery}, true},
		{"valid cron", Spec{Kind: KindCron, Expr: "0 9 * * *"}, false},
		{"invalid cron", Spec{Kind: KindCron, Expr: "not a cron"}, true},
		{"empty cron", Spec{Kind: KindCron}, true},
		{"unknown kind", Spec{Kind: "someday"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSpecNextRunEvery(t *testing.T) {
	from := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	next, err := everySpec(90000).NextRun(from)
	if err != nil {
		t.Fatalf("NextRun failed: %v", err)
	}
	want := from.Add(90 * time.Second)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestSpecNextRunCron(t *testing.T) {
	spec := Spec{Kind: KindCron, Expr: "0 9 * * *"}

	from := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	next, err := spec.NextRun(from)
	if err != nil {
		t.Fatalf("NextRun failed: %v", err)
	}
	if want := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}

	from = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	next, err = spec.NextRun(from)
	if err != nil {
		t.Fatalf("NextRun failed: %v", err)
	}
	if want := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestAddJobWritesPrivatePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file permission bits are not reliable on windows")
	}

	storePath := filepath.Join(t.TempDir(), "schedule", "jobs.json")
	if err := os.MkdirAll(filepath.Dir(storePath), 0755); err != nil {
		t.Fatalf("failed to create store dir: %v", err)
	}
	if err := os.WriteFile(storePath, []byte(`{"version":1,"jobs":[]}`), 0644); err != nil {
		t.Fatalf("failed to create seed job store: %v", err)
	}

	s := NewService(storePath)
	if _, err := s.AddJob("perm-test", everySpec(60000), "hedging-victorian", "openai", []string{"hello"}); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	info, err := os.Stat(storePath)
	if err != nil {
		t.Fatalf("stat job store: %v", err)
	}
	if got := info.Mode().Perm(); got != 0600 {
		t.Fatalf("job store perms = %o, want 600", got)
	}
}

func TestAddJobValidation(t *testing.T) {
	s, _ := newTestService(t)
	prompts := []string{"hello"}

	if _, err := s.AddJob("", everySpec(60000), "p1", "openai", prompts); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := s.AddJob("j", everySpec(60000), "", "openai", prompts); err == nil {
		t.Error("expected error for missing persona")
	}
	if _, err := s.AddJob("j", everySpec(60000), "p1", "", prompts); err == nil {
		t.Error("expected error for missing provider")
	}
	if _, err := s.AddJob("j", everySpec(60000), "p1", "openai", nil); err == nil {
		t.Error("expected error for missing prompts")
	}
	if _, err := s.AddJob("j", Spec{Kind: KindCron, Expr: "bad"}, "p1", "openai", prompts); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestAddJobPersistsAndReloads(t *testing.T) {
	s, storePath := newTestService(t)

	job, err := s.AddJob("morning-study", everySpec(60000), "hedging-victorian", "anthropic", []string{"a", "b"})
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected job id")
	}
	if !job.Enabled {
		t.Error("expected new job enabled")
	}
	if job.State.NextRunAtMS == nil {
		t.Error("expected next run scheduled")
	}

	reloaded := NewService(storePath)
	jobs := reloaded.ListJobs(true)
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job after reload, got %d", len(jobs))
	}
	got := jobs[0]
	if got.ID != job.ID || got.Name != "morning-study" {
		t.Errorf("job did not round-trip: %+v", got)
	}
	if got.PersonaID != "hedging-victorian" || got.Provider != "anthropic" {
		t.Errorf("persona/provider did not round-trip: %+v", got)
	}
	if len(got.Prompts) != 2 {
		t.Errorf("expected 2 prompts, got %d", len(got.Prompts))
	}
	if got.Schedule.Kind != KindEvery || got.Schedule.EveryMS == nil || *got.Schedule.EveryMS != 60000 {
		t.Errorf("schedule did not round-trip: %+v", got.Schedule)
	}
}

func TestRemoveJob(t *testing.T) {
	s, storePath := newTestService(t)

	first, err := s.AddJob("first", everySpec(60000), "p1", "openai", []string{"a"})
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if _, err := s.AddJob("second", everySpec(60000), "p1", "openai", []string{"a"}); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	if !s.RemoveJob(first.ID) {
		t.Error("expected RemoveJob to report success")
	}
	if s.RemoveJob("missing") {
		t.Error("expected RemoveJob to report failure for unknown id")
	}

	jobs := NewService(storePath).ListJobs(true)
	if len(jobs) != 1 || jobs[0].Name != "second" {
		t.Errorf("expected only second job to remain, got %+v", jobs)
	}
}

func TestEnableJobToggles(t *testing.T) {
	s, _ := newTestService(t)

	job, err := s.AddJob("toggle", everySpec(60000), "p1", "openai", []string{"a"})
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	disabled := s.EnableJob(job.ID, false)
	if disabled == nil || disabled.Enabled {
		t.Fatalf("expected disabled job, got %+v", disabled)
	}
	if disabled.State.NextRunAtMS != nil {
		t.Error("expected next run cleared when disabled")
	}

	enabled := s.EnableJob(job.ID, true)
	if enabled == nil || !enabled.Enabled {
		t.Fatalf("expected enabled job, got %+v", enabled)
	}
	if enabled.State.NextRunAtMS == nil {
		t.Error("expected next run recomputed when enabled")
	}

	if s.EnableJob("missing", true) != nil {
		t.Error("expected nil for unknown id")
	}
}

func TestListJobsFiltersDisabled(t *testing.T) {
	s, _ := newTestService(t)

	if _, err := s.AddJob("active", everySpec(60000), "p1", "openai", []string{"a"}); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	job, err := s.AddJob("dormant", everySpec(60000), "p1", "openai", []string{"a"})
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	s.EnableJob(job.ID, false)

	if got := s.ListJobs(false); len(got) != 1 || got[0].Name != "active" {
		t.Errorf("expected only active job, got %+v", got)
	}
	if got := s.ListJobs(true); len(got) != 2 {
		t.Errorf("expected both jobs, got %d", len(got))
	}
}

func TestStartRequiresHandler(t *testing.T) {
	s, _ := newTestService(t)
	if err := s.Start(); err == nil {
		t.Error("expected Start to fail without a handler")
	}
}

func TestStartTwice(t *testing.T) {
	s, _ := newTestService(t)
	s.SetOnJob(func(ctx context.Context, job *Job) (string, error) { return "", nil })

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	if err := s.Start(); err == nil {
		t.Error("expected second Start to fail")
	}
}

func TestStopWithoutStart(t *testing.T) {
	s, _ := newTestService(t)
	s.Stop()
}

func TestServiceRunsDueJobs(t *testing.T) {
	fastTicks(t)
	s, _ := newTestService(t)

	var runs atomic.Int64
	var gotPersona atomic.Value
	s.SetOnJob(func(ctx context.Context, job *Job) (string, error) {
		gotPersona.Store(job.PersonaID)
		runs.Add(1)
		return "studied", nil
	})

	job, err := s.AddJob("fast", everySpec(10), "hedging-victorian", "openai", []string{"a"})
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool { return runs.Load() >= 1 })
	s.Stop()

	if persona, _ := gotPersona.Load().(string); persona != "hedging-victorian" {
		t.Errorf("handler saw persona %q", persona)
	}

	got := s.ListJobs(true)[0]
	if got.ID != job.ID {
		t.Fatalf("unexpected job %+v", got)
	}
	if got.State.LastStatus != "ok" {
		t.Errorf("expected last status ok, got %q", got.State.LastStatus)
	}
	if got.State.LastRunAtMS == nil {
		t.Error("expected last run recorded")
	}
	if got.State.NextRunAtMS == nil {
		t.Error("expected next run rescheduled")
	}
}

func TestServiceNeverOverlapsRuns(t *testing.T) {
	fastTicks(t)
	s, _ := newTestService(t)

	var inFlight, maxInFlight, runs atomic.Int64
	s.SetOnJob(func(ctx context.Context, job *Job) (string, error) {
		cur := inFlight.Add(1)
		for {
			prev := maxInFlight.Load()
			if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		inFlight.Add(-1)
		runs.Add(1)
		return "", nil
	})

	if _, err := s.AddJob("busy", everySpec(5), "p1", "openai", []string{"a"}); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool { return runs.Load() >= 2 })
	s.Stop()

	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("expected at most 1 concurrent run, saw %d", got)
	}
}

func TestServiceRecordsFailure(t *testing.T) {
	fastTicks(t)
	s, _ := newTestService(t)

	var runs atomic.Int64
	s.SetOnJob(func(ctx context.Context, job *Job) (string, error) {
		runs.Add(1)
		return "", fmt.Errorf("provider unreachable")
	})

	if _, err := s.AddJob("doomed", everySpec(10), "p1", "openai", []string{"a"}); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool { return runs.Load() >= 1 })
	s.Stop()

	got := s.ListJobs(true)[0]
	if got.State.LastStatus != "error" {
		t.Errorf("expected last status error, got %q", got.State.LastStatus)
	}
	if got.State.LastError != "provider unreachable" {
		t.Errorf("expected last error recorded, got %q", got.State.LastError)
	}
	if !got.Enabled {
		t.Error("failed run must not disable the job")
	}
}

func TestStopCancelsRunningJob(t *testing.T) {
	fastTicks(t)
	s, _ := newTestService(t)

	started := make(chan struct{})
	var once atomic.Bool
	var sawCancel atomic.Bool
	s.SetOnJob(func(ctx context.Context, job *Job) (string, error) {
		if once.CompareAndSwap(false, true) {
			close(started)
		}
		select {
		case <-ctx.Done():
			sawCancel.Store(true)
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
			return "", fmt.Errorf("handler was never cancelled")
		}
	})

	if _, err := s.AddJob("long", everySpec(5), "p1", "openai", []string{"a"}); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}

	begin := time.Now()
	s.Stop()
	if elapsed := time.Since(begin); elapsed > 2*time.Second {
		t.Fatalf("Stop took %v, expected prompt cancellation", elapsed)
	}
	if !sawCancel.Load() {
		t.Error("handler did not observe cancellation")
	}
}
