package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sipeed/mimiclaw/pkg/evolution"
	"github.com/sipeed/mimiclaw/pkg/logger"
	"github.com/sipeed/mimiclaw/pkg/obslog"
	"github.com/sipeed/mimiclaw/pkg/persona"
	"github.com/sipeed/mimiclaw/pkg/providers"
	"github.com/sipeed/mimiclaw/pkg/routing"
	"github.com/sipeed/mimiclaw/pkg/sigcache"
	"github.com/sipeed/mimiclaw/pkg/signature"
)

// ObserveResult reports one provider exchange folded into the active
// persona.
type ObserveResult struct {
	Provider    string
	Model       string
	Response    string
	Latency     time.Duration
	Tokens      int
	Quality     float64
	Convergence float64
	Phase       evolution.Phase
	Samples     int
}

// Observe sends one prompt to a provider and folds the response into
// the active persona: signature merge, profile refinement, full cache
// recompile, one tracker step. The network call runs outside the
// engine lock.
func (e *Engine) Observe(ctx context.Context, providerName, prompt string) (ObserveResult, error) {
	if err := e.gate("observe"); err != nil {
		return ObserveResult{}, err
	}
	cfg, err := e.providerConfig(providerName)
	if err != nil {
		return ObserveResult{}, err
	}

	e.mu.Lock()
	id := e.active
	e.mu.Unlock()

	res, err := e.client.Send(ctx, cfg, prompt)
	if err != nil {
		return ObserveResult{}, err
	}

	e.mu.Lock()
	cp, ok := e.personas[id]
	if !ok {
		e.mu.Unlock()
		return ObserveResult{}, &UnknownPersonaError{Name: id}
	}

	counts := signature.Analyze(res.Text)
	merged := cp.Signature.Merge(counts)
	cp.Signature = merged

	delta := persona.CorrectionToward(cp.Profile, merged, observeRate, persona.ProvenanceObservation)
	cp.Profile.ApplyCorrection(delta)
	e.recompileLocked(cp)

	sample := signature.BuildSignature(id, res.Text)
	quality := signature.Similarity(merged, sample)
	tr := e.trackerForLocked(id)
	tr.Step(quality)
	tr.AddExemplar(evolution.Exemplar{Text: res.Text, Quality: quality, Source: providerName})

	out := ObserveResult{
		Provider:    providerName,
		Model:       res.Model,
		Response:    res.Text,
		Latency:     res.Latency,
		Tokens:      res.TokenCount,
		Quality:     quality,
		Convergence: tr.Convergence(),
		Phase:       tr.Phase(),
		Samples:     merged.SampleCount,
	}
	e.mu.Unlock()

	e.archiveRow(ctx, obslog.Row{
		PersonaID: id,
		Provider:  providerName,
		Model:     res.Model,
		Prompt:    prompt,
		Response:  res.Text,
		LatencyMS: res.Latency.Milliseconds(),
		Tokens:    res.TokenCount,
		Quality:   quality,
	})

	logger.InfoCF("engine", "Observation folded", map[string]any{
		"persona":  id,
		"provider": providerName,
		"quality":  quality,
		"samples":  out.Samples,
	})
	return out, nil
}

// PromptOutcome is one prompt's result within a study batch.
type PromptOutcome struct {
	Prompt  string
	Quality float64
	Err     error
}

// StudyResult reports a study batch. Prompts holds one outcome per
// input prompt in order.
type StudyResult struct {
	Provider    string
	Succeeded   int
	Failed      int
	Prompts     []PromptOutcome
	Convergence float64
	Phase       evolution.Phase
	Samples     int
}

// Study runs a batch of prompts against one provider and rebuilds the
// active persona's signature from the whole retained corpus: the
// training buffer's exemplars plus this batch's successes. Individual
// prompt failures do not abort the batch; a batch with zero successes
// leaves the persona untouched.
func (e *Engine) Study(ctx context.Context, providerName string, prompts []string) (StudyResult, error) {
	if err := e.gate("study"); err != nil {
		return StudyResult{}, err
	}
	if len(prompts) == 0 {
		return StudyResult{}, fmt.Errorf("study requires at least one prompt")
	}
	cfg, err := e.providerConfig(providerName)
	if err != nil {
		return StudyResult{}, err
	}

	e.mu.Lock()
	id := e.active
	e.mu.Unlock()

	out := StudyResult{
		Provider: providerName,
		Prompts:  make([]PromptOutcome, len(prompts)),
	}
	results := make([]providers.Result, len(prompts))
	for i, prompt := range prompts {
		out.Prompts[i] = PromptOutcome{Prompt: prompt}
		res, err := e.client.Send(ctx, cfg, prompt)
		if err != nil {
			out.Prompts[i].Err = err
			out.Failed++
			continue
		}
		results[i] = res
		out.Succeeded++
	}

	e.mu.Lock()
	cp, ok := e.personas[id]
	if !ok {
		e.mu.Unlock()
		return StudyResult{}, &UnknownPersonaError{Name: id}
	}
	tr := e.trackerForLocked(id)

	if out.Succeeded > 0 {
		corpus := make([]string, 0, tr.BufferLen()+out.Succeeded)
		for _, ex := range tr.Exemplars() {
			corpus = append(corpus, ex.Text)
		}
		for i := range prompts {
			if out.Prompts[i].Err == nil {
				corpus = append(corpus, results[i].Text)
			}
		}

		rebuilt := signature.BuildSignature(id, corpus...)
		rebuilt.Version = cp.Signature.Version + 1
		cp.Signature = rebuilt

		delta := persona.CorrectionToward(cp.Profile, rebuilt, observeRate, persona.ProvenanceObservation)
		cp.Profile.ApplyCorrection(delta)
		e.recompileLocked(cp)

		for i := range prompts {
			if out.Prompts[i].Err != nil {
				continue
			}
			sample := signature.BuildSignature(id, results[i].Text)
			quality := signature.Similarity(rebuilt, sample)
			out.Prompts[i].Quality = quality
			tr.Step(quality)
			tr.AddExemplar(evolution.Exemplar{Text: results[i].Text, Quality: quality, Source: providerName})
		}
	}

	out.Convergence = tr.Convergence()
	out.Phase = tr.Phase()
	out.Samples = cp.Signature.SampleCount
	e.mu.Unlock()

	for i := range prompts {
		if out.Prompts[i].Err != nil {
			continue
		}
		e.archiveRow(ctx, obslog.Row{
			PersonaID: id,
			Provider:  providerName,
			Model:     results[i].Model,
			Prompt:    prompts[i],
			Response:  results[i].Text,
			LatencyMS: results[i].Latency.Milliseconds(),
			Tokens:    results[i].TokenCount,
			Quality:   out.Prompts[i].Quality,
		})
	}

	logger.InfoCF("engine", "Study batch complete", map[string]any{
		"persona":   id,
		"provider":  providerName,
		"succeeded": out.Succeeded,
		"failed":    out.Failed,
	})
	return out, nil
}

// CompareEntry is one provider's showing against the target signature.
type CompareEntry struct {
	Provider   string
	Model      string
	Response   string
	Latency    time.Duration
	Tokens     int
	Similarity float64
	Dominant   []string
	Err        error
}

// CompareResult ranks providers by how closely their responses match
// the active persona's signature.
type CompareResult struct {
	PersonaID string
	Prompt    string
	Entries   []CompareEntry
}

// Compare fans one prompt out to several providers concurrently and
// scores each response against a snapshot of the active persona's
// signature. Nothing is learned or archived; comparison is read-only.
func (e *Engine) Compare(ctx context.Context, providerNames []string, prompt string) (CompareResult, error) {
	if len(providerNames) == 0 {
		return CompareResult{}, fmt.Errorf("compare requires at least one provider")
	}

	e.mu.Lock()
	id := e.active
	target := e.personas[id].Signature.Clone()
	e.mu.Unlock()

	out := CompareResult{
		PersonaID: id,
		Prompt:    prompt,
		Entries:   make([]CompareEntry, len(providerNames)),
	}

	var cfgs []providers.Config
	var cfgEntry []int
	for i, name := range providerNames {
		out.Entries[i] = CompareEntry{Provider: name}
		cfg, err := e.providerConfig(name)
		if err != nil {
			out.Entries[i].Err = err
			continue
		}
		cfgs = append(cfgs, cfg)
		cfgEntry = append(cfgEntry, i)
	}

	outcomes := e.client.SendToAll(ctx, cfgs, prompt)
	for j, oc := range outcomes {
		entry := &out.Entries[cfgEntry[j]]
		if oc.Err != nil {
			entry.Err = oc.Err
			continue
		}
		sketch := signature.BuildSignature(id, oc.Result.Text)
		entry.Model = oc.Result.Model
		entry.Response = oc.Result.Text
		entry.Latency = oc.Result.Latency
		entry.Tokens = oc.Result.TokenCount
		entry.Similarity = signature.Similarity(target, sketch)
		entry.Dominant = topCategories(sketch, 3)
	}
	return out, nil
}

// providerConfig maps a configured provider onto a dispatchable config.
// Provider names double as kinds; the config package only admits the
// known set.
func (e *Engine) providerConfig(name string) (providers.Config, error) {
	pc, ok := e.cfg.Provider(name)
	if !ok {
		return providers.Config{}, &providers.ConfigError{Provider: name, Field: "name", Message: "unknown provider"}
	}
	if !pc.Enabled {
		return providers.Config{}, &providers.ConfigError{Provider: name, Field: "enabled", Message: "provider is disabled"}
	}
	return providers.Config{
		Name:           name,
		Kind:           providers.Kind(name),
		APIKey:         pc.APIKey,
		APIBase:        pc.APIBase,
		Model:          pc.Model,
		Proxy:          pc.Proxy,
		TimeoutSeconds: pc.TimeoutSeconds,
		MaxRPS:         pc.MaxRPS,
	}, nil
}

// recompileLocked rebuilds every category slot for the persona from its
// current signature.
func (e *Engine) recompileLocked(cp *persona.CompoundPersona) {
	e.cache.Invalidate(cp.ID())
	for _, cat := range routing.Categories() {
		if err := e.cache.Store(cp.ID(), sigcache.CompileFrom(cp.Signature, cat)); err != nil {
			logger.WarnCF("engine", "Cache store rejected", map[string]any{
				"persona": cp.ID(),
				"error":   err.Error(),
			})
		}
	}
}

func (e *Engine) archiveRow(ctx context.Context, row obslog.Row) {
	if e.archive == nil {
		return
	}
	if _, err := e.archive.Append(ctx, row); err != nil {
		logger.WarnCF("engine", "Observation archive append failed", map[string]any{
			"persona": row.PersonaID,
			"error":   err.Error(),
		})
	}
}

func topCategories(sig *signature.BehaviorSignature, n int) []string {
	cats := signature.Categories()
	sort.SliceStable(cats, func(i, j int) bool {
		return sig.Weights[cats[i]] > sig.Weights[cats[j]]
	})
	if n > len(cats) {
		n = len(cats)
	}
	out := make([]string, 0, n)
	for _, cat := range cats[:n] {
		out = append(out, string(cat))
	}
	return out
}
