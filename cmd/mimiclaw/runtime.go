// MimiClaw - persona mimicry engine
// License: MIT

package main

import (
	"context"
	"fmt"

	"github.com/sipeed/mimiclaw/pkg/command"
	"github.com/sipeed/mimiclaw/pkg/config"
	"github.com/sipeed/mimiclaw/pkg/engine"
	"github.com/sipeed/mimiclaw/pkg/logger"
	"github.com/sipeed/mimiclaw/pkg/obslog"
	"github.com/sipeed/mimiclaw/pkg/persistence"
)

// cliRuntime hands the command registry a fully wired engine plus the
// config it was built from.
type cliRuntime struct {
	eng        *engine.Engine
	cfg        *config.Config
	configPath string
}

func (r *cliRuntime) Engine() *engine.Engine { return r.eng }
func (r *cliRuntime) Config() *config.Config { return r.cfg }
func (r *cliRuntime) ConfigPath() string     { return r.configPath }

// buildRuntime loads config, opens the state directory and the
// observation archive, and assembles the engine. The returned cleanup
// closes the archive.
func buildRuntime(ctx context.Context) (*cliRuntime, config.RuntimePaths, func(), error) {
	paths := config.ResolveRuntimePaths()

	cfg, err := config.LoadConfig(paths.ConfigPath)
	if err != nil {
		return nil, paths, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactionEnabled(cfg.Logging.Redact)

	persist, err := persistence.NewManager(paths.StateDir)
	if err != nil {
		return nil, paths, nil, fmt.Errorf("failed to open state dir: %w", err)
	}

	archive, err := obslog.Open(ctx, paths.ObservationsDB)
	if err != nil {
		return nil, paths, nil, fmt.Errorf("failed to open observation archive: %w", err)
	}

	eng, err := engine.New(cfg, persist, archive)
	if err != nil {
		archive.Close()
		return nil, paths, nil, err
	}

	cleanup := func() {
		if err := archive.Close(); err != nil {
			logger.WarnCF("cli", "Failed to close observation archive", map[string]any{"error": err.Error()})
		}
	}

	rt := &cliRuntime{eng: eng, cfg: cfg, configPath: paths.ConfigPath}
	return rt, paths, cleanup, nil
}

// dispatch builds a runtime, runs one slash command against it and
// prints the outcome.
func dispatch(name string, args []string) error {
	ctx := context.Background()

	rt, _, cleanup, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	out := command.BuiltinRegistry().Execute(ctx, rt, name, args)
	if out.Err != nil {
		return out.Err
	}
	if out.Text != "" {
		fmt.Println(out.Text)
	}
	return nil
}
