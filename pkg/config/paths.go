package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	EnvMimiClawConfig = "MIMICLAW_CONFIG"
	EnvMimiClawHome   = "MIMICLAW_HOME"
)

type RuntimePaths struct {
	HomeDir        string
	ConfigPath     string
	StateDir       string
	ScheduleDir    string
	ObservationsDB string
	LogPath        string
}

func ResolveRuntimePaths() RuntimePaths {
	if configPath := expandHome(strings.TrimSpace(os.Getenv(EnvMimiClawConfig))); configPath != "" {
		return buildRuntimePaths(filepath.Dir(configPath), configPath)
	}

	homeDir := expandHome(strings.TrimSpace(os.Getenv(EnvMimiClawHome)))
	if homeDir == "" {
		homeDir = defaultMimiClawHome()
	}

	return buildRuntimePaths(homeDir, filepath.Join(homeDir, "config.json"))
}

func defaultMimiClawHome() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".mimiclaw"
	}
	return filepath.Join(home, ".mimiclaw")
}

func buildRuntimePaths(homeDir, configPath string) RuntimePaths {
	return RuntimePaths{
		HomeDir:        homeDir,
		ConfigPath:     configPath,
		StateDir:       filepath.Join(homeDir, "state"),
		ScheduleDir:    filepath.Join(homeDir, "schedule"),
		ObservationsDB: filepath.Join(homeDir, "observations.db"),
		LogPath:        filepath.Join(homeDir, "mimiclaw.log"),
	}
}
