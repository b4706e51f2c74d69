// MimiClaw - persona mimicry engine
// License: MIT

package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sipeed/mimiclaw/pkg/config"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

const logo = "🐙"

// formatVersion returns the version string with optional git commit
func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// formatBuildInfo returns build time and go version info
func formatBuildInfo() (build string, goVer string) {
	if buildTime != "" {
		build = buildTime
	}
	goVer = goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return
}

func printVersion() {
	fmt.Printf("%s mimiclaw %s\n", logo, formatVersion())
	build, goVer := formatBuildInfo()
	if build != "" {
		fmt.Printf("  Build: %s\n", build)
	}
	if goVer != "" {
		fmt.Printf("  Go: %s\n", goVer)
	}
}

func newRootCmd() *cobra.Command {
	var configOverride string

	root := &cobra.Command{
		Use:           "mimiclaw",
		Short:         "Persona mimicry engine",
		Long:          fmt.Sprintf("%s mimiclaw - Persona mimicry engine", logo),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if configOverride != "" {
				return os.Setenv(config.EnvMimiClawConfig, configOverride)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configOverride, "config", "", "Path to config file")

	root.AddCommand(
		newRunCmd(),
		newObserveCmd(),
		newStudyCmd(),
		newCompareCmd(),
		newStatusCmd(),
		newHistoryCmd(),
		newPersonaCmd(),
		newProviderCmd(),
		newSaveCmd(),
		newLoadCmd(),
		newExportCmd(),
		newScheduleCmd(),
		newVersionCmd(),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			printVersion()
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
