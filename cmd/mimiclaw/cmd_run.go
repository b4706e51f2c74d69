// MimiClaw - persona mimicry engine
// License: MIT

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/sipeed/mimiclaw/pkg/command"
	"github.com/sipeed/mimiclaw/pkg/engine"
	"github.com/sipeed/mimiclaw/pkg/logger"
	"github.com/sipeed/mimiclaw/pkg/schedule"
)

func newRunCmd() *cobra.Command {
	var (
		message string
		persona string
		debug   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Talk to the active persona",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runRun(message, persona, debug)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Send a single message (non-interactive mode)")
	cmd.Flags().StringVarP(&persona, "persona", "p", "", "Persona to activate before the session")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func runRun(message, persona string, debug bool) error {
	ctx := context.Background()

	rt, paths, cleanup, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("Debug mode enabled")
	}

	logFile := rt.cfg.Logging.File
	if logFile == "" {
		logFile = paths.LogPath
	}
	if err := logger.EnableFileLogging(logFile); err != nil {
		logger.WarnCF("cli", "File logging disabled", map[string]any{"error": err.Error()})
	}
	defer logger.DisableFileLogging()

	eng := rt.Engine()
	if persona != "" {
		if err := eng.Use(persona); err != nil {
			return err
		}
	}
	if err := eng.WarmCache(); err != nil {
		return fmt.Errorf("failed to warm signature cache: %w", err)
	}

	status, err := eng.Status(ctx)
	if err != nil {
		return err
	}
	logger.InfoCF("engine", "Engine initialized", map[string]any{
		"persona":       status.PersonaID,
		"phase":         string(status.Phase),
		"cache_entries": status.CacheEntries,
		"providers":     strings.Join(status.Providers, ","),
	})

	if rt.cfg.Schedule.Enabled {
		svc := schedule.NewService(filepath.Join(paths.ScheduleDir, "jobs.json"))
		svc.SetOnJob(func(ctx context.Context, job *schedule.Job) (string, error) {
			return runScheduledStudy(ctx, eng, job)
		})
		if err := svc.Start(); err != nil {
			return fmt.Errorf("failed to start schedule service: %w", err)
		}
		defer svc.Stop()
	}

	if message != "" {
		resp, err := eng.Handle(ctx, engine.Request{Text: message})
		if err != nil {
			return err
		}
		printResponse(resp)
		return nil
	}

	fmt.Printf("%s Interactive mode (Ctrl+C to exit)\n", logo)
	fmt.Println("  /help    - list commands")
	fmt.Println("  /status  - show persona state")
	fmt.Println("  /quit    - exit")
	fmt.Println()
	interactiveMode(rt)
	return nil
}

func interactiveMode(rt *cliRuntime) {
	registry := command.BuiltinRegistry()
	eng := rt.Engine()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptFor(eng),
		HistoryFile:     filepath.Join(os.TempDir(), ".mimiclaw_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		simpleInteractiveMode(rt)
		return
	}
	defer rl.Close()

	for {
		rl.SetPrompt(promptFor(eng))
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return
		}

		if handleLine(registry, rt, input) {
			return
		}
	}
}

func simpleInteractiveMode(rt *cliRuntime) {
	registry := command.BuiltinRegistry()
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print(promptFor(rt.Engine()))
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return
		}

		if handleLine(registry, rt, input) {
			return
		}
	}
}

// handleLine dispatches one line and reports whether the session
// should end. Plain text goes to the engine, slash commands to the
// registry.
func handleLine(registry *command.Registry, rt *cliRuntime, input string) bool {
	ctx := context.Background()

	out := registry.Dispatch(ctx, rt, input)
	switch out.Kind {
	case command.KindPassthrough:
		resp, err := rt.Engine().Handle(ctx, engine.Request{Text: input})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return false
		}
		printResponse(resp)
	case command.KindQuit:
		if out.Text != "" {
			fmt.Println(out.Text)
		}
		return true
	default:
		if out.Err != nil {
			fmt.Printf("Error: %v\n", out.Err)
			return false
		}
		if out.Text != "" {
			fmt.Println(out.Text)
			fmt.Println()
		}
	}
	return false
}

func promptFor(eng *engine.Engine) string {
	return fmt.Sprintf("%s %s> ", logo, eng.ActivePersona())
}

func printResponse(resp engine.Response) {
	if resp.Blocked {
		fmt.Printf("\n%s [blocked: %s]\n\n", logo, resp.BlockReason)
		return
	}
	fmt.Printf("\n%s %s\n\n", logo, resp.Text)
}

// runScheduledStudy is the schedule handler: activate the job's
// persona, study its prompts, report a one-line summary.
func runScheduledStudy(ctx context.Context, eng *engine.Engine, job *schedule.Job) (string, error) {
	if err := eng.Use(job.PersonaID); err != nil {
		return "", err
	}

	res, err := eng.Study(ctx, job.Provider, job.Prompts)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%d ok, %d failed on %s, convergence %.3f",
		res.Succeeded, res.Failed, res.Provider, res.Convergence), nil
}
