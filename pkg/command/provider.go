package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sipeed/mimiclaw/pkg/config"
	"github.com/sipeed/mimiclaw/pkg/providers"
)

const providerUsage = "/provider <list|models <name>|configure <name> key=value ...>"

type ProviderCommand struct{}

func (c *ProviderCommand) Name() string {
	return "/provider"
}

func (c *ProviderCommand) Description() string {
	return "Configure and inspect model providers"
}

func (c *ProviderCommand) Execute(ctx context.Context, rt Runtime, args []string) (string, error) {
	if rt == nil || rt.Config() == nil {
		return "", fmt.Errorf("no configuration attached to command runtime")
	}
	cfg := rt.Config()

	if len(args) < 1 {
		return "", &UsageError{Command: c.Name(), Usage: providerUsage}
	}

	switch args[0] {
	case "list", "ls":
		return formatProviders(cfg), nil

	case "models":
		if len(args) < 2 {
			return "", &UsageError{Command: c.Name(), Usage: "/provider models <name>"}
		}
		pm, ok := config.ModelsFor(args[1])
		if !ok {
			return "", &providers.ConfigError{Provider: args[1], Field: "name", Message: "unknown provider"}
		}
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Models for %s (auth: %s):\n", pm.Provider, pm.AuthMethod))
		for _, m := range pm.Models {
			sb.WriteString(fmt.Sprintf("  %-18s %s, %d token context\n", m.ID, m.Name, m.ContextSize))
		}
		return sb.String(), nil

	case "configure", "set":
		if len(args) < 2 {
			return "", &UsageError{Command: c.Name(), Usage: providerUsage}
		}
		name := args[1]
		pc, ok := cfg.Provider(name)
		if !ok {
			return "", &providers.ConfigError{Provider: name, Field: "name", Message: "unknown provider"}
		}

		enabledSet := false
		for _, pair := range args[2:] {
			key, value, found := strings.Cut(pair, "=")
			if !found || key == "" {
				return "", &UsageError{Command: c.Name(), Usage: providerUsage}
			}
			if key == "enabled" {
				enabledSet = true
			}
			if err := applyProviderSetting(name, &pc, key, value); err != nil {
				return "", err
			}
		}
		// Configuring a provider turns it on unless the caller says
		// otherwise explicitly.
		if !enabledSet {
			pc.Enabled = true
		}
		cfg.SetProvider(name, pc)

		if path := rt.ConfigPath(); path != "" {
			if err := config.SaveConfig(path, cfg); err != nil {
				return "", fmt.Errorf("failed to save config: %w", err)
			}
			return fmt.Sprintf("Provider %s configured, saved to %s.", name, path), nil
		}
		return fmt.Sprintf("Provider %s configured.", name), nil

	default:
		return "", &UsageError{Command: c.Name(), Usage: providerUsage}
	}
}

func applyProviderSetting(provider string, pc *config.ProviderConfig, key, value string) error {
	switch key {
	case "enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &providers.ConfigError{Provider: provider, Field: key, Message: "want true or false"}
		}
		pc.Enabled = b
	case "api_key":
		pc.APIKey = value
	case "api_base":
		pc.APIBase = value
	case "model":
		pc.Model = value
	case "proxy":
		pc.Proxy = value
	case "timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return &providers.ConfigError{Provider: provider, Field: key, Message: "want a positive integer"}
		}
		pc.TimeoutSeconds = n
	case "max_rps":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return &providers.ConfigError{Provider: provider, Field: key, Message: "want a non-negative number"}
		}
		pc.MaxRPS = f
	default:
		return &providers.ConfigError{Provider: provider, Field: key, Message: "unknown setting"}
	}
	return nil
}

// formatProviders never echoes API keys back to the terminal.
func formatProviders(cfg *config.Config) string {
	var sb strings.Builder
	sb.WriteString("Providers:\n")
	for _, name := range []string{"openai", "anthropic", "local"} {
		pc, _ := cfg.Provider(name)
		marker := " "
		if pc.Enabled {
			marker = "*"
		}
		model := pc.Model
		if model == "" {
			model = "-"
		}
		key := "no key"
		if pc.APIKey != "" {
			key = "key set"
		}
		sb.WriteString(fmt.Sprintf("%s %-10s model=%s  %s", marker, name, model, key))
		if pc.APIBase != "" {
			sb.WriteString("  base=" + pc.APIBase)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("* enabled")
	return sb.String()
}
