package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sipeed/mimiclaw/pkg/engine"
)

type ObserveCommand struct{}

func (c *ObserveCommand) Name() string {
	return "/observe"
}

func (c *ObserveCommand) Description() string {
	return "Send one prompt to a provider and learn from the response"
}

func (c *ObserveCommand) Execute(ctx context.Context, rt Runtime, args []string) (string, error) {
	eng, err := engineFrom(rt)
	if err != nil {
		return "", err
	}
	if len(args) < 2 {
		return "", &UsageError{Command: c.Name(), Usage: "/observe <provider> <prompt>"}
	}

	res, err := eng.Observe(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return "", err
	}
	return formatObserve(res), nil
}

type StudyCommand struct{}

func (c *StudyCommand) Name() string {
	return "/study"
}

func (c *StudyCommand) Description() string {
	return "Run a prompt batch against a provider and rebuild the signature"
}

func (c *StudyCommand) Execute(ctx context.Context, rt Runtime, args []string) (string, error) {
	eng, err := engineFrom(rt)
	if err != nil {
		return "", err
	}
	if len(args) < 2 {
		return "", &UsageError{Command: c.Name(), Usage: "/study <provider> <prompt> | <prompt> | ..."}
	}

	prompts := splitPrompts(strings.Join(args[1:], " "))
	if len(prompts) == 0 {
		return "", &UsageError{Command: c.Name(), Usage: "/study <provider> <prompt> | <prompt> | ..."}
	}

	res, err := eng.Study(ctx, args[0], prompts)
	if err != nil {
		return "", err
	}
	return formatStudy(res), nil
}

type CompareCommand struct{}

func (c *CompareCommand) Name() string {
	return "/compare"
}

func (c *CompareCommand) Description() string {
	return "Score several providers against the active persona on one prompt"
}

func (c *CompareCommand) Execute(ctx context.Context, rt Runtime, args []string) (string, error) {
	eng, err := engineFrom(rt)
	if err != nil {
		return "", err
	}
	if len(args) < 2 {
		return "", &UsageError{Command: c.Name(), Usage: "/compare <provider,provider|all> <prompt>"}
	}

	var names []string
	if args[0] == "all" {
		if rt.Config() == nil {
			return "", fmt.Errorf("no configuration attached to command runtime")
		}
		names = rt.Config().EnabledProviders()
		if len(names) == 0 {
			return "", fmt.Errorf("no providers enabled")
		}
	} else {
		for _, n := range strings.Split(args[0], ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}

	res, err := eng.Compare(ctx, names, strings.Join(args[1:], " "))
	if err != nil {
		return "", err
	}
	return formatCompare(res), nil
}

func formatObserve(res engine.ObserveResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%s) answered in %s, %d tokens\n",
		res.Provider, res.Model, res.Latency.Round(time.Millisecond), res.Tokens))
	sb.WriteString(fmt.Sprintf("quality=%.3f convergence=%.3f phase=%s samples=%d\n\n",
		res.Quality, res.Convergence, res.Phase, res.Samples))
	sb.WriteString(res.Response)
	return sb.String()
}

func formatStudy(res engine.StudyResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Study on %s: %d ok, %d failed\n", res.Provider, res.Succeeded, res.Failed))
	for _, o := range res.Prompts {
		if o.Err != nil {
			sb.WriteString(fmt.Sprintf("  fail  %s: %v\n", truncate(o.Prompt, 48), o.Err))
			continue
		}
		sb.WriteString(fmt.Sprintf("  ok    q=%.3f  %s\n", o.Quality, truncate(o.Prompt, 48)))
	}
	sb.WriteString(fmt.Sprintf("convergence=%.3f phase=%s samples=%d", res.Convergence, res.Phase, res.Samples))
	return sb.String()
}

func formatCompare(res engine.CompareResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Comparing %d providers as %s on %q:\n",
		len(res.Entries), res.PersonaID, truncate(res.Prompt, 48)))
	for _, e := range res.Entries {
		if e.Err != nil {
			sb.WriteString(fmt.Sprintf("  %s  error: %v\n", e.Provider, e.Err))
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s (%s)  similarity=%.3f  %s  dominant=%s\n      %s\n",
			e.Provider, e.Model, e.Similarity, e.Latency.Round(time.Millisecond),
			strings.Join(e.Dominant, ","), truncate(e.Response, 72)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func splitPrompts(s string) []string {
	parts := strings.Split(s, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// truncate limits string length for single-line display.
func truncate(s string, maxLen int) string {
	clean := strings.ReplaceAll(s, "\n", " ")
	clean = strings.TrimSpace(clean)
	if len(clean) <= maxLen {
		return clean
	}
	return clean[:maxLen-3] + "..."
}
