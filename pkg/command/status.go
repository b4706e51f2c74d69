package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sipeed/mimiclaw/pkg/engine"
)

type StatusCommand struct{}

func (c *StatusCommand) Name() string {
	return "/status"
}

func (c *StatusCommand) Description() string {
	return "Show the active persona's convergence and phase"
}

func (c *StatusCommand) Execute(ctx context.Context, rt Runtime, args []string) (string, error) {
	eng, err := engineFrom(rt)
	if err != nil {
		return "", err
	}

	st, err := eng.Status(ctx)
	if err != nil {
		return "", err
	}
	return formatStatus(st), nil
}

type HistoryCommand struct{}

func (c *HistoryCommand) Name() string {
	return "/history"
}

func (c *HistoryCommand) Description() string {
	return "Show recent observations from the archive"
}

func (c *HistoryCommand) Execute(ctx context.Context, rt Runtime, args []string) (string, error) {
	eng, err := engineFrom(rt)
	if err != nil {
		return "", err
	}

	limit := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return "", &UsageError{Command: c.Name(), Usage: "/history [limit]"}
		}
		limit = n
	}

	rows, err := eng.History(ctx, limit)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "No observations recorded.", nil
	}

	var sb strings.Builder
	sb.WriteString("Recent observations:\n")
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("  %s  %s/%s  q=%.3f  %dms  %s\n",
			row.CreatedAt.Format("2006-01-02 15:04"), row.Provider, row.Model,
			row.Quality, row.LatencyMS, truncate(row.Prompt, 48)))
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func formatStatus(st engine.Status) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Persona: %s (%s)\n", st.PersonaName, st.PersonaID))
	sb.WriteString(fmt.Sprintf("Phase: %s  convergence=%.3f  slope=%+.4f\n", st.Phase, st.Convergence, st.Slope))
	sb.WriteString(fmt.Sprintf("Steps: %d  milestones: %s  samples: %d\n",
		st.Steps, formatMilestones(st.Milestones), st.Samples))
	sb.WriteString(fmt.Sprintf("Cache entries: %d  buffer: %d\n", st.CacheEntries, st.BufferLen))

	providers := "none"
	if len(st.Providers) > 0 {
		providers = strings.Join(st.Providers, ", ")
	}
	sb.WriteString("Providers enabled: " + providers)

	if st.Archive != nil {
		if st.Archive.Count == 0 {
			sb.WriteString("\nArchive: empty")
		} else {
			sb.WriteString(fmt.Sprintf("\nArchive: %d observations across %d providers, avg quality %.3f, avg latency %.0fms, last %s",
				st.Archive.Count, st.Archive.Providers, st.Archive.AvgQuality,
				st.Archive.AvgLatencyMS, st.Archive.LastAt.Format("2006-01-02 15:04")))
		}
	}
	return sb.String()
}

func formatMilestones(milestones []int) string {
	if len(milestones) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(milestones))
	for _, m := range milestones {
		parts = append(parts, fmt.Sprintf("%d%%", m))
	}
	return strings.Join(parts, ", ")
}
