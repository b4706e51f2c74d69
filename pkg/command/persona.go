package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const personaUsage = "/persona <list|show [name]|use <name>|blend <first> <second> [weight]>"

type PersonaCommand struct{}

func (c *PersonaCommand) Name() string {
	return "/persona"
}

func (c *PersonaCommand) Description() string {
	return "List, inspect, switch or blend personas"
}

func (c *PersonaCommand) Execute(ctx context.Context, rt Runtime, args []string) (string, error) {
	eng, err := engineFrom(rt)
	if err != nil {
		return "", err
	}

	if len(args) < 1 {
		return "", &UsageError{Command: c.Name(), Usage: personaUsage}
	}

	switch args[0] {
	case "list", "ls":
		var sb strings.Builder
		sb.WriteString("Personas:\n")
		for _, info := range eng.Personas() {
			marker := " "
			if info.Active {
				marker = "*"
			}
			sb.WriteString(fmt.Sprintf("%s %s  %s (phase %s, %d samples)",
				marker, info.Name, info.Description, info.Phase, info.Samples))
			if info.ID != info.Name {
				sb.WriteString("  id=" + info.ID)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("* active")
		return sb.String(), nil

	case "show", "describe":
		name := ""
		if len(args) > 1 {
			name = args[1]
		}
		card, err := eng.DescribePersona(name)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(card, "\n"), nil

	case "use", "switch":
		if len(args) < 2 {
			return "", &UsageError{Command: c.Name(), Usage: "/persona use <name>"}
		}
		if err := eng.Use(args[1]); err != nil {
			return "", err
		}
		return fmt.Sprintf("Active persona: %s", args[1]), nil

	case "blend":
		if len(args) < 3 || len(args) > 4 {
			return "", &UsageError{Command: c.Name(), Usage: "/persona blend <first> <second> [weight]"}
		}
		weight := 0.5
		if len(args) == 4 {
			w, err := strconv.ParseFloat(args[3], 64)
			if err != nil || w < 0 || w > 1 {
				return "", &UsageError{Command: c.Name(), Usage: "/persona blend <first> <second> [weight between 0 and 1]"}
			}
			weight = w
		}
		id, err := eng.BlendPersonas(args[1], args[2], weight)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Blended %s and %s (weight %.2f), new persona %s is active.",
			args[1], args[2], weight, id), nil

	default:
		return "", &UsageError{Command: c.Name(), Usage: personaUsage}
	}
}
