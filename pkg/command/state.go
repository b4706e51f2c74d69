package command

import (
	"context"
	"fmt"
	"strings"
)

type SaveCommand struct{}

func (c *SaveCommand) Name() string {
	return "/save"
}

func (c *SaveCommand) Description() string {
	return "Save a checkpoint, persona snapshot, bare profile or session log"
}

func (c *SaveCommand) Execute(ctx context.Context, rt Runtime, args []string) (string, error) {
	eng, err := engineFrom(rt)
	if err != nil {
		return "", err
	}

	if len(args) > 0 {
		switch args[0] {
		case "persona":
			name := ""
			if len(args) > 1 {
				name = args[1]
			}
			id, err := eng.SavePersonaSnapshot(name)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Persona snapshot saved: %s", id), nil
		case "profile":
			name := ""
			if len(args) > 1 {
				name = args[1]
			}
			id, err := eng.SaveProfile(name)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Profile saved: %s", id), nil
		case "session":
			id, err := eng.SaveSession()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Session log saved: %s", id), nil
		}
	}

	id, err := eng.SaveCheckpoint(strings.Join(args, " "))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Checkpoint saved: %s", id), nil
}

type LoadCommand struct{}

func (c *LoadCommand) Name() string {
	return "/load"
}

func (c *LoadCommand) Description() string {
	return "Restore a checkpoint, persona snapshot or profile"
}

func (c *LoadCommand) Execute(ctx context.Context, rt Runtime, args []string) (string, error) {
	eng, err := engineFrom(rt)
	if err != nil {
		return "", err
	}
	if len(args) < 1 {
		return "", &UsageError{Command: c.Name(), Usage: "/load <checkpoint-id>, /load persona <snapshot-id> or /load profile <id-or-path>"}
	}

	if args[0] == "persona" {
		if len(args) < 2 {
			return "", &UsageError{Command: c.Name(), Usage: "/load persona <snapshot-id>"}
		}
		if err := eng.LoadPersonaSnapshot(args[1]); err != nil {
			return "", err
		}
		return fmt.Sprintf("Persona %s loaded and active.", args[1]), nil
	}

	if args[0] == "profile" {
		if len(args) < 2 {
			return "", &UsageError{Command: c.Name(), Usage: "/load profile <id-or-path>"}
		}
		if err := eng.LoadProfile(args[1]); err != nil {
			return "", err
		}
		return fmt.Sprintf("Profile %s loaded; %s is active.", args[1], eng.ActivePersona()), nil
	}

	if err := eng.LoadCheckpoint(args[0]); err != nil {
		return "", err
	}
	return fmt.Sprintf("Checkpoint %s restored.", args[0]), nil
}

type ExportCommand struct{}

func (c *ExportCommand) Name() string {
	return "/export"
}

func (c *ExportCommand) Description() string {
	return "Export a persona snapshot or bare profile to a file"
}

func (c *ExportCommand) Execute(ctx context.Context, rt Runtime, args []string) (string, error) {
	eng, err := engineFrom(rt)
	if err != nil {
		return "", err
	}

	if len(args) > 0 && args[0] == "profile" {
		if len(args) < 2 || len(args) > 3 {
			return "", &UsageError{Command: c.Name(), Usage: "/export profile [persona-name] <dest-path>"}
		}
		name, dest := eng.ActivePersona(), args[1]
		if len(args) == 3 {
			name, dest = args[1], args[2]
		}
		if err := eng.ExportProfile(name, dest); err != nil {
			return "", err
		}
		return fmt.Sprintf("Exported profile of %s to %s.", name, dest), nil
	}

	var name, dest string
	switch len(args) {
	case 1:
		name, dest = eng.ActivePersona(), args[0]
		if err := eng.ExportPersona("", dest); err != nil {
			return "", err
		}
	case 2:
		name, dest = args[0], args[1]
		if err := eng.ExportPersona(name, dest); err != nil {
			return "", err
		}
	default:
		return "", &UsageError{Command: c.Name(), Usage: "/export [persona-name] <dest-path> or /export profile [persona-name] <dest-path>"}
	}
	return fmt.Sprintf("Exported %s to %s.", name, dest), nil
}
