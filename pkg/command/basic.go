package command

import (
	"context"
	"fmt"
	"strings"
)

type HelpCommand struct {
	Registry *Registry
}

func (c *HelpCommand) Name() string {
	return "/help"
}

func (c *HelpCommand) Description() string {
	return "Show available commands"
}

func (c *HelpCommand) Execute(ctx context.Context, rt Runtime, args []string) (string, error) {
	if c.Registry == nil {
		return "", fmt.Errorf("command registry not available")
	}

	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	for _, cmd := range c.Registry.ListCommands() {
		sb.WriteString(fmt.Sprintf("%s - %s\n", cmd.Name(), cmd.Description()))
	}
	return sb.String(), nil
}

type QuitCommand struct{}

func (c *QuitCommand) Name() string {
	return "/quit"
}

func (c *QuitCommand) Description() string {
	return "Exit"
}

func (c *QuitCommand) Terminal() bool {
	return true
}

func (c *QuitCommand) Execute(ctx context.Context, rt Runtime, args []string) (string, error) {
	return "Goodbye.", nil
}
