// Package command is the slash-command surface consumed by the CLI.
// Commands resolve against a Runtime, run one engine operation and
// return the text to show; failures are typed so callers can branch on
// them instead of parsing messages.
package command

import (
	"context"
	"fmt"

	"github.com/sipeed/mimiclaw/pkg/config"
	"github.com/sipeed/mimiclaw/pkg/engine"
)

// Runtime provides access to the running engine and its configuration.
type Runtime interface {
	Engine() *engine.Engine
	Config() *config.Config
	// ConfigPath is where /provider configure persists changes.
	// Empty means configuration stays in memory only.
	ConfigPath() string
}

// Command represents an executable slash command.
type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, rt Runtime, args []string) (string, error)
}

type Kind int

const (
	// KindPassthrough marks input that is not a slash command at all.
	KindPassthrough Kind = iota
	KindHandled
	KindQuit
	KindUnknown
)

// Outcome is the result of dispatching one input line.
type Outcome struct {
	Kind    Kind
	Command string
	Text    string
	Err     error
}

type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %s", e.Name)
}

type UsageError struct {
	Command string
	Usage   string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("usage: %s", e.Usage)
}

func engineFrom(rt Runtime) (*engine.Engine, error) {
	if rt == nil || rt.Engine() == nil {
		return nil, fmt.Errorf("no engine attached to command runtime")
	}
	return rt.Engine(), nil
}
