package command

import (
	"context"
	"strings"
)

// Registry manages the set of available commands. Listing order is
// registration order, so help output stays stable.
type Registry struct {
	commands map[string]Command
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
	}
}

// Register adds a command to the registry, replacing any previous
// command with the same name.
func (r *Registry) Register(cmd Command) {
	name := cmd.Name()
	if _, exists := r.commands[name]; !exists {
		r.order = append(r.order, name)
	}
	r.commands[name] = cmd
}

// ListCommands returns the registered commands in registration order.
func (r *Registry) ListCommands() []Command {
	out := make([]Command, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.commands[name])
	}
	return out
}

// Parse extracts command and arguments from an input line. The command
// name keeps its slash, e.g. "/status". ok is false when the line is
// not a slash command and should pass through to the generation loop.
func (r *Registry) Parse(content string) (name string, args []string, ok bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "/") {
		return "", nil, false
	}

	parts := strings.Fields(content)
	if len(parts) == 0 || parts[0] == "/" {
		return "", nil, false
	}
	return parts[0], parts[1:], true
}

// Execute runs a command by name. Unknown names produce KindUnknown
// with a typed error rather than a handler lookup panic.
func (r *Registry) Execute(ctx context.Context, rt Runtime, name string, args []string) Outcome {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}

	cmd, ok := r.commands[name]
	if !ok {
		return Outcome{Kind: KindUnknown, Command: name, Err: &UnknownCommandError{Name: name}}
	}

	text, err := cmd.Execute(ctx, rt, args)
	kind := KindHandled
	if err == nil {
		if t, ok := cmd.(interface{ Terminal() bool }); ok && t.Terminal() {
			kind = KindQuit
		}
	}
	return Outcome{Kind: kind, Command: name, Text: text, Err: err}
}

// Dispatch parses one input line and executes it when it is a command.
func (r *Registry) Dispatch(ctx context.Context, rt Runtime, line string) Outcome {
	name, args, ok := r.Parse(line)
	if !ok {
		return Outcome{Kind: KindPassthrough}
	}
	return r.Execute(ctx, rt, name, args)
}

// BuiltinRegistry returns a registry with every mimiclaw command
// registered in its help-listing order.
func BuiltinRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ProviderCommand{})
	r.Register(&PersonaCommand{})
	r.Register(&ObserveCommand{})
	r.Register(&StudyCommand{})
	r.Register(&CompareCommand{})
	r.Register(&StatusCommand{})
	r.Register(&HistoryCommand{})
	r.Register(&SaveCommand{})
	r.Register(&LoadCommand{})
	r.Register(&ExportCommand{})
	r.Register(&HelpCommand{Registry: r})
	r.Register(&QuitCommand{})
	return r
}
