package command

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sipeed/mimiclaw/pkg/config"
	"github.com/sipeed/mimiclaw/pkg/engine"
)

type testRuntime struct {
	eng  *engine.Engine
	cfg  *config.Config
	path string
}

func (r *testRuntime) Engine() *engine.Engine { return r.eng }
func (r *testRuntime) Config() *config.Config { return r.cfg }
func (r *testRuntime) ConfigPath() string     { return r.path }

func newTestRuntime(t *testing.T) *testRuntime {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Engine.Seed = 42
	eng, err := engine.New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testRuntime{eng: eng, cfg: cfg}
}

type stubCommand struct {
	name string
	text string
	err  error
}

func (c *stubCommand) Name() string        { return c.name }
func (c *stubCommand) Description() string { return "stub" }

func (c *stubCommand) Execute(context.Context, Runtime, []string) (string, error) {
	return c.text, c.err
}

func TestParseSlashCommand(t *testing.T) {
	r := NewRegistry()

	name, args, ok := r.Parse("  /persona use casual-dev  ")
	if !ok {
		t.Fatal("Parse() should accept a slash command")
	}
	if name != "/persona" {
		t.Errorf("name = %q, want /persona", name)
	}
	if len(args) != 2 || args[0] != "use" || args[1] != "casual-dev" {
		t.Errorf("args = %v", args)
	}
}

func TestParseRejectsPlainText(t *testing.T) {
	r := NewRegistry()
	for _, line := range []string{"hello there", "", "   ", "/"} {
		if _, _, ok := r.Parse(line); ok {
			t.Errorf("Parse(%q) should not match", line)
		}
	}
}

func TestDispatchPassthrough(t *testing.T) {
	r := BuiltinRegistry()
	rt := newTestRuntime(t)

	out := r.Dispatch(t.Context(), rt, "tell me about the weather")
	if out.Kind != KindPassthrough {
		t.Fatalf("Kind = %v, want KindPassthrough", out.Kind)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	r := BuiltinRegistry()
	rt := newTestRuntime(t)

	out := r.Dispatch(t.Context(), rt, "/bogus now")
	if out.Kind != KindUnknown {
		t.Fatalf("Kind = %v, want KindUnknown", out.Kind)
	}
	var unknownErr *UnknownCommandError
	if !errors.As(out.Err, &unknownErr) {
		t.Fatalf("Err = %v, want *UnknownCommandError", out.Err)
	}
	if unknownErr.Name != "/bogus" {
		t.Errorf("Name = %q, want /bogus", unknownErr.Name)
	}
}

func TestExecuteWithoutSlashPrefix(t *testing.T) {
	r := BuiltinRegistry()
	rt := newTestRuntime(t)

	out := r.Execute(t.Context(), rt, "help", nil)
	if out.Kind != KindHandled || out.Err != nil {
		t.Fatalf("outcome = %+v, want handled /help", out)
	}
	if out.Command != "/help" {
		t.Errorf("Command = %q, want /help", out.Command)
	}
}

func TestQuitIsTerminal(t *testing.T) {
	r := BuiltinRegistry()
	rt := newTestRuntime(t)

	out := r.Dispatch(t.Context(), rt, "/quit")
	if out.Kind != KindQuit {
		t.Fatalf("Kind = %v, want KindQuit", out.Kind)
	}
	if out.Text != "Goodbye." {
		t.Errorf("Text = %q", out.Text)
	}
}

func TestHelpListsEveryCommand(t *testing.T) {
	r := BuiltinRegistry()
	rt := newTestRuntime(t)

	out := r.Dispatch(t.Context(), rt, "/help")
	if out.Kind != KindHandled || out.Err != nil {
		t.Fatalf("outcome = %+v", out)
	}
	for _, name := range []string{
		"/provider", "/persona", "/observe", "/study", "/compare",
		"/status", "/history", "/save", "/load", "/export", "/help", "/quit",
	} {
		if !strings.Contains(out.Text, name+" - ") {
			t.Errorf("help output missing %s:\n%s", name, out.Text)
		}
	}
	if !strings.HasPrefix(strings.SplitN(out.Text, "\n", 3)[1], "/provider") {
		t.Errorf("expected /provider listed first:\n%s", out.Text)
	}
}

func TestRegisterReplacesByName(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubCommand{name: "/x", text: "first"})
	r.Register(&stubCommand{name: "/x", text: "second"})

	if got := len(r.ListCommands()); got != 1 {
		t.Fatalf("len(ListCommands()) = %d, want 1", got)
	}
	out := r.Execute(t.Context(), nil, "/x", nil)
	if out.Text != "second" {
		t.Errorf("Text = %q, want the replacement command's output", out.Text)
	}
}
