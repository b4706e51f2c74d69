// Package providers sends prompts to external model endpoints and
// normalizes every response into a single Result shape. Three kinds of
// endpoint are supported: OpenAI-shaped APIs, Anthropic-shaped APIs,
// and generic local OpenAI-compatible servers (ollama, llama.cpp,
// LM Studio). Calls are rate limited per provider and retried on
// transient failures.
package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Kind selects the wire protocol used to reach an endpoint.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindLocal     Kind = "local"
)

// Config describes one observable endpoint.
type Config struct {
	Name           string  `json:"name"`
	Kind           Kind    `json:"kind"`
	APIKey         string  `json:"api_key,omitempty"`
	APIBase        string  `json:"api_base,omitempty"`
	Model          string  `json:"model"`
	Proxy          string  `json:"proxy,omitempty"`
	TimeoutSeconds int     `json:"timeout_seconds,omitempty"`
	MaxRPS         float64 `json:"max_rps,omitempty"`
}

// Validate reports the first configuration fault, if any.
func (c Config) Validate() error {
	if c.Name == "" {
		return &ConfigError{Provider: c.Name, Field: "name", Message: "must not be empty"}
	}
	switch c.Kind {
	case KindOpenAI, KindAnthropic:
		if c.APIKey == "" {
			return &ConfigError{Provider: c.Name, Field: "api_key", Message: "required for kind " + string(c.Kind)}
		}
	case KindLocal:
		if c.APIBase == "" {
			return &ConfigError{Provider: c.Name, Field: "api_base", Message: "required for kind local"}
		}
	default:
		return &ConfigError{Provider: c.Name, Field: "kind", Message: fmt.Sprintf("unknown kind %q", c.Kind)}
	}
	if c.Model == "" {
		return &ConfigError{Provider: c.Name, Field: "model", Message: "must not be empty"}
	}
	return nil
}

// Result is the normalized response the rest of the system consumes.
type Result struct {
	Provider   string        `json:"provider"`
	Model      string        `json:"model"`
	Text       string        `json:"text"`
	Latency    time.Duration `json:"latency"`
	TokenCount int           `json:"token_count"`
}

// Outcome pairs one provider with its result or its failure. A batch of
// outcomes always has one entry per requested provider.
type Outcome struct {
	Provider string
	Result   Result
	Err      error
}

// defaultTimeout bounds a single call when the config leaves
// TimeoutSeconds unset.
const defaultTimeout = 60 * time.Second

// Client dispatches prompts to configured endpoints. Rate limiter state
// persists across calls, so one Client should be shared per process.
type Client struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewClient() *Client {
	return &Client{limiters: make(map[string]*rate.Limiter)}
}

// Send delivers one prompt to one provider and waits for the reply.
// Every network attempt is bounded by the configured timeout, rate
// limited per provider, and retried on transient failures. Invalid
// configuration fails immediately with a ConfigError.
func (c *Client) Send(ctx context.Context, cfg Config, prompt string) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	lim := c.limiterFor(cfg)
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return DoWithRetry(ctx, func(ctx context.Context) (Result, error) {
		if err := lim.Wait(ctx); err != nil {
			return Result{}, classify(cfg, 0, err)
		}
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return send(callCtx, cfg, prompt)
	})
}

// SendToAll delivers the prompt to every provider in parallel. Each
// provider gets an independent goroutine; one slow or failing endpoint
// degrades only its own Outcome, never the batch. Outcomes are returned
// in the order of cfgs.
func (c *Client) SendToAll(ctx context.Context, cfgs []Config, prompt string) []Outcome {
	outcomes := make([]Outcome, len(cfgs))
	var wg sync.WaitGroup
	for i, cfg := range cfgs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Send(ctx, cfg, prompt)
			outcomes[i] = Outcome{Provider: cfg.Name, Result: res, Err: err}
		}()
	}
	wg.Wait()
	return outcomes
}

func send(ctx context.Context, cfg Config, prompt string) (Result, error) {
	switch cfg.Kind {
	case KindOpenAI:
		return sendOpenAI(ctx, cfg, prompt)
	case KindAnthropic:
		return sendAnthropic(ctx, cfg, prompt)
	case KindLocal:
		return sendLocal(ctx, cfg, prompt)
	}
	return Result{}, &ConfigError{Provider: cfg.Name, Field: "kind", Message: fmt.Sprintf("unknown kind %q", cfg.Kind)}
}

// proxyClient builds an HTTP client routed through cfg.Proxy. A nil
// client with nil error means the caller should use its default
// transport.
func proxyClient(cfg Config) (*http.Client, error) {
	if cfg.Proxy == "" {
		return nil, nil
	}
	parsed, err := url.Parse(cfg.Proxy)
	if err != nil {
		return nil, &ConfigError{Provider: cfg.Name, Field: "proxy", Message: fmt.Sprintf("invalid URL: %v", err)}
	}
	return &http.Client{Transport: &http.Transport{Proxy: http.ProxyURL(parsed)}}, nil
}
