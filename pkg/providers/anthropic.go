package providers

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// maxResponseTokens bounds Anthropic replies. The API requires an
// explicit cap; persona observations never need long answers.
const maxResponseTokens = 1024

func sendAnthropic(ctx context.Context, cfg Config, prompt string) (Result, error) {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if base := normalizeAnthropicBase(cfg.APIBase); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	hc, err := proxyClient(cfg)
	if err != nil {
		return Result{}, err
	}
	if hc != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(hc))
	}
	client := anthropic.NewClient(reqOpts...)

	start := time.Now()
	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(cfg.Model),
		MaxTokens: maxResponseTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return Result{}, classify(cfg, 0, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	return Result{
		Provider:   cfg.Name,
		Model:      cfg.Model,
		Text:       text.String(),
		Latency:    time.Since(start),
		TokenCount: int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}, nil
}

// normalizeAnthropicBase strips trailing slashes and a trailing /v1;
// the SDK appends its own version segment. Empty means SDK default.
func normalizeAnthropicBase(apiBase string) string {
	base := strings.TrimSpace(apiBase)
	if base == "" {
		return ""
	}
	base = strings.TrimRight(base, "/")
	base = strings.TrimSuffix(base, "/v1")
	return base
}
