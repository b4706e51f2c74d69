package providers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

func sendOpenAI(ctx context.Context, cfg Config, prompt string) (Result, error) {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if base := strings.TrimRight(cfg.APIBase, "/"); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	hc, err := proxyClient(cfg)
	if err != nil {
		return Result{}, err
	}
	if hc != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(hc))
	}
	client := openai.NewClient(reqOpts...)

	start := time.Now()
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return Result{}, classify(cfg, apiErr.StatusCode, err)
		}
		return Result{}, classify(cfg, 0, err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, &CallError{
			Provider: cfg.Name,
			Model:    cfg.Model,
			Reason:   ReasonInvalidRequest,
			Wrapped:  errors.New("response contained no choices"),
		}
	}

	return Result{
		Provider:   cfg.Name,
		Model:      cfg.Model,
		Text:       resp.Choices[0].Message.Content,
		Latency:    time.Since(start),
		TokenCount: int(resp.Usage.TotalTokens),
	}, nil
}
