package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// localHTTPClient is shared by proxy-less local calls so connections
// are pooled. Per-call deadlines come from the context.
var localHTTPClient = &http.Client{}

// sendLocal speaks the OpenAI chat-completions wire shape over plain
// HTTP. That is the dialect every local server (ollama, llama.cpp,
// LM Studio) exposes.
func sendLocal(ctx context.Context, cfg Config, prompt string) (Result, error) {
	hc, err := proxyClient(cfg)
	if err != nil {
		return Result{}, err
	}
	if hc == nil {
		hc = localHTTPClient
	}

	requestBody := map[string]any{
		"model": cfg.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	base := strings.TrimRight(cfg.APIBase, "/")
	req, err := http.NewRequestWithContext(ctx, "POST", base+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return Result{}, classify(cfg, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, classify(cfg, 0, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, classify(cfg, resp.StatusCode,
			fmt.Errorf("request failed with status %d: %s", resp.StatusCode, truncateBody(body)))
	}

	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return Result{}, &CallError{
			Provider: cfg.Name,
			Model:    cfg.Model,
			Reason:   ReasonInvalidRequest,
			Wrapped:  fmt.Errorf("failed to parse response: %w", err),
		}
	}
	if len(apiResponse.Choices) == 0 {
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
		Text:       apiResponse.Choices[0].Message.Content,
		Latency:    time.Since(start),
		TokenCount: apiResponse.Usage.TotalTokens,
	}, nil
}

func truncateBody(body []byte) string {
	const max = 300
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
