// Package redaction masks provider credentials in log output.
//
// Provider configs carry API keys for remote endpoints; anything that
// logs a config, a request header, or a raw error string goes through
// here first.
package redaction

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

type Config struct {
	// Enabled turns masking on or off globally.
	Enabled bool `json:"enabled"`

	// MaskAPIKeys masks provider API keys (sk-..., key=..., etc).
	MaskAPIKeys bool `json:"mask_api_keys"`

	// MaskBearerTokens masks Authorization-style bearer tokens.
	MaskBearerTokens bool `json:"mask_bearer_tokens"`

	// MaskSecretFields masks values of sensitive-looking JSON fields.
	MaskSecretFields bool `json:"mask_secret_fields"`

	// CustomPatterns holds extra regexes to mask.
	CustomPatterns []string `json:"custom_patterns,omitempty"`

	// Replacement is the string substituted for masked content.
	Replacement string `json:"replacement"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		MaskAPIKeys:      true,
		MaskBearerTokens: true,
		MaskSecretFields: true,
		Replacement:      "[REDACTED]",
	}
}

type Redactor struct {
	mu       sync.RWMutex
	config   Config
	patterns map[string]*regexp.Regexp
	custom   []*regexp.Regexp
}

func NewRedactor(config Config) *Redactor {
	r := &Redactor{
		config:   config,
		patterns: make(map[string]*regexp.Regexp),
	}
	r.compileBuiltinPatterns()
	for _, p := range config.CustomPatterns {
		if re, err := regexp.Compile(p); err == nil {
			r.custom = append(r.custom, re)
		}
	}
	return r
}

func (r *Redactor) compileBuiltinPatterns() {
	// Provider key shapes seen in the wild: OpenAI sk-/sk-proj-,
	// Anthropic sk-ant-, and generic 32+ char hex/base64 blobs behind
	// key-ish assignments.
	r.patterns["openai_key"] = regexp.MustCompile(`\bsk-(?:proj-)?[A-Za-z0-9_-]{20,}\b`)
	r.patterns["anthropic_key"] = regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_-]{20,}\b`)
	r.patterns["key_assignment"] = regexp.MustCompile(`(?i)\b(api[_-]?key|apikey|token|secret|password)\s*[=:]\s*["']?[A-Za-z0-9_\-\.]{8,}["']?`)
	r.patterns["bearer"] = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9_\-\.=]{8,}`)
	r.patterns["json_secret"] = regexp.MustCompile(`(?i)"(api_key|apikey|token|secret|password|authorization)"\s*:\s*"[^"]+"`)
}

// Redact masks credentials in input according to the configuration.
func (r *Redactor) Redact(input string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.config.Enabled || input == "" {
		return input
	}

	out := input
	if r.config.MaskAPIKeys {
		out = r.patterns["anthropic_key"].ReplaceAllString(out, r.config.Replacement)
		out = r.patterns["openai_key"].ReplaceAllString(out, r.config.Replacement)
		out = r.patterns["key_assignment"].ReplaceAllStringFunc(out, func(m string) string {
			if i := strings.IndexAny(m, "=:"); i >= 0 {
				return m[:i+1] + r.config.Replacement
			}
			return r.config.Replacement
		})
	}
	if r.config.MaskBearerTokens {
		out = r.patterns["bearer"].ReplaceAllString(out, "Bearer "+r.config.Replacement)
	}
	if r.config.MaskSecretFields {
		out = r.patterns["json_secret"].ReplaceAllStringFunc(out, func(m string) string {
			if i := strings.Index(m, ":"); i >= 0 {
				return m[:i+1] + ` "` + r.config.Replacement + `"`
			}
			return m
		})
	}
	for _, re := range r.custom {
		out = re.ReplaceAllString(out, r.config.Replacement)
	}
	return out
}

// RedactFields masks sensitive keys and string values in a field map.
// The input map is not modified.
func (r *Redactor) RedactFields(fields map[string]any) map[string]any {
	r.mu.RLock()
	enabled := r.config.Enabled
	replacement := r.config.Replacement
	r.mu.RUnlock()

	if !enabled || fields == nil {
		return fields
	}

	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if r.isSensitiveKey(k) {
			out[k] = replacement
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = r.Redact(s)
		} else {
			out[k] = v
		}
	}
	return out
}

func (r *Redactor) isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range []string{"api_key", "apikey", "token", "secret", "password", "authorization", "credential"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func (r *Redactor) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config.Enabled = enabled
}

// AddCustomPattern compiles and registers an extra masking regex.
func (r *Redactor) AddCustomPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid redaction pattern: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.custom = append(r.custom, re)
	return nil
}

var (
	globalMu       sync.RWMutex
	globalRedactor = NewRedactor(DefaultConfig())
)

// Redact masks credentials using the global redactor.
func Redact(input string) string {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalRedactor.Redact(input)
}

// RedactFields masks a field map using the global redactor.
func RedactFields(fields map[string]any) map[string]any {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalRedactor.RedactFields(fields)
}

// SetGlobalConfig replaces the global redactor configuration.
func SetGlobalConfig(config Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalRedactor = NewRedactor(config)
}
