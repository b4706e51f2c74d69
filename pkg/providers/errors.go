package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// ConfigError reports an unusable provider configuration. It is never
// retried.
type ConfigError struct {
	Provider string
	Field    string
	Message  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q config: %s: %s", e.Provider, e.Field, e.Message)
}

// Reason classifies a failed call into a closed set. The transient
// reasons (rate-limit, timeout, overloaded) are retried; auth and
// invalid-request are not, because repeating the same call cannot fix
// them.
type Reason string

const (
	ReasonAuth           Reason = "auth"
	ReasonRateLimit      Reason = "rate-limit"
	ReasonTimeout        Reason = "timeout"
	ReasonOverloaded     Reason = "overloaded"
	ReasonInvalidRequest Reason = "invalid-request"
)

// CallError wraps a provider failure with its classified reason.
type CallError struct {
	Provider string
	Model    string
	Reason   Reason
	Status   int
	Wrapped  error
}

func (e *CallError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("provider %s (%s): %s (status %d): %v", e.Provider, e.Model, e.Reason, e.Status, e.Wrapped)
	}
	return fmt.Sprintf("provider %s (%s): %s: %v", e.Provider, e.Model, e.Reason, e.Wrapped)
}

func (e *CallError) Unwrap() error {
	return e.Wrapped
}

// IsRetriable reports whether repeating the call could plausibly
// succeed.
func (e *CallError) IsRetriable() bool {
	switch e.Reason {
	case ReasonRateLimit, ReasonTimeout, ReasonOverloaded:
		return true
	}
	return false
}

// classify maps a transport or API error onto the closed reason set.
// An HTTP status, when known, takes precedence over message patterns.
// context.Canceled passes through untouched: a user abort is not a
// provider fault. Unrecognized errors land in the transient timeout
// bucket so the retry layer gets a chance at them.
func classify(cfg Config, status int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	ce := &CallError{Provider: cfg.Name, Model: cfg.Model, Status: status, Wrapped: err}

	if errors.Is(err, context.DeadlineExceeded) {
		ce.Reason = ReasonTimeout
		return ce
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		ce.Reason = ReasonTimeout
		return ce
	}

	msg := strings.ToLower(err.Error())
	if ce.Status == 0 {
		ce.Status = extractStatus(msg)
	}

	if r := reasonForStatus(ce.Status); r != "" {
		ce.Reason = r
	} else if r := reasonForMessage(msg); r != "" {
		ce.Reason = r
	} else {
		ce.Reason = ReasonTimeout
	}
	return ce
}

func reasonForStatus(status int) Reason {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusPaymentRequired, http.StatusProxyAuthRequired:
		return ReasonAuth
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ReasonTimeout
	case http.StatusTooManyRequests:
		return ReasonRateLimit
	case http.StatusServiceUnavailable, 529:
		return ReasonOverloaded
	case http.StatusBadRequest, http.StatusNotFound, http.StatusMethodNotAllowed,
		http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return ReasonInvalidRequest
	}
	if status >= 500 && status < 600 {
		return ReasonTimeout
	}
	return ""
}

// reasonForMessage matches known provider error phrasings. Order
// matters: "service unavailable" must hit overloaded before the
// invalid-request patterns see "unavailable".
func reasonForMessage(msg string) Reason {
	switch {
	case containsAny(msg,
		"rate limit", "rate_limit", "too many requests", "quota",
		"resource has been exhausted", "resource_exhausted", "usage limit"):
		return ReasonRateLimit
	case containsAny(msg, "overloaded", "service unavailable", "at capacity"):
		return ReasonOverloaded
	case containsAny(msg,
		"api key", "invalid token", "authentication", "unauthorized",
		"forbidden", "access denied", "expired", "credentials",
		"payment required", "billing", "insufficient credits", "insufficient balance"):
		return ReasonAuth
	case containsAny(msg,
		"timeout", "timed out", "deadline exceeded", "connection refused",
		"connection reset", "no such host", "unexpected eof"):
		return ReasonTimeout
	case containsAny(msg,
		"not a valid model", "model not found", "model_not_found",
		"no such model", "does not exist", "not supported", "deprecated",
		"invalid model", "invalid request", "should match pattern",
		"is required", "context length", "maximum context"):
		return ReasonInvalidRequest
	}
	return ""
}

func containsAny(msg string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// statusPattern recognizes "status: 429", "status 401", "HTTP/1.1 502",
// and the SDK shape `POST "https://...": 429 Too Many Requests`.
var statusPattern = regexp.MustCompile(`(?i)(?:status[:=]?\s*|http/\d\.\d\s+|:\s)(\d{3})\b`)

func extractStatus(msg string) int {
	m := statusPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	status, err := strconv.Atoi(m[1])
	if err != nil || status < 100 || status > 599 {
		return 0
	}
	return status
}
