package providers

import (
	"context"
	"errors"
	"strings"
)

// ErrorType buckets a provider failure for the llm_calls audit table.
type ErrorType string

const (
	ErrorQuota         ErrorType = "quota"
	ErrorRate          ErrorType = "rate"
	ErrorAuth          ErrorType = "auth"
	ErrorTimeout       ErrorType = "timeout"
	ErrorContextLength ErrorType = "context_length"
	ErrorTransient     ErrorType = "transient"
	ErrorPermanent     ErrorType = "permanent"
)

func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrorTransient
	}
	e := strings.ToLower(err.Error())
	switch {
	case containsAny(e, "insufficient_quota", "quota", "credit balance"):
		return ErrorQuota
	case containsAny(e, "429", "rate limit", "rate_limit", "too many requests"):
		return ErrorRate
	case containsAny(e, " 401", " 403", "unauthorized", "invalid api key", "key missing"):
		return ErrorAuth
	case containsAny(e, "context length", "context_length", "maximum context", "too long"):
		return ErrorContextLength
	case containsAny(e, "deadline exceeded", "timeout", "timed out"):
		return ErrorTimeout
	case containsAny(e, "temporarily", "unavailable", " 502", " 503", "connection refused", "eof"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}

func containsAny(s string, subs ...string) bool {
	for _, x := range subs {
		if strings.Contains(s, x) {
			return true
		}
	}
	return false
}
