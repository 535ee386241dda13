package orchestrator

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Sentinel errors for each spec §7 error kind, so callers can errors.Is/
// errors.As instead of matching on Response.Warning strings.
var (
	ErrRateLimited          = errors.New("orchestrator: rate limited")
	ErrPermissionDenied     = errors.New("orchestrator: permission resolution failed")
	ErrLMFailure            = errors.New("orchestrator: language model failure")
	ErrContextLimitExceeded = errors.New("orchestrator: context limit exceeded")
	ErrTimeout              = errors.New("orchestrator: request deadline exceeded")
	ErrMaxIterationsReached = errors.New("orchestrator: iteration ceiling reached")
)

// tagFor maps a sentinel (or a wrapped occurrence of one) to the spec §7
// tag string carried on the Audit Record and Response.
func tagFor(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrContextLimitExceeded):
		return "context_limit_exceeded"
	case errors.Is(err, ErrLMFailure):
		return "lm_error"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrMaxIterationsReached):
		return "max_iterations_reached"
	default:
		return ""
	}
}

// isContextLimitError heuristically classifies provider/model errors
// indicating the prompt/context exceeded the model's maximum capacity.
func isContextLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "context length exceeded"),
		strings.Contains(msg, "maximum context length"),
		strings.Contains(msg, "exceeds context length"),
		strings.Contains(msg, "exceeds the context window"),
		strings.Contains(msg, "prompt is too long"),
		strings.Contains(msg, "prompt too long"),
		strings.Contains(msg, "token limit"),
		strings.Contains(msg, "too many tokens"),
		strings.Contains(msg, "input is too long"),
		strings.Contains(msg, "request too large"),
		strings.Contains(msg, "context_length_exceeded"):
		return true
	}
	return false
}

// isTransientNetworkError heuristically classifies errors that are likely
// transient connectivity/availability failures worth retrying.
func isTransientNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		if nerr.Timeout() {
			return true
		}
		type temporary interface{ Temporary() bool }
		if t, ok := any(nerr).(temporary); ok && t.Temporary() {
			return true
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "dial tcp"),
		strings.Contains(msg, "i/o timeout"),
		strings.Contains(msg, "tls handshake"),
		strings.Contains(msg, "temporary network error"),
		strings.Contains(msg, "server closed idle connection"),
		strings.Contains(msg, "status 502"),
		strings.Contains(msg, "bad gateway"),
		strings.Contains(msg, "status 503"),
		strings.Contains(msg, "service unavailable"),
		strings.Contains(msg, "status 504"),
		strings.Contains(msg, "gateway timeout"):
		return true
	}
	return false
}
