package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagForMapsEachSentinel(t *testing.T) {
	cases := map[error]string{
		ErrRateLimited:          "rate_limited",
		ErrPermissionDenied:     "permission_denied",
		ErrContextLimitExceeded: "context_limit_exceeded",
		ErrLMFailure:            "lm_error",
		ErrTimeout:              "timeout",
		ErrMaxIterationsReached: "max_iterations_reached",
		nil:                     "",
		errors.New("unrelated"): "",
	}
	for err, want := range cases {
		assert.Equal(t, want, tagFor(err))
	}
}

func TestTagForUnwrapsWrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w: upstream said no", ErrLMFailure)
	assert.Equal(t, "lm_error", tagFor(wrapped))
}

func TestIsContextLimitError(t *testing.T) {
	assert.True(t, isContextLimitError(errors.New("this model's maximum context length is 8192 tokens")))
	assert.True(t, isContextLimitError(errors.New("Request too large for gpt-4o")))
	assert.False(t, isContextLimitError(errors.New("connection reset by peer")))
	assert.False(t, isContextLimitError(nil))
}

type fakeNetError struct {
	timeout, temporary bool
}

func (e *fakeNetError) Error() string   { return "fake net error" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return e.temporary }

func TestIsTransientNetworkError(t *testing.T) {
	assert.True(t, isTransientNetworkError(&fakeNetError{timeout: true}))
	assert.True(t, isTransientNetworkError(&fakeNetError{temporary: true}))
	assert.True(t, isTransientNetworkError(context.DeadlineExceeded))
	assert.True(t, isTransientNetworkError(errors.New("dial tcp 10.0.0.1:443: connection refused")))
	assert.True(t, isTransientNetworkError(errors.New("upstream responded with status 503 service unavailable")))
	assert.False(t, isTransientNetworkError(errors.New("invalid api key")))
	assert.False(t, isTransientNetworkError(nil))
}

var _ net.Error = (*fakeNetError)(nil)
