package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("overloaded"), 503), true},
		{"wrapped", fmt.Errorf("search: %w", NewTransientError(errors.New("rate limited"), 429)), true},
		{"plain", errors.New("invalid selector"), false},
		{"conn reset", fmt.Errorf("write tcp: %w", syscall.ECONNRESET), true},
		{"conn refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"net timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"deadline", fmt.Errorf("extract: %w", context.DeadlineExceeded), true},
		{"broken pipe text", errors.New("write: broken pipe"), true},
		{"navigation text", errors.New("page.goto: net::ERR_CONNECTION_CLOSED"), true},
		{"no such host", errors.New("dial tcp: lookup x: no such host"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	t.Parallel()

	for _, code := range []int{408, 425, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	t.Parallel()

	inner := errors.New("upstream 502")
	te := NewTransientError(inner, 502)
	assert.ErrorIs(t, te, inner)
	assert.Equal(t, "upstream 502", te.Error())
	assert.Equal(t, 502, te.StatusCode)
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", ClassifyError(nil))
	assert.Equal(t, ErrorTransient, ClassifyError(NewTransientError(errors.New("x"), 429)))
	assert.Equal(t, ErrorPermanent, ClassifyError(errors.New("bad json")))
}
