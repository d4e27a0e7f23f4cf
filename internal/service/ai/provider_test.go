package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForStatus(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   ErrorKind
	}{
		{http.StatusServiceUnavailable, "", Unavailable},
		{http.StatusBadGateway, "", Unavailable},
		{http.StatusTooManyRequests, "", Unavailable},
		{http.StatusBadRequest, `{"error":"Model is currently loading"}`, Unavailable},
		{http.StatusBadRequest, `{"error":"bad input"}`, Rejected},
		{http.StatusUnauthorized, "", Rejected},
		{http.StatusNotFound, "model not found", Rejected},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d", tc.status), func(t *testing.T) {
			assert.Equal(t, tc.want, kindForStatus(tc.status, []byte(tc.body)))
		})
	}
}

func TestClassifyError(t *testing.T) {
	perr := classifyError("x", fmt.Errorf("call: %w", context.DeadlineExceeded))
	assert.Equal(t, Transport, perr.Kind)
	assert.ErrorIs(t, perr, context.DeadlineExceeded)

	perr = classifyError("x", errors.New("quota exhausted"))
	assert.Equal(t, Unavailable, perr.Kind)

	inner := newProviderError("y", Rejected, 403, errors.New("denied"))
	assert.Same(t, inner, classifyError("x", inner))
}

func TestProviderErrorMessage(t *testing.T) {
	err := newProviderError("hf", Unavailable, 503, errors.New("loading"))
	assert.Equal(t, "hf: unavailable (http 503): loading", err.Error())

	err = newProviderError("ollama", Transport, 0, context.Canceled)
	assert.Equal(t, "ollama: transport: context canceled", err.Error())
}

func TestTimeoutsValidate(t *testing.T) {
	require.NoError(t, DefaultTimeouts.validate())
	assert.Error(t, Timeouts{Connect: 30 * time.Second, Total: 30 * time.Second}.validate())
	assert.Error(t, Timeouts{Connect: 0, Total: time.Second}.validate())

	_, err := NewOllamaClient("http://localhost:11434", "m", Timeouts{Connect: time.Minute, Total: time.Second})
	assert.Error(t, err)
}
