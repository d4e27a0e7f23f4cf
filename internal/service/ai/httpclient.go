package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Timeouts bound one provider call. Connect must be strictly shorter than Total.
type Timeouts struct {
	Connect time.Duration
	Total   time.Duration
}

// DefaultTimeouts are 10s to connect and 30s overall.
var DefaultTimeouts = Timeouts{Connect: 10 * time.Second, Total: 30 * time.Second}

func (t Timeouts) validate() error {
	if t.Connect <= 0 || t.Total <= 0 {
		return errors.New("timeouts must be positive")
	}
	if t.Connect >= t.Total {
		return fmt.Errorf("connect timeout %s must be shorter than total timeout %s", t.Connect, t.Total)
	}
	return nil
}

func newHTTPClient(t Timeouts) (*http.Client, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: t.Connect, KeepAlive: 30 * time.Second}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = t.Connect
	transport.ResponseHeaderTimeout = t.Total

	return &http.Client{Timeout: t.Total, Transport: transport}, nil
}

const maxResponseBytes = 4 << 20

// postJSON sends body and returns the response body of a 2xx answer. Every failure is a
// *ProviderError.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, newProviderError(provider, Transport, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, newProviderError(provider, Transport, 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, newProviderError(provider, Transport, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newProviderError(provider, kindForStatus(resp.StatusCode, raw), resp.StatusCode, errors.New(snippet(raw)))
	}
	return raw, nil
}

func snippet(raw []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return "empty body"
	}
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
