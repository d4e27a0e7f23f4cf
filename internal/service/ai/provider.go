package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Prompt is one generation request: the system directive plus the user's text.
type Prompt struct {
	System string
	User   string
}

// GenerationOptions are the per-call sampling parameters.
type GenerationOptions struct {
	MaxTokens   int
	Temperature float64
}

// Provider is one text-generation backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt Prompt, opts GenerationOptions) (string, error)
}

// ErrorKind classifies provider failures. Every kind is eligible for fallback.
type ErrorKind int

const (
	// Unavailable covers 5xx, 429 and "model is loading" answers.
	Unavailable ErrorKind = iota + 1
	// BadResponse covers bodies that cannot be parsed or carry no text.
	BadResponse
	// Rejected covers every other 4xx.
	Rejected
	// Transport covers network errors, timeouts and cancellation.
	Transport
)

func (k ErrorKind) String() string {
	switch k {
	case Unavailable:
		return "unavailable"
	case BadResponse:
		return "bad response"
	case Rejected:
		return "rejected"
	case Transport:
		return "transport"
	default:
		return "unknown"
	}
}

// ProviderError is the error every Provider returns.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	// Status is the HTTP status when the backend answered, 0 otherwise.
	Status int
	Err    error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (http %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func newProviderError(provider string, kind ErrorKind, status int, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Status: status, Err: err}
}

// kindForStatus maps a non-2xx HTTP answer to an ErrorKind.
func kindForStatus(status int, body []byte) ErrorKind {
	switch {
	case status == 429 || status >= 500:
		return Unavailable
	case status >= 400 && strings.Contains(strings.ToLower(string(body)), "loading"):
		return Unavailable
	case status >= 400:
		return Rejected
	default:
		return BadResponse
	}
}

// classifyError wraps an error from an SDK that does not expose HTTP details.
func classifyError(provider string, err error) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	if isTransportError(err) {
		return newProviderError(provider, Transport, 0, err)
	}
	return newProviderError(provider, Unavailable, 0, err)
}

func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
