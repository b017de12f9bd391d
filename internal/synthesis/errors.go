package synthesis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind buckets backend failures by how the requester must react.
type Kind int

const (
	// KindTransient covers timeouts, 5xx and network errors: retry
	// after a short fixed wait.
	KindTransient Kind = iota

	// KindRateLimit covers quota exhaustion: retry only after the
	// per-minute quota window has had time to reset.
	KindRateLimit

	// KindPermanent covers caller bugs and rejected requests: no retry.
	KindPermanent

	// KindConfig covers missing capabilities (API key, transcoder):
	// fatal, surfaced immediately.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limit"
	case KindPermanent:
		return "permanent"
	case KindConfig:
		return "config"
	default:
		return "transient"
	}
}

// ErrOversizeInput marks a request whose text exceeds MaxInputBytes.
// This indicates an upstream chunking bug and is never retried.
var ErrOversizeInput = errors.New("input exceeds backend byte limit")

type BackendError struct {
	Kind   Kind
	Op     string
	Status int
	Err    error
}

func (e *BackendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// KindOf classifies an arbitrary error for retry handling. Errors that
// do not carry an explicit kind are sniffed for quota markers; anything
// unrecognized is treated as transient.
func KindOf(err error) Kind {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind
	}
	if errors.Is(err, ErrOversizeInput) {
		return KindPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "resource_exhausted"),
		strings.Contains(msg, "resource exhausted"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "rate limit"):
		return KindRateLimit
	}
	return KindTransient
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}
