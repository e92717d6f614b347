package services

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ErrRegistryUnavailable is returned when the scheme registry could not be
// loaded from the upstream feed. Registry loads are retried on the next call.
var ErrRegistryUnavailable = errors.New("scheme registry unavailable")

// transientMarkers are substrings that identify a retryable provider failure
// when the error type itself carries no signal.
var transientMarkers = []string{
	"timeout",
	"connection",
	"500",
	"server error",
	"temporarily",
}

// IsTransient reports whether err looks like a temporary failure worth
// retrying: deadline expiry, network errors, and provider messages that
// mention timeouts or server-side trouble. Context cancellation is not
// transient; the caller is going away.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, ErrRegistryUnavailable) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
