package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// Class is the retry classification of a failed request.
type Class int

const (
	// ClassPermanent failures are returned immediately.
	ClassPermanent Class = iota
	// ClassTransient failures are retried with a fixed delay.
	ClassTransient
	// ClassRefused means nothing is listening; the service is absent, not flaky.
	ClassRefused
)

// String returns the classification name.
func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassRefused:
		return "refused"
	default:
		return "permanent"
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

// Error implements error.
func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Code)
	if body := strings.TrimSpace(e.Body); body != "" {
		if len(body) > 200 {
			body = body[:200] + "..."
		}
		msg += ": " + body
	}
	return msg
}

// Classify decides whether err may be retried.
// Connection refused is never retried; timeouts, DNS failures, connection
// resets and 5xx responses are transient; everything else is permanent.
func Classify(err error) Class {
	if err == nil {
		return ClassPermanent
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Code >= 500 {
			return ClassTransient
		}
		return ClassPermanent
	}

	if isConnRefused(err) {
		return ClassRefused
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return ClassTransient
	}
	if strings.Contains(err.Error(), "connection reset") {
		return ClassTransient
	}

	return ClassPermanent
}

func isConnRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "actively refused")
}
