// Package netx classifies transport-level failures.
package netx

import (
	"context"
	"errors"
	"net"
	"net/url"
	"syscall"
)

// IsTimeout reports whether err is a deadline or timeout anywhere in its chain.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsTransport reports whether err means no usable response came back from
// the server: dial failures, resets, DNS errors, timeouts. A cancelled
// context is not a transport failure.
func IsTransport(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if IsTimeout(err) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
