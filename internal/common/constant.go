// Package common contains shared constants, sentinel errors and small helpers
// used across taskdesk components.
package common

const (
	// AuthorizationHeaderName carries the bearer token on outbound requests.
	AuthorizationHeaderName = "Authorization"
	// RequestIDHeaderName carries a per-request correlation id.
	RequestIDHeaderName = "X-Request-ID"
	// BearerPrefix precedes the token in the Authorization header.
	BearerPrefix = "Bearer "
)
