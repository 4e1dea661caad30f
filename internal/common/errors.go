// Package common defines shared constants and sentinel errors used across
// the client and server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Transport-level errors surfaced by the API client.
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrServerUnavailable  = errors.New("server unavailable")

	// ErrRateLimited marks a call that was skipped because the endpoint is
	// inside a suppression window. It is a soft no-op, never shown to users.
	ErrRateLimited = errors.New("rate limited")

	// Token lifecycle errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
