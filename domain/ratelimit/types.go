// Package ratelimit provides domain types and interfaces for rate limiting.
package ratelimit

import (
	"context"
	"time"
)

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerWindow is the maximum number of requests allowed in the window.
	RequestsPerWindow int
	// WindowSize is the length of one window.
	WindowSize time.Duration
}

// Result represents the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	// RetryAfter is only set when the request was refused.
	RetryAfter time.Duration
}

// Limiter is implemented by the in-memory and Redis backed limiters.
type Limiter interface {
	// Allow records one request for key and reports whether it fits the limit.
	Allow(ctx context.Context, key string) (*Result, error)

	// Close releases any resources held by the limiter.
	Close() error
}

// DefaultHTTPConfig is 100 requests per minute per client IP.
func DefaultHTTPConfig() Config {
	return Config{
		RequestsPerWindow: 100,
		WindowSize:        time.Minute,
	}
}
