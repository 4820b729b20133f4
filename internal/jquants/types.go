// Package jquants provides a client for the J-Quants API operated by JPX
// Market Innovation & Research. This package centralizes all J-Quants API
// interactions for the application.
package jquants

import (
	"fmt"
	"time"
)

// QueryOption represents an optional parameter for API queries.
type QueryOption func(*queryParams)

// queryParams holds optional query parameters.
type queryParams struct {
	From time.Time
	To   time.Time
	Date time.Time
}

// WithDateRange sets the from/to range for the query.
func WithDateRange(from, to time.Time) QueryOption {
	return func(p *queryParams) {
		p.From = from
		p.To = to
	}
}

// WithDate pins the query to a single disclosure date.
func WithDate(date time.Time) QueryOption {
	return func(p *queryParams) {
		p.Date = date
	}
}

// APIError represents an error from the J-Quants API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("J-Quants API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// AuthError represents a failure to obtain or refresh API tokens.
type AuthError struct {
	Stage   string // "auth_user" or "auth_refresh"
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("J-Quants auth failed at %s: %s", e.Stage, e.Message)
}

// RateLimitError represents a rate limit error.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("J-Quants rate limit exceeded, retry after %v", e.RetryAfter)
}
