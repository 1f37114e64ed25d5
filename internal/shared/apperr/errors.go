// Package apperr defines the closed set of failure kinds shared by the market and forecast features.
package apperr

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the provider has no data for a symbol or period.
	ErrNotFound = errors.New("no data found")

	// ErrRateLimited is returned when the provider throttles the request (HTTP 429).
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInsufficientData is returned when a forecast precondition is not met.
	ErrInsufficientData = errors.New("insufficient historical data")

	// ErrInvalidArgument is returned when request input fails validation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrProvider is returned for any other failure of the market data provider.
	ErrProvider = errors.New("market data provider error")
)

// Kind classifies an error for status-code selection.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindRateLimited
	KindInsufficientData
	KindInvalidArgument
	KindProvider
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindInsufficientData:
		return "insufficient_data"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindProvider:
		return "provider"
	default:
		return "unknown"
	}
}

// KindOf reports the kind of err. Wrapped sentinels are matched with errors.Is.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrInsufficientData):
		return KindInsufficientData
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrProvider), errors.Is(err, context.DeadlineExceeded):
		return KindProvider
	default:
		return KindUnknown
	}
}
