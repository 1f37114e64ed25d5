// Package httperr maps application error kinds to HTTP responses.
package httperr

import (
	"net/http"

	"stock_forecast/internal/shared/apperr"
)

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RateLimitMessage is returned to clients when the provider throttles us.
const RateLimitMessage = "Rate limit exceeded. Please try again in a minute."

// StatusFor returns the HTTP status for an error kind.
func StatusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindInsufficientData, apperr.KindInvalidArgument:
		return http.StatusBadRequest
	case apperr.KindProvider, apperr.KindUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Response builds the status and body for err. notFoundMsg overrides the
// message used for KindNotFound so each route keeps its own wording.
func Response(err error, notFoundMsg string) (int, ErrorResponse) {
	k := apperr.KindOf(err)
	msg := err.Error()
	switch k {
	case apperr.KindNotFound:
		if notFoundMsg != "" {
			msg = notFoundMsg
		}
	case apperr.KindRateLimited:
		msg = RateLimitMessage
	case apperr.KindInsufficientData:
		msg = "Insufficient historical data"
	}
	return StatusFor(k), ErrorResponse{Error: msg}
}
