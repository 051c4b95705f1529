package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// StatusCodeFunc extracts an HTTP status code from a provider error.
type StatusCodeFunc func(err error) (int, bool)

// ClassifyHTTPError is the shared policy for HTTP model providers: retry
// network errors, open circuits and transient statuses; never retry
// cancellation.
func ClassifyHTTPError(err error, statusCode StatusCodeFunc) ErrorClassification {
	if err == nil {
		return ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if IsCircuitOpen(err) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if statusCode != nil {
		if code, ok := statusCode(err); ok {
			if RetryableHTTPStatus(code) {
				return ErrorClassification{Retryable: true, RecordFailure: true}
			}
			return ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return ErrorClassification{Retryable: false, RecordFailure: true}
}

func RetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
