package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrQuotaBlocked is returned when the API-key quota tracker blocks a request.
	ErrQuotaBlocked = errors.New("request blocked: API-key quota critical")
)

// RemoteError represents an error response from the API.
// The service answers error-range statuses with a JSON body shaped
// {"error": {"code": "...", "message": "..."}}.
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error (status %d, code %s): %s",
		e.StatusCode, e.Code, e.Message)
}

// errorEnvelope mirrors the API error body.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// decodeRemoteError builds a RemoteError from an error-range response.
// The body is consumed and closed. An unreadable or non-JSON body falls
// back to the HTTP status text.
func decodeRemoteError(resp *http.Response) *RemoteError {
	remote := &RemoteError{
		StatusCode: resp.StatusCode,
		Code:       fmt.Sprintf("%d", resp.StatusCode),
		Message:    http.StatusText(resp.StatusCode),
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	if err != nil {
		return remote
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return remote
	}

	if envelope.Error.Code != "" {
		remote.Code = envelope.Error.Code
	}
	if envelope.Error.Message != "" {
		remote.Message = envelope.Error.Message
	}

	return remote
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx errors should NOT be retried
		return false
	case ErrorClassServer:
		// 5xx server errors are transient
		return true
	case ErrorClassRateLimit:
		// 429 means the quota window is exhausted; backoff may outlast it
		return true
	case ErrorClassNetwork:
		return true
	default:
		return false
	}
}
