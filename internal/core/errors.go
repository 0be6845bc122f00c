package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrBackend         = errors.New("backend request failed")
	ErrEmptyCompletion = errors.New("backend returned no content")
	ErrUnknownBackend  = errors.New("unknown backend")
	ErrUnintelligible  = errors.New("could not understand the audio")

	ErrConversationNotFound = errors.New("conversation not found")
)

// BackendError is a transport, auth, rate limit or status failure reported by
// a completion backend. StatusCode is 0 when no response was received.
type BackendError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: http %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

// Retryable reports whether repeating the same request may succeed.
func (e *BackendError) Retryable() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// IsRetryable is the retry predicate used by backend adapters.
func IsRetryable(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Retryable()
	}
	return false
}

// RecognitionError wraps a speech-to-text service failure.
type RecognitionError struct {
	Err error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("speech recognition service error: %v", e.Err)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}
