package notify

import (
	"errors"
	"fmt"
)

var (
	ErrRateLimited = errors.New("rate limiter wait aborted")
	ErrRejected    = errors.New("post rejected")
)

// APIError is a non-2xx response from the post endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("groupme post failed: status %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return ErrRejected }
