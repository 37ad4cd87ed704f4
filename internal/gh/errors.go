package gh

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v74/github"
)

// ErrNotFound marks a 404 from GitHub; callers use it to distinguish
// "absent" from "forbidden".
var ErrNotFound = errors.New("resource not found")

// Error carries the HTTP status and the GitHub-provided message for a
// failed provider call.
type Error struct {
	Status  int
	Message string
	URL     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("github: %s: %d %s", e.URL, e.Status, e.Message)
}

// Retryable reports whether the failure is transient (429 or 5xx).
func (e *Error) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// wrapErr converts go-github errors into the package error surface.
// 404 responses wrap ErrNotFound so callers can errors.Is on it.
func wrapErr(resp *github.Response, err error) error {
	if err == nil {
		return nil
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		e := &Error{
			Status:  ghErr.Response.StatusCode,
			Message: ghErr.Message,
			URL:     ghErr.Response.Request.URL.String(),
		}
		if e.Status == http.StatusNotFound {
			return fmt.Errorf("%s: %w", e.Message, ErrNotFound)
		}
		return e
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &Error{
			Status:  http.StatusTooManyRequests,
			Message: rateErr.Message,
		}
	}
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%v: %w", err, ErrNotFound)
	}
	return err
}

// IsNotFound reports whether err represents a 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
