package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthExpired is returned when a platform rejects the current access
	// token. Recoverable via one refresh-and-retry.
	ErrAuthExpired = errors.New("platform rejected access token")

	// ErrRefreshFailed is returned when the platform rejects the refresh
	// token itself. Terminal for the connection until the user reconnects.
	ErrRefreshFailed = errors.New("platform rejected refresh token")

	// ErrNotFound is returned when the source item no longer exists upstream.
	ErrNotFound = errors.New("item not found on platform")

	// ErrItemAlreadyClaimed is returned when attempting to claim a queue item
	// that is not in PENDING status.
	ErrItemAlreadyClaimed = errors.New("queue item already claimed or not in PENDING status")

	// ErrClaimLost is returned when a terminal transition finds the caller
	// no longer owns the item's claim, typically because the stuck-item
	// sweep reclaimed it mid-flight. The outcome must be dropped, not
	// recorded.
	ErrClaimLost = errors.New("queue item claim no longer held")

	// ErrItemNotFound is returned when a queue item cannot be found.
	ErrItemNotFound = errors.New("queue item not found")

	// ErrWorkflowNotFound is returned when a workflow cannot be found.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrConnectionNotFound is returned when a connection cannot be found.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrUnknownPlatform is returned when no adapter is registered for a
	// workflow's platform name.
	ErrUnknownPlatform = errors.New("no adapter registered for platform")
)

// UpstreamError carries the status and body of a non-auth platform API
// failure for diagnostics. It is recorded on the queue item, never
// auto-retried.
type UpstreamError struct {
	Platform   string
	Operation  string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Platform, e.Operation, e.StatusCode, e.Body)
}

// NewUpstreamError creates an UpstreamError with the body truncated to a
// diagnosable size.
func NewUpstreamError(platform, operation string, statusCode int, body string) *UpstreamError {
	const maxBody = 500
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return &UpstreamError{
		Platform:   platform,
		Operation:  operation,
		StatusCode: statusCode,
		Body:       body,
	}
}
