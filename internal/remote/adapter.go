// Package remote abstracts the size-limited, reply-threaded content
// host. The filesystem layer depends only on the Adapter interface;
// the concrete variants are an in-memory Mock for tests, a
// bearer-token client, and an OAuth1-signed client. Network variants
// put every call through sliding-window rate limiting and exponential
// backoff before a failure is surfaced.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/plume/internal/dag"
)

// PageSize is the bounded page size for reply enumeration on network
// variants.
const PageSize = 100

// Adapter is the capability set the core consumes. Implementations
// must be safe for concurrent use.
type Adapter interface {
	// Fetch returns the payload of the post with the given ID.
	Fetch(ctx context.Context, id dag.PostID) ([]byte, error)

	// Store posts a new root payload and returns its ID.
	Store(ctx context.Context, content []byte) (dag.PostID, error)

	// StoreReply posts content as a reply to parent and returns the
	// new post's ID.
	StoreReply(ctx context.Context, parent dag.PostID, content []byte) (dag.PostID, error)

	// FetchReplies returns the IDs of all direct replies to id.
	FetchReplies(ctx context.Context, id dag.PostID) ([]dag.PostID, error)
}

// ErrRateLimited reports that the host rejected a call for exceeding
// its rate limits even after local admission control.
var ErrRateLimited = errors.New("remote: rate limit exceeded")

// APIError is a failure reported by the host itself, with the host's
// message preserved.
type APIError struct {
	Status  int    // HTTP status, 0 for non-HTTP variants
	Message string // host-provided message
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote API error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("remote API error: %s", e.Message)
}

// IsAPIError reports whether err is (or wraps) an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
