package generation

import (
	"errors"
	"fmt"
)

// ErrEmptyCompletion is returned when the API answered 200 but produced no
// usable text. Treated as a permanent failure so the item surfaces to an
// operator instead of burning retries.
var ErrEmptyCompletion = errors.New("generation: empty completion")

// APIError describes a rejected chat-completion call.
type APIError struct {
	// Status is the HTTP status code of the rejection.
	Status int
	// Body is the upstream error message or a truncated response excerpt.
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("generation: status %d: %s", e.Status, e.Body)
}

// Temporary reports whether retrying later may succeed: rate limiting and
// upstream 5xx qualify, 4xx rejections (bad request, policy refusal) do not.
func (e *APIError) Temporary() bool {
	return e.Status == 429 || e.Status >= 500
}

// truncateBody bounds response excerpts carried inside APIError.
func truncateBody(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max])
	}
	return string(b)
}
