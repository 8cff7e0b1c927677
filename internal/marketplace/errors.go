// Package marketplace – error surface
//
// This file defines APIError, the single error type both marketplace clients
// produce for non-2xx responses and error-shaped payloads. The Temporary
// method is the classification hook consumed by the retry policy upstream.
package marketplace

import "fmt"

// APIError describes a rejected marketplace API call. Body holds a truncated
// excerpt of the response so operators can see what the marketplace said
// without logging whole payloads.
type APIError struct {
	// Marketplace is the discriminator of the client that produced the error.
	Marketplace string
	// Op is the short operation name ("list feedbacks", "submit reply").
	Op string
	// Status is the HTTP status code; 200 when the payload itself carried an
	// error flag despite the 2xx transport status.
	Status int
	// Body is a truncated response excerpt.
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s: status %d: %s", e.Marketplace, e.Op, e.Status, e.Body)
}

// Temporary reports whether retrying the call later may succeed. Throttling
// and upstream 5xx are temporary; any other rejection is permanent.
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
