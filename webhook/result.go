package webhook

import (
	"fmt"
	"net/http"
)

/* Result is the outcome of accepting one inbound request
 * Only Accepted events are handed to the relay
 */
type Result int

const (
	Accepted Result = iota + 1
	Duplicate
	Rejected
	Malformed
	Unavailable
)

// String returns the string representation of the result
func (r Result) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	case Rejected:
		return "rejected"
	case Malformed:
		return "malformed"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Validate checks if the result is valid
func (r Result) Validate() error {
	if r < Accepted || r > Unavailable {
		return fmt.Errorf("invalid result: %d", r)
	}
	return nil
}

/* StatusCode maps a result to the response the provider sees.
 * Malformed and duplicate deliveries are acknowledged so the provider stops
 * retrying them; an unavailable ledger asks for a retry.
 */
func (r Result) StatusCode() int {
	switch r {
	case Accepted, Duplicate, Malformed:
		return http.StatusOK
	case Rejected:
		return http.StatusForbidden
	default:
		return http.StatusServiceUnavailable
	}
}
