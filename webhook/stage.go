package webhook

import "fmt"

/* Stage represents the progress of one inbound request
 * Follows the lifecycle: Received -> Verified -> Deduped -> Acked -> Relayed
 * Any stage may terminate the request early
 */
type Stage int

const (
	Received Stage = iota + 1
	Verified
	Deduped
	Acked
	Relayed
)

// String returns the string representation of the stage
func (s Stage) String() string {
	switch s {
	case Received:
		return "received"
	case Verified:
		return "verified"
	case Deduped:
		return "deduped"
	case Acked:
		return "acked"
	case Relayed:
		return "relayed"
	default:
		return "unknown"
	}
}

// Validate checks if the stage is valid
func (s Stage) Validate() error {
	if s < Received || s > Relayed {
		return fmt.Errorf("invalid stage: %d", s)
	}
	return nil
}
