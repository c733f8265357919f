package dispatch

import "fmt"

/* Decision is what one tick concluded for one (vendor, slot) pair
 * Only Sent and Failed consume the slot through an actual send attempt
 */
type Decision int

const (
	Skip Decision = iota + 1
	AlreadySent
	Sent
	Failed
	Error
)

// String returns the string representation of the decision
func (d Decision) String() string {
	switch d {
	case Skip:
		return "SKIP"
	case AlreadySent:
		return "ALREADY_SENT"
	case Sent:
		return "SENT"
	case Failed:
		return "FAILED"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders decisions by name in JSON reports
func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses a decision name; unknown names are an error
func (d *Decision) UnmarshalText(text []byte) error {
	for _, candidate := range []Decision{Skip, AlreadySent, Sent, Failed, Error} {
		if candidate.String() == string(text) {
			*d = candidate
			return nil
		}
	}
	return fmt.Errorf("invalid decision: %q", text)
}
