package dispatch

import "fmt"

/* Slot represents a named reminder trigger tied to a vendor's opening time
 * PreOpen fires a configured lead before opening, Open fires at opening
 */
type Slot int

const (
	PreOpen Slot = iota + 1
	Open
)

// String returns the string representation of the slot
func (s Slot) String() string {
	switch s {
	case PreOpen:
		return "preOpen"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

// NewSlot creates a Slot from a string; unknown names yield an invalid Slot
func NewSlot(str string) Slot {
	switch str {
	case "preOpen":
		return PreOpen
	case "open":
		return Open
	default:
		return 0
	}
}

// Validate checks if the slot is valid
func (s Slot) Validate() error {
	if s != PreOpen && s != Open {
		return fmt.Errorf("invalid slot: %d", s)
	}
	return nil
}
