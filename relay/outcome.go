package relay

import "time"

/* Result is the outcome of forwarding one event to one target
 * There are no retries: Failed is terminal
 */
type Result int

const (
	Delivered Result = iota + 1
	Failed
	Skipped
)

// String returns the string representation of the result
func (r Result) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome describes a single target delivery
type Outcome struct {
	Target     string
	Result     Result
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Summary aggregates the outcomes of one fan-out
type Summary struct {
	MessageID string
	Delivered int
	Failed    int
	Skipped   int
	Outcomes  []Outcome
}

func summarize(messageID string, outcomes []Outcome) Summary {
	s := Summary{MessageID: messageID, Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.Result {
		case Delivered:
			s.Delivered++
		case Failed:
			s.Failed++
		case Skipped:
			s.Skipped++
		}
	}
	return s
}
