package dispatch

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateEntry is returned when a (vendor, date, slot) entry already exists
var ErrDuplicateEntry = errors.New("dispatch log entry already exists")

/* LogEntry records one send attempt
 * Entries are append-only: created right after the attempt, never mutated
 */
type LogEntry struct {
	ID        string
	VendorID  string
	Date      string // YYYY-MM-DD, vendor local
	Slot      Slot
	SentAt    time.Time
	MessageID string // empty when the send failed
	Success   bool
	Error     string
}

// LogReader provides read operations for the dispatch log
type LogReader interface {
	// Exists reports whether any attempt was recorded for the slot, successful or not
	Exists(ctx context.Context, vendorID, date string, slot Slot) (bool, error)
	ListByDate(ctx context.Context, date string) ([]LogEntry, error)
}

// LogWriter provides write operations for the dispatch log
type LogWriter interface {
	Record(ctx context.Context, entry LogEntry) error
}

type LogRepository interface {
	LogReader
	LogWriter
}
