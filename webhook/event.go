package webhook

import "time"

/* Event represents a verified, deduplicated provider delivery
 * Uses value semantics as it represents data, not behavior
 * RawBody holds the exact bytes received; it is never re-serialized
 */
type Event struct {
	MessageID  string
	Kind       string
	RawBody    []byte
	ReceivedAt time.Time
}
