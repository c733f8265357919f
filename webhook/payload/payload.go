package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// kindPattern validates event kinds: hierarchical, full-stop delimited, [a-zA-Z0-9_.]
var kindPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+(\.[a-zA-Z0-9_]+)*$`)

// ErrMalformed marks a body that will never parse into a usable event.
// Callers acknowledge it anyway so the provider stops retrying.
var ErrMalformed = errors.New("malformed payload")

/* Envelope is the subset of the WhatsApp Cloud API notification we need:
 * entry[].changes[].value.messages[] and entry[].changes[].value.statuses[].
 * It is only used to read ids and kinds; the raw body is what gets relayed.
 */
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Messages         []Message `json:"messages"`
	Statuses         []Status  `json:"statuses"`
}

// Message is an inbound user message (text, button reply, location share...)
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	Timestamp string    `json:"timestamp"`
	Type      string    `json:"type"`
	Button    *Button   `json:"button,omitempty"`
	Location  *Location `json:"location,omitempty"`
}

type Button struct {
	Payload string `json:"payload"`
	Text    string `json:"text"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// Status is a delivery receipt for a message we sent (sent, delivered, read, failed)
type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
	Timestamp   string `json:"timestamp"`
}

// Parse decodes a raw notification body. Every failure wraps ErrMalformed.
func Parse(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: unmarshaling payload: %v", ErrMalformed, err)
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return env, nil
}

// Validate checks that the envelope carries at least one identifiable event
func (e Envelope) Validate() error {
	if len(e.Entry) == 0 {
		return fmt.Errorf("entry is required")
	}
	if id, _ := e.Primary(); id == "" {
		return fmt.Errorf("no message or status id found")
	}
	return nil
}

/* Primary returns the id used for deduplication and the event kind.
 * Messages win over statuses. A status id is the id of the message we sent,
 * shared by its sent/delivered/read receipts, so the status is part of the key.
 */
func (e Envelope) Primary() (id string, kind string) {
	for _, entry := range e.Entry {
		for _, change := range entry.Changes {
			for _, m := range change.Value.Messages {
				if strings.TrimSpace(m.ID) == "" {
					continue
				}
				return m.ID, MessageKind(m.Type)
			}
		}
	}
	for _, entry := range e.Entry {
		for _, change := range entry.Changes {
			for _, s := range change.Value.Statuses {
				if strings.TrimSpace(s.ID) == "" {
					continue
				}
				st := strings.ToLower(strings.TrimSpace(s.Status))
				if st == "" {
					st = "unknown"
				}
				return s.ID + ":" + st, "status." + st
			}
		}
	}
	return "", ""
}

// MessageKind maps a message type ("button", "location", ...) to an event kind
func MessageKind(messageType string) string {
	messageType = strings.ToLower(strings.TrimSpace(messageType))
	if messageType == "" || !kindPattern.MatchString(messageType) {
		return "message.unknown"
	}
	return "message." + messageType
}

// MatchesKind checks if kind matches any of the given filters.
// Supports exact matching and prefix matching ("message.*" matches "message.button").
func MatchesKind(kind string, filters []string) bool {
	if len(filters) == 0 {
		// No filter means accept all
		return true
	}

	for _, filter := range filters {
		if kind == filter {
			return true
		}

		if len(filter) > 2 && filter[len(filter)-2:] == ".*" {
			prefix := filter[:len(filter)-2]
			if len(kind) > len(prefix) && kind[:len(prefix)] == prefix && kind[len(prefix)] == '.' {
				return true
			}
		}
	}

	return false
}

// ValidateKind validates a kind filter
func ValidateKind(kind string) error {
	if kind == "" {
		return fmt.Errorf("event kind cannot be empty")
	}

	// Allow wildcard suffix for filtering
	if len(kind) > 2 && kind[len(kind)-2:] == ".*" {
		kind = kind[:len(kind)-2]
	}

	if !kindPattern.MatchString(kind) {
		return fmt.Errorf("event kind must be hierarchical and contain only [a-zA-Z0-9_.]: %s", kind)
	}

	return nil
}
