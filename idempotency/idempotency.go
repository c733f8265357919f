package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"
)

/* The ledger answers one question: has this key been handled already?
 * A key's presence is the only source of truth. Check and mark happen in a
 * single call so two concurrent callers with the same key cannot both see
 * "not processed".
 */

var (
	// ErrLedgerUnavailable is returned by Guard in fail-closed mode when the backend errors
	ErrLedgerUnavailable = errors.New("idempotency ledger unavailable")

	// ErrEmptyKey is returned for blank keys
	ErrEmptyKey = errors.New("idempotency key is required")
)

// Store is implemented by every ledger backend (in-memory, Redis)
type Store interface {
	/* CheckAndMark inserts key with the given ttl when absent and returns false.
	 * When key is present it returns true and leaves the existing ttl alone.
	 * ttl <= 0 means the mark never expires.
	 */
	CheckAndMark(ctx context.Context, key string, ttl time.Duration) (alreadyProcessed bool, err error)
}

// MessageKey is the ledger key for an inbound provider message
func MessageKey(messageID string) string {
	return "msg:" + messageID
}

// DispatchKey is the ledger key for one reminder slot of one vendor on one day
func DispatchKey(vendorID, date, slot string) string {
	return fmt.Sprintf("dispatch:%s:%s:%s", vendorID, date, slot)
}
