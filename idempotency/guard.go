package idempotency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

/* Guard applies the unavailability policy around a backend.
 * FailOpen: a backend error is logged and reported as "not processed", so a
 * ledger outage never drops provider webhooks (rare duplicates are accepted).
 * Fail-closed: the error is returned wrapped in ErrLedgerUnavailable.
 */
type Guard struct {
	Store    Store
	FailOpen bool
	Logger   zerolog.Logger
}

func NewGuard(store Store, failOpen bool, logger zerolog.Logger) *Guard {
	return &Guard{
		Store:    store,
		FailOpen: failOpen,
		Logger:   logger,
	}
}

func (g *Guard) CheckAndMark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, ErrEmptyKey
	}
	already, err := g.Store.CheckAndMark(ctx, key, ttl)
	if err == nil {
		return already, nil
	}
	if g.FailOpen {
		g.Logger.Warn().
			Err(err).
			Str("key", key).
			Msg("idempotency ledger unavailable, proceeding as not processed")
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
}
