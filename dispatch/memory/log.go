package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/marcelsud/vendor-relay/dispatch"
)

/* LogRepository keeps the dispatch log in process memory
 * Used when no database is configured and by tests; entries are lost on restart
 */
type LogRepository struct {
	mu      sync.RWMutex
	entries map[string]dispatch.LogEntry
}

var _ dispatch.LogRepository = (*LogRepository)(nil)

func NewLogRepository() *LogRepository {
	return &LogRepository{entries: make(map[string]dispatch.LogEntry)}
}

// Record stores the entry; a second entry for the same (vendor, date, slot) is rejected
func (r *LogRepository) Record(_ context.Context, entry dispatch.LogEntry) error {
	if err := entry.Slot.Validate(); err != nil {
		return fmt.Errorf("validating slot: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := entryKey(entry.VendorID, entry.Date, entry.Slot)
	if _, ok := r.entries[key]; ok {
		return fmt.Errorf("%w: %s", dispatch.ErrDuplicateEntry, key)
	}
	r.entries[key] = entry
	return nil
}

func (r *LogRepository) Exists(_ context.Context, vendorID, date string, slot dispatch.Slot) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[entryKey(vendorID, date, slot)]
	return ok, nil
}

// ListByDate returns the entries of a day ordered by send time
func (r *LogRepository) ListByDate(_ context.Context, date string) ([]dispatch.LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []dispatch.LogEntry
	for _, e := range r.entries {
		if e.Date == date {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].VendorID < out[j].VendorID
		}
		return out[i].SentAt.Before(out[j].SentAt)
	})
	return out, nil
}

func entryKey(vendorID, date string, slot dispatch.Slot) string {
	return vendorID + "|" + date + "|" + slot.String()
}
