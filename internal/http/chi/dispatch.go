package chi

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/vendor-relay/dispatch"
)

/*
* Representa uma entrada do log de disparos na camada web, por isso ela tem as tags json
 */
type logEntryResponse struct {
	ID        string    `json:"id"`
	VendorID  string    `json:"vendor_id"`
	Date      string    `json:"date"`
	Slot      string    `json:"slot"`
	SentAt    time.Time `json:"sent_at"`
	MessageID string    `json:"message_id,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// postDispatchCheck handles POST /v1/dispatch/check: one scheduler tick at the current time
func postDispatchCheck(ticker dispatch.Ticker, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(DispatchTokenHeader)), []byte(token)) != 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		report, err := ticker.Tick(r.Context(), time.Now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		httplog.LogEntrySetField(r.Context(), "dispatch_sent", strconv.Itoa(report.Counts[dispatch.Sent]))

		writeJSON(w, http.StatusOK, report)
	})
}

// getDispatchLogs handles GET /v1/dispatch/logs?date=YYYY-MM-DD (default: today, UTC)
func getDispatchLogs(logs dispatch.LogReader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == "" {
			date = time.Now().UTC().Format(dispatch.DateLayout)
		}
		if _, err := time.Parse(dispatch.DateLayout, date); err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		entries, err := logs.ListByDate(r.Context(), date)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		result := make([]logEntryResponse, 0, len(entries))
		for _, e := range entries {
			result = append(result, logEntryResponse{
				ID:        e.ID,
				VendorID:  e.VendorID,
				Date:      e.Date,
				Slot:      e.Slot.String(),
				SentAt:    e.SentAt,
				MessageID: e.MessageID,
				Success:   e.Success,
				Error:     e.Error,
			})
		}

		writeJSON(w, http.StatusOK, result)
	})
}
