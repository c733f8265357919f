package chi

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/vendor-relay/webhook"
	"github.com/marcelsud/vendor-relay/webhook/signature"
)

/* HTTP layer DTOs for the relay API
 * Separate from domain entities to avoid leaking internal structure
 */

// targetResponse represents a relay target in the API. Secrets are never exposed.
type targetResponse struct {
	Label   string   `json:"label"`
	URL     string   `json:"url"`
	Timeout string   `json:"timeout,omitempty"`
	Events  []string `json:"events,omitempty"`
}

// getWebhookChallenge handles GET /webhook (provider subscription handshake)
func getWebhookChallenge(verifyToken string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		mode := query.Get("hub.mode")
		token := query.Get("hub.verify_token")

		if mode != "subscribe" || verifyToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(verifyToken)) != 1 {
			httplog.LogEntrySetField(r.Context(), "challenge", "rejected")
			w.WriteHeader(http.StatusForbidden)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(query.Get("hub.challenge")))
	})
}

// postWebhook handles POST /webhook
func postWebhook(webhookService webhook.UseCase, maxBodyBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAt := time.Now().UTC()

		// Raw bytes are needed for the signature, read them before any parsing
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		evt, result, err := webhookService.Accept(r.Context(), body, r.Header.Get(signature.HeaderName), receivedAt)
		httplog.LogEntrySetField(r.Context(), "result", result.String())
		if evt.MessageID != "" {
			httplog.LogEntrySetField(r.Context(), "message_id", evt.MessageID)
		}
		if err != nil {
			oplog := httplog.LogEntry(r.Context())
			oplog.Warn().Err(err).Str("result", result.String()).Msg("webhook not relayed")
		}

		w.WriteHeader(result.StatusCode())
		if result != webhook.Accepted {
			return
		}

		// The provider gets its ACK before any target is contacted
		_ = http.NewResponseController(w).Flush()
		webhookService.Relay(r.Context(), evt)
	})
}

// getTargets handles GET /v1/targets
func getTargets(lister TargetLister) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		all := lister.List()

		responses := make([]targetResponse, 0, len(all))
		for _, t := range all {
			resp := targetResponse{
				Label:  t.Label,
				URL:    t.URL,
				Events: t.Events,
			}
			if t.Timeout > 0 {
				resp.Timeout = t.Timeout.String()
			}
			responses = append(responses, resp)
		}

		writeJSON(w, http.StatusOK, responses)
	})
}
