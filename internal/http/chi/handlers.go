package chi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/marcelsud/vendor-relay/dispatch"
	"github.com/marcelsud/vendor-relay/targets"
	"github.com/marcelsud/vendor-relay/webhook"
)

// DefaultMaxBodyBytes bounds the inbound webhook body
const DefaultMaxBodyBytes = 1 << 20

// RequestTimeout bounds every route except the dispatch check
const RequestTimeout = 30 * time.Second

// DispatchCheckTimeout stays below the 90s client timeout of dispatch.RemoteTicker
const DispatchCheckTimeout = 80 * time.Second

// DispatchTokenHeader authenticates callers of POST /v1/dispatch/check
const DispatchTokenHeader = dispatch.CheckTokenHeader

// TargetLister provides the configured relay targets
type TargetLister interface {
	List() []*targets.Target
}

/* Options carries the collaborators of the HTTP layer
 * Optional collaborators left nil disable their routes
 */
type Options struct {
	Webhook       webhook.UseCase
	Targets       TargetLister
	Ticker        dispatch.Ticker    // optional
	Logs          dispatch.LogReader // optional
	Metrics       http.Handler       // optional
	VerifyToken   string
	DispatchToken string // empty disables the check
	MaxBodyBytes  int64
	LogLevel      string
}

func (o Options) maxBodyBytes() int64 {
	if o.MaxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}
	return o.MaxBodyBytes
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
