package targets

import (
	"fmt"
	"net/url"
	"time"

	"github.com/marcelsud/vendor-relay/webhook/payload"
)

/* Target is a downstream consumer of verified provider events
 * Static configuration: never persisted, outcomes are only logged
 */
type Target struct {
	Label   string
	URL     string
	Timeout time.Duration // 0: relay default
	Events  []string      // Event kinds to forward (e.g. ["message.*", "status.read"]); empty forwards all
}

// Validate checks if the target configuration is valid
func (t *Target) Validate() error {
	if t.Label == "" {
		return fmt.Errorf("label cannot be empty")
	}
	if t.URL == "" {
		return fmt.Errorf("url cannot be empty for target %s", t.Label)
	}
	u, err := url.Parse(t.URL)
	if err != nil {
		return fmt.Errorf("invalid url for target %s: %w", t.Label, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must be http or https for target %s (got %q)", t.Label, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url must have a host for target %s", t.Label)
	}
	if t.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative for target %s", t.Label)
	}
	for _, kind := range t.Events {
		if err := payload.ValidateKind(kind); err != nil {
			return fmt.Errorf("invalid event '%s' for target %s: %w", kind, t.Label, err)
		}
	}
	return nil
}

// Accepts reports whether an event of the given kind is forwarded to this target
func (t *Target) Accepts(kind string) bool {
	return payload.MatchesKind(kind, t.Events)
}

// GetTimeout returns the target timeout, falling back to def
func (t *Target) GetTimeout(def time.Duration) time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return def
}
