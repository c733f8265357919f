package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// CheckPath is the API route that runs one scheduler tick
	CheckPath = "/v1/dispatch/check"
	// CheckTokenHeader authenticates callers of CheckPath
	CheckTokenHeader = "X-Dispatch-Token"
)

/* RemoteTicker asks a running API process to tick.
 * Backup callers use it so the primary's clock decides what is due;
 * the ledger makes any overlap with the primary's own ticks harmless.
 */
type RemoteTicker struct {
	BaseURL     string
	Token       string
	TokenHeader string
	HTTPClient  *http.Client
}

var _ Ticker = (*RemoteTicker)(nil)

func NewRemoteTicker(baseURL, token string) *RemoteTicker {
	return &RemoteTicker{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Token:       token,
		TokenHeader: CheckTokenHeader,
		HTTPClient:  &http.Client{Timeout: 90 * time.Second},
	}
}

// Tick posts to the check endpoint; now is ignored, the API uses its own clock
func (t *RemoteTicker) Tick(ctx context.Context, _ time.Time) (Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+CheckPath, nil)
	if err != nil {
		return Report{}, fmt.Errorf("building check request: %w", err)
	}
	if t.Token != "" {
		req.Header.Set(t.TokenHeader, t.Token)
	}

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("calling dispatch check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Report{}, fmt.Errorf("dispatch check status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return Report{}, fmt.Errorf("decoding dispatch report: %w", err)
	}
	return report, nil
}

// Fallback ticks Primary and, when it fails, Secondary
type Fallback struct {
	Primary   Ticker
	Secondary Ticker // optional
	Logger    zerolog.Logger
}

var _ Ticker = (*Fallback)(nil)

func (f *Fallback) Tick(ctx context.Context, now time.Time) (Report, error) {
	report, err := f.Primary.Tick(ctx, now)
	if err == nil || f.Secondary == nil {
		return report, err
	}

	f.Logger.Warn().Err(err).Msg("primary tick failed, ticking locally")
	return f.Secondary.Tick(ctx, now)
}
