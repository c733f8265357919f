package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/marcelsud/vendor-relay/targets"
	"github.com/marcelsud/vendor-relay/webhook"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	HeaderSecret    = "X-Relay-Secret"
	HeaderMessageID = "X-Message-Id"

	DefaultTimeout   = 10 * time.Second
	defaultUserAgent = "vendor-relay/1.0"

	// responses are drained up to this size so connections can be reused
	maxDrainBytes = 64 << 10
)

// Lister provides the current relay targets
type Lister interface {
	List() []*targets.Target
}

// Recorder counts delivery outcomes per target
type Recorder interface {
	RelayOutcome(ctx context.Context, target string, result string)
}

/* Forwarder delivers verified events to every configured target
 * Targets are independent: a slow or dead target never delays the others
 */
type Forwarder struct {
	Targets        Lister
	Secret         string
	Client         *http.Client
	DefaultTimeout time.Duration
	UserAgent      string
	Recorder       Recorder // optional
	Logger         zerolog.Logger

	wg sync.WaitGroup
}

var _ webhook.Relayer = (*Forwarder)(nil)

// NewForwarder creates a forwarder with its own HTTP client
func NewForwarder(lister Lister, secret string, defaultTimeout time.Duration, logger zerolog.Logger) *Forwarder {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Forwarder{
		Targets:        lister,
		Secret:         secret,
		Client:         &http.Client{},
		DefaultTimeout: defaultTimeout,
		UserAgent:      defaultUserAgent,
		Logger:         logger,
	}
}

/* Go runs the fan-out in the background and returns immediately.
 * The fan-out keeps ctx values but not its cancellation, so a provider that
 * hangs up after the ACK does not abort delivery.
 */
func (f *Forwarder) Go(ctx context.Context, evt webhook.Event) {
	detached := context.WithoutCancel(ctx)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.Forward(detached, evt, f.Targets.List())
	}()
}

// Wait blocks until in-flight fan-outs finish or ctx is done
func (f *Forwarder) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight relays: %w", ctx.Err())
	}
}

// Forward posts the event to all targets concurrently and reports per-target outcomes.
// It never returns an error: failures are logged and counted.
func (f *Forwarder) Forward(ctx context.Context, evt webhook.Event, list []*targets.Target) Summary {
	outcomes := make([]Outcome, len(list))

	var g errgroup.Group
	for i, target := range list {
		if !target.Accepts(evt.Kind) {
			outcomes[i] = Outcome{Target: target.Label, Result: Skipped}
			continue
		}
		g.Go(func() error {
			outcomes[i] = f.deliver(ctx, evt, target)
			return nil
		})
	}
	_ = g.Wait()

	summary := summarize(evt.MessageID, outcomes)
	f.report(ctx, summary)
	return summary
}

func (f *Forwarder) deliver(ctx context.Context, evt webhook.Event, target *targets.Target) Outcome {
	start := time.Now()
	outcome := Outcome{Target: target.Label}

	tctx, cancel := context.WithTimeout(ctx, target.GetTimeout(f.DefaultTimeout))
	defer cancel()

	req, err := http.NewRequestWithContext(tctx, http.MethodPost, target.URL, bytes.NewReader(evt.RawBody))
	if err != nil {
		outcome.Result = Failed
		outcome.Err = fmt.Errorf("creating request: %w", err)
		return outcome
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set(HeaderSecret, f.Secret)
	req.Header.Set(HeaderMessageID, evt.MessageID)

	resp, err := f.Client.Do(req)
	outcome.Duration = time.Since(start)
	if err != nil {
		outcome.Result = Failed
		outcome.Err = fmt.Errorf("posting to %s: %w", target.Label, err)
		return outcome
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	outcome.StatusCode = resp.StatusCode
	// Check status code (2xx is success)
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		outcome.Result = Delivered
		return outcome
	}

	outcome.Result = Failed
	outcome.Err = fmt.Errorf("target %s responded with status: %d", target.Label, resp.StatusCode)
	return outcome
}

func (f *Forwarder) report(ctx context.Context, summary Summary) {
	for _, o := range summary.Outcomes {
		if f.Recorder != nil {
			f.Recorder.RelayOutcome(ctx, o.Target, o.Result.String())
		}
		if o.Result == Failed {
			f.Logger.Warn().
				Err(o.Err).
				Str("message_id", summary.MessageID).
				Str("target", o.Target).
				Int("status_code", o.StatusCode).
				Dur("duration", o.Duration).
				Msg("relay delivery failed")
		}
	}

	event := f.Logger.Info()
	if summary.Failed > 0 {
		event = f.Logger.Warn()
	}
	event.
		Str("message_id", summary.MessageID).
		Int("delivered", summary.Delivered).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("relay fan-out completed")
}
