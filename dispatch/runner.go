package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultInterval    = 5 * time.Minute
	defaultTickTimeout = 2 * time.Minute
)

/* Runner drives a Ticker on wall-clock boundaries of Interval
 * (every 5 minutes: :00, :05, :10 ...) so ticks land on trigger minutes.
 */
type Runner struct {
	Ticker      Ticker
	Interval    time.Duration
	Timeout     time.Duration
	Heartbeater Heartbeater // optional
	Logger      zerolog.Logger
}

func NewRunner(ticker Ticker, interval time.Duration, logger zerolog.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Runner{
		Ticker:   ticker,
		Interval: interval,
		Timeout:  defaultTickTimeout,
		Logger:   logger,
	}
}

// Run ticks until ctx is cancelled
func (r *Runner) Run(ctx context.Context) error {
	r.Logger.Info().Dur("interval", r.Interval).Msg("dispatch runner started")

	for {
		wait := time.Until(NextBoundary(time.Now(), r.Interval))
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			r.Logger.Info().Msg("dispatch runner stopped")
			return nil
		case <-timer.C:
			r.RunOnce(ctx, time.Now())
		}
	}
}

// RunOnce performs a single bounded tick
func (r *Runner) RunOnce(ctx context.Context, now time.Time) (Report, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTickTimeout
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.beat(tctx, "ticking")
	defer r.beat(ctx, "idle")

	report, err := r.Ticker.Tick(tctx, now)
	if err != nil {
		r.Logger.Error().Err(err).Msg("dispatch tick failed")
		return report, err
	}
	return report, nil
}

func (r *Runner) beat(ctx context.Context, status string) {
	if r.Heartbeater == nil {
		return
	}
	if err := r.Heartbeater.Beat(ctx, status); err != nil {
		r.Logger.Warn().Err(err).Str("status", status).Msg("scheduler heartbeat failed")
	}
}

// NextBoundary returns the first multiple of interval strictly after now
func NextBoundary(now time.Time, interval time.Duration) time.Time {
	return now.Truncate(interval).Add(interval)
}
