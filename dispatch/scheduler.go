package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/vendor-relay/idempotency"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultParallelism = 4
	defaultSendTimeout = 30 * time.Second
)

// Result is the decision for one (vendor, slot) pair in a tick
type Result struct {
	VendorID  string   `json:"vendor_id"`
	Slot      string   `json:"slot"`
	Date      string   `json:"date,omitempty"`
	Decision  Decision `json:"decision"`
	MessageID string   `json:"message_id,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Report aggregates one tick
type Report struct {
	At      time.Time        `json:"at"`
	Results []Result         `json:"results"`
	Counts  map[Decision]int `json:"counts"`
}

/* Scheduler decides, for every vendor and rule, whether a reminder is due now
 * and sends it at most once per (vendor, date, slot).
 * Several schedulers may tick at the same time; the ledger claim is the only
 * coordination between them.
 */
type Scheduler struct {
	Directory       Directory
	Logs            LogRepository
	Ledger          idempotency.Store
	Sender          Sender
	Rules           []Rule
	Tolerance       time.Duration
	DefaultLocation *time.Location
	Parallelism     int
	SendTimeout     time.Duration // bounds the send once the slot is claimed
	Recorder        Recorder      // optional
	Logger          zerolog.Logger
	Now             func() time.Time
}

var _ Ticker = (*Scheduler)(nil)

// NewScheduler creates a scheduler with dependency injection
func NewScheduler(directory Directory, logs LogRepository, ledger idempotency.Store, sender Sender, rules []Rule, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		Directory:       directory,
		Logs:            logs,
		Ledger:          ledger,
		Sender:          sender,
		Rules:           rules,
		DefaultLocation: time.UTC,
		Parallelism:     defaultParallelism,
		SendTimeout:     defaultSendTimeout,
		Logger:          logger,
		Now:             time.Now,
	}
}

/* Tick evaluates all vendors at now.
 * Failures are local to a (vendor, slot) pair and show up in the report;
 * an error is returned only when the vendor list cannot be read.
 */
func (s *Scheduler) Tick(ctx context.Context, now time.Time) (Report, error) {
	vendors, err := s.Directory.ListVendorsWithContactNumber(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("listing vendors: %w", err)
	}

	perVendor := make([][]Result, len(vendors))

	parallelism := s.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, v := range vendors {
		g.Go(func() error {
			results := make([]Result, 0, len(s.Rules))
			for _, rule := range s.Rules {
				results = append(results, s.evaluate(ctx, v, rule, now))
			}
			perVendor[i] = results
			return nil
		})
	}
	_ = g.Wait()

	report := Report{At: now, Counts: make(map[Decision]int)}
	for _, results := range perVendor {
		for _, r := range results {
			report.Results = append(report.Results, r)
			report.Counts[r.Decision]++
			if s.Recorder != nil {
				s.Recorder.DispatchDecision(ctx, r.Slot, r.Decision.String())
			}
		}
	}

	s.Logger.Debug().
		Time("at", now).
		Int("vendors", len(vendors)).
		Int("sent", report.Counts[Sent]).
		Int("failed", report.Counts[Failed]).
		Int("errors", report.Counts[Error]).
		Msg("dispatch tick completed")

	return report, nil
}

func (s *Scheduler) evaluate(ctx context.Context, v Vendor, rule Rule, now time.Time) Result {
	result := Result{VendorID: v.ID, Slot: rule.Slot.String()}

	if err := v.Validate(); err != nil {
		return s.fail(result, Error, err)
	}
	loc, err := v.Location(s.DefaultLocation)
	if err != nil {
		return s.fail(result, Error, err)
	}

	date, due, err := rule.Due(v, loc, now, s.Tolerance)
	if err != nil {
		return s.fail(result, Error, err)
	}
	if !due {
		result.Decision = Skip
		return result
	}
	result.Date = date

	exists, err := s.Logs.Exists(ctx, v.ID, date, rule.Slot)
	if err != nil {
		// the ledger claim below still prevents a second send
		s.Logger.Warn().Err(err).Str("vendor_id", v.ID).Str("slot", result.Slot).Msg("checking dispatch log")
	}
	if exists {
		result.Decision = AlreadySent
		return result
	}

	// an unclaimed slot stays available to the next tick or caller
	if err := ctx.Err(); err != nil {
		return s.fail(result, Error, fmt.Errorf("tick cancelled before claim: %w", err))
	}
	already, err := s.Ledger.CheckAndMark(ctx, idempotency.DispatchKey(v.ID, date, rule.Slot.String()), 0)
	if err != nil {
		return s.fail(result, Error, fmt.Errorf("claiming dispatch: %w", err))
	}
	if already {
		result.Decision = AlreadySent
		return result
	}

	// a claimed slot is never retried: the send outlives the caller
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sendTimeout())
	defer cancel()

	messageID, sendErr := s.Sender.SendTemplate(sendCtx, v.Phone, rule.Template)

	entry := LogEntry{
		ID:        uuid.NewString(),
		VendorID:  v.ID,
		Date:      date,
		Slot:      rule.Slot,
		SentAt:    s.now().UTC(),
		MessageID: messageID,
		Success:   sendErr == nil,
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	}
	if err := s.Logs.Record(context.WithoutCancel(ctx), entry); err != nil {
		event := s.Logger.Error()
		if errors.Is(err, ErrDuplicateEntry) {
			event = s.Logger.Warn()
		}
		event.Err(err).Str("vendor_id", v.ID).Str("date", date).Str("slot", result.Slot).Msg("recording dispatch log")
	}

	if sendErr != nil {
		return s.fail(result, Failed, fmt.Errorf("sending template: %w", sendErr))
	}

	result.Decision = Sent
	result.MessageID = messageID
	s.Logger.Info().
		Str("vendor_id", v.ID).
		Str("date", date).
		Str("slot", result.Slot).
		Str("message_id", messageID).
		Msg("reminder sent")
	return result
}

func (s *Scheduler) fail(result Result, decision Decision, err error) Result {
	result.Decision = decision
	result.Error = err.Error()
	s.Logger.Warn().
		Err(err).
		Str("vendor_id", result.VendorID).
		Str("slot", result.Slot).
		Str("decision", decision.String()).
		Msg("dispatch not sent")
	return result
}

func (s *Scheduler) sendTimeout() time.Duration {
	if s.SendTimeout <= 0 {
		return defaultSendTimeout
	}
	return s.SendTimeout
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
