package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/vendor-relay/idempotency"
	"github.com/marcelsud/vendor-relay/webhook/payload"
	"github.com/marcelsud/vendor-relay/webhook/signature"
	"github.com/rs/zerolog"
)

// DefaultMessageTTL is how long an inbound message id is remembered
const DefaultMessageTTL = 24 * time.Hour

/* Service represents the business logic layer
 * Uses pointer semantics as it's an API, not data
 */

// UseCase defines the inbound webhook operations
type UseCase interface {
	Accept(ctx context.Context, rawBody []byte, signatureHeader string, receivedAt time.Time) (Event, Result, error)
	Relay(ctx context.Context, evt Event)
}

type Service struct {
	Secret   string
	Ledger   idempotency.Store
	Relayer  Relayer
	TTL      time.Duration
	Recorder Recorder // optional
	Logger   zerolog.Logger
}

// NewService creates a new webhook service with dependency injection
func NewService(secret string, ledger idempotency.Store, relayer Relayer, ttl time.Duration, logger zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultMessageTTL
	}
	return &Service{
		Secret:  secret,
		Ledger:  ledger,
		Relayer: relayer,
		TTL:     ttl,
		Logger:  logger,
	}
}

/* Accept runs the synchronous half of the pipeline: verify, extract the id,
 * check-and-mark it. The caller acknowledges the provider according to
 * Result.StatusCode and calls Relay only for Accepted events.
 * A non-nil error accompanies Malformed and Unavailable results.
 */
func (s *Service) Accept(ctx context.Context, rawBody []byte, signatureHeader string, receivedAt time.Time) (Event, Result, error) {
	s.stage(Received, "")

	if !signature.Verify(rawBody, signatureHeader, s.Secret) {
		return s.finish(ctx, Event{}, Rejected, nil)
	}
	s.stage(Verified, "")

	envelope, err := payload.Parse(rawBody)
	if err != nil {
		return s.finish(ctx, Event{}, Malformed, fmt.Errorf("parsing envelope: %w", err))
	}
	id, kind := envelope.Primary()
	if id == "" {
		return s.finish(ctx, Event{}, Malformed, fmt.Errorf("%w: no message id", payload.ErrMalformed))
	}

	evt := Event{
		MessageID:  id,
		Kind:       kind,
		RawBody:    rawBody,
		ReceivedAt: receivedAt,
	}

	already, err := s.Ledger.CheckAndMark(ctx, idempotency.MessageKey(id), s.TTL)
	if err != nil {
		return s.finish(ctx, evt, Unavailable, fmt.Errorf("checking message %s: %w", id, err))
	}
	if already {
		return s.finish(ctx, evt, Duplicate, nil)
	}
	s.stage(Deduped, id)

	return s.finish(ctx, evt, Accepted, nil)
}

// Relay hands the event to the fan-out without waiting for it
func (s *Service) Relay(ctx context.Context, evt Event) {
	s.stage(Acked, evt.MessageID)
	s.Relayer.Go(ctx, evt)
	s.stage(Relayed, evt.MessageID)
}

func (s *Service) finish(ctx context.Context, evt Event, result Result, err error) (Event, Result, error) {
	if s.Recorder != nil {
		s.Recorder.InboundEvent(ctx, result.String())
	}
	return evt, result, err
}

func (s *Service) stage(stage Stage, messageID string) {
	s.Logger.Debug().
		Str("stage", stage.String()).
		Str("message_id", messageID).
		Msg("inbound webhook")
}
