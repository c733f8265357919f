package webhook

import "context"

/* Small, focused interfaces following "The Go Way"
 * Interfaces abstract behavior, not things
 */

// Relayer hands an accepted event to the fan-out.
// Go must return immediately; delivery outlives the cancellation of ctx.
type Relayer interface {
	Go(ctx context.Context, evt Event)
}

// Recorder counts inbound requests by result
type Recorder interface {
	InboundEvent(ctx context.Context, result string)
}
