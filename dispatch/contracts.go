package dispatch

import (
	"context"
	"time"
)

// Sender delivers one template message and returns the provider message id
type Sender interface {
	SendTemplate(ctx context.Context, phone, template string) (string, error)
}

// Directory lists the vendors that can receive reminders
type Directory interface {
	ListVendorsWithContactNumber(ctx context.Context) ([]Vendor, error)
}

// Recorder counts tick decisions
type Recorder interface {
	DispatchDecision(ctx context.Context, slot string, decision string)
}

// Heartbeater reports that a scheduler caller is alive
type Heartbeater interface {
	Beat(ctx context.Context, status string) error
}

// Ticker evaluates every vendor and rule once
type Ticker interface {
	Tick(ctx context.Context, now time.Time) (Report, error)
}
