package notify

// Package notify delivers "share granted" / "access revoked" events to an
// external channel. Delivery is best-effort: the engine fires an event after
// its mutation commits and never waits on, or fails because of, the outcome.

import (
	"context"
	"time"

	"docvault/internal/model"
)

// Kind identifies the event being delivered.
type Kind string

const (
	KindShared  Kind = "shared"
	KindRevoked Kind = "revoked"
)

// Event carries everything the channel needs to render a notification.
// Permission and ExpiresAt are only set for KindShared.
type Event struct {
	Kind            Kind             `json:"kind"`
	Recipient       string           `json:"recipient"`
	DocumentTitle   string           `json:"document_title"`
	ActingPrincipal string           `json:"acting_principal"`
	Permission      model.Permission `json:"permission,omitempty"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
}

// Notifier delivers a single event. Implementations decide transport and
// retry policy; callers treat errors as log-only.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Noop discards every event. Used when no webhook is configured.
type Noop struct{}

func (Noop) Notify(context.Context, Event) error { return nil }
