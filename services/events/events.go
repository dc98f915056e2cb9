package events

import (
	"context"
	"time"
)

// Event types emitted by the settlement flow
const (
	EnrollmentCreated   = "enrollment.created"
	EnrollmentActivated = "enrollment.activated"
	EnrollmentCancelled = "enrollment.cancelled"
	PaymentLinkCreated  = "invoice.payment_link_created"
	InvoicePaid         = "invoice.paid"
)

// Event is a settlement fact published after the owning write has committed
type Event struct {
	Type         string         `json:"type"`
	EnrollmentID uint           `json:"enrollment_id"`
	InvoiceID    uint           `json:"invoice_id,omitempty"`
	StudentID    uint           `json:"student_id,omitempty"`
	Amount       int64          `json:"amount,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
	Data         map[string]any `json:"data,omitempty"`
}

// Publisher delivers events to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
