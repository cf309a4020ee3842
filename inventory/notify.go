/*
notify.go - Outbound cancellation notifications

PURPOSE:
  The engine's only outbound side effect. A Notifier receives the
  cancellation event after the store transaction commits; delivery is
  best effort and a failure is logged by the caller, never propagated.

IMPLEMENTATIONS:
  - NopNotifier: drops events (tests, minimal deployments)
  - LogNotifier: writes events to the process log
  - broker/kafka: publishes events to a Kafka topic
*/
package inventory

import (
	"context"
	"log"

	"github.com/shopspring/decimal"
)

// CancellationEvent is handed to the notification collaborator when a
// booking is cancelled.
type CancellationEvent struct {
	BookingID      string          `json:"booking_id"`
	Contact        string          `json:"contact"`
	RefundAmount   decimal.Decimal `json:"refund_amount"`
	RefundFraction decimal.Decimal `json:"refund_fraction"`
	Reason         string          `json:"reason"`
}

// Notifier delivers cancellation events. Implementations must not block
// indefinitely; the context bounds delivery.
type Notifier interface {
	NotifyCancellation(ctx context.Context, ev CancellationEvent) error
}

// NopNotifier drops all events.
type NopNotifier struct{}

func (NopNotifier) NotifyCancellation(context.Context, CancellationEvent) error { return nil }

// LogNotifier writes events to the process log. The default when no
// broker is configured.
type LogNotifier struct{}

func (LogNotifier) NotifyCancellation(_ context.Context, ev CancellationEvent) error {
	log.Printf("cancellation: booking=%s refund=%s fraction=%s reason=%q",
		ev.BookingID, ev.RefundAmount, ev.RefundFraction, ev.Reason)
	return nil
}
