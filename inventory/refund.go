/*
refund.go - Cancellation and tiered refunds

PURPOSE:
  An independent branch of the engine operating on a single booking and
  the current time. It derives a deterministic, auditable refund from
  elapsed-time tiers and drives the terminal status transition:

    pending|confirmed -> cancelled

  Capacity release is automatic: cancelled demand simply stops counting
  as committed.

LEAD TIME:
  lead_days = ceil(event_date - now), where event_date is anchored at
  midnight in the RESOURCE's timezone. Anchoring at the resource keeps
  the tier boundary where the customer standing at the venue expects it,
  not where the server happens to run. Cancelling 6 days and 1 hour
  before the event is still 7 lead days.

ARITHMETIC:
  refund_amount = floor(total_price * fraction), in decimal. Floor, so a
  refund is never rounded up past what the tier grants.

AUDIT:
  Every successful cancellation writes exactly one immutable
  CancellationRecord. A uniqueness constraint on the booking ID makes a
  double-write impossible even across concurrent retries.

NOTIFICATION:
  The cancellation event is handed to a Notifier after the transaction
  commits. Delivery is best effort: failures are logged, never returned,
  and never reverse the cancellation.

SEE ALSO:
  - notify.go: Notifier interface and CancellationEvent
  - booking.go: the non-terminal transitions
*/
package inventory

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// REFUND SCHEDULE - Ordered, gap-free tiers
// =============================================================================

// RefundTier grants Fraction of the price when the cancellation happens
// at least MinLeadDays before the event.
type RefundTier struct {
	MinLeadDays int
	Fraction    decimal.Decimal
}

// RefundSchedule is a list of tiers ordered by descending MinLeadDays.
// The last tier must be the catch-all (MinLeadDays == 0) so every
// non-negative lead time maps to exactly one tier.
type RefundSchedule []RefundTier

// DefaultRefundSchedule is the operator policy observed in production:
//
//	>= 7 days out: 85% refund
//	3-6 days out:  50% refund
//	under 3 days:  no refund
func DefaultRefundSchedule() RefundSchedule {
	return RefundSchedule{
		{MinLeadDays: 7, Fraction: decimal.NewFromFloat(0.85)},
		{MinLeadDays: 3, Fraction: decimal.NewFromFloat(0.50)},
		{MinLeadDays: 0, Fraction: decimal.Zero},
	}
}

// Validate checks ordering, uniqueness, fraction bounds and the
// catch-all tier. A schedule that fails Validate must not be used.
func (s RefundSchedule) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: no tiers", ErrInvalidSchedule)
	}
	for i, tier := range s {
		if tier.MinLeadDays < 0 {
			return fmt.Errorf("%w: tier %d has negative lead days", ErrInvalidSchedule, i)
		}
		if tier.Fraction.IsNegative() || tier.Fraction.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: tier %d fraction %s outside [0,1]", ErrInvalidSchedule, i, tier.Fraction)
		}
		if i > 0 && tier.MinLeadDays >= s[i-1].MinLeadDays {
			return fmt.Errorf("%w: tiers must strictly descend (tier %d)", ErrInvalidSchedule, i)
		}
	}
	if s[len(s)-1].MinLeadDays != 0 {
		return fmt.Errorf("%w: missing catch-all tier at 0 lead days", ErrInvalidSchedule)
	}
	return nil
}

// FractionFor returns the refund fraction for a lead time. Lead times
// below zero (cancelling after the event date) fall into the catch-all.
// An empty schedule grants nothing.
func (s RefundSchedule) FractionFor(leadDays int) decimal.Decimal {
	if len(s) == 0 {
		return decimal.Zero
	}
	for _, tier := range s {
		if leadDays >= tier.MinLeadDays {
			return tier.Fraction
		}
	}
	return s[len(s)-1].Fraction
}

// sorted normalizes a schedule into descending order. Used by the
// config factory; hand-written schedules should already be ordered.
func (s RefundSchedule) sorted() RefundSchedule {
	out := append(RefundSchedule(nil), s...)
	sort.Slice(out, func(i, j int) bool { return out[i].MinLeadDays > out[j].MinLeadDays })
	return out
}

// Normalized returns the schedule in descending tier order.
func (s RefundSchedule) Normalized() RefundSchedule { return s.sorted() }

// =============================================================================
// LEAD TIME
// =============================================================================

// LeadDays is the whole days between now and midnight of the event date
// in loc, rounded up. 6 days and 1 hour out counts as 7.
func LeadDays(eventDate Date, now time.Time, loc *time.Location) int {
	event := eventDate.Time(loc)
	diff := event.Sub(now)
	return int(math.Ceil(diff.Hours() / 24))
}

// RefundAmount applies a fraction to a price, flooring the result.
func RefundAmount(totalPrice, fraction decimal.Decimal) decimal.Decimal {
	return totalPrice.Mul(fraction).Floor()
}

// =============================================================================
// CANCELLATION SERVICE
// =============================================================================

// CancellationResult reports the outcome of a successful cancellation.
type CancellationResult struct {
	DemandID       DemandID
	NewStatus      DemandStatus
	RefundFraction decimal.Decimal
	RefundAmount   decimal.Decimal
	Record         CancellationRecord
}

// CancellationService cancels bookings and computes refunds.
type CancellationService struct {
	Store    TxStore
	Schedule RefundSchedule
	Notifier Notifier
}

func NewCancellationService(store TxStore, schedule RefundSchedule, notifier Notifier) *CancellationService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &CancellationService{Store: store, Schedule: schedule, Notifier: notifier}
}

// Cancel moves a pending or confirmed booking to cancelled and computes
// its refund from the schedule. Idempotence: a second Cancel for the
// same booking fails ErrAlreadyFinal and never writes a second record.
func (cs *CancellationService) Cancel(ctx context.Context, id DemandID, reason string, now time.Time) (*CancellationResult, error) {
	var (
		result CancellationResult
		event  CancellationEvent
	)

	err := cs.Store.WithTx(ctx, func(st Store) error {
		d, err := st.GetDemand(ctx, id)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("%w: demand %s", ErrNotFound, id)
		}
		if d.Status.Final() {
			return &AlreadyFinalError{DemandID: id, Status: d.Status}
		}

		res, err := st.GetResource(ctx, d.ResourceID)
		if err != nil {
			return err
		}
		loc := time.UTC
		if res != nil {
			loc = res.Location()
		}

		lead := LeadDays(d.EventDate(), now, loc)
		fraction := cs.Schedule.FractionFor(lead)
		amount := RefundAmount(d.TotalPrice, fraction)

		rec := CancellationRecord{
			ID:           uuid.NewString(),
			BookingID:    d.ID,
			CancelledAt:  now,
			EventDate:    d.EventDate(),
			Fraction:     fraction,
			RefundAmount: amount,
			Reason:       reason,
		}
		if err := st.InsertCancellation(ctx, rec); err != nil {
			return err
		}
		if err := st.TransitionDemand(ctx, d.ID, d.Status, DemandCancelled); err != nil {
			return err
		}

		result = CancellationResult{
			DemandID:       d.ID,
			NewStatus:      DemandCancelled,
			RefundFraction: fraction,
			RefundAmount:   amount,
			Record:         rec,
		}
		event = CancellationEvent{
			BookingID:      string(d.ID),
			Contact:        d.Contact,
			RefundAmount:   amount,
			RefundFraction: fraction,
			Reason:         reason,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Best effort, after commit. A notification failure must not affect
	// the cancellation's success.
	if err := cs.Notifier.NotifyCancellation(ctx, event); err != nil {
		log.Printf("cancellation %s: notification failed: %v", id, err)
	}

	return &result, nil
}
