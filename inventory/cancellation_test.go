package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/booking-engine/inventory"
	"github.com/warp/booking-engine/inventory/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// recordingNotifier captures events for assertions.
type recordingNotifier struct {
	events []inventory.CancellationEvent
	fail   bool
}

func (rn *recordingNotifier) NotifyCancellation(_ context.Context, ev inventory.CancellationEvent) error {
	if rn.fail {
		return errors.New("broker down")
	}
	rn.events = append(rn.events, ev)
	return nil
}

func newCancellationFixture(t *testing.T) (*inventory.CancellationService, *store.TxMemory, *recordingNotifier) {
	t.Helper()
	st := store.NewTxMemory()
	tour := groupTour("tour-1", 10)
	tour.Timezone = "UTC"
	if err := st.SaveResource(context.Background(), tour); err != nil {
		t.Fatalf("seed resource: %v", err)
	}
	notifier := &recordingNotifier{}
	svc := inventory.NewCancellationService(st, inventory.DefaultRefundSchedule(), notifier)
	return svc, st, notifier
}

func seedBooking(t *testing.T, st inventory.Store, id string, day inventory.Date, price int64, status inventory.DemandStatus) {
	t.Helper()
	if err := st.InsertDemand(context.Background(), inventory.Demand{
		ID:         inventory.DemandID(id),
		ResourceID: "tour-1",
		Start:      day,
		End:        day,
		Slot:       inventory.NoSlot,
		PartySize:  2,
		Status:     status,
		TotalPrice: decimal.NewFromInt(price),
		Contact:    "guest@example.com",
	}); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
}

// =============================================================================
// REFUND DECISION TESTS
// =============================================================================

func TestCancel_GenerousTier(t *testing.T) {
	// GIVEN: a 25000 confirmed booking 10 days out
	// WHEN: cancelling
	// THEN: 85% tier applies, refund 21250, booking cancelled

	svc, st, _ := newCancellationFixture(t)
	seedBooking(t, st, "b1", date(2025, time.May, 11), 25000, inventory.DemandConfirmed)

	result, err := svc.Cancel(context.Background(), "b1", "plans changed", fixedNow())
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !result.RefundAmount.Equal(decimal.NewFromInt(21250)) {
		t.Errorf("expected refund 21250, got %s", result.RefundAmount)
	}
	if result.RefundFraction.String() != "0.85" {
		t.Errorf("expected fraction 0.85, got %s", result.RefundFraction)
	}
	if result.NewStatus != inventory.DemandCancelled {
		t.Errorf("expected cancelled, got %s", result.NewStatus)
	}

	d, err := st.GetDemand(context.Background(), "b1")
	if err != nil || d == nil {
		t.Fatalf("reload: %v", err)
	}
	if d.Status != inventory.DemandCancelled {
		t.Fatalf("persisted status should be cancelled, got %s", d.Status)
	}
}

func TestCancel_MiddleAndZeroTiers(t *testing.T) {
	svc, st, _ := newCancellationFixture(t)

	// 4 days out: 50%
	seedBooking(t, st, "b-mid", date(2025, time.May, 5), 25000, inventory.DemandConfirmed)
	result, err := svc.Cancel(context.Background(), "b-mid", "", fixedNow())
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !result.RefundAmount.Equal(decimal.NewFromInt(12500)) {
		t.Errorf("expected refund 12500, got %s", result.RefundAmount)
	}

	// 1 day out: nothing back, but the cancellation still happens
	seedBooking(t, st, "b-late", date(2025, time.May, 2), 25000, inventory.DemandConfirmed)
	result, err = svc.Cancel(context.Background(), "b-late", "", fixedNow())
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !result.RefundAmount.IsZero() {
		t.Errorf("expected zero refund, got %s", result.RefundAmount)
	}
	if result.NewStatus != inventory.DemandCancelled {
		t.Errorf("zero-refund cancellation must still cancel, got %s", result.NewStatus)
	}
}

func TestCancel_PendingBookingAlsoCancellable(t *testing.T) {
	svc, st, _ := newCancellationFixture(t)
	seedBooking(t, st, "b1", date(2025, time.May, 11), 10000, inventory.DemandPending)

	result, err := svc.Cancel(context.Background(), "b1", "", fixedNow())
	if err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	if result.NewStatus != inventory.DemandCancelled {
		t.Fatalf("expected cancelled, got %s", result.NewStatus)
	}
}

// =============================================================================
// IDEMPOTENCE AND AUDIT
// =============================================================================

func TestCancel_SecondAttempt_FailsAndWritesNoSecondRecord(t *testing.T) {
	// GIVEN: a cancelled booking
	// WHEN: cancelling again
	// THEN: ErrAlreadyFinal, and exactly one audit record exists

	svc, st, _ := newCancellationFixture(t)
	seedBooking(t, st, "b1", date(2025, time.May, 11), 25000, inventory.DemandConfirmed)

	if _, err := svc.Cancel(context.Background(), "b1", "first", fixedNow()); err != nil {
		t.Fatalf("first cancel: %v", err)
	}

	_, err := svc.Cancel(context.Background(), "b1", "second", fixedNow())
	if !errors.Is(err, inventory.ErrAlreadyFinal) {
		t.Fatalf("expected ErrAlreadyFinal, got %v", err)
	}

	rec, err := st.GetCancellation(context.Background(), "b1")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if rec == nil {
		t.Fatal("expected one cancellation record")
	}
	if rec.Reason != "first" {
		t.Fatalf("record must come from the first cancellation, got %q", rec.Reason)
	}
}

func TestCancel_CompletedBooking_Refused(t *testing.T) {
	svc, st, _ := newCancellationFixture(t)
	seedBooking(t, st, "b1", date(2025, time.April, 10), 25000, inventory.DemandCompleted)

	_, err := svc.Cancel(context.Background(), "b1", "", fixedNow())
	if !errors.Is(err, inventory.ErrAlreadyFinal) {
		t.Fatalf("expected ErrAlreadyFinal, got %v", err)
	}

	var finalErr *inventory.AlreadyFinalError
	if !errors.As(err, &finalErr) {
		t.Fatalf("expected structured error, got %T", err)
	}
	if finalErr.Status != inventory.DemandCompleted {
		t.Errorf("expected completed in error, got %s", finalErr.Status)
	}
}

func TestCancel_UnknownBooking(t *testing.T) {
	svc, _, _ := newCancellationFixture(t)
	_, err := svc.Cancel(context.Background(), "nope", "", fixedNow())
	if !errors.Is(err, inventory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// =============================================================================
// NOTIFICATION
// =============================================================================

func TestCancel_NotifiesAfterCommit(t *testing.T) {
	svc, st, notifier := newCancellationFixture(t)
	seedBooking(t, st, "b1", date(2025, time.May, 11), 25000, inventory.DemandConfirmed)

	if _, err := svc.Cancel(context.Background(), "b1", "plans changed", fixedNow()); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if len(notifier.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(notifier.events))
	}
	ev := notifier.events[0]
	if ev.BookingID != "b1" || ev.Contact != "guest@example.com" {
		t.Errorf("unexpected event %+v", ev)
	}
	if !ev.RefundAmount.Equal(decimal.NewFromInt(21250)) {
		t.Errorf("expected refund 21250 in event, got %s", ev.RefundAmount)
	}
}

func TestCancel_NotifierFailure_DoesNotRevert(t *testing.T) {
	// GIVEN: a notifier that always fails
	// WHEN: cancelling
	// THEN: the cancellation commits anyway; delivery is best effort

	svc, st, notifier := newCancellationFixture(t)
	notifier.fail = true
	seedBooking(t, st, "b1", date(2025, time.May, 11), 25000, inventory.DemandConfirmed)

	result, err := svc.Cancel(context.Background(), "b1", "", fixedNow())
	if err != nil {
		t.Fatalf("cancel must not surface notifier failure: %v", err)
	}
	if result.NewStatus != inventory.DemandCancelled {
		t.Fatalf("expected cancelled, got %s", result.NewStatus)
	}

	d, _ := st.GetDemand(context.Background(), "b1")
	if d == nil || d.Status != inventory.DemandCancelled {
		t.Fatal("cancellation must persist despite notifier failure")
	}
}
