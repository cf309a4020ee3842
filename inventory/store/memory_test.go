package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/booking-engine/inventory"
	"github.com/warp/booking-engine/inventory/store"
)

func demand(id string, day inventory.Date, status inventory.DemandStatus) inventory.Demand {
	return inventory.Demand{
		ID:         inventory.DemandID(id),
		ResourceID: "res-1",
		Start:      day,
		End:        day,
		Slot:       inventory.NoSlot,
		PartySize:  2,
		Status:     status,
		TotalPrice: decimal.NewFromInt(1000),
	}
}

func june(d int) inventory.Date { return inventory.NewDate(2025, time.June, d) }

func TestMemory_TransitionDemand_CAS(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	if err := m.InsertDemand(ctx, demand("d1", june(1), inventory.DemandPending)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Wrong expected status is a conflict, not a silent overwrite.
	err := m.TransitionDemand(ctx, "d1", inventory.DemandConfirmed, inventory.DemandCompleted)
	if !errors.Is(err, inventory.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := m.TransitionDemand(ctx, "d1", inventory.DemandPending, inventory.DemandConfirmed); err != nil {
		t.Fatalf("valid transition: %v", err)
	}

	err = m.TransitionDemand(ctx, "missing", inventory.DemandPending, inventory.DemandConfirmed)
	if !errors.Is(err, inventory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_FindDemand_Filters(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	stay := demand("stay", june(1), inventory.DemandConfirmed)
	stay.End = june(4) // nights 1..3
	if err := m.InsertDemand(ctx, stay); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := m.InsertDemand(ctx, demand("point", june(10), inventory.DemandPending)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := m.InsertDemand(ctx, demand("gone", june(10), inventory.DemandCancelled)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Overlap: window June 3..10 touches the stay's last night and the point
	window := inventory.DateRange{Start: june(3), End: june(10)}
	got, err := m.FindDemand(ctx, inventory.DemandFilter{
		ResourceID:  "res-1",
		Overlapping: &window,
		Statuses:    []inventory.DemandStatus{inventory.DemandPending, inventory.DemandConfirmed},
	})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected stay and point, got %d rows", len(got))
	}

	// Window June 4..5 is past the stay's nights (check-out June 4)
	window = inventory.DateRange{Start: june(4), End: june(5)}
	got, err = m.FindDemand(ctx, inventory.DemandFilter{ResourceID: "res-1", Overlapping: &window})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("check-out day must not overlap, got %d rows", len(got))
	}

	// ElapsedBefore June 11: the stay (ends June 4) and June 10 points qualify
	cutoff := june(11)
	got, err = m.FindDemand(ctx, inventory.DemandFilter{ResourceID: "res-1", ElapsedBefore: &cutoff})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected all three rows elapsed, got %d", len(got))
	}
}

func TestMemory_BlockedDates_UpsertAndWindow(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	b := inventory.BlockedDate{ResourceID: "res-1", Date: june(2), Reason: "maintenance"}
	if err := m.SetBlockedDate(ctx, b); err != nil {
		t.Fatalf("set: %v", err)
	}
	b.Reason = "weather"
	if err := m.SetBlockedDate(ctx, b); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := m.BlockedDates(ctx, "res-1", june(1), june(3))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Reason != "weather" {
		t.Fatalf("expected single upserted block, got %+v", got)
	}

	if err := m.ClearBlockedDate(ctx, "res-1", june(2)); err != nil {
		t.Fatalf("clear: %v", err)
	}
	// Clearing an absent block stays a no-op
	if err := m.ClearBlockedDate(ctx, "res-1", june(2)); err != nil {
		t.Fatalf("repeat clear: %v", err)
	}
	got, _ = m.BlockedDates(ctx, "res-1", june(1), june(3))
	if len(got) != 0 {
		t.Fatalf("expected no blocks, got %d", len(got))
	}
}

func TestMemory_DuplicateCancellation(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	rec := inventory.CancellationRecord{
		ID:           "c1",
		BookingID:    "b1",
		CancelledAt:  time.Now(),
		EventDate:    june(10),
		Fraction:     decimal.NewFromFloat(0.85),
		RefundAmount: decimal.NewFromInt(8500),
	}
	if err := m.InsertCancellation(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	rec.ID = "c2"
	err := m.InsertCancellation(ctx, rec)
	if !errors.Is(err, inventory.ErrDuplicateCancellation) {
		t.Fatalf("expected ErrDuplicateCancellation, got %v", err)
	}
}

func TestTxMemory_RollbackOnError(t *testing.T) {
	tm := store.NewTxMemory()
	ctx := context.Background()

	boom := errors.New("boom")
	err := tm.WithTx(ctx, func(st inventory.Store) error {
		if err := st.InsertDemand(ctx, demand("d1", june(1), inventory.DemandPending)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	d, err := tm.GetDemand(ctx, "d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d != nil {
		t.Fatal("rolled-back insert must not be visible")
	}
}

func TestTxMemory_CommitVisible(t *testing.T) {
	tm := store.NewTxMemory()
	ctx := context.Background()

	err := tm.WithTx(ctx, func(st inventory.Store) error {
		return st.InsertDemand(ctx, demand("d1", june(1), inventory.DemandPending))
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	d, err := tm.GetDemand(ctx, "d1")
	if err != nil || d == nil {
		t.Fatalf("committed insert must be visible: %v", err)
	}
}
