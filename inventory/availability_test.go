package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warp/booking-engine/inventory"
	"github.com/warp/booking-engine/inventory/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fixedNow keeps "today" stable across the suite: May 1, 2025, 10:00 UTC.
func fixedNow() time.Time {
	return time.Date(2025, time.May, 1, 10, 0, 0, 0, time.UTC)
}

func newAvailabilityService(t *testing.T, resources ...inventory.Resource) (*inventory.Service, *store.TxMemory) {
	t.Helper()
	st := store.NewTxMemory()
	for _, r := range resources {
		if err := st.SaveResource(context.Background(), r); err != nil {
			t.Fatalf("failed to seed resource: %v", err)
		}
	}
	svc := inventory.NewService(st, inventory.DefaultConfig())
	svc.Now = fixedNow
	return svc, st
}

func groupTour(id string, capacity int) inventory.Resource {
	return inventory.Resource{
		ID:            inventory.ResourceID(id),
		Kind:          inventory.KindGroupTour,
		Name:          "Test Departure",
		CapacityTotal: capacity,
		Active:        true,
	}
}

func lodging(id string, rooms int) inventory.Resource {
	return inventory.Resource{
		ID:            inventory.ResourceID(id),
		Kind:          inventory.KindAccommodation,
		Name:          "Test Lodge",
		CapacityTotal: rooms,
		Active:        true,
	}
}

func individualTour(id string, capacity int) inventory.Resource {
	return inventory.Resource{
		ID:            inventory.ResourceID(id),
		Kind:          inventory.KindIndividualTour,
		Name:          "Test Walk",
		CapacityTotal: capacity,
		Active:        true,
	}
}

func seedDemand(t *testing.T, st inventory.Store, d inventory.Demand) {
	t.Helper()
	if err := st.InsertDemand(context.Background(), d); err != nil {
		t.Fatalf("failed to seed demand: %v", err)
	}
}

// =============================================================================
// GROUP TOUR SCENARIOS
// =============================================================================

func TestQueryAvailability_GroupTour_SharedPool(t *testing.T) {
	// GIVEN: a departure with capacity 10 and parties of 4 and 3 on June 2
	// WHEN: querying June 1..3
	// THEN: June 2 has 3 remaining, June 1 and 3 are untouched

	tour := groupTour("tour-1", 10)
	svc, st := newAvailabilityService(t, tour)

	june2 := date(2025, time.June, 2)
	seedDemand(t, st, inventory.Demand{
		ID: "d1", ResourceID: tour.ID, Start: june2, End: june2,
		Slot: inventory.NoSlot, PartySize: 4, Status: inventory.DemandConfirmed,
	})
	seedDemand(t, st, inventory.Demand{
		ID: "d2", ResourceID: tour.ID, Start: june2, End: june2,
		Slot: inventory.NoSlot, PartySize: 3, Status: inventory.DemandPending,
	})

	result, err := svc.QueryAvailability(context.Background(), tour.ID,
		inventory.AvailabilityQuery{Start: date(2025, time.June, 1), End: date(2025, time.June, 3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.PerDay) != 3 {
		t.Fatalf("expected 3 days, got %d", len(result.PerDay))
	}

	day2 := result.PerDay[1]
	if day2.Committed != 7 || day2.Remaining != 3 {
		t.Errorf("June 2: expected committed=7 remaining=3, got committed=%d remaining=%d",
			day2.Committed, day2.Remaining)
	}
	if day2.Status != inventory.DayAvailable {
		t.Errorf("June 2: expected available, got %s", day2.Status)
	}
	for _, i := range []int{0, 2} {
		if result.PerDay[i].Remaining != 10 {
			t.Errorf("day %d: expected full capacity remaining, got %d", i, result.PerDay[i].Remaining)
		}
	}
	if !result.OverallAvailable {
		t.Error("expected overall availability")
	}
}

func TestQueryAvailability_FullDay_ReportsFullAndBreaksOverall(t *testing.T) {
	// GIVEN: capacity 10 fully committed on June 2
	tour := groupTour("tour-1", 10)
	svc, st := newAvailabilityService(t, tour)

	june2 := date(2025, time.June, 2)
	seedDemand(t, st, inventory.Demand{
		ID: "d1", ResourceID: tour.ID, Start: june2, End: june2,
		Slot: inventory.NoSlot, PartySize: 10, Status: inventory.DemandConfirmed,
	})

	result, err := svc.QueryAvailability(context.Background(), tour.ID,
		inventory.AvailabilityQuery{Start: date(2025, time.June, 1), End: date(2025, time.June, 3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.PerDay[1].Status != inventory.DayFull {
		t.Errorf("expected full, got %s", result.PerDay[1].Status)
	}
	if result.PerDay[1].Remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", result.PerDay[1].Remaining)
	}
	if result.OverallAvailable {
		t.Error("one full day must break overall availability")
	}
}

func TestQueryAvailability_CancelledDemand_DoesNotCount(t *testing.T) {
	tour := groupTour("tour-1", 10)
	svc, st := newAvailabilityService(t, tour)

	june2 := date(2025, time.June, 2)
	seedDemand(t, st, inventory.Demand{
		ID: "d1", ResourceID: tour.ID, Start: june2, End: june2,
		Slot: inventory.NoSlot, PartySize: 10, Status: inventory.DemandCancelled,
	})

	result, err := svc.QueryAvailability(context.Background(), tour.ID,
		inventory.AvailabilityQuery{Start: june2, End: june2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PerDay[0].Committed != 0 || result.PerDay[0].Remaining != 10 {
		t.Fatalf("cancelled demand must not count: %+v", result.PerDay[0])
	}
}

func TestQueryAvailability_DefaultCapacityFallback(t *testing.T) {
	// GIVEN: a resource registered without a capacity
	// THEN: the engine treats it as having the default ten units

	tour := groupTour("tour-1", 0)
	svc, _ := newAvailabilityService(t, tour)

	result, err := svc.QueryAvailability(context.Background(), tour.ID,
		inventory.AvailabilityQuery{Start: date(2025, time.June, 1), End: date(2025, time.June, 1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PerDay[0].CapacityTotal != inventory.DefaultCapacityFallback {
		t.Fatalf("expected fallback capacity %d, got %d",
			inventory.DefaultCapacityFallback, result.PerDay[0].CapacityTotal)
	}
}

// =============================================================================
// STATUS PRIORITY
// =============================================================================

func TestQueryAvailability_BlockedBeatsFull(t *testing.T) {
	// GIVEN: June 2 is both fully booked and operator-blocked
	// THEN: the day reports blocked, not full

	tour := groupTour("tour-1", 10)
	svc, st := newAvailabilityService(t, tour)

	june2 := date(2025, time.June, 2)
	seedDemand(t, st, inventory.Demand{
		ID: "d1", ResourceID: tour.ID, Start: june2, End: june2,
		Slot: inventory.NoSlot, PartySize: 10, Status: inventory.DemandConfirmed,
	})
	if err := st.SetBlockedDate(context.Background(), inventory.BlockedDate{
		ResourceID: tour.ID, Date: june2, Reason: "typhoon",
	}); err != nil {
		t.Fatalf("failed to block: %v", err)
	}

	result, err := svc.QueryAvailability(context.Background(), tour.ID,
		inventory.AvailabilityQuery{Start: june2, End: june2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PerDay[0].Status != inventory.DayBlocked {
		t.Fatalf("expected blocked, got %s", result.PerDay[0].Status)
	}
}

func TestQueryAvailability_PastBeatsBlocked(t *testing.T) {
	// GIVEN: a blocked date behind today (today is May 1)
	tour := groupTour("tour-1", 10)
	svc, st := newAvailabilityService(t, tour)

	april30 := date(2025, time.April, 30)
	if err := st.SetBlockedDate(context.Background(), inventory.BlockedDate{
		ResourceID: tour.ID, Date: april30,
	}); err != nil {
		t.Fatalf("failed to block: %v", err)
	}

	result, err := svc.QueryAvailability(context.Background(), tour.ID,
		inventory.AvailabilityQuery{Start: april30, End: date(2025, time.May, 1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PerDay[0].Status != inventory.DayPast {
		t.Fatalf("expected past, got %s", result.PerDay[0].Status)
	}
	if result.OverallAvailable {
		t.Error("a past day must break overall availability")
	}
}

// =============================================================================
// ACCOMMODATION SCENARIOS
// =============================================================================

func TestQueryAvailability_Accommodation_RoomPerBookingPerNight(t *testing.T) {
	// GIVEN: a 5-room lodge with a 6-guest booking spanning June 1..3
	// WHEN: querying the stay window
	// THEN: each occupied night loses exactly one room, party size ignored,
	//       and the check-out day is not occupied

	lodge := lodging("lodge-1", 5)
	svc, st := newAvailabilityService(t, lodge)

	seedDemand(t, st, inventory.Demand{
		ID: "d1", ResourceID: lodge.ID,
		Start: date(2025, time.June, 1), End: date(2025, time.June, 3),
		Slot: inventory.NoSlot, PartySize: 6, Status: inventory.DemandConfirmed,
	})

	result, err := svc.QueryAvailability(context.Background(), lodge.ID,
		inventory.AvailabilityQuery{Start: date(2025, time.June, 1), End: date(2025, time.June, 4)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Nights June 1, 2, 3
	if len(result.PerDay) != 3 {
		t.Fatalf("expected 3 nights, got %d", len(result.PerDay))
	}
	for i, night := range result.PerDay[:2] {
		if night.Committed != 1 || night.Remaining != 4 {
			t.Errorf("night %d: expected 1 room committed, got %+v", i, night)
		}
	}
	// June 3 is the check-out day of the seeded stay: not occupied.
	if result.PerDay[2].Committed != 0 {
		t.Errorf("check-out day must be free, got %+v", result.PerDay[2])
	}
}

// =============================================================================
// INDIVIDUAL TOUR SCENARIOS
// =============================================================================

func TestQueryAvailability_IndividualTour_SlotsIndependent(t *testing.T) {
	// GIVEN: a tour with capacity 5 per slot, slot 0 full on June 1
	// THEN: slot 0 reports full while other slots stay available

	walk := individualTour("walk-1", 5)
	svc, st := newAvailabilityService(t, walk)

	june1 := date(2025, time.June, 1)
	seedDemand(t, st, inventory.Demand{
		ID: "d1", ResourceID: walk.ID, Start: june1, End: june1,
		Slot: 0, PartySize: 5, Status: inventory.DemandConfirmed,
	})

	result, err := svc.QueryAvailability(context.Background(), walk.ID,
		inventory.AvailabilityQuery{Start: june1, End: june1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.PerDay) != inventory.DefaultSlotsPerDay {
		t.Fatalf("expected %d slots, got %d", inventory.DefaultSlotsPerDay, len(result.PerDay))
	}

	if result.PerDay[0].Status != inventory.DayFull {
		t.Errorf("slot 0: expected full, got %s", result.PerDay[0].Status)
	}
	for _, slot := range result.PerDay[1:] {
		if slot.Status != inventory.DayAvailable || slot.Remaining != 5 {
			t.Errorf("slot %d: expected 5 remaining, got %+v", slot.Slot, slot)
		}
	}
}

// =============================================================================
// ERROR PATHS
// =============================================================================

func TestQueryAvailability_UnknownResource(t *testing.T) {
	svc, _ := newAvailabilityService(t)
	_, err := svc.QueryAvailability(context.Background(), "nope",
		inventory.AvailabilityQuery{Start: date(2025, time.June, 1), End: date(2025, time.June, 1)})
	if !errors.Is(err, inventory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryAvailability_InactiveResource(t *testing.T) {
	tour := groupTour("tour-1", 10)
	tour.Active = false
	svc, _ := newAvailabilityService(t, tour)

	_, err := svc.QueryAvailability(context.Background(), tour.ID,
		inventory.AvailabilityQuery{Start: date(2025, time.June, 1), End: date(2025, time.June, 1)})
	if !errors.Is(err, inventory.ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
}

func TestQueryAvailability_InvalidRange(t *testing.T) {
	tour := groupTour("tour-1", 10)
	svc, _ := newAvailabilityService(t, tour)

	_, err := svc.QueryAvailability(context.Background(), tour.ID,
		inventory.AvailabilityQuery{Start: date(2025, time.June, 3), End: date(2025, time.June, 1)})
	if !errors.Is(err, inventory.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestQueryAvailability_NegativeRemaining_ClampedAtBoundary(t *testing.T) {
	// GIVEN: committed demand exceeding capacity (capacity lowered after sale)
	tour := groupTour("tour-1", 10)
	svc, st := newAvailabilityService(t, tour)

	june2 := date(2025, time.June, 2)
	seedDemand(t, st, inventory.Demand{
		ID: "d1", ResourceID: tour.ID, Start: june2, End: june2,
		Slot: inventory.NoSlot, PartySize: 12, Status: inventory.DemandConfirmed,
	})

	result, err := svc.QueryAvailability(context.Background(), tour.ID,
		inventory.AvailabilityQuery{Start: june2, End: june2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	day := result.PerDay[0]
	if day.Remaining != 0 {
		t.Errorf("presented remaining must clamp to 0, got %d", day.Remaining)
	}
	if day.Committed != 12 {
		t.Errorf("committed must stay truthful, got %d", day.Committed)
	}
	if day.Status != inventory.DayFull {
		t.Errorf("expected full, got %s", day.Status)
	}
}
