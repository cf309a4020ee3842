package factory_test

import (
	"errors"
	"testing"

	"github.com/warp/booking-engine/factory"
	"github.com/warp/booking-engine/inventory"
)

// =============================================================================
// RESOURCE PARSING
// =============================================================================

func TestParseResource_Valid(t *testing.T) {
	f := factory.New()

	res, err := f.ParseResource(`{
		"id": "lodge-aomori",
		"kind": "accommodation",
		"name": "Aomori Lakeside Lodge",
		"capacity_total": 8,
		"timezone": "Asia/Tokyo",
		"owner_id": "partner-042"
	}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != inventory.KindAccommodation {
		t.Errorf("expected accommodation, got %s", res.Kind)
	}
	if res.CapacityTotal != 8 {
		t.Errorf("expected capacity 8, got %d", res.CapacityTotal)
	}
	if !res.Active {
		t.Error("active must default to true")
	}
}

func TestParseResource_ExplicitInactive(t *testing.T) {
	f := factory.New()
	res, err := f.ParseResource(`{"id": "t1", "kind": "group_tour", "active": false}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Active {
		t.Error("explicit active=false must be honored")
	}
}

func TestParseResource_Invalid(t *testing.T) {
	f := factory.New()

	cases := map[string]string{
		"missing id":         `{"kind": "group_tour"}`,
		"unknown kind":       `{"id": "t1", "kind": "spa"}`,
		"negative capacity":  `{"id": "t1", "kind": "group_tour", "capacity_total": -2}`,
		"bad timezone":       `{"id": "t1", "kind": "group_tour", "timezone": "Mars/Olympus"}`,
		"slots on non-tour":  `{"id": "t1", "kind": "accommodation", "slot_times": ["09:00"]}`,
	}
	for name, in := range cases {
		if _, err := f.ParseResource(in); !errors.Is(err, inventory.ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", name, err)
		}
	}

	if _, err := f.ParseResource(`{not json`); err == nil {
		t.Error("malformed JSON must fail")
	}
}

func TestResourceJSON_RoundTrip(t *testing.T) {
	f := factory.New()
	res, err := f.ParseResource(`{
		"id": "walk-1",
		"kind": "individual_tour",
		"slot_times": ["09:00", "11:00"],
		"timezone": "Europe/Lisbon"
	}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	back, err := f.ResourceFromJSON(f.ResourceToJSON(*res))
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if back.ID != res.ID || back.Kind != res.Kind || len(back.SlotTimes) != 2 {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, res)
	}
}

// =============================================================================
// REFUND SCHEDULE PARSING
// =============================================================================

func TestParseRefundSchedule_Valid(t *testing.T) {
	f := factory.New()

	sched, err := f.ParseRefundSchedule(`{
		"tiers": [
			{"min_lead_days": 14, "fraction": "1"},
			{"min_lead_days": 7, "fraction": "0.85"},
			{"min_lead_days": 0, "fraction": "0"}
		]
	}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sched) != 3 {
		t.Fatalf("expected 3 tiers, got %d", len(sched))
	}
	if got := sched.FractionFor(14); got.String() != "1" {
		t.Errorf("lead 14: expected full refund, got %s", got)
	}
}

func TestParseRefundSchedule_EmptyGetsDefaults(t *testing.T) {
	f := factory.New()
	sched, err := f.ParseRefundSchedule(`{}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sched.FractionFor(7); got.String() != "0.85" {
		t.Fatalf("expected default tiers, got fraction %s at 7 days", got)
	}
}

func TestParseRefundSchedule_UnorderedTiersNormalized(t *testing.T) {
	f := factory.New()
	sched, err := f.ParseRefundSchedule(`{
		"tiers": [
			{"min_lead_days": 0, "fraction": "0"},
			{"min_lead_days": 7, "fraction": "0.85"}
		]
	}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sched[0].MinLeadDays != 7 {
		t.Fatalf("tiers must be normalized descending, got %+v", sched)
	}
}

func TestParseRefundSchedule_Invalid(t *testing.T) {
	f := factory.New()

	// No catch-all tier
	_, err := f.ParseRefundSchedule(`{"tiers": [{"min_lead_days": 7, "fraction": "0.85"}]}`)
	if !errors.Is(err, inventory.ErrInvalidSchedule) {
		t.Errorf("missing catch-all: expected ErrInvalidSchedule, got %v", err)
	}

	// Unparseable fraction
	_, err = f.ParseRefundSchedule(`{"tiers": [{"min_lead_days": 0, "fraction": "half"}]}`)
	if !errors.Is(err, inventory.ErrValidation) {
		t.Errorf("bad fraction: expected ErrValidation, got %v", err)
	}

	// Fraction above one
	_, err = f.ParseRefundSchedule(`{"tiers": [{"min_lead_days": 0, "fraction": "1.5"}]}`)
	if !errors.Is(err, inventory.ErrInvalidSchedule) {
		t.Errorf("fraction > 1: expected ErrInvalidSchedule, got %v", err)
	}
}

// =============================================================================
// ENGINE CONFIG PARSING
// =============================================================================

func TestParseConfig_DefaultsApplied(t *testing.T) {
	f := factory.New()

	cfg, err := f.ParseConfig(`{"default_capacity": 25}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DefaultCapacity != 25 {
		t.Errorf("expected override 25, got %d", cfg.DefaultCapacity)
	}
	if cfg.MaxRangeDays != inventory.DefaultMaxRangeDays {
		t.Errorf("omitted field must keep default, got %d", cfg.MaxRangeDays)
	}
	if cfg.BookingAttempts != inventory.DefaultBookingAttempts {
		t.Errorf("omitted field must keep default, got %d", cfg.BookingAttempts)
	}
}

func TestParseConfig_NegativeRejected(t *testing.T) {
	f := factory.New()
	if _, err := f.ParseConfig(`{"max_range_days": -1}`); !errors.Is(err, inventory.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
