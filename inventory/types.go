/*
Package inventory provides the core availability and refund engine.

PURPOSE:
  This package contains the domain types and algorithms for scheduling
  bookable tourism inventory. Whether the resource is a lodging with a
  pool of rooms, a fixed-date group tour, or an individual tour sold in
  time slots, the same engine answers "how many units remain on this
  day?" and "what refund does a cancellation earn?".

KEY CONCEPTS IN THIS FILE (types.go):
  - Resource: A bookable inventory unit with a capacity model
  - Demand: A claim against a resource's capacity for a date interval or slot
  - BlockedDate: An operator override marking a date unavailable
  - AvailabilityDay: The derived per-day answer (never persisted)
  - CancellationRecord: Immutable audit row for a processed cancellation

DESIGN PRINCIPLES:
  1. Demand is never deleted: status transitions only. Cancelled demand
     releases capacity because it stops counting as committed.
  2. Availability is always derived by replaying demand against capacity;
     there is no stored "remaining" field that can drift.
  3. Precision: prices and refund fractions use decimal.Decimal.
  4. Type safety: ResourceID and DemandID are distinct string types.

USAGE:
  res := inventory.Resource{
      ID:            "tour-001",
      Kind:          inventory.KindGroupTour,
      CapacityTotal: 12,
      Timezone:      "Asia/Tokyo",
      Active:        true,
  }
  d := inventory.Demand{
      ResourceID: res.ID,
      Start:      inventory.NewDate(2025, time.June, 1),
      End:        inventory.NewDate(2025, time.June, 1),
      PartySize:  4,
      Status:     inventory.DemandPending,
  }

SEE ALSO:
  - calendar.go: Date materialization over ranges and nights
  - model.go: Per-kind capacity models
  - refund.go: Cancellation tiers and refund arithmetic
*/
package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ResourceID string
type DemandID string

// =============================================================================
// RESOURCE - A bookable inventory unit
// =============================================================================

// ResourceKind selects the capacity model used for a resource.
// This is the tag of the tagged-variant dispatch in model.go; call sites
// never branch on it directly.
type ResourceKind string

const (
	// KindAccommodation: per-night room pool. One booking consumes exactly
	// one room-night per night in its interval, regardless of guest count.
	KindAccommodation ResourceKind = "accommodation"

	// KindGroupTour: fixed-date departure. All demand for a departure date
	// shares one guest pool sized at CapacityTotal.
	KindGroupTour ResourceKind = "group_tour"

	// KindIndividualTour: open time slots. Each slot has an independent
	// guest pool sized at CapacityTotal; slots do not share capacity.
	KindIndividualTour ResourceKind = "individual_tour"
)

// Resource is a bookable inventory unit owned by a partner/operator.
// Ownership and authorization are resolved by an external collaborator;
// this engine only reads the resolved record.
type Resource struct {
	ID   ResourceID
	Kind ResourceKind
	Name string

	// CapacityTotal is rooms for accommodations and guests for tours.
	// Zero means "unset": the engine falls back to Config.DefaultCapacity.
	CapacityTotal int

	// SlotTimes configures the daily slots of an individual tour
	// (e.g. ["09:00", "11:00", "14:00"]). Empty means the default slot
	// grid of Config.DefaultSlotsPerDay slots.
	SlotTimes []string

	// Timezone is the IANA zone the resource operates in. Day boundaries
	// and refund lead times are anchored here, not at the server's clock.
	Timezone string

	OwnerID   string
	Active    bool
	CreatedAt time.Time
}

// Location resolves the resource's timezone, falling back to UTC when the
// zone is unset or unknown.
func (r Resource) Location() *time.Location {
	if r.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// =============================================================================
// DEMAND - A claim against capacity
// =============================================================================

type DemandStatus string

const (
	DemandPending   DemandStatus = "pending"   // Created, awaiting payment confirmation
	DemandConfirmed DemandStatus = "confirmed" // Payment confirmed
	DemandCancelled DemandStatus = "cancelled" // Terminal; capacity released
	DemandCompleted DemandStatus = "completed" // Terminal; event has taken place
)

// Committed reports whether demand in this status counts against capacity.
func (s DemandStatus) Committed() bool {
	return s == DemandPending || s == DemandConfirmed
}

// Final reports whether the status is terminal for cancellation purposes.
func (s DemandStatus) Final() bool {
	return s == DemandCancelled || s == DemandCompleted
}

// NoSlot marks demand that is not bound to a time slot.
const NoSlot = -1

// Demand is a claim against a resource's capacity. Created at booking
// time, mutated only by status transition, never deleted.
//
// Interval semantics depend on the resource kind:
//   - accommodation: half-open [Start, End) of occupied nights; a stay
//     ending on day X does not occupy night X.
//   - group tour: Start == End == the departure date.
//   - individual tour: Start == End == the slot date, Slot >= 0.
type Demand struct {
	ID         DemandID
	ResourceID ResourceID
	Start      Date
	End        Date
	Slot       int // slot index for individual tours, NoSlot otherwise
	PartySize  int
	Status     DemandStatus
	TotalPrice decimal.Decimal
	Contact    string
	CreatedAt  time.Time
}

// Covers reports whether this demand occupies the given day.
func (d Demand) Covers(day Date) bool {
	if d.Start.Equal(d.End) {
		return day.Equal(d.Start)
	}
	// Nightly stay: [Start, End)
	return !day.Before(d.Start) && day.Before(d.End)
}

// CoversSlot reports whether this demand occupies the given slot of a day.
func (d Demand) CoversSlot(day Date, slot int) bool {
	return d.Slot == slot && day.Equal(d.Start)
}

// EventDate is the date refund lead time is measured against: the first
// occupied day for stays, the departure/slot date otherwise.
func (d Demand) EventDate() Date { return d.Start }

// =============================================================================
// BLOCKED DATE - Operator override
// =============================================================================

// BlockedDate marks a date manually unavailable (maintenance, weather).
// It takes precedence over computed capacity.
type BlockedDate struct {
	ResourceID ResourceID
	Date       Date
	Reason     string
	CreatedAt  time.Time
}

// =============================================================================
// AVAILABILITY DAY - Derived per-day answer (never persisted)
// =============================================================================

type DayStatus string

const (
	DayAvailable DayStatus = "available"
	DayFull      DayStatus = "full"
	DayBlocked   DayStatus = "blocked"
	DayPast      DayStatus = "past"
)

// AvailabilityDay is one day (or one slot of a day) of a query answer.
// Remaining is clamped to zero here: this type is the presentation
// boundary. Internal aggregation keeps the unclamped value to detect
// attempted overbooking.
type AvailabilityDay struct {
	Date          Date
	Slot          int // NoSlot for day-granular resources
	CapacityTotal int
	Committed     int
	Remaining     int
	Status        DayStatus
}

// =============================================================================
// CANCELLATION RECORD - Immutable audit row
// =============================================================================

// CancellationRecord captures the refund decision for a cancelled booking.
// At most one record ever exists per booking; the store enforces this with
// a uniqueness constraint on BookingID.
type CancellationRecord struct {
	ID           string
	BookingID    DemandID
	CancelledAt  time.Time
	EventDate    Date
	Fraction     decimal.Decimal
	RefundAmount decimal.Decimal
	Reason       string
}

// =============================================================================
// ENGINE CONFIGURATION
// =============================================================================

// Named defaults. The capacity fallback mirrors long-standing operator
// behavior: resources registered without a capacity are treated as having
// ten units rather than zero.
const (
	DefaultCapacityFallback = 10
	DefaultSlotsPerDay      = 5
	DefaultMaxRangeDays     = 366
	DefaultBookingAttempts  = 3
)

// Config carries the engine tunables. Use DefaultConfig and override
// fields as needed; a zero Config is not valid.
type Config struct {
	// DefaultCapacity substitutes for a resource with missing/zero
	// CapacityTotal.
	DefaultCapacity int

	// DefaultSlotsPerDay is the slot grid used by individual tours that
	// configure no explicit slot times.
	DefaultSlotsPerDay int

	// MaxRangeDays bounds the span of a single availability query.
	MaxRangeDays int

	// BookingAttempts bounds retries when a create hits a store-level
	// write conflict.
	BookingAttempts int
}

func DefaultConfig() Config {
	return Config{
		DefaultCapacity:    DefaultCapacityFallback,
		DefaultSlotsPerDay: DefaultSlotsPerDay,
		MaxRangeDays:       DefaultMaxRangeDays,
		BookingAttempts:    DefaultBookingAttempts,
	}
}

// CapacityOf returns the effective capacity of a resource, applying the
// configured fallback when CapacityTotal is unset.
func (c Config) CapacityOf(r Resource) int {
	if r.CapacityTotal <= 0 {
		return c.DefaultCapacity
	}
	return r.CapacityTotal
}

// SlotsOf returns the number of daily slots for an individual tour.
func (c Config) SlotsOf(r Resource) int {
	if len(r.SlotTimes) > 0 {
		return len(r.SlotTimes)
	}
	return c.DefaultSlotsPerDay
}
