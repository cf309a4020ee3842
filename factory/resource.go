/*
Package factory provides JSON to Go configuration conversion.

PURPOSE:
  Converts JSON definitions into inventory.Resource, inventory.Config
  and inventory.RefundSchedule values. This enables configuration
  without code changes - operations staff can define resources and
  refund tiers in JSON, and the factory creates validated Go structs.

WHY JSON?
  - Non-developers can modify resource catalogs and refund policy
  - Easy integration with an admin UI
  - Version control for configuration
  - Database storage of configs

JSON SCHEMA (resource):
  {
    "id": "lodge-aomori",
    "kind": "accommodation",
    "name": "Aomori Lakeside Lodge",
    "capacity_total": 8,
    "timezone": "Asia/Tokyo",
    "owner_id": "partner-042",
    "active": true
  }

JSON SCHEMA (refund schedule):
  {
    "tiers": [
      {"min_lead_days": 7, "fraction": "0.85"},
      {"min_lead_days": 3, "fraction": "0.50"},
      {"min_lead_days": 0, "fraction": "0"}
    ]
  }

KEY FEATURES:
  - Validates structure and values
  - Sets sensible defaults (capacity fallback, default refund tiers)
  - Round-trips via ToJSON for admin surfaces

USAGE:
  f := factory.New()
  res, err := f.ParseResource(jsonString)
  sched, err := f.ParseRefundSchedule(jsonString)

SEE ALSO:
  - inventory/types.go: Resource and Config definitions
  - inventory/refund.go: RefundSchedule semantics
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/booking-engine/inventory"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ResourceJSON is the JSON representation of a bookable resource.
type ResourceJSON struct {
	ID            string   `json:"id"`
	Kind          string   `json:"kind"`
	Name          string   `json:"name"`
	CapacityTotal int      `json:"capacity_total,omitempty"`
	SlotTimes     []string `json:"slot_times,omitempty"`
	Timezone      string   `json:"timezone,omitempty"`
	OwnerID       string   `json:"owner_id,omitempty"`
	Active        *bool    `json:"active,omitempty"` // Default true
}

// TierJSON is one refund tier. Fraction is a decimal string so "0.85"
// survives round-trips exactly.
type TierJSON struct {
	MinLeadDays int    `json:"min_lead_days"`
	Fraction    string `json:"fraction"`
}

// ScheduleJSON is the JSON representation of a refund schedule.
type ScheduleJSON struct {
	Tiers []TierJSON `json:"tiers"`
}

// ConfigJSON is the JSON representation of the engine tunables. Zero
// fields fall back to the engine defaults.
type ConfigJSON struct {
	DefaultCapacity    int `json:"default_capacity,omitempty"`
	DefaultSlotsPerDay int `json:"default_slots_per_day,omitempty"`
	MaxRangeDays       int `json:"max_range_days,omitempty"`
	BookingAttempts    int `json:"booking_attempts,omitempty"`
}

// =============================================================================
// FACTORY
// =============================================================================

// Factory converts JSON configuration to validated Go structs.
type Factory struct{}

// New creates a new configuration factory.
func New() *Factory {
	return &Factory{}
}

// ParseResource parses a JSON string into a validated Resource.
func (f *Factory) ParseResource(jsonStr string) (*inventory.Resource, error) {
	var rj ResourceJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return nil, fmt.Errorf("failed to parse resource JSON: %w", err)
	}
	return f.ResourceFromJSON(rj)
}

// ResourceFromJSON converts ResourceJSON to inventory.Resource.
func (f *Factory) ResourceFromJSON(rj ResourceJSON) (*inventory.Resource, error) {
	if rj.ID == "" {
		return nil, fmt.Errorf("%w: resource id is required", inventory.ErrValidation)
	}

	kind, err := parseKind(rj.Kind)
	if err != nil {
		return nil, err
	}
	if rj.CapacityTotal < 0 {
		return nil, fmt.Errorf("%w: capacity_total must not be negative", inventory.ErrValidation)
	}
	if len(rj.SlotTimes) > 0 && kind != inventory.KindIndividualTour {
		return nil, fmt.Errorf("%w: slot_times only apply to individual tours", inventory.ErrValidation)
	}

	res := &inventory.Resource{
		ID:            inventory.ResourceID(rj.ID),
		Kind:          kind,
		Name:          rj.Name,
		CapacityTotal: rj.CapacityTotal,
		SlotTimes:     rj.SlotTimes,
		Timezone:      rj.Timezone,
		OwnerID:       rj.OwnerID,
		Active:        true,
	}
	if rj.Active != nil {
		res.Active = *rj.Active
	}
	if rj.Timezone != "" {
		if _, err := time.LoadLocation(rj.Timezone); err != nil {
			return nil, fmt.Errorf("%w: unknown timezone %q", inventory.ErrValidation, rj.Timezone)
		}
	}
	return res, nil
}

// ResourceToJSON converts a Resource back to its JSON form.
func (f *Factory) ResourceToJSON(r inventory.Resource) ResourceJSON {
	active := r.Active
	return ResourceJSON{
		ID:            string(r.ID),
		Kind:          string(r.Kind),
		Name:          r.Name,
		CapacityTotal: r.CapacityTotal,
		SlotTimes:     r.SlotTimes,
		Timezone:      r.Timezone,
		OwnerID:       r.OwnerID,
		Active:        &active,
	}
}

func parseKind(s string) (inventory.ResourceKind, error) {
	switch inventory.ResourceKind(s) {
	case inventory.KindAccommodation, inventory.KindGroupTour, inventory.KindIndividualTour:
		return inventory.ResourceKind(s), nil
	default:
		return "", fmt.Errorf("%w: unknown resource kind %q", inventory.ErrValidation, s)
	}
}

// ParseRefundSchedule parses a JSON string into a validated RefundSchedule.
// An empty tier list yields the default schedule.
func (f *Factory) ParseRefundSchedule(jsonStr string) (inventory.RefundSchedule, error) {
	var sj ScheduleJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return nil, fmt.Errorf("failed to parse refund schedule JSON: %w", err)
	}
	return f.ScheduleFromJSON(sj)
}

// ScheduleFromJSON converts ScheduleJSON to inventory.RefundSchedule.
func (f *Factory) ScheduleFromJSON(sj ScheduleJSON) (inventory.RefundSchedule, error) {
	if len(sj.Tiers) == 0 {
		return inventory.DefaultRefundSchedule(), nil
	}

	sched := make(inventory.RefundSchedule, 0, len(sj.Tiers))
	for _, tj := range sj.Tiers {
		fraction, err := decimal.NewFromString(tj.Fraction)
		if err != nil {
			return nil, fmt.Errorf("%w: bad refund fraction %q", inventory.ErrValidation, tj.Fraction)
		}
		sched = append(sched, inventory.RefundTier{
			MinLeadDays: tj.MinLeadDays,
			Fraction:    fraction,
		})
	}

	sched = sched.Normalized()
	if err := sched.Validate(); err != nil {
		return nil, err
	}
	return sched, nil
}

// ScheduleToJSON converts a RefundSchedule back to its JSON form.
func (f *Factory) ScheduleToJSON(sched inventory.RefundSchedule) ScheduleJSON {
	sj := ScheduleJSON{}
	for _, t := range sched {
		sj.Tiers = append(sj.Tiers, TierJSON{
			MinLeadDays: t.MinLeadDays,
			Fraction:    t.Fraction.String(),
		})
	}
	return sj
}

// ParseConfig parses a JSON string into an engine Config, applying the
// defaults for any omitted field.
func (f *Factory) ParseConfig(jsonStr string) (inventory.Config, error) {
	var cj ConfigJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return inventory.Config{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return f.ConfigFromJSON(cj)
}

// ConfigFromJSON converts ConfigJSON to inventory.Config.
func (f *Factory) ConfigFromJSON(cj ConfigJSON) (inventory.Config, error) {
	if cj.DefaultCapacity < 0 || cj.DefaultSlotsPerDay < 0 ||
		cj.MaxRangeDays < 0 || cj.BookingAttempts < 0 {
		return inventory.Config{}, fmt.Errorf("%w: config values must not be negative", inventory.ErrValidation)
	}

	cfg := inventory.DefaultConfig()
	if cj.DefaultCapacity > 0 {
		cfg.DefaultCapacity = cj.DefaultCapacity
	}
	if cj.DefaultSlotsPerDay > 0 {
		cfg.DefaultSlotsPerDay = cj.DefaultSlotsPerDay
	}
	if cj.MaxRangeDays > 0 {
		cfg.MaxRangeDays = cj.MaxRangeDays
	}
	if cj.BookingAttempts > 0 {
		cfg.BookingAttempts = cj.BookingAttempts
	}
	return cfg, nil
}
