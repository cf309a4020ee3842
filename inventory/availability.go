/*
availability.go - Day-by-day availability answers

PURPOSE:
  Orchestrates calendar materialization, demand aggregation and blocked
  date overrides into the single answer callers want:

    per day: date, capacity, committed, remaining, status
    overall: can the whole request be satisfied?

STATUS PRIORITY:
  past > blocked > full > available

  A date before today (in the resource's timezone) is past no matter
  what. An operator block wins over any computed value. Only then does
  remaining capacity decide full vs available.

CONSISTENCY:
  Demand and blocked dates are read inside one store transaction so the
  answer reflects a single snapshot, never a partially stale view.

GRACEFUL DEGRADATION:
  Past and blocked days are reported, not errored. Only structurally
  invalid input (unknown resource, inverted range) is a hard failure.

SEE ALSO:
  - model.go: per-kind aggregation
  - booking.go: the write-side companion of this read path
*/
package inventory

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// QUERY & RESULT
// =============================================================================

// AvailabilityQuery is a date range to evaluate. For accommodations the
// bounds are check-in/check-out (half-open nights); for tours the bounds
// are inclusive. A single-day query sets Start == End.
type AvailabilityQuery struct {
	Start Date
	End   Date
}

// AvailabilityResult is the day-by-day answer plus the overall verdict.
type AvailabilityResult struct {
	ResourceID       ResourceID
	PerDay           []AvailabilityDay
	OverallAvailable bool
}

// =============================================================================
// SERVICE
// =============================================================================

// Service answers availability queries against a TxStore.
type Service struct {
	Store  TxStore
	Config Config

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewService(store TxStore, cfg Config) *Service {
	return &Service{Store: store, Config: cfg, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// QueryAvailability computes the per-day availability of a resource over
// the query range. Fails with ErrNotFound / ErrInactive preconditions
// and ErrInvalidRange for malformed ranges; past and blocked days are
// reported in the result, never as errors.
func (s *Service) QueryAvailability(ctx context.Context, id ResourceID, q AvailabilityQuery) (*AvailabilityResult, error) {
	var (
		res     *Resource
		demand  []Demand
		blocked []BlockedDate
		days    []Date
	)

	err := s.Store.WithTx(ctx, func(st Store) error {
		var err error
		res, err = st.GetResource(ctx, id)
		if err != nil {
			return err
		}
		if res == nil {
			return fmt.Errorf("%w: resource %s", ErrNotFound, id)
		}
		if !res.Active {
			return fmt.Errorf("%w: resource %s", ErrInactive, id)
		}

		days, err = s.materialize(*res, q)
		if err != nil {
			return err
		}
		window := &DateRange{Start: days[0], End: days[len(days)-1]}

		demand, err = st.FindDemand(ctx, DemandFilter{
			ResourceID:  id,
			Overlapping: window,
			Statuses:    []DemandStatus{DemandPending, DemandConfirmed},
		})
		if err != nil {
			return err
		}

		blocked, err = st.BlockedDates(ctx, id, window.Start, window.End)
		return err
	})
	if err != nil {
		return nil, err
	}

	loads := ModelFor(*res, s.Config).Compute(days, demand)
	perDay := s.finalize(*res, loads, blocked)

	overall := len(perDay) > 0
	for _, day := range perDay {
		if day.Status != DayAvailable {
			overall = false
			break
		}
	}

	return &AvailabilityResult{
		ResourceID:       id,
		PerDay:           perDay,
		OverallAvailable: overall,
	}, nil
}

// materialize picks the expansion mode for the resource kind: half-open
// nights for stays, inclusive days otherwise.
func (s *Service) materialize(res Resource, q AvailabilityQuery) ([]Date, error) {
	if res.Kind == KindAccommodation {
		return s.Config.MaterializeNights(q.Start, q.End)
	}
	return s.Config.Materialize(q.Start, q.End)
}

// finalize applies status priority and clamps remaining. This is the
// only place the negative internal remaining is hidden.
func (s *Service) finalize(res Resource, loads []DayLoad, blocked []BlockedDate) []AvailabilityDay {
	blockedSet := make(map[Date]bool, len(blocked))
	for _, b := range blocked {
		blockedSet[b.Date] = true
	}
	today := DateOf(s.now(), res.Location())

	perDay := make([]AvailabilityDay, len(loads))
	for i, load := range loads {
		day := AvailabilityDay{
			Date:          load.Date,
			Slot:          load.Slot,
			CapacityTotal: load.Capacity,
			Committed:     load.Committed,
			Remaining:     load.Remaining,
		}
		if day.Remaining < 0 {
			day.Remaining = 0
		}

		switch {
		case load.Date.Before(today):
			day.Status = DayPast
		case blockedSet[load.Date]:
			day.Status = DayBlocked
		case load.Remaining <= 0:
			day.Status = DayFull
		default:
			day.Status = DayAvailable
		}
		perDay[i] = day
	}
	return perDay
}
