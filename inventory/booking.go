/*
booking.go - Demand creation and lifecycle transitions

PURPOSE:
  The write side of the engine. Creating demand is a check-then-insert:
  read committed demand, verify every requested day/slot can absorb the
  party, insert. Without care, two concurrent requests each observe
  sufficient remaining capacity and jointly overbook.

LINEARIZATION:
  Two layers guard the check-then-insert:

  1. A keyed lock table scoped to (resource, day). Concurrent creates
     touching the same day serialize; creates for unrelated days (or
     resources) proceed independently. Keys are acquired in sorted order
     so multi-night stays cannot deadlock each other.
  2. The store transaction (WithTx). Stores that detect write conflicts
     return ErrConflict, which is retried here a bounded number of times
     and NEVER surfaced as ErrCapacityExceeded - a conflict means "try
     again", capacity exhaustion means "pick another date".

LIFECYCLE:
  pending --Confirm--> confirmed --CompleteElapsed--> completed
     |                     |
     +------Cancel (refund.go)------> cancelled (terminal)

SEE ALSO:
  - refund.go: the cancellation branch
  - jobs/: cron wiring for CompleteElapsed
*/
package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// REQUEST
// =============================================================================

// CreateDemandRequest describes a prospective booking. For accommodations
// Start/End are check-in/check-out; for tours End is ignored and the
// demand occupies exactly Start (plus Slot for individual tours).
type CreateDemandRequest struct {
	ResourceID ResourceID
	Start      Date
	End        Date
	Slot       int // NoSlot unless booking an individual tour slot
	PartySize  int
	TotalPrice decimal.Decimal
	Contact    string
}

// =============================================================================
// BOOKING SERVICE
// =============================================================================

// BookingService creates demand and drives non-cancellation transitions.
type BookingService struct {
	Store  TxStore
	Config Config

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewBookingService(store TxStore, cfg Config) *BookingService {
	return &BookingService{
		Store:  store,
		Config: cfg,
		Now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (bs *BookingService) now() time.Time {
	if bs.Now != nil {
		return bs.Now()
	}
	return time.Now()
}

// CreateDemand validates the request, verifies capacity on every
// requested day/slot and inserts the demand as pending. Returns
// ErrCapacityExceeded (structured) when any day cannot absorb the party.
func (bs *BookingService) CreateDemand(ctx context.Context, req CreateDemandRequest) (*Demand, error) {
	if req.PartySize < 1 {
		return nil, fmt.Errorf("%w: party size must be at least 1", ErrValidation)
	}
	if req.TotalPrice.IsNegative() {
		return nil, fmt.Errorf("%w: total price cannot be negative", ErrValidation)
	}

	res, err := bs.Store.GetResource(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: resource %s", ErrNotFound, req.ResourceID)
	}
	if !res.Active {
		return nil, fmt.Errorf("%w: resource %s", ErrInactive, req.ResourceID)
	}

	demand, days, err := bs.buildDemand(*res, req)
	if err != nil {
		return nil, err
	}

	today := DateOf(bs.now(), res.Location())
	if demand.Start.Before(today) {
		return nil, fmt.Errorf("%w: cannot book a past date %s", ErrValidation, demand.Start)
	}

	unlock := bs.lockDays(req.ResourceID, days)
	defer unlock()

	for attempt := 0; attempt < bs.Config.BookingAttempts; attempt++ {
		err = bs.tryCreate(ctx, *res, demand, days)
		if err == nil {
			return &demand, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("booking %s: retries exhausted: %w", demand.ID, err)
}

// buildDemand normalizes the request into a demand row and its occupied
// days, per the resource kind's interval semantics.
func (bs *BookingService) buildDemand(res Resource, req CreateDemandRequest) (Demand, []Date, error) {
	d := Demand{
		ID:         DemandID(uuid.NewString()),
		ResourceID: req.ResourceID,
		Start:      req.Start,
		End:        req.End,
		Slot:       NoSlot,
		PartySize:  req.PartySize,
		Status:     DemandPending,
		TotalPrice: req.TotalPrice,
		Contact:    req.Contact,
		CreatedAt:  bs.now(),
	}

	switch res.Kind {
	case KindAccommodation:
		days, err := bs.Config.MaterializeNights(req.Start, req.End)
		if err != nil {
			return Demand{}, nil, err
		}
		return d, days, nil

	case KindIndividualTour:
		if req.Slot < 0 || req.Slot >= bs.Config.SlotsOf(res) {
			return Demand{}, nil, fmt.Errorf("%w: slot %d out of range", ErrValidation, req.Slot)
		}
		d.Slot = req.Slot
		d.End = req.Start
		return d, []Date{req.Start}, nil

	default: // group tour
		d.End = req.Start
		return d, []Date{req.Start}, nil
	}
}

// tryCreate runs one check-then-insert attempt inside a transaction.
func (bs *BookingService) tryCreate(ctx context.Context, res Resource, demand Demand, days []Date) error {
	model := ModelFor(res, bs.Config)
	weight := model.Weight(demand)
	window := &DateRange{Start: days[0], End: days[len(days)-1]}

	return bs.Store.WithTx(ctx, func(st Store) error {
		existing, err := st.FindDemand(ctx, DemandFilter{
			ResourceID:  demand.ResourceID,
			Overlapping: window,
			Statuses:    []DemandStatus{DemandPending, DemandConfirmed},
		})
		if err != nil {
			return err
		}

		blocked, err := st.BlockedDates(ctx, demand.ResourceID, window.Start, window.End)
		if err != nil {
			return err
		}
		for _, b := range blocked {
			if demand.Covers(b.Date) {
				// An operator block leaves zero bookable units on the day.
				return &CapacityExceededError{
					ResourceID: demand.ResourceID,
					Date:       b.Date,
					Slot:       demand.Slot,
					Requested:  weight,
					Remaining:  0,
				}
			}
		}

		for _, load := range model.Compute(days, existing) {
			if demand.Slot != NoSlot && load.Slot != demand.Slot {
				continue
			}
			if load.Remaining < weight {
				remaining := load.Remaining
				if remaining < 0 {
					remaining = 0
				}
				return &CapacityExceededError{
					ResourceID: demand.ResourceID,
					Date:       load.Date,
					Slot:       load.Slot,
					Requested:  weight,
					Remaining:  remaining,
				}
			}
		}

		return st.InsertDemand(ctx, demand)
	})
}

// ConfirmDemand moves pending demand to confirmed (external payment
// collaborator callback). Confirming an already-confirmed demand is a
// no-op; confirming final demand fails ErrAlreadyFinal.
func (bs *BookingService) ConfirmDemand(ctx context.Context, id DemandID) error {
	return bs.Store.WithTx(ctx, func(st Store) error {
		d, err := st.GetDemand(ctx, id)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("%w: demand %s", ErrNotFound, id)
		}
		switch d.Status {
		case DemandConfirmed:
			return nil
		case DemandCancelled, DemandCompleted:
			return &AlreadyFinalError{DemandID: id, Status: d.Status}
		}
		return st.TransitionDemand(ctx, id, DemandPending, DemandConfirmed)
	})
}

// CompleteElapsed transitions confirmed demand whose interval has fully
// elapsed before `now` to completed. Returns the number of transitions.
// Wired to a nightly cron in jobs/.
func (bs *BookingService) CompleteElapsed(ctx context.Context, now time.Time) (int, error) {
	today := DateOf(now, time.UTC)
	elapsed, err := bs.Store.FindDemand(ctx, DemandFilter{
		Statuses:      []DemandStatus{DemandConfirmed},
		ElapsedBefore: &today,
	})
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, d := range elapsed {
		if err := bs.Store.TransitionDemand(ctx, d.ID, DemandConfirmed, DemandCompleted); err != nil {
			// A concurrent cancel can win the race; skip, don't abort the sweep.
			if IsRetryable(err) || IsNotFound(err) {
				continue
			}
			return completed, err
		}
		completed++
	}
	return completed, nil
}

// =============================================================================
// KEYED LOCKS - (resource, day) granularity
// =============================================================================

// lockDays acquires one mutex per (resource, day) in sorted key order and
// returns the matching unlock. Contention stays at day granularity so
// unrelated dates remain independently schedulable.
//
// The lock table is never pruned: it holds one mutex per (resource, day)
// ever booked, so its size is bounded by catalog size times the booking
// horizon. TODO: evict keys for fully elapsed days from the completion
// sweep if resident size ever matters.
func (bs *BookingService) lockDays(id ResourceID, days []Date) func() {
	keys := make([]string, len(days))
	for i, d := range days {
		keys[i] = string(id) + "|" + d.String()
	}
	sort.Strings(keys)

	mus := make([]*sync.Mutex, len(keys))
	for i, k := range keys {
		mus[i] = bs.lockFor(k)
		mus[i].Lock()
	}
	return func() {
		for i := len(mus) - 1; i >= 0; i-- {
			mus[i].Unlock()
		}
	}
}

func (bs *BookingService) lockFor(key string) *sync.Mutex {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	mu, ok := bs.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		bs.locks[key] = mu
	}
	return mu
}
