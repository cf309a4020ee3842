/*
store.go - Persistence interfaces for resources, demand and overrides

PURPOSE:
  Defines the interface between the engine and the database. Different
  implementations can use SQLite or in-memory storage; the engine only
  depends on the contracts here.

KEY INTERFACES:
  Store:   Reads/writes over resources, demand, blocked dates and
           cancellation records.
  TxStore: Store plus WithTx for atomic multi-statement operations.

DEMAND IS NEVER DELETED:
  There is no DeleteDemand. Demand rows leave the committed set by status
  transition only (TransitionDemand), which preserves the audit trail and
  makes capacity release automatic.

TYPED FILTERS:
  FindDemand takes a DemandFilter value object rather than SQL fragments.
  Implementations translate it to parameterized queries at the storage
  boundary; the memory store evaluates Matches directly. Aggregation
  logic never sees (or builds) SQL.

SNAPSHOT READS:
  The availability service performs all reads of one query inside a
  single WithTx so demand and blocked dates come from one consistent
  snapshot.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: production SQLite
  - inventory/store/memory.go: in-memory for tests

SEE ALSO:
  - availability.go, booking.go, refund.go: the consumers
*/
package inventory

import "context"

// =============================================================================
// DEMAND FILTER - Typed predicate translated at the storage boundary
// =============================================================================

// DemandFilter selects demand rows. Zero-valued fields are not applied.
type DemandFilter struct {
	ResourceID ResourceID

	// Overlapping selects demand whose occupied interval intersects the
	// inclusive day range. Point demand (tours, slots) occupies exactly
	// its Start day.
	Overlapping *DateRange

	// Statuses restricts to the given statuses.
	Statuses []DemandStatus

	// ElapsedBefore selects demand whose interval has fully elapsed
	// before the given day (checkout on or before it; point demand
	// strictly before it). Used by the completion sweep.
	ElapsedBefore *Date
}

// Matches evaluates the filter against one demand row. The memory store
// uses this directly; SQL stores must translate to an equivalent WHERE
// clause (see store/sqlite).
func (f DemandFilter) Matches(d Demand) bool {
	if f.ResourceID != "" && d.ResourceID != f.ResourceID {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if d.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Overlapping != nil {
		if d.Start.After(f.Overlapping.End) {
			return false
		}
		if demandEndExclusive(d).Before(f.Overlapping.Start) || demandEndExclusive(d).Equal(f.Overlapping.Start) {
			return false
		}
	}
	if f.ElapsedBefore != nil {
		end := demandEndExclusive(d)
		if end.After(*f.ElapsedBefore) {
			return false
		}
	}
	return true
}

// demandEndExclusive is the first day NOT occupied by the demand.
func demandEndExclusive(d Demand) Date {
	if d.End.After(d.Start) {
		return d.End
	}
	return d.Start.AddDays(1)
}

// =============================================================================
// STORE - Persistence contract
// =============================================================================

// Store handles persistence. Get methods return (nil, nil) when the
// record is absent; callers translate that into ErrNotFound with context.
type Store interface {
	// Resources
	SaveResource(ctx context.Context, r Resource) error
	GetResource(ctx context.Context, id ResourceID) (*Resource, error)
	ListResources(ctx context.Context) ([]Resource, error)

	// Demand: insert and status transition only, never delete.
	InsertDemand(ctx context.Context, d Demand) error
	GetDemand(ctx context.Context, id DemandID) (*Demand, error)
	FindDemand(ctx context.Context, f DemandFilter) ([]Demand, error)

	// TransitionDemand compare-and-sets Status from -> to. Returns
	// ErrNotFound if the demand is absent and ErrConflict if its current
	// status is not `from`.
	TransitionDemand(ctx context.Context, id DemandID, from, to DemandStatus) error

	// Blocked dates: one row per (resource, date); Set is an upsert.
	SetBlockedDate(ctx context.Context, b BlockedDate) error
	ClearBlockedDate(ctx context.Context, id ResourceID, date Date) error
	BlockedDates(ctx context.Context, id ResourceID, from, to Date) ([]BlockedDate, error)

	// Cancellations: append-only audit rows, at most one per booking.
	// InsertCancellation returns ErrDuplicateCancellation when a record
	// already exists for the booking.
	InsertCancellation(ctx context.Context, rec CancellationRecord) error
	GetCancellation(ctx context.Context, bookingID DemandID) (*CancellationRecord, error)
}

// TxStore wraps Store with transaction support. Fn runs against a view
// of the store scoped to one transaction; returning an error rolls back.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
