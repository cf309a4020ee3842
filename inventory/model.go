/*
model.go - Capacity models for the three resource kinds

PURPOSE:
  Normalizes the three aggregation strategies behind one capability:

    CapacityModel.Compute(days, demand) -> []DayLoad

  Accommodation: capacity unit = rooms. One booking consumes exactly one
  room-night per night in its interval, regardless of guest count.

  Group tour: capacity unit = guests. All demand for a departure date
  shares one pool of CapacityTotal.

  Individual tour: capacity is per discrete time slot. Without configured
  slots a default grid applies; each slot has an independent pool of
  CapacityTotal.

WHY A TAGGED VARIANT?
  The observed alternative is branching on the resource kind at every
  call site (query, booking check, admin views). Selecting the model once
  in ModelFor keeps the kind-specific arithmetic in one place and makes
  adding a fourth kind a local change.

SEE ALSO:
  - capacity.go: the shared aggregation loops
  - availability.go: turns DayLoad into AvailabilityDay
*/
package inventory

// CapacityModel computes the per-day (or per-slot) load of a resource.
type CapacityModel interface {
	// Compute tallies committed demand for the given days. The returned
	// loads are unclamped; see capacity.go.
	Compute(days []Date, demand []Demand) []DayLoad

	// Weight returns the units one demand row consumes on each day it
	// covers. Used by the booking path to size a prospective demand.
	Weight(d Demand) int
}

// ModelFor selects the capacity model for a resource. This is the single
// point of kind dispatch in the engine.
func ModelFor(r Resource, cfg Config) CapacityModel {
	capacity := cfg.CapacityOf(r)
	switch r.Kind {
	case KindAccommodation:
		return accommodationModel{capacity: capacity}
	case KindIndividualTour:
		return individualTourModel{capacity: capacity, slots: cfg.SlotsOf(r)}
	default:
		// Group tour is also the conservative fallback for unknown kinds:
		// guests against a shared pool.
		return groupTourModel{capacity: capacity}
	}
}

// =============================================================================
// ACCOMMODATION - rooms, one per booking per night
// =============================================================================

type accommodationModel struct {
	capacity int
}

func (m accommodationModel) Weight(Demand) int { return 1 }

func (m accommodationModel) Compute(days []Date, demand []Demand) []DayLoad {
	return AggregateDays(days, demand, m.capacity, m.Weight)
}

// =============================================================================
// GROUP TOUR - guests, shared pool per departure date
// =============================================================================

type groupTourModel struct {
	capacity int
}

func (m groupTourModel) Weight(d Demand) int { return d.PartySize }

func (m groupTourModel) Compute(days []Date, demand []Demand) []DayLoad {
	return AggregateDays(days, demand, m.capacity, m.Weight)
}

// =============================================================================
// INDIVIDUAL TOUR - independent pool per time slot
// =============================================================================

type individualTourModel struct {
	capacity int
	slots    int
}

func (m individualTourModel) Weight(d Demand) int { return d.PartySize }

func (m individualTourModel) Compute(days []Date, demand []Demand) []DayLoad {
	return AggregateSlots(days, demand, m.slots, m.capacity)
}
