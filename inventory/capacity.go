/*
capacity.go - Demand aggregation against finite capacity

PURPOSE:
  Given a resource's materialized days and its demand rows, tally how
  much of each day's capacity is committed and how much remains. Only
  demand with status pending or confirmed counts; cancelled and completed
  demand has released its claim.

NEGATIVE REMAINING:
  The tally keeps the raw value, which can go negative if overbooking
  slipped through (e.g. an operator lowered capacity after bookings were
  taken). Clamping to zero happens only at the presentation boundary in
  availability.go; internal callers use the raw value to detect the
  condition.

WEIGHTS:
  The unit a demand row consumes depends on the capacity model:
  accommodations count one room per booking, tours count guests. The
  weight function is supplied by the model in model.go so this file stays
  ignorant of resource kinds.

SEE ALSO:
  - model.go: supplies capacity and weight per resource kind
  - availability.go: clamps and derives day statuses
*/
package inventory

// =============================================================================
// DAY LOAD - Internal per-day tally (unclamped)
// =============================================================================

// DayLoad is the committed/remaining tally for one day or one slot.
// Remaining is NOT clamped; it goes negative on overbooking.
type DayLoad struct {
	Date      Date
	Slot      int // NoSlot for day-granular tallies
	Capacity  int
	Committed int
	Remaining int
}

// =============================================================================
// AGGREGATION
// =============================================================================

// AggregateDays tallies committed demand for each day. The weight
// function converts a demand row into consumed units (rooms or guests).
// The demand slice may contain rows of any status; non-committed rows
// are skipped here so callers can pass raw store results.
func AggregateDays(days []Date, demand []Demand, capacity int, weight func(Demand) int) []DayLoad {
	loads := make([]DayLoad, len(days))
	for i, day := range days {
		committed := 0
		for _, d := range demand {
			if !d.Status.Committed() {
				continue
			}
			if d.Covers(day) {
				committed += weight(d)
			}
		}
		loads[i] = DayLoad{
			Date:      day,
			Slot:      NoSlot,
			Capacity:  capacity,
			Committed: committed,
			Remaining: capacity - committed,
		}
	}
	return loads
}

// AggregateSlots tallies committed demand per (day, slot). Each slot has
// an independent pool of the given capacity; slots never share.
func AggregateSlots(days []Date, demand []Demand, slots, capacity int) []DayLoad {
	loads := make([]DayLoad, 0, len(days)*slots)
	for _, day := range days {
		for slot := 0; slot < slots; slot++ {
			committed := 0
			for _, d := range demand {
				if !d.Status.Committed() {
					continue
				}
				if d.CoversSlot(day, slot) {
					committed += d.PartySize
				}
			}
			loads = append(loads, DayLoad{
				Date:      day,
				Slot:      slot,
				Capacity:  capacity,
				Committed: committed,
				Remaining: capacity - committed,
			})
		}
	}
	return loads
}
