/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DATES AND MONEY:
  Dates travel as "2006-01-02" strings. Prices and refund amounts are
  decimal strings so clients never see float artifacts.

VALIDATION:
  Validation is done in handlers and services, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/resource.go: ResourceJSON type
*/
package api

import (
	"time"

	"github.com/warp/booking-engine/factory"
	"github.com/warp/booking-engine/inventory"
)

// =============================================================================
// RESOURCES
// =============================================================================

// ResourceDTO represents a bookable resource in API responses.
type ResourceDTO struct {
	ID            string   `json:"id"`
	Kind          string   `json:"kind"`
	Name          string   `json:"name"`
	CapacityTotal int      `json:"capacity_total"`
	SlotTimes     []string `json:"slot_times,omitempty"`
	Timezone      string   `json:"timezone,omitempty"`
	OwnerID       string   `json:"owner_id,omitempty"`
	Active        bool     `json:"active"`
	CreatedAt     string   `json:"created_at,omitempty"`
}

// CreateResourceRequest reuses the factory schema so the API and the
// configuration pipeline accept the same shape.
type CreateResourceRequest = factory.ResourceJSON

func toResourceDTO(r inventory.Resource) ResourceDTO {
	dto := ResourceDTO{
		ID:            string(r.ID),
		Kind:          string(r.Kind),
		Name:          r.Name,
		CapacityTotal: r.CapacityTotal,
		SlotTimes:     r.SlotTimes,
		Timezone:      r.Timezone,
		OwnerID:       r.OwnerID,
		Active:        r.Active,
	}
	if !r.CreatedAt.IsZero() {
		dto.CreatedAt = r.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// AVAILABILITY
// =============================================================================

// AvailabilityDayDTO is one day (or slot) of an availability answer.
type AvailabilityDayDTO struct {
	Date          string `json:"date"`
	Slot          *int   `json:"slot,omitempty"`
	CapacityTotal int    `json:"capacity_total"`
	Committed     int    `json:"committed"`
	Remaining     int    `json:"remaining"`
	Status        string `json:"status"`
}

// AvailabilityDTO is the full availability answer for a window.
type AvailabilityDTO struct {
	ResourceID       string               `json:"resource_id"`
	Days             []AvailabilityDayDTO `json:"days"`
	OverallAvailable bool                 `json:"overall_available"`
}

func toAvailabilityDTO(res *inventory.AvailabilityResult) AvailabilityDTO {
	dto := AvailabilityDTO{
		ResourceID:       string(res.ResourceID),
		Days:             make([]AvailabilityDayDTO, 0, len(res.PerDay)),
		OverallAvailable: res.OverallAvailable,
	}
	for _, day := range res.PerDay {
		d := AvailabilityDayDTO{
			Date:          day.Date.String(),
			CapacityTotal: day.CapacityTotal,
			Committed:     day.Committed,
			Remaining:     day.Remaining,
			Status:        string(day.Status),
		}
		if day.Slot != inventory.NoSlot {
			slot := day.Slot
			d.Slot = &slot
		}
		dto.Days = append(dto.Days, d)
	}
	return dto
}

// =============================================================================
// BOOKINGS
// =============================================================================

// CreateBookingRequest is the request to book a resource.
// For accommodations start/end are check-in/check-out dates; for tours
// only start (plus slot for individual tours) is meaningful.
type CreateBookingRequest struct {
	ResourceID string `json:"resource_id"`
	Start      string `json:"start"`
	End        string `json:"end,omitempty"`
	Slot       *int   `json:"slot,omitempty"`
	PartySize  int    `json:"party_size"`
	TotalPrice string `json:"total_price"`
	Contact    string `json:"contact,omitempty"`
}

// BookingDTO represents a booking in API responses.
type BookingDTO struct {
	ID         string `json:"id"`
	ResourceID string `json:"resource_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Slot       *int   `json:"slot,omitempty"`
	PartySize  int    `json:"party_size"`
	Status     string `json:"status"`
	TotalPrice string `json:"total_price"`
	Contact    string `json:"contact,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

func toBookingDTO(d inventory.Demand) BookingDTO {
	dto := BookingDTO{
		ID:         string(d.ID),
		ResourceID: string(d.ResourceID),
		Start:      d.Start.String(),
		End:        d.End.String(),
		PartySize:  d.PartySize,
		Status:     string(d.Status),
		TotalPrice: d.TotalPrice.String(),
		Contact:    d.Contact,
	}
	if d.Slot != inventory.NoSlot {
		slot := d.Slot
		dto.Slot = &slot
	}
	if !d.CreatedAt.IsZero() {
		dto.CreatedAt = d.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// CANCELLATIONS
// =============================================================================

// CancelBookingRequest carries the optional reason for a cancellation.
type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CancellationDTO reports the refund decision for a cancelled booking.
type CancellationDTO struct {
	BookingID      string `json:"booking_id"`
	Status         string `json:"status"`
	RefundFraction string `json:"refund_fraction"`
	RefundAmount   string `json:"refund_amount"`
	CancelledAt    string `json:"cancelled_at"`
	Reason         string `json:"reason,omitempty"`
}

func toCancellationDTO(res *inventory.CancellationResult) CancellationDTO {
	return CancellationDTO{
		BookingID:      string(res.DemandID),
		Status:         string(res.NewStatus),
		RefundFraction: res.RefundFraction.String(),
		RefundAmount:   res.RefundAmount.String(),
		CancelledAt:    res.Record.CancelledAt.Format(time.RFC3339),
		Reason:         res.Record.Reason,
	}
}

// =============================================================================
// BLOCKED DATES
// =============================================================================

// BlockDateRequest marks a date unavailable for a resource.
type BlockDateRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason,omitempty"`
}

// BlockedDateDTO represents an operator block in API responses.
type BlockedDateDTO struct {
	ResourceID string `json:"resource_id"`
	Date       string `json:"date"`
	Reason     string `json:"reason,omitempty"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
