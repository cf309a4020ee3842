/*
handlers.go - HTTP API handlers for the booking engine

PURPOSE:
  Exposes the availability and cancellation engine via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Resources:
    GET    /api/resources                      List resources
    POST   /api/resources                      Register/update a resource
    GET    /api/resources/{id}                 Get resource details
    GET    /api/resources/{id}/availability    Day-by-day availability
    POST   /api/resources/{id}/blocked-dates   Block a date
    DELETE /api/resources/{id}/blocked-dates/{date}  Unblock a date
    GET    /api/resources/{id}/blocked-dates   List blocks in a window

  Bookings:
    POST   /api/bookings                 Create a booking (pending)
    GET    /api/bookings/{id}            Get booking details
    POST   /api/bookings/{id}/confirm    Confirm payment
    POST   /api/bookings/{id}/cancel     Cancel and compute refund

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource or booking not found
  - 409: Capacity exhausted, terminal booking, write conflict
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. Partner/operator
  authorization is an upstream concern.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/booking-engine/factory"
	"github.com/warp/booking-engine/inventory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         inventory.TxStore
	Availability  *inventory.Service
	Bookings      *inventory.BookingService
	Cancellations *inventory.CancellationService
	Factory       *factory.Factory
}

// NewHandler wires the services over one store.
func NewHandler(store inventory.TxStore, cfg inventory.Config, schedule inventory.RefundSchedule, notifier inventory.Notifier) *Handler {
	return &Handler{
		Store:         store,
		Availability:  inventory.NewService(store, cfg),
		Bookings:      inventory.NewBookingService(store, cfg),
		Cancellations: inventory.NewCancellationService(store, schedule, notifier),
		Factory:       factory.New(),
	}
}

// =============================================================================
// RESOURCE HANDLERS
// =============================================================================

// ListResources returns all registered resources.
// GET /api/resources
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.Store.ListResources(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list resources", err)
		return
	}

	dtos := make([]ResourceDTO, 0, len(resources))
	for _, res := range resources {
		dtos = append(dtos, toResourceDTO(res))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateResource registers or updates a resource.
// POST /api/resources
func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var req CreateResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	res, err := h.Factory.ResourceFromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid resource", err)
		return
	}

	if err := h.Store.SaveResource(r.Context(), *res); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save resource", err)
		return
	}
	writeJSON(w, http.StatusCreated, toResourceDTO(*res))
}

// GetResource returns one resource.
// GET /api/resources/{id}
func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	id := inventory.ResourceID(chi.URLParam(r, "id"))

	res, err := h.Store.GetResource(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get resource", err)
		return
	}
	if res == nil {
		writeError(w, http.StatusNotFound, "Resource not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toResourceDTO(*res))
}

// GetAvailability answers a day-by-day availability query.
// GET /api/resources/{id}/availability?start=2025-06-01&end=2025-06-07
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	id := inventory.ResourceID(chi.URLParam(r, "id"))

	start, err := inventory.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date", err)
		return
	}
	end := start
	if s := r.URL.Query().Get("end"); s != "" {
		if end, err = inventory.ParseDate(s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end date", err)
			return
		}
	}

	result, err := h.Availability.QueryAvailability(r.Context(), id, inventory.AvailabilityQuery{Start: start, End: end})
	if err != nil {
		writeDomainError(w, "Failed to query availability", err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityDTO(result))
}

// =============================================================================
// BLOCKED DATE HANDLERS
// =============================================================================

// BlockDate marks a date unavailable.
// POST /api/resources/{id}/blocked-dates
func (h *Handler) BlockDate(w http.ResponseWriter, r *http.Request) {
	id := inventory.ResourceID(chi.URLParam(r, "id"))

	var req BlockDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	date, err := inventory.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	res, err := h.Store.GetResource(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get resource", err)
		return
	}
	if res == nil {
		writeError(w, http.StatusNotFound, "Resource not found", nil)
		return
	}

	block := inventory.BlockedDate{
		ResourceID: id,
		Date:       date,
		Reason:     req.Reason,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.Store.SetBlockedDate(r.Context(), block); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to block date", err)
		return
	}
	writeJSON(w, http.StatusCreated, BlockedDateDTO{
		ResourceID: string(id),
		Date:       date.String(),
		Reason:     req.Reason,
	})
}

// UnblockDate removes an operator block. Removing an absent block is a
// no-op success.
// DELETE /api/resources/{id}/blocked-dates/{date}
func (h *Handler) UnblockDate(w http.ResponseWriter, r *http.Request) {
	id := inventory.ResourceID(chi.URLParam(r, "id"))

	date, err := inventory.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	if err := h.Store.ClearBlockedDate(r.Context(), id, date); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to unblock date", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListBlockedDates returns blocks inside a window.
// GET /api/resources/{id}/blocked-dates?start=...&end=...
func (h *Handler) ListBlockedDates(w http.ResponseWriter, r *http.Request) {
	id := inventory.ResourceID(chi.URLParam(r, "id"))

	start, err := inventory.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date", err)
		return
	}
	end, err := inventory.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end date", err)
		return
	}

	blocks, err := h.Store.BlockedDates(r.Context(), id, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list blocked dates", err)
		return
	}

	dtos := make([]BlockedDateDTO, 0, len(blocks))
	for _, b := range blocks {
		dtos = append(dtos, BlockedDateDTO{
			ResourceID: string(b.ResourceID),
			Date:       b.Date.String(),
			Reason:     b.Reason,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// CreateBooking creates pending demand against a resource.
// POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	domainReq, err := toCreateDemandRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid booking request", err)
		return
	}

	demand, err := h.Bookings.CreateDemand(r.Context(), domainReq)
	if err != nil {
		writeDomainError(w, "Failed to create booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingDTO(*demand))
}

func toCreateDemandRequest(req CreateBookingRequest) (inventory.CreateDemandRequest, error) {
	out := inventory.CreateDemandRequest{
		ResourceID: inventory.ResourceID(req.ResourceID),
		Slot:       inventory.NoSlot,
		PartySize:  req.PartySize,
		Contact:    req.Contact,
	}

	var err error
	if out.Start, err = inventory.ParseDate(req.Start); err != nil {
		return out, err
	}
	out.End = out.Start
	if req.End != "" {
		if out.End, err = inventory.ParseDate(req.End); err != nil {
			return out, err
		}
	}
	if req.Slot != nil {
		out.Slot = *req.Slot
	}
	if req.TotalPrice != "" {
		if out.TotalPrice, err = decimal.NewFromString(req.TotalPrice); err != nil {
			return out, err
		}
	}
	return out, nil
}

// GetBooking returns one booking.
// GET /api/bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := inventory.DemandID(chi.URLParam(r, "id"))

	demand, err := h.Store.GetDemand(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get booking", err)
		return
	}
	if demand == nil {
		writeError(w, http.StatusNotFound, "Booking not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(*demand))
}

// ConfirmBooking transitions a pending booking to confirmed.
// POST /api/bookings/{id}/confirm
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	id := inventory.DemandID(chi.URLParam(r, "id"))

	if err := h.Bookings.ConfirmDemand(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to confirm booking", err)
		return
	}

	demand, err := h.Store.GetDemand(r.Context(), id)
	if err != nil || demand == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(*demand))
}

// CancelBooking cancels a booking and reports the refund decision.
// POST /api/bookings/{id}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id := inventory.DemandID(chi.URLParam(r, "id"))

	var req CancelBookingRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON", err)
			return
		}
	}

	result, err := h.Cancellations.Cancel(r.Context(), id, req.Reason, time.Now())
	if err != nil {
		writeDomainError(w, "Failed to cancel booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toCancellationDTO(result))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case inventory.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, inventory.ErrCapacityExceeded),
		errors.Is(err, inventory.ErrAlreadyFinal),
		errors.Is(err, inventory.ErrDuplicateCancellation),
		errors.Is(err, inventory.ErrConflict):
		writeError(w, http.StatusConflict, message, err)
	case inventory.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
