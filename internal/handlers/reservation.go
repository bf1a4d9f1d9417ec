package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/DavidTortosaaa/gestor-reservas/internal/auth"
	"github.com/DavidTortosaaa/gestor-reservas/internal/model"
)

// BookingService is the domain surface behind the reservation endpoints.
// The concrete implementation is *booking.Service.
type BookingService interface {
	AvailableSlots(ctx context.Context, serviceID string, day time.Time) ([]time.Time, error)
	CreateReservation(ctx context.Context, clientID, serviceID string, startsAt time.Time, status string) (model.Reservation, error)
	SetStatus(ctx context.Context, actorID, reservationID, action string) (model.Reservation, error)
	CancelOwn(ctx context.Context, actorID, reservationID string) (model.Reservation, error)
	ListForClient(ctx context.Context, clientID string) ([]model.ReservationDetail, error)
	ListForBusiness(ctx context.Context, actorID, businessID, status string, day time.Time) ([]model.ReservationDetail, error)
}

type ReservationHandler struct {
	booking BookingService
	logger  *slog.Logger
}

func NewReservationHandler(booking BookingService, logger *slog.Logger) *ReservationHandler {
	return &ReservationHandler{booking: booking, logger: logger}
}

type availabilityResponse struct {
	Slots []string `json:"slots"`
}

type createReservationRequest struct {
	ServiceID string `json:"service_id"`
	StartsAt  string `json:"starts_at"`
	Status    string `json:"status"`
}

type reservationResponse struct {
	ID        string `json:"id"`
	ServiceID string `json:"service_id"`
	ClientID  string `json:"client_id"`
	StartsAt  string `json:"starts_at"`
	EndsAt    string `json:"ends_at"`
	Status    string `json:"status"`
}

type reservationDetailResponse struct {
	reservationResponse
	ServiceName  string `json:"service_name"`
	BusinessID   string `json:"business_id"`
	BusinessName string `json:"business_name"`
	ClientName   string `json:"client_name,omitempty"`
}

func toReservationDetailResponse(d model.ReservationDetail) reservationDetailResponse {
	return reservationDetailResponse{
		reservationResponse: toReservationResponse(d.Reservation),
		ServiceName:         d.ServiceName,
		BusinessID:          d.BusinessID,
		BusinessName:        d.BusinessName,
		ClientName:          d.ClientName,
	}
}

func toReservationResponse(res model.Reservation) reservationResponse {
	return reservationResponse{
		ID:        res.ID,
		ServiceID: res.ServiceID,
		ClientID:  res.ClientID,
		StartsAt:  res.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:    res.EndsAt.UTC().Format(time.RFC3339),
		Status:    res.Status,
	}
}

// Availability answers "which start times are free for this service on this
// day" as HH:MM strings, matching what a booking form renders.
func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if serviceID == "" || dateStr == "" {
		http.Error(w, "service_id and date are required", http.StatusBadRequest)
		return
	}
	day, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	slots, err := h.booking.AvailableSlots(r.Context(), serviceID, day)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.UTC().Format("15:04"))
	}
	writeJSON(w, http.StatusOK, availabilityResponse{Slots: out})
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.StartsAt = strings.TrimSpace(req.StartsAt)
	if req.ServiceID == "" || req.StartsAt == "" {
		http.Error(w, "service_id and starts_at are required", http.StatusBadRequest)
		return
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		http.Error(w, "starts_at must be RFC 3339", http.StatusBadRequest)
		return
	}

	res, err := h.booking.CreateReservation(r.Context(), p.UserID, req.ServiceID, startsAt, strings.TrimSpace(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationResponse(res))
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.booking.ListForClient(r.Context(), p.UserID)
	if err != nil {
		h.logger.Error("reservation list failed", "err", err, "client_id", p.UserID)
		http.Error(w, "failed to list reservations", http.StatusInternalServerError)
		return
	}
	items := make([]reservationDetailResponse, 0, len(list))
	for _, d := range list {
		items = append(items, toReservationDetailResponse(d))
	}
	writeJSON(w, http.StatusOK, items)
}

// ListByBusiness is the owner dashboard listing for one business, with
// optional ?status= and ?date=YYYY-MM-DD filters.
func (h *ReservationHandler) ListByBusiness(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var day time.Time
	if dateStr := strings.TrimSpace(r.URL.Query().Get("date")); dateStr != "" {
		var err error
		day, err = time.ParseInLocation("2006-01-02", dateStr, time.UTC)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))

	list, err := h.booking.ListForBusiness(r.Context(), p.UserID, r.PathValue("id"), status, day)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := make([]reservationDetailResponse, 0, len(list))
	for _, d := range list {
		items = append(items, toReservationDetailResponse(d))
	}
	writeJSON(w, http.StatusOK, items)
}

// Status is the owner action endpoint. It accepts both a form post
// (action=confirm|cancel, what the dashboard submits) and a JSON body.
func (h *ReservationHandler) Status(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var action string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Action string `json:"action"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		action = body.Action
	} else {
		action = r.FormValue("action")
	}
	action = strings.TrimSpace(action)
	if action == "" {
		http.Error(w, "action is required", http.StatusBadRequest)
		return
	}

	res, err := h.booking.SetStatus(r.Context(), p.UserID, r.PathValue("id"), action)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": res.Status})
}

// Cancel is the client-side cancellation; the only accepted target status
// is cancelled.
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Status) != model.StatusCancelled {
		http.Error(w, "only cancellation is allowed", http.StatusBadRequest)
		return
	}

	res, err := h.booking.CancelOwn(r.Context(), p.UserID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}
