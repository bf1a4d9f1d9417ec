package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DavidTortosaaa/gestor-reservas/internal/availability"
	"github.com/DavidTortosaaa/gestor-reservas/internal/model"
	"github.com/DavidTortosaaa/gestor-reservas/internal/outbox"
	"github.com/DavidTortosaaa/gestor-reservas/internal/storage"
)

// Event types emitted through the outbox. Topic name equals event type.
const (
	EventReservationCreated       = "booking.reservation.created.v1"
	EventReservationStatusChanged = "booking.reservation.status_changed.v1"
)

// Owner actions on a reservation.
const (
	ActionConfirm = "confirm"
	ActionCancel  = "cancel"
)

// Store is the persistence surface the booking core needs. The concrete
// implementation is *storage.Store; tests inject a fake.
//
// CreateReservation must be atomic with respect to concurrent overlapping
// inserts for the same service: either the reservation and its event are
// both persisted, or neither is, and an overlap surfaces as a conflict
// recognizable by storage.IsConflict.
type Store interface {
	GetUser(ctx context.Context, id string) (model.User, error)
	GetBusiness(ctx context.Context, id string) (model.Business, error)
	GetService(ctx context.Context, id string) (model.Service, error)
	GetReservation(ctx context.Context, id string) (model.Reservation, error)
	ListActiveIntervals(ctx context.Context, serviceID string, from, to time.Time) ([]availability.Interval, error)
	CreateReservation(ctx context.Context, res *model.Reservation, evt outbox.Event) error
	UpdateReservationStatus(ctx context.Context, id string, status string, evt *outbox.Event) (model.Reservation, error)
	DeleteStaleReservations(ctx context.Context, clientID string, before time.Time) (int64, error)
	DeleteStaleReservationsByBusiness(ctx context.Context, businessID string, before time.Time) (int64, error)
	ListReservationsByClient(ctx context.Context, clientID string) ([]model.ReservationDetail, error)
	ListReservationsByBusiness(ctx context.Context, businessID string, status string, day time.Time) ([]model.ReservationDetail, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the booking core. A nil now falls back to time.Now so
// production callers can ignore it while tests pin the clock.
func NewService(store Store, logger *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, logger: logger, now: now}
}

// AvailableSlots returns the bookable start times for a service on the given
// calendar day, in chronological order. Weekend days have no availability.
// An empty result is not an error.
func (s *Service) AvailableSlots(ctx context.Context, serviceID string, day time.Time) ([]time.Time, error) {
	if serviceID == "" || day.IsZero() {
		return nil, fmt.Errorf("%w: service and date are required", ErrInvalidInput)
	}

	svc, err := s.store.GetService(ctx, serviceID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("%w: service not found", ErrNotFound)
		}
		return nil, fmt.Errorf("load service: %w", err)
	}
	if isWeekend(day) {
		return nil, nil
	}
	biz, err := s.store.GetBusiness(ctx, svc.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("load business: %w", err)
	}

	window, err := availability.DayWindow(day, biz.OpensAt, biz.ClosesAt)
	if err != nil {
		return nil, fmt.Errorf("business hours: %w", err)
	}

	busy, err := s.store.ListActiveIntervals(ctx, svc.ID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}

	return availability.Slots(window, svc.Duration(), busy, s.now()), nil
}

// CreateReservation validates the request and performs the create-if-free
// insert. Preconditions are checked in a fixed order; the first failure
// wins. The overlap check is not a separate read: the storage layer's
// exclusion constraint decides atomically at insert time.
func (s *Service) CreateReservation(ctx context.Context, clientID, serviceID string, startsAt time.Time, status string) (model.Reservation, error) {
	client, err := s.store.GetUser(ctx, clientID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Reservation{}, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return model.Reservation{}, fmt.Errorf("load user: %w", err)
	}

	if serviceID == "" || startsAt.IsZero() {
		return model.Reservation{}, fmt.Errorf("%w: service and date-time are required", ErrInvalidInput)
	}
	if isWeekend(startsAt) {
		return model.Reservation{}, fmt.Errorf("%w: reservations are not available on weekends", ErrInvalidInput)
	}
	if !startsAt.After(s.now()) {
		return model.Reservation{}, fmt.Errorf("%w: reservation must be in the future", ErrInvalidInput)
	}

	svc, err := s.store.GetService(ctx, serviceID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Reservation{}, fmt.Errorf("%w: service not found", ErrNotFound)
		}
		return model.Reservation{}, fmt.Errorf("load service: %w", err)
	}

	if status == "" {
		status = model.StatusPending
	}
	if !model.ValidStatus(status) {
		return model.Reservation{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	biz, err := s.store.GetBusiness(ctx, svc.BusinessID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("load business: %w", err)
	}
	owner, err := s.store.GetUser(ctx, biz.OwnerID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("load owner: %w", err)
	}

	res := model.Reservation{
		ID:        uuid.NewString(),
		ServiceID: svc.ID,
		ClientID:  client.ID,
		StartsAt:  startsAt,
		EndsAt:    startsAt.Add(svc.Duration()),
		Status:    status,
	}

	evt, err := createdEvent(res, svc, biz, owner, client)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("build event: %w", err)
	}

	if err := s.store.CreateReservation(ctx, &res, evt); err != nil {
		if storage.IsConflict(err) {
			return model.Reservation{}, ErrConflict
		}
		return model.Reservation{}, fmt.Errorf("create reservation: %w", err)
	}
	return res, nil
}

// SetStatus is the owner-side lifecycle transition: confirm or cancel.
// Owners may act on past-dated reservations (cleanup). The client is
// notified through the status-changed event.
func (s *Service) SetStatus(ctx context.Context, actorID, reservationID, action string) (model.Reservation, error) {
	var target string
	switch action {
	case ActionConfirm:
		target = model.StatusConfirmed
	case ActionCancel:
		target = model.StatusCancelled
	default:
		return model.Reservation{}, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}

	res, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Reservation{}, fmt.Errorf("%w: reservation not found", ErrNotFound)
		}
		return model.Reservation{}, fmt.Errorf("load reservation: %w", err)
	}

	svc, err := s.store.GetService(ctx, res.ServiceID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("load service: %w", err)
	}
	biz, err := s.store.GetBusiness(ctx, svc.BusinessID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("load business: %w", err)
	}
	if biz.OwnerID != actorID {
		return model.Reservation{}, fmt.Errorf("%w: only the business owner may manage this reservation", ErrForbidden)
	}

	if res.Status == model.StatusCancelled {
		return model.Reservation{}, fmt.Errorf("%w: reservation is already cancelled", ErrInvalidInput)
	}
	if target == model.StatusConfirmed && res.Status != model.StatusPending {
		return model.Reservation{}, fmt.Errorf("%w: only pending reservations can be confirmed", ErrInvalidInput)
	}

	client, err := s.store.GetUser(ctx, res.ClientID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("load client: %w", err)
	}
	evt, err := statusChangedEvent(res, target, svc, biz, client)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("build event: %w", err)
	}

	updated, err := s.store.UpdateReservationStatus(ctx, res.ID, target, &evt)
	if err != nil {
		// Zero rows means the guarded update lost a race: the reservation
		// left the allowed source state between our read and the write.
		if storage.IsNotFound(err) {
			return model.Reservation{}, fmt.Errorf("%w: reservation can no longer be %s", ErrInvalidInput, target)
		}
		return model.Reservation{}, fmt.Errorf("update reservation: %w", err)
	}
	return updated, nil
}

// CancelOwn is the client-side cancellation. Only the owning client may
// cancel, only to cancelled, and only while the reservation is still in the
// future.
func (s *Service) CancelOwn(ctx context.Context, actorID, reservationID string) (model.Reservation, error) {
	res, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Reservation{}, fmt.Errorf("%w: reservation not found", ErrNotFound)
		}
		return model.Reservation{}, fmt.Errorf("load reservation: %w", err)
	}
	if res.ClientID != actorID {
		return model.Reservation{}, fmt.Errorf("%w: reservation belongs to another client", ErrForbidden)
	}
	if res.Status == model.StatusCancelled {
		return model.Reservation{}, fmt.Errorf("%w: reservation is already cancelled", ErrInvalidInput)
	}
	if !res.StartsAt.After(s.now()) {
		return model.Reservation{}, fmt.Errorf("%w: cannot cancel a past reservation", ErrInvalidInput)
	}

	updated, err := s.store.UpdateReservationStatus(ctx, res.ID, model.StatusCancelled, nil)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Reservation{}, fmt.Errorf("%w: reservation is already cancelled", ErrInvalidInput)
		}
		return model.Reservation{}, fmt.Errorf("update reservation: %w", err)
	}
	return updated, nil
}

// ListForClient returns the client's reservations ascending by start time,
// garbage-collecting past pending/cancelled entries first. Confirmed
// reservations survive as history.
func (s *Service) ListForClient(ctx context.Context, clientID string) ([]model.ReservationDetail, error) {
	deleted, err := s.store.DeleteStaleReservations(ctx, clientID, s.now())
	if err != nil {
		return nil, fmt.Errorf("reservation gc: %w", err)
	}
	if deleted > 0 {
		s.logger.Debug("stale reservations removed", "client_id", clientID, "count", deleted)
	}
	return s.store.ListReservationsByClient(ctx, clientID)
}

// ListForBusiness is the owner dashboard view: every reservation booked
// against the business's services, optionally narrowed to a status or a
// calendar day. The same lazy GC as the client list runs first.
func (s *Service) ListForBusiness(ctx context.Context, actorID, businessID, status string, day time.Time) ([]model.ReservationDetail, error) {
	biz, err := s.store.GetBusiness(ctx, businessID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("%w: business not found", ErrNotFound)
		}
		return nil, fmt.Errorf("load business: %w", err)
	}
	if biz.OwnerID != actorID {
		return nil, fmt.Errorf("%w: only the business owner may list its reservations", ErrForbidden)
	}
	if status != "" && !model.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	deleted, err := s.store.DeleteStaleReservationsByBusiness(ctx, businessID, s.now())
	if err != nil {
		return nil, fmt.Errorf("reservation gc: %w", err)
	}
	if deleted > 0 {
		s.logger.Debug("stale reservations removed", "business_id", businessID, "count", deleted)
	}
	return s.store.ListReservationsByBusiness(ctx, businessID, status, day)
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func createdEvent(res model.Reservation, svc model.Service, biz model.Business, owner, client model.User) (outbox.Event, error) {
	payload, err := json.Marshal(map[string]any{
		"reservation_id": res.ID,
		"service_id":     svc.ID,
		"service_name":   svc.Name,
		"business_id":    biz.ID,
		"business_name":  biz.Name,
		"owner_email":    owner.Email,
		"client_name":    client.Name,
		"client_email":   client.Email,
		"starts_at":      res.StartsAt.UTC().Format(time.RFC3339),
		"ends_at":        res.EndsAt.UTC().Format(time.RFC3339),
		"status":         res.Status,
	})
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: "reservation",
		AggregateID:   res.ID,
		EventType:     EventReservationCreated,
		Payload:       payload,
	}, nil
}

func statusChangedEvent(res model.Reservation, newStatus string, svc model.Service, biz model.Business, client model.User) (outbox.Event, error) {
	payload, err := json.Marshal(map[string]any{
		"reservation_id": res.ID,
		"status":         newStatus,
		"service_name":   svc.Name,
		"business_name":  biz.Name,
		"client_name":    client.Name,
		"client_email":   client.Email,
		"starts_at":      res.StartsAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: "reservation",
		AggregateID:   res.ID,
		EventType:     EventReservationStatusChanged,
		Payload:       payload,
	}, nil
}
