package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DavidTortosaaa/gestor-reservas/internal/auth"
	"github.com/DavidTortosaaa/gestor-reservas/internal/booking"
	"github.com/DavidTortosaaa/gestor-reservas/internal/model"
)

type fakeBooking struct {
	slots      []time.Time
	slotsErr   error
	created    model.Reservation
	createErr  error
	updated    model.Reservation
	statusErr  error
	cancelErr  error
	list       []model.ReservationDetail
	listErr    error
	lastAction string

	bizList       []model.ReservationDetail
	bizListErr    error
	bizListStatus string
	bizListDay    time.Time
}

func (f *fakeBooking) AvailableSlots(context.Context, string, time.Time) ([]time.Time, error) {
	return f.slots, f.slotsErr
}

func (f *fakeBooking) CreateReservation(context.Context, string, string, time.Time, string) (model.Reservation, error) {
	return f.created, f.createErr
}

func (f *fakeBooking) SetStatus(_ context.Context, _, _, action string) (model.Reservation, error) {
	f.lastAction = action
	return f.updated, f.statusErr
}

func (f *fakeBooking) CancelOwn(context.Context, string, string) (model.Reservation, error) {
	return f.updated, f.cancelErr
}

func (f *fakeBooking) ListForClient(context.Context, string) ([]model.ReservationDetail, error) {
	return f.list, f.listErr
}

func (f *fakeBooking) ListForBusiness(_ context.Context, _, _, status string, day time.Time) ([]model.ReservationDetail, error) {
	f.bizListStatus = status
	f.bizListDay = day
	return f.bizList, f.bizListErr
}

func asClient(req *http.Request) *http.Request {
	return req.WithContext(auth.ContextWithPrincipal(req.Context(), auth.Principal{UserID: "client-1"}))
}

func TestAvailabilityEndpoint(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	fake := &fakeBooking{slots: []time.Time{day.Add(9 * time.Hour), day.Add(10 * time.Hour)}}
	h := NewReservationHandler(fake, testLogger())

	rr := httptest.NewRecorder()
	h.Availability(rr, httptest.NewRequest(http.MethodGet, "/api/v1/availability?service_id=svc-1&date=2026-03-02", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp availabilityResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Slots) != 2 || resp.Slots[0] != "09:00" || resp.Slots[1] != "10:00" {
		t.Fatalf("unexpected slots: %v", resp.Slots)
	}
}

func TestAvailabilityMissingParams(t *testing.T) {
	h := NewReservationHandler(&fakeBooking{}, testLogger())

	for _, target := range []string{
		"/api/v1/availability",
		"/api/v1/availability?service_id=svc-1",
		"/api/v1/availability?date=2026-03-02",
		"/api/v1/availability?service_id=svc-1&date=02-03-2026",
	} {
		rr := httptest.NewRecorder()
		h.Availability(rr, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rr.Code)
		}
	}
}

func TestAvailabilityUnknownService(t *testing.T) {
	h := NewReservationHandler(&fakeBooking{slotsErr: booking.ErrNotFound}, testLogger())
	rr := httptest.NewRecorder()
	h.Availability(rr, httptest.NewRequest(http.MethodGet, "/api/v1/availability?service_id=x&date=2026-03-02", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestCreateReservationEndpoint(t *testing.T) {
	starts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	fake := &fakeBooking{created: model.Reservation{
		ID: "res-1", ServiceID: "svc-1", ClientID: "client-1",
		StartsAt: starts, EndsAt: starts.Add(30 * time.Minute), Status: model.StatusPending,
	}}
	h := NewReservationHandler(fake, testLogger())

	body := `{"service_id":"svc-1","starts_at":"2026-03-02T10:00:00Z"}`
	rr := httptest.NewRecorder()
	h.Create(rr, asClient(httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(body))))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp reservationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "res-1" || resp.Status != model.StatusPending {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestCreateReservationErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{booking.ErrInvalidInput, http.StatusBadRequest},
		{booking.ErrNotFound, http.StatusNotFound},
		{booking.ErrConflict, http.StatusConflict},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := NewReservationHandler(&fakeBooking{createErr: tc.err}, testLogger())
		rr := httptest.NewRecorder()
		body := `{"service_id":"svc-1","starts_at":"2026-03-02T10:00:00Z"}`
		h.Create(rr, asClient(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))))
		if rr.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, rr.Code)
		}
	}
}

func TestCreateReservationUnauthenticated(t *testing.T) {
	h := NewReservationHandler(&fakeBooking{}, testLogger())
	rr := httptest.NewRecorder()
	h.Create(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestStatusEndpointFormAction(t *testing.T) {
	fake := &fakeBooking{updated: model.Reservation{ID: "res-1", Status: model.StatusConfirmed}}
	h := NewReservationHandler(fake, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations/res-1/status",
		strings.NewReader("action=confirm"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetPathValue("id", "res-1")
	rr := httptest.NewRecorder()
	h.Status(rr, asClient(req))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if fake.lastAction != "confirm" {
		t.Fatalf("expected confirm action, got %q", fake.lastAction)
	}
	if !strings.Contains(rr.Body.String(), model.StatusConfirmed) {
		t.Fatalf("response missing status: %s", rr.Body.String())
	}
}

func TestStatusEndpointJSONAction(t *testing.T) {
	fake := &fakeBooking{updated: model.Reservation{ID: "res-1", Status: model.StatusCancelled}}
	h := NewReservationHandler(fake, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations/res-1/status",
		strings.NewReader(`{"action":"cancel"}`))
	req.Header.Set("Content-Type", "application/json")
	req.SetPathValue("id", "res-1")
	rr := httptest.NewRecorder()
	h.Status(rr, asClient(req))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if fake.lastAction != "cancel" {
		t.Fatalf("expected cancel action, got %q", fake.lastAction)
	}
}

func TestStatusEndpointForbidden(t *testing.T) {
	h := NewReservationHandler(&fakeBooking{statusErr: booking.ErrForbidden}, testLogger())
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("action=confirm"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetPathValue("id", "res-1")
	rr := httptest.NewRecorder()
	h.Status(rr, asClient(req))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestCancelEndpointOnlyCancellation(t *testing.T) {
	h := NewReservationHandler(&fakeBooking{}, testLogger())
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/reservations/res-1",
		strings.NewReader(`{"status":"confirmed"}`))
	req.SetPathValue("id", "res-1")
	rr := httptest.NewRecorder()
	h.Cancel(rr, asClient(req))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCancelEndpoint(t *testing.T) {
	fake := &fakeBooking{updated: model.Reservation{ID: "res-1", Status: model.StatusCancelled}}
	h := NewReservationHandler(fake, testLogger())

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/reservations/res-1",
		strings.NewReader(`{"status":"cancelled"}`))
	req.SetPathValue("id", "res-1")
	rr := httptest.NewRecorder()
	h.Cancel(rr, asClient(req))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp reservationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != model.StatusCancelled {
		t.Fatalf("expected cancelled, got %q", resp.Status)
	}
}

func TestBusinessReservationsEndpoint(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	fake := &fakeBooking{bizList: []model.ReservationDetail{{
		Reservation: model.Reservation{
			ID:        "res-1",
			ServiceID: "svc-1",
			ClientID:  "client-1",
			StartsAt:  start,
			EndsAt:    start.Add(30 * time.Minute),
			Status:    model.StatusPending,
		},
		ServiceName:  "Trim",
		BusinessID:   "biz-1",
		BusinessName: "Cuts & Co",
		ClientName:   "Ana",
	}}}
	h := NewReservationHandler(fake, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/businesses/biz-1/reservations?status=pending&date=2026-03-02", nil)
	req.SetPathValue("id", "biz-1")
	rr := httptest.NewRecorder()
	h.ListByBusiness(rr, asClient(req))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if fake.bizListStatus != "pending" {
		t.Fatalf("status filter not forwarded: %q", fake.bizListStatus)
	}
	if !fake.bizListDay.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date filter not forwarded: %s", fake.bizListDay)
	}
	var items []reservationDetailResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(items) != 1 || items[0].ClientName != "Ana" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestBusinessReservationsForbidden(t *testing.T) {
	fake := &fakeBooking{bizListErr: booking.ErrForbidden}
	h := NewReservationHandler(fake, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/businesses/biz-1/reservations", nil)
	req.SetPathValue("id", "biz-1")
	rr := httptest.NewRecorder()
	h.ListByBusiness(rr, asClient(req))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestBusinessReservationsBadDate(t *testing.T) {
	h := NewReservationHandler(&fakeBooking{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/businesses/biz-1/reservations?date=02-03-2026", nil)
	req.SetPathValue("id", "biz-1")
	rr := httptest.NewRecorder()
	h.ListByBusiness(rr, asClient(req))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
