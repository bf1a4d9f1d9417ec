package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DavidTortosaaa/gestor-reservas/internal/auth"
	"github.com/DavidTortosaaa/gestor-reservas/internal/model"
	"github.com/DavidTortosaaa/gestor-reservas/internal/storage"
)

type BusinessStore interface {
	CreateBusiness(ctx context.Context, b model.Business) error
	GetBusiness(ctx context.Context, id string) (model.Business, error)
	ListBusinesses(ctx context.Context) ([]model.Business, error)
	ListBusinessesByOwner(ctx context.Context, ownerID string) ([]model.Business, error)
	ListGeolocatedBusinesses(ctx context.Context) ([]model.Business, error)
	UpdateBusiness(ctx context.Context, b model.Business) error
	DeleteBusiness(ctx context.Context, id string) error
	GetUser(ctx context.Context, id string) (model.User, error)
}

type BusinessHandler struct {
	store  BusinessStore
	logger *slog.Logger
}

func NewBusinessHandler(store BusinessStore, logger *slog.Logger) *BusinessHandler {
	return &BusinessHandler{store: store, logger: logger}
}

type businessRequest struct {
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	OpensAt   string   `json:"opens_at"`
	ClosesAt  string   `json:"closes_at"`
}

type businessResponse struct {
	ID        string   `json:"id"`
	OwnerID   string   `json:"owner_id"`
	Name      string   `json:"name"`
	Email     string   `json:"email,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	OpensAt   string   `json:"opens_at"`
	ClosesAt  string   `json:"closes_at"`
}

type nearbyBusinessResponse struct {
	businessResponse
	DistanceKm float64 `json:"distance_km"`
}

func toBusinessResponse(b model.Business) businessResponse {
	return businessResponse{
		ID:        b.ID,
		OwnerID:   b.OwnerID,
		Name:      b.Name,
		Email:     b.Email,
		Phone:     b.Phone,
		Address:   b.Address,
		Latitude:  b.Latitude,
		Longitude: b.Longitude,
		OpensAt:   b.OpensAt,
		ClosesAt:  b.ClosesAt,
	}
}

func validClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

func (h *BusinessHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req businessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.OpensAt = strings.TrimSpace(req.OpensAt)
	req.ClosesAt = strings.TrimSpace(req.ClosesAt)
	if req.Name == "" || req.OpensAt == "" || req.ClosesAt == "" {
		http.Error(w, "name, opens_at and closes_at are required", http.StatusBadRequest)
		return
	}
	if !validClock(req.OpensAt) || !validClock(req.ClosesAt) {
		http.Error(w, "opens_at and closes_at must be HH:MM", http.StatusBadRequest)
		return
	}

	b := model.Business{
		ID:        uuid.NewString(),
		OwnerID:   p.UserID,
		Name:      req.Name,
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		OpensAt:   req.OpensAt,
		ClosesAt:  req.ClosesAt,
	}
	if err := h.store.CreateBusiness(r.Context(), b); err != nil {
		h.logger.Error("business create failed", "err", err)
		http.Error(w, "failed to create business", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, toBusinessResponse(b))
}

// List returns all businesses, or only the caller's with ?mine=true.
func (h *BusinessHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		list []model.Business
		err  error
	)
	if strings.EqualFold(r.URL.Query().Get("mine"), "true") {
		p, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		list, err = h.store.ListBusinessesByOwner(r.Context(), p.UserID)
	} else {
		list, err = h.store.ListBusinesses(r.Context())
	}
	if err != nil {
		h.logger.Error("business list failed", "err", err)
		http.Error(w, "failed to list businesses", http.StatusInternalServerError)
		return
	}

	items := make([]businessResponse, 0, len(list))
	for _, b := range list {
		items = append(items, toBusinessResponse(b))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BusinessHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	b, err := h.store.GetBusiness(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "business not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load business", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessResponse(b))
}

func (h *BusinessHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	b, err := h.store.GetBusiness(r.Context(), r.PathValue("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "business not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load business", http.StatusInternalServerError)
		return
	}
	if b.OwnerID != p.UserID {
		http.Error(w, "only the owner may modify this business", http.StatusForbidden)
		return
	}

	var req businessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.OpensAt = strings.TrimSpace(req.OpensAt)
	req.ClosesAt = strings.TrimSpace(req.ClosesAt)
	if req.Name == "" || req.OpensAt == "" || req.ClosesAt == "" {
		http.Error(w, "name, opens_at and closes_at are required", http.StatusBadRequest)
		return
	}
	if !validClock(req.OpensAt) || !validClock(req.ClosesAt) {
		http.Error(w, "opens_at and closes_at must be HH:MM", http.StatusBadRequest)
		return
	}

	b.Name = req.Name
	b.Email = strings.TrimSpace(req.Email)
	b.Phone = strings.TrimSpace(req.Phone)
	b.Address = strings.TrimSpace(req.Address)
	b.Latitude = req.Latitude
	b.Longitude = req.Longitude
	b.OpensAt = req.OpensAt
	b.ClosesAt = req.ClosesAt

	if err := h.store.UpdateBusiness(r.Context(), b); err != nil {
		h.logger.Error("business update failed", "err", err, "business_id", b.ID)
		http.Error(w, "failed to update business", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessResponse(b))
}

func (h *BusinessHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	b, err := h.store.GetBusiness(r.Context(), r.PathValue("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "business not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load business", http.StatusInternalServerError)
		return
	}
	if b.OwnerID != p.UserID {
		http.Error(w, "only the owner may delete this business", http.StatusForbidden)
		return
	}
	if err := h.store.DeleteBusiness(r.Context(), b.ID); err != nil {
		h.logger.Error("business delete failed", "err", err, "business_id", b.ID)
		http.Error(w, "failed to delete business", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

const nearbyRadiusKm = 50.0

// Nearby lists businesses within 50 km of the caller's stored coordinates,
// closest first. Explicit lat/long query params override the profile.
func (h *BusinessHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	lat, lng, err := h.callerLocation(r, p.UserID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	list, err := h.store.ListGeolocatedBusinesses(r.Context())
	if err != nil {
		h.logger.Error("nearby list failed", "err", err)
		http.Error(w, "failed to list businesses", http.StatusInternalServerError)
		return
	}

	items := make([]nearbyBusinessResponse, 0, len(list))
	for _, b := range list {
		if b.Latitude == nil || b.Longitude == nil {
			continue
		}
		d := haversineKm(lat, lng, *b.Latitude, *b.Longitude)
		if d > nearbyRadiusKm {
			continue
		}
		items = append(items, nearbyBusinessResponse{
			businessResponse: toBusinessResponse(b),
			DistanceKm:       math.Round(d*100) / 100,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].DistanceKm < items[j].DistanceKm })
	writeJSON(w, http.StatusOK, items)
}

type locationError string

func (e locationError) Error() string { return string(e) }

func (h *BusinessHandler) callerLocation(r *http.Request, userID string) (float64, float64, error) {
	latStr := strings.TrimSpace(r.URL.Query().Get("latitude"))
	lngStr := strings.TrimSpace(r.URL.Query().Get("longitude"))
	if latStr != "" || lngStr != "" {
		lat, err1 := strconv.ParseFloat(latStr, 64)
		lng, err2 := strconv.ParseFloat(lngStr, 64)
		if err1 != nil || err2 != nil {
			return 0, 0, locationError("latitude and longitude must be numbers")
		}
		return lat, lng, nil
	}

	u, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		return 0, 0, locationError("failed to load user")
	}
	if u.Latitude == nil || u.Longitude == nil {
		return 0, 0, locationError("no stored location: set profile coordinates or pass latitude/longitude")
	}
	return *u.Latitude, *u.Longitude, nil
}

const earthRadiusKm = 6371.0

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
