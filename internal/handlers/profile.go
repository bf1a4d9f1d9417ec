package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/DavidTortosaaa/gestor-reservas/internal/auth"
	"github.com/DavidTortosaaa/gestor-reservas/internal/storage"
)

type ProfileHandler struct {
	store  UserStore
	logger *slog.Logger
}

func NewProfileHandler(store UserStore, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{store: store, logger: logger}
}

type profileResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone,omitempty"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// updateProfileRequest uses pointers so absent fields keep their stored
// values while an explicit empty string clears the optional ones.
type updateProfileRequest struct {
	Name      *string  `json:"name"`
	Phone     *string  `json:"phone"`
	Address   *string  `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Password  *string  `json:"password"`
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	u, err := h.store.GetUser(r.Context(), p.UserID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load user", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		ID: u.ID, Name: u.Name, Email: u.Email,
		Phone: u.Phone, Address: u.Address,
		Latitude: u.Latitude, Longitude: u.Longitude,
	})
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	u, err := h.store.GetUser(r.Context(), p.UserID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load user", http.StatusInternalServerError)
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			http.Error(w, "name cannot be empty", http.StatusBadRequest)
			return
		}
		u.Name = name
	}
	if req.Phone != nil {
		u.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		u.Address = strings.TrimSpace(*req.Address)
	}
	if req.Latitude != nil {
		u.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		u.Longitude = req.Longitude
	}
	if req.Password != nil {
		if *req.Password == "" {
			http.Error(w, "password cannot be empty", http.StatusBadRequest)
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			http.Error(w, "failed to hash password", http.StatusInternalServerError)
			return
		}
		u.PasswordHash = hash
	}

	if err := h.store.UpdateUser(r.Context(), u); err != nil {
		h.logger.Error("profile update failed", "err", err, "user_id", u.ID)
		http.Error(w, "failed to update profile", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		ID: u.ID, Name: u.Name, Email: u.Email,
		Phone: u.Phone, Address: u.Address,
		Latitude: u.Latitude, Longitude: u.Longitude,
	})
}
