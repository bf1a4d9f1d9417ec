package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/DavidTortosaaa/gestor-reservas/internal/auth"
	"github.com/DavidTortosaaa/gestor-reservas/internal/model"
	"github.com/DavidTortosaaa/gestor-reservas/internal/storage"
)

type ServiceStore interface {
	GetBusiness(ctx context.Context, id string) (model.Business, error)
	CreateService(ctx context.Context, svc model.Service) error
	GetService(ctx context.Context, id string) (model.Service, error)
	ListServicesByBusiness(ctx context.Context, businessID string) ([]model.Service, error)
	UpdateService(ctx context.Context, svc model.Service) error
	DeleteService(ctx context.Context, id string) error
}

type ServiceHandler struct {
	store  ServiceStore
	logger *slog.Logger
}

func NewServiceHandler(store ServiceStore, logger *slog.Logger) *ServiceHandler {
	return &ServiceHandler{store: store, logger: logger}
}

type serviceRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	DurationMins int    `json:"duration_minutes"`
	Price        string `json:"price"`
}

type serviceResponse struct {
	ID           string `json:"id"`
	BusinessID   string `json:"business_id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	DurationMins int    `json:"duration_minutes"`
	Price        string `json:"price,omitempty"`
}

func toServiceResponse(s model.Service) serviceResponse {
	return serviceResponse{
		ID:           s.ID,
		BusinessID:   s.BusinessID,
		Name:         s.Name,
		Description:  s.Description,
		DurationMins: s.DurationMins,
		Price:        s.Price,
	}
}

// Create adds a service under a business owned by the caller.
func (h *ServiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	biz, err := h.store.GetBusiness(r.Context(), r.PathValue("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "business not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load business", http.StatusInternalServerError)
		return
	}
	if biz.OwnerID != p.UserID {
		http.Error(w, "only the owner may add services", http.StatusForbidden)
		return
	}

	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.DurationMins <= 0 {
		http.Error(w, "name and a positive duration_minutes are required", http.StatusBadRequest)
		return
	}

	svc := model.Service{
		ID:           uuid.NewString(),
		BusinessID:   biz.ID,
		Name:         req.Name,
		Description:  strings.TrimSpace(req.Description),
		DurationMins: req.DurationMins,
		Price:        strings.TrimSpace(req.Price),
	}
	if err := h.store.CreateService(r.Context(), svc); err != nil {
		h.logger.Error("service create failed", "err", err, "business_id", biz.ID)
		http.Error(w, "failed to create service", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, toServiceResponse(svc))
}

// ListByBusiness is public: clients browse a business's services.
func (h *ServiceHandler) ListByBusiness(w http.ResponseWriter, r *http.Request) {
	bizID := r.PathValue("id")
	if _, err := h.store.GetBusiness(r.Context(), bizID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "business not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load business", http.StatusInternalServerError)
		return
	}
	list, err := h.store.ListServicesByBusiness(r.Context(), bizID)
	if err != nil {
		h.logger.Error("service list failed", "err", err, "business_id", bizID)
		http.Error(w, "failed to list services", http.StatusInternalServerError)
		return
	}
	items := make([]serviceResponse, 0, len(list))
	for _, s := range list {
		items = append(items, toServiceResponse(s))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ServiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.DurationMins <= 0 {
		http.Error(w, "name and a positive duration_minutes are required", http.StatusBadRequest)
		return
	}

	svc.Name = req.Name
	svc.Description = strings.TrimSpace(req.Description)
	svc.DurationMins = req.DurationMins
	svc.Price = strings.TrimSpace(req.Price)

	if err := h.store.UpdateService(r.Context(), svc); err != nil {
		h.logger.Error("service update failed", "err", err, "service_id", svc.ID)
		http.Error(w, "failed to update service", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponse(svc))
}

func (h *ServiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteService(r.Context(), svc.ID); err != nil {
		h.logger.Error("service delete failed", "err", err, "service_id", svc.ID)
		http.Error(w, "failed to delete service", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadOwned resolves the service from the path and checks the caller owns
// its business. On failure it writes the response and returns ok=false.
func (h *ServiceHandler) loadOwned(w http.ResponseWriter, r *http.Request) (model.Service, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return model.Service{}, false
	}
	svc, err := h.store.GetService(r.Context(), r.PathValue("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "service not found", http.StatusNotFound)
			return model.Service{}, false
		}
		http.Error(w, "failed to load service", http.StatusInternalServerError)
		return model.Service{}, false
	}
	biz, err := h.store.GetBusiness(r.Context(), svc.BusinessID)
	if err != nil {
		http.Error(w, "failed to load business", http.StatusInternalServerError)
		return model.Service{}, false
	}
	if biz.OwnerID != p.UserID {
		http.Error(w, "only the owner may modify this service", http.StatusForbidden)
		return model.Service{}, false
	}
	return svc, true
}
