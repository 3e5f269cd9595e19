package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Lnando2k21/projetofinal/internal/service"
	"github.com/Lnando2k21/projetofinal/pkg/httputil"
)

// CatalogHandler handles HTTP requests for the service catalog.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateServiceRequest is the JSON request body for publishing a service.
type CreateServiceRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Category    string  `json:"category" validate:"required,max=100"`
	Price       float64 `json:"price" validate:"gte=0"`
	Location    string  `json:"location" validate:"max=200"`
	ImageURL    string  `json:"image_url" validate:"omitempty,url,max=500"`
}

// UpdateServiceRequest is the JSON request body for a partial service update.
type UpdateServiceRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=3,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Category    *string  `json:"category" validate:"omitempty,max=100"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Location    *string  `json:"location" validate:"omitempty,max=200"`
	ImageURL    *string  `json:"image_url" validate:"omitempty,url,max=500"`
}

// --- Handlers ---

// CreateService handles POST /api/v1/services
func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req CreateServiceRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	svc, err := h.service.CreateService(r.Context(), actor(r), service.CreateServiceInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Location:    req.Location,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: svc})
}

// ListServices handles GET /api/v1/services
func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	p, ok := pageParams(w, r)
	if !ok {
		return
	}

	services, total, err := h.service.ListServices(r.Context(), service.ListServicesInput{
		Category:   optionalQuery(r, "category"),
		Search:     optionalQuery(r, "q"),
		ProviderID: optionalQuery(r, "provider_id"),
		Page:       p.Page,
		PerPage:    p.PerPage,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(services, total, p.Page, p.PerPage))
}

// GetService handles GET /api/v1/services/{id}
func (h *CatalogHandler) GetService(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	svc, err := h.service.GetService(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: svc})
}

// UpdateService handles PUT /api/v1/services/{id}
func (h *CatalogHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateServiceRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	svc, err := h.service.UpdateService(r.Context(), actor(r), id.String(), service.UpdateServiceInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Location:    req.Location,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: svc})
}

// DeleteService handles DELETE /api/v1/services/{id}
func (h *CatalogHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteService(r.Context(), actor(r), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteNoContent(w)
}
