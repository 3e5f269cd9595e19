package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	"github.com/Lnando2k21/projetofinal/internal/policy"
	"github.com/Lnando2k21/projetofinal/internal/service"
	"github.com/Lnando2k21/projetofinal/pkg/httputil"
)

// RequestHandler handles HTTP requests for service request endpoints.
type RequestHandler struct {
	service *service.RequestService
	logger  *slog.Logger
}

// NewRequestHandler creates a new service request HTTP handler.
func NewRequestHandler(svc *service.RequestService, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateRequestRequest is the JSON request body for requesting a service.
type CreateRequestRequest struct {
	ServiceID     string     `json:"service_id" validate:"required,uuid"`
	ScheduledDate *time.Time `json:"scheduled_date"`
	Notes         string     `json:"notes" validate:"max=1000"`
}

// CreateRequest handles POST /api/v1/requests
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateRequestRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	created, err := h.service.CreateRequest(r.Context(), actor(r), service.CreateRequestInput{
		ServiceID:     req.ServiceID,
		ScheduledDate: req.ScheduledDate,
		Notes:         req.Notes,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: created})
}

// GetRequest handles GET /api/v1/requests/{id}
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	req, err := h.service.GetRequest(r.Context(), actor(r), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: req})
}

// ListMine handles GET /api/v1/requests/mine
func (h *RequestHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListMyRequests)
}

// ListReceived handles GET /api/v1/requests/received
func (h *RequestHandler) ListReceived(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListReceivedRequests)
}

func (h *RequestHandler) list(
	w http.ResponseWriter,
	r *http.Request,
	fetch func(context.Context, policy.Actor, service.ListRequestsInput) ([]domain.ServiceRequest, int, error),
) {
	p, ok := pageParams(w, r)
	if !ok {
		return
	}

	reqs, total, err := fetch(r.Context(), actor(r), service.ListRequestsInput{
		Status:  optionalQuery(r, "status"),
		Page:    p.Page,
		PerPage: p.PerPage,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(reqs, total, p.Page, p.PerPage))
}

// Transition returns the handler for PUT /api/v1/requests/{id}/{action}.
func (h *RequestHandler) Transition(action domain.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
		if !ok {
			return
		}

		req, err := h.service.Transition(r.Context(), actor(r), id.String(), action)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: req})
	}
}
