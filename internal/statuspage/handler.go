package statuspage

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bissquit/status24/internal/domain"
	"github.com/bissquit/status24/internal/identity"
	"github.com/bissquit/status24/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// OrganizationAuthorizer decides whether a caller may act on an organization.
type OrganizationAuthorizer interface {
	AuthorizeOrganization(caller *domain.Caller, orgID string) error
}

// Handler handles HTTP requests for the status page module.
type Handler struct {
	service    *Service
	authorizer OrganizationAuthorizer
	validator  *validator.Validate
	mappings   []httputil.ErrorMapping
}

// NewHandler creates a new status page handler.
func NewHandler(service *Service, authorizer OrganizationAuthorizer) *Handler {
	v := validator.New()
	_ = v.RegisterValidation("docid", func(fl validator.FieldLevel) bool {
		return domain.IsValidID(fl.Field().String())
	})

	mappings := make([]httputil.ErrorMapping, 0, len(ErrorMappings)+len(identity.ErrorMappings))
	mappings = append(mappings, ErrorMappings...)
	mappings = append(mappings, identity.ErrorMappings...)

	return &Handler{
		service:    service,
		authorizer: authorizer,
		validator:  v,
		mappings:   mappings,
	}
}

// RegisterRoutes registers organization member routes. The caller must mount
// them behind AuthMiddleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/org", func(r chi.Router) {
		r.Post("/add-service", h.AddService)
		r.Put("/update-service", h.UpdateService)
		r.Delete("/delete-service", h.DeleteService)
		r.Post("/add-incident", h.AddIncident)
		r.Put("/update-incident", h.UpdateIncident)
	})
}

// RegisterPublicRoutes registers read-only routes that need no authentication.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/organizations-list", h.ListOrganizations)
	r.Get("/status/{orgId}", h.GetStatusPage)
}

// AddServiceRequest represents add-service request body.
type AddServiceRequest struct {
	OrganizationID string `json:"organizationId" validate:"required,docid"`
	Name           string `json:"name" validate:"required"`
	Type           string `json:"type" validate:"required"`
	Status         string `json:"status" validate:"required"`
}

// AddService handles POST /org/add-service.
func (h *Handler) AddService(w http.ResponseWriter, r *http.Request) {
	var req AddServiceRequest
	if !h.decode(w, r, &req) || !h.authorize(w, r, req.OrganizationID) {
		return
	}

	service, err := h.service.AddService(r.Context(), CreateServiceInput(req))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.mappings)
		return
	}

	httputil.Success(w, http.StatusOK, "Service added successfully", service)
}

// UpdateServiceRequest represents update-service request body.
type UpdateServiceRequest struct {
	ServiceID      string `json:"serviceId" validate:"required,docid"`
	OrganizationID string `json:"organizationId" validate:"required,docid"`
	Status         string `json:"status" validate:"required"`
}

// UpdateService handles PUT /org/update-service.
func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var req UpdateServiceRequest
	if !h.decode(w, r, &req) || !h.authorize(w, r, req.OrganizationID) {
		return
	}

	if err := h.service.UpdateServiceStatus(r.Context(), req.OrganizationID, req.ServiceID, req.Status); err != nil {
		httputil.HandleError(r.Context(), w, err, h.mappings)
		return
	}

	httputil.Success(w, http.StatusOK, "Service status updated successfully", nil)
}

// DeleteServiceRequest represents delete-service request body.
type DeleteServiceRequest struct {
	ServiceID      string `json:"serviceId" validate:"required,docid"`
	OrganizationID string `json:"organizationId" validate:"required,docid"`
}

// DeleteService handles DELETE /org/delete-service.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	var req DeleteServiceRequest
	if !h.decode(w, r, &req) || !h.authorize(w, r, req.OrganizationID) {
		return
	}

	if err := h.service.DeleteService(r.Context(), req.OrganizationID, req.ServiceID); err != nil {
		httputil.HandleError(r.Context(), w, err, h.mappings)
		return
	}

	httputil.Success(w, http.StatusOK, "Service deleted successfully", nil)
}

// AddIncidentRequest represents add-incident request body.
type AddIncidentRequest struct {
	OrganizationID   string    `json:"organizationId" validate:"required,docid"`
	Title            string    `json:"title" validate:"required"`
	Description      string    `json:"description" validate:"required"`
	Status           string    `json:"status" validate:"required"`
	Datetime         time.Time `json:"datetime" validate:"required"`
	AffectedServices []string  `json:"affectedServices" validate:"required"`
}

// AddIncident handles POST /org/add-incident.
func (h *Handler) AddIncident(w http.ResponseWriter, r *http.Request) {
	var req AddIncidentRequest
	if !h.decode(w, r, &req) || !h.authorize(w, r, req.OrganizationID) {
		return
	}

	incident, err := h.service.AddIncident(r.Context(), CreateIncidentInput(req))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.mappings)
		return
	}

	httputil.Success(w, http.StatusOK, "Incident added successfully", incident)
}

// UpdateIncidentRequest represents update-incident request body.
type UpdateIncidentRequest struct {
	IncidentID     string `json:"incidentId" validate:"required,docid"`
	OrganizationID string `json:"organizationId" validate:"required,docid"`
	Status         string `json:"status" validate:"required"`
	Message        string `json:"message" validate:"required"`
}

// UpdateIncident handles PUT /org/update-incident.
func (h *Handler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	var req UpdateIncidentRequest
	if !h.decode(w, r, &req) || !h.authorize(w, r, req.OrganizationID) {
		return
	}

	update, err := h.service.UpdateIncident(r.Context(), UpdateIncidentInput{
		OrganizationID: req.OrganizationID,
		IncidentID:     req.IncidentID,
		Status:         req.Status,
		Message:        req.Message,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.mappings)
		return
	}

	httputil.Success(w, http.StatusOK, "Incident updated successfully", update)
}

// ListOrganizations handles GET /organizations-list.
func (h *Handler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.ListOrganizationIDs(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.mappings)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string][]string{"organizations": ids})
}

// GetStatusPage handles GET /status/{orgId}.
func (h *Handler) GetStatusPage(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.GetOrganization(r.Context(), chi.URLParam(r, "orgId"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.mappings)
		return
	}

	httputil.JSON(w, http.StatusOK, org)
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, orgID string) bool {
	caller, ok := httputil.GetCaller(r.Context())
	if !ok {
		httputil.HandleError(r.Context(), w, identity.ErrUnauthenticated, h.mappings)
		return false
	}

	if err := h.authorizer.AuthorizeOrganization(caller, orgID); err != nil {
		httputil.HandleError(r.Context(), w, err, h.mappings)
		return false
	}
	return true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httputil.ValidationError(w, err)
		return false
	}
	return true
}
