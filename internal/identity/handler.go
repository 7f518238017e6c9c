package identity

import (
	"encoding/json"
	"net/http"

	"github.com/bissquit/status24/internal/domain"
	"github.com/bissquit/status24/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for the identity module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new identity handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers unauthenticated identity routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/org-details", h.GetOrganizationDetails)
}

// RegisterProtectedRoutes registers routes available to any authenticated caller.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/user/org", h.GetUserOrganizations)
}

// RegisterAdminRoutes registers the admin proxies. The caller must mount them
// behind AuthMiddleware and an AdminPolicy.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/create-user", h.CreateUser)
		r.Post("/create-org", h.CreateOrganization)
		r.Post("/add-user-to-org", h.AddUserToOrganization)
		r.Get("/organizations", h.ListOrganizations)
	})
}

// CreateUserRequest represents create-user request body.
type CreateUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
}

// CreateUser handles POST /admin/create-user.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.CreateUser(r.Context(), req.Email, req.Name)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, ErrorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// CreateOrganizationRequest represents create-org request body.
type CreateOrganizationRequest struct {
	OrgName string `json:"orgName" validate:"required"`
}

// CreateOrganization handles POST /admin/create-org.
func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req CreateOrganizationRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.CreateOrganization(r.Context(), req.OrgName)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, ErrorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// AddUserToOrganizationRequest represents add-user-to-org request body.
type AddUserToOrganizationRequest struct {
	OrgID string `json:"orgId" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
}

// AddUserToOrganization handles POST /admin/add-user-to-org.
func (h *Handler) AddUserToOrganization(w http.ResponseWriter, r *http.Request) {
	var req AddUserToOrganizationRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.AddUserToOrganization(r.Context(), req.OrgID, req.Email, req.Name)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, ErrorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// OrganizationSummary is an entry of the admin organization list.
type OrganizationSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListOrganizations handles GET /admin/organizations.
func (h *Handler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.service.ListOrganizations(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, ErrorMappings)
		return
	}

	summaries := make([]OrganizationSummary, 0, len(orgs))
	for _, o := range orgs {
		summaries = append(summaries, OrganizationSummary{ID: o.ID, Name: o.Name})
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{"organizations": summaries})
}

// GetUserOrganizations handles GET /user/org.
func (h *Handler) GetUserOrganizations(w http.ResponseWriter, r *http.Request) {
	caller, ok := httputil.GetCaller(r.Context())
	if !ok {
		httputil.HandleError(r.Context(), w, ErrUnauthenticated, ErrorMappings)
		return
	}

	if len(caller.Memberships) == 0 {
		httputil.JSON(w, http.StatusOK, map[string]string{"message": "User has no organization."})
		return
	}

	httputil.JSON(w, http.StatusOK, map[string][]domain.Membership{"organization": caller.Memberships})
}

// OrganizationDetailsResponse is the public view of an organization.
type OrganizationDetailsResponse struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// GetOrganizationDetails handles GET /org-details?org_id=.
func (h *Handler) GetOrganizationDetails(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org_id")
	if orgID == "" {
		httputil.Error(w, http.StatusBadRequest, "org_id is required")
		return
	}

	org, err := h.service.GetOrganizationDetails(r.Context(), orgID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, ErrorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, OrganizationDetailsResponse{
		Name:     org.Name,
		ImageURL: org.ImageURL,
	})
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
