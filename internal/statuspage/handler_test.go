package statuspage_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bissquit/status24/internal/domain"
	"github.com/bissquit/status24/internal/identity"
	"github.com/bissquit/status24/internal/pkg/httputil"
	"github.com/bissquit/status24/internal/statuspage"
	"github.com/bissquit/status24/internal/statuspage/memory"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubResolver maps bearer tokens to callers.
type stubResolver map[string]*domain.Caller

func (s stubResolver) Resolve(_ context.Context, header string) (*domain.Caller, error) {
	token, err := identity.ExtractBearerToken(header)
	if err != nil {
		return nil, err
	}
	caller, ok := s[token]
	if !ok {
		return nil, identity.ErrInvalidToken
	}
	return caller, nil
}

func member(userID string, orgIDs ...string) *domain.Caller {
	caller := &domain.Caller{UserID: userID}
	for _, id := range orgIDs {
		caller.Memberships = append(caller.Memberships, domain.Membership{
			ID:           "orgmem_" + id,
			Role:         "org:member",
			Organization: domain.OrganizationInfo{ID: id, Name: id},
		})
	}
	return caller
}

var testCallers = stubResolver{
	"tok_org1":  member("user_1", "org1"),
	"tok_multi": member("user_2", "org2", "org1"),
	"tok_none":  member("user_3"),
}

func newTestRouter(t *testing.T, mode string) (http.Handler, *statuspage.Service) {
	t.Helper()

	policy, err := identity.NewMembershipPolicy(mode)
	require.NoError(t, err)

	service := statuspage.NewService(memory.NewRepository())
	handler := statuspage.NewHandler(service, policy)

	r := chi.NewRouter()
	handler.RegisterPublicRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(httputil.AuthMiddleware(testCallers, identity.ErrorMappings))
		r.Use(httputil.RequirePolicy(policy, identity.ErrorMappings))
		handler.RegisterRoutes(r)
	})
	return r, service
}

func call(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type successEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeSuccess(t *testing.T, rec *httptest.ResponseRecorder) successEnvelope {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env successEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "success", env.Status)
	return env
}

func errorDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Detail
}

func TestHandler_RoutesRequireAuthorization(t *testing.T) {
	router, _ := newTestRouter(t, identity.MatchAny)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/org/add-service"},
		{http.MethodPut, "/org/update-service"},
		{http.MethodDelete, "/org/delete-service"},
		{http.MethodPost, "/org/add-incident"},
		{http.MethodPut, "/org/update-incident"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := call(t, router, rt.method, rt.path, "", map[string]string{"organizationId": "org1"})
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Authorization header is missing", errorDetail(t, rec))
		})
	}
}

func TestHandler_NoMembership(t *testing.T) {
	router, _ := newTestRouter(t, identity.MatchAny)

	rec := call(t, router, http.MethodPost, "/org/add-service", "tok_none", statuspage.AddServiceRequest{
		OrganizationID: "org1", Name: "API", Type: "http", Status: "up",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "User is not a member of any organization", errorDetail(t, rec))
}

func TestHandler_MembershipMatchModes(t *testing.T) {
	body := statuspage.AddServiceRequest{OrganizationID: "org1", Name: "API", Type: "http", Status: "up"}

	t.Run("first mode rejects later membership", func(t *testing.T) {
		router, service := newTestRouter(t, identity.MatchFirst)

		rec := call(t, router, http.MethodPost, "/org/add-service", "tok_multi", body)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		_, err := service.GetOrganization(context.Background(), "org1")
		assert.ErrorIs(t, err, statuspage.ErrOrganizationNotFound, "nothing is written when authorization fails")
	})

	t.Run("any mode accepts later membership", func(t *testing.T) {
		router, _ := newTestRouter(t, identity.MatchAny)

		rec := call(t, router, http.MethodPost, "/org/add-service", "tok_multi", body)
		decodeSuccess(t, rec)
	})

	t.Run("foreign organization", func(t *testing.T) {
		router, _ := newTestRouter(t, identity.MatchAny)

		foreign := body
		foreign.OrganizationID = "org9"
		rec := call(t, router, http.MethodPost, "/org/add-service", "tok_org1", foreign)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHandler_AddService(t *testing.T) {
	router, _ := newTestRouter(t, identity.MatchAny)

	rec := call(t, router, http.MethodPost, "/org/add-service", "tok_org1", statuspage.AddServiceRequest{
		OrganizationID: "org1", Name: "API", Type: "http", Status: "up",
	})
	env := decodeSuccess(t, rec)
	assert.Equal(t, "Service added successfully", env.Message)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, "API", data["name"])
	assert.Contains(t, data, "created_at")
	assert.Nil(t, data["created_at"])
	assert.Nil(t, data["updated_at"])
}

func TestHandler_Validation(t *testing.T) {
	router, _ := newTestRouter(t, identity.MatchAny)

	t.Run("missing field", func(t *testing.T) {
		rec := call(t, router, http.MethodPost, "/org/add-service", "tok_org1", map[string]string{"organizationId": "org1"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsafe service id", func(t *testing.T) {
		rec := call(t, router, http.MethodPut, "/org/update-service", "tok_org1", statuspage.UpdateServiceRequest{
			ServiceID: "abc.name", OrganizationID: "org1", Status: "down",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad datetime", func(t *testing.T) {
		rec := call(t, router, http.MethodPost, "/org/add-incident", "tok_org1", map[string]interface{}{
			"organizationId": "org1", "title": "t", "description": "d", "status": "open",
			"datetime": "yesterday", "affectedServices": []string{},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/org/add-service", bytes.NewBufferString("{"))
		req.Header.Set("Authorization", "Bearer tok_org1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_UpdateAndDeleteService(t *testing.T) {
	router, service := newTestRouter(t, identity.MatchAny)

	rec := call(t, router, http.MethodPost, "/org/add-service", "tok_org1", statuspage.AddServiceRequest{
		OrganizationID: "org1", Name: "API", Type: "http", Status: "up",
	})
	var svc domain.Service
	require.NoError(t, json.Unmarshal(decodeSuccess(t, rec).Data, &svc))

	rec = call(t, router, http.MethodPut, "/org/update-service", "tok_org1", statuspage.UpdateServiceRequest{
		ServiceID: svc.ID, OrganizationID: "org1", Status: "down",
	})
	env := decodeSuccess(t, rec)
	assert.Equal(t, "Service status updated successfully", env.Message)
	assert.Empty(t, env.Data)

	org, err := service.GetOrganization(context.Background(), "org1")
	require.NoError(t, err)
	assert.Equal(t, "down", org.Services[svc.ID].Status)
	assert.Equal(t, "API", org.Services[svc.ID].Name)

	for i := 0; i < 2; i++ {
		rec = call(t, router, http.MethodDelete, "/org/delete-service", "tok_org1", statuspage.DeleteServiceRequest{
			ServiceID: svc.ID, OrganizationID: "org1",
		})
		assert.Equal(t, "Service deleted successfully", decodeSuccess(t, rec).Message)
	}

	rec = call(t, router, http.MethodPut, "/org/update-service", "tok_org1", statuspage.UpdateServiceRequest{
		ServiceID: svc.ID, OrganizationID: "org1", Status: "up",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Service not found", errorDetail(t, rec))
}

func TestHandler_UpdateService_OrganizationNotFound(t *testing.T) {
	router, _ := newTestRouter(t, identity.MatchAny)

	rec := call(t, router, http.MethodPut, "/org/update-service", "tok_org1", statuspage.UpdateServiceRequest{
		ServiceID: "svc1", OrganizationID: "org1", Status: "down",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Organization not found", errorDetail(t, rec))
}

func TestHandler_IncidentFlow(t *testing.T) {
	router, service := newTestRouter(t, identity.MatchAny)
	occurred := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)

	rec := call(t, router, http.MethodPost, "/org/add-incident", "tok_org1", statuspage.AddIncidentRequest{
		OrganizationID:   "org1",
		Title:            "Outage",
		Description:      "API unreachable",
		Status:           "open",
		Datetime:         occurred,
		AffectedServices: []string{"svc1"},
	})
	env := decodeSuccess(t, rec)
	assert.Equal(t, "Incident added successfully", env.Message)

	var inc map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &inc))
	incidentID, _ := inc["id"].(string)
	require.NotEmpty(t, incidentID)
	assert.Equal(t, []interface{}{"svc1"}, inc["affectedServices"])
	assert.Nil(t, inc["created_at"])
	assert.NotContains(t, inc, "resolved_at")

	rec = call(t, router, http.MethodPut, "/org/update-incident", "tok_org1", statuspage.UpdateIncidentRequest{
		IncidentID: incidentID, OrganizationID: "org1", Status: "resolved", Message: "fixed",
	})
	env = decodeSuccess(t, rec)
	assert.Equal(t, "Incident updated successfully", env.Message)

	var update statuspage.IncidentUpdate
	require.NoError(t, json.Unmarshal(env.Data, &update))
	assert.Equal(t, "resolved", update.Status)
	assert.NotEmpty(t, update.MessageID)

	org, err := service.GetOrganization(context.Background(), "org1")
	require.NoError(t, err)
	stored := org.Incidents[incidentID]
	assert.Len(t, stored.Messages, 1)
	assert.Equal(t, "fixed", stored.Messages[update.MessageID].Message)
	assert.NotNil(t, stored.ResolvedAt)
	assert.True(t, occurred.Equal(stored.Datetime))

	rec = call(t, router, http.MethodPut, "/org/update-incident", "tok_org1", statuspage.UpdateIncidentRequest{
		IncidentID: "inc_missing", OrganizationID: "org1", Status: "open", Message: "?",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Incident not found", errorDetail(t, rec))
}

func TestHandler_PublicRoutes(t *testing.T) {
	router, _ := newTestRouter(t, identity.MatchAny)

	rec := call(t, router, http.MethodGet, "/organizations-list", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"organizations":[]}`, rec.Body.String())

	rec = call(t, router, http.MethodGet, "/status/org1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	call(t, router, http.MethodPost, "/org/add-service", "tok_org1", statuspage.AddServiceRequest{
		OrganizationID: "org1", Name: "API", Type: "http", Status: "up",
	})

	rec = call(t, router, http.MethodGet, "/organizations-list", "", nil)
	assert.JSONEq(t, `{"organizations":["org1"]}`, rec.Body.String())

	rec = call(t, router, http.MethodGet, "/status/org1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var org domain.Organization
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &org))
	assert.Equal(t, "org1", org.ID)
	assert.Len(t, org.Services, 1)
	assert.NotNil(t, org.Incidents)

	rec = call(t, router, http.MethodGet, "/status/bad.id", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
