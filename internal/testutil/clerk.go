package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bissquit/status24/internal/domain"
	"github.com/go-chi/chi/v5"
)

// FakeClerkAPIKey is the secret the fake provider expects as bearer credential.
const FakeClerkAPIKey = "sk_test_fake"

// ClerkRequest is a request recorded by FakeClerk.
type ClerkRequest struct {
	Method string
	Path   string
	Body   map[string]interface{}
}

// FakeClerk is an in-memory stand-in for the Clerk Backend API.
type FakeClerk struct {
	Server *httptest.Server

	mu            sync.Mutex
	memberships   map[string][]domain.Membership
	organizations map[string]domain.OrganizationInfo
	orgOrder      []string
	failures      map[string]int
	requests      []ClerkRequest
}

// NewFakeClerk starts a fake provider. Call Close when done.
func NewFakeClerk() *FakeClerk {
	f := &FakeClerk{
		memberships:   make(map[string][]domain.Membership),
		organizations: make(map[string]domain.OrganizationInfo),
		failures:      make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(f.authenticate)
	r.Get("/users/{userID}/organization_memberships", f.listMemberships)
	r.Post("/users", f.created("create_user"))
	r.Post("/organizations", f.created("create_organization"))
	r.Post("/organization_memberships", f.created("create_membership"))
	r.Get("/organizations", f.listOrganizations)
	r.Get("/organizations/{orgID}", f.getOrganization)

	f.Server = httptest.NewServer(r)
	return f
}

// NewTestFakeClerk is NewFakeClerk bound to the test lifecycle.
func NewTestFakeClerk(t *testing.T) *FakeClerk {
	t.Helper()

	f := NewFakeClerk()
	t.Cleanup(f.Close)
	return f
}

// URL returns the base URL to configure as the provider API URL.
func (f *FakeClerk) URL() string {
	return f.Server.URL
}

// Close stops the server.
func (f *FakeClerk) Close() {
	f.Server.Close()
}

// AddMembership appends a membership for userID in organization org.
// The organization is registered as well.
func (f *FakeClerk) AddMembership(userID string, org domain.OrganizationInfo, role string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.memberships[userID] = append(f.memberships[userID], domain.Membership{
		ID:           "orgmem_" + userID + "_" + org.ID,
		Role:         role,
		Organization: org,
	})
	f.addOrganizationLocked(org)
}

// AddOrganization registers an organization.
func (f *FakeClerk) AddOrganization(org domain.OrganizationInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addOrganizationLocked(org)
}

func (f *FakeClerk) addOrganizationLocked(org domain.OrganizationInfo) {
	if _, ok := f.organizations[org.ID]; !ok {
		f.orgOrder = append(f.orgOrder, org.ID)
	}
	f.organizations[org.ID] = org
}

// FailOperation makes every call of op ("list_memberships", "create_user",
// "create_organization", "create_membership", "list_organizations",
// "get_organization") answer with status.
func (f *FakeClerk) FailOperation(op string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = status
}

// Requests returns a copy of the recorded requests.
func (f *FakeClerk) Requests() []ClerkRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]ClerkRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// LastRequest returns the most recent request, or false if there was none.
func (f *FakeClerk) LastRequest() (ClerkRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.requests) == 0 {
		return ClerkRequest{}, false
	}
	return f.requests[len(f.requests)-1], true
}

func (f *FakeClerk) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+FakeClerkAPIKey {
			writeClerkError(w, http.StatusUnauthorized, "authentication_invalid")
			return
		}

		var body map[string]interface{}
		if r.Body != nil && r.Method != http.MethodGet {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}

		f.mu.Lock()
		f.requests = append(f.requests, ClerkRequest{Method: r.Method, Path: r.URL.Path, Body: body})
		f.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (f *FakeClerk) failure(op string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.failures[op]
	return status, ok
}

func (f *FakeClerk) listMemberships(w http.ResponseWriter, r *http.Request) {
	if status, ok := f.failure("list_memberships"); ok {
		writeClerkError(w, status, "resource_not_found")
		return
	}

	f.mu.Lock()
	data := append([]domain.Membership{}, f.memberships[chi.URLParam(r, "userID")]...)
	f.mu.Unlock()

	writeClerkJSON(w, http.StatusOK, map[string]interface{}{"data": data, "total_count": len(data)})
}

func (f *FakeClerk) created(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if status, ok := f.failure(op); ok {
			writeClerkError(w, status, "form_param_invalid")
			return
		}

		last, _ := f.LastRequest()
		resp := map[string]interface{}{"id": op + "_1", "object": op}
		for k, v := range last.Body {
			resp[k] = v
		}
		writeClerkJSON(w, http.StatusOK, resp)
	}
}

func (f *FakeClerk) listOrganizations(w http.ResponseWriter, _ *http.Request) {
	if status, ok := f.failure("list_organizations"); ok {
		writeClerkError(w, status, "internal_error")
		return
	}

	f.mu.Lock()
	data := make([]domain.OrganizationInfo, 0, len(f.orgOrder))
	for _, id := range f.orgOrder {
		data = append(data, f.organizations[id])
	}
	f.mu.Unlock()

	writeClerkJSON(w, http.StatusOK, map[string]interface{}{"data": data, "total_count": len(data)})
}

func (f *FakeClerk) getOrganization(w http.ResponseWriter, r *http.Request) {
	if status, ok := f.failure("get_organization"); ok {
		writeClerkError(w, status, "internal_error")
		return
	}

	f.mu.Lock()
	org, ok := f.organizations[chi.URLParam(r, "orgID")]
	f.mu.Unlock()

	if !ok {
		writeClerkError(w, http.StatusNotFound, "resource_not_found")
		return
	}
	writeClerkJSON(w, http.StatusOK, org)
}

func writeClerkJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeClerkError(w http.ResponseWriter, status int, code string) {
	writeClerkJSON(w, status, map[string]interface{}{
		"errors": []map[string]string{{"code": code, "message": code}},
	})
}
