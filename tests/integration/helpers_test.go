//go:build integration

package integration

import (
	"net/http"
	"strings"
	"testing"

	"github.com/bissquit/status24/internal/domain"
	"github.com/bissquit/status24/internal/pkg/httputil"
	"github.com/bissquit/status24/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// randomID returns an id safe for organizations and users in the fake provider.
func randomID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// newMember registers a user in a fresh organization and returns the
// organization id and a session token for the user.
func newMember(t *testing.T) (orgID, token string) {
	t.Helper()

	userID := randomID("user")
	orgID = randomID("org")
	fakeClerk.AddMembership(userID, domain.OrganizationInfo{ID: orgID, Name: "Org " + orgID}, "org:admin")
	return orgID, tokenIssuer.MustMint(t, userID)
}

// newAdmin returns a token for a member of the admin organization.
func newAdmin(t *testing.T) string {
	t.Helper()

	userID := randomID("admin")
	fakeClerk.AddMembership(userID, domain.OrganizationInfo{ID: "org_status24", Name: "status24"}, "org:admin")
	return tokenIssuer.MustMint(t, userID)
}

type serviceResult struct {
	httputil.SuccessResponse
	Data domain.Service `json:"data"`
}

type incidentResult struct {
	httputil.SuccessResponse
	Data domain.Incident `json:"data"`
}

// createTestService adds a service and returns it.
func createTestService(t *testing.T, client *testutil.Client, orgID, name, status string) domain.Service {
	t.Helper()

	resp, err := client.POST("/org/add-service", map[string]string{
		"organizationId": orgID,
		"name":           name,
		"type":           "http",
		"status":         status,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result serviceResult
	testutil.DecodeJSON(t, resp, &result)
	require.NotEmpty(t, result.Data.ID)
	return result.Data
}

// createTestIncident adds an incident and returns it.
func createTestIncident(t *testing.T, client *testutil.Client, orgID string, affected []string) domain.Incident {
	t.Helper()

	resp, err := client.POST("/org/add-incident", map[string]interface{}{
		"organizationId":   orgID,
		"title":            "Elevated errors",
		"description":      "Requests fail intermittently",
		"status":           "investigating",
		"datetime":         "2025-04-01T09:30:00Z",
		"affectedServices": affected,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result incidentResult
	testutil.DecodeJSON(t, resp, &result)
	require.NotEmpty(t, result.Data.ID)
	return result.Data
}

// getStatusPage fetches the public status page of orgID.
func getStatusPage(t *testing.T, client *testutil.Client, orgID string) domain.Organization {
	t.Helper()

	resp, err := client.GET("/status/" + orgID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var org domain.Organization
	testutil.DecodeJSON(t, resp, &org)
	return org
}
