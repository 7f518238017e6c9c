package statuspage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bissquit/status24/internal/domain"
	"github.com/bissquit/status24/internal/statuspage"
	"github.com/bissquit/status24/internal/statuspage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T) (*statuspage.Service, *memory.Repository, *clock) {
	t.Helper()

	c := &clock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	repo := memory.NewRepository()
	repo.SetClock(c.Now)
	return statuspage.NewService(repo), repo, c
}

func addService(t *testing.T, s *statuspage.Service, orgID string) *domain.Service {
	t.Helper()

	svc, err := s.AddService(context.Background(), statuspage.CreateServiceInput{
		OrganizationID: orgID,
		Name:           "API",
		Type:           "http",
		Status:         "operational",
	})
	require.NoError(t, err)
	return svc
}

func addIncident(t *testing.T, s *statuspage.Service, orgID string) *domain.Incident {
	t.Helper()

	inc, err := s.AddIncident(context.Background(), statuspage.CreateIncidentInput{
		OrganizationID:   orgID,
		Title:            "Outage",
		Description:      "Everything is down",
		Status:           "open",
		Datetime:         time.Date(2025, 1, 1, 8, 55, 0, 0, time.UTC),
		AffectedServices: []string{"svc1"},
	})
	require.NoError(t, err)
	return inc
}

func TestAddService(t *testing.T) {
	ctx := context.Background()
	s, _, c := newTestService(t)

	svc := addService(t, s, "org1")

	assert.NotEmpty(t, svc.ID)
	assert.Nil(t, svc.CreatedAt, "timestamps are unknown until the store commits")
	assert.Nil(t, svc.UpdatedAt)

	org, err := s.GetOrganization(ctx, "org1")
	require.NoError(t, err)
	stored := org.Services[svc.ID]
	assert.Equal(t, svc.ID, stored.ID)
	assert.Equal(t, "API", stored.Name)
	assert.Equal(t, "http", stored.Type)
	assert.Equal(t, "operational", stored.Status)
	require.NotNil(t, stored.CreatedAt)
	assert.True(t, c.now.Equal(*stored.CreatedAt))
	assert.True(t, c.now.Equal(*stored.UpdatedAt))
	assert.Empty(t, org.Incidents)
}

func TestAddService_DistinctIDs(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	const n = 25
	ids := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		ids[addService(t, s, "org1").ID] = struct{}{}
	}
	assert.Len(t, ids, n)

	org, err := s.GetOrganization(ctx, "org1")
	require.NoError(t, err)
	assert.Len(t, org.Services, n)
}

func TestAddService_KeepsIncidents(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	inc := addIncident(t, s, "org1")
	svc := addService(t, s, "org1")

	org, err := s.GetOrganization(ctx, "org1")
	require.NoError(t, err)
	assert.Contains(t, org.Incidents, inc.ID)
	assert.Contains(t, org.Services, svc.ID)
}

func TestUpdateServiceStatus(t *testing.T) {
	ctx := context.Background()
	s, _, c := newTestService(t)
	svc := addService(t, s, "org1")

	before, err := s.GetOrganization(ctx, "org1")
	require.NoError(t, err)

	c.Advance(time.Hour)
	require.NoError(t, s.UpdateServiceStatus(ctx, "org1", svc.ID, "degraded"))

	after, err := s.GetOrganization(ctx, "org1")
	require.NoError(t, err)

	old, updated := before.Services[svc.ID], after.Services[svc.ID]
	assert.Equal(t, "degraded", updated.Status)
	assert.Equal(t, old.Name, updated.Name)
	assert.Equal(t, old.Type, updated.Type)
	assert.True(t, old.CreatedAt.Equal(*updated.CreatedAt))
	assert.True(t, c.now.Equal(*updated.UpdatedAt))
}

func TestUpdateServiceStatus_NotFound(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	err := s.UpdateServiceStatus(ctx, "org1", "svc1", "down")
	assert.ErrorIs(t, err, statuspage.ErrOrganizationNotFound)

	addService(t, s, "org1")
	err = s.UpdateServiceStatus(ctx, "org1", "svc_missing", "down")
	assert.ErrorIs(t, err, statuspage.ErrServiceNotFound)

	inc := addIncident(t, s, "org1")
	err = s.UpdateServiceStatus(ctx, "org1", inc.ID, "down")
	assert.ErrorIs(t, err, statuspage.ErrServiceNotFound, "incident ids are not service ids")
}

func TestDeleteService(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)
	keep := addService(t, s, "org1")
	svc := addService(t, s, "org1")

	require.NoError(t, s.DeleteService(ctx, "org1", svc.ID))
	require.NoError(t, s.DeleteService(ctx, "org1", svc.ID))

	org, err := s.GetOrganization(ctx, "org1")
	require.NoError(t, err)
	assert.NotContains(t, org.Services, svc.ID)
	assert.Contains(t, org.Services, keep.ID)
}

func TestDeleteService_MissingOrganization(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	require.NoError(t, s.DeleteService(ctx, "org_missing", "svc1"))

	_, err := s.GetOrganization(ctx, "org_missing")
	assert.ErrorIs(t, err, statuspage.ErrOrganizationNotFound, "delete must not create the document")
}

func TestAddIncident(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	inc := addIncident(t, s, "org1")
	assert.NotEmpty(t, inc.ID)
	assert.Nil(t, inc.CreatedAt)
	assert.Nil(t, inc.ResolvedAt)

	org, err := s.GetOrganization(ctx, "org1")
	require.NoError(t, err)
	stored := org.Incidents[inc.ID]
	assert.Equal(t, "Outage", stored.Title)
	assert.Equal(t, "Everything is down", stored.Description)
	assert.Equal(t, []string{"svc1"}, stored.AffectedServices, "affected services are stored unvalidated")
	assert.True(t, inc.Datetime.Equal(stored.Datetime))
	assert.NotNil(t, stored.CreatedAt)
	assert.Nil(t, stored.ResolvedAt)
	assert.Empty(t, stored.Messages)
}

func TestAddIncident_NilAffectedServices(t *testing.T) {
	s, _, _ := newTestService(t)

	inc, err := s.AddIncident(context.Background(), statuspage.CreateIncidentInput{
		OrganizationID: "org1",
		Title:          "Maintenance",
		Status:         "scheduled",
		Datetime:       time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{}, inc.AffectedServices)
}

func TestUpdateIncident_AppendsMessage(t *testing.T) {
	ctx := context.Background()
	s, _, c := newTestService(t)
	inc := addIncident(t, s, "org1")

	c.Advance(time.Minute)
	first, err := s.UpdateIncident(ctx, statuspage.UpdateIncidentInput{
		OrganizationID: "org1",
		IncidentID:     inc.ID,
		Status:         "investigating",
		Message:        "Looking into it",
	})
	require.NoError(t, err)
	assert.Equal(t, "investigating", first.Status)
	assert.NotEmpty(t, first.MessageID)

	second, err := s.UpdateIncident(ctx, statuspage.UpdateIncidentInput{
		OrganizationID: "org1",
		IncidentID:     inc.ID,
		Status:         "identified",
		Message:        "Found it",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.MessageID, second.MessageID)

	org, err := s.GetOrganization(ctx, "org1")
	require.NoError(t, err)
	stored := org.Incidents[inc.ID]
	assert.Equal(t, "identified", stored.Status)
	assert.Equal(t, "Outage", stored.Title)
	require.Len(t, stored.Messages, 2)

	msg := stored.Messages[first.MessageID]
	assert.Equal(t, first.MessageID, msg.ID)
	assert.Equal(t, "Looking into it", msg.Message)
	assert.Equal(t, "investigating", msg.Status)
	require.NotNil(t, msg.Timestamp)
	assert.True(t, c.now.Equal(*msg.Timestamp))
	assert.Nil(t, stored.ResolvedAt, "non-resolved statuses never set resolved_at")
}

func TestUpdateIncident_ResolvedAt(t *testing.T) {
	ctx := context.Background()
	s, _, c := newTestService(t)
	inc := addIncident(t, s, "org1")

	update := func(status string) *domain.Incident {
		t.Helper()
		_, err := s.UpdateIncident(ctx, statuspage.UpdateIncidentInput{
			OrganizationID: "org1",
			IncidentID:     inc.ID,
			Status:         status,
			Message:        status,
		})
		require.NoError(t, err)

		org, err := s.GetOrganization(ctx, "org1")
		require.NoError(t, err)
		stored := org.Incidents[inc.ID]
		return &stored
	}

	assert.Nil(t, update("Resolved").ResolvedAt, "only the exact lowercase value counts")

	c.Advance(time.Minute)
	resolved := update("resolved")
	require.NotNil(t, resolved.ResolvedAt)
	firstResolution := *resolved.ResolvedAt
	assert.True(t, c.now.Equal(firstResolution))

	c.Advance(time.Minute)
	reopened := update("monitoring")
	require.NotNil(t, reopened.ResolvedAt, "other statuses never clear resolved_at")
	assert.True(t, firstResolution.Equal(*reopened.ResolvedAt))

	c.Advance(time.Minute)
	again := update("resolved")
	require.NotNil(t, again.ResolvedAt)
	assert.True(t, c.now.Equal(*again.ResolvedAt), "resolving again overwrites resolved_at")
	assert.True(t, again.ResolvedAt.After(firstResolution))
}

func TestUpdateIncident_NotFound(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	_, err := s.UpdateIncident(ctx, statuspage.UpdateIncidentInput{OrganizationID: "org1", IncidentID: "inc1", Status: "x", Message: "y"})
	assert.ErrorIs(t, err, statuspage.ErrOrganizationNotFound)

	svc := addService(t, s, "org1")
	_, err = s.UpdateIncident(ctx, statuspage.UpdateIncidentInput{OrganizationID: "org1", IncidentID: svc.ID, Status: "x", Message: "y"})
	assert.ErrorIs(t, err, statuspage.ErrIncidentNotFound)

	org, err := s.GetOrganization(ctx, "org1")
	require.NoError(t, err)
	assert.Empty(t, org.Incidents, "failed update must not write")
}

func TestService_RejectsUnsafeIDs(t *testing.T) {
	ctx := context.Background()
	s, repo, _ := newTestService(t)
	svc := addService(t, s, "org1")

	for _, id := range []string{"", "a.b", "$where", "x/y", svc.ID + ".name"} {
		err := s.UpdateServiceStatus(ctx, "org1", id, "down")
		assert.ErrorIs(t, err, statuspage.ErrInvalidID, id)

		err = s.DeleteService(ctx, "org1", id)
		assert.ErrorIs(t, err, statuspage.ErrInvalidID, id)
	}

	_, err := s.AddService(ctx, statuspage.CreateServiceInput{OrganizationID: "org.1", Name: "x"})
	assert.ErrorIs(t, err, statuspage.ErrInvalidID)

	ids, err := repo.ListOrganizationIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"org1"}, ids)
}

func TestListOrganizationIDs(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	ids, err := s.ListOrganizationIDs(ctx)
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)

	addService(t, s, "org_b")
	addIncident(t, s, "org_a")

	ids, err = s.ListOrganizationIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"org_a", "org_b"}, ids)
}

func TestGetOrganization_InitializesContainers(t *testing.T) {
	s, repo, _ := newTestService(t)
	repo.Put("org1", statuspage.Document{})

	org, err := s.GetOrganization(context.Background(), "org1")
	require.NoError(t, err)
	assert.NotNil(t, org.Services)
	assert.NotNil(t, org.Incidents)
}

// failingRepository fails every write.
type failingRepository struct {
	*memory.Repository
	err error
}

func (r *failingRepository) Patch(context.Context, string, statuspage.Patch) error {
	return r.err
}

func TestDeleteService_StoreFailure(t *testing.T) {
	storeErr := errors.New("connection reset")
	s := statuspage.NewService(&failingRepository{Repository: memory.NewRepository(), err: storeErr})

	err := s.DeleteService(context.Background(), "org1", "svc1")
	assert.ErrorIs(t, err, storeErr)
}

func TestScenario_ServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	svc := addService(t, s, "org1")
	require.NoError(t, s.UpdateServiceStatus(ctx, "org1", svc.ID, "down"))
	require.NoError(t, s.DeleteService(ctx, "org1", svc.ID))

	org, err := s.GetOrganization(ctx, "org1")
	require.NoError(t, err)
	assert.NotContains(t, org.Services, svc.ID)
}

func TestScenario_IncidentResolution(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	inc := addIncident(t, s, "org1")
	_, err := s.UpdateIncident(ctx, statuspage.UpdateIncidentInput{
		OrganizationID: "org1",
		IncidentID:     inc.ID,
		Status:         "resolved",
		Message:        "fixed",
	})
	require.NoError(t, err)

	org, err := s.GetOrganization(ctx, "org1")
	require.NoError(t, err)
	stored := org.Incidents[inc.ID]
	assert.Len(t, stored.Messages, 1)
	assert.NotNil(t, stored.ResolvedAt)
}
