package statuspage_test

import (
	"context"
	"testing"

	"github.com/bissquit/status24/internal/domain"
	"github.com/bissquit/status24/internal/statuspage"
	"github.com/bissquit/status24/internal/statuspage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutator_Create(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	m := statuspage.NewMutator(repo)

	id, err := m.Create(ctx, "org1", domain.ContainerServices, statuspage.Record{
		Fields:     map[string]interface{}{"name": "API", "id": "ignored"},
		Timestamps: []string{"created_at"},
	})
	require.NoError(t, err)

	org, err := repo.GetOrganization(ctx, "org1")
	require.NoError(t, err)
	require.Contains(t, org.Services, id)
	assert.Equal(t, "API", org.Services[id].Name)
	assert.NotNil(t, org.Services[id].CreatedAt)
}

func TestMutator_InvalidContainer(t *testing.T) {
	ctx := context.Background()
	m := statuspage.NewMutator(memory.NewRepository())

	_, err := m.Create(ctx, "org1", domain.Container("users"), statuspage.Record{})
	assert.ErrorIs(t, err, statuspage.ErrInvalidContainer)

	err = m.Update(ctx, "org1", domain.Container("users"), "x", statuspage.Record{})
	assert.ErrorIs(t, err, statuspage.ErrInvalidContainer)

	err = m.Delete(ctx, "org1", domain.Container("users"), "x")
	assert.ErrorIs(t, err, statuspage.ErrInvalidContainer)
}

func TestMutator_UpdateTouchesOnlyGivenFields(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	m := statuspage.NewMutator(repo)

	id, err := m.Create(ctx, "org1", domain.ContainerIncidents, statuspage.Record{
		Fields: map[string]interface{}{"title": "Outage", "status": "open"},
	})
	require.NoError(t, err)

	require.NoError(t, m.Update(ctx, "org1", domain.ContainerIncidents, id, statuspage.Record{
		Fields: map[string]interface{}{"status": "closed"},
	}))

	org, err := repo.GetOrganization(ctx, "org1")
	require.NoError(t, err)
	assert.Equal(t, "Outage", org.Incidents[id].Title)
	assert.Equal(t, "closed", org.Incidents[id].Status)
	assert.Equal(t, id, org.Incidents[id].ID)
}

func TestMutator_NewIDUnique(t *testing.T) {
	m := statuspage.NewMutator(memory.NewRepository())

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := m.NewID()
		assert.True(t, domain.IsValidID(id))
		assert.False(t, seen[id])
		seen[id] = true
	}
}
