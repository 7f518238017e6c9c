// Package repotest holds behavior tests shared by every statuspage.Repository
// implementation.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bissquit/status24/internal/domain"
	"github.com/bissquit/status24/internal/statuspage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty repository for a single test.
type Factory func(t *testing.T) statuspage.Repository

var orgSeq int64
var orgSeqMu sync.Mutex

// OrgID returns an organization id unique within the test binary.
func OrgID(prefix string) string {
	orgSeqMu.Lock()
	defer orgSeqMu.Unlock()
	orgSeq++
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano(), orgSeq)
}

// Run runs the shared repository tests against repositories built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("GetOrganization_NotFound", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetOrganization(context.Background(), OrgID("missing"))
		assert.ErrorIs(t, err, statuspage.ErrOrganizationNotFound)
	})

	t.Run("Patch_NotFound", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Patch(context.Background(), OrgID("missing"), statuspage.Patch{
			Set: map[string]interface{}{"services.x.status": "up"},
		})
		assert.ErrorIs(t, err, statuspage.ErrOrganizationNotFound)
	})

	t.Run("EnsureContainer_CreatesDocument", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		orgID := OrgID("ensure")

		require.NoError(t, repo.EnsureContainer(ctx, orgID, domain.ContainerServices))

		org, err := repo.GetOrganization(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, orgID, org.ID)
		assert.Empty(t, org.Services)
		assert.Nil(t, org.Incidents)
	})

	t.Run("EnsureContainer_PreservesChildrenAndSiblings", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		orgID := OrgID("preserve")

		require.NoError(t, repo.EnsureContainer(ctx, orgID, domain.ContainerServices))
		require.NoError(t, repo.Patch(ctx, orgID, statuspage.Patch{
			Set: map[string]interface{}{
				"services.s1.id":     "s1",
				"services.s1.name":   "API",
				"services.s1.status": "up",
			},
		}))

		require.NoError(t, repo.EnsureContainer(ctx, orgID, domain.ContainerServices))
		require.NoError(t, repo.EnsureContainer(ctx, orgID, domain.ContainerIncidents))

		org, err := repo.GetOrganization(ctx, orgID)
		require.NoError(t, err)
		require.Contains(t, org.Services, "s1")
		assert.Equal(t, "API", org.Services["s1"].Name)
		assert.NotNil(t, org.Incidents)
		assert.Empty(t, org.Incidents)
	})

	t.Run("Patch_SetTimestampsDelete", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		orgID := OrgID("patch")
		before := time.Now().Add(-time.Minute)

		require.NoError(t, repo.EnsureContainer(ctx, orgID, domain.ContainerServices))
		require.NoError(t, repo.Patch(ctx, orgID, statuspage.Patch{
			Set: map[string]interface{}{
				"services.s1.id":     "s1",
				"services.s1.name":   "API",
				"services.s1.type":   "http",
				"services.s1.status": "up",
				"services.s2.id":     "s2",
				"services.s2.name":   "DB",
			},
			Timestamps: []string{"services.s1.created_at", "services.s1.updated_at"},
		}))

		org, err := repo.GetOrganization(ctx, orgID)
		require.NoError(t, err)
		require.Len(t, org.Services, 2)
		s1 := org.Services["s1"]
		assert.Equal(t, "http", s1.Type)
		require.NotNil(t, s1.CreatedAt)
		require.NotNil(t, s1.UpdatedAt)
		assert.True(t, s1.CreatedAt.After(before))
		assert.Nil(t, org.Services["s2"].CreatedAt)

		require.NoError(t, repo.Patch(ctx, orgID, statuspage.Patch{Delete: []string{"services.s2"}}))
		require.NoError(t, repo.Patch(ctx, orgID, statuspage.Patch{Delete: []string{"services.s2"}}))

		org, err = repo.GetOrganization(ctx, orgID)
		require.NoError(t, err)
		assert.Len(t, org.Services, 1)
		assert.Contains(t, org.Services, "s1")
	})

	t.Run("Patch_NestedMessages", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		orgID := OrgID("nested")
		occurred := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

		require.NoError(t, repo.EnsureContainer(ctx, orgID, domain.ContainerIncidents))
		require.NoError(t, repo.Patch(ctx, orgID, statuspage.Patch{
			Set: map[string]interface{}{
				"incidents.i1.id":               "i1",
				"incidents.i1.title":            "Outage",
				"incidents.i1.status":           "open",
				"incidents.i1.datetime":         occurred,
				"incidents.i1.affectedServices": []string{"s1", "s2"},
			},
		}))
		require.NoError(t, repo.Patch(ctx, orgID, statuspage.Patch{
			Set: map[string]interface{}{
				"incidents.i1.status":             "resolved",
				"incidents.i1.messages.m1.id":     "m1",
				"incidents.i1.messages.m1.status": "resolved",
			},
			Timestamps: []string{
				"incidents.i1.updated_at",
				"incidents.i1.resolved_at",
				"incidents.i1.messages.m1.timestamp",
			},
		}))

		org, err := repo.GetOrganization(ctx, orgID)
		require.NoError(t, err)
		inc := org.Incidents["i1"]
		assert.Equal(t, "Outage", inc.Title)
		assert.Equal(t, "resolved", inc.Status)
		assert.True(t, occurred.Equal(inc.Datetime))
		assert.Equal(t, []string{"s1", "s2"}, inc.AffectedServices)
		require.NotNil(t, inc.ResolvedAt)
		require.Contains(t, inc.Messages, "m1")
		assert.NotNil(t, inc.Messages["m1"].Timestamp)
	})

	t.Run("Patch_ConcurrentDistinctChildren", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		orgID := OrgID("concurrent")
		require.NoError(t, repo.EnsureContainer(ctx, orgID, domain.ContainerServices))

		const writers = 10
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("s%d", i)
				errs <- repo.Patch(ctx, orgID, statuspage.Patch{
					Set: map[string]interface{}{"services." + id + ".id": id},
				})
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		org, err := repo.GetOrganization(ctx, orgID)
		require.NoError(t, err)
		assert.Len(t, org.Services, writers)
	})

	t.Run("ListOrganizationIDs", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		a, b := OrgID("list_a"), OrgID("list_b")

		require.NoError(t, repo.EnsureContainer(ctx, a, domain.ContainerServices))
		require.NoError(t, repo.EnsureContainer(ctx, b, domain.ContainerIncidents))

		ids, err := repo.ListOrganizationIDs(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, a)
		assert.Contains(t, ids, b)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, newRepo(t).Ping(context.Background()))
	})
}
