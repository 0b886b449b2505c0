package repository

import (
	"context"
	"testing"
	"time"

	"carelink-binding/internal/docstore"
	"carelink-binding/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedActivities(t *testing.T, repo *DocstoreActivitiesRepo, deviceID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := repo.CreateActivity(context.Background(), &domain.Activity{
			DeviceID:    deviceID,
			Timestamp:   time.Now(),
			GatewayID:   "gw-1",
			BindingType: domain.BindingElder,
		})
		require.NoError(t, err)
	}
}

func TestActivitiesRepo_ListLiveRespectsLimit(t *testing.T) {
	store := docstore.NewMemory()
	repo := NewDocstoreActivitiesRepo(store)

	seedActivities(t, repo, "d1", 7)
	seedActivities(t, repo, "d2", 2)

	page, err := repo.ListLiveByDevice(context.Background(), "d1", 5)
	require.NoError(t, err)
	assert.Len(t, page, 5)

	count, err := repo.CountLiveByDevice(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestActivitiesRepo_BatchArchivePair(t *testing.T) {
	store := docstore.NewMemory()
	repo := NewDocstoreActivitiesRepo(store)
	ctx := context.Background()

	live := &domain.Activity{DeviceID: "d1", GatewayID: "gw-1"}
	require.NoError(t, repo.CreateActivity(ctx, live))

	anon := &domain.AnonymizedActivity{
		AnonymizedActivityID: "anon-1",
		DeviceID:             "d1",
		BindingType:          domain.BindingAnonymous,
		AnonymizedReason:     "UNBIND",
		ArchiveSessionID:     "session-1",
		OriginalActivityID:   live.ActivityID,
	}

	b := store.NewBatch()
	require.NoError(t, repo.BatchArchivePair(b, live, anon))
	require.NoError(t, b.Commit(ctx))

	count, err := repo.CountLiveByDevice(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	archived, err := repo.ListAnonymizedByDevice(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, live.ActivityID, archived[0].OriginalActivityID)
	assert.Equal(t, domain.BindingAnonymous, archived[0].BindingType)
}
