package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/packway"
	"github.com/sagarc03/packway/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLog_InvalidTables(t *testing.T) {
	db := getTestDatabase(t)

	_, err := sqlite.NewLog(db, packway.Tables{Exchanges: "Bad-Name"})
	assert.Error(t, err)
}

func TestLog_Ping(t *testing.T) {
	log := setupTestLog(t)
	assert.NoError(t, log.Ping(context.Background()))
}

func TestLog_RecordAndList(t *testing.T) {
	ctx := context.Background()
	log := setupTestLog(t)

	base := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)
	e := newExchange("/srv/git/project.git", base)
	e.AdvertiseRefs = true
	e.Service = packway.ServiceReceivePack

	require.NoError(t, log.Record(ctx, e))

	result, err := log.List(ctx, packway.ListQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Empty(t, result.NextCursor)

	got := result.Items[0]
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.Repository, got.Repository)
	assert.Equal(t, packway.ServiceReceivePack, got.Service)
	assert.True(t, got.AdvertiseRefs)
	assert.Equal(t, packway.ExchangeOK, got.Status)
	assert.Equal(t, int64(120), got.BytesIn)
	assert.Equal(t, int64(4096), got.BytesOut)
	assert.True(t, e.StartedAt.Equal(got.StartedAt))
	assert.True(t, e.FinishedAt.Equal(got.FinishedAt))
}

func TestLog_RecordAssignsID(t *testing.T) {
	ctx := context.Background()
	log := setupTestLog(t)

	e := newExchange("/srv/git/a.git", time.Now())
	e.ID = uuid.Nil
	require.NoError(t, log.Record(ctx, e))

	result, err := log.List(ctx, packway.ListQuery{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.NotEqual(t, uuid.Nil, result.Items[0].ID)
}

func TestLog_RecordDuplicateID(t *testing.T) {
	ctx := context.Background()
	log := setupTestLog(t)

	e := newExchange("/srv/git/a.git", time.Now())
	require.NoError(t, log.Record(ctx, e))
	assert.Error(t, log.Record(ctx, e))
}

func TestLog_List(t *testing.T) {
	ctx := context.Background()
	log := setupTestLog(t)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, repo := range []string{"/srv/a.git", "/srv/b.git", "/srv/a.git", "/srv/a.git", "/srv/b.git"} {
		// Offsets cross a second boundary to catch non-chronological text ordering.
		require.NoError(t, log.Record(ctx, newExchange(repo, base.Add(time.Duration(i)*700*time.Millisecond))))
	}

	t.Run("most recent first", func(t *testing.T) {
		result, err := log.List(ctx, packway.ListQuery{Limit: 10})
		require.NoError(t, err)
		require.Len(t, result.Items, 5)
		for i := 1; i < len(result.Items); i++ {
			assert.True(t, result.Items[i-1].StartedAt.After(result.Items[i].StartedAt))
		}
	})

	t.Run("filtered by repository", func(t *testing.T) {
		result, err := log.List(ctx, packway.ListQuery{Repository: "/srv/a.git", Limit: 10})
		require.NoError(t, err)
		assert.Len(t, result.Items, 3)
		for _, item := range result.Items {
			assert.Equal(t, "/srv/a.git", item.Repository)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		var seen []uuid.UUID
		cursor := ""
		pages := 0
		for {
			result, err := log.List(ctx, packway.ListQuery{Limit: 2, Cursor: cursor})
			require.NoError(t, err)
			pages++
			for _, item := range result.Items {
				seen = append(seen, item.ID)
			}
			if result.NextCursor == "" {
				break
			}
			cursor = result.NextCursor
		}

		assert.Equal(t, 3, pages)
		assert.Len(t, seen, 5)
		unique := make(map[uuid.UUID]struct{})
		for _, id := range seen {
			unique[id] = struct{}{}
		}
		assert.Len(t, unique, 5, "no exchange should be listed twice")
	})

	t.Run("invalid cursor", func(t *testing.T) {
		_, err := log.List(ctx, packway.ListQuery{Cursor: "not a cursor"})
		assert.Error(t, err)
	})
}

func TestLog_ListSameTimestamp(t *testing.T) {
	ctx := context.Background()
	log := setupTestLog(t)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for range 3 {
		require.NoError(t, log.Record(ctx, newExchange("/srv/a.git", at)))
	}

	first, err := log.List(ctx, packway.ListQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := log.List(ctx, packway.ListQuery{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Empty(t, second.NextCursor)

	assert.NotContains(t, []uuid.UUID{first.Items[0].ID, first.Items[1].ID}, second.Items[0].ID)
}
