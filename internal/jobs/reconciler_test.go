package jobs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/verityapp/verity-server/internal/app"
	"github.com/verityapp/verity-server/internal/cache"
	"github.com/verityapp/verity-server/internal/config"
	"github.com/verityapp/verity-server/internal/db"
	"github.com/verityapp/verity-server/internal/repository"
)

func setupReconciler(t *testing.T) (*Reconciler, *app.AppContext, *time.Time) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(database))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	appCtx := app.New(cfg, database,
		cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})),
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := NewReconciler(appCtx)
	now := time.Now().UTC()
	r.now = func() time.Time { return now }
	return r, appCtx, &now
}

func TestRunOnceCompletesAbandonedSessions(t *testing.T) {
	ctx := context.Background()
	r, appCtx, now := setupReconciler(t)

	dateRepo := repository.NewDateRepository(appCtx.DB)
	date, _, err := dateRepo.CreateActive(ctx, 1)
	require.NoError(t, err)
	_, err = dateRepo.SetRoomReference(ctx, date.ID, "https://rooms.example.com/x", now.Add(-3*time.Hour))
	require.NoError(t, err)

	r.RunOnce(ctx)

	got, err := dateRepo.Get(ctx, date.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed, "silent session past grace gets closed")
	assert.Nil(t, got.ActiveKey)
}

func TestRunOnceLeavesLiveSessionsAlone(t *testing.T) {
	ctx := context.Background()
	r, appCtx, now := setupReconciler(t)

	dateRepo := repository.NewDateRepository(appCtx.DB)
	date, _, err := dateRepo.CreateActive(ctx, 1)
	require.NoError(t, err)
	_, err = dateRepo.SetRoomReference(ctx, date.ID, "https://rooms.example.com/x", now.Add(-5*time.Minute))
	require.NoError(t, err)

	r.RunOnce(ctx)

	got, err := dateRepo.Get(ctx, date.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)
}

func TestRunOnceClearsExpiredBoostsAndRebuildsCounts(t *testing.T) {
	ctx := context.Background()
	r, appCtx, now := setupReconciler(t)

	expired := now.Add(-time.Hour)
	live := now.Add(time.Hour)
	profiles := []db.Profile{
		{DisplayName: "a", Email: "a@test.com", PasswordHash: "x", Age: 30, Gender: "male", InterestedIn: "female", BoostExpiresAt: &expired},
		{DisplayName: "b", Email: "b@test.com", PasswordHash: "x", Age: 30, Gender: "female", InterestedIn: "male", BoostExpiresAt: &live},
	}
	require.NoError(t, appCtx.DB.Create(&profiles).Error)

	_, _, err := repository.NewMatchRepository(appCtx.DB).GetOrCreate(ctx, profiles[0].ID, profiles[1].ID)
	require.NoError(t, err)

	r.RunOnce(ctx)

	var a, b db.Profile
	require.NoError(t, appCtx.DB.First(&a, profiles[0].ID).Error)
	require.NoError(t, appCtx.DB.First(&b, profiles[1].ID).Error)

	assert.Nil(t, a.BoostExpiresAt)
	require.NotNil(t, b.BoostExpiresAt)

	assert.Equal(t, 1, a.CachedMatchCount)
	assert.Equal(t, 1, b.CachedMatchCount)
}
