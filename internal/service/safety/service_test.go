package safety_test

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
	svcErr "github.com/verityapp/verity-server/internal/errors"
	"github.com/verityapp/verity-server/internal/events"
	"github.com/verityapp/verity-server/internal/repository"
	"github.com/verityapp/verity-server/internal/service/safety"
)

func setup(t *testing.T) (*safety.Service, *app.AppContext) {
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

	return safety.NewService(appCtx, events.NewMemoryBus()), appCtx
}

func TestBlockUnblockBothDirections(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	require.NoError(t, svc.Block(ctx, 1, 2))
	// re-block is a no-op
	require.NoError(t, svc.Block(ctx, 1, 2))

	blocked, err := svc.IsBlocked(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, blocked, "block is visible in both directions")

	removed, err := svc.Unblock(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.Unblock(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, removed)

	blocked, err = svc.IsBlocked(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestBlockValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	err := svc.Block(ctx, 1, 1)
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))
}

func TestReportFilesReference(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setup(t)

	ref, err := svc.Report(ctx, 1, 2, "inappropriate video")
	require.NoError(t, err)
	assert.NotEmpty(t, ref)

	var report db.Report
	require.NoError(t, appCtx.DB.Where("reference = ?", ref).First(&report).Error)
	assert.Equal(t, uint64(1), report.ReporterID)

	_, err = svc.Report(ctx, 1, 2, "")
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))
}

func TestUnmatchCascades(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setup(t)

	matchRepo := repository.NewMatchRepository(appCtx.DB)
	match, _, err := matchRepo.GetOrCreate(ctx, 1, 2)
	require.NoError(t, err)

	dateRepo := repository.NewDateRepository(appCtx.DB)
	_, _, err = dateRepo.CreateActive(ctx, match.ID)
	require.NoError(t, err)
	_, err = repository.NewMessageRepository(appCtx.DB).Create(ctx, match.ID, 1, "bye")
	require.NoError(t, err)

	// only members can unmatch
	err = svc.Unmatch(ctx, match.ID, 42)
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))

	require.NoError(t, svc.Unmatch(ctx, match.ID, 1))

	var matches, vdates, msgs int64
	appCtx.DB.Model(&db.Match{}).Count(&matches)
	appCtx.DB.Model(&db.VerityDate{}).Count(&vdates)
	appCtx.DB.Model(&db.Message{}).Count(&msgs)
	assert.Zero(t, matches)
	assert.Zero(t, vdates)
	assert.Zero(t, msgs)

	// repeat unmatch is the idempotent no-op
	err = svc.Unmatch(ctx, match.ID, 1)
	assert.True(t, svcErr.Is(err, svcErr.KindConflict))
}
