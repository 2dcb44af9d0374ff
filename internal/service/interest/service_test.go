package interest_test

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
	"github.com/verityapp/verity-server/internal/notify"
	"github.com/verityapp/verity-server/internal/ratelimit"
	"github.com/verityapp/verity-server/internal/repository"
	"github.com/verityapp/verity-server/internal/service/dates"
	"github.com/verityapp/verity-server/internal/service/interest"
)

type noopProvisioner struct{}

func (noopProvisioner) CreateRoom(_ context.Context, id uint64) (string, error) {
	return fmt.Sprintf("https://rooms.example.com/%d", id), nil
}
func (noopProvisioner) DeleteRoom(context.Context, uint64) error { return nil }

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, uint64, string, string, string, uint64) {}

var _ notify.Notifier = noopNotifier{}

// setupService wires the interest ledger against in-memory SQLite and
// miniredis. limitCap controls the authoritative limiter's window capacity.
func setupService(t *testing.T, limitCap int) (*interest.Service, *app.AppContext) {
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
	cfg.RateLimit.Cap = limitCap

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	redisCache := cache.NewFromClient(client)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(cfg, database, redisCache, log)

	bus := events.NewMemoryBus()
	datesSvc := dates.NewService(appCtx, noopProvisioner{}, noopNotifier{}, bus)
	limiter := ratelimit.New(client, limitCap, cfg.RateLimit.Window, log)
	advisory := ratelimit.NewAdvisory(ratelimit.NewMemoryStore(), limitCap, cfg.RateLimit.Window)

	return interest.NewService(appCtx, limiter, advisory, datesSvc), appCtx
}

func TestMutualInterestYieldsExactlyOneMatch(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t, 100)

	first, err := svc.ExpressInterest(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, first.IsMatch)

	second, err := svc.ExpressInterest(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, second.IsMatch)
	require.NotNil(t, second.MatchID)

	// re-expressing from either side changes nothing
	again, err := svc.ExpressInterest(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, again.IsMatch)
	assert.True(t, again.AlreadyExpressed)
	assert.Equal(t, *second.MatchID, *again.MatchID)

	var matchCount int64
	appCtx.DB.Model(&db.Match{}).Count(&matchCount)
	assert.Equal(t, int64(1), matchCount)

	var edgeCount int64
	appCtx.DB.Model(&db.InterestEvent{}).Count(&edgeCount)
	assert.Equal(t, int64(2), edgeCount)
}

func TestExpressInterestSelfTarget(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, 100)

	_, err := svc.ExpressInterest(ctx, 1, 1)
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))
}

func TestExpressInterestBlockedPairInvisible(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t, 100)

	blockRepo := repository.NewBlockRepository(appCtx.DB)
	require.NoError(t, blockRepo.Create(ctx, 2, 1))

	// the response does not reveal the block
	_, err := svc.ExpressInterest(ctx, 1, 2)
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))
}

func TestBlockAfterOneSidedLikePreventsMatch(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t, 100)

	_, err := svc.ExpressInterest(ctx, 1, 2)
	require.NoError(t, err)

	// 2 blocks 1 before liking back; the earlier edge stands but no match
	// may form
	blockRepo := repository.NewBlockRepository(appCtx.DB)
	require.NoError(t, blockRepo.Create(ctx, 2, 1))

	_, err = svc.ExpressInterest(ctx, 2, 1)
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))

	var matchCount, edgeCount int64
	appCtx.DB.Model(&db.Match{}).Count(&matchCount)
	appCtx.DB.Model(&db.InterestEvent{}).Count(&edgeCount)
	assert.Zero(t, matchCount)
	assert.Equal(t, int64(1), edgeCount, "the in-flight like is not retroactively invalidated")
}

func TestRateLimitDeniesSixthLike(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, 5)

	for to := uint64(2); to <= 6; to++ {
		_, err := svc.ExpressInterest(ctx, 1, to)
		require.NoError(t, err)
	}

	_, err := svc.ExpressInterest(ctx, 1, 7)
	assert.True(t, svcErr.Is(err, svcErr.KindRateLimited))
}

func TestUndoLastPass(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, 100)

	// entitlement is required
	_, err := svc.UndoLastPass(ctx, 1, false)
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))

	// zero passes: distinguishable no-op
	result, err := svc.UndoLastPass(ctx, 1, true)
	require.NoError(t, err)
	assert.False(t, result.Undone)

	require.NoError(t, svc.ExpressPass(ctx, 1, 2))

	result, err = svc.UndoLastPass(ctx, 1, true)
	require.NoError(t, err)
	assert.True(t, result.Undone)
	assert.Equal(t, uint64(2), result.CandidateID)

	// nothing left to undo
	result, err = svc.UndoLastPass(ctx, 1, true)
	require.NoError(t, err)
	assert.False(t, result.Undone)
}

func TestUndoNeverResurrectsInterest(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t, 100)

	require.NoError(t, svc.ExpressPass(ctx, 1, 2))
	// re-evaluated as a like: the seen record now says interest
	_, err := svc.ExpressInterest(ctx, 1, 2)
	require.NoError(t, err)

	result, err := svc.UndoLastPass(ctx, 1, true)
	require.NoError(t, err)
	assert.False(t, result.Undone)

	repo := repository.NewInterestRepository(appCtx.DB)
	ids, err := repo.SeenCandidateIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ids)
}

func TestAdmirerViewsAndCountCache(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t, 100)

	for i := 1; i <= 3; i++ {
		require.NoError(t, appCtx.DB.Create(&db.Profile{
			DisplayName: fmt.Sprintf("user%d", i), Email: fmt.Sprintf("u%d@test.com", i),
			PasswordHash: "x", Age: 25 + i, Gender: "female", InterestedIn: "male",
			Lat: 51.5, Lng: -0.12,
		}).Error)
	}

	_, err := svc.ExpressInterest(ctx, 1, 99)
	require.NoError(t, err)
	_, err = svc.ExpressInterest(ctx, 2, 99)
	require.NoError(t, err)

	count, err := svc.CountAdmirers(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// a third like invalidates the cache
	_, err = svc.ExpressInterest(ctx, 3, 99)
	require.NoError(t, err)
	count, err = svc.CountAdmirers(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	admirers, token, err := svc.ListAdmirers(ctx, 99, nil, 2)
	require.NoError(t, err)
	assert.Len(t, admirers, 2)
	require.NotNil(t, token)

	rest, _, err := svc.ListAdmirers(ctx, 99, token, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
