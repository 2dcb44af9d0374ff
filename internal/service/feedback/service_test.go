package feedback_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
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
	"github.com/verityapp/verity-server/internal/repository"
	"github.com/verityapp/verity-server/internal/service/feedback"
)

type recordingNotifier struct {
	mu    sync.Mutex
	kinds map[uint64][]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{kinds: make(map[uint64][]string)}
}

func (n *recordingNotifier) Notify(_ context.Context, userID uint64, kind, _, _ string, _ uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds[userID] = append(n.kinds[userID], kind)
}

func (n *recordingNotifier) kindsFor(userID uint64) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.kinds[userID]...)
}

type fixture struct {
	svc      *feedback.Service
	appCtx   *app.AppContext
	notifier *recordingNotifier
	matchID  uint64
	dateID   uint64
}

// setup creates a match between users 1 and 2 with an in-session date so
// feedback can flow.
func setup(t *testing.T) fixture {
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
	redisCache := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(cfg, database, redisCache, log)

	ctx := context.Background()
	match, _, err := repository.NewMatchRepository(database).GetOrCreate(ctx, 1, 2)
	require.NoError(t, err)
	dateRepo := repository.NewDateRepository(database)
	date, _, err := dateRepo.CreateActive(ctx, match.ID)
	require.NoError(t, err)
	_, err = dateRepo.SetRoomReference(ctx, date.ID, "https://rooms.example.com/x", time.Now().UTC())
	require.NoError(t, err)

	notifier := newRecordingNotifier()
	svc := feedback.NewService(appCtx, notifier, events.NewMemoryBus())

	return fixture{svc: svc, appCtx: appCtx, notifier: notifier, matchID: match.ID, dateID: date.ID}
}

func TestMutualYesUnlocksChat(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	first, err := f.svc.Submit(ctx, f.dateID, 1, db.VerdictYes)
	require.NoError(t, err)
	assert.Equal(t, feedback.ResultWaitingOnOther, first.Result)
	assert.False(t, first.ChatUnlocked)

	second, err := f.svc.Submit(ctx, f.dateID, 2, db.VerdictYes)
	require.NoError(t, err)
	assert.Equal(t, feedback.ResultMutualYes, second.Result)
	assert.True(t, second.ChatUnlocked)

	match, err := repository.NewMatchRepository(f.appCtx.DB).Get(ctx, f.matchID)
	require.NoError(t, err)
	assert.True(t, match.ChatUnlocked)

	assert.Contains(t, f.notifier.kindsFor(1), notify.KindChatUnlocked)
	assert.Contains(t, f.notifier.kindsFor(2), notify.KindChatUnlocked)
}

func TestNoVerdictKeepsChatLocked(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Submit(ctx, f.dateID, 1, db.VerdictYes)
	require.NoError(t, err)

	second, err := f.svc.Submit(ctx, f.dateID, 2, db.VerdictNo)
	require.NoError(t, err)
	assert.Equal(t, feedback.ResultNotMutual, second.Result)
	assert.Equal(t, feedback.FramingDeclined, second.Framing)
	assert.False(t, second.ChatUnlocked)

	match, err := repository.NewMatchRepository(f.appCtx.DB).Get(ctx, f.matchID)
	require.NoError(t, err)
	assert.False(t, match.ChatUnlocked)

	date, err := repository.NewDateRepository(f.appCtx.DB).Get(ctx, f.dateID)
	require.NoError(t, err)
	assert.True(t, date.Completed)
}

func TestMaybesFrameAsPendingNotRejection(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Submit(ctx, f.dateID, 1, db.VerdictMaybe)
	require.NoError(t, err)

	second, err := f.svc.Submit(ctx, f.dateID, 2, db.VerdictYes)
	require.NoError(t, err)
	assert.Equal(t, feedback.ResultNotMutual, second.Result)
	assert.Equal(t, feedback.FramingPending, second.Framing)
}

func TestSecondSubmissionFromSameUserRejected(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Submit(ctx, f.dateID, 1, db.VerdictYes)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.dateID, 1, db.VerdictNo)
	assert.True(t, svcErr.Is(err, svcErr.KindConflict))

	// the recorded verdict is untouched
	date, err := repository.NewDateRepository(f.appCtx.DB).Get(ctx, f.dateID)
	require.NoError(t, err)
	assert.Equal(t, db.VerdictYes, *date.User1Feedback)
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Submit(ctx, f.dateID, 1, "definitely")
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))

	_, err = f.svc.Submit(ctx, f.dateID, 99, db.VerdictYes)
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))

	_, err = f.svc.Submit(ctx, 4242, 1, db.VerdictYes)
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))
}

func TestSubmitBeforeSessionRejected(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	// a fresh date with no room yet
	dateRepo := repository.NewDateRepository(f.appCtx.DB)
	match, _, err := repository.NewMatchRepository(f.appCtx.DB).GetOrCreate(ctx, 3, 4)
	require.NoError(t, err)
	date, _, err := dateRepo.CreateActive(ctx, match.ID)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, date.ID, 3, db.VerdictYes)
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))
}

func TestFeedbackClosedAfterCompletion(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Submit(ctx, f.dateID, 1, db.VerdictNo)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.dateID, 2, db.VerdictNo)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.dateID, 1, db.VerdictYes)
	assert.True(t, svcErr.Is(err, svcErr.KindConflict))
}
