package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/verityapp/verity-server/internal/db"
	"github.com/verityapp/verity-server/internal/repository"
)

func TestCreateInterestIdempotent(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	repo := repository.NewInterestRepository(database)

	created, err := repo.CreateInterest(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, created)

	// duplicate-key outcome is success-no-op
	created, err = repo.CreateInterest(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	database.Model(&db.InterestEvent{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUpsertSeenOverwritesAction(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	repo := repository.NewInterestRepository(database)

	require.NoError(t, repo.UpsertSeen(ctx, 1, 2, db.SeenActionPass))
	require.NoError(t, repo.UpsertSeen(ctx, 1, 2, db.SeenActionInterest))

	var record db.SeenRecord
	require.NoError(t, database.First(&record).Error)
	assert.Equal(t, db.SeenActionInterest, record.Action)

	ids, err := repo.SeenCandidateIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ids)
}

func TestLatestPassAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInterestRepository(setupTestDB(t))

	// nothing to undo yet
	_, err := repo.LatestPass(ctx, 1)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	require.NoError(t, repo.UpsertSeen(ctx, 1, 2, db.SeenActionPass))
	time.Sleep(2 * time.Millisecond) // distinct updated_at ordering
	require.NoError(t, repo.UpsertSeen(ctx, 1, 3, db.SeenActionPass))

	latest, err := repo.LatestPass(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), latest.CandidateID)

	removed, err := repo.DeletePass(ctx, 1, latest.CandidateID)
	require.NoError(t, err)
	assert.True(t, removed)

	// only the one record was removed
	ids, err := repo.SeenCandidateIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ids)
}

func TestDeletePassNeverRemovesInterest(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInterestRepository(setupTestDB(t))

	require.NoError(t, repo.UpsertSeen(ctx, 1, 2, db.SeenActionInterest))

	removed, err := repo.DeletePass(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, removed)

	ids, err := repo.SeenCandidateIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ids)
}

func TestAdmirersExcludesPassedAndPaginates(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInterestRepository(setupTestDB(t))

	for _, admirer := range []uint64{1, 2, 3} {
		_, err := repo.CreateInterest(ctx, admirer, 99)
		require.NoError(t, err)
	}
	// recipient already passed on admirer 2
	require.NoError(t, repo.UpsertSeen(ctx, 99, 2, db.SeenActionPass))

	admirers, token, err := repo.Admirers(ctx, 99, nil, 1)
	require.NoError(t, err)
	require.Len(t, admirers, 1)
	require.NotNil(t, token)

	rest, _, err := repo.Admirers(ctx, 99, token, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.NotEqual(t, admirers[0].FromUserID, rest[0].FromUserID)

	count, err := repo.CountAdmirers(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
