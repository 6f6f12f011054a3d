package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/apperrors"
	"github.com/pageza/nutrichef/backend/internal/models"
	"github.com/pageza/nutrichef/backend/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type sessionStore interface {
	Save(ctx context.Context, session *models.CookingSession) error
	Load(ctx context.Context, userID uuid.UUID) (*models.CookingSession, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	CompareAndSwap(ctx context.Context, session *models.CookingSession, expectedVersion int64) error
}

var (
	_ sessionStore = (*GormSessionStore)(nil)
	_ sessionStore = (*RedisSessionStore)(nil)
)

func newSession(userID uuid.UUID) *models.CookingSession {
	return &models.CookingSession{
		UserID:               userID,
		PersonalizedRecipeID: uuid.New(),
		RecipeName:           "Pancakes",
		Status:               models.SessionProposed,
		Proposal: datatypes.NewJSONType(models.Proposal{
			OriginalID:     uuid.New(),
			OriginalName:   "whole milk",
			OriginalAmount: 200,
			Candidates: []models.ProposalCandidate{
				{IngredientID: uuid.New(), Name: "oat milk", Amount: 200, UnitType: "g", Improvement: 2},
			},
		}),
	}
}

func exerciseSessionStore(t *testing.T, store sessionStore) {
	ctx := context.Background()
	userID := uuid.New()

	_, err := store.Load(ctx, userID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	first := newSession(userID)
	require.NoError(t, store.Save(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	loaded, err := store.Load(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, loaded.ID)
	assert.Equal(t, "oat milk", loaded.Proposal.Data().Candidates[0].Name)

	// starting again replaces the previous session
	second := newSession(userID)
	require.NoError(t, store.Save(ctx, second))
	loaded, err = store.Load(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, loaded.ID)

	now := time.Now()
	loaded.Status = models.SessionApplied
	loaded.ResolvedAt = &now
	require.NoError(t, store.CompareAndSwap(ctx, loaded, 1))
	assert.Equal(t, int64(2), loaded.Version)

	again, err := store.Load(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionApplied, again.Status)
	assert.True(t, again.Resolved())

	// a stale version loses
	again.Status = models.SessionBlocked
	err = store.CompareAndSwap(ctx, again, 1)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// an old session id loses even at the current version
	first.Status = models.SessionBlocked
	err = store.CompareAndSwap(ctx, first, 2)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	require.NoError(t, store.Clear(ctx, userID))
	_, err = store.Load(ctx, userID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGormSessionStore(t *testing.T) {
	db := testhelpers.SetupSQLiteDB(t)
	exerciseSessionStore(t, NewGormSessionStore(db))
}

func TestRedisSessionStore(t *testing.T) {
	client := testhelpers.SetupRedis(t)
	exerciseSessionStore(t, NewRedisSessionStore(client, time.Minute))
}

func TestRedisSessionStoreExpires(t *testing.T) {
	client := testhelpers.SetupRedis(t)
	store := NewRedisSessionStore(client, time.Minute)
	ctx := context.Background()

	s := newSession(uuid.New())
	require.NoError(t, store.Save(ctx, s))
	ttl, err := client.TTL(ctx, sessionKey(s.UserID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestKeyedMutexSerializes(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(ctx, "user-1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, km.locks)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	unlockA, err := km.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := km.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestKeyedMutexHonoursContext(t *testing.T) {
	km := NewKeyedMutex()
	unlock, err := km.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = km.Lock(ctx, "a")
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	unlock()
	assert.Empty(t, km.locks)
}

func TestRedisLocker(t *testing.T) {
	client := testhelpers.SetupRedis(t)
	locker := NewRedisLocker(client, 5*time.Second)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "user-1")
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(short, "user-1")
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	unlock2, err := locker.Lock(ctx, "user-1")
	require.NoError(t, err)
	unlock2()
}
