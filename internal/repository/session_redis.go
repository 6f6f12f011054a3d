package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/apperrors"
	"github.com/pageza/nutrichef/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "cooking_session"

// RedisSessionStore keeps cooking sessions as JSON values that expire after
// ttl of inactivity.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", sessionKeyPrefix, userID)
}

// Save replaces whatever session the user had.
func (s *RedisSessionStore) Save(ctx context.Context, session *models.CookingSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.Version == 0 {
		session.Version = 1
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode cooking session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cooking session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Load(ctx context.Context, userID uuid.UUID) (*models.CookingSession, error) {
	data, err := s.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("cooking session for %s: %w", userID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cooking session: %w", err)
	}
	return decodeSession(data)
}

func (s *RedisSessionStore) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cooking session: %w", err)
	}
	return nil
}

// CompareAndSwap writes session only if the stored value is the same session
// at expectedVersion, using WATCH so a concurrent write aborts the swap.
func (s *RedisSessionStore) CompareAndSwap(ctx context.Context, session *models.CookingSession, expectedVersion int64) error {
	key := sessionKey(session.UserID)
	conflict := fmt.Errorf("cooking session %s at version %d: %w", session.ID, expectedVersion, apperrors.ErrConflict)

	next := *session
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now()
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to encode cooking session: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return conflict
		}
		if err != nil {
			return err
		}
		current, err := decodeSession(raw)
		if err != nil {
			return err
		}
		if current.ID != session.ID || current.Version != expectedVersion {
			return conflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		session.Version = next.Version
		session.UpdatedAt = next.UpdatedAt
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return conflict
	case errors.Is(err, apperrors.ErrConflict):
		return err
	default:
		return fmt.Errorf("failed to update cooking session: %w", err)
	}
}

func decodeSession(data []byte) (*models.CookingSession, error) {
	var session models.CookingSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode cooking session: %w", err)
	}
	return &session, nil
}
