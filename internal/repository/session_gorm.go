package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/apperrors"
	"github.com/pageza/nutrichef/backend/internal/models"
	"gorm.io/gorm"
)

// GormSessionStore keeps cooking sessions in the relational database, one row
// per user.
type GormSessionStore struct {
	db *gorm.DB
}

func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{db: db}
}

// Save replaces whatever session the user had.
func (s *GormSessionStore) Save(ctx context.Context, session *models.CookingSession) error {
	if session.Version == 0 {
		session.Version = 1
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", session.UserID).Delete(&models.CookingSession{}).Error; err != nil {
			return err
		}
		return tx.Create(session).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save cooking session: %w", err)
	}
	return nil
}

func (s *GormSessionStore) Load(ctx context.Context, userID uuid.UUID) (*models.CookingSession, error) {
	var session models.CookingSession
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cooking session for %s: %w", userID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cooking session: %w", err)
	}
	return &session, nil
}

func (s *GormSessionStore) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CookingSession{}).Error; err != nil {
		return fmt.Errorf("failed to clear cooking session: %w", err)
	}
	return nil
}

// CompareAndSwap writes session only if the stored row is the same session at
// expectedVersion. On success session.Version is expectedVersion+1.
func (s *GormSessionStore) CompareAndSwap(ctx context.Context, session *models.CookingSession, expectedVersion int64) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.CookingSession{}).
		Where("id = ? AND user_id = ? AND version = ?", session.ID, session.UserID, expectedVersion).
		Updates(map[string]interface{}{
			"status":      session.Status,
			"proposal":    session.Proposal,
			"resolved_at": session.ResolvedAt,
			"version":     expectedVersion + 1,
			"updated_at":  now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update cooking session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cooking session %s at version %d: %w", session.ID, expectedVersion, apperrors.ErrConflict)
	}
	session.Version = expectedVersion + 1
	session.UpdatedAt = now
	return nil
}
