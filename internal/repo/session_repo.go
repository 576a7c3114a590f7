// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the Session
// model that backs cookie-based authentication.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zhengchen1025/cook-cook/internal/domain"
)

// CreateSession inserts a session for userID with a freshly generated token
// and the given lifetime.
func CreateSession(ctx context.Context, db *gorm.DB, userID string, ttl time.Duration) (*domain.Session, error) {
	now := time.Now().UTC()
	s := &domain.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetActiveSession returns the non-expired session for token, or ErrNotFound.
// An empty token short-circuits without touching the database.
func GetActiveSession(ctx context.Context, db *gorm.DB, token string, now time.Time) (*domain.Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrNotFound
	}
	var s domain.Session
	err := db.WithContext(ctx).
		Where("token = ? AND expires_at > ?", token, now).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSession removes the session row for token. Deleting an unknown or
// already-removed token is not an error, so logout stays idempotent.
func DeleteSession(ctx context.Context, db *gorm.DB, token string) error {
	return db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&domain.Session{}).Error
}

// DeleteUserSessions removes every session belonging to userID.
func DeleteUserSessions(ctx context.Context, db *gorm.DB, userID string) error {
	return db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.Session{}).Error
}

// PurgeExpiredSessions deletes sessions whose expiry is at or before now and
// reports how many rows went away.
func PurgeExpiredSessions(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.Session{})
	return res.RowsAffected, res.Error
}
