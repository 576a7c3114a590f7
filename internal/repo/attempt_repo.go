// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Attempt model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zhengchen1025/cook-cook/internal/domain"
)

// CreateAttempt inserts a new attempt row. A zero ID gets a fresh UUID and a
// zero CreatedAt the current UTC time. Images are persisted separately.
func CreateAttempt(ctx context.Context, db *gorm.DB, a *domain.Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Omit("Images", "Recipe").Create(a).Error
}

// GetAttempt fetches an attempt by ID, or ErrNotFound.
func GetAttempt(ctx context.Context, db *gorm.DB, id string) (*domain.Attempt, error) {
	var a domain.Attempt
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetRecipeAttempt fetches an attempt by ID scoped to a recipe. It returns
// ErrNotFound when the attempt is missing or belongs to a different recipe.
func GetRecipeAttempt(ctx context.Context, db *gorm.DB, recipeID, attemptID string) (*domain.Attempt, error) {
	var a domain.Attempt
	err := db.WithContext(ctx).
		Where("id = ? AND recipe_id = ?", attemptID, recipeID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAttempts returns a recipe's attempts ordered newest first, with a
// deterministic ID tiebreak (CreatedAt DESC, ID DESC).
func ListAttempts(ctx context.Context, db *gorm.DB, recipeID string) ([]domain.Attempt, error) {
	var out []domain.Attempt
	err := db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// GetAttemptsByIDs fetches the attempts whose IDs are in ids, in no
// particular order. Used to resolve best-attempt pointers in bulk.
func GetAttemptsByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]domain.Attempt, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.Attempt
	err := db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

// CountAttempts uses a raw COUNT so a missing table surfaces as an error.
func CountAttempts(ctx context.Context, db *gorm.DB, recipeID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM attempts WHERE recipe_id = ?", recipeID).
		Scan(&total).Error
	return total, err
}

// DeleteAttemptsByRecipe removes every attempt of the given recipe. Deleting
// zero rows is not an error.
func DeleteAttemptsByRecipe(ctx context.Context, db *gorm.DB, recipeID string) error {
	return db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Delete(&domain.Attempt{}).Error
}
