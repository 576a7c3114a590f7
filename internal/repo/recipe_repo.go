// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Recipe model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a recipe is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// The denormalized best_attempt_id column is only ever written through
// UpdateRecipeFields/SetBestAttempt; the services layer is responsible for
// checking that the referenced attempt belongs to the recipe before calling.
//
// This repository is designed to be wrapped by a higher-level service
// (see services.RecipeService) which enforces ownership rules, transactional
// boundaries, and cross-aggregate behavior.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zhengchen1025/cook-cook/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateRecipe inserts the given recipe row. A zero ID is replaced with a
// freshly generated UUID and zero timestamps are set to the current UTC time.
// On failure, it returns a DB error.
func CreateRecipe(ctx context.Context, db *gorm.DB, r *domain.Recipe) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	// Create with Omit: associations are persisted explicitly by the
	// service inside the same transaction.
	return db.WithContext(ctx).Omit("Images", "Author").Create(r).Error
}

// GetRecipe fetches a single recipe by its ID, without associations.
// If the record does not exist, it returns ErrNotFound.
func GetRecipe(ctx context.Context, db *gorm.DB, id string) (*domain.Recipe, error) {
	var r domain.Recipe
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRecipes returns recipes ordered by creation time descending (most
// recent first). When authorID is non-nil the result is restricted to that
// author's recipes. It returns an empty slice when nothing matches.
func ListRecipes(ctx context.Context, db *gorm.DB, authorID *string) ([]domain.Recipe, error) {
	q := db.WithContext(ctx).Model(&domain.Recipe{})
	if authorID != nil {
		q = q.Where("author_id = ?", *authorID)
	}
	var out []domain.Recipe
	err := q.Order("created_at desc").Find(&out).Error
	return out, err
}

// CountRecipes returns the total number of recipes, optionally restricted to
// an author. On DB error, it returns the error.
func CountRecipes(ctx context.Context, db *gorm.DB, authorID *string) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Recipe{})
	if authorID != nil {
		q = q.Where("author_id = ?", *authorID)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// UpdateRecipeFields applies the given column updates to the recipe
// identified by id. If no rows are affected (recipe missing), it returns
// ErrNotFound. The caller decides which columns change; updated_at is always
// bumped so conditional responses observe every edit.
func UpdateRecipeFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	if len(fields) == 0 {
		fields = map[string]any{}
	}
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now().UTC()
	}
	res := db.WithContext(ctx).
		Model(&domain.Recipe{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetBestAttempt points best_attempt_id at the given attempt (nil clears it).
// Returns ErrNotFound when the recipe does not exist.
func SetBestAttempt(ctx context.Context, db *gorm.DB, recipeID string, attemptID *string) error {
	return UpdateRecipeFields(ctx, db, recipeID, map[string]any{"best_attempt_id": attemptID})
}

// DeleteRecipe removes the recipe row. Child attempts and images are expected
// to be deleted by the caller in the same transaction (the FK cascades are a
// backstop, not the contract). Returns ErrNotFound when nothing was deleted.
func DeleteRecipe(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Recipe{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
