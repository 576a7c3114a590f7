// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/zhengchen1025/cook-cook/internal/domain"
)

// RecipesStats returns aggregate metadata for recipes: the total number of
// rows and the maximum UpdatedAt timestamp among those rows. When authorID
// is non-nil the aggregates are scoped to that author.
//
// Every mutation that can alter a recipe list response bumps the recipe's
// UpdatedAt (edits, best-attempt changes, image replacement), so the pair
// (count, maxUpdatedAt) is a sound change marker. When there are no rows,
// the returned count is 0 and maxUpdatedAt is nil.
//
// Return values:
//   - count:        total recipes in scope
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func RecipesStats(ctx context.Context, db *gorm.DB, authorID *string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Recipe{})
	if authorID != nil {
		q = q.Where("author_id = ?", *authorID)
	}

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// AttemptsStats returns aggregate metadata for a recipe's attempts: the
// total number of rows and the maximum CreatedAt timestamp among those rows.
// Attempts are append-only, so (count, maxCreatedAt) changes whenever the
// attempt list would. When the recipe has no attempts, the returned count is
// 0 and maxCreatedAt is nil.
//
// Return values:
//   - count:        total attempts for recipeID
//   - maxCreatedAt: pointer to the greatest CreatedAt, or nil if no rows
//   - err:          database error, if any
func AttemptsStats(ctx context.Context, db *gorm.DB, recipeID string) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Attempt{}).Where("recipe_id = ?", recipeID)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
