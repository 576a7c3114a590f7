// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Image model.
//
// Images always hang off exactly one owner (a recipe or an attempt); the
// owner column is set by the service when it builds the rows. Listing
// functions order by CreatedAt ascending so galleries keep submission order.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/zhengchen1025/cook-cook/internal/domain"
)

// CreateImages batch-inserts image rows. A nil or empty slice is a no-op.
func CreateImages(ctx context.Context, db *gorm.DB, imgs []domain.Image) error {
	if len(imgs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&imgs).Error
}

// ListRecipeImages returns the images attached directly to a recipe.
func ListRecipeImages(ctx context.Context, db *gorm.DB, recipeID string) ([]domain.Image, error) {
	var out []domain.Image
	err := db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListAttemptImages returns the images attached to an attempt.
func ListAttemptImages(ctx context.Context, db *gorm.DB, attemptID string) ([]domain.Image, error) {
	var out []domain.Image
	err := db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListImagesForRecipes returns direct images for all the given recipes in one
// query, for bulk enrichment of list responses.
func ListImagesForRecipes(ctx context.Context, db *gorm.DB, recipeIDs []string) ([]domain.Image, error) {
	if len(recipeIDs) == 0 {
		return nil, nil
	}
	var out []domain.Image
	err := db.WithContext(ctx).
		Where("recipe_id IN ?", recipeIDs).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListImagesForAttempts returns images for all the given attempts in one query.
func ListImagesForAttempts(ctx context.Context, db *gorm.DB, attemptIDs []string) ([]domain.Image, error) {
	if len(attemptIDs) == 0 {
		return nil, nil
	}
	var out []domain.Image
	err := db.WithContext(ctx).
		Where("attempt_id IN ?", attemptIDs).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// DeleteRecipeImages removes the images attached directly to a recipe.
// Attempt images are untouched. Deleting zero rows is not an error.
func DeleteRecipeImages(ctx context.Context, db *gorm.DB, recipeID string) error {
	return db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Delete(&domain.Image{}).Error
}

// DeleteImagesForRecipeAttempts removes the images belonging to any attempt
// of the given recipe, via a subquery on the attempts table.
func DeleteImagesForRecipeAttempts(ctx context.Context, db *gorm.DB, recipeID string) error {
	sub := db.Model(&domain.Attempt{}).Select("id").Where("recipe_id = ?", recipeID)
	return db.WithContext(ctx).
		Where("attempt_id IN (?)", sub).
		Delete(&domain.Image{}).Error
}
