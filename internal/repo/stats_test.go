package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zhengchen1025/cook-cook/internal/domain"
)

func newStatsDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("stats_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(recipeTables()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestRecipesStats_EmptyAndSeeded(t *testing.T) {
	db := newStatsDB(t)
	ctx := context.Background()

	count, maxTS, err := RecipesStats(ctx, db, nil)
	if err != nil {
		t.Fatalf("RecipesStats(empty): %v", err)
	}
	if count != 0 || maxTS != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxTS)
	}

	t1 := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	u1 := "u1"
	for _, r := range []domain.Recipe{
		{ID: "r1", AuthorID: &u1, Title: "t", CreatedAt: t1, UpdatedAt: t1},
		{ID: "r2", Title: "t", CreatedAt: t2, UpdatedAt: t2},
	} {
		if err := db.Create(&r).Error; err != nil {
			t.Fatalf("seed %s: %v", r.ID, err)
		}
	}

	count, maxTS, err = RecipesStats(ctx, db, nil)
	if err != nil {
		t.Fatalf("RecipesStats: %v", err)
	}
	if count != 2 || maxTS == nil || !maxTS.Equal(t2) {
		t.Fatalf("expected (2, %v), got (%d, %v)", t2, count, maxTS)
	}

	// Author scope only sees u1's older row.
	count, maxTS, err = RecipesStats(ctx, db, &u1)
	if err != nil {
		t.Fatalf("RecipesStats(author): %v", err)
	}
	if count != 1 || maxTS == nil || !maxTS.Equal(t1) {
		t.Fatalf("expected (1, %v), got (%d, %v)", t1, count, maxTS)
	}
}

func TestAttemptsStats_EmptyAndSeeded(t *testing.T) {
	db := newStatsDB(t)
	ctx := context.Background()

	count, maxTS, err := AttemptsStats(ctx, db, "r1")
	if err != nil {
		t.Fatalf("AttemptsStats(empty): %v", err)
	}
	if count != 0 || maxTS != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxTS)
	}

	t1 := time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(30 * time.Minute)
	for _, a := range []domain.Attempt{
		{ID: "a1", RecipeID: "r1", Body: "b", CreatedAt: t1},
		{ID: "a2", RecipeID: "r1", Body: "b", CreatedAt: t2},
		{ID: "a3", RecipeID: "r2", Body: "b", CreatedAt: t2.Add(time.Hour)},
	} {
		if err := db.Create(&a).Error; err != nil {
			t.Fatalf("seed %s: %v", a.ID, err)
		}
	}

	count, maxTS, err = AttemptsStats(ctx, db, "r1")
	if err != nil {
		t.Fatalf("AttemptsStats: %v", err)
	}
	if count != 2 || maxTS == nil || !maxTS.Equal(t2) {
		t.Fatalf("expected (2, %v), got (%d, %v)", t2, count, maxTS)
	}
}
