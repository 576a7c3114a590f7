package services

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zhengchen1025/cook-cook/internal/domain"
)

func newAttemptSvcDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:attemptsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestAttemptService_Create_Validation(t *testing.T) {
	db := newAttemptSvcDB(t, allModels()...)
	rs := NewRecipeService(db)
	s := NewAttemptService(db)

	r, err := rs.Create(context.Background(), "", RecipeInput{Title: "Open recipe"})
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}

	if _, err := s.Create(context.Background(), "", r.ID, AttemptInput{Body: "   "}); err != ErrBodyRequired {
		t.Fatalf("expected ErrBodyRequired, got %v", err)
	}
	if _, err := s.Create(context.Background(), "", uuid.NewString(), AttemptInput{Body: "x"}); err != ErrRecipeNotFound {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestAttemptService_Create_AppendRights(t *testing.T) {
	db := newAttemptSvcDB(t, allModels()...)
	seedUser(t, db, "u1")
	seedUser(t, db, "u2")
	rs := NewRecipeService(db)
	s := NewAttemptService(db)

	owned, err := rs.Create(context.Background(), "u1", RecipeInput{Title: "Owned"})
	if err != nil {
		t.Fatalf("create owned: %v", err)
	}
	anon, err := rs.Create(context.Background(), "", RecipeInput{Title: "Anon"})
	if err != nil {
		t.Fatalf("create anon: %v", err)
	}

	in := AttemptInput{Body: "tried it"}
	if _, err := s.Create(context.Background(), "", owned.ID, in); err != ErrAuthRequired {
		t.Fatalf("anonymous on authored: expected ErrAuthRequired, got %v", err)
	}
	if _, err := s.Create(context.Background(), "u2", owned.ID, in); err != ErrNotOwner {
		t.Fatalf("stranger on authored: expected ErrNotOwner, got %v", err)
	}
	if _, err := s.Create(context.Background(), "u1", owned.ID, in); err != nil {
		t.Fatalf("owner on authored: %v", err)
	}
	if _, err := s.Create(context.Background(), "", anon.ID, in); err != nil {
		t.Fatalf("anonymous on authorless: %v", err)
	}
	if _, err := s.Create(context.Background(), "u2", anon.ID, in); err != nil {
		t.Fatalf("any user on authorless: %v", err)
	}
}

func TestAttemptService_Create_PersistsImagesInOrder(t *testing.T) {
	db := newAttemptSvcDB(t, allModels()...)
	rs := NewRecipeService(db)
	s := NewAttemptService(db)

	r, err := rs.Create(context.Background(), "", RecipeInput{Title: "Open"})
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}

	got, err := s.Create(context.Background(), "", r.ID, AttemptInput{
		Body:     "burnt but edible",
		Feedback: "less heat next time",
		Images:   []string{"/uploads/1.jpg", "", "/uploads/2.jpg"},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID == "" || got.RecipeID != r.ID {
		t.Fatalf("unexpected attempt %+v", got)
	}
	if string(got.Meta) != "{}" {
		t.Fatalf("expected meta default, got %s", got.Meta)
	}
	if len(got.Images) != 2 || got.Images[0].URL != "/uploads/1.jpg" || got.Images[1].URL != "/uploads/2.jpg" {
		t.Fatalf("expected blank URLs dropped and order kept, got %+v", got.Images)
	}

	var rows int64
	db.Model(&domain.Image{}).Where("attempt_id = ?", got.ID).Count(&rows)
	if rows != 2 {
		t.Fatalf("expected 2 image rows, got %d", rows)
	}
}

func TestAttemptService_List_NewestFirstWithImages(t *testing.T) {
	db := newAttemptSvcDB(t, allModels()...)
	rs := NewRecipeService(db)
	s := NewAttemptService(db)

	if _, _, err := s.List(context.Background(), uuid.NewString()); err != ErrRecipeNotFound {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}

	r, err := rs.Create(context.Background(), "", RecipeInput{Title: "Ramen", Body: "first broth", Images: []string{"/uploads/broth.jpg"}})
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}
	if _, err := s.Create(context.Background(), "", r.ID, AttemptInput{Body: "second broth"}); err != nil {
		t.Fatalf("attempt 2: %v", err)
	}
	if _, err := s.Create(context.Background(), "", r.ID, AttemptInput{Body: "third broth", Images: []string{"/uploads/third.jpg"}}); err != nil {
		t.Fatalf("attempt 3: %v", err)
	}

	items, total, err := s.List(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Fatalf("expected 3 attempts, got total=%d len=%d", total, len(items))
	}
	if items[0].Body != "third broth" || items[1].Body != "second broth" || items[2].Body != "first broth" {
		t.Fatalf("expected newest first, got %q/%q/%q", items[0].Body, items[1].Body, items[2].Body)
	}
	if len(items[0].Images) != 1 || items[0].Images[0].URL != "/uploads/third.jpg" {
		t.Fatalf("expected third attempt's image, got %+v", items[0].Images)
	}
	if len(items[1].Images) != 0 {
		t.Fatalf("expected no images on the second attempt, got %+v", items[1].Images)
	}
	if len(items[2].Images) != 1 || items[2].Images[0].URL != "/uploads/broth.jpg" {
		t.Fatalf("expected the copied recipe image, got %+v", items[2].Images)
	}
}
