package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/zhengchen1025/cook-cook/internal/domain"
	"github.com/zhengchen1025/cook-cook/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AttemptInput carries the fields for recording one cooking attempt.
type AttemptInput struct {
	Body     string
	Feedback string
	Images   []string
	Meta     datatypes.JSON
}

// AttemptService records and lists attempts under a recipe. Attempts are
// append-only: they are never edited and disappear only with their recipe.
type AttemptService struct {
	DB *gorm.DB
}

// NewAttemptService constructs an AttemptService over the given handle.
func NewAttemptService(db *gorm.DB) *AttemptService {
	return &AttemptService{DB: db}
}

// Create appends an attempt with its images in one transaction. The recipe
// must exist; authored recipes accept attempts only from their owner while
// authorless ones accept them from anyone.
func (s *AttemptService) Create(ctx context.Context, userID, recipeID string, in AttemptInput) (*domain.Attempt, error) {
	tr := otel.Tracer("services/AttemptService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("recipe.id", recipeID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if strings.TrimSpace(in.Body) == "" {
		return nil, ErrBodyRequired
	}

	a := &domain.Attempt{
		RecipeID: recipeID,
		Body:     in.Body,
		Feedback: in.Feedback,
		Meta:     normalizeMeta(in.Meta),
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := repo.GetRecipe(ctx, tx, recipeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecipeNotFound
			}
			return err
		}
		if err := requireAppendRights(r, userID); err != nil {
			return err
		}
		if err := repo.CreateAttempt(ctx, tx, a); err != nil {
			return err
		}
		return repo.CreateImages(ctx, tx, buildImages(in.Images, nil, &a.ID))
	})
	if err != nil {
		return nil, err
	}

	imgs, err := repo.ListAttemptImages(ctx, s.DB, a.ID)
	if err != nil {
		return nil, err
	}
	a.Images = imgs
	if a.Images == nil {
		a.Images = []domain.Image{}
	}
	return a, nil
}

// List returns the recipe's attempts newest-first with their images, plus
// the total count. The recipe must exist.
func (s *AttemptService) List(ctx context.Context, recipeID string) ([]domain.Attempt, int64, error) {
	if _, err := repo.GetRecipe(ctx, s.DB, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrRecipeNotFound
		}
		return nil, 0, err
	}

	items, err := repo.ListAttempts(ctx, s.DB, recipeID)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(items))
	for i := range items {
		items[i].Images = []domain.Image{}
		items[i].Meta = normalizeMeta(items[i].Meta)
		ids = append(ids, items[i].ID)
	}
	imgs, err := repo.ListImagesForAttempts(ctx, s.DB, ids)
	if err != nil {
		return nil, 0, err
	}
	byAttempt := make(map[string][]domain.Image, len(items))
	for _, img := range imgs {
		if img.AttemptID != nil {
			byAttempt[*img.AttemptID] = append(byAttempt[*img.AttemptID], img)
		}
	}
	for i := range items {
		if list, ok := byAttempt[items[i].ID]; ok {
			items[i].Images = list
		}
	}
	return items, int64(len(items)), nil
}
