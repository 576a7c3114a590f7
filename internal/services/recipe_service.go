// Package services – RecipeService
//
// This file implements RecipeService, the application-level component that
// owns the recipe aggregate: creation with the auto-seeded first attempt,
// enriched reads (direct images plus the resolved best attempt), full and
// sparse updates, the cascading delete, and best-attempt selection. Every
// multi-step mutation runs inside one database transaction so concurrent
// readers never observe a recipe whose attempt/image/best-pointer state is
// halfway written.
//
// Ownership model: recipes created under a session belong to that user and
// only the owner may update or delete them. Recipes created without a
// session have no owner; anyone may append attempts or pick a best attempt,
// but nobody may edit or delete them.
//
// Observability: the main public methods are OpenTelemetry-instrumented;
// spans include recipe/user identifiers where applicable.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/zhengchen1025/cook-cook/internal/domain"
	"github.com/zhengchen1025/cook-cook/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
)

// RecipeInput carries the mutable recipe fields for create and full update.
// Images holds bare URLs; rows are built per owner. A nil Meta is stored as
// the empty document.
type RecipeInput struct {
	Title    string
	Body     string
	Feedback string
	Images   []string
	Meta     datatypes.JSON
}

// RecipePatch carries a sparse update. Nil pointers mean "leave unchanged".
// BestSet distinguishes "bestAttemptId absent" (false) from "present", with
// Best nil meaning an explicit null that clears the pointer.
type RecipePatch struct {
	Title    *string
	Body     *string
	Feedback *string
	Images   *[]string
	Meta     datatypes.JSON
	Best     *string
	BestSet  bool
}

// RecipeService coordinates recipe persistence, enrichment, and the
// denormalized best-attempt pointer.
type RecipeService struct {
	DB *gorm.DB
}

// NewRecipeService constructs a RecipeService over the given handle.
func NewRecipeService(db *gorm.DB) *RecipeService {
	return &RecipeService{DB: db}
}

// Create persists a recipe with its direct images and, when the body is
// non-blank, seeds the first attempt as a copy of body/feedback/images and
// marks it best, all in one transaction. userID may be empty for an
// anonymous recipe.
func (s *RecipeService) Create(ctx context.Context, userID string, in RecipeInput) (*domain.Recipe, error) {
	tr := otel.Tracer("services/RecipeService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	var recipeID string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := &domain.Recipe{
			Title:    title,
			Body:     in.Body,
			Feedback: in.Feedback,
			Meta:     normalizeMeta(in.Meta),
		}
		if userID != "" {
			uid := userID
			r.AuthorID = &uid
		}
		if err := repo.CreateRecipe(ctx, tx, r); err != nil {
			return err
		}
		if err := repo.CreateImages(ctx, tx, buildImages(in.Images, &r.ID, nil)); err != nil {
			return err
		}

		// Seed the first attempt from the recipe itself and point the
		// best-attempt reference at it before the transaction commits.
		if strings.TrimSpace(in.Body) != "" {
			a := &domain.Attempt{
				RecipeID: r.ID,
				Body:     in.Body,
				Feedback: in.Feedback,
				Meta:     normalizeMeta(nil),
			}
			if err := repo.CreateAttempt(ctx, tx, a); err != nil {
				return err
			}
			if err := repo.CreateImages(ctx, tx, buildImages(in.Images, nil, &a.ID)); err != nil {
				return err
			}
			if err := repo.SetBestAttempt(ctx, tx, r.ID, &a.ID); err != nil {
				return err
			}
		}
		recipeID = r.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("recipe.id", recipeID))
	return s.getEnriched(ctx, recipeID)
}

// Get returns the recipe enriched with its images and resolved best attempt,
// or ErrRecipeNotFound.
func (s *RecipeService) Get(ctx context.Context, id string) (*domain.Recipe, error) {
	return s.getEnriched(ctx, id)
}

// List returns recipes newest-created-first. A non-blank query filters
// case-insensitively (Unicode case folding) across title, body, and
// feedback. mine restricts to the session user's recipes and requires one.
// page/pageSize are optional: values below 1 mean "everything". The returned
// total counts the filtered set, not the page.
func (s *RecipeService) List(ctx context.Context, userID, query string, mine bool, page, pageSize int) ([]domain.Recipe, int64, error) {
	tr := otel.Tracer("services/RecipeService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.Bool("mine", mine),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	var author *string
	if mine {
		if userID == "" {
			return nil, 0, ErrAuthRequired
		}
		author = &userID
	}

	items, err := repo.ListRecipes(ctx, s.DB, author)
	if err != nil {
		return nil, 0, err
	}

	if q := strings.TrimSpace(query); q != "" {
		fold := cases.Fold()
		needle := fold.String(q)
		filtered := items[:0]
		for _, r := range items {
			if strings.Contains(fold.String(r.Title), needle) ||
				strings.Contains(fold.String(r.Body), needle) ||
				strings.Contains(fold.String(r.Feedback), needle) {
				filtered = append(filtered, r)
			}
		}
		items = filtered
	}
	total := int64(len(items))

	if page > 0 && pageSize > 0 {
		offset := (page - 1) * pageSize
		if offset >= len(items) {
			items = []domain.Recipe{}
		} else {
			end := offset + pageSize
			if end > len(items) {
				end = len(items)
			}
			items = items[offset:end]
		}
	}

	if err := s.enrich(ctx, s.DB, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Update is the full-replace edit: title/body/feedback/meta are overwritten
// and the direct image set is deleted and rebuilt from the given URLs. Only
// the owner may update; the best-attempt pointer is untouched.
func (s *RecipeService) Update(ctx context.Context, userID, id string, in RecipeInput) (*domain.Recipe, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := repo.GetRecipe(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecipeNotFound
			}
			return err
		}
		if err := requireRecipeOwner(r, userID); err != nil {
			return err
		}
		fields := map[string]any{
			"title":    title,
			"body":     in.Body,
			"feedback": in.Feedback,
			"meta":     normalizeMeta(in.Meta),
		}
		if err := repo.UpdateRecipeFields(ctx, tx, id, fields); err != nil {
			return err
		}
		if err := repo.DeleteRecipeImages(ctx, tx, id); err != nil {
			return err
		}
		return repo.CreateImages(ctx, tx, buildImages(in.Images, &id, nil))
	})
	if err != nil {
		return nil, err
	}
	return s.getEnriched(ctx, id)
}

// Patch applies a sparse edit. Provided fields follow the same validation
// as Update; images are replaced only when the key was present; a provided
// bestAttemptId must name an attempt of this recipe (ErrBestAttemptInvalid
// otherwise, with no change applied) or be null to clear the pointer.
func (s *RecipeService) Patch(ctx context.Context, userID, id string, p RecipePatch) (*domain.Recipe, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := repo.GetRecipe(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecipeNotFound
			}
			return err
		}
		if err := requireRecipeOwner(r, userID); err != nil {
			return err
		}

		fields := map[string]any{}
		if p.Title != nil {
			title := strings.TrimSpace(*p.Title)
			if title == "" {
				return ErrTitleRequired
			}
			fields["title"] = title
		}
		if p.Body != nil {
			fields["body"] = *p.Body
		}
		if p.Feedback != nil {
			fields["feedback"] = *p.Feedback
		}
		if p.Meta != nil {
			fields["meta"] = p.Meta
		}
		if p.BestSet {
			if p.Best == nil {
				fields["best_attempt_id"] = nil
			} else {
				if _, err := repo.GetRecipeAttempt(ctx, tx, id, *p.Best); err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return ErrBestAttemptInvalid
					}
					return err
				}
				fields["best_attempt_id"] = *p.Best
			}
		}

		if len(fields) > 0 || p.Images != nil {
			if err := repo.UpdateRecipeFields(ctx, tx, id, fields); err != nil {
				return err
			}
		}
		if p.Images != nil {
			if err := repo.DeleteRecipeImages(ctx, tx, id); err != nil {
				return err
			}
			if err := repo.CreateImages(ctx, tx, buildImages(*p.Images, &id, nil)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.getEnriched(ctx, id)
}

// Delete removes the recipe and all its dependents (attempt images, direct
// images, attempts, then the row itself) atomically. Only the owner may
// delete.
func (s *RecipeService) Delete(ctx context.Context, userID, id string) error {
	tr := otel.Tracer("services/RecipeService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("recipe.id", id),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := repo.GetRecipe(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecipeNotFound
			}
			return err
		}
		if err := requireRecipeOwner(r, userID); err != nil {
			return err
		}
		if err := repo.DeleteImagesForRecipeAttempts(ctx, tx, id); err != nil {
			return err
		}
		if err := repo.DeleteRecipeImages(ctx, tx, id); err != nil {
			return err
		}
		if err := repo.DeleteAttemptsByRecipe(ctx, tx, id); err != nil {
			return err
		}
		return repo.DeleteRecipe(ctx, tx, id)
	})
}

// ChooseBest points the recipe's best-attempt reference at attemptID. The
// attempt must belong to this recipe (ErrBestAttemptInvalid otherwise). On
// authored recipes only the owner may choose; authorless recipes accept a
// choice from anyone.
func (s *RecipeService) ChooseBest(ctx context.Context, userID, recipeID, attemptID string) (*domain.Recipe, error) {
	tr := otel.Tracer("services/RecipeService")
	ctx, span := tr.Start(ctx, "ChooseBest",
		trace.WithAttributes(
			attribute.String("recipe.id", recipeID),
			attribute.String("attempt.id", attemptID),
		),
	)
	defer span.End()

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
		if _, err := repo.GetRecipeAttempt(ctx, tx, recipeID, attemptID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBestAttemptInvalid
			}
			return err
		}
		return repo.SetBestAttempt(ctx, tx, recipeID, &attemptID)
	})
	if err != nil {
		return nil, err
	}
	return s.getEnriched(ctx, recipeID)
}

// getEnriched loads one recipe and resolves its images and best attempt.
func (s *RecipeService) getEnriched(ctx context.Context, id string) (*domain.Recipe, error) {
	r, err := repo.GetRecipe(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	out := []domain.Recipe{*r}
	if err := s.enrich(ctx, s.DB, out); err != nil {
		return nil, err
	}
	return &out[0], nil
}

// enrich attaches direct images and the resolved best attempt (with its own
// images) to every recipe in place, using one batched query per table.
// Slices are normalized to non-nil so JSON renders [] instead of null.
func (s *RecipeService) enrich(ctx context.Context, db *gorm.DB, recipes []domain.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	recipeIDs := make([]string, 0, len(recipes))
	bestIDs := make([]string, 0, len(recipes))
	for i := range recipes {
		recipes[i].Images = []domain.Image{}
		recipes[i].BestAttempt = nil
		recipeIDs = append(recipeIDs, recipes[i].ID)
		if recipes[i].BestAttemptID != nil {
			bestIDs = append(bestIDs, *recipes[i].BestAttemptID)
		}
	}

	directs, err := repo.ListImagesForRecipes(ctx, db, recipeIDs)
	if err != nil {
		return err
	}
	byRecipe := make(map[string][]domain.Image, len(recipes))
	for _, img := range directs {
		if img.RecipeID != nil {
			byRecipe[*img.RecipeID] = append(byRecipe[*img.RecipeID], img)
		}
	}

	attempts, err := repo.GetAttemptsByIDs(ctx, db, bestIDs)
	if err != nil {
		return err
	}
	attemptIDs := make([]string, 0, len(attempts))
	byAttemptID := make(map[string]domain.Attempt, len(attempts))
	for _, a := range attempts {
		a.Images = []domain.Image{}
		byAttemptID[a.ID] = a
		attemptIDs = append(attemptIDs, a.ID)
	}
	attImgs, err := repo.ListImagesForAttempts(ctx, db, attemptIDs)
	if err != nil {
		return err
	}
	for _, img := range attImgs {
		if img.AttemptID == nil {
			continue
		}
		if a, ok := byAttemptID[*img.AttemptID]; ok {
			a.Images = append(a.Images, img)
			byAttemptID[*img.AttemptID] = a
		}
	}

	for i := range recipes {
		if imgs, ok := byRecipe[recipes[i].ID]; ok {
			recipes[i].Images = imgs
		}
		recipes[i].Meta = normalizeMeta(recipes[i].Meta)
		if recipes[i].BestAttemptID == nil {
			continue
		}
		// The invariant says a non-null pointer always resolves to an
		// attempt of this recipe; the recipe check guards against rows
		// written before the service owned the column.
		if a, ok := byAttemptID[*recipes[i].BestAttemptID]; ok && a.RecipeID == recipes[i].ID {
			best := a
			best.Meta = normalizeMeta(best.Meta)
			recipes[i].BestAttempt = &best
		}
	}
	return nil
}

// requireRecipeOwner gates edit/delete: a session is required, and the
// recipe must be authored by that session's user. Authorless recipes cannot
// be edited by anyone.
func requireRecipeOwner(r *domain.Recipe, userID string) error {
	if userID == "" {
		return ErrAuthRequired
	}
	if r.AuthorID == nil || *r.AuthorID != userID {
		return ErrNotOwner
	}
	return nil
}

// requireAppendRights gates attempt creation and best-attempt choice: an
// authored recipe only accepts them from its owner, an authorless recipe
// from anyone.
func requireAppendRights(r *domain.Recipe, userID string) error {
	if r.AuthorID == nil {
		return nil
	}
	if userID == "" {
		return ErrAuthRequired
	}
	if *r.AuthorID != userID {
		return ErrNotOwner
	}
	return nil
}

// normalizeMeta collapses a missing meta document to the empty object so the
// column's NOT NULL constraint and the wire contract agree.
func normalizeMeta(m datatypes.JSON) datatypes.JSON {
	if len(m) == 0 {
		return datatypes.JSON("{}")
	}
	return m
}

// buildImages turns bare URLs into image rows for one owner. Blank URLs are
// dropped. CreatedAt is staggered by a microsecond per image so the
// created-at listing preserves submission order.
func buildImages(urls []string, recipeID, attemptID *string) []domain.Image {
	if len(urls) == 0 {
		return nil
	}
	now := time.Now().UTC()
	imgs := make([]domain.Image, 0, len(urls))
	for i, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		imgs = append(imgs, domain.Image{
			ID:        uuid.NewString(),
			URL:       u,
			RecipeID:  recipeID,
			AttemptID: attemptID,
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		})
	}
	return imgs
}
