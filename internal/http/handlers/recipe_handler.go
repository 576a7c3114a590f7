// Recipe HTTP handlers.
//
// This file exposes REST endpoints for recipe resources:
//   - POST   /recipes                                  (create, may auto-seed an attempt)
//   - GET    /recipes                                  (list, filter, ETag support)
//   - GET    /recipes/{id}                             (fetch one)
//   - PUT    /recipes/{id}                             (full replace)
//   - PATCH  /recipes/{id}                             (sparse update incl. best attempt)
//   - DELETE /recipes/{id}                             (cascading delete)
//   - POST   /recipes/{id}/attempts/{attemptId}/choose (mark best)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/zhengchen1025/cook-cook/internal/domain"
	"github.com/zhengchen1025/cook-cook/internal/repo"
	"github.com/zhengchen1025/cook-cook/internal/services"
	"github.com/zhengchen1025/cook-cook/internal/utils"
)

//
// DTOs
//

// RecipeRequest is the JSON payload for creating or fully replacing a recipe.
type RecipeRequest struct {
	// Title names the recipe (required, non-empty after trimming).
	Title string `json:"title" example:"Sourdough"`
	// Body is the free-text procedure.
	Body string `json:"body" example:"Mix, proof overnight, bake at 240C."`
	// Feedback records free-text notes on the outcome.
	Feedback string `json:"feedback" example:"Crumb too dense"`
	// Images lists direct image URLs in submission order.
	Images []string `json:"images"`
	// Meta is an opaque JSON object; null and absent both mean "not provided".
	Meta json.RawMessage `json:"meta" swaggertype:"object"`
}

// PatchRecipeRequest is the JSON payload for sparse recipe updates. Absent
// keys leave the corresponding field unchanged; see BestAttemptID for the
// three-valued best-attempt selector.
type PatchRecipeRequest struct {
	Title    *string         `json:"title"`
	Body     *string         `json:"body"`
	Feedback *string         `json:"feedback"`
	Images   *[]string       `json:"images"`
	Meta     json.RawMessage `json:"meta" swaggertype:"object"`
	// BestAttemptID distinguishes absent (keep), null (clear), and a string
	// id (set). It is kept raw so the three cases survive decoding.
	BestAttemptID json.RawMessage `json:"bestAttemptId" swaggertype:"string"`
}

// ListRecipesResponse wraps a recipe listing and the total after filtering.
type ListRecipesResponse struct {
	Total int64           `json:"total"`
	Items []domain.Recipe `json:"items"`
}

//
// Helpers
//

// metaObject validates that raw is a JSON object and returns it. Absent keys
// and explicit null both yield (nil, true), which callers treat as "not
// provided". Any other value is rejected with a field error on "meta".
func metaObject(c *gin.Context, raw json.RawMessage) (datatypes.JSON, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, true
	}
	if trimmed[0] != '{' {
		fail(c, http.StatusBadRequest, fieldPtr("meta"), "meta must be an object")
		return nil, false
	}
	return datatypes.JSON(trimmed), true
}

// listParams parses the recipe list query string. Pagination is opt-in: with
// no page_size the full (filtered) set is returned, matching the default
// {total, items} contract.
func listParams(c *gin.Context) (q string, mine bool, page, pageSize int) {
	const maxPageSize = 100
	q = c.Query("q")
	mine = utils.BoolDefault(c.Query("mine"), false)
	page = utils.AtoiDefault(c.Query("page"), 0)
	pageSize = utils.AtoiDefault(c.Query("page_size"), 0)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if pageSize > 0 && page < 1 {
		page = 1
	}
	return
}

//
// Handlers
//

// CreateRecipe godoc
// @ID          createRecipe
// @Summary     Create a recipe
// @Description Creates a recipe with its direct images. A non-empty body auto-records a first attempt and marks it best.
// @Tags        Recipes
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RecipeRequest  true  "Recipe payload"
//
// @Success     201  {object}  domain.Recipe
// @Failure     400  {object}  handlers.ErrorResponse  "Missing title or malformed field"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /recipes [post]
func (h *Handlers) CreateRecipe(c *gin.Context) {
	var req RecipeRequest
	if !bindJSON(c, &req) {
		return
	}
	meta, valid := metaObject(c, req.Meta)
	if !valid {
		return
	}

	r, err := h.recipeSvc.Create(c.Request.Context(), sessionUserID(c), services.RecipeInput{
		Title:    req.Title,
		Body:     req.Body,
		Feedback: req.Feedback,
		Images:   req.Images,
		Meta:     meta,
	})
	if err != nil {
		failServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, r)
}

// ListRecipes godoc
// @ID          listRecipes
// @Summary     List recipes
// @Description Returns recipes newest-first with a filtered total. Supports substring search, an owned-only filter, opt-in pagination, and weak ETags via If-None-Match.
// @Tags        Recipes
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"recipes:abc:3:17\")
// @Param       q              query   string  false "Case-insensitive substring over title/body/feedback"
// @Param       mine           query   bool    false "Only recipes authored by the session user"
// @Param       page           query   int     false "Page number (with page_size)"  minimum(1)
// @Param       page_size      query   int     false "Items per page"                minimum(1) maximum(100)
//
// @Success     200  {object} handlers.ListRecipesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "mine requested without a session"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /recipes [get]
func (h *Handlers) ListRecipes(c *gin.Context) {
	ctx := c.Request.Context()
	uid := sessionUserID(c)
	q, mine, page, pageSize := listParams(c)

	// ETag pre-check (best effort). Skipped when the request is about to be
	// rejected for asking "mine" anonymously.
	var db *gorm.DB
	if svc, okSvc := h.recipeSvc.(*services.RecipeService); okSvc {
		db = svc.DB
	}
	if db != nil && !(mine && uid == "") {
		var author *string
		if mine {
			author = &uid
		}
		count, maxTS, err := repo.RecipesStats(ctx, db, author)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			hash := fnv.New64a()
			fmt.Fprintf(hash, "%s|%s|%v|%d|%d", uid, q, mine, page, pageSize)
			etag := fmt.Sprintf(`W/"recipes:%x:%d:%d"`, hash.Sum64(), count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.recipeSvc.List(ctx, uid, q, mine, page, pageSize)
	if err != nil {
		failServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListRecipesResponse{Total: total, Items: items})
}

// GetRecipe godoc
// @ID          getRecipe
// @Summary     Fetch a recipe
// @Description Returns one recipe enriched with its images and best attempt.
// @Tags        Recipes
// @Produce     json
//
// @Param       id  path  string  true  "Recipe ID"
//
// @Success     200  {object}  domain.Recipe
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /recipes/{id} [get]
func (h *Handlers) GetRecipe(c *gin.Context) {
	r, err := h.recipeSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// UpdateRecipe godoc
// @ID          updateRecipe
// @Summary     Replace a recipe
// @Description Overwrites title, body, feedback, and meta, and rebuilds the direct image set. Owner only.
// @Tags        Recipes
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                  true  "Recipe ID"
// @Param       body  body  handlers.RecipeRequest  true  "Replacement payload"
//
// @Success     200  {object}  domain.Recipe
// @Failure     400  {object}  handlers.ErrorResponse  "Missing title or malformed field"
// @Failure     401  {object}  handlers.ErrorResponse  "No session"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /recipes/{id} [put]
func (h *Handlers) UpdateRecipe(c *gin.Context) {
	var req RecipeRequest
	if !bindJSON(c, &req) {
		return
	}
	meta, valid := metaObject(c, req.Meta)
	if !valid {
		return
	}

	r, err := h.recipeSvc.Update(c.Request.Context(), sessionUserID(c), c.Param("id"), services.RecipeInput{
		Title:    req.Title,
		Body:     req.Body,
		Feedback: req.Feedback,
		Images:   req.Images,
		Meta:     meta,
	})
	if err != nil {
		failServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// PatchRecipe godoc
// @ID          patchRecipe
// @Summary     Patch a recipe
// @Description Applies a sparse update. bestAttemptId accepts an attempt id of this recipe or null to clear; images, when present, replace the direct image set. Owner only.
// @Tags        Recipes
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                       true  "Recipe ID"
// @Param       body  body  handlers.PatchRecipeRequest  true  "Sparse fields"
//
// @Success     200  {object}  domain.Recipe
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed field or foreign best attempt"
// @Failure     401  {object}  handlers.ErrorResponse  "No session"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /recipes/{id} [patch]
func (h *Handlers) PatchRecipe(c *gin.Context) {
	var req PatchRecipeRequest
	if !bindJSON(c, &req) {
		return
	}
	meta, valid := metaObject(c, req.Meta)
	if !valid {
		return
	}

	p := services.RecipePatch{
		Title:    req.Title,
		Body:     req.Body,
		Feedback: req.Feedback,
		Images:   req.Images,
		Meta:     meta,
	}
	if raw := bytes.TrimSpace(req.BestAttemptID); len(raw) > 0 {
		p.BestSet = true
		if !bytes.Equal(raw, []byte("null")) {
			var id string
			if err := json.Unmarshal(raw, &id); err != nil {
				fail(c, http.StatusBadRequest, fieldPtr("bestAttemptId"), "bestAttemptId must be a string or null")
				return
			}
			p.Best = &id
		}
	}

	r, err := h.recipeSvc.Patch(c.Request.Context(), sessionUserID(c), c.Param("id"), p)
	if err != nil {
		failServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// DeleteRecipe godoc
// @ID          deleteRecipe
// @Summary     Delete a recipe
// @Description Removes the recipe together with all its attempts and images. Owner only.
// @Tags        Recipes
// @Produce     json
//
// @Param       id  path  string  true  "Recipe ID"
//
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "No session"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /recipes/{id} [delete]
func (h *Handlers) DeleteRecipe(c *gin.Context) {
	if err := h.recipeSvc.Delete(c.Request.Context(), sessionUserID(c), c.Param("id")); err != nil {
		failServiceError(c, err)
		return
	}
	noContent(c)
}

// ChooseBestAttempt godoc
// @ID          chooseBestAttempt
// @Summary     Mark an attempt as best
// @Description Points the recipe's best-attempt reference at one of its own attempts and returns the enriched recipe. Owned recipes accept this only from their owner.
// @Tags        Attempts
// @Produce     json
//
// @Param       id         path  string  true  "Recipe ID"
// @Param       attemptId  path  string  true  "Attempt ID (must belong to the recipe)"
//
// @Success     200  {object}  domain.Recipe
// @Failure     400  {object}  handlers.ErrorResponse  "Attempt does not belong to the recipe"
// @Failure     401  {object}  handlers.ErrorResponse  "Owned recipe, no session"
// @Failure     403  {object}  handlers.ErrorResponse  "Owned recipe, different user"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /recipes/{id}/attempts/{attemptId}/choose [post]
func (h *Handlers) ChooseBestAttempt(c *gin.Context) {
	r, err := h.recipeSvc.ChooseBest(c.Request.Context(), sessionUserID(c), c.Param("id"), c.Param("attemptId"))
	if err != nil {
		// Here the id arrives as a path segment, so name that parameter
		// rather than the PATCH body key.
		if errors.Is(err, services.ErrBestAttemptInvalid) {
			fail(c, http.StatusBadRequest, fieldPtr("attemptId"), "attempt does not belong to this recipe")
			return
		}
		failServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}
