// Attempt HTTP handlers.
//
// This file exposes REST endpoints for a recipe's attempt log:
//   - POST /recipes/{id}/attempts  (append)
//   - GET  /recipes/{id}/attempts  (list newest-first, ETag support)
//
// Attempts are append-only; they are never edited and deleted only when
// their recipe goes away.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zhengchen1025/cook-cook/internal/domain"
	"github.com/zhengchen1025/cook-cook/internal/repo"
	"github.com/zhengchen1025/cook-cook/internal/services"
)

// AttemptRequest is the JSON payload for recording an attempt.
type AttemptRequest struct {
	// Body describes what was cooked and how (required, non-empty after trimming).
	Body string `json:"body" example:"Proofed 14h this time."`
	// Feedback records free-text notes on the outcome.
	Feedback string `json:"feedback" example:"Open crumb, slightly sour"`
	// Images lists attempt image URLs in submission order.
	Images []string `json:"images"`
	// Meta is an opaque JSON object; null and absent both mean "not provided".
	Meta json.RawMessage `json:"meta" swaggertype:"object"`
}

// ListAttemptsResponse wraps an attempt listing and its total.
type ListAttemptsResponse struct {
	Total int64            `json:"total"`
	Items []domain.Attempt `json:"items"`
}

// CreateAttempt godoc
// @ID          createAttempt
// @Summary     Record an attempt
// @Description Appends an attempt with its images to a recipe's log. Owned recipes accept attempts only from their owner.
// @Tags        Attempts
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                   true  "Recipe ID"
// @Param       body  body  handlers.AttemptRequest  true  "Attempt payload"
//
// @Success     201  {object}  domain.Attempt
// @Failure     400  {object}  handlers.ErrorResponse  "Missing body or malformed field"
// @Failure     401  {object}  handlers.ErrorResponse  "Owned recipe, no session"
// @Failure     403  {object}  handlers.ErrorResponse  "Owned recipe, different user"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /recipes/{id}/attempts [post]
func (h *Handlers) CreateAttempt(c *gin.Context) {
	var req AttemptRequest
	if !bindJSON(c, &req) {
		return
	}
	meta, valid := metaObject(c, req.Meta)
	if !valid {
		return
	}

	a, err := h.attemptSvc.Create(c.Request.Context(), sessionUserID(c), c.Param("id"), services.AttemptInput{
		Body:     req.Body,
		Feedback: req.Feedback,
		Images:   req.Images,
		Meta:     meta,
	})
	if err != nil {
		failServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, a)
}

// ListAttempts godoc
// @ID          listAttempts
// @Summary     List attempts
// @Description Returns all attempts of a recipe newest-first with their images. Supports weak ETags via If-None-Match.
// @Tags        Attempts
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"attempts:r1:2:17\")
// @Param       id             path    string  true  "Recipe ID"
//
// @Success     200  {object} handlers.ListAttemptsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     404  {object} handlers.ErrorResponse "Recipe not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /recipes/{id}/attempts [get]
func (h *Handlers) ListAttempts(c *gin.Context) {
	ctx := c.Request.Context()
	recipeID := c.Param("id")

	// ETag pre-check (best effort). Attempts are append-only, so the pair
	// (count, latest CreatedAt) identifies the listing. The zero pair is
	// shared between "no attempts" and "no such recipe"; the fetch below
	// still distinguishes them, so unknown recipes keep returning 404.
	var db *gorm.DB
	if svc, okSvc := h.attemptSvc.(*services.AttemptService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.AttemptsStats(ctx, db, recipeID)
		if err == nil && count > 0 {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"attempts:%s:%d:%d"`, recipeID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.attemptSvc.List(ctx, recipeID)
	if err != nil {
		failServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListAttemptsResponse{Total: total, Items: items})
}
