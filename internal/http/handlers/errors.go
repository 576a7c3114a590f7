// Package handlers – HTTP error translation.
//
// This file centralizes the mapping from service-layer sentinel errors to
// HTTP responses so every endpoint reports the same status, field, and
// message for the same condition.
//
// Conventions:
//   - Validation problems are 400 and name the offending field.
//   - Missing/invalid sessions are 401, ownership violations 403.
//   - Unknown resources are 404, duplicate emails 409.
//   - Anything unrecognized is logged server-side and surfaced as a generic
//     500 so schema or driver details never leak to clients.
//
// Usage:
//   - Handlers call failServiceError(c, err) for any service error they do
//     not special-case themselves.
//   - JSON body decoding goes through bindJSON, which turns type mismatches
//     into field-level 400s.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zhengchen1025/cook-cook/internal/http/middleware"
	"github.com/zhengchen1025/cook-cook/internal/services"
)

// failServiceError maps a service error onto the HTTP error envelope.
func failServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmailRequired):
		fail(c, http.StatusBadRequest, fieldPtr("email"), err.Error())
	case errors.Is(err, services.ErrPasswordRequired):
		fail(c, http.StatusBadRequest, fieldPtr("password"), err.Error())
	case errors.Is(err, services.ErrInvalidEmail):
		fail(c, http.StatusBadRequest, fieldPtr("email"), err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		fail(c, http.StatusConflict, fieldPtr("email"), err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, nil, err.Error())
	case errors.Is(err, services.ErrWrongPassword):
		fail(c, http.StatusUnauthorized, fieldPtr("currentPassword"), err.Error())
	case errors.Is(err, services.ErrPasswordTooShort):
		fail(c, http.StatusBadRequest, fieldPtr("newPassword"), err.Error())
	case errors.Is(err, services.ErrAuthRequired):
		fail(c, http.StatusUnauthorized, nil, err.Error())
	case errors.Is(err, services.ErrNotOwner):
		fail(c, http.StatusForbidden, nil, err.Error())
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrRecipeNotFound),
		errors.Is(err, services.ErrAttemptNotFound):
		fail(c, http.StatusNotFound, nil, err.Error())
	case errors.Is(err, services.ErrTitleRequired):
		fail(c, http.StatusBadRequest, fieldPtr("title"), err.Error())
	case errors.Is(err, services.ErrBodyRequired):
		fail(c, http.StatusBadRequest, fieldPtr("body"), err.Error())
	case errors.Is(err, services.ErrBestAttemptInvalid):
		fail(c, http.StatusBadRequest, fieldPtr("bestAttemptId"), err.Error())
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("unhandled service error")
		fail(c, http.StatusInternalServerError, nil, "internal server error")
	}
}

// bindJSON decodes the request body into dst and, on failure, writes the
// error envelope and returns false. Wrong-typed fields (string body, scalar
// images, array meta, …) are reported as 400 with the field named; anything
// else is a generic 400.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		fail(c, http.StatusBadRequest, fieldPtr(typeErr.Field), typeErr.Field+" is of the wrong type")
		return false
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		fail(c, http.StatusBadRequest, nil, "request body too large")
		return false
	}
	fail(c, http.StatusBadRequest, nil, "invalid JSON body")
	return false
}
