// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all endpoints,
// including the structured error envelope, consistent JSON serialization, and
// helpers for common HTTP patterns. The goal is to guarantee uniform responses
// for both success and failure cases, making the API predictable and
// machine-friendly.
//
// Conventions:
//   - All error responses carry an ErrorResponse with an `errors` array whose
//     entries name the offending input field (or null for request-level
//     failures).
//   - `fail()` centralizes error logging and formatting, ensuring 5xx responses
//     are logged with request context for observability.
//   - `ok()` and `noContent()` simplify writing success responses in a
//     consistent shape across handlers.
//
// Example error response:
//
//	HTTP/1.1 400 Bad Request
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "errors": [
//	    { "field": "title", "message": "title is required" }
//	  ]
//	}
//
// Example success response:
//
//	HTTP/1.1 201 Created
//	{ "id": "abc123", "title": "Weeknight ramen", ... }
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zhengchen1025/cook-cook/internal/http/middleware"
)

// APIError is a single entry in the error envelope.
//
// Field names the request field the message refers to; it is null for
// failures that are not tied to one field (auth, not-found, internal).
type APIError struct {
	// Offending input field, or null for request-level errors
	Field *string `json:"field" example:"title"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"title is required"`
}

// ErrorResponse is the standard error envelope returned by all endpoints.
//
// Fields:
//   - RequestID: Optional correlation ID, echoed from X-Request-ID header, used
//     to correlate server logs with client-side errors.
//   - Errors: One entry per problem found; most responses carry exactly one.
//
// This struct is used in OpenAPI documentation via Swagger annotations.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// The problems found with this request
	Errors []APIError `json:"errors"`
}

// fieldPtr returns a pointer to name for use as an APIError.Field value.
func fieldPtr(name string) *string { return &name }

// fail aborts the request with a single-entry error envelope. field may be
// nil for request-level failures.
//
// Server errors (>=500) are logged using the request-scoped logger from
// middleware; client errors are left to the access log.
func fail(c *gin.Context, status int, field *string, msg string) {
	failWith(c, status, []APIError{{Field: field, Message: msg}})
}

// failWith aborts the request with a multi-entry error envelope.
func failWith(c *gin.Context, status int, errs []APIError) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Errors:    errs,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		for _, e := range errs {
			ev := lg.Error().Int("status", status)
			if e.Field != nil {
				ev = ev.Str("field", *e.Field)
			}
			ev.Str("message", e.Message).Msg("api error")
		}
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail().
//
// External packages (e.g., router setup) should call Fail to return
// consistent error envelopes without directly depending on unexported
// helpers.
func Fail(c *gin.Context, status int, field *string, msg string) { fail(c, status, field, msg) }

// ok writes a success JSON response.
//
// It serializes `body` as JSON with the given HTTP status code.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
//
// Used when the operation succeeds but there is no response body.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
