// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements cookie-session authentication. SessionAuth reads the
// session cookie, resolves it to a user through a narrow SessionResolver
// function, and annotates the request context so downstream handlers can:
//   - read the authenticated user id (CurrentUserID)
//   - read the raw session token, e.g. for logout (SessionToken)
//
// Resolution is optional by design: most routes serve anonymous requests
// too, so SessionAuth never rejects. Routes that need an identity opt in
// with RequireAuth.
//
// Design goals:
//   - Keep transport concerns (cookie parsing, context stashing) in middleware.
//   - Decouple persistence via the SessionResolver function type.
//   - Remain framework-agnostic beyond Gin's context.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Context keys used internally to stash session state.
// These keys are intentionally referenced via accessor helpers; the "userID"
// key is also read by KeyByUserOrIP and the access loggers.
const (
	ctxKeyUserID       = "userID"
	ctxKeySessionToken = "session.token"
)

// SessionResolver resolves a session token to the owning user id. It returns
// ("", nil) for tokens that are unknown or expired; an error is reserved for
// infrastructure failures (which should not block anonymous processing).
type SessionResolver func(ctx context.Context, token string) (userID string, err error)

// SessionAuth returns a middleware that resolves the session cookie named
// cookieName, if present, and stashes the token and user id in the Gin
// context.
//
// Behavior:
//   - No cookie, or an empty value: the request proceeds anonymously.
//   - Cookie present: the raw token is stashed regardless of validity, so a
//     logout can always destroy it.
//   - Resolver success: the user id becomes available via CurrentUserID.
//   - Resolver failure: treated as anonymous; RequireAuth will reject later
//     if the route needs an identity.
func SessionAuth(cookieName string, resolve SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}
		c.Set(ctxKeySessionToken, token)

		if resolve != nil {
			if uid, err := resolve(c.Request.Context(), token); err == nil && uid != "" {
				c.Set(ctxKeyUserID, uid)
			}
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id stored by SessionAuth. The
// second return value reports whether a valid session was resolved.
//
// Handlers should prefer this function over reading the context key directly.
func CurrentUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyUserID)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// SessionToken returns the raw session cookie value stashed by SessionAuth,
// whether or not it resolved to a user. The second return value indicates
// presence.
func SessionToken(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeySessionToken)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// RequireAuth returns a middleware that rejects requests lacking a resolved
// session with a 401 and the standard error envelope. Mount it after
// SessionAuth on routes that must not serve anonymous callers.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUserID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"errors": []gin.H{
					{"field": nil, "message": "authentication required"},
				},
			})
			return
		}
		c.Next()
	}
}
