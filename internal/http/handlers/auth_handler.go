// Account and session HTTP handlers.
//
// This file exposes REST endpoints for the account lifecycle:
//   - POST   /auth/register         (create account, start session)
//   - POST   /auth/login            (verify credentials, start session)
//   - POST   /auth/logout           (destroy session)
//   - GET    /auth/me               (resolve session to a user, or null)
//   - PUT    /auth/me               (update profile)
//   - POST   /auth/change-password  (rotate password)
//   - DELETE /auth/me               (delete account and owned data)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. The session itself lives in an
// HTTP-only cookie whose name and lifetime come from configuration.
package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zhengchen1025/cook-cook/internal/domain"
	"github.com/zhengchen1025/cook-cook/internal/http/middleware"
	"github.com/zhengchen1025/cook-cook/internal/services"
)

//
// Service contracts (context-aware)
//

// AuthService defines the account and session operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AuthService interface {
	// Register creates an account and binds a fresh session to it.
	Register(ctx context.Context, email, password string, name *string) (*domain.User, *domain.Session, error)
	// Login verifies credentials and mints a fresh session.
	Login(ctx context.Context, email, password string) (*domain.User, *domain.Session, error)
	// Logout destroys the session for token; unknown tokens are a no-op.
	Logout(ctx context.Context, token string) error
	// CurrentUser resolves token to its user, or (nil, nil) when there is none.
	CurrentUser(ctx context.Context, token string) (*domain.User, error)
	// UpdateProfile changes name and/or email; nil means unchanged.
	UpdateProfile(ctx context.Context, userID string, name, email *string) (*domain.User, error)
	// ChangePassword rotates the password after verifying the current one.
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	// DeleteAccount removes the user and everything they own.
	DeleteAccount(ctx context.Context, userID string) error
}

// RecipeService defines recipe lifecycle operations consumed by HTTP handlers.
type RecipeService interface {
	// Create persists a recipe (plus the auto-seeded first attempt).
	Create(ctx context.Context, userID string, in services.RecipeInput) (*domain.Recipe, error)
	// Get returns one enriched recipe.
	Get(ctx context.Context, id string) (*domain.Recipe, error)
	// List returns filtered recipes newest-first and the filtered total.
	List(ctx context.Context, userID, query string, mine bool, page, pageSize int) ([]domain.Recipe, int64, error)
	// Update replaces the mutable fields and the direct image set.
	Update(ctx context.Context, userID, id string, in services.RecipeInput) (*domain.Recipe, error)
	// Patch applies a sparse update, including best-attempt selection.
	Patch(ctx context.Context, userID, id string, p services.RecipePatch) (*domain.Recipe, error)
	// Delete removes the recipe and its dependents.
	Delete(ctx context.Context, userID, id string) error
	// ChooseBest points the best-attempt reference at one of the recipe's attempts.
	ChooseBest(ctx context.Context, userID, recipeID, attemptID string) (*domain.Recipe, error)
}

// AttemptService defines attempt operations consumed by HTTP handlers.
type AttemptService interface {
	// Create appends an attempt with its images.
	Create(ctx context.Context, userID, recipeID string, in services.AttemptInput) (*domain.Attempt, error)
	// List returns the recipe's attempts newest-first and the total count.
	List(ctx context.Context, recipeID string) ([]domain.Attempt, int64, error)
}

// UploadService defines the image processing pipeline consumed by the upload
// endpoint.
type UploadService interface {
	// Save normalizes the image and returns the stored filename.
	Save(ctx context.Context, r io.Reader) (string, error)
}

//
// Handler wiring
//

// SessionCookieOptions configures the session cookie written by the auth
// endpoints. Secure should be set when the deployment terminates TLS.
type SessionCookieOptions struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// UploadOptions configures the upload endpoint. MaxBytes caps the multipart
// file size; zero or negative selects the 8 MiB default.
type UploadOptions struct {
	MaxBytes int64
}

// maxBytes returns the effective file size ceiling.
func (o UploadOptions) maxBytes() int64 {
	if o.MaxBytes > 0 {
		return o.MaxBytes
	}
	return 8 << 20
}

// Handlers groups HTTP endpoints for accounts, recipes, attempts, and
// uploads. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	authSvc    AuthService
	recipeSvc  RecipeService
	attemptSvc AttemptService
	uploadSvc  UploadService
	cookie     SessionCookieOptions
	upload     UploadOptions
}

// New constructs and returns a Handlers instance bound to the given services.
func New(authSvc AuthService, recipeSvc RecipeService, attemptSvc AttemptService, uploadSvc UploadService, cookie SessionCookieOptions, upload UploadOptions) *Handlers {
	if cookie.Name == "" {
		cookie.Name = "session"
	}
	if cookie.TTL <= 0 {
		cookie.TTL = 7 * 24 * time.Hour
	}
	return &Handlers{
		authSvc:    authSvc,
		recipeSvc:  recipeSvc,
		attemptSvc: attemptSvc,
		uploadSvc:  uploadSvc,
		cookie:     cookie,
		upload:     upload,
	}
}

// sessionUserID returns the authenticated user id resolved by SessionAuth,
// or "" for anonymous requests.
func sessionUserID(c *gin.Context) string {
	uid, _ := middleware.CurrentUserID(c)
	return uid
}

// setSessionCookie binds token to the client for the configured lifetime.
func (h *Handlers) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.cookie.TTL.Seconds()), "/", "", h.cookie.Secure, true)
}

// clearSessionCookie expires the session cookie immediately.
func (h *Handlers) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}

//
// DTOs
//

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	// Email is the unique login address (stored lowercased and trimmed).
	Email string `json:"email" example:"ada@example.com"`
	// Password is the plaintext password; only its bcrypt hash is stored.
	Password string `json:"password" example:"correct horse"`
	// Name optionally sets a display name.
	Name *string `json:"name" example:"Ada"`
}

// LoginRequest is the JSON payload for signing in.
type LoginRequest struct {
	Email    string `json:"email" example:"ada@example.com"`
	Password string `json:"password" example:"correct horse"`
}

// UpdateProfileRequest is the JSON payload for profile edits. Absent keys
// leave the corresponding field unchanged.
type UpdateProfileRequest struct {
	Name  *string `json:"name" example:"Ada Lovelace"`
	Email *string `json:"email" example:"ada@new.example.com"`
}

// ChangePasswordRequest is the JSON payload for password rotation.
// ConfirmPassword is optional; when present it must equal NewPassword.
type ChangePasswordRequest struct {
	CurrentPassword string  `json:"currentPassword" example:"correct horse"`
	NewPassword     string  `json:"newPassword" example:"battery staple"`
	ConfirmPassword *string `json:"confirmPassword" example:"battery staple"`
}

// UserEnvelope wraps the user projection returned by the auth endpoints.
// User is null when no valid session is presented to GET /auth/me.
type UserEnvelope struct {
	User *domain.User `json:"user"`
}

//
// Handlers
//

// Register godoc
// @ID          register
// @Summary     Create an account
// @Description Registers a new user, starts a session, and sets the session cookie.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RegisterRequest  true  "Account payload"
//
// @Success     201  {object}  handlers.UserEnvelope
// @Header      201  {string}  Set-Cookie  "Session cookie"
// @Failure     400  {object}  handlers.ErrorResponse  "Missing or malformed field"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already registered"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	u, sess, err := h.authSvc.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		failServiceError(c, err)
		return
	}
	h.setSessionCookie(c, sess.Token)
	ok(c, http.StatusCreated, UserEnvelope{User: u})
}

// Login godoc
// @ID          login
// @Summary     Sign in
// @Description Verifies credentials, starts a session, and sets the session cookie.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LoginRequest  true  "Credentials"
//
// @Success     200  {object}  handlers.UserEnvelope
// @Header      200  {string}  Set-Cookie  "Session cookie"
// @Failure     400  {object}  handlers.ErrorResponse  "Missing field"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	u, sess, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failServiceError(c, err)
		return
	}
	h.setSessionCookie(c, sess.Token)
	ok(c, http.StatusOK, UserEnvelope{User: u})
}

// Logout godoc
// @ID          logout
// @Summary     Sign out
// @Description Destroys the current session, if any, and clears the cookie. Always succeeds.
// @Tags        Auth
// @Produce     json
//
// @Success     204  {string}  string  "No Content"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	if token, present := middleware.SessionToken(c); present {
		if err := h.authSvc.Logout(c.Request.Context(), token); err != nil {
			failServiceError(c, err)
			return
		}
	}
	h.clearSessionCookie(c)
	noContent(c)
}

// Me godoc
// @ID          me
// @Summary     Current user
// @Description Resolves the session cookie to a user. Anonymous callers get {"user": null}.
// @Tags        Auth
// @Produce     json
//
// @Success     200  {object}  handlers.UserEnvelope
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	token, _ := middleware.SessionToken(c)
	u, err := h.authSvc.CurrentUser(c.Request.Context(), token)
	if err != nil {
		failServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, UserEnvelope{User: u})
}

// UpdateMe godoc
// @ID          updateMe
// @Summary     Update profile
// @Description Updates the display name and/or email of the current user.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.UpdateProfileRequest  true  "Profile changes"
//
// @Success     200  {object}  handlers.UserEnvelope
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed field"
// @Failure     401  {object}  handlers.ErrorResponse  "No session"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already registered"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/me [put]
func (h *Handlers) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	u, err := h.authSvc.UpdateProfile(c.Request.Context(), sessionUserID(c), req.Name, req.Email)
	if err != nil {
		failServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, UserEnvelope{User: u})
}

// ChangePassword godoc
// @ID          changePassword
// @Summary     Change password
// @Description Rotates the current user's password after verifying the current one.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ChangePasswordRequest  true  "Password payload"
//
// @Success     200  {object}  map[string]bool
// @Failure     400  {object}  handlers.ErrorResponse  "New password too short or confirmation mismatch"
// @Failure     401  {object}  handlers.ErrorResponse  "No session or wrong current password"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/change-password [post]
func (h *Handlers) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.ConfirmPassword != nil && *req.ConfirmPassword != req.NewPassword {
		fail(c, http.StatusBadRequest, fieldPtr("confirmPassword"), "password confirmation does not match")
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), sessionUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		failServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"ok": true})
}

// DeleteMe godoc
// @ID          deleteMe
// @Summary     Delete account
// @Description Deletes the current user with all owned recipes, attempts, and images, then clears the cookie.
// @Tags        Auth
// @Produce     json
//
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "No session"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/me [delete]
func (h *Handlers) DeleteMe(c *gin.Context) {
	if err := h.authSvc.DeleteAccount(c.Request.Context(), sessionUserID(c)); err != nil {
		failServiceError(c, err)
		return
	}
	h.clearSessionCookie(c)
	noContent(c)
}
