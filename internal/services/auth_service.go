// Package services – AuthService
//
// This file implements AuthService, which owns account lifecycle and the
// cookie-session model: registration, login/logout, profile and password
// maintenance, and full account deletion. Passwords are stored as bcrypt
// hashes; sessions are opaque random tokens persisted server-side with a
// TTL, so possession of the cookie is the only client-side state.
//
// Service-level errors (ErrEmailTaken, ErrInvalidCredentials, …) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/zhengchen1025/cook-cook/internal/domain"
	"github.com/zhengchen1025/cook-cook/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// emailRE is deliberately loose: one @, something on both sides, a dot in
// the domain. Real validation happens when the confirmation mail bounces.
var emailRE = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// minPasswordRunes is the floor enforced on new passwords.
const minPasswordRunes = 6

// AuthService implements the account and session use-cases.
type AuthService struct {
	// DB is the database handle used for all account operations.
	DB *gorm.DB

	// SessionTTL is the lifetime of a newly minted session.
	SessionTTL time.Duration

	// BcryptCost overrides the hashing cost; values below bcrypt.MinCost
	// fall back to bcrypt.DefaultCost.
	BcryptCost int
}

// NewAuthService constructs an AuthService with a default session lifetime
// of 7 days.
func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{DB: db, SessionTTL: 7 * 24 * time.Hour}
}

func (s *AuthService) cost() int {
	if s.BcryptCost >= bcrypt.MinCost && s.BcryptCost <= bcrypt.MaxCost {
		return s.BcryptCost
	}
	return bcrypt.DefaultCost
}

func (s *AuthService) ttl() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 7 * 24 * time.Hour
}

// NormalizeEmail lowercases and trims an email address; emails are stored
// and compared in this form only.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and immediately binds a session to it, both in
// one transaction.
//
// Validation:
//   - email must be non-blank; otherwise ErrEmailRequired.
//   - password must be non-blank; otherwise ErrPasswordRequired.
//   - the normalized email must be unused; otherwise ErrEmailTaken.
func (s *AuthService) Register(ctx context.Context, email, password string, name *string) (*domain.User, *domain.Session, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Register")
	defer span.End()

	email = NormalizeEmail(email)
	if email == "" {
		return nil, nil, ErrEmailRequired
	}
	if password == "" {
		return nil, nil, ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return nil, nil, err
	}

	var (
		user *domain.User
		sess *domain.Session
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u := &domain.User{Email: email, PasswordHash: string(hash), Name: trimmedNamePtr(name)}
		if err := repo.CreateUser(ctx, tx, u); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrEmailTaken
			}
			return err
		}
		sn, err := repo.CreateSession(ctx, tx, u.ID, s.ttl())
		if err != nil {
			return err
		}
		user, sess = u, sn
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	span.SetAttributes(attribute.String("user.id", user.ID))
	return user, sess, nil
}

// Login verifies the credentials and mints a fresh session. Unknown email
// and wrong password both come back as ErrInvalidCredentials so callers
// cannot probe which addresses are registered. Expired sessions are purged
// opportunistically on every successful login.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *domain.Session, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Login")
	defer span.End()

	email = NormalizeEmail(email)
	if email == "" {
		return nil, nil, ErrEmailRequired
	}
	if password == "" {
		return nil, nil, ErrPasswordRequired
	}

	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	// Best effort; a failed purge must not block the login.
	_, _ = repo.PurgeExpiredSessions(ctx, s.DB, time.Now().UTC())

	sess, err := repo.CreateSession(ctx, s.DB, u.ID, s.ttl())
	if err != nil {
		return nil, nil, err
	}
	span.SetAttributes(attribute.String("user.id", u.ID))
	return u, sess, nil
}

// Logout destroys the session for token. Unknown tokens are fine: logging
// out twice is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return repo.DeleteSession(ctx, s.DB, token)
}

// CurrentUser resolves a session token to its user. It returns (nil, nil)
// when the token is blank, unknown, or expired, and (nil, nil) too when the
// session survived its user; only unexpected DB failures produce an error.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	sess, err := repo.GetActiveSession(ctx, s.DB, token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	u, err := repo.GetUser(ctx, s.DB, sess.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// UpdateProfile changes the display name and/or email of userID. A nil
// pointer means "leave unchanged". Emails are validated for shape and
// normalized; a collision with another account returns ErrEmailTaken.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, name, email *string) (*domain.User, error) {
	fields := map[string]any{}
	if name != nil {
		fields["name"] = trimmedNamePtr(name)
	}
	if email != nil {
		norm := NormalizeEmail(*email)
		if !emailRE.MatchString(norm) {
			return nil, ErrInvalidEmail
		}
		fields["email"] = norm
	}

	if len(fields) > 0 {
		if err := repo.UpdateUserFields(ctx, s.DB, userID, fields); err != nil {
			switch {
			case errors.Is(err, repo.ErrDuplicate):
				return nil, ErrEmailTaken
			case errors.Is(err, gorm.ErrRecordNotFound):
				return nil, ErrUserNotFound
			default:
				return nil, err
			}
		}
	}

	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// ChangePassword replaces the password of userID after verifying the
// current one.
//
// Validation:
//   - newPassword must be at least 6 characters; otherwise ErrPasswordTooShort.
//   - currentPassword must match the stored hash; otherwise ErrWrongPassword.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len([]rune(newPassword)) < minPasswordRunes {
		return ErrPasswordTooShort
	}

	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)) != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost())
	if err != nil {
		return err
	}
	return repo.UpdateUserFields(ctx, s.DB, userID, map[string]any{"password_hash": string(hash)})
}

// DeleteAccount removes the user and everything they own: images of their
// recipes' attempts, those attempts, direct recipe images, the recipes,
// every session, and finally the user row. It runs in one transaction, so
// a concurrent reader never sees a half-deleted account.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "DeleteAccount",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipeIDs, err := repo.ListRecipeIDsByAuthor(ctx, tx, userID)
		if err != nil {
			return err
		}
		for _, rid := range recipeIDs {
			if err := repo.DeleteImagesForRecipeAttempts(ctx, tx, rid); err != nil {
				return err
			}
			if err := repo.DeleteRecipeImages(ctx, tx, rid); err != nil {
				return err
			}
			if err := repo.DeleteAttemptsByRecipe(ctx, tx, rid); err != nil {
				return err
			}
			if err := repo.DeleteRecipe(ctx, tx, rid); err != nil {
				return err
			}
		}
		if err := repo.DeleteUserSessions(ctx, tx, userID); err != nil {
			return err
		}
		if err := repo.DeleteUser(ctx, tx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		return nil
	})
}

// trimmedNamePtr trims a display name and collapses blank values to nil.
func trimmedNamePtr(name *string) *string {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
