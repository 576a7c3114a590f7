package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zhengchen1025/cook-cook/internal/domain"
	"github.com/zhengchen1025/cook-cook/internal/repo"
)

// ---------- test helpers ----------

func newAuthDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:authsvc_%s?mode=memory&cache=shared", uuid.NewString())

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

func allModels() []any {
	return []any{&domain.User{}, &domain.Session{}, &domain.Recipe{}, &domain.Attempt{}, &domain.Image{}}
}

func strptr(s string) *string { return &s }

func fastAuth(db *gorm.DB) *AuthService {
	return &AuthService{DB: db, SessionTTL: time.Hour, BcryptCost: bcrypt.MinCost}
}

// ---------- Register() ----------

func TestAuthService_Register_Validation(t *testing.T) {
	db := newAuthDB(t, allModels()...)
	s := fastAuth(db)

	if _, _, err := s.Register(context.Background(), "   ", "secret1", nil); err != ErrEmailRequired {
		t.Fatalf("expected ErrEmailRequired, got %v", err)
	}
	if _, _, err := s.Register(context.Background(), "a@b.io", "", nil); err != ErrPasswordRequired {
		t.Fatalf("expected ErrPasswordRequired, got %v", err)
	}
}

func TestAuthService_Register_Success_NormalizesAndMintsSession(t *testing.T) {
	db := newAuthDB(t, allModels()...)
	s := fastAuth(db)

	u, sess, err := s.Register(context.Background(), "  Alice@Example.COM ", "secret1", strptr("  Alice  "))
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}
	if u.Name == nil || *u.Name != "Alice" {
		t.Fatalf("expected trimmed name, got %v", u.Name)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")) != nil {
		t.Fatalf("stored hash does not verify against the password")
	}
	if sess.Token == "" || sess.UserID != u.ID {
		t.Fatalf("unexpected session %+v", sess)
	}
	if !sess.ExpiresAt.After(time.Now().UTC().Add(30 * time.Minute)) {
		t.Fatalf("expected expiry near one hour out, got %v", sess.ExpiresAt)
	}

	var stored domain.Session
	if err := db.First(&stored, "token = ?", sess.Token).Error; err != nil {
		t.Fatalf("session row missing: %v", err)
	}
}

func TestAuthService_Register_DuplicateEmail_RollsBack(t *testing.T) {
	db := newAuthDB(t, allModels()...)
	s := fastAuth(db)

	if _, _, err := s.Register(context.Background(), "dup@example.com", "secret1", nil); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, _, err := s.Register(context.Background(), "DUP@example.com", "other-pass", nil); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	var users, sessions int64
	db.Model(&domain.User{}).Count(&users)
	db.Model(&domain.Session{}).Count(&sessions)
	if users != 1 || sessions != 1 {
		t.Fatalf("expected the failed register to leave nothing behind, got users=%d sessions=%d", users, sessions)
	}
}

// ---------- Login() ----------

func TestAuthService_Login_UnknownOrWrongPassword(t *testing.T) {
	db := newAuthDB(t, allModels()...)
	s := fastAuth(db)
	if _, _, err := s.Register(context.Background(), "bob@example.com", "secret1", nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := s.Login(context.Background(), "nobody@example.com", "secret1"); err != ErrInvalidCredentials {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := s.Login(context.Background(), "bob@example.com", "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_Success_PurgesExpiredSessions(t *testing.T) {
	db := newAuthDB(t, allModels()...)
	s := fastAuth(db)
	u, _, err := s.Register(context.Background(), "carol@example.com", "secret1", nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := repo.CreateSession(context.Background(), db, u.ID, -time.Hour); err != nil {
		t.Fatalf("seed expired session: %v", err)
	}

	got, sess, err := s.Login(context.Background(), "  CAROL@example.com ", "secret1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if got.ID != u.ID || sess.Token == "" {
		t.Fatalf("unexpected login result user=%+v sess=%+v", got, sess)
	}

	var stale int64
	db.Model(&domain.Session{}).Where("expires_at <= ?", time.Now().UTC()).Count(&stale)
	if stale != 0 {
		t.Fatalf("expected expired sessions purged, %d remain", stale)
	}
}

// ---------- Logout() / CurrentUser() ----------

func TestAuthService_Logout_And_CurrentUser(t *testing.T) {
	db := newAuthDB(t, allModels()...)
	s := fastAuth(db)
	u, sess, err := s.Register(context.Background(), "dave@example.com", "secret1", nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := s.CurrentUser(context.Background(), sess.Token)
	if err != nil || got == nil || got.ID != u.ID {
		t.Fatalf("expected current user %s, got %+v err=%v", u.ID, got, err)
	}

	if err := s.Logout(context.Background(), sess.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := s.Logout(context.Background(), sess.Token); err != nil {
		t.Fatalf("second logout should be a no-op, got %v", err)
	}

	got, err = s.CurrentUser(context.Background(), sess.Token)
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil) after logout, got %+v err=%v", got, err)
	}
	if got, err := s.CurrentUser(context.Background(), ""); err != nil || got != nil {
		t.Fatalf("blank token should resolve to nobody, got %+v err=%v", got, err)
	}
}

func TestAuthService_CurrentUser_ExpiredSession(t *testing.T) {
	db := newAuthDB(t, allModels()...)
	s := fastAuth(db)
	u, _, err := s.Register(context.Background(), "erin@example.com", "secret1", nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	sess, err := repo.CreateSession(context.Background(), db, u.ID, -time.Minute)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}

	got, err := s.CurrentUser(context.Background(), sess.Token)
	if err != nil || got != nil {
		t.Fatalf("expired session should resolve to nobody, got %+v err=%v", got, err)
	}
}

// ---------- UpdateProfile() ----------

func TestAuthService_UpdateProfile(t *testing.T) {
	db := newAuthDB(t, allModels()...)
	s := fastAuth(db)
	u, _, err := s.Register(context.Background(), "frank@example.com", "secret1", strptr("Frank"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := s.Register(context.Background(), "taken@example.com", "secret1", nil); err != nil {
		t.Fatalf("register second: %v", err)
	}

	got, err := s.UpdateProfile(context.Background(), u.ID, strptr("  Franklin  "), nil)
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got.Name == nil || *got.Name != "Franklin" {
		t.Fatalf("expected renamed user, got %v", got.Name)
	}

	// Blank name clears it.
	got, err = s.UpdateProfile(context.Background(), u.ID, strptr("   "), nil)
	if err != nil {
		t.Fatalf("clear name: %v", err)
	}
	if got.Name != nil {
		t.Fatalf("expected cleared name, got %q", *got.Name)
	}

	if _, err := s.UpdateProfile(context.Background(), u.ID, nil, strptr("not-an-email")); err != ErrInvalidEmail {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := s.UpdateProfile(context.Background(), u.ID, nil, strptr("TAKEN@example.com")); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := s.UpdateProfile(context.Background(), uuid.NewString(), strptr("x"), nil); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	// No fields provided: current state comes back untouched.
	got, err = s.UpdateProfile(context.Background(), u.ID, nil, nil)
	if err != nil || got.Email != "frank@example.com" {
		t.Fatalf("expected unchanged user, got %+v err=%v", got, err)
	}
}

// ---------- ChangePassword() ----------

func TestAuthService_ChangePassword(t *testing.T) {
	db := newAuthDB(t, allModels()...)
	s := fastAuth(db)
	u, _, err := s.Register(context.Background(), "gina@example.com", "secret1", nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := s.ChangePassword(context.Background(), u.ID, "secret1", "short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := s.ChangePassword(context.Background(), u.ID, "nope", "longenough"); err != ErrWrongPassword {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
	if err := s.ChangePassword(context.Background(), u.ID, "secret1", "longenough"); err != nil {
		t.Fatalf("ChangePassword error: %v", err)
	}

	if _, _, err := s.Login(context.Background(), "gina@example.com", "secret1"); err != ErrInvalidCredentials {
		t.Fatalf("old password should no longer work, got %v", err)
	}
	if _, _, err := s.Login(context.Background(), "gina@example.com", "longenough"); err != nil {
		t.Fatalf("new password login: %v", err)
	}
}

// ---------- DeleteAccount() ----------

func TestAuthService_DeleteAccount_RemovesEverythingOwned(t *testing.T) {
	db := newAuthDB(t, allModels()...)
	s := fastAuth(db)
	owner, sess, err := s.Register(context.Background(), "henry@example.com", "secret1", nil)
	if err != nil {
		t.Fatalf("register owner: %v", err)
	}
	other, _, err := s.Register(context.Background(), "bystander@example.com", "secret1", nil)
	if err != nil {
		t.Fatalf("register bystander: %v", err)
	}

	seedRecipe := func(id string, author string) {
		rec := &domain.Recipe{ID: id, AuthorID: &author, Title: "t-" + id, Meta: datatypes.JSON(`{}`)}
		if err := db.Create(rec).Error; err != nil {
			t.Fatalf("seed recipe %s: %v", id, err)
		}
	}
	seedRecipe("r-owner", owner.ID)
	seedRecipe("r-other", other.ID)

	att := &domain.Attempt{ID: "a1", RecipeID: "r-owner", Body: "try", Meta: datatypes.JSON(`{}`)}
	if err := db.Create(att).Error; err != nil {
		t.Fatalf("seed attempt: %v", err)
	}
	imgs := []domain.Image{
		{ID: "i-direct", URL: "/uploads/a.jpg", RecipeID: strptr("r-owner")},
		{ID: "i-attempt", URL: "/uploads/b.jpg", AttemptID: strptr("a1")},
	}
	if err := db.Create(&imgs).Error; err != nil {
		t.Fatalf("seed images: %v", err)
	}

	if err := s.DeleteAccount(context.Background(), owner.ID); err != nil {
		t.Fatalf("DeleteAccount error: %v", err)
	}

	counts := map[string]int64{}
	for name, model := range map[string]any{
		"users":    &domain.User{},
		"sessions": &domain.Session{},
		"recipes":  &domain.Recipe{},
		"attempts": &domain.Attempt{},
		"images":   &domain.Image{},
	} {
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			t.Fatalf("count %s: %v", name, err)
		}
		counts[name] = n
	}
	if counts["users"] != 1 || counts["recipes"] != 1 || counts["attempts"] != 0 || counts["images"] != 0 {
		t.Fatalf("unexpected survivors: %+v", counts)
	}
	if got, err := s.CurrentUser(context.Background(), sess.Token); err != nil || got != nil {
		t.Fatalf("owner session should be gone, got %+v err=%v", got, err)
	}

	// The address can be registered again after deletion.
	if _, _, err := s.Register(context.Background(), "henry@example.com", "secret2", nil); err != nil {
		t.Fatalf("re-register after delete: %v", err)
	}

	if err := s.DeleteAccount(context.Background(), uuid.NewString()); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
