package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSessionDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(&User{}, &Session{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestSession_Migration_Insert_AndCascade(t *testing.T) {
	db := newSessionDB(t)
	m := db.Migrator()

	if !m.HasTable(&Session{}) {
		t.Fatalf("expected table %q to exist", Session{}.TableName())
	}
	if !m.HasIndex(&Session{}, "idx_sessions_expiry") {
		t.Fatalf("expected index idx_sessions_expiry to exist")
	}

	now := time.Now().UTC()
	if err := db.Create(&User{ID: "u1", Email: "a@b.c", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}

	s := &Session{Token: "tok-1", UserID: "u1", ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("insert session: %v", err)
	}

	var got Session
	if err := db.First(&got, "token = ?", "tok-1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.UserID != "u1" {
		t.Fatalf("unexpected row: %+v", got)
	}
	if !got.ExpiresAt.After(got.CreatedAt) {
		t.Fatalf("ExpiresAt should be after CreatedAt: %v vs %v", got.ExpiresAt, got.CreatedAt)
	}

	// Duplicate token must be rejected: the token is the primary key.
	if err := db.Create(&Session{Token: "tok-1", UserID: "u1", ExpiresAt: now.Add(time.Hour)}).Error; err == nil {
		t.Fatalf("expected primary key violation for duplicate token")
	}

	// Orphan session must be rejected by the FK.
	if err := db.Create(&Session{Token: "tok-2", UserID: "ghost", ExpiresAt: now.Add(time.Hour)}).Error; err == nil {
		t.Fatalf("expected FK violation for unknown user")
	}

	// Deleting the user takes the session with it.
	if err := db.Delete(&User{}, "id = ?", "u1").Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}
	var cnt int64
	if err := db.Model(&Session{}).Where("user_id = ?", "u1").Count(&cnt).Error; err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if cnt != 0 {
		t.Fatalf("expected sessions to cascade-delete with user, got count=%d", cnt)
	}
}
