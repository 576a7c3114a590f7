package domain

import "time"

// Session is a server-side login session. The Token value is the opaque
// string carried by the HTTP-only session cookie; nothing about the user is
// ever encoded in the cookie itself. Rows past ExpiresAt are treated as
// nonexistent and purged opportunistically.
type Session struct {
	Token     string    `gorm:"type:char(36);primaryKey"`
	UserID    string    `gorm:"type:char(36);not null;index:idx_sessions_user"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index:idx_sessions_expiry"`

	// User owns the session; sessions are cascade-deleted with the user.
	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName implements the GORM tabler interface.
func (Session) TableName() string { return "sessions" }
