// Package domain defines the persistence models for users, recipes, cooking
// attempts, and uploaded images. These types are mapped with GORM and form
// the core data layer of the application; their JSON tags are the wire
// contract of the HTTP API.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// User is a registered account. Authentication state lives in Session rows,
// never on the user itself, and the password hash is excluded from every
// JSON response.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: unique login identifier, stored trimmed and lowercased.
//   - PasswordHash: bcrypt hash of the password; never serialized.
//   - Name: optional display name.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID           string    `json:"id"        gorm:"type:char(36);primaryKey"`
	Email        string    `json:"email"     gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `json:"-"         gorm:"type:varchar(255);not null"`
	Name         *string   `json:"name"      gorm:"type:varchar(255)"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Recipe is the root aggregate: a dish the author is iterating on. The
// body/feedback/meta trio describes the current baseline; attempts record
// individual cooking runs against it.
//
// BestAttemptID is a denormalized pointer to one of the recipe's own
// attempts. It is a plain nullable column rather than a GORM association so
// that migration never has to order a circular recipe<->attempt foreign key;
// the services layer guarantees it only ever references an attempt whose
// RecipeID matches, and BestAttempt is resolved by an explicit lookup at
// read time.
type Recipe struct {
	ID            string         `json:"id"            gorm:"type:char(36);primaryKey"`
	AuthorID      *string        `json:"authorId"      gorm:"type:char(36);index:idx_recipes_author"`
	Title         string         `json:"title"         gorm:"type:varchar(255);not null"`
	Body          string         `json:"body"          gorm:"type:text"`
	Feedback      string         `json:"feedback"      gorm:"type:text"`
	Meta          datatypes.JSON `json:"meta"          gorm:"not null;default:'{}'" swaggertype:"object"`
	BestAttemptID *string        `json:"bestAttemptId" gorm:"type:char(36)"`
	CreatedAt     time.Time      `json:"createdAt"     gorm:"index:idx_recipes_created"`
	UpdatedAt     time.Time      `json:"updatedAt"`

	// Author owns the recipe; recipes are cascade-deleted with their
	// author. A nil AuthorID marks an anonymous recipe.
	Author *User `json:"-" gorm:"foreignKey:AuthorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	// Images are the photos attached directly to the recipe (as opposed
	// to one of its attempts).
	Images []Image `json:"images" gorm:"foreignKey:RecipeID;references:ID"`

	// BestAttempt is the resolved target of BestAttemptID. Populated by
	// the repo layer, not by GORM.
	BestAttempt *Attempt `json:"bestAttempt" gorm:"-"`
}

// TableName returns the database table name for Recipe.
func (Recipe) TableName() string { return "recipes" }

// Attempt is a single cooking run of a recipe. Attempts are append-only:
// they are created, listed, and deleted with their recipe, but never edited,
// so they carry no UpdatedAt.
type Attempt struct {
	ID       string         `json:"id"       gorm:"type:char(36);primaryKey"`
	RecipeID string         `json:"recipeId" gorm:"type:char(36);not null;index:idx_attempts_recipe,priority:1"`
	Body     string         `json:"body"     gorm:"type:text;not null"`
	Feedback string         `json:"feedback" gorm:"type:text"`
	Meta     datatypes.JSON `json:"meta"     gorm:"not null;default:'{}'" swaggertype:"object"`

	CreatedAt time.Time `json:"createdAt" gorm:"index:idx_attempts_recipe,priority:2"`

	// Recipe is the parent; attempts are cascade-deleted with it.
	Recipe *Recipe `json:"-" gorm:"foreignKey:RecipeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	// Images are the photos attached to this attempt.
	Images []Image `json:"images" gorm:"foreignKey:AttemptID;references:ID"`
}

// TableName returns the database table name for Attempt.
func (Attempt) TableName() string { return "attempts" }

// Image is a processed upload attached to exactly one recipe or one attempt.
// The file itself lives on disk under the configured upload directory; URL
// is the public path the router serves it from.
type Image struct {
	ID        string    `json:"id"  gorm:"type:char(36);primaryKey"`
	URL       string    `json:"url" gorm:"type:text;not null"`
	RecipeID  *string   `json:"-"   gorm:"type:char(36);index:idx_images_recipe"`
	AttemptID *string   `json:"-"   gorm:"type:char(36);index:idx_images_attempt"`
	CreatedAt time.Time `json:"createdAt"`

	Recipe  *Recipe  `json:"-" gorm:"foreignKey:RecipeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Attempt *Attempt `json:"-" gorm:"foreignKey:AttemptID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Image.
func (Image) TableName() string { return "images" }
