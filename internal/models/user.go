// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

const (
	// DefaultImageURL is the profile picture assigned when a user supplies none.
	DefaultImageURL = "/static/images/default-pic.png"
	// DefaultHeaderImageURL is the profile header assigned when a user supplies none.
	DefaultHeaderImageURL = "/static/images/warbler-hero.jpg"
)

// User represents a registered Warbler account.
// Messages, follow edges and likes live in their own tables and are
// reached through the repositories rather than through embedded collections.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	Password       string    `gorm:"not null" json:"-"`
	ImageURL       string    `gorm:"not null" json:"image_url"`
	HeaderImageURL string    `gorm:"not null" json:"header_image_url"`
	Bio            string    `gorm:"type:text;not null" json:"bio"`
	Location       string    `gorm:"not null" json:"location"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}
