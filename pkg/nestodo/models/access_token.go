package models

import (
	"time"

	"gorm.io/gorm"
)

// AccessToken represents a personal access token for programmatic API access
type AccessToken struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	TokenHash  string         `gorm:"not null;index" json:"-"`
	Prefix     string         `gorm:"not null" json:"prefix"` // First few chars for identification
	Name       string         `json:"name"`
	LastUsedAt *time.Time     `json:"last_used_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
