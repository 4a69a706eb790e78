package models

import (
	"time"

	"gorm.io/gorm"
)

// Group represents a named, user-owned collection of todos.
// Names are unique per owner, not globally.
type Group struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"not null;index" json:"name"`
	OwnerID   uint           `gorm:"not null;index" json:"owner_id"`

	// Relationships
	Owner User   `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Todos []Todo `gorm:"foreignKey:GroupID" json:"todos,omitempty"`
}
