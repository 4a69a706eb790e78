package models

import (
	"time"

	"gorm.io/gorm"
)

// Todo represents a task within a group. A todo can nest under another
// todo in the same group via ParentID; a nil ParentID marks a root.
// CompletedAt is the sole completion signal: nil means incomplete.
type Todo struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Title       string         `gorm:"not null" json:"title"`
	Description *string        `json:"description"`
	ParentID    *uint          `gorm:"index" json:"parent_id"`
	GroupID     uint           `gorm:"not null;index" json:"group_id"`
	CompletedAt *time.Time     `json:"completed_at"`

	// Relationships
	Group    Group  `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	Parent   *Todo  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Todo `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

// IsCompleted reports whether the todo has been completed.
func (t *Todo) IsCompleted() bool {
	return t.CompletedAt != nil
}
