package models

import "time"

// Task is a user to-do item fed into the AI day planner.
type Task struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Description string    `gorm:"type:varchar(500);not null" json:"description" validate:"required,max=500"`
	Time        string    `gorm:"type:varchar(10);default:'1'" json:"time"`
	IsDone      bool      `gorm:"default:false" json:"is_done"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
