package models

import "time"

// ContactMessage is a support/contact form entry, surfaced in the admin API.
type ContactMessage struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Content   string     `gorm:"type:text;not null" json:"content" validate:"required,max=5000"`
	IsRead    bool       `gorm:"default:false;index" json:"is_read"`
	RepliedAt *time.Time `gorm:"type:timestamp;default:null" json:"replied_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
