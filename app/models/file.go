package models

import "time"

// File is a user upload stored in S3. The row is created only after the
// object existence has been confirmed against the bucket.
type File struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name" validate:"required,max=255"`
	Type      string    `gorm:"type:varchar(100);not null" json:"type"`
	S3Key     string    `gorm:"type:varchar(512);not null;uniqueIndex" json:"s3_key"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
