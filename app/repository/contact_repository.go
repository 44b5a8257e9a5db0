package repository

import (
	"time"

	"github.com/taskpilot/taskpilot/app/models"
	"gorm.io/gorm"
)

// contactRepository implements the ContactRepository interface
type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new contact repository instance
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(message *models.ContactMessage) error {
	return r.db.Create(message).Error
}

func (r *contactRepository) GetByID(id uint) (*models.ContactMessage, error) {
	var message models.ContactMessage
	if err := r.db.First(&message, id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// List returns contact messages, unread and newest first
func (r *contactRepository) List(offset, limit int) ([]models.ContactMessage, error) {
	var messages []models.ContactMessage
	err := r.db.Order("is_read ASC, created_at DESC").Offset(offset).Limit(limit).Find(&messages).Error
	return messages, err
}

func (r *contactRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.ContactMessage{}).Count(&count).Error
	return count, err
}

func (r *contactRepository) MarkRead(id uint) error {
	return r.db.Model(&models.ContactMessage{}).Where("id = ?", id).Update("is_read", true).Error
}

func (r *contactRepository) MarkReplied(id uint) error {
	now := time.Now()
	return r.db.Model(&models.ContactMessage{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_read": true, "replied_at": &now}).Error
}
