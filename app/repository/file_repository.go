package repository

import (
	"github.com/taskpilot/taskpilot/app/models"
	"gorm.io/gorm"
)

// fileRepository implements the FileRepository interface
type fileRepository struct {
	db *gorm.DB
}

// NewFileRepository creates a new file repository instance
func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(file *models.File) error {
	return r.db.Create(file).Error
}

func (r *fileRepository) GetByID(id uint) (*models.File, error) {
	var file models.File
	if err := r.db.First(&file, id).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *fileRepository) GetByS3Key(key string) (*models.File, error) {
	var file models.File
	if err := r.db.Where("s3_key = ?", key).First(&file).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

// GetByUserID returns a user's uploads, newest first
func (r *fileRepository) GetByUserID(userID uint) ([]models.File, error) {
	var files []models.File
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&files).Error
	return files, err
}

func (r *fileRepository) Delete(id uint) error {
	return r.db.Delete(&models.File{}, id).Error
}
