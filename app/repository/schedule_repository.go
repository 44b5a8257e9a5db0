package repository

import (
	"time"

	"github.com/taskpilot/taskpilot/app/models"
	"gorm.io/gorm"
)

// scheduleRepository implements the ScheduleRepository interface
type scheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository creates a new schedule repository instance
func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Create(schedule *models.Schedule) error {
	return r.db.Create(schedule).Error
}

// GetLatestByUserID returns the most recent generated plan for a user
func (r *scheduleRepository) GetLatestByUserID(userID uint) (*models.Schedule, error) {
	var schedule models.Schedule
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepository) GetByUserID(userID uint, offset, limit int) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&schedules).Error
	return schedules, err
}

// CountSince counts generations across all users from the given instant
func (r *scheduleRepository) CountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Schedule{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

// CountByUserIDSince counts a single user's generations, used for daily caps
func (r *scheduleRepository) CountByUserIDSince(userID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Schedule{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}
