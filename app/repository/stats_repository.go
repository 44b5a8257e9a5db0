package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taskpilot/taskpilot/app/models"
)

// statsRepository implements the StatsRepository interface
type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new stats repository instance
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

// UpsertDailyStat writes the aggregate row for a day. The job may run more
// than once per day; the date key keeps one row per day.
func (r *statsRepository) UpsertDailyStat(stat *models.DailyStat) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_views",
			"prev_day_views_change_percent",
			"user_count",
			"paid_user_count",
			"user_delta",
			"paid_user_delta",
			"total_revenue",
			"updated_at",
		}),
	}).Create(stat).Error
}

func (r *statsRepository) GetLatest() (*models.DailyStat, error) {
	var stat models.DailyStat
	if err := r.db.Order("date DESC").First(&stat).Error; err != nil {
		return nil, err
	}
	return &stat, nil
}

func (r *statsRepository) GetRange(startDate, endDate time.Time) ([]models.DailyStat, error) {
	var stats []models.DailyStat
	err := r.db.Where("date BETWEEN ? AND ?", startDate, endDate).Order("date ASC").Find(&stats).Error
	return stats, err
}

func (r *statsRepository) GetByDate(date time.Time) (*models.DailyStat, error) {
	var stat models.DailyStat
	if err := r.db.Where("date = ?", date).First(&stat).Error; err != nil {
		return nil, err
	}
	return &stat, nil
}

// ReplaceViewSources swaps a stat row's traffic-source breakdown in one
// transaction.
func (r *statsRepository) ReplaceViewSources(statID uint, sources []models.PageViewSource) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("daily_stat_id = ?", statID).Delete(&models.PageViewSource{}).Error; err != nil {
			return err
		}
		if len(sources) == 0 {
			return nil
		}
		for i := range sources {
			sources[i].DailyStatID = statID
		}
		return tx.Create(&sources).Error
	})
}

func (r *statsRepository) GetViewSources(statID uint) ([]models.PageViewSource, error) {
	var sources []models.PageViewSource
	err := r.db.Where("daily_stat_id = ?", statID).Order("visitors DESC").Find(&sources).Error
	return sources, err
}
