package models

import "time"

// DailyStat is one row of aggregated metrics per UTC day, written by the
// nightly analytics job and read by the admin dashboard.
type DailyStat struct {
	ID                        uint      `gorm:"primaryKey" json:"id"`
	Date                      time.Time `gorm:"type:date;uniqueIndex" json:"date"`
	TotalViews                int64     `gorm:"default:0" json:"total_views"`
	PrevDayViewsChangePercent string    `gorm:"type:varchar(16);default:'0'" json:"prev_day_views_change_percent"`
	UserCount                 int64     `gorm:"default:0" json:"user_count"`
	PaidUserCount             int64     `gorm:"default:0" json:"paid_user_count"`
	UserDelta                 int64     `gorm:"default:0" json:"user_delta"`
	PaidUserDelta             int64     `gorm:"default:0" json:"paid_user_delta"`
	TotalRevenue              int64     `gorm:"default:0" json:"total_revenue"`
	CreatedAt                 time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                 time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PageViewSource attributes a day's visitors to a traffic source.
type PageViewSource struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DailyStatID uint      `gorm:"not null;index" json:"daily_stat_id"`
	Date        time.Time `gorm:"type:date;index" json:"date"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Visitors    int64     `gorm:"default:0" json:"visitors"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
