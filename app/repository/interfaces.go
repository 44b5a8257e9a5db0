package repository

import (
	"time"

	"github.com/taskpilot/taskpilot/app/models"
	"gorm.io/gorm"
)

// UserFilter narrows admin user listings. Nil fields are ignored.
// StatusNone selects users whose subscription_status is NULL, i.e. users who
// never went through checkout.
type UserFilter struct {
	EmailContains        string
	SubscriptionStatuses []string
	StatusNone           bool
	IsAdmin              *bool
}

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	GetByResetToken(token string) (*models.User, error)
	GetByPaymentCustomerID(customerID string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(filter UserFilter, offset, limit int) ([]models.User, error)
	Count(filter UserFilter) (int64, error)
	CountAll() (int64, error)
	CountPaid() (int64, error)
	SetRole(id uint, role string) error
	DecrementCredits(id uint) error
	SetPaymentCustomerID(id uint, customerID string) error
}

// TaskRepository defines the interface for task-related database operations
type TaskRepository interface {
	Create(task *models.Task) error
	GetByID(id uint) (*models.Task, error)
	GetByUserID(userID uint) ([]models.Task, error)
	Update(task *models.Task) error
	Delete(id uint) error
	CountByUserID(userID uint) (int64, error)
}

// ScheduleRepository defines the interface for AI planner results
type ScheduleRepository interface {
	Create(schedule *models.Schedule) error
	GetLatestByUserID(userID uint) (*models.Schedule, error)
	GetByUserID(userID uint, offset, limit int) ([]models.Schedule, error)
	CountSince(since time.Time) (int64, error)
	CountByUserIDSince(userID uint, since time.Time) (int64, error)
}

// FileRepository defines the interface for file metadata operations
type FileRepository interface {
	Create(file *models.File) error
	GetByID(id uint) (*models.File, error)
	GetByS3Key(key string) (*models.File, error)
	GetByUserID(userID uint) ([]models.File, error)
	Delete(id uint) error
}

// ContactRepository defines the interface for contact form messages
type ContactRepository interface {
	Create(message *models.ContactMessage) error
	GetByID(id uint) (*models.ContactMessage, error)
	List(offset, limit int) ([]models.ContactMessage, error)
	Count() (int64, error)
	MarkRead(id uint) error
	MarkReplied(id uint) error
}

// StatsRepository defines the interface for aggregated analytics rows
type StatsRepository interface {
	UpsertDailyStat(stat *models.DailyStat) error
	GetLatest() (*models.DailyStat, error)
	GetRange(startDate, endDate time.Time) ([]models.DailyStat, error)
	GetByDate(date time.Time) (*models.DailyStat, error)
	ReplaceViewSources(statID uint, sources []models.PageViewSource) error
	GetViewSources(statID uint) ([]models.PageViewSource, error)
}

// QueueRepository defines the interface for cache/queue inspection
type QueueRepository interface {
	GetAllKeys() ([]string, error)
	GetValue(key string) (string, error)
	GetTTL(key string) (time.Duration, error)
	DeleteKey(key string) (int64, error)
	GetListLength(key string) (int64, error)
	FindKeysByPatterns(patterns []string) ([]string, error)
	DeleteKeys(keys []string) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User     UserRepository
	Task     TaskRepository
	Schedule ScheduleRepository
	File     FileRepository
	Contact  ContactRepository
	Stats    StatsRepository
	Queue    QueueRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Task:     NewTaskRepository(db),
		Schedule: NewScheduleRepository(db),
		File:     NewFileRepository(db),
		Contact:  NewContactRepository(db),
		Stats:    NewStatsRepository(db),
		Queue:    NewQueueRepository(),
	}
}
