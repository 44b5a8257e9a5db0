package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetTaskRepository returns the task repository instance
func (f *Factory) GetTaskRepository() TaskRepository {
	return f.GetRepositories().Task
}

// GetScheduleRepository returns the schedule repository instance
func (f *Factory) GetScheduleRepository() ScheduleRepository {
	return f.GetRepositories().Schedule
}

// GetFileRepository returns the file repository instance
func (f *Factory) GetFileRepository() FileRepository {
	return f.GetRepositories().File
}

// GetContactRepository returns the contact repository instance
func (f *Factory) GetContactRepository() ContactRepository {
	return f.GetRepositories().Contact
}

// GetStatsRepository returns the stats repository instance
func (f *Factory) GetStatsRepository() StatsRepository {
	return f.GetRepositories().Stats
}

// GetQueueRepository returns the queue repository instance
func (f *Factory) GetQueueRepository() QueueRepository {
	return f.GetRepositories().Queue
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
