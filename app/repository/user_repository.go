package repository

import (
	"strings"

	"github.com/taskpilot/taskpilot/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByActivationToken retrieves a user by their activation token
func (r *userRepository) GetByActivationToken(token string) (*models.User, error) {
	var user models.User
	err := r.db.Where("activation_token = ?", token).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByResetToken retrieves a user by their password reset token
func (r *userRepository) GetByResetToken(token string) (*models.User, error) {
	var user models.User
	err := r.db.Where("reset_token = ?", token).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByPaymentCustomerID retrieves a user by their billing customer id
func (r *userRepository) GetByPaymentCustomerID(customerID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("payment_customer_id = ?", customerID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Delete soft deletes a user by their ID
func (r *userRepository) Delete(id uint) error {
	return r.db.Delete(&models.User{}, id).Error
}

func (r *userRepository) filtered(filter UserFilter) *gorm.DB {
	query := r.db.Model(&models.User{})
	if q := strings.TrimSpace(filter.EmailContains); q != "" {
		query = query.Where("email LIKE ?", "%"+q+"%")
	}
	if len(filter.SubscriptionStatuses) > 0 || filter.StatusNone {
		if filter.StatusNone && len(filter.SubscriptionStatuses) > 0 {
			query = query.Where("subscription_status IN ? OR subscription_status IS NULL", filter.SubscriptionStatuses)
		} else if filter.StatusNone {
			query = query.Where("subscription_status IS NULL")
		} else {
			query = query.Where("subscription_status IN ?", filter.SubscriptionStatuses)
		}
	}
	if filter.IsAdmin != nil {
		role := models.ROLE_USER
		if *filter.IsAdmin {
			role = models.ROLE_ADMIN
		}
		query = query.Where("role = ?", role)
	}
	return query
}

// List retrieves a filtered, paginated list of users
func (r *userRepository) List(filter UserFilter, offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.filtered(filter).Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

// Count returns the number of users matching the filter
func (r *userRepository) Count(filter UserFilter) (int64, error) {
	var count int64
	err := r.filtered(filter).Count(&count).Error
	return count, err
}

// CountAll returns the total number of users
func (r *userRepository) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

// CountPaid returns the number of users with an entitling subscription
func (r *userRepository) CountPaid() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("subscription_status IN ?", []string{
			models.SubscriptionStatusActive,
			models.SubscriptionStatusCancelAtPeriodEnd,
		}).
		Count(&count).Error
	return count, err
}

// SetRole changes a user's role
func (r *userRepository) SetRole(id uint, role string) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("role", role).Error
}

// DecrementCredits spends one credit; the guard keeps the balance from going
// negative under concurrent generations.
func (r *userRepository) DecrementCredits(id uint) error {
	return r.db.Model(&models.User{}).
		Where("id = ? AND credits > 0", id).
		Update("credits", gorm.Expr("credits - 1")).Error
}

// SetPaymentCustomerID stores the billing customer id after first checkout
func (r *userRepository) SetPaymentCustomerID(id uint, customerID string) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("payment_customer_id", customerID).Error
}
