package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"

	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// Subscription status values written by the payment webhook pipeline.
// A NULL subscription_status means the user never subscribed.
const (
	SubscriptionStatusActive            = "active"
	SubscriptionStatusPastDue           = "past_due"
	SubscriptionStatusCancelAtPeriodEnd = "cancel_at_period_end"
	SubscriptionStatusDeleted           = "deleted"
)

// DefaultSignupCredits is the free AI-scheduler allowance for new accounts.
const DefaultSignupCredits = 3

type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Name             string     `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email            string     `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Password         string     `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role             string     `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status           string     `gorm:"type:varchar(50);default:'inactive'" json:"status" validate:"oneof=active inactive disabled"`
	ActivationToken  string     `gorm:"type:varchar(100);index" json:"-"`
	ActivationSentAt *time.Time `gorm:"type:timestamp;default:null" json:"-"`
	ResetToken       string     `gorm:"type:varchar(100);default:null;index" json:"-"`
	ResetSentAt      *time.Time `gorm:"type:timestamp;default:null" json:"-"`
	LastLoginAt      *time.Time `gorm:"type:timestamp;default:null" json:"last_login_at"`

	// Billing state, mutated only by the payment webhook pipeline (plus the
	// credit decrement in the AI scheduler).
	PaymentCustomerID  *string    `gorm:"type:varchar(191);uniqueIndex;default:null" json:"-"`
	SubscriptionPlan   *string    `gorm:"type:varchar(50);default:null" json:"subscription_plan,omitempty"`
	SubscriptionStatus *string    `gorm:"type:varchar(32);default:null;index" json:"subscription_status,omitempty"`
	DatePaid           *time.Time `gorm:"type:timestamp;default:null" json:"date_paid,omitempty"`
	Credits            int        `gorm:"not null;default:3" json:"credits" validate:"min=0"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()
	return v.Struct(u)
}

// IsSubscribed reports whether the user currently holds an entitling
// subscription. cancel_at_period_end still entitles until the period ends.
func (u *User) IsSubscribed() bool {
	if u.SubscriptionStatus == nil {
		return false
	}
	switch *u.SubscriptionStatus {
	case SubscriptionStatusActive, SubscriptionStatusCancelAtPeriodEnd:
		return true
	default:
		return false
	}
}

func CreateUser(username string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:            username,
		Email:           email,
		Password:        pw,
		Role:            ROLE_USER,
		Status:          STATUS_INACTIVE,
		ActivationToken: token,
		Credits:         DefaultSignupCredits,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken returns a random hex token for activation and reset links.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
