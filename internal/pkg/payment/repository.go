package payment

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taskpilot/taskpilot/app/models"
)

// Repository provides the DB operations used by the webhook pipeline.
type Repository interface {
	// FindUserByCustomerID locates exactly one user by the provider's
	// customer id; ErrUserNotFound when none exists.
	FindUserByCustomerID(ctx context.Context, customerID string) (*models.User, error)
	// ApplyPaymentUpdate applies a partial billing-state update to the user
	// identified by customerID. Credits are added, never replaced.
	ApplyPaymentUpdate(ctx context.Context, customerID string, update PaymentUpdate) error
	// RecordEventIfNew persists a webhook event keyed by (provider, event
	// id). The boolean reports whether this delivery was the first one.
	RecordEventIfNew(ctx context.Context, event *models.PaymentEvent) (bool, *models.PaymentEvent, error)
	// MarkEventProcessed stamps the event as terminally handled. A stamped
	// event is never reprocessed on redelivery.
	MarkEventProcessed(ctx context.Context, eventID uint, processingErr error) error
	// MarkEventFailed records a retryable failure without stamping
	// processed_at, so the provider's redelivery gets another attempt.
	MarkEventFailed(ctx context.Context, eventID uint, processingErr error) error
}

var nowFunc = time.Now

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindUserByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("payment_customer_id = ?", customerID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) ApplyPaymentUpdate(ctx context.Context, customerID string, update PaymentUpdate) error {
	if update.IsZero() {
		return nil
	}

	user, err := r.FindUserByCustomerID(ctx, customerID)
	if err != nil {
		return err
	}

	values := map[string]interface{}{}
	if update.Plan != nil {
		values["subscription_plan"] = string(*update.Plan)
	}
	if update.Status != nil {
		values["subscription_status"] = *update.Status
	}
	if update.DatePaid != nil {
		values["date_paid"] = *update.DatePaid
	}
	if update.CreditsToAdd != 0 {
		values["credits"] = gorm.Expr("credits + ?", update.CreditsToAdd)
	}

	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(values).Error
}

func (r *gormRepository) RecordEventIfNew(ctx context.Context, event *models.PaymentEvent) (bool, *models.PaymentEvent, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentEvent
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkEventProcessed(ctx context.Context, eventID uint, processingErr error) error {
	now := nowFunc()
	values := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": "",
	}
	if processingErr != nil {
		values["processing_error"] = processingErr.Error()
	}
	return r.db.WithContext(ctx).
		Model(&models.PaymentEvent{}).
		Where("id = ?", eventID).
		Updates(values).Error
}

func (r *gormRepository) MarkEventFailed(ctx context.Context, eventID uint, processingErr error) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentEvent{}).
		Where("id = ?", eventID).
		Update("processing_error", processingErr.Error()).Error
}
