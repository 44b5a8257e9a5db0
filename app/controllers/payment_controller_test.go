package controllers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot/app/models"
	"github.com/taskpilot/taskpilot/internal/pkg/payment"
)

const testWebhookSecret = "whsec_test_secret"

// fakeBillingRepo keeps billing state in maps so the webhook contract is
// testable without a database.
type fakeBillingRepo struct {
	users  map[string]*models.User
	events map[string]*models.PaymentEvent
}

func newFakeBillingRepo() *fakeBillingRepo {
	return &fakeBillingRepo{
		users:  make(map[string]*models.User),
		events: make(map[string]*models.PaymentEvent),
	}
}

func (r *fakeBillingRepo) FindUserByCustomerID(_ context.Context, customerID string) (*models.User, error) {
	user, ok := r.users[customerID]
	if !ok {
		return nil, payment.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeBillingRepo) ApplyPaymentUpdate(ctx context.Context, customerID string, update payment.PaymentUpdate) error {
	user, err := r.FindUserByCustomerID(ctx, customerID)
	if err != nil {
		return err
	}
	if update.Plan != nil {
		plan := string(*update.Plan)
		user.SubscriptionPlan = &plan
	}
	if update.Status != nil {
		status := *update.Status
		user.SubscriptionStatus = &status
	}
	if update.DatePaid != nil {
		datePaid := *update.DatePaid
		user.DatePaid = &datePaid
	}
	user.Credits += update.CreditsToAdd
	return nil
}

func (r *fakeBillingRepo) RecordEventIfNew(_ context.Context, event *models.PaymentEvent) (bool, *models.PaymentEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		return false, stored, nil
	}
	event.ID = uint(len(r.events) + 1)
	r.events[key] = event
	return true, event, nil
}

func (r *fakeBillingRepo) MarkEventProcessed(_ context.Context, eventID uint, processingErr error) error {
	for _, event := range r.events {
		if event.ID == eventID {
			now := time.Now()
			event.ProcessedAt = &now
			if processingErr != nil {
				event.ProcessingError = processingErr.Error()
			}
			return nil
		}
	}
	return errors.New("event not found")
}

func (r *fakeBillingRepo) MarkEventFailed(_ context.Context, eventID uint, processingErr error) error {
	for _, event := range r.events {
		if event.ID == eventID {
			event.ProcessingError = processingErr.Error()
			return nil
		}
	}
	return errors.New("event not found")
}

func (r *fakeBillingRepo) storedEvent(t *testing.T, eventID string) *models.PaymentEvent {
	t.Helper()
	event, ok := r.events[models.PaymentProviderStripe+"/"+eventID]
	require.True(t, ok, "event %s not recorded", eventID)
	return event
}

type fakeLineItems map[string]string

func (f fakeLineItems) SessionPriceID(_ context.Context, sessionID string) (string, error) {
	priceID, ok := f[sessionID]
	if !ok {
		return "", errors.New("unknown session")
	}
	return priceID, nil
}

func newWebhookTestApp(t *testing.T, repo payment.Repository) *fiber.App {
	t.Helper()
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)

	catalog, err := payment.NewCatalog(payment.Plan{
		ID:      payment.PlanPro,
		Name:    "Pro",
		PriceID: "price_pro_monthly",
		Effect:  payment.Effect{Kind: payment.EffectSubscription},
	})
	require.NoError(t, err)

	Gateway = payment.NewGatewayFromEnv()
	PaymentCatalog = catalog
	PaymentRepo = repo
	PaymentService = payment.NewService(repo, catalog, fakeLineItems{})

	app := fiber.New()
	app.Post("/webhooks/stripe", HandlePaymentWebhook)
	return app
}

func signedWebhookHeader(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func postWebhook(t *testing.T, app *fiber.App, payload []byte, signature string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signature)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	repo := newFakeBillingRepo()
	app := newWebhookTestApp(t, repo)

	payload := []byte(`{"id":"evt_sig_1","type":"invoice.paid","data":{"object":{}}}`)
	status, body := postWebhook(t, app, payload, signedWebhookHeader(payload, "whsec_wrong"))

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_signature", body["error"])
	assert.Empty(t, repo.events, "rejected deliveries must not enter the ledger")
}

func TestWebhookUnhandledEventType(t *testing.T) {
	repo := newFakeBillingRepo()
	app := newWebhookTestApp(t, repo)

	payload := []byte(`{"id":"evt_ref_1","type":"charge.refunded","data":{"object":{}}}`)
	status, body := postWebhook(t, app, payload, signedWebhookHeader(payload, testWebhookSecret))

	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "unhandled_event_type", body["error"])
	assert.Equal(t, true, body["received"])

	// terminal outcome: the redelivery is acknowledged without reprocessing
	assert.NotNil(t, repo.storedEvent(t, "evt_ref_1").ProcessedAt)
	status, body = postWebhook(t, app, payload, signedWebhookHeader(payload, testWebhookSecret))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["duplicate"])
}

func TestWebhookMalformedEvent(t *testing.T) {
	repo := newFakeBillingRepo()
	app := newWebhookTestApp(t, repo)

	// invoice.paid without a customer fails strict validation
	payload := []byte(`{"id":"evt_mal_1","type":"invoice.paid","data":{"object":{"id":"in_1","period_start":1700000000}}}`)
	status, body := postWebhook(t, app, payload, signedWebhookHeader(payload, testWebhookSecret))

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "malformed_event", body["error"])
	assert.NotNil(t, repo.storedEvent(t, "evt_mal_1").ProcessedAt)
}

func TestWebhookProcessesAndDeduplicates(t *testing.T) {
	repo := newFakeBillingRepo()
	active := "active"
	repo.users["cus_abc"] = &models.User{ID: 1, SubscriptionStatus: &active}
	app := newWebhookTestApp(t, repo)

	payload := []byte(`{"id":"evt_del_1","type":"customer.subscription.deleted","data":{"object":{"customer":"cus_abc"}}}`)
	status, body := postWebhook(t, app, payload, signedWebhookHeader(payload, testWebhookSecret))

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["received"])
	assert.Nil(t, body["duplicate"])
	require.NotNil(t, repo.users["cus_abc"].SubscriptionStatus)
	assert.Equal(t, "deleted", *repo.users["cus_abc"].SubscriptionStatus)

	status, body = postWebhook(t, app, payload, signedWebhookHeader(payload, testWebhookSecret))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["duplicate"])
}

func TestWebhookRedeliveryRetriesAfterFailure(t *testing.T) {
	repo := newFakeBillingRepo()
	app := newWebhookTestApp(t, repo)

	// delivery 1: the customer is not provisioned yet, processing fails
	// retryably with 500 and the event stays unstamped
	payload := []byte(`{"id":"evt_del_2","type":"customer.subscription.deleted","data":{"object":{"customer":"cus_late"}}}`)
	status, body := postWebhook(t, app, payload, signedWebhookHeader(payload, testWebhookSecret))

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "internal_server_error", body["error"])
	stored := repo.storedEvent(t, "evt_del_2")
	assert.Nil(t, stored.ProcessedAt)
	assert.NotEmpty(t, stored.ProcessingError)

	// delivery 2: the account exists now, the redelivery must reprocess
	// instead of being swallowed as a duplicate
	active := "active"
	repo.users["cus_late"] = &models.User{ID: 2, SubscriptionStatus: &active}
	status, body = postWebhook(t, app, payload, signedWebhookHeader(payload, testWebhookSecret))

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["received"])
	assert.Nil(t, body["duplicate"])
	require.NotNil(t, repo.users["cus_late"].SubscriptionStatus)
	assert.Equal(t, "deleted", *repo.users["cus_late"].SubscriptionStatus)
	assert.NotNil(t, repo.storedEvent(t, "evt_del_2").ProcessedAt)

	// delivery 3: now it is a real duplicate
	status, body = postWebhook(t, app, payload, signedWebhookHeader(payload, testWebhookSecret))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["duplicate"])
}
