package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskpilot/taskpilot/app/models"
)

// memoryRepo keeps billing state in a map so handler semantics are testable
// without a database.
type memoryRepo struct {
	users  map[string]*models.User
	events map[string]*models.PaymentEvent
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		users:  make(map[string]*models.User),
		events: make(map[string]*models.PaymentEvent),
	}
}

func (r *memoryRepo) FindUserByCustomerID(_ context.Context, customerID string) (*models.User, error) {
	user, ok := r.users[customerID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepo) ApplyPaymentUpdate(ctx context.Context, customerID string, update PaymentUpdate) error {
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

func (r *memoryRepo) RecordEventIfNew(_ context.Context, event *models.PaymentEvent) (bool, *models.PaymentEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		return false, stored, nil
	}
	event.ID = uint(len(r.events) + 1)
	r.events[key] = event
	return true, event, nil
}

func (r *memoryRepo) MarkEventProcessed(_ context.Context, eventID uint, processingErr error) error {
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

func (r *memoryRepo) MarkEventFailed(_ context.Context, eventID uint, processingErr error) error {
	for _, event := range r.events {
		if event.ID == eventID {
			event.ProcessingError = processingErr.Error()
			return nil
		}
	}
	return errors.New("event not found")
}

// stubLineItems serves session -> price id lookups from a map.
type stubLineItems map[string]string

func (s stubLineItems) SessionPriceID(_ context.Context, sessionID string) (string, error) {
	priceID, ok := s[sessionID]
	if !ok {
		return "", malformed("no line items in event object", nil)
	}
	return priceID, nil
}

func newTestService(t *testing.T, repo Repository, lineItems CheckoutLineItemSource) *Service {
	t.Helper()
	svc := NewService(repo, testCatalog(t), lineItems)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestHandleEventUnknownType(t *testing.T) {
	svc := newTestService(t, newMemoryRepo(), stubLineItems{})

	err := svc.HandleEvent(context.Background(), "charge.refunded", []byte(`{}`))
	var unhandled *UnhandledEventError
	if !errors.As(err, &unhandled) {
		t.Fatalf("error = %v, want UnhandledEventError", err)
	}
	if unhandled.Type != "charge.refunded" {
		t.Fatalf("unhandled type = %q, want %q", unhandled.Type, "charge.refunded")
	}
}

func TestHandleInvoicePaidActivatesSubscription(t *testing.T) {
	repo := newMemoryRepo()
	repo.users["cus_abc"] = &models.User{}
	svc := newTestService(t, repo, stubLineItems{})

	err := svc.HandleRawEvent(context.Background(), []byte(`{
		"type": "invoice.paid",
		"data": {"object": {
			"id": "in_1",
			"customer": "cus_abc",
			"period_start": 1700000000,
			"lines": {"data": [{"pricing": {"price_details": {"price": "price_pro_monthly"}}}]}
		}}
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := repo.users["cus_abc"]
	if user.SubscriptionStatus == nil || *user.SubscriptionStatus != StatusActive {
		t.Fatalf("status = %v, want %q", user.SubscriptionStatus, StatusActive)
	}
	if user.SubscriptionPlan == nil || *user.SubscriptionPlan != string(PlanPro) {
		t.Fatalf("plan = %v, want %q", user.SubscriptionPlan, PlanPro)
	}
	want := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	if user.DatePaid == nil || !user.DatePaid.Equal(want) {
		t.Fatalf("date paid = %v, want %v", user.DatePaid, want)
	}
}

func TestHandleInvoicePaidIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	repo.users["cus_abc"] = &models.User{}
	svc := newTestService(t, repo, stubLineItems{})

	payload := []byte(`{
		"type": "invoice.paid",
		"data": {"object": {
			"id": "in_1",
			"customer": "cus_abc",
			"period_start": 1700000000,
			"lines": {"data": [{"price": {"id": "price_pro_monthly"}}]}
		}}
	}`)
	for i := 0; i < 2; i++ {
		if err := svc.HandleRawEvent(context.Background(), payload); err != nil {
			t.Fatalf("delivery %d: unexpected error: %v", i+1, err)
		}
	}

	user := repo.users["cus_abc"]
	if *user.SubscriptionStatus != StatusActive || *user.SubscriptionPlan != string(PlanPro) {
		t.Fatalf("state after redelivery = %q/%q", *user.SubscriptionStatus, *user.SubscriptionPlan)
	}
	if user.Credits != 0 {
		t.Fatalf("credits = %d, want 0", user.Credits)
	}
}

func TestHandleSubscriptionUpdated(t *testing.T) {
	active := StatusActive
	pro := string(PlanPro)

	tests := []struct {
		name              string
		status            string
		cancelAtPeriodEnd bool
		wantStatus        string
	}{
		{name: "active stays active", status: "active", wantStatus: StatusActive},
		{name: "pending cancellation", status: "active", cancelAtPeriodEnd: true, wantStatus: StatusCancelAtPeriodEnd},
		{name: "past due", status: "past_due", wantStatus: StatusPastDue},
		{name: "transitional status ignored", status: "incomplete", wantStatus: StatusActive},
	}

	for _, tt := range tests {
		repo := newMemoryRepo()
		status, plan := active, pro
		repo.users["cus_abc"] = &models.User{SubscriptionStatus: &status, SubscriptionPlan: &plan}
		svc := newTestService(t, repo, stubLineItems{})

		cancel := "false"
		if tt.cancelAtPeriodEnd {
			cancel = "true"
		}
		err := svc.HandleEvent(context.Background(), EventSubscriptionUpdated, []byte(`{
			"customer": "cus_abc",
			"status": "`+tt.status+`",
			"cancel_at_period_end": `+cancel+`,
			"items": {"data": [{"price": {"id": "price_pro_monthly"}}]}
		}`))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if got := *repo.users["cus_abc"].SubscriptionStatus; got != tt.wantStatus {
			t.Fatalf("%s: status = %q, want %q", tt.name, got, tt.wantStatus)
		}
	}
}

func TestHandleSubscriptionDeletedKeepsPlan(t *testing.T) {
	repo := newMemoryRepo()
	status, plan := StatusActive, string(PlanPro)
	repo.users["cus_abc"] = &models.User{SubscriptionStatus: &status, SubscriptionPlan: &plan}
	svc := newTestService(t, repo, stubLineItems{})

	err := svc.HandleEvent(context.Background(), EventSubscriptionDeleted, []byte(`{"customer":"cus_abc"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := repo.users["cus_abc"]
	if *user.SubscriptionStatus != StatusDeleted {
		t.Fatalf("status = %q, want %q", *user.SubscriptionStatus, StatusDeleted)
	}
	if user.SubscriptionPlan == nil || *user.SubscriptionPlan != string(PlanPro) {
		t.Fatalf("plan = %v, want it untouched", user.SubscriptionPlan)
	}
}

func TestHandleCheckoutSessionCompletedGrantsCredits(t *testing.T) {
	repo := newMemoryRepo()
	repo.users["cus_abc"] = &models.User{Credits: 0}
	svc := newTestService(t, repo, stubLineItems{"cs_test_1": "price_123"})

	err := svc.HandleEvent(context.Background(), EventCheckoutSessionCompleted, []byte(`{
		"id": "cs_test_1",
		"customer": "cus_abc",
		"payment_status": "paid",
		"mode": "payment"
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := repo.users["cus_abc"]
	if user.Credits != 10 {
		t.Fatalf("credits = %d, want 10", user.Credits)
	}
	if user.DatePaid == nil {
		t.Fatal("date paid not set")
	}
	if user.SubscriptionStatus != nil {
		t.Fatalf("status = %q, want unset", *user.SubscriptionStatus)
	}
}

// The credit grant by itself is additive on every delivery; the webhook
// controller prevents redelivery from reaching it via RecordEventIfNew.
func TestHandleCheckoutSessionCompletedRedeliveryDoublesCredits(t *testing.T) {
	repo := newMemoryRepo()
	repo.users["cus_abc"] = &models.User{Credits: 0}
	svc := newTestService(t, repo, stubLineItems{"cs_test_1": "price_123"})

	payload := []byte(`{
		"id": "cs_test_1",
		"customer": "cus_abc",
		"payment_status": "paid",
		"mode": "payment"
	}`)
	for i := 0; i < 2; i++ {
		if err := svc.HandleEvent(context.Background(), EventCheckoutSessionCompleted, payload); err != nil {
			t.Fatalf("delivery %d: unexpected error: %v", i+1, err)
		}
	}

	if got := repo.users["cus_abc"].Credits; got != 20 {
		t.Fatalf("credits = %d, want 20", got)
	}
}

func TestHandleCheckoutSessionCompletedSkipsNonPaymentSessions(t *testing.T) {
	tests := []struct {
		name          string
		paymentStatus string
		mode          string
	}{
		{name: "unpaid session", paymentStatus: "unpaid", mode: "payment"},
		{name: "subscription mode", paymentStatus: "paid", mode: "subscription"},
	}

	for _, tt := range tests {
		repo := newMemoryRepo()
		repo.users["cus_abc"] = &models.User{}
		svc := newTestService(t, repo, stubLineItems{"cs_test_1": "price_123"})

		err := svc.HandleEvent(context.Background(), EventCheckoutSessionCompleted, []byte(`{
			"id": "cs_test_1",
			"customer": "cus_abc",
			"payment_status": "`+tt.paymentStatus+`",
			"mode": "`+tt.mode+`"
		}`))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		user := repo.users["cus_abc"]
		if user.Credits != 0 || user.DatePaid != nil {
			t.Fatalf("%s: user changed: credits=%d datePaid=%v", tt.name, user.Credits, user.DatePaid)
		}
	}
}

func TestHandleEventUnknownCustomer(t *testing.T) {
	svc := newTestService(t, newMemoryRepo(), stubLineItems{})

	err := svc.HandleEvent(context.Background(), EventSubscriptionDeleted, []byte(`{"customer":"cus_nobody"}`))
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("error = %v, want ErrUserNotFound", err)
	}
}

func TestHandleInvoicePaidUnknownPrice(t *testing.T) {
	repo := newMemoryRepo()
	repo.users["cus_abc"] = &models.User{}
	svc := newTestService(t, repo, stubLineItems{})

	err := svc.HandleEvent(context.Background(), EventInvoicePaid, []byte(`{
		"id": "in_1",
		"customer": "cus_abc",
		"period_start": 1700000000,
		"lines": {"data": [{"price": {"id": "price_999"}}]}
	}`))
	if !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("error = %v, want ErrPlanNotFound", err)
	}
}
