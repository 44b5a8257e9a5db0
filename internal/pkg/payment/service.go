package payment

import (
	"context"
	"time"

	"github.com/taskpilot/taskpilot/app/models"
)

// Subscription status values this pipeline writes. deleted is terminal for
// this logic; the absent (NULL) state is the initial one before any checkout.
const (
	StatusActive            = models.SubscriptionStatusActive
	StatusPastDue           = models.SubscriptionStatusPastDue
	StatusCancelAtPeriodEnd = models.SubscriptionStatusCancelAtPeriodEnd
	StatusDeleted           = models.SubscriptionStatusDeleted
)

// CheckoutLineItemSource resolves the purchased price of a completed checkout
// session. The webhook body does not embed line items, so they are fetched
// from the provider.
type CheckoutLineItemSource interface {
	SessionPriceID(ctx context.Context, sessionID string) (string, error)
}

// PaymentUpdate is a partial update to a user's billing state. Nil pointers
// mean "leave unchanged"; CreditsToAdd is additive (new = old + delta) while
// all other fields are replacements.
type PaymentUpdate struct {
	Plan         *PlanID
	Status       *string
	DatePaid     *time.Time
	CreditsToAdd int
}

// IsZero reports whether the update would change nothing.
func (u PaymentUpdate) IsZero() bool {
	return u.Plan == nil && u.Status == nil && u.DatePaid == nil && u.CreditsToAdd == 0
}

// Service routes parsed webhook events to their handlers and applies the
// resulting user payment-state updates.
//
// Service.HandleEvent on its own is NOT idempotent for the one-time credit
// grant path: applying the same checkout.session.completed twice grants
// credits twice. Callers must deduplicate by provider event id (see
// Repository.RecordEventIfNew) before invoking it.
type Service struct {
	repo      Repository
	catalog   *Catalog
	lineItems CheckoutLineItemSource

	now func() time.Time
}

// NewService wires the dispatcher from its collaborators.
func NewService(repo Repository, catalog *Catalog, lineItems CheckoutLineItemSource) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalog,
		lineItems: lineItems,
		now:       time.Now,
	}
}

// HandleRawEvent parses a full webhook envelope and dispatches it.
func (s *Service) HandleRawEvent(ctx context.Context, payload []byte) error {
	env, err := ParseEnvelope(payload)
	if err != nil {
		return err
	}
	return s.HandleEvent(ctx, env.Type, env.Data.Object)
}

// HandleEvent narrows the event object for the given type and applies it.
// Unrecognized types fail with UnhandledEventError carrying the exact type
// string.
func (s *Service) HandleEvent(ctx context.Context, eventType string, object []byte) error {
	switch eventType {
	case EventCheckoutSessionCompleted:
		session, err := parseSessionCompleted(object)
		if err != nil {
			return err
		}
		return s.handleCheckoutSessionCompleted(ctx, session)
	case EventInvoicePaid:
		invoice, err := parseInvoicePaid(object)
		if err != nil {
			return err
		}
		return s.handleInvoicePaid(ctx, invoice)
	case EventSubscriptionUpdated:
		sub, err := parseSubscriptionUpdated(object)
		if err != nil {
			return err
		}
		return s.handleSubscriptionUpdated(ctx, sub)
	case EventSubscriptionDeleted:
		sub, err := parseSubscriptionDeleted(object)
		if err != nil {
			return err
		}
		return s.handleSubscriptionDeleted(ctx, sub)
	default:
		return &UnhandledEventError{Type: eventType}
	}
}

// handleCheckoutSessionCompleted applies successful one-time payments.
// Subscription-mode checkouts are ignored here: subscription activation is
// deferred to the invoice.paid event for the same billing cycle.
func (s *Service) handleCheckoutSessionCompleted(ctx context.Context, session *SessionCompleted) error {
	if session.Mode != CheckoutModePayment || session.PaymentStatus != PaymentStatusPaid {
		return nil
	}

	priceID, err := s.lineItems.SessionPriceID(ctx, session.ID)
	if err != nil {
		return err
	}
	plan, err := s.catalog.ByPriceID(priceID)
	if err != nil {
		return err
	}

	now := s.now()
	update := PaymentUpdate{DatePaid: &now}
	switch plan.Effect.Kind {
	case EffectCredits:
		update.CreditsToAdd = plan.Effect.Amount
	case EffectSubscription:
		// A subscription plan paid through a one-time checkout only stamps
		// the payment date; status comes from invoice.paid.
	}

	return s.repo.ApplyPaymentUpdate(ctx, session.Customer, update)
}

func (s *Service) handleInvoicePaid(ctx context.Context, invoice *InvoicePaid) error {
	priceID, err := invoice.Lines.PriceID()
	if err != nil {
		return err
	}
	plan, err := s.catalog.ByPriceID(priceID)
	if err != nil {
		return err
	}

	status := StatusActive
	datePaid := time.Unix(invoice.PeriodStart, 0).UTC()
	return s.repo.ApplyPaymentUpdate(ctx, invoice.Customer, PaymentUpdate{
		Plan:     &plan.ID,
		Status:   &status,
		DatePaid: &datePaid,
	})
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, sub *SubscriptionUpdated) error {
	priceID, err := sub.Items.PriceID()
	if err != nil {
		return err
	}
	plan, err := s.catalog.ByPriceID(priceID)
	if err != nil {
		return err
	}

	var status string
	switch sub.Status {
	case StatusActive:
		if sub.CancelAtPeriodEnd {
			status = StatusCancelAtPeriodEnd
		} else {
			status = StatusActive
		}
	case StatusPastDue:
		status = StatusPastDue
	default:
		// Transitional provider states (incomplete, trialing, unpaid) do not
		// map onto our state machine and leave the row untouched.
		return nil
	}

	return s.repo.ApplyPaymentUpdate(ctx, sub.Customer, PaymentUpdate{
		Plan:   &plan.ID,
		Status: &status,
	})
}

// handleSubscriptionDeleted moves the user into the terminal deleted state.
// The plan is left in place for display purposes.
func (s *Service) handleSubscriptionDeleted(ctx context.Context, sub *SubscriptionDeleted) error {
	status := StatusDeleted
	return s.repo.ApplyPaymentUpdate(ctx, sub.Customer, PaymentUpdate{Status: &status})
}
