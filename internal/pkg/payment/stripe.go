package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/taskpilot/taskpilot/internal/pkg/env"
)

// Gateway wraps the Stripe SDK behind the operations this application needs:
// webhook signature verification, checkout/portal session creation, customer
// provisioning and line-item retrieval.
type Gateway struct {
	webhookSecret string
	appBaseURL    string
}

// NewGatewayFromEnv configures the global Stripe key and returns a gateway.
func NewGatewayFromEnv() *Gateway {
	stripe.Key = env.GetEnv("STRIPE_SECRET_KEY", "")

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}

	return &Gateway{
		webhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		appBaseURL:    base,
	}
}

// ConstructEvent verifies the webhook signature and parses the envelope.
// Verification happens before any payload parsing; a bad or missing
// signature rejects the delivery outright.
func (g *Gateway) ConstructEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	if strings.TrimSpace(signatureHeader) == "" {
		return stripe.Event{}, errors.New("stripe webhook signature not provided")
	}
	return webhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// SessionPriceID fetches a checkout session's line items and returns the
// single purchased price id. Zero or multiple items is a hard error.
func (g *Gateway) SessionPriceID(ctx context.Context, sessionID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	}
	params.AddExpand("line_items")

	sess, err := checkoutsession.Get(sessionID, params)
	if err != nil {
		return "", fmt.Errorf("retrieving checkout session %s: %w", sessionID, err)
	}
	if sess.LineItems == nil || len(sess.LineItems.Data) == 0 {
		return "", malformed("no line items in checkout session", nil)
	}
	if len(sess.LineItems.Data) > 1 {
		return "", malformed("more than one line item in checkout session", nil)
	}
	item := sess.LineItems.Data[0]
	if item.Price == nil || item.Price.ID == "" {
		return "", malformed("checkout session line item has no price", nil)
	}
	return item.Price.ID, nil
}

// EnsureCustomer returns the Stripe customer id for the given email,
// creating the customer if none exists yet.
func (g *Gateway) EnsureCustomer(ctx context.Context, email string) (string, error) {
	listParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	iter := customer.List(listParams)
	for iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("listing stripe customers: %w", err)
	}

	created, err := customer.New(&stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(email),
	})
	if err != nil {
		return "", fmt.Errorf("creating stripe customer: %w", err)
	}
	return created.ID, nil
}

// CreateCheckoutSession starts a checkout for the plan; the mode follows the
// plan effect (subscription plans use subscription mode, credit bundles a
// one-time payment).
func (g *Gateway) CreateCheckoutSession(ctx context.Context, customerID string, plan Plan) (*stripe.CheckoutSession, error) {
	mode := stripe.CheckoutSessionModeSubscription
	if plan.Effect.Kind == EffectCredits {
		mode = stripe.CheckoutSessionModePayment
	}

	params := &stripe.CheckoutSessionParams{
		Params:   stripe.Params{Context: ctx},
		Mode:     stripe.String(string(mode)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(plan.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.appBaseURL + "/checkout?success=true"),
		CancelURL:  stripe.String(g.appBaseURL + "/checkout?canceled=true"),
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}
	if sess.URL == "" {
		return nil, errors.New("stripe returned a checkout session without a url")
	}
	return sess, nil
}

// PortalURL creates a customer portal session and returns its URL.
func (g *Gateway) PortalURL(ctx context.Context, customerID string) (string, error) {
	sess, err := session.New(&stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(g.appBaseURL + "/account"),
	})
	if err != nil {
		return "", fmt.Errorf("creating customer portal session: %w", err)
	}
	return sess.URL, nil
}
