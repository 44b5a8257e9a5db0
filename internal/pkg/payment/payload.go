package payment

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

// Recognized webhook event types.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventInvoicePaid              = "invoice.paid"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
)

// Checkout session payment states and modes as Stripe delivers them.
const (
	PaymentStatusPaid = "paid"

	CheckoutModePayment      = "payment"
	CheckoutModeSubscription = "subscription"
)

var validate = validator.New()

// Envelope is the outer webhook shape: a type string and an opaque object.
type Envelope struct {
	Type string `json:"type" validate:"required"`
	Data struct {
		Object json.RawMessage `json:"object" validate:"required"`
	} `json:"data"`
}

// ParseEnvelope validates the outer event shape without touching the inner
// object; the inner object is narrowed per event type by the dispatcher.
func ParseEnvelope(payload []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, malformed("event envelope is not valid JSON", err)
	}
	if err := validate.Struct(&env); err != nil {
		return nil, malformed("event envelope is missing type or data.object", err)
	}
	return &env, nil
}

// SessionCompleted is the narrowed checkout.session.completed object.
type SessionCompleted struct {
	ID            string `json:"id" validate:"required"`
	Customer      string `json:"customer" validate:"required"`
	PaymentStatus string `json:"payment_status" validate:"required,oneof=paid unpaid no_payment_required"`
	Mode          string `json:"mode" validate:"required,oneof=payment subscription"`
}

// InvoicePaid is the narrowed invoice.paid object.
type InvoicePaid struct {
	ID          string   `json:"id" validate:"required"`
	Customer    string   `json:"customer" validate:"required"`
	PeriodStart int64    `json:"period_start" validate:"required"`
	Lines       ItemList `json:"lines"`
}

// SubscriptionUpdated is the narrowed customer.subscription.updated object.
type SubscriptionUpdated struct {
	Customer          string   `json:"customer" validate:"required"`
	Status            string   `json:"status" validate:"required"`
	CancelAtPeriodEnd bool     `json:"cancel_at_period_end"`
	Items             ItemList `json:"items"`
}

// SubscriptionDeleted is the narrowed customer.subscription.deleted object.
type SubscriptionDeleted struct {
	Customer string `json:"customer" validate:"required"`
}

// ItemList is a Stripe line-item collection. Invoices carry the price under
// pricing.price_details.price, subscription items under price.id; both are
// accepted.
type ItemList struct {
	Data []Item `json:"data"`
}

type Item struct {
	Price   *priceRef   `json:"price"`
	Pricing *pricingRef `json:"pricing"`
}

type priceRef struct {
	ID string `json:"id"`
}

type pricingRef struct {
	PriceDetails *priceDetails `json:"price_details"`
}

type priceDetails struct {
	Price string `json:"price"`
}

// PriceID returns the single price id in the list. Multi-item checkouts are
// unsupported: zero or multiple items is a hard error.
func (l ItemList) PriceID() (string, error) {
	if len(l.Data) == 0 {
		return "", malformed("no line items in event object", nil)
	}
	if len(l.Data) > 1 {
		return "", malformed("more than one line item in event object", nil)
	}

	item := l.Data[0]
	if item.Price != nil && item.Price.ID != "" {
		return item.Price.ID, nil
	}
	if item.Pricing != nil && item.Pricing.PriceDetails != nil && item.Pricing.PriceDetails.Price != "" {
		return item.Pricing.PriceDetails.Price, nil
	}
	return "", malformed("unable to extract price id from line item", nil)
}

func parseSessionCompleted(object []byte) (*SessionCompleted, error) {
	var s SessionCompleted
	if err := decodeObject(object, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func parseInvoicePaid(object []byte) (*InvoicePaid, error) {
	var inv InvoicePaid
	if err := decodeObject(object, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func parseSubscriptionUpdated(object []byte) (*SubscriptionUpdated, error) {
	var sub SubscriptionUpdated
	if err := decodeObject(object, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func parseSubscriptionDeleted(object []byte) (*SubscriptionDeleted, error) {
	var sub SubscriptionDeleted
	if err := decodeObject(object, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func decodeObject(object []byte, out interface{}) error {
	if err := json.Unmarshal(object, out); err != nil {
		return malformed("event object is not valid JSON", err)
	}
	if err := validate.Struct(out); err != nil {
		return malformed("event object failed schema validation", err)
	}
	return nil
}
