package payment

import (
	"fmt"

	"github.com/taskpilot/taskpilot/internal/pkg/env"
)

// PlanID identifies an internal payment plan.
type PlanID string

const (
	PlanHobby     PlanID = "hobby"
	PlanPro       PlanID = "pro"
	PlanCredits10 PlanID = "credits10"
)

// EffectKind discriminates what purchasing a plan does.
type EffectKind string

const (
	// EffectSubscription confers a status-gated feature tier.
	EffectSubscription EffectKind = "subscription"
	// EffectCredits grants a fixed credit amount once.
	EffectCredits EffectKind = "credits"
)

// Effect is the consequence of purchasing a plan. Amount is only meaningful
// for EffectCredits and is always positive there.
type Effect struct {
	Kind   EffectKind
	Amount int
}

// Plan maps an internal plan to its Stripe price and purchase effect.
type Plan struct {
	ID      PlanID
	Name    string
	PriceID string
	Effect  Effect
}

// Catalog is the static plan table. It is built once at startup and never
// mutated afterwards; handlers receive it by injection.
type Catalog struct {
	plans []Plan
}

// NewCatalog validates the plan set and returns an immutable catalog.
func NewCatalog(plans ...Plan) (*Catalog, error) {
	for _, p := range plans {
		if p.ID == "" || p.PriceID == "" {
			return nil, fmt.Errorf("payment: plan %q is missing its id or price id", p.ID)
		}
		switch p.Effect.Kind {
		case EffectSubscription:
			// no payload
		case EffectCredits:
			if p.Effect.Amount <= 0 {
				return nil, fmt.Errorf("payment: credits plan %q needs a positive amount", p.ID)
			}
		default:
			return nil, fmt.Errorf("payment: plan %q has unknown effect kind %q", p.ID, p.Effect.Kind)
		}
	}
	return &Catalog{plans: append([]Plan(nil), plans...)}, nil
}

// LoadCatalogFromEnv builds the default catalog with price ids from the
// environment.
func LoadCatalogFromEnv() (*Catalog, error) {
	return NewCatalog(
		Plan{
			ID:      PlanHobby,
			Name:    "Hobby",
			PriceID: env.GetEnv("PAYMENTS_HOBBY_PRICE_ID", ""),
			Effect:  Effect{Kind: EffectSubscription},
		},
		Plan{
			ID:      PlanPro,
			Name:    "Pro",
			PriceID: env.GetEnv("PAYMENTS_PRO_PRICE_ID", ""),
			Effect:  Effect{Kind: EffectSubscription},
		},
		Plan{
			ID:      PlanCredits10,
			Name:    "10 Credits",
			PriceID: env.GetEnv("PAYMENTS_CREDITS10_PRICE_ID", ""),
			Effect:  Effect{Kind: EffectCredits, Amount: 10},
		},
	)
}

// ByPriceID resolves a Stripe price id to the unique plan that carries it.
// Zero or multiple matches fail with ErrPlanNotFound: catalog integrity is a
// precondition, but it is checked defensively.
func (c *Catalog) ByPriceID(priceID string) (Plan, error) {
	var found Plan
	matches := 0
	for _, p := range c.plans {
		if p.PriceID == priceID {
			found = p
			matches++
		}
	}
	if matches != 1 {
		return Plan{}, fmt.Errorf("%w: %q (%d matches)", ErrPlanNotFound, priceID, matches)
	}
	return found, nil
}

// ByID resolves an internal plan id.
func (c *Catalog) ByID(id PlanID) (Plan, error) {
	for _, p := range c.plans {
		if p.ID == id {
			return p, nil
		}
	}
	return Plan{}, fmt.Errorf("%w: unknown plan id %q", ErrPlanNotFound, id)
}

// Plans returns a copy of the catalog entries for listing endpoints.
func (c *Catalog) Plans() []Plan {
	return append([]Plan(nil), c.plans...)
}
