package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/taskpilot/taskpilot/app/models"
	"github.com/taskpilot/taskpilot/app/repository"
	"github.com/taskpilot/taskpilot/internal/pkg/payment"
)

// Billing is the process-wide payment wiring, injected at startup.
var (
	Gateway        *payment.Gateway
	PaymentService *payment.Service
	PaymentRepo    payment.Repository
	PaymentCatalog *payment.Catalog
)

type checkoutRequest struct {
	PlanID string `json:"plan_id"`
}

// HandleListPlans returns the purchasable plan catalog.
func HandleListPlans(c *fiber.Ctx) error {
	if PaymentCatalog == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "billing_unavailable", "Billing is not configured")
	}

	plans := PaymentCatalog.Plans()
	items := make([]fiber.Map, 0, len(plans))
	for _, p := range plans {
		item := fiber.Map{
			"id":     p.ID,
			"name":   p.Name,
			"effect": p.Effect.Kind,
		}
		if p.Effect.Kind == payment.EffectCredits {
			item["credits"] = p.Effect.Amount
		}
		items = append(items, item)
	}
	return c.JSON(fiber.Map{"plans": items})
}

// HandleCreateCheckoutSession starts a Stripe checkout for the given plan.
// The Stripe customer is created lazily on first purchase and cached on the
// user row.
func HandleCreateCheckoutSession(c *fiber.Ctx) error {
	if Gateway == nil || PaymentCatalog == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "billing_unavailable", "Billing is not configured")
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	plan, err := PaymentCatalog.ByID(payment.PlanID(req.PlanID))
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "unknown_plan", "No such plan")
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	customerID := strPtrValue(user.PaymentCustomerID)
	if customerID == "" {
		customerID, err = Gateway.EnsureCustomer(c.Context(), user.Email)
		if err != nil {
			log.Errorf("stripe customer provisioning failed for user %d: %v", user.ID, err)
			return jsonError(c, fiber.StatusBadGateway, "billing_error", "Failed to create billing customer")
		}
		if err := repository.GetGlobalRepositories().User.SetPaymentCustomerID(user.ID, customerID); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to store billing customer")
		}
	}

	sess, err := Gateway.CreateCheckoutSession(c.Context(), customerID, plan)
	if err != nil {
		log.Errorf("checkout session creation failed for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusBadGateway, "billing_error", "Failed to create checkout session")
	}

	return c.JSON(fiber.Map{"checkout_url": sess.URL})
}

// HandleCustomerPortal returns a Stripe customer portal URL. Users without a
// billing customer have nothing to manage.
func HandleCustomerPortal(c *fiber.Ctx) error {
	if Gateway == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "billing_unavailable", "Billing is not configured")
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	customerID := strPtrValue(user.PaymentCustomerID)
	if customerID == "" {
		return jsonError(c, fiber.StatusNotFound, "no_billing_account", "No billing account yet")
	}

	url, err := Gateway.PortalURL(c.Context(), customerID)
	if err != nil {
		log.Errorf("portal session creation failed for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusBadGateway, "billing_error", "Failed to create portal session")
	}
	return c.JSON(fiber.Map{"portal_url": url})
}

// HandlePaymentWebhook is the Stripe webhook endpoint. Signature
// verification comes first, then the event is recorded in the dedup ledger;
// only first deliveries reach the payment service. Redeliveries are
// acknowledged without reprocessing so one-time credit grants stay single.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	if Gateway == nil || PaymentService == nil || PaymentRepo == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "billing_unavailable", "Billing is not configured")
	}

	payload := c.Body()
	event, err := Gateway.ConstructEvent(payload, c.Get("Stripe-Signature"))
	if err != nil {
		log.Warnf("webhook signature verification failed: %v", err)
		return jsonError(c, fiber.StatusBadRequest, "invalid_signature", "Webhook signature verification failed")
	}

	record := &models.PaymentEvent{
		Provider:        models.PaymentProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	}
	first, stored, err := PaymentRepo.RecordEventIfNew(c.Context(), record)
	if err != nil {
		log.Errorf("failed to record webhook event %s: %v", event.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to record event")
	}
	// Redeliveries are only short-circuited once the event is terminally
	// handled. A prior attempt that failed retryably (500) left no state
	// behind, so the redelivery must run the handler again.
	if !first && stored.ProcessedAt != nil {
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	procErr := PaymentService.HandleEvent(c.Context(), string(event.Type), event.Data.Raw)

	var unhandled *payment.UnhandledEventError
	var malformed *payment.MalformedEventError
	terminal := procErr == nil || errors.As(procErr, &unhandled) || errors.As(procErr, &malformed)
	if terminal {
		if err := PaymentRepo.MarkEventProcessed(c.Context(), stored.ID, procErr); err != nil {
			log.Errorf("failed to mark webhook event %s processed: %v", event.ID, err)
		}
	} else {
		if err := PaymentRepo.MarkEventFailed(c.Context(), stored.ID, procErr); err != nil {
			log.Errorf("failed to record webhook event %s failure: %v", event.ID, err)
		}
	}

	if procErr != nil {
		switch {
		case unhandled != nil:
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"received": true,
				"error":    "unhandled_event_type",
				"message":  "Event type is not processed",
			})
		case malformed != nil:
			return jsonError(c, fiber.StatusBadRequest, "malformed_event", "Event payload failed validation")
		default:
			log.Errorf("webhook event %s (%s) failed: %v", event.ID, event.Type, procErr)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Event processing failed")
		}
	}

	return c.JSON(fiber.Map{"received": true})
}
