package payment

import (
	"errors"
	"fmt"
)

// Error taxonomy for the webhook pipeline. The webhook controller maps these
// onto HTTP statuses: UnhandledEventError -> 422 (tolerated, do not
// redeliver), MalformedEventError -> 400 (upstream contract break),
// ErrUserNotFound -> 500 (retryable, account provisioning may have raced the
// webhook), ErrPlanNotFound -> 500 (catalog misconfiguration).
var (
	ErrUserNotFound = errors.New("payment: no user for customer id")
	ErrPlanNotFound = errors.New("payment: no plan for price id")
)

// UnhandledEventError marks an event type this system deliberately does not
// process. It carries the original type string so callers can distinguish
// "not supported yet" from a malformed payload.
type UnhandledEventError struct {
	Type string
}

func (e *UnhandledEventError) Error() string {
	return fmt.Sprintf("payment: unhandled webhook event type %q", e.Type)
}

// MalformedEventError marks a recognized event whose payload failed strict
// validation. The event is rejected, never partially applied.
type MalformedEventError struct {
	Reason string
	Err    error
}

func (e *MalformedEventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment: malformed event: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("payment: malformed event: %s", e.Reason)
}

func (e *MalformedEventError) Unwrap() error {
	return e.Err
}

func malformed(reason string, err error) error {
	return &MalformedEventError{Reason: reason, Err: err}
}
