package entitlements

import (
	"testing"

	"github.com/taskpilot/taskpilot/app/models"
	"github.com/taskpilot/taskpilot/internal/pkg/payment"
)

func userWith(status string, plan string, credits int) *models.User {
	u := &models.User{Credits: credits}
	if status != "" {
		u.SubscriptionStatus = &status
	}
	if plan != "" {
		u.SubscriptionPlan = &plan
	}
	return u
}

func TestCanGenerate(t *testing.T) {
	tests := []struct {
		name string
		user *models.User
		want bool
	}{
		{name: "nil user", user: nil, want: false},
		{name: "active subscriber", user: userWith(models.SubscriptionStatusActive, "pro", 0), want: true},
		{name: "pending cancellation still subscribed", user: userWith(models.SubscriptionStatusCancelAtPeriodEnd, "pro", 0), want: true},
		{name: "past due without credits", user: userWith(models.SubscriptionStatusPastDue, "pro", 0), want: false},
		{name: "deleted with credits", user: userWith(models.SubscriptionStatusDeleted, "pro", 2), want: true},
		{name: "never subscribed no credits", user: userWith("", "", 0), want: false},
		{name: "never subscribed with credits", user: userWith("", "", 3), want: true},
	}

	for _, tt := range tests {
		if got := CanGenerate(tt.user); got != tt.want {
			t.Fatalf("%s: CanGenerate = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestConsumesCredit(t *testing.T) {
	if ConsumesCredit(userWith(models.SubscriptionStatusActive, "pro", 0)) {
		t.Fatal("subscriber should not consume credits")
	}
	if !ConsumesCredit(userWith("", "", 3)) {
		t.Fatal("unsubscribed user should consume credits")
	}
}

func TestLimitsFor(t *testing.T) {
	pro := LimitsFor(userWith(models.SubscriptionStatusActive, string(payment.PlanPro), 0))
	if pro.DailyGenerations != 100 {
		t.Fatalf("pro daily generations = %d, want 100", pro.DailyGenerations)
	}

	// A stored plan does not count once the subscription is gone.
	lapsed := LimitsFor(userWith(models.SubscriptionStatusDeleted, string(payment.PlanPro), 0))
	free := PlanLimits("")
	if lapsed != free {
		t.Fatalf("lapsed subscriber limits = %+v, want free tier %+v", lapsed, free)
	}
}
