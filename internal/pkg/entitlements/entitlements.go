package entitlements

import (
	"github.com/taskpilot/taskpilot/app/models"
	"github.com/taskpilot/taskpilot/internal/pkg/payment"
)

// Limits are the per-plan usage caps applied by the scheduler and file
// endpoints.
type Limits struct {
	DailyGenerations int
	MaxTasks         int
	MaxUploadBytes   int64
}

// PlanLimits returns the caps for a plan. Unknown or empty plans fall back to
// the free tier.
func PlanLimits(plan payment.PlanID) Limits {
	switch plan {
	case payment.PlanPro:
		return Limits{DailyGenerations: 100, MaxTasks: 500, MaxUploadBytes: 50 << 20}
	case payment.PlanHobby:
		return Limits{DailyGenerations: 20, MaxTasks: 100, MaxUploadBytes: 20 << 20}
	default:
		return Limits{DailyGenerations: 3, MaxTasks: 25, MaxUploadBytes: 5 << 20}
	}
}

// LimitsFor resolves the effective limits for a user. Users without an
// active subscription get the free tier regardless of their stored plan.
func LimitsFor(user *models.User) Limits {
	if user == nil || !user.IsSubscribed() || user.SubscriptionPlan == nil {
		return PlanLimits("")
	}
	return PlanLimits(payment.PlanID(*user.SubscriptionPlan))
}

// CanGenerate reports whether the user may run an AI generation: subscribed
// users always can, others spend prepaid credits.
func CanGenerate(user *models.User) bool {
	if user == nil {
		return false
	}
	return user.IsSubscribed() || user.Credits > 0
}

// ConsumesCredit reports whether a generation should decrement the user's
// credit balance. Subscribers generate without touching credits.
func ConsumesCredit(user *models.User) bool {
	return user != nil && !user.IsSubscribed()
}
