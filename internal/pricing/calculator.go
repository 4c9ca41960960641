// Package pricing computes rental prices from a category's plan.
package pricing

import (
	"github.com/console-zone/rental/internal/apperror"
	"github.com/console-zone/rental/internal/storage/models"
)

const (
	weeklyThresholdDays  = 7
	monthlyThresholdDays = 28
)

// Breakdown is the result of a price computation.
type Breakdown struct {
	Category        string      `json:"category"`
	Tier            models.Tier `json:"tier"`
	Days            int         `json:"days"`
	Periods         int         `json:"periods"`
	Controllers     int         `json:"controllers"`
	BasePrice       int64       `json:"base_price"`
	ControllerPrice int64       `json:"controller_price"`
	Total           int64       `json:"total"`
}

// SelectTier returns the pricing bucket and the number of billed periods for a duration.
// Monthly is a flat single period regardless of day count.
func SelectTier(days int) (models.Tier, int) {
	switch {
	case days >= monthlyThresholdDays:
		return models.TierMonthly, 1
	case days >= weeklyThresholdDays:
		return models.TierWeekly, (days + weeklyThresholdDays - 1) / weeklyThresholdDays
	default:
		return models.TierDaily, days
	}
}

// Price computes the breakdown for renting one unit of plan.Category for days days
// with controllers extra controllers. It performs no I/O.
func Price(plan models.PlanTier, days, controllers int) (Breakdown, error) {
	if days < 1 {
		return Breakdown{}, apperror.New(apperror.KindValidation, "rental duration must be at least one day, got %d", days)
	}
	if controllers < 0 {
		controllers = 0
	}
	if controllers > plan.MaxControllers {
		return Breakdown{}, apperror.New(apperror.KindInvalidControllerCount,
			"%d controllers requested, %s allows at most %d", controllers, plan.Category, plan.MaxControllers)
	}

	tier, periods := SelectTier(days)

	var rate, controllerRate int64
	switch tier {
	case models.TierMonthly:
		rate, controllerRate = plan.MonthlyRate, plan.ControllerMonthlyRate
	case models.TierWeekly:
		rate, controllerRate = plan.WeeklyRate, plan.ControllerWeeklyRate
	default:
		rate, controllerRate = plan.DailyRate, plan.ControllerDailyRate
	}

	base := rate * int64(periods)
	ctrl := controllerRate * int64(controllers) * int64(periods)

	return Breakdown{
		Category:        plan.Category,
		Tier:            tier,
		Days:            days,
		Periods:         periods,
		Controllers:     controllers,
		BasePrice:       base,
		ControllerPrice: ctrl,
		Total:           base + ctrl,
	}, nil
}
