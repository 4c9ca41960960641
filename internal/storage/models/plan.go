package models

import "time"

// Tier is the pricing bucket selected by rental duration.
type Tier string

const (
	TierDaily   Tier = "daily"
	TierWeekly  Tier = "weekly"
	TierMonthly Tier = "monthly"
)

// PlanTier holds the rates for one category. Amounts are in minor currency units.
type PlanTier struct {
	Category              string    `json:"category"`
	DailyRate             int64     `json:"daily_rate"`
	WeeklyRate            int64     `json:"weekly_rate"`
	MonthlyRate           int64     `json:"monthly_rate"`
	ControllerDailyRate   int64     `json:"controller_daily_rate"`
	ControllerWeeklyRate  int64     `json:"controller_weekly_rate"`
	ControllerMonthlyRate int64     `json:"controller_monthly_rate"`
	MaxControllers        int       `json:"max_controllers"`
	UpdatedAt             time.Time `json:"updated_at"`
}
