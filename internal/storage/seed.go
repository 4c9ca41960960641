package storage

import (
	"context"
	"fmt"

	"github.com/console-zone/rental/internal/storage/models"
)

// DemoPlans is the catalog loaded by Seed.
var DemoPlans = []models.PlanTier{
	{
		Category:              "PS5",
		DailyRate:             100,
		WeeklyRate:            500,
		MonthlyRate:           1500,
		ControllerDailyRate:   50,
		ControllerWeeklyRate:  200,
		ControllerMonthlyRate: 600,
		MaxControllers:        3,
	},
	{
		Category:              "XBOX",
		DailyRate:             90,
		WeeklyRate:            450,
		MonthlyRate:           1400,
		ControllerDailyRate:   40,
		ControllerWeeklyRate:  180,
		ControllerMonthlyRate: 550,
		MaxControllers:        3,
	},
	{
		Category:              "SWITCH",
		DailyRate:             70,
		WeeklyRate:            350,
		MonthlyRate:           1000,
		ControllerDailyRate:   30,
		ControllerWeeklyRate:  120,
		ControllerMonthlyRate: 400,
		MaxControllers:        2,
	},
}

// demoUnitsPerCategory is how many units Seed creates for each demo plan.
const demoUnitsPerCategory = 3

// Seed loads the demo catalog, units and requesters into an empty store.
// It does nothing when any plan already exists.
func Seed(ctx context.Context, s Store) error {
	existing, err := s.ListPlans(ctx)
	if err != nil {
		return fmt.Errorf("listing plans: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for i := range DemoPlans {
		plan := DemoPlans[i]
		if err := s.UpsertPlan(ctx, &plan); err != nil {
			return fmt.Errorf("seeding plan %s: %w", plan.Category, err)
		}

		for n := 1; n <= demoUnitsPerCategory; n++ {
			unit := &models.InventoryUnit{
				ID:           fmt.Sprintf("%s-%03d", plan.Category, n),
				Category:     plan.Category,
				Status:       models.UnitReady,
				SerialNumber: fmt.Sprintf("SN-%s-%04d", plan.Category, n),
				HealthScore:  100,
			}
			if err := s.CreateUnit(ctx, unit); err != nil {
				return fmt.Errorf("seeding unit %s: %w", unit.ID, err)
			}
		}
	}

	requesters := []models.Requester{
		{ID: "demo-verified", KYCStatus: models.KYCVerified},
		{ID: "demo-pending", KYCStatus: models.KYCPending},
		{ID: "demo-blocked", KYCStatus: models.KYCVerified, Blocked: true},
	}
	for i := range requesters {
		if err := s.UpsertRequester(ctx, &requesters[i]); err != nil {
			return fmt.Errorf("seeding requester %s: %w", requesters[i].ID, err)
		}
	}

	return nil
}
