package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/console-zone/rental/internal/storage/models"
)

// PlanRepository provides data access for category plans.
type PlanRepository struct {
	BaseRepository
}

// NewPlanRepository creates a plan repository over q.
func NewPlanRepository(q Queryable) *PlanRepository {
	return &PlanRepository{
		BaseRepository: NewBaseRepository(q),
	}
}

const planColumns = `category, daily_rate, weekly_rate, monthly_rate,
	controller_daily_rate, controller_weekly_rate, controller_monthly_rate,
	max_controllers, updated_at`

func scanPlan(row interface{ Scan(...any) error }, p *models.PlanTier) error {
	return row.Scan(
		&p.Category, &p.DailyRate, &p.WeeklyRate, &p.MonthlyRate,
		&p.ControllerDailyRate, &p.ControllerWeeklyRate, &p.ControllerMonthlyRate,
		&p.MaxControllers, &p.UpdatedAt,
	)
}

// Get retrieves the plan for a category.
func (r *PlanRepository) Get(ctx context.Context, category string) (*models.PlanTier, error) {
	p := &models.PlanTier{}
	err := scanPlan(r.q.QueryRowContext(ctx, `
		SELECT `+planColumns+` FROM plans WHERE category = ?
	`, category), p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying plan: %w", err)
	}
	return p, nil
}

// List retrieves all plans ordered by category.
func (r *PlanRepository) List(ctx context.Context) ([]models.PlanTier, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+planColumns+` FROM plans ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}
	defer rows.Close()

	var plans []models.PlanTier
	for rows.Next() {
		var p models.PlanTier
		if err := scanPlan(rows, &p); err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// Upsert creates or replaces the plan for p.Category.
func (r *PlanRepository) Upsert(ctx context.Context, p *models.PlanTier) error {
	p.UpdatedAt = r.Now()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO plans (`+planColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET
			daily_rate = excluded.daily_rate,
			weekly_rate = excluded.weekly_rate,
			monthly_rate = excluded.monthly_rate,
			controller_daily_rate = excluded.controller_daily_rate,
			controller_weekly_rate = excluded.controller_weekly_rate,
			controller_monthly_rate = excluded.controller_monthly_rate,
			max_controllers = excluded.max_controllers,
			updated_at = excluded.updated_at
	`,
		p.Category, p.DailyRate, p.WeeklyRate, p.MonthlyRate,
		p.ControllerDailyRate, p.ControllerWeeklyRate, p.ControllerMonthlyRate,
		p.MaxControllers, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting plan: %w", err)
	}
	return nil
}
