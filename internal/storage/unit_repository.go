package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/console-zone/rental/internal/storage/models"
)

// UnitRepository provides data access for inventory units.
type UnitRepository struct {
	BaseRepository
}

// NewUnitRepository creates a unit repository over q.
func NewUnitRepository(q Queryable) *UnitRepository {
	return &UnitRepository{
		BaseRepository: NewBaseRepository(q),
	}
}

const unitColumns = `id, category, status, serial_number, health_score, maintenance_state, created_at, updated_at`

// Create inserts a new unit. An empty ID is replaced with a generated one.
func (r *UnitRepository) Create(ctx context.Context, u *models.InventoryUnit) error {
	if u.ID == "" {
		u.ID = GenerateID()
	}
	if u.Status == "" {
		u.Status = models.UnitReady
	}
	u.CreatedAt = r.Now()
	u.UpdatedAt = u.CreatedAt

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO inventory_units (`+unitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		u.ID, u.Category, u.Status, u.SerialNumber, u.HealthScore,
		u.MaintenanceState, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting unit: %w", err)
	}

	return nil
}

// GetByID retrieves a unit by its ID.
func (r *UnitRepository) GetByID(ctx context.Context, id string) (*models.InventoryUnit, error) {
	u := &models.InventoryUnit{}

	err := r.q.QueryRowContext(ctx, `
		SELECT `+unitColumns+` FROM inventory_units WHERE id = ?
	`, id).Scan(
		&u.ID, &u.Category, &u.Status, &u.SerialNumber, &u.HealthScore,
		&u.MaintenanceState, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying unit: %w", err)
	}

	return u, nil
}

// ListByCategory retrieves every unit of a category ordered by ID.
// An empty category lists all units.
func (r *UnitRepository) ListByCategory(ctx context.Context, category string) ([]models.InventoryUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM inventory_units`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying units: %w", err)
	}
	defer rows.Close()

	var units []models.InventoryUnit
	for rows.Next() {
		var u models.InventoryUnit
		if err := rows.Scan(
			&u.ID, &u.Category, &u.Status, &u.SerialNumber, &u.HealthScore,
			&u.MaintenanceState, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning unit: %w", err)
		}
		units = append(units, u)
	}

	return units, rows.Err()
}

// UpdateStatus sets a unit's status unconditionally.
func (r *UnitRepository) UpdateStatus(ctx context.Context, id string, status models.UnitStatus) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE inventory_units SET status = ?, updated_at = ? WHERE id = ?
	`, status, r.Now(), id)
	if err != nil {
		return fmt.Errorf("updating unit status: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkRented moves a unit from ready to rented. Units in any other status keep it.
func (r *UnitRepository) MarkRented(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE inventory_units SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, models.UnitRented, r.Now(), id, models.UnitReady)
	if err != nil {
		return fmt.Errorf("marking unit rented: %w", err)
	}
	return nil
}
