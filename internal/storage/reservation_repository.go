package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/console-zone/rental/internal/storage/models"
)

// ReservationRepository provides data access for reservations.
type ReservationRepository struct {
	BaseRepository
}

// NewReservationRepository creates a reservation repository over q.
func NewReservationRepository(q Queryable) *ReservationRepository {
	return &ReservationRepository{
		BaseRepository: NewBaseRepository(q),
	}
}

const reservationColumns = `id, unit_id, category, plan_tier, user_id, start_at, end_at,
	controller_count, fulfillment_mode, address, status, base_price, controller_price,
	total_price, price_status, addons, notes, created_at, updated_at`

// InsertIfFree inserts res only when its unit exists, is not lost, and has no active
// reservation overlapping [res.StartAt, res.EndAt). The check and the insert are a
// single statement. It returns ErrConflict when nothing was inserted.
func (r *ReservationRepository) InsertIfFree(ctx context.Context, res *models.Reservation) error {
	if res.ID == "" {
		res.ID = GenerateID()
	}
	// the guard compares stored text, so every instant is written in UTC
	res.StartAt = res.StartAt.UTC()
	res.EndAt = res.EndAt.UTC()
	res.CreatedAt = r.Now()
	res.UpdatedAt = res.CreatedAt

	addons, err := json.Marshal(nonNilAddons(res.Addons))
	if err != nil {
		return fmt.Errorf("encoding addons: %w", err)
	}

	result, err := r.q.ExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (
			SELECT 1 FROM inventory_units WHERE id = ? AND status != ?
		)
		AND NOT EXISTS (
			SELECT 1 FROM reservations
			WHERE unit_id = ? AND status = ? AND start_at < ? AND end_at > ?
		)
	`,
		res.ID, res.UnitID, res.Category, res.PlanTier, res.UserID, res.StartAt, res.EndAt,
		res.ControllerCount, res.FulfillmentMode, res.Address, res.Status, res.BasePrice,
		res.ControllerPrice, res.TotalPrice, res.PriceStatus, string(addons), res.Notes,
		res.CreatedAt, res.UpdatedAt,
		res.UnitID, models.UnitLost,
		res.UnitID, models.ReservationActive, res.EndAt, res.StartAt,
	)
	if err != nil {
		return fmt.Errorf("inserting reservation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading insert result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrConflict
	}

	return nil
}

// GetByID retrieves a reservation by its ID.
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+reservationColumns+` FROM reservations WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying reservation: %w", err)
	}
	defer rows.Close()

	list, err := r.scanReservations(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

// ListActiveByUnit retrieves the active reservations of a unit ordered by start.
func (r *ReservationRepository) ListActiveByUnit(ctx context.Context, unitID string) ([]models.Reservation, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE unit_id = ? AND status = ?
		ORDER BY start_at
	`, unitID, models.ReservationActive)
	if err != nil {
		return nil, fmt.Errorf("querying active reservations: %w", err)
	}
	defer rows.Close()

	return r.scanReservations(rows)
}

// ListPricePending retrieves active reservations whose price was never confirmed.
func (r *ReservationRepository) ListPricePending(ctx context.Context, limit int) ([]models.Reservation, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE status = ? AND price_status = ?
		ORDER BY created_at
		LIMIT ?
	`, models.ReservationActive, models.PricePending, limit)
	if err != nil {
		return nil, fmt.Errorf("querying price-pending reservations: %w", err)
	}
	defer rows.Close()

	return r.scanReservations(rows)
}

// ConfirmPrice writes the authoritative price and clears the pending flag.
func (r *ReservationRepository) ConfirmPrice(ctx context.Context, id string, p PriceUpdate) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE reservations SET
			plan_tier = ?, base_price = ?, controller_price = ?, total_price = ?,
			price_status = ?, updated_at = ?
		WHERE id = ?
	`, p.Tier, p.BasePrice, p.ControllerPrice, p.TotalPrice, models.PriceConfirmed, r.Now(), id)
	if err != nil {
		return fmt.Errorf("confirming reservation price: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReservationRepository) scanReservations(rows *sql.Rows) ([]models.Reservation, error) {
	var list []models.Reservation
	for rows.Next() {
		var (
			res    models.Reservation
			addons string
		)
		if err := rows.Scan(
			&res.ID, &res.UnitID, &res.Category, &res.PlanTier, &res.UserID, &res.StartAt, &res.EndAt,
			&res.ControllerCount, &res.FulfillmentMode, &res.Address, &res.Status, &res.BasePrice,
			&res.ControllerPrice, &res.TotalPrice, &res.PriceStatus, &addons, &res.Notes,
			&res.CreatedAt, &res.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning reservation: %w", err)
		}
		if addons != "" {
			if err := json.Unmarshal([]byte(addons), &res.Addons); err != nil {
				return nil, fmt.Errorf("decoding addons for %s: %w", res.ID, err)
			}
		}
		list = append(list, res)
	}
	return list, rows.Err()
}

func nonNilAddons(a []string) []string {
	if a == nil {
		return []string{}
	}
	return a
}
