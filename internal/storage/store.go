package storage

import (
	"context"

	"github.com/console-zone/rental/internal/storage/models"
)

// Mode selects a Store implementation.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeMemory Mode = "memory"
)

// PriceUpdate is the authoritative price written after a reservation is committed.
type PriceUpdate struct {
	Tier            models.Tier
	BasePrice       int64
	ControllerPrice int64
	TotalPrice      int64
}

// Store is the transactional catalog, inventory and reservation store.
// Every component receives a Store at construction; none opens its own.
type Store interface {
	// Catalog
	GetPlan(ctx context.Context, category string) (*models.PlanTier, error)
	ListPlans(ctx context.Context) ([]models.PlanTier, error)
	UpsertPlan(ctx context.Context, plan *models.PlanTier) error

	// Inventory
	ListUnits(ctx context.Context, category string) ([]models.InventoryUnit, error)
	GetUnit(ctx context.Context, id string) (*models.InventoryUnit, error)
	CreateUnit(ctx context.Context, unit *models.InventoryUnit) error
	SetUnitStatus(ctx context.Context, id string, status models.UnitStatus) error

	// Reservations
	ListActiveReservations(ctx context.Context, unitID string) ([]models.Reservation, error)
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	// CommitReservation inserts res and moves its unit from ready to rented in one
	// transaction, re-checking inside it that the unit is allocatable and that no
	// active reservation overlaps. It returns ErrConflict when the check fails.
	CommitReservation(ctx context.Context, res *models.Reservation) error
	ConfirmPrice(ctx context.Context, reservationID string, price PriceUpdate) error
	ListRepricePending(ctx context.Context, limit int) ([]models.Reservation, error)

	// Identity records for the store-backed directory
	GetRequester(ctx context.Context, id string) (*models.Requester, error)
	UpsertRequester(ctx context.Context, r *models.Requester) error

	Ping(ctx context.Context) error
	Close() error
}
