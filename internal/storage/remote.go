package storage

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/console-zone/rental/internal/storage/models"
)

// RemoteStore is the durable Store backed by the SQL database.
type RemoteStore struct {
	db           *DB
	units        *UnitRepository
	plans        *PlanRepository
	reservations *ReservationRepository
	requesters   *RequesterRepository
}

// NewRemoteStore builds a Store over an open, migrated database.
func NewRemoteStore(db *DB) *RemoteStore {
	return &RemoteStore{
		db:           db,
		units:        NewUnitRepository(db),
		plans:        NewPlanRepository(db),
		reservations: NewReservationRepository(db),
		requesters:   NewRequesterRepository(db),
	}
}

// OpenRemoteStore opens the database at path, applies migrations and returns the store.
func OpenRemoteStore(path string, log *zap.Logger) (*RemoteStore, error) {
	db, err := NewDB(path)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(db, log); err != nil {
		db.Close()
		return nil, err
	}
	return NewRemoteStore(db), nil
}

// DB returns the underlying database handle.
func (s *RemoteStore) DB() *DB { return s.db }

func (s *RemoteStore) GetPlan(ctx context.Context, category string) (*models.PlanTier, error) {
	return s.plans.Get(ctx, category)
}

func (s *RemoteStore) ListPlans(ctx context.Context) ([]models.PlanTier, error) {
	return s.plans.List(ctx)
}

func (s *RemoteStore) UpsertPlan(ctx context.Context, plan *models.PlanTier) error {
	return s.plans.Upsert(ctx, plan)
}

func (s *RemoteStore) ListUnits(ctx context.Context, category string) ([]models.InventoryUnit, error) {
	return s.units.ListByCategory(ctx, category)
}

func (s *RemoteStore) GetUnit(ctx context.Context, id string) (*models.InventoryUnit, error) {
	return s.units.GetByID(ctx, id)
}

func (s *RemoteStore) CreateUnit(ctx context.Context, unit *models.InventoryUnit) error {
	return s.units.Create(ctx, unit)
}

func (s *RemoteStore) SetUnitStatus(ctx context.Context, id string, status models.UnitStatus) error {
	return s.units.UpdateStatus(ctx, id, status)
}

func (s *RemoteStore) ListActiveReservations(ctx context.Context, unitID string) ([]models.Reservation, error) {
	return s.reservations.ListActiveByUnit(ctx, unitID)
}

func (s *RemoteStore) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

// CommitReservation runs the guarded insert and the unit status flip in one
// immediate transaction. Nothing is written when the guard fails.
func (s *RemoteStore) CommitReservation(ctx context.Context, res *models.Reservation) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := NewReservationRepository(tx).InsertIfFree(ctx, res); err != nil {
			return err
		}
		return NewUnitRepository(tx).MarkRented(ctx, res.UnitID)
	})
}

func (s *RemoteStore) ConfirmPrice(ctx context.Context, reservationID string, price PriceUpdate) error {
	return s.reservations.ConfirmPrice(ctx, reservationID, price)
}

func (s *RemoteStore) ListRepricePending(ctx context.Context, limit int) ([]models.Reservation, error) {
	return s.reservations.ListPricePending(ctx, limit)
}

func (s *RemoteStore) GetRequester(ctx context.Context, id string) (*models.Requester, error) {
	return s.requesters.GetByID(ctx, id)
}

func (s *RemoteStore) UpsertRequester(ctx context.Context, r *models.Requester) error {
	return s.requesters.Upsert(ctx, r)
}

func (s *RemoteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *RemoteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*RemoteStore)(nil)
